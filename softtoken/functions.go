package softtoken

import (
	"github.com/miekg/pkcs11"
)

// Initialize implements C_Initialize
func (t *Token) Initialize() error {
	t.lock.Lock()
	defer t.lock.Unlock()
	if err := t.enter("C_Initialize"); err != nil {
		return err
	}
	if t.initialized {
		return pkcs11.Error(pkcs11.CKR_CRYPTOKI_ALREADY_INITIALIZED)
	}
	t.initialized = true
	return nil
}

// Finalize implements C_Finalize, all sessions are closed
func (t *Token) Finalize() error {
	t.lock.Lock()
	defer t.lock.Unlock()
	if err := t.enter("C_Finalize"); err != nil {
		return err
	}
	if !t.initialized {
		return pkcs11.Error(pkcs11.CKR_CRYPTOKI_NOT_INITIALIZED)
	}
	t.initialized = false
	t.sessions = make(map[pkcs11.SessionHandle]uint)
	t.user = notLoggedIn
	return nil
}

// GetSlotList implements C_GetSlotList
func (t *Token) GetSlotList(tokenPresent bool) ([]uint, error) {
	t.lock.Lock()
	defer t.lock.Unlock()
	if err := t.enter("C_GetSlotList"); err != nil {
		return nil, err
	}
	if !t.initialized {
		return nil, pkcs11.Error(pkcs11.CKR_CRYPTOKI_NOT_INITIALIZED)
	}
	if tokenPresent && t.cfg.Absent {
		return []uint{}, nil
	}
	return []uint{t.cfg.SlotID}, nil
}

// GetSlotInfo implements C_GetSlotInfo
func (t *Token) GetSlotInfo(slotID uint) (pkcs11.SlotInfo, error) {
	t.lock.Lock()
	defer t.lock.Unlock()
	if err := t.enter("C_GetSlotInfo"); err != nil {
		return pkcs11.SlotInfo{}, err
	}
	if err := t.checkSlot(slotID); err != nil {
		return pkcs11.SlotInfo{}, err
	}
	si := pkcs11.SlotInfo{
		SlotDescription: "In-memory slot",
		ManufacturerID:  "p11conform",
	}
	if !t.cfg.Absent {
		si.Flags |= pkcs11.CKF_TOKEN_PRESENT
	}
	return si, nil
}

// GetTokenInfo implements C_GetTokenInfo
func (t *Token) GetTokenInfo(slotID uint) (pkcs11.TokenInfo, error) {
	t.lock.Lock()
	defer t.lock.Unlock()
	if err := t.enter("C_GetTokenInfo"); err != nil {
		return pkcs11.TokenInfo{}, err
	}
	if err := t.checkSlot(slotID); err != nil {
		return pkcs11.TokenInfo{}, err
	}
	if t.cfg.Absent {
		return pkcs11.TokenInfo{}, pkcs11.Error(pkcs11.CKR_TOKEN_NOT_PRESENT)
	}
	rw := 0
	for _, flags := range t.sessions {
		if flags&pkcs11.CKF_RW_SESSION != 0 {
			rw++
		}
	}
	return pkcs11.TokenInfo{
		Label:          t.cfg.Label,
		ManufacturerID: "p11conform",
		Model:          "softtoken",
		SerialNumber:   "0000000000000001",
		Flags:          t.cfg.TokenFlags,
		SessionCount:   uint(len(t.sessions)),
		RwSessionCount: uint(rw),
		MaxPinLen:      64,
		MinPinLen:      4,
	}, nil
}

// OpenSession implements C_OpenSession
func (t *Token) OpenSession(slotID uint, flags uint) (pkcs11.SessionHandle, error) {
	t.lock.Lock()
	defer t.lock.Unlock()
	if err := t.enter("C_OpenSession"); err != nil {
		return 0, err
	}
	if err := t.checkSlot(slotID); err != nil {
		return 0, err
	}
	if t.cfg.Absent {
		return 0, pkcs11.Error(pkcs11.CKR_TOKEN_NOT_PRESENT)
	}
	if flags&pkcs11.CKF_SERIAL_SESSION == 0 {
		return 0, pkcs11.Error(pkcs11.CKR_SESSION_PARALLEL_NOT_SUPPORTED)
	}
	if flags&pkcs11.CKF_RW_SESSION == 0 && t.user == pkcs11.CKU_SO {
		return 0, pkcs11.Error(pkcs11.CKR_SESSION_READ_WRITE_SO_EXISTS)
	}

	sh := t.nextHandle
	t.nextHandle++
	t.sessions[sh] = flags
	return sh, nil
}

// CloseSession implements C_CloseSession,
// closing the last session logs the user out
func (t *Token) CloseSession(sh pkcs11.SessionHandle) error {
	t.lock.Lock()
	defer t.lock.Unlock()
	if err := t.enter("C_CloseSession"); err != nil {
		return err
	}
	if _, err := t.checkSession(sh); err != nil {
		return err
	}
	delete(t.sessions, sh)
	if len(t.sessions) == 0 {
		t.user = notLoggedIn
	}
	return nil
}

// GetSessionInfo implements C_GetSessionInfo
func (t *Token) GetSessionInfo(sh pkcs11.SessionHandle) (pkcs11.SessionInfo, error) {
	t.lock.Lock()
	defer t.lock.Unlock()
	if err := t.enter("C_GetSessionInfo"); err != nil {
		return pkcs11.SessionInfo{}, err
	}
	flags, err := t.checkSession(sh)
	if err != nil {
		return pkcs11.SessionInfo{}, err
	}

	rw := flags&pkcs11.CKF_RW_SESSION != 0
	var state uint
	switch {
	case t.user == pkcs11.CKU_SO:
		state = pkcs11.CKS_RW_SO_FUNCTIONS
	case t.user == pkcs11.CKU_USER && rw:
		state = pkcs11.CKS_RW_USER_FUNCTIONS
	case t.user == pkcs11.CKU_USER:
		state = pkcs11.CKS_RO_USER_FUNCTIONS
	case rw:
		state = pkcs11.CKS_RW_PUBLIC_SESSION
	default:
		state = pkcs11.CKS_RO_PUBLIC_SESSION
	}
	return pkcs11.SessionInfo{
		SlotID: t.cfg.SlotID,
		State:  state,
		Flags:  flags,
	}, nil
}

// Login implements C_Login
func (t *Token) Login(sh pkcs11.SessionHandle, userType uint, pin string) error {
	t.lock.Lock()
	defer t.lock.Unlock()
	if err := t.enter("C_Login"); err != nil {
		return err
	}
	if _, err := t.checkSession(sh); err != nil {
		return err
	}

	var expected string
	switch userType {
	case pkcs11.CKU_USER:
		expected = t.cfg.UserPIN
	case pkcs11.CKU_SO:
		expected = t.cfg.SOPIN
		for _, flags := range t.sessions {
			if flags&pkcs11.CKF_RW_SESSION == 0 {
				return pkcs11.Error(pkcs11.CKR_SESSION_READ_ONLY_EXISTS)
			}
		}
	default:
		return pkcs11.Error(pkcs11.CKR_USER_TYPE_INVALID)
	}

	if t.user == userType {
		return pkcs11.Error(pkcs11.CKR_USER_ALREADY_LOGGED_IN)
	}
	if t.user != notLoggedIn {
		return pkcs11.Error(pkcs11.CKR_USER_ANOTHER_ALREADY_LOGGED_IN)
	}
	if pin != expected {
		return pkcs11.Error(pkcs11.CKR_PIN_INCORRECT)
	}
	t.user = userType
	return nil
}

// Logout implements C_Logout
func (t *Token) Logout(sh pkcs11.SessionHandle) error {
	t.lock.Lock()
	defer t.lock.Unlock()
	if err := t.enter("C_Logout"); err != nil {
		return err
	}
	if _, err := t.checkSession(sh); err != nil {
		return err
	}
	if t.user == notLoggedIn {
		return pkcs11.Error(pkcs11.CKR_USER_NOT_LOGGED_IN)
	}
	t.user = notLoggedIn
	return nil
}

// Destroy is a no-op for in-memory token
func (t *Token) Destroy() {}
