package fixture

import (
	"github.com/effective-security/p11conform/p11"
	"github.com/miekg/pkcs11"
)

// SessionContext holds at most one session on the configured slot
type SessionContext struct {
	t      T
	env    *Env
	handle pkcs11.SessionHandle
	flags  uint
}

// NewSessionContext checks the configured slot, it does not open a session.
// A slot without a token is reported as a diagnostic only.
func NewSessionContext(t T, env *Env) *SessionContext {
	t.Helper()
	s := &SessionContext{
		t:      t,
		env:    env,
		handle: p11.InvalidSessionHandle,
	}

	si, err := env.Provider().GetSlotInfo(env.SlotID())
	if ExpectOK(t, err, "C_GetSlotInfo: slot=%d", env.SlotID()) && si.Flags&pkcs11.CKF_TOKEN_PRESENT == 0 {
		diag(t, "Need to specify a slot ID that has a token present: slot=%d", env.SlotID())
	}
	return s
}

// Open opens a session with the access mode flags and asserts success
func (s *SessionContext) Open(flags uint) p11.RV {
	s.t.Helper()
	if s.handle != p11.InvalidSessionHandle {
		s.t.Errorf("session is already open: handle=%d", s.handle)
		return p11.RV(pkcs11.CKR_SESSION_EXISTS)
	}

	s.flags = flags
	sh, err := s.env.Provider().OpenSession(s.env.SlotID(), flags)
	if ExpectOK(s.t, err, "C_OpenSession: flags=%s", p11.SessionFlagsString(flags)) {
		s.handle = sh
	}
	return p11.RVOf(err)
}

// Handle returns the session handle,
// or p11.InvalidSessionHandle if the session is not open
func (s *SessionContext) Handle() pkcs11.SessionHandle {
	return s.handle
}

// Flags returns the access mode flags of the last Open
func (s *SessionContext) Flags() uint {
	return s.flags
}

// Login logs the user in the session.
// A failure is reported as a diagnostic only, the caller asserts on the
// returned status.
func (s *SessionContext) Login(userType uint, pin string) p11.RV {
	s.t.Helper()
	return login(s.t, s.env, s.handle, userType, pin)
}

// Close closes the session if it is open, and asserts success
func (s *SessionContext) Close() {
	if s.handle == p11.InvalidSessionHandle {
		return
	}
	s.t.Helper()
	sh := s.handle
	s.handle = p11.InvalidSessionHandle
	ExpectOK(s.t, s.env.Provider().CloseSession(sh), "C_CloseSession")
}

func login(t T, env *Env, sh pkcs11.SessionHandle, userType uint, pin string) p11.RV {
	t.Helper()
	rv := p11.RVOf(env.Provider().Login(sh, userType, pin))
	if !rv.OK() {
		diag(t, "Failed to login as user type %s, error %s", p11.UserTypeName(userType), rv)
	}
	return rv
}
