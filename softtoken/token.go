package softtoken

import (
	"sync"

	"github.com/effective-security/p11conform/p11"
	"github.com/effective-security/xlog"
	"github.com/miekg/pkcs11"
)

var logger = xlog.NewPackageLogger("github.com/effective-security/p11conform", "softtoken")

// ModuleName is the name the token is registered under
const ModuleName = "softtoken"

// Defaults used by New
const (
	DefaultSlotID  uint = 0
	DefaultLabel        = "softtoken"
	DefaultUserPIN      = "1234"
	DefaultSOPIN        = "5678"
)

// DefaultTokenFlags are reported by C_GetTokenInfo
const DefaultTokenFlags uint = pkcs11.CKF_RNG |
	pkcs11.CKF_LOGIN_REQUIRED |
	pkcs11.CKF_USER_PIN_INITIALIZED |
	pkcs11.CKF_TOKEN_INITIALIZED

const notLoggedIn = ^uint(0)

func init() {
	_ = p11.Register(ModuleName, func(string) (p11.Provider, error) {
		return New(), nil
	})
}

// Config specifies the token
type Config struct {
	SlotID     uint
	Label      string
	UserPIN    string
	SOPIN      string
	TokenFlags uint
	// Absent simulates an empty slot
	Absent bool
}

// Token is an in-memory PKCS#11 provider
type Token struct {
	lock sync.Mutex
	cfg  Config

	initialized bool
	sessions    map[pkcs11.SessionHandle]uint
	nextHandle  pkcs11.SessionHandle
	user        uint

	calls  map[string]int
	trail  []string
	faults map[string]uint
}

// Ensure compiles
var _ p11.Provider = (*Token)(nil)

// New returns a token with default configuration
func New() *Token {
	return NewWithConfig(Config{
		SlotID:     DefaultSlotID,
		Label:      DefaultLabel,
		UserPIN:    DefaultUserPIN,
		SOPIN:      DefaultSOPIN,
		TokenFlags: DefaultTokenFlags,
	})
}

// NewWithConfig returns a token
func NewWithConfig(cfg Config) *Token {
	return &Token{
		cfg:        cfg,
		sessions:   make(map[pkcs11.SessionHandle]uint),
		nextHandle: 1,
		user:       notLoggedIn,
		calls:      make(map[string]int),
		faults:     make(map[string]uint),
	}
}

// FailWith makes every following call of the function return rv,
// until ClearFaults is called
func (t *Token) FailWith(call string, rv uint) {
	t.lock.Lock()
	defer t.lock.Unlock()
	t.faults[call] = rv
}

// ClearFaults removes injected failures
func (t *Token) ClearFaults() {
	t.lock.Lock()
	defer t.lock.Unlock()
	t.faults = make(map[string]uint)
}

// Calls returns the number of times the function was called
func (t *Token) Calls(call string) int {
	t.lock.Lock()
	defer t.lock.Unlock()
	return t.calls[call]
}

// Trail returns the names of called functions, in order
func (t *Token) Trail() []string {
	t.lock.Lock()
	defer t.lock.Unlock()
	return append([]string(nil), t.trail...)
}

// ResetCalls clears call counters and the trail
func (t *Token) ResetCalls() {
	t.lock.Lock()
	defer t.lock.Unlock()
	t.calls = make(map[string]int)
	t.trail = nil
}

// SessionCount returns the number of open sessions
func (t *Token) SessionCount() int {
	t.lock.Lock()
	defer t.lock.Unlock()
	return len(t.sessions)
}

// Initialized returns true between C_Initialize and C_Finalize
func (t *Token) Initialized() bool {
	t.lock.Lock()
	defer t.lock.Unlock()
	return t.initialized
}

// LoggedIn returns the logged-in user type
func (t *Token) LoggedIn() (uint, bool) {
	t.lock.Lock()
	defer t.lock.Unlock()
	return t.user, t.user != notLoggedIn
}

// enter records the call and returns an injected fault, if any.
// The caller must hold the lock.
func (t *Token) enter(call string) error {
	t.calls[call]++
	t.trail = append(t.trail, call)
	if rv, ok := t.faults[call]; ok {
		logger.KV(xlog.DEBUG, "call", call, "fault", p11.RVName(rv))
		return p11.RV(rv).Err()
	}
	return nil
}

func (t *Token) checkSession(sh pkcs11.SessionHandle) (uint, error) {
	if !t.initialized {
		return 0, pkcs11.Error(pkcs11.CKR_CRYPTOKI_NOT_INITIALIZED)
	}
	flags, ok := t.sessions[sh]
	if !ok {
		return 0, pkcs11.Error(pkcs11.CKR_SESSION_HANDLE_INVALID)
	}
	return flags, nil
}

func (t *Token) checkSlot(slotID uint) error {
	if !t.initialized {
		return pkcs11.Error(pkcs11.CKR_CRYPTOKI_NOT_INITIALIZED)
	}
	if slotID != t.cfg.SlotID {
		return pkcs11.Error(pkcs11.CKR_SLOT_ID_INVALID)
	}
	return nil
}
