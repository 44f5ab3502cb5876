package fixture

import (
	"github.com/effective-security/p11conform/p11"
	"github.com/effective-security/xlog"
	"github.com/miekg/pkcs11"
)

// Mode specifies a scoped Session
type Mode struct {
	// Flags are the access mode flags
	Flags uint
	// Role to log in as, the zero value does not log in
	Role Role
}

// Common session modes
var (
	ROSession     = Mode{Flags: p11.ReadOnly}
	RWSession     = Mode{Flags: p11.ReadWrite}
	ROUserSession = Mode{Flags: p11.ReadOnly, Role: RoleUser}
	RWUserSession = Mode{Flags: p11.ReadWrite, Role: RoleUser}
	RWSOSession   = Mode{Flags: p11.ReadWrite, Role: RoleSO}
)

// Session is a session opened in a test body,
// the caller must Close it
type Session struct {
	t        T
	env      *Env
	mode     Mode
	handle   pkcs11.SessionHandle
	openRV   p11.RV
	loginRV  p11.RV
	loggedIn bool
	closed   bool
}

// OpenSession opens a session and asserts success.
// If the mode has a role, the user logs in with the configured PIN.
func OpenSession(t T, env *Env, mode Mode) *Session {
	t.Helper()
	s := open(t, env, mode)
	if userType, ok := mode.Role.UserType(); ok {
		s.login(userType, env.PIN(userType))
	}
	return s
}

// OpenLoginSession opens a session and logs the role of the mode in
// with the PIN. Login failure is reported as a diagnostic only,
// see LoginRV. A mode without a role is a test failure.
func OpenLoginSession(t T, env *Env, mode Mode, pin string) *Session {
	t.Helper()
	s := open(t, env, mode)
	userType, ok := mode.Role.UserType()
	if !ok {
		t.Errorf("session mode has no role to log in as")
		return s
	}
	s.login(userType, pin)
	return s
}

// WithSession runs fn with an open session, which is closed when fn returns
// or panics
func WithSession(t T, env *Env, mode Mode, fn func(s *Session)) {
	t.Helper()
	s := OpenSession(t, env, mode)
	defer s.Close()
	fn(s)
}

// WithLoginSession runs fn with an open session logged in with the PIN,
// the session is closed when fn returns or panics
func WithLoginSession(t T, env *Env, mode Mode, pin string, fn func(s *Session)) {
	t.Helper()
	s := OpenLoginSession(t, env, mode, pin)
	defer s.Close()
	fn(s)
}

func open(t T, env *Env, mode Mode) *Session {
	t.Helper()
	s := &Session{
		t:      t,
		env:    env,
		mode:   mode,
		handle: p11.InvalidSessionHandle,
	}
	sh, err := env.Provider().OpenSession(env.SlotID(), mode.Flags)
	s.openRV = p11.RVOf(err)
	if ExpectOK(t, err, "C_OpenSession: flags=%s", p11.SessionFlagsString(mode.Flags)) {
		s.handle = sh
	}
	return s
}

func (s *Session) login(userType uint, pin string) {
	s.t.Helper()
	if s.handle == p11.InvalidSessionHandle {
		return
	}
	s.loggedIn = true
	s.loginRV = login(s.t, s.env, s.handle, userType, pin)
}

// Handle returns the session handle
func (s *Session) Handle() pkcs11.SessionHandle {
	return s.handle
}

// Mode returns the session mode
func (s *Session) Mode() Mode {
	return s.mode
}

// OpenRV returns the status of C_OpenSession
func (s *Session) OpenRV() p11.RV {
	return s.openRV
}

// LoginRV returns the status of C_Login
func (s *Session) LoginRV() p11.RV {
	return s.loginRV
}

// Close logs out if login was attempted, ignoring the result,
// then closes the session and asserts success
func (s *Session) Close() {
	if s.closed {
		return
	}
	s.t.Helper()
	s.closed = true
	if s.handle == p11.InvalidSessionHandle {
		return
	}

	sh := s.handle
	s.handle = p11.InvalidSessionHandle
	if s.loggedIn {
		if err := s.env.Provider().Logout(sh); err != nil {
			logger.KV(xlog.DEBUG, "reason", "logout", "handle", sh, "rv", p11.RVOf(err).String())
		}
	}
	ExpectOK(s.t, s.env.Provider().CloseSession(sh), "C_CloseSession")
}
