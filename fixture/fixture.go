package fixture

import (
	"github.com/effective-security/p11conform/p11"
	"github.com/miekg/pkcs11"
)

// Options specify the parts of a Fixture
type Options struct {
	// Session creates the session context without opening a session
	Session bool
	// Flags are the access mode flags of the session to open,
	// zero does not open a session
	Flags uint
	// Login specifies when to log in
	Login LoginPolicy
	// Role to log in as, required unless Login is LoginNever
	Role Role
}

// Fixture is the provider, session and login state of a test
type Fixture struct {
	Provider *ProviderContext
	// Session is nil for provider only fixtures
	Session *SessionContext
	// Auth is nil for fixtures without login
	Auth *AuthContext

	t   T
	env *Env
}

// Setup creates a Fixture and registers its teardown with t.Cleanup
func Setup(t T, env *Env, opts Options) *Fixture {
	t.Helper()
	f := &Fixture{t: t, env: env}
	t.Cleanup(f.Teardown)

	f.Provider = OpenProvider(t, env)
	if opts.Session || opts.Flags != 0 || opts.Login != LoginNever {
		f.Session = NewSessionContext(t, env)
		if opts.Flags != 0 {
			f.Session.Open(opts.Flags)
		}
		if opts.Login != LoginNever {
			if userType, ok := opts.Role.UserType(); ok {
				f.Auth = NewAuthContext(t, env, f.Session, userType, opts.Login)
			} else {
				t.Errorf("login policy %s requires a role", opts.Login)
			}
		}
	}
	return f
}

// Teardown logs out, closes the session and finalizes the provider,
// in that order. Each step runs once.
func (f *Fixture) Teardown() {
	if f.Auth != nil {
		f.Auth.Close()
	}
	if f.Session != nil {
		f.Session.Close()
	}
	if f.Provider != nil {
		f.Provider.Close()
	}
}

// Env returns the environment of the fixture
func (f *Fixture) Env() *Env {
	return f.env
}

// Handle returns the session handle,
// or p11.InvalidSessionHandle if the session is not open
func (f *Fixture) Handle() pkcs11.SessionHandle {
	if f.Session == nil {
		return p11.InvalidSessionHandle
	}
	return f.Session.Handle()
}

// Login logs the user in the fixture's session,
// see SessionContext.Login
func (f *Fixture) Login(userType uint, pin string) p11.RV {
	f.t.Helper()
	if f.Session == nil {
		f.t.Errorf("fixture has no session")
		return p11.RV(pkcs11.CKR_SESSION_HANDLE_INVALID)
	}
	return f.Session.Login(userType, pin)
}

// NewProviderFixture initializes the provider
func NewProviderFixture(t T, env *Env) *Fixture {
	t.Helper()
	return Setup(t, env, Options{})
}

// NewSessionFixture checks the slot, without opening a session
func NewSessionFixture(t T, env *Env) *Fixture {
	t.Helper()
	return Setup(t, env, Options{Session: true})
}

// NewReadOnlySessionFixture opens a read-only session
func NewReadOnlySessionFixture(t T, env *Env) *Fixture {
	t.Helper()
	return Setup(t, env, Options{Flags: p11.ReadOnly})
}

// NewReadWriteSessionFixture opens a read-write session
func NewReadWriteSessionFixture(t T, env *Env) *Fixture {
	t.Helper()
	return Setup(t, env, Options{Flags: p11.ReadWrite})
}

// NewROUserSessionFixture opens a read-only session with normal user logged in
func NewROUserSessionFixture(t T, env *Env) *Fixture {
	t.Helper()
	return Setup(t, env, Options{Flags: p11.ReadOnly, Login: LoginAlways, Role: RoleUser})
}

// NewRWUserSessionFixture opens a read-write session with normal user logged in
func NewRWUserSessionFixture(t T, env *Env) *Fixture {
	t.Helper()
	return Setup(t, env, Options{Flags: p11.ReadWrite, Login: LoginAlways, Role: RoleUser})
}

// NewRWSOSessionFixture opens a read-write session with security officer logged in
func NewRWSOSessionFixture(t T, env *Env) *Fixture {
	t.Helper()
	return Setup(t, env, Options{Flags: p11.ReadWrite, Login: LoginAlways, Role: RoleSO})
}

// NewROEitherSessionFixture opens a read-only session,
// and logs normal user in if the token requires login
func NewROEitherSessionFixture(t T, env *Env) *Fixture {
	t.Helper()
	return Setup(t, env, Options{Flags: p11.ReadOnly, Login: LoginIfRequired, Role: RoleUser})
}

// NewRWEitherSessionFixture opens a read-write session,
// and logs normal user in if the token requires login
func NewRWEitherSessionFixture(t T, env *Env) *Fixture {
	t.Helper()
	return Setup(t, env, Options{Flags: p11.ReadWrite, Login: LoginIfRequired, Role: RoleUser})
}
