package fixture

import (
	"github.com/effective-security/p11conform/p11"
	"github.com/miekg/pkcs11"
)

// LoginPolicy specifies when a fixture logs in
type LoginPolicy int

const (
	// LoginNever does not log in
	LoginNever LoginPolicy = iota
	// LoginAlways logs in and out unconditionally
	LoginAlways
	// LoginIfRequired logs in and out only if the token flags
	// have CKF_LOGIN_REQUIRED
	LoginIfRequired
)

// String returns the policy name
func (p LoginPolicy) String() string {
	switch p {
	case LoginNever:
		return "never"
	case LoginAlways:
		return "always"
	case LoginIfRequired:
		return "if_required"
	}
	return "unknown"
}

// Role is the user type a fixture logs in as.
// The zero value is not a role.
type Role uint

const (
	// RoleUser logs in as CKU_USER
	RoleUser Role = iota + 1
	// RoleSO logs in as CKU_SO
	RoleSO
)

// UserType returns the PKCS#11 user type of the role,
// false for the zero value
func (r Role) UserType() (uint, bool) {
	switch r {
	case RoleUser:
		return pkcs11.CKU_USER, true
	case RoleSO:
		return pkcs11.CKU_SO, true
	}
	return 0, false
}

// String returns the user type name
func (r Role) String() string {
	if ut, ok := r.UserType(); ok {
		return p11.UserTypeName(ut)
	}
	return "none"
}

// AuthContext is a login on a SessionContext
type AuthContext struct {
	t        T
	env      *Env
	session  *SessionContext
	userType uint
	active   bool
	rv       p11.RV
	closed   bool
}

// NewAuthContext logs in according to the policy.
// The decision is taken once, Close logs out in the same circumstances.
func NewAuthContext(t T, env *Env, session *SessionContext, userType uint, policy LoginPolicy) *AuthContext {
	t.Helper()
	a := &AuthContext{
		t:        t,
		env:      env,
		session:  session,
		userType: userType,
		active:   policy == LoginAlways || (policy == LoginIfRequired && env.LoginRequired()),
	}
	if a.active {
		a.rv = session.Login(userType, env.PIN(userType))
	}
	return a
}

// Active returns true if login was attempted
func (a *AuthContext) Active() bool {
	return a.active
}

// UserType returns the user type
func (a *AuthContext) UserType() uint {
	return a.userType
}

// RV returns the status of C_Login
func (a *AuthContext) RV() p11.RV {
	return a.rv
}

// Close logs out and asserts success, if login was attempted.
// Logout is called regardless of the login status.
func (a *AuthContext) Close() {
	if !a.active || a.closed {
		return
	}
	a.t.Helper()
	a.closed = true

	sh := a.session.Handle()
	if sh == p11.InvalidSessionHandle {
		diag(a.t, "Skipping logout of user type %s: session is not open", p11.UserTypeName(a.userType))
		return
	}
	ExpectOK(a.t, a.env.Provider().Logout(sh), "C_Logout")
}
