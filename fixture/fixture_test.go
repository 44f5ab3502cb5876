package fixture_test

import (
	"strings"
	"testing"

	"github.com/effective-security/p11conform/fixture"
	"github.com/effective-security/p11conform/p11"
	"github.com/effective-security/p11conform/softtoken"
	"github.com/miekg/pkcs11"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newEnv(tok *softtoken.Token, tokenFlags uint) *fixture.Env {
	return fixture.NewEnv(tok, softtoken.DefaultSlotID, softtoken.DefaultUserPIN, softtoken.DefaultSOPIN, tokenFlags)
}

func hasText(list []string, text string) bool {
	for _, s := range list {
		if strings.Contains(s, text) {
			return true
		}
	}
	return false
}

func TestExpectRV(t *testing.T) {
	r := fixture.NewReporter(nil)

	assert.True(t, fixture.ExpectOK(r, nil))
	assert.True(t, fixture.ExpectRV(r, pkcs11.CKR_PIN_INCORRECT, pkcs11.Error(pkcs11.CKR_PIN_INCORRECT)))
	assert.False(t, r.Failed())

	assert.False(t, fixture.ExpectOK(r, pkcs11.Error(pkcs11.CKR_PIN_INCORRECT)))
	// not fatal
	assert.False(t, fixture.ExpectRV(r, pkcs11.CKR_USER_NOT_LOGGED_IN, nil, "C_Logout"))

	failures := r.Failures()
	require.Len(t, failures, 2)
	assert.Contains(t, failures[0], "expected: CKR_OK")
	assert.Contains(t, failures[0], "actual  : CKR_PIN_INCORRECT")
	assert.Contains(t, failures[1], "expected: CKR_USER_NOT_LOGGED_IN")
	assert.Contains(t, failures[1], "C_Logout")
}

func TestProviderFixture(t *testing.T) {
	tok := softtoken.New()
	env := newEnv(tok, 0)

	r := fixture.NewReporter(nil)
	f := fixture.NewProviderFixture(r, env)
	assert.True(t, tok.Initialized())
	assert.Equal(t, p11.RV(pkcs11.CKR_OK), f.Provider.RV())
	assert.Nil(t, f.Session)
	assert.Nil(t, f.Auth)
	assert.Equal(t, p11.InvalidSessionHandle, f.Handle())

	assert.Equal(t, 0, r.Finish())
	assert.False(t, tok.Initialized())
	assert.Equal(t, 1, tok.Calls("C_Initialize"))
	assert.Equal(t, 1, tok.Calls("C_Finalize"))

	// teardown runs once
	f.Teardown()
	assert.Equal(t, 1, tok.Calls("C_Finalize"))
}

func TestProviderFixture_InitializeFails(t *testing.T) {
	tok := softtoken.New()
	tok.FailWith("C_Initialize", pkcs11.CKR_GENERAL_ERROR)
	env := newEnv(tok, 0)

	r := fixture.NewReporter(nil)
	f := fixture.NewProviderFixture(r, env)
	assert.Equal(t, p11.RV(pkcs11.CKR_GENERAL_ERROR), f.Provider.RV())
	assert.True(t, r.Failed())
	assert.Equal(t, 0, tok.Calls("C_Finalize"))

	r.Finish()
	assert.Equal(t, 1, tok.Calls("C_Finalize"))
	assert.True(t, hasText(r.Failures(), "CKR_GENERAL_ERROR"))
	assert.True(t, hasText(r.Failures(), "CKR_CRYPTOKI_NOT_INITIALIZED"))
}

func TestSessionFixture_DoesNotOpen(t *testing.T) {
	tok := softtoken.New()
	env := newEnv(tok, 0)

	r := fixture.NewReporter(nil)
	f := fixture.NewSessionFixture(r, env)
	require.NotNil(t, f.Session)
	assert.Equal(t, p11.InvalidSessionHandle, f.Handle())
	assert.Equal(t, 0, tok.Calls("C_OpenSession"))
	assert.Equal(t, 1, tok.Calls("C_GetSlotInfo"))

	assert.Equal(t, 0, r.Finish())
	assert.Equal(t, 0, tok.Calls("C_CloseSession"))
	assert.Equal(t, 1, tok.Calls("C_Finalize"))
}

func TestSessionFixture_TokenAbsent(t *testing.T) {
	tok := softtoken.NewWithConfig(softtoken.Config{Absent: true})
	env := newEnv(tok, 0)

	r := fixture.NewReporter(nil)
	f := fixture.NewSessionFixture(r, env)
	assert.False(t, r.Failed(), "absent token is advisory")
	assert.True(t, hasText(r.Logs(), "token present"))

	// opening is still attempted by the caller
	rv := f.Session.Open(p11.ReadOnly)
	assert.Equal(t, p11.RV(pkcs11.CKR_TOKEN_NOT_PRESENT), rv)
	assert.Equal(t, 1, tok.Calls("C_OpenSession"))
	assert.Equal(t, p11.InvalidSessionHandle, f.Handle())

	r.Finish()
	assert.Equal(t, 0, tok.Calls("C_CloseSession"))
}

func TestSessionFixture_SlotInfoFails(t *testing.T) {
	tok := softtoken.New()
	env := fixture.NewEnv(tok, p11.InvalidSlotID, "", "", 0)

	r := fixture.NewReporter(nil)
	fixture.NewSessionFixture(r, env)
	assert.True(t, hasText(r.Failures(), "CKR_SLOT_ID_INVALID"))
	assert.Empty(t, r.Logs())
	r.Finish()
}

func TestOpenedSessionFixtures(t *testing.T) {
	tcases := []struct {
		name  string
		setup func(fixture.T, *fixture.Env) *fixture.Fixture
		flags uint
		state uint
	}{
		{"ReadOnly", fixture.NewReadOnlySessionFixture, p11.ReadOnly, pkcs11.CKS_RO_PUBLIC_SESSION},
		{"ReadWrite", fixture.NewReadWriteSessionFixture, p11.ReadWrite, pkcs11.CKS_RW_PUBLIC_SESSION},
		{"ROUser", fixture.NewROUserSessionFixture, p11.ReadOnly, pkcs11.CKS_RO_USER_FUNCTIONS},
		{"RWUser", fixture.NewRWUserSessionFixture, p11.ReadWrite, pkcs11.CKS_RW_USER_FUNCTIONS},
		{"RWSO", fixture.NewRWSOSessionFixture, p11.ReadWrite, pkcs11.CKS_RW_SO_FUNCTIONS},
		{"ROEither", fixture.NewROEitherSessionFixture, p11.ReadOnly, pkcs11.CKS_RO_USER_FUNCTIONS},
		{"RWEither", fixture.NewRWEitherSessionFixture, p11.ReadWrite, pkcs11.CKS_RW_USER_FUNCTIONS},
	}

	for _, tc := range tcases {
		t.Run(tc.name, func(t *testing.T) {
			tok := softtoken.New()
			env := newEnv(tok, softtoken.DefaultTokenFlags)

			r := fixture.NewReporter(nil)
			f := tc.setup(r, env)
			assert.False(t, r.Failed(), "%v", r.Failures())
			require.NotEqual(t, p11.InvalidSessionHandle, f.Handle())
			assert.Equal(t, tc.flags, f.Session.Flags())

			si, err := tok.GetSessionInfo(f.Handle())
			require.NoError(t, err)
			assert.Equal(t, p11.SessionStateName(tc.state), p11.SessionStateName(si.State))

			assert.Equal(t, 0, r.Finish())
			assert.Equal(t, 0, tok.SessionCount())
			assert.Equal(t, 1, tok.Calls("C_CloseSession"))
			assert.False(t, tok.Initialized())
			_, loggedIn := tok.LoggedIn()
			assert.False(t, loggedIn)
		})
	}
}

func TestOpenFails(t *testing.T) {
	tok := softtoken.New()
	tok.FailWith("C_OpenSession", pkcs11.CKR_DEVICE_ERROR)
	env := newEnv(tok, softtoken.DefaultTokenFlags)

	r := fixture.NewReporter(nil)
	f := fixture.NewRWUserSessionFixture(r, env)
	assert.Equal(t, p11.InvalidSessionHandle, f.Handle())
	assert.True(t, hasText(r.Failures(), "CKR_DEVICE_ERROR"))

	r.Finish()
	// the invalid handle is never closed or logged out
	assert.Equal(t, 0, tok.Calls("C_CloseSession"))
	assert.Equal(t, 0, tok.Calls("C_Logout"))
	assert.Equal(t, 1, tok.Calls("C_Finalize"))
}

func TestStrictLogin_WrongPIN(t *testing.T) {
	tok := softtoken.New()
	env := fixture.NewEnv(tok, softtoken.DefaultSlotID, "0000", "0000", softtoken.DefaultTokenFlags)

	r := fixture.NewReporter(nil)
	f := fixture.NewRWUserSessionFixture(r, env)
	require.NotNil(t, f.Auth)
	assert.True(t, f.Auth.Active())
	assert.Equal(t, p11.RV(pkcs11.CKR_PIN_INCORRECT), f.Auth.RV())
	assert.False(t, r.Failed(), "login failure is advisory")
	assert.True(t, hasText(r.Logs(), "Failed to login as user type CKU_USER, error CKR_PIN_INCORRECT"))

	r.Finish()
	assert.Equal(t, 1, tok.Calls("C_Login"))
	assert.Equal(t, 1, tok.Calls("C_Logout"))
	// strict logout is asserted
	assert.True(t, hasText(r.Failures(), "CKR_USER_NOT_LOGGED_IN"))
}

func TestStrictLogin_Role(t *testing.T) {
	tcases := []struct {
		name     string
		setup    func(fixture.T, *fixture.Env) *fixture.Fixture
		flags    uint
		userType uint
		pin      string
	}{
		{"ROUser", fixture.NewROUserSessionFixture, p11.ReadOnly, pkcs11.CKU_USER, "user"},
		{"RWUser", fixture.NewRWUserSessionFixture, p11.ReadWrite, pkcs11.CKU_USER, "user"},
		{"RWSO", fixture.NewRWSOSessionFixture, p11.ReadWrite, pkcs11.CKU_SO, "so"},
	}

	for _, tc := range tcases {
		t.Run(tc.name, func(t *testing.T) {
			m := newMockProvider(tc.flags)
			m.On("Login", mockHandle, tc.userType, tc.pin).Return(nil).Once()
			m.On("Logout", mockHandle).Return(nil).Once()

			// token does not require login, strict fixtures log in anyway
			env := fixture.NewEnv(m, mockSlot, "user", "so", 0)

			r := fixture.NewReporter(nil)
			tc.setup(r, env)
			m.AssertNumberOfCalls(t, "Login", 1)
			m.AssertNumberOfCalls(t, "Logout", 0)

			assert.Equal(t, 0, r.Finish())
			m.AssertNumberOfCalls(t, "Login", 1)
			m.AssertNumberOfCalls(t, "Logout", 1)
			m.AssertNumberOfCalls(t, "CloseSession", 1)
			m.AssertExpectations(t)
		})
	}
}

func TestEitherLogin(t *testing.T) {
	setups := map[string]struct {
		setup func(fixture.T, *fixture.Env) *fixture.Fixture
		flags uint
	}{
		"ROEither": {fixture.NewROEitherSessionFixture, p11.ReadOnly},
		"RWEither": {fixture.NewRWEitherSessionFixture, p11.ReadWrite},
	}

	for name, tc := range setups {
		t.Run(name+"/not_required", func(t *testing.T) {
			m := newMockProvider(tc.flags)
			env := fixture.NewEnv(m, mockSlot, "user", "so", pkcs11.CKF_TOKEN_INITIALIZED)

			r := fixture.NewReporter(nil)
			f := tc.setup(r, env)
			require.NotNil(t, f.Auth)
			assert.False(t, f.Auth.Active())
			assert.Equal(t, 0, r.Finish())

			m.AssertNotCalled(t, "Login", mockHandle, uint(pkcs11.CKU_USER), "user")
			m.AssertNotCalled(t, "Logout", mockHandle)
			m.AssertNumberOfCalls(t, "CloseSession", 1)
		})

		t.Run(name+"/required", func(t *testing.T) {
			m := newMockProvider(tc.flags)
			m.On("Login", mockHandle, uint(pkcs11.CKU_USER), "user").Return(nil).Once()
			m.On("Logout", mockHandle).Return(nil).Once()
			env := fixture.NewEnv(m, mockSlot, "user", "so", pkcs11.CKF_LOGIN_REQUIRED)

			r := fixture.NewReporter(nil)
			f := tc.setup(r, env)
			assert.True(t, f.Auth.Active())
			assert.Equal(t, uint(pkcs11.CKU_USER), f.Auth.UserType())
			assert.Equal(t, 0, r.Finish())

			m.AssertNumberOfCalls(t, "Login", 1)
			m.AssertNumberOfCalls(t, "Logout", 1)
			m.AssertExpectations(t)
		})
	}
}

func TestFixtureLogin(t *testing.T) {
	tok := softtoken.New()
	env := newEnv(tok, softtoken.DefaultTokenFlags)

	r := fixture.NewReporter(nil)
	f := fixture.NewReadWriteSessionFixture(r, env)

	// wrong PIN: diagnostic only, the caller's assertion fails the test
	rv := f.Login(pkcs11.CKU_USER, "wrong")
	assert.Equal(t, p11.RV(pkcs11.CKR_PIN_INCORRECT), rv)
	assert.False(t, r.Failed())
	assert.True(t, hasText(r.Logs(), "CKR_PIN_INCORRECT"))

	fixture.ExpectOK(r, rv.Err())
	assert.True(t, r.Failed())

	rv = f.Login(pkcs11.CKU_USER, env.UserPIN())
	assert.True(t, rv.OK())
	userType, loggedIn := tok.LoggedIn()
	assert.True(t, loggedIn)
	assert.Equal(t, uint(pkcs11.CKU_USER), userType)

	assert.Equal(t, 1, r.Finish())
	assert.Equal(t, 0, tok.SessionCount())

	pf := fixture.NewProviderFixture(r, env)
	assert.Equal(t, p11.RV(pkcs11.CKR_SESSION_HANDLE_INVALID), pf.Login(pkcs11.CKU_USER, "1234"))
	assert.Equal(t, 2, r.Finish())
}

func TestSessionContext_OpenTwice(t *testing.T) {
	tok := softtoken.New()
	env := newEnv(tok, 0)

	r := fixture.NewReporter(nil)
	f := fixture.NewReadOnlySessionFixture(r, env)
	sh := f.Handle()

	rv := f.Session.Open(p11.ReadWrite)
	assert.Equal(t, p11.RV(pkcs11.CKR_SESSION_EXISTS), rv)
	assert.Equal(t, sh, f.Handle())
	assert.Equal(t, 1, tok.Calls("C_OpenSession"))
	assert.Equal(t, 1, r.Finish())
}

func TestFixtureWithTestingT(t *testing.T) {
	tok := softtoken.New()
	env := newEnv(tok, softtoken.DefaultTokenFlags)

	t.Run("fixture", func(t *testing.T) {
		f := fixture.NewRWEitherSessionFixture(t, env)
		assert.NotEqual(t, p11.InvalidSessionHandle, f.Handle())
		assert.Equal(t, 1, tok.SessionCount())
	})

	// teardown registered with t.Cleanup
	assert.Equal(t, 0, tok.SessionCount())
	assert.False(t, tok.Initialized())
	assert.Equal(t, []string{
		"C_Initialize",
		"C_GetSlotInfo",
		"C_OpenSession",
		"C_Login",
		"C_Logout",
		"C_CloseSession",
		"C_Finalize",
	}, tok.Trail())
}
