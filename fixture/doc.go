// Package fixture provides the session lifecycle fixtures of the PKCS#11
// conformance tests.
//
// A fixture is a composition of independently torn down parts:
//
//	ProviderContext  C_Initialize / C_Finalize
//	SessionContext   C_GetSlotInfo, C_OpenSession / C_CloseSession
//	AuthContext      C_Login / C_Logout
//
// Parts are set up in that order and torn down in reverse. Fixture
// constructors register the teardown with T.Cleanup, so release happens on
// every exit path of a test, including after failed setup assertions.
//
// Session is the scoped alternative for use inside a test body:
//
//	s := fixture.OpenSession(t, env, fixture.RWSession)
//	defer s.Close()
//
// Assertions made by fixtures are not fatal: a failure is recorded on T and
// the test continues, so teardown and later checks still run.
// Login failures of the Login helpers are advisory only; they are logged
// and the status is returned to the caller to assert on.
package fixture
