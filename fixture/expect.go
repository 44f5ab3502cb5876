package fixture

import (
	"fmt"

	"github.com/effective-security/p11conform/p11"
	"github.com/effective-security/xlog"
	"github.com/miekg/pkcs11"
	"github.com/stretchr/testify/assert"
)

var logger = xlog.NewPackageLogger("github.com/effective-security/p11conform", "fixture")

type tHelper interface {
	Helper()
}

// ExpectRV asserts that the status of actual is expected.
// On failure both values are reported by name and the test continues.
func ExpectRV(t assert.TestingT, expected uint, actual error, msgAndArgs ...any) bool {
	if h, ok := t.(tHelper); ok {
		h.Helper()
	}
	return assert.Equal(t, p11.RV(expected), p11.RVOf(actual), msgAndArgs...)
}

// ExpectOK asserts that actual is CKR_OK
func ExpectOK(t assert.TestingT, actual error, msgAndArgs ...any) bool {
	if h, ok := t.(tHelper); ok {
		h.Helper()
	}
	return ExpectRV(t, pkcs11.CKR_OK, actual, msgAndArgs...)
}

// diag emits an advisory diagnostic, it never fails the test
func diag(t T, format string, args ...any) {
	t.Helper()
	msg := fmt.Sprintf(format, args...)
	logger.Warningf("%s", msg)
	t.Logf("%s", msg)
}
