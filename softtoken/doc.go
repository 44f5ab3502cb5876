// Package softtoken provides an in-memory PKCS#11 provider with a single slot.
//
// The token follows the session and login rules of the PKCS#11 specification
// closely enough to exercise the harness: it tracks open sessions,
// the logged-in user, counts every call, and lets tests inject a status code
// for any function.
//
// The package registers itself with p11 under the module name "softtoken".
package softtoken
