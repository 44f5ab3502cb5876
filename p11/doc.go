// Package p11 describes the PKCS#11 function table consumed by the
// conformance harness.
//
// The package provides:
//   - the Provider interface, implemented over *pkcs11.Ctx from github.com/miekg/pkcs11
//   - the RV status type, which renders status codes by name
//   - name lookups for user types, session states and flag sets
//   - a loader registry, so that in-memory providers can stand in for
//     a shared library module
//   - Instrument, which measures and traces every provider call
//
// The harness never creates or destroys a provider on its own: a Provider is
// loaded once at the start of a test run and shared read-only.
package p11
