package fixture

import (
	"github.com/effective-security/p11conform/p11"
)

// ProviderContext holds the provider initialized between
// OpenProvider and Close
type ProviderContext struct {
	t         T
	env       *Env
	rv        p11.RV
	finalized bool
}

// OpenProvider calls C_Initialize and asserts success.
// The initialization arguments are those of the Provider implementation.
func OpenProvider(t T, env *Env) *ProviderContext {
	t.Helper()
	c := &ProviderContext{t: t, env: env}
	err := env.Provider().Initialize()
	c.rv = p11.RVOf(err)
	ExpectOK(t, err, "C_Initialize")
	return c
}

// RV returns the status of C_Initialize
func (c *ProviderContext) RV() p11.RV {
	return c.rv
}

// Close calls C_Finalize and asserts success.
// Finalize is called once, even if C_Initialize failed.
func (c *ProviderContext) Close() {
	if c.finalized {
		return
	}
	c.t.Helper()
	c.finalized = true
	ExpectOK(c.t, c.env.Provider().Finalize(), "C_Finalize")
}
