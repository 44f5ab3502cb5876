package p11

import (
	"github.com/miekg/pkcs11"
)

// InitializeFlags are the CK_C_INITIALIZE_ARGS flags passed to a loaded
// module: the harness calls the module from a single thread and
// does not request locking.
const InitializeFlags uint = 0

// module is the function table of a loaded library
type module interface {
	Initialize(opts ...pkcs11.InitializeOption) error
	Finalize() error
	GetSlotList(tokenPresent bool) ([]uint, error)
	GetSlotInfo(slotID uint) (pkcs11.SlotInfo, error)
	GetTokenInfo(slotID uint) (pkcs11.TokenInfo, error)
	OpenSession(slotID uint, flags uint) (pkcs11.SessionHandle, error)
	CloseSession(sh pkcs11.SessionHandle) error
	GetSessionInfo(sh pkcs11.SessionHandle) (pkcs11.SessionInfo, error)
	Login(sh pkcs11.SessionHandle, userType uint, pin string) error
	Logout(sh pkcs11.SessionHandle) error
	Destroy()
}

// Ensure compiles
var _ module = (*pkcs11.Ctx)(nil)
var _ Provider = (*moduleProvider)(nil)

// replaced in tests
var initializeWithFlags = pkcs11.InitializeWithFlags

// moduleProvider is Provider for a PKCS#11 shared library
type moduleProvider struct {
	module
}

// Initialize calls C_Initialize with InitializeFlags
func (m *moduleProvider) Initialize() error {
	return m.module.Initialize(initializeWithFlags(InitializeFlags))
}
