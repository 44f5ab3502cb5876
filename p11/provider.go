package p11

import (
	"github.com/miekg/pkcs11"
)

const (
	// InvalidSlotID is a slot ID that no conforming token uses
	InvalidSlotID uint = 88888
	// InvalidSessionHandle marks a session that is not currently open,
	// it must never be passed to C_CloseSession or C_Logout by the harness
	InvalidSessionHandle pkcs11.SessionHandle = 99999
	// InvalidObjectHandle is an object handle that no conforming token uses
	InvalidObjectHandle pkcs11.ObjectHandle = 77777
)

// Provider is the subset of the PKCS#11 function table used by the harness.
// Every method is a direct blocking call into the token provider.
type Provider interface {
	// Initialize calls C_Initialize
	Initialize() error
	// Finalize calls C_Finalize
	Finalize() error
	// GetSlotList calls C_GetSlotList
	GetSlotList(tokenPresent bool) ([]uint, error)
	// GetSlotInfo calls C_GetSlotInfo
	GetSlotInfo(slotID uint) (pkcs11.SlotInfo, error)
	// GetTokenInfo calls C_GetTokenInfo
	GetTokenInfo(slotID uint) (pkcs11.TokenInfo, error)
	// OpenSession calls C_OpenSession without notification callback
	OpenSession(slotID uint, flags uint) (pkcs11.SessionHandle, error)
	// CloseSession calls C_CloseSession
	CloseSession(sh pkcs11.SessionHandle) error
	// GetSessionInfo calls C_GetSessionInfo
	GetSessionInfo(sh pkcs11.SessionHandle) (pkcs11.SessionInfo, error)
	// Login calls C_Login, the PIN is passed with its explicit length
	Login(sh pkcs11.SessionHandle, userType uint, pin string) error
	// Logout calls C_Logout
	Logout(sh pkcs11.SessionHandle) error
	// Destroy unloads the module
	Destroy()
}

// Session access modes
const (
	// ReadOnly is the access mode of a serial read-only session
	ReadOnly uint = pkcs11.CKF_SERIAL_SESSION
	// ReadWrite is the access mode of a serial read-write session
	ReadWrite uint = pkcs11.CKF_SERIAL_SESSION | pkcs11.CKF_RW_SESSION
)
