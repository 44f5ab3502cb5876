package p11

import (
	"fmt"
	"strings"

	"github.com/miekg/pkcs11"
)

// UserTypeName returns the name of the user type
func UserTypeName(userType uint) string {
	switch userType {
	case pkcs11.CKU_SO:
		return "CKU_SO"
	case pkcs11.CKU_USER:
		return "CKU_USER"
	case pkcs11.CKU_CONTEXT_SPECIFIC:
		return "CKU_CONTEXT_SPECIFIC"
	}
	return fmt.Sprintf("CKU_0x%X", userType)
}

// SessionStateName returns the name of the session state
func SessionStateName(state uint) string {
	switch state {
	case pkcs11.CKS_RO_PUBLIC_SESSION:
		return "CKS_RO_PUBLIC_SESSION"
	case pkcs11.CKS_RO_USER_FUNCTIONS:
		return "CKS_RO_USER_FUNCTIONS"
	case pkcs11.CKS_RW_PUBLIC_SESSION:
		return "CKS_RW_PUBLIC_SESSION"
	case pkcs11.CKS_RW_USER_FUNCTIONS:
		return "CKS_RW_USER_FUNCTIONS"
	case pkcs11.CKS_RW_SO_FUNCTIONS:
		return "CKS_RW_SO_FUNCTIONS"
	}
	return fmt.Sprintf("CKS_0x%X", state)
}

type flagName struct {
	bit  uint
	name string
}

var slotFlagNames = []flagName{
	{pkcs11.CKF_TOKEN_PRESENT, "CKF_TOKEN_PRESENT"},
	{pkcs11.CKF_REMOVABLE_DEVICE, "CKF_REMOVABLE_DEVICE"},
	{pkcs11.CKF_HW_SLOT, "CKF_HW_SLOT"},
}

var tokenFlagNames = []flagName{
	{pkcs11.CKF_RNG, "CKF_RNG"},
	{pkcs11.CKF_WRITE_PROTECTED, "CKF_WRITE_PROTECTED"},
	{pkcs11.CKF_LOGIN_REQUIRED, "CKF_LOGIN_REQUIRED"},
	{pkcs11.CKF_USER_PIN_INITIALIZED, "CKF_USER_PIN_INITIALIZED"},
	{pkcs11.CKF_RESTORE_KEY_NOT_NEEDED, "CKF_RESTORE_KEY_NOT_NEEDED"},
	{pkcs11.CKF_CLOCK_ON_TOKEN, "CKF_CLOCK_ON_TOKEN"},
	{pkcs11.CKF_PROTECTED_AUTHENTICATION_PATH, "CKF_PROTECTED_AUTHENTICATION_PATH"},
	{pkcs11.CKF_DUAL_CRYPTO_OPERATIONS, "CKF_DUAL_CRYPTO_OPERATIONS"},
	{pkcs11.CKF_TOKEN_INITIALIZED, "CKF_TOKEN_INITIALIZED"},
	{pkcs11.CKF_SECONDARY_AUTHENTICATION, "CKF_SECONDARY_AUTHENTICATION"},
	{pkcs11.CKF_USER_PIN_COUNT_LOW, "CKF_USER_PIN_COUNT_LOW"},
	{pkcs11.CKF_USER_PIN_FINAL_TRY, "CKF_USER_PIN_FINAL_TRY"},
	{pkcs11.CKF_USER_PIN_LOCKED, "CKF_USER_PIN_LOCKED"},
	{pkcs11.CKF_USER_PIN_TO_BE_CHANGED, "CKF_USER_PIN_TO_BE_CHANGED"},
	{pkcs11.CKF_SO_PIN_COUNT_LOW, "CKF_SO_PIN_COUNT_LOW"},
	{pkcs11.CKF_SO_PIN_FINAL_TRY, "CKF_SO_PIN_FINAL_TRY"},
	{pkcs11.CKF_SO_PIN_LOCKED, "CKF_SO_PIN_LOCKED"},
	{pkcs11.CKF_SO_PIN_TO_BE_CHANGED, "CKF_SO_PIN_TO_BE_CHANGED"},
}

var sessionFlagNames = []flagName{
	{pkcs11.CKF_RW_SESSION, "CKF_RW_SESSION"},
	{pkcs11.CKF_SERIAL_SESSION, "CKF_SERIAL_SESSION"},
}

// SlotFlagNames returns the names of the slot flags that are set
func SlotFlagNames(flags uint) []string {
	return names(slotFlagNames, flags)
}

// TokenFlagNames returns the names of the token flags that are set
func TokenFlagNames(flags uint) []string {
	return names(tokenFlagNames, flags)
}

// SessionFlagsString returns session flags in CKF_A|CKF_B form
func SessionFlagsString(flags uint) string {
	list := names(sessionFlagNames, flags)
	if len(list) == 0 {
		return "0"
	}
	return strings.Join(list, "|")
}

func names(table []flagName, flags uint) []string {
	var list []string
	known := uint(0)
	for _, f := range table {
		known |= f.bit
		if flags&f.bit != 0 {
			list = append(list, f.name)
		}
	}
	if rest := flags &^ known; rest != 0 {
		list = append(list, fmt.Sprintf("0x%X", rest))
	}
	return list
}
