package p11

import (
	"fmt"

	"github.com/cockroachdb/errors"
	"github.com/miekg/pkcs11"
)

// RV is a PKCS#11 status code.
// It compares by value and renders by name, so assertion failures
// report CKR_PIN_INCORRECT rather than 160.
type RV uint

// RVOf returns the status code carried by an error returned from a Provider:
// nil is CKR_OK, pkcs11.Error is its own code,
// anything else is reported as CKR_GENERAL_ERROR.
func RVOf(err error) RV {
	if err == nil {
		return RV(pkcs11.CKR_OK)
	}
	var e pkcs11.Error
	if errors.As(err, &e) {
		return RV(e)
	}
	return RV(pkcs11.CKR_GENERAL_ERROR)
}

// OK returns true for CKR_OK
func (rv RV) OK() bool {
	return rv == pkcs11.CKR_OK
}

// Err returns the status as an error, nil for CKR_OK
func (rv RV) Err() error {
	if rv.OK() {
		return nil
	}
	return pkcs11.Error(rv)
}

// String returns the status name
func (rv RV) String() string {
	return RVName(uint(rv))
}

// GoString is used by %#v, which is how testify renders
// unequal values in failure reports
func (rv RV) GoString() string {
	return rv.String()
}

// RVName returns the name of the status code
func RVName(rv uint) string {
	if name, ok := rvNames[rv]; ok {
		return name
	}
	if rv&pkcs11.CKR_VENDOR_DEFINED != 0 {
		return fmt.Sprintf("CKR_VENDOR_DEFINED+0x%X", rv&^uint(pkcs11.CKR_VENDOR_DEFINED))
	}
	return fmt.Sprintf("CKR_0x%08X", rv)
}

var rvNames = map[uint]string{
	pkcs11.CKR_OK:                             "CKR_OK",
	pkcs11.CKR_CANCEL:                         "CKR_CANCEL",
	pkcs11.CKR_HOST_MEMORY:                    "CKR_HOST_MEMORY",
	pkcs11.CKR_SLOT_ID_INVALID:                "CKR_SLOT_ID_INVALID",
	pkcs11.CKR_GENERAL_ERROR:                  "CKR_GENERAL_ERROR",
	pkcs11.CKR_FUNCTION_FAILED:                "CKR_FUNCTION_FAILED",
	pkcs11.CKR_ARGUMENTS_BAD:                  "CKR_ARGUMENTS_BAD",
	pkcs11.CKR_NO_EVENT:                       "CKR_NO_EVENT",
	pkcs11.CKR_NEED_TO_CREATE_THREADS:         "CKR_NEED_TO_CREATE_THREADS",
	pkcs11.CKR_CANT_LOCK:                      "CKR_CANT_LOCK",
	pkcs11.CKR_ATTRIBUTE_READ_ONLY:            "CKR_ATTRIBUTE_READ_ONLY",
	pkcs11.CKR_ATTRIBUTE_SENSITIVE:            "CKR_ATTRIBUTE_SENSITIVE",
	pkcs11.CKR_ATTRIBUTE_TYPE_INVALID:         "CKR_ATTRIBUTE_TYPE_INVALID",
	pkcs11.CKR_ATTRIBUTE_VALUE_INVALID:        "CKR_ATTRIBUTE_VALUE_INVALID",
	pkcs11.CKR_DATA_INVALID:                   "CKR_DATA_INVALID",
	pkcs11.CKR_DATA_LEN_RANGE:                 "CKR_DATA_LEN_RANGE",
	pkcs11.CKR_DEVICE_ERROR:                   "CKR_DEVICE_ERROR",
	pkcs11.CKR_DEVICE_MEMORY:                  "CKR_DEVICE_MEMORY",
	pkcs11.CKR_DEVICE_REMOVED:                 "CKR_DEVICE_REMOVED",
	pkcs11.CKR_ENCRYPTED_DATA_INVALID:         "CKR_ENCRYPTED_DATA_INVALID",
	pkcs11.CKR_FUNCTION_CANCELED:              "CKR_FUNCTION_CANCELED",
	pkcs11.CKR_FUNCTION_NOT_PARALLEL:          "CKR_FUNCTION_NOT_PARALLEL",
	pkcs11.CKR_FUNCTION_NOT_SUPPORTED:         "CKR_FUNCTION_NOT_SUPPORTED",
	pkcs11.CKR_KEY_HANDLE_INVALID:             "CKR_KEY_HANDLE_INVALID",
	pkcs11.CKR_KEY_SIZE_RANGE:                 "CKR_KEY_SIZE_RANGE",
	pkcs11.CKR_KEY_TYPE_INCONSISTENT:          "CKR_KEY_TYPE_INCONSISTENT",
	pkcs11.CKR_MECHANISM_INVALID:              "CKR_MECHANISM_INVALID",
	pkcs11.CKR_MECHANISM_PARAM_INVALID:        "CKR_MECHANISM_PARAM_INVALID",
	pkcs11.CKR_OBJECT_HANDLE_INVALID:          "CKR_OBJECT_HANDLE_INVALID",
	pkcs11.CKR_OPERATION_ACTIVE:               "CKR_OPERATION_ACTIVE",
	pkcs11.CKR_OPERATION_NOT_INITIALIZED:      "CKR_OPERATION_NOT_INITIALIZED",
	pkcs11.CKR_PIN_INCORRECT:                  "CKR_PIN_INCORRECT",
	pkcs11.CKR_PIN_INVALID:                    "CKR_PIN_INVALID",
	pkcs11.CKR_PIN_LEN_RANGE:                  "CKR_PIN_LEN_RANGE",
	pkcs11.CKR_PIN_EXPIRED:                    "CKR_PIN_EXPIRED",
	pkcs11.CKR_PIN_LOCKED:                     "CKR_PIN_LOCKED",
	pkcs11.CKR_SESSION_CLOSED:                 "CKR_SESSION_CLOSED",
	pkcs11.CKR_SESSION_COUNT:                  "CKR_SESSION_COUNT",
	pkcs11.CKR_SESSION_HANDLE_INVALID:         "CKR_SESSION_HANDLE_INVALID",
	pkcs11.CKR_SESSION_PARALLEL_NOT_SUPPORTED: "CKR_SESSION_PARALLEL_NOT_SUPPORTED",
	pkcs11.CKR_SESSION_READ_ONLY:              "CKR_SESSION_READ_ONLY",
	pkcs11.CKR_SESSION_EXISTS:                 "CKR_SESSION_EXISTS",
	pkcs11.CKR_SESSION_READ_ONLY_EXISTS:       "CKR_SESSION_READ_ONLY_EXISTS",
	pkcs11.CKR_SESSION_READ_WRITE_SO_EXISTS:   "CKR_SESSION_READ_WRITE_SO_EXISTS",
	pkcs11.CKR_SIGNATURE_INVALID:              "CKR_SIGNATURE_INVALID",
	pkcs11.CKR_SIGNATURE_LEN_RANGE:            "CKR_SIGNATURE_LEN_RANGE",
	pkcs11.CKR_TEMPLATE_INCOMPLETE:            "CKR_TEMPLATE_INCOMPLETE",
	pkcs11.CKR_TEMPLATE_INCONSISTENT:          "CKR_TEMPLATE_INCONSISTENT",
	pkcs11.CKR_TOKEN_NOT_PRESENT:              "CKR_TOKEN_NOT_PRESENT",
	pkcs11.CKR_TOKEN_NOT_RECOGNIZED:           "CKR_TOKEN_NOT_RECOGNIZED",
	pkcs11.CKR_TOKEN_WRITE_PROTECTED:          "CKR_TOKEN_WRITE_PROTECTED",
	pkcs11.CKR_USER_ALREADY_LOGGED_IN:         "CKR_USER_ALREADY_LOGGED_IN",
	pkcs11.CKR_USER_NOT_LOGGED_IN:             "CKR_USER_NOT_LOGGED_IN",
	pkcs11.CKR_USER_PIN_NOT_INITIALIZED:       "CKR_USER_PIN_NOT_INITIALIZED",
	pkcs11.CKR_USER_TYPE_INVALID:              "CKR_USER_TYPE_INVALID",
	pkcs11.CKR_USER_ANOTHER_ALREADY_LOGGED_IN: "CKR_USER_ANOTHER_ALREADY_LOGGED_IN",
	pkcs11.CKR_USER_TOO_MANY_TYPES:            "CKR_USER_TOO_MANY_TYPES",
	pkcs11.CKR_RANDOM_NO_RNG:                  "CKR_RANDOM_NO_RNG",
	pkcs11.CKR_BUFFER_TOO_SMALL:               "CKR_BUFFER_TOO_SMALL",
	pkcs11.CKR_CRYPTOKI_NOT_INITIALIZED:       "CKR_CRYPTOKI_NOT_INITIALIZED",
	pkcs11.CKR_CRYPTOKI_ALREADY_INITIALIZED:   "CKR_CRYPTOKI_ALREADY_INITIALIZED",
}
