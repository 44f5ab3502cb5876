package fixture_test

import (
	"github.com/miekg/pkcs11"
	"github.com/stretchr/testify/mock"
)

// mockProvider counts calls and returns configured results
type mockProvider struct {
	mock.Mock
}

func (m *mockProvider) Initialize() error {
	return m.Called().Error(0)
}

func (m *mockProvider) Finalize() error {
	return m.Called().Error(0)
}

func (m *mockProvider) GetSlotList(tokenPresent bool) ([]uint, error) {
	args := m.Called(tokenPresent)
	return args.Get(0).([]uint), args.Error(1)
}

func (m *mockProvider) GetSlotInfo(slotID uint) (pkcs11.SlotInfo, error) {
	args := m.Called(slotID)
	return args.Get(0).(pkcs11.SlotInfo), args.Error(1)
}

func (m *mockProvider) GetTokenInfo(slotID uint) (pkcs11.TokenInfo, error) {
	args := m.Called(slotID)
	return args.Get(0).(pkcs11.TokenInfo), args.Error(1)
}

func (m *mockProvider) OpenSession(slotID uint, flags uint) (pkcs11.SessionHandle, error) {
	args := m.Called(slotID, flags)
	return args.Get(0).(pkcs11.SessionHandle), args.Error(1)
}

func (m *mockProvider) CloseSession(sh pkcs11.SessionHandle) error {
	return m.Called(sh).Error(0)
}

func (m *mockProvider) GetSessionInfo(sh pkcs11.SessionHandle) (pkcs11.SessionInfo, error) {
	args := m.Called(sh)
	return args.Get(0).(pkcs11.SessionInfo), args.Error(1)
}

func (m *mockProvider) Login(sh pkcs11.SessionHandle, userType uint, pin string) error {
	return m.Called(sh, userType, pin).Error(0)
}

func (m *mockProvider) Logout(sh pkcs11.SessionHandle) error {
	return m.Called(sh).Error(0)
}

func (m *mockProvider) Destroy() {
	m.Called()
}

const (
	mockSlot   uint                 = 3
	mockHandle pkcs11.SessionHandle = 7
)

// newMockProvider returns a provider with a token in mockSlot,
// that opens mockHandle sessions
func newMockProvider(flags uint) *mockProvider {
	m := new(mockProvider)
	m.On("Initialize").Return(nil)
	m.On("Finalize").Return(nil)
	m.On("GetSlotInfo", mockSlot).Return(pkcs11.SlotInfo{Flags: pkcs11.CKF_TOKEN_PRESENT}, nil)
	m.On("OpenSession", mockSlot, flags).Return(mockHandle, nil)
	m.On("CloseSession", mockHandle).Return(nil)
	return m
}
