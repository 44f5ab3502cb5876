package p11

import (
	"time"

	"github.com/effective-security/p11conform/metricskey"
	"github.com/effective-security/xlog"
	"github.com/miekg/pkcs11"
)

// Instrument returns a Provider that measures the latency of each call
// and traces its status
func Instrument(p Provider) Provider {
	if _, ok := p.(*instrumented); ok {
		return p
	}
	return &instrumented{p: p}
}

type instrumented struct {
	p Provider
}

func done(call string, started time.Time, err error) {
	metricskey.PerfProviderCall.MeasureSince(started, call)
	logger.KV(xlog.TRACE, "call", call, "rv", RVOf(err).String())
}

func (i *instrumented) Initialize() (err error) {
	defer func(started time.Time) { done("C_Initialize", started, err) }(time.Now())
	return i.p.Initialize()
}

func (i *instrumented) Finalize() (err error) {
	defer func(started time.Time) { done("C_Finalize", started, err) }(time.Now())
	return i.p.Finalize()
}

func (i *instrumented) GetSlotList(tokenPresent bool) (list []uint, err error) {
	defer func(started time.Time) { done("C_GetSlotList", started, err) }(time.Now())
	return i.p.GetSlotList(tokenPresent)
}

func (i *instrumented) GetSlotInfo(slotID uint) (si pkcs11.SlotInfo, err error) {
	defer func(started time.Time) { done("C_GetSlotInfo", started, err) }(time.Now())
	return i.p.GetSlotInfo(slotID)
}

func (i *instrumented) GetTokenInfo(slotID uint) (ti pkcs11.TokenInfo, err error) {
	defer func(started time.Time) { done("C_GetTokenInfo", started, err) }(time.Now())
	return i.p.GetTokenInfo(slotID)
}

func (i *instrumented) OpenSession(slotID uint, flags uint) (sh pkcs11.SessionHandle, err error) {
	defer func(started time.Time) { done("C_OpenSession", started, err) }(time.Now())
	return i.p.OpenSession(slotID, flags)
}

func (i *instrumented) CloseSession(sh pkcs11.SessionHandle) (err error) {
	defer func(started time.Time) { done("C_CloseSession", started, err) }(time.Now())
	return i.p.CloseSession(sh)
}

func (i *instrumented) GetSessionInfo(sh pkcs11.SessionHandle) (si pkcs11.SessionInfo, err error) {
	defer func(started time.Time) { done("C_GetSessionInfo", started, err) }(time.Now())
	return i.p.GetSessionInfo(sh)
}

func (i *instrumented) Login(sh pkcs11.SessionHandle, userType uint, pin string) (err error) {
	defer func(started time.Time) { done("C_Login", started, err) }(time.Now())
	return i.p.Login(sh, userType, pin)
}

func (i *instrumented) Logout(sh pkcs11.SessionHandle) (err error) {
	defer func(started time.Time) { done("C_Logout", started, err) }(time.Now())
	return i.p.Logout(sh)
}

func (i *instrumented) Destroy() {
	i.p.Destroy()
}
