package p11

import (
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/miekg/pkcs11"
)

// SlotTokenInfo describes a slot and the token in it
type SlotTokenInfo struct {
	SlotID       uint     `json:"slot_id"`
	Description  string   `json:"description,omitempty"`
	TokenPresent bool     `json:"token_present"`
	Label        string   `json:"label,omitempty"`
	Manufacturer string   `json:"manufacturer,omitempty"`
	Model        string   `json:"model,omitempty"`
	Serial       string   `json:"serial,omitempty"`
	Flags        []string `json:"flags,omitempty"`
	// TokenFlags are the raw token flags
	TokenFlags uint `json:"-"`
}

// LoginRequired returns true if the token reports CKF_LOGIN_REQUIRED
func (i *SlotTokenInfo) LoginRequired() bool {
	return i.TokenFlags&pkcs11.CKF_LOGIN_REQUIRED != 0
}

// TokensInfo returns the list of slots,
// the provider must be initialized
func TokensInfo(p Provider) ([]*SlotTokenInfo, error) {
	list := []*SlotTokenInfo{}
	slots, err := p.GetSlotList(false)
	if err != nil {
		return nil, errors.WithMessagef(err, "GetSlotList")
	}

	logger.Tracef("slots=%d", len(slots))

	for _, slotID := range slots {
		si, err := p.GetSlotInfo(slotID)
		if err != nil {
			return nil, errors.WithMessagef(err, "GetSlotInfo: %d", slotID)
		}
		info := &SlotTokenInfo{
			SlotID:       slotID,
			Description:  strings.TrimSpace(si.SlotDescription),
			TokenPresent: si.Flags&pkcs11.CKF_TOKEN_PRESENT != 0,
		}
		list = append(list, info)
		if !info.TokenPresent {
			continue
		}

		ti, err := p.GetTokenInfo(slotID)
		if err != nil {
			logger.Errorf(
				"reason=GetTokenInfo, slotID=%d, ManufacturerID=%q, SlotDescription=%q, err=[%v]",
				slotID,
				si.ManufacturerID,
				si.SlotDescription,
				err,
			)
			continue
		}
		info.Label = strings.TrimSpace(ti.Label)
		info.Manufacturer = strings.TrimSpace(ti.ManufacturerID)
		info.Model = strings.TrimSpace(ti.Model)
		info.Serial = strings.TrimSpace(ti.SerialNumber)
		info.TokenFlags = ti.Flags
		info.Flags = TokenFlagNames(ti.Flags)
	}
	return list, nil
}

// FindSlot returns the first slot with a token that matches the label,
// or the first slot with a token if label is empty.
// The provider must be initialized.
func FindSlot(p Provider, label string) (*SlotTokenInfo, error) {
	list, err := TokensInfo(p)
	if err != nil {
		return nil, err
	}
	for _, ti := range list {
		if !ti.TokenPresent {
			continue
		}
		if label == "" || ti.Label == label {
			return ti, nil
		}
	}
	if label == "" {
		return nil, errors.New("no slot with a token present")
	}
	return nil, errors.Errorf("token not found: %s", label)
}
