package fixture

import (
	"github.com/cockroachdb/errors"
	"github.com/effective-security/p11conform/config"
	"github.com/effective-security/p11conform/p11"
	"github.com/miekg/pkcs11"
)

// Env is the process-wide configuration of a conformance run.
// It is created once before any fixture and never changes.
type Env struct {
	provider   p11.Provider
	slotID     uint
	userPIN    string
	soPIN      string
	tokenFlags uint
}

// NewEnv returns Env with explicit values
func NewEnv(provider p11.Provider, slotID uint, userPIN, soPIN string, tokenFlags uint) *Env {
	return &Env{
		provider:   provider,
		slotID:     slotID,
		userPIN:    userPIN,
		soPIN:      soPIN,
		tokenFlags: tokenFlags,
	}
}

// Open loads the configured module and prepares Env
func Open(cfg *config.Config) (*Env, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	p, err := p11.Load(cfg.Module)
	if err != nil {
		return nil, err
	}
	if cfg.Instrument {
		p = p11.Instrument(p)
	}
	env, err := Prepare(p, cfg)
	if err != nil {
		p.Destroy()
		return nil, err
	}
	return env, nil
}

// Prepare resolves the target slot and the token flags.
// Unless both are configured, the provider is initialized and finalized
// once to query them.
func Prepare(provider p11.Provider, cfg *config.Config) (*Env, error) {
	cfg = cfg.Clone()

	env := &Env{
		provider: provider,
		userPIN:  cfg.UserPIN,
		soPIN:    cfg.SOPIN,
	}

	if cfg.Slot != nil && cfg.TokenFlags != nil {
		env.slotID = *cfg.Slot
		env.tokenFlags = *cfg.TokenFlags
		return env, nil
	}

	if err := provider.Initialize(); err != nil {
		return nil, errors.WithMessagef(err, "C_Initialize")
	}
	defer func() {
		if err := provider.Finalize(); err != nil {
			logger.Errorf("reason=C_Finalize, err=[%v]", err)
		}
	}()

	var found *p11.SlotTokenInfo
	if cfg.Slot != nil {
		env.slotID = *cfg.Slot
	} else {
		var err error
		if found, err = p11.FindSlot(provider, cfg.TokenLabel); err != nil {
			return nil, err
		}
		env.slotID = found.SlotID
	}

	switch {
	case cfg.TokenFlags != nil:
		env.tokenFlags = *cfg.TokenFlags
	case found != nil:
		env.tokenFlags = found.TokenFlags
	default:
		ti, err := provider.GetTokenInfo(env.slotID)
		if err != nil {
			return nil, errors.WithMessagef(err, "C_GetTokenInfo: slot=%d", env.slotID)
		}
		env.tokenFlags = ti.Flags
	}

	logger.Infof("slot=%d, token_flags=%v", env.slotID, p11.TokenFlagNames(env.tokenFlags))
	return env, nil
}

// Provider returns the token provider
func (e *Env) Provider() p11.Provider {
	return e.provider
}

// SlotID returns the target slot
func (e *Env) SlotID() uint {
	return e.slotID
}

// UserPIN returns the normal user PIN
func (e *Env) UserPIN() string {
	return e.userPIN
}

// SOPIN returns the security officer PIN
func (e *Env) SOPIN() string {
	return e.soPIN
}

// PIN returns the configured PIN for the user type
func (e *Env) PIN(userType uint) string {
	if userType == pkcs11.CKU_SO {
		return e.soPIN
	}
	return e.userPIN
}

// TokenFlags returns the token flags
func (e *Env) TokenFlags() uint {
	return e.tokenFlags
}

// LoginRequired returns true if the token reports CKF_LOGIN_REQUIRED
func (e *Env) LoginRequired() bool {
	return e.tokenFlags&pkcs11.CKF_LOGIN_REQUIRED != 0
}

// Close unloads the provider
func (e *Env) Close() {
	e.provider.Destroy()
}
