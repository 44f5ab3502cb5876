package cli

import (
	"github.com/cockroachdb/errors"
	"github.com/effective-security/p11conform/fixture"
	"github.com/effective-security/p11conform/p11"
	"github.com/miekg/pkcs11"
)

// ProbeCmd runs the session and login lifecycle against the token
type ProbeCmd struct {
	RW     bool   `help:"open read-write session"`
	Role   string `help:"user type to login as (user|so|none)" enum:"user,so,none" default:"user"`
	Either bool   `help:"login only if the token has CKF_LOGIN_REQUIRED"`
	Pin    string `help:"PIN to login with, the configured PIN is used if not specified"`
}

// ProbeResult is the outcome of the probe
type ProbeResult struct {
	Slot     uint     `json:"slot"`
	Flags    string   `json:"flags"`
	Login    string   `json:"login"`
	UserType string   `json:"user_type,omitempty"`
	LoginRV  string   `json:"login_rv,omitempty"`
	State    string   `json:"state,omitempty"`
	Failures []string `json:"failures,omitempty"`
}

// Run the command
func (a *ProbeCmd) Run(ctx *Cli) error {
	env, err := ctx.Env()
	if err != nil {
		return err
	}
	defer ctx.Close()

	res := a.probe(fixture.NewReporter(ctx.ErrWriter()), env)
	if err := ctx.WriteJSON(res); err != nil {
		return err
	}
	if len(res.Failures) > 0 {
		return errors.Errorf("probe failed: %d failure(s)", len(res.Failures))
	}
	return nil
}

func (a *ProbeCmd) mode() fixture.Mode {
	mode := fixture.ROSession
	if a.RW {
		mode = fixture.RWSession
	}
	switch a.Role {
	case "so":
		mode.Role = fixture.RoleSO
	case "user", "":
		mode.Role = fixture.RoleUser
	}
	return mode
}

func (a *ProbeCmd) policy(mode fixture.Mode) fixture.LoginPolicy {
	switch {
	case mode.Role == 0:
		return fixture.LoginNever
	case a.Either:
		return fixture.LoginIfRequired
	default:
		return fixture.LoginAlways
	}
}

func (a *ProbeCmd) probe(r *fixture.Reporter, env *fixture.Env) *ProbeResult {
	mode := a.mode()
	policy := a.policy(mode)
	res := &ProbeResult{
		Slot:  env.SlotID(),
		Flags: p11.SessionFlagsString(mode.Flags),
		Login: policy.String(),
	}
	if mode.Role != 0 {
		res.UserType = mode.Role.String()
	}

	var handle pkcs11.SessionHandle
	if a.Pin != "" && policy != fixture.LoginNever {
		// explicit PIN goes through a scoped session
		fixture.NewProviderFixture(r, env)
		var s *fixture.Session
		if policy == fixture.LoginIfRequired && !env.LoginRequired() {
			mode.Role = 0
			s = fixture.OpenSession(r, env, mode)
		} else {
			s = fixture.OpenLoginSession(r, env, mode, a.Pin)
			res.LoginRV = s.LoginRV().String()
		}
		r.Cleanup(s.Close)
		handle = s.Handle()
	} else {
		f := fixture.Setup(r, env, fixture.Options{
			Flags: mode.Flags,
			Login: policy,
			Role:  mode.Role,
		})
		handle = f.Handle()
		if f.Auth != nil && f.Auth.Active() {
			res.LoginRV = f.Auth.RV().String()
		}
	}

	if handle != p11.InvalidSessionHandle {
		si, err := env.Provider().GetSessionInfo(handle)
		if fixture.ExpectOK(r, err, "C_GetSessionInfo") {
			res.State = p11.SessionStateName(si.State)
		}
	}

	r.Finish()
	res.Failures = r.Failures()
	return res
}
