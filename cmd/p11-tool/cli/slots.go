package cli

import (
	"fmt"

	"github.com/cockroachdb/errors"
	"github.com/effective-security/p11conform/p11"
	"github.com/effective-security/xlog"
)

// SlotsCmd prints slots and tokens
type SlotsCmd struct {
	Present bool   `help:"list only slots with a token present"`
	Label   string `help:"specifies token label (optional)"`
	JSON    bool   `help:"print in JSON format"`
}

// Run the command
func (a *SlotsCmd) Run(ctx *Cli) error {
	env, err := ctx.Env()
	if err != nil {
		return err
	}
	defer ctx.Close()

	prov := env.Provider()
	if err := prov.Initialize(); err != nil {
		return errors.WithMessagef(err, "C_Initialize")
	}
	defer func() {
		if err := prov.Finalize(); err != nil {
			logger.KV(xlog.WARNING, "reason", "C_Finalize", "err", err.Error())
		}
	}()

	all, err := p11.TokensInfo(prov)
	if err != nil {
		return errors.WithMessagef(err, "failed to list slots")
	}

	list := make([]*p11.SlotTokenInfo, 0, len(all))
	for _, ti := range all {
		if a.Present && !ti.TokenPresent {
			continue
		}
		if a.Label != "" && ti.Label != a.Label {
			continue
		}
		list = append(list, ti)
	}

	if a.JSON {
		return ctx.WriteJSON(list)
	}

	out := ctx.Writer()
	if len(list) == 0 {
		fmt.Fprintln(out, "no slots found")
		return nil
	}

	printIfNotEmpty := func(label, val string) {
		if val != "" {
			fmt.Fprintf(out, "  %s:  %s\n", label, val)
		}
	}

	for _, ti := range list {
		fmt.Fprintf(out, "Slot: %d\n", ti.SlotID)
		printIfNotEmpty("Description", ti.Description)
		if !ti.TokenPresent {
			fmt.Fprintln(out, "  Token:  not present")
			continue
		}
		printIfNotEmpty("Token label", ti.Label)
		printIfNotEmpty("Manufacturer", ti.Manufacturer)
		printIfNotEmpty("Model", ti.Model)
		printIfNotEmpty("Token serial", ti.Serial)
		for _, f := range ti.Flags {
			fmt.Fprintf(out, "  Flag:  %s\n", f)
		}
	}

	return nil
}
