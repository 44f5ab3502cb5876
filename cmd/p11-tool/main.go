package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/alecthomas/kong"
	"github.com/effective-security/p11conform/cmd/p11-tool/cli"
	"github.com/effective-security/p11conform/internal/version"
	"github.com/effective-security/p11conform/x/ctl"
	xctl "github.com/effective-security/x/ctl"

	// register in-memory token
	_ "github.com/effective-security/p11conform/softtoken"
)

type app struct {
	cli.Cli

	Version ctl.VersionFlag `name:"version" help:"Print version information and quit" hidden:""`

	Slots cli.SlotsCmd `cmd:"" help:"list slots and tokens"`
	Probe cli.ProbeCmd `cmd:"" help:"run session and login lifecycle against the token"`
}

func main() {
	realMain(os.Args, os.Stdout, os.Stderr, os.Exit)
}

func realMain(args []string, out io.Writer, errout io.Writer, exit func(int)) {
	cl := app{
		Cli: cli.Cli{},
	}
	cl.Cli.WithErrWriter(errout).
		WithWriter(out)

	parser, err := kong.New(&cl,
		kong.Name("p11-tool"),
		kong.Description("PKCS#11 conformance harness tool"),
		kong.Writers(out, errout),
		kong.Exit(exit),
		xctl.BoolPtrMapper,
		kong.ConfigureHelp(kong.HelpOptions{
			Compact: true,
		}),
		kong.Vars{
			"version": version.Current().String(),
		})
	if err != nil {
		panic(err)
	}

	ctx, err := parser.Parse(args[1:])
	parser.FatalIfErrorf(err)

	if ctx != nil {
		if cl.Debug {
			// in DEBUG more print command line
			_, _ = fmt.Fprintf(ctx.Stdout, "#\n# %s\n#\n", strings.Join(args, " "))
		}
		err = ctx.Run(&cl.Cli)
		ctx.FatalIfErrorf(err)
	}
}
