package cli

import (
	"io"
	"os"
	"strings"

	"github.com/alecthomas/kong"
	"github.com/cockroachdb/errors"
	"github.com/effective-security/p11conform/config"
	"github.com/effective-security/p11conform/fixture"
	"github.com/effective-security/p11conform/x/ctl"
	"github.com/effective-security/xlog"
)

var logger = xlog.NewPackageLogger("github.com/effective-security/p11conform", "cli")

// Cli provides CLI context to run commands
type Cli struct {
	Cfg      string `help:"Location of conformance config file" required:"" type:"path"`
	Debug    bool   `short:"D" help:"Enable debug mode"`
	LogLevel string `short:"l" help:"Set the logging level (debug|info|warn|error)" default:"error"`

	// Stdin is the source to read from, typically set to os.Stdin
	stdin io.Reader
	// Output is the destination for all output from the command, typically set to os.Stdout
	output io.Writer
	// ErrOutput is the destinaton for errors.
	// If not set, errors will be written to os.StdError
	errOutput io.Writer

	env *fixture.Env
}

// Reader is the source to read from, typically set to os.Stdin
func (c *Cli) Reader() io.Reader {
	if c.stdin != nil {
		return c.stdin
	}
	return os.Stdin
}

// WithReader allows to specify a custom reader
func (c *Cli) WithReader(reader io.Reader) *Cli {
	c.stdin = reader
	return c
}

// Writer returns a writer for control output
func (c *Cli) Writer() io.Writer {
	if c.output != nil {
		return c.output
	}
	return os.Stdout
}

// WithWriter allows to specify a custom writer
func (c *Cli) WithWriter(out io.Writer) *Cli {
	c.output = out
	return c
}

// ErrWriter returns a writer for control output
func (c *Cli) ErrWriter() io.Writer {
	if c.errOutput != nil {
		return c.errOutput
	}
	return os.Stderr
}

// WithErrWriter allows to specify a custom error writer
func (c *Cli) WithErrWriter(out io.Writer) *Cli {
	c.errOutput = out
	return c
}

// AfterApply hook loads config
func (c *Cli) AfterApply(app *kong.Kong, vars kong.Vars) error {
	if c.Debug {
		xlog.SetGlobalLogLevel(xlog.DEBUG)
	} else {
		val := strings.TrimLeft(c.LogLevel, "=")
		l, err := xlog.ParseLevel(strings.ToUpper(val))
		if err != nil {
			return errors.WithStack(err)
		}
		xlog.SetGlobalLogLevel(l)
	}

	return nil
}

// WriteJSON prints response to out
func (c *Cli) WriteJSON(value any) error {
	return ctl.WriteJSON(c.Writer(), value)
}

// Env loads the configuration and the PKCS#11 module
func (c *Cli) Env() (*fixture.Env, error) {
	if c.env != nil {
		return c.env, nil
	}
	if c.Cfg == "" {
		return nil, errors.New("use --cfg flag to specify config file")
	}

	cfg, err := config.Load(c.Cfg)
	if err != nil {
		return nil, errors.WithMessagef(err, "unable to load config")
	}
	c.env, err = fixture.Open(cfg)
	if err != nil {
		return nil, errors.WithMessagef(err, "unable to initialize PKCS#11 module")
	}
	logger.KV(xlog.DEBUG, "module", cfg.Module, "slot", c.env.SlotID())

	return c.env, nil
}

// Close unloads the PKCS#11 module
func (c *Cli) Close() {
	if c.env != nil {
		c.env.Close()
		c.env = nil
	}
}
