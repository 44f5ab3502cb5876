// Package config provides the configuration of a conformance run:
// the PKCS#11 module, the target slot, PINs and token policy flags.
package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/effective-security/xlog"
	"github.com/jinzhu/copier"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

var logger = xlog.NewPackageLogger("github.com/effective-security/p11conform", "config")

// EnvPrefix is the prefix of environment variables that override the config,
// for example P11CONFORM_MODULE or P11CONFORM_USER_PIN
const EnvPrefix = "P11CONFORM"

// Config of a conformance run.
//
// A slot may be specified by ID or by token label.
// If neither is specified, the first slot with a token is used.
type Config struct {
	// Module is a path to PKCS#11 library, or a registered module name
	Module string `json:"module" yaml:"module"`
	// Slot is the ID of the target slot
	Slot *uint `json:"slot,omitempty" yaml:"slot,omitempty"`
	// TokenLabel selects the target slot by label of its token
	TokenLabel string `json:"token_label,omitempty" yaml:"token_label,omitempty"`
	// UserPIN is the normal user PIN.
	// If it's prefixed with `file:`, then it will be loaded from the file.
	UserPIN string `json:"user_pin,omitempty" yaml:"user_pin,omitempty"`
	// SOPIN is the security officer PIN.
	// If it's prefixed with `file:`, then it will be loaded from the file.
	SOPIN string `json:"so_pin,omitempty" yaml:"so_pin,omitempty"`
	// TokenFlags overrides the flags reported by the token
	TokenFlags *uint `json:"token_flags,omitempty" yaml:"token_flags,omitempty"`
	// Instrument enables metrics and tracing of provider calls
	Instrument bool `json:"instrument,omitempty" yaml:"instrument,omitempty"`
}

// Load returns configuration loaded from a JSON or YAML file,
// with environment overrides applied and PIN files resolved
func Load(filename string) (*Config, error) {
	cfr, err := os.Open(filename)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	defer cfr.Close()

	cfg := new(Config)
	if strings.HasSuffix(filename, ".json") {
		err = json.NewDecoder(cfr).Decode(cfg)
	} else {
		err = yaml.NewDecoder(cfr).Decode(cfg)
	}
	if err != nil {
		return nil, errors.WithMessagef(err, "failed to decode file: %s", filename)
	}

	if err = cfg.ApplyEnv(); err != nil {
		return nil, err
	}
	if err = cfg.ResolvePINs(filepath.Dir(filename)); err != nil {
		return nil, errors.WithMessagef(err, "unable to load PIN for configuration: %s", filename)
	}
	return cfg, nil
}

// ApplyEnv overrides values from P11CONFORM_* environment variables
func (c *Config) ApplyEnv() error {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.AutomaticEnv()

	if val := v.GetString("module"); val != "" {
		c.Module = val
	}
	if val := v.GetString("token_label"); val != "" {
		c.TokenLabel = val
	}
	if val := v.GetString("user_pin"); val != "" {
		c.UserPIN = val
	}
	if val := v.GetString("so_pin"); val != "" {
		c.SOPIN = val
	}
	if val := v.GetString("slot"); val != "" {
		slot, err := strconv.ParseUint(val, 0, 0)
		if err != nil {
			return errors.WithMessagef(err, "invalid %s_SLOT", EnvPrefix)
		}
		s := uint(slot)
		c.Slot = &s
	}
	return nil
}

// ResolvePINs loads PINs specified with `file:` prefix.
// Relative file names are resolved against the current directory
// and the base directory.
func (c *Config) ResolvePINs(baseDir string) error {
	var err error
	if c.UserPIN, err = resolvePIN(c.UserPIN, baseDir); err != nil {
		return err
	}
	if c.SOPIN, err = resolvePIN(c.SOPIN, baseDir); err != nil {
		return err
	}
	return nil
}

// Validate returns error if the configuration is incomplete
func (c *Config) Validate() error {
	if c.Module == "" {
		return errors.New("module is not specified")
	}
	return nil
}

// Clone returns a deep copy of the configuration
func (c *Config) Clone() *Config {
	clone := new(Config)
	if err := copier.CopyWithOption(clone, c, copier.Option{DeepCopy: true}); err != nil {
		logger.Panicf("unable to copy config: %+v", err)
	}
	return clone
}

func resolvePIN(pin, baseDir string) (string, error) {
	if !strings.HasPrefix(pin, "file:") {
		return pin, nil
	}
	pinfile := pin[5:]

	cwd, _ := os.Getwd()
	folders := []string{
		"",
		cwd,
		baseDir,
	}
	for _, folder := range folders {
		if resolved, err := resolve(pinfile, folder); err == nil {
			pinfile = resolved
			break
		}
		logger.Warningf("reason=resolve, pinfile=%q, basedir=%q", pinfile, folder)
	}

	pb, err := os.ReadFile(pinfile)
	if err != nil {
		return "", errors.WithStack(err)
	}
	return strings.TrimRight(string(pb), "\r\n"), nil
}

// resolve returns absolute file name relative to baseDir,
// or error if the file does not exist
func resolve(file string, baseDir string) (resolved string, err error) {
	if file == "" {
		return file, nil
	}
	if filepath.IsAbs(file) {
		resolved = file
	} else if baseDir != "" {
		resolved = filepath.Join(baseDir, file)
	}
	if _, err := os.Stat(resolved); os.IsNotExist(err) {
		return resolved, errors.WithMessagef(err, "not found: %v", resolved)
	}
	return resolved, nil
}
