// Package hostcfg loads the ambient, TOML-backed configuration a host
// program layers on top of one or more clp.Handle instances: diagnostic
// toggles, the names of the six optional output streams, and the
// open-time identity (owner/program/build) passed to clp.Open.
package hostcfg

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"github.com/BurntSushi/toml"
)

// Config mirrors the ambient knobs spec.md §6 names: the CLP_* /
// CLEP_NO_SECRETS environment toggles, and the six diagnostic stream
// paths a host wires into clp.Options.Out.
type Config struct {
	Identity struct {
		Owner   string `toml:"owner"`
		Program string `toml:"program"`
		Build   string `toml:"build"`
	} `toml:"identity"`

	Diagnostics struct {
		FullSymtab       bool   `toml:"full_symtab"`       // CLP_FULL_SYMTAB
		MallocStatistics bool   `toml:"malloc_statistics"` // CLP_MALLOC_STATISTICS
		SymtabStatistics bool   `toml:"symtab_statistics"` // CLP_SYMTAB_STATISTICS
		NoSecrets        bool   `toml:"no_secrets"`        // CLEP_NO_SECRETS
		NowOverride      string `toml:"-"`                 // CLP_NOW, read from env only
	} `toml:"diagnostics"`

	Streams struct {
		Help string `toml:"help"`
		Err  string `toml:"err"`
		Sym  string `toml:"sym"`
		Scan string `toml:"scan"`
		Prs  string `toml:"prs"`
		Bld  string `toml:"bld"`
	} `toml:"streams"`

	Behavior struct {
		CaseSensitive    bool `toml:"case_sensitive"`
		ParameterFilesOK bool `toml:"parameter_files_ok"`
		EnvSubstOK       bool `toml:"envsubst_ok"`
		MinKeywordLength int  `toml:"min_keyword_length"`
		Strict           bool `toml:"strict"`
	} `toml:"behavior"`
}

// DefaultConfig returns a Config with the demo host's defaults:
// parameter files, environment substitution and strict mode on,
// case-insensitive keywords, minimum keyword length 1. A handle opened
// with zero-value clp.Options has parameter files and strict mode off.
func DefaultConfig() *Config {
	cfg := &Config{}
	cfg.Identity.Program = "clpdemo"
	cfg.Behavior.CaseSensitive = false
	cfg.Behavior.ParameterFilesOK = true
	cfg.Behavior.EnvSubstOK = true
	cfg.Behavior.MinKeywordLength = 1
	cfg.Behavior.Strict = true
	return cfg
}

// ApplyEnv overrides Diagnostics from the process environment, matching
// the CLP_FULL_SYMTAB / CLP_MALLOC_STATISTICS / CLP_SYMTAB_STATISTICS /
// CLEP_NO_SECRETS toggles of spec.md §6. A config-file value wins unless
// the corresponding environment variable is set to a non-empty string.
func (c *Config) ApplyEnv(getenv func(string) string) {
	if getenv == nil {
		getenv = os.Getenv
	}
	if v := getenv("CLP_FULL_SYMTAB"); v != "" {
		c.Diagnostics.FullSymtab = isTruthy(v)
	}
	if v := getenv("CLP_MALLOC_STATISTICS"); v != "" {
		c.Diagnostics.MallocStatistics = isTruthy(v)
	}
	if v := getenv("CLP_SYMTAB_STATISTICS"); v != "" {
		c.Diagnostics.SymtabStatistics = isTruthy(v)
	}
	if v := getenv("CLEP_NO_SECRETS"); v != "" {
		c.Diagnostics.NoSecrets = isTruthy(v)
	}
	if v := getenv("CLP_NOW"); v != "" {
		// Parsing CLP_NOW into a time.Time is the host's job (it decides
		// the format); hostcfg only surfaces the raw override.
		c.Diagnostics.NowOverride = v
	}
}

func isTruthy(v string) bool {
	switch v {
	case "0", "", "false", "FALSE", "off", "OFF":
		return false
	default:
		return true
	}
}

// GetConfigPath returns the platform-specific configuration file path,
// creating its parent directory if needed.
func GetConfigPath() string {
	var dir string
	switch runtime.GOOS {
	case "windows":
		dir = os.Getenv("APPDATA")
		if dir == "" {
			dir = filepath.Join(os.Getenv("USERPROFILE"), "AppData", "Roaming")
		}
		dir = filepath.Join(dir, "flamclep")
	case "darwin", "linux":
		home, err := os.UserHomeDir()
		if err != nil {
			return "clpdemo.toml"
		}
		dir = filepath.Join(home, ".config", "flamclep")
	default:
		return "clpdemo.toml"
	}
	if err := os.MkdirAll(dir, 0750); err != nil {
		return "clpdemo.toml"
	}
	return filepath.Join(dir, "clpdemo.toml")
}

// Load reads Config from the default path, returning defaults if the
// file does not exist.
func Load() (*Config, error) {
	return LoadFrom(GetConfigPath())
}

// LoadFrom reads Config from path, returning defaults if the file does
// not exist.
func LoadFrom(path string) (*Config, error) {
	cfg := DefaultConfig()
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return cfg, nil
	}
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}
	return cfg, nil
}

// Save writes c to the default config path.
func (c *Config) Save() error {
	return c.SaveTo(GetConfigPath())
}

// SaveTo writes c to path as TOML.
func (c *Config) SaveTo(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0750); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	f, err := os.Create(path) // #nosec G304 -- host-selected config path
	if err != nil {
		return fmt.Errorf("failed to create config file: %w", err)
	}
	defer f.Close()
	if err := toml.NewEncoder(f).Encode(c); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	return nil
}
