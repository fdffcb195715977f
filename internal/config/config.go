// Package config resolves the settings of a compose-combine run.
//
// Values are layered, lowest precedence first:
//
//  1. built-in defaults
//  2. an optional config file (YAML, JSON, or JSON with comments)
//  3. COMPOSE_COMBINE_* environment variables
//  4. command-line flags that were set explicitly
//
// The result is read once at startup and not changed afterwards.
package config

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"github.com/tidwall/jsonc"

	"github.com/shinji-kodama/compose-combine/internal/model"
)

// EnvPrefix is prepended to every environment variable name.
const EnvPrefix = "COMPOSE_COMBINE"

// StdoutOutput as the output path writes the combined YAML to stdout.
const StdoutOutput = "-"

// Keys used in config files, and the flag names bound to them.
const (
	KeyRoot           = "root"
	KeyOutput         = "output"
	KeyFileName       = "file_name"
	KeyComposeVersion = "compose_version"
	KeyLogLevel       = "log_level"
)

// flagNames maps config keys to their command-line flag names.
var flagNames = map[string]string{
	KeyRoot:           "root",
	KeyOutput:         "output",
	KeyFileName:       "file-name",
	KeyComposeVersion: "compose-version",
	KeyLogLevel:       "log-level",
}

// Config holds the resolved settings.
type Config struct {
	// Root is the directory whose subdirectories are scanned.
	Root string `mapstructure:"root"`

	// Output is the destination file. Empty means <Root>/<FileName>;
	// "-" means stdout.
	Output string `mapstructure:"output"`

	// FileName is the exact compose file name to look for.
	FileName string `mapstructure:"file_name"`

	// ComposeVersion is written as the `version` of the combined file.
	ComposeVersion string `mapstructure:"compose_version"`

	// LogLevel is one of debug, info, warn, error.
	LogLevel string `mapstructure:"log_level"`
}

// OutputPath returns where the combined file is written. A relative
// Output is used as given (relative to the working directory); an empty
// Output resolves to FileName inside Root.
func (c *Config) OutputPath() string {
	if c.Output == "" {
		return filepath.Join(c.Root, c.FileName)
	}
	return c.Output
}

// IsStdout reports whether the combined file goes to stdout.
func (c *Config) IsStdout() bool {
	return c.Output == StdoutOutput
}

// Validate checks that the configuration can be used for a run.
func (c *Config) Validate() error {
	if c.Root == "" {
		return fmt.Errorf("root must not be empty")
	}
	info, err := os.Stat(c.Root)
	if err != nil {
		return fmt.Errorf("root %s: %w", c.Root, err)
	}
	if !info.IsDir() {
		return fmt.Errorf("root %s is not a directory", c.Root)
	}

	if c.FileName == "" {
		return fmt.Errorf("file name must not be empty")
	}
	if c.FileName != filepath.Base(c.FileName) || c.FileName == "." || c.FileName == ".." {
		return fmt.Errorf("file name %q must not contain a path", c.FileName)
	}

	if c.ComposeVersion == "" {
		return fmt.Errorf("compose version must not be empty")
	}
	return nil
}

// Load resolves the configuration. configPath may be empty; when set the
// file must exist. flags may be nil; otherwise every flag named in
// flagNames that exists in the set is bound to its key.
func Load(configPath string, flags *pflag.FlagSet) (*Config, error) {
	v := viper.New()

	v.SetDefault(KeyRoot, ".")
	v.SetDefault(KeyOutput, "")
	v.SetDefault(KeyFileName, model.DefaultComposeFileName)
	v.SetDefault(KeyComposeVersion, model.DefaultComposeVersion)
	v.SetDefault(KeyLogLevel, "warn")

	if configPath != "" {
		if err := readConfigFile(v, configPath); err != nil {
			return nil, err
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	if flags != nil {
		for key, name := range flagNames {
			if f := flags.Lookup(name); f != nil {
				if err := v.BindPFlag(key, f); err != nil {
					return nil, fmt.Errorf("failed to bind flag --%s: %w", name, err)
				}
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &cfg, nil
}

// readConfigFile loads a config file into v. JSON files may contain
// comments and trailing commas, which are stripped before parsing.
func readConfigFile(v *viper.Viper, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".json", ".jsonc":
		v.SetConfigType("json")
		data = jsonc.ToJSON(data)
	case ".yaml", ".yml":
		v.SetConfigType("yaml")
	default:
		return fmt.Errorf("unsupported config file type %q (use .yaml, .yml, .json or .jsonc)", ext)
	}

	if err := v.ReadConfig(bytes.NewReader(data)); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return nil
}
