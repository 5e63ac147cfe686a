// Package config loads the yamb CLI configuration from yamb.yaml, YAMB_*
// environment variables and command line flags.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/Masterminds/semver/v3"
	"github.com/charmbracelet/log"
	"github.com/spf13/afero"
	"github.com/spf13/viper"

	"github.com/frederic-klein/yamb/internal/resource"
)

const (
	FileName  = "yamb"
	EnvPrefix = "YAMB"

	DefaultWorkers        = 8
	DefaultRuntimeVersion = "1.120.0"
)

// Config is the resolved CLI configuration.
type Config struct {
	Sources              []resource.Root `mapstructure:"sources"`
	Output               string          `mapstructure:"output"`
	Workers              int             `mapstructure:"workers"`
	LogLevel             string          `mapstructure:"log-level"`
	IgnoreMissingModules bool            `mapstructure:"ignore-missing-modules"`
	IgnoreGlobals        []string        `mapstructure:"ignore-globals"`
	RuntimeVersion       string          `mapstructure:"runtime-version"`
	MetricsFile          string          `mapstructure:"metrics-file"`
}

// New returns a viper instance with defaults and environment binding set up.
// Flags are bound by the caller before Load.
func New(fs afero.Fs) *viper.Viper {
	v := viper.New()
	v.SetFs(fs)

	v.SetDefault("output", "dist")
	v.SetDefault("workers", DefaultWorkers)
	v.SetDefault("log-level", "info")
	v.SetDefault("ignore-missing-modules", false)
	v.SetDefault("ignore-globals", []string{})
	v.SetDefault("runtime-version", DefaultRuntimeVersion)
	v.SetDefault("metrics-file", "")

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
	return v
}

// Load reads the config file and returns the validated configuration. An
// explicit path must exist; otherwise yamb.yaml is looked up in the working
// directory and the user config directory, and may be absent.
func Load(v *viper.Viper, path string) (*Config, error) {
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName(FileName)
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if dir, err := os.UserConfigDir(); err == nil {
			v.AddConfigPath(filepath.Join(dir, FileName))
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("reading config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if len(cfg.Sources) == 0 {
		cfg.Sources = []resource.Root{{Path: "."}}
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks value ranges and formats.
func (c *Config) Validate() error {
	if c.Workers < 1 {
		return fmt.Errorf("workers must be at least 1, got %d", c.Workers)
	}
	if _, err := c.Level(); err != nil {
		return err
	}
	if _, err := c.Runtime(); err != nil {
		return err
	}
	for i, s := range c.Sources {
		if s.Path == "" {
			return fmt.Errorf("sources[%d]: missing path", i)
		}
	}
	return nil
}

// Level returns the parsed log level.
func (c *Config) Level() (log.Level, error) {
	lvl, err := log.ParseLevel(c.LogLevel)
	if err != nil {
		return 0, fmt.Errorf("log-level: %w", err)
	}
	return lvl, nil
}

// Runtime returns the parsed target runtime version.
func (c *Config) Runtime() (*semver.Version, error) {
	ver, err := semver.NewVersion(c.RuntimeVersion)
	if err != nil {
		return nil, fmt.Errorf("runtime-version %q: %w", c.RuntimeVersion, err)
	}
	return ver, nil
}
