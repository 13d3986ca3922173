package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/goccy/go-yaml"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// configFileName is the name of the main configuration file.
const configFileName = "groundwork.yaml"

// Config is the persisted application configuration.
type Config struct {
	Journal  JournalConfig `mapstructure:"journal" yaml:"journal"`
	Language string        `mapstructure:"language" yaml:"language"`
	Profile  string        `mapstructure:"profile" yaml:"profile"`
}

// JournalConfig selects the journal database backend.
type JournalConfig struct {
	Type string `mapstructure:"type" yaml:"type"`
	Dsn  string `mapstructure:"dsn" yaml:"dsn"`
}

// GetConfigPath returns the full path of the user or system configuration
// file for the current platform.
func GetConfigPath(system bool) (string, error) {
	if system {
		dir := "/etc/groundwork"
		if runtime.GOOS == "windows" {
			dir = filepath.Join(os.Getenv("ProgramData"), "Groundwork")
		}
		return filepath.Join(dir, configFileName), nil
	}
	base, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("could not get user config directory: %w", err)
	}
	return filepath.Join(base, "groundwork", configFileName), nil
}

// usedConfigFile records which file the last LoadConfig call resolved, for
// diagnostics (the debug command). Empty when running on defaults only.
var usedConfigFile string

// UsedConfigFile returns the config file the last LoadConfig call read.
func UsedConfigFile() string { return usedConfigFile }

// LoadConfig resolves the effective configuration for cmd. Precedence, low to
// high: defaults, groundwork.yaml from the standard locations (or the file
// given via --config), a project-local .groundwork.yaml, GROUNDWORK_*
// environment variables, command-line flags.
func LoadConfig[T any](cmd *cobra.Command, defaults map[string]any, explicitPath *string) (T, error) {
	var cfg T

	v := viper.New()
	for k, val := range defaults {
		v.SetDefault(k, val)
	}

	// Environment variables resolve at Unmarshal time, e.g.
	// GROUNDWORK_JOURNAL_DSN maps to journal.dsn.
	v.SetEnvPrefix("groundwork")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AllowEmptyEnv(true)
	v.AutomaticEnv()

	v.SetConfigName("groundwork")
	v.SetConfigType("yaml")
	addConfigSearchPaths(v)
	if explicitPath != nil {
		// An explicit --config wins over the search path.
		v.SetConfigFile(*explicitPath)
	}

	usedConfigFile = ""
	switch err := v.ReadInConfig(); err.(type) {
	case nil:
		usedConfigFile = v.ConfigFileUsed()
	case viper.ConfigFileNotFoundError:
		// Running on defaults alone is fine.
	default:
		return cfg, err
	}

	mergeProjectConfig(v)

	if err := v.BindPFlags(cmd.Flags()); err != nil {
		return cfg, err
	}
	err := v.Unmarshal(&cfg)
	return cfg, err
}

// addConfigSearchPaths registers the user config dir, the system config dir
// and the working directory, in that order.
func addConfigSearchPaths(v *viper.Viper) {
	if userPath, err := GetConfigPath(false); err == nil {
		v.AddConfigPath(filepath.Dir(userPath))
	}
	if systemPath, err := GetConfigPath(true); err == nil {
		v.AddConfigPath(filepath.Dir(systemPath))
	}
	v.AddConfigPath(".")
}

// mergeProjectConfig merges a `.groundwork.yaml` from the current directory,
// letting a checked-out project pin its own journal and profile.
func mergeProjectConfig(v *viper.Viper) {
	const projectFile = ".groundwork.yaml"
	if _, err := os.Stat(projectFile); err != nil {
		return
	}
	v.SetConfigFile(projectFile)
	// A malformed override must not take the whole app down.
	_ = v.MergeInConfig()
	// Reset so later reads do not stick to the override file.
	v.SetConfigFile("")
}

// WriteConfigFile persists c to the user or system config path, creating the
// directory when needed. The file is written 0600 since the journal DSN may
// carry credentials.
func WriteConfigFile[T any](c *T, system bool) error {
	path, err := GetConfigPath(system)
	if err != nil {
		return err
	}
	raw, err := yaml.Marshal(c)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("could not create config directory %s: %w", filepath.Dir(path), err)
	}
	return os.WriteFile(path, raw, 0600)
}
