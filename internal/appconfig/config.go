package appconfig

import (
	"os"
	"path/filepath"
)

// Config is the top-level launcher configuration.
type Config struct {
	ConfigVersion      int               `mapstructure:"config_version" yaml:"config_version"`
	ProjectRoot        string            `mapstructure:"project_root" yaml:"project_root"`
	VenvDir            string            `mapstructure:"venv_dir" yaml:"venv_dir"`
	Module             string            `mapstructure:"module" yaml:"module"`
	Args               []string          `mapstructure:"args" yaml:"args"`
	Env                map[string]string `mapstructure:"env" yaml:"env"`
	GracePeriodSeconds int               `mapstructure:"grace_period_seconds" yaml:"grace_period_seconds"`
	Logging            LoggingConfig     `mapstructure:"logging" yaml:"logging"`
}

// CurrentConfigVersion marks the supported config version.
const CurrentConfigVersion = 1

// EnvPrefix prefixes environment overrides, e.g. VENVLAUNCH_PROJECT_ROOT.
const EnvPrefix = "VENVLAUNCH"

// LoggingConfig controls the launcher's own log output.
type LoggingConfig struct {
	Level      string `mapstructure:"level" yaml:"level"`
	Structured bool   `mapstructure:"structured" yaml:"structured"`
}

// DefaultConfig returns a config with the stock launch target.
func DefaultConfig() Config {
	return Config{
		ConfigVersion:      CurrentConfigVersion,
		ProjectRoot:        "~/roentgenium",
		VenvDir:            ".venv_build",
		Module:             "roentgenium",
		Args:               []string{},
		Env:                map[string]string{},
		GracePeriodSeconds: 10,
		Logging: LoggingConfig{
			Level:      "info",
			Structured: false,
		},
	}
}

// DefaultConfigPath returns the config path under the platform user config
// dir (~/.config on Linux, %AppData% on Windows).
func DefaultConfigPath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "venvlaunch", "config.yaml"), nil
}
