package main

import (
	"io"
	"strings"

	"github.com/spf13/cobra"

	"pkt.systems/pslog"
	"pkt.systems/venvlaunch/internal/appconfig"
)

// options holds flags shared by the root command and its subcommands.
type options struct {
	cfgPath     string
	projectRoot string
	venvDir     string
	module      string
	env         []string
}

func (o *options) bind(cmd *cobra.Command) {
	flags := cmd.PersistentFlags()
	flags.StringVarP(&o.cfgPath, "config", "c", "", "path to config file")
	flags.StringVar(&o.projectRoot, "project-root", "", "project root (overrides config)")
	flags.StringVar(&o.venvDir, "venv", "", "environment dir, relative to the project root (overrides config)")
	flags.StringVar(&o.module, "module", "", "entry point module (overrides config)")
	flags.StringArrayVar(&o.env, "env", nil, "extra env for the module (repeatable KEY=VAL)")
}

// load reads the config, applies flag overrides and rebinds the command's
// logger to the configured level.
func (o *options) load(cmd *cobra.Command) (appconfig.Config, error) {
	cfg, err := appconfig.Load(o.cfgPath)
	if err != nil {
		return appconfig.Config{}, err
	}
	if strings.TrimSpace(o.projectRoot) != "" {
		cfg.ProjectRoot = o.projectRoot
	}
	if strings.TrimSpace(o.venvDir) != "" {
		cfg.VenvDir = o.venvDir
	}
	if strings.TrimSpace(o.module) != "" {
		cfg.Module = o.module
	}
	if extra := mapFromEnv(o.env); len(extra) > 0 {
		if cfg.Env == nil {
			cfg.Env = make(map[string]string, len(extra))
		}
		for key, value := range extra {
			cfg.Env[key] = value
		}
	}
	if err := appconfig.Validate(cfg); err != nil {
		return appconfig.Config{}, err
	}

	logger := newLogger(cmd.ErrOrStderr(), cfg.Logging)
	cmd.SetContext(pslog.ContextWithLogger(cmd.Context(), logger))
	logger.Debug("config loaded", "project_root", cfg.ProjectRoot, "venv_dir", cfg.VenvDir, "module", cfg.Module, "args", len(cfg.Args), "env", len(cfg.Env))
	return cfg, nil
}

func newLogger(w io.Writer, cfg appconfig.LoggingConfig) pslog.Logger {
	opts := pslog.Options{Mode: pslog.ModeConsole, MinLevel: pslog.InfoLevel}
	if cfg.Structured {
		opts.Mode = pslog.ModeStructured
		opts.NoColor = true
	}
	switch strings.ToLower(strings.TrimSpace(cfg.Level)) {
	case "trace":
		opts.MinLevel = pslog.TraceLevel
	case "debug":
		opts.MinLevel = pslog.DebugLevel
	case "error":
		opts.MinLevel = pslog.ErrorLevel
	}
	return pslog.NewWithOptions(w, opts)
}

func mapFromEnv(values []string) map[string]string {
	if len(values) == 0 {
		return nil
	}
	out := make(map[string]string, len(values))
	for _, value := range values {
		key, val, ok := strings.Cut(value, "=")
		if !ok || strings.TrimSpace(key) == "" {
			continue
		}
		out[key] = val
	}
	return out
}
