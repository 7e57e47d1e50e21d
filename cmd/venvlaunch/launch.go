package main

import (
	"time"

	"github.com/spf13/cobra"

	"pkt.systems/venvlaunch/internal/appconfig"
	"pkt.systems/venvlaunch/internal/delegate"
	"pkt.systems/venvlaunch/internal/launcher"
)

func runLaunch(cmd *cobra.Command, opts *options, args []string) error {
	cfg, err := opts.load(cmd)
	if err != nil {
		return err
	}
	l, err := newLauncher(cmd, cfg, args)
	if err != nil {
		return err
	}
	_, err = l.Launch(cmd.Context())
	return err
}

func newLauncher(cmd *cobra.Command, cfg appconfig.Config, args []string) (*launcher.Launcher, error) {
	moduleArgs := make([]string, 0, len(cfg.Args)+len(args))
	moduleArgs = append(moduleArgs, cfg.Args...)
	moduleArgs = append(moduleArgs, args...)
	return launcher.New(launcher.Config{
		ProjectRoot: cfg.ProjectRoot,
		Module:      cfg.Module,
		Args:        moduleArgs,
		Env:         cfg.Env,
		Stdin:       cmd.InOrStdin(),
		Stdout:      cmd.OutOrStdout(),
		Stderr:      cmd.ErrOrStderr(),
	}, launcher.VenvActivator{Dir: cfg.VenvDir}, newDelegate(cfg))
}

func newDelegate(cfg appconfig.Config) *delegate.Exec {
	return delegate.New(delegate.Config{
		GracePeriod: time.Duration(cfg.GracePeriodSeconds) * time.Second,
	})
}
