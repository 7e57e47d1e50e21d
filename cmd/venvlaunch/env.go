package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"pkt.systems/pslog"
	"pkt.systems/venvlaunch/internal/appconfig"
	"pkt.systems/venvlaunch/internal/launcher"
	"pkt.systems/venvlaunch/internal/venv"
)

// activated is a dry-run activation used by env and doctor; nothing is run.
type activated struct {
	root string
	base venv.Environ
	env  venv.Environ
	act  launcher.Activation
}

func activate(cmd *cobra.Command, cfg appconfig.Config) (*activated, error) {
	root, err := launcher.ResolveRoot(cfg.ProjectRoot)
	if err != nil {
		return nil, err
	}
	base := venv.Current()
	base.Merge(cfg.Env)
	base["PWD"] = root
	env := base.Clone()
	act, err := launcher.VenvActivator{Dir: cfg.VenvDir}.Activate(cmd.Context(), root, env)
	if err != nil {
		return nil, &launcher.Error{Kind: launcher.KindEnvironmentUnavailable, Op: "activate", Path: root, Err: err}
	}
	return &activated{root: root, base: base, env: env, act: act}, nil
}

func (a *activated) environment() *venv.Environment {
	if act, ok := a.act.(*venv.Activation); ok {
		return act.Environment()
	}
	return nil
}

func (a *activated) close(log pslog.Logger) {
	if err := a.act.Deactivate(a.env); err != nil {
		log.Warn("environment cleanup incomplete", "kind", launcher.KindCleanupFailure, "err", err)
	}
}

func newEnvCmd(opts *options) *cobra.Command {
	var all bool
	cmd := &cobra.Command{
		Use:   "env",
		Short: "Print the variables activation would set for the module",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.load(cmd)
			if err != nil {
				return err
			}
			a, err := activate(cmd, cfg)
			if err != nil {
				return err
			}
			defer a.close(pslog.Ctx(cmd.Context()))

			out := cmd.OutOrStdout()
			if all {
				for _, entry := range a.env.List() {
					if _, err := fmt.Fprintln(out, entry); err != nil {
						return err
					}
				}
				return nil
			}
			for _, change := range venv.Diff(a.base, a.env) {
				line := change.Key + "=" + change.Value
				if change.Removed {
					line = "-" + change.Key
				}
				if _, err := fmt.Fprintln(out, line); err != nil {
					return err
				}
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&all, "all", false, "print the full environment instead of the changes")
	return cmd
}
