package main

import (
	"context"
	"io"
	"log"
	"os"

	"github.com/spf13/cobra"

	"pkt.systems/psi"
	"pkt.systems/pslog"
	"pkt.systems/venvlaunch/internal/launcher"
)

func main() {
	psi.Run(submain)
}

func submain(ctx context.Context) int {
	return run(ctx, os.Args[1:], os.Stdin, os.Stdout, os.Stderr)
}

func run(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	logger := pslog.LoggerFromEnv(
		pslog.WithEnvWriter(stderr),
		pslog.WithEnvOptions(pslog.Options{Mode: pslog.ModeConsole}),
	)
	ctx = pslog.ContextWithLogger(ctx, logger)
	log.SetOutput(pslog.LogLogger(logger).Writer())
	log.SetFlags(0)

	root := newRootCmd()
	root.SetArgs(args)
	root.SetIn(stdin)
	root.SetOut(stdout)
	root.SetErr(stderr)

	if err := root.ExecuteContext(ctx); err != nil {
		// A non-zero entry point status is relayed, not reported.
		if !launcher.IsKind(err, launcher.KindDelegateFailure) || launcher.ExitCode(err) == launcher.ExitDelegateStart {
			pslog.Ctx(ctx).With("err", err).Error("venvlaunch failed")
		}
		return launcher.ExitCode(err)
	}
	return 0
}

func newRootCmd() *cobra.Command {
	opts := &options{}
	root := &cobra.Command{
		Use:   "venvlaunch [flags] [-- module-args...]",
		Short: "Run a Python module inside its project's virtual environment",
		Long: `venvlaunch resolves a project root, activates the virtual environment
under it, runs "python -m <module>" from that directory and relays the
module's exit status. Arguments after -- are passed to the module.`,
		Args:          cobra.ArbitraryArgs,
		SilenceErrors: true,
		SilenceUsage:  true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLaunch(cmd, opts, args)
		},
	}
	opts.bind(root)

	root.AddCommand(newDoctorCmd(opts))
	root.AddCommand(newEnvCmd(opts))
	root.AddCommand(newConfigCmd(opts))
	root.AddCommand(newVersionCmd())

	return root
}
