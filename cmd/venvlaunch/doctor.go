package main

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"pkt.systems/pslog"
	"pkt.systems/venvlaunch/internal/launcher"
)

// probeScript exits 0 when the module named by argv[1] can be imported.
const probeScript = "import importlib.util, sys; sys.exit(0 if importlib.util.find_spec(sys.argv[1]) else 3)"

type doctorRow struct {
	check  string
	ok     bool
	detail string
}

func newDoctorCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "doctor",
		Short: "Check the project root, environment and module without launching",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDoctor(cmd, opts)
		},
	}
}

func runDoctor(cmd *cobra.Command, opts *options) (err error) {
	cfg, err := opts.load(cmd)
	if err != nil {
		return err
	}
	logger := pslog.Ctx(cmd.Context())
	logger.Info("doctor start", "project_root", cfg.ProjectRoot, "module", cfg.Module)

	var rows []doctorRow
	defer func() {
		if rerr := renderDoctor(cmd, rows); rerr != nil && err == nil {
			err = fmt.Errorf("render doctor report: %w", rerr)
		}
	}()

	a, err := activate(cmd, cfg)
	if err != nil {
		if launcher.IsKind(err, launcher.KindResourceNotFound) {
			rows = append(rows, doctorRow{check: "project root", detail: err.Error()})
		} else {
			rows = append(rows,
				doctorRow{check: "project root", ok: true, detail: cfg.ProjectRoot},
				doctorRow{check: "environment", detail: err.Error()},
			)
		}
		return err
	}
	defer a.close(logger)
	rows = append(rows, doctorRow{check: "project root", ok: true, detail: a.root})
	envDetail := cfg.VenvDir
	if environment := a.environment(); environment != nil {
		envDetail = environment.Dir
		if environment.Version != "" {
			envDetail += " (python " + environment.Version + ")"
		}
	}
	rows = append(rows,
		doctorRow{check: "environment", ok: true, detail: envDetail},
		doctorRow{check: "interpreter", ok: true, detail: a.act.Interpreter()},
	)

	var output bytes.Buffer
	status, err := newDelegate(cfg).Run(cmd.Context(), launcher.Invocation{
		Dir:         a.root,
		Interpreter: a.act.Interpreter(),
		Args:        []string{"-c", probeScript, cfg.Module},
		Env:         a.env.List(),
		Stdin:       strings.NewReader(""),
		Stdout:      &output,
		Stderr:      &output,
	})
	switch {
	case err != nil:
		rows = append(rows, doctorRow{check: "module", detail: err.Error()})
		return fmt.Errorf("module probe: %w", err)
	case status != 0:
		detail := fmt.Sprintf("%s not importable (exit %d)", cfg.Module, status)
		if last := lastLine(output.String()); last != "" {
			detail += ": " + last
		}
		rows = append(rows, doctorRow{check: "module", detail: detail})
		return fmt.Errorf("module %s is not importable (exit %d)", cfg.Module, status)
	}
	rows = append(rows, doctorRow{check: "module", ok: true, detail: cfg.Module})
	logger.Info("doctor complete")
	return nil
}

func renderDoctor(cmd *cobra.Command, rows []doctorRow) error {
	if len(rows) == 0 {
		return nil
	}
	table := tablewriter.NewWriter(cmd.OutOrStdout())
	table.Header("Check", "Status", "Detail")
	for _, row := range rows {
		status := "ok"
		if !row.ok {
			status = "FAIL"
		}
		if err := table.Append(row.check, status, row.detail); err != nil {
			return err
		}
	}
	return table.Render()
}

func lastLine(s string) string {
	lines := strings.Split(strings.TrimSpace(s), "\n")
	return strings.TrimSpace(lines[len(lines)-1])
}
