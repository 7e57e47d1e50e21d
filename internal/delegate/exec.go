// Package delegate starts the entry point as a child process.
package delegate

import (
	"context"
	"errors"
	"os"
	"os/exec"
	"syscall"
	"time"

	"pkt.systems/pslog"
	"pkt.systems/venvlaunch/internal/launcher"
)

// DefaultGracePeriod is how long a cancelled child gets between SIGTERM and kill.
const DefaultGracePeriod = 10 * time.Second

// Config controls how the child process is run.
type Config struct {
	GracePeriod time.Duration
}

// Exec implements launcher.Delegate with os/exec.
type Exec struct {
	cfg Config
}

// New constructs an Exec delegate.
func New(cfg Config) *Exec {
	if cfg.GracePeriod <= 0 {
		cfg.GracePeriod = DefaultGracePeriod
	}
	return &Exec{cfg: cfg}
}

// Run starts inv and blocks until the child exits. Unset stdio streams fall
// back to the launcher's own.
func (e *Exec) Run(ctx context.Context, inv launcher.Invocation) (int, error) {
	if inv.Interpreter == "" {
		return 0, errors.New("interpreter is required")
	}
	log := pslog.Ctx(ctx)

	cmd := exec.CommandContext(ctx, inv.Interpreter, inv.Args...)
	cmd.Dir = inv.Dir
	cmd.Env = inv.Env
	cmd.Stdin = inv.Stdin
	if cmd.Stdin == nil {
		cmd.Stdin = os.Stdin
	}
	cmd.Stdout = inv.Stdout
	if cmd.Stdout == nil {
		cmd.Stdout = os.Stdout
	}
	cmd.Stderr = inv.Stderr
	if cmd.Stderr == nil {
		cmd.Stderr = os.Stderr
	}
	cmd.Cancel = func() error {
		return cmd.Process.Signal(syscall.SIGTERM)
	}
	cmd.WaitDelay = e.cfg.GracePeriod

	started := time.Now()
	if err := cmd.Start(); err != nil {
		log.Error("delegate start failed", "interpreter", inv.Interpreter, "err", err)
		return 0, err
	}
	log.Debug("delegate started", "pid", cmd.Process.Pid, "dir", inv.Dir)

	waitErr := cmd.Wait()
	if cmd.ProcessState == nil {
		log.Error("delegate wait failed", "err", waitErr)
		return 0, waitErr
	}
	if waitErr != nil {
		// Cancellation or a stuck output pipe after the child exited.
		log.Debug("delegate wait returned", "err", waitErr)
	}
	status, signal := exitStatus(cmd.ProcessState)
	fields := []any{
		"exit_code", status,
		"duration_ms", time.Since(started).Milliseconds(),
	}
	if signal != "" {
		fields = append(fields, "signal", signal)
	}
	log.Debug("delegate finished", fields...)
	return status, nil
}

// exitStatus converts a finished process state into a shell-style status. A
// child killed by a signal reports 128+signal.
func exitStatus(state *os.ProcessState) (int, string) {
	if ws, ok := state.Sys().(syscall.WaitStatus); ok && ws.Signaled() {
		return 128 + int(ws.Signal()), ws.Signal().String()
	}
	return state.ExitCode(), ""
}
