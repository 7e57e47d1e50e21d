// Package launcher sequences a project launch: resolve the project root,
// activate its execution environment, run the entry point and deactivate the
// environment again once the entry point has returned.
package launcher

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"pkt.systems/venvlaunch/internal/logx"
	"pkt.systems/venvlaunch/internal/venv"
)

// Activator prepares the execution environment for a resolved project root
// by mutating env.
type Activator interface {
	Activate(ctx context.Context, root string, env venv.Environ) (Activation, error)
}

// Activation is an active environment that can be reverted.
type Activation interface {
	Interpreter() string
	Deactivate(env venv.Environ) error
}

// Delegate runs the entry point and reports its exit status. An error means
// the process could not be started or waited on.
type Delegate interface {
	Run(ctx context.Context, inv Invocation) (int, error)
}

// Invocation is everything a Delegate needs to start the entry point.
type Invocation struct {
	Dir         string
	Interpreter string
	Args        []string
	Env         []string
	Stdin       io.Reader
	Stdout      io.Writer
	Stderr      io.Writer
}

// ModuleArgs returns the interpreter arguments that run module as __main__.
func ModuleArgs(module string, extra []string) []string {
	args := make([]string, 0, len(extra)+2)
	args = append(args, "-m", module)
	return append(args, extra...)
}

// Config controls a launch.
type Config struct {
	ProjectRoot string
	Module      string
	Args        []string
	// Env is applied on top of BaseEnv before activation.
	Env map[string]string
	// BaseEnv defaults to the launcher's own environment.
	BaseEnv venv.Environ
	Stdin   io.Reader
	Stdout  io.Writer
	Stderr  io.Writer
}

// Result describes a finished (or aborted) launch.
type Result struct {
	LaunchID    string
	WorkDir     string
	Interpreter string
	ExitCode    int
	Trace       []State
	Duration    time.Duration
}

// State returns the last state the launch reached.
func (r *Result) State() State {
	if len(r.Trace) == 0 {
		return ""
	}
	return r.Trace[len(r.Trace)-1]
}

func (r *Result) enter(state State) {
	if n := len(r.Trace); n > 0 && !validTransition(r.Trace[n-1], state) {
		panic(fmt.Sprintf("launcher: invalid transition %s -> %s", r.Trace[n-1], state))
	}
	r.Trace = append(r.Trace, state)
}

// Launcher runs a single launch.
type Launcher struct {
	cfg       Config
	activator Activator
	delegate  Delegate
}

// New constructs a Launcher.
func New(cfg Config, activator Activator, delegate Delegate) (*Launcher, error) {
	if strings.TrimSpace(cfg.Module) == "" {
		return nil, errors.New("entry point module is required")
	}
	if activator == nil {
		return nil, errors.New("activator is required")
	}
	if delegate == nil {
		return nil, errors.New("delegate is required")
	}
	return &Launcher{cfg: cfg, activator: activator, delegate: delegate}, nil
}

// Launch runs the sequence once. Deactivation runs on every path after a
// successful activation, including a panicking delegate. The returned error
// is a *Error; use ExitCode to map it to a process status.
func (l *Launcher) Launch(ctx context.Context) (res Result, err error) {
	started := time.Now()
	res.LaunchID = uuid.NewString()
	ctx, log := logx.ContextWithLaunch(ctx, res.LaunchID)
	res.enter(StateStart)

	root, err := ResolveRoot(l.cfg.ProjectRoot)
	if err != nil {
		res.enter(StateDirectoryResolveFailed)
		res.ExitCode = ExitResourceNotFound
		log.Error("project root unavailable", "path", l.cfg.ProjectRoot, "err", err)
		return res, err
	}
	res.WorkDir = root
	res.enter(StateDirectoryResolved)
	log = logx.WithProject(log, root, l.cfg.Module)
	log.Debug("project root resolved")

	env := l.cfg.BaseEnv
	if env == nil {
		env = venv.Current()
	} else {
		env = env.Clone()
	}
	env.Merge(l.cfg.Env)
	env["PWD"] = root

	act, err := l.activator.Activate(ctx, root, env)
	if err != nil {
		res.enter(StateEnvironmentActivateFailed)
		res.ExitCode = ExitEnvironmentUnavailable
		log.Error("environment activation failed", "err", err)
		return res, &Error{Kind: KindEnvironmentUnavailable, Op: "activate", Path: root, Err: err}
	}
	res.Interpreter = act.Interpreter()
	res.enter(StateEnvironmentActive)
	log.Debug("environment active", "interpreter", res.Interpreter)

	defer func() {
		if derr := act.Deactivate(env); derr != nil {
			cerr := &Error{Kind: KindCleanupFailure, Op: "deactivate", Path: root, Err: derr}
			log.Warn("environment cleanup incomplete", "kind", cerr.Kind, "err", cerr)
		} else {
			log.Debug("environment deactivated")
		}
		res.enter(StateDone)
		res.Duration = time.Since(started)
	}()

	inv := Invocation{
		Dir:         root,
		Interpreter: res.Interpreter,
		Args:        ModuleArgs(l.cfg.Module, l.cfg.Args),
		Env:         env.List(),
		Stdin:       l.cfg.Stdin,
		Stdout:      l.cfg.Stdout,
		Stderr:      l.cfg.Stderr,
	}
	log.Info("entry point start", "args", inv.Args)
	status, runErr := l.delegate.Run(ctx, inv)
	res.enter(StateDelegateInvoked)
	if runErr != nil {
		res.ExitCode = ExitDelegateStart
		log.Error("entry point could not run", "err", runErr)
		return res, &Error{Kind: KindDelegateFailure, Op: "run", Path: l.cfg.Module, Status: ExitDelegateStart, Err: runErr}
	}
	res.ExitCode = status
	if status != 0 {
		log.Info("entry point finished", "exit_code", status)
		return res, &Error{Kind: KindDelegateFailure, Op: "run", Path: l.cfg.Module, Status: status}
	}
	log.Info("entry point finished", "exit_code", status)
	return res, nil
}

// ResolveRoot expands a leading ~ and returns the absolute project root.
// Every failure is a KindResourceNotFound *Error.
func ResolveRoot(path string) (string, error) {
	raw := path
	path = strings.TrimSpace(path)
	if path == "" {
		return "", &Error{Kind: KindResourceNotFound, Op: "resolve", Path: raw, Err: errors.New("project root is empty")}
	}
	expanded, err := ExpandHome(path)
	if err != nil {
		return "", &Error{Kind: KindResourceNotFound, Op: "resolve", Path: raw, Err: err}
	}
	abs, err := filepath.Abs(expanded)
	if err != nil {
		return "", &Error{Kind: KindResourceNotFound, Op: "resolve", Path: expanded, Err: err}
	}
	info, err := os.Stat(abs)
	if err != nil {
		return "", &Error{Kind: KindResourceNotFound, Op: "resolve", Path: abs, Err: err}
	}
	if !info.IsDir() {
		return "", &Error{Kind: KindResourceNotFound, Op: "resolve", Path: abs, Err: errors.New("not a directory")}
	}
	if err := checkEnterable(abs); err != nil {
		return "", &Error{Kind: KindResourceNotFound, Op: "resolve", Path: abs, Err: fmt.Errorf("not accessible: %w", err)}
	}
	return abs, nil
}

// ExpandHome replaces a leading ~ or ~/ with the invoking user's home dir.
func ExpandHome(path string) (string, error) {
	if path != "~" && !strings.HasPrefix(path, "~/") && !strings.HasPrefix(path, `~\`) {
		return path, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	if path == "~" {
		return home, nil
	}
	return filepath.Join(home, path[2:]), nil
}
