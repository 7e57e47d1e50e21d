package launcher

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"pkt.systems/venvlaunch/internal/venv"
)

type fakeActivation struct {
	interpreter   string
	deactivations int
	err           error
}

func (a *fakeActivation) Interpreter() string { return a.interpreter }

func (a *fakeActivation) Deactivate(env venv.Environ) error {
	a.deactivations++
	delete(env, "FAKE_ACTIVE")
	return a.err
}

type fakeActivator struct {
	calls      int
	root       string
	err        error
	activation *fakeActivation
}

func (a *fakeActivator) Activate(ctx context.Context, root string, env venv.Environ) (Activation, error) {
	a.calls++
	a.root = root
	if a.err != nil {
		return nil, a.err
	}
	env["FAKE_ACTIVE"] = "1"
	return a.activation, nil
}

type fakeDelegate struct {
	calls  int
	status int
	err    error
	panic  bool
	inv    Invocation
}

func (d *fakeDelegate) Run(ctx context.Context, inv Invocation) (int, error) {
	d.calls++
	d.inv = inv
	if d.panic {
		panic("delegate exploded")
	}
	return d.status, d.err
}

func newFakes() (*fakeActivator, *fakeDelegate) {
	return &fakeActivator{activation: &fakeActivation{interpreter: "/venv/bin/python"}}, &fakeDelegate{}
}

func TestLaunchRunsStepsInOrder(t *testing.T) {
	root := t.TempDir()
	activator, delegate := newFakes()
	l, err := New(Config{
		ProjectRoot: root,
		Module:      "roentgenium",
		Args:        []string{"--style", "config/style.qss"},
		Env:         map[string]string{"EXTRA": "yes"},
		BaseEnv:     venv.Environ{"PATH": "/usr/bin"},
	}, activator, delegate)
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	res, err := l.Launch(context.Background())
	if err != nil {
		t.Fatalf("launch: %v", err)
	}
	if activator.root != root {
		t.Fatalf("expected activation under %q, got %q", root, activator.root)
	}
	if delegate.inv.Dir != root || res.WorkDir != root {
		t.Fatalf("expected working dir %q, got inv=%q result=%q", root, delegate.inv.Dir, res.WorkDir)
	}
	if delegate.inv.Interpreter != "/venv/bin/python" {
		t.Fatalf("unexpected interpreter %q", delegate.inv.Interpreter)
	}
	wantArgs := []string{"-m", "roentgenium", "--style", "config/style.qss"}
	if diff := cmp.Diff(wantArgs, delegate.inv.Args); diff != "" {
		t.Fatalf("unexpected args (-want +got):\n%s", diff)
	}
	wantEnv := []string{"EXTRA=yes", "FAKE_ACTIVE=1", "PATH=/usr/bin", "PWD=" + root}
	if diff := cmp.Diff(wantEnv, delegate.inv.Env); diff != "" {
		t.Fatalf("unexpected env (-want +got):\n%s", diff)
	}
	wantTrace := []State{StateStart, StateDirectoryResolved, StateEnvironmentActive, StateDelegateInvoked, StateDone}
	if diff := cmp.Diff(wantTrace, res.Trace); diff != "" {
		t.Fatalf("unexpected trace (-want +got):\n%s", diff)
	}
	if activator.activation.deactivations != 1 {
		t.Fatalf("expected one deactivation, got %d", activator.activation.deactivations)
	}
	if res.LaunchID == "" {
		t.Fatalf("expected launch id")
	}
}

func TestLaunchDoesNotMutateBaseEnv(t *testing.T) {
	base := venv.Environ{"PATH": "/usr/bin"}
	activator, delegate := newFakes()
	l, err := New(Config{ProjectRoot: t.TempDir(), Module: "app", BaseEnv: base}, activator, delegate)
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	if _, err := l.Launch(context.Background()); err != nil {
		t.Fatalf("launch: %v", err)
	}
	if diff := cmp.Diff(venv.Environ{"PATH": "/usr/bin"}, base); diff != "" {
		t.Fatalf("base env changed (-want +got):\n%s", diff)
	}
}

func TestLaunchMissingRootSkipsRemainingSteps(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "ExampleProject")
	activator, delegate := newFakes()
	l, err := New(Config{ProjectRoot: missing, Module: "app"}, activator, delegate)
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	res, err := l.Launch(context.Background())
	if !IsKind(err, KindResourceNotFound) {
		t.Fatalf("expected resource_not_found, got %v", err)
	}
	if !strings.Contains(err.Error(), missing) {
		t.Fatalf("expected error to name %q, got %v", missing, err)
	}
	if activator.calls != 0 || delegate.calls != 0 {
		t.Fatalf("expected no activation or delegate, got %d/%d", activator.calls, delegate.calls)
	}
	if ExitCode(err) != ExitResourceNotFound || res.ExitCode != ExitResourceNotFound {
		t.Fatalf("expected exit %d, got %d/%d", ExitResourceNotFound, ExitCode(err), res.ExitCode)
	}
	if res.State() != StateDirectoryResolveFailed {
		t.Fatalf("expected %s, got %s", StateDirectoryResolveFailed, res.State())
	}
}

func TestLaunchRootIsFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "file")
	if err := os.WriteFile(path, nil, 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	activator, delegate := newFakes()
	l, err := New(Config{ProjectRoot: path, Module: "app"}, activator, delegate)
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	if _, err := l.Launch(context.Background()); !IsKind(err, KindResourceNotFound) {
		t.Fatalf("expected resource_not_found, got %v", err)
	}
	if activator.calls != 0 {
		t.Fatalf("expected no activation")
	}
}

func TestLaunchActivationFailureSkipsDelegate(t *testing.T) {
	activator, delegate := newFakes()
	activator.err = venv.ErrUnavailable
	l, err := New(Config{ProjectRoot: t.TempDir(), Module: "app"}, activator, delegate)
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	res, err := l.Launch(context.Background())
	if !IsKind(err, KindEnvironmentUnavailable) {
		t.Fatalf("expected environment_unavailable, got %v", err)
	}
	if !errors.Is(err, venv.ErrUnavailable) {
		t.Fatalf("expected wrapped ErrUnavailable, got %v", err)
	}
	if delegate.calls != 0 {
		t.Fatalf("expected delegate not to run")
	}
	if activator.activation.deactivations != 0 {
		t.Fatalf("expected no deactivation without activation")
	}
	if ExitCode(err) != ExitEnvironmentUnavailable {
		t.Fatalf("expected exit %d, got %d", ExitEnvironmentUnavailable, ExitCode(err))
	}
	wantTrace := []State{StateStart, StateDirectoryResolved, StateEnvironmentActivateFailed}
	if diff := cmp.Diff(wantTrace, res.Trace); diff != "" {
		t.Fatalf("unexpected trace (-want +got):\n%s", diff)
	}
}

func TestLaunchPropagatesExitStatus(t *testing.T) {
	for _, status := range []int{0, 1, 42} {
		activator, delegate := newFakes()
		delegate.status = status
		l, err := New(Config{ProjectRoot: t.TempDir(), Module: "app"}, activator, delegate)
		if err != nil {
			t.Fatalf("new: %v", err)
		}
		res, err := l.Launch(context.Background())
		if got := ExitCode(err); got != status {
			t.Fatalf("status %d: expected exit %d, got %d (err %v)", status, status, got, err)
		}
		if res.ExitCode != status {
			t.Fatalf("status %d: result exit %d", status, res.ExitCode)
		}
		if status != 0 && !IsKind(err, KindDelegateFailure) {
			t.Fatalf("status %d: expected delegate_failure, got %v", status, err)
		}
		if activator.activation.deactivations != 1 {
			t.Fatalf("status %d: expected one deactivation, got %d", status, activator.activation.deactivations)
		}
	}
}

func TestLaunchDelegateStartFailure(t *testing.T) {
	activator, delegate := newFakes()
	delegate.err = errors.New("exec format error")
	l, err := New(Config{ProjectRoot: t.TempDir(), Module: "app"}, activator, delegate)
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	res, err := l.Launch(context.Background())
	if !IsKind(err, KindDelegateFailure) {
		t.Fatalf("expected delegate_failure, got %v", err)
	}
	if ExitCode(err) != ExitDelegateStart || res.ExitCode != ExitDelegateStart {
		t.Fatalf("expected exit %d, got %d/%d", ExitDelegateStart, ExitCode(err), res.ExitCode)
	}
	if activator.activation.deactivations != 1 {
		t.Fatalf("expected deactivation after start failure")
	}
}

func TestLaunchDeactivatesWhenDelegatePanics(t *testing.T) {
	activator, delegate := newFakes()
	delegate.panic = true
	l, err := New(Config{ProjectRoot: t.TempDir(), Module: "app"}, activator, delegate)
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	func() {
		defer func() {
			if recover() == nil {
				t.Fatalf("expected panic to propagate")
			}
		}()
		_, _ = l.Launch(context.Background())
	}()
	if activator.activation.deactivations != 1 {
		t.Fatalf("expected one deactivation, got %d", activator.activation.deactivations)
	}
}

func TestLaunchCleanupFailureKeepsExitStatus(t *testing.T) {
	activator, delegate := newFakes()
	activator.activation.err = errors.New("restore failed")
	l, err := New(Config{ProjectRoot: t.TempDir(), Module: "app"}, activator, delegate)
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	res, err := l.Launch(context.Background())
	if err != nil {
		t.Fatalf("expected cleanup failure to be swallowed, got %v", err)
	}
	if res.ExitCode != 0 || res.State() != StateDone {
		t.Fatalf("expected clean exit, got %d in %s", res.ExitCode, res.State())
	}
}

func TestNewValidates(t *testing.T) {
	activator, delegate := newFakes()
	if _, err := New(Config{}, activator, delegate); err == nil {
		t.Fatalf("expected module error")
	}
	if _, err := New(Config{Module: "app"}, nil, delegate); err == nil {
		t.Fatalf("expected activator error")
	}
	if _, err := New(Config{Module: "app"}, activator, nil); err == nil {
		t.Fatalf("expected delegate error")
	}
}

func TestResolveRootExpandsHome(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("USERPROFILE", home)
	if err := os.Mkdir(filepath.Join(home, "ExampleProject"), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	got, err := ResolveRoot("~/ExampleProject")
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if got != filepath.Join(home, "ExampleProject") {
		t.Fatalf("expected expanded root, got %q", got)
	}
	if _, err := ResolveRoot("  "); !IsKind(err, KindResourceNotFound) {
		t.Fatalf("expected resource_not_found for empty root, got %v", err)
	}
}

func TestExitCodeForPlainErrors(t *testing.T) {
	if got := ExitCode(nil); got != 0 {
		t.Fatalf("expected 0, got %d", got)
	}
	if got := ExitCode(errors.New("bad flag")); got != ExitUsage {
		t.Fatalf("expected %d, got %d", ExitUsage, got)
	}
}

func TestStateTransitions(t *testing.T) {
	tests := []struct {
		from, to State
		want     bool
	}{
		{StateStart, StateDirectoryResolved, true},
		{StateStart, StateEnvironmentActive, false},
		{StateDirectoryResolved, StateEnvironmentActivateFailed, true},
		{StateEnvironmentActive, StateDone, true},
		{StateDone, StateStart, false},
	}
	for _, tc := range tests {
		if got := validTransition(tc.from, tc.to); got != tc.want {
			t.Fatalf("%s -> %s: got %v, want %v", tc.from, tc.to, got, tc.want)
		}
	}
	if !StateDirectoryResolveFailed.Terminal() || StateDelegateInvoked.Terminal() {
		t.Fatalf("unexpected terminal classification")
	}
}
