package launcher

import (
	"context"
	"path/filepath"
	"strings"

	"pkt.systems/pslog"
	"pkt.systems/venvlaunch/internal/venv"
)

// VenvActivator activates a Python virtual environment located under the
// project root.
type VenvActivator struct {
	// Dir is the environment directory, relative to the project root unless
	// absolute. Defaults to venv.DefaultDir.
	Dir string
}

// EnvironmentDir resolves the environment directory for root.
func (a VenvActivator) EnvironmentDir(root string) (string, error) {
	dir := strings.TrimSpace(a.Dir)
	if dir == "" {
		dir = venv.DefaultDir
	}
	dir, err := ExpandHome(dir)
	if err != nil {
		return "", err
	}
	if !filepath.IsAbs(dir) {
		dir = filepath.Join(root, dir)
	}
	return filepath.Clean(dir), nil
}

// Activate implements Activator.
func (a VenvActivator) Activate(ctx context.Context, root string, env venv.Environ) (Activation, error) {
	dir, err := a.EnvironmentDir(root)
	if err != nil {
		return nil, err
	}
	environment, err := venv.Open(dir)
	if err != nil {
		return nil, err
	}
	act, err := environment.Activate(env)
	if err != nil {
		return nil, err
	}
	pslog.Ctx(ctx).Debug("environment activated", "venv", environment.Dir, "python_version", environment.Version, "python_home", environment.Home)
	return act, nil
}
