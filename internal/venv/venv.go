// Package venv validates a pre-existing Python virtual environment and
// computes the variable changes its activate script would make, without
// touching the launcher's own process environment.
package venv

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/go-ini/ini"
)

const (
	// DefaultDir is the environment directory used when none is configured.
	DefaultDir = ".venv_build"
	// ConfigFile is the marker file every virtual environment carries.
	ConfigFile = "pyvenv.cfg"
)

// Variables touched by activation.
const (
	VarVirtualEnv = "VIRTUAL_ENV"
	VarPrompt     = "VIRTUAL_ENV_PROMPT"
	VarPath       = "PATH"
	VarPythonHome = "PYTHONHOME"
)

// ErrUnavailable reports a missing, unreadable or malformed environment.
var ErrUnavailable = errors.New("execution environment unavailable")

// Environment describes a validated virtual environment on disk.
type Environment struct {
	Dir         string
	BinDir      string
	Interpreter string
	Home        string
	Version     string
	Prompt      string
}

// Open validates dir as a virtual environment. All failures wrap ErrUnavailable.
func Open(dir string) (*Environment, error) {
	if strings.TrimSpace(dir) == "" {
		return nil, fmt.Errorf("%w: environment dir is empty", ErrUnavailable)
	}
	dir = filepath.Clean(dir)
	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%w: %s is not a directory", ErrUnavailable, dir)
	}

	cfgPath := filepath.Join(dir, ConfigFile)
	cfg, err := ini.LoadSources(ini.LoadOptions{
		AllowPythonMultilineValues: false,
		SkipUnrecognizableLines:    false,
	}, cfgPath)
	if err != nil {
		return nil, fmt.Errorf("%w: read %s: %w", ErrUnavailable, cfgPath, err)
	}
	section := cfg.Section(ini.DefaultSection)
	home := strings.TrimSpace(section.Key("home").String())
	if home == "" {
		return nil, fmt.Errorf("%w: %s has no home key", ErrUnavailable, cfgPath)
	}

	env := &Environment{
		Dir:     dir,
		BinDir:  filepath.Join(dir, binDirName()),
		Home:    home,
		Version: firstKey(section, "version", "version_info"),
		Prompt:  unquote(section.Key("prompt").String()),
	}
	if env.Prompt == "" {
		env.Prompt = filepath.Base(dir)
	}
	env.Interpreter = filepath.Join(env.BinDir, interpreterName())
	if err := checkExecutable(env.Interpreter); err != nil {
		return nil, fmt.Errorf("%w: interpreter %s: %w", ErrUnavailable, env.Interpreter, err)
	}
	return env, nil
}

// Activate applies the environment to env and returns the handle that reverts it.
func (e *Environment) Activate(env Environ) (*Activation, error) {
	if env == nil {
		return nil, errors.New("activate: nil environ")
	}
	act := &Activation{env: e, saved: make(map[string]savedVar, 4)}
	act.set(env, VarVirtualEnv, e.Dir)
	act.set(env, VarPrompt, e.Prompt)
	path := e.BinDir
	if old, ok := env[VarPath]; ok && old != "" {
		path = e.BinDir + string(os.PathListSeparator) + old
	}
	act.set(env, VarPath, path)
	act.unset(env, VarPythonHome)
	return act, nil
}

type savedVar struct {
	value string
	set   bool
}

// Activation records the prior values of every variable Activate touched.
type Activation struct {
	env   *Environment
	saved map[string]savedVar
	done  bool
}

// Interpreter returns the environment's python executable.
func (a *Activation) Interpreter() string {
	return a.env.Interpreter
}

// Environment returns the activated environment.
func (a *Activation) Environment() *Environment {
	return a.env
}

// Deactivate restores env to its pre-activation values. Only the first call
// has any effect.
func (a *Activation) Deactivate(env Environ) error {
	if a.done {
		return nil
	}
	if env == nil {
		return errors.New("deactivate: nil environ")
	}
	for key, prev := range a.saved {
		if prev.set {
			env[key] = prev.value
		} else {
			delete(env, key)
		}
	}
	a.done = true
	return nil
}

func (a *Activation) remember(env Environ, key string) {
	if _, ok := a.saved[key]; ok {
		return
	}
	value, set := env[key]
	a.saved[key] = savedVar{value: value, set: set}
}

func (a *Activation) set(env Environ, key, value string) {
	a.remember(env, key)
	env[key] = value
}

func (a *Activation) unset(env Environ, key string) {
	a.remember(env, key)
	delete(env, key)
}

func firstKey(section *ini.Section, keys ...string) string {
	for _, key := range keys {
		if section.HasKey(key) {
			if value := strings.TrimSpace(section.Key(key).String()); value != "" {
				return value
			}
		}
	}
	return ""
}

func unquote(value string) string {
	value = strings.TrimSpace(value)
	if len(value) >= 2 {
		first, last := value[0], value[len(value)-1]
		if (first == '\'' || first == '"') && first == last {
			return value[1 : len(value)-1]
		}
	}
	return value
}

func binDirName() string {
	if runtime.GOOS == "windows" {
		return "Scripts"
	}
	return "bin"
}

func interpreterName() string {
	if runtime.GOOS == "windows" {
		return "python.exe"
	}
	return "python"
}
