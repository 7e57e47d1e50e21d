package venv

import (
	"os"
	"sort"
	"strings"
)

// Environ is a mutable copy of a process environment keyed by variable name.
type Environ map[string]string

// FromList builds an Environ from KEY=VALUE entries. Later entries win.
func FromList(list []string) Environ {
	env := make(Environ, len(list))
	for _, entry := range list {
		key, value, ok := strings.Cut(entry, "=")
		if !ok || key == "" {
			continue
		}
		env[key] = value
	}
	return env
}

// Current returns a copy of the launcher's own environment.
func Current() Environ {
	return FromList(os.Environ())
}

// Clone returns an independent copy.
func (e Environ) Clone() Environ {
	out := make(Environ, len(e))
	for key, value := range e {
		out[key] = value
	}
	return out
}

// List renders the environment as sorted KEY=VALUE entries for exec.Cmd.Env.
func (e Environ) List() []string {
	keys := make([]string, 0, len(e))
	for key := range e {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	out := make([]string, 0, len(keys))
	for _, key := range keys {
		out = append(out, key+"="+e[key])
	}
	return out
}

// Merge sets every entry of extra, overriding existing values.
func (e Environ) Merge(extra map[string]string) {
	for key, value := range extra {
		if strings.TrimSpace(key) == "" {
			continue
		}
		e[key] = value
	}
}

// Change describes one variable that differs between two environments.
type Change struct {
	Key     string
	Value   string
	Removed bool
}

// Diff lists the variables of next that differ from base, sorted by key.
func Diff(base, next Environ) []Change {
	var out []Change
	for key, value := range next {
		if old, ok := base[key]; !ok || old != value {
			out = append(out, Change{Key: key, Value: value})
		}
	}
	for key := range base {
		if _, ok := next[key]; !ok {
			out = append(out, Change{Key: key, Removed: true})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out
}
