// Package version reports the launcher's build version.
package version

import (
	"runtime/debug"
	"strings"
)

const defaultModule = "pkt.systems/venvlaunch"

// buildVersion is set via -ldflags "-X pkt.systems/venvlaunch/internal/version.buildVersion=...".
var buildVersion = ""

// Info is what the binary knows about its own build.
type Info struct {
	Module   string
	Version  string
	Revision string
	Modified bool
}

// String renders "module version", with a +dirty marker for modified trees.
func (i Info) String() string {
	v := i.Version
	if i.Modified && !strings.HasSuffix(v, "+dirty") {
		v += "+dirty"
	}
	return i.Module + " " + v
}

// Get returns build information for the running binary.
func Get() Info {
	info, _ := debug.ReadBuildInfo()
	return fromBuildInfo(info, buildVersion)
}

func fromBuildInfo(info *debug.BuildInfo, override string) Info {
	out := Info{Module: defaultModule, Version: "v0.0.0-unknown"}
	if info != nil {
		if path := strings.TrimSpace(info.Main.Path); path != "" {
			out.Module = path
		}
		if v := strings.TrimSpace(info.Main.Version); v != "" && v != "(devel)" {
			out.Version = v
		}
		for _, setting := range info.Settings {
			switch setting.Key {
			case "vcs.revision":
				out.Revision = setting.Value
			case "vcs.modified":
				out.Modified = setting.Value == "true"
			}
		}
		if out.Version == "v0.0.0-unknown" && out.Revision != "" {
			rev := out.Revision
			if len(rev) > 12 {
				rev = rev[:12]
			}
			out.Version = "v0.0.0-" + rev
		}
	}
	if v := strings.TrimSpace(override); v != "" {
		out.Version = strings.TrimSuffix(v, "+dirty")
	}
	return out
}
