// Package version carries build metadata set via -ldflags.
package version

import "runtime/debug"

// Build metadata, overridden with -ldflags "-X".
var (
	Version = "dev"     //nolint:gochecknoglobals // set by linker
	Commit  = "unknown" //nolint:gochecknoglobals // set by linker
	Date    = "unknown" //nolint:gochecknoglobals // set by linker
)

// InitBinaryVersion fills unset fields from the embedded build info, so
// `go install` builds still report a module version and VCS revision.
func InitBinaryVersion() {
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return
	}

	if Version == "dev" && info.Main.Version != "" && info.Main.Version != "(devel)" {
		Version = info.Main.Version
	}

	for _, setting := range info.Settings {
		switch setting.Key {
		case "vcs.revision":
			if Commit == "unknown" {
				Commit = setting.Value
			}
		case "vcs.time":
			if Date == "unknown" {
				Date = setting.Value
			}
		}
	}
}

// String renders the version line printed by the CLI.
func String(binary string) string {
	return binary + " " + Version + " (commit: " + Commit + ", built: " + Date + ")"
}
