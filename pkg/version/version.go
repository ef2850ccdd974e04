// Package version reports this control plane's build identity: the
// linker-set release version plus whatever VCS metadata the Go toolchain
// embeds.
package version

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"runtime"
	"runtime/debug"
)

var (
	// UndefinedVersion is reported when no version was set at link time.
	UndefinedVersion = "undefined"
	// Version is this binary's release version, set by the linker during
	// build via -ldflags.
	Version string
	// ref is constructed from the build info during init.
	ref *version
)

type version struct {
	ControlPlane string `json:"version"`
	Commit       string `json:"commit"`
	Date         string `json:"buildDate"`
	OS           string `json:"runtimeOS"`
	Arch         string `json:"runtimeArch"`
}

// String renders the current build identity as JSON, used by the CLI's
// --version flag.
func String() string {
	data, err := json.Marshal(ref)
	if err != nil {
		return fmt.Sprintf("unable to generate version string: %v", err)
	}
	return string(data)
}

// Attrs renders the build identity as structured slog attributes, so the
// startup log line carries it the same way every other component logs --
// key/value pairs under logging's shared handler -- instead of the single
// opaque JSON blob String builds for the CLI flag.
func Attrs() []slog.Attr {
	if ref == nil {
		return []slog.Attr{slog.String("version", UndefinedVersion)}
	}
	return []slog.Attr{
		slog.String("version", ref.ControlPlane),
		slog.String("commit", ref.Commit),
		slog.String("buildDate", ref.Date),
		slog.String("runtimeOS", ref.OS),
		slog.String("runtimeArch", ref.Arch),
	}
}

func init() {
	info, ok := debug.ReadBuildInfo()
	if !ok {
		Version = UndefinedVersion
		return
	}
	v := Version
	if v == "" {
		v = info.Main.Version
	}
	if v == "" {
		v = UndefinedVersion
	}
	ref = &version{
		ControlPlane: v,
		OS:           runtime.GOOS,
		Arch:         runtime.GOARCH,
	}
	for _, setting := range info.Settings {
		switch setting.Key {
		case "vcs.revision":
			ref.Commit = setting.Value
		case "vcs.time":
			ref.Date = setting.Value
		}
	}
}
