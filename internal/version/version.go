// Package version reports the build identity of the mycoserve binary.
package version

import (
	"fmt"
	"runtime"
	"runtime/debug"
	"strings"
	"time"
)

// Name is the program name printed by the version command.
const Name = "mycoserve"

// BuildInfo contains version and build information
type BuildInfo struct {
	Name      string    `json:"name"`
	Version   string    `json:"version"`
	Commit    string    `json:"commit"`
	BuildTime time.Time `json:"build_time,omitempty"`
	GoVersion string    `json:"go_version"`
	Platform  string    `json:"platform"`
	Modified  bool      `json:"modified,omitempty"`
}

// Set at build time with -ldflags "-X github.com/muonblog/mycoserve/internal/version.Version=...".
var (
	Version   = "dev"
	Commit    = "unknown"
	BuildTime = "unknown"
)

// readBuildInfo is swapped in tests.
var readBuildInfo = debug.ReadBuildInfo

// Get collects the build information of the running binary. Values not
// injected by the linker fall back to the module's VCS settings.
func Get() *BuildInfo {
	info := &BuildInfo{
		Name:      Name,
		Version:   Version,
		Commit:    Commit,
		BuildTime: parseTime(BuildTime),
		GoVersion: runtime.Version(),
		Platform:  runtime.GOOS + "/" + runtime.GOARCH,
	}

	bi, ok := readBuildInfo()
	if !ok {
		return info
	}

	settings := make(map[string]string, len(bi.Settings))
	for _, s := range bi.Settings {
		settings[s.Key] = s.Value
	}

	if info.Commit == "" || info.Commit == "unknown" {
		if rev := settings["vcs.revision"]; rev != "" {
			info.Commit = rev
		}
	}
	if info.BuildTime.IsZero() {
		info.BuildTime = parseTime(settings["vcs.time"])
	}
	info.Modified = settings["vcs.modified"] == "true"

	if info.Version == "" || info.Version == "dev" {
		switch {
		case bi.Main.Version != "" && bi.Main.Version != "(devel)":
			info.Version = bi.Main.Version
		case len(info.Commit) >= 7 && info.Commit != "unknown":
			info.Version = "dev-" + info.Commit[:7]
		default:
			info.Version = "dev"
		}
	}

	return info
}

// Short returns "v1.2.3 (abcdef0)" or just the version when no commit is
// known.
func (b *BuildInfo) Short() string {
	if b.Commit == "unknown" || len(b.Commit) < 7 || strings.HasPrefix(b.Version, "dev-") {
		return b.Version
	}
	return fmt.Sprintf("%s (%s)", b.Version, b.Commit[:7])
}

// Detailed returns one "Key: value" line per known field.
func (b *BuildInfo) Detailed() string {
	parts := []string{fmt.Sprintf("%s %s", b.Name, b.Version)}
	if b.Commit != "unknown" {
		commit := b.Commit
		if b.Modified {
			commit += " (modified)"
		}
		parts = append(parts, "Commit: "+commit)
	}
	if !b.BuildTime.IsZero() {
		parts = append(parts, "Built: "+b.BuildTime.UTC().Format(time.RFC3339))
	}
	parts = append(parts,
		"Go: "+b.GoVersion,
		"Platform: "+b.Platform,
	)
	return strings.Join(parts, "\n")
}

// IsRelease reports whether the version is a tagged release.
func (b *BuildInfo) IsRelease() bool {
	return b.Version != "dev" && !strings.HasPrefix(b.Version, "dev-")
}

func parseTime(s string) time.Time {
	if s == "" || s == "unknown" {
		return time.Time{}
	}
	for _, layout := range []string{time.RFC3339, "2006-01-02T15:04:05", "2006-01-02 15:04:05"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return time.Time{}
}
