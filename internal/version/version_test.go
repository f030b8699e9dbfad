package version

import (
	"runtime/debug"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func withBuild(t *testing.T, version, commit, built string, bi *debug.BuildInfo) {
	t.Helper()
	oldV, oldC, oldT, oldRead := Version, Commit, BuildTime, readBuildInfo
	t.Cleanup(func() {
		Version, Commit, BuildTime, readBuildInfo = oldV, oldC, oldT, oldRead
	})
	Version, Commit, BuildTime = version, commit, built
	readBuildInfo = func() (*debug.BuildInfo, bool) { return bi, bi != nil }
}

func TestGetLinkerValues(t *testing.T) {
	withBuild(t, "v1.4.0", "0123456789abcdef", "2026-03-01T12:00:00Z", nil)

	info := Get()
	assert.Equal(t, Name, info.Name)
	assert.Equal(t, "v1.4.0", info.Version)
	assert.Equal(t, "v1.4.0 (0123456)", info.Short())
	assert.True(t, info.IsRelease())
	assert.Equal(t, time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC), info.BuildTime)
	assert.Contains(t, info.Detailed(), "Commit: 0123456789abcdef")
	assert.Contains(t, info.Detailed(), "Built: 2026-03-01T12:00:00Z")
}

func TestGetFallsBackToVCS(t *testing.T) {
	withBuild(t, "dev", "unknown", "unknown", &debug.BuildInfo{
		Main: debug.Module{Version: "(devel)"},
		Settings: []debug.BuildSetting{
			{Key: "vcs.revision", Value: "fedcba9876543210"},
			{Key: "vcs.time", Value: "2026-02-10T08:30:00Z"},
			{Key: "vcs.modified", Value: "true"},
		},
	})

	info := Get()
	assert.Equal(t, "dev-fedcba9", info.Version)
	assert.Equal(t, "fedcba9876543210", info.Commit)
	assert.True(t, info.Modified)
	assert.False(t, info.IsRelease())
	assert.Equal(t, "dev-fedcba9", info.Short())
	assert.Contains(t, info.Detailed(), "(modified)")
}

func TestGetWithoutBuildInfo(t *testing.T) {
	withBuild(t, "dev", "unknown", "unknown", nil)

	info := Get()
	assert.Equal(t, "dev", info.Version)
	assert.Equal(t, "dev", info.Short())
	assert.True(t, info.BuildTime.IsZero())
	assert.NotContains(t, info.Detailed(), "Commit:")
}

func TestParseTime(t *testing.T) {
	assert.True(t, parseTime("").IsZero())
	assert.True(t, parseTime("garbage").IsZero())
	assert.Equal(t, 2026, parseTime("2026-01-02 03:04:05").Year())
}
