package version

import (
	"runtime"
	"strings"
	"testing"
)

func TestString(t *testing.T) {
	origVersion, origCommit, origTime := Version, Commit, BuildTime
	t.Cleanup(func() { Version, Commit, BuildTime = origVersion, origCommit, origTime })

	Version = "1.2.3"
	Commit = "abc1234"
	BuildTime = "2026-01-02T03:04:05Z"

	got := String()
	want := "1.2.3 (abc1234) built 2026-01-02T03:04:05Z with " + runtime.Version()
	if got != want {
		t.Errorf("String() = %q, want %q", got, want)
	}
}

func TestGetDefaults(t *testing.T) {
	info := Get()
	if info.Version == "" {
		t.Error("Version is empty")
	}
	if !strings.HasPrefix(info.GoVersion, "go") && !strings.HasPrefix(info.GoVersion, "devel") {
		t.Errorf("GoVersion = %q, want a Go toolchain version", info.GoVersion)
	}
}

func TestShortRevision(t *testing.T) {
	if got := shortRevision("0123456789abcdef"); got != "0123456" {
		t.Errorf("shortRevision() = %q, want %q", got, "0123456")
	}
	if got := shortRevision("abc"); got != "abc" {
		t.Errorf("shortRevision() = %q, want %q", got, "abc")
	}
}
