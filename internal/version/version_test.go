package version

import (
	"testing"

	"github.com/fatih/color"
)

func TestString(t *testing.T) {
	prev := color.NoColor
	color.NoColor = true
	t.Cleanup(func() { color.NoColor = prev })

	origVersion, origCommit, origDate := Version, GitCommit, BuildDate
	t.Cleanup(func() { Version, GitCommit, BuildDate = origVersion, origCommit, origDate })

	Version, GitCommit, BuildDate = "1.2.3", "", ""
	if got := String(); got != "retype 1.2.3" {
		t.Fatalf("String() = %q", got)
	}
	Version, GitCommit, BuildDate = "1.2.3-rc1", "abc123", "2024-01-15"
	if got := String(); got != "retype 1.2.3-rc1 (abc123) built 2024-01-15" {
		t.Fatalf("String() = %q", got)
	}
}

func TestColoredKeepsOddVersions(t *testing.T) {
	orig := Version
	t.Cleanup(func() { Version = orig })
	Version = "nightly"
	if got := Colored(); got != "nightly" {
		t.Fatalf("Colored() = %q", got)
	}
}
