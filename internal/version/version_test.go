package version

import (
	"strings"
	"testing"

	"github.com/fatih/color"
)

func TestColoredWithoutColorMatchesVersion(t *testing.T) {
	prev := color.NoColor
	color.NoColor = true
	defer func() { color.NoColor = prev }()

	if got := Colored(); got != Version {
		t.Fatalf("Colored() = %q, want %q", got, Version)
	}
}

func TestDescribeIncludesBuildInfo(t *testing.T) {
	prev := color.NoColor
	color.NoColor = true
	origCommit, origDate := GitCommit, BuildDate
	defer func() {
		color.NoColor = prev
		GitCommit, BuildDate = origCommit, origDate
	}()

	GitCommit = "abc123"
	BuildDate = "2024-01-15T10:30:00Z"
	got := Describe()
	for _, want := range []string{"qlower " + Version, "(abc123)", "built 2024-01-15T10:30:00Z"} {
		if !strings.Contains(got, want) {
			t.Errorf("Describe() = %q, missing %q", got, want)
		}
	}
}
