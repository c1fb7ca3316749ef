package version

import "testing"

func TestString(t *testing.T) {
	oldV, oldSHA, oldBuilt := Version, GitSHA, BuildTime
	t.Cleanup(func() { Version, GitSHA, BuildTime = oldV, oldSHA, oldBuilt })

	if got, want := String(), "ride-replay dev (unknown, built unknown)"; got != want {
		t.Errorf("String() = %q, want %q", got, want)
	}

	Version, GitSHA, BuildTime = "v0.3.1", "4f1c2d9e8a7b", "2026-10-01T12:00:00Z"
	if got, want := String(), "ride-replay v0.3.1 (4f1c2d9, built 2026-10-01T12:00:00Z)"; got != want {
		t.Errorf("String() = %q, want %q", got, want)
	}
}
