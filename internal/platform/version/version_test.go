package version

import (
	"runtime"
	"testing"
)

func TestGet(t *testing.T) {
	info := Get()

	// Verify all fields are present
	if info.Version == "" {
		t.Error("Version should not be empty")
	}
	if info.Commit == "" {
		t.Error("Commit should not be empty")
	}
	if info.BuildTime == "" {
		t.Error("BuildTime should not be empty")
	}
	if info.GoVersion == "" {
		t.Error("GoVersion should not be empty")
	}

	// Verify GoVersion matches runtime
	if info.GoVersion != runtime.Version() {
		t.Errorf("GoVersion = %q, want %q", info.GoVersion, runtime.Version())
	}
}

func TestInfo_String(t *testing.T) {
	info := Info{Version: "v1.2.3", Commit: "abc", BuildTime: "2026-01-01", GoVersion: "go1.23"}

	want := "v1.2.3 (commit abc, built 2026-01-01, go1.23)"
	if got := info.String(); got != want {
		t.Errorf("String() = %q, want %q", got, want)
	}
}

func TestInfo_LogAttrs(t *testing.T) {
	attrs := Get().LogAttrs()
	if len(attrs)%2 != 0 {
		t.Fatalf("LogAttrs must return key/value pairs, got %d items", len(attrs))
	}
	if attrs[0] != "version" {
		t.Errorf("first key = %v, want version", attrs[0])
	}
}
