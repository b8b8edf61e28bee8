package deps

import (
	"os"
	"path/filepath"
	"testing"
)

func writeStub(t *testing.T, dir, name string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte("#!/bin/sh\nexit 0\n"), 0o755); err != nil {
		t.Fatalf("write stub: %v", err)
	}
	return path
}

func TestCheckBinariesResolvesPath(t *testing.T) {
	binDir := t.TempDir()
	flac := writeStub(t, binDir, "flac")
	t.Setenv("PATH", binDir)

	results := CheckBinaries([]Requirement{
		{Name: "flac", Command: "flac"},
		{Name: "SoX", Command: "sox-not-installed", Optional: true},
	})
	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}
	if !results[0].Available || results[0].Path != flac || results[0].Detail != "" {
		t.Fatalf("unexpected flac status %#v", results[0])
	}
	if results[1].Available || results[1].Detail != `binary "sox-not-installed" not found` {
		t.Fatalf("unexpected sox status %#v", results[1])
	}
	if !results[1].Optional || results[1].Name != "SoX" {
		t.Fatalf("requirement fields not carried: %#v", results[1])
	}
}

func TestCheckBinariesAbsoluteCommand(t *testing.T) {
	stub := writeStub(t, t.TempDir(), "transcoder")
	results := CheckBinaries([]Requirement{{Name: "Transcoder", Command: " " + stub + " "}})
	if !results[0].Available || results[0].Command != stub {
		t.Fatalf("unexpected status %#v", results[0])
	}
}

func TestCheckBinariesUnconfigured(t *testing.T) {
	results := CheckBinaries([]Requirement{{Name: "Transcoder", Command: "  "}})
	if results[0].Available || results[0].Detail != "command not configured" {
		t.Fatalf("unexpected status %#v", results[0])
	}
}

func TestMissingSkipsOptional(t *testing.T) {
	statuses := []Status{
		{Requirement: Requirement{Name: "flac"}, Available: true},
		{Requirement: Requirement{Name: "sox", Optional: true}},
		{Requirement: Requirement{Name: "bundle"}},
	}
	missing := Missing(statuses)
	if len(missing) != 1 || missing[0].Name != "bundle" {
		t.Fatalf("unexpected missing set %#v", missing)
	}
}
