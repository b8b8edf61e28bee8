package main

import (
	"testing"
)

func TestStatusCommand(t *testing.T) {
	env := setupCLITestEnv(t)
	seedLedger(t, env.cfg)

	out, _, err := runCLI(t, []string{"status"}, env.configPath)
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	requireContains(t, out, "Input directory")
	requireContains(t, out, "Transcoder")
	requireContains(t, out, "Not configured (local mode only)")
	requireContains(t, out, "4 items (1 complete, 1 bad, 1 retryable, 1 deferred)")
	requireNotContains(t, out, "required tools missing")
}

func TestLocalRejectsUnknownFormat(t *testing.T) {
	env := setupCLITestEnv(t)

	if _, _, err := runCLI(t, []string{"local", "in", "out", "--format", "OGG_Q5"}, env.configPath); err == nil {
		t.Fatal("expected unknown format to fail")
	}
	if _, _, err := runCLI(t, []string{"local", "only-one"}, env.configPath); err == nil {
		t.Fatal("expected missing output argument to fail")
	}
}

func TestDownloadRequiresList(t *testing.T) {
	env := setupCLITestEnv(t)

	if _, _, err := runCLI(t, []string{"download"}, env.configPath); err == nil {
		t.Fatal("expected missing file argument to fail")
	}
	_, _, err := runCLI(t, []string{"download", "list.txt"}, env.configPath)
	if err == nil {
		t.Fatal("expected download without catalog to fail")
	}
	requireContains(t, err.Error(), "catalog.endpoint")
}
