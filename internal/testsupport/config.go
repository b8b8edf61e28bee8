package testsupport

import (
	"os"
	"path/filepath"
	"testing"

	"autotrans/internal/config"
)

// ConfigOption adjusts a config produced by NewConfig.
type ConfigOption func(t testing.TB, base string, cfg *config.Config)

// NewConfig returns a config whose directories all live under one temp dir
// and whose catalog points at a placeholder endpoint.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfg := config.Default()
	cfg.Catalog.Endpoint = "https://catalog.test"
	cfg.Catalog.APIKey = "test"
	cfg.Transcode.Transcoder = "transcoder"
	cfg.Paths.InputDir = filepath.Join(base, "input")
	cfg.Paths.OutputDir = filepath.Join(base, "output")
	cfg.Paths.BundleDir = filepath.Join(base, "bundles")
	cfg.Paths.LogDir = filepath.Join(base, "logs")
	cfg.Paths.LedgerPath = filepath.Join(cfg.Paths.LogDir, "ledger.db")

	for _, opt := range opts {
		opt(t, base, &cfg)
	}
	return &cfg
}

// WithAPIKey sets the catalog API key.
func WithAPIKey(key string) ConfigOption {
	return func(_ testing.TB, _ string, cfg *config.Config) {
		cfg.Catalog.APIKey = key
	}
}

// WithSpectrograms enables spectrogram rendering into a temp directory.
func WithSpectrograms() ConfigOption {
	return func(_ testing.TB, base string, cfg *config.Config) {
		cfg.Paths.SpectrogramDir = filepath.Join(base, "spectrograms")
	}
}

// WithStubbedBinaries installs succeeding shell stubs for every external
// program the config names and puts them first on PATH for the rest of the
// test. Extra names are stubbed as well.
func WithStubbedBinaries(extra ...string) ConfigOption {
	return func(t testing.TB, base string, cfg *config.Config) {
		t.Helper()
		binDir := filepath.Join(base, "bin")
		if err := os.MkdirAll(binDir, 0o755); err != nil {
			t.Fatalf("mkdir bin dir: %v", err)
		}
		tc := cfg.Transcode
		names := append([]string{
			tc.Transcoder, tc.FlacBinary, tc.SoxBinary, tc.FFprobeBinary,
			tc.MetaflacBinary, tc.FFmpegBinary, tc.BundleTool,
		}, extra...)
		for _, name := range names {
			if name == "" || filepath.IsAbs(name) {
				continue
			}
			stub := filepath.Join(binDir, name)
			if err := os.WriteFile(stub, []byte("#!/bin/sh\nexit 0\n"), 0o755); err != nil {
				t.Fatalf("write stub %s: %v", name, err)
			}
		}
		t.Setenv("PATH", binDir+string(os.PathListSeparator)+os.Getenv("PATH"))
	}
}

// BaseDir returns the temp directory backing cfg.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(cfg.Paths.InputDir)
}
