package preflight

import (
	"context"
	"path/filepath"

	"autotrans/internal/config"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name   string
	Passed bool
	Detail string
}

// RunAll executes all applicable preflight checks for the given config.
// Optional directories are only checked when configured.
func RunAll(ctx context.Context, cfg *config.Config) []Result {
	if cfg == nil {
		return nil
	}

	var results []Result

	// Input and output trees (always checked)
	results = append(results,
		CheckDirectoryAccess("Input directory", cfg.Paths.InputDir),
		CheckDirectoryAccess("Output directory", cfg.Paths.OutputDir),
		CheckDirectoryAccess("Ledger directory", filepath.Dir(cfg.Paths.LedgerPath)),
	)

	if cfg.Paths.BundleDir != "" {
		results = append(results, CheckDirectoryAccess("Bundle directory", cfg.Paths.BundleDir))
	}
	if cfg.Paths.SpectrogramDir != "" {
		results = append(results, CheckDirectoryAccess("Spectrogram directory", cfg.Paths.SpectrogramDir))
	}

	results = append(results, CheckLedgerLock(cfg.Paths.LedgerPath))

	// Catalog (only when online modes are configured)
	if cfg.Catalog.Endpoint != "" {
		results = append(results, CheckCatalog(ctx, cfg.Catalog.Endpoint, cfg.Catalog.APIKey))
	}

	return results
}
