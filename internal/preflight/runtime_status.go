package preflight

import (
	"context"
	"fmt"
	"strings"

	"autotrans/internal/config"
	"autotrans/internal/ledger"
)

// CheckCatalogFromConfig evaluates catalog status from config and connectivity.
func CheckCatalogFromConfig(ctx context.Context, cfg *config.Config) Result {
	const name = "Catalog"

	if cfg == nil {
		return Result{Name: name, Detail: "Unknown"}
	}
	if strings.TrimSpace(cfg.Catalog.Endpoint) == "" {
		return Result{Name: name, Passed: true, Detail: "Not configured (local mode only)"}
	}
	if strings.TrimSpace(cfg.Catalog.APIKey) == "" {
		return Result{Name: name, Detail: "Missing API key"}
	}
	return CheckCatalog(ctx, cfg.Catalog.Endpoint, cfg.Catalog.APIKey)
}

// LedgerSnapshot counts ledger records by state.
type LedgerSnapshot struct {
	Complete  int
	Bad       int
	Retryable int
	Deferred  int
}

// Total returns the number of recorded items.
func (s LedgerSnapshot) Total() int {
	return s.Complete + s.Bad + s.Retryable + s.Deferred
}

// SnapshotLedger tallies the records held by l.
func SnapshotLedger(l *ledger.Ledger) LedgerSnapshot {
	var snap LedgerSnapshot
	if l == nil {
		return snap
	}
	for _, rec := range l.Records() {
		switch rec.Status() {
		case "complete":
			snap.Complete++
		case "bad":
			snap.Bad++
		case "deferred":
			snap.Deferred++
		default:
			snap.Retryable++
		}
	}
	return snap
}

// Detail renders a display-friendly summary for status output.
func (s LedgerSnapshot) Detail() string {
	if s.Total() == 0 {
		return "No items recorded"
	}
	return fmt.Sprintf("%d items (%d complete, %d bad, %d retryable, %d deferred)",
		s.Total(), s.Complete, s.Bad, s.Retryable, s.Deferred)
}
