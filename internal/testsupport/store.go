package testsupport

import (
	"context"
	"testing"
	"time"

	"autotrans/internal/config"
	"autotrans/internal/ledger"
)

// MustOpenLedger opens the SQLite ledger at cfg's ledger path for tests and
// registers cleanup.
func MustOpenLedger(t testing.TB, cfg *config.Config) *ledger.Ledger {
	t.Helper()

	l, err := ledger.Open(context.Background(), cfg.Paths.LedgerPath, nil)
	if err != nil {
		t.Fatalf("ledger.Open: %v", err)
	}
	t.Cleanup(func() {
		l.Close()
	})
	return l
}

// SeedLedger records one outcome of every kind: item 1 complete, item 2
// bad, item 3 retryable and item 4 deferred.
func SeedLedger(t testing.TB, l *ledger.Ledger) {
	t.Helper()

	ctx := context.Background()
	if err := l.RecordComplete(ctx, 10, 1); err != nil {
		t.Fatalf("RecordComplete: %v", err)
	}
	if err := l.RecordBad(ctx, 20, 2, "item is not lossless"); err != nil {
		t.Fatalf("RecordBad: %v", err)
	}
	if err := l.RecordError(ctx, 30, 3, "transcode failed", ledger.AlwaysRetry{}); err != nil {
		t.Fatalf("RecordError: %v", err)
	}
	created := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	if err := l.RecordRetryLater(ctx, 40, 4, "item is too recent", created); err != nil {
		t.Fatalf("RecordRetryLater: %v", err)
	}
}
