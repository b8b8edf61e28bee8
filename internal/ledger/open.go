package ledger

import (
	"context"
	"log/slog"
)

// Open loads the SQLite-backed ledger at path.
func Open(ctx context.Context, path string, logger *slog.Logger) (*Ledger, error) {
	medium, err := OpenSQLite(ctx, path, logger)
	if err != nil {
		return nil, err
	}
	return New(ctx, medium, logger), nil
}
