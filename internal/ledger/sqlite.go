package ledger

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"autotrans/internal/logging"
)

//go:embed schema.sql
var schemaSQL string

// schemaVersion is the current schema version. A file with another version
// is treated as unreadable and moved aside.
const schemaVersion = 1

// ErrSchemaMismatch indicates the ledger file was written by an incompatible version.
var ErrSchemaMismatch = errors.New("schema version mismatch")

const (
	sqliteBusyCode          = 5
	busyRetryAttempts       = 5
	busyRetryInitialBackoff = 10 * time.Millisecond
	busyRetryMaxBackoff     = 200 * time.Millisecond
)

// SQLiteMedium stores ledger snapshots in a SQLite file.
type SQLiteMedium struct {
	db   *sql.DB
	path string
}

// OpenSQLite opens (or creates) the ledger database at path. A file that
// cannot be opened as a ledger is renamed with a ".corrupt" suffix and a
// fresh database is created in its place.
func OpenSQLite(ctx context.Context, path string, logger *slog.Logger) (*SQLiteMedium, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("ensure ledger directory: %w", err)
	}
	medium, err := openSQLite(ctx, path)
	if err == nil {
		return medium, nil
	}

	aside := path + ".corrupt"
	logging.WarnWithContext(logging.NewComponentLogger(logger, "ledger"), "ledger store unreadable; moving aside", "ledger_corrupt",
		logging.String("path", path),
		logging.String("moved_to", aside),
		logging.Error(err),
		logging.String(logging.FieldErrorHint, "inspect the moved file if outcomes must be recovered"),
		logging.String(logging.FieldImpact, "ledger starts empty"),
	)
	if renameErr := os.Rename(path, aside); renameErr != nil && !errors.Is(renameErr, os.ErrNotExist) {
		return nil, fmt.Errorf("move corrupt ledger aside: %w", renameErr)
	}
	for _, suffix := range []string{"-wal", "-shm"} {
		_ = os.Remove(path + suffix)
	}
	return openSQLite(ctx, path)
}

func openSQLite(ctx context.Context, path string) (*SQLiteMedium, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.ExecContext(ctx, pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	medium := &SQLiteMedium{db: db, path: path}
	if err := medium.initSchema(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return medium, nil
}

// Path returns the database file location.
func (m *SQLiteMedium) Path() string { return m.path }

// Close closes the underlying database connection.
func (m *SQLiteMedium) Close() error {
	if m == nil || m.db == nil {
		return nil
	}
	return m.db.Close()
}

func (m *SQLiteMedium) initSchema(ctx context.Context) error {
	var tableExists int
	err := m.db.QueryRowContext(ctx,
		"SELECT COUNT(1) FROM sqlite_master WHERE type='table' AND name='schema_version'",
	).Scan(&tableExists)
	if err != nil {
		return fmt.Errorf("check schema_version table: %w", err)
	}

	if tableExists == 0 {
		return m.createSchema(ctx)
	}

	var version int
	if err := m.db.QueryRowContext(ctx, "SELECT version FROM schema_version LIMIT 1").Scan(&version); err != nil {
		return fmt.Errorf("read schema version: %w", err)
	}
	if version != schemaVersion {
		return fmt.Errorf("%w: ledger has version %d, expected %d", ErrSchemaMismatch, version, schemaVersion)
	}
	return nil
}

func (m *SQLiteMedium) createSchema(ctx context.Context) error {
	tx, err := m.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin schema tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, schemaSQL); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	if _, err := tx.ExecContext(ctx, "INSERT INTO schema_version (version) VALUES (?)", schemaVersion); err != nil {
		return fmt.Errorf("record schema version: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit schema: %w", err)
	}
	return nil
}

// Load reads every stored record.
func (m *SQLiteMedium) Load(ctx context.Context) ([]Record, error) {
	ctx = ensureContext(ctx)
	rows, err := m.db.QueryContext(ctx, "SELECT item_id, group_id, error, retry_eligible, created_at FROM records ORDER BY item_id")
	if err != nil {
		return nil, fmt.Errorf("query records: %w", err)
	}
	defer rows.Close()

	var records []Record
	for rows.Next() {
		var (
			rec       Record
			errText   sql.NullString
			retry     int
			createdAt sql.NullString
		)
		if err := rows.Scan(&rec.ItemID, &rec.GroupID, &errText, &retry, &createdAt); err != nil {
			return nil, fmt.Errorf("scan record: %w", err)
		}
		rec.Error = errText.String
		rec.RetryEligible = retry != 0
		if createdAt.Valid && strings.TrimSpace(createdAt.String) != "" {
			ts, err := time.Parse(time.RFC3339Nano, createdAt.String)
			if err != nil {
				return nil, fmt.Errorf("parse created_at for item %d: %w", rec.ItemID, err)
			}
			rec.CreatedAt = &ts
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate records: %w", err)
	}
	return records, nil
}

// Save replaces the stored snapshot in a single transaction.
func (m *SQLiteMedium) Save(ctx context.Context, records []Record) error {
	ctx = ensureContext(ctx)
	return retryOnBusy(ctx, func() error {
		return m.saveOnce(ctx, records)
	})
}

func (m *SQLiteMedium) saveOnce(ctx context.Context, records []Record) error {
	tx, err := m.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin snapshot tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, "DELETE FROM records"); err != nil {
		return fmt.Errorf("clear records: %w", err)
	}
	stmt, err := tx.PrepareContext(ctx, "INSERT INTO records (item_id, group_id, error, retry_eligible, created_at) VALUES (?, ?, ?, ?, ?)")
	if err != nil {
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	for _, rec := range records {
		var errText, createdAt sql.NullString
		if rec.Error != "" {
			errText = sql.NullString{String: rec.Error, Valid: true}
		}
		if rec.CreatedAt != nil {
			createdAt = sql.NullString{String: rec.CreatedAt.UTC().Format(time.RFC3339Nano), Valid: true}
		}
		retry := 0
		if rec.RetryEligible {
			retry = 1
		}
		if _, err := stmt.ExecContext(ctx, rec.ItemID, rec.GroupID, errText, retry, createdAt); err != nil {
			return fmt.Errorf("insert record %d: %w", rec.ItemID, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit snapshot: %w", err)
	}
	return nil
}

func ensureContext(ctx context.Context) context.Context {
	if ctx != nil {
		return ctx
	}
	return context.Background()
}

func isSQLiteBusy(err error) bool {
	if err == nil {
		return false
	}
	var coder interface{ Code() int }
	if errors.As(err, &coder) && coder.Code() == sqliteBusyCode {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "SQLITE_BUSY") || strings.Contains(msg, "database is locked")
}

func retryOnBusy(ctx context.Context, op func() error) error {
	delay := busyRetryInitialBackoff
	var lastErr error
	for attempt := 0; attempt < busyRetryAttempts; attempt++ {
		lastErr = op()
		if lastErr == nil {
			return nil
		}
		if !isSQLiteBusy(lastErr) || attempt == busyRetryAttempts-1 {
			break
		}
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return ctx.Err()
		}
		if next := delay * 2; next <= busyRetryMaxBackoff {
			delay = next
		}
	}
	return lastErr
}
