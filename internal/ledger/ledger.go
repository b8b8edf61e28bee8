package ledger

import (
	"context"
	"fmt"
	"iter"
	"log/slog"
	"sort"
	"sync"
	"time"

	"autotrans/internal/logging"
	"autotrans/internal/services"
)

// Medium loads and saves whole ledger snapshots.
type Medium interface {
	Load(ctx context.Context) ([]Record, error)
	Save(ctx context.Context, records []Record) error
	Close() error
}

// Ledger is the in-memory view of all item outcomes.
type Ledger struct {
	mu      sync.Mutex
	records map[int64]Record
	medium  Medium
	logger  *slog.Logger
}

// New loads the ledger from medium. A medium that fails to load yields an
// empty ledger; the failure is logged, never returned.
func New(ctx context.Context, medium Medium, logger *slog.Logger) *Ledger {
	l := &Ledger{
		records: make(map[int64]Record),
		medium:  medium,
		logger:  logging.NewComponentLogger(logger, "ledger"),
	}
	if medium == nil {
		return l
	}
	records, err := medium.Load(ctx)
	if err != nil {
		logging.WarnWithContext(l.logger, "ledger unreadable; starting empty", "ledger_load_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "previously recorded outcomes are ignored for this run"),
			logging.String(logging.FieldImpact, "items may be re-evaluated"),
		)
		return l
	}
	for _, rec := range records {
		l.records[rec.ItemID] = rec
	}
	l.logger.Debug("ledger loaded", logging.Int("records", len(l.records)))
	return l
}

// NewMemory returns a ledger that is never persisted.
func NewMemory(logger *slog.Logger) *Ledger {
	return New(context.Background(), nil, logger)
}

// Close releases the persistence medium.
func (l *Ledger) Close() error {
	if l == nil || l.medium == nil {
		return nil
	}
	return l.medium.Close()
}

// RecordComplete stores terminal success.
func (l *Ledger) RecordComplete(ctx context.Context, groupID, itemID int64) error {
	logging.WithContext(ctx, l.logger).Info("item complete",
		logging.Int64(logging.FieldItemID, itemID),
		logging.String(logging.FieldEventType, "ledger_complete"),
	)
	return l.put(ctx, Record{ItemID: itemID, GroupID: groupID})
}

// RecordBad stores a permanent rejection.
func (l *Ledger) RecordBad(ctx context.Context, groupID, itemID int64, reason string) error {
	logging.WithContext(ctx, l.logger).Debug(reason,
		logging.Int64(logging.FieldItemID, itemID),
		logging.String(logging.FieldEventType, "ledger_bad"),
	)
	return l.put(ctx, Record{ItemID: itemID, GroupID: groupID, Error: reason})
}

// RecordError stores an operational error; policy decides retry eligibility.
func (l *Ledger) RecordError(ctx context.Context, groupID, itemID int64, reason string, policy RetryPolicy) error {
	logging.ErrorWithContext(logging.WithContext(ctx, l.logger), reason, "ledger_error",
		logging.Int64(logging.FieldItemID, itemID),
		logging.String(logging.FieldErrorHint, "inspect the item and clear it with 'autotrans ledger clear' once fixed"),
	)
	if policy == nil {
		policy = AlwaysRetry{}
	}
	retry := policy.ShouldRetry(ctx, reason)
	return l.put(ctx, Record{ItemID: itemID, GroupID: groupID, Error: reason, RetryEligible: retry})
}

// RecordRetryLater stores a time-deferred item.
func (l *Ledger) RecordRetryLater(ctx context.Context, groupID, itemID int64, reason string, createdAt time.Time) error {
	logging.WithContext(ctx, l.logger).Debug(reason,
		logging.Int64(logging.FieldItemID, itemID),
		logging.String(logging.FieldEventType, "ledger_deferred"),
	)
	created := createdAt
	return l.put(ctx, Record{ItemID: itemID, GroupID: groupID, Error: reason, RetryEligible: true, CreatedAt: &created})
}

// Clear removes one record (when itemID is non-nil) and/or every record
// carrying an error.
func (l *Ledger) Clear(ctx context.Context, itemID *int64, clearErrors bool) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if clearErrors {
		for id, rec := range l.records {
			if !rec.Succeeded() {
				delete(l.records, id)
			}
		}
	}
	if itemID != nil {
		if _, ok := l.records[*itemID]; !ok {
			return services.Wrap(services.ErrNotFound, "ledger", "clear", fmt.Sprintf("no record for item %d", *itemID), nil)
		}
		delete(l.records, *itemID)
	}
	return l.saveLocked(ctx)
}

// IsDue reports whether the item should be attempted. Items without a record
// are always due.
func (l *Ledger) IsDue(itemID int64, cutoff *time.Time) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	rec, ok := l.records[itemID]
	if !ok {
		return true
	}
	return rec.Due(cutoff)
}

// DueItems yields every record that is due at iteration time. Records written
// while iterating are observed; items recorded before being reached are
// skipped if no longer due.
func (l *Ledger) DueItems(cutoff *time.Time) iter.Seq[Candidate] {
	return func(yield func(Candidate) bool) {
		for _, id := range l.ids() {
			l.mu.Lock()
			rec, ok := l.records[id]
			l.mu.Unlock()
			if !ok || !rec.Due(cutoff) {
				continue
			}
			if !yield(Candidate{GroupID: rec.GroupID, ItemID: id}) {
				return
			}
		}
	}
}

// Get returns the record for itemID.
func (l *Ledger) Get(itemID int64) (Record, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	rec, ok := l.records[itemID]
	return rec, ok
}

// Records returns every record ordered by item id.
func (l *Ledger) Records() []Record {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.snapshotLocked()
}

// Len returns the number of records.
func (l *Ledger) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.records)
}

func (l *Ledger) ids() []int64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	ids := make([]int64, 0, len(l.records))
	for id := range l.records {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

func (l *Ledger) put(ctx context.Context, rec Record) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.records[rec.ItemID] = rec
	return l.saveLocked(ctx)
}

func (l *Ledger) saveLocked(ctx context.Context) error {
	if l.medium == nil {
		return nil
	}
	if err := l.medium.Save(ctx, l.snapshotLocked()); err != nil {
		return services.Wrap(services.ErrAborted, "ledger", "save", "persist ledger snapshot", err)
	}
	return nil
}

func (l *Ledger) snapshotLocked() []Record {
	out := make([]Record, 0, len(l.records))
	for _, rec := range l.records {
		out = append(out, rec)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ItemID < out[j].ItemID })
	return out
}
