package ledger

import (
	"fmt"
	"time"
)

// Record is the stored outcome for one catalog item.
type Record struct {
	ItemID  int64
	GroupID int64
	// Error is empty for terminal success.
	Error         string
	RetryEligible bool
	// CreatedAt is set only for time-deferred items.
	CreatedAt *time.Time
}

// Succeeded reports terminal success.
func (r Record) Succeeded() bool { return r.Error == "" }

// Status renders the record state for operator output.
func (r Record) Status() string {
	switch {
	case r.Succeeded():
		return "complete"
	case !r.RetryEligible:
		return "bad"
	case r.CreatedAt != nil:
		return "deferred"
	default:
		return "retryable"
	}
}

// Due reports whether the item should be attempted again. A nil cutoff
// disables time gating.
func (r Record) Due(cutoff *time.Time) bool {
	if r.Succeeded() || !r.RetryEligible {
		return false
	}
	return r.CreatedAt == nil || cutoff == nil || r.CreatedAt.Before(*cutoff)
}

func (r Record) String() string {
	created := "-"
	if r.CreatedAt != nil {
		created = r.CreatedAt.UTC().Format(time.RFC3339)
	}
	return fmt.Sprintf("group=%d status=%s retry=%t created=%s error=%q", r.GroupID, r.Status(), r.RetryEligible, created, r.Error)
}

// Candidate identifies an item to consider for processing. GroupID is zero
// when the parent group is not yet known.
type Candidate struct {
	GroupID int64
	ItemID  int64
}
