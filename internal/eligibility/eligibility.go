// Package eligibility decides whether a fetched catalog item is processed,
// permanently rejected, deferred, or needs no work. Rules are evaluated in
// a fixed priority order; the first match wins.
package eligibility

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"autotrans/internal/catalog"
	"autotrans/internal/format"
)

// MinLogScore is the lowest accepted rip log score.
const MinLogScore = 100

// Kind enumerates decision outcomes.
type Kind int

const (
	// Eligible items are prepared with Decision.Formats.
	Eligible Kind = iota
	// Reject is a permanent rejection.
	Reject
	// Defer postpones the item until the cutoff passes Decision.CreatedAt.
	Defer
	// Done means every wanted format already exists.
	Done
)

func (k Kind) String() string {
	switch k {
	case Eligible:
		return "eligible"
	case Reject:
		return "reject"
	case Defer:
		return "defer"
	case Done:
		return "done"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Decision is the filter's verdict for one item.
type Decision struct {
	Kind      Kind
	Reason    string
	CreatedAt *time.Time
	Source    format.Format
	Formats   format.Set
}

// Criteria carries the run-level filter settings.
type Criteria struct {
	// AllowedMedia holds catalog media labels; nil or empty allows none.
	AllowedMedia map[string]struct{}
	// Cutoff gates items created at or after it; nil disables gating.
	Cutoff *time.Time
	// Formats are the wanted output formats.
	Formats format.Set
	Logger  *slog.Logger
}

// Evaluate applies the filter rules to an item. name labels the item in
// decision reasons.
func Evaluate(release catalog.Release, name string, c Criteria) Decision {
	item := release.Item

	if item.RemasterYear != nil && *item.RemasterYear == 0 {
		return reject("item is unknown release: " + name)
	}
	if item.LossyMasterApproved || item.LossyWebApproved {
		return reject("item is lossy master: " + name)
	}
	source, err := format.FromEncoding(item.Encoding)
	if err != nil || !source.Lossless {
		return reject("item is not lossless: " + name)
	}
	if item.Reported || item.Trumpable {
		return reject("item is reported or trumpable: " + name)
	}
	if !mediaAllowed(item.Media, c.AllowedMedia) {
		return reject(fmt.Sprintf("item has disallowed media (%s): %s", item.Media, name))
	}
	if item.HasLog && item.LogScore < MinLogScore {
		return reject("item has bad log: " + name)
	}
	if c.Cutoff != nil {
		if created, ok := item.CreatedAt(); ok && !created.Before(*c.Cutoff) {
			return Decision{
				Kind:      Defer,
				Reason:    fmt.Sprintf("item is too recent (%s): %s", created.Format(time.RFC3339), name),
				CreatedAt: &created,
				Source:    source,
			}
		}
	}

	needed := catalog.PossibleFormats(release.Group, item, release.Siblings, c.Formats, c.Logger)
	if len(needed) == 0 {
		return Decision{Kind: Done, Reason: "no formats needed: " + name, Source: source}
	}
	return Decision{Kind: Eligible, Source: source, Formats: needed}
}

func reject(reason string) Decision {
	return Decision{Kind: Reject, Reason: reason}
}

func mediaAllowed(media string, allowed map[string]struct{}) bool {
	for label := range allowed {
		if strings.EqualFold(label, media) {
			return true
		}
	}
	return false
}
