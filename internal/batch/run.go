package batch

import (
	"context"
	"fmt"
	"iter"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"autotrans/internal/catalog"
	"autotrans/internal/eligibility"
	"autotrans/internal/format"
	"autotrans/internal/logging"
	"autotrans/internal/services"
	"autotrans/internal/transcode"
)

// SeedingFeed is the crawl feed listing the account's seeded items.
const SeedingFeed = "seeding"

// Release is one prepared release awaiting execution.
type Release struct {
	Name        string
	URL         string
	Group       catalog.Group
	Item        catalog.Item
	DedupKey    string
	Description string
	Transcode   *transcode.Transcode
}

// Status is a prepared release's final state in a run.
type Status string

const (
	StatusPublished Status = "published"
	StatusFailed    Status = "failed"
	StatusDropped   Status = "dropped"
)

// Outcome reports what happened to one prepared release.
type Outcome struct {
	Name   string
	ItemID int64
	Status Status
	Reason string
}

// Summary describes a completed run.
type Summary struct {
	RunID      string
	Considered int
	Prepared   int
	Outcomes   []Outcome
}

// Count returns the number of outcomes with status s.
func (s *Summary) Count(status Status) int {
	n := 0
	for _, o := range s.Outcomes {
		if o.Status == status {
			n++
		}
	}
	return n
}

type runScope struct {
	criteria eligibility.Criteria
	size     int
}

// Run processes the seeding feed (after the ledger's due items), or only
// the given references when urls is non-empty. Explicit references ignore
// the media allow-set, the creation cutoff and the batch size. The returned
// error is non-nil only when the batch itself aborted.
func (c *Controller) Run(ctx context.Context, urls []string) (*Summary, error) {
	if c.client == nil {
		return nil, services.Wrap(services.ErrConfiguration, "batch", "run", "catalog client is not configured", nil)
	}
	summary := &Summary{RunID: uuid.NewString()}
	ctx = services.WithRunID(ctx, summary.RunID)
	logger := logging.WithContext(ctx, c.logger)

	scope, candidates, err := c.plan(urls)
	if err != nil {
		return summary, err
	}

	logger.Info("preparing and validating transcodes", logging.Int("batch_size", scope.size))
	var releases []*Release
	for ref, err := range candidates(ctx) {
		if err != nil {
			return summary, services.Wrap(services.ErrAborted, "batch", "candidates", "candidate feed failed", err)
		}
		if err := ctx.Err(); err != nil {
			return summary, err
		}
		if !c.ledger.IsDue(ref.ItemID, scope.criteria.Cutoff) {
			logger.Debug("ignored by ledger", logging.Int64(logging.FieldItemID, ref.ItemID))
			continue
		}
		summary.Considered++
		release, err := c.prepare(ctx, ref, scope.criteria)
		if err != nil {
			if services.IsBatchAbort(err) {
				return summary, err
			}
			logging.ErrorWithContext(logger, "unhandled error", "release_prepare_failed",
				logging.Int64(logging.FieldItemID, ref.ItemID),
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "inspect the item on the catalog"),
			)
			continue
		}
		if release == nil {
			continue
		}
		releases = append(releases, release)
		if scope.size > 0 {
			logger.Info(fmt.Sprintf("transcode %d/%d", c.claimed(), scope.size), logging.String("release", release.Name))
			if c.claimed() >= scope.size {
				break
			}
		} else {
			logger.Info(fmt.Sprintf("transcode #%d", c.claimed()), logging.String("release", release.Name))
		}
	}
	summary.Prepared = len(releases)

	releases, dropped, err := c.review(ctx, releases)
	if err != nil {
		return summary, err
	}
	summary.Outcomes = append(summary.Outcomes, dropped...)

	outcomes, err := c.publishAll(ctx, releases)
	summary.Outcomes = append(summary.Outcomes, outcomes...)
	if err != nil {
		return summary, err
	}
	logger.Info("batch completed",
		logging.Int("prepared", summary.Prepared),
		logging.Int("published", summary.Count(StatusPublished)),
		logging.Int("failed", summary.Count(StatusFailed)),
		logging.Int("dropped", summary.Count(StatusDropped)),
	)
	return summary, nil
}

func (c *Controller) plan(urls []string) (runScope, func(context.Context) iter.Seq2[catalog.Ref, error], error) {
	scope := runScope{
		criteria: eligibility.Criteria{Formats: c.cfg.TargetFormats(), Logger: c.logger},
	}
	if len(urls) > 0 {
		logging.WarnWithContext(c.logger, "transcode of specific releases: allowed media and cutoff ignored", "explicit_references",
			logging.Int("references", len(urls)),
			logging.String(logging.FieldImpact, "every media type is accepted and no batch size applies"),
		)
		scope.criteria.AllowedMedia = make(map[string]struct{})
		for _, label := range format.AllMediaLabels() {
			scope.criteria.AllowedMedia[label] = struct{}{}
		}
		refs := make([]catalog.Ref, 0, len(urls))
		for _, raw := range urls {
			ref, err := catalog.ParseURL(raw)
			if err != nil {
				return scope, nil, err
			}
			refs = append(refs, ref)
		}
		return scope, func(context.Context) iter.Seq2[catalog.Ref, error] { return refSeq(refs) }, nil
	}

	scope.criteria.AllowedMedia = c.cfg.AllowedMedia()
	if len(scope.criteria.AllowedMedia) == 0 {
		return scope, nil, services.Wrap(services.ErrConfiguration, "batch", "run", "no media allowed, cannot continue", nil)
	}
	scope.criteria.Cutoff = c.cfg.CreatedCutoff(c.now())
	scope.size = c.cfg.Batch.Size
	return scope, func(ctx context.Context) iter.Seq2[catalog.Ref, error] {
		c.logger.Info("searching for transcode candidates in seeding items")
		return chain(c.dueRefs(scope.criteria.Cutoff), c.client.CrawlFeed(ctx, SeedingFeed))
	}, nil
}

func (c *Controller) dueRefs(cutoff *time.Time) iter.Seq2[catalog.Ref, error] {
	return func(yield func(catalog.Ref, error) bool) {
		for candidate := range c.ledger.DueItems(cutoff) {
			if !yield(catalog.Ref{GroupID: candidate.GroupID, ItemID: candidate.ItemID}, nil) {
				return
			}
		}
	}
}

func refSeq(refs []catalog.Ref) iter.Seq2[catalog.Ref, error] {
	return func(yield func(catalog.Ref, error) bool) {
		for _, ref := range refs {
			if !yield(ref, nil) {
				return
			}
		}
	}
}

func chain(seqs ...iter.Seq2[catalog.Ref, error]) iter.Seq2[catalog.Ref, error] {
	return func(yield func(catalog.Ref, error) bool) {
		for _, seq := range seqs {
			for ref, err := range seq {
				if !yield(ref, err) {
					return
				}
			}
		}
	}
}

// publishAll executes and publishes releases, sequentially or concurrently
// per configuration.
func (c *Controller) publishAll(ctx context.Context, releases []*Release) ([]Outcome, error) {
	c.logger.Info("transcoding", logging.Int("releases", len(releases)))
	outcomes := make([]Outcome, len(releases))
	if !c.cfg.Batch.Concurrent {
		for i, release := range releases {
			outcome, err := c.publish(ctx, release)
			outcomes[i] = outcome
			if err != nil {
				return compact(outcomes), err
			}
		}
		return outcomes, nil
	}

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.engine.Workers())
	for i, release := range releases {
		g.Go(func() error {
			outcome, err := c.publish(gctx, release)
			mu.Lock()
			outcomes[i] = outcome
			mu.Unlock()
			return err
		})
	}
	err := g.Wait()
	return compact(outcomes), err
}

func compact(outcomes []Outcome) []Outcome {
	return slices.DeleteFunc(outcomes, func(o Outcome) bool { return o.Status == "" })
}
