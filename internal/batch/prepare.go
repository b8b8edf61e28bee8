package batch

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"autotrans/internal/catalog"
	"autotrans/internal/eligibility"
	"autotrans/internal/format"
	"autotrans/internal/ledger"
	"autotrans/internal/logging"
	"autotrans/internal/naming"
	"autotrans/internal/services"
	"autotrans/internal/transcode"
)

// prepare turns one candidate into a prepared release. A nil release with a
// nil error means the candidate was settled (recorded in the ledger or
// skipped as a duplicate).
func (c *Controller) prepare(ctx context.Context, ref catalog.Ref, criteria eligibility.Criteria) (*Release, error) {
	ctx = services.WithItemID(ctx, ref.ItemID)
	fetched, err := c.client.FetchRelease(ctx, ref.GroupID, ref.ItemID)
	if err != nil {
		if services.IsBatchAbort(err) {
			return nil, err
		}
		return nil, c.ledger.RecordError(ctx, ref.GroupID, ref.ItemID, fmt.Sprintf("invalid item: %v", err), ledger.NeverRetry{})
	}

	groupID := fetched.Group.ID
	if groupID == 0 {
		groupID = ref.GroupID
	}
	ctx = services.WithGroupID(ctx, groupID)
	key := catalog.DedupKey(groupID, fetched.Item)
	if !c.claim(key) {
		c.logger.Debug("equivalent release already in progress",
			logging.Int64(logging.FieldItemID, ref.ItemID),
			logging.String("dedup_key", key),
		)
		return nil, nil
	}

	release, err := c.build(ctx, groupID, fetched, key, criteria)
	if release == nil {
		c.unclaim(key)
	}
	return release, err
}

func (c *Controller) build(ctx context.Context, groupID int64, fetched *catalog.Release, key string, criteria eligibility.Criteria) (*Release, error) {
	item := fetched.Item
	url := c.client.URL(groupID, item.ID)
	rel := &Release{
		Name:     catalog.Describe(fetched.Group, item, url),
		URL:      url,
		Group:    fetched.Group,
		Item:     item,
		DedupKey: key,
	}
	rel.Group.ID = groupID
	logger := logging.WithContext(ctx, c.logger)

	decision := eligibility.Evaluate(*fetched, rel.Name, criteria)
	logger.Debug("eligibility decision", logging.Args(logging.DecisionAttrs("eligibility", decision.Kind.String(), decision.Reason)...)...)
	switch decision.Kind {
	case eligibility.Reject:
		return nil, c.ledger.RecordBad(ctx, groupID, item.ID, decision.Reason)
	case eligibility.Defer:
		return nil, c.ledger.RecordRetryLater(ctx, groupID, item.ID, decision.Reason, *decision.CreatedAt)
	case eligibility.Done:
		return nil, c.ledger.RecordComplete(ctx, groupID, item.ID)
	}

	sourceDir := filepath.Join(c.cfg.Paths.InputDir, item.FilePath)
	if info, err := os.Stat(sourceDir); err != nil || !info.IsDir() {
		return nil, c.recordError(ctx, rel, fmt.Sprintf("source folder does not exist (%s): %s", sourceDir, rel.Name))
	}

	logger.Info("preparing", logging.String("release", rel.Name))
	formats := format.NewSet(decision.Formats.Sorted()...)
	tc, err := c.engine.Discover(ctx, sourceDir)
	if err == nil {
		err = c.resolve(ctx, tc, rel, formats)
	}
	if err != nil {
		return nil, c.constructionFailed(ctx, rel, "failed to prepare transcode", err)
	}

	if tc.Global == transcode.Keep {
		if decision.Source == format.FLAC24 {
			return nil, c.recordError(ctx, rel, "item is supposed to be 24-bit but no resample needed: "+rel.Name)
		}
	} else if decision.Source != format.FLAC24 && !formats.Has(format.FLAC16) {
		logging.WarnWithContext(logger, "source files are actually 24-bit", "source_hires",
			logging.String("release", rel.Name),
			logging.String(logging.FieldImpact, "a 16-bit FLAC output is added"),
		)
		formats.Add(format.FLAC16)
		if err := c.resolve(ctx, tc, rel, formats); err != nil {
			return nil, c.constructionFailed(ctx, rel, "failed to prepare transcode after adding FLAC transcode", err)
		}
	}
	if tc.Global == transcode.Mixed {
		logging.WarnWithContext(logger, "source files have inconsistent sample rates", "source_mixed_rates",
			logging.String("release", rel.Name),
			logging.String(logging.FieldImpact, "each track is resampled on its own"),
		)
	}
	if tc.ValidLogs > 0 {
		logger.Info("logs are valid", logging.String("release", rel.Name), logging.Int("valid_logs", tc.ValidLogs))
	}

	rel.Transcode = tc
	rel.Description = Description(url, tc)
	return rel, nil
}

func (c *Controller) resolve(ctx context.Context, tc *transcode.Transcode, rel *Release, formats format.Set) error {
	_, err := c.resolver.Resolve(ctx, c.cfg.Paths.OutputDir, rel.Group, rel.Item, formats, func(targets []naming.Target) error {
		return tc.Plan(ctx, targets, c.resolver.Provider())
	})
	return err
}

// constructionFailed records a retryable error for a release that could not
// be prepared. Batch aborts pass through untouched.
func (c *Controller) constructionFailed(ctx context.Context, rel *Release, what string, err error) error {
	if services.IsBatchAbort(err) {
		return err
	}
	return c.recordError(ctx, rel, fmt.Sprintf("%s: %s: %v", what, rel.Name, err))
}

func (c *Controller) recordError(ctx context.Context, rel *Release, reason string) error {
	return c.ledger.RecordError(ctx, rel.Group.ID, rel.Item.ID, reason, c.policy)
}
