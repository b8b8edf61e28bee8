package batch

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"autotrans/internal/catalog"
	"autotrans/internal/fileutil"
	"autotrans/internal/logging"
	"autotrans/internal/services"
)

// bundleExt is the extension of built bundle files.
const bundleExt = ".torrent"

// publish executes one release and hands its outputs to the catalog. Any
// failure is recorded in the ledger and isolated to this release; only
// batch aborts and ledger persistence failures are returned.
func (c *Controller) publish(ctx context.Context, rel *Release) (Outcome, error) {
	ctx = services.WithGroupID(services.WithItemID(ctx, rel.Item.ID), rel.Group.ID)
	logger := logging.WithContext(ctx, c.logger)
	outcome := Outcome{Name: rel.Name, ItemID: rel.Item.ID}

	if err := rel.Transcode.Execute(ctx); err != nil {
		outcome.Status, outcome.Reason = StatusFailed, err.Error()
		if services.IsBatchAbort(err) {
			return outcome, err
		}
		return outcome, c.recordError(ctx, rel, fmt.Sprintf("transcode failed: %s: %v", rel.Name, err))
	}
	logger.Info("transcode successful", logging.String("release", rel.Name))

	if err := c.upload(ctx, rel); err != nil {
		rel.Transcode.Cancel()
		outcome.Status, outcome.Reason = StatusFailed, err.Error()
		if services.IsBatchAbort(err) {
			return outcome, err
		}
		return outcome, c.recordError(ctx, rel, fmt.Sprintf("bundle generation or upload failed: %s: %v", rel.Name, err))
	}
	logger.Info("upload successful", logging.String("release", rel.Name))

	outcome.Status = StatusPublished
	return outcome, c.ledger.RecordComplete(ctx, rel.Group.ID, rel.Item.ID)
}

// upload builds one bundle per output tree in a scratch directory, publishes
// it and moves it into the bundle directory.
func (c *Controller) upload(ctx context.Context, rel *Release) error {
	scratch, err := os.MkdirTemp("", "autotrans-bundles-")
	if err != nil {
		return services.Wrap(services.ErrTransient, "publish", "scratch", "create scratch directory", err)
	}
	defer os.RemoveAll(scratch)

	bundler := c.bundleBuilder()
	for _, target := range rel.Transcode.Targets {
		name := filepath.Base(target.Dir) + bundleExt
		bundle, err := bundler.Build(ctx, target.Dir, filepath.Join(scratch, name))
		if err != nil {
			return err
		}
		err = c.client.Publish(ctx, catalog.Upload{
			Group:       rel.Group,
			Item:        rel.Item,
			BundlePath:  bundle,
			Format:      target.Format,
			Description: rel.Description,
		})
		if err != nil {
			return err
		}
		if dir := c.cfg.Paths.BundleDir; dir != "" {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return services.Wrap(services.ErrTransient, "publish", "bundle dir", dir, err)
			}
			if err := fileutil.MoveFile(bundle, filepath.Join(dir, name)); err != nil {
				return services.Wrap(services.ErrTransient, "publish", "move bundle", name, err)
			}
		}
	}
	return nil
}
