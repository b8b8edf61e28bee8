package transcode

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"sync"

	"golang.org/x/sync/errgroup"

	"autotrans/internal/fileutil"
	"autotrans/internal/format"
	"autotrans/internal/logging"
	"autotrans/internal/services"
)

// Execute converts every planned track/format pair and then links the extra
// files. On any failure the pool is drained, Cancel removes the output
// directories this job created, and the first error is returned.
func (t *Transcode) Execute(ctx context.Context) error {
	if t.state != StatePlanned {
		return services.Wrap(services.ErrValidation, "execute", "state", t.state.String(), errNotPlanned)
	}
	t.state = StateExecuting
	t.logger.Debug("transcoding",
		logging.Int("tracks", len(t.Tracks)),
		logging.Int("targets", len(t.Targets)),
	)

	if err := t.execute(ctx); err != nil {
		t.Cancel()
		return err
	}
	t.state = StateCompleted
	return nil
}

func (t *Transcode) execute(ctx context.Context) error {
	// Another job may have claimed a target since Plan. Mkdir fails on an
	// existing directory, so only roots created here are ever rolled back.
	for _, target := range t.Targets {
		if err := os.MkdirAll(filepath.Dir(target.Dir), 0o755); err != nil {
			return services.Wrap(services.ErrTransient, "execute", "mkdir", filepath.Dir(target.Dir), err)
		}
		if err := os.Mkdir(target.Dir, 0o755); err != nil {
			if errors.Is(err, fs.ErrExist) {
				return services.Wrap(services.ErrTransient, "execute", "claim output", target.Dir, errOutputExists)
			}
			return services.Wrap(services.ErrTransient, "execute", "mkdir", target.Dir, err)
		}
		t.created = append(t.created, target.Dir)
	}

	folders := map[string]struct{}{}
	for _, track := range t.Tracks {
		for _, out := range track.Outputs {
			folders[filepath.Dir(out.Path)] = struct{}{}
		}
	}
	for folder := range folders {
		if err := os.MkdirAll(folder, 0o755); err != nil {
			return services.Wrap(services.ErrTransient, "execute", "mkdir", folder, err)
		}
	}

	total := 0
	for _, track := range t.Tracks {
		total += len(track.Outputs)
	}
	progress := newProgress(t, total)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(t.engine.workers)
	scheduled := 0
	for _, track := range t.Tracks {
		for _, out := range track.Outputs {
			if gctx.Err() != nil {
				continue
			}
			scheduled++
			g.Go(func() error {
				if err := t.engine.acquire(gctx); err != nil {
					return nil
				}
				defer t.engine.release()
				if err := t.convert(gctx, track, out); err != nil {
					return err
				}
				progress.done()
				return nil
			})
		}
	}
	if err := g.Wait(); err != nil {
		if skipped := total - scheduled; skipped > 0 {
			return fmt.Errorf("%d conversions not executed: %w", skipped, err)
		}
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	for _, extra := range t.Extras {
		if err := fileutil.LinkOrCopy(extra.Source, extra.Output); err != nil {
			return services.Wrap(services.ErrTransient, "execute", "link extra", extra.Output, err)
		}
	}
	return nil
}

// progress logs completed conversions in 25% steps.
type progress struct {
	mu       sync.Mutex
	logger   *slog.Logger
	sampler  *logging.ProgressSampler
	finished int
	total    int
}

func newProgress(t *Transcode, total int) *progress {
	return &progress{logger: t.logger, sampler: logging.NewProgressSampler(25), total: total}
}

func (p *progress) done() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.finished++
	if p.total == 0 {
		return
	}
	percent := float64(p.finished) * 100 / float64(p.total)
	if p.sampler.ShouldLog(percent, "convert") {
		p.logger.Info("conversion progress",
			logging.Int("done", p.finished),
			logging.Int("total", p.total),
			logging.Int("percent", int(percent)),
		)
	}
}

// Args returns the conversion program arguments for one pair.
func Args(track Track, out Output) []string {
	args := []string{track.Input, out.Path, out.Format.Name}
	if rate := track.Resample.Rate(); rate > 0 {
		args = append(args, strconv.Itoa(rate))
	}
	return args
}

func (t *Transcode) convert(ctx context.Context, track Track, out Output) error {
	e := t.engine
	if out.Format == format.FLAC16 && track.Resample == Keep {
		t.logger.Warn("source file is already 16 bits and will be copied as-is",
			logging.String("track", track.Input),
			logging.String(logging.FieldEventType, "track_copied"),
		)
		if err := fileutil.CopyFileVerified(track.Input, out.Path); err != nil {
			return services.Wrap(services.ErrTransient, "execute", "copy", track.Input, err)
		}
	} else {
		if e.transcoder == "" {
			return services.Wrap(services.ErrConfiguration, "execute", "transcoder", "transcode.transcoder must be set", nil)
		}
		runCtx := ctx
		if e.timeout > 0 {
			var cancel context.CancelFunc
			runCtx, cancel = context.WithTimeout(ctx, e.timeout)
			defer cancel()
		}
		t.logger.Debug("converting",
			logging.String("output", out.Path),
			logging.String("format", out.Format.Name),
			logging.String("resample", track.Resample.String()),
		)
		if _, err := e.exec.Run(runCtx, e.transcoder, Args(track, out)); err != nil {
			if errors.Is(err, services.ErrTimeout) {
				return services.Wrap(services.ErrTimeout, "execute", "convert", fmt.Sprintf("transcode of %s timed out", track.Input), err)
			}
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return services.Wrap(services.ErrExternalTool, "execute", "convert", fmt.Sprintf("transcode of %s failed", track.Input), err)
		}
	}

	if err := e.tools.CopyTags(ctx, track.Input, out.Path); err != nil {
		return fmt.Errorf("copy tags to %s: %w", out.Path, err)
	}
	info, err := e.tools.Probe(ctx, out.Path)
	if err != nil {
		return err
	}
	if err := info.Tags.Check(true, t.logger); err != nil {
		return fmt.Errorf("tag check failed on %s: %w", out.Path, err)
	}
	return nil
}

// Cancel removes the output directories this job created. Removal errors
// are ignored.
func (t *Transcode) Cancel() {
	for _, dir := range t.created {
		_ = os.RemoveAll(dir)
	}
	t.created = nil
	t.state = StateFailed
}
