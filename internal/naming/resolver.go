package naming

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"

	"autotrans/internal/catalog"
	"autotrans/internal/format"
	"autotrans/internal/logging"
	"autotrans/internal/services"
)

// PlanFunc plans a release into targets. It returns a *Conflict (possibly
// wrapped) when a derived path violates the naming rules.
type PlanFunc func(targets []Target) error

// Resolver retries planning with provider overrides until the plan has no
// naming conflict, the provider gives up, or maxAttempts is reached.
type Resolver struct {
	provider    OverrideProvider
	maxAttempts int
	logger      *slog.Logger
}

// NewResolver builds a resolver. maxAttempts < 1 allows a single attempt.
func NewResolver(provider OverrideProvider, maxAttempts int, logger *slog.Logger) *Resolver {
	if provider == nil {
		provider = None{}
	}
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	return &Resolver{
		provider:    provider,
		maxAttempts: maxAttempts,
		logger:      logging.NewComponentLogger(logger, "naming"),
	}
}

// Provider returns the override provider, also used for extra file stems.
func (r *Resolver) Provider() OverrideProvider { return r.provider }

// Resolve computes targets under root and calls plan until it succeeds.
func (r *Resolver) Resolve(ctx context.Context, root string, group catalog.Group, item catalog.Item, formats format.Set, plan PlanFunc) ([]Target, error) {
	var overrides Overrides
	for attempt := 1; ; attempt++ {
		targets, err := Targets(root, group, item, formats, overrides)
		if err != nil {
			return nil, err
		}
		if !overrides.IsZero() && !r.provider.Confirm(ctx, targetNames(targets)) {
			return nil, services.Wrap(services.ErrNaming, "naming", "confirm", "output name not confirmed", nil)
		}

		err = plan(targets)
		var conflict *Conflict
		if err == nil {
			return targets, nil
		}
		if !errors.As(err, &conflict) {
			return nil, err
		}
		if attempt >= r.maxAttempts {
			return nil, services.Wrap(services.ErrNaming, "naming", "resolve",
				fmt.Sprintf("no valid name after %d attempts", attempt), err)
		}
		next, ok := r.provider.Override(ctx, Request{
			Conflict: conflict,
			Current:  overrides,
			Title:    group.Name,
			Remaster: item.RemasterTitle,
		})
		if !ok {
			return nil, services.Wrap(services.ErrNaming, "naming", "resolve", "no name override provided", err)
		}
		r.logger.Info("retrying with name override",
			logging.String("conflict", conflict.Error()),
			logging.String("title_override", next.Title),
			logging.String("remaster_override", next.Remaster),
			logging.Int("attempt", attempt+1),
		)
		overrides = next
	}
}

func targetNames(targets []Target) []string {
	names := make([]string, 0, len(targets))
	for _, t := range targets {
		names = append(names, filepath.Base(t.Dir))
	}
	return names
}
