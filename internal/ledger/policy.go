package ledger

import (
	"context"
	"io"

	"autotrans/internal/config"
	"autotrans/internal/prompt"
)

// RetryPolicy decides whether an operational error stays retry-eligible.
type RetryPolicy interface {
	ShouldRetry(ctx context.Context, reason string) bool
}

// AlwaysRetry keeps every error retry-eligible.
type AlwaysRetry struct{}

func (AlwaysRetry) ShouldRetry(context.Context, string) bool { return true }

// NeverRetry marks every error terminal.
type NeverRetry struct{}

func (NeverRetry) ShouldRetry(context.Context, string) bool { return false }

// InteractiveConfirm asks the operator on a shared console.
type InteractiveConfirm struct {
	console *prompt.Console
}

// NewInteractiveConfirm returns a prompt-driven policy on the given streams.
func NewInteractiveConfirm(in io.Reader, out io.Writer) *InteractiveConfirm {
	return &InteractiveConfirm{console: prompt.New(in, out)}
}

// NewConsoleConfirm returns a prompt-driven policy on an existing console.
func NewConsoleConfirm(console *prompt.Console) *InteractiveConfirm {
	return &InteractiveConfirm{console: console}
}

// ShouldRetry keeps the item retryable when the run is being cancelled or no
// answer can be read.
func (p *InteractiveConfirm) ShouldRetry(ctx context.Context, reason string) bool {
	if ctx != nil && ctx.Err() != nil {
		return true
	}
	ok, err := p.console.Confirm(reason + "\nRetry item later? (y/n) ")
	if err != nil {
		return true
	}
	return ok
}

// PolicyFromConfig maps batch.retry_policy to a RetryPolicy. Interactive mode
// falls back to AlwaysRetry when stdin is not a terminal.
func PolicyFromConfig(cfg *config.Config) RetryPolicy {
	if cfg == nil {
		return AlwaysRetry{}
	}
	switch cfg.Batch.RetryPolicy {
	case config.RetryPolicyNever:
		return NeverRetry{}
	case config.RetryPolicyInteractive:
		if prompt.IsInteractive() {
			return NewConsoleConfirm(prompt.Stdio())
		}
		return AlwaysRetry{}
	default:
		return AlwaysRetry{}
	}
}
