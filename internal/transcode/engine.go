package transcode

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"autotrans/internal/audio"
	"autotrans/internal/config"
	"autotrans/internal/logcheck"
	"autotrans/internal/logging"
	"autotrans/internal/toolexec"
)

// Tools is the audio collaborator used during discovery and conversion.
type Tools interface {
	Probe(ctx context.Context, path string) (audio.Info, error)
	CheckIntegrity(ctx context.Context, path string) error
	RenderSpectrograms(ctx context.Context, dir, track string) ([]string, error)
	CopyTags(ctx context.Context, src, dst string) error
}

// Option configures an Engine.
type Option func(*Engine)

// WithTools overrides the audio collaborator.
func WithTools(tools Tools) Option {
	return func(e *Engine) {
		if tools != nil {
			e.tools = tools
		}
	}
}

// WithVerifier sets the rip log verifier.
func WithVerifier(v logcheck.Verifier) Option {
	return func(e *Engine) { e.verifier = v }
}

// WithExecutor overrides the executor running the conversion program.
func WithExecutor(exec toolexec.Executor) Option {
	return func(e *Engine) {
		if exec != nil {
			e.exec = exec
		}
	}
}

// WithLogger sets the engine logger.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		e.base = logger
		e.logger = logging.NewComponentLogger(logger, "transcode")
	}
}

// WithWorkers overrides the pool size shared by discovery and conversion.
func WithWorkers(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.workers = n
		}
	}
}

// WithSpectrogramDir enables spectrogram rendering under dir.
func WithSpectrogramDir(dir string) Option {
	return func(e *Engine) { e.spectrogramDir = strings.TrimSpace(dir) }
}

// WithConversionTimeout bounds each external conversion call.
func WithConversionTimeout(d time.Duration) Option {
	return func(e *Engine) { e.timeout = d }
}

// Engine holds the tools and limits shared by every Transcode it creates.
type Engine struct {
	tools          Tools
	verifier       logcheck.Verifier
	exec           toolexec.Executor
	transcoder     string
	workers        int
	timeout        time.Duration
	spectrogramDir string
	base           *slog.Logger
	logger         *slog.Logger
	// slots caps conversions across every Transcode of this engine, so
	// releases executed side by side share one pool of workers.
	slots chan struct{}
}

// New builds an engine from configuration.
func New(cfg *config.Config, opts ...Option) *Engine {
	e := &Engine{
		exec:           toolexec.CommandExecutor{},
		transcoder:     strings.TrimSpace(cfg.Transcode.Transcoder),
		workers:        cfg.Workers(),
		timeout:        cfg.ConversionTimeout(),
		spectrogramDir: cfg.Paths.SpectrogramDir,
		logger:         logging.NewComponentLogger(nil, "transcode"),
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.tools == nil {
		e.tools = audio.New(cfg, audio.WithExecutor(e.exec))
	}
	if e.verifier == nil {
		e.verifier = logcheck.New(cfg.Transcode.LogChecker, logcheck.WithExecutor(e.exec), logcheck.WithLogger(e.base))
	}
	e.slots = make(chan struct{}, e.workers)
	return e
}

func (e *Engine) acquire(ctx context.Context) error {
	select {
	case e.slots <- struct{}{}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (e *Engine) release() { <-e.slots }

// Workers returns the pool size.
func (e *Engine) Workers() int { return e.workers }
