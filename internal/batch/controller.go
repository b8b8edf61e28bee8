package batch

import (
	"log/slog"
	"sync"
	"time"

	"autotrans/internal/catalog"
	"autotrans/internal/config"
	"autotrans/internal/ledger"
	"autotrans/internal/logging"
	"autotrans/internal/naming"
	"autotrans/internal/prompt"
	"autotrans/internal/transcode"
)

// Option configures a Controller.
type Option func(*Controller)

// WithClient sets the catalog client used by online modes.
func WithClient(client catalog.Client) Option {
	return func(c *Controller) { c.client = client }
}

// WithLedger sets the outcome ledger.
func WithLedger(l *ledger.Ledger) Option {
	return func(c *Controller) { c.ledger = l }
}

// WithEngine overrides the transcode engine.
func WithEngine(engine *transcode.Engine) Option {
	return func(c *Controller) { c.engine = engine }
}

// WithResolver overrides the naming resolver.
func WithResolver(resolver *naming.Resolver) Option {
	return func(c *Controller) { c.resolver = resolver }
}

// WithBundler overrides the bundle file builder.
func WithBundler(bundler catalog.Bundler) Option {
	return func(c *Controller) { c.bundler = bundler }
}

// WithRetryPolicy overrides the policy deciding whether operational errors
// are retried.
func WithRetryPolicy(policy ledger.RetryPolicy) Option {
	return func(c *Controller) { c.policy = policy }
}

// WithConsole enables operator prompts (spectrogram review, download
// filtering and confirmations). Without a console every prompt is skipped
// and its default is taken.
func WithConsole(console *prompt.Console) Option {
	return func(c *Controller) { c.console = console }
}

// WithLogger sets the controller logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Controller) { c.logger = logging.NewComponentLogger(logger, "batch") }
}

// WithClock overrides the time source used for the creation cutoff.
func WithClock(now func() time.Time) Option {
	return func(c *Controller) {
		if now != nil {
			c.now = now
		}
	}
}

// Controller coordinates a batch run.
type Controller struct {
	cfg      *config.Config
	client   catalog.Client
	ledger   *ledger.Ledger
	engine   *transcode.Engine
	resolver *naming.Resolver
	bundler  catalog.Bundler
	policy   ledger.RetryPolicy
	console  *prompt.Console
	logger   *slog.Logger
	now      func() time.Time

	mu         sync.Mutex
	processing map[string]struct{}
}

// New builds a controller. Collaborators not supplied through options are
// derived from cfg; the catalog client has no default and online modes fail
// without one.
func New(cfg *config.Config, opts ...Option) *Controller {
	c := &Controller{
		cfg:        cfg,
		logger:     logging.NewComponentLogger(nil, "batch"),
		now:        time.Now,
		processing: make(map[string]struct{}),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.ledger == nil {
		c.ledger = ledger.NewMemory(c.logger)
	}
	if c.engine == nil {
		c.engine = transcode.New(cfg, transcode.WithLogger(c.logger))
	}
	if c.resolver == nil {
		c.resolver = naming.NewResolver(naming.ProviderFromConfig(cfg), cfg.Batch.MaxNameAttempts, c.logger)
	}
	if c.policy == nil {
		c.policy = ledger.PolicyFromConfig(cfg)
	}
	return c
}

// bundleBuilder returns the bundler, building the default one on first use
// so the announce URL is read after the client has logged in.
func (c *Controller) bundleBuilder() catalog.Bundler {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.bundler == nil {
		c.bundler = catalog.NewCommandBundler(c.cfg.Transcode.BundleTool, c.client.AnnounceURL(),
			c.cfg.Catalog.SourceTag, c.cfg.Transcode.BundlePieceLength)
	}
	return c.bundler
}

// claim marks key in progress, reporting false when an equivalent release
// is already claimed in this run.
func (c *Controller) claim(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.processing[key]; ok {
		return false
	}
	c.processing[key] = struct{}{}
	return true
}

func (c *Controller) unclaim(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.processing, key)
}

func (c *Controller) claimed() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.processing)
}
