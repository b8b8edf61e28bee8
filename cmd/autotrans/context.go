package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"

	"github.com/spf13/cobra"

	"autotrans/internal/config"
	"autotrans/internal/ledger"
	"autotrans/internal/logging"
	"autotrans/internal/prompt"
)

type commandContext struct {
	configFlag   *string
	verboseFlag  *bool
	parallelFlag *int

	configOnce sync.Once
	config     *config.Config
	configErr  error

	loggerOnce sync.Once
	logger     *slog.Logger
	loggerErr  error
}

func newCommandContext(configFlag *string, verboseFlag *bool, parallelFlag *int) *commandContext {
	return &commandContext{
		configFlag:   configFlag,
		verboseFlag:  verboseFlag,
		parallelFlag: parallelFlag,
	}
}

func (c *commandContext) configPath() string {
	if c.configFlag == nil {
		return ""
	}
	return strings.TrimSpace(*c.configFlag)
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		cfg, _, _, err := config.Load(c.configPath())
		if err != nil {
			c.configErr = err
			return
		}
		if c.parallelFlag != nil && *c.parallelFlag > 0 {
			cfg.Transcode.Parallel = *c.parallelFlag
		}
		if err := cfg.EnsureDirectories(); err != nil {
			c.configErr = err
			return
		}
		c.config = cfg
	})
	return c.config, c.configErr
}

func (c *commandContext) ensureLogger() (*slog.Logger, error) {
	c.loggerOnce.Do(func() {
		cfg, err := c.ensureConfig()
		if err != nil {
			c.loggerErr = err
			return
		}
		level := ""
		if c.verboseFlag != nil && *c.verboseFlag {
			level = "debug"
		}
		c.logger, c.loggerErr = logging.NewFromConfig(cfg, level)
	})
	return c.logger, c.loggerErr
}

// openLedger opens the configured ledger. Callers must close it.
func (c *commandContext) openLedger(ctx context.Context) (*ledger.Ledger, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	logger, err := c.ensureLogger()
	if err != nil {
		return nil, err
	}
	return ledger.Open(ctx, cfg.Paths.LedgerPath, logger)
}

// console returns the prompt console for cmd. Redirected input (tests)
// always gets a console; the process stdin only when it is a terminal.
func console(cmd *cobra.Command) *prompt.Console {
	if in := cmd.InOrStdin(); in != os.Stdin {
		return prompt.New(in, cmd.OutOrStdout())
	}
	if prompt.IsInteractive() {
		return prompt.Stdio()
	}
	return nil
}

// signalContext cancels on SIGINT/SIGTERM so a run stops between releases.
func signalContext(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	parent := cmd.Context()
	if parent == nil {
		parent = context.Background()
	}
	return signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
}

func shouldSkipConfig(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations != nil && c.Annotations["skipConfigLoad"] == "true" {
			return true
		}
	}
	return false
}

func yesNo(value bool) string {
	if value {
		return "yes"
	}
	return "no"
}
