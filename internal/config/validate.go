package config

import (
	"errors"
	"fmt"
	"strings"

	"autotrans/internal/format"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validatePaths(); err != nil {
		return err
	}
	if err := c.validateTranscode(); err != nil {
		return err
	}
	if err := c.validateBatch(); err != nil {
		return err
	}
	if err := c.validateLogging(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validatePaths() error {
	if c.Paths.OutputDir == "" {
		return errors.New("paths.output_dir must be set")
	}
	if c.Paths.LedgerPath == "" {
		return errors.New("paths.ledger_path must be set")
	}
	return nil
}

func (c *Config) validateTranscode() error {
	if len(c.Transcode.Formats) == 0 {
		return errors.New("transcode.formats must list at least one format")
	}
	for _, name := range c.Transcode.Formats {
		if _, err := format.Parse(name); err != nil {
			return fmt.Errorf("transcode.formats: %w", err)
		}
	}
	if len(c.Transcode.Media) == 0 {
		return errors.New("transcode.media must list at least one media type")
	}
	for _, key := range c.Transcode.Media {
		if _, ok := format.MediaLabel(key); !ok {
			return fmt.Errorf("transcode.media: unknown media %q", key)
		}
	}
	if c.Transcode.MinDays < 0 {
		return errors.New("transcode.min_days must be zero or positive")
	}
	return nil
}

func (c *Config) validateBatch() error {
	switch c.Batch.RetryPolicy {
	case RetryPolicyAlways, RetryPolicyNever, RetryPolicyInteractive:
	default:
		return fmt.Errorf("batch.retry_policy: unsupported value %q (want always, never, or interactive)", c.Batch.RetryPolicy)
	}
	switch c.Batch.NameOverride {
	case NameOverrideInteractive, NameOverrideTruncate, NameOverrideNone:
	default:
		return fmt.Errorf("batch.name_override: unsupported value %q (want interactive, truncate, or none)", c.Batch.NameOverride)
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format: unsupported value %q", c.Logging.Format)
	}
	switch strings.ToLower(c.Logging.Level) {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level: unsupported value %q", c.Logging.Level)
	}
	return nil
}
