package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeCatalog()
	if err := c.normalizeTranscode(); err != nil {
		return err
	}
	c.normalizeBatch()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if c.Paths.InputDir, err = expandPath(c.Paths.InputDir); err != nil {
		return fmt.Errorf("paths.input_dir: %w", err)
	}
	if c.Paths.OutputDir, err = expandPath(c.Paths.OutputDir); err != nil {
		return fmt.Errorf("paths.output_dir: %w", err)
	}
	if c.Paths.SpectrogramDir, err = expandPath(strings.TrimSpace(c.Paths.SpectrogramDir)); err != nil {
		return fmt.Errorf("paths.spectrogram_dir: %w", err)
	}
	if c.Paths.BundleDir, err = expandPath(c.Paths.BundleDir); err != nil {
		return fmt.Errorf("paths.bundle_dir: %w", err)
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.LedgerPath) == "" {
		c.Paths.LedgerPath = filepath.Join(c.Paths.LogDir, defaultLedgerFile)
	}
	if c.Paths.LedgerPath, err = expandPath(c.Paths.LedgerPath); err != nil {
		return fmt.Errorf("paths.ledger_path: %w", err)
	}
	return nil
}

func (c *Config) normalizeCatalog() {
	if c.Catalog.APIKey == "" {
		if value, ok := os.LookupEnv("AUTOTRANS_API_KEY"); ok {
			c.Catalog.APIKey = value
		}
	}
	c.Catalog.APIKey = strings.TrimSpace(c.Catalog.APIKey)
	c.Catalog.Endpoint = strings.TrimSpace(c.Catalog.Endpoint)
	if c.Catalog.Endpoint != "" && !strings.HasSuffix(c.Catalog.Endpoint, "/") {
		c.Catalog.Endpoint += "/"
	}
	c.Catalog.AnnounceURL = strings.TrimSpace(c.Catalog.AnnounceURL)
	c.Catalog.SourceTag = strings.TrimSpace(c.Catalog.SourceTag)
	if c.Catalog.SourceTag == "" {
		c.Catalog.SourceTag = defaultSourceTag
	}
	if c.Catalog.RequestTimeout <= 0 {
		c.Catalog.RequestTimeout = defaultRequestTimeout
	}
	if c.Catalog.RateLimitCalls <= 0 {
		c.Catalog.RateLimitCalls = defaultRateLimitCalls
	}
	if c.Catalog.RateLimitPeriodSeconds <= 0 {
		c.Catalog.RateLimitPeriodSeconds = defaultRateLimitPeriodSeconds
	}
	if c.Catalog.PageSize <= 0 {
		c.Catalog.PageSize = defaultPageSize
	}
}

func (c *Config) normalizeTranscode() error {
	formats := make([]string, 0, len(c.Transcode.Formats))
	for _, name := range c.Transcode.Formats {
		if trimmed := strings.ToUpper(strings.TrimSpace(name)); trimmed != "" {
			formats = append(formats, trimmed)
		}
	}
	c.Transcode.Formats = formats

	media := make([]string, 0, len(c.Transcode.Media))
	seen := make(map[string]struct{}, len(c.Transcode.Media))
	for _, key := range c.Transcode.Media {
		normalized := strings.ToLower(strings.TrimSpace(key))
		if normalized == "" {
			continue
		}
		if _, ok := seen[normalized]; ok {
			continue
		}
		seen[normalized] = struct{}{}
		media = append(media, normalized)
	}
	c.Transcode.Media = media

	if c.Transcode.Parallel < 0 {
		c.Transcode.Parallel = 0
	}
	if c.Transcode.ConversionTimeoutSeconds <= 0 {
		c.Transcode.ConversionTimeoutSeconds = defaultConversionTimeoutSeconds
	}
	if c.Transcode.BundlePieceLength <= 0 {
		c.Transcode.BundlePieceLength = defaultBundlePieceLength
	}

	var err error
	if c.Transcode.Transcoder, err = expandToolPath(c.Transcode.Transcoder); err != nil {
		return fmt.Errorf("transcode.transcoder: %w", err)
	}
	if c.Transcode.LogChecker, err = expandToolPath(c.Transcode.LogChecker); err != nil {
		return fmt.Errorf("transcode.log_checker: %w", err)
	}
	c.Transcode.FlacBinary = defaultBinary(c.Transcode.FlacBinary, "flac")
	c.Transcode.SoxBinary = defaultBinary(c.Transcode.SoxBinary, "sox")
	c.Transcode.FFprobeBinary = defaultBinary(c.Transcode.FFprobeBinary, "ffprobe")
	c.Transcode.MetaflacBinary = defaultBinary(c.Transcode.MetaflacBinary, "metaflac")
	c.Transcode.FFmpegBinary = defaultBinary(c.Transcode.FFmpegBinary, "ffmpeg")
	c.Transcode.BundleTool = defaultBinary(c.Transcode.BundleTool, "mktorrent")
	return nil
}

func (c *Config) normalizeBatch() {
	if c.Batch.Size < 0 {
		c.Batch.Size = 0
	}
	c.Batch.RetryPolicy = strings.ToLower(strings.TrimSpace(c.Batch.RetryPolicy))
	if c.Batch.RetryPolicy == "" {
		c.Batch.RetryPolicy = RetryPolicyInteractive
	}
	c.Batch.NameOverride = strings.ToLower(strings.TrimSpace(c.Batch.NameOverride))
	if c.Batch.NameOverride == "" {
		c.Batch.NameOverride = NameOverrideInteractive
	}
	if c.Batch.MaxNameAttempts <= 0 {
		c.Batch.MaxNameAttempts = defaultMaxNameAttempts
	}
	if c.Batch.FreeleechTokens < 0 {
		c.Batch.FreeleechTokens = 0
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}

// expandToolPath expands values that look like paths and leaves bare
// executable names for PATH lookup.
func expandToolPath(value string) (string, error) {
	value = strings.TrimSpace(value)
	if value == "" || !strings.ContainsAny(value, `/\~`) {
		return value, nil
	}
	return expandPath(value)
}

func defaultBinary(value, fallback string) string {
	if trimmed := strings.TrimSpace(value); trimmed != "" {
		return trimmed
	}
	return fallback
}
