package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"

	"autotrans/internal/format"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory configuration.
type Paths struct {
	InputDir       string `toml:"input_dir"`
	OutputDir      string `toml:"output_dir"`
	SpectrogramDir string `toml:"spectrogram_dir"`
	BundleDir      string `toml:"bundle_dir"`
	LogDir         string `toml:"log_dir"`
	LedgerPath     string `toml:"ledger_path"`
}

// Catalog contains configuration for the cataloging service API.
type Catalog struct {
	Endpoint               string `toml:"endpoint"`
	APIKey                 string `toml:"api_key"`
	AnnounceURL            string `toml:"announce_url"`
	SourceTag              string `toml:"source_tag"`
	RequestTimeout         int    `toml:"request_timeout"`
	RateLimitCalls         int    `toml:"rate_limit_calls"`
	RateLimitPeriodSeconds int    `toml:"rate_limit_period_seconds"`
	PageSize               int    `toml:"page_size"`
}

// Transcode contains configuration for the per-release transcode engine and
// the external tools it drives.
type Transcode struct {
	Formats                  []string `toml:"formats"`
	Media                    []string `toml:"media"`
	MinDays                  int      `toml:"min_days"`
	Parallel                 int      `toml:"parallel"`
	Transcoder               string   `toml:"transcoder"`
	ConversionTimeoutSeconds int      `toml:"conversion_timeout_seconds"`
	FlacBinary               string   `toml:"flac_binary"`
	SoxBinary                string   `toml:"sox_binary"`
	FFprobeBinary            string   `toml:"ffprobe_binary"`
	MetaflacBinary           string   `toml:"metaflac_binary"`
	FFmpegBinary             string   `toml:"ffmpeg_binary"`
	BundleTool               string   `toml:"bundle_tool"`
	BundlePieceLength        int      `toml:"bundle_piece_length"`
	LogChecker               string   `toml:"log_checker"`
}

// Batch contains configuration for the batch controller.
type Batch struct {
	Size            int    `toml:"size"`
	Concurrent      bool   `toml:"concurrent"`
	RetryPolicy     string `toml:"retry_policy"`
	NameOverride    string `toml:"name_override"`
	MaxNameAttempts int    `toml:"max_name_attempts"`
	FreeleechTokens int    `toml:"freeleech_tokens"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Config encapsulates all configuration values for autotrans.
//
// Configuration sections by subsystem:
//   - Paths: input, output, spectrogram, bundle and log directories plus the ledger file
//   - Catalog: cataloging service endpoint, credentials and request pacing
//   - Transcode: target formats, media allow-set, worker pool size and tool paths
//   - Batch: run size, retry policy and naming override policy
//   - Logging: log format and level
type Config struct {
	Paths     Paths     `toml:"paths"`
	Catalog   Catalog   `toml:"catalog"`
	Transcode Transcode `toml:"transcode"`
	Batch     Batch     `toml:"batch"`
	Logging   Logging   `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath(defaultConfigPath)
}

// Load locates, parses, and validates a configuration file. The returned config has all
// path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := expandPath(defaultConfigPath)
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("autotrans.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates the directories a batch run writes into.
func (c *Config) EnsureDirectories() error {
	dirs := []string{c.Paths.OutputDir, c.Paths.LogDir, filepath.Dir(c.Paths.LedgerPath)}
	if c.Paths.BundleDir != "" {
		dirs = append(dirs, c.Paths.BundleDir)
	}
	if c.Paths.SpectrogramDir != "" {
		dirs = append(dirs, c.Paths.SpectrogramDir)
	}
	for _, dir := range dirs {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// TargetFormats returns the configured target formats. Names are checked by
// Validate, so unknown entries are skipped here.
func (c *Config) TargetFormats() format.Set {
	set := make(format.Set, len(c.Transcode.Formats))
	for _, name := range c.Transcode.Formats {
		if f, err := format.Parse(name); err == nil {
			set.Add(f)
		}
	}
	return set
}

// AllowedMedia returns the catalog media labels in the allow-set.
func (c *Config) AllowedMedia() map[string]struct{} {
	allowed := make(map[string]struct{}, len(c.Transcode.Media))
	for _, key := range c.Transcode.Media {
		if label, ok := format.MediaLabel(key); ok {
			allowed[label] = struct{}{}
		}
	}
	return allowed
}

// CreatedCutoff returns the creation time after which catalog items are
// considered too new to process. A nil result disables time gating.
func (c *Config) CreatedCutoff(now time.Time) *time.Time {
	if c.Transcode.MinDays <= 0 {
		return nil
	}
	cutoff := now.Add(-time.Duration(c.Transcode.MinDays) * 24 * time.Hour)
	return &cutoff
}

// Workers returns the worker pool size shared by discovery and conversion.
func (c *Config) Workers() int {
	if c.Transcode.Parallel > 0 {
		return c.Transcode.Parallel
	}
	return runtime.NumCPU()
}

// ConversionTimeout bounds a single external conversion call.
func (c *Config) ConversionTimeout() time.Duration {
	return time.Duration(c.Transcode.ConversionTimeoutSeconds) * time.Second
}

// RequestTimeout bounds a single catalog HTTP request.
func (c *Config) RequestTimeout() time.Duration {
	return time.Duration(c.Catalog.RequestTimeout) * time.Second
}

// RequireCatalog reports whether the catalog section is usable for online modes.
func (c *Config) RequireCatalog() error {
	if strings.TrimSpace(c.Catalog.Endpoint) == "" {
		return errors.New("catalog.endpoint must be set for online modes")
	}
	if strings.TrimSpace(c.Catalog.APIKey) == "" {
		defaultPath, err := DefaultConfigPath()
		if err != nil {
			defaultPath = defaultConfigPath
		}
		return fmt.Errorf("catalog.api_key is required. Set AUTOTRANS_API_KEY env var or edit %s (create with 'autotrans config init')", defaultPath)
	}
	if strings.TrimSpace(c.Transcode.Transcoder) == "" {
		return errors.New("transcode.transcoder must be set for online modes")
	}
	return nil
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// SampleConfig returns the embedded sample configuration.
func SampleConfig() string {
	return sampleConfig
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}

// Encode renders the resolved configuration as TOML.
func (c *Config) Encode() ([]byte, error) {
	data, err := toml.Marshal(c)
	if err != nil {
		return nil, fmt.Errorf("encode config: %w", err)
	}
	return data, nil
}
