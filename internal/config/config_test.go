package config_test

import (
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
	"time"

	"github.com/pelletier/go-toml/v2"

	"autotrans/internal/config"
	"autotrans/internal/format"
)

func TestLoadDefaultConfigUsesEnvAPIKeyAndExpandsPaths(t *testing.T) {
	t.Setenv("AUTOTRANS_API_KEY", "test-key")
	tempHome := t.TempDir()
	t.Setenv("HOME", tempHome)
	t.Chdir(t.TempDir())

	cfg, resolved, exists, err := config.Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if resolved == "" {
		t.Fatal("expected resolved path")
	}
	if exists {
		t.Fatal("expected config file to be absent in temp HOME")
	}
	if cfg.Catalog.APIKey != "test-key" {
		t.Fatalf("expected API key from env, got %q", cfg.Catalog.APIKey)
	}
	wantLogDir := filepath.Join(tempHome, ".local", "share", "autotrans", "logs")
	if cfg.Paths.LogDir != wantLogDir {
		t.Fatalf("unexpected log dir: got %q want %q", cfg.Paths.LogDir, wantLogDir)
	}
	if cfg.Paths.LedgerPath != filepath.Join(wantLogDir, "ledger.db") {
		t.Fatalf("unexpected ledger path: %q", cfg.Paths.LedgerPath)
	}
	if cfg.Paths.OutputDir != filepath.Join(tempHome, "transcodes") {
		t.Fatalf("unexpected output dir: %q", cfg.Paths.OutputDir)
	}
	if cfg.Batch.Size != 5 {
		t.Fatalf("expected default batch size 5, got %d", cfg.Batch.Size)
	}
	if cfg.Catalog.RateLimitCalls != 9 || cfg.Catalog.RateLimitPeriodSeconds != 10 {
		t.Fatalf("unexpected rate limit: %d/%d", cfg.Catalog.RateLimitCalls, cfg.Catalog.RateLimitPeriodSeconds)
	}
	if cfg.ConversionTimeout() != 600*time.Second {
		t.Fatalf("unexpected conversion timeout: %s", cfg.ConversionTimeout())
	}
	if cfg.Workers() != runtime.NumCPU() {
		t.Fatalf("expected per-core workers, got %d", cfg.Workers())
	}
}

func TestLoadCustomConfigOverrides(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	dir := t.TempDir()
	configPath := filepath.Join(dir, "config.toml")
	content := `
[paths]
output_dir = "` + filepath.Join(dir, "out") + `"
ledger_path = "` + filepath.Join(dir, "state", "ledger.db") + `"

[transcode]
formats = ["flac_16", " mp3_v0 "]
media = ["CD", "web", "cd"]
min_days = 3
parallel = 2
transcoder = "transcode.sh"

[batch]
size = 0
retry_policy = "Never"
name_override = "truncate"
`
	if err := os.WriteFile(configPath, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, resolved, exists, err := config.Load(configPath)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if !exists || resolved != configPath {
		t.Fatalf("unexpected resolution: %q exists=%v", resolved, exists)
	}
	if got := cfg.TargetFormats().Names(); len(got) != 2 || got[0] != "FLAC_16" || got[1] != "MP3_V0" {
		t.Fatalf("unexpected formats: %v", got)
	}
	if !cfg.TargetFormats().Has(format.FLAC16) {
		t.Fatal("expected FLAC_16 in target formats")
	}
	if len(cfg.Transcode.Media) != 2 {
		t.Fatalf("expected media to be de-duplicated, got %v", cfg.Transcode.Media)
	}
	allowed := cfg.AllowedMedia()
	if _, ok := allowed["CD"]; !ok {
		t.Fatalf("expected CD label in allowed media, got %v", allowed)
	}
	if cfg.Transcode.Transcoder != "transcode.sh" {
		t.Fatalf("expected bare tool name to be kept, got %q", cfg.Transcode.Transcoder)
	}
	if cfg.Workers() != 2 {
		t.Fatalf("expected 2 workers, got %d", cfg.Workers())
	}
	if cfg.Batch.Size != 0 || cfg.Batch.RetryPolicy != config.RetryPolicyNever || cfg.Batch.NameOverride != config.NameOverrideTruncate {
		t.Fatalf("unexpected batch config: %+v", cfg.Batch)
	}
	now := time.Date(2024, 5, 10, 0, 0, 0, 0, time.UTC)
	cutoff := cfg.CreatedCutoff(now)
	if cutoff == nil || !cutoff.Equal(now.Add(-72*time.Hour)) {
		t.Fatalf("unexpected cutoff: %v", cutoff)
	}
}

func TestValidateRejectsUnknownValues(t *testing.T) {
	cases := map[string]func(*config.Config){
		"format":        func(c *config.Config) { c.Transcode.Formats = []string{"OGG"} },
		"media":         func(c *config.Config) { c.Transcode.Media = []string{"cassette"} },
		"retry policy":  func(c *config.Config) { c.Batch.RetryPolicy = "sometimes" },
		"name override": func(c *config.Config) { c.Batch.NameOverride = "ask" },
		"log format":    func(c *config.Config) { c.Logging.Format = "xml" },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			cfg := config.Default()
			cfg.Paths.LedgerPath = "/tmp/ledger.db"
			mutate(&cfg)
			if err := cfg.Validate(); err == nil {
				t.Fatalf("expected validation error for %s", name)
			}
		})
	}
}

func TestRequireCatalog(t *testing.T) {
	cfg := config.Default()
	if err := cfg.RequireCatalog(); err == nil {
		t.Fatal("expected error without endpoint")
	}
	cfg.Catalog.Endpoint = "https://example.test/"
	err := cfg.RequireCatalog()
	if err == nil || !strings.Contains(err.Error(), "AUTOTRANS_API_KEY") {
		t.Fatalf("expected api key hint, got %v", err)
	}
	cfg.Catalog.APIKey = "key"
	cfg.Transcode.Transcoder = "transcode.sh"
	if err := cfg.RequireCatalog(); err != nil {
		t.Fatalf("RequireCatalog returned error: %v", err)
	}
}

func TestCreatedCutoffDisabledByDefault(t *testing.T) {
	cfg := config.Default()
	if cfg.CreatedCutoff(time.Now()) != nil {
		t.Fatal("expected no cutoff when min_days is zero")
	}
}

func TestSampleConfigParses(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.toml")
	if err := config.CreateSample(path); err != nil {
		t.Fatalf("CreateSample returned error: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read sample: %v", err)
	}
	var cfg config.Config
	if err := toml.Unmarshal(data, &cfg); err != nil {
		t.Fatalf("sample config does not parse: %v", err)
	}
	if len(cfg.Transcode.Formats) == 0 || cfg.Batch.RetryPolicy == "" {
		t.Fatalf("sample config missing values: %+v", cfg)
	}
}

func TestEncodeRendersSections(t *testing.T) {
	cfg := config.Default()
	data, err := cfg.Encode()
	if err != nil {
		t.Fatalf("Encode returned error: %v", err)
	}
	if !strings.Contains(string(data), "[transcode]") {
		t.Fatalf("expected transcode section, got %s", data)
	}
}
