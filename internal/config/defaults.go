package config

const (
	defaultConfigPath               = "~/.config/autotrans/config.toml"
	defaultInputDir                 = "~/downloads"
	defaultOutputDir                = "~/transcodes"
	defaultBundleDir                = "~/watch"
	defaultLogDir                   = "~/.local/share/autotrans/logs"
	defaultLedgerFile               = "ledger.db"
	defaultSourceTag                = "RED"
	defaultRequestTimeout           = 30
	defaultRateLimitCalls           = 9
	defaultRateLimitPeriodSeconds   = 10
	defaultPageSize                 = 500
	defaultConversionTimeoutSeconds = 600
	defaultBundlePieceLength        = 18
	defaultBatchSize                = 5
	defaultMaxNameAttempts          = 3
	defaultLogFormat                = "console"
	defaultLogLevel                 = "info"

	// RetryPolicyAlways stores every operational error as retry-eligible.
	RetryPolicyAlways = "always"
	// RetryPolicyNever stores every operational error as terminal.
	RetryPolicyNever = "never"
	// RetryPolicyInteractive asks the operator, falling back to always without a TTY.
	RetryPolicyInteractive = "interactive"

	// NameOverrideInteractive prompts for shorter titles on naming conflicts.
	NameOverrideInteractive = "interactive"
	// NameOverrideTruncate shortens titles deterministically.
	NameOverrideTruncate = "truncate"
	// NameOverrideNone fails the release on the first naming conflict.
	NameOverrideNone = "none"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			InputDir:  defaultInputDir,
			OutputDir: defaultOutputDir,
			BundleDir: defaultBundleDir,
			LogDir:    defaultLogDir,
		},
		Catalog: Catalog{
			SourceTag:              defaultSourceTag,
			RequestTimeout:         defaultRequestTimeout,
			RateLimitCalls:         defaultRateLimitCalls,
			RateLimitPeriodSeconds: defaultRateLimitPeriodSeconds,
			PageSize:               defaultPageSize,
		},
		Transcode: Transcode{
			Formats:                  []string{"FLAC_16", "MP3_320", "MP3_V0"},
			Media:                    []string{"cd", "vinyl", "web"},
			ConversionTimeoutSeconds: defaultConversionTimeoutSeconds,
			FlacBinary:               "flac",
			SoxBinary:                "sox",
			FFprobeBinary:            "ffprobe",
			MetaflacBinary:           "metaflac",
			FFmpegBinary:             "ffmpeg",
			BundleTool:               "mktorrent",
			BundlePieceLength:        defaultBundlePieceLength,
		},
		Batch: Batch{
			Size:            defaultBatchSize,
			RetryPolicy:     RetryPolicyInteractive,
			NameOverride:    NameOverrideInteractive,
			MaxNameAttempts: defaultMaxNameAttempts,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
