package audio

import (
	"strings"

	"autotrans/internal/config"
	"autotrans/internal/toolexec"
)

// Option configures a Toolkit.
type Option func(*Toolkit)

// WithExecutor injects a custom executor (primarily for tests).
func WithExecutor(exec toolexec.Executor) Option {
	return func(t *Toolkit) {
		if exec != nil {
			t.exec = exec
		}
	}
}

// Toolkit bundles the audio helper binaries.
type Toolkit struct {
	ffprobe  string
	flac     string
	sox      string
	metaflac string
	ffmpeg   string
	exec     toolexec.Executor
}

// New constructs a Toolkit from configuration.
func New(cfg *config.Config, opts ...Option) *Toolkit {
	t := &Toolkit{
		ffprobe:  binaryOr(cfg.Transcode.FFprobeBinary, "ffprobe"),
		flac:     binaryOr(cfg.Transcode.FlacBinary, "flac"),
		sox:      binaryOr(cfg.Transcode.SoxBinary, "sox"),
		metaflac: binaryOr(cfg.Transcode.MetaflacBinary, "metaflac"),
		ffmpeg:   binaryOr(cfg.Transcode.FFmpegBinary, "ffmpeg"),
		exec:     toolexec.CommandExecutor{},
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Executor returns the executor used for every tool call.
func (t *Toolkit) Executor() toolexec.Executor { return t.exec }

func binaryOr(value, fallback string) string {
	if value = strings.TrimSpace(value); value != "" {
		return value
	}
	return fallback
}
