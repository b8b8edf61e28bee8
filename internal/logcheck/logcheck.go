// Package logcheck decides whether a rip log found next to a release is an
// authentic extraction log. The checksum itself is verified by an external
// program; this package filters out non-extraction logs and never fails.
package logcheck

import (
	"bytes"
	"context"
	"log/slog"
	"os"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding/unicode"

	"autotrans/internal/logging"
	"autotrans/internal/toolexec"
)

// Verifier reports whether the log at path carries a valid checksum.
// Malformed or unreadable logs are reported as unverified.
type Verifier interface {
	Verify(ctx context.Context, path string) bool
}

// Option configures a CommandVerifier.
type Option func(*CommandVerifier)

// WithExecutor injects a custom executor (primarily for tests).
func WithExecutor(exec toolexec.Executor) Option {
	return func(v *CommandVerifier) {
		if exec != nil {
			v.exec = exec
		}
	}
}

// WithLogger sets the logger used for verification diagnostics.
func WithLogger(logger *slog.Logger) Option {
	return func(v *CommandVerifier) {
		v.logger = logging.NewComponentLogger(logger, "logcheck")
	}
}

// CommandVerifier runs an external checker with the log path as its only
// argument; exit status 0 means the checksum is valid.
type CommandVerifier struct {
	binary string
	exec   toolexec.Executor
	logger *slog.Logger
}

// New returns a verifier for binary. An empty binary verifies nothing.
func New(binary string, opts ...Option) *CommandVerifier {
	v := &CommandVerifier{
		binary: strings.TrimSpace(binary),
		exec:   toolexec.CommandExecutor{},
		logger: logging.NewNop(),
	}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// Verify implements Verifier.
func (v *CommandVerifier) Verify(ctx context.Context, path string) bool {
	if v == nil || v.binary == "" {
		return false
	}
	data, err := os.ReadFile(path)
	if err != nil {
		v.logger.Debug("log unreadable", logging.String("path", path), logging.Error(err))
		return false
	}
	if !IsExtractionLog(data) {
		v.logger.Debug("skipping non-extraction log", logging.String("path", path))
		return false
	}
	if _, err := v.exec.Run(ctx, v.binary, []string{path}); err != nil {
		v.logger.Debug("log checksum not verified", logging.String("path", path), logging.Error(err))
		return false
	}
	return true
}

// CountVerified returns how many of paths verify.
func CountVerified(ctx context.Context, v Verifier, paths []string) int {
	if v == nil {
		return 0
	}
	count := 0
	for _, path := range paths {
		if v.Verify(ctx, path) {
			count++
		}
	}
	return count
}

// IsExtractionLog reports whether data is a ripper log rather than an
// AUDIOCHECKER report.
func IsExtractionLog(data []byte) bool {
	return !strings.Contains(DecodeText(data), "AUDIOCHECKER")
}

// DecodeText returns the log text, decoding UTF-16LE (EAC) logs.
func DecodeText(data []byte) string {
	if looksUTF16LE(data) {
		decoded, err := unicode.UTF16(unicode.LittleEndian, unicode.UseBOM).NewDecoder().Bytes(data)
		if err == nil {
			return string(decoded)
		}
	}
	if utf8.Valid(data) {
		return strings.TrimPrefix(string(data), "\ufeff")
	}
	return string(bytes.ToValidUTF8(data, []byte("\ufffd")))
}

func looksUTF16LE(data []byte) bool {
	if len(data) >= 2 && data[0] == 0xFF && data[1] == 0xFE {
		return true
	}
	if len(data) < 4 || len(data)%2 != 0 {
		return false
	}
	zeros := 0
	for i := 1; i < len(data); i += 2 {
		if data[i] == 0 {
			zeros++
		}
	}
	return zeros*2 > len(data)/2
}
