package catalog

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"autotrans/internal/services"
	"autotrans/internal/toolexec"
)

// Bundler builds the transfer-description file for an output directory.
type Bundler interface {
	Build(ctx context.Context, sourceDir, dest string) (string, error)
}

// BundlerOption configures a CommandBundler.
type BundlerOption func(*CommandBundler)

// WithBundleExecutor injects a custom executor (primarily for tests).
func WithBundleExecutor(exec toolexec.Executor) BundlerOption {
	return func(b *CommandBundler) {
		if exec != nil {
			b.exec = exec
		}
	}
}

// CommandBundler runs mktorrent (or a compatible tool).
type CommandBundler struct {
	binary      string
	announce    string
	source      string
	pieceLength int
	exec        toolexec.Executor
}

// NewCommandBundler constructs a bundler for the given announce URL and
// source tag.
func NewCommandBundler(binary, announce, source string, pieceLength int, opts ...BundlerOption) *CommandBundler {
	b := &CommandBundler{
		binary:      strings.TrimSpace(binary),
		announce:    announce,
		source:      source,
		pieceLength: pieceLength,
		exec:        toolexec.CommandExecutor{},
	}
	if b.binary == "" {
		b.binary = "mktorrent"
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Args returns the command line used to bundle sourceDir into dest.
func (b *CommandBundler) Args(sourceDir, dest string) []string {
	return []string{
		"-p",
		"-s", b.source,
		"-a", b.announce,
		"-o", dest,
		"-l", strconv.Itoa(b.pieceLength),
		sourceDir,
	}
}

// Build writes the bundle file for sourceDir to dest and returns dest.
func (b *CommandBundler) Build(ctx context.Context, sourceDir, dest string) (string, error) {
	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return "", services.Wrap(services.ErrTransient, "bundle", "prepare", "create bundle directory", err)
	}
	if _, err := b.exec.Run(ctx, b.binary, b.Args(sourceDir, dest)); err != nil {
		return "", services.Wrap(services.ErrExternalTool, "bundle", "build", fmt.Sprintf("failed to build bundle for %s", sourceDir), err)
	}
	return dest, nil
}
