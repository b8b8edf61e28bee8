// Package toolexec runs the external programs the pipeline delegates to
// (codec converter, flac, sox, ffprobe, metaflac, mktorrent, log checkers).
package toolexec

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"autotrans/internal/services"
)

// waitDelay bounds how long Run waits for output pipes held open by
// grandchildren after the command itself was killed.
const waitDelay = 5 * time.Second

// Executor abstracts command execution for testability.
type Executor interface {
	Run(ctx context.Context, binary string, args []string) ([]byte, error)
}

// CommandExecutor runs binaries with os/exec and returns combined output.
type CommandExecutor struct{}

// Run executes binary and returns its combined stdout/stderr. A context
// deadline is reported as services.ErrTimeout; other failures carry the
// tool output and services.ErrExternalTool.
func (CommandExecutor) Run(ctx context.Context, binary string, args []string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, binary, args...) //nolint:gosec
	var out bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &out
	cmd.WaitDelay = waitDelay
	err := cmd.Run()
	if err == nil {
		return out.Bytes(), nil
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		if errors.Is(ctxErr, context.DeadlineExceeded) {
			return out.Bytes(), services.Wrap(services.ErrTimeout, binary, "run", "deadline exceeded", ctxErr)
		}
		return out.Bytes(), ctxErr
	}
	return out.Bytes(), &Error{Binary: binary, Args: args, Output: out.String(), Err: err}
}

// Error describes a failed external command.
type Error struct {
	Binary string
	Args   []string
	Output string
	Err    error
}

func (e *Error) Error() string {
	msg := fmt.Sprintf("%s failed: %v", e.Binary, e.Err)
	if output := strings.TrimSpace(e.Output); output != "" {
		msg += "\nArguments: " + strings.Join(e.Args, " ") + "\nOutput: " + output
	}
	return msg
}

// Unwrap exposes both the process error and the external tool marker.
func (e *Error) Unwrap() []error { return []error{e.Err, services.ErrExternalTool} }
