package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrPermanent marks catalog rule rejections that must never be retried.
	ErrPermanent = errors.New("permanent rejection")
	// ErrDeferred marks time-gated items that become eligible later.
	ErrDeferred = errors.New("deferred")
	// ErrTransient marks network, filesystem, or tool failures.
	ErrTransient = errors.New("transient failure")
	// ErrExternalTool marks failures reported by an external program.
	ErrExternalTool = errors.New("external tool error")
	// ErrTimeout marks an external call that exceeded its deadline.
	ErrTimeout = errors.New("timeout")
	// ErrValidation marks an invalid release shape detected during construction.
	ErrValidation = errors.New("validation error")
	// ErrNaming marks output naming conflicts.
	ErrNaming = errors.New("naming conflict")
	// ErrConfiguration marks unusable configuration.
	ErrConfiguration = errors.New("configuration error")
	// ErrCatalog marks catalog protocol failures.
	ErrCatalog = errors.New("catalog error")
	// ErrNotFound marks references the catalog does not know.
	ErrNotFound = errors.New("not found")
	// ErrAborted marks failures that must stop the whole batch run.
	ErrAborted = errors.New("batch aborted")
)

// Wrap builds an error message that includes stage context while tagging it with
// the provided marker for later classification. The marker should be one
// of the exported sentinel errors above.
func Wrap(marker error, stage, operation, message string, err error) error {
	detail := buildDetail(stage, operation, message)
	if marker == nil {
		marker = ErrTransient
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

// IsBatchAbort reports whether err must cross the per-release isolation
// boundary instead of being recorded as a ledger outcome.
func IsBatchAbort(err error) bool {
	if err == nil {
		return false
	}
	return errors.Is(err, ErrAborted) || errors.Is(err, context.Canceled)
}

// IsFatalConstruction reports whether err describes an invalid release shape.
func IsFatalConstruction(err error) bool {
	return errors.Is(err, ErrValidation)
}

func buildDetail(stage, operation, message string) string {
	parts := make([]string, 0, 3)
	if stage = strings.TrimSpace(stage); stage != "" {
		parts = append(parts, stage)
	}
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if message = strings.TrimSpace(message); message != "" {
		parts = append(parts, message)
	}
	if len(parts) == 0 {
		return "service failure"
	}
	return strings.Join(parts, ": ")
}
