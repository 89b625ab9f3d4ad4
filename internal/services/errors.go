package services

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrTransient marks failures that should be retried under the stage's
	// backoff policy until the retry budget runs out.
	ErrTransient = errors.New("transient failure")
	// ErrPermanent marks failures that must not be retried, such as an
	// upstream feature being explicitly disabled.
	ErrPermanent = errors.New("permanent failure")
	// ErrValidation marks structurally invalid input, such as an empty
	// transcript handed to the summariser. Never retried.
	ErrValidation = errors.New("validation error")
	// ErrConfiguration marks missing or invalid configuration for a stage
	// that has no fallback. Recorded as a failure on the record, never fatal
	// to the process.
	ErrConfiguration = errors.New("configuration error")
)

// Wrap builds an error message that includes stage context while tagging it
// with the provided marker for later transition classification. The marker
// should be one of the exported sentinel errors above.
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

// IsPermanent reports whether a stage error should skip the retry schedule
// and move the record straight to its failed state.
func IsPermanent(err error) bool {
	return errors.Is(err, ErrPermanent) ||
		errors.Is(err, ErrValidation) ||
		errors.Is(err, ErrConfiguration)
}

// IsValidation reports whether an error stems from structurally invalid input.
func IsValidation(err error) bool {
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
