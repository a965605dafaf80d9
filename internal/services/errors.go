package services

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrInsufficientCredits is a gate failure: the flow was refused before
	// any side effect.
	ErrInsufficientCredits = errors.New("insufficient credits")

	// ErrProcessingActive is a gate failure: another processing flow holds
	// the single-flight slot.
	ErrProcessingActive = errors.New("processing already in progress")

	// ErrTransport covers network errors and non-success statuses.
	ErrTransport = errors.New("transport failure")

	// ErrTimeout marks a bounded call that exceeded its deadline.
	ErrTimeout = errors.New("timeout")

	// ErrPermission marks denied storage or directory access. It always has
	// a fallback path in delivery; it is never terminal on its own.
	ErrPermission = errors.New("permission denied")

	// ErrMalformedArtifact marks an artifact payload that failed to parse.
	// Isolated to the preview path; raw delivery is unaffected.
	ErrMalformedArtifact = errors.New("malformed artifact payload")

	// ErrNotFound marks a missing entity or endpoint.
	ErrNotFound = errors.New("not found")

	// ErrConfiguration marks unusable configuration.
	ErrConfiguration = errors.New("configuration error")
)

// Wrap builds an error message that includes component context while tagging
// it with the provided marker for later classification. The marker should be
// one of the exported sentinel errors above.
func Wrap(marker error, component, operation, message string, err error) error {
	detail := buildDetail(component, operation, message)
	if marker == nil {
		marker = ErrTransport
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

// IsGateFailure reports whether an error was raised before any side effect.
func IsGateFailure(err error) bool {
	return errors.Is(err, ErrInsufficientCredits) || errors.Is(err, ErrProcessingActive)
}

func buildDetail(component, operation, message string) string {
	parts := make([]string, 0, 3)
	if component = strings.TrimSpace(component); component != "" {
		parts = append(parts, component)
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
