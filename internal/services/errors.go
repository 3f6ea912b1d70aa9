package services

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrUnparsableQuery marks input that yields no usable title after cleanup.
	ErrUnparsableQuery = errors.New("unparsable query")
	// ErrNoCandidates marks a remote search that returned nothing.
	ErrNoCandidates = errors.New("no candidates")
	// ErrRenderFailed marks a poster render failure. Never cached; the next
	// request retries.
	ErrRenderFailed = errors.New("render failed")
	// ErrPublishFailed marks a channel publish failure after retries.
	ErrPublishFailed = errors.New("publish failed")
	// ErrConfiguration marks invalid or missing configuration.
	ErrConfiguration = errors.New("configuration error")
	// ErrNotFound marks a missing record or resource.
	ErrNotFound = errors.New("not found")
	// ErrTransient marks failures worth retrying on a later attempt.
	ErrTransient = errors.New("transient failure")
)

// Wrap builds an error message that includes stage context while tagging it
// with the provided marker for later status classification. The marker should
// be one of the exported sentinel errors above.
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

// Retryable reports whether a later submission of the same query could
// plausibly succeed. Input defects and empty search results are not retried
// automatically.
func Retryable(err error) bool {
	switch {
	case err == nil:
		return false
	case errors.Is(err, ErrUnparsableQuery), errors.Is(err, ErrNoCandidates), errors.Is(err, ErrConfiguration):
		return false
	default:
		return true
	}
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
