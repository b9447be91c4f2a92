package services

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrExternalTool  = errors.New("external tool error")
	ErrValidation    = errors.New("validation error")
	ErrConfiguration = errors.New("configuration error")
	ErrNotFound      = errors.New("not found")
	ErrTimeout       = errors.New("timeout")
	ErrTransient     = errors.New("transient failure")
)

// Wrap builds an error message that includes component context while tagging it
// with the provided marker for later classification. The marker should be one
// of the exported sentinel errors above.
func Wrap(marker error, component, operation, message string, err error) error {
	detail := buildDetail(component, operation, message)
	if marker == nil {
		marker = ErrTransient
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

// Category identifies the broad failure class of a wrapped error.
type Category string

const (
	CategoryExternalTool  Category = "external_tool"
	CategoryValidation    Category = "validation"
	CategoryConfiguration Category = "configuration"
	CategoryNotFound      Category = "not_found"
	CategoryTimeout       Category = "timeout"
	CategoryTransient     Category = "transient"
)

// Classify maps an error to its failure category. Unmarked errors classify as
// transient so callers treat them as retryable.
func Classify(err error) Category {
	switch {
	case errors.Is(err, ErrTimeout):
		return CategoryTimeout
	case errors.Is(err, ErrExternalTool):
		return CategoryExternalTool
	case errors.Is(err, ErrValidation):
		return CategoryValidation
	case errors.Is(err, ErrConfiguration):
		return CategoryConfiguration
	case errors.Is(err, ErrNotFound):
		return CategoryNotFound
	default:
		return CategoryTransient
	}
}

// Hint returns a short operator-facing suggestion for a failure category.
func Hint(category Category) string {
	switch category {
	case CategoryExternalTool:
		return "check that the transcriber command runs by hand"
	case CategoryTimeout:
		return "raise transcriber.timeout_seconds or split the recording"
	case CategoryConfiguration:
		return "run 'scribe config validate'"
	case CategoryNotFound:
		return "verify the file still exists in the incoming directory"
	case CategoryValidation:
		return "inspect the source file for corruption"
	default:
		return "check the daemon log for details"
	}
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
