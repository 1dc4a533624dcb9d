// Package errors turns low-level backup failures into errors that carry a
// category and suggestions the user can act on.
//
// Basic usage:
//
//	enricher := errors.NewEnricher()
//	if err := engine.Copy(entry, root, false); err != nil {
//	    err = enricher.Enrich(err, entry.Source)
//	    fmt.Println(err)
//	    fmt.Println(errors.FormatSuggestions(err))
//	}
//
// Enriched errors keep the original error in their chain, so errors.Is and
// errors.As still see the cause.
package errors

import (
	"errors"
	"strings"
)

// Exported constants.
const (
	CategoryConfig     ErrorCategory = "config"
	CategoryCopy       ErrorCategory = "copy"
	CategoryDelete     ErrorCategory = "delete"
	CategoryDiskSpace  ErrorCategory = "disk_space"
	CategoryPath       ErrorCategory = "path"
	CategoryPermission ErrorCategory = "permission"
	CategoryRemote     ErrorCategory = "remote"
	CategorySource     ErrorCategory = "source"
	CategoryUnknown    ErrorCategory = "unknown"
)

// ActionableError represents an error with actionable suggestions for the user.
type ActionableError interface {
	error
	OriginalError() string
	Category() ErrorCategory
	Suggestions() []string
	AffectedPath() string
}

// ErrorCategory represents the type of error that occurred.
type ErrorCategory string

// NewActionableError creates a new ActionableError with the given details.
func NewActionableError(
	originalError string,
	category ErrorCategory,
	suggestions []string,
	affectedPath string,
) ActionableError {
	return &actionableError{
		originalError: originalError,
		category:      category,
		suggestions:   suggestions,
		affectedPath:  affectedPath,
	}
}

// FormatSuggestions formats the suggestions carried by err as a bulleted
// list. Returns an empty string if err carries none.
func FormatSuggestions(err error) string {
	var actionable ActionableError
	if err == nil || !errors.As(err, &actionable) {
		return ""
	}

	suggestions := actionable.Suggestions()
	if len(suggestions) == 0 {
		return ""
	}

	var builder strings.Builder

	for i, suggestion := range suggestions {
		if i > 0 {
			builder.WriteString("\n")
		}

		builder.WriteString("  • ")
		builder.WriteString(suggestion)
	}

	return builder.String()
}

// actionableError is the concrete implementation of ActionableError.
type actionableError struct {
	originalError string
	category      ErrorCategory
	suggestions   []string
	affectedPath  string
	cause         error
}

// AffectedPath returns the file path affected by this error.
func (e *actionableError) AffectedPath() string {
	return e.affectedPath
}

// Category returns the error category.
func (e *actionableError) Category() ErrorCategory {
	return e.category
}

// Error implements the error interface.
func (e *actionableError) Error() string {
	return e.originalError
}

// OriginalError returns the original error message.
func (e *actionableError) OriginalError() string {
	return e.originalError
}

// Suggestions returns the list of actionable suggestions.
func (e *actionableError) Suggestions() []string {
	return e.suggestions
}

func (e *actionableError) Unwrap() error {
	return e.cause
}
