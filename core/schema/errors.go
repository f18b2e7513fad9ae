package schema

import (
	"fmt"
	"strings"
)

// Issue is a single validation failure with the path of the offending value.
type Issue struct {
	Path    string `json:"path,omitempty"`
	Message string `json:"message"`
}

func (i Issue) String() string {
	if i.Path == "" {
		return i.Message
	}
	return i.Path + ": " + i.Message
}

// ValidationError reports one or more invalid input values.
// It always carries every issue found, never just the first.
type ValidationError struct {
	Issues []Issue
}

// NewValidationError creates a ValidationError from a non-empty issue list.
func NewValidationError(issues []Issue) *ValidationError {
	return &ValidationError{Issues: issues}
}

func (e *ValidationError) Error() string {
	if len(e.Issues) == 0 {
		return "validation failed"
	}
	msgs := make([]string, len(e.Issues))
	for i, issue := range e.Issues {
		msgs[i] = issue.String()
	}
	return "validation failed: " + strings.Join(msgs, "; ")
}

// Add appends an issue.
func (e *ValidationError) Add(path, format string, args ...any) {
	e.Issues = append(e.Issues, Issue{Path: path, Message: fmt.Sprintf(format, args...)})
}

// ConfigError reports an invalid declaration: an unknown field type, a
// reserved or duplicate field name, a malformed table or plugin id.
// Configuration errors are fatal at construction time and never retried.
type ConfigError struct {
	Msg string
}

func (e *ConfigError) Error() string {
	return e.Msg
}

// Configf creates a ConfigError.
func Configf(format string, args ...any) *ConfigError {
	return &ConfigError{Msg: fmt.Sprintf(format, args...)}
}
