package ux

import (
	"fmt"
	"strings"

	clierrors "github.com/felixgeelhaar/approvals/internal/errors"
)

// ErrorWithSuggestion wraps an error with helpful recovery suggestions
type ErrorWithSuggestion struct {
	Err        error
	Suggestion string
}

// Error implements the error interface
func (e *ErrorWithSuggestion) Error() string {
	if e.Suggestion != "" {
		return fmt.Sprintf("%v\n\n💡 Suggestion: %s", e.Err, e.Suggestion)
	}
	return e.Err.Error()
}

// Unwrap provides access to the underlying error
func (e *ErrorWithSuggestion) Unwrap() error {
	return e.Err
}

// NewErrorWithSuggestion creates a new error with a suggestion
func NewErrorWithSuggestion(err error, suggestion string) error {
	if err == nil {
		return nil
	}
	return &ErrorWithSuggestion{
		Err:        err,
		Suggestion: suggestion,
	}
}

// EnhanceError adds a suggestion to errors that did not come from the
// workflow client. Coded errors already carry their own.
func EnhanceError(err error) error {
	if err == nil {
		return nil
	}
	if _, ok := clierrors.As(err); ok {
		return err
	}

	errMsg := err.Error()

	if strings.Contains(errMsg, "permission denied") {
		return NewErrorWithSuggestion(err,
			"Check permissions on ~/.approvals or pass --state-dir")
	}

	if strings.Contains(errMsg, "connection refused") || strings.Contains(errMsg, "no such host") {
		return NewErrorWithSuggestion(err,
			"Check --api-url (or APPROVALS_API_URL) and that the server is running")
	}

	if strings.Contains(errMsg, "unknown format") {
		return NewErrorWithSuggestion(err,
			"Use --format text, json or yaml")
	}

	if strings.Contains(errMsg, "invalid api url") {
		return NewErrorWithSuggestion(err,
			"Set an absolute URL such as http://localhost:8000 with 'approvals config set api.url'")
	}

	return err
}

// RenderError formats err for the terminal: the user-facing message
// first, then the code and suggestions.
func RenderError(err error, s Styles) string {
	if err == nil {
		return ""
	}
	ce, ok := clierrors.As(err)
	if !ok {
		return s.Error.Render("Error:") + " " + EnhanceError(err).Error()
	}

	var b strings.Builder
	b.WriteString(s.Error.Render("Error:"))
	b.WriteString(" ")
	b.WriteString(ce.Message)
	b.WriteString(" ")
	b.WriteString(s.Muted.Render(fmt.Sprintf("[%s]", ce.Code)))
	for _, suggestion := range ce.Suggestions {
		b.WriteString("\n  • ")
		b.WriteString(suggestion)
	}
	return b.String()
}
