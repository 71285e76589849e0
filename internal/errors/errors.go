package errors

import (
	stderrors "errors"
	"fmt"
	"strings"
)

// ErrorCode represents a unique error identifier
type ErrorCode string

// Kind groups error codes by the operation family that produced them.
type Kind string

const (
	KindAuth       Kind = "auth"
	KindValidation Kind = "validation"
	KindAction     Kind = "action"
	KindFetch      Kind = "fetch"
	KindConfig     Kind = "config"
	KindStore      Kind = "store"
)

// Error categories
const (
	// Auth errors (AUTH-001 to AUTH-099)
	ErrCodeAuthRejected  ErrorCode = "AUTH-001"
	ErrCodeAuthRequired  ErrorCode = "AUTH-002"
	ErrCodeAuthForbidden ErrorCode = "AUTH-003"
	ErrCodeAuthMissing   ErrorCode = "AUTH-004"

	// Validation errors (VALIDATION-001 to VALIDATION-099)
	ErrCodeFieldRequired   ErrorCode = "VALIDATION-001"
	ErrCodeWorkflowInvalid ErrorCode = "VALIDATION-002"
	ErrCodeArgumentInvalid ErrorCode = "VALIDATION-003"

	// Action errors (ACTION-001 to ACTION-099)
	ErrCodeActionRejected   ErrorCode = "ACTION-001"
	ErrCodeActionInProgress ErrorCode = "ACTION-002"
	ErrCodeSubmitFailed     ErrorCode = "ACTION-003"
	ErrCodeWorkflowSave     ErrorCode = "ACTION-004"

	// Fetch errors (FETCH-001 to FETCH-099)
	ErrCodeFetchFailed ErrorCode = "FETCH-001"
	ErrCodeFetchDecode ErrorCode = "FETCH-002"

	// Connectivity (NET-001). Carried by whichever kind the operation belongs to.
	ErrCodeUnreachable ErrorCode = "NET-001"

	ErrCodeConfig ErrorCode = "CONFIG-001"
	ErrCodeStore  ErrorCode = "STORE-001"
)

// Sentinels for errors.Is. Kind sentinels match any code of that kind;
// ErrConnectivity matches NET-001 regardless of kind.
var (
	ErrAuth         = &ClientError{Kind: KindAuth}
	ErrValidation   = &ClientError{Kind: KindValidation}
	ErrAction       = &ClientError{Kind: KindAction}
	ErrFetch        = &ClientError{Kind: KindFetch}
	ErrConnectivity = &ClientError{Code: ErrCodeUnreachable}
)

// ClientError is a coded error with a user-facing message and suggestions.
// Message is what the user sees in a notification; Error() adds the code,
// cause and suggestions for logs and the CLI.
type ClientError struct {
	Code        ErrorCode
	Kind        Kind
	Message     string
	Status      int
	Suggestions []string
	Cause       error
}

// Error implements the error interface
func (e *ClientError) Error() string {
	var b strings.Builder

	b.WriteString(fmt.Sprintf("[%s] %s", e.Code, e.Message))

	if e.Cause != nil {
		b.WriteString(fmt.Sprintf(": %v", e.Cause))
	}

	if len(e.Suggestions) > 0 {
		b.WriteString("\n\nSuggestions:")
		for _, suggestion := range e.Suggestions {
			b.WriteString(fmt.Sprintf("\n  • %s", suggestion))
		}
	}

	return b.String()
}

// Unwrap implements error unwrapping for errors.Is and errors.As
func (e *ClientError) Unwrap() error {
	return e.Cause
}

// Is matches sentinels by kind or by code.
func (e *ClientError) Is(target error) bool {
	t, ok := target.(*ClientError)
	if !ok {
		return false
	}
	if t.Code != "" && t.Code != e.Code {
		return false
	}
	if t.Kind != "" && t.Kind != e.Kind {
		return false
	}
	return t.Code != "" || t.Kind != ""
}

// IsConnectivity reports whether the error came from an unreachable server.
func (e *ClientError) IsConnectivity() bool {
	return e.Code == ErrCodeUnreachable
}

// New creates a new ClientError
func New(kind Kind, code ErrorCode, message string) *ClientError {
	return &ClientError{
		Code:    code,
		Kind:    kind,
		Message: message,
	}
}

// Wrap creates a new ClientError wrapping an existing error
func Wrap(kind Kind, code ErrorCode, message string, cause error) *ClientError {
	return &ClientError{
		Code:    code,
		Kind:    kind,
		Message: message,
		Cause:   cause,
	}
}

// WithStatus records the HTTP status the server answered with.
func (e *ClientError) WithStatus(status int) *ClientError {
	e.Status = status
	return e
}

// WithSuggestion adds a suggestion to the error
func (e *ClientError) WithSuggestion(suggestion string) *ClientError {
	e.Suggestions = append(e.Suggestions, suggestion)
	return e
}

// WithSuggestions adds multiple suggestions to the error
func (e *ClientError) WithSuggestions(suggestions ...string) *ClientError {
	e.Suggestions = append(e.Suggestions, suggestions...)
	return e
}

// As extracts the first ClientError in err's chain.
func As(err error) (*ClientError, bool) {
	var ce *ClientError
	if stderrors.As(err, &ce) {
		return ce, true
	}
	return nil, false
}

// UserMessage returns the text to show in a notification: the ClientError
// message when there is one, otherwise err.Error().
func UserMessage(err error) string {
	if err == nil {
		return ""
	}
	if ce, ok := As(err); ok {
		return ce.Message
	}
	return err.Error()
}

// Common error constructors for frequently used errors

// NewAuthError reports rejected credentials with the server's reason.
func NewAuthError(message string, status int) *ClientError {
	return New(KindAuth, ErrCodeAuthRejected, message).
		WithStatus(status).
		WithSuggestion("Check the email and password and try again")
}

// NewNotLoggedInError is returned when an operation needs a session.
func NewNotLoggedInError() *ClientError {
	return New(KindAuth, ErrCodeAuthRequired, "not logged in").
		WithSuggestion("Run 'approvals auth login' to start a session")
}

// NewForbiddenError is returned when the session role may not perform an operation.
func NewForbiddenError(role, operation string) *ClientError {
	return New(KindAuth, ErrCodeAuthForbidden, fmt.Sprintf("role %s cannot %s", role, operation)).
		WithSuggestion("Log in with an account that has the required role")
}

// NewCredentialsRequiredError is returned by login when the email or the
// password is blank. No request is sent.
func NewCredentialsRequiredError() *ClientError {
	return New(KindAuth, ErrCodeAuthMissing, "email and password required").
		WithSuggestion("Pass --email with --password or --password-stdin")
}

// NewFieldRequiredError reports a missing required input.
func NewFieldRequiredError(fields ...string) *ClientError {
	return New(KindValidation, ErrCodeFieldRequired, fmt.Sprintf("%s required", strings.Join(fields, " and "))).
		WithSuggestion("Fill in every required field before submitting")
}

// NewWorkflowInvalidError reports a workflow order that cannot be saved.
func NewWorkflowInvalidError(cause error) *ClientError {
	return Wrap(KindValidation, ErrCodeWorkflowInvalid, "invalid workflow", cause).
		WithSuggestion("Keep at least one stage in the workflow")
}

// NewArgumentError reports an unusable argument such as a bad id or role.
func NewArgumentError(message string) *ClientError {
	return New(KindValidation, ErrCodeArgumentInvalid, message)
}

// NewActionInProgressError is returned when a second mutation for the same
// request is attempted while one is in flight.
func NewActionInProgressError(id int64) *ClientError {
	return New(KindAction, ErrCodeActionInProgress, fmt.Sprintf("action already in progress for request #%d", id)).
		WithSuggestion("Wait for the current action to finish")
}

// NewConnectivityError reports an unreachable server for an operation of the
// given kind. The message stays generic; the cause carries the details.
func NewConnectivityError(kind Kind, cause error) *ClientError {
	return Wrap(kind, ErrCodeUnreachable, "cannot reach the approval server", cause).
		WithSuggestion("Check the --api-url setting and your network connection")
}

// NewConfigError wraps a configuration load or save failure.
func NewConfigError(message string, cause error) *ClientError {
	return Wrap(KindConfig, ErrCodeConfig, message, cause)
}

// NewStoreError wraps a session storage failure.
func NewStoreError(message string, cause error) *ClientError {
	return Wrap(KindStore, ErrCodeStore, message, cause).
		WithSuggestion("Check permissions on the state directory")
}
