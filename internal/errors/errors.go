// Package errors provides centralized error definitions and error handling utilities
// for parley. It defines the failure taxonomy shared by the invoker, the debate
// engine, the session store and the agent-definition validator, plus helpers
// that classify any error into that taxonomy.
//
// # Error Types
//
// Domain-specific errors represent errors from specific subsystems:
//   - InvokeError: a backend process could not be started, failed, or timed out
//   - SessionError: errors related to the persistent session store
//
// Semantic errors represent common error conditions:
//   - NotFoundError: resource not found
//   - ValidationError / ValidationErrors: invalid input (one or many problems)
//   - TimeoutError: operation timed out
//   - IOError: filesystem or storage fault
//
// # Usage
//
//	err := errors.NewInvokeError("codex", errors.ErrInvocationFailed).WithExitCode(2)
//
//	if errors.Is(err, errors.ErrTimeout) { ... }
//
//	switch errors.KindOf(err) {
//	case errors.KindBackendUnavailable:
//	    ...
//	}
//
// # Classification
//
// KindOf maps an error onto the taxonomy (backend unavailable, invocation
// failure, timeout, validation, I/O). ExitCode turns a Kind into a distinct
// process exit status so single-participant flows surface each class
// separately.
package errors

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Re-export standard library functions for convenience.
// This allows callers to import only this package for all error handling.
var (
	Is     = errors.Is
	As     = errors.As
	Unwrap = errors.Unwrap
	New    = errors.New
	Join   = errors.Join
)

// Severity represents the severity level of an error.
type Severity int

const (
	// SeverityDebug is for errors that are useful for debugging but not critical.
	SeverityDebug Severity = iota
	// SeverityInfo is for informational errors that don't indicate a problem.
	SeverityInfo
	// SeverityWarning is for errors that might indicate a problem but aren't critical.
	SeverityWarning
	// SeverityError is for errors that indicate a real problem.
	SeverityError
	// SeverityCritical is for errors that require immediate attention.
	SeverityCritical
)

// String returns the string representation of the severity level.
func (s Severity) String() string {
	switch s {
	case SeverityDebug:
		return "debug"
	case SeverityInfo:
		return "info"
	case SeverityWarning:
		return "warning"
	case SeverityError:
		return "error"
	case SeverityCritical:
		return "critical"
	default:
		return "unknown"
	}
}

// -----------------------------------------------------------------------------
// Sentinel Errors
// -----------------------------------------------------------------------------

// Invocation sentinel errors
var (
	// ErrBackendUnavailable indicates the backend executable could not be found or started.
	ErrBackendUnavailable = New("backend unavailable")
	// ErrInvocationFailed indicates the backend exited nonzero or produced unreadable output.
	ErrInvocationFailed = New("invocation failed")
	// ErrUnknownBackend indicates an identifier that is neither a builtin nor a plugin.
	ErrUnknownBackend = New("unknown backend")
)

// Session sentinel errors
var (
	// ErrSessionNotFound indicates that a session could not be found.
	ErrSessionNotFound = New("session not found")
	// ErrSessionCorrupted indicates that session data could not be decoded.
	ErrSessionCorrupted = New("session data corrupted")
)

// General sentinel errors
var (
	// ErrTimeout indicates that an operation timed out.
	ErrTimeout = New("operation timed out")
	// ErrCanceled indicates that an operation was canceled.
	ErrCanceled = New("operation canceled")
	// ErrInvalidInput indicates that input validation failed.
	ErrInvalidInput = New("invalid input")
	// ErrIO indicates a filesystem or storage fault.
	ErrIO = New("i/o error")
	// ErrNoResponses indicates a debate where no participant ever responded.
	ErrNoResponses = New("no participant responded")
)

// -----------------------------------------------------------------------------
// Base Error Interface
// -----------------------------------------------------------------------------

// ParleyError is the base interface for all parley errors.
// It extends the standard error interface with additional methods for
// error handling and classification.
type ParleyError interface {
	error

	// Unwrap returns the underlying error, if any.
	Unwrap() error

	// Is reports whether this error matches the target error.
	Is(target error) bool

	// Severity returns the severity level of this error.
	Severity() Severity

	// IsRetryable returns true if the error is transient.
	IsRetryable() bool

	// IsUserFacing returns true if the error message is safe to display
	// to end users.
	IsUserFacing() bool
}

// -----------------------------------------------------------------------------
// Base Error Implementation
// -----------------------------------------------------------------------------

// baseError provides common functionality for all error types.
type baseError struct {
	message    string
	cause      error
	severity   Severity
	retryable  bool
	userFacing bool
}

// Error returns the error message.
func (e *baseError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %v", e.message, e.cause)
	}
	return e.message
}

// Unwrap returns the underlying error.
func (e *baseError) Unwrap() error {
	return e.cause
}

// Is checks if this error matches the target.
func (e *baseError) Is(target error) bool {
	if e.cause != nil {
		return errors.Is(e.cause, target)
	}
	return false
}

// Severity returns the error severity.
func (e *baseError) Severity() Severity {
	return e.severity
}

// IsRetryable returns whether the error is retryable.
func (e *baseError) IsRetryable() bool {
	return e.retryable
}

// IsUserFacing returns whether the error is safe to show users.
func (e *baseError) IsUserFacing() bool {
	return e.userFacing
}

// -----------------------------------------------------------------------------
// Domain-Specific Errors
// -----------------------------------------------------------------------------

// InvokeError represents a failed backend invocation. The cause is one of
// ErrBackendUnavailable, ErrInvocationFailed or a *TimeoutError.
//
// Example:
//
//	err := errors.NewInvokeError("codex", errors.ErrInvocationFailed).WithExitCode(1)
//	fmt.Println(err) // "invoke error [backend=codex, exit=1]: invocation failed"
type InvokeError struct {
	baseError
	Backend  string
	ExitCode int
	Stderr   string
}

// NewInvokeError creates a new InvokeError for the given backend.
func NewInvokeError(backend string, cause error) *InvokeError {
	return &InvokeError{
		baseError: baseError{
			message:    "",
			cause:      cause,
			severity:   SeverityError,
			retryable:  false,
			userFacing: true,
		},
		Backend:  backend,
		ExitCode: -1,
	}
}

// WithExitCode records the process exit status.
func (e *InvokeError) WithExitCode(code int) *InvokeError {
	e.ExitCode = code
	return e
}

// WithStderr records the (already trimmed) tail of the process error stream.
func (e *InvokeError) WithStderr(stderr string) *InvokeError {
	e.Stderr = stderr
	return e
}

// WithMessage sets an additional human-readable message.
func (e *InvokeError) WithMessage(msg string) *InvokeError {
	e.message = msg
	return e
}

// Error returns the formatted error message.
func (e *InvokeError) Error() string {
	var parts []string
	if e.Backend != "" {
		parts = append(parts, fmt.Sprintf("backend=%s", e.Backend))
	}
	if e.ExitCode >= 0 {
		parts = append(parts, fmt.Sprintf("exit=%d", e.ExitCode))
	}

	prefix := "invoke error"
	if len(parts) > 0 {
		prefix = fmt.Sprintf("invoke error [%s]", strings.Join(parts, ", "))
	}

	msg := prefix
	if e.message != "" {
		msg = fmt.Sprintf("%s: %s", msg, e.message)
	}
	if e.cause != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.cause)
	}
	if e.Stderr != "" {
		msg = fmt.Sprintf("%s (stderr: %s)", msg, e.Stderr)
	}
	return msg
}

// Is checks if this error matches the target.
func (e *InvokeError) Is(target error) bool {
	if _, ok := target.(*InvokeError); ok {
		return true
	}
	return e.baseError.Is(target)
}

// SessionError represents errors related to session management.
//
// Example:
//
//	err := errors.NewSessionError("failed to load session", errors.ErrSessionNotFound)
//	err = err.WithSessionName("auth-review")
//	fmt.Println(err) // "session error [session=auth-review]: failed to load session: session not found"
type SessionError struct {
	baseError
	SessionName string
}

// NewSessionError creates a new SessionError.
func NewSessionError(message string, cause error) *SessionError {
	return &SessionError{
		baseError: baseError{
			message:    message,
			cause:      cause,
			severity:   SeverityError,
			retryable:  false,
			userFacing: true,
		},
	}
}

// WithSessionName adds a session name to the error context.
func (e *SessionError) WithSessionName(name string) *SessionError {
	e.SessionName = name
	return e
}

// WithSeverity sets the error severity.
func (e *SessionError) WithSeverity(s Severity) *SessionError {
	e.severity = s
	return e
}

// Error returns the formatted error message.
func (e *SessionError) Error() string {
	prefix := "session error"
	if e.SessionName != "" {
		prefix = fmt.Sprintf("session error [session=%s]", e.SessionName)
	}

	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", prefix, e.message, e.cause)
	}
	return fmt.Sprintf("%s: %s", prefix, e.message)
}

// Is checks if this error matches the target.
func (e *SessionError) Is(target error) bool {
	if _, ok := target.(*SessionError); ok {
		return true
	}
	return e.baseError.Is(target)
}

// -----------------------------------------------------------------------------
// Semantic Errors
// -----------------------------------------------------------------------------

// NotFoundError represents a resource that could not be found.
//
// Example:
//
//	err := errors.NewNotFoundError("template", "code-review")
//	fmt.Println(err) // "template 'code-review' not found"
type NotFoundError struct {
	baseError
	ResourceType string
	ResourceID   string
}

// NewNotFoundError creates a new NotFoundError.
func NewNotFoundError(resourceType, resourceID string) *NotFoundError {
	return &NotFoundError{
		baseError: baseError{
			message:    fmt.Sprintf("%s '%s' not found", resourceType, resourceID),
			severity:   SeverityWarning,
			retryable:  false,
			userFacing: true,
		},
		ResourceType: resourceType,
		ResourceID:   resourceID,
	}
}

// WithCause adds a cause to the error.
func (e *NotFoundError) WithCause(cause error) *NotFoundError {
	e.cause = cause
	return e
}

// Error returns the formatted error message.
func (e *NotFoundError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s '%s' not found: %v", e.ResourceType, e.ResourceID, e.cause)
	}
	return fmt.Sprintf("%s '%s' not found", e.ResourceType, e.ResourceID)
}

// Is checks if this error matches the target.
func (e *NotFoundError) Is(target error) bool {
	if _, ok := target.(*NotFoundError); ok {
		return true
	}
	return e.baseError.Is(target)
}

// ValidationError represents invalid input or state.
//
// Example:
//
//	err := errors.NewValidationError("must not be empty").WithField("participants[0].persona")
type ValidationError struct {
	baseError
	Field string
	Value any
}

// NewValidationError creates a new ValidationError.
func NewValidationError(message string) *ValidationError {
	return &ValidationError{
		baseError: baseError{
			message:    message,
			severity:   SeverityWarning,
			retryable:  false,
			userFacing: true,
		},
	}
}

// WithField adds a field name to the error context.
func (e *ValidationError) WithField(field string) *ValidationError {
	e.Field = field
	return e
}

// WithValue adds the invalid value to the error context.
func (e *ValidationError) WithValue(value any) *ValidationError {
	e.Value = value
	return e
}

// WithCause adds a cause to the error.
func (e *ValidationError) WithCause(cause error) *ValidationError {
	e.cause = cause
	return e
}

// Message returns the bare validation message without field context.
func (e *ValidationError) Message() string {
	return e.message
}

// Error returns the formatted error message.
func (e *ValidationError) Error() string {
	var parts []string
	if e.Field != "" {
		parts = append(parts, fmt.Sprintf("field=%s", e.Field))
	}
	if e.Value != nil {
		parts = append(parts, fmt.Sprintf("value=%v", e.Value))
	}

	prefix := "validation error"
	if len(parts) > 0 {
		prefix = fmt.Sprintf("validation error [%s]", strings.Join(parts, ", "))
	}

	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", prefix, e.message, e.cause)
	}
	return fmt.Sprintf("%s: %s", prefix, e.message)
}

// Is checks if this error matches the target.
func (e *ValidationError) Is(target error) bool {
	if _, ok := target.(*ValidationError); ok {
		return true
	}
	if errors.Is(target, ErrInvalidInput) {
		return true
	}
	return e.baseError.Is(target)
}

// ValidationErrors aggregates every validation failure found in one pass so
// callers can report them together.
type ValidationErrors []*ValidationError

// Error implements the error interface.
func (e ValidationErrors) Error() string {
	if len(e) == 0 {
		return ""
	}
	if len(e) == 1 {
		return e[0].Error()
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "%d validation errors:\n", len(e))
	for i, err := range e {
		fmt.Fprintf(&sb, "  %d. %s\n", i+1, err.Error())
	}
	return strings.TrimSuffix(sb.String(), "\n")
}

// Is reports a match for ErrInvalidInput and *ValidationError targets.
func (e ValidationErrors) Is(target error) bool {
	if _, ok := target.(*ValidationError); ok {
		return len(e) > 0
	}
	return errors.Is(target, ErrInvalidInput) && len(e) > 0
}

// ErrOrNil returns nil for an empty list so callers can return it directly.
func (e ValidationErrors) ErrOrNil() error {
	if len(e) == 0 {
		return nil
	}
	return e
}

// TimeoutError represents an operation that timed out.
//
// Example:
//
//	err := errors.NewTimeoutError("invoking gemini", 30*time.Second)
//	fmt.Println(err) // "timeout error: invoking gemini (timeout: 30s)"
type TimeoutError struct {
	baseError
	Operation string
	Duration  time.Duration
}

// NewTimeoutError creates a new TimeoutError.
func NewTimeoutError(operation string, duration time.Duration) *TimeoutError {
	return &TimeoutError{
		baseError: baseError{
			message:    operation,
			severity:   SeverityWarning,
			retryable:  true,
			userFacing: true,
		},
		Operation: operation,
		Duration:  duration,
	}
}

// WithCause adds a cause to the error.
func (e *TimeoutError) WithCause(cause error) *TimeoutError {
	e.cause = cause
	return e
}

// Error returns the formatted error message.
func (e *TimeoutError) Error() string {
	base := fmt.Sprintf("timeout error: %s (timeout: %s)", e.Operation, e.Duration)
	if e.cause != nil {
		return fmt.Sprintf("%s: %v", base, e.cause)
	}
	return base
}

// Is checks if this error matches the target.
func (e *TimeoutError) Is(target error) bool {
	if _, ok := target.(*TimeoutError); ok {
		return true
	}
	if errors.Is(target, ErrTimeout) {
		return true
	}
	return e.baseError.Is(target)
}

// IOError represents a filesystem or storage fault.
//
// Example:
//
//	err := errors.NewIOError("write", "/tmp/sessions/foo.json", cause)
//	fmt.Println(err) // "i/o error [op=write, path=/tmp/sessions/foo.json]: ..."
type IOError struct {
	baseError
	Op   string
	Path string
}

// NewIOError creates a new IOError.
func NewIOError(op, path string, cause error) *IOError {
	return &IOError{
		baseError: baseError{
			message:    op,
			cause:      cause,
			severity:   SeverityError,
			retryable:  false,
			userFacing: true,
		},
		Op:   op,
		Path: path,
	}
}

// Error returns the formatted error message.
func (e *IOError) Error() string {
	prefix := fmt.Sprintf("i/o error [op=%s, path=%s]", e.Op, e.Path)
	if e.cause != nil {
		return fmt.Sprintf("%s: %v", prefix, e.cause)
	}
	return prefix
}

// Is checks if this error matches the target.
func (e *IOError) Is(target error) bool {
	if _, ok := target.(*IOError); ok {
		return true
	}
	if errors.Is(target, ErrIO) {
		return true
	}
	return e.baseError.Is(target)
}

// -----------------------------------------------------------------------------
// Error Classification Helpers
// -----------------------------------------------------------------------------

// IsRetryable returns true if the error represents a transient condition
// that may succeed on retry.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}

	var parleyErr ParleyError
	if As(err, &parleyErr) {
		return parleyErr.IsRetryable()
	}

	return Is(err, ErrTimeout)
}

// IsUserFacing returns true if the error message is safe to display to end users.
func IsUserFacing(err error) bool {
	if err == nil {
		return false
	}

	var parleyErr ParleyError
	if As(err, &parleyErr) {
		return parleyErr.IsUserFacing()
	}

	var validation ValidationErrors
	return As(err, &validation)
}

// GetSeverity returns the severity level of the error.
// Returns SeverityError for errors that don't implement ParleyError.
func GetSeverity(err error) Severity {
	if err == nil {
		return SeverityDebug
	}

	var parleyErr ParleyError
	if As(err, &parleyErr) {
		return parleyErr.Severity()
	}

	return SeverityError
}

// Kind is the failure class of an error.
type Kind string

const (
	KindNone               Kind = ""
	KindBackendUnavailable Kind = "backend_unavailable"
	KindInvocationFailure  Kind = "invocation_failure"
	KindTimeout            Kind = "timeout"
	KindValidation         Kind = "validation"
	KindIO                 Kind = "io"
	KindCanceled           Kind = "canceled"
	KindNoResponses        Kind = "no_responses"
	KindUnknown            Kind = "unknown"
)

// KindOf classifies err. Order matters: a timeout wrapped in an InvokeError
// is a timeout, not an invocation failure.
func KindOf(err error) Kind {
	switch {
	case err == nil:
		return KindNone
	case Is(err, ErrTimeout):
		return KindTimeout
	case Is(err, ErrCanceled):
		return KindCanceled
	case Is(err, ErrBackendUnavailable), Is(err, ErrUnknownBackend):
		return KindBackendUnavailable
	case Is(err, ErrInvocationFailed):
		return KindInvocationFailure
	case Is(err, ErrInvalidInput), Is(err, ErrSessionNotFound):
		return KindValidation
	case Is(err, ErrIO), Is(err, ErrSessionCorrupted):
		return KindIO
	case Is(err, ErrNoResponses):
		return KindNoResponses
	default:
		return KindUnknown
	}
}

// Process exit statuses, one per Kind.
const (
	ExitOK                 = 0
	ExitUnknown            = 1
	ExitValidation         = 2
	ExitBackendUnavailable = 3
	ExitInvocationFailure  = 4
	ExitTimeout            = 5
	ExitIO                 = 6
	ExitNoResponses        = 7
	ExitCanceled           = 130
)

// ExitCode returns the process exit status for a Kind.
func ExitCode(kind Kind) int {
	switch kind {
	case KindNone:
		return ExitOK
	case KindValidation:
		return ExitValidation
	case KindBackendUnavailable:
		return ExitBackendUnavailable
	case KindInvocationFailure:
		return ExitInvocationFailure
	case KindTimeout:
		return ExitTimeout
	case KindIO:
		return ExitIO
	case KindNoResponses:
		return ExitNoResponses
	case KindCanceled:
		return ExitCanceled
	default:
		return ExitUnknown
	}
}

// -----------------------------------------------------------------------------
// Convenience Constructors
// -----------------------------------------------------------------------------

// Wrap wraps an error with additional context message.
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}

// Wrapf wraps an error with a formatted context message.
func Wrapf(err error, format string, args ...any) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), err)
}
