package errors

import (
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"
)

// -----------------------------------------------------------------------------
// Severity Tests
// -----------------------------------------------------------------------------

func TestSeverity_String(t *testing.T) {
	tests := []struct {
		severity Severity
		want     string
	}{
		{SeverityDebug, "debug"},
		{SeverityInfo, "info"},
		{SeverityWarning, "warning"},
		{SeverityError, "error"},
		{SeverityCritical, "critical"},
		{Severity(99), "unknown"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			if got := tt.severity.String(); got != tt.want {
				t.Errorf("Severity.String() = %q, want %q", got, tt.want)
			}
		})
	}
}

// -----------------------------------------------------------------------------
// InvokeError Tests
// -----------------------------------------------------------------------------

func TestInvokeError_Error(t *testing.T) {
	tests := []struct {
		name string
		err  *InvokeError
		want string
	}{
		{
			name: "unavailable",
			err:  NewInvokeError("gemini", ErrBackendUnavailable),
			want: "invoke error [backend=gemini]: backend unavailable",
		},
		{
			name: "exit code and stderr",
			err:  NewInvokeError("codex", ErrInvocationFailed).WithExitCode(2).WithStderr("boom"),
			want: "invoke error [backend=codex, exit=2]: invocation failed (stderr: boom)",
		},
		{
			name: "message",
			err:  NewInvokeError("claude", ErrInvocationFailed).WithExitCode(0).WithMessage("empty output"),
			want: "invoke error [backend=claude, exit=0]: empty output: invocation failed",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.want {
				t.Errorf("Error() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestInvokeError_Is(t *testing.T) {
	timeout := NewInvokeError("claude", NewTimeoutError("invoking claude", time.Second))
	if !errors.Is(timeout, ErrTimeout) {
		t.Error("InvokeError wrapping TimeoutError should match ErrTimeout")
	}
	if !errors.Is(timeout, &InvokeError{}) {
		t.Error("InvokeError should match *InvokeError target")
	}

	failed := NewInvokeError("codex", ErrInvocationFailed)
	if errors.Is(failed, ErrTimeout) {
		t.Error("invocation failure should not match ErrTimeout")
	}

	wrapped := fmt.Errorf("round 2: %w", failed)
	var ie *InvokeError
	if !errors.As(wrapped, &ie) {
		t.Fatal("errors.As should find InvokeError through wrapping")
	}
	if ie.Backend != "codex" {
		t.Errorf("Backend = %q, want %q", ie.Backend, "codex")
	}
}

// -----------------------------------------------------------------------------
// SessionError Tests
// -----------------------------------------------------------------------------

func TestNewSessionError(t *testing.T) {
	cause := ErrSessionNotFound
	err := NewSessionError("failed to load session", cause)

	if err.message != "failed to load session" {
		t.Errorf("message = %q, want %q", err.message, "failed to load session")
	}
	if err.cause != cause {
		t.Errorf("cause = %v, want %v", err.cause, cause)
	}
	if err.Severity() != SeverityError {
		t.Errorf("Severity() = %v, want %v", err.Severity(), SeverityError)
	}
	if err.IsRetryable() {
		t.Error("IsRetryable() = true, want false")
	}
	if !err.IsUserFacing() {
		t.Error("IsUserFacing() = false, want true")
	}
}

func TestSessionError_Error(t *testing.T) {
	err := NewSessionError("failed to load session", ErrSessionNotFound).WithSessionName("auth-review")
	want := "session error [session=auth-review]: failed to load session: session not found"
	if got := err.Error(); got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}

	bare := NewSessionError("bad state", nil)
	if got := bare.Error(); got != "session error: bad state" {
		t.Errorf("Error() = %q", got)
	}
}

func TestSessionError_Is(t *testing.T) {
	err := NewSessionError("load", ErrSessionNotFound)
	if !errors.Is(err, ErrSessionNotFound) {
		t.Error("should match wrapped sentinel")
	}
	if !errors.Is(err, &SessionError{}) {
		t.Error("should match *SessionError target")
	}
	if errors.Is(err, ErrIO) {
		t.Error("should not match unrelated sentinel")
	}
}

// -----------------------------------------------------------------------------
// Semantic Error Tests
// -----------------------------------------------------------------------------

func TestNotFoundError(t *testing.T) {
	err := NewNotFoundError("template", "code-review")
	if got := err.Error(); got != "template 'code-review' not found" {
		t.Errorf("Error() = %q", got)
	}
	if err.Severity() != SeverityWarning {
		t.Errorf("Severity() = %v, want warning", err.Severity())
	}

	withCause := NewNotFoundError("session", "x").WithCause(ErrSessionNotFound)
	if !errors.Is(withCause, ErrSessionNotFound) {
		t.Error("should match cause")
	}
	if !errors.Is(withCause, &NotFoundError{}) {
		t.Error("should match *NotFoundError target")
	}
}

func TestValidationError(t *testing.T) {
	err := NewValidationError("must not be empty").WithField("persona").WithValue("  ")
	want := "validation error [field=persona, value=  ]: must not be empty"
	if got := err.Error(); got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}
	if err.Message() != "must not be empty" {
		t.Errorf("Message() = %q", err.Message())
	}
	if !errors.Is(err, ErrInvalidInput) {
		t.Error("ValidationError should match ErrInvalidInput")
	}
	if KindOf(err) != KindValidation {
		t.Errorf("KindOf() = %v, want validation", KindOf(err))
	}
}

func TestValidationErrors(t *testing.T) {
	var empty ValidationErrors
	if empty.ErrOrNil() != nil {
		t.Error("empty ValidationErrors should be nil error")
	}

	one := ValidationErrors{NewValidationError("a").WithField("x")}
	if got := one.Error(); got != "validation error [field=x]: a" {
		t.Errorf("single Error() = %q", got)
	}

	many := ValidationErrors{
		NewValidationError("a").WithField("x"),
		NewValidationError("b").WithField("y"),
	}
	got := many.Error()
	if !strings.HasPrefix(got, "2 validation errors:\n") {
		t.Errorf("Error() = %q, want count prefix", got)
	}
	if !strings.Contains(got, "  2. validation error [field=y]: b") {
		t.Errorf("Error() = %q, missing second entry", got)
	}

	err := fmt.Errorf("load agents: %w", many.ErrOrNil())
	if !errors.Is(err, ErrInvalidInput) {
		t.Error("wrapped ValidationErrors should match ErrInvalidInput")
	}
	var list ValidationErrors
	if !errors.As(err, &list) || len(list) != 2 {
		t.Error("errors.As should recover the full list")
	}
}

func TestTimeoutError(t *testing.T) {
	err := NewTimeoutError("invoking gemini", 30*time.Second)
	want := "timeout error: invoking gemini (timeout: 30s)"
	if got := err.Error(); got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}
	if !err.IsRetryable() {
		t.Error("TimeoutError should be retryable")
	}
	if !errors.Is(err, ErrTimeout) {
		t.Error("should match ErrTimeout")
	}
}

func TestIOError(t *testing.T) {
	cause := errors.New("disk full")
	err := NewIOError("write", "/tmp/s.json", cause)
	want := "i/o error [op=write, path=/tmp/s.json]: disk full"
	if got := err.Error(); got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}
	if !errors.Is(err, ErrIO) {
		t.Error("should match ErrIO")
	}
	if !errors.Is(err, cause) {
		t.Error("should match cause")
	}
}

// -----------------------------------------------------------------------------
// Classification Tests
// -----------------------------------------------------------------------------

func TestKindOf(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want Kind
	}{
		{"nil", nil, KindNone},
		{"unavailable", NewInvokeError("gemini", ErrBackendUnavailable), KindBackendUnavailable},
		{"unknown backend", fmt.Errorf("resolve: %w", ErrUnknownBackend), KindBackendUnavailable},
		{"failure", NewInvokeError("codex", ErrInvocationFailed).WithExitCode(1), KindInvocationFailure},
		{"timeout", NewInvokeError("claude", NewTimeoutError("x", time.Second)), KindTimeout},
		{"canceled", NewInvokeError("claude", ErrCanceled), KindCanceled},
		{"validation", NewValidationError("bad"), KindValidation},
		{"missing session", NewSessionError("load", ErrSessionNotFound).WithSessionName("gone"), KindValidation},
		{"io", NewIOError("read", "/x", errors.New("eio")), KindIO},
		{"corrupted", NewSessionError("decode", ErrSessionCorrupted), KindIO},
		{"no responses", ErrNoResponses, KindNoResponses},
		{"other", errors.New("mystery"), KindUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := KindOf(tt.err); got != tt.want {
				t.Errorf("KindOf() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestExitCode_Distinct(t *testing.T) {
	kinds := []Kind{
		KindNone, KindBackendUnavailable, KindInvocationFailure, KindTimeout,
		KindValidation, KindIO, KindCanceled, KindNoResponses, KindUnknown,
	}
	seen := make(map[int]Kind)
	for _, k := range kinds {
		code := ExitCode(k)
		if prev, ok := seen[code]; ok {
			t.Errorf("ExitCode(%q) = %d collides with %q", k, code, prev)
		}
		seen[code] = k
	}
	if ExitCode(KindNone) != 0 {
		t.Errorf("ExitCode(KindNone) = %d, want 0", ExitCode(KindNone))
	}
}

func TestIsRetryable(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"timeout", NewTimeoutError("x", time.Second), true},
		{"sentinel timeout", ErrTimeout, true},
		{"validation", NewValidationError("x"), false},
		{"plain", errors.New("x"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsRetryable(tt.err); got != tt.want {
				t.Errorf("IsRetryable() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestIsUserFacing(t *testing.T) {
	if IsUserFacing(nil) {
		t.Error("nil should not be user facing")
	}
	if !IsUserFacing(NewNotFoundError("a", "b")) {
		t.Error("NotFoundError should be user facing")
	}
	if !IsUserFacing(ValidationErrors{NewValidationError("x")}) {
		t.Error("ValidationErrors should be user facing")
	}
	if IsUserFacing(errors.New("raw")) {
		t.Error("plain error should not be user facing")
	}
}

func TestGetSeverity(t *testing.T) {
	if got := GetSeverity(nil); got != SeverityDebug {
		t.Errorf("GetSeverity(nil) = %v", got)
	}
	if got := GetSeverity(NewValidationError("x")); got != SeverityWarning {
		t.Errorf("GetSeverity(validation) = %v", got)
	}
	if got := GetSeverity(errors.New("x")); got != SeverityError {
		t.Errorf("GetSeverity(plain) = %v", got)
	}
}

func TestWrap(t *testing.T) {
	if Wrap(nil, "x") != nil {
		t.Error("Wrap(nil) should be nil")
	}
	if Wrapf(nil, "x %d", 1) != nil {
		t.Error("Wrapf(nil) should be nil")
	}
	err := Wrapf(ErrIO, "saving %s", "foo")
	if err.Error() != "saving foo: i/o error" {
		t.Errorf("Wrapf() = %q", err.Error())
	}
	if !errors.Is(Wrap(ErrIO, "ctx"), ErrIO) {
		t.Error("Wrap should preserve chain")
	}
}
