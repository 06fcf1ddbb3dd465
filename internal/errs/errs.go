// Package errs implements the error taxonomy from spec.md §7: fatal
// TestErrors that terminate the run via the killer, and RecoverableErrors
// that fail a single tick without ending the test. The shape follows the
// teacher's ProviderError (code + message + cause, Error/Unwrap/Is) rather
// than bare sentinel values, so callers can branch with errors.As the same
// way the rest of this codebase's ancestor did for provider errors.
package errs

import "fmt"

// TestErrorKind classifies a fatal error.
type TestErrorKind string

const (
	TestErrOther          TestErrorKind = "other"
	TestErrInternal       TestErrorKind = "internal"
	TestErrKilledByLogger TestErrorKind = "killed_by_logger"
)

// TestError is fatal: the first one observed by the killer ends the run.
type TestError struct {
	Kind    TestErrorKind
	Message string
	Cause   error
}

func (e *TestError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *TestError) Unwrap() error { return e.Cause }

// Is matches TestErrors by kind, mirroring ProviderError.Is in the prior
// incarnation of this codebase.
func (e *TestError) Is(target error) bool {
	t, ok := target.(*TestError)
	if !ok {
		return false
	}
	return e.Kind == t.Kind
}

// Other builds a TestError::Other the way pewpew's providers.rs and
// logger construction paths do: "<context>: <cause>".
func Other(format string, args ...any) *TestError {
	return &TestError{Kind: TestErrOther, Message: fmt.Sprintf(format, args...)}
}

// OtherCause wraps an underlying error under a TestError::Other context.
func OtherCause(context string, cause error) *TestError {
	return &TestError{Kind: TestErrOther, Message: context, Cause: cause}
}

// Internal marks a bug-shaped condition that should never occur in a
// correctly wired test (e.g. "unexpected error from receiver").
func Internal(message string) *TestError {
	return &TestError{Kind: TestErrInternal, Message: message}
}

// KilledByLogger is sent by a logger when its kill trigger fires.
var KilledByLogger = &TestError{Kind: TestErrKilledByLogger, Message: "killed by logger"}

// RecoverableKind classifies a single-tick failure.
type RecoverableKind string

const (
	RecoverableBodyErr       RecoverableKind = "body"
	RecoverableHTTPErr       RecoverableKind = "http"
	RecoverableTimeout       RecoverableKind = "timeout"
	RecoverableTemplateErr   RecoverableKind = "template"
	RecoverableProviderEnded RecoverableKind = "provider_ended"
)

// RecoverableError fails the current tick; stats record it and the next
// tick proceeds. AutoReturns belonging to the tick still re-insert.
type RecoverableError struct {
	Kind  RecoverableKind
	Cause error
}

func (e *RecoverableError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Kind, e.Cause)
	}
	return string(e.Kind)
}

func (e *RecoverableError) Unwrap() error { return e.Cause }

func (e *RecoverableError) Is(target error) bool {
	t, ok := target.(*RecoverableError)
	if !ok {
		return false
	}
	return e.Kind == t.Kind
}

// Recoverable wraps cause as the given kind.
func Recoverable(kind RecoverableKind, cause error) *RecoverableError {
	return &RecoverableError{Kind: kind, Cause: cause}
}
