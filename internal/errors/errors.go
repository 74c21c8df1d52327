// Package errors provides the error type shared by all services. Errors are
// built fluently and marked with a sentinel so callers can branch with
// errors.Is without caring about the concrete type:
//
//	ierr.NewError("payment not found").
//		WithHint("No payment exists for the given id").
//		WithReportableDetails(map[string]any{"payment_id": id}).
//		Mark(ierr.ErrNotFound)
package errors

import (
	"errors"
	"fmt"

	cerrors "github.com/cockroachdb/errors"
)

// Sentinel marks. Every error leaving a service is marked with exactly one.
var (
	ErrValidation       = errors.New("validation_error")
	ErrNotFound         = errors.New("item_not_found")
	ErrAlreadyExists    = errors.New("item_already_exists")
	ErrInvalidOperation = errors.New("invalid_operation")
	ErrPermissionDenied = errors.New("permission_denied")
	ErrDatabase         = errors.New("database_error")
	ErrSystem           = errors.New("system_error")
	ErrInternal         = errors.New("internal_error")
)

// InternalError is the concrete error carried through the call stack
type InternalError struct {
	mark    error
	cause   error
	message string
	hint    string
	details map[string]any
}

func (e *InternalError) Error() string {
	msg := e.message
	if msg == "" && e.cause != nil {
		msg = e.cause.Error()
	}
	if e.mark != nil {
		return fmt.Sprintf("%s: %s", e.mark.Error(), msg)
	}
	return msg
}

// Unwrap exposes both the sentinel mark and the wrapped cause to errors.Is/As
func (e *InternalError) Unwrap() []error {
	out := make([]error, 0, 2)
	if e.mark != nil {
		out = append(out, e.mark)
	}
	if e.cause != nil {
		out = append(out, e.cause)
	}
	return out
}

// Hint returns the human readable hint attached to the error, if any
func Hint(err error) string {
	var ie *InternalError
	if errors.As(err, &ie) {
		return ie.hint
	}
	return ""
}

// ReportableDetails returns the structured details attached to the error
func ReportableDetails(err error) map[string]any {
	var ie *InternalError
	if errors.As(err, &ie) {
		return ie.details
	}
	return nil
}

// ErrorBuilder assembles an InternalError. Terminal call is Mark.
type ErrorBuilder struct {
	err *InternalError
}

// NewError starts a builder from an internal message
func NewError(message string) *ErrorBuilder {
	return &ErrorBuilder{err: &InternalError{message: message}}
}

// NewErrorf starts a builder from a formatted internal message
func NewErrorf(format string, args ...any) *ErrorBuilder {
	return NewError(fmt.Sprintf(format, args...))
}

// WithError starts a builder wrapping an upstream cause. The cause keeps its
// original chain so driver sentinels (sql.ErrNoRows, pq errors) stay
// matchable through errors.Is.
func WithError(err error) *ErrorBuilder {
	return &ErrorBuilder{err: &InternalError{cause: err}}
}

// WithHint attaches a caller-facing hint
func (b *ErrorBuilder) WithHint(hint string) *ErrorBuilder {
	b.err.hint = hint
	return b
}

// WithHintf attaches a formatted caller-facing hint
func (b *ErrorBuilder) WithHintf(format string, args ...any) *ErrorBuilder {
	b.err.hint = fmt.Sprintf(format, args...)
	return b
}

// WithReportableDetails attaches structured details safe to surface to callers
func (b *ErrorBuilder) WithReportableDetails(details map[string]any) *ErrorBuilder {
	b.err.details = details
	return b
}

// Mark finalizes the error with a sentinel and captures the call site, so
// logged errors formatted with %+v carry the stack of the service that
// raised them.
func (b *ErrorBuilder) Mark(sentinel error) error {
	b.err.mark = sentinel
	return cerrors.WithStackDepth(b.err, 1)
}

func Is(err, target error) bool { return errors.Is(err, target) }
func As(err error, target any) bool { return errors.As(err, target) }

func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

func IsAlreadyExists(err error) bool {
	return errors.Is(err, ErrAlreadyExists)
}

func IsValidation(err error) bool {
	return errors.Is(err, ErrValidation)
}

func IsInvalidOperation(err error) bool {
	return errors.Is(err, ErrInvalidOperation)
}

func IsDatabase(err error) bool {
	return errors.Is(err, ErrDatabase)
}

func IsInternal(err error) bool {
	return errors.Is(err, ErrInternal)
}
