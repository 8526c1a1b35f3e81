package ledger

import (
	"errors"
	"fmt"
)

// Error kinds. Callers test them with errors.Is.
var (
	ErrValidation  = errors.New("validation failed")
	ErrStock       = errors.New("insufficient stock")
	ErrOverpayment = errors.New("payment exceeds pending balance")
	ErrRetryable   = errors.New("operation conflicted, retry")
	ErrNotFound    = errors.New("not found")
	ErrFatal       = errors.New("storage failure")
)

// Error names the precondition that failed and, for storage failures, the
// underlying cause.
type Error struct {
	Kind    error
	Details string
	Cause   error
}

func (e *Error) Error() string {
	msg := e.Kind.Error()
	if e.Details != "" {
		msg += ": " + e.Details
	}
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	return msg
}

func (e *Error) Unwrap() []error {
	if e.Cause == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Cause}
}

func newError(kind error, format string, args ...any) error {
	return &Error{Kind: kind, Details: fmt.Sprintf(format, args...)}
}

func invalid(format string, args ...any) error {
	return newError(ErrValidation, format, args...)
}

// fatal classifies an unexpected error as a storage failure. Errors that
// already carry a kind pass through untouched.
func fatal(op string, err error) error {
	if err == nil {
		return nil
	}
	var le *Error
	if errors.As(err, &le) {
		return err
	}
	return &Error{Kind: ErrFatal, Details: op, Cause: err}
}

// KindOf returns the kind sentinel of err, ErrFatal when it has none.
func KindOf(err error) error {
	for _, kind := range []error{ErrValidation, ErrStock, ErrOverpayment, ErrRetryable, ErrNotFound} {
		if errors.Is(err, kind) {
			return kind
		}
	}
	return ErrFatal
}
