package apperrors

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound            = errors.New("not found")
	ErrValidation          = errors.New("validation failed")
	ErrSearchFailed        = errors.New("company search failed")
	ErrDetailsLookupFailed = errors.New("company details lookup failed")
	ErrPersistence         = errors.New("company details persistence failed")
)

// Error carries one of the sentinel kinds above together with the operation
// that failed and the underlying cause. errors.Is matches both the kind and
// anything in the cause chain.
type Error struct {
	Kind error
	Op   string
	Err  error
}

func (e *Error) Error() string {
	switch {
	case e.Err == nil:
		return fmt.Sprintf("%s: %v", e.Op, e.Kind)
	case e.Op == "":
		return fmt.Sprintf("%v: %v", e.Kind, e.Err)
	default:
		return fmt.Sprintf("%s: %v: %v", e.Op, e.Kind, e.Err)
	}
}

func (e *Error) Unwrap() error { return e.Err }

func (e *Error) Is(target error) bool { return target == e.Kind }

// Validation reports a request rejected before any I/O.
func Validation(op, format string, args ...any) error {
	return &Error{Kind: ErrValidation, Op: op, Err: fmt.Errorf(format, args...)}
}

// SearchFailed reports an unreachable or non-successful search source.
func SearchFailed(op string, err error) error {
	return &Error{Kind: ErrSearchFailed, Op: op, Err: err}
}

// DetailsLookupFailed reports a failed annotation store read.
func DetailsLookupFailed(op string, err error) error {
	return &Error{Kind: ErrDetailsLookupFailed, Op: op, Err: err}
}

// Persistence reports a failed annotation store write.
func Persistence(op string, err error) error {
	return &Error{Kind: ErrPersistence, Op: op, Err: err}
}

// Message returns the innermost human-readable message for user-facing
// reporting, without the operation prefix.
func Message(err error) string {
	var appErr *Error
	if errors.As(err, &appErr) && appErr.Err != nil {
		return appErr.Err.Error()
	}
	return err.Error()
}
