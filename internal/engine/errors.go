package engine

import (
	"errors"
	"fmt"
)

// ErrorName classifies engine failures. The names follow the exception names
// of browser keyed-record stores so callers can branch on them.
type ErrorName string

const (
	NameConstraint          ErrorName = "ConstraintError"
	NameData                ErrorName = "DataError"
	NameNotFound            ErrorName = "NotFoundError"
	NameReadOnly            ErrorName = "ReadOnlyError"
	NameTransactionInactive ErrorName = "TransactionInactiveError"
	NameInvalidState        ErrorName = "InvalidStateError"
	NameAbort               ErrorName = "AbortError"
	NameUnknown             ErrorName = "UnknownError"
)

// Error is returned by every failing engine request or transaction.
type Error struct {
	Name    ErrorName
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Message == "" {
		return string(e.Name)
	}

	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Name, e.Message, e.Err)
	}

	return fmt.Sprintf("%s: %s", e.Name, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports whether target is a sentinel with the same name.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}

	return t.Message == "" && t.Name == e.Name
}

// Sentinels for errors.Is.
var (
	ErrConstraint          = &Error{Name: NameConstraint}
	ErrData                = &Error{Name: NameData}
	ErrNotFound            = &Error{Name: NameNotFound}
	ErrReadOnly            = &Error{Name: NameReadOnly}
	ErrTransactionInactive = &Error{Name: NameTransactionInactive}
	ErrInvalidState        = &Error{Name: NameInvalidState}
	ErrAbort               = &Error{Name: NameAbort}
	ErrUnknown             = &Error{Name: NameUnknown}
)

func newError(name ErrorName, format string, args ...any) *Error {
	return &Error{Name: name, Message: fmt.Sprintf(format, args...)}
}

func wrapError(name ErrorName, err error, format string, args ...any) *Error {
	return &Error{Name: name, Message: fmt.Sprintf(format, args...), Err: err}
}

// IsEngineError reports whether err carries an *Error anywhere in its chain.
func IsEngineError(err error) bool {
	var e *Error
	return errors.As(err, &e)
}
