package errors

import (
	goErrors "errors"
	"fmt"
)

// New returns an error with the formatted message.
func New(format string, args ...interface{}) error {
	return baseError{fmt.Sprintf(format, args...)}
}

type baseError struct {
	msg string
}

func (err baseError) Error() string {
	return err.msg
}

// WithContext annotates `err` with a short description of what was being
// attempted when it occurred. The result is a comparable value, so wrapped
// errors can be checked with equality in tests.
func WithContext(err error, context string) error {
	if err == nil {
		return nil
	}
	return contextError{context: context, err: err}
}

type contextError struct {
	context string
	err     error
}

func (err contextError) Error() string {
	return fmt.Sprintf("%s: %s", err.context, err.err)
}

func (err contextError) Unwrap() error {
	return err.err
}

// RootCause returns the innermost error wrapped by `err`.
func RootCause(err error) error {
	for {
		next := goErrors.Unwrap(err)
		if next == nil {
			return err
		}
		err = next
	}
}

// FriendlyError is an error whose message is meant to be shown to users
// without any further decoration.
type FriendlyError struct {
	msg string
}

// NewFriendlyError creates a FriendlyError with the formatted message.
func NewFriendlyError(format string, args ...interface{}) error {
	return FriendlyError{fmt.Sprintf(format, args...)}
}

func (err FriendlyError) Error() string {
	return err.msg
}

// FriendlyMessage returns the message to display.
func (err FriendlyError) FriendlyMessage() string {
	return err.msg
}

type friendlyErrorInterface interface {
	FriendlyMessage() string
}

// GetPrintableMessage returns the message that should be shown to the user
// for `err`. Friendly errors anywhere in the chain are printed verbatim.
func GetPrintableMessage(err error) string {
	var friendly friendlyErrorInterface
	if goErrors.As(err, &friendly) {
		return friendly.FriendlyMessage()
	}
	return fmt.Sprintf("Unexpected error: %s", err)
}

// Is reports whether any error in err's chain matches target.
func Is(err, target error) bool {
	return goErrors.Is(err, target)
}

// As finds the first error in err's chain that matches target.
func As(err error, target interface{}) bool {
	return goErrors.As(err, target)
}
