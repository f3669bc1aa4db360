package errors

import (
	"fmt"

	"github.com/hashicorp/go-multierror"
)

// DriverError is a wrapper around system errno codes, with a customizable error message.
//
// WithMessage and Wrap both return a new DriverError carrying the same Errno;
// they exist so that a low-level failure (a bad cache eviction, a short read
// off the block device) can be annotated with context as it propagates up
// through the component layers without losing the original errno.
type DriverError interface {
	error
	Errno() Errno
	WithMessage(message string) DriverError
	Wrap(err error) DriverError
	Unwrap() error
}

type driverError struct {
	errno         Errno
	message       string
	originalError error
}

// Error implements the `error` object interface. When called, it returns a string
// describing the error.
func (e driverError) Error() string {
	if e.message != "" {
		return e.message
	}
	return StrError(e.errno)
}

func (e driverError) Errno() Errno {
	return e.errno
}

func (e driverError) Unwrap() error {
	return e.originalError
}

// WithMessage returns a new DriverError with the same Errno and message
// appended after the existing message.
func (e driverError) WithMessage(message string) DriverError {
	base := e.message
	if base == "" {
		base = StrError(e.errno)
	}
	return driverError{
		errno:         e.errno,
		message:       fmt.Sprintf("%s: %s", base, message),
		originalError: e.originalError,
	}
}

// Wrap folds err into this DriverError's cause chain via a multierror, keeping
// this error's Errno as the code callers should act on.
func (e driverError) Wrap(err error) DriverError {
	base := e.message
	if base == "" {
		base = StrError(e.errno)
	}

	var combined error = err
	if e.originalError != nil {
		combined = multierror.Append(e.originalError, err)
	}

	return driverError{
		errno:         e.errno,
		message:       fmt.Sprintf("%s: %s", base, err.Error()),
		originalError: combined,
	}
}

// New creates a new [DriverError] with a default message derived from the
// system's error code.
func New(errnoCode Errno) DriverError {
	return driverError{
		errno:   errnoCode,
		message: StrError(errnoCode),
	}
}

func NewFromError(errnoCode Errno, originalError error) DriverError {
	return driverError{
		errno:         errnoCode,
		message:       fmt.Sprintf("%s: %s", StrError(errnoCode), originalError.Error()),
		originalError: originalError,
	}
}

// NewWithMessage creates a new DriverError from a system error code with a
// custom message.
func NewWithMessage(errnoCode Errno, message string) DriverError {
	return driverError{
		errno:   errnoCode,
		message: fmt.Sprintf("%s: %s", StrError(errnoCode), message),
	}
}
