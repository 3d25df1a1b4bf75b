// Package apperror defines the error taxonomy shared by the stores, the REST layer and the client
// components: validation, persistence and transport failures.
package apperror

import (
	"errors"
	"fmt"
)

// ValidationError reports a missing or malformed required field. Always client-correctable.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Reason == "" {
		return e.Field + " required"
	}

	return fmt.Sprintf("%s %s", e.Field, e.Reason)
}

// PersistenceError reports a storage or transaction failure. The operation was aborted and no state
// changed.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }

// TransportError reports a connection drop, timeout or malformed frame on the client side.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// Required returns a ValidationError for a missing field.
func Required(field string) error {
	return &ValidationError{Field: field}
}

// Invalid returns a ValidationError for a present but malformed field.
func Invalid(field, reason string) error {
	return &ValidationError{Field: field, Reason: reason}
}

// Persistence wraps err as a PersistenceError. Nil stays nil.
func Persistence(op string, err error) error {
	if err == nil {
		return nil
	}

	return &PersistenceError{Op: op, Err: err}
}

// Transport wraps err as a TransportError. Nil stays nil.
func Transport(op string, err error) error {
	if err == nil {
		return nil
	}

	return &TransportError{Op: op, Err: err}
}

// IsValidation reports whether err is or wraps a ValidationError.
func IsValidation(err error) bool {
	var target *ValidationError
	return errors.As(err, &target)
}

// IsPersistence reports whether err is or wraps a PersistenceError.
func IsPersistence(err error) bool {
	var target *PersistenceError
	return errors.As(err, &target)
}

// IsTransport reports whether err is or wraps a TransportError.
func IsTransport(err error) bool {
	var target *TransportError
	return errors.As(err, &target)
}
