package model

import (
	"errors"
	"fmt"
)

// Error kinds. Every error returned by the service layer matches exactly one of them with errors.Is.
var (
	ErrValidation   = errors.New("invalid input")
	ErrNotFound     = errors.New("not found")
	ErrConflict     = errors.New("conflict")
	ErrUnauthorized = errors.New("unauthorized")
	ErrStorage      = errors.New("storage unavailable")
)

// Store-level signals that are more specific than ErrNotFound.
var (
	ErrMessageNotFound    = fmt.Errorf("message %w", ErrNotFound)
	ErrInvalidCredentials = errors.New("invalid credentials")
)

// Error is a classified error carrying a stable, user-facing message and the underlying cause.
type Error struct {
	Kind    error
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause == nil {
		return e.Message
	}
	return fmt.Sprintf("%s: %v", e.Message, e.Cause)
}

// Unwrap exposes both the kind and the cause to errors.Is and errors.As.
func (e *Error) Unwrap() []error {
	errs := make([]error, 0, 2)
	if e.Kind != nil {
		errs = append(errs, e.Kind)
	}
	if e.Cause != nil {
		errs = append(errs, e.Cause)
	}
	return errs
}

// Detail returns the cause text, or the message when there is no cause.
func (e *Error) Detail() string {
	if e.Cause == nil {
		return e.Message
	}
	return e.Cause.Error()
}

func NewValidationError(message string, cause error) *Error {
	return &Error{Kind: ErrValidation, Message: message, Cause: cause}
}

func NewNotFoundError(message string, cause error) *Error {
	return &Error{Kind: ErrNotFound, Message: message, Cause: cause}
}

func NewConflictError(message string, cause error) *Error {
	return &Error{Kind: ErrConflict, Message: message, Cause: cause}
}

func NewUnauthorizedError(message string, cause error) *Error {
	return &Error{Kind: ErrUnauthorized, Message: message, Cause: cause}
}

func NewStorageError(message string, cause error) *Error {
	return &Error{Kind: ErrStorage, Message: message, Cause: cause}
}
