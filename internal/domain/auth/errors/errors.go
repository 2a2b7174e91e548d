package errors

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	ErrInvalidArgument    = errors.New("invalid argument")
	ErrInternal           = errors.New("internal error")
	ErrNotFound           = errors.New("not found")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrAlreadyExists      = errors.New("already exists")
	ErrInvalidToken       = errors.New("invalid token")
	ErrTokenExpired       = errors.New("token expired")
	ErrUnauthorized       = errors.New("unauthorized")
	ErrForbidden          = errors.New("forbidden")
	ErrValidation         = errors.New("validation error")
)

// Error is a classified error whose Message is safe to show to the caller.
type Error struct {
	Kind    error  `json:"-"`
	Message string `json:"message"`
}

func (e *Error) Error() string { return e.Message }

func (e *Error) Unwrap() error { return e.Kind }

func newError(kind error, msg string) error {
	return &Error{Kind: kind, Message: msg}
}

func Unauthorized(msg string) error { return newError(ErrUnauthorized, msg) }

func Forbidden(msg string) error { return newError(ErrForbidden, msg) }

func NotFound(msg string) error { return newError(ErrNotFound, msg) }

func Conflict(msg string) error { return newError(ErrAlreadyExists, msg) }

// TokenError is returned by the token codec. It matches both its kind
// (ErrInvalidToken or ErrTokenExpired) and ErrUnauthorized.
type TokenError struct {
	Kind    error
	Message string
}

func (e *TokenError) Error() string { return e.Message }

func (e *TokenError) Unwrap() []error { return []error{e.Kind, ErrUnauthorized} }

func NewTokenError(kind error, msg string) error {
	return &TokenError{Kind: kind, Message: msg}
}

// EntityError aggregates per-field validation failures.
type EntityError struct {
	Message string            `json:"message"`
	Errors  map[string]string `json:"errors"`
}

func (e *EntityError) Error() string { return e.Message }

func (e *EntityError) Unwrap() error { return ErrValidation }

func NewInvalidArgument(msg string) error {
	return fmt.Errorf("%w: %s", ErrInvalidArgument, msg)
}

func WrapInternal(err error, context string) error {
	return fmt.Errorf("%w: %s: %v", ErrInternal, context, err)
}

// StatusOf maps an error to the HTTP status it surfaces with.
func StatusOf(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, ErrValidation):
		return http.StatusUnprocessableEntity
	case errors.Is(err, ErrUnauthorized), errors.Is(err, ErrInvalidToken),
		errors.Is(err, ErrTokenExpired), errors.Is(err, ErrInvalidCredentials):
		return http.StatusUnauthorized
	case errors.Is(err, ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrAlreadyExists):
		return http.StatusConflict
	case errors.Is(err, ErrInvalidArgument):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// IsClassified reports whether err already carries a status of its own.
func IsClassified(err error) bool {
	var e *Error
	var te *TokenError
	return errors.As(err, &e) || errors.As(err, &te)
}

func IsInvalidArgument(err error) bool {
	return errors.Is(err, ErrInvalidArgument)
}

func IsInternal(err error) bool {
	return errors.Is(err, ErrInternal)
}

func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

func IsInvalidCredentials(err error) bool {
	return errors.Is(err, ErrInvalidCredentials)
}

func IsAlreadyExists(err error) bool {
	return errors.Is(err, ErrAlreadyExists)
}

func IsInvalidToken(err error) bool {
	return errors.Is(err, ErrInvalidToken)
}

func IsTokenExpired(err error) bool {
	return errors.Is(err, ErrTokenExpired)
}

func IsUnauthorized(err error) bool {
	return errors.Is(err, ErrUnauthorized)
}

func IsForbidden(err error) bool {
	return errors.Is(err, ErrForbidden)
}
