// Package common defines shared constants, sentinel errors and the API error
// taxonomy used across repository, service and transport layers. Callers should
// use errors.Is / errors.As to match these values.
package common

import (
	"errors"
	"net/http"
)

var (
	// Repository-level errors.
	ErrorNotFound      = errors.New("not found")
	ErrorAlreadyExists = errors.New("already exists")

	// Service-level errors (generic/internal flow control).
	ErrorInternal     = errors.New("internal error")
	ErrorUnauthorized = errors.New("unauthorized")

	// Auth errors (invalid or malformed token).
	ErrInvalidToken = errors.New("invalid token")

	// Token lifecycle errors.
	ErrTokenExpired        = errors.New("token expired")
	ErrRefreshTokenExpired = errors.New("refresh token is expired or used")
)

// Kind classifies an APIError and determines its HTTP status.
type Kind int

const (
	KindInternal Kind = iota
	KindValidation
	KindConflict
	KindNotFound
	KindUnauthorized
)

// StatusCode returns the HTTP status associated with the kind.
func (k Kind) StatusCode() int {
	switch k {
	case KindValidation:
		return http.StatusBadRequest
	case KindConflict:
		return http.StatusConflict
	case KindNotFound:
		return http.StatusNotFound
	case KindUnauthorized:
		return http.StatusUnauthorized
	default:
		return http.StatusInternalServerError
	}
}

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindConflict:
		return "conflict"
	case KindNotFound:
		return "not_found"
	case KindUnauthorized:
		return "unauthorized"
	default:
		return "internal"
	}
}

// APIError is the error every service operation fails with. Message is safe to
// show to clients; Err keeps the underlying cause for logs only.
type APIError struct {
	Kind    Kind
	Message string
	Errors  []string
	Err     error
}

func (e *APIError) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *APIError) Unwrap() error { return e.Err }

// StatusCode returns the HTTP status for the error.
func (e *APIError) StatusCode() int { return e.Kind.StatusCode() }

func NewValidationError(msg string) *APIError {
	return &APIError{Kind: KindValidation, Message: msg}
}

func NewConflictError(msg string) *APIError {
	return &APIError{Kind: KindConflict, Message: msg}
}

func NewNotFoundError(msg string) *APIError {
	return &APIError{Kind: KindNotFound, Message: msg}
}

func NewAuthError(msg string, cause error) *APIError {
	return &APIError{Kind: KindUnauthorized, Message: msg, Err: cause}
}

func NewInternalError(msg string, cause error) *APIError {
	return &APIError{Kind: KindInternal, Message: msg, Err: cause}
}

// AsAPIError converts any error into an *APIError. Errors that are not already
// API errors become internal errors with a generic message.
func AsAPIError(err error) *APIError {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr
	}
	return NewInternalError("something went wrong", err)
}

// StatusCode maps err to an HTTP status; nil maps to 200.
func StatusCode(err error) int {
	if err == nil {
		return http.StatusOK
	}
	return AsAPIError(err).StatusCode()
}

// IsKind reports whether err is an *APIError of kind k.
func IsKind(err error, k Kind) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Kind == k
}
