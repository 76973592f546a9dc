// Package apperr defines the error kinds every operation of the service
// can fail with. Services wrap these errors with their op name, the HTTP
// layer maps the kind to a status code and the API client decodes the
// error envelope back into an *Error.
package apperr

import (
	"errors"
	"net/http"
)

type Kind string

const (
	KindUnauthenticated          Kind = "unauthenticated"
	KindUnauthorized             Kind = "unauthorized"
	KindNotFound                 Kind = "not_found"
	KindDuplicateUsername        Kind = "duplicate_username"
	KindSessionInactiveOrMissing Kind = "session_inactive_or_missing"
	KindEmptySelection           Kind = "empty_selection"
	KindValidation               Kind = "validation_error"
	KindInternal                 Kind = "internal_error"
)

type Error struct {
	Kind    Kind
	Message string
}

func (e *Error) Error() string {
	return e.Message
}

// Is matches any *Error of the same kind, so errors.Is(err, apperr.New(KindNotFound, ""))
// holds for every not-found error regardless of message.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind && (t.Message == "" || t.Message == e.Message)
}

func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

func Validation(message string) *Error {
	return New(KindValidation, message)
}

func NotFound(message string) *Error {
	return New(KindNotFound, message)
}

var (
	ErrUnauthenticated   = New(KindUnauthenticated, "authentication required")
	ErrUnauthorized      = New(KindUnauthorized, "access denied")
	ErrEmptySelection    = New(KindEmptySelection, "no photo ids provided")
	ErrSessionNotActive  = New(KindSessionInactiveOrMissing, "session not found or inactive")
	ErrDuplicateUsername = New(KindDuplicateUsername, "username already exists")
)

// KindOf returns the kind of the first *Error in err's chain, or
// KindInternal when there is none.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// Message returns the human readable message of the first *Error in the
// chain. Internal errors never expose their text.
func Message(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Message
	}
	return "internal server error"
}

func HTTPStatus(kind Kind) int {
	switch kind {
	case KindUnauthenticated:
		return http.StatusUnauthorized
	case KindUnauthorized:
		return http.StatusForbidden
	case KindNotFound, KindSessionInactiveOrMissing:
		return http.StatusNotFound
	case KindDuplicateUsername:
		return http.StatusConflict
	case KindEmptySelection, KindValidation:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}
