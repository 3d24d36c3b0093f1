// Package apperr defines the error taxonomy shared by services and the HTTP adapter.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

type Code string

const (
	CodeUnauthenticated Code = "UNAUTHENTICATED"
	CodeForbidden       Code = "FORBIDDEN"
	CodeInvalid         Code = "INVALID"
	CodeExpiredCode     Code = "EXPIRED_CODE"
	CodeNotFound        Code = "NOT_FOUND"
	CodeConflict        Code = "CONFLICT"
	CodeUnavailable     Code = "UNAVAILABLE"
	CodeTimeout         Code = "TIMEOUT"
	CodeInternal        Code = "INTERNAL"
)

// Error is a classified error with a client-facing message.
type Error struct {
	Code    Code   `json:"code"`
	Message string `json:"message"`
	cause   error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error { return e.cause }

func New(code Code, msg string) *Error { return &Error{Code: code, Message: msg} }

// Wrap classifies cause under code. The cause is kept for logs only.
func Wrap(code Code, msg string, cause error) *Error {
	return &Error{Code: code, Message: msg, cause: cause}
}

func Unauthenticated(msg string) *Error { return New(CodeUnauthenticated, msg) }
func Forbidden(msg string) *Error       { return New(CodeForbidden, msg) }
func Invalid(msg string) *Error         { return New(CodeInvalid, msg) }
func ExpiredCode(msg string) *Error     { return New(CodeExpiredCode, msg) }
func NotFound(msg string) *Error        { return New(CodeNotFound, msg) }
func Conflict(msg string) *Error        { return New(CodeConflict, msg) }

// CodeOf returns the code of err, or CodeInternal for unclassified errors.
func CodeOf(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return CodeInternal
}

// Is reports whether err carries code.
func Is(err error, code Code) bool {
	return err != nil && CodeOf(err) == code
}

// IsDomain reports whether err is an expected, client-caused error.
func IsDomain(err error) bool {
	switch CodeOf(err) {
	case CodeUnauthenticated, CodeForbidden, CodeInvalid, CodeExpiredCode, CodeNotFound, CodeConflict:
		return true
	}
	return false
}

// HTTPStatus maps err to a stable status code.
func HTTPStatus(err error) int {
	switch CodeOf(err) {
	case CodeUnauthenticated:
		return http.StatusUnauthorized
	case CodeForbidden:
		return http.StatusForbidden
	case CodeInvalid, CodeExpiredCode:
		return http.StatusBadRequest
	case CodeNotFound:
		return http.StatusNotFound
	case CodeConflict:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// Body returns the JSON body for err. Infrastructure errors get a generic message.
func Body(err error) *Error {
	var e *Error
	if errors.As(err, &e) && IsDomain(err) {
		return &Error{Code: e.Code, Message: e.Message}
	}
	code := CodeOf(err)
	return &Error{Code: code, Message: "internal server error"}
}
