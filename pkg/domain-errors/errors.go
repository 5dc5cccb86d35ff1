// Package domainerrors defines coded errors that services return to transports.
// Stores return sentinel errors; services translate them into a Code here so the
// HTTP layer and the renderer can pick a status and an error page without string matching.
package domainerrors

import (
	"errors"
	"net/http"
)

// Code classifies a domain error.
type Code string

const (
	CodeBadRequest       Code = "bad_request"
	CodeNotFound         Code = "not_found"
	CodeConflict         Code = "conflict"
	CodeExpired          Code = "expired"
	CodeInvalidState     Code = "invalid_state"
	CodeUnauthorized     Code = "unauthorized"
	CodeUnavailable      Code = "unavailable"
	CodeInternal         Code = "internal_error"
	CodeStoreNotFound    Code = "store_not_found"
	CodeStoreNotActive   Code = "store_not_active"
	CodeTemplateNotFound Code = "template_not_found"
	CodeTemplateRender   Code = "template_render_error"
	CodeDataFetch        Code = "data_fetch_error"
	CodeRateLimited      Code = "rate_limit_exceeded"
)

// Error is a coded error with a human readable message and an optional cause.
type Error struct {
	Code    Code
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// New builds a coded error.
func New(code Code, msg string) *Error {
	return &Error{Code: code, Message: msg}
}

// Wrap attaches a code and message to an underlying error.
func Wrap(err error, code Code, msg string) *Error {
	return &Error{Code: code, Message: msg, Err: err}
}

// CodeOf returns the code of the first coded error in the chain, or CodeInternal.
func CodeOf(err error) Code {
	var de *Error
	if errors.As(err, &de) {
		return de.Code
	}
	return CodeInternal
}

// HasCode reports whether any coded error in the chain carries code.
func HasCode(err error, code Code) bool {
	for err != nil {
		var de *Error
		if !errors.As(err, &de) {
			return false
		}
		if de.Code == code {
			return true
		}
		err = de.Err
	}
	return false
}

// HTTPStatus maps a code to the status class callers should respond with.
func HTTPStatus(code Code) int {
	switch code {
	case CodeBadRequest:
		return http.StatusBadRequest
	case CodeUnauthorized:
		return http.StatusUnauthorized
	case CodeNotFound, CodeStoreNotFound, CodeTemplateNotFound:
		return http.StatusNotFound
	case CodeConflict, CodeInvalidState:
		return http.StatusConflict
	case CodeExpired:
		return http.StatusGone
	case CodeStoreNotActive:
		return http.StatusPaymentRequired
	case CodeUnavailable:
		return http.StatusServiceUnavailable
	case CodeRateLimited:
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}
