// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

// Package apperror defines the client-visible error kinds and the HTTP
// status each one maps to.
package apperror

import (
	"errors"
	"net/http"
)

// Kind classifies an error for the client.
type Kind int

const (
	KindValidation Kind = iota + 1
	KindNotFound
	KindAuth
	KindConflict
	KindDependency
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindNotFound:
		return "not_found"
	case KindAuth:
		return "auth"
	case KindConflict:
		return "conflict"
	case KindDependency:
		return "dependency"
	}
	return "unknown"
}

// Error carries a message safe to show to clients and the HTTP status to
// answer with. Err holds the underlying cause, if any.
type Error struct {
	Kind    Kind
	Status  int
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

// Validation reports missing or malformed input.
func Validation(msg string) *Error {
	return &Error{Kind: KindValidation, Status: http.StatusBadRequest, Message: msg}
}

// NotFound reports a missing record, token or volunteer.
func NotFound(msg string) *Error {
	return &Error{Kind: KindNotFound, Status: http.StatusNotFound, Message: msg}
}

// Auth reports bad credentials, unverified accounts or invalid tokens.
func Auth(status int, msg string) *Error {
	return &Error{Kind: KindAuth, Status: status, Message: msg}
}

// Unauthorized is Auth with status 401.
func Unauthorized(msg string) *Error {
	return Auth(http.StatusUnauthorized, msg)
}

// Conflict reports duplicates and exceeded attempts.
func Conflict(msg string) *Error {
	return &Error{Kind: KindConflict, Status: http.StatusBadRequest, Message: msg}
}

// Dependency reports a failing mail, store or file backend.
func Dependency(msg string, err error) *Error {
	return &Error{Kind: KindDependency, Status: http.StatusInternalServerError, Message: msg, Err: err}
}

// As extracts an *Error from err.
func As(err error) (*Error, bool) {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

// Is reports whether err is an *Error of the given kind.
func Is(err error, kind Kind) bool {
	appErr, ok := As(err)
	return ok && appErr.Kind == kind
}
