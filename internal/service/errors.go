// Package service implements the identity store, listing catalog,
// application workflow and content catalog on top of the repositories.
// Every expected failure is returned as *Error so the HTTP layer can map it
// to a status code without knowing about storage details.
package service

import (
	"errors"
	"fmt"
)

// Kind classifies an Error for the transport layer.
type Kind int

const (
	KindInternal Kind = iota
	KindValidation
	KindDuplicate
	KindAuth
	KindNotFound
	KindPermission
	KindUnavailable
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindDuplicate:
		return "duplicate"
	case KindAuth:
		return "auth"
	case KindNotFound:
		return "not_found"
	case KindPermission:
		return "permission"
	case KindUnavailable:
		return "unavailable"
	}
	return "internal"
}

// Error carries a stable machine-readable Code, a human Message, optional
// per-field messages and the wrapped cause.
type Error struct {
	Kind    Kind
	Code    string
	Message string
	Fields  map[string]string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return e.Code + ": " + e.Message
}

func (e *Error) Unwrap() error { return e.Err }

// KindOf returns the Kind of err, or KindInternal for foreign errors.
func KindOf(err error) Kind {
	var se *Error
	if errors.As(err, &se) {
		return se.Kind
	}
	return KindInternal
}

func validation(code, msg string, fields map[string]string) *Error {
	return &Error{Kind: KindValidation, Code: code, Message: msg, Fields: fields}
}

func fieldError(field, msg string) *Error {
	return validation("invalid_input", msg, map[string]string{field: msg})
}

func duplicate(code, msg string, cause error) *Error {
	return &Error{Kind: KindDuplicate, Code: code, Message: msg, Err: cause}
}

func notFound(code, msg string, cause error) *Error {
	return &Error{Kind: KindNotFound, Code: code, Message: msg, Err: cause}
}

func forbidden(msg string) *Error {
	return &Error{Kind: KindPermission, Code: "forbidden", Message: msg}
}

func unavailable(code, msg string, cause error) *Error {
	return &Error{Kind: KindUnavailable, Code: code, Message: msg, Err: cause}
}

func internal(op string, cause error) *Error {
	return &Error{Kind: KindInternal, Code: "internal_error", Message: "internal error", Err: fmt.Errorf("%s: %w", op, cause)}
}

// errInvalidCredentials is shared by every authentication failure so the
// response never reveals which check failed.
var errInvalidCredentials = &Error{Kind: KindAuth, Code: "invalid_credentials", Message: "Incorrect Credentials"}

var errInvalidRefresh = &Error{Kind: KindAuth, Code: "invalid_refresh", Message: "Refresh token is invalid or expired"}
