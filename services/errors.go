// Package services holds the identity and content rules that sit between the HTTP
// controllers and the stores.
package services

import (
	"errors"
	"fmt"
)

// Kind classifies a service failure so the transport can pick a response.
type Kind int

const (
	KindInternal Kind = iota
	KindValidation
	KindUnauthenticated
	KindUnauthorized
	KindForbidden
	KindConflict
	KindNotFound
	KindStorage
	KindCredential
	KindUpstream
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindUnauthenticated:
		return "unauthenticated"
	case KindUnauthorized:
		return "unauthorized"
	case KindForbidden:
		return "forbidden"
	case KindConflict:
		return "conflict"
	case KindNotFound:
		return "not_found"
	case KindStorage:
		return "storage"
	case KindCredential:
		return "credential"
	case KindUpstream:
		return "upstream"
	default:
		return "internal"
	}
}

// Error is returned by every service operation that fails.
type Error struct {
	Kind    Kind
	Message string // safe to show to clients
	Err     error  // underlying cause, logged but never returned to clients
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

func newError(kind Kind, msg string) *Error {
	return &Error{Kind: kind, Message: msg}
}

func Validation(msg string) *Error      { return newError(KindValidation, msg) }
func Unauthenticated(msg string) *Error { return newError(KindUnauthenticated, msg) }
func Unauthorized(msg string) *Error    { return newError(KindUnauthorized, msg) }
func Forbidden(msg string) *Error       { return newError(KindForbidden, msg) }
func Conflict(msg string) *Error        { return newError(KindConflict, msg) }
func NotFound(msg string) *Error        { return newError(KindNotFound, msg) }

// Storage wraps a store failure.
func Storage(err error) *Error {
	return &Error{Kind: KindStorage, Message: "Something went wrong, try again", Err: err}
}

// Credential wraps a hashing or token signing failure.
func Credential(err error) *Error {
	return &Error{Kind: KindCredential, Message: "Something went wrong, try again", Err: err}
}

// Upstream wraps a failure of an external collaborator such as the image store.
func Upstream(msg string, err error) *Error {
	return &Error{Kind: KindUpstream, Message: msg, Err: err}
}

// KindOf reports the kind of err; errors not produced by this package are internal.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}
