package services

import (
	"errors"
	"fmt"
)

// ErrorKind classifies a service error so controllers can map it to an
// HTTP status without inspecting messages.
type ErrorKind int

const (
	KindInternal ErrorKind = iota
	KindNotFound
	KindBadRequest
	KindForbidden
	KindConflict
)

// Error is the one typed error returned by all service operations.
type Error struct {
	Kind    ErrorKind
	Message string
	cause   error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return e.Message + ": " + e.cause.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.cause
}

// NotFoundError reports a missing entity
func NotFoundError(format string, args ...interface{}) *Error {
	return &Error{Kind: KindNotFound, Message: fmt.Sprintf(format, args...)}
}

// BadRequestError reports an invalid transition, missing required field
// or failed precondition
func BadRequestError(format string, args ...interface{}) *Error {
	return &Error{Kind: KindBadRequest, Message: fmt.Sprintf(format, args...)}
}

// ForbiddenError reports an actor lacking permission for an entity
func ForbiddenError(format string, args ...interface{}) *Error {
	return &Error{Kind: KindForbidden, Message: fmt.Sprintf(format, args...)}
}

// ConflictError reports a duplicate unique key
func ConflictError(format string, args ...interface{}) *Error {
	return &Error{Kind: KindConflict, Message: fmt.Sprintf(format, args...)}
}

// InternalError wraps an unexpected persistence or gateway failure
func InternalError(cause error, message string) *Error {
	return &Error{Kind: KindInternal, Message: message, cause: cause}
}

// KindOf extracts the error kind; unrecognized errors are internal.
func KindOf(err error) ErrorKind {
	var svcErr *Error
	if errors.As(err, &svcErr) {
		return svcErr.Kind
	}
	return KindInternal
}
