package registry

import (
	"errors"
	"fmt"

	"device-registry/internal/repository"
)

// ErrorCode classifies predictable domain failures. Backend connectivity
// failures are never wrapped in an Error and keep their original cause.
type ErrorCode string

const (
	// CodeInvalidReference: a referenced entity token does not resolve.
	CodeInvalidReference ErrorCode = "invalid-reference"
	// CodeDuplicateKey: a uniqueness constraint was violated.
	CodeDuplicateKey ErrorCode = "duplicate-key"
	// CodeAlreadyAssigned: the device already has an active assignment.
	CodeAlreadyAssigned ErrorCode = "already-assigned"
	// CodeNotFound: the target of the operation does not exist.
	CodeNotFound ErrorCode = "not-found"
	// CodeInUse: deletion blocked by dependent records.
	CodeInUse ErrorCode = "in-use"
	// CodeInvalidRequest: the request itself is malformed.
	CodeInvalidRequest ErrorCode = "invalid-request"
)

// Error is the typed failure returned by all service operations.
type Error struct {
	Code    ErrorCode
	Message string
	cause   error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error { return e.cause }

func newError(code ErrorCode, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// CodeOf extracts the error code, or "" for non-domain errors.
func CodeOf(err error) ErrorCode {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

// IsCode reports whether err is a domain error with the given code.
func IsCode(err error, code ErrorCode) bool {
	return CodeOf(err) == code
}

func invalidReference(what, token string) *Error {
	return newError(CodeInvalidReference, "%s %q does not resolve", what, token)
}

func notFound(what, ref string) *Error {
	return newError(CodeNotFound, "%s %q not found", what, ref)
}

func invalidRequest(format string, args ...any) *Error {
	return newError(CodeInvalidRequest, format, args...)
}

func inUse(format string, args ...any) *Error {
	return newError(CodeInUse, format, args...)
}

// refErr converts a failed reference lookup: a missing record becomes
// invalid-reference, because the caller named it rather than targeted it.
// Backend failures pass through.
func refErr(err error, what, token string) error {
	if errors.Is(err, repository.ErrNotFound) {
		return invalidReference(what, token)
	}
	return err
}

// storeErr translates repository sentinels into domain errors; anything
// else (a backend failure) passes through untouched.
func storeErr(err error, what, ref string) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, repository.ErrNotFound):
		return notFound(what, ref)
	case errors.Is(err, repository.ErrDuplicateKey):
		return newError(CodeDuplicateKey, "%s %q already exists", what, ref)
	default:
		return err
	}
}
