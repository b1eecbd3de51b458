package domain

import (
	"errors"
	"fmt"
)

// Kind classifies an Error. The HTTP layer switches on it to pick a status.
type Kind int

const (
	KindInternal Kind = iota
	KindUnauthenticated
	KindForbidden
	KindNotFound
	KindValidation
	KindConflict
)

func (k Kind) String() string {
	switch k {
	case KindUnauthenticated:
		return "unauthenticated"
	case KindForbidden:
		return "forbidden"
	case KindNotFound:
		return "not_found"
	case KindValidation:
		return "validation"
	case KindConflict:
		return "conflict"
	default:
		return "internal"
	}
}

// Error is a domain failure with a message safe to show to the caller.
type Error struct {
	Kind    Kind
	Message string
	Err     error
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

// KindOf returns the kind of the first *Error in err's chain, or KindInternal.
func KindOf(err error) Kind {
	var de *Error
	if errors.As(err, &de) {
		return de.Kind
	}
	return KindInternal
}

// MessageOf returns the caller-facing message of err.
func MessageOf(err error) string {
	var de *Error
	if errors.As(err, &de) {
		return de.Message
	}
	return err.Error()
}

func NewValidationError(format string, args ...any) *Error {
	return &Error{Kind: KindValidation, Message: fmt.Sprintf(format, args...)}
}

func NewNotFoundError(format string, args ...any) *Error {
	return &Error{Kind: KindNotFound, Message: fmt.Sprintf(format, args...)}
}

func NewConflictError(format string, args ...any) *Error {
	return &Error{Kind: KindConflict, Message: fmt.Sprintf(format, args...)}
}

func NewForbiddenError(format string, args ...any) *Error {
	return &Error{Kind: KindForbidden, Message: fmt.Sprintf(format, args...)}
}

// Internal wraps an unexpected store or filesystem failure.
func Internal(msg string, err error) *Error {
	return &Error{Kind: KindInternal, Message: msg, Err: err}
}

// Authentication errors
var (
	ErrInvalidCredentials = &Error{Kind: KindUnauthenticated, Message: "invalid username or password"}
	ErrInvalidSession     = &Error{Kind: KindUnauthenticated, Message: "invalid or expired session"}
	ErrMissingToken       = &Error{Kind: KindUnauthenticated, Message: "no authentication token provided"}
	ErrWrongPassword      = &Error{Kind: KindUnauthenticated, Message: "current password is incorrect"}
	ErrAccountInactive    = &Error{Kind: KindForbidden, Message: "user account is inactive"}
	ErrAdminRequired      = &Error{Kind: KindForbidden, Message: "admin access required"}
)

// Lookup errors
var (
	ErrUserNotFound     = &Error{Kind: KindNotFound, Message: "user not found"}
	ErrGroupNotFound    = &Error{Kind: KindNotFound, Message: "group not found"}
	ErrDocumentNotFound = &Error{Kind: KindNotFound, Message: "document not found"}
	ErrTreeNotFound     = &Error{Kind: KindNotFound, Message: "document tree has not been generated"}
	ErrAssetNotFound    = &Error{Kind: KindNotFound, Message: "file not found"}
)

// Access and validation errors
var (
	ErrAccessDenied      = &Error{Kind: KindForbidden, Message: "access denied: you do not have permission to view this document"}
	ErrUsernameExists    = &Error{Kind: KindValidation, Message: "username already exists"}
	ErrEmailExists       = &Error{Kind: KindValidation, Message: "email already exists"}
	ErrGroupNameExists   = &Error{Kind: KindValidation, Message: "group name already exists"}
	ErrDocumentExists    = &Error{Kind: KindValidation, Message: "document is already registered"}
	ErrPasswordTooShort  = &Error{Kind: KindValidation, Message: "password must be at least 8 characters long"}
	ErrNewPasswordShort  = &Error{Kind: KindValidation, Message: "new password must be at least 6 characters long"}
	ErrCannotDeleteSelf  = &Error{Kind: KindValidation, Message: "cannot delete your own account"}
	ErrCannotDisableSelf = &Error{Kind: KindValidation, Message: "cannot deactivate your own account"}
	ErrCannotDemoteSelf  = &Error{Kind: KindValidation, Message: "cannot remove yourself from the admin group"}
	ErrUnknownGroups     = &Error{Kind: KindValidation, Message: "one or more groups do not exist"}
)
