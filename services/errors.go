package services

import (
	"errors"
	"strings"

	"gorm.io/gorm"
)

type ErrorKind string

const (
	KindNotFound            ErrorKind = "not_found"
	KindDuplicateInvitation ErrorKind = "duplicate_invitation"
	KindCapacityExceeded    ErrorKind = "capacity_exceeded"
	KindInvalidState        ErrorKind = "invalid_state"
	KindTokenExpired        ErrorKind = "token_expired"
	KindTokenNotFound       ErrorKind = "token_not_found"
	KindStorageFailure      ErrorKind = "storage_failure"
	KindValidation          ErrorKind = "validation"
	KindDuplicateTopper     ErrorKind = "duplicate_topper"
	KindDuplicateEmail      ErrorKind = "duplicate_email"
	KindUnauthorized        ErrorKind = "unauthorized"
	KindForbidden           ErrorKind = "forbidden"
	KindNotificationFailure ErrorKind = "notification_failure"
)

// Error is the structured result every service returns for expected failures.
// Message is safe to show to end users; Err keeps the cause for logs.
type Error struct {
	Kind    ErrorKind
	Message string
	Fields  map[string]string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil && e.Kind != KindStorageFailure {
		return e.Message + ": " + e.Err.Error()
	}
	if e.Message == "" {
		return string(e.Kind)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches on Kind so callers can compare against the sentinels below.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Kind == e.Kind
}

var (
	ErrNotFound            = &Error{Kind: KindNotFound}
	ErrDuplicateInvitation = &Error{Kind: KindDuplicateInvitation}
	ErrCapacityExceeded    = &Error{Kind: KindCapacityExceeded}
	ErrInvalidState        = &Error{Kind: KindInvalidState}
	ErrTokenExpired        = &Error{Kind: KindTokenExpired}
	ErrTokenNotFound       = &Error{Kind: KindTokenNotFound}
	ErrStorageFailure      = &Error{Kind: KindStorageFailure}
	ErrValidation          = &Error{Kind: KindValidation}
	ErrDuplicateTopper     = &Error{Kind: KindDuplicateTopper}
	ErrDuplicateEmail      = &Error{Kind: KindDuplicateEmail}
	ErrUnauthorized        = &Error{Kind: KindUnauthorized}
	ErrForbidden           = &Error{Kind: KindForbidden}
	ErrNotificationFailure = &Error{Kind: KindNotificationFailure}
)

func newError(kind ErrorKind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

func validationError(message string, fields map[string]string) *Error {
	return &Error{Kind: KindValidation, Message: message, Fields: fields}
}

func storageFailure(err error) *Error {
	return &Error{Kind: KindStorageFailure, Message: "storage failure", Err: err}
}

// notFoundOr maps gorm's record-not-found to a NotFound error and anything else
// to a StorageFailure.
func notFoundOr(err error, message string) *Error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return newError(KindNotFound, message)
	}
	return storageFailure(err)
}

// asServiceError passes *Error values through untouched and wraps the rest.
func asServiceError(err error) error {
	if err == nil {
		return nil
	}
	var svcErr *Error
	if errors.As(err, &svcErr) {
		return svcErr
	}
	return storageFailure(err)
}

// isUniqueViolation recognises unique-constraint errors from gorm's translated
// error as well as raw Postgres and SQLite driver messages.
func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "duplicate key") ||
		strings.Contains(msg, "unique constraint") ||
		strings.Contains(msg, "sqlstate 23505")
}
