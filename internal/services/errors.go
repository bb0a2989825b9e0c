package services

import (
	"errors"
	"fmt"

	"gorm.io/gorm"
)

// Kind classifies a service failure; handlers map it to an HTTP status.
type Kind int

const (
	KindInvalid Kind = iota + 1
	KindUnauthorized
	KindForbidden
	KindNotFound
	KindConflict
)

// Error is a business rule failure surfaced to the caller.
type Error struct {
	Kind    Kind
	Message string
}

func (e *Error) Error() string {
	return e.Message
}

// Is matches any *Error of the same kind, so errors.Is(err, ErrForbidden)
// works for every forbidden failure.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Kind == e.Kind && t.Message == ""
}

func newError(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

func Invalid(format string, args ...any) *Error { return newError(KindInvalid, format, args...) }
func Unauthorized(format string, args ...any) *Error { return newError(KindUnauthorized, format, args...) }
func Forbidden(format string, args ...any) *Error { return newError(KindForbidden, format, args...) }
func NotFound(format string, args ...any) *Error { return newError(KindNotFound, format, args...) }
func Conflict(format string, args ...any) *Error { return newError(KindConflict, format, args...) }

// Kind sentinels for errors.Is.
var (
	ErrInvalid      = &Error{Kind: KindInvalid}
	ErrUnauthorized = &Error{Kind: KindUnauthorized}
	ErrForbidden    = &Error{Kind: KindForbidden}
	ErrNotFound     = &Error{Kind: KindNotFound}
	ErrConflict     = &Error{Kind: KindConflict}
)

// notFoundOr turns gorm.ErrRecordNotFound into a NotFound error naming what
// was missing and wraps anything else.
func notFoundOr(err error, what string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return NotFound("%s not found", what)
	}
	return fmt.Errorf("load %s: %w", what, err)
}

// conflictOr turns gorm.ErrDuplicatedKey into a Conflict error with msg and
// wraps anything else. It covers rows inserted by a concurrent request after
// the existence check.
func conflictOr(err error, msg, op string) error {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return Conflict("%s", msg)
	}
	return fmt.Errorf("%s: %w", op, err)
}
