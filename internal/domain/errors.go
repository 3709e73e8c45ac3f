package domain

import (
	"errors"
	"fmt"
)

// Kind is the stable, machine-readable class of a failure.
// It is what callers see in the error envelope and what the HTTP
// layer maps to a status code.
type Kind string

const (
	KindUnauthorized      Kind = "Unauthorized"
	KindForbidden         Kind = "Forbidden"
	KindNotFound          Kind = "NotFound"
	KindExpired           Kind = "Expired"
	KindQuotaExceeded     Kind = "QuotaExceeded"
	KindInvalidArgument   Kind = "InvalidArgument"
	KindEngineUnavailable Kind = "EngineUnavailable"
	KindTimeout           Kind = "Timeout"
	KindBlockedByTarget   Kind = "BlockedByTarget"
	KindStoreUnavailable  Kind = "StoreUnavailable"
	KindInternal          Kind = "Internal"
)

// Error carries a Kind, a message safe to show to the caller and an
// optional underlying cause that is only ever logged.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches on Kind so errors.Is(err, ErrNotFound) works for any
// NotFound error regardless of message.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return t.Kind == e.Kind && t.Message == "" && t.Err == nil
}

// Sentinels for errors.Is comparisons.
var (
	ErrUnauthorized      = &Error{Kind: KindUnauthorized}
	ErrForbidden         = &Error{Kind: KindForbidden}
	ErrNotFound          = &Error{Kind: KindNotFound}
	ErrExpired           = &Error{Kind: KindExpired}
	ErrQuotaExceeded     = &Error{Kind: KindQuotaExceeded}
	ErrInvalidArgument   = &Error{Kind: KindInvalidArgument}
	ErrEngineUnavailable = &Error{Kind: KindEngineUnavailable}
	ErrTimeout           = &Error{Kind: KindTimeout}
	ErrBlockedByTarget   = &Error{Kind: KindBlockedByTarget}
	ErrStoreUnavailable  = &Error{Kind: KindStoreUnavailable}
)

// E builds a new Error.
func E(kind Kind, msg string, err error) *Error {
	return &Error{Kind: kind, Message: msg, Err: err}
}

// KindOf returns the Kind of err, or KindInternal when err carries none.
func KindOf(err error) Kind {
	if err == nil {
		return ""
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// MessageOf returns the caller-safe message of err.
// Unclassified errors never leak their text.
func MessageOf(err error) string {
	var e *Error
	if errors.As(err, &e) && e.Message != "" {
		return e.Message
	}
	return "internal error"
}

// Retryable reports whether an operation failing with err may succeed if
// attempted again shortly.
func Retryable(err error) bool {
	switch KindOf(err) {
	case KindEngineUnavailable, KindTimeout:
		return true
	default:
		return false
	}
}
