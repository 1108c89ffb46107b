package services

import (
	"errors"
	"fmt"
)

// Kind classifies service failures. Handlers map kinds to HTTP status codes.
type Kind string

const (
	KindValidation       Kind = "validation"
	KindNotFound         Kind = "not_found"
	KindNoCodeIssued     Kind = "no_code_issued"
	KindInvalidExpiry    Kind = "invalid_expiry"
	KindExpired          Kind = "expired"
	KindMismatch         Kind = "mismatch"
	KindConflict         Kind = "conflict"
	KindInvalidSignature Kind = "invalid_signature"
	KindConfig           Kind = "config"
	KindUpstream         Kind = "upstream"
	KindUnauthorized     Kind = "unauthorized"
	KindInternal         Kind = "internal"
)

// Error is the typed error returned by every service.
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

// Is matches another *Error by kind, so errors.Is(err, ErrExpired) works.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Kind == e.Kind && (t.Message == "" || t.Message == e.Message)
}

func NewError(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

func Wrap(kind Kind, message string, err error) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

// KindOf returns the kind of err, or KindInternal for foreign errors.
func KindOf(err error) Kind {
	var svcErr *Error
	if errors.As(err, &svcErr) {
		return svcErr.Kind
	}
	return KindInternal
}

// Sentinels for errors.Is checks; they match any error of the same kind.
var (
	ErrValidation       = &Error{Kind: KindValidation}
	ErrNotFound         = &Error{Kind: KindNotFound}
	ErrNoCodeIssued     = &Error{Kind: KindNoCodeIssued}
	ErrInvalidExpiry    = &Error{Kind: KindInvalidExpiry}
	ErrExpired          = &Error{Kind: KindExpired}
	ErrMismatch         = &Error{Kind: KindMismatch}
	ErrConflict         = &Error{Kind: KindConflict}
	ErrInvalidSignature = &Error{Kind: KindInvalidSignature}
	ErrConfig           = &Error{Kind: KindConfig}
	ErrUpstream         = &Error{Kind: KindUpstream}
	ErrUnauthorized     = &Error{Kind: KindUnauthorized}
)
