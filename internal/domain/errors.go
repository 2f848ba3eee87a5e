package domain

import (
	"errors"
	"fmt"
)

// Code classifies a lifecycle failure. Callers branch on it, never on the
// message text.
type Code string

const (
	CodeNotVerified      Code = "not_verified"
	CodeRoleMismatch     Code = "role_mismatch"
	CodeAdClosed         Code = "ad_closed"
	CodeInvalidBid       Code = "invalid_bid"
	CodeForbidden        Code = "forbidden"
	CodeInvalidState     Code = "invalid_state"
	CodeInvalidAmount    Code = "invalid_amount"
	CodeInvalidRole      Code = "invalid_role"
	CodeMissingDocuments Code = "missing_documents"
	CodeNotFound         Code = "not_found"
	CodeInvalidInput     Code = "invalid_input"
	CodeInvalidPassword  Code = "invalid_password"
	CodeConflict         Code = "conflict"
	CodeUnauthorized     Code = "unauthorized"
)

// Error is a validation-style failure detected before any mutation. Field
// names the offending input, Reason says how to fix it.
type Error struct {
	Code   Code
	Field  string
	Reason string
}

func (e *Error) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("%s: %s: %s", e.Code, e.Field, e.Reason)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Reason)
}

// Is matches any *Error carrying the same code, so
// errors.Is(err, domain.ErrAdClosed) works regardless of field and reason.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Code == e.Code
}

func NewError(code Code, field, reason string) *Error {
	return &Error{Code: code, Field: field, Reason: reason}
}

var (
	ErrNotVerified      = &Error{Code: CodeNotVerified, Reason: "profile is not verified"}
	ErrRoleMismatch     = &Error{Code: CodeRoleMismatch, Reason: "bidder must hold the opposite role of the poster"}
	ErrAdClosed         = &Error{Code: CodeAdClosed, Reason: "ad already has an accepted bid"}
	ErrInvalidBid       = &Error{Code: CodeInvalidBid, Reason: "bid does not belong to this ad"}
	ErrForbidden        = &Error{Code: CodeForbidden, Reason: "not allowed"}
	ErrInvalidState     = &Error{Code: CodeInvalidState, Reason: "operation not allowed in the current state"}
	ErrInvalidAmount    = &Error{Code: CodeInvalidAmount, Reason: "amount must be positive"}
	ErrInvalidRole      = &Error{Code: CodeInvalidRole, Reason: "role required or not properly defined"}
	ErrMissingDocuments = &Error{Code: CodeMissingDocuments, Reason: "documents is required"}
	ErrNotFound         = &Error{Code: CodeNotFound, Reason: "not found"}
	ErrInvalidInput     = &Error{Code: CodeInvalidInput, Reason: "invalid input"}
	ErrInvalidPassword  = &Error{Code: CodeInvalidPassword, Reason: "password rejected"}
	ErrConflict         = &Error{Code: CodeConflict, Reason: "already exists"}
	ErrUnauthorized     = &Error{Code: CodeUnauthorized, Reason: "invalid credentials"}
)

// NotFound builds a NotFound error for the named entity.
func NotFound(entity string) *Error {
	return NewError(CodeNotFound, entity, entity+" not found")
}

// AsError unwraps err to a *Error if there is one in the chain.
func AsError(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}

// CodeOf returns the lifecycle code of err, or "" for infrastructure errors.
func CodeOf(err error) Code {
	if e, ok := AsError(err); ok {
		return e.Code
	}
	return ""
}
