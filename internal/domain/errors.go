package domain

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound         = errors.New("not found")
	ErrNotAuthenticated = errors.New("not authenticated")
)

// ValidationError reports a client-detected invalid input. It is raised
// before any network call and is always recoverable by correcting the named
// field.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validate %s: %s", e.Field, e.Reason)
}

// NewValidationError builds a ValidationError for the given field.
func NewValidationError(field, format string, args ...any) *ValidationError {
	return &ValidationError{Field: field, Reason: fmt.Sprintf(format, args...)}
}

// LedgerErrorCode classifies failures at the ledger boundary.
type LedgerErrorCode string

const (
	// LedgerSubmissionRejected covers both access-node rejections and
	// client-side argument encoding mismatches caught before the network.
	LedgerSubmissionRejected   LedgerErrorCode = "submission_rejected"
	LedgerNetworkUnavailable   LedgerErrorCode = "network_unavailable"
	LedgerAuthorizationMissing LedgerErrorCode = "authorization_missing"
	// LedgerTimeout means the seal wait ceiling elapsed. It does NOT imply
	// the transaction failed; callers reconcile with a follow-up query.
	LedgerTimeout           LedgerErrorCode = "timeout"
	LedgerExecutionReverted LedgerErrorCode = "execution_reverted"
	LedgerQueryFailed       LedgerErrorCode = "query_failed"
)

// LedgerError is any failure surfaced by the Ledger Gateway, normalized into
// the client's vocabulary. Reason carries the ledger's message verbatim for
// ExecutionReverted.
type LedgerError struct {
	Code   LedgerErrorCode
	Reason string
	TxID   string
	cause  error
}

func (e *LedgerError) Error() string {
	switch {
	case e.Reason != "" && e.cause != nil:
		return fmt.Sprintf("ledger: %s: %s: %v", e.Code, e.Reason, e.cause)
	case e.Reason != "":
		return fmt.Sprintf("ledger: %s: %s", e.Code, e.Reason)
	case e.cause != nil:
		return fmt.Sprintf("ledger: %s: %v", e.Code, e.cause)
	}
	return fmt.Sprintf("ledger: %s", e.Code)
}

func (e *LedgerError) Unwrap() error { return e.cause }

// Transient reports whether retrying the whole workflow from validation may
// succeed without changing input.
func (e *LedgerError) Transient() bool {
	return e.Code == LedgerNetworkUnavailable || e.Code == LedgerTimeout
}

// NewLedgerError builds a LedgerError wrapping an optional cause.
func NewLedgerError(code LedgerErrorCode, cause error, format string, args ...any) *LedgerError {
	return &LedgerError{Code: code, Reason: fmt.Sprintf(format, args...), cause: cause}
}

// LedgerCode extracts the LedgerErrorCode from err, or "" when err is not a
// LedgerError.
func LedgerCode(err error) LedgerErrorCode {
	var le *LedgerError
	if errors.As(err, &le) {
		return le.Code
	}
	return ""
}

// AuthErrorCode classifies sign-in/sign-out failures.
type AuthErrorCode string

const (
	AuthUserRejected AuthErrorCode = "user_rejected"
	AuthTimeout      AuthErrorCode = "timeout"
)

// AuthError is a wallet authentication failure.
type AuthError struct {
	Code  AuthErrorCode
	cause error
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("auth: %s", e.Code)
}

func (e *AuthError) Unwrap() error { return e.cause }

// NewAuthError builds an AuthError wrapping an optional cause.
func NewAuthError(code AuthErrorCode, cause error) *AuthError {
	return &AuthError{Code: code, cause: cause}
}

// ConcurrentOperationError is the client-side guard rejecting a second
// mutating operation on a ponder while one is still pending for the same
// user. Retry after the pending operation settles.
type ConcurrentOperationError struct {
	PonderID PonderID
}

func (e *ConcurrentOperationError) Error() string {
	return fmt.Sprintf("operation already in flight for ponder %d", e.PonderID)
}
