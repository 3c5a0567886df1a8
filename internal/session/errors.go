// Package session - errors.go defines the failure taxonomy for the session layer.
//
// DESIGN: Every failure in the token/session lifecycle collapses into one of a
// small set of kinds. Failures are captured into the session record's LastError
// and a state transition; they are never allowed to escape to the consumer as a
// panic or fatal error.
package session

import (
	"errors"
	"fmt"
)

// ErrorKind classifies a session-layer failure.
type ErrorKind string

const (
	// ErrorNone means no failure is recorded.
	ErrorNone ErrorKind = ""

	// ErrorInvalidCredentials means the exchanger rejected the login input
	// (empty fields, or the backend refused the password grant).
	ErrorInvalidCredentials ErrorKind = "invalid_credentials"

	// ErrorExchangeTransport means the backend was unreachable or misbehaved
	// during token issuance or OAuth sync.
	ErrorExchangeTransport ErrorKind = "exchange_transport_error"

	// ErrorMissingProviderGrant means the OAuth assertion carried no provider
	// access or refresh token at all. This usually indicates a consent-flow
	// misconfiguration and would otherwise only surface much later as a
	// delegated-call failure.
	ErrorMissingProviderGrant ErrorKind = "missing_provider_grant"

	// ErrorEnrichmentUnauthorized means the backend rejected the access token
	// on profile fetch. The token itself is expired or revoked, so the session
	// must be forced back to Unauthenticated.
	ErrorEnrichmentUnauthorized ErrorKind = "enrichment_unauthorized"

	// ErrorEnrichmentTransport means the profile fetch failed transiently.
	// The session stays usable with a stale profile (Degraded).
	ErrorEnrichmentTransport ErrorKind = "enrichment_transport_error"
)

// Sentinel errors for errors.Is checks at classification sites.
var (
	ErrInvalidCredentials     = errors.New("invalid credentials")
	ErrExchangeTransport      = errors.New("token exchange transport failure")
	ErrMissingProviderGrant   = errors.New("provider granted no tokens")
	ErrEnrichmentUnauthorized = errors.New("backend rejected access token")
	ErrEnrichmentTransport    = errors.New("profile fetch transport failure")
)

// Error is a classified session-layer failure. It wraps the underlying cause
// so call sites can still unwrap transport details for logging.
type Error struct {
	Kind  ErrorKind
	cause error
}

// NewError creates a classified error with an optional cause.
func NewError(kind ErrorKind, cause error) *Error {
	return &Error{Kind: kind, cause: cause}
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.cause == nil {
		return string(e.Kind)
	}
	return fmt.Sprintf("%s: %v", e.Kind, e.cause)
}

// Unwrap exposes the cause chain plus the matching sentinel.
func (e *Error) Unwrap() error {
	return e.cause
}

// Is maps kinds onto their sentinels so errors.Is(err, ErrInvalidCredentials)
// works regardless of how the error was constructed.
func (e *Error) Is(target error) bool {
	switch target {
	case ErrInvalidCredentials:
		return e.Kind == ErrorInvalidCredentials
	case ErrExchangeTransport:
		return e.Kind == ErrorExchangeTransport
	case ErrMissingProviderGrant:
		return e.Kind == ErrorMissingProviderGrant
	case ErrEnrichmentUnauthorized:
		return e.Kind == ErrorEnrichmentUnauthorized
	case ErrEnrichmentTransport:
		return e.Kind == ErrorEnrichmentTransport
	}
	return false
}

// KindOf extracts the ErrorKind from any error. Unclassified errors (and nil)
// map to ErrorNone.
func KindOf(err error) ErrorKind {
	if err == nil {
		return ErrorNone
	}
	var se *Error
	if errors.As(err, &se) {
		return se.Kind
	}
	return ErrorNone
}
