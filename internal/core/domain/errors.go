// Package domain defines the core domain models for Resonance.
package domain

import (
	"errors"
	"fmt"
	"strings"
)

// DomainError represents a client-side failure with a structured error code.
//
// Codes have the form RS-<AREA>-<NNNN> and are stable; the message is meant
// for display by whatever host surface called into the core.
type DomainError struct {
	Code    string // e.g. "RS-ACCT-4090"
	Message string
	Details string // raw server payload or status, for diagnostics
	Cause   error
}

func (e *DomainError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("[%s] %s: %s", e.Code, e.Message, e.Details)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

func (e *DomainError) Unwrap() error {
	return e.Cause
}

// Is matches any DomainError with the same code, so sentinels compare
// equal to their WithDetails and WithCause copies.
func (e *DomainError) Is(target error) bool {
	t, ok := target.(*DomainError)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// NewDomainError creates a new DomainError with the given code and message.
func NewDomainError(code, message string) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
	}
}

// WithDetails returns a copy of the error with additional details.
func (e *DomainError) WithDetails(details string) *DomainError {
	return &DomainError{
		Code:    e.Code,
		Message: e.Message,
		Details: details,
		Cause:   e.Cause,
	}
}

// WithCause returns a copy of the error wrapping the given cause.
func (e *DomainError) WithCause(cause error) *DomainError {
	return &DomainError{
		Code:    e.Code,
		Message: e.Message,
		Details: e.Details,
		Cause:   cause,
	}
}

// UserMessage returns the short message suitable for display.
// Details are left out; they are for logs and diagnostics.
func UserMessage(err error) string {
	if err == nil {
		return ""
	}
	var de *DomainError
	if errors.As(err, &de) {
		// Unrecognized server failures carry the raw payload through.
		if de.Code == ErrUnclassified.Code && de.Details != "" {
			return de.Message + ": " + de.Details
		}
		return de.Message
	}
	return err.Error()
}

// ============================================================================
// Transport and session errors
// ============================================================================

var (
	// ErrNetwork indicates a transport or connection failure.
	ErrNetwork = NewDomainError("RS-NET-5030", "network request failed")

	// ErrTooManyRedirects indicates the redirect hop bound was exceeded.
	ErrTooManyRedirects = NewDomainError("RS-NET-5080", "too many redirects")

	// ErrMalformedResponse indicates the server returned an unparseable body.
	ErrMalformedResponse = NewDomainError("RS-NET-5020", "malformed server response")

	// ErrAuthentication indicates bad credentials or a failed session creation.
	ErrAuthentication = NewDomainError("RS-AUTH-4010", "authentication failed")

	// ErrSessionExpired indicates the server rejected the access token.
	ErrSessionExpired = NewDomainError("RS-AUTH-4011", "session expired")

	// ErrNotAuthenticated indicates an operation required a live session.
	ErrNotAuthenticated = NewDomainError("RS-AUTH-4012", "not authenticated")

	// ErrRefreshUnavailable indicates there is no refresh token or endpoint.
	ErrRefreshUnavailable = NewDomainError("RS-AUTH-4013", "no refresh token or endpoint available")

	// ErrInvalidCredentials indicates a malformed "handle:password" string.
	ErrInvalidCredentials = NewDomainError("RS-AUTH-4000", "invalid credentials format, expected 'handle:password'")

	// ErrPublishFailed indicates the repository write was rejected.
	ErrPublishFailed = NewDomainError("RS-REPO-5000", "failed to publish record")
)

// ============================================================================
// Account provisioning errors
// ============================================================================

var (
	// ErrHandleTaken indicates the handle is already claimed.
	ErrHandleTaken = NewDomainError("RS-ACCT-4090", "Handle is already taken")

	// ErrInvalidHandle indicates the handle format was rejected.
	ErrInvalidHandle = NewDomainError("RS-ACCT-4001", "Handle format is invalid")

	// ErrInvalidPassword indicates the password does not meet the server policy.
	ErrInvalidPassword = NewDomainError("RS-ACCT-4002", "Password does not meet requirements")

	// ErrInviteRequired indicates the server requires an invite code.
	ErrInviteRequired = NewDomainError("RS-ACCT-4030", "Invite code required but not provided")

	// ErrUnsupportedDomain indicates the handle domain is not served by the endpoint.
	ErrUnsupportedDomain = NewDomainError("RS-ACCT-4003", "Handle domain not supported")

	// ErrPhoneVerification indicates the server requires phone verification.
	ErrPhoneVerification = NewDomainError("RS-ACCT-4031", "Phone verification required")

	// ErrNoHandleAvailable indicates every generated handle was taken.
	ErrNoHandleAvailable = NewDomainError("RS-ACCT-4091",
		"Unable to find available handle after multiple attempts. Please try again later.")

	// ErrUnclassified is the fallback for server responses matching no known marker.
	ErrUnclassified = NewDomainError("RS-ACCT-5000", "Account request failed")
)

// accountErrorMarkers maps server error markers to taxonomy entries.
// The substring fallback walks them in order.
var accountErrorMarkers = []struct {
	marker string
	err    *DomainError
}{
	{"HandleNotAvailable", ErrHandleTaken},
	{"InvalidHandle", ErrInvalidHandle},
	{"InvalidPassword", ErrInvalidPassword},
	{"InvalidInviteCode", ErrInviteRequired},
	{"UnsupportedDomain", ErrUnsupportedDomain},
	{"InvalidPhoneVerification", ErrPhoneVerification},
	{"PhoneVerificationRequired", ErrPhoneVerification},
}

// ClassifyAccountError maps a failed createAccount response to the error
// taxonomy. The structured XRPC error code is tried first; the raw body is
// only substring-matched when the code is absent or unknown.
func ClassifyAccountError(code, body string) *DomainError {
	if code != "" {
		for _, m := range accountErrorMarkers {
			if code == m.marker {
				return m.err.WithDetails(body)
			}
		}
	}

	for _, m := range accountErrorMarkers {
		if strings.Contains(body, m.marker) {
			return m.err.WithDetails(body)
		}
	}

	return ErrUnclassified.WithDetails(body)
}
