package xrpc

import (
	"encoding/json"
	"fmt"
)

// Error is the standard XRPC error envelope.
type Error struct {
	// Code is the machine-readable error name (e.g., "HandleNotAvailable").
	Code string `json:"error"`
	// Message is the server's human-readable description.
	Message string `json:"message"`
	// StatusCode is the HTTP status code of the response.
	StatusCode int `json:"-"`
}

func (e *Error) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("xrpc: %s (%d)", e.Code, e.StatusCode)
	}
	return fmt.Sprintf("xrpc: %s (%d): %s", e.Code, e.StatusCode, e.Message)
}

// Well-known XRPC error codes.
const (
	ErrCodeExpiredToken   = "ExpiredToken"
	ErrCodeInvalidToken   = "InvalidToken"
	ErrCodeAuthRequired   = "AuthenticationRequired"
	ErrCodeInvalidRequest = "InvalidRequest"
)

// parseError decodes an error envelope, tolerating non-JSON bodies.
func parseError(status int, body []byte) *Error {
	e := &Error{StatusCode: status}
	if err := json.Unmarshal(body, e); err != nil {
		e.Code = ""
		e.Message = string(body)
	}
	return e
}
