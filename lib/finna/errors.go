package finna

import (
	"errors"
	"fmt"
)

var (
	// the portal rejected the submitted credentials (login status other
	// than 205)
	ErrInvalidCredentials = errors.New("invalid username, password or user type")
	// the session probe failed and the silent re-login failed too
	ErrSessionInvalid = errors.New("session could not be validated")
	// a record lookup by id returned zero results
	ErrNotFound = errors.New("record not found")
)

// StatusError reports a response that was received but carried a status code
// outside the expected set for the operation. A transport failure (no
// response at all) is returned as the underlying transport error instead.
type StatusError struct {
	Code int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected response status %d", e.Code)
}

// ParseError reports a 2xx response whose body is missing structure the
// operation cannot proceed without, e.g. the login CSRF token or the
// hold hash key. Missing optional fields never produce a ParseError.
type ParseError struct {
	Section string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("required markup missing: %s", e.Section)
}

// RenewError reports a renewal the portal refused, carrying the failure
// banner's text verbatim.
type RenewError struct {
	Message string
}

func (e *RenewError) Error() string {
	return "renew refused: " + e.Message
}
