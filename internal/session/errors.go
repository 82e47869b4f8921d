package session

import (
	"errors"
	"fmt"
)

// Error kinds. Callers match them with errors.Is.
var (
	// ErrInvalidInput is returned when email, password or other fields fail
	// local validation. The network is never reached.
	ErrInvalidInput = errors.New("invalid input")
	// ErrRateLimitExceeded is returned when the local request window is used up.
	ErrRateLimitExceeded = errors.New("rate limit exceeded")
	// ErrUnauthorized is returned when the session is missing, expired or
	// rejected by the server. Credentials are always cleared first.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrRequestFailed covers transport errors and non-success responses.
	ErrRequestFailed = errors.New("request failed")
	// ErrNoRefreshToken is returned when a refresh is attempted without a
	// refresh token.
	ErrNoRefreshToken = errors.New("no refresh token available")
	// ErrInvalidFile is returned when an upload fails the size or type check.
	ErrInvalidFile = errors.New("invalid file")
)

// RequestError carries the server response for a failed call.
type RequestError struct {
	Endpoint   string
	StatusCode int
	Message    string
	Kind       error
}

func (e *RequestError) Error() string {
	if e == nil {
		return ErrRequestFailed.Error()
	}
	kind := e.Kind
	if kind == nil {
		kind = ErrRequestFailed
	}
	switch {
	case e.StatusCode > 0 && e.Message != "":
		return fmt.Sprintf("%s %s: status %d: %s", kind, e.Endpoint, e.StatusCode, e.Message)
	case e.StatusCode > 0:
		return fmt.Sprintf("%s %s: status %d", kind, e.Endpoint, e.StatusCode)
	case e.Message != "":
		return fmt.Sprintf("%s %s: %s", kind, e.Endpoint, e.Message)
	default:
		return fmt.Sprintf("%s %s", kind, e.Endpoint)
	}
}

func (e *RequestError) Unwrap() error {
	if e == nil || e.Kind == nil {
		return ErrRequestFailed
	}
	return e.Kind
}

func invalidInput(message string) error {
	return fmt.Errorf("%w: %s", ErrInvalidInput, message)
}

func invalidFile(message string) error {
	return fmt.Errorf("%w: %s", ErrInvalidFile, message)
}
