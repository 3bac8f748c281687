package authclient

import (
	"context"
	"errors"
)

// Structured codes returned by the server in the "code" field of an error body.
const (
	CodeVerificationExpired = "VERIFICATION_EXPIRED"
	CodeAccountNotFound     = "ACCOUNT_NOT_FOUND"
)

// ValidationError reports an empty or missing required field.
// It is returned before any network call is made.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

// StateError reports an operation attempted in the wrong state, such as
// submitting a code without a pending token.
type StateError struct {
	State   State
	Message string
}

func (e *StateError) Error() string { return e.Message }

// RequestError is a non-2xx response from the server.
type RequestError struct {
	// Status is the HTTP status code.
	Status int
	// Code is the optional machine-readable reason sent by the server.
	Code string
	// Message is the text extracted by ExtractMessage.
	Message string
}

func (e *RequestError) Error() string { return e.Message }

// NetworkError is a transport failure where no usable response was received.
type NetworkError struct {
	Op  string
	Err error
}

func (e *NetworkError) Error() string {
	return "authclient: " + e.Op + ": " + e.Err.Error()
}

func (e *NetworkError) Unwrap() error { return e.Err }

// UserMessage returns the text a user should see for err.
func UserMessage(err error) string {
	if err == nil {
		return ""
	}

	var nerr *NetworkError
	if errors.As(err, &nerr) {
		if errors.Is(nerr.Err, context.DeadlineExceeded) {
			return "The server took too long to respond. Please try again."
		}
		return "Unable to reach the server. Check your connection and try again."
	}

	return err.Error()
}

// IsVerificationExpired reports whether err is the server's signal that the
// pending token is no longer usable.
func IsVerificationExpired(err error) bool {
	var rerr *RequestError
	if !errors.As(err, &rerr) {
		return false
	}
	return rerr.Code == CodeVerificationExpired
}
