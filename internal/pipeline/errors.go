package pipeline

import (
	"errors"
	"fmt"
)

var (
	// ErrUnauthorized means the credential was missing, expired, or revoked.
	// The app treats it the same in all three cases: clear the credential
	// and return to login.
	ErrUnauthorized = errors.New("pipeline: unauthorized")

	// ErrTransport means no usable response reached us (connection refused,
	// DNS failure, timeout). The action stays retriable.
	ErrTransport = errors.New("pipeline: transport failure")

	// ErrValidation marks input problems caught before any network call.
	ErrValidation = errors.New("invalid input")
)

// ServerError is a non-2xx response that carried a message payload.
type ServerError struct {
	StatusCode int
	Message    string
}

func (e *ServerError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("pipeline: server rejected request (%d): %s", e.StatusCode, e.Message)
	}
	return fmt.Sprintf("pipeline: server rejected request (%d)", e.StatusCode)
}

// UserMessage converts any gateway error into the line shown to the user,
// with an action-specific fallback for shapes we cannot say more about.
func UserMessage(err error, fallback string) string {
	if err == nil {
		return ""
	}
	var serverErr *ServerError
	switch {
	case errors.Is(err, ErrUnauthorized):
		return "Session expired. Please log in again."
	case errors.Is(err, ErrTransport):
		return "Could not reach the review server. Check your connection and retry."
	case errors.As(err, &serverErr):
		if serverErr.Message != "" {
			return serverErr.Message
		}
		return fallback
	case errors.Is(err, ErrValidation):
		return err.Error()
	default:
		return fallback
	}
}
