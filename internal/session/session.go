// Package session carries the identity of one document's journey through the
// review pipeline. A session is issued by the server at upload time and is
// replaced wholesale on the next upload, never mutated.
package session

import (
	"errors"
	"fmt"
	"strings"
)

// ErrNoSession signals that a screen was entered without a live session,
// e.g. after a direct jump or once the previous workflow finished. Callers
// redirect to the upload screen when they see it.
var ErrNoSession = errors.New("session: no active session")

// Session identifies one in-flight document review.
type Session struct {
	id       string
	filename string
}

// New creates a session from the server-assigned identifier and the original
// filename. The filename is display-only and never validated.
func New(id, filename string) (Session, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return Session{}, fmt.Errorf("session: server did not assign a session id")
	}
	return Session{id: id, filename: filename}, nil
}

// ID returns the opaque server-assigned identifier.
func (s Session) ID() string { return s.id }

// Filename returns the original upload filename.
func (s Session) Filename() string { return s.filename }

// Require guards a dependent stage against entering without a session.
func Require(s Session) error {
	if s.id == "" {
		return ErrNoSession
	}
	return nil
}
