// Package auth holds the process-wide authentication state: the bearer token
// persisted between runs and the identity verified against the server at
// startup. There is exactly one State per app; gateway calls read the token
// through it and a 401 from any call tears it down.
package auth

import (
	"errors"
	"io/fs"
	"os"
	"strings"
	"sync"
)

// State is the single authentication context for the app.
type State struct {
	path string

	mu    sync.Mutex
	token string
	name  string
	email string
}

// NewState creates authentication state backed by the given credential file.
func NewState(path string) *State {
	return &State{path: path}
}

// Load reads any persisted credential. A missing file simply leaves the
// state logged out; the caller verifies a loaded token against the server
// before trusting it.
func (s *State) Load() error {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return err
	}
	s.mu.Lock()
	s.token = strings.TrimSpace(string(data))
	s.mu.Unlock()
	return nil
}

// Token returns the current bearer token, or "" when logged out.
func (s *State) Token() string {
	if s == nil {
		return ""
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.token
}

// Authenticated reports whether a credential is present. An invalid
// credential is indistinguishable from none until the server rejects it.
func (s *State) Authenticated() bool {
	return s.Token() != ""
}

// SetCredential stores and persists the token issued at login.
func (s *State) SetCredential(token string) error {
	token = strings.TrimSpace(token)
	if token == "" {
		return errors.New("auth: empty credential")
	}
	s.mu.Lock()
	s.token = token
	s.mu.Unlock()
	return os.WriteFile(s.path, []byte(token+"\n"), 0o600)
}

// SetIdentity records the verified user for display.
func (s *State) SetIdentity(name, email string) {
	s.mu.Lock()
	s.name = strings.TrimSpace(name)
	s.email = strings.TrimSpace(email)
	s.mu.Unlock()
}

// Identity returns the verified display name and email.
func (s *State) Identity() (name, email string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.name, s.email
}

// Logout clears the credential and identity, in memory and on disk.
// Called on explicit logout and whenever the server rejects the token.
func (s *State) Logout() error {
	s.mu.Lock()
	s.token = ""
	s.name = ""
	s.email = ""
	s.mu.Unlock()
	err := os.Remove(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return err
}
