package session

import (
	"errors"
	"testing"
)

func TestNewRejectsEmptyID(t *testing.T) {
	if _, err := New("", "contract.pdf"); err == nil {
		t.Fatalf("expected error for empty session id")
	}
	if _, err := New("   ", "contract.pdf"); err == nil {
		t.Fatalf("expected error for blank session id")
	}
}

func TestRequireGuardsZeroSession(t *testing.T) {
	if err := Require(Session{}); !errors.Is(err, ErrNoSession) {
		t.Fatalf("expected ErrNoSession, got %v", err)
	}
	s, err := New("abc123", "contract.pdf")
	if err != nil {
		t.Fatalf("new session: %v", err)
	}
	if err := Require(s); err != nil {
		t.Fatalf("expected live session to pass, got %v", err)
	}
	if s.ID() != "abc123" || s.Filename() != "contract.pdf" {
		t.Fatalf("session fields lost: %q %q", s.ID(), s.Filename())
	}
}
