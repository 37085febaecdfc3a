package auth

import (
	"os"
	"path/filepath"
	"testing"
)

func TestCredentialRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "credentials")
	state := NewState(path)
	if state.Authenticated() {
		t.Fatalf("fresh state must be logged out")
	}
	if err := state.SetCredential("tok-123"); err != nil {
		t.Fatalf("set credential: %v", err)
	}

	reloaded := NewState(path)
	if err := reloaded.Load(); err != nil {
		t.Fatalf("load: %v", err)
	}
	if got := reloaded.Token(); got != "tok-123" {
		t.Fatalf("expected persisted token, got %q", got)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("stat credentials: %v", err)
	}
	if perm := info.Mode().Perm(); perm != 0o600 {
		t.Fatalf("credentials file must be 0600, got %v", perm)
	}
}

func TestLoadMissingFileLeavesLoggedOut(t *testing.T) {
	state := NewState(filepath.Join(t.TempDir(), "credentials"))
	if err := state.Load(); err != nil {
		t.Fatalf("missing file should not error: %v", err)
	}
	if state.Authenticated() {
		t.Fatalf("expected logged-out state")
	}
}

func TestLogoutClearsEverything(t *testing.T) {
	path := filepath.Join(t.TempDir(), "credentials")
	state := NewState(path)
	if err := state.SetCredential("tok-123"); err != nil {
		t.Fatalf("set credential: %v", err)
	}
	state.SetIdentity("Dana Reyes", "dana@example.com")
	if err := state.Logout(); err != nil {
		t.Fatalf("logout: %v", err)
	}
	if state.Authenticated() {
		t.Fatalf("expected logged-out state after logout")
	}
	if name, email := state.Identity(); name != "" || email != "" {
		t.Fatalf("identity should be cleared, got %q %q", name, email)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Fatalf("credential file should be removed")
	}
	// Logging out twice is fine.
	if err := state.Logout(); err != nil {
		t.Fatalf("second logout: %v", err)
	}
}

func TestSetCredentialRejectsEmpty(t *testing.T) {
	state := NewState(filepath.Join(t.TempDir(), "credentials"))
	if err := state.SetCredential("  "); err == nil {
		t.Fatalf("expected error for empty credential")
	}
}
