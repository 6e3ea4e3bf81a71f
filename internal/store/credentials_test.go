package store

import (
	"os"
	"path/filepath"
	"testing"

	"herelaw/internal/domain"
)

func TestCredentialFileRoundTrip(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "nested", "credentials.json")
	s, err := NewCredentialFile(path)
	if err != nil {
		t.Fatalf("new failed: %v", err)
	}

	want := domain.Credentials{
		Token:         "tok-1",
		UserID:        "u-1",
		Username:      "june",
		LastSessionID: "S1",
	}
	if err := s.Save(want); err != nil {
		t.Fatalf("save failed: %v", err)
	}

	got, err := s.Load()
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if got != want {
		t.Fatalf("unexpected credentials: %+v", got)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("stat failed: %v", err)
	}
	if info.Mode().Perm() != 0o600 {
		t.Fatalf("expected 0600 perms, got %v", info.Mode().Perm())
	}
}

func TestCredentialFileLoadMissingIsLoggedOut(t *testing.T) {
	t.Parallel()

	s, err := NewCredentialFile(filepath.Join(t.TempDir(), "credentials.json"))
	if err != nil {
		t.Fatalf("new failed: %v", err)
	}

	got, err := s.Load()
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if got != (domain.Credentials{}) {
		t.Fatalf("expected zero credentials, got %+v", got)
	}
}

func TestCredentialFileLoadCorruptIsLoggedOut(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "credentials.json")
	if err := os.WriteFile(path, []byte("{not json"), 0o600); err != nil {
		t.Fatalf("write failed: %v", err)
	}

	s, err := NewCredentialFile(path)
	if err != nil {
		t.Fatalf("new failed: %v", err)
	}

	got, err := s.Load()
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if got != (domain.Credentials{}) {
		t.Fatalf("expected zero credentials, got %+v", got)
	}
}

func TestCredentialFileClear(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "credentials.json")
	s, err := NewCredentialFile(path)
	if err != nil {
		t.Fatalf("new failed: %v", err)
	}

	if err := s.Save(domain.Credentials{Token: "tok"}); err != nil {
		t.Fatalf("save failed: %v", err)
	}
	if err := s.Clear(); err != nil {
		t.Fatalf("clear failed: %v", err)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Fatalf("expected file removed, got %v", err)
	}

	// Clearing twice must not fail.
	if err := s.Clear(); err != nil {
		t.Fatalf("second clear failed: %v", err)
	}
}
