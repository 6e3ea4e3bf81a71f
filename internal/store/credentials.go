package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"herelaw/internal/domain"
)

// CredentialFile persists auth breadcrumbs (token, username, last session
// id) as a JSON file, standing in for the browser's localStorage. Tokens
// are the only secret the client ever stores.
type CredentialFile struct {
	path string
	mu   sync.Mutex
}

func NewCredentialFile(path string) (*CredentialFile, error) {
	if path == "" {
		return nil, errors.New("credentials path is required")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("failed to ensure credentials dir: %w", err)
	}
	return &CredentialFile{path: path}, nil
}

// Load returns the stored credentials, or zero credentials when none exist.
func (s *CredentialFile) Load() (domain.Credentials, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	raw, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return domain.Credentials{}, nil
		}
		return domain.Credentials{}, fmt.Errorf("failed to read credentials: %w", err)
	}

	var creds domain.Credentials
	if err := json.Unmarshal(raw, &creds); err != nil {
		// A corrupt file is treated as logged out rather than a fatal error.
		return domain.Credentials{}, nil
	}
	return creds, nil
}

func (s *CredentialFile) Save(creds domain.Credentials) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	raw, err := json.MarshalIndent(creds, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode credentials: %w", err)
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, raw, 0o600); err != nil {
		return fmt.Errorf("failed to write credentials: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("failed to replace credentials: %w", err)
	}
	return nil
}

// Clear removes all stored breadcrumbs. Called on logout and on any 401.
func (s *CredentialFile) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.Remove(s.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to clear credentials: %w", err)
	}
	return nil
}
