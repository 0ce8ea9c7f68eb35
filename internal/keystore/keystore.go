package keystore

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

const fileName = "credentials.json"

// Credentials is the single durable entry the client persists between
// runs: the last issued access token and the long-lived refresh cookie
// value. An absent file means "guest".
type Credentials struct {
	AccessToken   string `json:"access_token,omitempty"`
	RefreshCookie string `json:"refresh_cookie,omitempty"`
}

func (c Credentials) empty() bool {
	return c.AccessToken == "" && c.RefreshCookie == ""
}

// Store reads and writes credentials under a state directory. All writes
// go through a temp-file rename so a crash never leaves a torn file.
type Store struct {
	mu   sync.Mutex
	path string
}

// Open prepares a store rooted at dir, creating the directory if needed.
func Open(dir string) (*Store, error) {
	if dir == "" {
		return nil, errors.New("keystore: state dir is required")
	}
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("keystore: create state dir: %w", err)
	}
	return &Store{path: filepath.Join(dir, fileName)}, nil
}

// Load returns the persisted credentials. A missing file is not an error:
// it yields zero credentials and found=false.
func (s *Store) Load() (Credentials, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.load()
}

func (s *Store) load() (Credentials, bool, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return Credentials{}, false, nil
	}
	if err != nil {
		return Credentials{}, false, fmt.Errorf("keystore: read: %w", err)
	}
	var creds Credentials
	if err := json.Unmarshal(data, &creds); err != nil {
		// A corrupt file is treated as absent; the next write replaces it.
		return Credentials{}, false, nil
	}
	return creds, true, nil
}

// SetAccessToken persists a new access token, preserving the refresh
// cookie. An empty token removes the field; clearing an already-absent
// token performs no write.
func (s *Store) SetAccessToken(token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	creds, found, err := s.load()
	if err != nil {
		return err
	}
	if token == "" && (!found || creds.AccessToken == "") {
		return nil
	}
	creds.AccessToken = token
	return s.write(creds)
}

// SetRefreshCookie persists the refresh credential replayed on silent
// refresh calls.
func (s *Store) SetRefreshCookie(value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	creds, found, err := s.load()
	if err != nil {
		return err
	}
	if value == "" && (!found || creds.RefreshCookie == "") {
		return nil
	}
	creds.RefreshCookie = value
	return s.write(creds)
}

// Clear removes every persisted credential. Idempotent.
func (s *Store) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	err := os.Remove(s.path)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("keystore: clear: %w", err)
	}
	return nil
}

func (s *Store) write(creds Credentials) error {
	if creds.empty() {
		err := os.Remove(s.path)
		if err != nil && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("keystore: remove: %w", err)
		}
		return nil
	}
	data, err := json.Marshal(creds)
	if err != nil {
		return fmt.Errorf("keystore: encode: %w", err)
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("keystore: write: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("keystore: rename: %w", err)
	}
	return nil
}
