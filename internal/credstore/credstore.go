// Package credstore persists the access token, refresh token, and cached
// user profile in a single JSON file. It is the one source of truth for
// credential state: the api package reads and writes it through the
// CredentialStore interface, and login/logout own its lifecycle. Writes are
// atomic (temp file + rename) so a crash can never leave a torn credential
// file, and Clear removes all three values in one step.
package credstore

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/cloudvault/cloudvault-go/internal/api"
)

// FilePerms restricts credential files to owner-only read/write.
const FilePerms = 0o600

// DirPerms is used when creating the credentials directory.
const DirPerms = 0o700

// file is the on-disk format.
type file struct {
	AccessToken  string           `json:"accessToken"`
	RefreshToken string           `json:"refreshToken,omitempty"`
	User         *api.UserProfile `json:"user,omitempty"`
}

// Store is a file-backed credential store. The zero value (or a Store with
// an empty path) is valid and inert: reads return zero values and writes
// are skipped, so code paths that run without a home directory degrade to
// unauthenticated behavior instead of failing.
type Store struct {
	path string
}

// New creates a store backed by the file at path.
func New(path string) *Store {
	return &Store{path: path}
}

// AccessToken returns the stored access token, or "" when none is stored
// or the file is unreadable.
func (s *Store) AccessToken() string {
	f, err := s.load()
	if err != nil || f == nil {
		return ""
	}

	return f.AccessToken
}

// RefreshToken returns the stored refresh token, or "".
func (s *Store) RefreshToken() string {
	f, err := s.load()
	if err != nil || f == nil {
		return ""
	}

	return f.RefreshToken
}

// User returns the cached profile, or nil.
func (s *Store) User() *api.UserProfile {
	f, err := s.load()
	if err != nil || f == nil {
		return nil
	}

	return f.User
}

// SetCredential stores a new token pair, preserving the cached profile.
// An empty refreshToken keeps the existing one — servers that do not
// rotate refresh tokens omit the field from refresh responses.
func (s *Store) SetCredential(accessToken, refreshToken string) error {
	if s.path == "" {
		return nil
	}

	f, err := s.load()
	if err != nil {
		return err
	}

	if f == nil {
		f = &file{}
	}

	f.AccessToken = accessToken

	if refreshToken != "" {
		f.RefreshToken = refreshToken
	}

	return s.save(f)
}

// SetUser caches the user profile alongside the tokens.
func (s *Store) SetUser(u *api.UserProfile) error {
	if s.path == "" {
		return nil
	}

	f, err := s.load()
	if err != nil {
		return err
	}

	if f == nil {
		f = &file{}
	}

	f.User = u

	return s.save(f)
}

// Clear removes the credential file, destroying access token, refresh
// token, and cached profile together. A missing file is not an error.
func (s *Store) Clear() error {
	if s.path == "" {
		return nil
	}

	err := os.Remove(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}

	if err != nil {
		return fmt.Errorf("credstore: removing %s: %w", s.path, err)
	}

	return nil
}

// load reads the credential file. Returns (nil, nil) if the file does not
// exist or the store is pathless.
func (s *Store) load() (*file, error) {
	if s.path == "" {
		return nil, nil //nolint:nilnil // sentinel for "not found"
	}

	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil //nolint:nilnil // sentinel for "not found"
	}

	if err != nil {
		return nil, fmt.Errorf("credstore: reading %s: %w", s.path, err)
	}

	var f file
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("credstore: decoding %s: %w", s.path, err)
	}

	return &f, nil
}

// save writes the credential file atomically (write-to-temp + rename) with
// 0600 permissions. Never logs token values.
func (s *Store) save(f *file) error {
	data, err := json.MarshalIndent(f, "", "  ")
	if err != nil {
		return fmt.Errorf("credstore: encoding: %w", err)
	}

	dir := filepath.Dir(s.path)
	if mkErr := os.MkdirAll(dir, DirPerms); mkErr != nil {
		return fmt.Errorf("credstore: creating directory %s: %w", dir, mkErr)
	}

	// Atomic write: temp file in the same directory, then rename.
	// Same directory guarantees same filesystem for rename(2).
	tmp, err := os.CreateTemp(dir, ".credentials-*.tmp")
	if err != nil {
		return fmt.Errorf("credstore: creating temp file: %w", err)
	}

	tmpPath := tmp.Name()

	success := false
	defer func() {
		if !success {
			_ = os.Remove(tmpPath)
		}
	}()

	if err := os.Chmod(tmpPath, FilePerms); err != nil {
		tmp.Close()
		return fmt.Errorf("credstore: setting permissions: %w", err)
	}

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("credstore: writing: %w", err)
	}

	// Flush to stable storage before rename so a power loss between close
	// and rename cannot leave an empty or partial credential file.
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("credstore: syncing: %w", err)
	}

	if err := tmp.Close(); err != nil {
		return fmt.Errorf("credstore: closing: %w", err)
	}

	if err := os.Rename(tmpPath, s.path); err != nil {
		return fmt.Errorf("credstore: renaming: %w", err)
	}

	success = true

	return nil
}
