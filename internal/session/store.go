// Package session persists the signed-in user's credential between runs.
//
// The store is a small key-value file; the credential lives under the
// fixed key "authData". A missing file, a missing key or an empty token
// all mean "not signed in".
package session

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

// AuthKey is the key the credential is stored under.
const AuthKey = "authData"

// ErrNoCredential reports that no usable credential is stored.
var ErrNoCredential = errors.New("session: no credential")

// Credential is what sign-in leaves behind.
type Credential struct {
	ID            int    `yaml:"id"`
	Name          string `yaml:"name"`
	AssistantCode string `yaml:"assistant_code"`
	Token         string `yaml:"token"`
}

// Valid reports whether the credential can authenticate a request.
func (c Credential) Valid() bool {
	return strings.TrimSpace(c.Token) != ""
}

// Store reads and writes the credential file.
type Store struct {
	path string
	mu   sync.Mutex
}

// NewStore returns a store backed by path. The file is created on Save.
func NewStore(path string) *Store {
	return &Store{path: path}
}

// Path returns the backing file.
func (s *Store) Path() string {
	return s.path
}

// Load returns the stored credential or ErrNoCredential.
func (s *Store) Load() (Credential, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	entries, err := s.read()
	if err != nil {
		return Credential{}, err
	}
	node, ok := entries[AuthKey]
	if !ok {
		return Credential{}, ErrNoCredential
	}
	var cred Credential
	if err := node.Decode(&cred); err != nil {
		return Credential{}, fmt.Errorf("%w: decode %s: %v", ErrNoCredential, AuthKey, err)
	}
	cred.Token = strings.TrimSpace(cred.Token)
	if !cred.Valid() {
		return Credential{}, ErrNoCredential
	}
	return cred, nil
}

// Token returns the bearer token, or "" when signed out.
func (s *Store) Token() string {
	cred, err := s.Load()
	if err != nil {
		return ""
	}
	return cred.Token
}

// Save stores cred under AuthKey, keeping any other keys in the file.
func (s *Store) Save(cred Credential) error {
	if !cred.Valid() {
		return fmt.Errorf("session: save: token is required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	entries, err := s.read()
	if err != nil && !errors.Is(err, ErrNoCredential) {
		return err
	}
	if entries == nil {
		entries = map[string]yaml.Node{}
	}
	var node yaml.Node
	if err := node.Encode(cred); err != nil {
		return fmt.Errorf("session: encode credential: %w", err)
	}
	entries[AuthKey] = node
	return s.write(entries)
}

// Clear removes the credential. Clearing an empty store is not an error.
func (s *Store) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	entries, err := s.read()
	if err != nil {
		if errors.Is(err, ErrNoCredential) {
			return nil
		}
		return err
	}
	if _, ok := entries[AuthKey]; !ok {
		return nil
	}
	delete(entries, AuthKey)
	return s.write(entries)
}

// read returns ErrNoCredential (wrapped) for a missing or unreadable file.
func (s *Store) read() (map[string]yaml.Node, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, ErrNoCredential
		}
		return nil, fmt.Errorf("session: read %s: %w", s.path, err)
	}
	entries := map[string]yaml.Node{}
	if err := yaml.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("%w: parse %s: %v", ErrNoCredential, s.path, err)
	}
	return entries, nil
}

func (s *Store) write(entries map[string]yaml.Node) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return fmt.Errorf("session: ensure dir: %w", err)
	}
	if len(entries) == 0 {
		if err := os.Remove(s.path); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("session: remove %s: %w", s.path, err)
		}
		return nil
	}
	data, err := yaml.Marshal(entries)
	if err != nil {
		return fmt.Errorf("session: encode: %w", err)
	}
	if err := os.WriteFile(s.path, data, 0o600); err != nil {
		return fmt.Errorf("session: write %s: %w", s.path, err)
	}
	return nil
}
