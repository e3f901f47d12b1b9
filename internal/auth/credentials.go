package auth

import (
	"errors"
	"os"
	"path/filepath"
	"sync"

	"gopkg.in/yaml.v3"
)

// Credentials are the locally persisted login artifacts: the bearer token and
// the basic profile fields shown in greetings. Non-authoritative cache only;
// the server can invalidate the token at any time.
type Credentials struct {
	AccessToken   string `yaml:"access_token"`
	UserLoginName string `yaml:"userloginname"`
	UserFirstName string `yaml:"userfirstname"`
	UserLastName  string `yaml:"userlastname"`
}

// Store reads and writes credentials at a fixed path, keeping an in-memory
// copy so the token can be read on every request without disk I/O.
type Store struct {
	Path string

	mu    sync.RWMutex
	creds Credentials
	have  bool
}

func NewStore(path string) *Store {
	s := &Store{Path: path}
	s.load()
	return s
}

func (s *Store) load() {
	data, err := os.ReadFile(s.Path)
	if err != nil {
		return
	}
	var c Credentials
	if yaml.Unmarshal(data, &c) != nil || c.AccessToken == "" {
		return
	}
	s.creds = c
	s.have = true
}

// Current returns the stored credentials and whether any exist.
func (s *Store) Current() (Credentials, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.creds, s.have
}

// Token returns the bearer token, or "" when logged out. Matches the api
// package's TokenSource shape.
func (s *Store) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.creds.AccessToken
}

// Save persists credentials with owner-only permissions.
func (s *Store) Save(c Credentials) error {
	if c.AccessToken == "" {
		return errors.New("auth: refusing to save empty token")
	}
	data, err := yaml.Marshal(c)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(s.Path), 0o755); err != nil {
		return err
	}
	if err := os.WriteFile(s.Path, data, 0o600); err != nil {
		return err
	}
	s.mu.Lock()
	s.creds = c
	s.have = true
	s.mu.Unlock()
	return nil
}

// Clear wipes credentials from memory and disk. Used on logout and whenever
// the server rejects the token.
func (s *Store) Clear() error {
	s.mu.Lock()
	s.creds = Credentials{}
	s.have = false
	s.mu.Unlock()
	err := os.Remove(s.Path)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}
