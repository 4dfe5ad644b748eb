// internal/session/store.go
package session

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/jason-s-yu/belatro/internal/auth"
	"gopkg.in/yaml.v3"
)

// ErrNotFound is returned by a Store when the key has no value.
var ErrNotFound = errors.New("key not found")

// Store persists opaque string values between runs of the client.
type Store interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, key string) error
}

// MemoryStore keeps values for the lifetime of the process.
type MemoryStore struct {
	mu   sync.Mutex
	vals map[string]string
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{vals: make(map[string]string)}
}

func (m *MemoryStore) Get(_ context.Context, key string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.vals[key]
	if !ok {
		return "", ErrNotFound
	}
	return v, nil
}

func (m *MemoryStore) Set(_ context.Context, key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.vals[key] = value
	return nil
}

func (m *MemoryStore) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.vals, key)
	return nil
}

// FileStore keeps values in a YAML file, rewritten on every change.
type FileStore struct {
	path string
	mu   sync.Mutex
}

func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

func (f *FileStore) load() (map[string]string, error) {
	vals := make(map[string]string)
	data, err := os.ReadFile(f.path)
	if errors.Is(err, os.ErrNotExist) {
		return vals, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read state file: %w", err)
	}
	if err := yaml.Unmarshal(data, &vals); err != nil {
		return nil, fmt.Errorf("failed to parse state file %s: %w", f.path, err)
	}
	if vals == nil {
		vals = make(map[string]string)
	}
	return vals, nil
}

func (f *FileStore) save(vals map[string]string) error {
	data, err := yaml.Marshal(vals)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(f.path), 0o700); err != nil {
		return fmt.Errorf("failed to create state dir: %w", err)
	}
	tmp := f.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("failed to write state file: %w", err)
	}
	return os.Rename(tmp, f.path)
}

func (f *FileStore) Get(_ context.Context, key string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	vals, err := f.load()
	if err != nil {
		return "", err
	}
	v, ok := vals[key]
	if !ok {
		return "", ErrNotFound
	}
	return v, nil
}

func (f *FileStore) Set(_ context.Context, key, value string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	vals, err := f.load()
	if err != nil {
		return err
	}
	vals[key] = value
	return f.save(vals)
}

func (f *FileStore) Delete(_ context.Context, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	vals, err := f.load()
	if err != nil {
		return err
	}
	if _, ok := vals[key]; !ok {
		return nil
	}
	delete(vals, key)
	return f.save(vals)
}

// SealedStore encrypts the values of the listed keys before they reach the
// underlying store. A listed key ending in ":" covers every key with that
// prefix. Other keys pass through unchanged.
type SealedStore struct {
	Store
	sealer *auth.Sealer
	keys   map[string]bool
}

func NewSealedStore(inner Store, sealer *auth.Sealer, keys ...string) *SealedStore {
	s := &SealedStore{Store: inner, sealer: sealer, keys: make(map[string]bool)}
	for _, k := range keys {
		s.keys[k] = true
	}
	return s
}

func (s *SealedStore) sealed(key string) bool {
	if s.keys[key] {
		return true
	}
	for k := range s.keys {
		if strings.HasSuffix(k, ":") && strings.HasPrefix(key, k) {
			return true
		}
	}
	return false
}

func (s *SealedStore) Get(ctx context.Context, key string) (string, error) {
	v, err := s.Store.Get(ctx, key)
	if err != nil || !s.sealed(key) {
		return v, err
	}
	if !auth.IsSealed(v) {
		return "", fmt.Errorf("value for %s is not sealed: %w", key, auth.ErrInvalidSealed)
	}
	return s.sealer.Open(v)
}

func (s *SealedStore) Set(ctx context.Context, key, value string) error {
	if s.sealed(key) {
		sealed, err := s.sealer.Seal(value)
		if err != nil {
			return fmt.Errorf("failed to seal %s: %w", key, err)
		}
		value = sealed
	}
	return s.Store.Set(ctx, key, value)
}
