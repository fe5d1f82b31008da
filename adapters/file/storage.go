// Package file keeps client state in a JSON file on local disk.
package file

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/ailearn/learnsync/core"
)

// Sealer encrypts values before they reach disk. *crypto.Sealer satisfies it.
type Sealer interface {
	Seal(plaintext string) (string, error)
	Unseal(sealed string) (string, error)
}

// Storage is a core.Storage over a single JSON object file. Every Save and
// Delete rewrites the file through a temp file and rename, so a crash never
// leaves it half written.
type Storage struct {
	mu     sync.Mutex
	path   string
	sealer Sealer
}

var _ core.Storage = (*Storage)(nil)

type Option func(*Storage)

// WithSealer encrypts every stored value.
func WithSealer(s Sealer) Option {
	return func(st *Storage) { st.sealer = s }
}

func New(path string, opts ...Option) (*Storage, error) {
	if path == "" {
		return nil, errors.New("file storage: path is required")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("file storage: %w", err)
	}
	s := &Storage{path: path}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

func (s *Storage) Path() string { return s.path }

func (s *Storage) Load(_ context.Context, key string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	values, err := s.read()
	if err != nil {
		return "", err
	}
	v, ok := values[key]
	if !ok {
		return "", core.ErrStateNotFound
	}
	if s.sealer == nil {
		return v, nil
	}
	plain, err := s.sealer.Unseal(v)
	if err != nil {
		return "", fmt.Errorf("unseal %q: %w", key, err)
	}
	return plain, nil
}

func (s *Storage) Save(_ context.Context, key, value string) error {
	if s.sealer != nil {
		sealed, err := s.sealer.Seal(value)
		if err != nil {
			return fmt.Errorf("seal %q: %w", key, err)
		}
		value = sealed
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	values, err := s.read()
	if err != nil {
		return err
	}
	values[key] = value
	return s.write(values)
}

func (s *Storage) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	values, err := s.read()
	if err != nil {
		return err
	}
	if _, ok := values[key]; !ok {
		return nil
	}
	delete(values, key)
	return s.write(values)
}

func (s *Storage) read() (map[string]string, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return make(map[string]string), nil
	}
	if err != nil {
		return nil, fmt.Errorf("read state file: %w", err)
	}
	values := make(map[string]string)
	if len(data) == 0 {
		return values, nil
	}
	if err := json.Unmarshal(data, &values); err != nil {
		return nil, fmt.Errorf("decode state file: %w", err)
	}
	return values, nil
}

func (s *Storage) write(values map[string]string) error {
	data, err := json.MarshalIndent(values, "", "  ")
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(filepath.Dir(s.path), ".learnsync-*.tmp")
	if err != nil {
		return fmt.Errorf("write state file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write state file: %w", err)
	}
	if err := tmp.Chmod(0o600); err != nil {
		tmp.Close()
		return fmt.Errorf("write state file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("write state file: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		return fmt.Errorf("write state file: %w", err)
	}
	return nil
}
