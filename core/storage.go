package core

import (
	"context"
	"errors"
	"strconv"
	"sync"
)

// Storage keys
const (
	TokenKey          = "token"
	SelectedThreadKey = "selectedThreadId"
)

// MemoryStorage is a process-local Storage. Nothing survives a restart; use
// it for tests and throwaway sessions.
type MemoryStorage struct {
	mu     sync.RWMutex
	values map[string]string
}

var _ Storage = (*MemoryStorage)(nil)

func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{values: make(map[string]string)}
}

func (m *MemoryStorage) Load(_ context.Context, key string) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.values[key]
	if !ok {
		return "", ErrStateNotFound
	}
	return v, nil
}

func (m *MemoryStorage) Save(_ context.Context, key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.values[key] = value
	return nil
}

func (m *MemoryStorage) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.values, key)
	return nil
}

// TokenStore persists the credential.
//
// There is no expiry tracking: an expired credential is only discovered by
// a failed request.
type TokenStore struct {
	storage Storage
}

func NewTokenStore(storage Storage) *TokenStore {
	return &TokenStore{storage: storage}
}

// Get returns the stored credential or ErrNoCredential.
func (t *TokenStore) Get(ctx context.Context) (string, error) {
	token, err := t.storage.Load(ctx, TokenKey)
	if errors.Is(err, ErrStateNotFound) || (err == nil && token == "") {
		return "", ErrNoCredential
	}
	if err != nil {
		return "", err
	}
	return token, nil
}

func (t *TokenStore) Set(ctx context.Context, token string) error {
	if token == "" {
		return ErrInvalidToken
	}
	return t.storage.Save(ctx, TokenKey, token)
}

func (t *TokenStore) Clear(ctx context.Context) error {
	return t.storage.Delete(ctx, TokenKey)
}

// ClearIf removes the persisted credential only while it is still token.
func (t *TokenStore) ClearIf(ctx context.Context, token string) error {
	stored, err := t.Get(ctx)
	if errors.Is(err, ErrNoCredential) {
		return nil
	}
	if err != nil {
		return err
	}
	if stored != token {
		return nil
	}
	return t.Clear(ctx)
}

// SelectionStore remembers the last selected discussion thread.
type SelectionStore struct {
	storage Storage
}

func NewSelectionStore(storage Storage) *SelectionStore {
	return &SelectionStore{storage: storage}
}

// SelectedThread returns the persisted thread id. ok is false when nothing
// usable is stored.
func (s *SelectionStore) SelectedThread(ctx context.Context) (id int64, ok bool, err error) {
	raw, err := s.storage.Load(ctx, SelectedThreadKey)
	if errors.Is(err, ErrStateNotFound) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	id, convErr := strconv.ParseInt(raw, 10, 64)
	if convErr != nil {
		// garbage from an older client; treat as unset
		return 0, false, nil
	}
	return id, true, nil
}

func (s *SelectionStore) SelectThread(ctx context.Context, id int64) error {
	return s.storage.Save(ctx, SelectedThreadKey, strconv.FormatInt(id, 10))
}
