package core

import (
	"context"
	"sort"
	"sync"
)

// SessionState is the authentication state of the client.
type SessionState int

const (
	StateAnonymous SessionState = iota
	StateAuthenticated
	StateExpired
)

func (s SessionState) String() string {
	switch s {
	case StateAnonymous:
		return "anonymous"
	case StateAuthenticated:
		return "authenticated"
	case StateExpired:
		return "expired"
	}
	return "unknown"
}

// Session is the single owner of the credential. Every component that
// issues requests reads the token through it, and every transition
// (login, logout, authentication failure) goes through it.
//
// Transitions:
//
//	anonymous     --Authenticate--> authenticated
//	expired       --Authenticate--> authenticated
//	authenticated --Expire-------> expired
//	authenticated --SignOut------> anonymous
//	expired       --SignOut------> anonymous
type Session struct {
	mu        sync.RWMutex
	tokens    *TokenStore
	state     SessionState
	token     string
	listeners map[uint64]func(SessionState)
	nextID    uint64
}

func NewSession(storage Storage) *Session {
	return &Session{tokens: NewTokenStore(storage)}
}

// Restore loads a persisted credential, e.g. after a restart.
func (s *Session) Restore(ctx context.Context) error {
	token, err := s.tokens.Get(ctx)
	if err != nil && err != ErrNoCredential {
		return err
	}

	s.mu.Lock()
	if token == "" {
		s.token = ""
		s.state = StateAnonymous
	} else {
		s.token = token
		s.state = StateAuthenticated
	}
	state := s.state
	listeners := s.snapshotListeners()
	s.mu.Unlock()

	notify(listeners, state)
	return nil
}

// Token returns the active credential.
func (s *Session) Token() (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token, s.state == StateAuthenticated && s.token != ""
}

func (s *Session) State() SessionState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// Authenticate persists token and replaces any previous credential.
func (s *Session) Authenticate(ctx context.Context, token string) error {
	if token == "" {
		return ErrInvalidToken
	}
	if err := s.tokens.Set(ctx, token); err != nil {
		return err
	}
	s.transition(StateAuthenticated, token)
	return nil
}

// Expire ends the session after the server rejected the credential.
func (s *Session) Expire(ctx context.Context) error {
	return s.end(ctx, StateExpired)
}

// ExpireToken is Expire for a rejection of token in particular. It does
// nothing when token is no longer the active credential, so a late 401 for
// a replaced credential cannot end the newer session. It reports whether
// the session was ended.
func (s *Session) ExpireToken(ctx context.Context, token string) (bool, error) {
	s.mu.Lock()
	if token == "" || s.token != token || s.state != StateAuthenticated {
		s.mu.Unlock()
		return false, nil
	}
	s.state = StateExpired
	s.token = ""
	listeners := s.snapshotListeners()
	s.mu.Unlock()

	notify(listeners, StateExpired)
	return true, s.tokens.ClearIf(ctx, token)
}

// SignOut ends the session on the user's request.
func (s *Session) SignOut(ctx context.Context) error {
	return s.end(ctx, StateAnonymous)
}

// OnChange registers fn to be called after every transition. The returned
// func removes the registration.
func (s *Session) OnChange(fn func(SessionState)) (remove func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listeners == nil {
		s.listeners = make(map[uint64]func(SessionState))
	}
	id := s.nextID
	s.nextID++
	s.listeners[id] = fn
	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.listeners, id)
	}
}

func (s *Session) end(ctx context.Context, next SessionState) error {
	// memory first so no request can pick up the token while storage is slow
	s.transition(next, "")
	return s.tokens.Clear(ctx)
}

func (s *Session) transition(next SessionState, token string) {
	s.mu.Lock()
	changed := s.state != next || s.token != token
	s.state = next
	s.token = token
	listeners := s.snapshotListeners()
	s.mu.Unlock()

	if changed {
		notify(listeners, next)
	}
}

// snapshotListeners returns the listeners in registration order.
func (s *Session) snapshotListeners() []func(SessionState) {
	ids := make([]uint64, 0, len(s.listeners))
	for id := range s.listeners {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	out := make([]func(SessionState), len(ids))
	for i, id := range ids {
		out[i] = s.listeners[id]
	}
	return out
}

func notify(listeners []func(SessionState), state SessionState) {
	for _, fn := range listeners {
		fn(state)
	}
}
