package services

import (
	"context"
	"errors"
	"sync"
)

// MutationState of a Mutation.
type MutationState int

const (
	Idle MutationState = iota
	Pending
	Succeeded
	MutationFailed
)

func (s MutationState) String() string {
	switch s {
	case Idle:
		return "idle"
	case Pending:
		return "pending"
	case Succeeded:
		return "succeeded"
	case MutationFailed:
		return "failed"
	}
	return "unknown"
}

// ErrMutationPending is returned when a mutation is submitted while the
// previous submission has not settled.
var ErrMutationPending = errors.New("mutation already pending")

// Mutation runs one kind of write against the server. Local state is only
// touched by the onSuccess callback, after the server confirmed the write;
// on failure the caller's state is left as it was.
type Mutation[In, Out any] struct {
	mu        sync.Mutex
	state     MutationState
	err       error
	send      func(context.Context, In) (Out, error)
	onSuccess func(In, Out)
}

func NewMutation[In, Out any](send func(context.Context, In) (Out, error), onSuccess func(In, Out)) *Mutation[In, Out] {
	return &Mutation[In, Out]{send: send, onSuccess: onSuccess}
}

// Submit sends in. Submissions do not overlap: a second Submit while one
// is pending fails with ErrMutationPending.
func (m *Mutation[In, Out]) Submit(ctx context.Context, in In) (Out, error) {
	var zero Out

	m.mu.Lock()
	if m.state == Pending {
		m.mu.Unlock()
		return zero, ErrMutationPending
	}
	m.state = Pending
	m.err = nil
	m.mu.Unlock()

	out, err := m.send(ctx, in)

	if err == nil && m.onSuccess != nil {
		m.onSuccess(in, out)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if err != nil {
		m.state = MutationFailed
		m.err = err
		return zero, err
	}
	m.state = Succeeded
	return out, nil
}

// State returns the current state and the last failure.
func (m *Mutation[In, Out]) State() (MutationState, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state, m.err
}

// Reset returns a settled mutation to idle.
func (m *Mutation[In, Out]) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state != Pending {
		m.state = Idle
		m.err = nil
	}
}
