package services

import (
	"context"
	"errors"
	"sync"

	"github.com/ailearn/learnsync/core"
)

// LoadState of a Fetcher.
type LoadState int

const (
	Loading LoadState = iota
	Loaded
	Failed
)

func (s LoadState) String() string {
	switch s {
	case Loading:
		return "loading"
	case Loaded:
		return "loaded"
	case Failed:
		return "failed"
	}
	return "unknown"
}

// Snapshot is a consistent view of a Fetcher. Exactly one of Data (Loaded)
// and Err (Failed) is meaningful once State is not Loading.
type Snapshot[T any] struct {
	State LoadState
	Data  T
	Err   error
}

// Absent reports a not-found failure, which views render as an empty state
// rather than an error.
func (s Snapshot[T]) Absent() bool {
	return s.State == Failed && errors.Is(s.Err, core.ErrNotFound)
}

// Fetcher holds the load state of one resource for one view.
//
// Every Load supersedes the previous one: the previous load's context is
// cancelled and its result discarded, so a slow stale response can never
// overwrite a newer one.
type Fetcher[T any] struct {
	mu     sync.Mutex
	gen    uint64
	cancel context.CancelFunc
	snap   Snapshot[T]
}

func NewFetcher[T any]() *Fetcher[T] {
	return &Fetcher[T]{}
}

// Load runs fn and records its outcome. A load superseded before it
// settles returns core.ErrSuperseded and leaves the state untouched.
func (f *Fetcher[T]) Load(ctx context.Context, fn func(context.Context) (T, error)) (T, error) {
	var zero T

	loadCtx, cancel := context.WithCancel(ctx)
	f.mu.Lock()
	if f.cancel != nil {
		f.cancel()
	}
	f.gen++
	gen := f.gen
	f.cancel = cancel
	f.snap = Snapshot[T]{State: Loading}
	f.mu.Unlock()

	data, err := fn(loadCtx)

	f.mu.Lock()
	defer f.mu.Unlock()
	if gen != f.gen {
		cancel()
		return zero, core.ErrSuperseded
	}
	cancel()
	f.cancel = nil

	if err != nil {
		f.snap = Snapshot[T]{State: Failed, Err: err}
		return zero, err
	}
	f.snap = Snapshot[T]{State: Loaded, Data: data}
	return data, nil
}

// Snapshot returns the current state.
func (f *Fetcher[T]) Snapshot() Snapshot[T] {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.snap
}

// Data returns the loaded value, or ok=false when not loaded.
func (f *Fetcher[T]) Data() (T, bool) {
	s := f.Snapshot()
	return s.Data, s.State == Loaded
}

// Update patches loaded data in place. It returns core.ErrNotLoaded when
// there is nothing to patch.
func (f *Fetcher[T]) Update(fn func(T) T) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.snap.State != Loaded {
		return core.ErrNotLoaded
	}
	f.snap.Data = fn(f.snap.Data)
	return nil
}

// Cancel aborts the in-flight load, if any. The load reports
// core.ErrSuperseded.
func (f *Fetcher[T]) Cancel() {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.cancel != nil {
		f.cancel()
		f.cancel = nil
		f.gen++
	}
}
