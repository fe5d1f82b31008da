package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/ailearn/learnsync/core"
)

func TestFetcherInitialStateIsLoading(t *testing.T) {
	f := NewFetcher[int]()

	if s := f.Snapshot(); s.State != Loading {
		t.Errorf("initial state = %v, want loading", s.State)
	}
	if _, ok := f.Data(); ok {
		t.Error("Data() ok before any load")
	}
}

func TestFetcherLoadSettles(t *testing.T) {
	boom := errors.New("boom")
	notFound := &core.APIError{Kind: core.KindNotFound, Status: 404}

	tests := []struct {
		name       string
		fn         func(context.Context) (string, error)
		wantState  LoadState
		wantData   string
		wantAbsent bool
	}{
		{name: "success", fn: func(context.Context) (string, error) { return "ok", nil }, wantState: Loaded, wantData: "ok"},
		{name: "failure", fn: func(context.Context) (string, error) { return "", boom }, wantState: Failed},
		{name: "not found is absent", fn: func(context.Context) (string, error) { return "", notFound }, wantState: Failed, wantAbsent: true},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			// Arrange
			f := NewFetcher[string]()

			// Act
			f.Load(context.Background(), test.fn)

			// Assert
			s := f.Snapshot()
			if s.State != test.wantState {
				t.Errorf("State = %v, want %v", s.State, test.wantState)
			}
			if s.Data != test.wantData {
				t.Errorf("Data = %q, want %q", s.Data, test.wantData)
			}
			if s.Absent() != test.wantAbsent {
				t.Errorf("Absent() = %v, want %v", s.Absent(), test.wantAbsent)
			}
			if (s.State == Failed) != (s.Err != nil) {
				t.Errorf("Err = %v in state %v", s.Err, s.State)
			}
		})
	}
}

// Requirement: a stale response must never overwrite a newer one.
func TestFetcherShouldDiscardSupersededLoad(t *testing.T) {
	f := NewFetcher[string]()
	started := make(chan struct{})
	staleDone := make(chan error, 1)

	go func() {
		_, err := f.Load(context.Background(), func(ctx context.Context) (string, error) {
			close(started)
			<-ctx.Done()
			// a slow server answers anyway
			return "stale", nil
		})
		staleDone <- err
	}()
	<-started

	got, err := f.Load(context.Background(), func(context.Context) (string, error) {
		return "fresh", nil
	})
	if err != nil || got != "fresh" {
		t.Fatalf("second Load() = %q, %v", got, err)
	}

	select {
	case err := <-staleDone:
		if !errors.Is(err, core.ErrSuperseded) {
			t.Errorf("stale Load() error = %v, want ErrSuperseded", err)
		}
	case <-time.After(time.Second):
		t.Fatal("stale load was not cancelled")
	}
	if data, _ := f.Data(); data != "fresh" {
		t.Errorf("Data() = %q, want fresh", data)
	}
}

func TestFetcherReloadRearmsToLoading(t *testing.T) {
	f := NewFetcher[int]()
	f.Load(context.Background(), func(context.Context) (int, error) { return 1, nil })

	inFlight := make(chan LoadState, 1)
	f.Load(context.Background(), func(context.Context) (int, error) {
		inFlight <- f.Snapshot().State
		return 2, nil
	})

	if s := <-inFlight; s != Loading {
		t.Errorf("state during reload = %v, want loading", s)
	}
}

func TestFetcherUpdate(t *testing.T) {
	f := NewFetcher[*core.Course]()
	if err := f.Update(func(c *core.Course) *core.Course { return c }); err != core.ErrNotLoaded {
		t.Errorf("Update() before load error = %v", err)
	}

	f.Load(context.Background(), func(context.Context) (*core.Course, error) {
		return &core.Course{ID: 1}, nil
	})
	err := f.Update(func(c *core.Course) *core.Course {
		c.Enrolled = true
		return c
	})

	data, _ := f.Data()
	if err != nil || !data.Enrolled {
		t.Errorf("Update() = %v, enrolled %v", err, data.Enrolled)
	}
}

func TestFetcherCancel(t *testing.T) {
	f := NewFetcher[int]()
	started := make(chan struct{})
	done := make(chan error, 1)
	go func() {
		_, err := f.Load(context.Background(), func(ctx context.Context) (int, error) {
			close(started)
			<-ctx.Done()
			return 0, ctx.Err()
		})
		done <- err
	}()
	<-started

	f.Cancel()

	if err := <-done; !errors.Is(err, core.ErrSuperseded) {
		t.Errorf("cancelled Load() error = %v", err)
	}
}
