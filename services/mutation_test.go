package services

import (
	"context"
	"errors"
	"testing"
)

func TestMutationSubmit(t *testing.T) {
	boom := errors.New("boom")

	tests := []struct {
		name        string
		sendErr     error
		wantState   MutationState
		wantApplied bool
	}{
		{name: "success applies local change", wantState: Succeeded, wantApplied: true},
		{name: "failure leaves state untouched", sendErr: boom, wantState: MutationFailed, wantApplied: false},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			// Arrange
			applied := false
			m := NewMutation(
				func(context.Context, int) (string, error) { return "ok", test.sendErr },
				func(int, string) { applied = true },
			)

			// Act
			_, err := m.Submit(context.Background(), 1)

			// Assert
			if !errors.Is(err, test.sendErr) {
				t.Errorf("Submit() error = %v, want %v", err, test.sendErr)
			}
			state, lastErr := m.State()
			if state != test.wantState {
				t.Errorf("State() = %v, want %v", state, test.wantState)
			}
			if lastErr != test.sendErr {
				t.Errorf("last error = %v", lastErr)
			}
			if applied != test.wantApplied {
				t.Errorf("applied = %v, want %v", applied, test.wantApplied)
			}
		})
	}
}

func TestMutationShouldRejectOverlappingSubmit(t *testing.T) {
	release := make(chan struct{})
	started := make(chan struct{})
	m := NewMutation(func(context.Context, string) (int, error) {
		close(started)
		<-release
		return 1, nil
	}, nil)

	done := make(chan struct{})
	go func() {
		m.Submit(context.Background(), "first")
		close(done)
	}()
	<-started

	if state, _ := m.State(); state != Pending {
		t.Errorf("State() = %v, want pending", state)
	}
	if _, err := m.Submit(context.Background(), "second"); err != ErrMutationPending {
		t.Errorf("overlapping Submit() error = %v", err)
	}
	close(release)
	<-done

	m.Reset()
	if state, _ := m.State(); state != Idle {
		t.Errorf("State() after Reset = %v", state)
	}
}
