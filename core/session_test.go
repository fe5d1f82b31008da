package core

import (
	"context"
	"errors"
	"testing"
)

type failingStorage struct {
	*MemoryStorage
	err error
}

func (f *failingStorage) Load(context.Context, string) (string, error) { return "", f.err }

func TestSessionRestore(t *testing.T) {
	tests := []struct {
		name      string
		stored    string
		wantState SessionState
		wantToken bool
	}{
		{name: "no credential stays anonymous", stored: "", wantState: StateAnonymous},
		{name: "persisted credential authenticates", stored: "tok", wantState: StateAuthenticated, wantToken: true},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			// Arrange
			ctx := context.Background()
			storage := NewMemoryStorage()
			if test.stored != "" {
				storage.Save(ctx, TokenKey, test.stored)
			}
			s := NewSession(storage)

			// Act
			err := s.Restore(ctx)

			// Assert
			if err != nil {
				t.Fatalf("Restore() error = %v", err)
			}
			if s.State() != test.wantState {
				t.Errorf("State() = %v, want %v", s.State(), test.wantState)
			}
			if _, ok := s.Token(); ok != test.wantToken {
				t.Errorf("Token() ok = %v, want %v", ok, test.wantToken)
			}
		})
	}
}

func TestSessionRestoreShouldSurfaceStorageErrors(t *testing.T) {
	boom := errors.New("disk on fire")
	s := NewSession(&failingStorage{MemoryStorage: NewMemoryStorage(), err: boom})

	if err := s.Restore(context.Background()); !errors.Is(err, boom) {
		t.Errorf("Restore() error = %v, want %v", err, boom)
	}
}

func TestSessionAuthenticateShouldPersistAndReplace(t *testing.T) {
	// Requirement: at most one credential is held; a new login replaces it
	ctx := context.Background()
	storage := NewMemoryStorage()
	s := NewSession(storage)

	if err := s.Authenticate(ctx, "first"); err != nil {
		t.Fatal(err)
	}
	if err := s.Authenticate(ctx, "second"); err != nil {
		t.Fatal(err)
	}

	token, ok := s.Token()
	if !ok || token != "second" {
		t.Errorf("Token() = %q, %v", token, ok)
	}
	stored, _ := storage.Load(ctx, TokenKey)
	if stored != "second" {
		t.Errorf("persisted token = %q, want second", stored)
	}
}

func TestSessionAuthenticateShouldRejectEmptyToken(t *testing.T) {
	s := NewSession(NewMemoryStorage())

	if err := s.Authenticate(context.Background(), ""); err != ErrInvalidToken {
		t.Errorf("Authenticate(\"\") error = %v, want ErrInvalidToken", err)
	}
	if s.State() != StateAnonymous {
		t.Errorf("State() = %v, want anonymous", s.State())
	}
}

func TestSessionEndTransitions(t *testing.T) {
	tests := []struct {
		name string
		end  func(*Session, context.Context) error
		want SessionState
	}{
		{name: "expire", end: (*Session).Expire, want: StateExpired},
		{name: "sign out", end: (*Session).SignOut, want: StateAnonymous},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			// Arrange
			ctx := context.Background()
			storage := NewMemoryStorage()
			s := NewSession(storage)
			s.Authenticate(ctx, "tok")

			// Act
			err := test.end(s, ctx)

			// Assert
			if err != nil {
				t.Fatal(err)
			}
			if s.State() != test.want {
				t.Errorf("State() = %v, want %v", s.State(), test.want)
			}
			if _, ok := s.Token(); ok {
				t.Error("credential still held")
			}
			if _, err := storage.Load(ctx, TokenKey); err != ErrStateNotFound {
				t.Errorf("persisted credential not cleared: %v", err)
			}
		})
	}
}

func TestSessionExpireToken(t *testing.T) {
	tests := []struct {
		name      string
		rejected  string
		wantEnded bool
		wantState SessionState
		wantToken string
	}{
		{name: "active credential expires", rejected: "new", wantEnded: true, wantState: StateExpired},
		{name: "replaced credential is ignored", rejected: "old", wantState: StateAuthenticated, wantToken: "new"},
		{name: "empty credential is ignored", rejected: "", wantState: StateAuthenticated, wantToken: "new"},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			// Arrange
			ctx := context.Background()
			storage := NewMemoryStorage()
			s := NewSession(storage)
			s.Authenticate(ctx, "old")
			s.Authenticate(ctx, "new")

			// Act
			ended, err := s.ExpireToken(ctx, test.rejected)

			// Assert
			if err != nil {
				t.Fatal(err)
			}
			if ended != test.wantEnded {
				t.Errorf("ExpireToken() ended = %v, want %v", ended, test.wantEnded)
			}
			if s.State() != test.wantState {
				t.Errorf("State() = %v, want %v", s.State(), test.wantState)
			}
			token, _ := s.Token()
			if token != test.wantToken {
				t.Errorf("Token() = %q, want %q", token, test.wantToken)
			}
			stored, _ := storage.Load(ctx, TokenKey)
			if stored != test.wantToken {
				t.Errorf("persisted credential = %q, want %q", stored, test.wantToken)
			}
		})
	}
}

func TestTokenStoreClearIfShouldKeepNewerCredential(t *testing.T) {
	// Requirement: clearing a rejected credential never removes its replacement
	ctx := context.Background()
	storage := NewMemoryStorage()
	tokens := NewTokenStore(storage)
	tokens.Set(ctx, "new")

	if err := tokens.ClearIf(ctx, "old"); err != nil {
		t.Fatal(err)
	}
	if got, err := tokens.Get(ctx); err != nil || got != "new" {
		t.Errorf("Get() = %q, %v; want new", got, err)
	}

	if err := tokens.ClearIf(ctx, "new"); err != nil {
		t.Fatal(err)
	}
	if _, err := tokens.Get(ctx); err != ErrNoCredential {
		t.Errorf("Get() error = %v, want ErrNoCredential", err)
	}
}

func TestSessionOnChangeShouldNotifyTransitions(t *testing.T) {
	ctx := context.Background()
	s := NewSession(NewMemoryStorage())
	var seen []SessionState
	s.OnChange(func(st SessionState) { seen = append(seen, st) })

	s.Authenticate(ctx, "tok")
	s.Authenticate(ctx, "tok") // no change
	s.Expire(ctx)
	s.SignOut(ctx)

	want := []SessionState{StateAuthenticated, StateExpired, StateAnonymous}
	if len(seen) != len(want) {
		t.Fatalf("notifications = %v, want %v", seen, want)
	}
	for i := range want {
		if seen[i] != want[i] {
			t.Errorf("notification %d = %v, want %v", i, seen[i], want[i])
		}
	}
}

func TestSessionOnChangeRemoveShouldStopNotifications(t *testing.T) {
	ctx := context.Background()
	s := NewSession(NewMemoryStorage())
	calls := 0
	remove := s.OnChange(func(SessionState) { calls++ })

	s.Authenticate(ctx, "tok")
	remove()
	s.SignOut(ctx)

	if calls != 1 {
		t.Errorf("calls = %d, want 1", calls)
	}
}

func TestSessionStateString(t *testing.T) {
	for state, want := range map[SessionState]string{
		StateAnonymous:     "anonymous",
		StateAuthenticated: "authenticated",
		StateExpired:       "expired",
		SessionState(42):   "unknown",
	} {
		if got := state.String(); got != want {
			t.Errorf("%d.String() = %q, want %q", state, got, want)
		}
	}
}
