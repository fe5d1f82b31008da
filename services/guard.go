package services

import (
	"context"
	"sync"

	"github.com/ailearn/learnsync/core"
)

// DefaultLoginPath is where guards send unauthenticated users.
const DefaultLoginPath = "/login"

// GuardState of a Guard.
type GuardState int

const (
	Unchecked GuardState = iota
	Unauthenticated
	Redirecting
	Authenticated
	Fetching
)

func (s GuardState) String() string {
	switch s {
	case Unchecked:
		return "unchecked"
	case Unauthenticated:
		return "unauthenticated"
	case Redirecting:
		return "redirecting"
	case Authenticated:
		return "authenticated"
	case Fetching:
		return "fetching"
	}
	return "unknown"
}

// Guard protects one view. Check runs before the view fetches anything and
// does no network I/O: without a credential the user is redirected to the
// login path. If the session later ends (auth failure or logout) while the
// view is open, the guard redirects then too.
type Guard struct {
	mu        sync.Mutex
	session   *core.Session
	nav       core.Navigator
	loginPath string
	state     GuardState
	remove    func()
}

func NewGuard(session *core.Session, nav core.Navigator, loginPath string) *Guard {
	if loginPath == "" {
		loginPath = DefaultLoginPath
	}
	g := &Guard{session: session, nav: nav, loginPath: loginPath}
	g.remove = session.OnChange(g.sessionChanged)
	return g
}

// Close detaches the guard from the session when its view goes away.
func (g *Guard) Close() {
	if g.remove != nil {
		g.remove()
	}
}

// Check admits the view or redirects. It returns core.ErrNoCredential when
// the view must not fetch.
func (g *Guard) Check(_ context.Context) error {
	if _, ok := g.session.Token(); !ok {
		g.redirect()
		return core.ErrNoCredential
	}
	g.mu.Lock()
	g.state = Authenticated
	g.mu.Unlock()
	return nil
}

// Fetching marks that the view started loading its data.
func (g *Guard) Fetching() {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.state == Authenticated {
		g.state = Fetching
	}
}

func (g *Guard) State() GuardState {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.state
}

func (g *Guard) LoginPath() string { return g.loginPath }

func (g *Guard) sessionChanged(state core.SessionState) {
	if state == core.StateAuthenticated {
		return
	}
	g.mu.Lock()
	admitted := g.state == Authenticated || g.state == Fetching
	if admitted {
		g.state = Unauthenticated
	}
	g.mu.Unlock()

	if admitted {
		g.redirect()
	}
}

func (g *Guard) redirect() {
	g.mu.Lock()
	g.state = Redirecting
	g.mu.Unlock()
	if g.nav != nil {
		g.nav.Redirect(g.loginPath)
	}
}
