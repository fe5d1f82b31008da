package fiber

import (
	"sync"

	"github.com/gofiber/fiber/v3"
)

const redirectorKey = "learnsync.redirector"

// redirector is the Navigator of one request. Guards may fire from the
// goroutines of a concurrent load, so the first target wins.
type redirector struct {
	mu   sync.Mutex
	path string
}

func (r *redirector) Redirect(path string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.path == "" {
		r.path = path
	}
}

func (r *redirector) target() (string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.path, r.path != ""
}

// protected redirects requests without a credential before any handler
// runs, and gives the handler a redirector for guards that fire later.
func (a *Adapter) protected(c fiber.Ctx) error {
	if _, ok := a.client.Session.Token(); !ok {
		return c.Redirect().Status(fiber.StatusFound).To(a.client.LoginPath)
	}
	c.Locals(redirectorKey, &redirector{})
	return c.Next()
}

func navigatorFrom(c fiber.Ctx) *redirector {
	if r, ok := c.Locals(redirectorKey).(*redirector); ok {
		return r
	}
	return &redirector{}
}
