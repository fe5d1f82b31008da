package learnsync

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/ailearn/learnsync/core"
	"github.com/ailearn/learnsync/services"
)

// dummy HTTP Adapter
type dummyHTTP struct {
	registered *Client
	err        error
}

func (d *dummyHTTP) RegisterRoutes(c *Client) error {
	d.registered = c
	return d.err
}

func TestNewShouldValidateRequiredConfig(t *testing.T) {
	tests := []struct {
		name    string
		config  Config
		wantErr error
	}{
		{name: "missing base url", config: Config{Storage: NewMemoryStorage()}, wantErr: ErrBaseURLRequired},
		{name: "missing storage", config: Config{BaseURL: "http://api.test"}, wantErr: ErrStorageRequired},
		{
			name: "conflicting plugin endpoint",
			config: Config{
				BaseURL: "http://api.test",
				Storage: NewMemoryStorage(),
				Endpoints: []Endpoint{{
					Path:     "/courses/",
					Method:   http.MethodGet,
					Metadata: core.EndpointMetadata{OperationID: "catalog.again"},
				}},
			},
			wantErr: ErrEndpointConflict,
		},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			_, err := New(test.config)
			if !errors.Is(err, test.wantErr) {
				t.Fatalf("New() error = %v, want %v", err, test.wantErr)
			}
		})
	}
}

func TestNewShouldRegisterHTTPAdapter(t *testing.T) {
	adapter := &dummyHTTP{}

	c, err := New(Config{BaseURL: "http://api.test", Storage: NewMemoryStorage(), HTTP: adapter})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	if adapter.registered != c {
		t.Fatal("adapter was not handed the client")
	}
	if c.LoginPath != services.DefaultLoginPath {
		t.Errorf("LoginPath = %q", c.LoginPath)
	}
}

func TestNewShouldFailWhenAdapterFails(t *testing.T) {
	boom := errors.New("boom")

	_, err := New(Config{BaseURL: "http://api.test", Storage: NewMemoryStorage(), HTTP: &dummyHTTP{err: boom}})

	if !errors.Is(err, boom) {
		t.Fatalf("New() error = %v, want %v", err, boom)
	}
}

func TestNewShouldNotUseCacheWhenDisableCacheTrue(t *testing.T) {
	// Arrange
	api := services.NewFakeAPI()
	defer api.Close()
	api.Reply("GET", "/courses/", http.StatusOK, []Course{{ID: 1}})
	c, err := New(Config{BaseURL: api.URL(), Storage: NewMemoryStorage(), DisableCache: true})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	// Act
	c.Courses.List(context.Background())
	c.Courses.List(context.Background())

	// Assert
	if n := api.Count("GET", "/courses/"); n != 2 {
		t.Errorf("expected every read to hit the API with cache disabled, got %d requests", n)
	}
	if _, ok := c.CacheStats(); ok {
		t.Error("CacheStats should be unavailable without a cache")
	}
}

func TestNewShouldCacheByDefault(t *testing.T) {
	api := services.NewFakeAPI()
	defer api.Close()
	api.Reply("GET", "/courses/", http.StatusOK, []Course{{ID: 1}})
	c, err := New(Config{BaseURL: api.URL(), Storage: NewMemoryStorage()})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	c.Courses.List(context.Background())
	c.Courses.List(context.Background())

	if n := api.Count("GET", "/courses/"); n != 1 {
		t.Errorf("expected one request, got %d", n)
	}
	stats, ok := c.CacheStats()
	if !ok || stats.Hits != 1 {
		t.Errorf("CacheStats() = %+v, %v", stats, ok)
	}
}

// Requirement: a credential persisted by a previous run is picked up and
// the login round trip persists a new one.
func TestClientLoginAndRestore(t *testing.T) {
	ctx := context.Background()
	api := services.NewFakeAPI()
	defer api.Close()
	api.Reply("POST", "/auth/login/", http.StatusOK, map[string]string{"token": "abc"})
	storage := NewMemoryStorage()

	first, err := New(Config{BaseURL: api.URL(), Storage: storage})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	if err := first.Auth.Login(ctx, "ada", "pw"); err != nil {
		t.Fatalf("Login failed: %v", err)
	}

	second, _ := New(Config{BaseURL: api.URL(), Storage: storage})
	if err := second.Restore(ctx); err != nil {
		t.Fatalf("Restore failed: %v", err)
	}
	if token, ok := second.Session.Token(); !ok || token != "abc" {
		t.Errorf("restored token = %q, %v", token, ok)
	}
}

func TestClientDepsNavigator(t *testing.T) {
	var configured, override []string
	c, _ := New(Config{
		BaseURL:   "http://api.test",
		Storage:   NewMemoryStorage(),
		LoginPath: "/signin",
		Navigator: core.NavigatorFunc(func(p string) { configured = append(configured, p) }),
	})

	c.Deps(nil).Navigator.Redirect("/a")
	c.Deps(core.NavigatorFunc(func(p string) { override = append(override, p) })).Navigator.Redirect("/b")

	if len(configured) != 1 || len(override) != 1 {
		t.Errorf("configured %v, override %v", configured, override)
	}
	if c.Deps(nil).LoginPath != "/signin" {
		t.Errorf("LoginPath not carried into view deps")
	}
}
