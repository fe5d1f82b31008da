package learnsync

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/ailearn/learnsync/core"
	"github.com/ailearn/learnsync/services"
	"github.com/ailearn/learnsync/views"
)

// interfaces
type (
	Storage   = core.Storage
	Cache     = core.Cache
	Navigator = core.Navigator
)

// HTTPAdapter exposes a Client over HTTP.
type HTTPAdapter interface {
	RegisterRoutes(c *Client) error
}

type (
	CacheConfig  = core.CacheConfig
	CacheStats   = core.CacheStats
	Endpoint     = core.Endpoint
	SessionState = core.SessionState
	APIError     = core.APIError
)

type (
	Course        = core.Course
	Lesson        = core.Lesson
	Quiz          = core.Quiz
	QuizAttempt   = core.QuizAttempt
	Thread        = core.Thread
	Comment       = core.Comment
	Profile       = core.Profile
	ProfileUpdate = core.ProfileUpdate
	Registration  = core.Registration
	Upload        = core.Upload
	Role          = core.Role
)

const defaultLoginPath = services.DefaultLoginPath

// Constructors & helpers (convenience re-exports)
var (
	NewInMemoryCache = core.NewInMemoryCache
	NewMemoryStorage = core.NewMemoryStorage
	UserMessage      = core.UserMessage
	Progress         = core.Progress
	IsAuthFailure    = services.IsAuthFailure
)

var (
	ErrNoCredential = core.ErrNoCredential
	ErrInvalidToken = core.ErrInvalidToken
	ErrSuperseded   = core.ErrSuperseded
)

var (
	ErrUsernameRequired  = core.ErrUsernameRequired
	ErrPasswordRequired  = core.ErrPasswordRequired
	ErrTitleRequired     = core.ErrTitleRequired
	ErrTextRequired      = core.ErrTextRequired
	ErrAnswerRequired    = core.ErrAnswerRequired
	ErrNoThreadSelected  = core.ErrNoThreadSelected
	ErrAlreadyEnrolled   = core.ErrAlreadyEnrolled
	ErrNotEnrolled       = core.ErrNotEnrolled
	ErrLessonNotInCourse = core.ErrLessonNotInCourse
	ErrNotLoaded         = core.ErrNotLoaded
)

var (
	ErrNetwork         = core.ErrNetwork
	ErrUnauthenticated = core.ErrUnauthenticated
	ErrValidation      = core.ErrValidation
	ErrNotFound        = core.ErrNotFound
	ErrServer          = core.ErrServer
)

var (
	ErrBaseURLRequired  = core.ErrBaseURLRequired
	ErrStorageRequired  = core.ErrStorageRequired
	ErrEndpointConflict = core.ErrEndpointConflict
)

type Config struct {
	BaseURL string
	Storage Storage

	// Optional config
	Timeout      time.Duration
	UserAgent    string
	CacheAdapter Cache
	DisableCache bool
	CacheConfig  *CacheConfig
	Navigator    Navigator
	LoginPath    string
	Logger       *slog.Logger
	HTTPClient   *http.Client
	Endpoints    []Endpoint
	HTTP         HTTPAdapter
}

// Client wires the session, API client, entity cache and services for one
// user of the AI Learn API.
type Client struct {
	Session   *core.Session
	API       *services.APIClient
	Cache     *services.EntityCache
	Selection *core.SelectionStore

	Courses    *services.CourseService
	Lessons    *services.LessonService
	Quizzes    *services.QuizService
	Discussion *services.DiscussionService
	Profiles   *services.ProfileService
	Auth       *services.AuthService
	Assistant  *services.AssistantService

	Navigator Navigator
	LoginPath string
	Logger    *slog.Logger

	backend Cache
}

func New(config Config) (*Client, error) {
	if config.BaseURL == "" {
		return nil, ErrBaseURLRequired
	}
	if config.Storage == nil {
		return nil, ErrStorageRequired
	}

	// Set Defaults

	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}

	cacheAdapter := config.CacheAdapter
	if cacheAdapter == nil && !config.DisableCache {
		cacheConfig := CacheConfig{TTL: 5 * time.Minute, MaxSize: 500}
		if config.CacheConfig != nil {
			cacheConfig = *config.CacheConfig
		}
		cacheAdapter = NewInMemoryCache(cacheConfig)
	}
	if config.DisableCache {
		cacheAdapter = nil
	}

	loginPath := config.LoginPath
	if loginPath == "" {
		loginPath = defaultLoginPath
	}

	registry := services.NewEndpointRegistry()
	if len(config.Endpoints) > 0 {
		if err := registry.RegisterPlugin(config.Endpoints); err != nil {
			return nil, err
		}
	}

	session := core.NewSession(config.Storage)
	api, err := services.NewAPIClient(services.APIOptions{
		BaseURL:    config.BaseURL,
		Timeout:    config.Timeout,
		UserAgent:  config.UserAgent,
		Logger:     logger,
		HTTPClient: config.HTTPClient,
	}, registry, session)
	if err != nil {
		return nil, err
	}
	cache := services.NewEntityCache(cacheAdapter, session, logger)

	client := &Client{
		Session:    session,
		API:        api,
		Cache:      cache,
		Selection:  core.NewSelectionStore(config.Storage),
		Courses:    services.NewCourseService(api, cache),
		Lessons:    services.NewLessonService(api, cache),
		Quizzes:    services.NewQuizService(api, cache),
		Discussion: services.NewDiscussionService(api, cache),
		Profiles:   services.NewProfileService(api, cache),
		Auth:       services.NewAuthService(api),
		Assistant:  services.NewAssistantService(api),
		Navigator:  config.Navigator,
		LoginPath:  loginPath,
		Logger:     logger,
		backend:    cacheAdapter,
	}

	if config.HTTP != nil {
		if err := config.HTTP.RegisterRoutes(client); err != nil {
			return nil, err
		}
	}

	return client, nil
}

// Restore picks up a credential persisted by an earlier run.
func (c *Client) Restore(ctx context.Context) error {
	if err := c.Session.Restore(ctx); err != nil {
		return fmt.Errorf("restore session: %w", err)
	}
	return nil
}

// Deps returns the view dependencies. A non-nil nav replaces the
// configured Navigator, which lets a server redirect per request.
func (c *Client) Deps(nav Navigator) views.Deps {
	if nav == nil {
		nav = c.Navigator
	}
	return views.Deps{
		Session:    c.Session,
		Navigator:  nav,
		LoginPath:  c.LoginPath,
		Courses:    c.Courses,
		Lessons:    c.Lessons,
		Quizzes:    c.Quizzes,
		Discussion: c.Discussion,
		Profiles:   c.Profiles,
		Auth:       c.Auth,
		Selection:  c.Selection,
	}
}

// CacheStats reports the backing cache's counters when it keeps them.
func (c *Client) CacheStats() (CacheStats, bool) {
	withStats, ok := c.backend.(core.CacheWithStats)
	if !ok {
		return CacheStats{}, false
	}
	return withStats.Stats(), true
}
