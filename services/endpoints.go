package services

import (
	"fmt"
	"net/http"
	"sort"

	"github.com/ailearn/learnsync/core"
)

// Operation ids of the AI Learn API.
const (
	OpListCourses     = "listCourses"
	OpGetCourse       = "getCourse"
	OpEnroll          = "enrollInCourse"
	OpMyCourses       = "listEnrolledCourses"
	OpListLessons     = "listLessons"
	OpGetLesson       = "getLesson"
	OpCompleteLesson  = "completeLesson"
	OpListQuizzes     = "listQuizzes"
	OpGetQuiz         = "getQuiz"
	OpSubmitQuiz      = "submitQuizAnswer"
	OpListThreads     = "listThreads"
	OpCreateThread    = "createThread"
	OpListComments    = "listComments"
	OpCreateComment   = "createComment"
	OpGetProfile      = "getProfile"
	OpUpdateProfile   = "updateProfile"
	OpLogin           = "login"
	OpRegister        = "register"
	OpVerify          = "verifyCredential"
	OpChat            = "chat"
	OpRecommendations = "recommendations"
	OpDeepSeekChat    = "deepSeekChat"
	OpUserProgress    = "listUserProgress"
)

// BaseEndpoints returns the remote operations the client knows about.
// Paths are relative to the configured base URL.
func BaseEndpoints() []core.Endpoint {
	ep := func(op, method, path string, auth core.AuthMode, desc string) core.Endpoint {
		return core.Endpoint{
			Path:   path,
			Method: method,
			Auth:   auth,
			Metadata: core.EndpointMetadata{
				OperationID: op,
				Description: desc,
			},
		}
	}
	multipart := func(e core.Endpoint) core.Endpoint {
		e.Multipart = true
		return e
	}

	return []core.Endpoint{
		ep(OpListCourses, http.MethodGet, "/courses/", core.AuthOptional, "List the course catalog"),
		ep(OpGetCourse, http.MethodGet, "/courses/{id}/", core.AuthRequired, "Get one course with the caller's enrollment state"),
		ep(OpEnroll, http.MethodPost, "/courses/{id}/enroll/", core.AuthRequired, "Enroll the caller in a course"),
		ep(OpMyCourses, http.MethodGet, "/my-courses/", core.AuthRequired, "List the caller's enrolled courses with progress"),
		ep(OpListLessons, http.MethodGet, "/lessons/", core.AuthRequired, "List the lessons of a course"),
		ep(OpGetLesson, http.MethodGet, "/lessons/{id}/", core.AuthRequired, "Get one lesson"),
		ep(OpCompleteLesson, http.MethodPost, "/lessons/{id}/complete/", core.AuthRequired, "Mark a lesson complete for the caller"),
		ep(OpListQuizzes, http.MethodGet, "/quizzes/", core.AuthRequired, "List the quizzes of a course"),
		ep(OpGetQuiz, http.MethodGet, "/quizzes/{id}/", core.AuthRequired, "Get one quiz"),
		ep(OpSubmitQuiz, http.MethodPost, "/quizzes/{id}/submit/", core.AuthRequired, "Submit an answer and receive feedback"),
		ep(OpListThreads, http.MethodGet, "/courses/{id}/threads/", core.AuthRequired, "List discussion threads of a course"),
		ep(OpCreateThread, http.MethodPost, "/threads/", core.AuthRequired, "Start a discussion thread"),
		ep(OpListComments, http.MethodGet, "/threads/{id}/comments/", core.AuthRequired, "List comments of a thread"),
		ep(OpCreateComment, http.MethodPost, "/comments/", core.AuthRequired, "Comment on a thread"),
		ep(OpGetProfile, http.MethodGet, "/profiles/me/", core.AuthRequired, "Get the caller's profile"),
		multipart(ep(OpUpdateProfile, http.MethodPut, "/profiles/me/", core.AuthRequired, "Replace the editable profile fields")),
		ep(OpLogin, http.MethodPost, "/auth/login/", core.AuthNone, "Exchange username and password for a token"),
		multipart(ep(OpRegister, http.MethodPost, "/auth/register/", core.AuthNone, "Create an account")),
		ep(OpUserProgress, http.MethodGet, "/userprogress/", core.AuthRequired, "List per-lesson progress records of a user"),
		ep(OpVerify, http.MethodGet, "/auth/protected/", core.AuthRequired, "Check that the credential is accepted"),
		ep(OpChat, http.MethodPost, "/ai/chatbot/", core.AuthOptional, "Ask the course assistant"),
		ep(OpRecommendations, http.MethodGet, "/ai/adaptive/", core.AuthRequired, "Get adaptive learning recommendations"),
		ep(OpDeepSeekChat, http.MethodPost, "/deepseek/chat/", core.AuthOptional, "Ask the DeepSeek assistant"),
	}
}

// EndpointRegistry holds the endpoint table, keyed by operation id, and
// rejects duplicate METHOD:PATH combinations.
type EndpointRegistry struct {
	byOperation map[string]*core.Endpoint
	byRoute     map[string]string
}

// NewEndpointRegistry creates a registry with BaseEndpoints pre-registered.
func NewEndpointRegistry() *EndpointRegistry {
	reg := &EndpointRegistry{
		byOperation: make(map[string]*core.Endpoint),
		byRoute:     make(map[string]string),
	}

	for _, ep := range BaseEndpoints() {
		ep := ep
		if err := reg.register(&ep); err != nil {
			panic(err)
		}
	}

	return reg
}

func routeKey(ep *core.Endpoint) string {
	return fmt.Sprintf("%s:%s", ep.Method, ep.Path)
}

func (r *EndpointRegistry) register(ep *core.Endpoint) error {
	op := ep.Metadata.OperationID
	if _, exists := r.byOperation[op]; exists {
		return fmt.Errorf("%w: operation %s", core.ErrEndpointConflict, op)
	}
	key := routeKey(ep)
	if _, exists := r.byRoute[key]; exists {
		return fmt.Errorf("%w: %s %s", core.ErrEndpointConflict, ep.Method, ep.Path)
	}

	r.byOperation[op] = ep
	r.byRoute[key] = op
	return nil
}

// RegisterPlugin adds endpoints beyond the base table, e.g. for a newer
// server. If any endpoint conflicts with a registered one or with another
// in the same batch, none are registered.
func (r *EndpointRegistry) RegisterPlugin(endpoints []core.Endpoint) error {
	seenOps := make(map[string]bool)
	seenRoutes := make(map[string]bool)
	for i := range endpoints {
		ep := &endpoints[i]
		op, key := ep.Metadata.OperationID, routeKey(ep)

		if op == "" {
			return fmt.Errorf("plugin endpoint %s %s has no operation id", ep.Method, ep.Path)
		}
		if _, exists := r.byOperation[op]; exists || seenOps[op] {
			return fmt.Errorf("%w: operation %s", core.ErrEndpointConflict, op)
		}
		if _, exists := r.byRoute[key]; exists || seenRoutes[key] {
			return fmt.Errorf("%w: %s %s", core.ErrEndpointConflict, ep.Method, ep.Path)
		}
		seenOps[op] = true
		seenRoutes[key] = true
	}

	for i := range endpoints {
		ep := endpoints[i]
		r.byOperation[ep.Metadata.OperationID] = &ep
		r.byRoute[routeKey(&ep)] = ep.Metadata.OperationID
	}
	return nil
}

// Lookup returns the endpoint for an operation id.
func (r *EndpointRegistry) Lookup(operationID string) (core.Endpoint, error) {
	ep, ok := r.byOperation[operationID]
	if !ok {
		return core.Endpoint{}, fmt.Errorf("%w: %s", core.ErrUnknownOperation, operationID)
	}
	return *ep, nil
}

// Endpoints returns all registered endpoints ordered by operation id.
func (r *EndpointRegistry) Endpoints() []core.Endpoint {
	result := make([]core.Endpoint, 0, len(r.byOperation))
	for _, ep := range r.byOperation {
		result = append(result, *ep)
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].Metadata.OperationID < result[j].Metadata.OperationID
	})
	return result
}
