package core

import (
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strings"
)

// Session errors
var (
	ErrNoCredential = errors.New("no credential")     // view must redirect
	ErrInvalidToken = errors.New("invalid credential") // empty or malformed token
	ErrSuperseded   = errors.New("request superseded by a newer one")
)

// Storage & cache errors
var (
	ErrStateNotFound = errors.New("state not found")
	ErrCacheNotFound = errors.New("entry not found in cache")
)

// Validation errors (client input, checked before any request)
var (
	ErrUsernameRequired  = errors.New("username is required")
	ErrPasswordRequired  = errors.New("password is required")
	ErrTitleRequired     = errors.New("thread title is required")
	ErrTextRequired      = errors.New("comment text is required")
	ErrAnswerRequired    = errors.New("answer is required")
	ErrNoThreadSelected  = errors.New("no thread selected")
	ErrAlreadyEnrolled   = errors.New("already enrolled in course")
	ErrNotEnrolled       = errors.New("not enrolled in course")
	ErrLessonNotInCourse = errors.New("lesson does not belong to course")
	ErrNotLoaded         = errors.New("resource not loaded")
	ErrNotEditing        = errors.New("profile is not being edited")
	ErrUnknownTab        = errors.New("unknown dashboard tab")
)

// Config errors
var (
	ErrBaseURLRequired  = errors.New("base URL is required")
	ErrStorageRequired  = errors.New("storage adapter is required")
	ErrUnknownOperation = errors.New("unknown API operation")
	ErrEndpointConflict = errors.New("endpoint already registered")
)

// Request failure kinds. An *APIError matches exactly one of these with
// errors.Is.
var (
	ErrNetwork         = errors.New("network failure")
	ErrUnauthenticated = errors.New("authentication failure")
	ErrValidation      = errors.New("validation failure")
	ErrNotFound        = errors.New("not found")
	ErrServer          = errors.New("server failure")
)

// ErrorKind classifies a failed request.
type ErrorKind int

const (
	KindNetwork ErrorKind = iota
	KindAuth
	KindValidation
	KindNotFound
	KindServer
)

func (k ErrorKind) String() string {
	switch k {
	case KindNetwork:
		return "network"
	case KindAuth:
		return "authentication"
	case KindValidation:
		return "validation"
	case KindNotFound:
		return "not-found"
	case KindServer:
		return "server"
	}
	return "unknown"
}

func (k ErrorKind) sentinel() error {
	switch k {
	case KindNetwork:
		return ErrNetwork
	case KindAuth:
		return ErrUnauthenticated
	case KindValidation:
		return ErrValidation
	case KindNotFound:
		return ErrNotFound
	default:
		return ErrServer
	}
}

// KindForStatus maps an HTTP status code of a failed response to its kind.
// 403 counts as an authentication failure: the API answers it for revoked
// tokens as well as for missing ones.
func KindForStatus(status int) ErrorKind {
	switch {
	case status == http.StatusUnauthorized, status == http.StatusForbidden:
		return KindAuth
	case status == http.StatusNotFound:
		return KindNotFound
	case status >= 400 && status < 500:
		return KindValidation
	default:
		return KindServer
	}
}

// APIError is a normalized request failure.
type APIError struct {
	Kind      ErrorKind
	Operation string
	Status    int                 // 0 when no response was received
	Message   string              // server "detail" or a generic message
	Fields    map[string][]string // field-level validation messages
	Err       error               // underlying transport error, if any
}

func (e *APIError) Error() string {
	var b strings.Builder
	if e.Operation != "" {
		b.WriteString(e.Operation)
		b.WriteString(": ")
	}
	b.WriteString(e.Kind.String())
	if e.Status != 0 {
		fmt.Fprintf(&b, " (%d)", e.Status)
	}
	if e.Message != "" {
		b.WriteString(": ")
		b.WriteString(e.Message)
	}
	if len(e.Fields) > 0 {
		b.WriteString(": ")
		b.WriteString(e.FieldSummary())
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *APIError) Unwrap() error { return e.Err }

// Is matches the kind sentinel.
func (e *APIError) Is(target error) bool {
	return target == e.Kind.sentinel()
}

// FieldSummary renders field errors as "field: msg; field: msg" in a stable
// order.
func (e *APIError) FieldSummary() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+strings.Join(e.Fields[k], ", "))
	}
	return strings.Join(parts, "; ")
}

// AsAPIError unwraps err into an *APIError.
func AsAPIError(err error) (*APIError, bool) {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr, true
	}
	return nil, false
}

// UserMessage turns any error into a short message fit for an inline error
// or toast.
func UserMessage(err error) string {
	if err == nil {
		return ""
	}
	if errors.Is(err, ErrNoCredential) {
		return "Please log in to continue."
	}
	apiErr, ok := AsAPIError(err)
	if !ok {
		return err.Error()
	}
	switch apiErr.Kind {
	case KindNetwork:
		return "Could not reach the server. Check your connection and try again."
	case KindAuth:
		return "Your session has ended. Please log in again."
	case KindValidation:
		if apiErr.Message != "" {
			return apiErr.Message
		}
		if len(apiErr.Fields) > 0 {
			return apiErr.FieldSummary()
		}
		return "The request was rejected."
	case KindNotFound:
		return "Not found."
	default:
		return "Something went wrong. Try again."
	}
}
