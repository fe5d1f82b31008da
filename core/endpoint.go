package core

import (
	"fmt"
	"strconv"
	"strings"
)

// AuthMode says whether a request carries the credential.
type AuthMode int

const (
	// AuthRequired requests fail with ErrNoCredential before any network I/O
	// when no credential is held.
	AuthRequired AuthMode = iota
	// AuthOptional requests attach the credential when one is held.
	AuthOptional
	// AuthNone requests never attach it (login, register).
	AuthNone
)

func (m AuthMode) String() string {
	switch m {
	case AuthRequired:
		return "required"
	case AuthOptional:
		return "optional"
	case AuthNone:
		return "none"
	}
	return "unknown"
}

// EndpointProvider provides a list of endpoints to register dynamically
type EndpointProvider interface {
	GetEndpoints() []Endpoint
}

// Endpoint describes one remote API operation. Path may contain {name}
// placeholders filled from request path params.
type Endpoint struct {
	Path      string
	Method    string
	Auth      AuthMode
	Multipart bool
	Metadata  EndpointMetadata
}

type EndpointMetadata struct {
	OperationID string
	Description string
}

// Resolve fills the {name} placeholders of the endpoint path.
func (e Endpoint) Resolve(params map[string]string) (string, error) {
	path := e.Path
	for {
		start := strings.IndexByte(path, '{')
		if start < 0 {
			return path, nil
		}
		end := strings.IndexByte(path[start:], '}')
		if end < 0 {
			return "", fmt.Errorf("%s: unterminated placeholder in %q", e.Metadata.OperationID, e.Path)
		}
		name := path[start+1 : start+end]
		value, ok := params[name]
		if !ok || value == "" {
			return "", fmt.Errorf("%s: missing path parameter %q", e.Metadata.OperationID, name)
		}
		path = path[:start] + value + path[start+end+1:]
	}
}

// ID formats an entity id for use as a path parameter.
func ID(id int64) string {
	return strconv.FormatInt(id, 10)
}

// ErrorResponse is the JSON error body of the companion server.
type ErrorResponse struct {
	Error   string              `json:"error"`
	Message string              `json:"message,omitempty"`
	Code    int                 `json:"code,omitempty"`
	Fields  map[string][]string `json:"fields,omitempty"`
}
