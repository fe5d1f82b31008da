package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/ailearn/learnsync/core"
	"github.com/ailearn/learnsync/pkg/crypto"
)

const (
	HeaderAuthorization = "Authorization"
	HeaderRequestID     = "X-Request-ID"
	AuthScheme          = "Token"
)

// APIOptions configures an APIClient.
type APIOptions struct {
	BaseURL   string
	Timeout   time.Duration // 0 means no client-side timeout
	UserAgent string
	Logger    *slog.Logger

	// HTTPClient overrides the transport, e.g. in tests
	HTTPClient *http.Client
}

// Request is one call to a registered operation.
type Request struct {
	Operation  string
	PathParams map[string]string
	Query      map[string]string

	// Body is JSON-encoded unless the request is multipart.
	Body any

	// Form and Files make up a multipart payload.
	Form  map[string]string
	Files map[string]core.Upload
}

// APIClient issues requests against the AI Learn API. It is the only
// component that talks HTTP; it reads the credential from the session and
// reports authentication failures back to it.
type APIClient struct {
	http     *resty.Client
	registry *EndpointRegistry
	session  *core.Session
	logger   *slog.Logger
}

func NewAPIClient(opts APIOptions, registry *EndpointRegistry, session *core.Session) (*APIClient, error) {
	if strings.TrimSpace(opts.BaseURL) == "" {
		return nil, core.ErrBaseURLRequired
	}
	if registry == nil {
		registry = NewEndpointRegistry()
	}
	if session == nil {
		session = core.NewSession(core.NewMemoryStorage())
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	var client *resty.Client
	if opts.HTTPClient != nil {
		client = resty.NewWithClient(opts.HTTPClient)
	} else {
		client = resty.New()
	}
	client.
		SetBaseURL(strings.TrimRight(opts.BaseURL, "/")).
		SetHeader("Accept", "application/json").
		SetRetryCount(0)
	if opts.Timeout > 0 {
		client.SetTimeout(opts.Timeout)
	}
	if opts.UserAgent != "" {
		client.SetHeader("User-Agent", opts.UserAgent)
	}

	client.OnAfterResponse(func(_ *resty.Client, resp *resty.Response) error {
		logger.Debug("api round trip",
			"method", resp.Request.Method,
			"url", resp.Request.URL,
			"status", resp.StatusCode(),
			"duration", resp.Time(),
			"request_id", resp.Request.Header.Get(HeaderRequestID),
		)
		return nil
	})

	return &APIClient{
		http:     client,
		registry: registry,
		session:  session,
		logger:   logger,
	}, nil
}

// Session returns the session the client reads the credential from.
func (c *APIClient) Session() *core.Session { return c.session }

// Registry returns the endpoint table.
func (c *APIClient) Registry() *EndpointRegistry { return c.registry }

// Do sends req and decodes a successful JSON response into out (which may
// be nil). Failures are *core.APIError, except for core.ErrNoCredential
// (no request was made) and context cancellation (returned unchanged).
func (c *APIClient) Do(ctx context.Context, req Request, out any) error {
	ep, err := c.registry.Lookup(req.Operation)
	if err != nil {
		return err
	}
	path, err := ep.Resolve(req.PathParams)
	if err != nil {
		return err
	}

	token, hasToken := c.session.Token()
	attach := false
	switch ep.Auth {
	case core.AuthRequired:
		if !hasToken {
			return core.ErrNoCredential
		}
		attach = true
	case core.AuthOptional:
		attach = hasToken
	}

	r := c.http.R().
		SetContext(ctx).
		SetHeader(HeaderRequestID, crypto.RequestID())
	if attach {
		r.SetHeader(HeaderAuthorization, AuthScheme+" "+token)
	}
	if len(req.Query) > 0 {
		r.SetQueryParams(req.Query)
	}

	if ep.Multipart || len(req.Files) > 0 {
		r.SetMultipartFormData(req.Form)
		for field, f := range req.Files {
			r.SetFileReader(field, f.FileName, bytes.NewReader(f.Content))
		}
	} else if req.Body != nil {
		r.SetHeader("Content-Type", "application/json").SetBody(req.Body)
	}

	resp, err := r.Execute(ep.Method, path)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		c.logger.Warn("api request failed", "operation", req.Operation, "error", err)
		return &core.APIError{Kind: core.KindNetwork, Operation: req.Operation, Err: err}
	}

	if resp.StatusCode() >= http.StatusBadRequest {
		apiErr := failureFromResponse(req.Operation, resp.StatusCode(), resp.Body())
		c.logger.Warn("api request rejected",
			"operation", req.Operation,
			"status", apiErr.Status,
			"kind", apiErr.Kind.String(),
		)
		// only the credential this request carried is expired; a rejected
		// login or a token replaced meanwhile leaves the session alone
		if apiErr.Kind == core.KindAuth && attach {
			if _, expErr := c.session.ExpireToken(context.WithoutCancel(ctx), token); expErr != nil {
				c.logger.Error("failed to clear rejected credential", "error", expErr)
			}
		}
		return apiErr
	}

	if out == nil || len(bytes.TrimSpace(resp.Body())) == 0 {
		return nil
	}
	if err := json.Unmarshal(resp.Body(), out); err != nil {
		return &core.APIError{
			Kind:      core.KindServer,
			Operation: req.Operation,
			Status:    resp.StatusCode(),
			Message:   "malformed response",
			Err:       err,
		}
	}
	return nil
}

// failureFromResponse normalizes an error response. The API answers
// validation errors Django REST framework style:
//
//	{"detail": "..."}
//	{"field": ["msg", ...], "non_field_errors": [...]}
func failureFromResponse(op string, status int, body []byte) *core.APIError {
	apiErr := &core.APIError{
		Kind:      core.KindForStatus(status),
		Operation: op,
		Status:    status,
	}

	var obj map[string]json.RawMessage
	if err := json.Unmarshal(body, &obj); err != nil {
		var list []string
		if json.Unmarshal(body, &list) == nil {
			apiErr.Message = strings.Join(list, " ")
		}
		return apiErr
	}

	for _, key := range []string{"detail", "error", "message", "non_field_errors"} {
		if msgs := decodeMessages(obj[key]); len(msgs) > 0 {
			apiErr.Message = strings.Join(msgs, " ")
			break
		}
	}
	for key, raw := range obj {
		switch key {
		case "detail", "error", "message", "non_field_errors":
			continue
		}
		msgs := decodeMessages(raw)
		if len(msgs) == 0 {
			continue
		}
		if apiErr.Fields == nil {
			apiErr.Fields = make(map[string][]string)
		}
		apiErr.Fields[key] = msgs
	}
	return apiErr
}

func decodeMessages(raw json.RawMessage) []string {
	if len(raw) == 0 {
		return nil
	}
	var one string
	if json.Unmarshal(raw, &one) == nil {
		if one == "" {
			return nil
		}
		return []string{one}
	}
	var many []any
	if json.Unmarshal(raw, &many) == nil {
		out := make([]string, 0, len(many))
		for _, m := range many {
			if s, ok := m.(string); ok {
				out = append(out, s)
			} else {
				out = append(out, fmt.Sprint(m))
			}
		}
		return out
	}
	return nil
}

// IsAuthFailure reports whether err means the user must log in again.
func IsAuthFailure(err error) bool {
	return errors.Is(err, core.ErrNoCredential) || errors.Is(err, core.ErrUnauthenticated)
}
