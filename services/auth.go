package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/ailearn/learnsync/core"
)

// AuthService acquires and drops the credential. It is the only writer of
// the session besides the API client's auth-failure path.
type AuthService struct {
	api     *APIClient
	session *core.Session
}

func NewAuthService(api *APIClient) *AuthService {
	return &AuthService{api: api, session: api.Session()}
}

// Login exchanges username and password for a token and stores it.
func (s *AuthService) Login(ctx context.Context, username, password string) error {
	// Step 1: Validate locally, no request for an incomplete form
	if strings.TrimSpace(username) == "" {
		return core.ErrUsernameRequired
	}
	if password == "" {
		return core.ErrPasswordRequired
	}

	// Step 2: Exchange credentials for a token
	var resp struct {
		Token string `json:"token"`
	}
	req := Request{
		Operation: OpLogin,
		Body:      map[string]string{"username": username, "password": password},
	}
	if err := s.api.Do(ctx, req, &resp); err != nil {
		return fmt.Errorf("login: %w", err)
	}
	if resp.Token == "" {
		return &core.APIError{Kind: core.KindServer, Operation: OpLogin, Message: "login response carried no token"}
	}

	// Step 3: Replace any previous credential
	if err := s.session.Authenticate(ctx, resp.Token); err != nil {
		return fmt.Errorf("failed to store credential: %w", err)
	}
	return nil
}

// Register creates an account. It never authenticates: the user logs in
// afterwards.
func (s *AuthService) Register(ctx context.Context, reg core.Registration) error {
	if strings.TrimSpace(reg.Username) == "" {
		return core.ErrUsernameRequired
	}
	if reg.Password == "" {
		return core.ErrPasswordRequired
	}

	req := Request{Operation: OpRegister, Form: reg.FormData()}
	if reg.Avatar != nil {
		req.Files = map[string]core.Upload{"avatar": *reg.Avatar}
	}
	if err := s.api.Do(ctx, req, nil); err != nil {
		return fmt.Errorf("register: %w", err)
	}
	return nil
}

// Logout drops the credential. It makes no request.
func (s *AuthService) Logout(ctx context.Context) error {
	return s.session.SignOut(ctx)
}

// Verify asks the server whether the credential is still accepted and
// returns its greeting.
func (s *AuthService) Verify(ctx context.Context) (string, error) {
	var resp struct {
		Message string `json:"message"`
	}
	if err := s.api.Do(ctx, Request{Operation: OpVerify}, &resp); err != nil {
		return "", err
	}
	return resp.Message, nil
}
