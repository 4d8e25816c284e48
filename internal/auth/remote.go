package auth

import (
	"context"
	"net/http"
	"time"

	"github.com/naveenspark/portcullis/internal/credential"
	"github.com/naveenspark/portcullis/pkg/client"
	"github.com/naveenspark/portcullis/pkg/domain"
)

// RemoteService is the Service backed by the Portcullis HTTP API.
type RemoteService struct {
	client *client.Client
}

// NewRemoteService returns a service talking to apiURL.
// A non-positive timeout falls back to client.DefaultTimeout.
func NewRemoteService(apiURL string, timeout time.Duration) *RemoteService {
	if timeout <= 0 {
		timeout = client.DefaultTimeout
	}
	return &RemoteService{client: client.NewWithTimeout(apiURL, "", timeout)}
}

// NewRemoteServiceWithClient wraps an existing API client.
func NewRemoteServiceWithClient(c *client.Client) *RemoteService {
	return &RemoteService{client: c}
}

// Authenticate calls POST /api/auth/login.
func (s *RemoteService) Authenticate(ctx context.Context, req domain.LoginRequest) (*domain.AuthResponse, error) {
	resp, err := s.client.Login(ctx, req)
	if err != nil {
		return nil, classify("Authenticate", err)
	}
	if resp.Credential == "" {
		return nil, newError("Authenticate", ErrTransport, "server returned no credential", nil)
	}
	return resp, nil
}

// Register calls POST /api/auth/register.
func (s *RemoteService) Register(ctx context.Context, req domain.SignupRequest) (*domain.AuthResponse, error) {
	resp, err := s.client.Register(ctx, req)
	if err != nil {
		return nil, classify("Register", err)
	}
	if resp.Credential == "" {
		return nil, newError("Register", ErrTransport, "server returned no credential", nil)
	}
	return resp, nil
}

// Revoke calls POST /api/auth/logout with c. A 401 counts as revoked.
func (s *RemoteService) Revoke(ctx context.Context, c credential.Credential) error {
	if err := s.client.WithToken(string(c)).Logout(ctx); err != nil {
		// An already-dead credential is as good as revoked.
		if client.IsStatus(err, http.StatusUnauthorized) {
			return nil
		}
		return newError("Revoke", ErrTransport, "", err)
	}
	return nil
}

// Resolve calls GET /api/me with c.
func (s *RemoteService) Resolve(ctx context.Context, c credential.Credential) (*domain.User, error) {
	u, err := s.client.WithToken(string(c)).GetMe(ctx)
	if err != nil {
		return nil, classify("Resolve", err)
	}
	return u, nil
}

// classify maps an API client error onto the auth error kinds.
func classify(op string, err error) error {
	code := client.StatusCode(err)
	switch code {
	case 0:
		return newError(op, ErrTransport, "", err)
	case http.StatusUnauthorized, http.StatusForbidden:
		return newError(op, ErrInvalidCredentials, client.Message(err), err)
	case http.StatusBadRequest, http.StatusUnprocessableEntity:
		return newError(op, ErrValidation, client.Message(err), err)
	case http.StatusConflict:
		return newError(op, ErrConflict, client.Message(err), err)
	}
	return newError(op, ErrTransport, "", err)
}
