// Package auth talks to the backend that issues, resolves and revokes
// credentials. Two variants exist: RemoteService calls the HTTP API and
// MockService runs an in-process backend with locally signed credentials.
package auth

import (
	"context"
	"fmt"
	"time"

	"github.com/naveenspark/portcullis/internal/credential"
	"github.com/naveenspark/portcullis/pkg/domain"
)

// Service is the backend contract the session manager depends on.
type Service interface {
	// Authenticate fails with ErrInvalidCredentials.
	Authenticate(ctx context.Context, req domain.LoginRequest) (*domain.AuthResponse, error)
	// Register fails with ErrValidation or ErrConflict.
	Register(ctx context.Context, req domain.SignupRequest) (*domain.AuthResponse, error)
	// Revoke is best effort; it fails with ErrTransport.
	Revoke(ctx context.Context, c credential.Credential) error
	// Resolve turns a stored credential into the identity it belongs to.
	// Expired or unknown credentials fail with ErrInvalidCredentials.
	Resolve(ctx context.Context, c credential.Credential) (*domain.User, error)
}

// Mode selects the Service variant.
type Mode string

const (
	ModeRemote Mode = "remote"
	ModeMock   Mode = "mock"
)

// Valid returns true if m names a known variant.
func (m Mode) Valid() bool {
	return m == ModeRemote || m == ModeMock
}

// Config carries what New needs to build either variant.
type Config struct {
	Mode       Mode
	APIURL     string
	Timeout    time.Duration
	MockSecret string
	MockTTL    time.Duration
}

// New builds the variant selected by cfg.Mode. The choice is made once here.
func New(cfg Config) (Service, error) {
	switch cfg.Mode {
	case ModeRemote:
		return NewRemoteService(cfg.APIURL, cfg.Timeout), nil
	case ModeMock:
		svc, err := NewMockService(MockConfig{
			Secret:   []byte(cfg.MockSecret),
			TTL:      cfg.MockTTL,
			SeedDemo: true,
		})
		if err != nil {
			return nil, fmt.Errorf("auth.New: %w", err)
		}
		return svc, nil
	default:
		return nil, fmt.Errorf("auth.New: unknown mode %q", cfg.Mode)
	}
}
