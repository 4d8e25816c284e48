package auth

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/naveenspark/portcullis/internal/credential"
	"github.com/naveenspark/portcullis/pkg/domain"
)

const (
	mockIssuer = "portcullis-mock"

	// MinPasswordLen is the shortest password Register accepts.
	MinPasswordLen = 8

	// Demo account seeded by MockConfig.SeedDemo.
	DemoEmail    = "demo@portcullis.dev"
	DemoPassword = "portcullis"
	DemoName     = "Demo Admin"
)

// MockConfig configures a MockService.
type MockConfig struct {
	Secret   []byte        // HMAC key for credentials; required
	TTL      time.Duration // credential lifetime; 0 means 24h
	HashCost int           // bcrypt cost; 0 means bcrypt.DefaultCost
	SeedDemo bool
	Now      func() time.Time
}

type mockAccount struct {
	user domain.User
	hash []byte
}

// MockService is an in-process backend. Credentials are HS256 JWTs that
// Resolve verifies locally; revocation is tracked per token ID.
type MockService struct {
	secret []byte
	ttl    time.Duration
	cost   int
	now    func() time.Time

	mu       sync.Mutex
	accounts map[string]*mockAccount  // by normalized email
	sessions map[string]domain.Session // by token ID
}

// NewMockService returns a MockService with no accounts unless cfg.SeedDemo is set.
func NewMockService(cfg MockConfig) (*MockService, error) {
	if len(cfg.Secret) == 0 {
		return nil, errors.New("mock secret is required")
	}
	if cfg.TTL <= 0 {
		cfg.TTL = 24 * time.Hour
	}
	if cfg.HashCost == 0 {
		cfg.HashCost = bcrypt.DefaultCost
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	s := &MockService{
		secret:   cfg.Secret,
		ttl:      cfg.TTL,
		cost:     cfg.HashCost,
		now:      cfg.Now,
		accounts: make(map[string]*mockAccount),
		sessions: make(map[string]domain.Session),
	}
	if cfg.SeedDemo {
		if _, err := s.addAccount(DemoName, DemoEmail, DemoPassword, domain.RoleAdmin, true); err != nil {
			return nil, fmt.Errorf("seed demo account: %w", err)
		}
	}
	return s, nil
}

// Authenticate checks the password against the stored bcrypt hash and issues
// a signed credential backed by a new session.
func (s *MockService) Authenticate(ctx context.Context, req domain.LoginRequest) (*domain.AuthResponse, error) {
	if err := ctx.Err(); err != nil {
		return nil, newError("Authenticate", ErrTransport, "", err)
	}
	s.mu.Lock()
	acct, ok := s.accounts[normalizeEmail(req.Email)]
	s.mu.Unlock()
	if !ok {
		return nil, newError("Authenticate", ErrInvalidCredentials, "email or password is incorrect", nil)
	}
	if err := bcrypt.CompareHashAndPassword(acct.hash, []byte(req.Password)); err != nil {
		return nil, newError("Authenticate", ErrInvalidCredentials, "email or password is incorrect", nil)
	}
	return s.issue("Authenticate", acct.user)
}

// Register validates the signup, creates an unverified USER account and
// signs it in.
func (s *MockService) Register(ctx context.Context, req domain.SignupRequest) (*domain.AuthResponse, error) {
	if err := ctx.Err(); err != nil {
		return nil, newError("Register", ErrTransport, "", err)
	}
	if msg := validateSignup(req); msg != "" {
		return nil, newError("Register", ErrValidation, msg, nil)
	}
	u, err := s.addAccount(strings.TrimSpace(req.Name), req.Email, req.Password, domain.RoleUser, false)
	if err != nil {
		return nil, err
	}
	return s.issue("Register", *u)
}

// Revoke ends the session named by the credential's jti. Expired credentials
// can still be revoked.
func (s *MockService) Revoke(ctx context.Context, c credential.Credential) error {
	if err := ctx.Err(); err != nil {
		return newError("Revoke", ErrTransport, "", err)
	}
	claims, err := s.parse(string(c), jwt.WithoutClaimsValidation())
	if err != nil {
		return newError("Revoke", ErrInvalidCredentials, "", err)
	}
	s.mu.Lock()
	delete(s.sessions, claims.ID)
	s.mu.Unlock()
	return nil
}

// Resolve verifies the credential locally and returns its user, provided the
// session has not been revoked.
func (s *MockService) Resolve(ctx context.Context, c credential.Credential) (*domain.User, error) {
	if err := ctx.Err(); err != nil {
		return nil, newError("Resolve", ErrTransport, "", err)
	}
	claims, err := s.parse(string(c))
	if err != nil {
		return nil, newError("Resolve", ErrInvalidCredentials, "session expired, sign in again", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[claims.ID]
	if !ok || sess.Expired(s.now()) || sess.UserID != claims.Subject {
		return nil, newError("Resolve", ErrInvalidCredentials, "session expired, sign in again", nil)
	}
	for _, acct := range s.accounts {
		if acct.user.ID.String() == claims.Subject {
			u := acct.user
			return &u, nil
		}
	}
	return nil, newError("Resolve", ErrInvalidCredentials, "account no longer exists", nil)
}

// Sessions returns the number of live, unrevoked credentials.
func (s *MockService) Sessions() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	now := s.now()
	for _, sess := range s.sessions {
		if !sess.Expired(now) {
			n++
		}
	}
	return n
}

func (s *MockService) addAccount(name, email, password string, role domain.Role, verified bool) (*domain.User, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.cost)
	if err != nil {
		return nil, newError("Register", ErrValidation, "password cannot be used", err)
	}
	key := normalizeEmail(email)

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.accounts[key]; exists {
		return nil, newError("Register", ErrConflict, "an account with this email already exists", nil)
	}
	u := domain.User{
		ID:              uuid.New(),
		Name:            name,
		Email:           key,
		Role:            role,
		IsEmailVerified: verified,
	}
	s.accounts[key] = &mockAccount{user: u, hash: hash}
	return &u, nil
}

func (s *MockService) issue(op string, u domain.User) (*domain.AuthResponse, error) {
	now := s.now()
	sess := domain.Session{
		ID:        uuid.NewString(),
		UserID:    u.ID.String(),
		CreatedAt: now,
		ExpiresAt: now.Add(s.ttl),
	}
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Issuer:    mockIssuer,
		Subject:   sess.UserID,
		ID:        sess.ID,
		IssuedAt:  jwt.NewNumericDate(sess.CreatedAt),
		ExpiresAt: jwt.NewNumericDate(sess.ExpiresAt),
	})
	signed, err := tok.SignedString(s.secret)
	if err != nil {
		return nil, newError(op, ErrTransport, "", fmt.Errorf("sign credential: %w", err))
	}

	s.mu.Lock()
	s.sessions[sess.ID] = sess
	s.mu.Unlock()

	return &domain.AuthResponse{User: u, Credential: signed}, nil
}

func (s *MockService) parse(raw string, opts ...jwt.ParserOption) (*jwt.RegisteredClaims, error) {
	opts = append(opts,
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(mockIssuer),
		jwt.WithTimeFunc(s.now),
	)
	claims := &jwt.RegisteredClaims{}
	_, err := jwt.ParseWithClaims(raw, claims, func(*jwt.Token) (any, error) {
		return s.secret, nil
	}, opts...)
	if err != nil {
		return nil, err
	}
	return claims, nil
}

// validateSignup returns a user-facing message, or "" if req is acceptable.
func validateSignup(req domain.SignupRequest) string {
	if strings.TrimSpace(req.Name) == "" {
		return "name is required"
	}
	addr, err := mail.ParseAddress(req.Email)
	if err != nil || addr.Address != strings.TrimSpace(req.Email) {
		return "email address is invalid"
	}
	if utf8.RuneCountInString(req.Password) < MinPasswordLen {
		return fmt.Sprintf("password must be at least %d characters", MinPasswordLen)
	}
	return ""
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
