package main

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/naveenspark/portcullis/pkg/domain"
)

const (
	demoEmail    = "demo@portcullis.dev"
	demoPassword = "portcullis"
	demoName     = "Demo Admin"
)

type account struct {
	user     domain.User
	password string
}

// fakeBackend serves the auth endpoints the remote service calls.
type fakeBackend struct {
	mu       sync.Mutex
	accounts map[string]*account // by email
	tokens   map[string]string   // token -> email
	issued   int
}

func newFakeBackend(t *testing.T) (*fakeBackend, *httptest.Server) {
	t.Helper()
	b := &fakeBackend{
		accounts: map[string]*account{
			demoEmail: {
				user: domain.User{
					ID:              uuid.New(),
					Name:            demoName,
					Email:           demoEmail,
					Role:            domain.RoleAdmin,
					IsEmailVerified: true,
				},
				password: demoPassword,
			},
		},
		tokens: make(map[string]string),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/auth/login", b.login)
	mux.HandleFunc("POST /api/auth/register", b.register)
	mux.HandleFunc("POST /api/auth/logout", b.logout)
	mux.HandleFunc("GET /api/me", b.me)

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return b, srv
}

func (b *fakeBackend) activeTokens() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.tokens)
}

// issue must be called with mu held.
func (b *fakeBackend) issue(email string) string {
	b.issued++
	tok := fmt.Sprintf("tok-%d", b.issued)
	b.tokens[tok] = email
	return tok
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v) //nolint:errcheck
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func (b *fakeBackend) login(w http.ResponseWriter, r *http.Request) {
	var req domain.LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid body")
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	acc, ok := b.accounts[strings.ToLower(req.Email)]
	if !ok || acc.password != req.Password {
		writeError(w, http.StatusUnauthorized, "email or password is incorrect")
		return
	}
	writeJSON(w, http.StatusOK, domain.AuthResponse{User: acc.user, Credential: b.issue(acc.user.Email)})
}

func (b *fakeBackend) register(w http.ResponseWriter, r *http.Request) {
	var req domain.SignupRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid body")
		return
	}
	if utf8.RuneCountInString(req.Password) < 8 {
		writeError(w, http.StatusUnprocessableEntity, "password must be at least 8 characters")
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	email := strings.ToLower(req.Email)
	if _, exists := b.accounts[email]; exists {
		writeError(w, http.StatusConflict, "an account with this email already exists")
		return
	}
	acc := &account{
		user:     domain.User{ID: uuid.New(), Name: req.Name, Email: email, Role: domain.RoleUser},
		password: req.Password,
	}
	b.accounts[email] = acc
	writeJSON(w, http.StatusCreated, domain.AuthResponse{User: acc.user, Credential: b.issue(email)})
}

func (b *fakeBackend) logout(w http.ResponseWriter, r *http.Request) {
	tok := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.tokens[tok]; !ok {
		writeError(w, http.StatusUnauthorized, "unknown session")
		return
	}
	delete(b.tokens, tok)
	w.WriteHeader(http.StatusNoContent)
}

func (b *fakeBackend) me(w http.ResponseWriter, r *http.Request) {
	tok := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
	b.mu.Lock()
	defer b.mu.Unlock()
	email, ok := b.tokens[tok]
	if !ok {
		writeError(w, http.StatusUnauthorized, "session expired, sign in again")
		return
	}
	writeJSON(w, http.StatusOK, b.accounts[email].user)
}
