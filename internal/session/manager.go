package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/naveenspark/portcullis/internal/auth"
	"github.com/naveenspark/portcullis/internal/credential"
	"github.com/naveenspark/portcullis/pkg/domain"
)

// ErrSuperseded is returned to the caller of a login or registration whose
// result was discarded because a newer operation started before it settled.
var ErrSuperseded = errors.New("session: superseded by a newer operation")

// Option configures a Manager.
type Option func(*Manager)

// WithLogger sets the logger used for non-fatal failures.
func WithLogger(l *slog.Logger) Option {
	return func(m *Manager) {
		if l != nil {
			m.logger = l
		}
	}
}

// Manager owns the session state. Every operation takes a new generation;
// a result that settles after a newer operation started is dropped.
type Manager struct {
	store  credential.Store
	svc    auth.Service
	cache  *Cache
	logger *slog.Logger

	mu      sync.Mutex
	state   State
	gen     uint64
	subs    map[int]chan State
	nextSub int
	closed  bool
}

// NewManager returns a manager in the unresolved state. Call Init to resolve.
func NewManager(store credential.Store, svc auth.Service, opts ...Option) *Manager {
	m := &Manager{
		store:  store,
		svc:    svc,
		logger: slog.New(slog.DiscardHandler),
		state:  State{Status: StatusUnresolved},
		subs:   make(map[int]chan State),
	}
	for _, opt := range opts {
		opt(m)
	}
	m.cache = NewCache(m.lookup)
	return m
}

// Cache exposes the identity cache backing the manager.
func (m *Manager) Cache() *Cache {
	return m.cache
}

// State returns the current snapshot.
func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state.clone()
}

// Subscribe returns a channel that always holds the newest unread state,
// starting with the current one. Call cancel to stop receiving.
func (m *Manager) Subscribe() (<-chan State, func()) {
	ch := make(chan State, 1)

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		close(ch)
		return ch, func() {}
	}
	id := m.nextSub
	m.nextSub++
	m.subs[id] = ch
	ch <- m.state.clone()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			m.mu.Lock()
			defer m.mu.Unlock()
			if c, ok := m.subs[id]; ok {
				delete(m.subs, id)
				close(c)
			}
		})
	}
}

// Close ends every subscription. The manager stays usable for State.
func (m *Manager) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	for id, ch := range m.subs {
		delete(m.subs, id)
		close(ch)
	}
}

// Init resolves the stored credential into an identity.
// Without a credential it settles to unauthenticated without contacting the
// auth service. The returned error is informational: the state has settled
// either way.
func (m *Manager) Init(ctx context.Context) (State, error) {
	return m.resolve(ctx, false)
}

// Refresh drops the cached identity and resolves again.
func (m *Manager) Refresh(ctx context.Context) (State, error) {
	return m.resolve(ctx, true)
}

func (m *Manager) resolve(ctx context.Context, force bool) (State, error) {
	op := "Init"
	if force {
		op = "Refresh"
		m.cache.Invalidate()
	}

	m.mu.Lock()
	gen := m.advance()
	if _, ok := m.store.Get(); !ok {
		m.publish(State{Status: StatusUnauthenticated, Generation: gen})
		s := m.state.clone()
		m.mu.Unlock()
		return s, nil
	}
	m.publish(State{IsResolving: true, Status: StatusResolving, Generation: gen})
	m.mu.Unlock()

	u, err := m.cache.Resolve(ctx)

	m.mu.Lock()
	defer m.mu.Unlock()
	if gen != m.gen {
		m.logger.DebugContext(ctx, "discarding stale session resolution", "generation", gen, "current", m.gen)
		return m.state.clone(), nil
	}
	if err != nil {
		if errors.Is(err, auth.ErrInvalidCredentials) {
			if clearErr := m.store.Clear(); clearErr != nil {
				m.logger.ErrorContext(ctx, "failed to clear rejected credential", "error", clearErr)
			}
			m.cache.Set(nil)
		}
		m.logger.WarnContext(ctx, "session resolution failed", "error", err)
		m.publish(State{Status: StatusUnauthenticated, Generation: gen})
		return m.state.clone(), fmt.Errorf("session.%s: %w", op, err)
	}
	if u == nil {
		m.publish(State{Status: StatusUnauthenticated, Generation: gen})
	} else {
		m.publish(State{Identity: u, Status: StatusAuthenticated, Generation: gen})
	}
	return m.state.clone(), nil
}

// Login authenticates and, on success, moves straight to authenticated.
// On failure the stored credential and identity are cleared and the error
// is returned for display.
func (m *Manager) Login(ctx context.Context, req domain.LoginRequest) (*domain.User, error) {
	gen := m.begin()
	resp, err := m.svc.Authenticate(ctx, req)
	return m.settleAuth(ctx, gen, "Login", resp, err)
}

// Register creates an account and behaves like Login afterwards.
func (m *Manager) Register(ctx context.Context, req domain.SignupRequest) (*domain.User, error) {
	gen := m.begin()
	resp, err := m.svc.Register(ctx, req)
	return m.settleAuth(ctx, gen, "Register", resp, err)
}

func (m *Manager) settleAuth(ctx context.Context, gen uint64, op string, resp *domain.AuthResponse, err error) (*domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if gen != m.gen {
		m.logger.DebugContext(ctx, "discarding stale "+op+" result", "generation", gen, "current", m.gen)
		if err != nil {
			return nil, fmt.Errorf("session.%s: %w", op, err)
		}
		return nil, fmt.Errorf("session.%s: %w", op, ErrSuperseded)
	}

	if err == nil {
		if setErr := m.store.Set(credential.Credential(resp.Credential)); setErr != nil {
			err = setErr
		}
	}
	if err != nil {
		if clearErr := m.store.Clear(); clearErr != nil {
			m.logger.ErrorContext(ctx, "failed to clear credential", "op", op, "error", clearErr)
		}
		m.cache.Set(nil)
		m.publish(State{Status: StatusUnauthenticated, Generation: gen})
		return nil, fmt.Errorf("session.%s: %w", op, err)
	}

	u := resp.User
	m.cache.Set(&u)
	m.publish(State{Identity: &u, Status: StatusAuthenticated, Generation: gen})
	m.logger.InfoContext(ctx, "session established", "op", op, "user_id", u.ID, "role", u.Role)
	return u.Clone(), nil
}

// Logout tears the local session down, then revokes the credential on a
// best-effort basis. Teardown happens in the same step that takes the
// generation, so a later operation can never observe the old credential.
// Revoke failures are logged and never returned.
func (m *Manager) Logout(ctx context.Context) error {
	m.mu.Lock()
	gen := m.advance()
	cred, hasCred := m.store.Get()
	clearErr := m.store.Clear()
	m.cache.Set(nil)
	m.publish(State{Status: StatusUnauthenticated, Generation: gen})
	m.mu.Unlock()

	if hasCred {
		if err := m.svc.Revoke(ctx, cred); err != nil {
			m.logger.WarnContext(ctx, "credential revoke failed; logged out locally", "error", err)
		}
	}
	if clearErr != nil {
		return fmt.Errorf("session.Logout: %w", clearErr)
	}
	m.logger.InfoContext(ctx, "session closed", "generation", gen)
	return nil
}

func (m *Manager) begin() uint64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.advance()
}

// advance must be called with mu held.
func (m *Manager) advance() uint64 {
	m.gen++
	return m.gen
}

// publish must be called with mu held.
func (m *Manager) publish(s State) {
	m.state = s.clone()
	for _, ch := range m.subs {
		select {
		case <-ch:
		default:
		}
		ch <- m.state.clone()
	}
}

func (m *Manager) lookup(ctx context.Context) (*domain.User, error) {
	cred, ok := m.store.Get()
	if !ok {
		return nil, nil
	}
	return m.svc.Resolve(ctx, cred)
}
