package session

import (
	"context"
	"sync"

	"golang.org/x/sync/singleflight"

	"github.com/naveenspark/portcullis/pkg/domain"
)

// SessionKey is the single slot the cache holds. There is one current session.
const SessionKey = "auth:me"

// Loader looks up the current identity. A nil user with a nil error means
// confirmed unauthenticated.
type Loader func(ctx context.Context) (*domain.User, error)

// Cache holds the last resolved identity and coalesces concurrent lookups.
// Failed lookups are not cached and are never retried here.
type Cache struct {
	load  Loader
	group singleflight.Group

	mu     sync.Mutex
	user   *domain.User
	cached bool
	epoch  uint64 // bumped by Set and Invalidate
}

// NewCache returns an empty cache that resolves through load.
func NewCache(load Loader) *Cache {
	return &Cache{load: load}
}

// Resolve returns the cached identity, or joins (or starts) the single
// in-flight lookup. The lookup is not canceled when one caller gives up;
// each caller stops waiting when its own ctx is done.
func (c *Cache) Resolve(ctx context.Context) (*domain.User, error) {
	c.mu.Lock()
	if c.cached {
		u := c.user.Clone()
		c.mu.Unlock()
		return u, nil
	}
	epoch := c.epoch
	c.mu.Unlock()

	loadCtx := context.WithoutCancel(ctx)
	ch := c.group.DoChan(SessionKey, func() (any, error) {
		u, err := c.load(loadCtx)
		if err != nil {
			return nil, err
		}
		c.mu.Lock()
		if c.epoch == epoch {
			c.user = u.Clone()
			c.cached = true
		}
		c.mu.Unlock()
		return u, nil
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		u, _ := res.Val.(*domain.User)
		return u.Clone(), nil
	}
}

// Set overwrites the slot. A nil user records a confirmed logout.
// An in-flight lookup that started before Set will not overwrite it.
func (c *Cache) Set(u *domain.User) {
	c.mu.Lock()
	c.user = u.Clone()
	c.cached = true
	c.epoch++
	c.mu.Unlock()
	c.group.Forget(SessionKey)
}

// Invalidate forgets the slot so the next Resolve performs a fresh lookup.
// It never starts a lookup itself. A lookup already in flight is detached:
// callers that joined it still get its result, but the next Resolve starts a
// new lookup rather than joining one that began before the invalidation, and
// the detached result is never stored. At most one lookup per epoch runs.
func (c *Cache) Invalidate() {
	c.mu.Lock()
	c.user = nil
	c.cached = false
	c.epoch++
	c.mu.Unlock()
	c.group.Forget(SessionKey)
}

// Peek returns the cached identity without resolving.
func (c *Cache) Peek() (*domain.User, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.user.Clone(), c.cached
}
