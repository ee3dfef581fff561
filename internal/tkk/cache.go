package tkk

import (
	"context"
	"sync"
	"time"

	"github.com/book-expert/translate-tts-service/internal/token"
)

// CachedSupplier keeps the last fetched key pair for a fixed TTL. A TTL of
// zero disables caching so every call goes to the wrapped supplier.
type CachedSupplier struct {
	next Supplier
	ttl  time.Duration
	now  func() time.Time

	mu        sync.RWMutex
	pair      token.KeyPair
	fetchedAt time.Time
	valid     bool
}

// NewCachedSupplier wraps next with a TTL cache.
func NewCachedSupplier(next Supplier, ttl time.Duration) *CachedSupplier {
	return &CachedSupplier{
		next: next,
		ttl:  ttl,
		now:  time.Now,
	}
}

// WithClock replaces the time source; intended for tests.
func (c *CachedSupplier) WithClock(now func() time.Time) *CachedSupplier {
	c.now = now

	return c
}

// FetchKeyPair returns the cached pair while it is fresh, otherwise fetches a
// new one. Failed fetches are not cached.
func (c *CachedSupplier) FetchKeyPair(ctx context.Context) (token.KeyPair, error) {
	if c.ttl <= 0 {
		return c.next.FetchKeyPair(ctx)
	}

	if pair, ok := c.cached(); ok {
		return pair, nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	// Another caller may have refreshed while we waited for the lock.
	if c.valid && c.now().Sub(c.fetchedAt) < c.ttl {
		return c.pair, nil
	}

	pair, err := c.next.FetchKeyPair(ctx)
	if err != nil {
		return token.KeyPair{}, err
	}

	c.pair = pair
	c.fetchedAt = c.now()
	c.valid = true

	return pair, nil
}

// Invalidate drops the cached pair, e.g. after the service rejects a token.
func (c *CachedSupplier) Invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.valid = false
}

func (c *CachedSupplier) cached() (token.KeyPair, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if !c.valid || c.now().Sub(c.fetchedAt) >= c.ttl {
		return token.KeyPair{}, false
	}

	return c.pair, true
}
