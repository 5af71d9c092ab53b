// Package memory is a process-local cache used when Redis is not configured
// and in tests.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/arunvm123/carrental/cache"
	"github.com/arunvm123/carrental/model"
)

type entry struct {
	status    *model.BookingStatusUpdate
	expiresAt time.Time
}

type MemoryCache struct {
	mu     sync.Mutex
	now    func() time.Time
	status map[string]entry
	claims map[string]time.Time
}

var _ cache.CacheRepository = (*MemoryCache)(nil)

func NewMemoryCache() *MemoryCache {
	return &MemoryCache{
		now:    time.Now,
		status: make(map[string]entry),
		claims: make(map[string]time.Time),
	}
}

func (c *MemoryCache) GetBookingStatus(ctx context.Context, bookingID string) (*model.BookingStatusUpdate, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.status[bookingID]
	if !ok || c.expired(e.expiresAt) {
		return nil, nil
	}
	s := *e.status
	return &s, nil
}

func (c *MemoryCache) SetBookingStatus(ctx context.Context, bookingID string, status *model.BookingStatusUpdate, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if e, ok := c.status[bookingID]; ok && !c.expired(e.expiresAt) && !status.Supersedes(e.status) {
		return nil
	}
	s := *status
	c.status[bookingID] = entry{status: &s, expiresAt: c.deadline(ttl)}
	return nil
}

func (c *MemoryCache) InvalidateBookingStatus(ctx context.Context, bookingID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.status, bookingID)
	return nil
}

func (c *MemoryCache) ClaimPaymentEvent(ctx context.Context, eventID string, ttl time.Duration) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if exp, ok := c.claims[eventID]; ok && !c.expired(exp) {
		return false, nil
	}
	c.claims[eventID] = c.deadline(ttl)
	return true, nil
}

func (c *MemoryCache) ReleasePaymentEvent(ctx context.Context, eventID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.claims, eventID)
	return nil
}

func (c *MemoryCache) Ping(ctx context.Context) error {
	return ctx.Err()
}

// deadline of zero means no expiry.
func (c *MemoryCache) deadline(ttl time.Duration) time.Time {
	if ttl <= 0 {
		return time.Time{}
	}
	return c.now().Add(ttl)
}

func (c *MemoryCache) expired(deadline time.Time) bool {
	return !deadline.IsZero() && !c.now().Before(deadline)
}
