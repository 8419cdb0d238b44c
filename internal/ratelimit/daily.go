// Package ratelimit bounds how often a viewer may take a rate-limited action
// per calendar day.
package ratelimit

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// DefaultDirectMessageLimit is the number of unsolicited direct messages a
// viewer may start per day.
const DefaultDirectMessageLimit = 3

// Counter stores per-key usage. Consume must not count a denied attempt.
type Counter interface {
	Consume(ctx context.Context, key string, limit int, ttl time.Duration) (used int, allowed bool, err error)
	Used(ctx context.Context, key string) (int, error)
}

// Decision is the result of one attempt.
type Decision struct {
	Allowed   bool `json:"allowed"`
	Used      int  `json:"used"`
	Limit     int  `json:"limit"`
	Remaining int  `json:"remaining"`
}

// Daily limits an action per user per calendar day in loc. The counter key
// includes the date, so usage rolls over at local midnight.
type Daily struct {
	action  string
	limit   int
	loc     *time.Location
	counter Counter
	now     func() time.Time
}

func NewDaily(action string, limit int, loc *time.Location, counter Counter) *Daily {
	if loc == nil {
		loc = time.UTC
	}
	return &Daily{action: action, limit: limit, loc: loc, counter: counter, now: time.Now}
}

// WithClock replaces the time source.
func (d *Daily) WithClock(now func() time.Time) *Daily {
	d.now = now
	return d
}

// TryConsume uses one unit of userID's allowance for today if any is left.
func (d *Daily) TryConsume(ctx context.Context, userID string) (Decision, error) {
	used, allowed, err := d.counter.Consume(ctx, d.key(userID), d.limit, 48*time.Hour)
	if err != nil {
		return Decision{}, fmt.Errorf("consume %s quota: %w", d.action, err)
	}
	return d.decision(used, allowed), nil
}

// Peek reports today's usage without consuming.
func (d *Daily) Peek(ctx context.Context, userID string) (Decision, error) {
	used, err := d.counter.Used(ctx, d.key(userID))
	if err != nil {
		return Decision{}, fmt.Errorf("read %s quota: %w", d.action, err)
	}
	return d.decision(used, used < d.limit), nil
}

func (d *Daily) decision(used int, allowed bool) Decision {
	remaining := d.limit - used
	if remaining < 0 {
		remaining = 0
	}
	return Decision{Allowed: allowed, Used: used, Limit: d.limit, Remaining: remaining}
}

func (d *Daily) key(userID string) string {
	return "quota:" + d.action + ":" + userID + ":" + d.now().In(d.loc).Format("2006-01-02")
}

type entry struct {
	used int
	exp  time.Time
}

// MemoryCounter is an in-process Counter.
type MemoryCounter struct {
	mu      sync.Mutex
	entries map[string]entry
	now     func() time.Time
}

func NewMemoryCounter() *MemoryCounter {
	return &MemoryCounter{entries: make(map[string]entry), now: time.Now}
}

func (c *MemoryCounter) Consume(_ context.Context, key string, limit int, ttl time.Duration) (int, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	c.sweep(now)
	e, ok := c.entries[key]
	if !ok {
		e = entry{exp: now.Add(ttl)}
	}
	if e.used >= limit {
		return e.used, false, nil
	}
	e.used++
	c.entries[key] = e
	return e.used, true, nil
}

func (c *MemoryCounter) Used(_ context.Context, key string) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[key]
	if !ok {
		return 0, nil
	}
	if c.now().After(e.exp) {
		delete(c.entries, key)
		return 0, nil
	}
	return e.used, nil
}

// sweep drops expired keys; callers hold mu.
func (c *MemoryCounter) sweep(now time.Time) {
	for k, e := range c.entries {
		if now.After(e.exp) {
			delete(c.entries, k)
		}
	}
}
