// Package ratecache is a process-local, time-boxed store keyed by currency code.
//
// Keys are normalized (trimmed, uppercased) so "eur" and "EUR" share an entry.
// A lookup that finds a stale entry evicts it and reports a miss; there is no
// background sweep unless the owner calls ClearExpired.
package ratecache

import (
	"strings"
	"sync"
	"time"
)

// Entry is a cached value with the instant it was stored.
type Entry[T any] struct {
	Data      T
	Timestamp time.Time
}

type Cache[T any] struct {
	mu      sync.Mutex
	entries map[string]Entry[T]
	ttl     time.Duration
	now     func() time.Time
	clone   func(T) T
}

type Option[T any] func(*Cache[T])

// WithClock replaces time.Now.
func WithClock[T any](now func() time.Time) Option[T] {
	return func(c *Cache[T]) {
		c.now = now
	}
}

// WithClone sets a copy function applied on Store and on Lookup, so callers
// never share memory with a cached entry.
func WithClone[T any](clone func(T) T) Option[T] {
	return func(c *Cache[T]) {
		c.clone = clone
	}
}

func New[T any](ttl time.Duration, opts ...Option[T]) *Cache[T] {
	c := &Cache[T]{
		entries: make(map[string]Entry[T]),
		ttl:     ttl,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// NormalizeKey returns the canonical cache key for a currency code.
func NormalizeKey(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// Lookup returns the value stored for code if it is younger than the TTL.
// A stale entry is deleted.
func (c *Cache[T]) Lookup(code string) (T, bool) {
	var zero T
	key := NormalizeKey(code)

	c.mu.Lock()
	defer c.mu.Unlock()

	entry, found := c.entries[key]
	if !found {
		return zero, false
	}

	if !c.fresh(entry) {
		delete(c.entries, key)
		return zero, false
	}

	return c.copy(entry.Data), true
}

// Store overwrites any previous entry for code.
func (c *Cache[T]) Store(code string, value T) {
	key := NormalizeKey(code)

	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries[key] = Entry[T]{
		Data:      c.copy(value),
		Timestamp: c.now(),
	}
}

func (c *Cache[T]) Delete(code string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	delete(c.entries, NormalizeKey(code))
}

// ClearExpired removes every stale entry and returns how many were dropped.
func (c *Cache[T]) ClearExpired() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	removed := 0
	for key, entry := range c.entries {
		if !c.fresh(entry) {
			delete(c.entries, key)
			removed++
		}
	}
	return removed
}

// Len counts entries, stale ones included.
func (c *Cache[T]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	return len(c.entries)
}

func (c *Cache[T]) TTL() time.Duration {
	return c.ttl
}

func (c *Cache[T]) fresh(entry Entry[T]) bool {
	return c.now().Sub(entry.Timestamp) < c.ttl
}

func (c *Cache[T]) copy(value T) T {
	if c.clone == nil {
		return value
	}
	return c.clone(value)
}
