// Package pending correlates out-of-band player input (reactions,
// free text) with choices the character previously offered. Entries
// are advisory, live only in memory and expire after a short TTL.
package pending

import (
	"sync"
	"time"

	"github.com/jwebster45206/galgame-engine/pkg/parser"
)

// DefaultTTL is how long an offered choice stays correlatable.
const DefaultTTL = 5 * time.Minute

// DefaultMaxEntries bounds the cache; oldest entries are evicted first
// when the cap is reached.
const DefaultMaxEntries = 1024

type Kind string

const (
	KindOption Kind = "option"
	KindEvent  Kind = "event"
)

// Choice is one pending correlation record, keyed by the scope and the
// id of the message that offered it.
type Choice struct {
	Scope           string               `json:"scope"`
	OriginMessageID string               `json:"origin_message_id"`
	UserID          string               `json:"user_id"`
	Kind            Kind                 `json:"kind"`
	Options         []parser.Option      `json:"options,omitempty"`
	Event           *parser.EventOffer   `json:"event,omitempty"`
	EventOptions    []parser.EventOption `json:"event_options,omitempty"`
	CreatedAt       time.Time            `json:"created_at"`
}

// Cache is a bounded in-memory TTL cache for pending choices, safe for
// concurrent use. Expired entries are swept lazily on insert and
// treated as absent on every lookup.
type Cache struct {
	mu      sync.Mutex
	ttl     time.Duration
	max     int
	entries map[string]*Choice
	now     func() time.Time
}

// NewCache creates a cache with the given TTL and entry cap.
// Non-positive arguments fall back to the defaults.
func NewCache(ttl time.Duration, maxEntries int) *Cache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if maxEntries <= 0 {
		maxEntries = DefaultMaxEntries
	}
	return &Cache{
		ttl:     ttl,
		max:     maxEntries,
		entries: make(map[string]*Choice),
		now:     time.Now,
	}
}

func key(scope, originMessageID string) string {
	return scope + "|" + originMessageID
}

// Save stores a pending choice, sweeping expired entries first and
// evicting the oldest entry if the cache is full.
func (c *Cache) Save(choice *Choice) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if choice.CreatedAt.IsZero() {
		choice.CreatedAt = c.now()
	}
	c.sweepLocked()

	if len(c.entries) >= c.max {
		c.evictOldestLocked()
	}
	c.entries[key(choice.Scope, choice.OriginMessageID)] = choice
}

// GetByOrigin returns the pending choice offered by the given message,
// or nil if absent or expired.
func (c *Cache) GetByOrigin(scope, originMessageID string) *Choice {
	c.mu.Lock()
	defer c.mu.Unlock()

	choice, ok := c.entries[key(scope, originMessageID)]
	if !ok || c.expired(choice) {
		return nil
	}
	return choice
}

// FindByUser returns the most recent non-expired pending choice for a
// user within a scope, or nil.
func (c *Cache) FindByUser(scope, userID string) *Choice {
	c.mu.Lock()
	defer c.mu.Unlock()

	var newest *Choice
	for _, choice := range c.entries {
		if choice.Scope != scope || choice.UserID != userID || c.expired(choice) {
			continue
		}
		if newest == nil || choice.CreatedAt.After(newest.CreatedAt) {
			newest = choice
		}
	}
	return newest
}

// Remove deletes a pending choice.
func (c *Cache) Remove(scope, originMessageID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, key(scope, originMessageID))
}

// Sweep removes every expired entry and returns how many were removed.
func (c *Cache) Sweep() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sweepLocked()
}

// Len returns the number of stored entries, expired included.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

func (c *Cache) expired(choice *Choice) bool {
	return c.now().Sub(choice.CreatedAt) > c.ttl
}

func (c *Cache) sweepLocked() int {
	removed := 0
	for k, choice := range c.entries {
		if c.expired(choice) {
			delete(c.entries, k)
			removed++
		}
	}
	return removed
}

func (c *Cache) evictOldestLocked() {
	var oldestKey string
	var oldest time.Time
	for k, choice := range c.entries {
		if oldestKey == "" || choice.CreatedAt.Before(oldest) {
			oldestKey = k
			oldest = choice.CreatedAt
		}
	}
	if oldestKey != "" {
		delete(c.entries, oldestKey)
	}
}
