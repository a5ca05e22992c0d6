package memory

import (
	"context"
	"sync"

	"github.com/joshdurbin/dynamic-qr/internal/cache"
	"github.com/joshdurbin/dynamic-qr/internal/domain"
)

// DefaultMaxEntries bounds the cache when no explicit limit is given.
const DefaultMaxEntries = 1024

// Cache implements cache.Cache using bounded in-memory storage. When the
// bound is reached the oldest entry is evicted (insertion order).
type Cache struct {
	mutex      sync.RWMutex
	data       map[string]*domain.QRCode
	tokenIndex map[string]string
	order      []string
	maxEntries int
}

// New creates a new in-memory cache holding at most maxEntries codes.
// A non-positive limit falls back to DefaultMaxEntries.
func New(maxEntries int) *Cache {
	if maxEntries <= 0 {
		maxEntries = DefaultMaxEntries
	}
	return &Cache{
		data:       make(map[string]*domain.QRCode),
		tokenIndex: make(map[string]string),
		maxEntries: maxEntries,
	}
}

// Get retrieves a cached QR code by its identifier
func (c *Cache) Get(ctx context.Context, id string) (*domain.QRCode, bool) {
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	code, exists := c.data[id]
	if !exists {
		return nil, false
	}

	// Return a copy to prevent external modification
	return code.Clone(), true
}

// GetByToken retrieves a cached QR code by its public scan token
func (c *Cache) GetByToken(ctx context.Context, token string) (*domain.QRCode, bool) {
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	id, exists := c.tokenIndex[token]
	if !exists {
		return nil, false
	}
	code, exists := c.data[id]
	if !exists {
		return nil, false
	}

	return code.Clone(), true
}

// Set stores a QR code under both its identifier and token
func (c *Cache) Set(ctx context.Context, code *domain.QRCode) error {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	if _, exists := c.data[code.ID]; !exists {
		c.evictIfFull()
		c.order = append(c.order, code.ID)
	}

	// Store a copy to prevent external modification
	c.data[code.ID] = code.Clone()
	c.tokenIndex[code.Token] = code.ID

	return nil
}

// Invalidate removes the entries for the given identifier and token
func (c *Cache) Invalidate(ctx context.Context, id, token string) error {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	c.remove(id)
	delete(c.tokenIndex, token)
	return nil
}

// Close releases the cache contents
func (c *Cache) Close() error {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	c.data = make(map[string]*domain.QRCode)
	c.tokenIndex = make(map[string]string)
	c.order = nil
	return nil
}

// evictIfFull drops the oldest entry when the bound is reached.
// Caller must hold the write lock.
func (c *Cache) evictIfFull() {
	for len(c.data) >= c.maxEntries && len(c.order) > 0 {
		oldest := c.order[0]
		if code, exists := c.data[oldest]; exists {
			delete(c.tokenIndex, code.Token)
			delete(c.data, oldest)
		}
		c.order = c.order[1:]
	}
}

// remove drops one id from the data map and insertion order.
// Caller must hold the write lock.
func (c *Cache) remove(id string) {
	if _, exists := c.data[id]; !exists {
		return
	}
	delete(c.data, id)
	for i, queued := range c.order {
		if queued == id {
			c.order = append(c.order[:i], c.order[i+1:]...)
			break
		}
	}
}

// Ensure Cache implements the interface
var _ cache.Cache = (*Cache)(nil)
