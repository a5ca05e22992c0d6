package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/joshdurbin/dynamic-qr/internal/cache"
	"github.com/joshdurbin/dynamic-qr/internal/domain"
)

// DefaultTTL is applied when no explicit TTL is given. Entries are
// invalidated explicitly on every write; the TTL only bounds staleness if an
// invalidation is lost.
const DefaultTTL = 5 * time.Minute

// Cache implements cache.Cache backed by Redis. Codes are stored as JSON
// under their id, with a secondary token → id key.
type Cache struct {
	client *redis.Client
	ttl    time.Duration
}

// New creates a Redis-backed cache using the given client
func New(client *redis.Client, ttl time.Duration) *Cache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Cache{
		client: client,
		ttl:    ttl,
	}
}

func idKey(id string) string       { return "qr:id:" + id }
func tokenKey(token string) string { return "qr:token:" + token }

// Get retrieves a cached QR code by its identifier
func (c *Cache) Get(ctx context.Context, id string) (*domain.QRCode, bool) {
	data, err := c.client.Get(ctx, idKey(id)).Bytes()
	if err != nil {
		if err != redis.Nil {
			log.Printf("[ERROR] Redis get for %s: %v", id, err)
		}
		return nil, false
	}

	var code domain.QRCode
	if err := json.Unmarshal(data, &code); err != nil {
		log.Printf("[ERROR] Corrupt cache entry for %s: %v", id, err)
		return nil, false
	}

	return &code, true
}

// GetByToken retrieves a cached QR code by its public scan token
func (c *Cache) GetByToken(ctx context.Context, token string) (*domain.QRCode, bool) {
	id, err := c.client.Get(ctx, tokenKey(token)).Result()
	if err != nil {
		if err != redis.Nil {
			log.Printf("[ERROR] Redis get for token %s: %v", token, err)
		}
		return nil, false
	}

	return c.Get(ctx, id)
}

// Set stores a QR code under both its identifier and token
func (c *Cache) Set(ctx context.Context, code *domain.QRCode) error {
	data, err := json.Marshal(code)
	if err != nil {
		return fmt.Errorf("failed to marshal qr code: %w", err)
	}

	pipe := c.client.TxPipeline()
	pipe.Set(ctx, idKey(code.ID), data, c.ttl)
	pipe.Set(ctx, tokenKey(code.Token), code.ID, c.ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to cache qr code %s: %w", code.ID, err)
	}

	return nil
}

// Invalidate removes the entries for the given identifier and token
func (c *Cache) Invalidate(ctx context.Context, id, token string) error {
	if err := c.client.Del(ctx, idKey(id), tokenKey(token)).Err(); err != nil {
		return fmt.Errorf("failed to invalidate qr code %s: %w", id, err)
	}
	return nil
}

// Close closes the underlying Redis connection
func (c *Cache) Close() error {
	return c.client.Close()
}

// Ensure Cache implements the interface
var _ cache.Cache = (*Cache)(nil)
