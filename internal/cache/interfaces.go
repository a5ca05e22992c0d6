package cache

import (
	"context"

	"github.com/joshdurbin/dynamic-qr/internal/domain"
)

// Cache defines the interface for the read-through QR code cache. The cache
// is an explicit layer in front of the repository, invalidated on every
// write; it never substitutes for missing persistence.
type Cache interface {
	// Get retrieves a cached QR code by its identifier
	Get(ctx context.Context, id string) (*domain.QRCode, bool)

	// GetByToken retrieves a cached QR code by its public scan token
	GetByToken(ctx context.Context, token string) (*domain.QRCode, bool)

	// Set stores a QR code under both its identifier and token
	Set(ctx context.Context, code *domain.QRCode) error

	// Invalidate removes the entries for the given identifier and token
	Invalidate(ctx context.Context, id, token string) error

	// Close closes the cache connection (if applicable)
	Close() error
}
