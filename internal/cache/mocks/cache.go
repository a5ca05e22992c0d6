package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/joshdurbin/dynamic-qr/internal/domain"
)

// Cache is a mock implementation of cache.Cache
type Cache struct {
	mock.Mock
}

// Get retrieves a cached QR code by its identifier
func (m *Cache) Get(ctx context.Context, id string) (*domain.QRCode, bool) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Bool(1)
	}
	return args.Get(0).(*domain.QRCode), args.Bool(1)
}

// GetByToken retrieves a cached QR code by its public scan token
func (m *Cache) GetByToken(ctx context.Context, token string) (*domain.QRCode, bool) {
	args := m.Called(ctx, token)
	if args.Get(0) == nil {
		return nil, args.Bool(1)
	}
	return args.Get(0).(*domain.QRCode), args.Bool(1)
}

// Set stores a QR code under both its identifier and token
func (m *Cache) Set(ctx context.Context, code *domain.QRCode) error {
	args := m.Called(ctx, code)
	return args.Error(0)
}

// Invalidate removes the entries for the given identifier and token
func (m *Cache) Invalidate(ctx context.Context, id, token string) error {
	args := m.Called(ctx, id, token)
	return args.Error(0)
}

// Close closes the cache connection
func (m *Cache) Close() error {
	args := m.Called()
	return args.Error(0)
}
