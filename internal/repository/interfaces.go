package repository

import (
	"context"

	"github.com/joshdurbin/dynamic-qr/internal/domain"
)

// QRRepository defines the interface for QR code persistence. It is the
// source of truth; any cache sits explicitly in front of it and never
// substitutes for it.
type QRRepository interface {
	// Create persists a new QR code
	Create(ctx context.Context, code *domain.QRCode) error

	// Get retrieves a QR code by its identifier
	Get(ctx context.Context, id string) (*domain.QRCode, error)

	// GetByToken retrieves a QR code by its public scan token
	GetByToken(ctx context.Context, token string) (*domain.QRCode, error)

	// List retrieves QR codes matching the filter, newest first
	List(ctx context.Context, filter domain.ListFilter) ([]*domain.QRCode, error)

	// Update persists the full current state of an existing QR code
	Update(ctx context.Context, code *domain.QRCode) error

	// SaveScan commits the updated code and its scan event atomically; a
	// failure of either write fails the whole scan
	SaveScan(ctx context.Context, code *domain.QRCode, event *domain.ScanEvent) error

	// Close closes the repository connection
	Close() error
}
