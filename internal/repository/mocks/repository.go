package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/joshdurbin/dynamic-qr/internal/domain"
)

// QRRepository is a mock implementation of repository.QRRepository
type QRRepository struct {
	mock.Mock
}

// Create persists a new QR code
func (m *QRRepository) Create(ctx context.Context, code *domain.QRCode) error {
	args := m.Called(ctx, code)
	return args.Error(0)
}

// Get retrieves a QR code by its identifier
func (m *QRRepository) Get(ctx context.Context, id string) (*domain.QRCode, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.QRCode), args.Error(1)
}

// GetByToken retrieves a QR code by its public scan token
func (m *QRRepository) GetByToken(ctx context.Context, token string) (*domain.QRCode, error) {
	args := m.Called(ctx, token)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.QRCode), args.Error(1)
}

// List retrieves QR codes matching the filter, newest first
func (m *QRRepository) List(ctx context.Context, filter domain.ListFilter) ([]*domain.QRCode, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.QRCode), args.Error(1)
}

// Update persists the full current state of an existing QR code
func (m *QRRepository) Update(ctx context.Context, code *domain.QRCode) error {
	args := m.Called(ctx, code)
	return args.Error(0)
}

// SaveScan commits the updated code and its scan event atomically
func (m *QRRepository) SaveScan(ctx context.Context, code *domain.QRCode, event *domain.ScanEvent) error {
	args := m.Called(ctx, code, event)
	return args.Error(0)
}

// Close closes the repository connection
func (m *QRRepository) Close() error {
	args := m.Called()
	return args.Error(0)
}
