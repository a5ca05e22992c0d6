package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/joshdurbin/dynamic-qr/internal/domain"
)

// QRService is a mock implementation of service.QRService
type QRService struct {
	mock.Mock
}

// Create registers a new QR code
func (m *QRService) Create(ctx context.Context, req *domain.CreateRequest) (*domain.QRCode, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.QRCode), args.Error(1)
}

// Get retrieves a QR code by its identifier
func (m *QRService) Get(ctx context.Context, id string) (*domain.QRCode, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.QRCode), args.Error(1)
}

// List retrieves QR codes matching the filter
func (m *QRService) List(ctx context.Context, filter domain.ListFilter) ([]*domain.QRCode, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.QRCode), args.Error(1)
}

// Update applies a partial update
func (m *QRService) Update(ctx context.Context, id string, req *domain.UpdateRequest) (*domain.QRCode, error) {
	args := m.Called(ctx, id, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.QRCode), args.Error(1)
}

// Activate transitions a code to active
func (m *QRService) Activate(ctx context.Context, id string) (*domain.QRCode, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.QRCode), args.Error(1)
}

// CreateVersion appends a redirect-configuration version
func (m *QRService) CreateVersion(ctx context.Context, id string, req *domain.VersionCreateRequest) (*domain.QRCode, error) {
	args := m.Called(ctx, id, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.QRCode), args.Error(1)
}

// ProcessScan resolves one scan of the code behind token
func (m *QRService) ProcessScan(ctx context.Context, token string, req *domain.ScanRequest) (string, *domain.ScanEvent, error) {
	args := m.Called(ctx, token, req)
	if args.Get(1) == nil {
		return args.String(0), nil, args.Error(2)
	}
	return args.String(0), args.Get(1).(*domain.ScanEvent), args.Error(2)
}

// Analytics returns the per-code analytics payload
func (m *QRService) Analytics(ctx context.Context, id string) (*domain.Analytics, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Analytics), args.Error(1)
}

// CampaignAnalytics aggregates scan totals across a campaign's codes
func (m *QRService) CampaignAnalytics(ctx context.Context, campaignID string) (*domain.CampaignAnalytics, error) {
	args := m.Called(ctx, campaignID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.CampaignAnalytics), args.Error(1)
}

// Image renders the code's scan URL as a PNG image
func (m *QRService) Image(ctx context.Context, id string, size int) ([]byte, error) {
	args := m.Called(ctx, id, size)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]byte), args.Error(1)
}

// Close closes the service
func (m *QRService) Close() error {
	args := m.Called()
	return args.Error(0)
}
