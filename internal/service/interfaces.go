package service

import (
	"context"

	"github.com/joshdurbin/dynamic-qr/internal/domain"
)

// QRService defines the application-facing operations on QR codes. All
// mutating operations on a single code are serialized; concurrent scans of
// the same code never lose counter updates.
type QRService interface {
	// Create registers a new QR code in the created state
	Create(ctx context.Context, req *domain.CreateRequest) (*domain.QRCode, error)

	// Get retrieves a QR code by its identifier
	Get(ctx context.Context, id string) (*domain.QRCode, error)

	// List retrieves QR codes matching the filter, newest first
	List(ctx context.Context, filter domain.ListFilter) ([]*domain.QRCode, error)

	// Update applies a partial update; a State field overwrites the
	// lifecycle state without transition checks
	Update(ctx context.Context, id string, req *domain.UpdateRequest) (*domain.QRCode, error)

	// Activate transitions a created or paused code to active
	Activate(ctx context.Context, id string) (*domain.QRCode, error)

	// CreateVersion appends a redirect-configuration version and makes it
	// current when its traffic share is positive
	CreateVersion(ctx context.Context, id string, req *domain.VersionCreateRequest) (*domain.QRCode, error)

	// ProcessScan resolves one scan of the code behind token: picks the
	// destination URL, updates scan counters and contact history, and
	// records the scan event
	ProcessScan(ctx context.Context, token string, req *domain.ScanRequest) (string, *domain.ScanEvent, error)

	// Analytics returns the per-code analytics payload
	Analytics(ctx context.Context, id string) (*domain.Analytics, error)

	// CampaignAnalytics aggregates scan totals across a campaign's codes
	CampaignAnalytics(ctx context.Context, campaignID string) (*domain.CampaignAnalytics, error)

	// Image renders the code's scan URL as a PNG image
	Image(ctx context.Context, id string, size int) ([]byte, error)

	// Close closes the service and its dependencies
	Close() error
}
