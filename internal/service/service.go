package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/joshdurbin/dynamic-qr/internal/cache"
	"github.com/joshdurbin/dynamic-qr/internal/contact"
	"github.com/joshdurbin/dynamic-qr/internal/domain"
	"github.com/joshdurbin/dynamic-qr/internal/lifecycle"
	"github.com/joshdurbin/dynamic-qr/internal/metrics"
	"github.com/joshdurbin/dynamic-qr/internal/qrimage"
	"github.com/joshdurbin/dynamic-qr/internal/repository"
	"github.com/joshdurbin/dynamic-qr/internal/rules"
	"github.com/joshdurbin/dynamic-qr/internal/token"
	"github.com/joshdurbin/dynamic-qr/internal/version"
)

// qrService implements QRService
type qrService struct {
	repo      repository.QRRepository
	cache     cache.Cache
	generator token.Generator
	baseURL   string
	locks     *keyedMutex
	now       func() time.Time
}

// NewQRService creates a new QR code service. baseURL is the public server
// URL used to build scan URLs for rendered images.
func NewQRService(repo repository.QRRepository, cache cache.Cache, generator token.Generator, baseURL string) QRService {
	return &qrService{
		repo:      repo,
		cache:     cache,
		generator: generator,
		baseURL:   strings.TrimRight(baseURL, "/"),
		locks:     newKeyedMutex(),
		now:       time.Now,
	}
}

// Create registers a new QR code in the created state
func (s *qrService) Create(ctx context.Context, req *domain.CreateRequest) (*domain.QRCode, error) {
	if err := validateRedirectURL(req.DefaultURL); err != nil {
		return nil, err
	}
	if !req.JourneyState.Valid() {
		return nil, fmt.Errorf("%w: unknown journey state %q", domain.ErrValidation, req.JourneyState)
	}
	eventType := req.EventType
	if eventType == "" {
		eventType = domain.EventGeneral
	}
	if !eventType.Valid() {
		return nil, fmt.Errorf("%w: unknown event type %q", domain.ErrValidation, eventType)
	}

	tok, err := s.generator.Generate(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to generate token: %w", err)
	}

	now := s.now().UTC()
	code := &domain.QRCode{
		ID:             uuid.NewString(),
		Token:          tok,
		State:          domain.StateCreated,
		JourneyState:   req.JourneyState,
		EventType:      eventType,
		CampaignID:     req.CampaignID,
		CampaignName:   req.CampaignName,
		DefaultURL:     req.DefaultURL,
		Rules:          req.Rules,
		CurrentVersion: 1,
		Versions:       []domain.Version{version.Initial(req.VersionName, now)},
		CreatedAt:      now,
		ExpiresAt:      req.ExpiresAt,
		Tags:           req.Tags,
		Metadata:       req.Metadata,
	}

	if err := s.repo.Create(ctx, code); err != nil {
		return nil, fmt.Errorf("failed to create qr code: %w", err)
	}

	s.refreshCache(ctx, code)

	return code, nil
}

// Get retrieves a QR code by its identifier
func (s *qrService) Get(ctx context.Context, id string) (*domain.QRCode, error) {
	if code, exists := s.cache.Get(ctx, id); exists {
		return code, nil
	}

	code, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	s.refreshCache(ctx, code)

	return code, nil
}

// List retrieves QR codes matching the filter, newest first
func (s *qrService) List(ctx context.Context, filter domain.ListFilter) ([]*domain.QRCode, error) {
	if filter.State != "" && !filter.State.Valid() {
		return nil, fmt.Errorf("%w: unknown state %q", domain.ErrValidation, filter.State)
	}
	if filter.JourneyState != "" && !filter.JourneyState.Valid() {
		return nil, fmt.Errorf("%w: unknown journey state %q", domain.ErrValidation, filter.JourneyState)
	}
	return s.repo.List(ctx, filter)
}

// Update applies a partial update. A State field overwrites the lifecycle
// state without transition checks; it is the administrative escape hatch and
// does not touch activation or archival timestamps.
func (s *qrService) Update(ctx context.Context, id string, req *domain.UpdateRequest) (*domain.QRCode, error) {
	s.locks.Lock(id)
	defer s.locks.Unlock(id)

	code, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.State != nil {
		if !req.State.Valid() {
			return nil, fmt.Errorf("%w: unknown state %q", domain.ErrValidation, *req.State)
		}
		code.State = *req.State
	}
	if req.JourneyState != nil {
		if !req.JourneyState.Valid() {
			return nil, fmt.Errorf("%w: unknown journey state %q", domain.ErrValidation, *req.JourneyState)
		}
		code.JourneyState = *req.JourneyState
	}
	if req.DefaultURL != nil {
		if err := validateRedirectURL(*req.DefaultURL); err != nil {
			return nil, err
		}
		code.DefaultURL = *req.DefaultURL
	}
	if req.Rules != nil {
		code.Rules = *req.Rules
	}
	if req.ExpiresAt != nil {
		code.ExpiresAt = req.ExpiresAt
	}
	if req.Tags != nil {
		code.Tags = *req.Tags
	}
	if req.Metadata != nil {
		if code.Metadata == nil {
			code.Metadata = make(map[string]string, len(*req.Metadata))
		}
		// Metadata merges key by key rather than replacing wholesale
		for k, v := range *req.Metadata {
			code.Metadata[k] = v
		}
	}

	return s.save(ctx, code)
}

// Activate transitions a created or paused code to active
func (s *qrService) Activate(ctx context.Context, id string) (*domain.QRCode, error) {
	s.locks.Lock(id)
	defer s.locks.Unlock(id)

	code, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if err := lifecycle.Activate(code, s.now().UTC()); err != nil {
		return nil, err
	}

	return s.save(ctx, code)
}

// CreateVersion appends a redirect-configuration version
func (s *qrService) CreateVersion(ctx context.Context, id string, req *domain.VersionCreateRequest) (*domain.QRCode, error) {
	s.locks.Lock(id)
	defer s.locks.Unlock(id)

	code, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.DefaultURL != nil {
		if err := validateRedirectURL(*req.DefaultURL); err != nil {
			return nil, err
		}
	}
	if err := version.Create(code, req, s.now().UTC()); err != nil {
		return nil, err
	}

	return s.save(ctx, code)
}

// ProcessScan resolves one scan of the code behind token.
//
// Resolution reads the contact's history as it was before this scan, so a
// visitor's Nth scan is evaluated against N-1 prior scans. Counter updates
// and the scan event are committed atomically.
func (s *qrService) ProcessScan(ctx context.Context, tok string, req *domain.ScanRequest) (destination string, event *domain.ScanEvent, err error) {
	start := s.now()
	defer func() {
		metrics.ScanDuration.Observe(time.Since(start).Seconds())
		metrics.ScansTotal.WithLabelValues(scanOutcome(err)).Inc()
	}()

	if req == nil {
		req = &domain.ScanRequest{}
	}

	id, err := s.resolveToken(ctx, tok)
	if err != nil {
		return "", nil, err
	}

	s.locks.Lock(id)
	defer s.locks.Unlock(id)

	// Re-load inside the lock so concurrent scans see each other's counters
	code, err := s.repo.Get(ctx, id)
	if err != nil {
		return "", nil, err
	}

	now := s.now().UTC()

	if lifecycle.ExpireIfDue(code, now) {
		if _, saveErr := s.save(ctx, code); saveErr != nil {
			return "", nil, saveErr
		}
		return "", nil, fmt.Errorf("qr code %s: %w", id, domain.ErrExpired)
	}
	if !lifecycle.Scannable(code.State) {
		return "", nil, fmt.Errorf("qr code %s is %s: %w", id, code.State, domain.ErrNotActive)
	}

	destination, matchedRule := rules.Resolve(code, rules.Context{
		Now:       now,
		VisitorID: req.VisitorID,
		UserAgent: req.UserAgent,
		Location:  req.Location,
	})
	metrics.RuleMatchesTotal.WithLabelValues(matchedKind(matchedRule)).Inc()

	// Uniqueness is decided before the touch so the first scan counts
	if req.VisitorID != "" {
		seen := contact.Seen(code, req.VisitorID)
		contact.Touch(code, req.VisitorID, now)
		if !seen {
			code.UniqueContacts++
		}
	}
	code.TotalScans++
	code.LastScannedAt = &now

	event = &domain.ScanEvent{
		ID:             uuid.NewString(),
		QRID:           code.ID,
		ScannedAt:      now,
		VisitorID:      req.VisitorID,
		UserAgent:      req.UserAgent,
		IPAddress:      req.IPAddress,
		Location:       req.Location,
		Referrer:       req.Referrer,
		DestinationURL: destination,
		MatchedRule:    matchedRule,
		DeviceType:     req.DeviceType,
		SessionID:      req.SessionID,
	}

	if err := s.repo.SaveScan(ctx, code, event); err != nil {
		return "", nil, fmt.Errorf("failed to record scan: %w", err)
	}

	s.refreshCache(ctx, code)

	return destination, event, nil
}

// Analytics returns the per-code analytics payload
func (s *qrService) Analytics(ctx context.Context, id string) (*domain.Analytics, error) {
	code, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	a := &domain.Analytics{
		QRID:           code.ID,
		Token:          code.Token,
		State:          code.State,
		JourneyState:   code.JourneyState,
		TotalScans:     code.TotalScans,
		UniqueContacts: code.UniqueContacts,
		LastScannedAt:  code.LastScannedAt,
		CreatedAt:      code.CreatedAt,
		ActivatedAt:    code.ActivatedAt,
		CampaignName:   code.CampaignName,
		ContactBreakdown: domain.ContactBreakdown{
			Total:     len(code.Contacts),
			Returning: contact.Returning(code),
		},
	}
	if current := code.Current(); current != nil {
		a.CurrentVersion = domain.VersionSummary{
			Name:     current.Name,
			Sequence: current.Sequence,
		}
	}

	return a, nil
}

// CampaignAnalytics aggregates scan totals across a campaign's codes
func (s *qrService) CampaignAnalytics(ctx context.Context, campaignID string) (*domain.CampaignAnalytics, error) {
	codes, err := s.repo.List(ctx, domain.ListFilter{CampaignID: campaignID})
	if err != nil {
		return nil, err
	}
	if len(codes) == 0 {
		return nil, fmt.Errorf("campaign %s: %w", campaignID, domain.ErrNotFound)
	}

	result := &domain.CampaignAnalytics{
		CampaignID:  campaignID,
		QRCodeCount: len(codes),
		Codes:       make([]domain.CampaignCodeStats, 0, len(codes)),
	}
	for _, code := range codes {
		result.TotalScans += code.TotalScans
		result.UniqueContacts += code.UniqueContacts
		result.Codes = append(result.Codes, domain.CampaignCodeStats{
			QRID:           code.ID,
			Token:          code.Token,
			State:          code.State,
			Scans:          code.TotalScans,
			UniqueContacts: code.UniqueContacts,
		})
	}

	return result, nil
}

// Image renders the code's scan URL as a PNG image
func (s *qrService) Image(ctx context.Context, id string, size int) ([]byte, error) {
	code, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	return qrimage.Render(s.baseURL+"/r/"+code.Token, size)
}

// Close closes the service and its dependencies
func (s *qrService) Close() error {
	if err := s.generator.Close(); err != nil {
		return fmt.Errorf("failed to close generator: %w", err)
	}
	if err := s.cache.Close(); err != nil {
		return fmt.Errorf("failed to close cache: %w", err)
	}
	if err := s.repo.Close(); err != nil {
		return fmt.Errorf("failed to close repository: %w", err)
	}
	return nil
}

// save persists the code and refreshes the cache entry
func (s *qrService) save(ctx context.Context, code *domain.QRCode) (*domain.QRCode, error) {
	if err := s.repo.Update(ctx, code); err != nil {
		return nil, fmt.Errorf("failed to update qr code %s: %w", code.ID, err)
	}
	s.refreshCache(ctx, code)
	return code, nil
}

// refreshCache replaces the cached entry after a read or write. A failed
// refresh invalidates the entry so readers fall back to the repository
// instead of serving a stale copy.
func (s *qrService) refreshCache(ctx context.Context, code *domain.QRCode) {
	if err := s.cache.Set(ctx, code); err != nil {
		log.Printf("[WARN] Failed to cache qr code %s: %v", code.ID, err)
		if err := s.cache.Invalidate(ctx, code.ID, code.Token); err != nil {
			log.Printf("[WARN] Failed to invalidate qr code %s: %v", code.ID, err)
		}
	}
}

// resolveToken maps a scan token to a code id, trying the cache first
func (s *qrService) resolveToken(ctx context.Context, tok string) (string, error) {
	if code, exists := s.cache.GetByToken(ctx, tok); exists {
		metrics.CacheLookupsTotal.WithLabelValues("hit").Inc()
		return code.ID, nil
	}
	metrics.CacheLookupsTotal.WithLabelValues("miss").Inc()

	code, err := s.repo.GetByToken(ctx, tok)
	if err != nil {
		return "", err
	}
	return code.ID, nil
}

func validateRedirectURL(raw string) error {
	parsed, err := url.ParseRequestURI(raw)
	if err != nil {
		return fmt.Errorf("%w: invalid redirect URL: %v", domain.ErrValidation, err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return fmt.Errorf("%w: only HTTP and HTTPS redirect URLs are supported", domain.ErrValidation)
	}
	return nil
}

// matchedKind extracts the condition kind from a rule descriptor
func matchedKind(descriptor string) string {
	if descriptor == "" {
		return "default"
	}
	if idx := strings.IndexByte(descriptor, ':'); idx > 0 {
		return descriptor[:idx]
	}
	return descriptor
}

func scanOutcome(err error) string {
	switch {
	case err == nil:
		return metrics.OutcomeResolved
	case errors.Is(err, domain.ErrNotFound):
		return metrics.OutcomeNotFound
	case errors.Is(err, domain.ErrNotActive):
		return metrics.OutcomeNotActive
	case errors.Is(err, domain.ErrExpired):
		return metrics.OutcomeExpired
	default:
		return metrics.OutcomeError
	}
}

// Ensure qrService implements QRService interface
var _ QRService = (*qrService)(nil)
