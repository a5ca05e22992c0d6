package integration

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joshdurbin/dynamic-qr/internal/cache/memory"
	"github.com/joshdurbin/dynamic-qr/internal/domain"
	"github.com/joshdurbin/dynamic-qr/internal/repository/sqlite"
	"github.com/joshdurbin/dynamic-qr/internal/service"
	"github.com/joshdurbin/dynamic-qr/internal/token"
)

func setupService(t *testing.T) service.QRService {
	t.Helper()

	dbPath := fmt.Sprintf("/tmp/test_qr_%d.db", time.Now().UnixNano())
	t.Cleanup(func() { os.Remove(dbPath) })

	repo, err := sqlite.New(dbPath)
	require.NoError(t, err)

	codeCache := memory.New(0)

	generator, err := token.NewUUIDGenerator(token.DefaultConfig())
	require.NoError(t, err)

	qr := service.NewQRService(repo, codeCache, generator, "http://localhost:8080")
	t.Cleanup(func() { qr.Close() })

	return qr
}

func TestIntegration_FullWorkflow(t *testing.T) {
	qr := setupService(t)
	ctx := context.Background()

	// Create a code with conditional rules
	code, err := qr.Create(ctx, &domain.CreateRequest{
		JourneyState: domain.JourneyLeadCapture,
		EventType:    domain.EventWebinar,
		CampaignID:   "camp-1",
		CampaignName: "Spring Launch",
		DefaultURL:   "https://example.com/landing",
		Rules: []domain.RedirectRule{
			{Condition: domain.DeviceCondition("mobile"), URL: "https://example.com/m", Priority: 10},
			{Condition: domain.HistoryCondition(1), URL: "https://example.com/welcome-back", Priority: 20},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, domain.StateCreated, code.State)
	assert.NotEmpty(t, code.Token)

	// Scans are rejected before activation
	_, _, err = qr.ProcessScan(ctx, code.Token, &domain.ScanRequest{VisitorID: "v-1"})
	assert.ErrorIs(t, err, domain.ErrNotActive)

	// Activate
	code, err = qr.Activate(ctx, code.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StateActive, code.State)
	assert.NotNil(t, code.ActivatedAt)

	// First scan from a desktop falls through to the default URL
	dest, event, err := qr.ProcessScan(ctx, code.Token, &domain.ScanRequest{
		VisitorID:  "v-1",
		UserAgent:  "Mozilla/5.0 (Windows NT 10.0) Chrome",
		DeviceType: "desktop",
	})
	require.NoError(t, err)
	assert.Equal(t, "https://example.com/landing", dest)
	assert.Empty(t, event.MatchedRule)

	// Second scan by the same visitor matches the history rule
	dest, event, err = qr.ProcessScan(ctx, code.Token, &domain.ScanRequest{
		VisitorID: "v-1",
		UserAgent: "Mozilla/5.0 (Windows NT 10.0) Chrome",
	})
	require.NoError(t, err)
	assert.Equal(t, "https://example.com/welcome-back", dest)
	assert.Equal(t, "history:scan_count>=1", event.MatchedRule)

	// A new mobile visitor hits the device rule instead
	dest, _, err = qr.ProcessScan(ctx, code.Token, &domain.ScanRequest{
		VisitorID: "v-2",
		UserAgent: "Mozilla/5.0 (iPhone) Mobile Safari",
	})
	require.NoError(t, err)
	assert.Equal(t, "https://example.com/m", dest)

	// Counters survive the round trip through storage
	code, err = qr.Get(ctx, code.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, code.TotalScans)
	assert.Equal(t, 2, code.UniqueContacts)
	assert.Len(t, code.Contacts, 2)
	assert.Equal(t, 2, code.Contacts["v-1"].ScanCount)

	// Analytics reflect the scans
	analytics, err := qr.Analytics(ctx, code.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, analytics.TotalScans)
	assert.Equal(t, domain.ContactBreakdown{Total: 2, Returning: 1}, analytics.ContactBreakdown)

	// Campaign roll-up includes the code
	campaign, err := qr.CampaignAnalytics(ctx, "camp-1")
	require.NoError(t, err)
	assert.Equal(t, 1, campaign.QRCodeCount)
	assert.Equal(t, 3, campaign.TotalScans)
}

func TestIntegration_Versioning(t *testing.T) {
	qr := setupService(t)
	ctx := context.Background()

	code, err := qr.Create(ctx, &domain.CreateRequest{
		JourneyState: domain.JourneyNurture,
		DefaultURL:   "https://example.com/v1",
	})
	require.NoError(t, err)

	_, err = qr.Activate(ctx, code.ID)
	require.NoError(t, err)

	// Promote a second version with a new destination
	newURL := "https://example.com/v2"
	code, err = qr.CreateVersion(ctx, code.ID, &domain.VersionCreateRequest{
		Name:       "Refresh",
		DefaultURL: &newURL,
	})
	require.NoError(t, err)
	assert.Equal(t, 2, code.CurrentVersion)
	require.Len(t, code.Versions, 2)
	assert.False(t, code.Versions[0].Active)
	assert.True(t, code.Versions[1].Active)

	// Scans now resolve against the new configuration
	dest, _, err := qr.ProcessScan(ctx, code.Token, nil)
	require.NoError(t, err)
	assert.Equal(t, "https://example.com/v2", dest)
}

func TestIntegration_Expiration(t *testing.T) {
	qr := setupService(t)
	ctx := context.Background()

	expiry := time.Now().UTC().Add(50 * time.Millisecond)
	code, err := qr.Create(ctx, &domain.CreateRequest{
		JourneyState: domain.JourneyEventCheckin,
		DefaultURL:   "https://example.com/event",
		ExpiresAt:    &expiry,
	})
	require.NoError(t, err)

	_, err = qr.Activate(ctx, code.ID)
	require.NoError(t, err)

	// Works while the deadline is in the future
	_, _, err = qr.ProcessScan(ctx, code.Token, nil)
	require.NoError(t, err)

	time.Sleep(100 * time.Millisecond)

	// The deadline passing flips the code to expired at scan time
	_, _, err = qr.ProcessScan(ctx, code.Token, nil)
	assert.ErrorIs(t, err, domain.ErrExpired)

	code, err = qr.Get(ctx, code.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StateExpired, code.State)

	// Once stored as expired, further scans fail the active-state gate
	_, _, err = qr.ProcessScan(ctx, code.Token, nil)
	assert.ErrorIs(t, err, domain.ErrNotActive)

	// The unguarded update path can resurrect it
	active := domain.StateActive
	code, err = qr.Update(ctx, code.ID, &domain.UpdateRequest{
		State:     &active,
		ExpiresAt: timePtr(time.Now().UTC().Add(time.Hour)),
	})
	require.NoError(t, err)
	assert.Equal(t, domain.StateActive, code.State)

	_, _, err = qr.ProcessScan(ctx, code.Token, nil)
	assert.NoError(t, err)
}

func TestIntegration_ScanEndpoint(t *testing.T) {
	qr := setupService(t)
	ctx := context.Background()

	code, err := qr.Create(ctx, &domain.CreateRequest{
		JourneyState: domain.JourneyLeadCapture,
		DefaultURL:   "https://example.com/landing",
	})
	require.NoError(t, err)
	_, err = qr.Activate(ctx, code.ID)
	require.NoError(t, err)

	// Resolve a scan the way the HTTP layer does, twice, to check cookies
	// would keep identifying the same visitor
	dest1, ev1, err := qr.ProcessScan(ctx, code.Token, &domain.ScanRequest{VisitorID: "cookie-visitor"})
	require.NoError(t, err)
	dest2, ev2, err := qr.ProcessScan(ctx, code.Token, &domain.ScanRequest{VisitorID: "cookie-visitor"})
	require.NoError(t, err)

	assert.Equal(t, dest1, dest2)
	assert.NotEqual(t, ev1.ID, ev2.ID)

	code, err = qr.Get(ctx, code.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, code.TotalScans)
	assert.Equal(t, 1, code.UniqueContacts)
}

func TestIntegration_ImageRendering(t *testing.T) {
	qr := setupService(t)
	ctx := context.Background()

	code, err := qr.Create(ctx, &domain.CreateRequest{
		JourneyState: domain.JourneyLeadCapture,
		DefaultURL:   "https://example.com",
	})
	require.NoError(t, err)

	png, err := qr.Image(ctx, code.ID, 256)
	require.NoError(t, err)
	assert.NotEmpty(t, png)

	// Serve it the way the handler does and check the content type sniffs as PNG
	rec := httptest.NewRecorder()
	rec.Write(png)
	assert.Equal(t, "image/png", http.DetectContentType(rec.Body.Bytes()))
}

func timePtr(t time.Time) *time.Time { return &t }
