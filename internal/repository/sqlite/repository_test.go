package sqlite

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joshdurbin/dynamic-qr/internal/domain"
)

func TestRepository_New(t *testing.T) {
	dbPath := createTempDB(t)
	defer os.Remove(dbPath)

	repo, err := New(dbPath)
	require.NoError(t, err)
	assert.NotNil(t, repo)
	assert.NotNil(t, repo.db)

	// Verify database connection is working
	err = repo.db.Ping()
	assert.NoError(t, err)

	err = repo.Close()
	assert.NoError(t, err)
}

func TestRepository_New_InvalidPath(t *testing.T) {
	repo, err := New("/invalid/path/to/database.db")
	assert.Error(t, err)
	assert.Nil(t, repo)
}

func TestRepository_CreateAndGet(t *testing.T) {
	repo := setupTestRepo(t)

	ctx := context.Background()
	code := fixtureCode("qr-1", "fq-aaaa1111")

	require.NoError(t, repo.Create(ctx, code))

	retrieved, err := repo.Get(ctx, "qr-1")
	require.NoError(t, err)
	assert.Equal(t, code.ID, retrieved.ID)
	assert.Equal(t, code.Token, retrieved.Token)
	assert.Equal(t, domain.StateCreated, retrieved.State)
	assert.Equal(t, domain.JourneyLeadCapture, retrieved.JourneyState)
	assert.Equal(t, code.DefaultURL, retrieved.DefaultURL)
	assert.WithinDuration(t, code.CreatedAt, retrieved.CreatedAt, time.Second)
	assert.Equal(t, 1, retrieved.CurrentVersion)
	require.Len(t, retrieved.Versions, 1)
	assert.Equal(t, "Initial Version", retrieved.Versions[0].Name)
	assert.Nil(t, retrieved.LastScannedAt)
}

func TestRepository_CreateDuplicateToken(t *testing.T) {
	repo := setupTestRepo(t)
	ctx := context.Background()

	require.NoError(t, repo.Create(ctx, fixtureCode("qr-1", "fq-aaaa1111")))

	err := repo.Create(ctx, fixtureCode("qr-2", "fq-aaaa1111"))
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "failed to create qr code")
}

func TestRepository_RulesRoundTrip(t *testing.T) {
	repo := setupTestRepo(t)
	ctx := context.Background()

	code := fixtureCode("qr-1", "fq-aaaa1111")
	code.Rules = []domain.RedirectRule{
		{Condition: domain.TimeCondition("09:00", "17:00"), URL: "https://example.com/day", Priority: 3},
		{Condition: domain.HistoryCondition(2), URL: "https://example.com/returning", Priority: 2},
		{Condition: domain.EventCondition("webinar"), URL: "https://example.com/webinar", Priority: 1},
		{Condition: domain.DeviceCondition("mobile"), URL: "https://example.com/m", Priority: 0},
		{Condition: domain.LocationCondition(map[string]string{"country": "US"}), URL: "https://example.com/us", Priority: 0},
	}
	require.NoError(t, repo.Create(ctx, code))

	retrieved, err := repo.Get(ctx, "qr-1")
	require.NoError(t, err)
	require.Len(t, retrieved.Rules, 5)

	assert.Equal(t, domain.ConditionTime, retrieved.Rules[0].Condition.Kind)
	require.NotNil(t, retrieved.Rules[0].Condition.Window)
	assert.Equal(t, "09:00", retrieved.Rules[0].Condition.Window.Start)

	require.NotNil(t, retrieved.Rules[1].Condition.MinScans)
	assert.Equal(t, 2, *retrieved.Rules[1].Condition.MinScans)

	require.NotNil(t, retrieved.Rules[2].Condition.Match)
	assert.Equal(t, "webinar", *retrieved.Rules[2].Condition.Match)

	assert.Equal(t, map[string]string{"country": "US"}, retrieved.Rules[4].Condition.Locations)
}

func TestRepository_UnknownRuleKindRoundTrips(t *testing.T) {
	repo := setupTestRepo(t)
	ctx := context.Background()

	code := fixtureCode("qr-1", "fq-aaaa1111")
	code.Rules = []domain.RedirectRule{
		{Condition: domain.Condition{Kind: "weather"}, URL: "https://example.com/rain", Priority: 9},
	}
	require.NoError(t, repo.Create(ctx, code))

	retrieved, err := repo.Get(ctx, "qr-1")
	require.NoError(t, err)
	require.Len(t, retrieved.Rules, 1)
	assert.Equal(t, domain.ConditionKind("weather"), retrieved.Rules[0].Condition.Kind)
	assert.Equal(t, "https://example.com/rain", retrieved.Rules[0].URL)
}

func TestRepository_GetByToken(t *testing.T) {
	repo := setupTestRepo(t)
	ctx := context.Background()

	require.NoError(t, repo.Create(ctx, fixtureCode("qr-1", "fq-aaaa1111")))

	retrieved, err := repo.GetByToken(ctx, "fq-aaaa1111")
	require.NoError(t, err)
	assert.Equal(t, "qr-1", retrieved.ID)
}

func TestRepository_GetNotFound(t *testing.T) {
	repo := setupTestRepo(t)
	ctx := context.Background()

	_, err := repo.Get(ctx, "missing")
	require.ErrorIs(t, err, domain.ErrNotFound)

	_, err = repo.GetByToken(ctx, "fq-missing")
	require.ErrorIs(t, err, domain.ErrNotFound)
}

func TestRepository_List(t *testing.T) {
	repo := setupTestRepo(t)
	ctx := context.Background()

	a := fixtureCode("qr-1", "fq-aaaa1111")
	a.CampaignID = "camp-1"
	a.CreatedAt = time.Now().UTC().Add(-2 * time.Hour)

	b := fixtureCode("qr-2", "fq-bbbb2222")
	b.CampaignID = "camp-1"
	b.State = domain.StateActive
	b.CreatedAt = time.Now().UTC().Add(-time.Hour)

	c := fixtureCode("qr-3", "fq-cccc3333")
	c.CampaignID = "camp-2"
	c.JourneyState = domain.JourneyNurture

	require.NoError(t, repo.Create(ctx, a))
	require.NoError(t, repo.Create(ctx, b))
	require.NoError(t, repo.Create(ctx, c))

	t.Run("no filter returns newest first", func(t *testing.T) {
		codes, err := repo.List(ctx, domain.ListFilter{})
		require.NoError(t, err)
		require.Len(t, codes, 3)
		assert.Equal(t, "qr-3", codes[0].ID)
		assert.Equal(t, "qr-1", codes[2].ID)
	})

	t.Run("filter by campaign", func(t *testing.T) {
		codes, err := repo.List(ctx, domain.ListFilter{CampaignID: "camp-1"})
		require.NoError(t, err)
		assert.Len(t, codes, 2)
	})

	t.Run("filter by state", func(t *testing.T) {
		codes, err := repo.List(ctx, domain.ListFilter{State: domain.StateActive})
		require.NoError(t, err)
		require.Len(t, codes, 1)
		assert.Equal(t, "qr-2", codes[0].ID)
	})

	t.Run("filter by journey state", func(t *testing.T) {
		codes, err := repo.List(ctx, domain.ListFilter{JourneyState: domain.JourneyNurture})
		require.NoError(t, err)
		require.Len(t, codes, 1)
		assert.Equal(t, "qr-3", codes[0].ID)
	})

	t.Run("limit", func(t *testing.T) {
		codes, err := repo.List(ctx, domain.ListFilter{Limit: 2})
		require.NoError(t, err)
		assert.Len(t, codes, 2)
	})
}

func TestRepository_Update(t *testing.T) {
	repo := setupTestRepo(t)
	ctx := context.Background()

	code := fixtureCode("qr-1", "fq-aaaa1111")
	require.NoError(t, repo.Create(ctx, code))

	now := time.Now().UTC().Truncate(time.Second)
	code.State = domain.StateActive
	code.ActivatedAt = &now
	code.TotalScans = 7
	code.UniqueContacts = 3
	code.Contacts = map[string]*domain.ContactContext{
		"v-1": {VisitorID: "v-1", FirstSeen: now, LastSeen: now, ScanCount: 2},
	}

	require.NoError(t, repo.Update(ctx, code))

	retrieved, err := repo.Get(ctx, "qr-1")
	require.NoError(t, err)
	assert.Equal(t, domain.StateActive, retrieved.State)
	require.NotNil(t, retrieved.ActivatedAt)
	assert.WithinDuration(t, now, *retrieved.ActivatedAt, time.Second)
	assert.Equal(t, 7, retrieved.TotalScans)
	require.Contains(t, retrieved.Contacts, "v-1")
	assert.Equal(t, 2, retrieved.Contacts["v-1"].ScanCount)
}

func TestRepository_UpdateMissing(t *testing.T) {
	repo := setupTestRepo(t)

	err := repo.Update(context.Background(), fixtureCode("ghost", "fq-gggg0000"))
	require.ErrorIs(t, err, domain.ErrNotFound)
}

func TestRepository_SaveScan(t *testing.T) {
	repo := setupTestRepo(t)
	ctx := context.Background()

	code := fixtureCode("qr-1", "fq-aaaa1111")
	code.State = domain.StateActive
	require.NoError(t, repo.Create(ctx, code))

	now := time.Now().UTC().Truncate(time.Second)
	code.TotalScans = 1
	code.LastScannedAt = &now
	event := &domain.ScanEvent{
		ID:             "evt-1",
		QRID:           "qr-1",
		ScannedAt:      now,
		VisitorID:      "v-1",
		UserAgent:      "Mozilla mobile",
		Location:       map[string]string{"country": "US"},
		DestinationURL: "https://example.com/default",
		MatchedRule:    "device:mobile",
	}

	require.NoError(t, repo.SaveScan(ctx, code, event))

	// Both writes must be visible.
	retrieved, err := repo.Get(ctx, "qr-1")
	require.NoError(t, err)
	assert.Equal(t, 1, retrieved.TotalScans)

	var count int
	err = repo.db.QueryRow("SELECT COUNT(*) FROM scan_events WHERE qr_id = ?", "qr-1").Scan(&count)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestRepository_SaveScanMissingCodeRollsBack(t *testing.T) {
	repo := setupTestRepo(t)
	ctx := context.Background()

	code := fixtureCode("ghost", "fq-gggg0000")
	event := &domain.ScanEvent{ID: "evt-1", QRID: "ghost", ScannedAt: time.Now(), DestinationURL: "https://example.com"}

	// Update hits zero rows but the insert would violate the foreign key;
	// either way nothing is committed.
	err := repo.SaveScan(ctx, code, event)
	require.Error(t, err)

	var count int
	err = repo.db.QueryRow("SELECT COUNT(*) FROM scan_events").Scan(&count)
	require.NoError(t, err)
	assert.Equal(t, 0, count)
}

func TestRepository_ContextCancellation(t *testing.T) {
	repo := setupTestRepo(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := repo.Create(ctx, fixtureCode("qr-1", "fq-aaaa1111"))
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "context canceled")
}

// Helper functions

func createTempDB(t *testing.T) string {
	t.Helper()
	file, err := os.CreateTemp("", "test_*.db")
	require.NoError(t, err)
	file.Close()
	return file.Name()
}

func setupTestRepo(t *testing.T) *Repository {
	t.Helper()
	dbPath := createTempDB(t)
	t.Cleanup(func() {
		os.Remove(dbPath)
	})

	repo, err := New(dbPath)
	require.NoError(t, err)
	t.Cleanup(func() {
		repo.Close()
	})

	return repo
}

func fixtureCode(id, token string) *domain.QRCode {
	now := time.Now().UTC().Truncate(time.Second)
	return &domain.QRCode{
		ID:             id,
		Token:          token,
		State:          domain.StateCreated,
		JourneyState:   domain.JourneyLeadCapture,
		EventType:      domain.EventGeneral,
		DefaultURL:     "https://example.com/default",
		CurrentVersion: 1,
		Versions: []domain.Version{
			{Sequence: 1, Name: "Initial Version", Active: true, TrafficShare: 100, CreatedAt: now},
		},
		CreatedAt: now,
	}
}
