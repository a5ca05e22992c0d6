package rules

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/joshdurbin/dynamic-qr/internal/domain"
)

func testCode(rules ...domain.RedirectRule) *domain.QRCode {
	return &domain.QRCode{
		ID:         "qr-1",
		Token:      "fq-abc12345",
		State:      domain.StateActive,
		EventType:  domain.EventWebinar,
		DefaultURL: "https://example.com/default",
		Rules:      rules,
		Contacts:   make(map[string]*domain.ContactContext),
	}
}

func TestResolve_PriorityOrder(t *testing.T) {
	code := testCode(
		domain.RedirectRule{Condition: domain.EventCondition("webinar"), URL: "https://example.com/a", Priority: 5},
		domain.RedirectRule{Condition: domain.DeviceCondition("mobile"), URL: "https://example.com/b", Priority: 1},
	)

	tests := []struct {
		name           string
		eventType      domain.EventType
		userAgent      string
		wantURL        string
		wantDescriptor string
	}{
		{
			name:           "higher priority wins when both match",
			eventType:      domain.EventWebinar,
			userAgent:      "Mozilla mobile",
			wantURL:        "https://example.com/a",
			wantDescriptor: "event:webinar",
		},
		{
			name:           "lower priority matches when higher does not",
			eventType:      domain.EventConference,
			userAgent:      "Mozilla mobile",
			wantURL:        "https://example.com/b",
			wantDescriptor: "device:mobile",
		},
		{
			name:           "default when nothing matches",
			eventType:      domain.EventConference,
			userAgent:      "Mozilla desktop",
			wantURL:        "https://example.com/default",
			wantDescriptor: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code.EventType = tt.eventType
			url, descriptor := Resolve(code, Context{
				Now:       time.Now(),
				UserAgent: tt.userAgent,
			})

			assert.Equal(t, tt.wantURL, url)
			assert.Equal(t, tt.wantDescriptor, descriptor)
		})
	}
}

func TestResolve_StableTieBreak(t *testing.T) {
	code := testCode(
		domain.RedirectRule{Condition: domain.DeviceCondition("mozilla"), URL: "https://example.com/first", Priority: 3},
		domain.RedirectRule{Condition: domain.DeviceCondition("mozilla"), URL: "https://example.com/second", Priority: 3},
	)

	// Same inputs must pick the same rule on every evaluation.
	for i := 0; i < 10; i++ {
		url, _ := Resolve(code, Context{Now: time.Now(), UserAgent: "Mozilla/5.0"})
		assert.Equal(t, "https://example.com/first", url)
	}
}

func TestResolve_IsPure(t *testing.T) {
	code := testCode(
		domain.RedirectRule{Condition: domain.DeviceCondition("mobile"), URL: "https://example.com/m", Priority: 2},
		domain.RedirectRule{Condition: domain.EventCondition("webinar"), URL: "https://example.com/w", Priority: 9},
	)
	sc := Context{Now: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC), UserAgent: "mobile"}

	firstURL, firstMatch := Resolve(code, sc)
	for i := 0; i < 5; i++ {
		url, match := Resolve(code, sc)
		assert.Equal(t, firstURL, url)
		assert.Equal(t, firstMatch, match)
	}

	// Rule order on the code must be untouched by the engine's sorting.
	assert.Equal(t, 2, code.Rules[0].Priority)
	assert.Equal(t, 9, code.Rules[1].Priority)
}

func TestResolve_TimeCondition(t *testing.T) {
	tests := []struct {
		name      string
		start     string
		end       string
		now       time.Time
		wantMatch bool
	}{
		{
			name:      "inside window",
			start:     "09:00",
			end:       "17:00",
			now:       time.Date(2025, 6, 1, 12, 30, 0, 0, time.UTC),
			wantMatch: true,
		},
		{
			name:      "window boundaries are inclusive",
			start:     "09:00",
			end:       "17:00",
			now:       time.Date(2025, 6, 1, 17, 0, 0, 0, time.UTC),
			wantMatch: true,
		},
		{
			name:      "outside window",
			start:     "09:00",
			end:       "17:00",
			now:       time.Date(2025, 6, 1, 18, 0, 0, 0, time.UTC),
			wantMatch: false,
		},
		{
			name:      "non-UTC wall clock is normalized to UTC",
			start:     "09:00",
			end:       "10:00",
			now:       time.Date(2025, 6, 1, 9, 30, 0, 0, time.FixedZone("plus5", 5*3600)),
			wantMatch: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code := testCode(domain.RedirectRule{
				Condition: domain.TimeCondition(tt.start, tt.end),
				URL:       "https://example.com/window",
				Priority:  1,
			})

			url, _ := Resolve(code, Context{Now: tt.now})
			if tt.wantMatch {
				assert.Equal(t, "https://example.com/window", url)
			} else {
				assert.Equal(t, code.DefaultURL, url)
			}
		})
	}
}

func TestResolve_HistoryCondition(t *testing.T) {
	code := testCode(domain.RedirectRule{
		Condition: domain.HistoryCondition(2),
		URL:       "https://example.com/returning",
		Priority:  1,
	})
	code.Contacts["v-1"] = &domain.ContactContext{VisitorID: "v-1", ScanCount: 3}
	code.Contacts["v-2"] = &domain.ContactContext{VisitorID: "v-2", ScanCount: 1}

	tests := []struct {
		name      string
		visitorID string
		wantURL   string
	}{
		{"count meets threshold", "v-1", "https://example.com/returning"},
		{"count below threshold", "v-2", code.DefaultURL},
		{"unknown visitor never matches", "v-3", code.DefaultURL},
		{"absent visitor id never matches", "", code.DefaultURL},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			url, _ := Resolve(code, Context{Now: time.Now(), VisitorID: tt.visitorID})
			assert.Equal(t, tt.wantURL, url)
		})
	}
}

func TestResolve_DeviceCondition(t *testing.T) {
	code := testCode(domain.RedirectRule{
		Condition: domain.DeviceCondition("Mobile"),
		URL:       "https://example.com/mobile",
		Priority:  1,
	})

	tests := []struct {
		name      string
		userAgent string
		wantURL   string
	}{
		{"case-insensitive substring match", "Mozilla/5.0 (iPhone) mobile Safari", "https://example.com/mobile"},
		{"no substring", "Mozilla/5.0 (Macintosh)", code.DefaultURL},
		{"empty user agent never matches", "", code.DefaultURL},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			url, _ := Resolve(code, Context{Now: time.Now(), UserAgent: tt.userAgent})
			assert.Equal(t, tt.wantURL, url)
		})
	}
}

func TestResolve_LocationCondition(t *testing.T) {
	code := testCode(domain.RedirectRule{
		Condition: domain.LocationCondition(map[string]string{"country": "US", "region": "CA"}),
		URL:       "https://example.com/california",
		Priority:  1,
	})

	tests := []struct {
		name     string
		location map[string]string
		wantURL  string
	}{
		{
			name:     "all constraints satisfied",
			location: map[string]string{"country": "US", "region": "CA", "city": "Oakland"},
			wantURL:  "https://example.com/california",
		},
		{
			name:     "one constraint differs",
			location: map[string]string{"country": "US", "region": "OR"},
			wantURL:  code.DefaultURL,
		},
		{
			name:     "constraint key missing",
			location: map[string]string{"country": "US"},
			wantURL:  code.DefaultURL,
		},
		{
			name:     "no location payload never matches",
			location: nil,
			wantURL:  code.DefaultURL,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			url, _ := Resolve(code, Context{Now: time.Now(), Location: tt.location})
			assert.Equal(t, tt.wantURL, url)
		})
	}
}

func TestResolve_ZeroLocationConstraintsMatchAnyPayload(t *testing.T) {
	code := testCode(domain.RedirectRule{
		Condition: domain.LocationCondition(map[string]string{}),
		URL:       "https://example.com/anywhere",
		Priority:  1,
	})

	url, _ := Resolve(code, Context{Now: time.Now(), Location: map[string]string{"country": "DE"}})
	assert.Equal(t, "https://example.com/anywhere", url)
}

func TestResolve_UnknownKindIsSkipped(t *testing.T) {
	code := testCode(
		domain.RedirectRule{Condition: domain.Condition{Kind: "weather"}, URL: "https://example.com/rain", Priority: 10},
		domain.RedirectRule{Condition: domain.DeviceCondition("mobile"), URL: "https://example.com/mobile", Priority: 1},
	)

	url, descriptor := Resolve(code, Context{Now: time.Now(), UserAgent: "mobile"})
	assert.Equal(t, "https://example.com/mobile", url)
	assert.Equal(t, "device:mobile", descriptor)
}

func TestResolve_MalformedPayloadsNeverMatch(t *testing.T) {
	code := testCode(
		// Known kinds with missing payloads are skipped, not errors.
		domain.RedirectRule{Condition: domain.Condition{Kind: domain.ConditionTime}, URL: "https://example.com/t", Priority: 5},
		domain.RedirectRule{Condition: domain.Condition{Kind: domain.ConditionHistory}, URL: "https://example.com/h", Priority: 4},
		domain.RedirectRule{Condition: domain.Condition{Kind: domain.ConditionEvent}, URL: "https://example.com/e", Priority: 3},
		domain.RedirectRule{Condition: domain.Condition{Kind: domain.ConditionDevice}, URL: "https://example.com/d", Priority: 2},
		domain.RedirectRule{Condition: domain.Condition{Kind: domain.ConditionLocation}, URL: "https://example.com/l", Priority: 1},
	)
	code.Contacts["v-1"] = &domain.ContactContext{VisitorID: "v-1", ScanCount: 100}

	url, descriptor := Resolve(code, Context{
		Now:       time.Now(),
		VisitorID: "v-1",
		UserAgent: "anything",
		Location:  map[string]string{"country": "US"},
	})

	assert.Equal(t, code.DefaultURL, url)
	assert.Empty(t, descriptor)
}
