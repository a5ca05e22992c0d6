package domain

import (
	"time"
)

// State is the lifecycle state of a QR code.
type State string

const (
	StateCreated  State = "created"
	StateActive   State = "active"
	StatePaused   State = "paused"
	StateExpired  State = "expired"
	StateArchived State = "archived"
)

// Valid reports whether s is one of the known lifecycle states.
func (s State) Valid() bool {
	switch s {
	case StateCreated, StateActive, StatePaused, StateExpired, StateArchived:
		return true
	}
	return false
}

// JourneyState classifies where in a customer journey a code is used.
type JourneyState string

const (
	JourneyLeadCapture  JourneyState = "lead_capture"
	JourneyEventCheckin JourneyState = "event_checkin"
	JourneyNurture      JourneyState = "nurture"
	JourneyConversion   JourneyState = "conversion"
	JourneyRetention    JourneyState = "retention"
	JourneyReactivation JourneyState = "reactivation"
)

// Valid reports whether j is one of the known journey states.
func (j JourneyState) Valid() bool {
	switch j {
	case JourneyLeadCapture, JourneyEventCheckin, JourneyNurture,
		JourneyConversion, JourneyRetention, JourneyReactivation:
		return true
	}
	return false
}

// EventType classifies the event a code is printed for. Event-kind redirect
// rules compare against this value.
type EventType string

const (
	EventConference EventType = "conference"
	EventWebinar    EventType = "webinar"
	EventWorkshop   EventType = "workshop"
	EventNetworking EventType = "networking"
	EventTradeShow  EventType = "trade_show"
	EventGeneral    EventType = "general"
)

// Valid reports whether e is one of the known event types.
func (e EventType) Valid() bool {
	switch e {
	case EventConference, EventWebinar, EventWorkshop,
		EventNetworking, EventTradeShow, EventGeneral:
		return true
	}
	return false
}

// Version is one redirect-configuration snapshot in a code's history.
// Sequence numbers are 1-based and strictly increasing per code.
type Version struct {
	Sequence     int       `json:"sequence"`
	Name         string    `json:"name"`
	Active       bool      `json:"active"`
	TrafficShare float64   `json:"traffic_share"`
	VariantGroup string    `json:"variant_group,omitempty"`
	Notes        string    `json:"notes,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}

// ContactContext tracks per-visitor scan history scoped to one code.
// Created on first scan, mutated on every subsequent scan, never deleted.
type ContactContext struct {
	VisitorID      string            `json:"visitor_id"`
	FirstSeen      time.Time         `json:"first_seen"`
	LastSeen       time.Time         `json:"last_seen"`
	ScanCount      int               `json:"scan_count"`
	Industry       string            `json:"industry,omitempty"`
	IntentScore    float64           `json:"intent_score,omitempty"`
	LifecycleStage string            `json:"lifecycle_stage,omitempty"`
	Enrichment     map[string]string `json:"enrichment,omitempty"`
}

// QRCode is the long-lived aggregate a printed code maps to. The Versions and
// Contacts collections are owned by the aggregate and mutated only through the
// version and contact packages.
type QRCode struct {
	ID    string `json:"qr_id"`
	Token string `json:"token"`

	State        State        `json:"state"`
	JourneyState JourneyState `json:"journey_state"`
	EventType    EventType    `json:"event_type"`

	CampaignID   string `json:"campaign_id,omitempty"`
	CampaignName string `json:"campaign_name,omitempty"`

	DefaultURL string         `json:"default_redirect_url"`
	Rules      []RedirectRule `json:"redirect_rules"`

	// CurrentVersion holds the sequence number of the authoritative version.
	// Invariant: it appears in Versions.
	CurrentVersion int       `json:"current_version"`
	Versions       []Version `json:"versions"`

	TotalScans     int        `json:"total_scans"`
	UniqueContacts int        `json:"unique_contacts"`
	LastScannedAt  *time.Time `json:"last_scanned_at,omitempty"`

	Contacts map[string]*ContactContext `json:"contact_contexts,omitempty"`

	CreatedAt   time.Time  `json:"created_at"`
	ActivatedAt *time.Time `json:"activated_at,omitempty"`
	ExpiresAt   *time.Time `json:"expires_at,omitempty"`
	ArchivedAt  *time.Time `json:"archived_at,omitempty"`

	Tags     []string          `json:"tags,omitempty"`
	Metadata map[string]string `json:"metadata,omitempty"`
}

// Current returns the version whose sequence matches CurrentVersion, or nil
// if the invariant is broken.
func (q *QRCode) Current() *Version {
	for i := range q.Versions {
		if q.Versions[i].Sequence == q.CurrentVersion {
			return &q.Versions[i]
		}
	}
	return nil
}

// Clone returns a deep copy of the code. Caches and the service hand out
// clones so callers can never mutate shared aggregate state directly.
func (q *QRCode) Clone() *QRCode {
	c := *q

	c.Rules = make([]RedirectRule, len(q.Rules))
	copy(c.Rules, q.Rules)
	for i := range c.Rules {
		c.Rules[i].Condition = q.Rules[i].Condition.clone()
	}

	c.Versions = make([]Version, len(q.Versions))
	copy(c.Versions, q.Versions)

	if q.Contacts != nil {
		c.Contacts = make(map[string]*ContactContext, len(q.Contacts))
		for id, cc := range q.Contacts {
			dup := *cc
			if cc.Enrichment != nil {
				dup.Enrichment = make(map[string]string, len(cc.Enrichment))
				for k, v := range cc.Enrichment {
					dup.Enrichment[k] = v
				}
			}
			c.Contacts[id] = &dup
		}
	}

	if q.Tags != nil {
		c.Tags = make([]string, len(q.Tags))
		copy(c.Tags, q.Tags)
	}
	if q.Metadata != nil {
		c.Metadata = make(map[string]string, len(q.Metadata))
		for k, v := range q.Metadata {
			c.Metadata[k] = v
		}
	}

	c.LastScannedAt = cloneTime(q.LastScannedAt)
	c.ActivatedAt = cloneTime(q.ActivatedAt)
	c.ExpiresAt = cloneTime(q.ExpiresAt)
	c.ArchivedAt = cloneTime(q.ArchivedAt)

	return &c
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	dup := *t
	return &dup
}

// ScanEvent is the immutable record of one resolution decision.
type ScanEvent struct {
	ID        string    `json:"event_id"`
	QRID      string    `json:"qr_id"`
	ScannedAt time.Time `json:"scanned_at"`

	VisitorID string            `json:"visitor_id,omitempty"`
	UserAgent string            `json:"user_agent,omitempty"`
	IPAddress string            `json:"ip_address,omitempty"`
	Location  map[string]string `json:"location,omitempty"`
	Referrer  string            `json:"referrer,omitempty"`

	DestinationURL string `json:"destination_url"`
	MatchedRule    string `json:"matched_rule,omitempty"`

	DeviceType string `json:"device_type,omitempty"`
	SessionID  string `json:"session_id,omitempty"`
}

// CreateRequest carries the fields for creating a new QR code.
type CreateRequest struct {
	JourneyState JourneyState      `json:"journey_state"`
	EventType    EventType         `json:"event_type,omitempty"`
	CampaignID   string            `json:"campaign_id,omitempty"`
	CampaignName string            `json:"campaign_name,omitempty"`
	DefaultURL   string            `json:"default_redirect_url"`
	Rules        []RedirectRule    `json:"redirect_rules,omitempty"`
	VersionName  string            `json:"version_name,omitempty"`
	ExpiresAt    *time.Time        `json:"expires_at,omitempty"`
	Tags         []string          `json:"tags,omitempty"`
	Metadata     map[string]string `json:"metadata,omitempty"`
}

// UpdateRequest carries partial updates. Nil fields are left untouched.
// State is an unguarded overwrite; see service.Update.
type UpdateRequest struct {
	State        *State             `json:"state,omitempty"`
	JourneyState *JourneyState      `json:"journey_state,omitempty"`
	DefaultURL   *string            `json:"default_redirect_url,omitempty"`
	Rules        *[]RedirectRule    `json:"redirect_rules,omitempty"`
	ExpiresAt    *time.Time         `json:"expires_at,omitempty"`
	Tags         *[]string          `json:"tags,omitempty"`
	Metadata     *map[string]string `json:"metadata,omitempty"`
}

// VersionCreateRequest carries the fields for creating a new version.
// A nil TrafficShare defaults to 100.
type VersionCreateRequest struct {
	Name         string          `json:"name"`
	DefaultURL   *string         `json:"redirect_url,omitempty"`
	Rules        *[]RedirectRule `json:"redirect_rules,omitempty"`
	TrafficShare *float64        `json:"traffic_share,omitempty"`
	VariantGroup string          `json:"variant_group,omitempty"`
	Notes        string          `json:"notes,omitempty"`
}

// ScanRequest is the context extracted by the transport layer for one scan.
type ScanRequest struct {
	VisitorID  string
	UserAgent  string
	IPAddress  string
	Location   map[string]string
	Referrer   string
	DeviceType string
	SessionID  string
}

// ListFilter narrows List results. Zero values mean no filtering.
type ListFilter struct {
	CampaignID   string
	State        State
	JourneyState JourneyState
	Limit        int
}

// VersionSummary identifies the current version in analytics payloads.
type VersionSummary struct {
	Name     string `json:"name"`
	Sequence int    `json:"sequence"`
}

// ContactBreakdown splits tracked contacts into returning and first-time.
type ContactBreakdown struct {
	Total     int `json:"total"`
	Returning int `json:"returning"`
}

// Analytics is the per-code analytics payload.
type Analytics struct {
	QRID             string           `json:"qr_id"`
	Token            string           `json:"token"`
	State            State            `json:"state"`
	JourneyState     JourneyState     `json:"journey_state"`
	TotalScans       int              `json:"total_scans"`
	UniqueContacts   int              `json:"unique_contacts"`
	LastScannedAt    *time.Time       `json:"last_scanned_at,omitempty"`
	CreatedAt        time.Time        `json:"created_at"`
	ActivatedAt      *time.Time       `json:"activated_at,omitempty"`
	CampaignName     string           `json:"campaign_name,omitempty"`
	CurrentVersion   VersionSummary   `json:"current_version"`
	ContactBreakdown ContactBreakdown `json:"contact_breakdown"`
}

// CampaignCodeStats is one code's contribution to campaign analytics.
type CampaignCodeStats struct {
	QRID           string `json:"qr_id"`
	Token          string `json:"token"`
	State          State  `json:"state"`
	Scans          int    `json:"scans"`
	UniqueContacts int    `json:"unique_contacts"`
}

// CampaignAnalytics aggregates scan totals across a campaign's codes.
type CampaignAnalytics struct {
	CampaignID     string              `json:"campaign_id"`
	QRCodeCount    int                 `json:"qr_code_count"`
	TotalScans     int                 `json:"total_scans"`
	UniqueContacts int                 `json:"unique_contacts"`
	Codes          []CampaignCodeStats `json:"qr_codes"`
}
