// Package rules implements the context-aware redirect rule engine: a
// deterministic, priority-ordered evaluator that picks a destination URL for
// one scan without mutating any state.
package rules

import (
	"sort"
	"strings"
	"time"

	"github.com/joshdurbin/dynamic-qr/internal/domain"
)

// Context carries everything a resolution depends on. Now is passed in
// explicitly so Resolve stays a pure function of its inputs.
type Context struct {
	Now       time.Time
	VisitorID string
	UserAgent string
	Location  map[string]string
}

// Resolve evaluates the code's rules against the scan context and returns the
// destination URL plus a match descriptor ("kind:value"). Rules are evaluated
// in descending priority order with a stable tie-break on original position.
// If no rule matches, the code's default URL is returned with an empty
// descriptor. Resolve never mutates the code.
func Resolve(code *domain.QRCode, sc Context) (string, string) {
	sorted := make([]domain.RedirectRule, len(code.Rules))
	copy(sorted, code.Rules)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Priority > sorted[j].Priority
	})

	var contact *domain.ContactContext
	if sc.VisitorID != "" {
		contact = code.Contacts[sc.VisitorID]
	}

	for _, rule := range sorted {
		if matches(rule.Condition, code, contact, sc) {
			return rule.URL, rule.Condition.Describe()
		}
	}

	return code.DefaultURL, ""
}

// matches dispatches to the kind-specific evaluator. Unrecognized kinds are
// skipped so newer rule kinds degrade gracefully on older engines.
func matches(c domain.Condition, code *domain.QRCode, contact *domain.ContactContext, sc Context) bool {
	switch c.Kind {
	case domain.ConditionTime:
		return evalTime(c, sc.Now)
	case domain.ConditionHistory:
		return evalHistory(c, contact)
	case domain.ConditionEvent:
		return evalEvent(c, code.EventType)
	case domain.ConditionDevice:
		return evalDevice(c, sc.UserAgent)
	case domain.ConditionLocation:
		return evalLocation(c, sc.Location)
	}
	return false
}

// evalTime holds iff the UTC wall-clock time falls within the inclusive
// window. Comparison is lexicographic on zero-padded "HH:MM" strings.
func evalTime(c domain.Condition, now time.Time) bool {
	if c.Window == nil {
		return false
	}
	current := now.UTC().Format("15:04")
	return c.Window.Start <= current && current <= c.Window.End
}

// evalHistory holds iff the visitor has an existing context whose scan count
// meets the threshold. The count is the pre-touch value: the orchestrator
// resolves before recording the current scan.
func evalHistory(c domain.Condition, contact *domain.ContactContext) bool {
	if c.MinScans == nil || contact == nil {
		return false
	}
	return contact.ScanCount >= *c.MinScans
}

// evalEvent holds iff the condition value equals the code's event type.
func evalEvent(c domain.Condition, eventType domain.EventType) bool {
	if c.Match == nil {
		return false
	}
	return *c.Match == string(eventType)
}

// evalDevice holds iff the condition value is a case-insensitive substring of
// a non-empty user agent.
func evalDevice(c domain.Condition, userAgent string) bool {
	if c.Match == nil || userAgent == "" {
		return false
	}
	return strings.Contains(strings.ToLower(userAgent), strings.ToLower(*c.Match))
}

// evalLocation holds iff every constrained key is present in the location
// payload with an exactly matching value. Zero constraints trivially match,
// but a missing payload never does.
func evalLocation(c domain.Condition, location map[string]string) bool {
	if c.Locations == nil || location == nil {
		return false
	}
	for key, want := range c.Locations {
		if location[key] != want {
			return false
		}
	}
	return true
}
