package domain

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
)

// ConditionKind discriminates the condition variants a redirect rule can carry.
type ConditionKind string

const (
	ConditionTime     ConditionKind = "time"
	ConditionHistory  ConditionKind = "history"
	ConditionEvent    ConditionKind = "event"
	ConditionDevice   ConditionKind = "device"
	ConditionLocation ConditionKind = "location"
)

// TimeWindow is an inclusive wall-clock window of zero-padded "HH:MM" values.
type TimeWindow struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

// Condition is a tagged variant over the known condition kinds. Exactly one
// payload field is set for a well-formed condition of a known kind; a known
// kind with a nil payload never matches. Unrecognized kinds keep their raw
// payload so they round-trip through storage, and never match.
type Condition struct {
	Kind ConditionKind

	// Window is set for time conditions.
	Window *TimeWindow
	// MinScans is set for history conditions.
	MinScans *int
	// Match is set for event and device conditions.
	Match *string
	// Locations is set for location conditions.
	Locations map[string]string

	raw json.RawMessage
}

// TimeCondition builds a time-window condition.
func TimeCondition(start, end string) Condition {
	return Condition{Kind: ConditionTime, Window: &TimeWindow{Start: start, End: end}}
}

// HistoryCondition builds a visit-count condition.
func HistoryCondition(minScans int) Condition {
	return Condition{Kind: ConditionHistory, MinScans: &minScans}
}

// EventCondition builds an event-type condition.
func EventCondition(value string) Condition {
	return Condition{Kind: ConditionEvent, Match: &value}
}

// DeviceCondition builds a user-agent substring condition.
func DeviceCondition(value string) Condition {
	return Condition{Kind: ConditionDevice, Match: &value}
}

// LocationCondition builds a location attribute condition.
func LocationCondition(constraints map[string]string) Condition {
	return Condition{Kind: ConditionLocation, Locations: constraints}
}

// Describe renders the human-readable match descriptor for the condition,
// e.g. "device:mobile" or "history:scan_count>=2".
func (c Condition) Describe() string {
	switch c.Kind {
	case ConditionTime:
		if c.Window != nil {
			return fmt.Sprintf("time:%s-%s", c.Window.Start, c.Window.End)
		}
	case ConditionHistory:
		if c.MinScans != nil {
			return fmt.Sprintf("history:scan_count>=%d", *c.MinScans)
		}
	case ConditionEvent, ConditionDevice:
		if c.Match != nil {
			return fmt.Sprintf("%s:%s", c.Kind, *c.Match)
		}
	case ConditionLocation:
		keys := make([]string, 0, len(c.Locations))
		for k := range c.Locations {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		pairs := make([]string, len(keys))
		for i, k := range keys {
			pairs[i] = k + "=" + c.Locations[k]
		}
		return "location:" + strings.Join(pairs, ",")
	}
	return string(c.Kind)
}

func (c Condition) clone() Condition {
	dup := c
	if c.Window != nil {
		w := *c.Window
		dup.Window = &w
	}
	if c.MinScans != nil {
		n := *c.MinScans
		dup.MinScans = &n
	}
	if c.Match != nil {
		m := *c.Match
		dup.Match = &m
	}
	if c.Locations != nil {
		dup.Locations = make(map[string]string, len(c.Locations))
		for k, v := range c.Locations {
			dup.Locations[k] = v
		}
	}
	if c.raw != nil {
		dup.raw = append(json.RawMessage(nil), c.raw...)
	}
	return dup
}

// RedirectRule is a declarative condition → destination mapping. Rules have no
// identity beyond their position in the owning list; updates replace the list.
type RedirectRule struct {
	Condition Condition
	URL       string
	Priority  int
}

// ruleWire is the serialized rule shape, matching the persisted format.
type ruleWire struct {
	ConditionType  ConditionKind   `json:"condition_type"`
	ConditionValue json.RawMessage `json:"condition_value,omitempty"`
	RedirectURL    string          `json:"redirect_url"`
	Priority       int             `json:"priority"`
}

// MarshalJSON serializes the rule with a kind-appropriate condition payload.
func (r RedirectRule) MarshalJSON() ([]byte, error) {
	w := ruleWire{
		ConditionType: r.Condition.Kind,
		RedirectURL:   r.URL,
		Priority:      r.Priority,
	}

	var payload any
	switch r.Condition.Kind {
	case ConditionTime:
		if r.Condition.Window != nil {
			payload = r.Condition.Window
		}
	case ConditionHistory:
		if r.Condition.MinScans != nil {
			payload = *r.Condition.MinScans
		}
	case ConditionEvent, ConditionDevice:
		if r.Condition.Match != nil {
			payload = *r.Condition.Match
		}
	case ConditionLocation:
		if r.Condition.Locations != nil {
			payload = r.Condition.Locations
		}
	default:
		w.ConditionValue = r.Condition.raw
	}

	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal condition value: %w", err)
		}
		w.ConditionValue = data
	}

	return json.Marshal(w)
}

// UnmarshalJSON parses a rule, tolerating malformed payloads for known kinds
// (the condition simply never matches) and preserving unknown kinds verbatim.
func (r *RedirectRule) UnmarshalJSON(data []byte) error {
	var w ruleWire
	if err := json.Unmarshal(data, &w); err != nil {
		return fmt.Errorf("failed to unmarshal redirect rule: %w", err)
	}

	r.URL = w.RedirectURL
	r.Priority = w.Priority
	r.Condition = Condition{Kind: w.ConditionType}

	switch w.ConditionType {
	case ConditionTime:
		var window TimeWindow
		if err := json.Unmarshal(w.ConditionValue, &window); err == nil && window.Start != "" && window.End != "" {
			r.Condition.Window = &window
		}
	case ConditionHistory:
		var min int
		if err := json.Unmarshal(w.ConditionValue, &min); err == nil {
			r.Condition.MinScans = &min
		}
	case ConditionEvent, ConditionDevice:
		var match string
		if err := json.Unmarshal(w.ConditionValue, &match); err == nil {
			r.Condition.Match = &match
		}
	case ConditionLocation:
		var constraints map[string]string
		if err := json.Unmarshal(w.ConditionValue, &constraints); err == nil {
			r.Condition.Locations = constraints
		}
	default:
		r.Condition.raw = append(json.RawMessage(nil), w.ConditionValue...)
	}

	return nil
}
