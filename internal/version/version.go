// Package version manages a code's redirect-configuration snapshots. A code
// accumulates versions over its life; exactly one is current and feeds the
// rule engine.
package version

import (
	"fmt"
	"time"

	"github.com/joshdurbin/dynamic-qr/internal/domain"
)

// DefaultTrafficShare is used when a version-create request omits the share.
const DefaultTrafficShare = 100.0

// Initial builds the sequence-1 version every new code starts with.
func Initial(name string, now time.Time) domain.Version {
	if name == "" {
		name = "Initial Version"
	}
	return domain.Version{
		Sequence:     1,
		Name:         name,
		Active:       true,
		TrafficShare: DefaultTrafficShare,
		Notes:        "Initial version",
		CreatedAt:    now,
	}
}

// Create appends a new version to the code's history and makes it current.
// The new sequence is always previous current + 1. When the new version
// claims nonzero traffic share, the immediately preceding current version is
// deactivated; exactly one version flips per call, no matter how long the
// history is. Rule and default-URL overrides, when supplied, replace the
// code's active configuration wholesale.
//
// TrafficShare is stored but never splits live traffic; only the current
// version is authoritative for rule evaluation.
func Create(code *domain.QRCode, req *domain.VersionCreateRequest, now time.Time) error {
	if req.Name == "" {
		return fmt.Errorf("%w: version name is required", domain.ErrValidation)
	}

	current := code.Current()
	if current == nil {
		return fmt.Errorf("%w: current version %d not in history", domain.ErrNotFound, code.CurrentVersion)
	}

	share := DefaultTrafficShare
	if req.TrafficShare != nil {
		share = *req.TrafficShare
	}

	next := domain.Version{
		Sequence:     current.Sequence + 1,
		Name:         req.Name,
		Active:       true,
		TrafficShare: share,
		VariantGroup: req.VariantGroup,
		Notes:        req.Notes,
		CreatedAt:    now,
	}

	if share > 0 {
		current.Active = false
	}

	code.Versions = append(code.Versions, next)
	code.CurrentVersion = next.Sequence

	if req.Rules != nil {
		code.Rules = *req.Rules
	}
	if req.DefaultURL != nil {
		code.DefaultURL = *req.DefaultURL
	}

	return nil
}
