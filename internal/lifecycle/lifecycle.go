// Package lifecycle implements the QR code state machine. Activation is the
// only guarded transition; expiration is evaluated lazily at scan time. The
// generic update path deliberately bypasses these guards (see service.Update).
package lifecycle

import (
	"fmt"
	"time"

	"github.com/joshdurbin/dynamic-qr/internal/domain"
)

// CanActivate reports whether an explicit activate operation is legal from
// the given state. Only created and paused codes may be (re)activated.
func CanActivate(state domain.State) bool {
	return state == domain.StateCreated || state == domain.StatePaused
}

// Activate transitions the code to active, recording the activation timestamp
// on first activation only. Returns ErrInvalidTransition from any other state.
func Activate(code *domain.QRCode, now time.Time) error {
	if !CanActivate(code.State) {
		return fmt.Errorf("%w: cannot activate from state %s", domain.ErrInvalidTransition, code.State)
	}

	code.State = domain.StateActive
	if code.ActivatedAt == nil {
		ts := now
		code.ActivatedAt = &ts
	}

	return nil
}

// ExpireIfDue transitions an active code to expired when its expiration
// timestamp has passed, returning true if the transition happened. The caller
// is responsible for persisting the transition before reporting the failure.
func ExpireIfDue(code *domain.QRCode, now time.Time) bool {
	if code.State != domain.StateActive || code.ExpiresAt == nil {
		return false
	}
	if !now.After(*code.ExpiresAt) {
		return false
	}

	code.State = domain.StateExpired
	return true
}

// Scannable reports whether the code's state permits scan resolution.
func Scannable(state domain.State) bool {
	return state == domain.StateActive
}
