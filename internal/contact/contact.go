// Package contact maintains per-visitor scan history on the QR code
// aggregate. The contexts map is owned by the aggregate and mutated only
// through Touch.
package contact

import (
	"time"

	"github.com/joshdurbin/dynamic-qr/internal/domain"
)

// Seen reports whether a context already exists for the visitor. The scan
// orchestrator checks this before Touch: uniqueness counting must observe the
// pre-touch state.
func Seen(code *domain.QRCode, visitorID string) bool {
	if visitorID == "" {
		return false
	}
	_, ok := code.Contacts[visitorID]
	return ok
}

// Touch records one scan for the visitor: it creates a context with scan
// count 1 on first sight, otherwise increments the count and advances the
// last-seen timestamp. Returns the touched context.
func Touch(code *domain.QRCode, visitorID string, now time.Time) *domain.ContactContext {
	if code.Contacts == nil {
		code.Contacts = make(map[string]*domain.ContactContext)
	}

	ctx, ok := code.Contacts[visitorID]
	if !ok {
		ctx = &domain.ContactContext{
			VisitorID: visitorID,
			FirstSeen: now,
			LastSeen:  now,
			ScanCount: 1,
		}
		code.Contacts[visitorID] = ctx
		return ctx
	}

	ctx.ScanCount++
	ctx.LastSeen = now
	return ctx
}

// Returning counts tracked contacts that have scanned more than once.
func Returning(code *domain.QRCode) int {
	var n int
	for _, ctx := range code.Contacts {
		if ctx.ScanCount > 1 {
			n++
		}
	}
	return n
}
