package contact

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joshdurbin/dynamic-qr/internal/domain"
)

func TestTouch_CreatesContextOnFirstScan(t *testing.T) {
	code := &domain.QRCode{}
	now := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)

	ctx := Touch(code, "v-1", now)

	require.NotNil(t, ctx)
	assert.Equal(t, "v-1", ctx.VisitorID)
	assert.Equal(t, 1, ctx.ScanCount)
	assert.Equal(t, now, ctx.FirstSeen)
	assert.Equal(t, now, ctx.LastSeen)
	assert.Len(t, code.Contacts, 1)
}

func TestTouch_IncrementsExistingContext(t *testing.T) {
	code := &domain.QRCode{}
	first := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)
	second := first.Add(time.Hour)

	Touch(code, "v-1", first)
	ctx := Touch(code, "v-1", second)

	assert.Equal(t, 2, ctx.ScanCount)
	assert.Equal(t, first, ctx.FirstSeen)
	assert.Equal(t, second, ctx.LastSeen)
	assert.Len(t, code.Contacts, 1)
}

func TestTouch_DistinctVisitorsGetDistinctContexts(t *testing.T) {
	code := &domain.QRCode{}
	now := time.Now()

	a := Touch(code, "v-1", now)
	b := Touch(code, "v-2", now)

	assert.Equal(t, 1, a.ScanCount)
	assert.Equal(t, 1, b.ScanCount)
	assert.Len(t, code.Contacts, 2)
}

func TestSeen(t *testing.T) {
	code := &domain.QRCode{}

	assert.False(t, Seen(code, "v-1"))
	assert.False(t, Seen(code, ""))

	Touch(code, "v-1", time.Now())

	assert.True(t, Seen(code, "v-1"))
	assert.False(t, Seen(code, "v-2"))
}

func TestReturning(t *testing.T) {
	code := &domain.QRCode{}
	now := time.Now()

	Touch(code, "v-1", now)
	Touch(code, "v-1", now)
	Touch(code, "v-2", now)

	assert.Equal(t, 1, Returning(code))
}
