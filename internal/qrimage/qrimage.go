// Package qrimage renders scan URLs as PNG QR code images.
package qrimage

import (
	"fmt"

	"github.com/skip2/go-qrcode"
)

const (
	// DefaultSize is the rendered image edge length in pixels.
	DefaultSize = 300
	MinSize     = 64
	MaxSize     = 2048
)

// Render encodes the given scan URL as a PNG image of size x size pixels.
// A non-positive size falls back to DefaultSize; sizes outside the allowed
// range are clamped.
func Render(scanURL string, size int) ([]byte, error) {
	if size <= 0 {
		size = DefaultSize
	}
	if size < MinSize {
		size = MinSize
	}
	if size > MaxSize {
		size = MaxSize
	}

	png, err := qrcode.Encode(scanURL, qrcode.High, size)
	if err != nil {
		return nil, fmt.Errorf("failed to encode qr image: %w", err)
	}
	return png, nil
}
