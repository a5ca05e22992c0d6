package token

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// UUIDGenerator derives short public tokens from random UUIDs. Tokens look
// like "fq-3f2a9c1b": the prefix plus the first 8 hex characters.
type UUIDGenerator struct {
	prefix string
}

// NewUUIDGenerator creates a UUID-based token generator
func NewUUIDGenerator(cfg Config) (*UUIDGenerator, error) {
	if cfg.Prefix == "" {
		return nil, fmt.Errorf("token prefix cannot be empty")
	}
	if strings.Contains(cfg.Prefix, "/") {
		return nil, fmt.Errorf("token prefix cannot contain '/'")
	}

	return &UUIDGenerator{prefix: cfg.Prefix}, nil
}

// Generate produces a new token from a fresh UUID
func (g *UUIDGenerator) Generate(ctx context.Context) (string, error) {
	id, err := uuid.NewRandom()
	if err != nil {
		return "", fmt.Errorf("failed to generate uuid: %w", err)
	}

	return g.prefix + "-" + id.String()[:8], nil
}

// Type returns the generator type
func (g *UUIDGenerator) Type() string {
	return "uuid"
}

// Close performs cleanup
func (g *UUIDGenerator) Close() error {
	return nil
}

// Ensure UUIDGenerator implements Generator interface
var _ Generator = (*UUIDGenerator)(nil)
