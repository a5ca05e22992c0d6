package token

import (
	"context"
)

// Generator defines the interface for generating public scan tokens
type Generator interface {
	// Generate produces a new unique public token
	Generate(ctx context.Context) (string, error)

	// Type returns the type identifier of the generator
	Type() string

	// Close performs cleanup when the generator is no longer needed
	Close() error
}

// Config holds configuration for token generators
type Config struct {
	Prefix string `json:"prefix"` // Prefix prepended to every token
}

// DefaultConfig returns the default configuration
func DefaultConfig() Config {
	return Config{
		Prefix: "fq",
	}
}
