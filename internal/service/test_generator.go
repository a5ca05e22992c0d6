package service

import (
	"context"
	"fmt"
)

// TestGenerator is a simple token generator for testing purposes
type TestGenerator struct {
	counter int
}

// NewTestGenerator creates a new test generator
func NewTestGenerator() *TestGenerator {
	return &TestGenerator{counter: 0}
}

// Generate produces a predictable sequential token
func (g *TestGenerator) Generate(ctx context.Context) (string, error) {
	g.counter++
	return fmt.Sprintf("fq-test%04d", g.counter), nil
}

// Type returns the generator type
func (g *TestGenerator) Type() string {
	return "test"
}

// Close performs cleanup
func (g *TestGenerator) Close() error {
	return nil
}
