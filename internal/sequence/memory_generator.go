package sequence

import (
	"context"
	"fmt"
	"sync"
)

// MemoryGenerator is an in-process Generator with the same atomicity
// guarantee as the Postgres one. Used by tests and available as a fallback
// for single-process deployments.
type MemoryGenerator struct {
	mu       sync.Mutex
	counters map[string]int
}

func NewMemoryGenerator() *MemoryGenerator {
	return &MemoryGenerator{counters: make(map[string]int)}
}

func (g *MemoryGenerator) Next(_ context.Context, prefix, bucket string) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	key := prefix + bucket
	g.counters[key]++
	value := g.counters[key]

	if value > maxSequence {
		return "", fmt.Errorf("bucket %s: %w", key, ErrBucketExhausted)
	}

	return format(prefix, bucket, value), nil
}
