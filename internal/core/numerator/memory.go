package numerator

import (
	"context"
	"sync"
	"time"
)

// InMemory is a process-local Generator for the memory storage driver and tests.
type InMemory struct {
	mu   sync.Mutex
	seqs map[string]int64
}

// NewInMemory creates an empty in-memory generator.
func NewInMemory() *InMemory {
	return &InMemory{seqs: make(map[string]int64)}
}

// GetNextNumber implements Generator.
func (g *InMemory) GetNextNumber(_ context.Context, cfg Config, _ *Options, period time.Time) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	key := SequenceKey(cfg, period)
	g.seqs[key]++
	return Format(cfg, period, g.seqs[key]), nil
}

// SetNextNumber implements Generator.
func (g *InMemory) SetNextNumber(_ context.Context, cfg Config, period time.Time, value int64) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.seqs[SequenceKey(cfg, period)] = value
	return nil
}

var _ Generator = (*InMemory)(nil)
