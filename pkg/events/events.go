// Package events publishes bulk-deletion settlement events for audit consumers
package events

import (
	"context"
	"fmt"
	"sync"

	"github.com/userdeck/userdeck/pkg/config"
	"github.com/userdeck/userdeck/pkg/interfaces"
	"github.com/userdeck/userdeck/pkg/types"
)

// BackendType represents the available event publisher backends
type BackendType string

const (
	MemoryBackend BackendType = "memory"
	NATSBackend   BackendType = "nats"
)

// NewPublisher creates an event publisher for the configured backend
func NewPublisher(cfg *config.EventsConfig, log interfaces.Logger) (interfaces.EventPublisher, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}

	switch BackendType(cfg.Backend) {
	case MemoryBackend:
		return NewMemoryPublisher(), nil
	case NATSBackend:
		return NewNATSPublisher(cfg, log)
	default:
		return nil, fmt.Errorf("unsupported events backend: %s", cfg.Backend)
	}
}

// MemoryPublisher retains published events in process memory. It is the
// default backend and the one the tests observe.
type MemoryPublisher struct {
	mu     sync.Mutex
	events []types.SettlementEvent
}

// NewMemoryPublisher creates an in-memory event publisher
func NewMemoryPublisher() *MemoryPublisher {
	return &MemoryPublisher{}
}

// Publish records the event
func (m *MemoryPublisher) Publish(_ context.Context, event types.SettlementEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, event)
	return nil
}

// Events returns a copy of all published events in order
func (m *MemoryPublisher) Events() []types.SettlementEvent {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]types.SettlementEvent, len(m.events))
	copy(out, m.events)
	return out
}

// Close releases the publisher
func (m *MemoryPublisher) Close() error {
	return nil
}
