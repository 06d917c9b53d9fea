package adapters

import (
	"context"
	"sync"

	"github.com/woodguard/server/domain/entities"
	"github.com/woodguard/server/domain/repositories"
)

// MemoryDetectionRepository is an in-memory implementation of
// DetectionRepository, bounded to the most recent events. It is the default
// backend when no MongoDB is configured and the one tests use.
type MemoryDetectionRepository struct {
	mu     sync.RWMutex
	events []entities.DetectionEvent
	max    int
}

var _ repositories.DetectionRepository = (*MemoryDetectionRepository)(nil)

// NewMemoryDetectionRepository creates a repository retaining at most max
// events; max <= 0 selects the default of 1000.
func NewMemoryDetectionRepository(max int) *MemoryDetectionRepository {
	if max <= 0 {
		max = 1000
	}
	return &MemoryDetectionRepository{max: max}
}

// Record implements repositories.DetectionRepository.
func (m *MemoryDetectionRepository) Record(_ context.Context, event *entities.DetectionEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.events = append(m.events, *event)
	if len(m.events) > m.max {
		m.events = m.events[len(m.events)-m.max:]
	}
	return nil
}

// Recent implements repositories.DetectionRepository.
func (m *MemoryDetectionRepository) Recent(_ context.Context, limit int) ([]entities.DetectionEvent, error) {
	if limit <= 0 {
		limit = 50
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	if limit > len(m.events) {
		limit = len(m.events)
	}

	out := make([]entities.DetectionEvent, 0, limit)
	for i := len(m.events) - 1; i >= len(m.events)-limit; i-- {
		out = append(out, m.events[i])
	}
	return out, nil
}
