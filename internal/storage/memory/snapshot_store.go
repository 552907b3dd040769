package memory

import (
	"context"
	"sync"

	"solana-agent-engine/internal/domain"
	"solana-agent-engine/internal/storage"
)

// SnapshotStore is an in-memory implementation of storage.PriceSnapshotStore.
type SnapshotStore struct {
	mu     sync.RWMutex
	points []*domain.PriceSnapshot
}

// NewSnapshotStore creates a new in-memory snapshot store.
func NewSnapshotStore() *SnapshotStore {
	return &SnapshotStore{}
}

// Compile-time interface check.
var _ storage.PriceSnapshotStore = (*SnapshotStore)(nil)

// InsertBulk adds snapshot points.
func (s *SnapshotStore) InsertBulk(_ context.Context, points []*domain.PriceSnapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, p := range points {
		if p == nil {
			return storage.ErrInvalidInput
		}
		cp := *p
		s.points = append(s.points, &cp)
	}
	return nil
}

// All returns a copy of every recorded point. Test helper.
func (s *SnapshotStore) All() []*domain.PriceSnapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*domain.PriceSnapshot, len(s.points))
	for i, p := range s.points {
		cp := *p
		result[i] = &cp
	}
	return result
}
