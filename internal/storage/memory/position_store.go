package memory

import (
	"context"
	"sort"
	"sync"

	"solana-agent-engine/internal/domain"
	"solana-agent-engine/internal/storage"
)

// PositionStore is an in-memory implementation of storage.PositionStore.
type PositionStore struct {
	mu   sync.RWMutex
	data map[string]*domain.Position // keyed by position_id
}

// NewPositionStore creates a new in-memory position store.
func NewPositionStore() *PositionStore {
	return &PositionStore{
		data: make(map[string]*domain.Position),
	}
}

// Compile-time interface check.
var _ storage.PositionStore = (*PositionStore)(nil)

// Insert adds a new position. Returns ErrDuplicateKey if position_id exists.
func (s *PositionStore) Insert(_ context.Context, p *domain.Position) error {
	if p == nil || p.PositionID == "" || p.AgentID == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.data[p.PositionID]; exists {
		return storage.ErrDuplicateKey
	}

	cp := *p
	s.data[p.PositionID] = &cp
	return nil
}

// GetByID retrieves a position by its ID. Returns ErrNotFound if not exists.
func (s *PositionStore) GetByID(_ context.Context, positionID string) (*domain.Position, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, exists := s.data[positionID]
	if !exists {
		return nil, storage.ErrNotFound
	}
	cp := *p
	return &cp, nil
}

// ListOpen retrieves all open positions across agents, ordered by opened_at ASC.
func (s *PositionStore) ListOpen(_ context.Context) ([]*domain.Position, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.Position
	for _, p := range s.data {
		if p.Status == domain.PositionOpen {
			cp := *p
			result = append(result, &cp)
		}
	}

	sort.Slice(result, func(i, j int) bool {
		if result[i].OpenedAt != result[j].OpenedAt {
			return result[i].OpenedAt < result[j].OpenedAt
		}
		return result[i].PositionID < result[j].PositionID
	})
	return result, nil
}

// ListOpenByAgent retrieves open positions for one agent.
func (s *PositionStore) ListOpenByAgent(_ context.Context, agentID string) ([]*domain.Position, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.Position
	for _, p := range s.data {
		if p.AgentID == agentID && p.Status == domain.PositionOpen {
			cp := *p
			result = append(result, &cp)
		}
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].OpenedAt < result[j].OpenedAt
	})
	return result, nil
}

// Update overwrites the stored position. Returns ErrNotFound if not exists
// and ErrTerminalPosition if the stored row is already terminal.
func (s *PositionStore) Update(_ context.Context, p *domain.Position) error {
	if p == nil || p.PositionID == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	existing, exists := s.data[p.PositionID]
	if !exists {
		return storage.ErrNotFound
	}
	if existing.Status.Terminal() {
		return storage.ErrTerminalPosition
	}

	cp := *p
	s.data[p.PositionID] = &cp
	return nil
}
