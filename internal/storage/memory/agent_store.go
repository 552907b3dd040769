package memory

import (
	"context"
	"sort"
	"sync"

	"solana-agent-engine/internal/domain"
	"solana-agent-engine/internal/storage"
)

// AgentStore is an in-memory implementation of storage.AgentStore.
type AgentStore struct {
	mu   sync.RWMutex
	data map[string]*domain.TradingAgent // keyed by agent_id
}

// NewAgentStore creates a new in-memory agent store.
func NewAgentStore() *AgentStore {
	return &AgentStore{
		data: make(map[string]*domain.TradingAgent),
	}
}

// Compile-time interface check.
var _ storage.AgentStore = (*AgentStore)(nil)

// Insert adds a new agent. Returns ErrDuplicateKey if agent_id exists.
func (s *AgentStore) Insert(_ context.Context, a *domain.TradingAgent) error {
	if a == nil || a.AgentID == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.data[a.AgentID]; exists {
		return storage.ErrDuplicateKey
	}

	cp := cloneAgent(a)
	s.data[a.AgentID] = cp
	return nil
}

// GetByID retrieves an agent by its ID. Returns ErrNotFound if not exists.
func (s *AgentStore) GetByID(_ context.Context, agentID string) (*domain.TradingAgent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	a, exists := s.data[agentID]
	if !exists {
		return nil, storage.ErrNotFound
	}
	return cloneAgent(a), nil
}

// ListByStatus retrieves all agents with the given lifecycle status.
func (s *AgentStore) ListByStatus(_ context.Context, status domain.AgentStatus) ([]*domain.TradingAgent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.TradingAgent
	for _, a := range s.data {
		if a.Status == status {
			result = append(result, cloneAgent(a))
		}
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].AgentID < result[j].AgentID
	})
	return result, nil
}

// Update overwrites the stored agent. Returns ErrNotFound if not exists.
func (s *AgentStore) Update(_ context.Context, a *domain.TradingAgent) error {
	if a == nil || a.AgentID == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.data[a.AgentID]; !exists {
		return storage.ErrNotFound
	}

	s.data[a.AgentID] = cloneAgent(a)
	return nil
}

// cloneAgent deep-copies an agent including its preference slices.
func cloneAgent(a *domain.TradingAgent) *domain.TradingAgent {
	cp := *a
	cp.PreferredNarratives = append([]string(nil), a.PreferredNarratives...)
	cp.AvoidedPatterns = append([]string(nil), a.AvoidedPatterns...)
	return &cp
}
