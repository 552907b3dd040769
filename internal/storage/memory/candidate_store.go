package memory

import (
	"context"
	"sort"
	"sync"

	"solana-agent-engine/internal/domain"
	"solana-agent-engine/internal/storage"
)

// CandidateStore is an in-memory implementation of storage.CandidateStore.
type CandidateStore struct {
	mu   sync.RWMutex
	data map[string]*domain.CandidateToken // keyed by mint
}

// NewCandidateStore creates a new in-memory candidate store.
func NewCandidateStore() *CandidateStore {
	return &CandidateStore{
		data: make(map[string]*domain.CandidateToken),
	}
}

// Compile-time interface check.
var _ storage.CandidateStore = (*CandidateStore)(nil)

// Upsert stores or refreshes a candidate keyed by mint.
func (s *CandidateStore) Upsert(_ context.Context, c *domain.CandidateToken) error {
	if c == nil || c.Mint == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	cp := *c
	s.data[c.Mint] = &cp
	return nil
}

// GetByMint retrieves a candidate by mint. Returns ErrNotFound if not exists.
func (s *CandidateStore) GetByMint(_ context.Context, mint string) (*domain.CandidateToken, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c, exists := s.data[mint]
	if !exists {
		return nil, storage.ErrNotFound
	}
	cp := *c
	return &cp, nil
}

// ListTrending retrieves candidates ordered by quality score DESC.
func (s *CandidateStore) ListTrending(_ context.Context, limit int) ([]*domain.CandidateToken, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.CandidateToken
	for _, c := range s.data {
		cp := *c
		result = append(result, &cp)
	}

	sort.Slice(result, func(i, j int) bool {
		if result[i].QualityScore != result[j].QualityScore {
			return result[i].QualityScore > result[j].QualityScore
		}
		return result[i].Mint < result[j].Mint
	})

	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}
