package memory

import (
	"context"
	"sort"
	"sync"

	"solana-agent-engine/internal/domain"
	"solana-agent-engine/internal/storage"
)

// ReviewStore is an in-memory implementation of storage.ReviewStore.
type ReviewStore struct {
	mu   sync.RWMutex
	data map[string]*domain.StrategyReview // keyed by review_id
}

// NewReviewStore creates a new in-memory review store.
func NewReviewStore() *ReviewStore {
	return &ReviewStore{
		data: make(map[string]*domain.StrategyReview),
	}
}

// Compile-time interface check.
var _ storage.ReviewStore = (*ReviewStore)(nil)

// Insert adds a new review. Returns ErrDuplicateKey if review_id exists.
func (s *ReviewStore) Insert(_ context.Context, r *domain.StrategyReview) error {
	if r == nil || r.ReviewID == "" || r.AgentID == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.data[r.ReviewID]; exists {
		return storage.ErrDuplicateKey
	}

	cp := *r
	cp.PreferredNarratives = append([]string(nil), r.PreferredNarratives...)
	cp.AvoidedPatterns = append([]string(nil), r.AvoidedPatterns...)
	s.data[r.ReviewID] = &cp
	return nil
}

// ListByAgent retrieves reviews for an agent, ordered by created_at DESC.
func (s *ReviewStore) ListByAgent(_ context.Context, agentID string) ([]*domain.StrategyReview, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.StrategyReview
	for _, r := range s.data {
		if r.AgentID == agentID {
			cp := *r
			cp.PreferredNarratives = append([]string(nil), r.PreferredNarratives...)
			cp.AvoidedPatterns = append([]string(nil), r.AvoidedPatterns...)
			result = append(result, &cp)
		}
	}

	sort.Slice(result, func(i, j int) bool {
		if result[i].CreatedAt != result[j].CreatedAt {
			return result[i].CreatedAt > result[j].CreatedAt
		}
		return result[i].ReviewID < result[j].ReviewID
	})
	return result, nil
}
