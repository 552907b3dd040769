package postgres

import (
	"context"
	"fmt"

	"solana-agent-engine/internal/domain"
	"solana-agent-engine/internal/storage"
)

// ReviewStore implements storage.ReviewStore using PostgreSQL.
type ReviewStore struct {
	pool *Pool
}

// NewReviewStore creates a new ReviewStore.
func NewReviewStore(pool *Pool) *ReviewStore {
	return &ReviewStore{pool: pool}
}

// Compile-time interface check.
var _ storage.ReviewStore = (*ReviewStore)(nil)

// Insert adds a new review. Returns ErrDuplicateKey if review_id exists.
func (s *ReviewStore) Insert(ctx context.Context, r *domain.StrategyReview) error {
	query := `
		INSERT INTO strategy_reviews (
			review_id, agent_id, trades_reviewed, win_rate, net_pnl,
			preferred_narratives, avoided_patterns, summary, trigger_reason, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`

	_, err := s.pool.Exec(ctx, query,
		r.ReviewID, r.AgentID, r.TradesReviewed, r.WinRate, r.NetPnL,
		r.PreferredNarratives, r.AvoidedPatterns, r.Summary, r.TriggerReason, r.CreatedAt,
	)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert review: %w", err)
	}
	return nil
}

// ListByAgent retrieves reviews for an agent, ordered by created_at DESC.
func (s *ReviewStore) ListByAgent(ctx context.Context, agentID string) ([]*domain.StrategyReview, error) {
	query := `
		SELECT review_id, agent_id, trades_reviewed, win_rate, net_pnl,
			preferred_narratives, avoided_patterns, summary, trigger_reason, created_at
		FROM strategy_reviews
		WHERE agent_id = $1
		ORDER BY created_at DESC, review_id ASC
	`

	rows, err := s.pool.Query(ctx, query, agentID)
	if err != nil {
		return nil, fmt.Errorf("list reviews by agent: %w", err)
	}
	defer rows.Close()

	var result []*domain.StrategyReview
	for rows.Next() {
		var r domain.StrategyReview
		err := rows.Scan(
			&r.ReviewID, &r.AgentID, &r.TradesReviewed, &r.WinRate, &r.NetPnL,
			&r.PreferredNarratives, &r.AvoidedPatterns, &r.Summary, &r.TriggerReason, &r.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan review: %w", err)
		}
		result = append(result, &r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate reviews: %w", err)
	}
	return result, nil
}
