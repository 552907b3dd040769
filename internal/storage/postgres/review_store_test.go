package postgres_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"solana-agent-engine/internal/domain"
	"solana-agent-engine/internal/storage"
	"solana-agent-engine/internal/storage/postgres"
)

func TestReviewStore_InsertAndListByAgent(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := postgres.NewReviewStore(pool)
	ctx := context.Background()
	insertTestAgent(t, pool, "agent-rev")

	first := &domain.StrategyReview{
		ReviewID:            "rev-001",
		AgentID:             "agent-rev",
		TradesReviewed:      10,
		WinRate:             0.6,
		NetPnL:              0.42,
		PreferredNarratives: []string{"ai"},
		AvoidedPatterns:     []string{"meme"},
		Summary:             "10 trades reviewed, 60% win rate, +0.4200 SOL net",
		TriggerReason:       "trade_count",
		CreatedAt:           1700000000000,
	}
	second := &domain.StrategyReview{
		ReviewID:            "rev-002",
		AgentID:             "agent-rev",
		TradesReviewed:      4,
		WinRate:             0.0,
		NetPnL:              -0.3,
		PreferredNarratives: []string{},
		AvoidedPatterns:     []string{"gaming"},
		TriggerReason:       "loss_streak",
		CreatedAt:           1700000100000,
	}

	require.NoError(t, store.Insert(ctx, first))
	require.NoError(t, store.Insert(ctx, second))

	reviews, err := store.ListByAgent(ctx, "agent-rev")
	require.NoError(t, err)
	require.Len(t, reviews, 2)
	assert.Equal(t, "rev-002", reviews[0].ReviewID, "newest first")
	assert.Equal(t, "loss_streak", reviews[0].TriggerReason)
	assert.Equal(t, "rev-001", reviews[1].ReviewID)
	assert.Equal(t, []string{"ai"}, reviews[1].PreferredNarratives)
	assert.Equal(t, []string{"meme"}, reviews[1].AvoidedPatterns)
}

func TestReviewStore_InsertDuplicate(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := postgres.NewReviewStore(pool)
	ctx := context.Background()
	insertTestAgent(t, pool, "agent-rev")

	review := &domain.StrategyReview{
		ReviewID:            "rev-dup",
		AgentID:             "agent-rev",
		PreferredNarratives: []string{},
		AvoidedPatterns:     []string{},
		TriggerReason:       "trade_count",
		CreatedAt:           1700000000000,
	}
	require.NoError(t, store.Insert(ctx, review))
	assert.ErrorIs(t, store.Insert(ctx, review), storage.ErrDuplicateKey)
}
