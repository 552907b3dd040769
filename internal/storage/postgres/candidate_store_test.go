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

func testCandidate(mint string, score float64) *domain.CandidateToken {
	return &domain.CandidateToken{
		Mint:         mint,
		Symbol:       "TOK",
		Name:         "Token " + mint,
		Decimals:     6,
		PriceSOL:     1.2e-6,
		LiquiditySOL: 150,
		QualityScore: score,
		Narrative:    "ai",
		BondingCurve: "Curve" + mint,
		ObservedAt:   1700000000000,
	}
}

func TestCandidateStore_UpsertAndGetByMint(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := postgres.NewCandidateStore(pool)
	ctx := context.Background()

	cand := testCandidate("MintAAA", 72)
	require.NoError(t, store.Upsert(ctx, cand))

	got, err := store.GetByMint(ctx, "MintAAA")
	require.NoError(t, err)
	assert.Equal(t, cand.Symbol, got.Symbol)
	assert.Equal(t, cand.QualityScore, got.QualityScore)
	assert.Equal(t, cand.Narrative, got.Narrative)
	assert.Equal(t, cand.BondingCurve, got.BondingCurve)

	// Second upsert refreshes, never duplicates.
	cand.QualityScore = 90
	cand.BondingCurve = "" // migrated off the curve
	require.NoError(t, store.Upsert(ctx, cand))

	got, err = store.GetByMint(ctx, "MintAAA")
	require.NoError(t, err)
	assert.Equal(t, 90.0, got.QualityScore)
	assert.Empty(t, got.BondingCurve)
}

func TestCandidateStore_GetByMintNotFound(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	_, err := postgres.NewCandidateStore(pool).GetByMint(context.Background(), "missing")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestCandidateStore_ListTrendingOrdersByScore(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := postgres.NewCandidateStore(pool)
	ctx := context.Background()

	require.NoError(t, store.Upsert(ctx, testCandidate("MintLow", 10)))
	require.NoError(t, store.Upsert(ctx, testCandidate("MintHigh", 95)))
	require.NoError(t, store.Upsert(ctx, testCandidate("MintMid", 50)))

	trending, err := store.ListTrending(ctx, 2)
	require.NoError(t, err)
	require.Len(t, trending, 2)
	assert.Equal(t, "MintHigh", trending[0].Mint)
	assert.Equal(t, "MintMid", trending[1].Mint)
}
