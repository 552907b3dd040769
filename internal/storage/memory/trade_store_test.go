package memory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"solana-agent-engine/internal/domain"
	"solana-agent-engine/internal/storage"
)

func makeTrade(id, agentID, mint string, executedAt int64) *domain.Trade {
	return &domain.Trade{
		TradeID:    id,
		AgentID:    agentID,
		PositionID: "pos-" + id,
		Mint:       mint,
		Side:       domain.TradeBuy,
		AmountSOL:  0.1,
		Price:      1e-6,
		ExecutedAt: executedAt,
	}
}

func TestTradeStore_AppendOnly(t *testing.T) {
	ctx := context.Background()
	store := NewTradeStore()

	tr := makeTrade("t1", "agent-1", "MintA", 1000)
	require.NoError(t, store.Insert(ctx, tr))
	assert.ErrorIs(t, store.Insert(ctx, tr), storage.ErrDuplicateKey)
}

func TestTradeStore_ListByAgent_RecentFirstLimited(t *testing.T) {
	ctx := context.Background()
	store := NewTradeStore()

	require.NoError(t, store.Insert(ctx, makeTrade("t1", "agent-1", "MintA", 1000)))
	require.NoError(t, store.Insert(ctx, makeTrade("t2", "agent-1", "MintB", 3000)))
	require.NoError(t, store.Insert(ctx, makeTrade("t3", "agent-1", "MintC", 2000)))
	require.NoError(t, store.Insert(ctx, makeTrade("t4", "agent-2", "MintA", 4000)))

	trades, err := store.ListByAgent(ctx, "agent-1", 2)
	require.NoError(t, err)
	require.Len(t, trades, 2)
	assert.Equal(t, "t2", trades[0].TradeID)
	assert.Equal(t, "t3", trades[1].TradeID)
}

func TestTradeStore_ListByAgentSince_WindowBoundary(t *testing.T) {
	ctx := context.Background()
	store := NewTradeStore()

	require.NoError(t, store.Insert(ctx, makeTrade("t1", "agent-1", "MintA", 999)))
	require.NoError(t, store.Insert(ctx, makeTrade("t2", "agent-1", "MintB", 1000)))
	require.NoError(t, store.Insert(ctx, makeTrade("t3", "agent-1", "MintC", 1500)))

	trades, err := store.ListByAgentSince(ctx, "agent-1", 1000)
	require.NoError(t, err)
	require.Len(t, trades, 2)
	assert.Equal(t, "t2", trades[0].TradeID)
	assert.Equal(t, "t3", trades[1].TradeID)

	// Re-querying with no new trades yields the same set.
	again, err := store.ListByAgentSince(ctx, "agent-1", 1000)
	require.NoError(t, err)
	assert.Equal(t, len(trades), len(again))
}

func TestTradeStore_ListByPosition(t *testing.T) {
	ctx := context.Background()
	store := NewTradeStore()

	buy := makeTrade("t1", "agent-1", "MintA", 1000)
	sell := makeTrade("t2", "agent-1", "MintA", 2000)
	sell.PositionID = buy.PositionID
	sell.Side = domain.TradeSell
	require.NoError(t, store.Insert(ctx, buy))
	require.NoError(t, store.Insert(ctx, sell))

	trades, err := store.ListByPosition(ctx, buy.PositionID)
	require.NoError(t, err)
	require.Len(t, trades, 2)
	assert.Equal(t, domain.TradeBuy, trades[0].Side)
	assert.Equal(t, domain.TradeSell, trades[1].Side)
}
