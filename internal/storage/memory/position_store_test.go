package memory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"solana-agent-engine/internal/domain"
	"solana-agent-engine/internal/storage"
)

func openPosition(id, agentID string, openedAt int64) *domain.Position {
	return &domain.Position{
		PositionID:  id,
		AgentID:     agentID,
		Mint:        "Mint" + id,
		EntryPrice:  1e-6,
		Quantity:    1000,
		InvestedSOL: 0.1,
		Status:      domain.PositionOpen,
		OpenedAt:    openedAt,
	}
}

func TestPositionStore_InsertAndGet(t *testing.T) {
	ctx := context.Background()
	store := NewPositionStore()

	p := openPosition("pos-1", "agent-1", 1000)
	require.NoError(t, store.Insert(ctx, p))

	got, err := store.GetByID(ctx, "pos-1")
	require.NoError(t, err)
	assert.Equal(t, "agent-1", got.AgentID)
	assert.Equal(t, domain.PositionOpen, got.Status)

	// Duplicate insert rejected
	err = store.Insert(ctx, p)
	assert.ErrorIs(t, err, storage.ErrDuplicateKey)
}

func TestPositionStore_GetByID_NotFound(t *testing.T) {
	store := NewPositionStore()
	_, err := store.GetByID(context.Background(), "missing")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestPositionStore_ListOpen_OrderedAndFiltered(t *testing.T) {
	ctx := context.Background()
	store := NewPositionStore()

	require.NoError(t, store.Insert(ctx, openPosition("pos-b", "agent-1", 2000)))
	require.NoError(t, store.Insert(ctx, openPosition("pos-a", "agent-2", 1000)))

	closed := openPosition("pos-c", "agent-1", 500)
	require.NoError(t, store.Insert(ctx, closed))
	closed.Status = domain.PositionClosedManual
	require.NoError(t, store.Update(ctx, closed))

	open, err := store.ListOpen(ctx)
	require.NoError(t, err)
	require.Len(t, open, 2)
	assert.Equal(t, "pos-a", open[0].PositionID)
	assert.Equal(t, "pos-b", open[1].PositionID)

	byAgent, err := store.ListOpenByAgent(ctx, "agent-1")
	require.NoError(t, err)
	require.Len(t, byAgent, 1)
	assert.Equal(t, "pos-b", byAgent[0].PositionID)
}

func TestPositionStore_Update_TerminalIsImmutable(t *testing.T) {
	ctx := context.Background()
	store := NewPositionStore()

	p := openPosition("pos-1", "agent-1", 1000)
	require.NoError(t, store.Insert(ctx, p))

	p.Status = domain.PositionClosedTakeProfit
	require.NoError(t, store.Update(ctx, p))

	// Any further update, even back to open, must be rejected.
	p.Status = domain.PositionOpen
	err := store.Update(ctx, p)
	assert.ErrorIs(t, err, storage.ErrTerminalPosition)

	p.Status = domain.PositionClosedStopLoss
	err = store.Update(ctx, p)
	assert.ErrorIs(t, err, storage.ErrTerminalPosition)

	got, err := store.GetByID(ctx, "pos-1")
	require.NoError(t, err)
	assert.Equal(t, domain.PositionClosedTakeProfit, got.Status)
}

func TestPositionStore_Update_NotFound(t *testing.T) {
	store := NewPositionStore()
	err := store.Update(context.Background(), openPosition("ghost", "agent-1", 1))
	assert.ErrorIs(t, err, storage.ErrNotFound)
}
