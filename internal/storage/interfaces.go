package storage

import (
	"context"

	"solana-agent-engine/internal/domain"
)

// AgentStore provides access to trading_agents storage.
type AgentStore interface {
	// Insert adds a new agent. Returns ErrDuplicateKey if agent_id exists.
	Insert(ctx context.Context, a *domain.TradingAgent) error

	// GetByID retrieves an agent by its ID. Returns ErrNotFound if not exists.
	GetByID(ctx context.Context, agentID string) (*domain.TradingAgent, error)

	// ListByStatus retrieves all agents with the given lifecycle status.
	ListByStatus(ctx context.Context, status domain.AgentStatus) ([]*domain.TradingAgent, error)

	// Update overwrites the stored agent. Returns ErrNotFound if not exists.
	Update(ctx context.Context, a *domain.TradingAgent) error
}

// PositionStore provides access to positions storage.
type PositionStore interface {
	// Insert adds a new position. Returns ErrDuplicateKey if position_id exists.
	Insert(ctx context.Context, p *domain.Position) error

	// GetByID retrieves a position by its ID. Returns ErrNotFound if not exists.
	GetByID(ctx context.Context, positionID string) (*domain.Position, error)

	// ListOpen retrieves all open positions across agents, ordered by opened_at ASC.
	ListOpen(ctx context.Context) ([]*domain.Position, error)

	// ListOpenByAgent retrieves open positions for one agent.
	ListOpenByAgent(ctx context.Context, agentID string) ([]*domain.Position, error)

	// Update overwrites the stored position. Returns ErrNotFound if not
	// exists and ErrTerminalPosition if the stored row is already terminal.
	Update(ctx context.Context, p *domain.Position) error
}

// TradeStore provides access to the append-only trades ledger.
type TradeStore interface {
	// Insert adds a new trade. Returns ErrDuplicateKey if trade_id exists.
	// Trades are never updated or deleted.
	Insert(ctx context.Context, t *domain.Trade) error

	// ListByAgent retrieves the most recent trades for an agent,
	// ordered by executed_at DESC, limited to limit rows.
	ListByAgent(ctx context.Context, agentID string, limit int) ([]*domain.Trade, error)

	// ListByAgentSince retrieves trades for an agent executed at or after
	// sinceMs. Used by the race-protection dedup window.
	ListByAgentSince(ctx context.Context, agentID string, sinceMs int64) ([]*domain.Trade, error)

	// ListByPosition retrieves all trades linked to a position.
	ListByPosition(ctx context.Context, positionID string) ([]*domain.Trade, error)
}

// ReviewStore provides access to strategy_reviews storage.
type ReviewStore interface {
	// Insert adds a new review. Returns ErrDuplicateKey if review_id exists.
	Insert(ctx context.Context, r *domain.StrategyReview) error

	// ListByAgent retrieves reviews for an agent, ordered by created_at DESC.
	ListByAgent(ctx context.Context, agentID string) ([]*domain.StrategyReview, error)
}

// CandidateStore provides read access to the trending-token snapshot.
// The snapshot is produced outside this engine; the engine only reads it.
type CandidateStore interface {
	// Upsert stores or refreshes a candidate keyed by mint.
	Upsert(ctx context.Context, c *domain.CandidateToken) error

	// GetByMint retrieves a candidate by mint. Returns ErrNotFound if not exists.
	GetByMint(ctx context.Context, mint string) (*domain.CandidateToken, error)

	// ListTrending retrieves candidates ordered by quality score DESC,
	// limited to limit rows.
	ListTrending(ctx context.Context, limit int) ([]*domain.CandidateToken, error)
}

// PriceSnapshotStore records monitoring price observations.
// Write-only from the engine's perspective; analytics read it elsewhere.
type PriceSnapshotStore interface {
	// InsertBulk adds snapshot points. Best-effort telemetry, no dedup.
	InsertBulk(ctx context.Context, points []*domain.PriceSnapshot) error
}
