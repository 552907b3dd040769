package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"solana-agent-engine/internal/domain"
	"solana-agent-engine/internal/storage"
)

// TradeStore implements storage.TradeStore using PostgreSQL.
// The trades table is append-only; there is no update path.
type TradeStore struct {
	pool *Pool
}

// NewTradeStore creates a new TradeStore.
func NewTradeStore(pool *Pool) *TradeStore {
	return &TradeStore{pool: pool}
}

// Compile-time interface check.
var _ storage.TradeStore = (*TradeStore)(nil)

const tradeColumns = `
	trade_id, agent_id, position_id, mint, side,
	amount_sol, price, quantity, confidence, narrative, signature, executed_at
`

// Insert adds a new trade. Returns ErrDuplicateKey if trade_id exists.
func (s *TradeStore) Insert(ctx context.Context, t *domain.Trade) error {
	query := `
		INSERT INTO trades (` + tradeColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`

	_, err := s.pool.Exec(ctx, query,
		t.TradeID, t.AgentID, t.PositionID, t.Mint, string(t.Side),
		t.AmountSOL, t.Price, t.Quantity, t.Confidence, t.Narrative, t.Signature, t.ExecutedAt,
	)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert trade: %w", err)
	}
	return nil
}

// ListByAgent retrieves the most recent trades for an agent,
// ordered by executed_at DESC, limited to limit rows.
func (s *TradeStore) ListByAgent(ctx context.Context, agentID string, limit int) ([]*domain.Trade, error) {
	query := `
		SELECT ` + tradeColumns + `
		FROM trades
		WHERE agent_id = $1
		ORDER BY executed_at DESC, trade_id ASC
		LIMIT $2
	`

	rows, err := s.pool.Query(ctx, query, agentID, limit)
	if err != nil {
		return nil, fmt.Errorf("list trades by agent: %w", err)
	}
	defer rows.Close()

	return scanTrades(rows)
}

// ListByAgentSince retrieves trades for an agent executed at or after sinceMs.
func (s *TradeStore) ListByAgentSince(ctx context.Context, agentID string, sinceMs int64) ([]*domain.Trade, error) {
	query := `
		SELECT ` + tradeColumns + `
		FROM trades
		WHERE agent_id = $1 AND executed_at >= $2
		ORDER BY executed_at ASC, trade_id ASC
	`

	rows, err := s.pool.Query(ctx, query, agentID, sinceMs)
	if err != nil {
		return nil, fmt.Errorf("list trades by agent since: %w", err)
	}
	defer rows.Close()

	return scanTrades(rows)
}

// ListByPosition retrieves all trades linked to a position.
func (s *TradeStore) ListByPosition(ctx context.Context, positionID string) ([]*domain.Trade, error) {
	query := `
		SELECT ` + tradeColumns + `
		FROM trades
		WHERE position_id = $1
		ORDER BY executed_at ASC, trade_id ASC
	`

	rows, err := s.pool.Query(ctx, query, positionID)
	if err != nil {
		return nil, fmt.Errorf("list trades by position: %w", err)
	}
	defer rows.Close()

	return scanTrades(rows)
}

// scanTrade scans one row into a Trade.
func scanTrade(row pgx.Row) (*domain.Trade, error) {
	var t domain.Trade
	var side string

	err := row.Scan(
		&t.TradeID, &t.AgentID, &t.PositionID, &t.Mint, &side,
		&t.AmountSOL, &t.Price, &t.Quantity, &t.Confidence, &t.Narrative, &t.Signature, &t.ExecutedAt,
	)
	if err != nil {
		return nil, err
	}

	t.Side = domain.TradeSide(side)
	return &t, nil
}

// scanTrades scans all rows into Trades.
func scanTrades(rows pgx.Rows) ([]*domain.Trade, error) {
	var result []*domain.Trade
	for rows.Next() {
		t, err := scanTrade(rows)
		if err != nil {
			return nil, fmt.Errorf("scan trade: %w", err)
		}
		result = append(result, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate trades: %w", err)
	}
	return result, nil
}
