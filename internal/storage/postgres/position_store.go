package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"solana-agent-engine/internal/domain"
	"solana-agent-engine/internal/storage"
)

// PositionStore implements storage.PositionStore using PostgreSQL.
type PositionStore struct {
	pool *Pool
}

// NewPositionStore creates a new PositionStore.
func NewPositionStore(pool *Pool) *PositionStore {
	return &PositionStore{pool: pool}
}

// Compile-time interface check.
var _ storage.PositionStore = (*PositionStore)(nil)

const positionColumns = `
	position_id, agent_id, mint, symbol,
	entry_price, current_price, quantity, decimals, invested_sol,
	target_price, stop_price,
	tp_order_pubkey, tp_order_status, sl_order_pubkey, sl_order_status,
	status, realized_pnl, close_reason, opened_at, closed_at, updated_at
`

// Insert adds a new position. Returns ErrDuplicateKey if position_id exists.
func (s *PositionStore) Insert(ctx context.Context, p *domain.Position) error {
	query := `
		INSERT INTO positions (` + positionColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $21)
	`

	_, err := s.pool.Exec(ctx, query,
		p.PositionID, p.AgentID, p.Mint, p.Symbol,
		p.EntryPrice, p.CurrentPrice, p.Quantity, p.Decimals, p.InvestedSOL,
		p.TargetPrice, p.StopPrice,
		p.TakeProfitOrder.Pubkey, string(p.TakeProfitOrder.Status),
		p.StopLossOrder.Pubkey, string(p.StopLossOrder.Status),
		string(p.Status), p.RealizedPnL, p.CloseReason, p.OpenedAt, p.ClosedAt, p.UpdatedAt,
	)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert position: %w", err)
	}
	return nil
}

// GetByID retrieves a position by its ID. Returns ErrNotFound if not exists.
func (s *PositionStore) GetByID(ctx context.Context, positionID string) (*domain.Position, error) {
	query := `SELECT ` + positionColumns + ` FROM positions WHERE position_id = $1`

	row := s.pool.QueryRow(ctx, query, positionID)
	p, err := scanPosition(row)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get position by id: %w", err)
	}
	return p, nil
}

// ListOpen retrieves all open positions across agents, ordered by opened_at ASC.
func (s *PositionStore) ListOpen(ctx context.Context) ([]*domain.Position, error) {
	query := `
		SELECT ` + positionColumns + `
		FROM positions
		WHERE status = $1
		ORDER BY opened_at ASC, position_id ASC
	`

	rows, err := s.pool.Query(ctx, query, string(domain.PositionOpen))
	if err != nil {
		return nil, fmt.Errorf("list open positions: %w", err)
	}
	defer rows.Close()

	return scanPositions(rows)
}

// ListOpenByAgent retrieves open positions for one agent.
func (s *PositionStore) ListOpenByAgent(ctx context.Context, agentID string) ([]*domain.Position, error) {
	query := `
		SELECT ` + positionColumns + `
		FROM positions
		WHERE agent_id = $1 AND status = $2
		ORDER BY opened_at ASC, position_id ASC
	`

	rows, err := s.pool.Query(ctx, query, agentID, string(domain.PositionOpen))
	if err != nil {
		return nil, fmt.Errorf("list open positions by agent: %w", err)
	}
	defer rows.Close()

	return scanPositions(rows)
}

// Update overwrites the stored position. Returns ErrNotFound if not exists
// and ErrTerminalPosition if the stored row is already terminal.
// The status guard runs in the same statement so overlapping worker passes
// cannot resurrect a closed position.
func (s *PositionStore) Update(ctx context.Context, p *domain.Position) error {
	query := `
		UPDATE positions SET
			current_price = $2, quantity = $3,
			tp_order_pubkey = $4, tp_order_status = $5,
			sl_order_pubkey = $6, sl_order_status = $7,
			status = $8, realized_pnl = $9, close_reason = $10,
			closed_at = $11, updated_at = $12
		WHERE position_id = $1 AND status = $13
	`

	tag, err := s.pool.Exec(ctx, query,
		p.PositionID, p.CurrentPrice, p.Quantity,
		p.TakeProfitOrder.Pubkey, string(p.TakeProfitOrder.Status),
		p.StopLossOrder.Pubkey, string(p.StopLossOrder.Status),
		string(p.Status), p.RealizedPnL, p.CloseReason,
		p.ClosedAt, p.UpdatedAt,
		string(domain.PositionOpen),
	)
	if err != nil {
		return fmt.Errorf("update position: %w", err)
	}
	if tag.RowsAffected() == 0 {
		// Distinguish missing row from terminal row.
		var status string
		err := s.pool.QueryRow(ctx, `SELECT status FROM positions WHERE position_id = $1`, p.PositionID).Scan(&status)
		if err != nil {
			if isNotFoundError(err) {
				return storage.ErrNotFound
			}
			return fmt.Errorf("check position status: %w", err)
		}
		return storage.ErrTerminalPosition
	}
	return nil
}

// scanPosition scans one row into a Position.
func scanPosition(row pgx.Row) (*domain.Position, error) {
	var p domain.Position
	var tpStatus, slStatus, status string

	err := row.Scan(
		&p.PositionID, &p.AgentID, &p.Mint, &p.Symbol,
		&p.EntryPrice, &p.CurrentPrice, &p.Quantity, &p.Decimals, &p.InvestedSOL,
		&p.TargetPrice, &p.StopPrice,
		&p.TakeProfitOrder.Pubkey, &tpStatus,
		&p.StopLossOrder.Pubkey, &slStatus,
		&status, &p.RealizedPnL, &p.CloseReason, &p.OpenedAt, &p.ClosedAt, &p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	p.TakeProfitOrder.Status = domain.OrderStatus(tpStatus)
	p.StopLossOrder.Status = domain.OrderStatus(slStatus)
	p.Status = domain.PositionStatus(status)
	return &p, nil
}

// scanPositions scans all rows into Positions.
func scanPositions(rows pgx.Rows) ([]*domain.Position, error) {
	var result []*domain.Position
	for rows.Next() {
		p, err := scanPosition(rows)
		if err != nil {
			return nil, fmt.Errorf("scan position: %w", err)
		}
		result = append(result, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate positions: %w", err)
	}
	return result, nil
}
