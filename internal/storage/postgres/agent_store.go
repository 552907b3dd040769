package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"solana-agent-engine/internal/domain"
	"solana-agent-engine/internal/storage"
)

// AgentStore implements storage.AgentStore using PostgreSQL.
type AgentStore struct {
	pool *Pool
}

// NewAgentStore creates a new AgentStore.
func NewAgentStore(pool *Pool) *AgentStore {
	return &AgentStore{pool: pool}
}

// Compile-time interface check.
var _ storage.AgentStore = (*AgentStore)(nil)

const agentColumns = `
	agent_id, wallet_address, encrypted_key, strategy, status, capital_sol,
	total_trades, winning_trades, losing_trades, win_rate, current_streak,
	best_trade_pnl, worst_trade_pnl,
	preferred_narratives, avoided_patterns,
	last_trade_at, created_at, updated_at
`

// Insert adds a new agent. Returns ErrDuplicateKey if agent_id exists.
func (s *AgentStore) Insert(ctx context.Context, a *domain.TradingAgent) error {
	query := `
		INSERT INTO trading_agents (` + agentColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18)
	`

	_, err := s.pool.Exec(ctx, query,
		a.AgentID, a.WalletAddress, a.EncryptedKey, string(a.Strategy), string(a.Status), a.CapitalSOL,
		a.TotalTrades, a.WinningTrades, a.LosingTrades, a.WinRate, a.CurrentStreak,
		a.BestTradePnL, a.WorstTradePnL,
		a.PreferredNarratives, a.AvoidedPatterns,
		a.LastTradeAt, a.CreatedAt, a.UpdatedAt,
	)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert agent: %w", err)
	}
	return nil
}

// GetByID retrieves an agent by its ID. Returns ErrNotFound if not exists.
func (s *AgentStore) GetByID(ctx context.Context, agentID string) (*domain.TradingAgent, error) {
	query := `SELECT ` + agentColumns + ` FROM trading_agents WHERE agent_id = $1`

	row := s.pool.QueryRow(ctx, query, agentID)
	a, err := scanAgent(row)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get agent by id: %w", err)
	}
	return a, nil
}

// ListByStatus retrieves all agents with the given lifecycle status.
func (s *AgentStore) ListByStatus(ctx context.Context, status domain.AgentStatus) ([]*domain.TradingAgent, error) {
	query := `SELECT ` + agentColumns + ` FROM trading_agents WHERE status = $1 ORDER BY agent_id ASC`

	rows, err := s.pool.Query(ctx, query, string(status))
	if err != nil {
		return nil, fmt.Errorf("list agents by status: %w", err)
	}
	defer rows.Close()

	var result []*domain.TradingAgent
	for rows.Next() {
		a, err := scanAgent(rows)
		if err != nil {
			return nil, fmt.Errorf("scan agent: %w", err)
		}
		result = append(result, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate agents: %w", err)
	}
	return result, nil
}

// Update overwrites the stored agent. Returns ErrNotFound if not exists.
func (s *AgentStore) Update(ctx context.Context, a *domain.TradingAgent) error {
	query := `
		UPDATE trading_agents SET
			wallet_address = $2, encrypted_key = $3, strategy = $4, status = $5, capital_sol = $6,
			total_trades = $7, winning_trades = $8, losing_trades = $9, win_rate = $10, current_streak = $11,
			best_trade_pnl = $12, worst_trade_pnl = $13,
			preferred_narratives = $14, avoided_patterns = $15,
			last_trade_at = $16, updated_at = $17
		WHERE agent_id = $1
	`

	tag, err := s.pool.Exec(ctx, query,
		a.AgentID, a.WalletAddress, a.EncryptedKey, string(a.Strategy), string(a.Status), a.CapitalSOL,
		a.TotalTrades, a.WinningTrades, a.LosingTrades, a.WinRate, a.CurrentStreak,
		a.BestTradePnL, a.WorstTradePnL,
		a.PreferredNarratives, a.AvoidedPatterns,
		a.LastTradeAt, a.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("update agent: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// scanAgent scans one row into a TradingAgent.
func scanAgent(row pgx.Row) (*domain.TradingAgent, error) {
	var a domain.TradingAgent
	var strategy, status string

	err := row.Scan(
		&a.AgentID, &a.WalletAddress, &a.EncryptedKey, &strategy, &status, &a.CapitalSOL,
		&a.TotalTrades, &a.WinningTrades, &a.LosingTrades, &a.WinRate, &a.CurrentStreak,
		&a.BestTradePnL, &a.WorstTradePnL,
		&a.PreferredNarratives, &a.AvoidedPatterns,
		&a.LastTradeAt, &a.CreatedAt, &a.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	a.Strategy = domain.StrategyType(strategy)
	a.Status = domain.AgentStatus(status)
	return &a, nil
}
