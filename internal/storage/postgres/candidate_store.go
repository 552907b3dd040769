package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"solana-agent-engine/internal/domain"
	"solana-agent-engine/internal/storage"
)

// CandidateStore implements storage.CandidateStore using PostgreSQL.
// The snapshot is refreshed by an external trending-token job; the engine
// only reads it, but Upsert is provided for that job and for fixtures.
type CandidateStore struct {
	pool *Pool
}

// NewCandidateStore creates a new CandidateStore.
func NewCandidateStore(pool *Pool) *CandidateStore {
	return &CandidateStore{pool: pool}
}

// Compile-time interface check.
var _ storage.CandidateStore = (*CandidateStore)(nil)

const candidateColumns = `
	mint, symbol, name, decimals, price_sol, liquidity_sol,
	quality_score, narrative, bonding_curve, observed_at
`

// Upsert stores or refreshes a candidate keyed by mint.
func (s *CandidateStore) Upsert(ctx context.Context, c *domain.CandidateToken) error {
	query := `
		INSERT INTO candidate_tokens (` + candidateColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (mint) DO UPDATE SET
			symbol = EXCLUDED.symbol, name = EXCLUDED.name, decimals = EXCLUDED.decimals,
			price_sol = EXCLUDED.price_sol, liquidity_sol = EXCLUDED.liquidity_sol,
			quality_score = EXCLUDED.quality_score, narrative = EXCLUDED.narrative,
			bonding_curve = EXCLUDED.bonding_curve, observed_at = EXCLUDED.observed_at
	`

	_, err := s.pool.Exec(ctx, query,
		c.Mint, c.Symbol, c.Name, c.Decimals, c.PriceSOL, c.LiquiditySOL,
		c.QualityScore, c.Narrative, c.BondingCurve, c.ObservedAt,
	)
	if err != nil {
		return fmt.Errorf("upsert candidate: %w", err)
	}
	return nil
}

// GetByMint retrieves a candidate by mint. Returns ErrNotFound if not exists.
func (s *CandidateStore) GetByMint(ctx context.Context, mint string) (*domain.CandidateToken, error) {
	query := `SELECT ` + candidateColumns + ` FROM candidate_tokens WHERE mint = $1`

	row := s.pool.QueryRow(ctx, query, mint)
	c, err := scanCandidate(row)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get candidate by mint: %w", err)
	}
	return c, nil
}

// ListTrending retrieves candidates ordered by quality score DESC.
func (s *CandidateStore) ListTrending(ctx context.Context, limit int) ([]*domain.CandidateToken, error) {
	query := `
		SELECT ` + candidateColumns + `
		FROM candidate_tokens
		ORDER BY quality_score DESC, mint ASC
		LIMIT $1
	`

	rows, err := s.pool.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("list trending candidates: %w", err)
	}
	defer rows.Close()

	var result []*domain.CandidateToken
	for rows.Next() {
		c, err := scanCandidate(rows)
		if err != nil {
			return nil, fmt.Errorf("scan candidate: %w", err)
		}
		result = append(result, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate candidates: %w", err)
	}
	return result, nil
}

// scanCandidate scans one row into a CandidateToken.
func scanCandidate(row pgx.Row) (*domain.CandidateToken, error) {
	var c domain.CandidateToken
	err := row.Scan(
		&c.Mint, &c.Symbol, &c.Name, &c.Decimals, &c.PriceSOL, &c.LiquiditySOL,
		&c.QualityScore, &c.Narrative, &c.BondingCurve, &c.ObservedAt,
	)
	if err != nil {
		return nil, err
	}
	return &c, nil
}
