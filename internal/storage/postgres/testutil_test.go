package postgres_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	pgcontainer "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"solana-agent-engine/internal/domain"
	"solana-agent-engine/internal/storage/migrations"
	"solana-agent-engine/internal/storage/postgres"
)

// setupTestDB starts a PostgreSQL container and applies the embedded
// migrations. Returns a cleanup function that must be called after tests
// complete.
func setupTestDB(t *testing.T) (*postgres.Pool, func()) {
	t.Helper()

	ctx := context.Background()

	container, err := pgcontainer.Run(ctx, "postgres:15-alpine",
		pgcontainer.WithDatabase("testdb"),
		pgcontainer.WithUsername("test"),
		pgcontainer.WithPassword("test"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second),
		),
	)
	require.NoError(t, err, "failed to start postgres container")

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err, "failed to get connection string")

	pool, err := postgres.NewPool(ctx, dsn)
	require.NoError(t, err, "failed to create pool")

	require.NoError(t, migrations.RunPostgresMigrations(ctx, pool), "failed to run migrations")

	cleanup := func() {
		pool.Close()
		if err := container.Terminate(ctx); err != nil {
			t.Logf("failed to terminate container: %v", err)
		}
	}

	return pool, cleanup
}

// insertTestAgent satisfies the foreign keys positions, trades and reviews
// carry.
func insertTestAgent(t *testing.T, pool *postgres.Pool, agentID string) *domain.TradingAgent {
	t.Helper()

	agent := &domain.TradingAgent{
		AgentID:             agentID,
		WalletAddress:       "Wallet" + agentID,
		EncryptedKey:        "encrypted-" + agentID,
		Strategy:            domain.StrategyBalanced,
		Status:              domain.AgentStatusActive,
		CapitalSOL:          1.5,
		PreferredNarratives: []string{},
		AvoidedPatterns:     []string{},
		CreatedAt:           1700000000000,
		UpdatedAt:           1700000000000,
	}
	require.NoError(t, postgres.NewAgentStore(pool).Insert(context.Background(), agent))
	return agent
}
