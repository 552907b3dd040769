package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const validYAML = `
postgres:
  dsn: postgres://localhost:5432/engine
solana:
  rpc_url: https://rpc.example.com
  ws_url: wss://rpc.example.com
swap:
  aggregator_url: https://agg.example.com
  relay_endpoints:
    - https://relay-a.example.com
    - https://relay-b.example.com
  slippage_bps: 500
services:
  decision_service_url: https://decide.example.com
engine:
  execution_interval: 2m
  monitor_interval: 1m
log:
  level: debug
  format: json
`

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoad_FileAndDefaults(t *testing.T) {
	t.Setenv("WALLET_VAULT_SECRET", "test-secret")

	cfg, err := Load(writeConfig(t, validYAML))
	require.NoError(t, err)

	assert.Equal(t, "postgres://localhost:5432/engine", cfg.Postgres.DSN)
	assert.Equal(t, 500, cfg.Swap.SlippageBps)
	assert.Len(t, cfg.Swap.RelayEndpoints, 2)
	assert.Equal(t, 2*time.Minute, cfg.Engine.ExecutionInterval)
	assert.Equal(t, "json", cfg.Log.Format)
	assert.Equal(t, 20, cfg.Engine.CandidateLimit, "unset values keep defaults")
	assert.Equal(t, "test-secret", cfg.WalletSecret)
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	t.Setenv("WALLET_VAULT_SECRET", "test-secret")
	t.Setenv("DATABASE_URL", "postgres://override:5432/other")
	t.Setenv("SOLANA_RPC_URL", "https://override-rpc.example.com")

	cfg, err := Load(writeConfig(t, validYAML))
	require.NoError(t, err)

	assert.Equal(t, "postgres://override:5432/other", cfg.Postgres.DSN)
	assert.Equal(t, "https://override-rpc.example.com", cfg.Solana.RPCURL)
}

func TestLoad_MissingSecret(t *testing.T) {
	t.Setenv("WALLET_VAULT_SECRET", "")

	_, err := Load(writeConfig(t, validYAML))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "WALLET_VAULT_SECRET")
}

func TestLoad_MissingRequiredFields(t *testing.T) {
	t.Setenv("WALLET_VAULT_SECRET", "test-secret")
	t.Setenv("DATABASE_URL", "")
	t.Setenv("SOLANA_RPC_URL", "")

	_, err := Load(writeConfig(t, "log:\n  level: info\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "postgres.dsn")
	assert.Contains(t, err.Error(), "swap.aggregator_url")
}

func TestLoad_InvalidSlippage(t *testing.T) {
	t.Setenv("WALLET_VAULT_SECRET", "test-secret")

	body := validYAML + "\n"
	cfgPath := writeConfig(t, body)
	cfg, err := Load(cfgPath)
	require.NoError(t, err)
	require.NotNil(t, cfg)

	badPath := writeConfig(t, `
postgres:
  dsn: postgres://localhost:5432/engine
solana:
  rpc_url: https://rpc.example.com
swap:
  aggregator_url: https://agg.example.com
  slippage_bps: 20000
services:
  decision_service_url: https://decide.example.com
`)
	_, err = Load(badPath)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "slippage_bps")
}
