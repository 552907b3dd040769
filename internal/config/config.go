// Package config loads engine configuration from a YAML file with
// environment overrides for secrets and connection strings.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// LogConfig controls structured logging output.
type LogConfig struct {
	Level  string `yaml:"level"`  // debug|info|warn|error
	Format string `yaml:"format"` // text|json
}

// PostgresConfig holds the relational store connection.
type PostgresConfig struct {
	DSN string `yaml:"dsn"`
}

// ClickHouseConfig holds the snapshot timeseries connection. Optional:
// without it price snapshots are simply not recorded.
type ClickHouseConfig struct {
	DSN string `yaml:"dsn"`
}

// SolanaConfig holds chain access endpoints.
type SolanaConfig struct {
	RPCURL        string `yaml:"rpc_url"`
	WSURL         string `yaml:"ws_url"`         // optional confirmation fast path
	OracleAccount string `yaml:"oracle_account"` // SOL/USD price account
}

// SwapConfig holds the swap pipeline endpoints.
type SwapConfig struct {
	AggregatorURL  string   `yaml:"aggregator_url"`
	RelayEndpoints []string `yaml:"relay_endpoints"`
	SlippageBps    int      `yaml:"slippage_bps"`
}

// PriceConfig holds the price-chain endpoints.
type PriceConfig struct {
	AggregatorURL   string `yaml:"aggregator_url"`
	DexAnalyticsURL string `yaml:"dex_analytics_url"`
	CoingeckoURL    string `yaml:"coingecko_url"`
	ExchangeURL     string `yaml:"exchange_url"`
}

// ServicesConfig holds the remaining external collaborators.
type ServicesConfig struct {
	OrderServiceURL    string `yaml:"order_service_url"`
	DecisionServiceURL string `yaml:"decision_service_url"`
	SocialServiceURL   string `yaml:"social_service_url"`
	SocialCommunityID  string `yaml:"social_community_id"`
}

// EngineConfig holds scheduling and serving knobs.
type EngineConfig struct {
	ExecutionInterval time.Duration `yaml:"execution_interval"`
	MonitorInterval   time.Duration `yaml:"monitor_interval"`
	CandidateLimit    int           `yaml:"candidate_limit"`
	MetricsAddr       string        `yaml:"metrics_addr"`
}

// Config is the full engine configuration.
type Config struct {
	Postgres   PostgresConfig   `yaml:"postgres"`
	ClickHouse ClickHouseConfig `yaml:"clickhouse"`
	Solana     SolanaConfig     `yaml:"solana"`
	Swap       SwapConfig       `yaml:"swap"`
	Price      PriceConfig      `yaml:"price"`
	Services   ServicesConfig   `yaml:"services"`
	Engine     EngineConfig     `yaml:"engine"`
	Log        LogConfig        `yaml:"log"`

	// WalletSecret decrypts agent signing keys. Environment only, never
	// read from the YAML file.
	WalletSecret string `yaml:"-"`
}

// Load reads the config file, applies environment overrides and validates.
// A missing .env file is not an error.
func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Swap:   SwapConfig{SlippageBps: 300},
		Engine: EngineConfig{ExecutionInterval: time.Minute, MonitorInterval: time.Minute, CandidateLimit: 20, MetricsAddr: ":9090"},
		Log:    LogConfig{Level: "info", Format: "text"},
	}

	if path != "" {
		body, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config file %q: %w", path, err)
		}
		if err := yaml.Unmarshal(body, cfg); err != nil {
			return nil, fmt.Errorf("parse config file %q: %w", path, err)
		}
	}

	applyEnvOverrides(cfg)

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func applyEnvOverrides(cfg *Config) {
	if v := strings.TrimSpace(os.Getenv("DATABASE_URL")); v != "" {
		cfg.Postgres.DSN = v
	}
	if v := strings.TrimSpace(os.Getenv("CLICKHOUSE_URL")); v != "" {
		cfg.ClickHouse.DSN = v
	}
	if v := strings.TrimSpace(os.Getenv("SOLANA_RPC_URL")); v != "" {
		cfg.Solana.RPCURL = v
	}
	if v := strings.TrimSpace(os.Getenv("SOLANA_WS_URL")); v != "" {
		cfg.Solana.WSURL = v
	}
	cfg.WalletSecret = strings.TrimSpace(os.Getenv("WALLET_VAULT_SECRET"))
}

func (c *Config) validate() error {
	var missing []string
	if c.Postgres.DSN == "" {
		missing = append(missing, "postgres.dsn (or DATABASE_URL)")
	}
	if c.Solana.RPCURL == "" {
		missing = append(missing, "solana.rpc_url (or SOLANA_RPC_URL)")
	}
	if c.Swap.AggregatorURL == "" {
		missing = append(missing, "swap.aggregator_url")
	}
	if c.Services.DecisionServiceURL == "" {
		missing = append(missing, "services.decision_service_url")
	}
	if c.WalletSecret == "" {
		missing = append(missing, "WALLET_VAULT_SECRET")
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing required configuration: %s", strings.Join(missing, ", "))
	}
	if c.Swap.SlippageBps <= 0 || c.Swap.SlippageBps > 10_000 {
		return fmt.Errorf("swap.slippage_bps %d outside (0, 10000]", c.Swap.SlippageBps)
	}
	if c.Engine.ExecutionInterval <= 0 || c.Engine.MonitorInterval <= 0 {
		return fmt.Errorf("engine intervals must be positive")
	}
	return nil
}
