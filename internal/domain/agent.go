package domain

// AgentStatus is the lifecycle status of a trading agent.
type AgentStatus string

// Agent lifecycle statuses.
const (
	AgentStatusPending AgentStatus = "pending"
	AgentStatusActive  AgentStatus = "active"
	AgentStatusPaused  AgentStatus = "paused"
)

// TradingAgent represents one autonomous trader with a custodial wallet.
// Corresponds to trading_agents table in PostgreSQL.
type TradingAgent struct {
	AgentID       string  // PRIMARY KEY
	WalletAddress string  // base58 custodial wallet pubkey
	EncryptedKey  string  // base64(salt || nonce || ciphertext), see wallet.Vault
	Strategy      StrategyType
	Status        AgentStatus
	CapitalSOL    float64 // tracked capital in SOL, resynced against chain

	// Cumulative stats, updated by the closure pipeline.
	TotalTrades   int
	WinningTrades int
	LosingTrades  int
	WinRate       float64
	CurrentStreak int     // positive = consecutive wins, negative = consecutive losses
	BestTradePnL  float64 // SOL
	WorstTradePnL float64 // SOL

	// Adaptive preferences, written only by strategy review.
	PreferredNarratives []string
	AvoidedPatterns     []string

	LastTradeAt int64 // Unix ms, zero if never traded
	CreatedAt   int64 // Unix ms
	UpdatedAt   int64 // Unix ms
}

// Eligible reports whether the agent may be considered by the execution
// worker at all. Capital and cooldown gates are checked separately.
func (a *TradingAgent) Eligible() bool {
	return a.Status == AgentStatusActive
}
