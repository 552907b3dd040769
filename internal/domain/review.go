package domain

// StrategyReview is a periodic synthesis over recent trades that feeds
// back into the agent's preference lists. Created after every reviewTradeCount
// trades or after a consecutive-loss streak, never by the hot path.
// Corresponds to strategy_reviews table in PostgreSQL.
type StrategyReview struct {
	ReviewID string // PRIMARY KEY, deterministic hash
	AgentID  string

	TradesReviewed int
	WinRate        float64
	NetPnL         float64 // SOL over the reviewed window

	PreferredNarratives []string
	AvoidedPatterns     []string
	Summary             string

	TriggerReason string // "trade_count" | "loss_streak"
	CreatedAt     int64  // Unix ms
}

// Review trigger thresholds.
const (
	ReviewTradeInterval = 10 // review after every N closed trades
	ReviewLossStreak    = 3  // or after N consecutive losses
)
