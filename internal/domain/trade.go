package domain

// TradeSide distinguishes buys from sells in the trade ledger.
type TradeSide string

// Trade sides.
const (
	TradeBuy  TradeSide = "buy"
	TradeSell TradeSide = "sell"
)

// Trade is one append-only ledger row. Sell trades link to the same
// position their paired buy opened. Never mutated after insertion.
// Corresponds to trades table in PostgreSQL.
type Trade struct {
	TradeID    string // PRIMARY KEY, deterministic hash
	AgentID    string
	PositionID string
	Mint       string
	Side       TradeSide

	AmountSOL float64 // SOL spent (buy) or received (sell)
	Price     float64 // SOL per token at execution
	Quantity  float64 // UI token amount

	Confidence float64 // decision-service confidence, 0 for sells
	Narrative  string  // decision-service rationale / exit reason
	Signature  string  // on-chain transaction signature

	ExecutedAt int64 // Unix ms
}
