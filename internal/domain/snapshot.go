package domain

// PriceSnapshot is one monitoring observation of an open position.
// Written best-effort per sub-poll into ClickHouse for post-hoc analysis;
// never read by the trading hot path.
type PriceSnapshot struct {
	PositionID  string
	AgentID     string
	Mint        string
	TimestampMs int64
	Price       float64 // SOL per token
	Source      string  // which price source answered
	PnLPct      float64
}
