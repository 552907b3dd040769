package domain

// CandidateToken is a trending-token snapshot consumed by the execution
// worker. Read-only external input, not owned by this engine.
type CandidateToken struct {
	Mint         string  // token mint address
	Symbol       string
	Name         string
	Decimals     int
	PriceSOL     float64 // last observed price in SOL
	LiquiditySOL float64 // pool liquidity in SOL
	QualityScore float64 // 0..100 trending quality score
	Narrative    string  // e.g. "ai", "meme", "defi"
	BondingCurve string  // bonding curve account, empty once migrated
	ObservedAt   int64   // Unix ms
}
