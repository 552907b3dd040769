package domain

// StrategyType is the closed set of agent risk profiles.
type StrategyType string

// Strategy type constants.
const (
	StrategyConservative StrategyType = "conservative"
	StrategyBalanced     StrategyType = "balanced"
	StrategyAggressive   StrategyType = "aggressive"
)

// StrategyParams holds the fixed risk parameters of a strategy profile.
type StrategyParams struct {
	StopLossPct      float64 // fraction of entry price, e.g. 0.20
	TakeProfitPct    float64 // fraction of entry price, e.g. 0.50
	PositionPct      float64 // fraction of available capital per trade
	MaxOpenPositions int
}

var strategyParams = map[StrategyType]StrategyParams{
	StrategyConservative: {StopLossPct: 0.10, TakeProfitPct: 0.25, PositionPct: 0.10, MaxOpenPositions: 2},
	StrategyBalanced:     {StopLossPct: 0.20, TakeProfitPct: 0.50, PositionPct: 0.15, MaxOpenPositions: 3},
	StrategyAggressive:   {StopLossPct: 0.30, TakeProfitPct: 1.00, PositionPct: 0.25, MaxOpenPositions: 5},
}

// Params returns the risk parameters for the strategy type.
// Unrecognized values fall back to the conservative profile.
func (s StrategyType) Params() StrategyParams {
	if p, ok := strategyParams[s]; ok {
		return p
	}
	return strategyParams[StrategyConservative]
}

// Valid reports whether s is one of the known strategy types.
func (s StrategyType) Valid() bool {
	_, ok := strategyParams[s]
	return ok
}
