package executor

import "solana-agent-engine/internal/domain"

// Sizing holds the capital-safety knobs of the execution worker.
type Sizing struct {
	GasReserveSOL      float64 // kept aside for transaction fees
	MinFundingSOL      float64 // below this an agent does not trade at all
	DustFloorSOL       float64 // a computed size below this opens nothing
	SmallTierCap       float64 // capital below which SmallTierCeiling applies
	SmallTierCeiling   float64
	MidTierCap         float64 // capital below which MidTierCeiling applies
	MidTierCeiling     float64
	ReconcileTolerance float64 // SOL drift tolerated before capital resync
}

// DefaultSizing returns the production sizing profile.
func DefaultSizing() Sizing {
	return Sizing{
		GasReserveSOL:      0.05,
		MinFundingSOL:      0.2,
		DustFloorSOL:       0.01,
		SmallTierCap:       1.0,
		SmallTierCeiling:   0.1,
		MidTierCap:         2.0,
		MidTierCeiling:     0.25,
		ReconcileTolerance: 0.05,
	}
}

// ProposedSize computes the SOL amount for a new position, or zero when the
// result would be dust. The size is the smaller of the strategy's percentage
// of available capital and an equal split of the remaining position slots,
// clamped by the capital-tier ceiling so thinly funded agents cannot lose
// everything on one trade.
func (s Sizing) ProposedSize(capital float64, params domain.StrategyParams, openCount int) float64 {
	available := capital - s.GasReserveSOL
	if available <= 0 {
		return 0
	}

	slots := params.MaxOpenPositions - openCount
	if slots <= 0 {
		return 0
	}

	size := available * params.PositionPct
	if split := available / float64(slots); split < size {
		size = split
	}

	switch {
	case capital < s.SmallTierCap && size > s.SmallTierCeiling:
		size = s.SmallTierCeiling
	case capital < s.MidTierCap && size > s.MidTierCeiling:
		size = s.MidTierCeiling
	}

	if size < s.DustFloorSOL {
		return 0
	}
	return size
}
