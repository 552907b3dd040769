package monitor

import (
	"fmt"
	"sort"

	"solana-agent-engine/internal/domain"
	"solana-agent-engine/internal/idhash"
)

// TradeOutcome is one closed round trip as seen by the review builder.
type TradeOutcome struct {
	Narrative string
	PnLSOL    float64
}

// BuildReview synthesizes a strategy review from recent closed round trips:
// narratives that made money become preferences, narratives that lost become
// avoided patterns. Outcomes with no narrative count toward the totals but
// contribute nothing to the lists.
func BuildReview(agent *domain.TradingAgent, outcomes []TradeOutcome, trigger string, nowMs int64) *domain.StrategyReview {
	var (
		wins      int
		netPnL    float64
		narrative = map[string]float64{} // narrative -> net SOL
	)
	for _, o := range outcomes {
		netPnL += o.PnLSOL
		if o.PnLSOL > 0 {
			wins++
		}
		if o.Narrative != "" {
			narrative[o.Narrative] += o.PnLSOL
		}
	}

	var preferred, avoided []string
	for n, pnl := range narrative {
		if pnl > 0 {
			preferred = append(preferred, n)
		} else if pnl < 0 {
			avoided = append(avoided, n)
		}
	}
	sort.Strings(preferred)
	sort.Strings(avoided)

	winRate := 0.0
	if len(outcomes) > 0 {
		winRate = float64(wins) / float64(len(outcomes))
	}

	return &domain.StrategyReview{
		ReviewID:            idhash.ComputeReviewID(agent.AgentID, trigger, nowMs),
		AgentID:             agent.AgentID,
		TradesReviewed:      len(outcomes),
		WinRate:             winRate,
		NetPnL:              netPnL,
		PreferredNarratives: preferred,
		AvoidedPatterns:     avoided,
		Summary: fmt.Sprintf("%d trades reviewed, %.0f%% win rate, %+.4f SOL net",
			len(outcomes), winRate*100, netPnL),
		TriggerReason: trigger,
		CreatedAt:     nowMs,
	}
}
