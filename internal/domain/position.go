package domain

// PositionStatus is the lifecycle status of a position.
type PositionStatus string

// Position statuses. Every status other than open is terminal.
const (
	PositionOpen             PositionStatus = "open"
	PositionClosedTakeProfit PositionStatus = "closed_take_profit"
	PositionClosedStopLoss   PositionStatus = "closed_stop_loss"
	PositionClosedManual     PositionStatus = "closed_manual"
	PositionSellFailed       PositionStatus = "sell_failed"
)

// Terminal reports whether the status admits no further transitions.
func (s PositionStatus) Terminal() bool {
	return s != PositionOpen
}

// OrderStatus is the observed state of a protective limit order.
type OrderStatus string

// Protective order statuses. OrderNone means no order was placed for
// that side and monitoring falls back to manual threshold checks.
const (
	OrderNone      OrderStatus = "none"
	OrderActive    OrderStatus = "active"
	OrderFilled    OrderStatus = "filled"
	OrderCancelled OrderStatus = "cancelled"
)

// OrderRef identifies one protective limit order on the order-book service.
type OrderRef struct {
	Pubkey string
	Status OrderStatus
}

// Position represents one open or closed trade exposure.
// Corresponds to positions table in PostgreSQL.
type Position struct {
	PositionID string // PRIMARY KEY, deterministic hash
	AgentID    string
	Mint       string // token mint address
	Symbol     string // display symbol at open time

	EntryPrice   float64 // SOL per token
	CurrentPrice float64 // refreshed by the monitoring worker
	Quantity     float64 // UI token amount held
	Decimals     int     // token mint decimals
	InvestedSOL  float64

	TargetPrice float64 // derived once from entry price and strategy take-profit pct
	StopPrice   float64 // derived once from entry price and strategy stop-loss pct

	TakeProfitOrder OrderRef
	StopLossOrder   OrderRef

	Status      PositionStatus
	RealizedPnL float64 // SOL, set on closure
	CloseReason string  // free-form, set on closure
	OpenedAt    int64   // Unix ms
	ClosedAt    int64   // Unix ms, zero while open
	UpdatedAt   int64   // Unix ms
}

// PnLPct returns the unrealized profit percentage against entry price.
func (p *Position) PnLPct() float64 {
	if p.EntryPrice == 0 {
		return 0
	}
	return (p.CurrentPrice - p.EntryPrice) / p.EntryPrice * 100
}

// CanTransitionTo reports whether moving to next is a legal status change.
// Transitions are monotonic: only open positions may move, and only to a
// terminal status.
func (p *Position) CanTransitionTo(next PositionStatus) bool {
	return p.Status == PositionOpen && next.Terminal()
}
