// Package monitor implements the monitoring worker: a bounded wall-clock
// loop over all open positions that reacts to protective order fills and
// price threshold breaches, and runs the closure pipeline.
package monitor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"solana-agent-engine/internal/decision"
	"solana-agent-engine/internal/domain"
	"solana-agent-engine/internal/idhash"
	"solana-agent-engine/internal/observability"
	"solana-agent-engine/internal/orders"
	"solana-agent-engine/internal/price"
	"solana-agent-engine/internal/solana"
	"solana-agent-engine/internal/storage"
	"solana-agent-engine/internal/swap"
	"solana-agent-engine/internal/wallet"
)

const (
	// DefaultPassBudget bounds one invocation's wall clock so the worker
	// reacts to several price ticks yet always finishes before the next
	// scheduled run piles up.
	DefaultPassBudget = 55 * time.Second
	// DefaultSubPoll is the pause between sweeps inside one invocation.
	DefaultSubPoll = 5 * time.Second

	// DustProceedsFraction flags a forced sell whose proceeds are too small
	// relative to the investment to be a real market move.
	DustProceedsFraction = 0.01
)

// Swapper executes the sell leg. Satisfied by *swap.Pipeline.
type Swapper interface {
	Execute(ctx context.Context, signer *wallet.Signer, inputMint, outputMint string, amount uint64, slippageBps int) (*swap.Result, error)
}

// OrderChecker polls and reconciles protective orders. Satisfied by
// *orders.Manager.
type OrderChecker interface {
	CheckFill(ctx context.Context, owner string, pos *domain.Position) (*orders.Fill, error)
	CancelAll(ctx context.Context, owner string, pos *domain.Position)
}

// PriceResolver refreshes token prices. Satisfied by *price.TokenChain.
type PriceResolver interface {
	Resolve(ctx context.Context, mint, bondingCurve string) (*price.TokenQuote, error)
}

// ExitExplainer produces post-trade commentary. Satisfied by
// *decision.Client.
type ExitExplainer interface {
	Exit(ctx context.Context, req *decision.ExitRequest) (*decision.ExitExplanation, error)
}

// Publisher posts closure summaries. Satisfied by *social.Client.
type Publisher interface {
	Publish(ctx context.Context, authorID, title, body string)
}

// RunResult summarizes one monitoring pass.
type RunResult struct {
	Sweeps            int
	PositionsChecked  int
	PositionsClosed   int
	PositionsSkipped  int
	SnapshotsRecorded int
	Errors            []string
}

// Options configures a Worker.
type Options struct {
	Agents    storage.AgentStore
	Positions storage.PositionStore
	Trades    storage.TradeStore
	Reviews   storage.ReviewStore
	Snapshots storage.PriceSnapshotStore // optional telemetry

	RPC    solana.RPCClient
	Vault  *wallet.Vault
	Swaps  Swapper
	Orders OrderChecker
	Prices PriceResolver

	Explainer  ExitExplainer // optional
	Social     Publisher     // optional
	Candidates storage.CandidateStore

	PassBudget  time.Duration
	SubPoll     time.Duration
	SlippageBps int
	Logger      *slog.Logger

	// Now overrides the clock. Nil means time.Now.
	Now func() time.Time
}

// Worker is the monitoring worker.
type Worker struct {
	opts Options
	log  *slog.Logger
	now  func() time.Time
}

// NewWorker creates a monitoring worker.
func NewWorker(opts Options) (*Worker, error) {
	switch {
	case opts.Agents == nil, opts.Positions == nil, opts.Trades == nil, opts.Reviews == nil:
		return nil, fmt.Errorf("agent, position, trade and review stores are required")
	case opts.RPC == nil:
		return nil, fmt.Errorf("rpc client is required")
	case opts.Vault == nil:
		return nil, fmt.Errorf("wallet vault is required")
	case opts.Swaps == nil:
		return nil, fmt.Errorf("swap pipeline is required")
	case opts.Prices == nil:
		return nil, fmt.Errorf("price chain is required")
	}
	if opts.PassBudget <= 0 {
		opts.PassBudget = DefaultPassBudget
	}
	if opts.SubPoll <= 0 {
		opts.SubPoll = DefaultSubPoll
	}
	if opts.SlippageBps <= 0 {
		opts.SlippageBps = 300
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return &Worker{opts: opts, log: opts.Logger, now: now}, nil
}

// Run executes one bounded invocation: repeated sweeps over the open
// positions until the wall-clock budget or the context expires.
func (w *Worker) Run(ctx context.Context) *RunResult {
	started := w.now()
	deadline := started.Add(w.opts.PassBudget)
	observability.DefaultMetrics.MonitorPassesTotal.Inc()

	result := &RunResult{}
	for {
		w.sweep(ctx, result)
		result.Sweeps++

		if ctx.Err() != nil || !w.now().Add(w.opts.SubPoll).Before(deadline) {
			break
		}
		select {
		case <-ctx.Done():
		case <-time.After(w.opts.SubPoll):
		}
		if ctx.Err() != nil {
			break
		}
	}

	observability.RecordWorkerPass("monitor", w.now().Sub(started).Seconds())
	w.log.Info("monitoring pass complete",
		"sweeps", result.Sweeps,
		"checked", result.PositionsChecked,
		"closed", result.PositionsClosed,
		"skipped", result.PositionsSkipped,
		"errors", len(result.Errors))
	return result
}

// sweep processes every open position once. Fresh reads each sweep: a
// position closed by an overlapping invocation simply no longer lists.
func (w *Worker) sweep(ctx context.Context, result *RunResult) {
	open, err := w.opts.Positions.ListOpen(ctx)
	if err != nil {
		result.Errors = append(result.Errors, fmt.Sprintf("list open positions: %v", err))
		return
	}
	observability.DefaultMetrics.OpenPositions.Set(float64(len(open)))

	var snapshots []*domain.PriceSnapshot
	for _, pos := range open {
		if ctx.Err() != nil {
			return
		}
		result.PositionsChecked++

		snap, closed, err := w.checkPosition(ctx, pos)
		if err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("position %s: %v", pos.PositionID, err))
			continue
		}
		if snap != nil {
			snapshots = append(snapshots, snap)
		}
		if closed {
			result.PositionsClosed++
		} else if snap == nil {
			result.PositionsSkipped++
		}
	}

	if w.opts.Snapshots != nil && len(snapshots) > 0 {
		if err := w.opts.Snapshots.InsertBulk(ctx, snapshots); err != nil {
			w.log.Warn("price snapshot insert failed", "count", len(snapshots), "error", err)
		} else {
			result.SnapshotsRecorded += len(snapshots)
		}
	}
}

// checkPosition runs the per-position state machine. Returns the recorded
// snapshot (nil when the price was unavailable) and whether the position
// closed this sweep.
func (w *Worker) checkPosition(ctx context.Context, pos *domain.Position) (*domain.PriceSnapshot, bool, error) {
	agent, err := w.opts.Agents.GetByID(ctx, pos.AgentID)
	if err != nil {
		return nil, false, fmt.Errorf("load agent: %w", err)
	}

	quote, err := w.opts.Prices.Resolve(ctx, pos.Mint, w.bondingCurveFor(ctx, pos.Mint))
	if err != nil {
		// No price this sweep means no decision this sweep, never a
		// defaulted zero.
		w.log.Warn("price unavailable, skipping position",
			"position_id", pos.PositionID, "mint", pos.Mint, "error", err)
		return nil, false, nil
	}
	observability.RecordPriceSource(quote.Source)

	pos.CurrentPrice = quote.Price
	pos.UpdatedAt = w.now().UnixMilli()
	snap := &domain.PriceSnapshot{
		PositionID:  pos.PositionID,
		AgentID:     pos.AgentID,
		Mint:        pos.Mint,
		TimestampMs: pos.UpdatedAt,
		Price:       quote.Price,
		Source:      quote.Source,
		PnLPct:      pos.PnLPct(),
	}

	// Protective order path first: the order's fixed price is the truth
	// for proceeds, independent of the current quote.
	if w.opts.Orders != nil && hasActiveOrder(pos) {
		fill, err := w.opts.Orders.CheckFill(ctx, agent.WalletAddress, pos)
		if err != nil {
			return snap, false, fmt.Errorf("poll protective orders: %w", err)
		}
		if fill != nil {
			reason := domain.PositionClosedTakeProfit
			if fill.Side == orders.SideStopLoss {
				reason = domain.PositionClosedStopLoss
			}
			err := w.closePosition(ctx, agent, pos, closure{
				status:      reason,
				sellPrice:   fill.Price,
				proceedsSOL: fill.ProceedsSOL,
				signature:   "order-" + sideOrderPubkey(pos, fill.Side),
			})
			return snap, err == nil, err
		}
		if err := w.opts.Positions.Update(ctx, pos); err != nil && !errors.Is(err, storage.ErrTerminalPosition) {
			w.log.Warn("persist refreshed price failed", "position_id", pos.PositionID, "error", err)
		}
		return snap, false, nil
	}

	// Threshold fallback path.
	params := agent.Strategy.Params()
	pnl := pos.PnLPct()
	switch {
	case pnl >= params.TakeProfitPct*100:
		closed, err := w.triggerSell(ctx, agent, pos, domain.PositionClosedTakeProfit)
		return snap, closed, err
	case pnl <= -params.StopLossPct*100:
		closed, err := w.triggerSell(ctx, agent, pos, domain.PositionClosedStopLoss)
		return snap, closed, err
	default:
		if err := w.opts.Positions.Update(ctx, pos); err != nil && !errors.Is(err, storage.ErrTerminalPosition) {
			w.log.Warn("persist refreshed price failed", "position_id", pos.PositionID, "error", err)
		}
		return snap, false, nil
	}
}

// triggerSell sells the full on-chain balance of the position's token and
// routes the outcome through the dust guard before closure.
func (w *Worker) triggerSell(ctx context.Context, agent *domain.TradingAgent, pos *domain.Position, reason domain.PositionStatus) (bool, error) {
	balance, err := w.opts.RPC.GetTokenBalance(ctx, agent.WalletAddress, pos.Mint)
	if err != nil {
		return false, fmt.Errorf("read token balance: %w", err)
	}
	if balance.RawAmount == 0 {
		return false, fmt.Errorf("no on-chain tokens to sell for %s", pos.Mint)
	}

	// Any surviving protective order must die before the market sell, or
	// both could execute.
	if w.opts.Orders != nil {
		w.opts.Orders.CancelAll(ctx, agent.WalletAddress, pos)
	}

	signer, err := w.opts.Vault.Signer(agent.EncryptedKey, agent.WalletAddress)
	if err != nil {
		return false, fmt.Errorf("unlock wallet: %w", err)
	}
	swapResult, err := w.opts.Swaps.Execute(ctx, signer, pos.Mint, solana.WSOLMint, balance.RawAmount, w.opts.SlippageBps)
	signer.Destroy()
	if err != nil {
		return false, fmt.Errorf("sell %s: %w", pos.Symbol, err)
	}

	proceedsSOL := float64(swapResult.OutAmountRaw) / solana.LamportsPerSOL

	// Dust guard: proceeds this far under the investment point at a broken
	// venue or wrong decimals, not a market move. Keep the stats clean and
	// flag for the operator.
	if pos.InvestedSOL > 0 && proceedsSOL < pos.InvestedSOL*DustProceedsFraction {
		observability.DefaultMetrics.DustGuardTripped.Inc()
		err := w.closePosition(ctx, agent, pos, closure{
			status:      domain.PositionSellFailed,
			sellPrice:   pos.CurrentPrice,
			proceedsSOL: proceedsSOL,
			signature:   swapResult.Signature,
		})
		return err == nil, err
	}

	sellPrice := pos.CurrentPrice
	if balance.UIAmount > 0 {
		sellPrice = proceedsSOL / balance.UIAmount
	}
	err = w.closePosition(ctx, agent, pos, closure{
		status:      reason,
		sellPrice:   sellPrice,
		proceedsSOL: proceedsSOL,
		signature:   swapResult.Signature,
	})
	return err == nil, err
}

// closure carries the facts a close needs, independent of how it was
// detected.
type closure struct {
	status      domain.PositionStatus
	sellPrice   float64
	proceedsSOL float64
	signature   string
}

// closePosition runs the closure pipeline: terminal status, closing trade,
// agent stats, then the best-effort follow-ups.
func (w *Worker) closePosition(ctx context.Context, agent *domain.TradingAgent, pos *domain.Position, c closure) error {
	nowMs := w.now().UnixMilli()
	realized := c.proceedsSOL - pos.InvestedSOL

	pos.Status = c.status
	pos.CurrentPrice = c.sellPrice
	pos.RealizedPnL = realized
	pos.CloseReason = string(c.status)
	pos.ClosedAt = nowMs
	pos.UpdatedAt = nowMs
	if err := w.opts.Positions.Update(ctx, pos); err != nil {
		if errors.Is(err, storage.ErrTerminalPosition) {
			// An overlapping invocation closed it first; ours is a no-op.
			w.log.Info("position already terminal", "position_id", pos.PositionID)
			return nil
		}
		return fmt.Errorf("persist closed position: %w", err)
	}
	observability.RecordPositionClosed(string(c.status))

	trade := &domain.Trade{
		TradeID:    idhash.ComputeTradeID(pos.PositionID, string(domain.TradeSell), c.signature),
		AgentID:    agent.AgentID,
		PositionID: pos.PositionID,
		Mint:       pos.Mint,
		Side:       domain.TradeSell,
		AmountSOL:  c.proceedsSOL,
		Price:      c.sellPrice,
		Quantity:   pos.Quantity,
		Narrative:  string(c.status),
		Signature:  c.signature,
		ExecutedAt: nowMs,
	}
	if err := w.opts.Trades.Insert(ctx, trade); err != nil {
		return fmt.Errorf("persist sell trade: %w", err)
	}

	w.applyStats(agent, c.status, realized, nowMs)
	agent.CapitalSOL += c.proceedsSOL
	if err := w.opts.Agents.Update(ctx, agent); err != nil {
		return fmt.Errorf("persist agent after close: %w", err)
	}

	w.log.Info("position closed",
		"position_id", pos.PositionID,
		"agent_id", agent.AgentID,
		"status", c.status,
		"realized_pnl", realized,
		"proceeds_sol", c.proceedsSOL)

	explanation := w.explainExit(ctx, agent, pos, realized)
	w.publishClose(ctx, agent, pos, realized, explanation)
	w.maybeReview(ctx, agent, nowMs)
	return nil
}

// applyStats updates the agent's aggregate counters. A sell_failed close is
// not a market outcome and leaves the win/loss record untouched.
func (w *Worker) applyStats(agent *domain.TradingAgent, status domain.PositionStatus, realized float64, nowMs int64) {
	agent.LastTradeAt = nowMs
	agent.UpdatedAt = nowMs
	if status == domain.PositionSellFailed {
		return
	}

	if realized > 0 {
		agent.WinningTrades++
		if agent.CurrentStreak >= 0 {
			agent.CurrentStreak++
		} else {
			agent.CurrentStreak = 1
		}
	} else {
		agent.LosingTrades++
		if agent.CurrentStreak <= 0 {
			agent.CurrentStreak--
		} else {
			agent.CurrentStreak = -1
		}
	}
	if realized > agent.BestTradePnL {
		agent.BestTradePnL = realized
	}
	if realized < agent.WorstTradePnL {
		agent.WorstTradePnL = realized
	}
	if closed := agent.WinningTrades + agent.LosingTrades; closed > 0 {
		agent.WinRate = float64(agent.WinningTrades) / float64(closed)
	}
}

// explainExit asks the decision service for commentary, falling back to a
// generic explanation. Never blocks closure.
func (w *Worker) explainExit(ctx context.Context, agent *domain.TradingAgent, pos *domain.Position, realized float64) *decision.ExitExplanation {
	fallback := decision.GenericExitExplanation(string(pos.Status))
	if w.opts.Explainer == nil {
		return fallback
	}
	explanation, err := w.opts.Explainer.Exit(ctx, &decision.ExitRequest{
		Agent:       agent,
		Position:    pos,
		CloseReason: string(pos.Status),
		RealizedPnL: realized,
	})
	if err != nil {
		observability.RecordDecisionCall("exit", "error")
		w.log.Warn("exit explanation unavailable",
			"position_id", pos.PositionID, "error", err)
		return fallback
	}
	observability.RecordDecisionCall("exit", "ok")
	return explanation
}

func (w *Worker) publishClose(ctx context.Context, agent *domain.TradingAgent, pos *domain.Position, realized float64, explanation *decision.ExitExplanation) {
	if w.opts.Social == nil {
		return
	}
	verb := "Closed"
	if pos.Status == domain.PositionSellFailed {
		verb = "Flagged"
	}
	title := fmt.Sprintf("%s %s (%+.4f SOL)", verb, pos.Symbol, realized)
	body := fmt.Sprintf("%s\n\nEntry %.10f, exit %.10f, P&L %+.4f SOL.",
		explanation.ExitReason, pos.EntryPrice, pos.CurrentPrice, realized)
	w.opts.Social.Publish(ctx, agent.AgentID, title, body)
}

// maybeReview enqueues a strategy review when the closed-trade count or the
// loss streak crosses its threshold. Best-effort: failures are logged and
// the closure stands.
func (w *Worker) maybeReview(ctx context.Context, agent *domain.TradingAgent, nowMs int64) {
	closed := agent.WinningTrades + agent.LosingTrades
	var trigger string
	switch {
	case agent.CurrentStreak <= -domain.ReviewLossStreak:
		trigger = "loss_streak"
	case closed > 0 && closed%domain.ReviewTradeInterval == 0:
		trigger = "trade_count"
	default:
		return
	}

	outcomes, err := w.recentOutcomes(ctx, agent)
	if err != nil {
		w.log.Warn("strategy review skipped", "agent_id", agent.AgentID, "error", err)
		return
	}

	review := BuildReview(agent, outcomes, trigger, nowMs)
	if err := w.opts.Reviews.Insert(ctx, review); err != nil {
		w.log.Warn("strategy review insert failed", "agent_id", agent.AgentID, "error", err)
		return
	}

	agent.PreferredNarratives = review.PreferredNarratives
	agent.AvoidedPatterns = review.AvoidedPatterns
	if err := w.opts.Agents.Update(ctx, agent); err != nil {
		w.log.Warn("persist review preferences failed", "agent_id", agent.AgentID, "error", err)
	}
	w.log.Info("strategy review recorded",
		"agent_id", agent.AgentID, "trigger", trigger, "trades", review.TradesReviewed)
}

// recentOutcomes pairs the agent's recent sells with their opening buys
// through the ledger.
func (w *Worker) recentOutcomes(ctx context.Context, agent *domain.TradingAgent) ([]TradeOutcome, error) {
	recent, err := w.opts.Trades.ListByAgent(ctx, agent.AgentID, domain.ReviewTradeInterval*2)
	if err != nil {
		return nil, fmt.Errorf("list recent trades: %w", err)
	}

	var outcomes []TradeOutcome
	for _, sell := range recent {
		if sell.Side != domain.TradeSell || len(outcomes) >= domain.ReviewTradeInterval {
			continue
		}
		pair, err := w.opts.Trades.ListByPosition(ctx, sell.PositionID)
		if err != nil {
			return nil, fmt.Errorf("list position trades: %w", err)
		}
		for _, buy := range pair {
			if buy.Side == domain.TradeBuy {
				outcomes = append(outcomes, TradeOutcome{
					Narrative: buy.Narrative,
					PnLSOL:    sell.AmountSOL - buy.AmountSOL,
				})
				break
			}
		}
	}
	return outcomes, nil
}

// bondingCurveFor looks up the candidate snapshot's bonding curve account
// for the mint, used by the last price fallback. Empty when unknown.
func (w *Worker) bondingCurveFor(ctx context.Context, mint string) string {
	if w.opts.Candidates == nil {
		return ""
	}
	cand, err := w.opts.Candidates.GetByMint(ctx, mint)
	if err != nil {
		return ""
	}
	return cand.BondingCurve
}

func hasActiveOrder(pos *domain.Position) bool {
	return pos.TakeProfitOrder.Status == domain.OrderActive ||
		pos.StopLossOrder.Status == domain.OrderActive
}

func sideOrderPubkey(pos *domain.Position, side orders.Side) string {
	if side == orders.SideTakeProfit {
		return pos.TakeProfitOrder.Pubkey
	}
	return pos.StopLossOrder.Pubkey
}
