// Package executor implements the execution worker: one sequential pass over
// all active agents, opening at most one new position per eligible agent.
package executor

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"time"

	"solana-agent-engine/internal/decision"
	"solana-agent-engine/internal/domain"
	"solana-agent-engine/internal/idhash"
	"solana-agent-engine/internal/observability"
	"solana-agent-engine/internal/solana"
	"solana-agent-engine/internal/storage"
	"solana-agent-engine/internal/swap"
	"solana-agent-engine/internal/wallet"
)

const (
	// CooldownWindow is the pause after any trade before the agent may
	// open another position.
	CooldownWindow = 10 * time.Minute
	// DedupWindow is the race-protection window: a token traded within it
	// is excluded from this agent's candidates. Checked against the
	// ledger, not in-memory state, so overlapping passes see it.
	DedupWindow = 5 * time.Minute

	historyLimit = 20
)

// Swapper executes the buy leg. Satisfied by *swap.Pipeline.
type Swapper interface {
	Execute(ctx context.Context, signer *wallet.Signer, inputMint, outputMint string, amount uint64, slippageBps int) (*swap.Result, error)
}

// OrderPlacer places protective orders. Satisfied by *orders.Manager.
type OrderPlacer interface {
	Place(ctx context.Context, signer *wallet.Signer, pos *domain.Position)
}

// Decider answers entry requests. Satisfied by *decision.Client.
type Decider interface {
	Entry(ctx context.Context, req *decision.EntryRequest) (*decision.EntryDecision, error)
}

// Publisher posts trade commentary. Satisfied by *social.Client.
type Publisher interface {
	Publish(ctx context.Context, authorID, title, body string)
}

// RunResult summarizes one execution pass.
type RunResult struct {
	AgentsProcessed int
	TradesOpened    int
	Skipped         int
	Errors          []string
}

// Options configures a Worker.
type Options struct {
	Agents     storage.AgentStore
	Positions  storage.PositionStore
	Trades     storage.TradeStore
	Candidates storage.CandidateStore

	RPC     solana.RPCClient
	Vault   *wallet.Vault
	Swaps   Swapper
	Orders  OrderPlacer
	Decider Decider
	Social  Publisher

	Sizing         Sizing
	SlippageBps    int
	CandidateLimit int
	Logger         *slog.Logger

	// Now overrides the clock. Nil means time.Now.
	Now func() time.Time
}

// Worker is the execution worker.
type Worker struct {
	opts Options
	log  *slog.Logger
	now  func() time.Time
}

// NewWorker creates an execution worker.
func NewWorker(opts Options) (*Worker, error) {
	switch {
	case opts.Agents == nil, opts.Positions == nil, opts.Trades == nil, opts.Candidates == nil:
		return nil, fmt.Errorf("all stores are required")
	case opts.RPC == nil:
		return nil, fmt.Errorf("rpc client is required")
	case opts.Vault == nil:
		return nil, fmt.Errorf("wallet vault is required")
	case opts.Swaps == nil:
		return nil, fmt.Errorf("swap pipeline is required")
	case opts.Decider == nil:
		return nil, fmt.Errorf("decision client is required")
	}
	if opts.Sizing == (Sizing{}) {
		opts.Sizing = DefaultSizing()
	}
	if opts.SlippageBps <= 0 {
		opts.SlippageBps = 300
	}
	if opts.CandidateLimit <= 0 {
		opts.CandidateLimit = 20
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

// Run executes one pass over all active agents. Per-agent failures are
// collected, never propagated, so one broken agent cannot stall the rest.
func (w *Worker) Run(ctx context.Context) *RunResult {
	started := w.now()
	observability.DefaultMetrics.ExecutionPassesTotal.Inc()

	result := &RunResult{}
	agents, err := w.opts.Agents.ListByStatus(ctx, domain.AgentStatusActive)
	if err != nil {
		result.Errors = append(result.Errors, fmt.Sprintf("list agents: %v", err))
		return result
	}

	for _, agent := range agents {
		if ctx.Err() != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("pass aborted: %v", ctx.Err()))
			break
		}
		result.AgentsProcessed++
		observability.DefaultMetrics.AgentsProcessed.Inc()

		opened, err := w.processAgent(ctx, agent)
		switch {
		case err != nil:
			result.Errors = append(result.Errors, fmt.Sprintf("agent %s: %v", agent.AgentID, err))
			w.log.Error("agent cycle failed", "agent_id", agent.AgentID, "error", err)
		case opened:
			result.TradesOpened++
		default:
			result.Skipped++
		}
	}

	observability.RecordWorkerPass("execution", w.now().Sub(started).Seconds())
	w.log.Info("execution pass complete",
		"agents", result.AgentsProcessed,
		"opened", result.TradesOpened,
		"skipped", result.Skipped,
		"errors", len(result.Errors))
	return result
}

// processAgent runs one agent's cycle. Returns true when a position opened.
func (w *Worker) processAgent(ctx context.Context, agent *domain.TradingAgent) (bool, error) {
	if err := w.reconcileCapital(ctx, agent); err != nil {
		return false, err
	}

	params := agent.Strategy.Params()
	nowMs := w.now().UnixMilli()

	if agent.CapitalSOL < w.opts.Sizing.MinFundingSOL {
		w.skip(agent, "underfunded")
		return false, nil
	}
	if agent.LastTradeAt > 0 && nowMs-agent.LastTradeAt < CooldownWindow.Milliseconds() {
		w.skip(agent, "cooldown")
		return false, nil
	}

	open, err := w.opts.Positions.ListOpenByAgent(ctx, agent.AgentID)
	if err != nil {
		return false, fmt.Errorf("list open positions: %w", err)
	}
	if len(open) >= params.MaxOpenPositions {
		w.skip(agent, "max_positions")
		return false, nil
	}

	candidates, err := w.filterCandidates(ctx, agent, open, nowMs)
	if err != nil {
		return false, err
	}
	if len(candidates) == 0 {
		w.skip(agent, "no_candidates")
		return false, nil
	}

	size := w.opts.Sizing.ProposedSize(agent.CapitalSOL, params, len(open))
	if size == 0 {
		w.skip(agent, "dust_size")
		return false, nil
	}

	entry, err := w.decide(ctx, agent, params, candidates, size)
	if err != nil {
		// Capital preservation: a broken decision service means no trade,
		// not a guessed one.
		w.log.Warn("decision service unavailable, not trading",
			"agent_id", agent.AgentID, "error", err)
		w.skip(agent, "decision_unavailable")
		return false, nil
	}
	if !entry.ShouldTrade {
		observability.RecordDecisionCall("entry", "declined")
		w.skip(agent, "declined")
		return false, nil
	}
	observability.RecordDecisionCall("entry", "approved")

	selected := candidateByMint(candidates, entry.SelectedMint)
	if selected == nil {
		return false, fmt.Errorf("selected mint %s vanished from candidates", entry.SelectedMint)
	}

	return w.openPosition(ctx, agent, params, selected, entry, size, nowMs)
}

// reconcileCapital overwrites stored capital with the observed on-chain
// balance when they drift apart. The chain is the authority; this also
// absorbs trades whose confirmation previously timed out.
func (w *Worker) reconcileCapital(ctx context.Context, agent *domain.TradingAgent) error {
	lamports, err := w.opts.RPC.GetBalance(ctx, agent.WalletAddress)
	if err != nil {
		return fmt.Errorf("read wallet balance: %w", err)
	}
	observed := float64(lamports) / solana.LamportsPerSOL

	if math.Abs(observed-agent.CapitalSOL) <= w.opts.Sizing.ReconcileTolerance {
		return nil
	}

	w.log.Info("reconciling agent capital",
		"agent_id", agent.AgentID, "stored", agent.CapitalSOL, "observed", observed)
	agent.CapitalSOL = observed
	agent.UpdatedAt = w.now().UnixMilli()
	if err := w.opts.Agents.Update(ctx, agent); err != nil {
		return fmt.Errorf("persist reconciled capital: %w", err)
	}
	observability.DefaultMetrics.CapitalReconciled.Inc()
	return nil
}

// filterCandidates removes tokens the agent already holds and tokens it
// traded within the dedup window.
func (w *Worker) filterCandidates(ctx context.Context, agent *domain.TradingAgent, open []*domain.Position, nowMs int64) ([]*domain.CandidateToken, error) {
	trending, err := w.opts.Candidates.ListTrending(ctx, w.opts.CandidateLimit)
	if err != nil {
		return nil, fmt.Errorf("list candidates: %w", err)
	}

	excluded := make(map[string]bool, len(open))
	for _, p := range open {
		excluded[p.Mint] = true
	}

	recent, err := w.opts.Trades.ListByAgentSince(ctx, agent.AgentID, nowMs-DedupWindow.Milliseconds())
	if err != nil {
		return nil, fmt.Errorf("list recent trades: %w", err)
	}
	for _, t := range recent {
		excluded[t.Mint] = true
	}

	filtered := trending[:0:0]
	for _, c := range trending {
		if !excluded[c.Mint] {
			filtered = append(filtered, c)
		}
	}
	return filtered, nil
}

func (w *Worker) decide(ctx context.Context, agent *domain.TradingAgent, params domain.StrategyParams, candidates []*domain.CandidateToken, size float64) (*decision.EntryDecision, error) {
	history, err := w.opts.Trades.ListByAgent(ctx, agent.AgentID, historyLimit)
	if err != nil {
		return nil, fmt.Errorf("list trade history: %w", err)
	}
	entry, err := w.opts.Decider.Entry(ctx, &decision.EntryRequest{
		Agent:           agent,
		Strategy:        params,
		RecentTrades:    history,
		Candidates:      candidates,
		ProposedSizeSOL: size,
	})
	if err != nil {
		observability.RecordDecisionCall("entry", "error")
		return nil, err
	}
	return entry, nil
}

// openPosition runs the buy, persists the position and trade, and fires the
// best-effort follow-ups (protective orders, social post).
func (w *Worker) openPosition(ctx context.Context, agent *domain.TradingAgent, params domain.StrategyParams, token *domain.CandidateToken, entry *decision.EntryDecision, size float64, nowMs int64) (bool, error) {
	signer, err := w.opts.Vault.Signer(agent.EncryptedKey, agent.WalletAddress)
	if err != nil {
		// Hard stop for this agent, never retried with another secret.
		return false, fmt.Errorf("unlock wallet: %w", err)
	}

	lamports := uint64(math.Round(size * solana.LamportsPerSOL))
	swapResult, err := w.opts.Swaps.Execute(ctx, signer, solana.WSOLMint, token.Mint, lamports, w.opts.SlippageBps)
	signer.Destroy()
	if err != nil {
		return false, fmt.Errorf("buy %s: %w", token.Symbol, err)
	}

	quantity := float64(swapResult.OutAmountRaw) / math.Pow10(token.Decimals)
	if quantity <= 0 {
		return false, fmt.Errorf("buy %s returned zero tokens", token.Symbol)
	}
	entryPrice := size / quantity

	pos := &domain.Position{
		PositionID:      idhash.ComputePositionID(agent.AgentID, token.Mint, swapResult.Signature),
		AgentID:         agent.AgentID,
		Mint:            token.Mint,
		Symbol:          token.Symbol,
		EntryPrice:      entryPrice,
		CurrentPrice:    entryPrice,
		Quantity:        quantity,
		Decimals:        token.Decimals,
		InvestedSOL:     size,
		TargetPrice:     entryPrice * (1 + params.TakeProfitPct),
		StopPrice:       entryPrice * (1 - params.StopLossPct),
		TakeProfitOrder: domain.OrderRef{Status: domain.OrderNone},
		StopLossOrder:   domain.OrderRef{Status: domain.OrderNone},
		Status:          domain.PositionOpen,
		OpenedAt:        nowMs,
		UpdatedAt:       nowMs,
	}
	if err := w.opts.Positions.Insert(ctx, pos); err != nil {
		return false, fmt.Errorf("persist position: %w", err)
	}

	trade := &domain.Trade{
		TradeID:    idhash.ComputeTradeID(pos.PositionID, string(domain.TradeBuy), swapResult.Signature),
		AgentID:    agent.AgentID,
		PositionID: pos.PositionID,
		Mint:       token.Mint,
		Side:       domain.TradeBuy,
		AmountSOL:  size,
		Price:      entryPrice,
		Quantity:   quantity,
		Confidence: entry.Confidence,
		Narrative:  entry.Rationale,
		Signature:  swapResult.Signature,
		ExecutedAt: nowMs,
	}
	if err := w.opts.Trades.Insert(ctx, trade); err != nil {
		return false, fmt.Errorf("persist buy trade: %w", err)
	}

	agent.CapitalSOL -= size
	agent.TotalTrades++
	agent.LastTradeAt = nowMs
	agent.UpdatedAt = nowMs
	if err := w.opts.Agents.Update(ctx, agent); err != nil {
		return false, fmt.Errorf("persist agent after buy: %w", err)
	}

	observability.RecordPositionOpened()
	w.log.Info("position opened",
		"agent_id", agent.AgentID,
		"mint", token.Mint,
		"symbol", token.Symbol,
		"size_sol", size,
		"entry_price", entryPrice,
		"signature", swapResult.Signature)

	w.placeProtectiveOrders(ctx, agent, pos)
	w.publishEntry(ctx, agent, pos, entry, swapResult.Signature)
	return true, nil
}

// placeProtectiveOrders is best-effort: a failure leaves the position under
// threshold monitoring, it never rolls back the buy.
func (w *Worker) placeProtectiveOrders(ctx context.Context, agent *domain.TradingAgent, pos *domain.Position) {
	if w.opts.Orders == nil {
		return
	}
	signer, err := w.opts.Vault.Signer(agent.EncryptedKey, agent.WalletAddress)
	if err != nil {
		w.log.Warn("cannot unlock wallet for protective orders",
			"agent_id", agent.AgentID, "error", err)
		return
	}
	defer signer.Destroy()

	w.opts.Orders.Place(ctx, signer, pos)
	if err := w.opts.Positions.Update(ctx, pos); err != nil {
		w.log.Warn("persist protective order refs failed",
			"position_id", pos.PositionID, "error", err)
	}
}

func (w *Worker) publishEntry(ctx context.Context, agent *domain.TradingAgent, pos *domain.Position, entry *decision.EntryDecision, signature string) {
	if w.opts.Social == nil {
		return
	}
	title := fmt.Sprintf("Opened %s", pos.Symbol)
	body := fmt.Sprintf("Bought %s for %.4f SOL at %.10f SOL per token.\n\n%s\n\nTx: %s",
		pos.Symbol, pos.InvestedSOL, pos.EntryPrice, entry.Rationale, signature)
	w.opts.Social.Publish(ctx, agent.AgentID, title, body)
}

func (w *Worker) skip(agent *domain.TradingAgent, reason string) {
	observability.RecordAgentSkipped(reason)
	w.log.Debug("agent skipped", "agent_id", agent.AgentID, "reason", reason)
}

func candidateByMint(candidates []*domain.CandidateToken, mint string) *domain.CandidateToken {
	for _, c := range candidates {
		if c.Mint == mint {
			return c
		}
	}
	return nil
}
