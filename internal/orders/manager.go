package orders

import (
	"context"
	"encoding/base64"
	"fmt"
	"log/slog"
	"math"
	"strconv"

	"solana-agent-engine/internal/domain"
	"solana-agent-engine/internal/observability"
	"solana-agent-engine/internal/solana"
	"solana-agent-engine/internal/wallet"
)

// Service is the limit-order API surface the manager drives.
type Service interface {
	CreateOrder(ctx context.Context, req CreateOrderRequest) (*CreateOrderResponse, error)
	Execute(ctx context.Context, signedTxBase64, requestID string) (string, error)
	Cancel(ctx context.Context, orderPubkey, maker string) error
	Status(ctx context.Context, orderPubkey, owner string) (string, error)
}

// Side names one of the two protective orders on a position.
type Side string

const (
	SideTakeProfit Side = "take_profit"
	SideStopLoss   Side = "stop_loss"
)

// Fill reports one protective order observed filled, with the counterpart
// already reconciled. Price is the order's fixed limit price, so proceeds
// need no market query.
type Fill struct {
	Side        Side
	Price       float64
	ProceedsSOL float64
}

// Manager places, polls and reconciles the take-profit and stop-loss orders
// of a position against the limit-order service.
type Manager struct {
	service Service
	rpc     solana.RPCClient
	logger  *slog.Logger
}

// NewManager creates an order manager.
func NewManager(service Service, rpc solana.RPCClient, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{service: service, rpc: rpc, logger: logger}
}

// Place creates both protective orders for the position, selling the full
// token quantity at the target and stop prices. Each side is independent and
// best-effort: a failed side stays OrderNone and threshold monitoring covers
// it. The position's order refs are updated in place.
func (m *Manager) Place(ctx context.Context, signer *wallet.Signer, pos *domain.Position) {
	makingRaw := rawTokenAmount(pos.Quantity, pos.Decimals)
	if makingRaw == 0 {
		m.logger.Warn("skipping protective orders for zero raw quantity",
			"position_id", pos.PositionID, "quantity", pos.Quantity, "decimals", pos.Decimals)
		return
	}

	if ref, err := m.placeSide(ctx, signer, pos, makingRaw, pos.TargetPrice); err != nil {
		observability.RecordOrderPlacement(string(SideTakeProfit), "error")
		m.logger.Warn("take-profit order placement failed",
			"position_id", pos.PositionID, "error", err)
	} else {
		observability.RecordOrderPlacement(string(SideTakeProfit), "ok")
		pos.TakeProfitOrder = ref
	}

	if ref, err := m.placeSide(ctx, signer, pos, makingRaw, pos.StopPrice); err != nil {
		observability.RecordOrderPlacement(string(SideStopLoss), "error")
		m.logger.Warn("stop-loss order placement failed",
			"position_id", pos.PositionID, "error", err)
	} else {
		observability.RecordOrderPlacement(string(SideStopLoss), "ok")
		pos.StopLossOrder = ref
	}
}

// placeSide creates, signs and lands one limit order selling the position's
// tokens at price SOL per token.
func (m *Manager) placeSide(ctx context.Context, signer *wallet.Signer, pos *domain.Position, makingRaw uint64, price float64) (domain.OrderRef, error) {
	takingLamports := lamportsFor(pos.Quantity, price)
	if takingLamports == 0 {
		return domain.OrderRef{}, fmt.Errorf("order price %g yields zero lamports", price)
	}

	created, err := m.service.CreateOrder(ctx, CreateOrderRequest{
		InputMint:    pos.Mint,
		OutputMint:   solana.WSOLMint,
		Maker:        signer.Address(),
		MakingAmount: strconv.FormatUint(makingRaw, 10),
		TakingAmount: strconv.FormatUint(takingLamports, 10),
	})
	if err != nil {
		return domain.OrderRef{}, err
	}

	unsigned, err := base64.StdEncoding.DecodeString(created.UnsignedTx)
	if err != nil {
		return domain.OrderRef{}, fmt.Errorf("decode order transaction: %w", err)
	}
	signed, err := signer.SignTransaction(unsigned)
	if err != nil {
		return domain.OrderRef{}, fmt.Errorf("sign order transaction: %w", err)
	}

	_, err = m.service.Execute(ctx, base64.StdEncoding.EncodeToString(signed), created.RequestID)
	if err != nil {
		// The order account is already derived; landing the signed
		// transaction directly keeps the order alive when only the
		// service's execute step is down.
		m.logger.Warn("order execute failed, broadcasting signed transaction directly",
			"order", created.OrderPubkey, "error", err)
		if _, rpcErr := m.rpc.SendTransaction(ctx, wallet.EncodeBase58(signed)); rpcErr != nil {
			return domain.OrderRef{}, fmt.Errorf("execute failed (%v) and direct broadcast failed: %w", err, rpcErr)
		}
	}

	return domain.OrderRef{Pubkey: created.OrderPubkey, Status: domain.OrderActive}, nil
}

// PollSide returns the current status of one protective order. Query errors
// and unknown states leave the order active so the next pass retries.
func (m *Manager) PollSide(ctx context.Context, owner string, ref domain.OrderRef) (domain.OrderStatus, error) {
	if ref.Status != domain.OrderActive {
		return ref.Status, nil
	}
	status, err := m.service.Status(ctx, ref.Pubkey, owner)
	if err != nil {
		return domain.OrderActive, err
	}
	switch status {
	case "filled":
		return domain.OrderFilled, nil
	case "cancelled":
		return domain.OrderCancelled, nil
	default:
		return domain.OrderActive, nil
	}
}

// CheckFill polls both protective orders and reconciles a fill: the filled
// side is recorded, the counterpart is cancelled before anything else
// proceeds, and the realized proceeds are computed from the order's fixed
// price. Returns nil when neither side filled. The position's order refs are
// updated in place; the caller persists them.
func (m *Manager) CheckFill(ctx context.Context, owner string, pos *domain.Position) (*Fill, error) {
	tpStatus, err := m.PollSide(ctx, owner, pos.TakeProfitOrder)
	if err != nil {
		m.logger.Warn("take-profit order poll failed",
			"position_id", pos.PositionID, "error", err)
	} else {
		pos.TakeProfitOrder.Status = tpStatus
	}

	slStatus, err := m.PollSide(ctx, owner, pos.StopLossOrder)
	if err != nil {
		m.logger.Warn("stop-loss order poll failed",
			"position_id", pos.PositionID, "error", err)
	} else {
		pos.StopLossOrder.Status = slStatus
	}

	if pos.TakeProfitOrder.Status == domain.OrderFilled {
		m.cancelCounterpart(ctx, owner, &pos.StopLossOrder, pos.PositionID)
		return &Fill{
			Side:        SideTakeProfit,
			Price:       pos.TargetPrice,
			ProceedsSOL: pos.Quantity * pos.TargetPrice,
		}, nil
	}
	if pos.StopLossOrder.Status == domain.OrderFilled {
		m.cancelCounterpart(ctx, owner, &pos.TakeProfitOrder, pos.PositionID)
		return &Fill{
			Side:        SideStopLoss,
			Price:       pos.StopPrice,
			ProceedsSOL: pos.Quantity * pos.StopPrice,
		}, nil
	}
	return nil, nil
}

// cancelCounterpart cancels the surviving side after a fill. A cancel that
// fails on the service is still recorded as cancelled locally: the tokens
// are gone, so the order can never fill, and leaving it active would make
// the position look protected forever.
func (m *Manager) cancelCounterpart(ctx context.Context, owner string, ref *domain.OrderRef, positionID string) {
	if ref.Status != domain.OrderActive {
		return
	}
	if err := m.service.Cancel(ctx, ref.Pubkey, owner); err != nil {
		m.logger.Warn("counterpart order cancel failed",
			"position_id", positionID, "order", ref.Pubkey, "error", err)
	}
	ref.Status = domain.OrderCancelled
}

// CancelAll cancels any still-active protective orders, used before a
// threshold-triggered or manual sell so the sell and the order cannot both
// execute.
func (m *Manager) CancelAll(ctx context.Context, owner string, pos *domain.Position) {
	m.cancelCounterpart(ctx, owner, &pos.TakeProfitOrder, pos.PositionID)
	m.cancelCounterpart(ctx, owner, &pos.StopLossOrder, pos.PositionID)
}

// rawTokenAmount converts a UI quantity to base units of the mint.
func rawTokenAmount(quantity float64, decimals int) uint64 {
	if quantity <= 0 {
		return 0
	}
	return uint64(math.Round(quantity * math.Pow10(decimals)))
}

// lamportsFor converts a quantity at price SOL per token into lamports.
func lamportsFor(quantity, price float64) uint64 {
	v := quantity * price * solana.LamportsPerSOL
	if v <= 0 {
		return 0
	}
	return uint64(math.Round(v))
}
