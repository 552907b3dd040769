package swap

import (
	"context"
	"crypto/ed25519"
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/mr-tron/base58"

	"solana-agent-engine/internal/observability"
	"solana-agent-engine/internal/solana"
	"solana-agent-engine/internal/wallet"
)

const (
	// Confirmation poll budgets for the protected relay path and the public
	// broadcast fallback. The fallback gets the larger budget since it is
	// the last attempt before the outcome goes ambiguous.
	relayConfirmPolls  = 10
	publicConfirmPolls = 15

	defaultConfirmInterval = 2 * time.Second
)

// Route identifies which submission path landed the transaction.
type Route string

const (
	RouteRelay  Route = "relay"
	RoutePublic Route = "public"
)

// Result describes a completed swap.
type Result struct {
	Signature    string
	Route        Route
	InputMint    string
	OutputMint   string
	InLamports   uint64
	OutAmountRaw uint64
}

// Pipeline executes swaps end to end: quote, build, local sign, MEV-protected
// submission with a public broadcast fallback, and bounded confirmation.
type Pipeline struct {
	aggregator      *AggregatorClient
	relay           *RelayClient
	rpc             solana.RPCClient
	ws              solana.WSClient
	logger          *slog.Logger
	confirmInterval time.Duration
}

// PipelineOptions configures a Pipeline. Relay and WS are optional; without a
// relay every swap goes straight to public broadcast, and without a socket
// confirmation relies on status polling alone.
type PipelineOptions struct {
	Aggregator *AggregatorClient
	Relay      *RelayClient
	RPC        solana.RPCClient
	WS         solana.WSClient
	Logger     *slog.Logger

	// ConfirmInterval overrides the pause between status polls. Zero keeps
	// the default.
	ConfirmInterval time.Duration
}

// NewPipeline creates a swap pipeline.
func NewPipeline(opts PipelineOptions) (*Pipeline, error) {
	if opts.Aggregator == nil {
		return nil, errors.New("aggregator client is required")
	}
	if opts.RPC == nil {
		return nil, errors.New("rpc client is required")
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	interval := opts.ConfirmInterval
	if interval <= 0 {
		interval = defaultConfirmInterval
	}
	return &Pipeline{
		aggregator:      opts.Aggregator,
		relay:           opts.Relay,
		rpc:             opts.RPC,
		ws:              opts.WS,
		logger:          logger,
		confirmInterval: interval,
	}, nil
}

// Execute swaps amount base units of inputMint into outputMint on behalf of
// the signer. The unsigned transaction never leaves the process before it is
// signed, and the key is never serialized.
//
// ErrConfirmTimeout is ambiguous: the transaction was broadcast but its fate
// is unknown within the budget. Callers must reconcile against on-chain
// balances before treating the swap as failed.
func (p *Pipeline) Execute(ctx context.Context, signer *wallet.Signer, inputMint, outputMint string, amount uint64, slippageBps int) (*Result, error) {
	started := time.Now()
	quote, err := p.aggregator.Quote(ctx, inputMint, outputMint, amount, slippageBps)
	if err != nil {
		return nil, err
	}
	outRaw, err := quote.OutAmountRaw()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrQuoteUnavailable, err)
	}

	unsignedBase64, err := p.aggregator.BuildSwap(ctx, quote, signer.Address())
	if err != nil {
		return nil, err
	}
	unsigned, err := base64.StdEncoding.DecodeString(unsignedBase64)
	if err != nil {
		return nil, fmt.Errorf("%w: decode transaction: %v", ErrBuildFailed, err)
	}

	signed, err := signer.SignTransaction(unsigned)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSignFailed, err)
	}
	signature, err := extractSignature(signed)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSignFailed, err)
	}
	signedBase58 := wallet.EncodeBase58(signed)

	result := &Result{
		Signature:    signature,
		InputMint:    inputMint,
		OutputMint:   outputMint,
		InLamports:   amount,
		OutAmountRaw: outRaw,
	}

	if p.relay != nil && p.relay.Available() {
		bundleID, err := p.relay.SubmitBundle(ctx, signedBase58)
		if err == nil {
			p.logger.Debug("bundle submitted", "bundle_id", bundleID, "signature", signature)
			if err := p.confirm(ctx, signature, relayConfirmPolls); err == nil {
				result.Route = RouteRelay
				observability.RecordSwap(string(RouteRelay), "confirmed", time.Since(started).Seconds())
				return result, nil
			}
			p.logger.Warn("relay submission did not confirm, falling back to public broadcast",
				"signature", signature)
		} else {
			p.logger.Warn("relay submission failed, falling back to public broadcast",
				"signature", signature, "error", err)
		}
		observability.DefaultMetrics.RelayFallbacks.Inc()
	}

	if _, err := p.rpc.SendTransaction(ctx, signedBase58); err != nil {
		observability.RecordSwap(string(RoutePublic), "submit_failed", time.Since(started).Seconds())
		return nil, fmt.Errorf("%w: %v", ErrSubmitFailed, err)
	}
	if err := p.confirm(ctx, signature, publicConfirmPolls); err != nil {
		if errors.Is(err, solana.ErrTransactionFailed) {
			observability.RecordSwap(string(RoutePublic), "failed", time.Since(started).Seconds())
			return nil, err
		}
		observability.DefaultMetrics.ConfirmTimeouts.Inc()
		observability.RecordSwap(string(RoutePublic), "timeout", time.Since(started).Seconds())
		return nil, fmt.Errorf("%w: signature %s: %v", ErrConfirmTimeout, signature, err)
	}
	result.Route = RoutePublic
	observability.RecordSwap(string(RoutePublic), "confirmed", time.Since(started).Seconds())
	return result, nil
}

// confirm waits for the signature to reach confirmed commitment. A socket
// notification short-circuits the wait, but HTTP status polling remains the
// authority: a socket error other than an on-chain failure drops through to
// the polling loop.
func (p *Pipeline) confirm(ctx context.Context, signature string, polls int) error {
	budget := time.Duration(polls) * p.confirmInterval
	confirmCtx, cancel := context.WithTimeout(ctx, budget)
	defer cancel()

	if p.ws != nil {
		err := p.ws.WaitForSignature(confirmCtx, signature)
		if err == nil {
			return nil
		}
		if errors.Is(err, solana.ErrTransactionFailed) {
			return err
		}
	}

	for i := 0; i < polls; i++ {
		statuses, err := p.rpc.GetSignatureStatuses(confirmCtx, []string{signature})
		if err == nil && len(statuses) == 1 && statuses[0] != nil {
			if statuses[0].Err != nil {
				return fmt.Errorf("%w: %v", solana.ErrTransactionFailed, statuses[0].Err)
			}
			if statuses[0].Confirmed() {
				return nil
			}
		}
		select {
		case <-confirmCtx.Done():
			return confirmCtx.Err()
		case <-time.After(p.confirmInterval):
		}
	}
	return fmt.Errorf("not confirmed after %d polls", polls)
}

// extractSignature reads the fee payer signature from a signed transaction in
// wire format and returns it base58-encoded. The signature doubles as the
// transaction id, so it is known before broadcast.
func extractSignature(signed []byte) (string, error) {
	if len(signed) == 0 {
		return "", errors.New("empty transaction")
	}
	// Signature counts fit a single compact-u16 byte in practice.
	offset := 1
	if signed[0]&0x80 != 0 {
		offset = 2
	}
	if len(signed) < offset+ed25519.SignatureSize {
		return "", errors.New("transaction shorter than one signature")
	}
	return base58.Encode(signed[offset : offset+ed25519.SignatureSize]), nil
}
