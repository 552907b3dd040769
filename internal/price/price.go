// Package price resolves token prices through ordered fallback chains.
//
// The token chain (aggregator, DEX analytics, bonding curve) produces prices
// in SOL per token and feeds trading thresholds. The fiat chain (aggregator,
// market-data mirrors, oracle account) produces the SOL/USD rate and is used
// for display and valuation only, never for thresholds. When every source in
// a chain fails the caller skips the item for this pass instead of acting on
// a defaulted zero.
package price

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
)

// ErrPriceUnavailable means every source in a chain failed for this lookup.
var ErrPriceUnavailable = errors.New("no price source available")

// TokenQuote is one resolved token price with its originating source.
type TokenQuote struct {
	Mint   string
	Price  float64 // SOL per token
	Source string
}

// TokenSource resolves a token's price in SOL. bondingCurve may be empty for
// migrated tokens; sources that need it report failure without one.
type TokenSource interface {
	Name() string
	TokenPrice(ctx context.Context, mint, bondingCurve string) (float64, error)
}

// FiatSource resolves the SOL/USD rate.
type FiatSource interface {
	Name() string
	SOLPriceUSD(ctx context.Context) (float64, error)
}

// TokenChain tries token sources in priority order.
type TokenChain struct {
	sources []TokenSource
	logger  *slog.Logger
}

// NewTokenChain creates a token price chain over the sources in order.
func NewTokenChain(logger *slog.Logger, sources ...TokenSource) *TokenChain {
	if logger == nil {
		logger = slog.Default()
	}
	return &TokenChain{sources: sources, logger: logger}
}

// Resolve returns the first positive price any source yields.
func (c *TokenChain) Resolve(ctx context.Context, mint, bondingCurve string) (*TokenQuote, error) {
	for _, src := range c.sources {
		p, err := src.TokenPrice(ctx, mint, bondingCurve)
		if err != nil {
			c.logger.Debug("token price source failed",
				"source", src.Name(), "mint", mint, "error", err)
			continue
		}
		if p <= 0 {
			continue
		}
		return &TokenQuote{Mint: mint, Price: p, Source: src.Name()}, nil
	}
	return nil, fmt.Errorf("%w: mint %s", ErrPriceUnavailable, mint)
}

// FiatChain tries fiat sources in priority order.
type FiatChain struct {
	sources []FiatSource
	logger  *slog.Logger
}

// NewFiatChain creates a SOL/USD price chain over the sources in order.
func NewFiatChain(logger *slog.Logger, sources ...FiatSource) *FiatChain {
	if logger == nil {
		logger = slog.Default()
	}
	return &FiatChain{sources: sources, logger: logger}
}

// Resolve returns the first positive SOL/USD rate any source yields.
func (c *FiatChain) Resolve(ctx context.Context) (float64, error) {
	for _, src := range c.sources {
		p, err := src.SOLPriceUSD(ctx)
		if err != nil {
			c.logger.Debug("fiat price source failed",
				"source", src.Name(), "error", err)
			continue
		}
		if p <= 0 {
			continue
		}
		return p, nil
	}
	return 0, fmt.Errorf("%w: SOL/USD", ErrPriceUnavailable)
}
