package price

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"solana-agent-engine/internal/solana"
)

// AggregatorSource reads prices from a Jupiter-style price API. It serves
// both chains: token prices quoted against wrapped SOL, and the SOL/USD
// rate for the fiat side.
type AggregatorSource struct {
	baseURL string
	client  *http.Client
}

// NewAggregatorSource creates an aggregator price source.
func NewAggregatorSource(baseURL string, timeout time.Duration) *AggregatorSource {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &AggregatorSource{
		baseURL: baseURL,
		client:  &http.Client{Timeout: timeout},
	}
}

var (
	_ TokenSource = (*AggregatorSource)(nil)
	_ FiatSource  = (*AggregatorSource)(nil)
)

func (s *AggregatorSource) Name() string { return "aggregator" }

// TokenPrice returns the mint's price in SOL.
func (s *AggregatorSource) TokenPrice(ctx context.Context, mint, bondingCurve string) (float64, error) {
	return s.fetch(ctx, mint, solana.WSOLMint)
}

// SOLPriceUSD returns the wrapped SOL price in USD terms.
func (s *AggregatorSource) SOLPriceUSD(ctx context.Context) (float64, error) {
	return s.fetch(ctx, solana.WSOLMint, "")
}

func (s *AggregatorSource) fetch(ctx context.Context, mint, vsToken string) (float64, error) {
	q := url.Values{}
	q.Set("ids", mint)
	if vsToken != "" {
		q.Set("vsToken", vsToken)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.baseURL+"/price?"+q.Encode(), nil)
	if err != nil {
		return 0, fmt.Errorf("create price request: %w", err)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("query aggregator price: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return 0, fmt.Errorf("aggregator price: status %d: %s", resp.StatusCode, string(body))
	}

	var result struct {
		Data map[string]struct {
			Price json.Number `json:"price"`
		} `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return 0, fmt.Errorf("decode aggregator price: %w", err)
	}

	entry, ok := result.Data[mint]
	if !ok {
		return 0, fmt.Errorf("aggregator has no price for %s", mint)
	}
	p, err := strconv.ParseFloat(entry.Price.String(), 64)
	if err != nil {
		return 0, fmt.Errorf("parse aggregator price %q: %w", entry.Price, err)
	}
	return p, nil
}
