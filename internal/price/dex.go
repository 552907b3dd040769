package price

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"
)

// DexAnalyticsSource reads pair data from a DEX analytics API and prices the
// token off its most liquid market.
type DexAnalyticsSource struct {
	baseURL string
	client  *http.Client
}

// NewDexAnalyticsSource creates a DEX analytics price source.
func NewDexAnalyticsSource(baseURL string, timeout time.Duration) *DexAnalyticsSource {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &DexAnalyticsSource{
		baseURL: baseURL,
		client:  &http.Client{Timeout: timeout},
	}
}

var _ TokenSource = (*DexAnalyticsSource)(nil)

func (s *DexAnalyticsSource) Name() string { return "dex_analytics" }

type dexPair struct {
	PriceNative string `json:"priceNative"`
	Liquidity   struct {
		USD float64 `json:"usd"`
	} `json:"liquidity"`
}

// TokenPrice returns the native price from the pair with the deepest
// liquidity. Thin markets report many stale pairs; liquidity is the only
// ranking that survives that.
func (s *DexAnalyticsSource) TokenPrice(ctx context.Context, mint, bondingCurve string) (float64, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.baseURL+"/tokens/"+mint, nil)
	if err != nil {
		return 0, fmt.Errorf("create pairs request: %w", err)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("query dex pairs: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return 0, fmt.Errorf("dex pairs: status %d: %s", resp.StatusCode, string(body))
	}

	var result struct {
		Pairs []dexPair `json:"pairs"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return 0, fmt.Errorf("decode dex pairs: %w", err)
	}
	if len(result.Pairs) == 0 {
		return 0, fmt.Errorf("no pairs listed for %s", mint)
	}

	best := result.Pairs[0]
	for _, p := range result.Pairs[1:] {
		if p.Liquidity.USD > best.Liquidity.USD {
			best = p
		}
	}

	price, err := strconv.ParseFloat(best.PriceNative, 64)
	if err != nil {
		return 0, fmt.Errorf("parse pair price %q: %w", best.PriceNative, err)
	}
	return price, nil
}
