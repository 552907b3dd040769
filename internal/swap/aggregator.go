package swap

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

// Quote is an aggregator route for exchanging inputMint into outputMint.
type Quote struct {
	InputMint      string          `json:"inputMint"`
	OutputMint     string          `json:"outputMint"`
	InAmount       string          `json:"inAmount"`
	OutAmount      string          `json:"outAmount"`
	SlippageBps    int             `json:"slippageBps"`
	PriceImpactPct string          `json:"priceImpactPct"`
	RoutePlan      json.RawMessage `json:"routePlan"`
}

// OutAmountRaw parses the quoted output amount in base units.
func (q *Quote) OutAmountRaw() (uint64, error) {
	v, err := strconv.ParseUint(q.OutAmount, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("parse out amount %q: %w", q.OutAmount, err)
	}
	return v, nil
}

// AggregatorClient quotes and builds swaps against a Jupiter-style
// aggregator HTTP API.
type AggregatorClient struct {
	baseURL string
	client  *http.Client
}

// NewAggregatorClient creates a new AggregatorClient.
func NewAggregatorClient(baseURL string, timeout time.Duration) *AggregatorClient {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &AggregatorClient{
		baseURL: baseURL,
		client:  &http.Client{Timeout: timeout},
	}
}

// Quote requests a route for swapping amount base units of inputMint.
func (c *AggregatorClient) Quote(ctx context.Context, inputMint, outputMint string, amount uint64, slippageBps int) (*Quote, error) {
	q := url.Values{}
	q.Set("inputMint", inputMint)
	q.Set("outputMint", outputMint)
	q.Set("amount", strconv.FormatUint(amount, 10))
	q.Set("slippageBps", strconv.Itoa(slippageBps))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/quote?"+q.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("create quote request: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrQuoteUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("%w: status %d: %s", ErrQuoteUnavailable, resp.StatusCode, string(body))
	}

	var quote Quote
	if err := json.NewDecoder(resp.Body).Decode(&quote); err != nil {
		return nil, fmt.Errorf("%w: decode response: %v", ErrQuoteUnavailable, err)
	}
	if quote.OutAmount == "" || quote.OutAmount == "0" {
		return nil, fmt.Errorf("%w: empty route", ErrQuoteUnavailable)
	}
	return &quote, nil
}

// BuildSwap requests an unsigned swap transaction for the quote, returned
// base64-encoded in Solana wire format.
func (c *AggregatorClient) BuildSwap(ctx context.Context, quote *Quote, signerPubkey string) (string, error) {
	payload := map[string]interface{}{
		"quoteResponse":    quote,
		"userPublicKey":    signerPubkey,
		"wrapAndUnwrapSol": true,
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("marshal swap request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/swap", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("create swap request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrBuildFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("%w: status %d: %s", ErrBuildFailed, resp.StatusCode, string(respBody))
	}

	var result struct {
		SwapTransaction string `json:"swapTransaction"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", fmt.Errorf("%w: decode response: %v", ErrBuildFailed, err)
	}
	if result.SwapTransaction == "" {
		return "", fmt.Errorf("%w: empty transaction", ErrBuildFailed)
	}
	return result.SwapTransaction, nil
}
