package swap

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"time"
)

// RelayClient submits transactions as privately relayed bundles through a
// Jito-style MEV-protected relay. Several regional endpoints are considered
// equivalent; each submission picks one at random to spread load.
type RelayClient struct {
	endpoints []string
	client    *http.Client
}

// NewRelayClient creates a new RelayClient over the given endpoints.
func NewRelayClient(endpoints []string, timeout time.Duration) *RelayClient {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &RelayClient{
		endpoints: endpoints,
		client:    &http.Client{Timeout: timeout},
	}
}

// Available reports whether any relay endpoint is configured.
func (c *RelayClient) Available() bool {
	return len(c.endpoints) > 0
}

// SubmitBundle submits one signed base58 transaction as a single-tx bundle.
// Confirmation is observed through the chain's signature status, not a
// relay-specific poll, so only the bundle id is returned.
func (c *RelayClient) SubmitBundle(ctx context.Context, signedTxBase58 string) (string, error) {
	if !c.Available() {
		return "", fmt.Errorf("no relay endpoints configured")
	}
	// Top-level rand is safe for concurrent use; one client is shared by
	// both workers.
	endpoint := c.endpoints[rand.Intn(len(c.endpoints))]

	payload := map[string]interface{}{
		"jsonrpc": "2.0",
		"id":      1,
		"method":  "sendBundle",
		"params":  []interface{}{[]string{signedTxBase58}},
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("marshal bundle request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("create bundle request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("submit bundle: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("submit bundle: status %d: %s", resp.StatusCode, string(respBody))
	}

	var result struct {
		Result string `json:"result"`
		Error  *struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", fmt.Errorf("decode bundle response: %w", err)
	}
	if result.Error != nil {
		return "", fmt.Errorf("relay rejected bundle: %s", result.Error.Message)
	}
	return result.Result, nil
}
