package orders

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"
)

// ErrOrderRejected marks an order the service refused to create or execute.
var ErrOrderRejected = errors.New("order rejected by service")

// CreateOrderRequest asks the limit-order service for an unsigned order
// transaction. Amounts are raw base units of their respective mints.
type CreateOrderRequest struct {
	InputMint    string `json:"inputMint"`
	OutputMint   string `json:"outputMint"`
	Maker        string `json:"maker"`
	MakingAmount string `json:"makingAmount"`
	TakingAmount string `json:"takingAmount"`
}

// CreateOrderResponse carries the order account and the transaction to sign.
type CreateOrderResponse struct {
	OrderPubkey string `json:"order"`
	UnsignedTx  string `json:"tx"` // base64 wire format
	RequestID   string `json:"requestId"`
}

// ServiceClient talks to a Jupiter-style limit-order HTTP API.
type ServiceClient struct {
	baseURL string
	client  *http.Client
}

// NewServiceClient creates a limit-order service client.
func NewServiceClient(baseURL string, timeout time.Duration) *ServiceClient {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &ServiceClient{
		baseURL: baseURL,
		client:  &http.Client{Timeout: timeout},
	}
}

// CreateOrder requests a new limit order and returns its unsigned transaction.
func (c *ServiceClient) CreateOrder(ctx context.Context, req CreateOrderRequest) (*CreateOrderResponse, error) {
	var resp CreateOrderResponse
	if err := c.postJSON(ctx, "/createOrder", req, &resp); err != nil {
		return nil, err
	}
	if resp.OrderPubkey == "" || resp.UnsignedTx == "" {
		return nil, fmt.Errorf("%w: incomplete create response", ErrOrderRejected)
	}
	return &resp, nil
}

// Execute submits the signed order transaction through the service.
func (c *ServiceClient) Execute(ctx context.Context, signedTxBase64, requestID string) (string, error) {
	req := map[string]string{
		"signedTransaction": signedTxBase64,
		"requestId":         requestID,
	}
	var resp struct {
		Signature string `json:"signature"`
		Status    string `json:"status"`
	}
	if err := c.postJSON(ctx, "/execute", req, &resp); err != nil {
		return "", err
	}
	if resp.Signature == "" {
		return "", fmt.Errorf("%w: execute returned no signature", ErrOrderRejected)
	}
	return resp.Signature, nil
}

// Cancel requests cancellation of an order. The service signs and lands the
// cancellation itself; callers treat failures as best-effort.
func (c *ServiceClient) Cancel(ctx context.Context, orderPubkey, maker string) error {
	req := map[string]string{
		"order": orderPubkey,
		"maker": maker,
	}
	var resp struct {
		Status string `json:"status"`
	}
	return c.postJSON(ctx, "/cancelOrder", req, &resp)
}

// Status queries the current state of an order. Unknown or pending states
// report as "active" so monitoring keeps polling rather than guessing.
func (c *ServiceClient) Status(ctx context.Context, orderPubkey, owner string) (string, error) {
	u := fmt.Sprintf("%s/orderStatus?order=%s&owner=%s", c.baseURL, orderPubkey, owner)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return "", fmt.Errorf("create status request: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("query order status: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("query order status: status %d: %s", resp.StatusCode, string(body))
	}

	var result struct {
		Status string `json:"status"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", fmt.Errorf("decode order status: %w", err)
	}

	switch result.Status {
	case "filled", "cancelled":
		return result.Status, nil
	default:
		return "active", nil
	}
}

func (c *ServiceClient) postJSON(ctx context.Context, path string, payload, out interface{}) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("order service %s: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("%w: %s status %d: %s", ErrOrderRejected, path, resp.StatusCode, string(respBody))
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s response: %w", path, err)
	}
	return nil
}
