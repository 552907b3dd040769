package solana

import (
	"context"
	"encoding/json"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
)

// WSConfig configures WebSocket client behavior.
type WSConfig struct {
	// HandshakeTimeout bounds the initial dial.
	HandshakeTimeout time.Duration
	// WriteTimeout is timeout for writing messages.
	WriteTimeout time.Duration
}

// DefaultWSConfig returns default WebSocket configuration.
func DefaultWSConfig() WSConfig {
	return WSConfig{
		HandshakeTimeout: 10 * time.Second,
		WriteTimeout:     10 * time.Second,
	}
}

// WSClientImpl implements WSClient using gorilla/websocket.
//
// Each WaitForSignature call opens a dedicated connection. Signature waits
// are rare (one per swap) and short-lived, so per-call connections keep the
// client free of reconnect and resubscription state.
type WSClientImpl struct {
	endpoint  string
	config    WSConfig
	requestID atomic.Uint64
}

// NewWSClient creates a new WebSocket client for the endpoint.
func NewWSClient(endpoint string, config *WSConfig) *WSClientImpl {
	cfg := DefaultWSConfig()
	if config != nil {
		cfg = *config
	}
	return &WSClientImpl{endpoint: endpoint, config: cfg}
}

// Compile-time interface check.
var _ WSClient = (*WSClientImpl)(nil)

// wsMessage is the envelope of both RPC replies and notifications.
type wsMessage struct {
	ID     uint64          `json:"id,omitempty"`
	Result json.RawMessage `json:"result,omitempty"`
	Error  *rpcError       `json:"error,omitempty"`
	Method string          `json:"method,omitempty"`
	Params *struct {
		Result struct {
			Value struct {
				Err interface{} `json:"err"`
			} `json:"value"`
		} `json:"result"`
	} `json:"params,omitempty"`
}

// WaitForSignature subscribes to a signature and blocks until notified.
func (c *WSClientImpl) WaitForSignature(ctx context.Context, signature string) error {
	dialer := websocket.Dialer{HandshakeTimeout: c.config.HandshakeTimeout}
	conn, _, err := dialer.DialContext(ctx, c.endpoint, nil)
	if err != nil {
		return fmt.Errorf("websocket dial: %w", err)
	}
	defer conn.Close()

	// Unblock reads when ctx expires.
	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetReadDeadline(deadline)
	}
	stop := context.AfterFunc(ctx, func() {
		_ = conn.SetReadDeadline(time.Now())
	})
	defer stop()

	reqID := c.requestID.Add(1)
	req := rpcRequest{
		JSONRPC: "2.0",
		ID:      reqID,
		Method:  "signatureSubscribe",
		Params: []interface{}{
			signature,
			map[string]interface{}{"commitment": "confirmed"},
		},
	}

	_ = conn.SetWriteDeadline(time.Now().Add(c.config.WriteTimeout))
	if err := conn.WriteJSON(req); err != nil {
		return fmt.Errorf("write subscribe request: %w", err)
	}

	for {
		var msg wsMessage
		if err := conn.ReadJSON(&msg); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return fmt.Errorf("read websocket message: %w", err)
		}

		if msg.Error != nil {
			return msg.Error
		}

		// Subscription confirmation for our request; keep reading.
		if msg.ID == reqID {
			continue
		}

		if msg.Method == "signatureNotification" && msg.Params != nil {
			if txErr := msg.Params.Result.Value.Err; txErr != nil {
				return fmt.Errorf("%w: %v", ErrTransactionFailed, txErr)
			}
			return nil
		}
	}
}

// Close closes the WebSocket client. Connections are per-call, so there is
// no shared state to tear down.
func (c *WSClientImpl) Close() error {
	return nil
}
