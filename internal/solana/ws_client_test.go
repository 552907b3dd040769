package solana

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// wsTestServer upgrades connections and answers one signatureSubscribe with
// a subscription confirmation followed by a notification carrying txErr.
func wsTestServer(t *testing.T, txErr interface{}) *httptest.Server {
	t.Helper()
	upgrader := websocket.Upgrader{}
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		require.NoError(t, err)
		defer conn.Close()

		var req map[string]interface{}
		require.NoError(t, conn.ReadJSON(&req))
		require.Equal(t, "signatureSubscribe", req["method"])

		reqID := req["id"].(float64)
		require.NoError(t, conn.WriteJSON(map[string]interface{}{
			"jsonrpc": "2.0", "id": reqID, "result": 42,
		}))

		notification := map[string]interface{}{
			"jsonrpc": "2.0",
			"method":  "signatureNotification",
			"params": map[string]interface{}{
				"subscription": 42,
				"result": map[string]interface{}{
					"value": map[string]interface{}{"err": txErr},
				},
			},
		}
		require.NoError(t, conn.WriteJSON(notification))
	}))
}

func wsURL(srv *httptest.Server) string {
	return "ws" + strings.TrimPrefix(srv.URL, "http")
}

func TestWSClient_WaitForSignature_Confirmed(t *testing.T) {
	srv := wsTestServer(t, nil)
	defer srv.Close()

	client := NewWSClient(wsURL(srv), nil)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	err := client.WaitForSignature(ctx, "sig123")
	assert.NoError(t, err)
}

func TestWSClient_WaitForSignature_OnChainError(t *testing.T) {
	srv := wsTestServer(t, map[string]interface{}{"InstructionError": []interface{}{0, "Custom"}})
	defer srv.Close()

	client := NewWSClient(wsURL(srv), nil)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	err := client.WaitForSignature(ctx, "sig123")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "transaction failed")
}

func TestWSClient_WaitForSignature_ContextExpiry(t *testing.T) {
	// Server that subscribes but never notifies.
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		require.NoError(t, err)
		defer conn.Close()

		var req map[string]interface{}
		require.NoError(t, conn.ReadJSON(&req))
		reqID := req["id"].(float64)
		require.NoError(t, conn.WriteJSON(map[string]interface{}{
			"jsonrpc": "2.0", "id": reqID, "result": 7,
		}))

		// Hold the connection open past the client's deadline.
		time.Sleep(2 * time.Second)
	}))
	defer srv.Close()

	client := NewWSClient(wsURL(srv), nil)
	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()

	err := client.WaitForSignature(ctx, "sig123")
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestWSClient_DialFailure(t *testing.T) {
	client := NewWSClient("ws://127.0.0.1:1", nil)
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	err := client.WaitForSignature(ctx, "sig123")
	require.Error(t, err)
}
