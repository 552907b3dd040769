package solana

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// rpcHandler returns an httptest server answering every method via the
// provided result builders.
func rpcHandler(t *testing.T, results map[string]interface{}) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req rpcRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))

		result, ok := results[req.Method]
		if !ok {
			t.Errorf("unexpected RPC method %s", req.Method)
			http.Error(w, "unexpected method", http.StatusBadRequest)
			return
		}

		raw, err := json.Marshal(result)
		require.NoError(t, err)
		resp := rpcResponse{JSONRPC: "2.0", ID: req.ID, Result: raw}
		require.NoError(t, json.NewEncoder(w).Encode(resp))
	}))
}

func TestHTTPClient_GetBalance(t *testing.T) {
	srv := rpcHandler(t, map[string]interface{}{
		"getBalance": map[string]interface{}{"value": uint64(2_500_000_000)},
	})
	defer srv.Close()

	client := NewHTTPClient(srv.URL)
	lamports, err := client.GetBalance(context.Background(), "SomeWallet")
	require.NoError(t, err)
	assert.Equal(t, uint64(2_500_000_000), lamports)
}

func TestHTTPClient_GetTokenBalance_SumsAccounts(t *testing.T) {
	account := func(amount string, ui float64) map[string]interface{} {
		return map[string]interface{}{
			"account": map[string]interface{}{
				"data": map[string]interface{}{
					"parsed": map[string]interface{}{
						"info": map[string]interface{}{
							"tokenAmount": map[string]interface{}{
								"amount": amount, "decimals": 6, "uiAmount": ui,
							},
						},
					},
				},
			},
		}
	}
	srv := rpcHandler(t, map[string]interface{}{
		"getTokenAccountsByOwner": map[string]interface{}{
			"value": []interface{}{
				account("1500000", 1.5),
				account("500000", 0.5),
			},
		},
	})
	defer srv.Close()

	client := NewHTTPClient(srv.URL)
	bal, err := client.GetTokenBalance(context.Background(), "Owner", "Mint")
	require.NoError(t, err)
	assert.Equal(t, uint64(2_000_000), bal.RawAmount)
	assert.InDelta(t, 2.0, bal.UIAmount, 1e-9)
	assert.Equal(t, 6, bal.Decimals)
}

func TestHTTPClient_GetTokenBalance_NoAccounts(t *testing.T) {
	srv := rpcHandler(t, map[string]interface{}{
		"getTokenAccountsByOwner": map[string]interface{}{"value": []interface{}{}},
	})
	defer srv.Close()

	client := NewHTTPClient(srv.URL)
	bal, err := client.GetTokenBalance(context.Background(), "Owner", "Mint")
	require.NoError(t, err)
	assert.Equal(t, uint64(0), bal.RawAmount)
}

func TestHTTPClient_SendTransaction(t *testing.T) {
	srv := rpcHandler(t, map[string]interface{}{
		"sendTransaction": "5Signature111",
	})
	defer srv.Close()

	client := NewHTTPClient(srv.URL)
	sig, err := client.SendTransaction(context.Background(), "base58tx")
	require.NoError(t, err)
	assert.Equal(t, "5Signature111", sig)
}

func TestHTTPClient_GetSignatureStatuses_UnknownIsNil(t *testing.T) {
	srv := rpcHandler(t, map[string]interface{}{
		"getSignatureStatuses": map[string]interface{}{
			"value": []interface{}{
				map[string]interface{}{
					"slot": 123, "confirmations": nil,
					"confirmationStatus": "finalized", "err": nil,
				},
				nil,
			},
		},
	})
	defer srv.Close()

	client := NewHTTPClient(srv.URL)
	statuses, err := client.GetSignatureStatuses(context.Background(), []string{"a", "b"})
	require.NoError(t, err)
	require.Len(t, statuses, 2)
	assert.True(t, statuses[0].Confirmed())
	assert.Nil(t, statuses[1])
	assert.False(t, statuses[1].Confirmed())
}

func TestHTTPClient_RetriesTransientFailures(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			http.Error(w, "boom", http.StatusInternalServerError)
			return
		}
		var req rpcRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		raw, _ := json.Marshal(map[string]interface{}{"value": uint64(7)})
		_ = json.NewEncoder(w).Encode(rpcResponse{JSONRPC: "2.0", ID: req.ID, Result: raw})
	}))
	defer srv.Close()

	client := NewHTTPClient(srv.URL,
		WithMaxRetries(3),
		WithRetryDelay(time.Millisecond),
		WithMaxDelay(5*time.Millisecond),
	)
	lamports, err := client.GetBalance(context.Background(), "addr")
	require.NoError(t, err)
	assert.Equal(t, uint64(7), lamports)
	assert.Equal(t, int32(3), calls.Load())
}

func TestHTTPClient_RPCErrorNotRetried(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		var req rpcRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		_ = json.NewEncoder(w).Encode(rpcResponse{
			JSONRPC: "2.0", ID: req.ID,
			Error: &rpcError{Code: -32602, Message: "invalid params"},
		})
	}))
	defer srv.Close()

	client := NewHTTPClient(srv.URL, WithMaxRetries(3), WithRetryDelay(time.Millisecond))
	_, err := client.GetBalance(context.Background(), "addr")
	require.Error(t, err)
	assert.Equal(t, int32(1), calls.Load())
}
