package swap

import (
	"context"
	"crypto/ed25519"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/mr-tron/base58"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"solana-agent-engine/internal/observability"
	"solana-agent-engine/internal/solana"
	"solana-agent-engine/internal/wallet"
)

// fakeRPC implements solana.RPCClient with programmable behavior.
type fakeRPC struct {
	mu          sync.Mutex
	sent        []string
	statusAfter int // polls before the signature reports confirmed
	statusCalls int
	failTx      bool
}

var _ solana.RPCClient = (*fakeRPC)(nil)

func (f *fakeRPC) GetBalance(ctx context.Context, address string) (uint64, error) {
	return 0, nil
}

func (f *fakeRPC) GetTokenBalance(ctx context.Context, owner, mint string) (*solana.TokenBalance, error) {
	return &solana.TokenBalance{}, nil
}

func (f *fakeRPC) GetAccountData(ctx context.Context, address string) ([]byte, error) {
	return nil, nil
}

func (f *fakeRPC) SendTransaction(ctx context.Context, signedTxBase58 string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, signedTxBase58)
	return "sig", nil
}

func (f *fakeRPC) GetSignatureStatuses(ctx context.Context, signatures []string) ([]*solana.SignatureStatus, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.statusCalls++
	if f.statusCalls <= f.statusAfter {
		return []*solana.SignatureStatus{nil}, nil
	}
	status := &solana.SignatureStatus{ConfirmationStatus: "confirmed"}
	if f.failTx {
		status.Err = map[string]interface{}{"InstructionError": []interface{}{0, "Custom"}}
	}
	return []*solana.SignatureStatus{status}, nil
}

func (f *fakeRPC) sendCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.sent)
}

// newTestSigner builds a signer through the vault so the key path mirrors
// production, and returns the raw private key for signature assertions.
func newTestSigner(t *testing.T) (*wallet.Signer, ed25519.PrivateKey) {
	t.Helper()

	seed := make([]byte, ed25519.SeedSize)
	_, err := rand.Read(seed)
	require.NoError(t, err)

	priv := ed25519.NewKeyFromSeed(seed)
	address := base58.Encode(priv.Public().(ed25519.PublicKey))

	vault, err := wallet.NewVault("pipeline-test-secret")
	require.NoError(t, err)
	encrypted, err := vault.Encrypt(seed)
	require.NoError(t, err)

	signer, err := vault.Signer(encrypted, address)
	require.NoError(t, err)
	return signer, priv
}

// testUnsignedTx builds a minimal wire-format transaction: one reserved
// signature slot followed by the message.
func testUnsignedTx(message []byte) []byte {
	tx := make([]byte, 0, 1+ed25519.SignatureSize+len(message))
	tx = append(tx, 0x01)
	tx = append(tx, make([]byte, ed25519.SignatureSize)...)
	return append(tx, message...)
}

func aggregatorTestServer(t *testing.T, unsignedTx []byte) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/quote":
			assert.Equal(t, http.MethodGet, r.Method)
			json.NewEncoder(w).Encode(Quote{
				InputMint:   r.URL.Query().Get("inputMint"),
				OutputMint:  r.URL.Query().Get("outputMint"),
				InAmount:    r.URL.Query().Get("amount"),
				OutAmount:   "123456789",
				SlippageBps: 300,
			})
		case "/swap":
			assert.Equal(t, http.MethodPost, r.Method)
			json.NewEncoder(w).Encode(map[string]string{
				"swapTransaction": base64.StdEncoding.EncodeToString(unsignedTx),
			})
		default:
			http.NotFound(w, r)
		}
	}))
}

func relayTestServer(t *testing.T, status int) (*httptest.Server, *int) {
	t.Helper()
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if status != http.StatusOK {
			w.WriteHeader(status)
			return
		}
		json.NewEncoder(w).Encode(map[string]interface{}{
			"jsonrpc": "2.0",
			"id":      1,
			"result":  "bundle-1",
		})
	}))
	return srv, &calls
}

func TestPipeline_Execute_RelayPath(t *testing.T) {
	signer, priv := newTestSigner(t)
	defer signer.Destroy()

	message := []byte("swap-message-relay")
	aggSrv := aggregatorTestServer(t, testUnsignedTx(message))
	defer aggSrv.Close()
	relaySrv, relayCalls := relayTestServer(t, http.StatusOK)
	defer relaySrv.Close()

	rpc := &fakeRPC{}
	pipeline, err := NewPipeline(PipelineOptions{
		Aggregator:      NewAggregatorClient(aggSrv.URL, 0),
		Relay:           NewRelayClient([]string{relaySrv.URL}, 0),
		RPC:             rpc,
		ConfirmInterval: 5 * time.Millisecond,
	})
	require.NoError(t, err)

	result, err := pipeline.Execute(context.Background(), signer, "So11111111111111111111111111111111111111112", "TokenMint", 500_000_000, 300)
	require.NoError(t, err)

	assert.Equal(t, RouteRelay, result.Route)
	assert.Equal(t, uint64(500_000_000), result.InLamports)
	assert.Equal(t, uint64(123456789), result.OutAmountRaw)
	assert.Equal(t, 1, *relayCalls)
	assert.Equal(t, 0, rpc.sendCount(), "relay success must not broadcast publicly")

	wantSig := base58.Encode(ed25519.Sign(priv, message))
	assert.Equal(t, wantSig, result.Signature, "signature derived from signed bytes before broadcast")
}

func TestPipeline_Execute_PublicFallbackWhenRelayRejects(t *testing.T) {
	signer, _ := newTestSigner(t)
	defer signer.Destroy()

	aggSrv := aggregatorTestServer(t, testUnsignedTx([]byte("swap-message-fallback")))
	defer aggSrv.Close()
	relaySrv, relayCalls := relayTestServer(t, http.StatusServiceUnavailable)
	defer relaySrv.Close()

	rpc := &fakeRPC{}
	pipeline, err := NewPipeline(PipelineOptions{
		Aggregator:      NewAggregatorClient(aggSrv.URL, 0),
		Relay:           NewRelayClient([]string{relaySrv.URL}, 0),
		RPC:             rpc,
		ConfirmInterval: 5 * time.Millisecond,
	})
	require.NoError(t, err)

	result, err := pipeline.Execute(context.Background(), signer, "inMint", "outMint", 100, 300)
	require.NoError(t, err)

	assert.Equal(t, RoutePublic, result.Route)
	assert.Equal(t, 1, *relayCalls)
	assert.Equal(t, 1, rpc.sendCount())
}

func TestPipeline_Execute_NoRelayGoesPublic(t *testing.T) {
	signer, _ := newTestSigner(t)
	defer signer.Destroy()

	aggSrv := aggregatorTestServer(t, testUnsignedTx([]byte("swap-message-public")))
	defer aggSrv.Close()

	rpc := &fakeRPC{statusAfter: 2}
	pipeline, err := NewPipeline(PipelineOptions{
		Aggregator:      NewAggregatorClient(aggSrv.URL, 0),
		RPC:             rpc,
		ConfirmInterval: 5 * time.Millisecond,
	})
	require.NoError(t, err)

	result, err := pipeline.Execute(context.Background(), signer, "inMint", "outMint", 100, 300)
	require.NoError(t, err)
	assert.Equal(t, RoutePublic, result.Route)
	assert.Equal(t, 1, rpc.sendCount())
}

func TestPipeline_Execute_ConfirmTimeoutIsAmbiguous(t *testing.T) {
	signer, _ := newTestSigner(t)
	defer signer.Destroy()

	aggSrv := aggregatorTestServer(t, testUnsignedTx([]byte("swap-message-timeout")))
	defer aggSrv.Close()

	// Signature never reports a status inside the budget.
	rpc := &fakeRPC{statusAfter: 1_000_000}
	pipeline, err := NewPipeline(PipelineOptions{
		Aggregator:      NewAggregatorClient(aggSrv.URL, 0),
		RPC:             rpc,
		ConfirmInterval: time.Millisecond,
	})
	require.NoError(t, err)

	result, err := pipeline.Execute(context.Background(), signer, "inMint", "outMint", 100, 300)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrConfirmTimeout)
	assert.Nil(t, result)
	assert.Equal(t, 1, rpc.sendCount(), "transaction was broadcast before the timeout")
}

func TestPipeline_Execute_CountsFallbacksAndTimeouts(t *testing.T) {
	signer, _ := newTestSigner(t)
	defer signer.Destroy()

	fallbacks := observability.DefaultMetrics.RelayFallbacks
	timeouts := observability.DefaultMetrics.ConfirmTimeouts
	publicConfirmed := observability.DefaultMetrics.SwapsTotal.WithLabelValues(string(RoutePublic), "confirmed")
	publicTimedOut := observability.DefaultMetrics.SwapsTotal.WithLabelValues(string(RoutePublic), "timeout")
	fallbacksBefore := testutil.ToFloat64(fallbacks)
	timeoutsBefore := testutil.ToFloat64(timeouts)
	confirmedBefore := testutil.ToFloat64(publicConfirmed)
	timedOutBefore := testutil.ToFloat64(publicTimedOut)

	aggSrv := aggregatorTestServer(t, testUnsignedTx([]byte("swap-message-counted")))
	defer aggSrv.Close()
	relaySrv, _ := relayTestServer(t, http.StatusServiceUnavailable)
	defer relaySrv.Close()

	pipeline, err := NewPipeline(PipelineOptions{
		Aggregator:      NewAggregatorClient(aggSrv.URL, 0),
		Relay:           NewRelayClient([]string{relaySrv.URL}, 0),
		RPC:             &fakeRPC{},
		ConfirmInterval: 5 * time.Millisecond,
	})
	require.NoError(t, err)

	_, err = pipeline.Execute(context.Background(), signer, "inMint", "outMint", 100, 300)
	require.NoError(t, err)

	assert.Equal(t, fallbacksBefore+1, testutil.ToFloat64(fallbacks))
	assert.Equal(t, confirmedBefore+1, testutil.ToFloat64(publicConfirmed))

	// A second execution whose signature never confirms counts a timeout.
	stuck, err := NewPipeline(PipelineOptions{
		Aggregator:      NewAggregatorClient(aggSrv.URL, 0),
		RPC:             &fakeRPC{statusAfter: 1_000_000},
		ConfirmInterval: time.Millisecond,
	})
	require.NoError(t, err)

	_, err = stuck.Execute(context.Background(), signer, "inMint", "outMint", 100, 300)
	require.ErrorIs(t, err, ErrConfirmTimeout)

	assert.Equal(t, timeoutsBefore+1, testutil.ToFloat64(timeouts))
	assert.Equal(t, timedOutBefore+1, testutil.ToFloat64(publicTimedOut))
}

func TestPipeline_Execute_QuoteUnavailable(t *testing.T) {
	signer, _ := newTestSigner(t)
	defer signer.Destroy()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "no route", http.StatusBadRequest)
	}))
	defer srv.Close()

	pipeline, err := NewPipeline(PipelineOptions{
		Aggregator: NewAggregatorClient(srv.URL, 0),
		RPC:        &fakeRPC{},
	})
	require.NoError(t, err)

	_, err = pipeline.Execute(context.Background(), signer, "inMint", "outMint", 100, 300)
	assert.ErrorIs(t, err, ErrQuoteUnavailable)
}

func TestPipeline_Execute_OnChainFailure(t *testing.T) {
	signer, _ := newTestSigner(t)
	defer signer.Destroy()

	aggSrv := aggregatorTestServer(t, testUnsignedTx([]byte("swap-message-failed")))
	defer aggSrv.Close()

	rpc := &fakeRPC{failTx: true}
	pipeline, err := NewPipeline(PipelineOptions{
		Aggregator:      NewAggregatorClient(aggSrv.URL, 0),
		RPC:             rpc,
		ConfirmInterval: time.Millisecond,
	})
	require.NoError(t, err)

	_, err = pipeline.Execute(context.Background(), signer, "inMint", "outMint", 100, 300)
	require.Error(t, err)
	assert.ErrorIs(t, err, solana.ErrTransactionFailed)
	assert.NotErrorIs(t, err, ErrConfirmTimeout, "an execution failure is definite, not ambiguous")
}

func TestRelayClient_SubmitBundle_RejectedByRelay(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]interface{}{
			"jsonrpc": "2.0",
			"id":      1,
			"error":   map[string]interface{}{"code": -32602, "message": "bundle too large"},
		})
	}))
	defer srv.Close()

	client := NewRelayClient([]string{srv.URL}, 0)
	_, err := client.SubmitBundle(context.Background(), "signedTx")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bundle too large")
}

func TestRelayClient_SubmitBundle_ConcurrentWorkers(t *testing.T) {
	// One client is shared by the execution and monitoring workers, which
	// run as separate goroutines and may submit at the same time.
	var calls atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		json.NewEncoder(w).Encode(map[string]interface{}{
			"jsonrpc": "2.0",
			"id":      1,
			"result":  "bundle-1",
		})
	}))
	defer srv.Close()

	client := NewRelayClient([]string{srv.URL, srv.URL, srv.URL}, 0)

	const workers, submissions = 8, 25
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < submissions; j++ {
				id, err := client.SubmitBundle(context.Background(), "signedTx")
				assert.NoError(t, err)
				assert.Equal(t, "bundle-1", id)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int64(workers*submissions), calls.Load())
}

func TestExtractSignature(t *testing.T) {
	sig := make([]byte, ed25519.SignatureSize)
	for i := range sig {
		sig[i] = byte(i)
	}
	tx := append([]byte{0x01}, sig...)
	tx = append(tx, []byte("message")...)

	got, err := extractSignature(tx)
	require.NoError(t, err)
	assert.Equal(t, base58.Encode(sig), got)

	_, err = extractSignature([]byte{0x01, 0x02})
	assert.Error(t, err)
}
