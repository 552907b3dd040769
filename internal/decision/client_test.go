package decision

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"solana-agent-engine/internal/domain"
)

func entryRequest() *EntryRequest {
	return &EntryRequest{
		Agent: &domain.TradingAgent{AgentID: "agent-1", Strategy: domain.StrategyBalanced},
		Candidates: []*domain.CandidateToken{
			{Mint: "mintA", Symbol: "AAA"},
			{Mint: "mintB", Symbol: "BBB"},
		},
		ProposedSizeSOL: 0.4,
	}
}

func TestClient_Entry_Approved(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/v1/decide/entry", r.URL.Path)
		var req EntryRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "agent-1", req.Agent.AgentID)
		json.NewEncoder(w).Encode(EntryDecision{
			ShouldTrade:  true,
			SelectedMint: "mintB",
			Rationale:    "momentum building",
			Confidence:   0.72,
		})
	}))
	defer srv.Close()

	client := NewClient(srv.URL, 0)
	decision, err := client.Entry(context.Background(), entryRequest())
	require.NoError(t, err)

	assert.True(t, decision.ShouldTrade)
	assert.Equal(t, "mintB", decision.SelectedMint)
	assert.InDelta(t, 0.72, decision.Confidence, 1e-9)
}

func TestClient_Entry_Declined(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(EntryDecision{ShouldTrade: false, Rationale: "nothing attractive"})
	}))
	defer srv.Close()

	client := NewClient(srv.URL, 0)
	decision, err := client.Entry(context.Background(), entryRequest())
	require.NoError(t, err)
	assert.False(t, decision.ShouldTrade)
}

func TestClient_Entry_SelectedTokenMustBeCandidate(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(EntryDecision{
			ShouldTrade:  true,
			SelectedMint: "mintNotOffered",
			Confidence:   0.9,
		})
	}))
	defer srv.Close()

	client := NewClient(srv.URL, 0)
	_, err := client.Entry(context.Background(), entryRequest())
	assert.ErrorIs(t, err, ErrMalformedDecision)
}

func TestClient_Entry_ConfidenceOutOfRange(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(EntryDecision{
			ShouldTrade:  true,
			SelectedMint: "mintA",
			Confidence:   1.5,
		})
	}))
	defer srv.Close()

	client := NewClient(srv.URL, 0)
	_, err := client.Entry(context.Background(), entryRequest())
	assert.ErrorIs(t, err, ErrMalformedDecision)
}

func TestClient_Entry_ServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "overloaded", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	client := NewClient(srv.URL, 0)
	_, err := client.Entry(context.Background(), entryRequest())
	assert.Error(t, err)
}

func TestClient_Exit(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/v1/decide/exit", r.URL.Path)
		json.NewEncoder(w).Encode(ExitExplanation{
			ExitReason: "take profit at +50%",
			Lessons:    []string{"narrative held through volatility"},
			Patterns:   []string{"early-entry"},
		})
	}))
	defer srv.Close()

	client := NewClient(srv.URL, 0)
	explanation, err := client.Exit(context.Background(), &ExitRequest{
		Agent:       &domain.TradingAgent{AgentID: "agent-1"},
		Position:    &domain.Position{PositionID: "pos-1"},
		CloseReason: "take_profit",
	})
	require.NoError(t, err)
	assert.Equal(t, "take profit at +50%", explanation.ExitReason)
	assert.Len(t, explanation.Lessons, 1)
}

func TestClient_Exit_EmptyReason(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(ExitExplanation{})
	}))
	defer srv.Close()

	client := NewClient(srv.URL, 0)
	_, err := client.Exit(context.Background(), &ExitRequest{})
	assert.ErrorIs(t, err, ErrMalformedDecision)
}
