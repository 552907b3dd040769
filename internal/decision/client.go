// Package decision talks to the external decision service. Its answers are
// advice only: the engine enforces sizing, limits and thresholds itself, and
// any failure or malformed reply collapses to "do not trade".
package decision

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"solana-agent-engine/internal/domain"
)

// ErrMalformedDecision marks a reply the engine refuses to act on.
var ErrMalformedDecision = errors.New("malformed decision response")

// EntryRequest carries the full context for an entry decision.
type EntryRequest struct {
	Agent           *domain.TradingAgent     `json:"agent"`
	Strategy        domain.StrategyParams    `json:"strategy"`
	RecentTrades    []*domain.Trade          `json:"recentTrades"`
	Candidates      []*domain.CandidateToken `json:"candidates"`
	ProposedSizeSOL float64                  `json:"proposedSizeSol"`
}

// EntryDecision is the service's answer to an entry request.
type EntryDecision struct {
	ShouldTrade  bool    `json:"shouldTrade"`
	SelectedMint string  `json:"selectedToken"`
	Rationale    string  `json:"rationale"`
	Narrative    string  `json:"narrative"`
	Confidence   float64 `json:"confidence"`
}

// ExitRequest carries a closed position for post-trade analysis.
type ExitRequest struct {
	Agent       *domain.TradingAgent `json:"agent"`
	Position    *domain.Position     `json:"position"`
	CloseReason string               `json:"closeReason"`
	RealizedPnL float64              `json:"realizedPnl"`
}

// ExitExplanation is the service's post-trade commentary.
type ExitExplanation struct {
	ExitReason string   `json:"exitReason"`
	Lessons    []string `json:"lessons"`
	Patterns   []string `json:"patterns"`
}

// GenericExitExplanation stands in when the service cannot explain a close.
func GenericExitExplanation(reason string) *ExitExplanation {
	return &ExitExplanation{ExitReason: reason}
}

// Client is the decision-service HTTP client.
type Client struct {
	baseURL string
	client  *http.Client
}

// NewClient creates a decision-service client.
func NewClient(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		baseURL: baseURL,
		client:  &http.Client{Timeout: timeout},
	}
}

// Entry asks whether the agent should open a position and in which token.
// The selected mint must come from the candidate list; anything else is
// malformed and the caller must not trade on it.
func (c *Client) Entry(ctx context.Context, req *EntryRequest) (*EntryDecision, error) {
	var decision EntryDecision
	if err := c.postJSON(ctx, "/v1/decide/entry", req, &decision); err != nil {
		return nil, err
	}
	if !decision.ShouldTrade {
		return &decision, nil
	}
	if decision.SelectedMint == "" {
		return nil, fmt.Errorf("%w: shouldTrade with no selected token", ErrMalformedDecision)
	}
	found := false
	for _, cand := range req.Candidates {
		if cand.Mint == decision.SelectedMint {
			found = true
			break
		}
	}
	if !found {
		return nil, fmt.Errorf("%w: selected token %s not among candidates", ErrMalformedDecision, decision.SelectedMint)
	}
	if decision.Confidence < 0 || decision.Confidence > 1 {
		return nil, fmt.Errorf("%w: confidence %g outside [0,1]", ErrMalformedDecision, decision.Confidence)
	}
	return &decision, nil
}

// Exit asks for a post-trade explanation of a closed position.
func (c *Client) Exit(ctx context.Context, req *ExitRequest) (*ExitExplanation, error) {
	var explanation ExitExplanation
	if err := c.postJSON(ctx, "/v1/decide/exit", req, &explanation); err != nil {
		return nil, err
	}
	if explanation.ExitReason == "" {
		return nil, fmt.Errorf("%w: empty exit reason", ErrMalformedDecision)
	}
	return &explanation, nil
}

func (c *Client) postJSON(ctx context.Context, path string, payload, out interface{}) error {
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
		return fmt.Errorf("decision service %s: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("decision service %s: status %d: %s", path, resp.StatusCode, string(respBody))
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedDecision, err)
	}
	return nil
}
