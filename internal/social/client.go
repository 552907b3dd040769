// Package social posts trade commentary to the community feed. Every call is
// fire and forget: a failed post is logged and dropped, never retried, and
// never blocks trading.
package social

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"solana-agent-engine/internal/observability"
)

// Post is one feed entry.
type Post struct {
	CommunityID string `json:"communityId"`
	AuthorID    string `json:"authorId"`
	Title       string `json:"title"`
	Body        string `json:"body"`
}

// Client publishes posts to the social layer.
type Client struct {
	baseURL     string
	communityID string
	client      *http.Client
	logger      *slog.Logger
}

// NewClient creates a social-layer client bound to one community.
func NewClient(baseURL, communityID string, timeout time.Duration, logger *slog.Logger) *Client {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		baseURL:     baseURL,
		communityID: communityID,
		client:      &http.Client{Timeout: timeout},
		logger:      logger,
	}
}

// Publish posts on behalf of authorID. Failures are swallowed after logging.
func (c *Client) Publish(ctx context.Context, authorID, title, body string) {
	if err := c.publish(ctx, authorID, title, body); err != nil {
		observability.RecordSocialPost("error")
		c.logger.Warn("social post dropped", "author_id", authorID, "title", title, "error", err)
		return
	}
	observability.RecordSocialPost("ok")
}

func (c *Client) publish(ctx context.Context, authorID, title, body string) error {
	payload, err := json.Marshal(Post{
		CommunityID: c.communityID,
		AuthorID:    authorID,
		Title:       title,
		Body:        body,
	})
	if err != nil {
		return fmt.Errorf("marshal post: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/posts", bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("create post request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("publish post: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		respBody, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("publish post: status %d: %s", resp.StatusCode, string(respBody))
	}
	return nil
}
