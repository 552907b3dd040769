package social

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"solana-agent-engine/internal/observability"
)

func TestClient_Publish(t *testing.T) {
	var got Post
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/posts", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusCreated)
	}))
	defer srv.Close()

	client := NewClient(srv.URL, "community-1", 0, nil)
	client.Publish(context.Background(), "agent-1", "Opened AAA", "entry at 0.000001")

	assert.Equal(t, "community-1", got.CommunityID)
	assert.Equal(t, "agent-1", got.AuthorID)
	assert.Equal(t, "Opened AAA", got.Title)
}

func TestClient_Publish_FailureDoesNotPanic(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "forbidden", http.StatusForbidden)
	}))
	defer srv.Close()

	client := NewClient(srv.URL, "community-1", 0, nil)
	// Must not panic or propagate; the post is simply dropped.
	client.Publish(context.Background(), "agent-1", "title", "body")
}

func TestClient_Publish_CountsOutcomes(t *testing.T) {
	okCounter := observability.DefaultMetrics.SocialPostsTotal.WithLabelValues("ok")
	errCounter := observability.DefaultMetrics.SocialPostsTotal.WithLabelValues("error")
	okBefore := testutil.ToFloat64(okCounter)
	errBefore := testutil.ToFloat64(errCounter)

	status := http.StatusCreated
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(status)
	}))
	defer srv.Close()

	client := NewClient(srv.URL, "community-1", 0, nil)
	client.Publish(context.Background(), "agent-1", "title", "body")
	status = http.StatusServiceUnavailable
	client.Publish(context.Background(), "agent-1", "title", "body")

	assert.Equal(t, okBefore+1, testutil.ToFloat64(okCounter))
	assert.Equal(t, errBefore+1, testutil.ToFloat64(errCounter))
}
