package agent

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"
)

func newTestClient(serverURL string) *AnthropicClient {
	client := NewAnthropicClient("test-key", "test-model", 10*time.Second)
	client.baseURL = serverURL
	return client
}

func TestAnthropicClient_Complete(t *testing.T) {
	t.Run("bad request is not retried", func(t *testing.T) {
		var requests atomic.Int32
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			requests.Add(1)
			w.WriteHeader(http.StatusBadRequest)
			w.Write([]byte(`{"error":{"type":"invalid_request_error","message":"bad request"}}`))
		}))
		defer server.Close()

		client := newTestClient(server.URL)
		_, err := client.Complete(context.Background(), "", []Message{{Role: "user", Content: "hi"}}, nil)
		if err == nil {
			t.Fatal("expected error for status 400")
		}
		if !strings.Contains(err.Error(), "status 400") {
			t.Errorf("error should carry the status, got %q", err)
		}
		if got := requests.Load(); got != 1 {
			t.Errorf("client sent %d requests for a 400, want exactly 1", got)
		}
	})

	t.Run("unauthorized is not retried", func(t *testing.T) {
		var requests atomic.Int32
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			requests.Add(1)
			w.WriteHeader(http.StatusUnauthorized)
			w.Write([]byte(`{"error":{"type":"authentication_error","message":"invalid key"}}`))
		}))
		defer server.Close()

		client := newTestClient(server.URL)
		_, err := client.Complete(context.Background(), "", []Message{{Role: "user", Content: "hi"}}, nil)
		if err == nil {
			t.Fatal("expected error for status 401")
		}
		if got := requests.Load(); got != 1 {
			t.Errorf("client sent %d requests for a 401, want exactly 1", got)
		}
	})

	t.Run("server error is retried until success", func(t *testing.T) {
		var requests atomic.Int32
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if requests.Add(1) == 1 {
				w.WriteHeader(http.StatusInternalServerError)
				w.Write([]byte(`{"error":{"type":"api_error","message":"overloaded"}}`))
				return
			}
			w.Header().Set("Content-Type", "application/json")
			w.Write([]byte(`{"content":[{"type":"text","text":"ok"}],"stop_reason":"end_turn"}`))
		}))
		defer server.Close()

		client := newTestClient(server.URL)
		resp, err := client.Complete(context.Background(), "", []Message{{Role: "user", Content: "hi"}}, nil)
		if err != nil {
			t.Fatalf("expected recovery after retry, got %v", err)
		}
		if resp.Text != "ok" {
			t.Errorf("text = %q, want ok", resp.Text)
		}
		if got := requests.Load(); got != 2 {
			t.Errorf("client sent %d requests, want 2", got)
		}
	})
}
