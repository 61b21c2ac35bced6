package chain

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func TestHeadMissingConfig(t *testing.T) {
	h := NewHead(HeadOptions{}, zerolog.Nop())
	if h.Configured() {
		t.Fatal("empty rpc url should not be configured")
	}
	if _, err := h.BlockNumber(context.Background()); !errors.Is(err, ErrNotConfigured) {
		t.Fatalf("expected ErrNotConfigured, got %v", err)
	}
}

func TestHeadBlockNumber(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			ID     json.RawMessage `json:"id"`
			Method string          `json:"method"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode rpc request: %v", err)
			return
		}
		if req.Method != "eth_blockNumber" {
			t.Errorf("unexpected method %s", req.Method)
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{"jsonrpc": "2.0", "id": req.ID, "result": "0x2a"})
	}))
	defer srv.Close()

	h := NewHead(HeadOptions{RPCURL: srv.URL, Timeout: time.Second}, zerolog.Nop())
	defer h.Close()

	block, err := h.BlockNumber(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if block != 42 {
		t.Fatalf("expected block 42, got %d", block)
	}
}
