package fetcher

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"
)

const (
	testContract = "0x5AF9Ef13C0b7F82d3a3c52D93F27039bc8A71d63"
	testWallet   = "0x3da1D16C93CB5Dd30457bD7E2670663026b22E2c"
)

func noopLogger() zerolog.Logger {
	return zerolog.Nop()
}

func newTestExplorer(url string) *Explorer {
	return NewExplorer(ExplorerOptions{
		BaseURL:         url,
		ChainID:         56,
		APIKey:          "key",
		ContractAddress: testContract,
		WalletAddress:   testWallet,
		StartBlock:      41000000,
		UserAgent:       "test",
	}, noopLogger())
}

func TestExplorerMissingAddresses(t *testing.T) {
	e := NewExplorer(ExplorerOptions{APIKey: "key"}, noopLogger())
	if _, err := e.FetchDonations(context.Background()); err == nil {
		t.Fatal("missing addresses should fail")
	}
}

func TestExplorerQueryParameters(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		want := map[string]string{
			"chainid":    "56",
			"module":     "account",
			"action":     "txlistinternal",
			"address":    testContract,
			"startblock": "41000000",
			"endblock":   "99999999",
			"sort":       "asc",
			"apikey":     "key",
		}
		for k, v := range want {
			if got := q.Get(k); got != v {
				t.Errorf("query %s = %q, want %q", k, got, v)
			}
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"status": "1", "message": "OK", "result": []any{}})
	}))
	defer srv.Close()

	snap, err := newTestExplorer(srv.URL).FetchDonations(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(snap.Donations) != 0 || snap.Total != 0 {
		t.Fatalf("expected empty snapshot, got %+v", snap)
	}
}

func TestExplorerHTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	_, err := newTestExplorer(srv.URL).FetchDonations(context.Background())
	var terr *TransportError
	if !errors.As(err, &terr) {
		t.Fatalf("expected TransportError, got %v", err)
	}
	if terr.StatusCode != http.StatusBadGateway || err.Error() != "HTTP 502" {
		t.Fatalf("unexpected transport error: %v", err)
	}
}

func TestExplorerTransportFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close()

	_, err := newTestExplorer(url).FetchDonations(context.Background())
	var terr *TransportError
	if !errors.As(err, &terr) {
		t.Fatalf("expected TransportError, got %v", err)
	}
}

func TestExplorerSemanticError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{
			"status":  "0",
			"message": "NOTOK",
			"result":  "Max rate limit reached",
		})
	}))
	defer srv.Close()

	_, err := newTestExplorer(srv.URL).FetchDonations(context.Background())
	var aerr *APIError
	if !errors.As(err, &aerr) {
		t.Fatalf("expected APIError, got %v", err)
	}
	if err.Error() != "Max rate limit reached" {
		t.Fatalf("error should carry result text, got %q", err.Error())
	}
}

func TestExplorerMessageOKIsSuccess(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{"status": "0", "message": "OK", "result": []any{}})
	}))
	defer srv.Close()

	if _, err := newTestExplorer(srv.URL).FetchDonations(context.Background()); err != nil {
		t.Fatalf("message OK should be accepted: %v", err)
	}
}

func TestExplorerSuccess(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"status":  "1",
			"message": "OK",
			"result": []map[string]string{
				{"hash": "0x1", "timeStamp": "100", "value": "1000000000000000000", "from": "0xa", "to": testWallet, "isError": "0"},
				{"hash": "0x2", "timeStamp": "200", "value": "0", "from": "0xb", "to": testWallet, "isError": "0"},
				{"hash": "0x3", "timeStamp": "300", "value": "500000000000000000", "from": "0xc", "to": "0x3DA1D16C93CB5DD30457BD7E2670663026B22E2C", "isError": "0"},
			},
		})
	}))
	defer srv.Close()

	snap, err := newTestExplorer(srv.URL).FetchDonations(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(snap.Donations) != 2 {
		t.Fatalf("expected 2 donations, got %d", len(snap.Donations))
	}
	if snap.Donations[0].Hash != "0x3" || snap.Donations[1].Hash != "0x1" {
		t.Fatalf("donations should be newest first: %+v", snap.Donations)
	}
	if snap.Donations[0].TimestampMillis != 300000 {
		t.Fatalf("timestamp should be in millis, got %d", snap.Donations[0].TimestampMillis)
	}
	if snap.Total != 1.5 {
		t.Fatalf("expected total 1.5, got %v", snap.Total)
	}
}
