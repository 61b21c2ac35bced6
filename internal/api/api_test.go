package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"donation-tracker/internal/config"
	"donation-tracker/internal/coordinator"
	"donation-tracker/internal/donation"
)

type staticState struct {
	state coordinator.State
}

func (s *staticState) State() coordinator.State { return s.state }

type fakeHead struct {
	configured bool
	block      uint64
	err        error
}

func (f *fakeHead) Configured() bool { return f.configured }

func (f *fakeHead) BlockNumber(context.Context) (uint64, error) { return f.block, f.err }

func newTestHandler(state coordinator.State, head BlockReader) http.Handler {
	return NewHandler(Options{
		State: &staticState{state: state},
		Head:  head,
		Campaign: config.CampaignConfig{
			Goal:          100,
			Symbol:        "BNB",
			DisplayLimit:  2,
			ExplorerTxURL: "https://bscscan.com/tx/",
		},
		Build: "test",
	}, zerolog.Nop())
}

func sampleState() coordinator.State {
	return coordinator.State{
		Donations: []donation.Record{
			{Hash: "0xcccccccccccccccc", TimestampMillis: 3000, Amount: 0.5, AmountWei: "500000000000000000", Sender: "0x3"},
			{Hash: "0xbbbbbbbbbbbbbbbb", TimestampMillis: 2000, Amount: 1.25, AmountWei: "1250000000000000000", Sender: "0x2"},
			{Hash: "0xaaaaaaaaaaaaaaaa", TimestampMillis: 1000, Amount: 0.25, AmountWei: "250000000000000000", Sender: "0x1"},
		},
		Total:           2,
		UsingCache:      true,
		Error:           "HTTP 503",
		UpdatedAt:       time.UnixMilli(1_700_000_000_000),
		CompletedCycles: 1,
	}
}

func TestListDonations(t *testing.T) {
	rec := httptest.NewRecorder()
	newTestHandler(sampleState(), nil).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/donations", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	require.NotEmpty(t, rec.Header().Get("X-Request-ID"))

	var body donationsResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.True(t, body.UsingCache)
	require.Equal(t, "HTTP 503", body.Error)
	require.Equal(t, 3, body.Count)
	require.Len(t, body.Donations, 2)
	require.Equal(t, "0xcccccccccccccccc", body.Donations[0].Hash)
	require.Equal(t, "0xcccc...cccc", body.Donations[0].ShortHash)
	require.Equal(t, "https://bscscan.com/tx/0xcccccccccccccccc", body.Donations[0].Link)
	require.NotNil(t, body.Latest)
	require.Equal(t, "0xcccccccccccccccc", body.Latest.Hash)
	require.Equal(t, "2", body.TotalDisplay)
	require.NotNil(t, body.ProgressPct)
	require.InDelta(t, 2.0, *body.ProgressPct, 1e-9)
}

func TestListDonationsLimit(t *testing.T) {
	h := newTestHandler(sampleState(), nil)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/donations?limit=10", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var body donationsResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Len(t, body.Donations, 3)

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/donations?limit=zero", nil))
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestListDonationsEmptyState(t *testing.T) {
	rec := httptest.NewRecorder()
	newTestHandler(coordinator.State{Loading: true}, nil).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/donations", nil))

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Equal(t, true, body["loading"])
	require.Equal(t, []any{}, body["donations"])
	require.NotContains(t, body, "latest")
	require.NotContains(t, body, "updatedAt")
}

func TestReadiness(t *testing.T) {
	rec := httptest.NewRecorder()
	newTestHandler(coordinator.State{}, nil).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/readiness", nil))
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)

	rec = httptest.NewRecorder()
	newTestHandler(sampleState(), &fakeHead{configured: true, block: 42}).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/readiness", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), `"lastBlockNumber":42`)

	rec = httptest.NewRecorder()
	newTestHandler(sampleState(), &fakeHead{configured: true, err: errors.New("dial failed")}).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/readiness", nil))
	require.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestLivenessAndRequestID(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/liveness", nil)
	req.Header.Set("X-Request-ID", "abc")

	rec := httptest.NewRecorder()
	newTestHandler(sampleState(), nil).ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "abc", rec.Header().Get("X-Request-ID"))
	require.Contains(t, rec.Body.String(), `"build":"test"`)
}

func TestMethodNotAllowed(t *testing.T) {
	rec := httptest.NewRecorder()
	newTestHandler(sampleState(), nil).ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/donations", nil))
	require.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}
