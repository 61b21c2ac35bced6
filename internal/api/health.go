package api

import (
	"context"
	"net/http"
	"os"
	"time"

	"github.com/rs/zerolog"
)

// BlockReader reports the chain head; it is optional for readiness.
type BlockReader interface {
	Configured() bool
	BlockNumber(ctx context.Context) (uint64, error)
}

type livenessResponse struct {
	Host            string `json:"host"`
	Build           string `json:"build"`
	CompletedCycles uint64 `json:"completedCycles"`
}

type readinessResponse struct {
	Status          string `json:"status"`
	LastBlockNumber uint64 `json:"lastBlockNumber,omitempty"`
}

type health struct {
	state  StateSource
	head   BlockReader
	build  string
	logger zerolog.Logger
}

func newHealth(state StateSource, head BlockReader, build string, logger zerolog.Logger) *health {
	return &health{state: state, head: head, build: build, logger: logger}
}

// Liveness returns status info if the service is alive.
func (h *health) Liveness(w http.ResponseWriter, r *http.Request) {
	host, err := os.Hostname()
	if err != nil {
		host = "unavailable"
	}
	respond(w, http.StatusOK, livenessResponse{
		Host:            host,
		Build:           h.build,
		CompletedCycles: h.state.State().CompletedCycles,
	})
}

// Readiness reports 503 until the first refresh cycle has completed, and
// 500 when a configured node cannot be reached.
func (h *health) Readiness(w http.ResponseWriter, r *http.Request) {
	if h.state.State().CompletedCycles == 0 {
		respond(w, http.StatusServiceUnavailable, readinessResponse{Status: "warming up"})
		return
	}

	resp := readinessResponse{Status: "ok"}
	if h.head != nil && h.head.Configured() {
		ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
		defer cancel()

		block, err := h.head.BlockNumber(ctx)
		if err != nil {
			h.logger.Info().Err(err).Msg("readiness failure: chain node not ready")
			respondError(w, http.StatusInternalServerError, err)
			return
		}
		resp.LastBlockNumber = block
	}
	respond(w, http.StatusOK, resp)
}
