package api

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"donation-tracker/internal/config"
	"donation-tracker/internal/coordinator"
	"donation-tracker/internal/donation"
)

// StateSource exposes the coordinator's observable state.
type StateSource interface {
	State() coordinator.State
}

type donationView struct {
	Hash      string    `json:"hash"`
	ShortHash string    `json:"shortHash"`
	Link      string    `json:"link,omitempty"`
	Time      time.Time `json:"time"`
	Amount    float64   `json:"amount"`
	AmountWei string    `json:"amountWei"`
	Display   string    `json:"display"`
	From      string    `json:"from"`
}

type donationsResponse struct {
	Loading      bool           `json:"loading"`
	Error        string         `json:"error,omitempty"`
	UsingCache   bool           `json:"usingCache"`
	UpdatedAt    *time.Time     `json:"updatedAt,omitempty"`
	Total        float64        `json:"total"`
	TotalDisplay string         `json:"totalDisplay"`
	Symbol       string         `json:"symbol"`
	Count        int            `json:"count"`
	Goal         float64        `json:"goal"`
	ProgressPct  *float64       `json:"progressPct,omitempty"`
	Latest       *donationView  `json:"latest,omitempty"`
	Donations    []donationView `json:"donations"`
}

type donationsHandler struct {
	state    StateSource
	campaign config.CampaignConfig
	logger   zerolog.Logger
}

func newDonations(state StateSource, campaign config.CampaignConfig, logger zerolog.Logger) *donationsHandler {
	if campaign.DisplayLimit <= 0 {
		campaign.DisplayLimit = 12
	}
	return &donationsHandler{state: state, campaign: campaign, logger: logger}
}

// List renders the current state, newest donation first.
func (h *donationsHandler) List(w http.ResponseWriter, r *http.Request) {
	limit := h.campaign.DisplayLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			respondError(w, http.StatusBadRequest, errors.New("limit must be a positive integer"))
			return
		}
		limit = n
	}

	respond(w, http.StatusOK, h.render(h.state.State(), limit))
}

func (h *donationsHandler) render(s coordinator.State, limit int) donationsResponse {
	resp := donationsResponse{
		Loading:      s.Loading,
		Error:        s.Error,
		UsingCache:   s.UsingCache,
		Total:        s.Total,
		TotalDisplay: donation.FormatAmount(s.Total, 4),
		Symbol:       h.campaign.Symbol,
		Count:        len(s.Donations),
		Goal:         h.campaign.Goal,
		Donations:    []donationView{},
	}
	if !s.UpdatedAt.IsZero() {
		at := s.UpdatedAt.UTC()
		resp.UpdatedAt = &at
	}
	if pct, ok := donation.Progress(s.Total, h.campaign.Goal); ok {
		resp.ProgressPct = &pct
	}

	snap := donation.Snapshot{Donations: s.Donations, Total: s.Total}
	if latest, ok := snap.Latest(); ok {
		v := h.view(latest)
		resp.Latest = &v
	}

	for i, d := range s.Donations {
		if i == limit {
			break
		}
		resp.Donations = append(resp.Donations, h.view(d))
	}
	return resp
}

func (h *donationsHandler) view(d donation.Record) donationView {
	v := donationView{
		Hash:      d.Hash,
		ShortHash: shortHash(d.Hash),
		Time:      time.UnixMilli(d.TimestampMillis).UTC(),
		Amount:    d.Amount,
		AmountWei: d.AmountWei,
		Display:   donation.FormatAmount(d.Amount, 4),
		From:      d.Sender,
	}
	if h.campaign.ExplorerTxURL != "" {
		v.Link = strings.TrimRight(h.campaign.ExplorerTxURL, "/") + "/" + d.Hash
	}
	return v
}

func shortHash(h string) string {
	if len(h) <= 10 {
		return h
	}
	return h[:6] + "..." + h[len(h)-4:]
}
