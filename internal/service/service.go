package service

import (
	"context"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"donation-tracker/internal/alerting"
	"donation-tracker/internal/cache"
	"donation-tracker/internal/config"
	"donation-tracker/internal/coordinator"
	"donation-tracker/internal/donation"
	"donation-tracker/internal/storage"
)

// Publisher archives fresh results and alerts on donations that were not in
// the previously cached snapshot. Failures are logged and never propagate.
type Publisher struct {
	archive    storage.DonationArchive
	refreshLog storage.RefreshLog
	notifier   alerting.Notifier
	logger     zerolog.Logger

	goal       float64
	symbol     string
	explorerTx string
	alertsOn   bool
	now        func() time.Time
}

// New constructs the publisher. Any of archive, refreshLog and notifier may be nil.
func New(cfg *config.Config, archive storage.DonationArchive, refreshLog storage.RefreshLog, notifier alerting.Notifier, logger zerolog.Logger) *Publisher {
	return &Publisher{
		archive:    archive,
		refreshLog: refreshLog,
		notifier:   notifier,
		logger:     logger.With().Str("component", "publisher").Logger(),
		goal:       cfg.Campaign.Goal,
		symbol:     cfg.Campaign.Symbol,
		explorerTx: cfg.Campaign.ExplorerTxURL,
		alertsOn:   cfg.Alerting.Enabled,
		now:        time.Now,
	}
}

// OnRefresh implements coordinator.Observer.
func (p *Publisher) OnRefresh(ctx context.Context, previous *cache.Entry, fresh donation.Snapshot) {
	added := NewSince(previous, fresh)

	if p.archive != nil {
		inserted, err := p.archive.UpsertDonations(ctx, fresh.Donations)
		if err != nil {
			p.logger.Error().Err(err).Msg("failed to archive donations")
		} else if inserted > 0 {
			p.logger.Info().Int64("inserted", inserted).Msg("donations archived")
		}
	}

	if p.refreshLog != nil {
		rec := storage.RefreshRecord{
			RefreshedAt:   p.now().UTC(),
			DonationCount: len(fresh.Donations),
			Total:         decimal.NewFromFloat(fresh.Total),
			NewDonations:  len(added),
		}
		if _, err := p.refreshLog.InsertRefresh(ctx, rec); err != nil {
			p.logger.Error().Err(err).Msg("failed to record refresh")
		}
	}

	if previous == nil {
		p.logger.Info().Int("donations", len(fresh.Donations)).Msg("no previous snapshot; baseline recorded without alerts")
		return
	}

	goalReached := p.goal > 0 && previous.Total < p.goal && fresh.Total >= p.goal
	if len(added) == 0 && !goalReached {
		return
	}

	p.logger.Info().
		Int("new_donations", len(added)).
		Bool("goal_reached", goalReached).
		Float64("total", fresh.Total).
		Msg("donation activity detected")

	if !p.alertsOn || p.notifier == nil {
		return
	}

	note := alerting.Notification{
		NewDonations: added,
		Total:        fresh.Total,
		Goal:         p.goal,
		GoalReached:  goalReached,
		Symbol:       p.symbol,
		ExplorerTx:   p.explorerTx,
	}
	if err := p.notifier.Notify(ctx, note); err != nil {
		p.logger.Error().Err(err).Msg("failed to dispatch alert")
	}
}

// NewSince returns the donations in fresh whose hash is absent from previous,
// in fresh's order. A nil previous yields every donation.
func NewSince(previous *cache.Entry, fresh donation.Snapshot) []donation.Record {
	seen := make(map[string]struct{})
	if previous != nil {
		for _, d := range previous.Donations {
			seen[d.Hash] = struct{}{}
		}
	}
	var added []donation.Record
	for _, d := range fresh.Donations {
		if _, ok := seen[d.Hash]; !ok {
			added = append(added, d)
		}
	}
	return added
}

var _ coordinator.Observer = (*Publisher)(nil)
