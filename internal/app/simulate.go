package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"

	"donation-tracker/internal/alerting"
	"donation-tracker/internal/cache"
	"donation-tracker/internal/donation"
	"donation-tracker/internal/service"
)

// SimulateDonation pushes a synthetic donation through the alert path on top
// of the currently cached snapshot. Nothing is archived or cached.
func (a *App) SimulateDonation(ctx context.Context, amount float64, sender string) error {
	if !a.Config.Alerting.Enabled {
		return errors.New("alerting is not enabled")
	}
	if amount <= 0 {
		return errors.New("amount must be greater than zero")
	}
	if sender == "" {
		sender = common.Address{}.Hex()
	}
	if !common.IsHexAddress(sender) {
		return fmt.Errorf("sender %q is not a hex address", sender)
	}

	notifier := a.newNotifier()
	if notifier == nil {
		return errors.New("no alert channel configured")
	}

	previous := cache.Entry{WrittenAt: time.Now()}
	if store, closeCache, err := a.openCache(); err == nil {
		if entry, ok := store.Read(ctx); ok {
			previous = entry
		}
		closeCache()
	} else {
		a.Logger.Warn().Err(err).Msg("cache unavailable; simulating against an empty snapshot")
	}

	now := time.Now()
	synthetic := donation.Record{
		Hash:            fmt.Sprintf("0xsimulated%d", now.UnixNano()),
		TimestampMillis: now.UnixMilli(),
		AmountWei:       decimal.NewFromFloat(amount).Shift(18).Truncate(0).String(),
		Amount:          amount,
		Sender:          common.HexToAddress(sender).Hex(),
		Recipient:       common.HexToAddress(a.Config.Explorer.WalletAddress).Hex(),
	}

	records := append([]donation.Record{synthetic}, previous.Donations...)
	fresh := donation.Snapshot{
		Donations: records,
		Total:     decimal.NewFromFloat(previous.Total).Add(decimal.NewFromFloat(amount)).InexactFloat64(),
	}

	capture := &capturingNotifier{inner: notifier}
	service.New(a.Config, nil, nil, capture, a.Logger).OnRefresh(ctx, &previous, fresh)
	if !capture.called {
		return errors.New("simulated donation did not produce an alert")
	}
	return capture.err
}

// capturingNotifier surfaces the delivery error the publisher would log.
type capturingNotifier struct {
	inner  alerting.Notifier
	called bool
	err    error
}

func (c *capturingNotifier) Notify(ctx context.Context, note alerting.Notification) error {
	c.called = true
	c.err = c.inner.Notify(ctx, note)
	return c.err
}

var _ alerting.Notifier = (*capturingNotifier)(nil)
