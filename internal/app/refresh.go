package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"donation-tracker/internal/coordinator"
	"donation-tracker/internal/donation"
)

// Refresh runs a single coordinator cycle and prints the resulting state.
// Alerts are not dispatched from one-shot runs.
func (a *App) Refresh(ctx context.Context, limit int) error {
	coord, closeAll, err := a.newCoordinator(ctx, nil)
	if err != nil {
		return err
	}
	defer closeAll()

	if !coord.Refresh(ctx) {
		return errors.New("refresh did not run")
	}

	state := coord.State()
	a.printState(state, limit)
	if state.Error != "" && !state.UsingCache {
		return fmt.Errorf("refresh failed: %s", state.Error)
	}
	return nil
}

func (a *App) printState(state coordinator.State, limit int) {
	symbol := a.Config.Campaign.Symbol

	fmt.Fprintf(a.Out, "Total: %s %s (%d donations)\n", donation.FormatAmount(state.Total, 4), symbol, len(state.Donations))
	if pct, ok := donation.Progress(state.Total, a.Config.Campaign.Goal); ok {
		fmt.Fprintf(a.Out, "Goal: %s %s (%.1f%%)\n", donation.FormatAmount(a.Config.Campaign.Goal, 4), symbol, pct)
	}
	if !state.UpdatedAt.IsZero() {
		fmt.Fprintf(a.Out, "Updated: %s\n", state.UpdatedAt.UTC().Format(time.RFC3339))
	}
	if state.UsingCache {
		fmt.Fprintln(a.Out, "Source: cache")
	}
	if state.Error != "" {
		fmt.Fprintf(a.Out, "Error: %s\n", sanitizeInline(state.Error))
	}

	if len(state.Donations) == 0 {
		fmt.Fprintln(a.Out, "no donations found")
		return
	}
	printRecords(a.Out, state.Donations, limit, symbol)
}

func printRecords(out io.Writer, records []donation.Record, limit int, symbol string) {
	writer := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintf(writer, "Time (UTC)\tAmount (%s)\tFrom\tTx\n", symbol)
	for i, d := range records {
		if limit > 0 && i == limit {
			break
		}
		fmt.Fprintf(writer, "%s\t%s\t%s\t%s\n",
			time.UnixMilli(d.TimestampMillis).UTC().Format(time.RFC3339),
			donation.FormatAmount(d.Amount, 4),
			d.Sender,
			d.Hash,
		)
	}
	writer.Flush()
}
