package app

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"text/tabwriter"
	"time"

	"donation-tracker/internal/cache"
	"donation-tracker/internal/donation"
)

// Show prints the cached snapshot, or the archive when opts.Archive is set.
func (a *App) Show(ctx context.Context, opts ShowOptions) error {
	if opts.Archive {
		return a.showArchive(ctx, opts.Limit)
	}

	store, closeCache, err := a.openCache()
	if err != nil {
		return err
	}
	defer closeCache()

	entry, ok := store.Read(ctx)
	if !ok {
		fmt.Fprintln(a.Out, "cache is empty")
		return nil
	}

	freshness := cache.Classify(&entry, time.Now(), a.Config.Cache.TTL)
	fmt.Fprintf(a.Out, "Cached: %s (%s, age %s)\n",
		entry.WrittenAt.UTC().Format(time.RFC3339),
		freshness,
		entry.Age(time.Now()).Truncate(time.Second),
	)
	fmt.Fprintf(a.Out, "Total: %s %s (%d donations)\n",
		donation.FormatAmount(entry.Total, 4), a.Config.Campaign.Symbol, len(entry.Donations))
	if len(entry.Donations) == 0 {
		return nil
	}
	printRecords(a.Out, entry.Donations, opts.Limit, a.Config.Campaign.Symbol)
	return nil
}

func (a *App) showArchive(ctx context.Context, limit int) error {
	store, closeStore, err := a.openStore(ctx)
	if err != nil {
		return err
	}
	if store == nil {
		return errors.New("database not configured; cannot show archive")
	}
	if closeStore != nil {
		defer closeStore()
	}

	rows, err := store.ListRecentDonations(ctx, limit)
	if err != nil {
		return err
	}
	if len(rows) == 0 {
		fmt.Fprintln(a.Out, "no donations archived")
		return nil
	}

	writer := tabwriter.NewWriter(a.Out, 0, 4, 2, ' ', 0)
	fmt.Fprintf(writer, "Time (UTC)\tAmount (%s)\tFrom\tTx\tFirst seen\n", a.Config.Campaign.Symbol)
	for _, row := range rows {
		fmt.Fprintf(writer, "%s\t%s\t%s\t%s\t%s\n",
			row.BlockTime.UTC().Format(time.RFC3339),
			row.Amount.StringFixed(4),
			row.Sender,
			row.Hash,
			row.FirstSeenAt.UTC().Format(time.RFC3339),
		)
	}
	writer.Flush()
	return nil
}

func sanitizeInline(v string) string {
	cleaned := strings.ReplaceAll(v, "\n", " ")
	cleaned = strings.ReplaceAll(cleaned, "\r", " ")
	return cleaned
}
