package app

import (
	"context"
	"encoding/csv"
	"errors"
	"math"
	"os"
	"path/filepath"
	"time"

	"github.com/shopspring/decimal"
	chart "github.com/wcharczuk/go-chart/v2"

	"donation-tracker/internal/storage"
)

// cumulativePoint is one archived donation with the running campaign total.
type cumulativePoint struct {
	Row   storage.DonationRow
	Total decimal.Decimal
}

// Export renders archived donations as CSV and/or a cumulative PNG chart.
func (a *App) Export(ctx context.Context, opts ExportOptions) error {
	if opts.CSVPath == "" && opts.PNGPath == "" {
		return errors.New("at least one of --csv or --png must be provided")
	}

	opts.MaxPoints = a.Config.ResolveMaxPoints(opts.MaxPoints)

	store, closeStore, err := a.openStore(ctx)
	if err != nil {
		return err
	}
	if store == nil {
		return errors.New("database not configured; cannot export")
	}
	if closeStore != nil {
		defer closeStore()
	}

	to := time.Now().UTC()
	if opts.To != nil {
		to = opts.To.UTC()
	}

	// Without --from the whole archive is exported.
	from := time.Unix(0, 0).UTC()
	if opts.From != nil {
		from = opts.From.UTC()
	}

	if !from.Before(to) {
		return errors.New("from must be before to")
	}

	rows, err := store.ListDonationsBetween(ctx, from, to)
	if err != nil {
		return err
	}
	if len(rows) == 0 {
		a.Logger.Info().Msg("no donations found for export window")
		return nil
	}

	base, err := store.SumDonationsBefore(ctx, from)
	if err != nil {
		return err
	}

	points := downsamplePoints(accumulate(base, rows), opts.MaxPoints)
	a.Logger.Info().Int("total", len(rows)).Int("exported", len(points)).Msg("exporting donations")

	if opts.CSVPath != "" {
		if err := writeDonationsCSV(opts.CSVPath, points); err != nil {
			return err
		}
	}

	if opts.PNGPath != "" {
		if err := writeDonationsPNG(opts.PNGPath, points, a.Config.Campaign.Goal, a.Config.Campaign.Symbol); err != nil {
			return err
		}
	}

	return nil
}

// accumulate expects rows in ascending block time.
func accumulate(base decimal.Decimal, rows []storage.DonationRow) []cumulativePoint {
	points := make([]cumulativePoint, len(rows))
	running := base
	for i, row := range rows {
		running = running.Add(row.Amount)
		points[i] = cumulativePoint{Row: row, Total: running}
	}
	return points
}

// downsamplePoints keeps the first and last points so the final total survives.
func downsamplePoints(points []cumulativePoint, max int) []cumulativePoint {
	if max <= 0 || len(points) <= max {
		return points
	}
	if max == 1 {
		return points[len(points)-1:]
	}

	result := make([]cumulativePoint, 0, max)
	step := float64(len(points)-1) / float64(max-1)
	for i := 0; i < max; i++ {
		idx := int(math.Round(step * float64(i)))
		if idx >= len(points) {
			idx = len(points) - 1
		}
		result = append(result, points[idx])
	}
	return result
}

func writeDonationsCSV(path string, points []cumulativePoint) error {
	if err := ensureDir(path); err != nil {
		return err
	}

	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	writer := csv.NewWriter(file)

	header := []string{"block_time", "hash", "sender", "amount", "amount_wei", "cumulative_total"}
	if err := writer.Write(header); err != nil {
		return err
	}

	for _, p := range points {
		record := []string{
			p.Row.BlockTime.UTC().Format(time.RFC3339),
			p.Row.Hash,
			p.Row.Sender,
			p.Row.Amount.String(),
			p.Row.AmountWei.String(),
			p.Total.String(),
		}
		if err := writer.Write(record); err != nil {
			return err
		}
	}

	writer.Flush()
	return writer.Error()
}

func writeDonationsPNG(path string, points []cumulativePoint, goal float64, symbol string) error {
	if err := ensureDir(path); err != nil {
		return err
	}

	x := make([]time.Time, 0, len(points)+1)
	totals := make([]float64, 0, len(points)+1)

	// go-chart rejects a zero-width range, so a lone donation is drawn as a
	// step up from the preceding total.
	if len(points) == 1 {
		p := points[0]
		x = append(x, p.Row.BlockTime.Add(-time.Hour))
		totals = append(totals, p.Total.Sub(p.Row.Amount).InexactFloat64())
	}
	for _, p := range points {
		x = append(x, p.Row.BlockTime)
		totals = append(totals, p.Total.InexactFloat64())
	}

	series := []chart.Series{
		chart.TimeSeries{
			Name:    "Cumulative",
			XValues: x,
			YValues: totals,
		},
	}
	if goal > 0 {
		goals := make([]float64, len(x))
		for i := range goals {
			goals[i] = goal
		}
		series = append(series, chart.TimeSeries{
			Name:    "Goal",
			XValues: x,
			YValues: goals,
		})
	}

	graph := chart.Chart{
		Width:  1280,
		Height: 720,
		XAxis: chart.XAxis{
			ValueFormatter: chart.TimeValueFormatter,
		},
		YAxis: chart.YAxis{
			Name: "Total (" + symbol + ")",
			ValueFormatter: func(v interface{}) string {
				return chart.FloatValueFormatterWithFormat(v, "%.4f")
			},
		},
		Series: series,
	}
	graph.Elements = []chart.Renderable{chart.Legend(&graph)}

	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	return graph.Render(chart.PNG, file)
}

func ensureDir(path string) error {
	dir := filepath.Dir(path)
	if dir == "." || dir == "" {
		return nil
	}
	return os.MkdirAll(dir, 0o755)
}
