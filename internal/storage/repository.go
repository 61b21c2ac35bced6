package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"donation-tracker/internal/donation"
)

var (
	// ErrNotConfigured indicates the storage pool was not initialised.
	ErrNotConfigured = errors.New("storage: pool not configured")
)

const (
	upsertDonationSQL = `INSERT INTO donations (
        hash,
        block_time,
        sender,
        recipient,
        amount_wei,
        amount
    ) VALUES (
        $1,$2,$3,$4,$5,$6
    )
    ON CONFLICT (hash) DO NOTHING;`

	listRecentDonationsSQL = `SELECT
        hash,
        block_time,
        sender,
        recipient,
        amount_wei,
        amount,
        first_seen_at
    FROM donations
    ORDER BY block_time DESC, hash
    LIMIT $1;`

	listDonationsBetweenSQL = `SELECT
        hash,
        block_time,
        sender,
        recipient,
        amount_wei,
        amount,
        first_seen_at
    FROM donations
    WHERE block_time >= $1
      AND block_time < $2
    ORDER BY block_time, hash;`

	sumDonationsBeforeSQL = `SELECT COALESCE(SUM(amount), 0) FROM donations WHERE block_time < $1;`

	countDonationsSQL = `SELECT COUNT(*) FROM donations;`

	insertRefreshSQL = `INSERT INTO refreshes (
        refreshed_at,
        donation_count,
        total,
        new_donations
    ) VALUES (
        $1,$2,$3,$4
    )
    RETURNING id;`
)

// DonationArchive defines operations for donation persistence.
type DonationArchive interface {
	UpsertDonations(ctx context.Context, records []donation.Record) (int64, error)
	ListRecentDonations(ctx context.Context, limit int) ([]DonationRow, error)
	ListDonationsBetween(ctx context.Context, from, to time.Time) ([]DonationRow, error)
	SumDonationsBefore(ctx context.Context, before time.Time) (decimal.Decimal, error)
	CountDonations(ctx context.Context) (int64, error)
}

// RefreshLog records successful refreshes.
type RefreshLog interface {
	InsertRefresh(ctx context.Context, rec RefreshRecord) (int64, error)
}

// Store aggregates access to archived donations and refreshes.
type Store struct {
	pool *pgxpool.Pool
}

// NewStore wires a pgx pool into a Store.
func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// Close releases the underlying pool resources.
func (s *Store) Close() {
	if s == nil || s.pool == nil {
		return
	}
	s.pool.Close()
}

func (s *Store) getPool() (*pgxpool.Pool, error) {
	if s == nil || s.pool == nil {
		return nil, ErrNotConfigured
	}
	return s.pool, nil
}

// UpsertDonations inserts donations not yet archived and returns how many
// were new.
func (s *Store) UpsertDonations(ctx context.Context, records []donation.Record) (int64, error) {
	pool, err := s.getPool()
	if err != nil {
		return 0, err
	}
	if len(records) == 0 {
		return 0, nil
	}

	batch := &pgx.Batch{}
	for _, rec := range records {
		row, convErr := rowFromRecord(rec)
		if convErr != nil {
			return 0, convErr
		}
		batch.Queue(upsertDonationSQL,
			row.Hash,
			row.BlockTime,
			row.Sender,
			row.Recipient,
			row.AmountWei.String(),
			row.Amount.String(),
		)
	}

	results := pool.SendBatch(ctx, batch)
	defer results.Close()

	var inserted int64
	for range records {
		tag, execErr := results.Exec()
		if execErr != nil {
			return inserted, fmt.Errorf("upsert donation: %w", execErr)
		}
		inserted += tag.RowsAffected()
	}
	return inserted, nil
}

// ListRecentDonations lists the most recent donations, newest first.
func (s *Store) ListRecentDonations(ctx context.Context, limit int) ([]DonationRow, error) {
	pool, err := s.getPool()
	if err != nil {
		return nil, err
	}

	rows, queryErr := pool.Query(ctx, listRecentDonationsSQL, limit)
	if queryErr != nil {
		return nil, fmt.Errorf("list recent donations: %w", queryErr)
	}
	defer rows.Close()

	return collectDonations(rows, limit)
}

// ListDonationsBetween lists donations within a time window, oldest first.
func (s *Store) ListDonationsBetween(ctx context.Context, from, to time.Time) ([]DonationRow, error) {
	pool, err := s.getPool()
	if err != nil {
		return nil, err
	}

	rows, queryErr := pool.Query(ctx, listDonationsBetweenSQL, from, to)
	if queryErr != nil {
		return nil, fmt.Errorf("list donations between: %w", queryErr)
	}
	defer rows.Close()

	return collectDonations(rows, 0)
}

// SumDonationsBefore totals donations strictly before a point in time.
func (s *Store) SumDonationsBefore(ctx context.Context, before time.Time) (decimal.Decimal, error) {
	pool, err := s.getPool()
	if err != nil {
		return decimal.Zero, err
	}
	var totalStr string
	if scanErr := pool.QueryRow(ctx, sumDonationsBeforeSQL, before).Scan(&totalStr); scanErr != nil {
		return decimal.Zero, fmt.Errorf("sum donations: %w", scanErr)
	}
	total, convErr := decimal.NewFromString(totalStr)
	if convErr != nil {
		return decimal.Zero, fmt.Errorf("parse donation sum: %w", convErr)
	}
	return total, nil
}

// CountDonations counts archived donations.
func (s *Store) CountDonations(ctx context.Context) (int64, error) {
	pool, err := s.getPool()
	if err != nil {
		return 0, err
	}
	var count int64
	if scanErr := pool.QueryRow(ctx, countDonationsSQL).Scan(&count); scanErr != nil {
		return 0, fmt.Errorf("count donations: %w", scanErr)
	}
	return count, nil
}

// InsertRefresh records a successful refresh.
func (s *Store) InsertRefresh(ctx context.Context, rec RefreshRecord) (int64, error) {
	pool, err := s.getPool()
	if err != nil {
		return 0, err
	}
	var id int64
	if scanErr := pool.QueryRow(ctx, insertRefreshSQL,
		rec.RefreshedAt,
		rec.DonationCount,
		rec.Total.String(),
		rec.NewDonations,
	).Scan(&id); scanErr != nil {
		return 0, fmt.Errorf("insert refresh: %w", scanErr)
	}
	return id, nil
}

func rowFromRecord(rec donation.Record) (DonationRow, error) {
	wei, err := decimal.NewFromString(rec.AmountWei)
	if err != nil {
		return DonationRow{}, fmt.Errorf("parse amount of %s: %w", rec.Hash, err)
	}
	return DonationRow{
		Hash:      rec.Hash,
		BlockTime: time.UnixMilli(rec.TimestampMillis).UTC(),
		Sender:    rec.Sender,
		Recipient: rec.Recipient,
		AmountWei: wei,
		Amount:    wei.Shift(-18),
	}, nil
}

func collectDonations(rows pgx.Rows, capacity int) ([]DonationRow, error) {
	out := make([]DonationRow, 0, capacity)
	for rows.Next() {
		row, scanErr := scanDonation(rows)
		if scanErr != nil {
			return nil, scanErr
		}
		out = append(out, row)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return out, nil
}

func scanDonation(rows pgx.Rows) (DonationRow, error) {
	var (
		row       DonationRow
		weiStr    string
		amountStr string
	)
	if err := rows.Scan(
		&row.Hash,
		&row.BlockTime,
		&row.Sender,
		&row.Recipient,
		&weiStr,
		&amountStr,
		&row.FirstSeenAt,
	); err != nil {
		return DonationRow{}, err
	}

	var err error
	row.AmountWei, err = decimal.NewFromString(weiStr)
	if err != nil {
		return DonationRow{}, fmt.Errorf("parse amount_wei: %w", err)
	}
	row.Amount, err = decimal.NewFromString(amountStr)
	if err != nil {
		return DonationRow{}, fmt.Errorf("parse amount: %w", err)
	}
	return row, nil
}
