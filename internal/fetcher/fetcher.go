package fetcher

import (
	"context"

	"donation-tracker/internal/donation"
)

// DonationFetcher retrieves the current donation snapshot for the monitored wallet.
type DonationFetcher interface {
	FetchDonations(ctx context.Context) (donation.Snapshot, error)
}
