package storage

import (
	"time"

	"github.com/shopspring/decimal"
)

// DonationRow is an archived donation.
type DonationRow struct {
	Hash        string
	BlockTime   time.Time
	Sender      string
	Recipient   string
	AmountWei   decimal.Decimal
	Amount      decimal.Decimal
	FirstSeenAt time.Time
}

// RefreshRecord captures one successful explorer refresh.
type RefreshRecord struct {
	ID            int64
	RefreshedAt   time.Time
	DonationCount int
	Total         decimal.Decimal
	NewDonations  int
}
