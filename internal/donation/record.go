package donation

import (
	"github.com/shopspring/decimal"
)

// weiExponent scales base units to display units (1 BNB = 1e18 wei).
const weiExponent = -18

// Record is a single native-currency transfer to the monitored wallet.
type Record struct {
	Hash            string  `json:"hash"`
	TimestampMillis int64   `json:"timeStamp"`
	AmountWei       string  `json:"valueWei"`
	Amount          float64 `json:"valueBNB"`
	Sender          string  `json:"from"`
	Recipient       string  `json:"to"`
}

// Snapshot is an ordered (newest first) set of donations with their total.
type Snapshot struct {
	Donations []Record `json:"donations"`
	Total     float64  `json:"totalBNB"`
}

// Latest returns the most recent donation, if any.
func (s Snapshot) Latest() (Record, bool) {
	if len(s.Donations) == 0 {
		return Record{}, false
	}
	return s.Donations[0], true
}

// Clone returns a snapshot whose donation slice is not shared with s.
func (s Snapshot) Clone() Snapshot {
	out := Snapshot{Total: s.Total}
	if s.Donations != nil {
		out.Donations = make([]Record, len(s.Donations))
		copy(out.Donations, s.Donations)
	}
	return out
}

// RawTransaction is one row of the explorer's internal transaction list.
type RawTransaction struct {
	Hash      string `json:"hash"`
	TimeStamp string `json:"timeStamp"`
	Value     string `json:"value"`
	From      string `json:"from"`
	To        string `json:"to"`
	IsError   string `json:"isError"`
}

// BuildSnapshot reverses API order (oldest first) and totals the amounts.
// The total is summed in base units so it carries no float rounding per row.
func BuildSnapshot(records []Record) Snapshot {
	donations := make([]Record, len(records))
	sum := decimal.Zero
	for i, rec := range records {
		donations[len(records)-1-i] = rec
		if wei, err := decimal.NewFromString(rec.AmountWei); err == nil {
			sum = sum.Add(wei)
		}
	}
	return Snapshot{
		Donations: donations,
		Total:     sum.Shift(weiExponent).InexactFloat64(),
	}
}

// Progress reports total/goal as a percentage clamped to [0, 100].
// ok is false when no goal is configured.
func Progress(total, goal float64) (pct float64, ok bool) {
	if goal <= 0 {
		return 0, false
	}
	pct = total / goal * 100
	if pct > 100 {
		pct = 100
	}
	if pct < 0 {
		pct = 0
	}
	return pct, true
}

// FormatAmount renders a display amount with at most places fraction digits.
func FormatAmount(v float64, places int32) string {
	return decimal.NewFromFloat(v).Round(places).String()
}
