package donation

import (
	"strconv"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
)

// Normalizer turns explorer rows into donation records for one wallet.
type Normalizer struct {
	wallet common.Address
}

// NewNormalizer builds a normalizer for the monitored wallet address.
func NewNormalizer(wallet string) *Normalizer {
	return &Normalizer{wallet: common.HexToAddress(wallet)}
}

// Normalize maps a raw row to a Record. ok is false when the row is not a
// successful, non-zero transfer to the wallet.
func (n *Normalizer) Normalize(row RawTransaction) (Record, bool) {
	to := strings.TrimSpace(row.To)
	if !common.IsHexAddress(to) || common.HexToAddress(to) != n.wallet {
		return Record{}, false
	}
	if row.IsError != "0" {
		return Record{}, false
	}
	if row.Value == "" {
		return Record{}, false
	}
	wei, err := decimal.NewFromString(row.Value)
	if err != nil || wei.IsZero() {
		return Record{}, false
	}

	var millis int64
	if secs, err := strconv.ParseInt(strings.TrimSpace(row.TimeStamp), 10, 64); err == nil {
		millis = secs * 1000
	}

	return Record{
		Hash:            row.Hash,
		TimestampMillis: millis,
		AmountWei:       row.Value,
		Amount:          wei.Shift(weiExponent).InexactFloat64(),
		Sender:          row.From,
		Recipient:       row.To,
	}, true
}

// NormalizeAll filters and maps rows, preserving input order.
func (n *Normalizer) NormalizeAll(rows []RawTransaction) []Record {
	out := make([]Record, 0, len(rows))
	for _, row := range rows {
		if rec, ok := n.Normalize(row); ok {
			out = append(out, rec)
		}
	}
	return out
}
