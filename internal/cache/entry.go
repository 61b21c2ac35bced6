package cache

import (
	"encoding/json"
	"errors"
	"time"

	"donation-tracker/internal/donation"
)

// Entry is the last successful fetch result and when it was persisted.
type Entry struct {
	WrittenAt time.Time
	donation.Snapshot
}

// Age is the time elapsed between the write and now.
func (e Entry) Age(now time.Time) time.Duration {
	return now.Sub(e.WrittenAt)
}

type wireEntry struct {
	TS   *int64            `json:"ts"`
	Data donation.Snapshot `json:"data"`
}

var errInvalidTimestamp = errors.New("cache entry has no valid ts")

// MarshalJSON writes the persisted layout {ts, data: {donations, totalBNB}}.
func (e Entry) MarshalJSON() ([]byte, error) {
	ts := e.WrittenAt.UnixMilli()
	data := e.Snapshot
	if data.Donations == nil {
		data.Donations = []donation.Record{}
	}
	return json.Marshal(wireEntry{TS: &ts, Data: data})
}

// UnmarshalJSON rejects payloads without a positive millisecond ts.
func (e *Entry) UnmarshalJSON(b []byte) error {
	var w wireEntry
	if err := json.Unmarshal(b, &w); err != nil {
		return err
	}
	if w.TS == nil || *w.TS <= 0 {
		return errInvalidTimestamp
	}
	e.WrittenAt = time.UnixMilli(*w.TS)
	e.Snapshot = w.Data
	return nil
}
