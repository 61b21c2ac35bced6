package cache

import "time"

// Freshness classifies a cache entry against a time-to-live.
type Freshness int

const (
	Absent Freshness = iota
	Fresh
	Stale
)

func (f Freshness) String() string {
	switch f {
	case Fresh:
		return "fresh"
	case Stale:
		return "stale"
	default:
		return "absent"
	}
}

// Classify reports Fresh when the entry is at most ttl old (inclusive).
func Classify(entry *Entry, now time.Time, ttl time.Duration) Freshness {
	if entry == nil {
		return Absent
	}
	if entry.Age(now) <= ttl {
		return Fresh
	}
	return Stale
}
