package core

import (
	"fmt"
	"math"
)

// TokenCount is a saturating unsigned token tally.
type TokenCount uint64

// Add returns c+other, saturating at math.MaxUint64 instead of wrapping.
func (c TokenCount) Add(other TokenCount) TokenCount {
	sum := uint64(c) + uint64(other)
	if sum < uint64(c) {
		return TokenCount(math.MaxUint64)
	}
	return TokenCount(sum)
}

func (c TokenCount) AsUint64() uint64 { return uint64(c) }

// Format renders the count with a K/M suffix: raw below 1000, "x.xK"
// below 10,000, "xK" below 1,000,000, and "x.xM" above that.
func (c TokenCount) Format() string {
	n := uint64(c)
	switch {
	case n < 1000:
		return fmt.Sprintf("%d", n)
	case n < 10_000:
		return fmt.Sprintf("%.1fK", float64(n)/1000)
	case n < 1_000_000:
		return fmt.Sprintf("%dK", n/1000)
	default:
		return fmt.Sprintf("%.1fM", float64(n)/1_000_000)
	}
}

// SessionDuration separates total elapsed time from the portion spent in
// API calls, both tracked in milliseconds.
type SessionDuration struct {
	TotalMs uint64
	APIMs   uint64
}

// Format renders TotalMs bucketed: "35s" under a minute, "2m 15s" under
// an hour, "1h 30m" above.
func (d SessionDuration) Format() string {
	total := d.TotalMs / 1000
	switch {
	case total < 60:
		return fmt.Sprintf("%ds", total)
	case total < 3600:
		return fmt.Sprintf("%dm %ds", total/60, total%60)
	default:
		return fmt.Sprintf("%dh %dm", total/3600, (total%3600)/60)
	}
}

func (d SessionDuration) Seconds() float64 { return float64(d.TotalMs) / 1000 }

// LinesChanged tracks cumulative lines added/removed by an agent session.
type LinesChanged struct {
	Added   uint64
	Removed uint64
}

// Net returns Added minus Removed (can be negative).
func (l LinesChanged) Net() int64 { return int64(l.Added) - int64(l.Removed) }

// Churn returns the total lines touched, added plus removed.
func (l LinesChanged) Churn() uint64 { return l.Added + l.Removed }

// Format renders a compact "+A/-R" string, omitting a side that's zero
// when the other side is non-zero, and "0" when both are zero.
func (l LinesChanged) Format() string {
	if l.Added == 0 && l.Removed == 0 {
		return "0"
	}
	if l.Removed == 0 {
		return fmt.Sprintf("+%d", l.Added)
	}
	if l.Added == 0 {
		return fmt.Sprintf("-%d", l.Removed)
	}
	return fmt.Sprintf("+%d/-%d", l.Added, l.Removed)
}
