package core

import "fmt"

// ContextWarningLevel buckets usage_percentage into four bands used for
// client-side coloring and the registry's needs_attention projection.
type ContextWarningLevel int

const (
	ContextNormal ContextWarningLevel = iota
	ContextElevated
	ContextWarning
	ContextCritical
)

func (l ContextWarningLevel) String() string {
	switch l {
	case ContextElevated:
		return "elevated"
	case ContextWarning:
		return "warning"
	case ContextCritical:
		return "critical"
	default:
		return "normal"
	}
}

// ContextUsage tracks a session's token budget: cumulative counters
// reported over the lifetime of the session, and the current-turn
// breakdown used to derive how much of the context window is occupied
// right now.
type ContextUsage struct {
	TotalInputTokens  TokenCount
	TotalOutputTokens TokenCount
	ContextWindowSize uint32 // model's max context tokens, e.g. 200000

	CurrentInputTokens  TokenCount
	CurrentOutputTokens TokenCount
	CacheCreationTokens TokenCount
	CacheReadTokens     TokenCount
}

// DefaultContextWindowSize is used when the assistant does not report a
// window size (matches the status-line schema's documented default).
const DefaultContextWindowSize uint32 = 200_000

// NewContextUsage returns a zero-valued ContextUsage with the default
// window size.
func NewContextUsage() ContextUsage {
	return ContextUsage{ContextWindowSize: DefaultContextWindowSize}
}

// ContextTokens is the number of tokens currently occupying the context
// window: cache-read plus current-turn input plus cache-creation. It
// deliberately excludes CurrentOutputTokens, which has not yet been fed
// back into the context on the next turn.
func (c ContextUsage) ContextTokens() TokenCount {
	return c.CacheReadTokens.Add(c.CurrentInputTokens).Add(c.CacheCreationTokens)
}

// UsagePercentage is ContextTokens / ContextWindowSize as a percentage,
// capped at 100 and normalized to 0 for non-finite or zero-window
// inputs.
func (c ContextUsage) UsagePercentage() float64 {
	if c.ContextWindowSize == 0 {
		return 0
	}
	pct := float64(c.ContextTokens().AsUint64()) / float64(c.ContextWindowSize) * 100
	if pct != pct || pct < 0 { // NaN guard
		return 0
	}
	if pct > 100 {
		return 100
	}
	return pct
}

// WarningLevel buckets UsagePercentage into the four threshold bands.
func (c ContextUsage) WarningLevel() ContextWarningLevel {
	pct := c.UsagePercentage()
	switch {
	case pct >= 90:
		return ContextCritical
	case pct >= 80:
		return ContextWarning
	case pct >= 60:
		return ContextElevated
	default:
		return ContextNormal
	}
}

// IsWarning reports usage at or above the Warning threshold (80%).
func (c ContextUsage) IsWarning() bool { return c.UsagePercentage() >= 80 }

// IsCritical reports usage at or above the Critical threshold (90%).
func (c ContextUsage) IsCritical() bool { return c.UsagePercentage() >= 90 }

// Exceeds200k reports whether the cumulative input token total alone
// has passed the common 200k context-window size, independent of the
// configured window for this model.
func (c ContextUsage) Exceeds200k() bool {
	return c.TotalInputTokens.AsUint64() > 200_000
}

// RemainingTokens is the window size minus the tokens currently in use,
// floored at zero.
func (c ContextUsage) RemainingTokens() TokenCount {
	used := c.ContextTokens().AsUint64()
	window := uint64(c.ContextWindowSize)
	if used >= window {
		return 0
	}
	return TokenCount(window - used)
}

// Format renders "12K/200K (6%)" style summary for a session view.
func (c ContextUsage) Format() string {
	return fmt.Sprintf("%s/%s (%.0f%%)", c.ContextTokens().Format(), TokenCount(c.ContextWindowSize).Format(), c.UsagePercentage())
}

// FormatCompact renders just the percentage, e.g. "6%".
func (c ContextUsage) FormatCompact() string {
	return fmt.Sprintf("%.0f%%", c.UsagePercentage())
}
