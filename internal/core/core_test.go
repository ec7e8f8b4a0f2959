package core

import "testing"

func TestTokenCountFormat(t *testing.T) {
	cases := []struct {
		in   TokenCount
		want string
	}{
		{500, "500"},
		{1500, "1.5K"},
		{25000, "25K"},
		{1_500_000, "1.5M"},
	}
	for _, c := range cases {
		if got := c.in.Format(); got != c.want {
			t.Errorf("TokenCount(%d).Format() = %q, want %q", c.in, got, c.want)
		}
	}
}

func TestTokenCountAddSaturates(t *testing.T) {
	max := TokenCount(1<<64 - 1)
	if got := max.Add(1); got != max {
		t.Errorf("expected saturation at max uint64, got %d", got)
	}
}

func TestMoneyFormat(t *testing.T) {
	cases := []struct {
		usd  float64
		want string
	}{
		{0.0035, "$0.0035"},
		{0.35, "$0.35"},
		{35.0, "$35.0"},
		{350.0, "$350"},
	}
	for _, c := range cases {
		m := MoneyFromUSD(c.usd)
		if got := m.Format(); got != c.want {
			t.Errorf("MoneyFromUSD(%v).Format() = %q, want %q", c.usd, got, c.want)
		}
	}
}

func TestContextUsagePercentage(t *testing.T) {
	// Grounded on the documented scenario: 26000 cache_read + 9 input +
	// 31 cache_creation = 26040 tokens / 200000 = 13.02%.
	c := ContextUsage{
		ContextWindowSize:   200_000,
		CacheReadTokens:     26000,
		CurrentInputTokens:  9,
		CacheCreationTokens: 31,
	}
	if got := c.ContextTokens().AsUint64(); got != 26040 {
		t.Fatalf("ContextTokens() = %d, want 26040", got)
	}
	if pct := c.UsagePercentage(); pct < 13.01 || pct > 13.03 {
		t.Fatalf("UsagePercentage() = %v, want ~13.02", pct)
	}
}

func TestContextUsageCappedAt100(t *testing.T) {
	c := ContextUsage{ContextWindowSize: 1000, CacheReadTokens: 5000}
	if got := c.UsagePercentage(); got != 100 {
		t.Errorf("UsagePercentage() = %v, want 100", got)
	}
}

func TestContextUsageWarningLevels(t *testing.T) {
	cases := []struct {
		pct  uint64
		want ContextWarningLevel
	}{
		{10, ContextNormal},
		{70, ContextElevated},
		{85, ContextWarning},
		{95, ContextCritical},
	}
	for _, c := range cases {
		usage := ContextUsage{ContextWindowSize: 100, CacheReadTokens: TokenCount(c.pct)}
		if got := usage.WarningLevel(); got != c.want {
			t.Errorf("at %d%%, WarningLevel() = %v, want %v", c.pct, got, c.want)
		}
	}
}

func TestSessionDurationFormat(t *testing.T) {
	cases := []struct {
		ms   uint64
		want string
	}{
		{35_000, "35s"},
		{135_000, "2m 15s"},
		{5_400_000, "1h 30m"},
	}
	for _, c := range cases {
		d := SessionDuration{TotalMs: c.ms}
		if got := d.Format(); got != c.want {
			t.Errorf("SessionDuration{%d}.Format() = %q, want %q", c.ms, got, c.want)
		}
	}
}

func TestLinesChangedFormat(t *testing.T) {
	cases := []struct {
		l    LinesChanged
		want string
	}{
		{LinesChanged{}, "0"},
		{LinesChanged{Added: 5}, "+5"},
		{LinesChanged{Removed: 3}, "-3"},
		{LinesChanged{Added: 5, Removed: 3}, "+5/-3"},
	}
	for _, c := range cases {
		if got := c.l.Format(); got != c.want {
			t.Errorf("LinesChanged.Format() = %q, want %q", got, c.want)
		}
	}
}

func TestPendingSessionId(t *testing.T) {
	id := PendingSessionId(12345)
	if !id.IsPending() {
		t.Fatalf("expected %q to be pending", id)
	}
	if id.String() != "pending-12345" {
		t.Errorf("got %q, want pending-12345", id)
	}
}
