package core

import (
	"fmt"
	"math"
)

// Money is a signed amount in micro-dollars (1 USD = 1,000,000 units),
// used instead of a float to avoid drift across many small additions.
type Money int64

const microsPerUSD = 1_000_000

// ZeroMoney is the additive identity.
const ZeroMoney Money = 0

// MoneyFromUSD converts a floating USD amount to Money, rounding to the
// nearest micro-dollar.
func MoneyFromUSD(usd float64) Money {
	return Money(math.Round(usd * microsPerUSD))
}

// AsUSD returns the value as a floating USD amount, for wire encoding.
func (m Money) AsUSD() float64 {
	return float64(m) / microsPerUSD
}

// Add returns m+other, saturating at the int64 bounds instead of
// wrapping on overflow.
func (m Money) Add(other Money) Money {
	sum := int64(m) + int64(other)
	if (other > 0 && sum < int64(m)) || (other < 0 && sum > int64(m)) {
		if other > 0 {
			return Money(math.MaxInt64)
		}
		return Money(math.MinInt64)
	}
	return Money(sum)
}

// Format renders m as a USD string with a precision that scales down as
// the magnitude grows: under $0.01 gets 4 decimals, under $10 gets 2,
// under $100 gets 1, otherwise none.
func (m Money) Format() string {
	usd := m.AsUSD()
	abs := math.Abs(usd)
	switch {
	case abs < 0.01:
		return fmt.Sprintf("$%.4f", usd)
	case abs < 10:
		return fmt.Sprintf("$%.2f", usd)
	case abs < 100:
		return fmt.Sprintf("$%.1f", usd)
	default:
		return fmt.Sprintf("$%.0f", usd)
	}
}

// FormatCompact renders a short form suitable for a narrow status line,
// e.g. "35c" for amounts under a dollar, "$1.5" under $10, "$12" above.
func (m Money) FormatCompact() string {
	usd := m.AsUSD()
	abs := math.Abs(usd)
	switch {
	case abs < 1.0:
		return fmt.Sprintf("%.0fc", usd*100)
	case abs < 10:
		return fmt.Sprintf("$%.1f", usd)
	default:
		return fmt.Sprintf("$%.0f", usd)
	}
}
