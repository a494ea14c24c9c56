/*
rounding.go - Per-field rounding policies

PURPOSE:
  Each field in a derivation mode carries its own rounding rule. The
  asymmetry is deliberate and must be preserved per field:
  - quantities are integers (truncating) in allocation mode
  - derived per-unit rates use 3 decimals
  - monetary values use 2 decimals
  - line amount totals round to the nearest whole unit

  Two nearly identical "unit value from total and quantity" derivations
  exist in the wild, one ceiling and one flooring; both are kept as
  explicit policies rather than unified.

SEE ALSO:
  - mode.go: Binds a Rounding to each field in a mode table
*/
package derive

import "github.com/shopspring/decimal"

// =============================================================================
// ROUNDING - Per-field rounding policy
// =============================================================================

type Rounding int

const (
	// RoundNone keeps the value as computed.
	RoundNone Rounding = iota

	// Round0 rounds half-up to the nearest whole unit (line amount totals).
	Round0

	// Round2 rounds half-up to 2 decimals (monetary values).
	Round2

	// Round3 rounds half-up to 3 decimals (derived rates and percentages).
	Round3

	// FloorInt truncates toward zero to an integer (quantities derived
	// from a value ceiling - never exceed the budget).
	FloorInt

	// CeilInt rounds up to an integer. Kept distinct from FloorInt: one
	// unit-value-from-total call site ceils where its sibling floors.
	CeilInt
)

// Apply rounds v according to the policy.
func (r Rounding) Apply(v decimal.Decimal) decimal.Decimal {
	switch r {
	case Round0:
		return v.Round(0)
	case Round2:
		return v.Round(2)
	case Round3:
		return v.Round(3)
	case FloorInt:
		return v.Floor()
	case CeilInt:
		return v.Ceil()
	default:
		return v
	}
}

// =============================================================================
// SAFE DIVISION
// =============================================================================

// SafeDiv divides a by b. The second return is false when b is zero or
// negative, in which case the dependent field must be left unset rather
// than propagate NaN/Infinity.
func SafeDiv(a, b decimal.Decimal) (decimal.Decimal, bool) {
	if !b.IsPositive() {
		return decimal.Zero, false
	}
	return a.DivRound(b, 12), true
}
