/*
ledger.go - Capacity ceiling snapshot

PURPOSE:
  A CapacityLedger is an immutable snapshot of every resource ceiling
  bounding a derivation at the moment of an edit:
  - MaxQuantity: hard ceiling on units
  - MaxValuePrimary: monetary ceiling including any tolerance buffer
  - MaxValueSecondary: an independent, possibly tighter, value ceiling
    drawn from a shared pool (present only for allocation mode)

CLAMP PRECEDENCE:
  The primary (budget) value ceiling is checked before the secondary
  (pooled balance) ceiling. Both clamps re-derive value from the clamped
  integer quantity, so quantity and value never disagree.

INVARIANTS:
  - All ceilings are non-negative; construction clamps negatives to zero
  - A ceiling of zero forces every derived quantity/value to zero
  - No operations beyond construction and field access; no side effects

SEE ALSO:
  - mode.go: Rules receive the ledger and apply its ceilings
  - allocation: Builds ledgers from an AllotmentBudget + LicenseItem
*/
package derive

import "github.com/shopspring/decimal"

// =============================================================================
// CAPACITY LEDGER - Immutable ceiling snapshot
// =============================================================================

type CapacityLedger struct {
	// MaxQuantity is the hard ceiling on units.
	MaxQuantity decimal.Decimal

	// MaxValuePrimary is the ceiling on monetary value, buffer included.
	MaxValuePrimary decimal.Decimal

	// MaxValueSecondary is the pooled-balance ceiling. Nil when the mode
	// has no shared pool (trade-line derivations).
	MaxValueSecondary *decimal.Decimal
}

// NewCapacityLedger builds a ledger, clamping negative ceilings to zero.
func NewCapacityLedger(maxQuantity, maxValuePrimary decimal.Decimal) CapacityLedger {
	return CapacityLedger{
		MaxQuantity:     clampNonNegative(maxQuantity),
		MaxValuePrimary: clampNonNegative(maxValuePrimary),
	}
}

// WithSecondary returns a copy of the ledger carrying a pooled-balance
// ceiling.
func (l CapacityLedger) WithSecondary(maxValueSecondary decimal.Decimal) CapacityLedger {
	v := clampNonNegative(maxValueSecondary)
	l.MaxValueSecondary = &v
	return l
}

// Unbounded returns a ledger with no effective ceilings. Trade-line
// modes use it: their only bound is the base amount itself.
func Unbounded() CapacityLedger {
	huge := decimal.New(1, 18)
	return CapacityLedger{MaxQuantity: huge, MaxValuePrimary: huge}
}

// ClampQuantity bounds q to [0, MaxQuantity].
func (l CapacityLedger) ClampQuantity(q decimal.Decimal) decimal.Decimal {
	q = clampNonNegative(q)
	if q.GreaterThan(l.MaxQuantity) {
		return l.MaxQuantity
	}
	return q
}

// ClampValue bounds v to [0, min(MaxValuePrimary, MaxValueSecondary)].
func (l CapacityLedger) ClampValue(v decimal.Decimal) decimal.Decimal {
	v = clampNonNegative(v)
	if v.GreaterThan(l.MaxValuePrimary) {
		v = l.MaxValuePrimary
	}
	if l.MaxValueSecondary != nil && v.GreaterThan(*l.MaxValueSecondary) {
		v = *l.MaxValueSecondary
	}
	return v
}

// Stricter reports whether every ceiling of l is at or below the
// corresponding ceiling of other. Used by monotonicity checks.
func (l CapacityLedger) Stricter(other CapacityLedger) bool {
	if l.MaxQuantity.GreaterThan(other.MaxQuantity) {
		return false
	}
	if l.MaxValuePrimary.GreaterThan(other.MaxValuePrimary) {
		return false
	}
	if other.MaxValueSecondary != nil {
		if l.MaxValueSecondary == nil || l.MaxValueSecondary.GreaterThan(*other.MaxValueSecondary) {
			return false
		}
	}
	return true
}

func clampNonNegative(v decimal.Decimal) decimal.Decimal {
	if v.IsNegative() {
		return decimal.Zero
	}
	return v
}
