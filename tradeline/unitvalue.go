/*
unitvalue.go - Unit value from total and quantity

Two near-identical derivations of a per-unit value from a total exist
in this system, one rounding up and one rounding down. They are NOT
unified: the ceiling variant is used when deriving a unit CIF value
from a line total (the per-unit figure must cover the total), the
flooring variant when a conservative per-unit figure is wanted. Both
guard against a zero quantity.
*/
package tradeline

import (
	"github.com/shopspring/decimal"

	"github.com/eximtrack/allocation-engine/derive"
)

// UnitValueFromTotalCeil derives total/quantity rounded UP to an
// integer. Returns false when quantity is zero or negative.
func UnitValueFromTotalCeil(total, quantity decimal.Decimal) (decimal.Decimal, bool) {
	v, ok := derive.SafeDiv(total, quantity)
	if !ok {
		return decimal.Zero, false
	}
	return v.Ceil(), true
}

// UnitValueFromTotalFloor derives total/quantity rounded DOWN to an
// integer. Returns false when quantity is zero or negative.
func UnitValueFromTotalFloor(total, quantity decimal.Decimal) (decimal.Decimal, bool) {
	v, ok := derive.SafeDiv(total, quantity)
	if !ok {
		return decimal.Zero, false
	}
	return v.Floor(), true
}
