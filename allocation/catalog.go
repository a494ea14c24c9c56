/*
catalog.go - Allocation derivation mode table

PURPOSE:
  Declares the allocation mode: two fields (quantity, value), two rules
  (one per editable field), integer quantity rounding and 2-decimal
  value rounding, bound to all three ceilings of the capacity ledger.

CLAMP ORDER (quantity edit):
  1. quantity ceiling (remaining required, capped by item availability)
  2. primary value ceiling (remaining required value + buffer)
  3. secondary value ceiling (license pooled balance)
  Value is re-derived from the clamped integer quantity after every
  step, so the pair never disagrees. The budget ceiling is checked
  before the pooled-balance ceiling; precedence matters when a small
  unit price makes the floored quantities differ.

QUANTITY AUTHORITY (value edit):
  The typed value is clamped, converted to a floored integer quantity,
  and the value is then re-derived from that quantity - possibly below
  what the user typed. Quantity is the final authority.
*/
package allocation

import (
	"github.com/shopspring/decimal"

	"github.com/eximtrack/allocation-engine/derive"
)

// Mode is the allocation derivation table. Shared by the calculator and
// the HTTP derive endpoint.
var Mode = derive.Mode{
	Name: "allocation",
	Rounding: map[derive.Field]derive.Rounding{
		derive.FieldQuantity: derive.FloorInt,
		derive.FieldValue:    derive.Round2,
	},
	Rules: map[derive.Field]derive.Rule{
		derive.FieldQuantity: quantityEdited,
		derive.FieldValue:    valueEdited,
	},
}

// quantityEdited: clamp quantity, derive value, re-clamp through both
// value ceilings.
func quantityEdited(in derive.Input) derive.FieldSet {
	out := derive.NewFieldSet()

	qty := in.Ledger.ClampQuantity(in.Value.Floor())
	if !in.Price.Valid() {
		// No usable unit price: quantity stands, value stays unset.
		return out.Set(derive.FieldQuantity, qty)
	}

	qty, value := clampByValueCeilings(qty, in.Ledger, in.Price)
	return out.
		Set(derive.FieldQuantity, qty).
		Set(derive.FieldValue, value)
}

// valueEdited: clamp the typed value, floor to an integer quantity,
// clamp that, and re-derive the value from the final quantity.
func valueEdited(in derive.Input) derive.FieldSet {
	out := derive.NewFieldSet()

	value := in.Ledger.ClampValue(in.Value)
	qty, ok := derive.SafeDiv(value, in.Price.Rate)
	if !ok {
		// Zero divisor: the typed value stands but no quantity can be
		// derived from it.
		return out.Set(derive.FieldValue, value)
	}

	qty = in.Ledger.ClampQuantity(qty.Floor())
	return out.
		Set(derive.FieldQuantity, qty).
		Set(derive.FieldValue, qty.Mul(in.Price.Rate))
}

// clampByValueCeilings applies the primary then secondary value ceiling
// to an already quantity-clamped edit, flooring the quantity back from
// the violated ceiling each time.
func clampByValueCeilings(qty decimal.Decimal, ledger derive.CapacityLedger, price derive.UnitPrice) (decimal.Decimal, decimal.Decimal) {
	value := qty.Mul(price.Rate)

	if value.GreaterThan(ledger.MaxValuePrimary) {
		if q, ok := derive.SafeDiv(ledger.MaxValuePrimary, price.Rate); ok {
			qty = q.Floor()
			value = qty.Mul(price.Rate)
		}
	}
	if ledger.MaxValueSecondary != nil && value.GreaterThan(*ledger.MaxValueSecondary) {
		if q, ok := derive.SafeDiv(*ledger.MaxValueSecondary, price.Rate); ok {
			qty = q.Floor()
			value = qty.Mul(price.Rate)
		}
	}
	return qty, value
}
