/*
Package allocation implements license-allocation specific derivation.

PURPOSE:
  First of the two call sites of the derive engine. An allotment asks
  for a required quantity/value of an item; license items (SR lines)
  carry their own remaining quantity and a value balance pooled across
  every item of the same license. Editing quantity or value on an
  allocation form must stay inside three simultaneous ceilings:

    1. the allotment's remaining required quantity
    2. the allotment's remaining required value plus tolerance buffer
    3. the license's remaining pooled balance

KEY CONCEPTS:
  - AllotmentBudget: required vs. allotted totals; balances derived on
    every read, never stored
  - LicenseItem: one SR line with quantity, unit price, pooled value
  - Preview: a clamped (quantity, value) pair shown before confirmation

SEE ALSO:
  - catalog.go: The allocation derivation mode table
  - calculator.go: Ledger construction + edit entry points
  - pool.go: Shared pooled-balance arena
  - service.go: Authoritative confirmation + completion signal
*/
package allocation

import (
	"github.com/shopspring/decimal"

	"github.com/eximtrack/allocation-engine/derive"
)

// =============================================================================
// ALLOTMENT BUDGET
// =============================================================================

// AllotmentBudget holds the required targets and confirmed allotted
// totals for one allotment. Allotted fields are mutated only from the
// authoritative store response, never recomputed client-side.
type AllotmentBudget struct {
	RequiredQuantity decimal.Decimal
	RequiredValue    decimal.Decimal
	BufferAmount     decimal.Decimal
	AllottedQuantity decimal.Decimal
	AllottedValue    decimal.Decimal
}

// BalancedQuantity is the remaining required quantity.
func (b AllotmentBudget) BalancedQuantity() decimal.Decimal {
	return b.RequiredQuantity.Sub(b.AllottedQuantity)
}

// BalancedValueWithBuffer is the remaining required value including the
// fixed tolerance buffer.
func (b AllotmentBudget) BalancedValueWithBuffer() decimal.Decimal {
	return b.RequiredValue.Add(b.BufferAmount).Sub(b.AllottedValue)
}

// Completed reports the exact-zero completion condition: the required
// quantity is fully allotted, no more and no less. Over-allocation does
// NOT complete - the strict equality is deliberate.
func (b AllotmentBudget) Completed() bool {
	return b.RequiredQuantity.IsPositive() && b.RequiredQuantity.Sub(b.AllottedQuantity).IsZero()
}

// =============================================================================
// LICENSE ITEM
// =============================================================================

// ItemState is the lifecycle of a license item inside a pool.
type ItemState string

const (
	StateAvailable         ItemState = "available"
	StatePartiallyConsumed ItemState = "partially_consumed"
	StateExhausted         ItemState = "exhausted"
)

// LicenseItem is one SR line of an import license. Quantity is its own
// remaining units; PooledValue is the license-wide value balance shared
// by every item with the same LicenseKey.
type LicenseItem struct {
	ID          string
	LicenseKey  string
	Description string

	// Quantity is integer-valued (units).
	Quantity decimal.Decimal

	// UnitPrice is the fixed CIF value per unit.
	UnitPrice decimal.Decimal

	// PooledValue is the license's remaining value balance. Shared:
	// any confirmed allocation against a sibling item reduces it too.
	PooledValue decimal.Decimal

	// Consumed tracks whether any allocation hit this item yet.
	Consumed bool
}

// State derives the lifecycle state from the item's counters.
func (it LicenseItem) State() ItemState {
	switch {
	case !it.Quantity.IsPositive():
		return StateExhausted
	case it.Consumed:
		return StatePartiallyConsumed
	default:
		return StateAvailable
	}
}

// =============================================================================
// PREVIEW
// =============================================================================

// Preview is the clamped result of one allocation edit: an integer
// quantity and the value re-derived from it. ValueSet is false when the
// unit price was unusable and no value could be derived.
type Preview struct {
	Quantity decimal.Decimal
	Value    decimal.Decimal
	ValueSet bool
}

// previewFrom converts a reduced field set to a Preview.
func previewFrom(fs derive.FieldSet) Preview {
	v, ok := fs.Get(derive.FieldValue)
	return Preview{
		Quantity: fs.Value(derive.FieldQuantity),
		Value:    v,
		ValueSet: ok,
	}
}
