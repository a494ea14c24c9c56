/*
calculator.go - Allocation edit entry points

PURPOSE:
  Binds one AllotmentBudget and one LicenseItem into a capacity ledger
  and exposes the three edit operations the allocation form needs:
  quantity edited, value edited, and "use maximum". Use-maximum is not
  a separate algorithm - it is the quantity edit evaluated at the item's
  full available quantity.

LEDGER CONSTRUCTION:
  MaxQuantity       = min(budget.BalancedQuantity, item.Quantity)
  MaxValuePrimary   = budget.BalancedValueWithBuffer
  MaxValueSecondary = item.PooledValue (license-wide shared balance)
*/
package allocation

import (
	"github.com/eximtrack/allocation-engine/derive"
)

// Calculator previews allocation edits for one budget/item pair. Pure:
// it never mutates the budget, the item, or any pool.
type Calculator struct {
	Budget AllotmentBudget
	Item   LicenseItem
}

// Ledger builds the ceiling snapshot for the current budget/item state.
func (c Calculator) Ledger() derive.CapacityLedger {
	maxQty := c.Budget.BalancedQuantity()
	if c.Item.Quantity.LessThan(maxQty) {
		maxQty = c.Item.Quantity
	}
	return derive.
		NewCapacityLedger(maxQty, c.Budget.BalancedValueWithBuffer()).
		WithSecondary(c.Item.PooledValue)
}

// EditQuantity derives the clamped (quantity, value) pair for a typed
// quantity.
func (c Calculator) EditQuantity(raw derive.RawValue) (Preview, error) {
	return c.reduce(derive.FieldQuantity, raw)
}

// EditValue derives the pair for a typed value. Quantity is the final
// authority: the returned value may be below the typed one.
func (c Calculator) EditValue(raw derive.RawValue) (Preview, error) {
	return c.reduce(derive.FieldValue, raw)
}

// UseMaximum derives the largest allocation every ceiling allows.
func (c Calculator) UseMaximum() (Preview, error) {
	return c.reduce(derive.FieldQuantity, derive.RawDecimal(c.Item.Quantity))
}

func (c Calculator) reduce(edited derive.Field, raw derive.RawValue) (Preview, error) {
	fs, err := derive.Reduce(Mode, edited, raw, derive.NewFieldSet(), c.Ledger(), derive.NewUnitPrice(c.Item.UnitPrice))
	if err != nil {
		return Preview{}, err
	}
	return previewFrom(fs), nil
}
