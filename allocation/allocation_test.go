package allocation_test

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eximtrack/allocation-engine/allocation"
	"github.com/eximtrack/allocation-engine/derive"
)

// =============================================================================
// TEST SETUP
// =============================================================================

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

// testBudget: 50 units / 100.00 required, 10.00 buffer, nothing allotted.
func testBudget() allocation.AllotmentBudget {
	return allocation.AllotmentBudget{
		RequiredQuantity: dec("50"),
		RequiredValue:    dec("100"),
		BufferAmount:     dec("10"),
	}
}

func testItem(qty, price, pooled string) allocation.LicenseItem {
	return allocation.LicenseItem{
		ID:          "item-1",
		LicenseKey:  "LIC-A",
		Quantity:    dec(qty),
		UnitPrice:   dec(price),
		PooledValue: dec(pooled),
	}
}

// =============================================================================
// QUANTITY EDIT
// =============================================================================

func TestEditQuantity_AllCeilingsApplyInOrder(t *testing.T) {
	// GIVEN: unitPrice 2.00, balancedQuantity 50, availableQuantity 30,
	//        balancedValueWithBuffer 60.00, pooled balance 40.00
	// WHEN: quantity edited to 40
	// THEN: clamp to min(50,30)=30 -> value 60.00 -> pooled ceiling 40.00
	//       -> quantity floor(40/2)=20, value 40.00
	calc := allocation.Calculator{
		Budget: allocation.AllotmentBudget{
			RequiredQuantity: dec("50"),
			RequiredValue:    dec("60"),
		},
		Item: testItem("30", "2.00", "40.00"),
	}

	p, err := calc.EditQuantity(derive.Raw("40"))
	require.NoError(t, err)
	assert.True(t, p.Quantity.Equal(dec("20")), "quantity = %s, want 20", p.Quantity)
	assert.True(t, p.Value.Equal(dec("40.00")), "value = %s, want 40.00", p.Value)
}

func TestEditQuantity_WithinCeilingsPassesThrough(t *testing.T) {
	calc := allocation.Calculator{Budget: testBudget(), Item: testItem("30", "2.00", "1000")}

	p, err := calc.EditQuantity(derive.Raw("10"))
	require.NoError(t, err)
	assert.True(t, p.Quantity.Equal(dec("10")))
	assert.True(t, p.Value.Equal(dec("20.00")))
}

func TestEditQuantity_FractionalInputTruncates(t *testing.T) {
	calc := allocation.Calculator{Budget: testBudget(), Item: testItem("30", "2.00", "1000")}

	p, err := calc.EditQuantity(derive.Raw("7.9"))
	require.NoError(t, err)
	assert.True(t, p.Quantity.Equal(dec("7")), "quantities are integers in allocation mode")
}

func TestEditQuantity_JunkInputIsZero(t *testing.T) {
	calc := allocation.Calculator{Budget: testBudget(), Item: testItem("30", "2.00", "1000")}

	p, err := calc.EditQuantity(derive.Raw("not a number"))
	require.NoError(t, err)
	assert.True(t, p.Quantity.IsZero())
	assert.True(t, p.Value.IsZero())
}

func TestEditQuantity_ZeroUnitPriceLeavesValueUnset(t *testing.T) {
	calc := allocation.Calculator{Budget: testBudget(), Item: testItem("30", "0", "1000")}

	p, err := calc.EditQuantity(derive.Raw("10"))
	require.NoError(t, err)
	assert.True(t, p.Quantity.Equal(dec("10")))
	assert.False(t, p.ValueSet, "value must stay unset with no usable unit price")
}

func TestEditQuantity_BufferPermitsSlightOverValue(t *testing.T) {
	// Required value 100 + buffer 10 = primary ceiling 110.
	calc := allocation.Calculator{Budget: testBudget(), Item: testItem("60", "2.20", "1000")}

	p, err := calc.EditQuantity(derive.Raw("50"))
	require.NoError(t, err)
	// 50 * 2.20 = 110.00, exactly at the buffered ceiling.
	assert.True(t, p.Quantity.Equal(dec("50")))
	assert.True(t, p.Value.Equal(dec("110.00")))
}

// =============================================================================
// VALUE EDIT - quantity is the final authority
// =============================================================================

func TestEditValue_QuantityAuthority(t *testing.T) {
	// GIVEN: unitPrice 3.00
	// WHEN: value edited to 10.00
	// THEN: quantity floor(10/3)=3, value re-derived to 9.00
	calc := allocation.Calculator{Budget: testBudget(), Item: testItem("30", "3.00", "1000")}

	p, err := calc.EditValue(derive.Raw("10.00"))
	require.NoError(t, err)
	assert.True(t, p.Quantity.Equal(dec("3")))
	assert.True(t, p.Value.Equal(dec("9.00")), "value = %s, want quantity*price", p.Value)
	assert.True(t, p.Quantity.Mul(dec("3.00")).Round(2).Equal(p.Value))
}

func TestEditValue_ClampedToTightestValueCeiling(t *testing.T) {
	// Pooled balance 40 is tighter than buffered requirement 110.
	calc := allocation.Calculator{Budget: testBudget(), Item: testItem("100", "2.00", "40")}

	p, err := calc.EditValue(derive.Raw("500"))
	require.NoError(t, err)
	assert.True(t, p.Quantity.Equal(dec("20")), "quantity = %s, want 20", p.Quantity)
	assert.True(t, p.Value.Equal(dec("40.00")))
}

// =============================================================================
// USE MAXIMUM
// =============================================================================

func TestUseMaximum_IsQuantityEditAtAvailable(t *testing.T) {
	calc := allocation.Calculator{Budget: testBudget(), Item: testItem("30", "2.00", "1000")}

	max, err := calc.UseMaximum()
	require.NoError(t, err)
	viaEdit, err := calc.EditQuantity(derive.RawDecimal(dec("30")))
	require.NoError(t, err)

	assert.True(t, max.Quantity.Equal(viaEdit.Quantity))
	assert.True(t, max.Value.Equal(viaEdit.Value))
}

func TestUseMaximum_BoundedByRequiredQuantity(t *testing.T) {
	// Item has 80 units but only 50 are still required.
	calc := allocation.Calculator{Budget: testBudget(), Item: testItem("80", "1.00", "1000")}

	p, err := calc.UseMaximum()
	require.NoError(t, err)
	assert.True(t, p.Quantity.Equal(dec("50")))
	assert.True(t, p.Value.Equal(dec("50.00")))
}

// =============================================================================
// CEILING MONOTONICITY
// =============================================================================

func TestEditQuantity_MonotoneInCeilings(t *testing.T) {
	// A strictly looser budget can never produce a smaller preview.
	tight := allocation.Calculator{
		Budget: allocation.AllotmentBudget{RequiredQuantity: dec("10"), RequiredValue: dec("15")},
		Item:   testItem("30", "2.00", "12"),
	}
	loose := allocation.Calculator{
		Budget: allocation.AllotmentBudget{RequiredQuantity: dec("40"), RequiredValue: dec("90")},
		Item:   testItem("30", "2.00", "70"),
	}

	for _, raw := range []string{"0", "3", "8", "15", "40"} {
		pt, err := tight.EditQuantity(derive.Raw(raw))
		require.NoError(t, err)
		pl, err := loose.EditQuantity(derive.Raw(raw))
		require.NoError(t, err)

		assert.False(t, pt.Quantity.GreaterThan(pl.Quantity),
			"edit %s: tight quantity %s > loose %s", raw, pt.Quantity, pl.Quantity)
		assert.False(t, pt.Value.GreaterThan(pl.Value),
			"edit %s: tight value %s > loose %s", raw, pt.Value, pl.Value)
	}
}

func TestEditQuantity_ZeroBudgetForcesZero(t *testing.T) {
	calc := allocation.Calculator{
		Budget: allocation.AllotmentBudget{
			RequiredQuantity: dec("50"),
			RequiredValue:    dec("100"),
			AllottedQuantity: dec("50"),
			AllottedValue:    dec("100"),
		},
		Item: testItem("30", "2.00", "1000"),
	}

	p, err := calc.EditQuantity(derive.Raw("10"))
	require.NoError(t, err)
	assert.True(t, p.Quantity.IsZero())
	assert.True(t, p.Value.IsZero())
}

// =============================================================================
// BUDGET COMPLETION
// =============================================================================

func TestCompleted_ExactZeroOnly(t *testing.T) {
	mk := func(allotted string) allocation.AllotmentBudget {
		return allocation.AllotmentBudget{
			RequiredQuantity: dec("100"),
			AllottedQuantity: dec(allotted),
		}
	}

	assert.True(t, mk("100").Completed(), "exactly allotted must complete")
	assert.False(t, mk("99").Completed(), "under-allotted must not complete")
	assert.False(t, mk("101").Completed(), "over-allotted must not complete")
	assert.False(t, allocation.AllotmentBudget{}.Completed(), "zero requirement never completes")
}
