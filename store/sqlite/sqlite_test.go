package sqlite_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eximtrack/allocation-engine/allocation"
	"github.com/eximtrack/allocation-engine/store/sqlite"
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

func newTestStore(t *testing.T) *sqlite.Store {
	t.Helper()
	store, err := sqlite.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func seed(t *testing.T, store *sqlite.Store) {
	t.Helper()
	ctx := context.Background()

	require.NoError(t, store.SaveAllotment(ctx, sqlite.AllotmentRecord{
		ID:   "allot-1",
		Name: "Aluminium sheets",
		Item: "AL-SHEET-2MM",
		Budget: allocation.AllotmentBudget{
			RequiredQuantity: dec("100"),
			RequiredValue:    dec("200"),
			BufferAmount:     dec("20"),
		},
	}))

	items := []allocation.LicenseItem{
		{ID: "sr-1", LicenseKey: "LIC-1", Quantity: dec("60"), UnitPrice: dec("2.00"), PooledValue: dec("180")},
		{ID: "sr-2", LicenseKey: "LIC-1", Quantity: dec("80"), UnitPrice: dec("2.00"), PooledValue: dec("180")},
		{ID: "sr-3", LicenseKey: "LIC-2", Quantity: dec("30"), UnitPrice: dec("3.00"), PooledValue: dec("90")},
	}
	for _, it := range items {
		require.NoError(t, store.SaveLicenseItem(ctx, sqlite.LicenseItemRecord{AllotmentID: "allot-1", LicenseItem: it}))
	}
}

func alloc(itemID, licenseKey, qty, value string) allocation.Allocation {
	return allocation.Allocation{
		ID:          uuid.NewString(),
		AllotmentID: "allot-1",
		ItemID:      itemID,
		LicenseKey:  licenseKey,
		Quantity:    dec(qty),
		Value:       dec(value),
		CreatedAt:   time.Now().UTC(),
	}
}

// =============================================================================
// ROUND TRIPS
// =============================================================================

func TestStore_AllotmentRoundTrip(t *testing.T) {
	store := newTestStore(t)
	seed(t, store)

	rec, err := store.Allotment(context.Background(), "allot-1")
	require.NoError(t, err)
	assert.Equal(t, "Aluminium sheets", rec.Name)
	assert.True(t, rec.Budget.RequiredQuantity.Equal(dec("100")))
	assert.True(t, rec.Budget.BalancedValueWithBuffer().Equal(dec("220")))
}

func TestStore_UnknownAllotment(t *testing.T) {
	store := newTestStore(t)

	_, err := store.Allotment(context.Background(), "nope")
	assert.ErrorIs(t, err, allocation.ErrAllotmentNotFound)
}

func TestStore_UnknownItem(t *testing.T) {
	store := newTestStore(t)

	_, err := store.LicenseItem(context.Background(), "nope")
	assert.ErrorIs(t, err, allocation.ErrItemNotFound)
}

// =============================================================================
// CONFIRMATION TRANSACTION
// =============================================================================

func TestStore_AppendAllocationUpdatesEverything(t *testing.T) {
	store := newTestStore(t)
	seed(t, store)
	ctx := context.Background()

	budget, err := store.AppendAllocation(ctx, alloc("sr-1", "LIC-1", "30", "60.00"))
	require.NoError(t, err)

	// Budget counters moved.
	assert.True(t, budget.AllottedQuantity.Equal(dec("30")))
	assert.True(t, budget.AllottedValue.Equal(dec("60")))

	// Allocated item lost quantity; both LIC-1 items lost pooled value.
	sr1, err := store.LicenseItem(ctx, "sr-1")
	require.NoError(t, err)
	sr2, err := store.LicenseItem(ctx, "sr-2")
	require.NoError(t, err)
	sr3, err := store.LicenseItem(ctx, "sr-3")
	require.NoError(t, err)

	assert.True(t, sr1.Quantity.Equal(dec("30")))
	assert.True(t, sr1.Consumed)
	assert.True(t, sr1.PooledValue.Equal(dec("120")))
	assert.True(t, sr2.Quantity.Equal(dec("80")), "sibling quantity untouched")
	assert.True(t, sr2.PooledValue.Equal(dec("120")), "sibling pooled value drained")
	assert.True(t, sr3.PooledValue.Equal(dec("90")), "other license untouched")
}

func TestStore_CountersMatchAllocationLog(t *testing.T) {
	// After N appends the allotted counters equal the log sums.
	store := newTestStore(t)
	seed(t, store)
	ctx := context.Background()

	appends := []allocation.Allocation{
		alloc("sr-1", "LIC-1", "10", "20.00"),
		alloc("sr-2", "LIC-1", "25", "50.00"),
		alloc("sr-3", "LIC-2", "5", "15.00"),
	}
	var budget allocation.AllotmentBudget
	var err error
	for _, a := range appends {
		budget, err = store.AppendAllocation(ctx, a)
		require.NoError(t, err)
	}

	log, err := store.Allocations(ctx, "allot-1")
	require.NoError(t, err)
	require.Len(t, log, 3)

	sumQty, sumVal := decimal.Zero, decimal.Zero
	for _, a := range log {
		sumQty = sumQty.Add(a.Quantity)
		sumVal = sumVal.Add(a.Value)
	}
	assert.True(t, budget.AllottedQuantity.Equal(sumQty))
	assert.True(t, budget.AllottedValue.Equal(sumVal))
}

func TestStore_PooledValueFloorsAtZero(t *testing.T) {
	store := newTestStore(t)
	seed(t, store)
	ctx := context.Background()

	_, err := store.AppendAllocation(ctx, alloc("sr-1", "LIC-1", "1", "500.00"))
	require.NoError(t, err)

	sr2, err := store.LicenseItem(ctx, "sr-2")
	require.NoError(t, err)
	assert.True(t, sr2.PooledValue.IsZero())
	assert.False(t, sr2.PooledValue.IsNegative())
}

func TestStore_ExhaustedItemLeavesActiveList(t *testing.T) {
	store := newTestStore(t)
	seed(t, store)
	ctx := context.Background()

	_, err := store.AppendAllocation(ctx, alloc("sr-3", "LIC-2", "30", "90.00"))
	require.NoError(t, err)

	items, err := store.LicenseItems(ctx, "allot-1")
	require.NoError(t, err)
	require.Len(t, items, 2)
	for _, it := range items {
		assert.NotEqual(t, "sr-3", it.ID)
	}
}

// =============================================================================
// SERVICE OVER SQLITE - end to end confirmation
// =============================================================================

func TestService_ConfirmOverSQLite(t *testing.T) {
	store := newTestStore(t)
	seed(t, store)
	svc := &allocation.Service{Store: store}

	res, err := svc.Confirm(context.Background(), "allot-1", "sr-1", dec("40"), dec("80.00"))
	require.NoError(t, err)

	assert.True(t, res.Budget.AllottedQuantity.Equal(dec("40")))
	assert.False(t, res.Completed)

	// The pooled ceiling shrank; a follow-up preview respects it.
	item, err := store.LicenseItem(context.Background(), "sr-2")
	require.NoError(t, err)
	budget, err := store.AllotmentBudget(context.Background(), "allot-1")
	require.NoError(t, err)

	calc := allocation.Calculator{Budget: budget, Item: item}
	p, err := calc.UseMaximum()
	require.NoError(t, err)
	// Remaining required 60 units; pooled 100.00 allows floor(100/2)=50.
	assert.True(t, p.Quantity.Equal(dec("50")), "quantity = %s", p.Quantity)
	assert.True(t, p.Value.Equal(dec("100.00")))
}
