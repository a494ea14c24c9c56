package allocation_test

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eximtrack/allocation-engine/allocation"
)

// =============================================================================
// FAKE STORE
// =============================================================================

// fakeStore is an in-memory allocation.Store for service tests.
type fakeStore struct {
	budget   allocation.AllotmentBudget
	item     allocation.LicenseItem
	appended []allocation.Allocation
}

func (f *fakeStore) AllotmentBudget(_ context.Context, _ string) (allocation.AllotmentBudget, error) {
	return f.budget, nil
}

func (f *fakeStore) LicenseItem(_ context.Context, _ string) (allocation.LicenseItem, error) {
	return f.item, nil
}

func (f *fakeStore) AppendAllocation(_ context.Context, alloc allocation.Allocation) (allocation.AllotmentBudget, error) {
	f.appended = append(f.appended, alloc)
	f.budget.AllottedQuantity = f.budget.AllottedQuantity.Add(alloc.Quantity)
	f.budget.AllottedValue = f.budget.AllottedValue.Add(alloc.Value)
	f.item.Quantity = f.item.Quantity.Sub(alloc.Quantity)
	f.item.PooledValue = f.item.PooledValue.Sub(alloc.Value)
	return f.budget, nil
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		budget: allocation.AllotmentBudget{
			RequiredQuantity: dec("100"),
			RequiredValue:    dec("200"),
			BufferAmount:     dec("20"),
		},
		item: allocation.LicenseItem{
			ID: "item-1", LicenseKey: "LIC-1",
			Quantity: dec("100"), UnitPrice: dec("2.00"), PooledValue: dec("500"),
		},
	}
}

// =============================================================================
// CONFIRMATION
// =============================================================================

func TestConfirm_PersistsAndReturnsAuthoritativeBudget(t *testing.T) {
	store := newFakeStore()
	svc := &allocation.Service{Store: store}

	res, err := svc.Confirm(context.Background(), "allot-1", "item-1", dec("30"), dec("60.00"))
	require.NoError(t, err)

	require.Len(t, store.appended, 1)
	assert.NotEmpty(t, store.appended[0].ID, "allocation must carry a generated id")
	assert.Equal(t, "LIC-1", store.appended[0].LicenseKey)
	assert.True(t, res.Budget.AllottedQuantity.Equal(dec("30")))
	assert.True(t, res.Budget.AllottedValue.Equal(dec("60")))
	assert.False(t, res.Completed)
}

func TestConfirm_RejectsCeilingExceeded(t *testing.T) {
	store := newFakeStore()
	svc := &allocation.Service{Store: store}

	// 150 units exceeds both the required 100 and the item's 100.
	_, err := svc.Confirm(context.Background(), "allot-1", "item-1", dec("150"), dec("300.00"))

	assert.ErrorIs(t, err, allocation.ErrCeilingExceeded)
	assert.Empty(t, store.appended, "nothing may be persisted on rejection")
}

func TestConfirm_RejectsValueMismatch(t *testing.T) {
	store := newFakeStore()
	svc := &allocation.Service{Store: store}

	// 30 * 2.00 is 60.00, not 75.00.
	_, err := svc.Confirm(context.Background(), "allot-1", "item-1", dec("30"), dec("75.00"))

	assert.ErrorIs(t, err, allocation.ErrValueMismatch)
}

func TestConfirm_RejectsZeroQuantity(t *testing.T) {
	svc := &allocation.Service{Store: newFakeStore()}

	_, err := svc.Confirm(context.Background(), "allot-1", "item-1", decimal.Zero, decimal.Zero)

	assert.ErrorIs(t, err, allocation.ErrNothingToAllocate)
}

// =============================================================================
// COMPLETION SIGNAL
// =============================================================================

func TestConfirm_CompletionSignalOnExactZero(t *testing.T) {
	// GIVEN: 60 of 100 already allotted
	// WHEN: exactly the remaining 40 are confirmed
	// THEN: the completion signal fires once with the allotment ID
	store := newFakeStore()
	store.budget.AllottedQuantity = dec("60")
	store.budget.AllottedValue = dec("120")

	var completedID string
	svc := &allocation.Service{
		Store:      store,
		OnComplete: func(id string) { completedID = id },
	}

	res, err := svc.Confirm(context.Background(), "allot-1", "item-1", dec("40"), dec("80.00"))
	require.NoError(t, err)

	assert.True(t, res.Completed)
	assert.Equal(t, "allot-1", completedID)
}

func TestConfirm_NoSignalWhileUnderAllotted(t *testing.T) {
	store := newFakeStore()
	fired := false
	svc := &allocation.Service{Store: store, OnComplete: func(string) { fired = true }}

	res, err := svc.Confirm(context.Background(), "allot-1", "item-1", dec("99"), dec("198.00"))
	require.NoError(t, err)

	assert.False(t, res.Completed, "99 of 100 must not complete")
	assert.False(t, fired)
}
