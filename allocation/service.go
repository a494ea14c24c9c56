/*
service.go - Authoritative allocation confirmation

PURPOSE:
  Validates and persists a confirmed allocation against the
  authoritative store, then evaluates the completion transition. The
  client-side Pool is only a preview mirror; the budget returned by the
  store after the append is the truth.

VALIDATION:
  The submitted (quantity, value) pair is re-derived through the same
  calculator the form used. A pair the ceilings would have clamped is
  rejected - the server never trusts a client preview.

COMPLETION SIGNAL:
  Fires when, after the authoritative update, the remaining required
  quantity is EXACTLY zero (and the requirement was positive). An
  overshooting confirmation - e.g. from two racing clients - does not
  fire it; the strict equality is the contract.
*/
package allocation

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/eximtrack/allocation-engine/derive"
)

// =============================================================================
// ERRORS
// =============================================================================

var (
	// ErrAllotmentNotFound is returned when the allotment ID is unknown.
	ErrAllotmentNotFound = errors.New("allotment not found")

	// ErrCeilingExceeded is returned when the submitted quantity exceeds
	// what the ceilings allow.
	ErrCeilingExceeded = errors.New("allocation exceeds capacity ceiling")

	// ErrValueMismatch is returned when the submitted value disagrees
	// with quantity * unit price.
	ErrValueMismatch = errors.New("allocation value inconsistent with quantity")

	// ErrNothingToAllocate is returned for a zero-quantity confirmation.
	ErrNothingToAllocate = errors.New("allocation quantity is zero")
)

// CeilingExceededError carries the clamped maximum alongside the
// rejected request.
type CeilingExceededError struct {
	Requested decimal.Decimal
	Allowed   decimal.Decimal
}

func (e *CeilingExceededError) Error() string {
	return fmt.Sprintf("requested quantity %s exceeds allowed %s", e.Requested, e.Allowed)
}

func (e *CeilingExceededError) Unwrap() error { return ErrCeilingExceeded }

// =============================================================================
// RECORDS AND STORE CONTRACT
// =============================================================================

// Allocation is one confirmed, immutable allocation record.
type Allocation struct {
	ID          string
	AllotmentID string
	ItemID      string
	LicenseKey  string
	Quantity    decimal.Decimal
	Value       decimal.Decimal
	CreatedAt   time.Time
}

// Store is the authoritative persistence the service confirms against.
// AppendAllocation must atomically: insert the allocation, add its
// quantity/value to the allotment's allotted totals, decrement the
// item's quantity, and drain the pooled value of every item sharing the
// license key. It returns the updated budget.
type Store interface {
	AllotmentBudget(ctx context.Context, allotmentID string) (AllotmentBudget, error)
	LicenseItem(ctx context.Context, itemID string) (LicenseItem, error)
	AppendAllocation(ctx context.Context, alloc Allocation) (AllotmentBudget, error)
}

// =============================================================================
// SERVICE
// =============================================================================

// ConfirmResult is the authoritative outcome of one confirmation.
type ConfirmResult struct {
	Allocation Allocation
	Budget     AllotmentBudget
	Completed  bool
}

// Service confirms allocations against a Store.
type Service struct {
	Store Store

	// OnComplete, when set, is invoked with the allotment ID each time
	// a confirmation lands the budget on exactly zero remaining
	// quantity. Used by the UI to advance the workflow.
	OnComplete func(allotmentID string)
}

// Confirm validates and persists one allocation.
func (s *Service) Confirm(ctx context.Context, allotmentID, itemID string, qty, value decimal.Decimal) (ConfirmResult, error) {
	if !qty.IsPositive() {
		return ConfirmResult{}, ErrNothingToAllocate
	}

	budget, err := s.Store.AllotmentBudget(ctx, allotmentID)
	if err != nil {
		return ConfirmResult{}, fmt.Errorf("load allotment %s: %w", allotmentID, err)
	}
	item, err := s.Store.LicenseItem(ctx, itemID)
	if err != nil {
		return ConfirmResult{}, fmt.Errorf("load license item %s: %w", itemID, err)
	}

	// Re-derive through the same ceilings the form used. A request the
	// ceilings would clamp is an over-allocation.
	calc := Calculator{Budget: budget, Item: item}
	preview, err := calc.EditQuantity(derive.RawDecimal(qty))
	if err != nil {
		return ConfirmResult{}, err
	}
	if !preview.Quantity.Equal(qty) {
		return ConfirmResult{}, &CeilingExceededError{Requested: qty, Allowed: preview.Quantity}
	}
	if !preview.ValueSet || !preview.Value.Equal(value.Round(2)) {
		return ConfirmResult{}, ErrValueMismatch
	}

	alloc := Allocation{
		ID:          uuid.NewString(),
		AllotmentID: allotmentID,
		ItemID:      item.ID,
		LicenseKey:  item.LicenseKey,
		Quantity:    qty,
		Value:       preview.Value,
		CreatedAt:   time.Now().UTC(),
	}

	updated, err := s.Store.AppendAllocation(ctx, alloc)
	if err != nil {
		return ConfirmResult{}, fmt.Errorf("append allocation: %w", err)
	}

	completed := updated.Completed()
	if completed && s.OnComplete != nil {
		s.OnComplete(allotmentID)
	}

	return ConfirmResult{Allocation: alloc, Budget: updated, Completed: completed}, nil
}
