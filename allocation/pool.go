/*
pool.go - Shared pooled-balance arena

PURPOSE:
  A Pool is the client-side cache of license items for one editing
  session. It makes the "global mutable pooled balance" explicit: an
  arena keyed by license key, passed around as a value, invalidated by
  Refresh when the authoritative list is re-fetched.

SEMANTICS:
  On a confirmed allocation of (qty, value) against one item:
  - that item's quantity drops by qty
  - EVERY item sharing the license key loses value from its pooled
    balance (the pool is per-license, not per-item)
  - pooled balances never go below zero
  - an item whose quantity reaches zero or below leaves the active list

  The pool is optimistic: it mirrors what the authoritative store is
  expected to answer. On a failed confirmation the caller discards the
  speculation by calling Refresh with the re-fetched items.
*/
package allocation

import (
	"errors"
	"sync"

	"github.com/shopspring/decimal"
)

// ErrItemNotFound is returned when a confirmation references an item
// that is not in the active list.
var ErrItemNotFound = errors.New("license item not found in pool")

// =============================================================================
// POOL - In-memory license item arena
// =============================================================================

type Pool struct {
	mu    sync.RWMutex
	items map[string]*LicenseItem
	order []string // active item IDs, load order preserved
}

// NewPool builds a pool from an authoritative item list.
func NewPool(items []LicenseItem) *Pool {
	p := &Pool{}
	p.Refresh(items)
	return p
}

// Refresh discards all speculative state and reloads from the
// authoritative list. Items already exhausted are dropped immediately.
func (p *Pool) Refresh(items []LicenseItem) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.items = make(map[string]*LicenseItem, len(items))
	p.order = p.order[:0]
	for i := range items {
		it := items[i]
		if !it.Quantity.IsPositive() {
			continue
		}
		p.items[it.ID] = &it
		p.order = append(p.order, it.ID)
	}
}

// Items returns the active items in load order.
func (p *Pool) Items() []LicenseItem {
	p.mu.RLock()
	defer p.mu.RUnlock()

	out := make([]LicenseItem, 0, len(p.order))
	for _, id := range p.order {
		out = append(out, *p.items[id])
	}
	return out
}

// Item returns one active item by ID.
func (p *Pool) Item(id string) (LicenseItem, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	it, ok := p.items[id]
	if !ok {
		return LicenseItem{}, false
	}
	return *it, true
}

// Confirm applies a confirmed allocation speculatively: decrements the
// item's quantity, drains the pooled balance of every sibling sharing
// the license key, and retires the item if exhausted.
func (p *Pool) Confirm(itemID string, qty, value decimal.Decimal) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	target, ok := p.items[itemID]
	if !ok {
		return ErrItemNotFound
	}

	target.Quantity = target.Quantity.Sub(qty)
	target.Consumed = true

	for _, it := range p.items {
		if it.LicenseKey != target.LicenseKey {
			continue
		}
		it.PooledValue = it.PooledValue.Sub(value)
		if it.PooledValue.IsNegative() {
			it.PooledValue = decimal.Zero
		}
	}

	if !target.Quantity.IsPositive() {
		p.removeLocked(itemID)
	}
	return nil
}

func (p *Pool) removeLocked(id string) {
	delete(p.items, id)
	for i, o := range p.order {
		if o == id {
			p.order = append(p.order[:i], p.order[i+1:]...)
			return
		}
	}
}
