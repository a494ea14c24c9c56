/*
Package sqlite provides the SQLite-backed authoritative store.

PURPOSE:
  Implements the persistence the confirmation service treats as the
  source of truth: allotment budgets, license items, and the
  append-only allocation log. In production the same patterns apply to
  PostgreSQL - only minor SQL dialect differences.

APPEND-ONLY ENFORCEMENT:
  Allocations are never updated or deleted. The allotted counters on
  the allotment row and the item/pool decrements are derived state,
  updated in the same transaction that appends the allocation - the log
  and the counters cannot drift apart.

KEY TABLES:
  allotments:    Budget per allotment (required + allotted counters)
  license_items: SR lines with quantity, unit price, pooled value
  allocations:   Immutable log of confirmed allocations

NUMERICS:
  All quantities and values are stored as decimal strings (TEXT) and
  re-parsed with shopspring/decimal; arithmetic happens in Go, never in
  SQL, so the database can't introduce float drift.

CONCURRENCY:
  Uses sync.Mutex around the confirmation transaction. SQLite is
  opened with WAL for concurrent readers; the single-writer rule is
  enforced at this layer.

USAGE:
  store, err := sqlite.New(":memory:")
  if err != nil { log.Fatal(err) }
  defer store.Close()

  svc := &allocation.Service{Store: store}

SEE ALSO:
  - allocation/service.go: The Store contract this satisfies
*/
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"

	"github.com/eximtrack/allocation-engine/allocation"
)

// Store implements allocation.Store using SQLite.
type Store struct {
	db *sql.DB
	mu sync.Mutex
}

// Compile-time check against the service contract.
var _ allocation.Store = (*Store)(nil)

// New creates a new SQLite store with the given database path.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// A second connection to ":memory:" would see an empty database,
	// and file writes go through a mutex anyway.
	db.SetMaxOpenConns(1)

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	schema := `
	-- Allotments (budget head; allotted counters updated only by
	-- confirmed allocations)
	CREATE TABLE IF NOT EXISTS allotments (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		item TEXT NOT NULL,
		required_quantity TEXT NOT NULL,
		required_value TEXT NOT NULL,
		buffer_amount TEXT NOT NULL,
		allotted_quantity TEXT NOT NULL,
		allotted_value TEXT NOT NULL,
		created_at TEXT NOT NULL
	);

	-- License items (SR lines)
	CREATE TABLE IF NOT EXISTS license_items (
		id TEXT PRIMARY KEY,
		allotment_id TEXT NOT NULL REFERENCES allotments(id),
		license_key TEXT NOT NULL,
		description TEXT,
		quantity TEXT NOT NULL,
		unit_price TEXT NOT NULL,
		pooled_value TEXT NOT NULL,
		consumed INTEGER NOT NULL DEFAULT 0,
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_license_items_allotment
		ON license_items(allotment_id);
	-- Pooled drain touches every sibling of a license
	CREATE INDEX IF NOT EXISTS idx_license_items_license
		ON license_items(license_key);

	-- Allocations (append-only; no UPDATE, no DELETE)
	CREATE TABLE IF NOT EXISTS allocations (
		id TEXT PRIMARY KEY,
		allotment_id TEXT NOT NULL REFERENCES allotments(id),
		item_id TEXT NOT NULL REFERENCES license_items(id),
		license_key TEXT NOT NULL,
		quantity TEXT NOT NULL,
		value TEXT NOT NULL,
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_allocations_allotment
		ON allocations(allotment_id);
	CREATE INDEX IF NOT EXISTS idx_allocations_item
		ON allocations(item_id);
	`

	_, err := s.db.Exec(schema)
	return err
}

// Reset clears all data. Demo/dev only.
func (s *Store) Reset(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, `
		DELETE FROM allocations;
		DELETE FROM license_items;
		DELETE FROM allotments;
	`)
	return err
}

// =============================================================================
// RECORD TYPES
// =============================================================================

// AllotmentRecord is one allotment row.
type AllotmentRecord struct {
	ID        string
	Name      string
	Item      string
	Budget    allocation.AllotmentBudget
	CreatedAt time.Time
}

// LicenseItemRecord is one license item row with its owning allotment.
type LicenseItemRecord struct {
	AllotmentID string
	allocation.LicenseItem
}

// =============================================================================
// ALLOTMENTS
// =============================================================================

// SaveAllotment inserts or replaces an allotment row.
func (s *Store) SaveAllotment(ctx context.Context, rec AllotmentRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO allotments
		(id, name, item, required_quantity, required_value, buffer_amount,
		 allotted_quantity, allotted_value, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.ID,
		rec.Name,
		rec.Item,
		rec.Budget.RequiredQuantity.String(),
		rec.Budget.RequiredValue.String(),
		rec.Budget.BufferAmount.String(),
		rec.Budget.AllottedQuantity.String(),
		rec.Budget.AllottedValue.String(),
		time.Now().UTC().Format(time.RFC3339),
	)
	return err
}

// Allotment returns one allotment row.
func (s *Store) Allotment(ctx context.Context, id string) (AllotmentRecord, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, name, item, required_quantity, required_value, buffer_amount,
		       allotted_quantity, allotted_value, created_at
		FROM allotments WHERE id = ?`, id)
	return scanAllotment(row)
}

// ListAllotments returns all allotments, oldest first.
func (s *Store) ListAllotments(ctx context.Context) ([]AllotmentRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, item, required_quantity, required_value, buffer_amount,
		       allotted_quantity, allotted_value, created_at
		FROM allotments ORDER BY created_at, id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []AllotmentRecord
	for rows.Next() {
		rec, err := scanAllotment(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// AllotmentBudget satisfies allocation.Store.
func (s *Store) AllotmentBudget(ctx context.Context, allotmentID string) (allocation.AllotmentBudget, error) {
	rec, err := s.Allotment(ctx, allotmentID)
	if err != nil {
		return allocation.AllotmentBudget{}, err
	}
	return rec.Budget, nil
}

// =============================================================================
// LICENSE ITEMS
// =============================================================================

// SaveLicenseItem inserts or replaces a license item row.
func (s *Store) SaveLicenseItem(ctx context.Context, rec LicenseItemRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO license_items
		(id, allotment_id, license_key, description, quantity, unit_price,
		 pooled_value, consumed, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.LicenseItem.ID,
		rec.AllotmentID,
		rec.LicenseKey,
		rec.Description,
		rec.Quantity.String(),
		rec.UnitPrice.String(),
		rec.PooledValue.String(),
		boolToInt(rec.Consumed),
		time.Now().UTC().Format(time.RFC3339),
	)
	return err
}

// LicenseItem satisfies allocation.Store.
func (s *Store) LicenseItem(ctx context.Context, itemID string) (allocation.LicenseItem, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, license_key, description, quantity, unit_price, pooled_value, consumed
		FROM license_items WHERE id = ?`, itemID)
	item, err := scanItem(row)
	if err == sql.ErrNoRows {
		return allocation.LicenseItem{}, allocation.ErrItemNotFound
	}
	return item, err
}

// LicenseItems returns the ACTIVE items of an allotment (exhausted rows
// are kept for history but filtered here), load order preserved.
func (s *Store) LicenseItems(ctx context.Context, allotmentID string) ([]allocation.LicenseItem, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, license_key, description, quantity, unit_price, pooled_value, consumed
		FROM license_items
		WHERE allotment_id = ? AND CAST(quantity AS REAL) > 0
		ORDER BY created_at, id`, allotmentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []allocation.LicenseItem
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, item)
	}
	return out, rows.Err()
}

// =============================================================================
// ALLOCATIONS (append-only)
// =============================================================================

// AppendAllocation atomically records a confirmed allocation: inserts
// the log row, bumps the allotment's allotted counters, decrements the
// item's quantity, and drains the pooled value of every item sharing
// the license key. Returns the updated budget.
func (s *Store) AppendAllocation(ctx context.Context, alloc allocation.Allocation) (allocation.AllotmentBudget, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return allocation.AllotmentBudget{}, err
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO allocations (id, allotment_id, item_id, license_key, quantity, value, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		alloc.ID,
		alloc.AllotmentID,
		alloc.ItemID,
		alloc.LicenseKey,
		alloc.Quantity.String(),
		alloc.Value.String(),
		alloc.CreatedAt.UTC().Format(time.RFC3339),
	)
	if err != nil {
		return allocation.AllotmentBudget{}, fmt.Errorf("insert allocation: %w", err)
	}

	// Budget counters: arithmetic in Go, write back as strings.
	row := tx.QueryRowContext(ctx, `
		SELECT id, name, item, required_quantity, required_value, buffer_amount,
		       allotted_quantity, allotted_value, created_at
		FROM allotments WHERE id = ?`, alloc.AllotmentID)
	rec, err := scanAllotment(row)
	if err != nil {
		return allocation.AllotmentBudget{}, err
	}
	rec.Budget.AllottedQuantity = rec.Budget.AllottedQuantity.Add(alloc.Quantity)
	rec.Budget.AllottedValue = rec.Budget.AllottedValue.Add(alloc.Value)
	_, err = tx.ExecContext(ctx, `
		UPDATE allotments SET allotted_quantity = ?, allotted_value = ? WHERE id = ?`,
		rec.Budget.AllottedQuantity.String(),
		rec.Budget.AllottedValue.String(),
		alloc.AllotmentID,
	)
	if err != nil {
		return allocation.AllotmentBudget{}, fmt.Errorf("update allotment counters: %w", err)
	}

	// Item quantity.
	itemRow := tx.QueryRowContext(ctx, `
		SELECT id, license_key, description, quantity, unit_price, pooled_value, consumed
		FROM license_items WHERE id = ?`, alloc.ItemID)
	item, err := scanItem(itemRow)
	if err != nil {
		return allocation.AllotmentBudget{}, err
	}
	_, err = tx.ExecContext(ctx, `
		UPDATE license_items SET quantity = ?, consumed = 1 WHERE id = ?`,
		item.Quantity.Sub(alloc.Quantity).String(),
		alloc.ItemID,
	)
	if err != nil {
		return allocation.AllotmentBudget{}, fmt.Errorf("update item quantity: %w", err)
	}

	// Pooled drain: every item of the license, not just the allocated one.
	siblings, err := tx.QueryContext(ctx, `
		SELECT id, pooled_value FROM license_items WHERE license_key = ?`,
		alloc.LicenseKey)
	if err != nil {
		return allocation.AllotmentBudget{}, err
	}
	type drain struct {
		id     string
		pooled string
	}
	var drains []drain
	for siblings.Next() {
		var id, pooledStr string
		if err := siblings.Scan(&id, &pooledStr); err != nil {
			siblings.Close()
			return allocation.AllotmentBudget{}, err
		}
		pooled, err := decimal.NewFromString(pooledStr)
		if err != nil {
			siblings.Close()
			return allocation.AllotmentBudget{}, fmt.Errorf("corrupt pooled_value on %s: %w", id, err)
		}
		pooled = pooled.Sub(alloc.Value)
		if pooled.IsNegative() {
			pooled = decimal.Zero
		}
		drains = append(drains, drain{id: id, pooled: pooled.String()})
	}
	if err := siblings.Err(); err != nil {
		siblings.Close()
		return allocation.AllotmentBudget{}, err
	}
	siblings.Close()

	for _, d := range drains {
		if _, err := tx.ExecContext(ctx,
			`UPDATE license_items SET pooled_value = ? WHERE id = ?`, d.pooled, d.id); err != nil {
			return allocation.AllotmentBudget{}, fmt.Errorf("drain pooled value: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return allocation.AllotmentBudget{}, err
	}
	return rec.Budget, nil
}

// Allocations returns the allocation log for an allotment, oldest first.
func (s *Store) Allocations(ctx context.Context, allotmentID string) ([]allocation.Allocation, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, allotment_id, item_id, license_key, quantity, value, created_at
		FROM allocations WHERE allotment_id = ? ORDER BY created_at, id`, allotmentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []allocation.Allocation
	for rows.Next() {
		var a allocation.Allocation
		var qty, value, createdAt string
		if err := rows.Scan(&a.ID, &a.AllotmentID, &a.ItemID, &a.LicenseKey, &qty, &value, &createdAt); err != nil {
			return nil, err
		}
		if a.Quantity, err = decimal.NewFromString(qty); err != nil {
			return nil, err
		}
		if a.Value, err = decimal.NewFromString(value); err != nil {
			return nil, err
		}
		if a.CreatedAt, err = time.Parse(time.RFC3339, createdAt); err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// =============================================================================
// SCAN HELPERS
// =============================================================================

type scanner interface {
	Scan(dest ...any) error
}

func scanAllotment(row scanner) (AllotmentRecord, error) {
	var rec AllotmentRecord
	var reqQty, reqVal, buffer, allotQty, allotVal, createdAt string
	err := row.Scan(&rec.ID, &rec.Name, &rec.Item, &reqQty, &reqVal, &buffer, &allotQty, &allotVal, &createdAt)
	if err == sql.ErrNoRows {
		return AllotmentRecord{}, allocation.ErrAllotmentNotFound
	}
	if err != nil {
		return AllotmentRecord{}, err
	}

	if rec.Budget.RequiredQuantity, err = decimal.NewFromString(reqQty); err != nil {
		return AllotmentRecord{}, err
	}
	if rec.Budget.RequiredValue, err = decimal.NewFromString(reqVal); err != nil {
		return AllotmentRecord{}, err
	}
	if rec.Budget.BufferAmount, err = decimal.NewFromString(buffer); err != nil {
		return AllotmentRecord{}, err
	}
	if rec.Budget.AllottedQuantity, err = decimal.NewFromString(allotQty); err != nil {
		return AllotmentRecord{}, err
	}
	if rec.Budget.AllottedValue, err = decimal.NewFromString(allotVal); err != nil {
		return AllotmentRecord{}, err
	}
	if rec.CreatedAt, err = time.Parse(time.RFC3339, createdAt); err != nil {
		return AllotmentRecord{}, err
	}
	return rec, nil
}

func scanItem(row scanner) (allocation.LicenseItem, error) {
	var item allocation.LicenseItem
	var qty, price, pooled string
	var consumed int
	err := row.Scan(&item.ID, &item.LicenseKey, &item.Description, &qty, &price, &pooled, &consumed)
	if err != nil {
		return allocation.LicenseItem{}, err
	}

	if item.Quantity, err = decimal.NewFromString(qty); err != nil {
		return allocation.LicenseItem{}, err
	}
	if item.UnitPrice, err = decimal.NewFromString(price); err != nil {
		return allocation.LicenseItem{}, err
	}
	if item.PooledValue, err = decimal.NewFromString(pooled); err != nil {
		return allocation.LicenseItem{}, err
	}
	item.Consumed = consumed != 0
	return item, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
