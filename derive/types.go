/*
Package derive provides the core constrained derivation engine.

PURPOSE:
  This package contains domain-agnostic types and algorithms for
  bidirectional numeric derivation under capacity ceilings. Whether
  allocating license quantity against an allotment budget or deriving a
  trade-line amount from a billing percentage, the same engine handles
  field editing, ceiling clamping, and re-derivation of dependent fields.

KEY CONCEPTS IN THIS FILE (types.go):
  - Field: A named numeric slot in a derivation (e.g., "quantity", "amount")
  - FieldSet: The mutable tuple of values being edited together
  - RawValue: User-typed input, coerced (never rejected) into a decimal
  - UnitPrice: A fixed positive rate supplied externally

DESIGN PRINCIPLES:
  1. Purity: Every derivation is a function of explicit arguments
  2. Precision: Uses decimal.Decimal to avoid floating-point errors
  3. Tolerance: Invalid input coerces to zero, division by zero leaves
     the dependent field unset - the engine never panics or errors on
     user input
  4. Declarativity: Modes describe fields, formulas, rounding, and
     ceilings as data, not as per-screen branching

USAGE:
  fields := derive.FieldSet{derive.FieldQuantity: decimal.NewFromInt(10)}
  out, err := derive.Reduce(mode, derive.FieldQuantity,
      derive.Raw("40"), fields, ledger, unitPrice)

SEE ALSO:
  - ledger.go: CapacityLedger ceiling snapshot
  - mode.go: Mode tables (fields, rules, rounding)
  - reducer.go: The edit-to-consistent-FieldSet reducer
*/
package derive

import (
	"strings"

	"github.com/shopspring/decimal"
)

// =============================================================================
// FIELD - Named numeric slot
// =============================================================================

// Field identifies one numeric slot in a derivation mode.
// Domain packages define their own constants; the core only ships the
// names shared by every mode.
type Field string

// Fields common across modes.
const (
	FieldQuantity   Field = "quantity"
	FieldValue      Field = "value"
	FieldAmount     Field = "amount"
	FieldRate       Field = "rate_per_unit"
	FieldPercentage Field = "percentage"
)

// =============================================================================
// FIELD SET - The mutable tuple being edited
// =============================================================================

// FieldSet holds the current value of every set field in a derivation.
// An absent key means "unset" - the engine never stores NaN or infinity.
type FieldSet map[Field]decimal.Decimal

// NewFieldSet returns an empty field set.
func NewFieldSet() FieldSet {
	return make(FieldSet)
}

// Get returns the field value and whether it is set.
func (fs FieldSet) Get(f Field) (decimal.Decimal, bool) {
	v, ok := fs[f]
	return v, ok
}

// Value returns the field value, or zero if unset.
func (fs FieldSet) Value(f Field) decimal.Decimal {
	return fs[f]
}

// Has reports whether the field is set.
func (fs FieldSet) Has(f Field) bool {
	_, ok := fs[f]
	return ok
}

// Set assigns a field value and returns the set for chaining.
func (fs FieldSet) Set(f Field, v decimal.Decimal) FieldSet {
	fs[f] = v
	return fs
}

// Unset removes a field. Used when a derivation's operand is missing
// (e.g. division by zero) and the dependent field must not keep a stale
// value.
func (fs FieldSet) Unset(f Field) FieldSet {
	delete(fs, f)
	return fs
}

// Clone returns an independent copy. Reducers always work on a clone so
// the caller's snapshot is never mutated.
func (fs FieldSet) Clone() FieldSet {
	out := make(FieldSet, len(fs))
	for k, v := range fs {
		out[k] = v
	}
	return out
}

// =============================================================================
// RAW VALUE - User-typed input
// =============================================================================

// RawValue is the raw content of an edit event. Live-editing input is
// text and frequently malformed mid-keystroke; RawValue coerces instead
// of validating.
type RawValue struct {
	text    string
	num     decimal.Decimal
	numeric bool
}

// Raw wraps user-typed text.
func Raw(s string) RawValue {
	return RawValue{text: s}
}

// RawDecimal wraps an already-parsed number.
func RawDecimal(d decimal.Decimal) RawValue {
	return RawValue{num: d, numeric: true}
}

// Decimal returns the coerced value: non-numeric input and negative
// numbers both become zero. This is the InvalidInput policy - the engine
// never raises on bad input.
func (r RawValue) Decimal() decimal.Decimal {
	v := r.num
	if !r.numeric {
		parsed, err := decimal.NewFromString(strings.TrimSpace(r.text))
		if err != nil {
			return decimal.Zero
		}
		v = parsed
	}
	if v.IsNegative() {
		return decimal.Zero
	}
	return v
}

// =============================================================================
// UNIT PRICE - Fixed external rate
// =============================================================================

// UnitPrice is a fixed value-per-unit rate, constant for the lifetime of
// one derivation context. A zero or negative unit price disables every
// quantity<->value division path.
type UnitPrice struct {
	Rate decimal.Decimal
}

// NewUnitPrice wraps a rate. Invalid (non-positive) rates are kept as-is
// and reported by Valid(); derivations guard on it.
func NewUnitPrice(rate decimal.Decimal) UnitPrice {
	return UnitPrice{Rate: rate}
}

// Valid reports whether the rate can be divided by.
func (p UnitPrice) Valid() bool {
	return p.Rate.IsPositive()
}
