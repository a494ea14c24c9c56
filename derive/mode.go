/*
mode.go - Declarative derivation mode tables

PURPOSE:
  A Mode describes one derivation context as data: which fields exist,
  which rounding policy each carries, and which rule runs when a given
  field is edited. Domain packages (allocation, tradeline) register
  their catalogs as Mode values; the reducer dispatches on them.

  This replaces scattered `if field == ...` chains with a strategy
  table: forward formulas, reverse formulas, and ceiling bindings all
  live in the rule attached to the edited field.

RULE CONTRACT:
  A Rule receives the coerced edit value, the current field set, the
  ceiling ledger and the unit price, and returns the full consistent
  field set. Rules work on a clone of the input set; they never see or
  mutate caller state. Rules express rounding at the exact points the
  formulas require (e.g. flooring a quantity derived from a value
  ceiling); the reducer applies each field's final display rounding
  afterwards.

SEE ALSO:
  - reducer.go: Dispatch, coercion, and final rounding
*/
package derive

import "github.com/shopspring/decimal"

// =============================================================================
// MODE TABLE
// =============================================================================

// Input carries everything a rule may consult. All state is explicit;
// there are no hidden globals.
type Input struct {
	// Edited is the field the user changed.
	Edited Field

	// Value is the coerced new value of the edited field.
	Value decimal.Decimal

	// Fields is a private clone of the current field set. Rules may
	// mutate and return it.
	Fields FieldSet

	// Ledger is the ceiling snapshot active for this edit.
	Ledger CapacityLedger

	// Price is the fixed unit price, when the mode uses one.
	Price UnitPrice
}

// Rule recomputes the field set after one edit.
type Rule func(in Input) FieldSet

// Mode is the declarative table for one derivation context.
type Mode struct {
	// Name identifies the mode (e.g. "allocation", "billing/CIF_INR").
	Name string

	// Rounding maps each field to its display rounding, applied by the
	// reducer to every field a rule returns.
	Rounding map[Field]Rounding

	// Rules maps an edited field to the rule that re-derives the rest.
	Rules map[Field]Rule
}

// RuleFor returns the rule for the edited field.
func (m Mode) RuleFor(f Field) (Rule, bool) {
	r, ok := m.Rules[f]
	return r, ok
}

// RoundField applies the field's display rounding.
func (m Mode) RoundField(f Field, v decimal.Decimal) decimal.Decimal {
	return m.Rounding[f].Apply(v)
}
