/*
reducer.go - Field-edit reducer

PURPOSE:
  The single entry point the UI layer (or HTTP surface) calls on every
  edit event. Resolves the rule for the edited field, runs it against a
  clone of the current field set, and applies each returned field's
  display rounding.

CONTRACT:
  - Stateless: current fields and ledger are explicit arguments
  - Total over user input: junk and negatives coerce to zero
  - Errors only for dispatch failures (unknown field for the mode)
  - The caller serializes concurrent edits; each call is one complete
    state transition and last call wins

SEE ALSO:
  - mode.go: The tables this reducer dispatches on
*/
package derive

// Reduce applies one field edit and returns the new consistent field
// set. The input set is never mutated.
func Reduce(mode Mode, edited Field, raw RawValue, current FieldSet, ledger CapacityLedger, price UnitPrice) (FieldSet, error) {
	rule, ok := mode.RuleFor(edited)
	if !ok {
		return nil, &UnknownFieldError{Mode: mode.Name, Field: edited}
	}

	out := rule(Input{
		Edited: edited,
		Value:  raw.Decimal(),
		Fields: current.Clone(),
		Ledger: ledger,
		Price:  price,
	})

	for f, v := range out {
		out[f] = mode.RoundField(f, v)
	}
	return out, nil
}
