/*
Package tradeline implements trade-line amount derivation.

PURPOSE:
  Second call site of the derive engine. A trade line bills an amount
  derived from a base figure and a rate or percentage, under one of
  three billing modes:

    QTY:     amount from quantity x rate-per-unit
    CIF_INR: amount from local CIF value x percentage, with the local
             value itself derived from foreign value x exchange rate
    FOB_INR: amount from local FOB value x percentage

  Editing the amount directly reverses the derivation: the rate (QTY)
  or percentage (CIF/FOB) is back-derived. Unlike allocation, no
  ceilings apply - these are user-entered financial figures, so the
  ledger is unbounded.

KEY DIFFERENCES FROM ALLOCATION:
  1. No capacity ceilings, no pooled balances
  2. Fractional quantities allowed (3-decimal rounding)
  3. Amount totals round to whole units, money to 2 decimals,
     rates/percentages to 3 decimals

SEE ALSO:
  - catalog.go: The three billing mode tables
  - incentive.go: Degenerate one-axis incentive-line mode
  - allocation: Comparison with the ceiling-bound call site
*/
package tradeline

import (
	"github.com/eximtrack/allocation-engine/derive"
)

// =============================================================================
// BILLING MODES
// =============================================================================

// BillingMode selects which base figure the amount formula uses.
type BillingMode string

const (
	BillingQTY    BillingMode = "QTY"
	BillingCIFINR BillingMode = "CIF_INR"
	BillingFOBINR BillingMode = "FOB_INR"
)

// Fields specific to the trade-line domain. Shared fields (quantity,
// rate_per_unit, percentage, amount) come from the derive package.
const (
	FieldCIFForeign   derive.Field = "cif_foreign"
	FieldExchangeRate derive.Field = "exchange_rate"
	FieldCIFLocal     derive.Field = "cif_local"
	FieldFOBLocal     derive.Field = "fob_local"
)

// =============================================================================
// LINE
// =============================================================================

// Line is one trade line under edit: a billing mode plus its field set.
type Line struct {
	Mode   BillingMode
	Fields derive.FieldSet
}

// NewLine returns an empty line in the given mode.
func NewLine(mode BillingMode) Line {
	return Line{Mode: mode, Fields: derive.NewFieldSet()}
}

// Edit applies one field edit and returns the updated line. The
// receiver is not mutated.
func (l Line) Edit(field derive.Field, raw derive.RawValue) (Line, error) {
	fs, err := Derive(l.Mode, field, raw, l.Fields)
	if err != nil {
		return Line{}, err
	}
	return Line{Mode: l.Mode, Fields: fs}, nil
}
