/*
catalog.go - Billing mode tables

PURPOSE:
  Declares the three billing modes as derive.Mode tables. Forward rules
  run when any base field is edited; the reverse rule runs when the
  amount is edited directly and back-derives the rate or percentage.

ROUNDING:
  amount        round to whole units
  money fields  2 decimals (CIF foreign/local, FOB local, exchange rate)
  rates / pct   3 decimals
  quantity      3 decimals (fractional units allowed here)

MISSING OPERANDS:
  A formula with a missing or zero operand unsets its dependent field
  instead of propagating NaN - a half-filled form simply shows no
  amount yet.
*/
package tradeline

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/eximtrack/allocation-engine/derive"
)

var hundred = decimal.NewFromInt(100)

// Derive applies one field edit to a trade line in the given billing
// mode and returns the consistent field set.
func Derive(mode BillingMode, edited derive.Field, raw derive.RawValue, current derive.FieldSet) (derive.FieldSet, error) {
	m, err := ModeFor(mode)
	if err != nil {
		return nil, err
	}
	return derive.Reduce(m, edited, raw, current, derive.Unbounded(), derive.UnitPrice{})
}

// ModeFor resolves a billing mode to its table.
func ModeFor(mode BillingMode) (derive.Mode, error) {
	switch mode {
	case BillingQTY:
		return qtyMode, nil
	case BillingCIFINR:
		return cifMode, nil
	case BillingFOBINR:
		return fobMode, nil
	default:
		return derive.Mode{}, fmt.Errorf("%w: %q", derive.ErrUnknownMode, mode)
	}
}

// =============================================================================
// QTY MODE - amount from quantity x rate-per-unit
// =============================================================================

var qtyMode = derive.Mode{
	Name: "billing/QTY",
	Rounding: map[derive.Field]derive.Rounding{
		derive.FieldQuantity: derive.Round3,
		derive.FieldRate:     derive.Round3,
		derive.FieldAmount:   derive.Round0,
	},
	Rules: map[derive.Field]derive.Rule{
		derive.FieldQuantity: qtyForward,
		derive.FieldRate:     qtyForward,
		derive.FieldAmount:   qtyReverse,
	},
}

func qtyForward(in derive.Input) derive.FieldSet {
	fs := in.Fields.Set(in.Edited, in.Value)
	q, hasQ := fs.Get(derive.FieldQuantity)
	r, hasR := fs.Get(derive.FieldRate)
	if hasQ && hasR {
		fs.Set(derive.FieldAmount, q.Mul(r).Round(0))
	} else {
		fs.Unset(derive.FieldAmount)
	}
	return fs
}

func qtyReverse(in derive.Input) derive.FieldSet {
	fs := in.Fields.Set(derive.FieldAmount, in.Value)
	if rate, ok := derive.SafeDiv(in.Value, fs.Value(derive.FieldQuantity)); ok {
		fs.Set(derive.FieldRate, rate.Round(3))
	} else {
		fs.Unset(derive.FieldRate)
	}
	return fs
}

// =============================================================================
// CIF_INR MODE - amount from local CIF x percentage
// =============================================================================

var cifMode = derive.Mode{
	Name: "billing/CIF_INR",
	Rounding: map[derive.Field]derive.Rounding{
		FieldCIFForeign:        derive.Round2,
		FieldExchangeRate:      derive.Round2,
		FieldCIFLocal:          derive.Round2,
		derive.FieldPercentage: derive.Round3,
		derive.FieldAmount:     derive.Round0,
	},
	Rules: map[derive.Field]derive.Rule{
		FieldCIFForeign:        cifForward,
		FieldExchangeRate:      cifForward,
		FieldCIFLocal:          cifForward,
		derive.FieldPercentage: cifForward,
		derive.FieldAmount:     cifReverse,
	},
}

func cifForward(in derive.Input) derive.FieldSet {
	fs := in.Fields.Set(in.Edited, in.Value)

	foreign, hasForeign := fs.Get(FieldCIFForeign)
	xrate, hasXRate := fs.Get(FieldExchangeRate)

	switch in.Edited {
	case FieldCIFForeign, FieldExchangeRate:
		if hasForeign && hasXRate {
			fs.Set(FieldCIFLocal, foreign.Mul(xrate).Round(2))
		} else if in.Edited == FieldCIFForeign && fs.Has(FieldCIFLocal) {
			// Local value already typed, rate absent: derive the rate.
			if r, ok := derive.SafeDiv(fs.Value(FieldCIFLocal), foreign); ok {
				fs.Set(FieldExchangeRate, r.Round(2))
			}
		}
	case FieldCIFLocal:
		// Local value typed directly: the exchange rate becomes the
		// derived field when a foreign value exists to divide by.
		if r, ok := derive.SafeDiv(in.Value, foreign); hasForeign && ok {
			fs.Set(FieldExchangeRate, r.Round(2))
		}
	}

	local, hasLocal := fs.Get(FieldCIFLocal)
	pct, hasPct := fs.Get(derive.FieldPercentage)
	if hasLocal && hasPct {
		fs.Set(derive.FieldAmount, local.Mul(pct).Div(hundred).Round(0))
	} else {
		fs.Unset(derive.FieldAmount)
	}
	return fs
}

func cifReverse(in derive.Input) derive.FieldSet {
	fs := in.Fields.Set(derive.FieldAmount, in.Value)
	if ratio, ok := derive.SafeDiv(in.Value, fs.Value(FieldCIFLocal)); ok {
		fs.Set(derive.FieldPercentage, ratio.Mul(hundred).Round(3))
	} else {
		fs.Unset(derive.FieldPercentage)
	}
	return fs
}

// =============================================================================
// FOB_INR MODE - amount from local FOB x percentage
// =============================================================================

var fobMode = derive.Mode{
	Name: "billing/FOB_INR",
	Rounding: map[derive.Field]derive.Rounding{
		FieldFOBLocal:          derive.Round2,
		derive.FieldPercentage: derive.Round3,
		derive.FieldAmount:     derive.Round0,
	},
	Rules: map[derive.Field]derive.Rule{
		FieldFOBLocal:          fobForward,
		derive.FieldPercentage: fobForward,
		derive.FieldAmount:     fobReverse,
	},
}

func fobForward(in derive.Input) derive.FieldSet {
	fs := in.Fields.Set(in.Edited, in.Value)
	fob, hasFOB := fs.Get(FieldFOBLocal)
	pct, hasPct := fs.Get(derive.FieldPercentage)
	if hasFOB && hasPct {
		fs.Set(derive.FieldAmount, fob.Mul(pct).Div(hundred).Round(0))
	} else {
		fs.Unset(derive.FieldAmount)
	}
	return fs
}

func fobReverse(in derive.Input) derive.FieldSet {
	fs := in.Fields.Set(derive.FieldAmount, in.Value)
	if ratio, ok := derive.SafeDiv(in.Value, fs.Value(FieldFOBLocal)); ok {
		fs.Set(derive.FieldPercentage, ratio.Mul(hundred).Round(3))
	} else {
		fs.Unset(derive.FieldPercentage)
	}
	return fs
}
