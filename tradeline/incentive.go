/*
incentive.go - Incentive-line mode

PURPOSE:
  The degenerate one-axis case of the billing pattern: an incentive
  amount is a percentage of a license value. Forward derives the amount
  from (licenseValue, ratePct); editing the amount back-derives the
  percentage.
*/
package tradeline

import (
	"github.com/eximtrack/allocation-engine/derive"
)

// Incentive-line fields.
const (
	FieldLicenseValue derive.Field = "license_value"
	FieldRatePct      derive.Field = "rate_pct"
)

// IncentiveMode is the one-axis incentive table.
var IncentiveMode = derive.Mode{
	Name: "incentive",
	Rounding: map[derive.Field]derive.Rounding{
		FieldLicenseValue:  derive.Round2,
		FieldRatePct:       derive.Round3,
		derive.FieldAmount: derive.Round0,
	},
	Rules: map[derive.Field]derive.Rule{
		FieldLicenseValue:  incentiveForward,
		FieldRatePct:       incentiveForward,
		derive.FieldAmount: incentiveReverse,
	},
}

// DeriveIncentive applies one edit to an incentive line.
func DeriveIncentive(edited derive.Field, raw derive.RawValue, current derive.FieldSet) (derive.FieldSet, error) {
	return derive.Reduce(IncentiveMode, edited, raw, current, derive.Unbounded(), derive.UnitPrice{})
}

func incentiveForward(in derive.Input) derive.FieldSet {
	fs := in.Fields.Set(in.Edited, in.Value)
	lv, hasLV := fs.Get(FieldLicenseValue)
	pct, hasPct := fs.Get(FieldRatePct)
	if hasLV && hasPct {
		fs.Set(derive.FieldAmount, lv.Mul(pct).Div(hundred).Round(0))
	} else {
		fs.Unset(derive.FieldAmount)
	}
	return fs
}

func incentiveReverse(in derive.Input) derive.FieldSet {
	fs := in.Fields.Set(derive.FieldAmount, in.Value)
	if ratio, ok := derive.SafeDiv(in.Value, fs.Value(FieldLicenseValue)); ok {
		fs.Set(FieldRatePct, ratio.Mul(hundred).Round(3))
	} else {
		fs.Unset(FieldRatePct)
	}
	return fs
}
