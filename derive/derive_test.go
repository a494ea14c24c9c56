package derive_test

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/eximtrack/allocation-engine/derive"
)

// =============================================================================
// TEST HELPERS
// =============================================================================

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

// doubler is a minimal mode: editing "in" sets "out" to twice the value.
var doubler = derive.Mode{
	Name: "test/doubler",
	Rounding: map[derive.Field]derive.Rounding{
		"in":  derive.RoundNone,
		"out": derive.Round2,
	},
	Rules: map[derive.Field]derive.Rule{
		"in": func(in derive.Input) derive.FieldSet {
			return in.Fields.
				Set("in", in.Value).
				Set("out", in.Value.Mul(dec("2")))
		},
	},
}

// =============================================================================
// RAW VALUE COERCION
// =============================================================================

func TestRawValue_NonNumericCoercesToZero(t *testing.T) {
	// GIVEN: garbage text typed mid-edit
	// THEN: coerced value is zero, never an error
	cases := []string{"", "abc", "12.3.4", "-", "1e", "  "}
	for _, s := range cases {
		if got := derive.Raw(s).Decimal(); !got.IsZero() {
			t.Errorf("Raw(%q) = %v, want 0", s, got)
		}
	}
}

func TestRawValue_NegativeCoercesToZero(t *testing.T) {
	if got := derive.Raw("-5").Decimal(); !got.IsZero() {
		t.Errorf("Raw(-5) = %v, want 0", got)
	}
	if got := derive.RawDecimal(dec("-3.2")).Decimal(); !got.IsZero() {
		t.Errorf("RawDecimal(-3.2) = %v, want 0", got)
	}
}

func TestRawValue_ValidInputPassesThrough(t *testing.T) {
	if got := derive.Raw(" 12.50 ").Decimal(); !got.Equal(dec("12.5")) {
		t.Errorf("Raw(12.50) = %v, want 12.5", got)
	}
}

// =============================================================================
// ROUNDING POLICIES
// =============================================================================

func TestRounding_PerPolicyBehavior(t *testing.T) {
	v := dec("12.3456")
	cases := []struct {
		r    derive.Rounding
		want string
	}{
		{derive.RoundNone, "12.3456"},
		{derive.Round0, "12"},
		{derive.Round2, "12.35"},
		{derive.Round3, "12.346"},
		{derive.FloorInt, "12"},
		{derive.CeilInt, "13"},
	}
	for _, c := range cases {
		if got := c.r.Apply(v); !got.Equal(dec(c.want)) {
			t.Errorf("rounding %v: got %v, want %s", c.r, got, c.want)
		}
	}
}

func TestRounding_FloorAndCeilDisagree(t *testing.T) {
	// The two unit-value call sites round the same division differently;
	// the policies must stay distinct.
	v := dec("7.1")
	if derive.FloorInt.Apply(v).Equal(derive.CeilInt.Apply(v)) {
		t.Error("FloorInt and CeilInt agreed on 7.1; they must differ")
	}
}

// =============================================================================
// SAFE DIVISION
// =============================================================================

func TestSafeDiv_ZeroDivisorShortCircuits(t *testing.T) {
	if _, ok := derive.SafeDiv(dec("10"), decimal.Zero); ok {
		t.Error("SafeDiv by zero reported ok")
	}
	if _, ok := derive.SafeDiv(dec("10"), dec("-2")); ok {
		t.Error("SafeDiv by negative reported ok")
	}
	got, ok := derive.SafeDiv(dec("10"), dec("4"))
	if !ok || !got.Equal(dec("2.5")) {
		t.Errorf("SafeDiv(10,4) = %v,%v, want 2.5,true", got, ok)
	}
}

// =============================================================================
// CAPACITY LEDGER
// =============================================================================

func TestCapacityLedger_NegativeCeilingsClampToZero(t *testing.T) {
	l := derive.NewCapacityLedger(dec("-5"), dec("-10")).WithSecondary(dec("-1"))
	if !l.MaxQuantity.IsZero() || !l.MaxValuePrimary.IsZero() || !l.MaxValueSecondary.IsZero() {
		t.Errorf("negative ceilings not clamped: %+v", l)
	}
}

func TestCapacityLedger_ZeroCeilingForcesZero(t *testing.T) {
	l := derive.NewCapacityLedger(decimal.Zero, decimal.Zero)
	if got := l.ClampQuantity(dec("7")); !got.IsZero() {
		t.Errorf("ClampQuantity under zero ceiling = %v, want 0", got)
	}
	if got := l.ClampValue(dec("7")); !got.IsZero() {
		t.Errorf("ClampValue under zero ceiling = %v, want 0", got)
	}
}

func TestCapacityLedger_SecondaryTightensValue(t *testing.T) {
	l := derive.NewCapacityLedger(dec("100"), dec("60")).WithSecondary(dec("40"))
	if got := l.ClampValue(dec("55")); !got.Equal(dec("40")) {
		t.Errorf("ClampValue(55) = %v, want 40 (secondary ceiling)", got)
	}
}

func TestCapacityLedger_Stricter(t *testing.T) {
	tight := derive.NewCapacityLedger(dec("10"), dec("20")).WithSecondary(dec("5"))
	loose := derive.NewCapacityLedger(dec("50"), dec("80")).WithSecondary(dec("40"))
	if !tight.Stricter(loose) {
		t.Error("tight should be stricter than loose")
	}
	if loose.Stricter(tight) {
		t.Error("loose should not be stricter than tight")
	}
}

// =============================================================================
// REDUCER
// =============================================================================

func TestReduce_UnknownFieldFailsDispatch(t *testing.T) {
	_, err := derive.Reduce(doubler, "bogus", derive.Raw("1"), derive.NewFieldSet(), derive.Unbounded(), derive.UnitPrice{})
	if !errors.Is(err, derive.ErrUnknownField) {
		t.Errorf("expected ErrUnknownField, got %v", err)
	}
}

func TestReduce_AppliesDisplayRounding(t *testing.T) {
	out, err := derive.Reduce(doubler, "in", derive.Raw("1.2345"), derive.NewFieldSet(), derive.Unbounded(), derive.UnitPrice{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := out.Value("out"); !got.Equal(dec("2.47")) {
		t.Errorf("out = %v, want 2.47 (2.469 rounded to 2dp)", got)
	}
}

func TestReduce_DoesNotMutateInput(t *testing.T) {
	current := derive.NewFieldSet().Set("in", dec("1")).Set("out", dec("2"))
	_, err := derive.Reduce(doubler, "in", derive.Raw("9"), current, derive.Unbounded(), derive.UnitPrice{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !current.Value("in").Equal(dec("1")) || !current.Value("out").Equal(dec("2")) {
		t.Errorf("input field set mutated: %v", current)
	}
}
