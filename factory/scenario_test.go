package factory_test

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eximtrack/allocation-engine/allocation"
	"github.com/eximtrack/allocation-engine/factory"
)

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

func TestParseScenario_Preset(t *testing.T) {
	f := factory.NewFactory()

	scenario, err := f.ParseScenario(allocation.SingleLicenseScenarioJSON("allot-1", 100, 200, 20))
	require.NoError(t, err)

	require.Len(t, scenario.Allotments, 1)
	require.Len(t, scenario.Items, 2)

	a := scenario.Allotments[0]
	assert.Equal(t, "allot-1", a.ID)
	assert.True(t, a.Budget.RequiredQuantity.Equal(dec("100")))
	assert.True(t, a.Budget.BalancedValueWithBuffer().Equal(dec("220")))

	for _, it := range scenario.Items {
		assert.Equal(t, "allot-1", it.AllotmentID)
		assert.Equal(t, "LIC-2201", it.LicenseKey)
		assert.True(t, it.PooledValue.Equal(dec("180")))
	}
}

func TestParseScenario_UnitPriceDerivedFromTotal(t *testing.T) {
	// The multi-license preset prices one item via total_value; the
	// unit price is ceil(1900/200) = 10.
	f := factory.NewFactory()

	scenario, err := f.ParseScenario(allocation.MultiLicenseScenarioJSON("allot-2"))
	require.NoError(t, err)
	require.Len(t, scenario.Items, 3)

	var derived allocation.LicenseItem
	for _, it := range scenario.Items {
		if it.LicenseKey == "LIC-4420" {
			derived = it.LicenseItem
		}
	}
	assert.True(t, derived.UnitPrice.Equal(dec("10")), "unit price = %s, want ceil(1900/200)", derived.UnitPrice)
}

func TestParseScenario_RejectsOrphanItem(t *testing.T) {
	f := factory.NewFactory()

	_, err := f.ParseScenario(`{
		"allotments": [],
		"items": [{
			"id": "sr-1", "allotment_id": "ghost", "license_key": "L",
			"quantity": "1", "unit_price": "1", "pooled_value": "1"
		}]
	}`)

	assert.ErrorContains(t, err, "unknown allotment")
}

func TestParseScenario_RejectsNegativeAmounts(t *testing.T) {
	f := factory.NewFactory()

	_, err := f.ParseScenario(`{
		"allotments": [{
			"id": "a", "required_quantity": "-5", "required_value": "10"
		}]
	}`)

	assert.ErrorContains(t, err, "must not be negative")
}

func TestParseAllotment_SingleDocument(t *testing.T) {
	f := factory.NewFactory()

	a, err := f.ParseAllotment(`{
		"id": "allot-9",
		"name": "Zinc ingots",
		"item": "ZN-INGOT",
		"required_quantity": "40",
		"required_value": "95.50"
	}`)
	require.NoError(t, err)

	assert.Equal(t, "allot-9", a.ID)
	assert.True(t, a.Budget.RequiredValue.Equal(dec("95.50")))
	assert.True(t, a.Budget.BufferAmount.IsZero())
}

func TestParseAllotment_MissingRequiredField(t *testing.T) {
	f := factory.NewFactory()

	_, err := f.ParseAllotment(`{"id": "allot-9", "required_value": "10"}`)
	assert.ErrorContains(t, err, "required_quantity is required")
}
