/*
presets.go - Canned allotment scenario JSON builders

These preset functions create JSON scenario definitions for the demo
loaders and tests. They construct JSON strings directly to avoid import
cycles with the factory package.

USAGE:
  jsonStr := allocation.SingleLicenseScenarioJSON("allot-1", 100, 200, 20)
  scenario, err := factory.NewFactory().ParseScenario(jsonStr)
*/
package allocation

import (
	"encoding/json"
	"fmt"
)

// SingleLicenseScenarioJSON returns a one-allotment, one-license
// scenario: two SR items sharing one pooled balance.
func SingleLicenseScenarioJSON(allotmentID string, requiredQty, requiredValue, buffer float64) string {
	doc := map[string]interface{}{
		"allotments": []map[string]interface{}{{
			"id":                allotmentID,
			"name":              "Aluminium sheet sourcing",
			"item":              "AL-SHEET-2MM",
			"required_quantity": jsonNum(requiredQty),
			"required_value":    jsonNum(requiredValue),
			"buffer_amount":     jsonNum(buffer),
		}},
		"items": []map[string]interface{}{
			{
				"id":           allotmentID + "-sr-1",
				"allotment_id": allotmentID,
				"license_key":  "LIC-2201",
				"description":  "SR 1 of license 2201",
				"quantity":     "60",
				"unit_price":   "2.00",
				"pooled_value": "180.00",
			},
			{
				"id":           allotmentID + "-sr-2",
				"allotment_id": allotmentID,
				"license_key":  "LIC-2201",
				"description":  "SR 2 of license 2201",
				"quantity":     "80",
				"unit_price":   "2.00",
				"pooled_value": "180.00",
			},
		},
	}
	b, _ := json.MarshalIndent(doc, "", "  ")
	return string(b)
}

// MultiLicenseScenarioJSON returns an allotment sourced from two
// licenses with independent pooled balances, one item priced via a
// line total instead of a unit price.
func MultiLicenseScenarioJSON(allotmentID string) string {
	doc := map[string]interface{}{
		"allotments": []map[string]interface{}{{
			"id":                allotmentID,
			"name":              "Copper rod sourcing",
			"item":              "CU-ROD-8MM",
			"required_quantity": "500",
			"required_value":    "4500.00",
			"buffer_amount":     "100.00",
		}},
		"items": []map[string]interface{}{
			{
				"id":           allotmentID + "-sr-1",
				"allotment_id": allotmentID,
				"license_key":  "LIC-3104",
				"quantity":     "300",
				"unit_price":   "9.00",
				"pooled_value": "2400.00",
			},
			{
				"id":           allotmentID + "-sr-2",
				"allotment_id": allotmentID,
				"license_key":  "LIC-3104",
				"quantity":     "150",
				"unit_price":   "9.00",
				"pooled_value": "2400.00",
			},
			{
				"id":           allotmentID + "-sr-3",
				"allotment_id": allotmentID,
				"license_key":  "LIC-4420",
				"quantity":     "200",
				"total_value":  "1900.00",
				"pooled_value": "1900.00",
			},
		},
	}
	b, _ := json.MarshalIndent(doc, "", "  ")
	return string(b)
}

// NearCompleteScenarioJSON returns an allotment one confirmation away
// from the exact-zero completion transition.
func NearCompleteScenarioJSON(allotmentID string) string {
	doc := map[string]interface{}{
		"allotments": []map[string]interface{}{{
			"id":                allotmentID,
			"name":              "Nearly complete allotment",
			"item":              "ZN-INGOT",
			"required_quantity": "100",
			"required_value":    "200.00",
			"buffer_amount":     "10.00",
			"allotted_quantity": "90",
			"allotted_value":    "180.00",
		}},
		"items": []map[string]interface{}{{
			"id":           allotmentID + "-sr-1",
			"allotment_id": allotmentID,
			"license_key":  "LIC-5500",
			"quantity":     "40",
			"unit_price":   "2.00",
			"pooled_value": "90.00",
		}},
	}
	b, _ := json.MarshalIndent(doc, "", "  ")
	return string(b)
}

func jsonNum(v float64) string {
	return fmt.Sprintf("%g", v)
}
