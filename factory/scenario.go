/*
Package factory provides JSON to Go allotment/license conversion.

PURPOSE:
  Converts JSON definitions into allocation domain objects. This
  enables fixture and demo data without code changes - operators can
  describe an allotment with its candidate license items in JSON, and
  the factory builds the proper Go structs.

WHY JSON?
  - Demo scenarios live next to the code that loads them
  - Easy integration with an admin UI creating allotments
  - Database storage of definitions stays human-readable

JSON SCHEMA:
  {
    "allotments": [
      {
        "id": "allot-1",
        "name": "Q3 aluminium sheets",
        "item": "AL-SHEET-2MM",
        "required_quantity": "100",
        "required_value": "200.00",
        "buffer_amount": "20.00"
      }
    ],
    "items": [
      {
        "id": "sr-1",
        "allotment_id": "allot-1",
        "license_key": "LIC-2201",
        "description": "SR 1 of license 2201",
        "quantity": "60",
        "unit_price": "2.00",
        "pooled_value": "180.00"
      }
    ]
  }

  A license item may carry "total_value" instead of "unit_price"; the
  unit price is then derived as ceil(total/quantity), the covering
  variant of the unit-value derivation.

USAGE:
  f := factory.NewFactory()
  scenario, err := f.ParseScenario(jsonStr)

SEE ALSO:
  - allocation/presets.go: Canned scenario JSON builders
  - api/scenarios.go: Demo loaders using this factory
*/
package factory

import (
	"encoding/json"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/eximtrack/allocation-engine/allocation"
	"github.com/eximtrack/allocation-engine/tradeline"
)

// =============================================================================
// JSON SCHEMA TYPES
// =============================================================================

// AllotmentJSON is the JSON representation of one allotment.
type AllotmentJSON struct {
	ID               string      `json:"id"`
	Name             string      `json:"name"`
	Item             string      `json:"item"`
	RequiredQuantity json.Number `json:"required_quantity"`
	RequiredValue    json.Number `json:"required_value"`
	BufferAmount     json.Number `json:"buffer_amount,omitempty"`
	AllottedQuantity json.Number `json:"allotted_quantity,omitempty"`
	AllottedValue    json.Number `json:"allotted_value,omitempty"`
}

// LicenseItemJSON is the JSON representation of one license item.
type LicenseItemJSON struct {
	ID          string      `json:"id"`
	AllotmentID string      `json:"allotment_id"`
	LicenseKey  string      `json:"license_key"`
	Description string      `json:"description,omitempty"`
	Quantity    json.Number `json:"quantity"`
	UnitPrice   json.Number `json:"unit_price,omitempty"`
	TotalValue  json.Number `json:"total_value,omitempty"`
	PooledValue json.Number `json:"pooled_value"`
}

// ScenarioJSON bundles allotments with their candidate items.
type ScenarioJSON struct {
	Allotments []AllotmentJSON   `json:"allotments"`
	Items      []LicenseItemJSON `json:"items"`
}

// =============================================================================
// PARSED OUTPUT
// =============================================================================

// Allotment is a parsed allotment definition.
type Allotment struct {
	ID     string
	Name   string
	Item   string
	Budget allocation.AllotmentBudget
}

// Item is a parsed license item with its owning allotment.
type Item struct {
	AllotmentID string
	allocation.LicenseItem
}

// Scenario is the fully parsed fixture.
type Scenario struct {
	Allotments []Allotment
	Items      []Item
}

// =============================================================================
// FACTORY
// =============================================================================

type Factory struct{}

func NewFactory() *Factory {
	return &Factory{}
}

// ParseScenario parses and validates a scenario JSON document.
func (f *Factory) ParseScenario(jsonStr string) (*Scenario, error) {
	var doc ScenarioJSON
	if err := json.Unmarshal([]byte(jsonStr), &doc); err != nil {
		return nil, fmt.Errorf("invalid scenario JSON: %w", err)
	}

	out := &Scenario{}
	seen := map[string]bool{}
	for _, a := range doc.Allotments {
		parsed, err := f.parseAllotment(a)
		if err != nil {
			return nil, err
		}
		seen[parsed.ID] = true
		out.Allotments = append(out.Allotments, parsed)
	}
	for _, it := range doc.Items {
		parsed, err := f.parseItem(it)
		if err != nil {
			return nil, err
		}
		if !seen[parsed.AllotmentID] {
			return nil, fmt.Errorf("item %q references unknown allotment %q", it.ID, it.AllotmentID)
		}
		out.Items = append(out.Items, parsed)
	}
	return out, nil
}

// ParseAllotment parses a single allotment document (API create payload).
func (f *Factory) ParseAllotment(jsonStr string) (Allotment, error) {
	var doc AllotmentJSON
	if err := json.Unmarshal([]byte(jsonStr), &doc); err != nil {
		return Allotment{}, fmt.Errorf("invalid allotment JSON: %w", err)
	}
	return f.parseAllotment(doc)
}

func (f *Factory) parseAllotment(doc AllotmentJSON) (Allotment, error) {
	if doc.ID == "" {
		return Allotment{}, fmt.Errorf("allotment missing id")
	}
	reqQty, err := parseAmount("required_quantity", doc.RequiredQuantity, true)
	if err != nil {
		return Allotment{}, fmt.Errorf("allotment %q: %w", doc.ID, err)
	}
	reqVal, err := parseAmount("required_value", doc.RequiredValue, true)
	if err != nil {
		return Allotment{}, fmt.Errorf("allotment %q: %w", doc.ID, err)
	}
	buffer, err := parseAmount("buffer_amount", doc.BufferAmount, false)
	if err != nil {
		return Allotment{}, fmt.Errorf("allotment %q: %w", doc.ID, err)
	}
	allottedQty, err := parseAmount("allotted_quantity", doc.AllottedQuantity, false)
	if err != nil {
		return Allotment{}, fmt.Errorf("allotment %q: %w", doc.ID, err)
	}
	allottedVal, err := parseAmount("allotted_value", doc.AllottedValue, false)
	if err != nil {
		return Allotment{}, fmt.Errorf("allotment %q: %w", doc.ID, err)
	}

	return Allotment{
		ID:   doc.ID,
		Name: doc.Name,
		Item: doc.Item,
		Budget: allocation.AllotmentBudget{
			RequiredQuantity: reqQty,
			RequiredValue:    reqVal,
			BufferAmount:     buffer,
			AllottedQuantity: allottedQty,
			AllottedValue:    allottedVal,
		},
	}, nil
}

func (f *Factory) parseItem(doc LicenseItemJSON) (Item, error) {
	if doc.ID == "" || doc.AllotmentID == "" || doc.LicenseKey == "" {
		return Item{}, fmt.Errorf("license item %q: id, allotment_id and license_key are required", doc.ID)
	}
	qty, err := parseAmount("quantity", doc.Quantity, true)
	if err != nil {
		return Item{}, fmt.Errorf("item %q: %w", doc.ID, err)
	}
	pooled, err := parseAmount("pooled_value", doc.PooledValue, true)
	if err != nil {
		return Item{}, fmt.Errorf("item %q: %w", doc.ID, err)
	}

	price, err := parseAmount("unit_price", doc.UnitPrice, false)
	if err != nil {
		return Item{}, fmt.Errorf("item %q: %w", doc.ID, err)
	}
	if price.IsZero() && doc.TotalValue != "" {
		total, err := parseAmount("total_value", doc.TotalValue, true)
		if err != nil {
			return Item{}, fmt.Errorf("item %q: %w", doc.ID, err)
		}
		derived, ok := tradeline.UnitValueFromTotalCeil(total, qty)
		if !ok {
			return Item{}, fmt.Errorf("item %q: cannot derive unit price from total with zero quantity", doc.ID)
		}
		price = derived
	}
	if !price.IsPositive() {
		return Item{}, fmt.Errorf("item %q: unit_price or total_value required", doc.ID)
	}

	return Item{
		AllotmentID: doc.AllotmentID,
		LicenseItem: allocation.LicenseItem{
			ID:          doc.ID,
			LicenseKey:  doc.LicenseKey,
			Description: doc.Description,
			Quantity:    qty,
			UnitPrice:   price,
			PooledValue: pooled,
		},
	}, nil
}

// parseAmount parses a json.Number into a non-negative decimal.
// required distinguishes "must be present" from "defaults to zero".
func parseAmount(field string, n json.Number, required bool) (decimal.Decimal, error) {
	if n == "" {
		if required {
			return decimal.Zero, fmt.Errorf("%s is required", field)
		}
		return decimal.Zero, nil
	}
	d, err := decimal.NewFromString(n.String())
	if err != nil {
		return decimal.Zero, fmt.Errorf("%s: %w", field, err)
	}
	if d.IsNegative() {
		return decimal.Zero, fmt.Errorf("%s must not be negative", field)
	}
	return d, nil
}
