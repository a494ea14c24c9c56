/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication. These types
  decouple the internal domain model from the external API contract.
  All numeric fields travel as decimal strings - the engine's precision
  must survive JSON both ways.

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients

VALIDATION:
  Handlers validate; DTOs are pure data carriers. Field-set values are
  passed through the raw-value coercion in derive, so a malformed number
  in a derive call degrades to zero instead of erroring - same policy as
  a live keystroke.

SEE ALSO:
  - handlers.go: Uses these types
  - factory/scenario.go: AllotmentJSON / LicenseItemJSON payloads
*/
package api

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/eximtrack/allocation-engine/allocation"
	"github.com/eximtrack/allocation-engine/derive"
	"github.com/eximtrack/allocation-engine/factory"
	"github.com/eximtrack/allocation-engine/store/sqlite"
)

// =============================================================================
// GENERIC DERIVE
// =============================================================================

// DeriveRequest is one field-edit event over the wire.
type DeriveRequest struct {
	// Mode: "allocation", "QTY", "CIF_INR", "FOB_INR" or "incentive".
	Mode string `json:"mode"`

	// Field being edited and its raw (possibly malformed) new value.
	Field string `json:"field"`
	Value string `json:"value"`

	// Fields is the current field set, decimal strings keyed by name.
	Fields map[string]string `json:"fields,omitempty"`

	// Ledger and unit price apply to allocation mode only.
	Ledger    *LedgerDTO `json:"ledger,omitempty"`
	UnitPrice string     `json:"unit_price,omitempty"`
}

// LedgerDTO mirrors derive.CapacityLedger.
type LedgerDTO struct {
	MaxQuantity       string  `json:"max_quantity"`
	MaxValuePrimary   string  `json:"max_value_primary"`
	MaxValueSecondary *string `json:"max_value_secondary,omitempty"`
}

// DeriveResponse is the consistent field set after the edit.
type DeriveResponse struct {
	Mode   string            `json:"mode"`
	Fields map[string]string `json:"fields"`
}

// =============================================================================
// ALLOTMENTS
// =============================================================================

// AllotmentDTO represents an allotment in API responses. Balanced
// figures are derived on the way out, never stored.
type AllotmentDTO struct {
	ID                      string `json:"id"`
	Name                    string `json:"name"`
	Item                    string `json:"item"`
	RequiredQuantity        string `json:"required_quantity"`
	RequiredValue           string `json:"required_value"`
	BufferAmount            string `json:"buffer_amount"`
	AllottedQuantity        string `json:"allotted_quantity"`
	AllottedValue           string `json:"allotted_value"`
	BalancedQuantity        string `json:"balanced_quantity"`
	BalancedValueWithBuffer string `json:"balanced_value_with_buffer"`
	Completed               bool   `json:"completed"`
	CreatedAt               string `json:"created_at,omitempty"`
}

// CreateAllotmentRequest creates an allotment with its candidate items.
type CreateAllotmentRequest struct {
	Allotment factory.AllotmentJSON     `json:"allotment"`
	Items     []factory.LicenseItemJSON `json:"items,omitempty"`
}

// LicenseItemDTO represents one license item with its live pooled
// balance.
type LicenseItemDTO struct {
	ID          string `json:"id"`
	LicenseKey  string `json:"license_key"`
	Description string `json:"description,omitempty"`
	Quantity    string `json:"quantity"`
	UnitPrice   string `json:"unit_price"`
	PooledValue string `json:"pooled_value"`
	State       string `json:"state"`
}

// =============================================================================
// PREVIEW AND CONFIRMATION
// =============================================================================

// PreviewRequest asks for a clamped (quantity, value) preview.
type PreviewRequest struct {
	ItemID string `json:"item_id"`

	// Field: "quantity", "value" or "max".
	Field string `json:"field"`
	Value string `json:"value,omitempty"`
}

// PreviewDTO is the clamped pair.
type PreviewDTO struct {
	Quantity string `json:"quantity"`
	Value    string `json:"value,omitempty"`
}

// ConfirmRequest confirms an allocation.
type ConfirmRequest struct {
	ItemID   string `json:"item_id"`
	Quantity string `json:"quantity"`
	Value    string `json:"value"`
}

// AllocationDTO is one confirmed allocation.
type AllocationDTO struct {
	ID         string `json:"id"`
	ItemID     string `json:"item_id"`
	LicenseKey string `json:"license_key"`
	Quantity   string `json:"quantity"`
	Value      string `json:"value"`
	CreatedAt  string `json:"created_at"`
}

// ConfirmResponse carries the authoritative outcome plus the refreshed
// item list. Completed reports the exact-zero completion transition.
type ConfirmResponse struct {
	Allocation AllocationDTO    `json:"allocation"`
	Allotment  AllotmentDTO     `json:"allotment"`
	Items      []LicenseItemDTO `json:"items"`
	Completed  bool             `json:"completed"`
}

// =============================================================================
// SCENARIOS AND ERRORS
// =============================================================================

// ScenarioDTO describes one loadable demo scenario.
type ScenarioDTO struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

// LoadScenarioRequest selects a scenario to load.
type LoadScenarioRequest struct {
	ScenarioID string `json:"scenario_id"`
}

// ErrorResponse is the uniform error body.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

// =============================================================================
// CONVERSIONS
// =============================================================================

func toAllotmentDTO(rec sqlite.AllotmentRecord) AllotmentDTO {
	b := rec.Budget
	return AllotmentDTO{
		ID:                      rec.ID,
		Name:                    rec.Name,
		Item:                    rec.Item,
		RequiredQuantity:        b.RequiredQuantity.String(),
		RequiredValue:           b.RequiredValue.String(),
		BufferAmount:            b.BufferAmount.String(),
		AllottedQuantity:        b.AllottedQuantity.String(),
		AllottedValue:           b.AllottedValue.String(),
		BalancedQuantity:        b.BalancedQuantity().String(),
		BalancedValueWithBuffer: b.BalancedValueWithBuffer().String(),
		Completed:               b.Completed(),
		CreatedAt:               rec.CreatedAt.Format(time.RFC3339),
	}
}

func toItemDTOs(items []allocation.LicenseItem) []LicenseItemDTO {
	out := make([]LicenseItemDTO, len(items))
	for i, it := range items {
		out[i] = LicenseItemDTO{
			ID:          it.ID,
			LicenseKey:  it.LicenseKey,
			Description: it.Description,
			Quantity:    it.Quantity.String(),
			UnitPrice:   it.UnitPrice.String(),
			PooledValue: it.PooledValue.String(),
			State:       string(it.State()),
		}
	}
	return out
}

func toAllocationDTO(a allocation.Allocation) AllocationDTO {
	return AllocationDTO{
		ID:         a.ID,
		ItemID:     a.ItemID,
		LicenseKey: a.LicenseKey,
		Quantity:   a.Quantity.String(),
		Value:      a.Value.String(),
		CreatedAt:  a.CreatedAt.Format(time.RFC3339),
	}
}

func toFieldMap(fs derive.FieldSet) map[string]string {
	out := make(map[string]string, len(fs))
	for f, v := range fs {
		out[string(f)] = v.String()
	}
	return out
}

func fromFieldMap(m map[string]string) derive.FieldSet {
	fs := derive.NewFieldSet()
	for k, v := range m {
		if d, err := decimal.NewFromString(v); err == nil {
			fs.Set(derive.Field(k), d)
		}
	}
	return fs
}
