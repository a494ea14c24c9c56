/*
handlers.go - HTTP API handlers for the license allocation engine

PURPOSE:
  Exposes the derivation engine via REST API. Handles HTTP
  request/response, JSON serialization, and delegates to domain logic.

ENDPOINTS:
  Derivation:
    POST   /api/derive                       Generic field-edit derivation
    POST   /api/tradelines/derive            Trade-line amount derivation
    POST   /api/incentives/derive            Incentive amount derivation

  Allotments:
    GET    /api/allotments                   List allotments
    POST   /api/allotments                   Create allotment with items
    GET    /api/allotments/{id}              Get allotment details
    GET    /api/allotments/{id}/items        List license items (live pool)
    POST   /api/allotments/{id}/preview      Clamped allocation preview
    POST   /api/allotments/{id}/allocations  Confirm an allocation
    GET    /api/allotments/{id}/allocations  Allocation history

  Scenarios:
    GET    /api/scenarios                    List demo scenarios
    POST   /api/scenarios/load               Load a demo scenario

ARCHITECTURE:
  Handler struct holds all dependencies:
  - Store: Database access (authoritative)
  - Service: Allocation confirmation
  - Per-allotment Pool caches for optimistic item state

REQUEST FLOW:
  1. Parse HTTP request
  2. Validate input
  3. Call domain logic (reducer, calculator, service)
  4. Serialize response
  5. Handle errors

ERROR HANDLING:
  Errors are returned as JSON with appropriate HTTP status:
  - 400: Validation errors, unknown mode or field
  - 404: Allotment or item not found
  - 409: Over-allocation, value mismatch
  - 500: Internal errors

SEE ALSO:
  - dto.go: Request/response data structures
  - scenarios.go: Demo scenario loaders
  - server.go: Router setup and middleware
*/
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/eximtrack/allocation-engine/allocation"
	"github.com/eximtrack/allocation-engine/derive"
	"github.com/eximtrack/allocation-engine/factory"
	"github.com/eximtrack/allocation-engine/store/sqlite"
	"github.com/eximtrack/allocation-engine/tradeline"
)

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Store   *sqlite.Store
	Factory *factory.Factory
	Service *allocation.Service

	// Per-allotment pool caches. The store is authoritative; pools are
	// refreshed from it after every confirmation and by the background
	// refresher.
	mu    sync.Mutex
	pools map[string]*allocation.Pool

	// Track currently loaded scenario
	currentScenario string
}

// NewHandler creates a new handler with the given store.
func NewHandler(store *sqlite.Store) *Handler {
	return &Handler{
		Store:   store,
		Factory: factory.NewFactory(),
		Service: &allocation.Service{Store: store},
		pools:   make(map[string]*allocation.Pool),
	}
}

// pool returns the cached pool for an allotment, loading it from the
// store on first use.
func (h *Handler) pool(ctx context.Context, allotmentID string) (*allocation.Pool, error) {
	h.mu.Lock()
	p, ok := h.pools[allotmentID]
	h.mu.Unlock()
	if ok {
		return p, nil
	}
	return h.refreshPool(ctx, allotmentID)
}

// refreshPool reloads an allotment's pool from the store, replacing any
// optimistic state.
func (h *Handler) refreshPool(ctx context.Context, allotmentID string) (*allocation.Pool, error) {
	items, err := h.Store.LicenseItems(ctx, allotmentID)
	if err != nil {
		return nil, err
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	p, ok := h.pools[allotmentID]
	if !ok {
		p = allocation.NewPool(items)
		h.pools[allotmentID] = p
		return p, nil
	}
	p.Refresh(items)
	return p, nil
}

// RefreshPools re-syncs every cached pool from the store. Called by the
// background refresher.
func (h *Handler) RefreshPools(ctx context.Context) error {
	h.mu.Lock()
	ids := make([]string, 0, len(h.pools))
	for id := range h.pools {
		ids = append(ids, id)
	}
	h.mu.Unlock()

	for _, id := range ids {
		if _, err := h.refreshPool(ctx, id); err != nil {
			return err
		}
	}
	return nil
}

func (h *Handler) dropPools() {
	h.mu.Lock()
	h.pools = make(map[string]*allocation.Pool)
	h.mu.Unlock()
}

// =============================================================================
// DERIVATION ENDPOINTS
// =============================================================================

// DeriveField applies one field edit through the mode catalog and
// returns the consistent field set.
// POST /api/derive
func (h *Handler) DeriveField(w http.ResponseWriter, r *http.Request) {
	var req DeriveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if req.Mode == "" || req.Field == "" {
		writeError(w, http.StatusBadRequest, "mode and field are required", nil)
		return
	}

	fields := fromFieldMap(req.Fields)
	raw := derive.Raw(req.Value)
	edited := derive.Field(req.Field)

	var (
		out derive.FieldSet
		err error
	)
	switch req.Mode {
	case "allocation":
		ledger := ledgerFromDTO(req.Ledger)
		price := derive.NewUnitPrice(derive.Raw(req.UnitPrice).Decimal())
		out, err = derive.Reduce(allocation.Mode, edited, raw, fields, ledger, price)
	case "incentive":
		out, err = tradeline.DeriveIncentive(edited, raw, fields)
	default:
		out, err = tradeline.Derive(tradeline.BillingMode(req.Mode), edited, raw, fields)
	}
	if err != nil {
		writeDeriveError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, DeriveResponse{Mode: req.Mode, Fields: toFieldMap(out)})
}

// TradelineDerive derives trade-line amounts for one billing mode.
// POST /api/tradelines/derive
func (h *Handler) TradelineDerive(w http.ResponseWriter, r *http.Request) {
	var req DeriveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	out, err := tradeline.Derive(
		tradeline.BillingMode(req.Mode),
		derive.Field(req.Field),
		derive.Raw(req.Value),
		fromFieldMap(req.Fields),
	)
	if err != nil {
		writeDeriveError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, DeriveResponse{Mode: req.Mode, Fields: toFieldMap(out)})
}

// IncentiveDerive derives incentive-line amounts.
// POST /api/incentives/derive
func (h *Handler) IncentiveDerive(w http.ResponseWriter, r *http.Request) {
	var req DeriveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	out, err := tradeline.DeriveIncentive(
		derive.Field(req.Field),
		derive.Raw(req.Value),
		fromFieldMap(req.Fields),
	)
	if err != nil {
		writeDeriveError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, DeriveResponse{Mode: "incentive", Fields: toFieldMap(out)})
}

// =============================================================================
// ALLOTMENT ENDPOINTS
// =============================================================================

// ListAllotments returns all allotments.
// GET /api/allotments
func (h *Handler) ListAllotments(w http.ResponseWriter, r *http.Request) {
	records, err := h.Store.ListAllotments(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list allotments", err)
		return
	}

	dtos := make([]AllotmentDTO, len(records))
	for i, rec := range records {
		dtos[i] = toAllotmentDTO(rec)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// CreateAllotment creates an allotment together with its candidate
// license items.
// POST /api/allotments
func (h *Handler) CreateAllotment(w http.ResponseWriter, r *http.Request) {
	var req CreateAllotmentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	doc, err := json.Marshal(factory.ScenarioJSON{
		Allotments: []factory.AllotmentJSON{req.Allotment},
		Items:      req.Items,
	})
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid allotment definition", err)
		return
	}
	scenario, err := h.Factory.ParseScenario(string(doc))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid allotment definition", err)
		return
	}

	ctx := r.Context()
	a := scenario.Allotments[0]
	rec := sqlite.AllotmentRecord{ID: a.ID, Name: a.Name, Item: a.Item, Budget: a.Budget}
	if err := h.Store.SaveAllotment(ctx, rec); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to save allotment", err)
		return
	}
	for _, it := range scenario.Items {
		itemRec := sqlite.LicenseItemRecord{AllotmentID: it.AllotmentID, LicenseItem: it.LicenseItem}
		if err := h.Store.SaveLicenseItem(ctx, itemRec); err != nil {
			writeError(w, http.StatusInternalServerError, "Failed to save license item", err)
			return
		}
	}

	saved, err := h.Store.Allotment(ctx, a.ID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to load allotment", err)
		return
	}
	writeJSON(w, http.StatusCreated, toAllotmentDTO(saved))
}

// GetAllotment returns one allotment with derived balanced figures.
// GET /api/allotments/{id}
func (h *Handler) GetAllotment(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	rec, err := h.Store.Allotment(r.Context(), id)
	if err != nil {
		if errors.Is(err, allocation.ErrAllotmentNotFound) {
			writeError(w, http.StatusNotFound, "Allotment not found", nil)
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to load allotment", err)
		return
	}
	writeJSON(w, http.StatusOK, toAllotmentDTO(rec))
}

// GetItems returns the allotment's live license item pool. Exhausted
// items are omitted.
// GET /api/allotments/{id}/items
func (h *Handler) GetItems(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	p, err := h.refreshPool(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to load license items", err)
		return
	}
	writeJSON(w, http.StatusOK, toItemDTOs(p.Items()))
}

// PreviewAllocation runs one field edit against an item's ceilings and
// returns the clamped (quantity, value) pair without persisting
// anything.
// POST /api/allotments/{id}/preview
func (h *Handler) PreviewAllocation(w http.ResponseWriter, r *http.Request) {
	allotmentID := chi.URLParam(r, "id")

	var req PreviewRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	ctx := r.Context()
	budget, err := h.Store.AllotmentBudget(ctx, allotmentID)
	if err != nil {
		if errors.Is(err, allocation.ErrAllotmentNotFound) {
			writeError(w, http.StatusNotFound, "Allotment not found", nil)
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to load allotment", err)
		return
	}

	p, err := h.pool(ctx, allotmentID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to load license items", err)
		return
	}
	item, ok := p.Item(req.ItemID)
	if !ok {
		writeError(w, http.StatusNotFound, "License item not found", nil)
		return
	}

	calc := allocation.Calculator{Budget: budget, Item: item}
	var preview allocation.Preview
	switch req.Field {
	case "quantity":
		preview, err = calc.EditQuantity(derive.Raw(req.Value))
	case "value":
		preview, err = calc.EditValue(derive.Raw(req.Value))
	case "max":
		preview, err = calc.UseMaximum()
	default:
		writeError(w, http.StatusBadRequest, "field must be quantity, value or max", nil)
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Derivation failed", err)
		return
	}

	dto := PreviewDTO{Quantity: preview.Quantity.String()}
	if preview.ValueSet {
		dto.Value = preview.Value.String()
	}
	writeJSON(w, http.StatusOK, dto)
}

// ConfirmAllocation confirms an allocation against the authoritative
// store. The submitted pair is re-derived server-side; anything the
// ceilings would clamp is rejected.
// POST /api/allotments/{id}/allocations
func (h *Handler) ConfirmAllocation(w http.ResponseWriter, r *http.Request) {
	allotmentID := chi.URLParam(r, "id")

	var req ConfirmRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	qty, err := decimal.NewFromString(req.Quantity)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid quantity", err)
		return
	}
	value, err := decimal.NewFromString(req.Value)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid value", err)
		return
	}

	ctx := r.Context()
	result, err := h.Service.Confirm(ctx, allotmentID, req.ItemID, qty, value)
	if err != nil {
		switch {
		case errors.Is(err, allocation.ErrAllotmentNotFound),
			errors.Is(err, allocation.ErrItemNotFound):
			writeError(w, http.StatusNotFound, "Not found", err)
		case errors.Is(err, allocation.ErrCeilingExceeded),
			errors.Is(err, allocation.ErrValueMismatch),
			errors.Is(err, allocation.ErrNothingToAllocate):
			writeError(w, http.StatusConflict, "Allocation rejected", err)
		default:
			writeError(w, http.StatusInternalServerError, "Failed to confirm allocation", err)
		}
		return
	}

	// Re-sync the pool cache from the store so sibling drains are
	// visible immediately.
	p, err := h.refreshPool(ctx, allotmentID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to refresh license items", err)
		return
	}

	rec, err := h.Store.Allotment(ctx, allotmentID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to load allotment", err)
		return
	}

	writeJSON(w, http.StatusCreated, ConfirmResponse{
		Allocation: toAllocationDTO(result.Allocation),
		Allotment:  toAllotmentDTO(rec),
		Items:      toItemDTOs(p.Items()),
		Completed:  result.Completed,
	})
}

// GetAllocations returns the allotment's allocation history.
// GET /api/allotments/{id}/allocations
func (h *Handler) GetAllocations(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	allocs, err := h.Store.Allocations(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list allocations", err)
		return
	}

	dtos := make([]AllocationDTO, len(allocs))
	for i, a := range allocs {
		dtos[i] = toAllocationDTO(a)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// =============================================================================
// HEALTH
// =============================================================================

// Health reports liveness.
// GET /api/health
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// =============================================================================
// HELPERS
// =============================================================================

func ledgerFromDTO(dto *LedgerDTO) derive.CapacityLedger {
	if dto == nil {
		return derive.Unbounded()
	}
	ledger := derive.NewCapacityLedger(
		derive.Raw(dto.MaxQuantity).Decimal(),
		derive.Raw(dto.MaxValuePrimary).Decimal(),
	)
	if dto.MaxValueSecondary != nil {
		ledger = ledger.WithSecondary(derive.Raw(*dto.MaxValueSecondary).Decimal())
	}
	return ledger
}

func writeDeriveError(w http.ResponseWriter, err error) {
	if errors.Is(err, derive.ErrUnknownMode) || errors.Is(err, derive.ErrUnknownField) {
		writeError(w, http.StatusBadRequest, "Unknown mode or field", err)
		return
	}
	writeError(w, http.StatusInternalServerError, "Derivation failed", err)
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}
