/*
scenarios.go - Demo scenario loaders for testing and demonstrations

PURPOSE:

	Provides pre-built scenarios that populate the database with
	realistic allotments and license items for testing and demos.

AVAILABLE SCENARIOS:

	single-license:  One allotment, two SRs sharing a pooled balance
	multi-license:   Two licenses, one item priced via line total
	near-complete:   Allotment one confirmation from completion

HOW SCENARIOS WORK:
 1. Reset database (clear all data)
 2. Parse the preset scenario JSON via the factory
 3. Save allotments and license items
 4. Drop cached pools so the next read reloads from the store

USAGE VIA API:

	POST /api/scenarios/load
	{"scenario_id": "multi-license"}

ADDING NEW SCENARIOS:
 1. Add to 'scenarios' slice with ID, name, description
 2. Add a preset builder in allocation/presets.go
 3. Add case to LoadScenario handler

NOTE:

	Scenarios reset the database. Only use in development/demo
	environments.

SEE ALSO:
  - handlers.go: Shared handler context and helpers
  - allocation/presets.go: Preset scenario JSON builders
*/
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/eximtrack/allocation-engine/allocation"
	"github.com/eximtrack/allocation-engine/store/sqlite"
)

// =============================================================================
// SCENARIO DEFINITIONS
// =============================================================================

var scenarios = []ScenarioDTO{
	{
		ID:          "single-license",
		Name:        "Single License",
		Description: "One allotment drawing on two SRs of the same license",
	},
	{
		ID:          "multi-license",
		Name:        "Multi License",
		Description: "Two licenses with independent pooled balances, one item priced by line total",
	},
	{
		ID:          "near-complete",
		Name:        "Near Complete",
		Description: "Allotment one confirmation away from the completion transition",
	},
}

// =============================================================================
// SCENARIO ENDPOINTS
// =============================================================================

// ListScenarios returns available demo scenarios.
// GET /api/scenarios
func (h *Handler) ListScenarios(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, scenarios)
}

// GetCurrentScenario returns the most recently loaded scenario.
// GET /api/scenarios/current
func (h *Handler) GetCurrentScenario(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"scenario_id": h.currentScenario})
}

// LoadScenario resets the database and loads the requested scenario.
// POST /api/scenarios/load
func (h *Handler) LoadScenario(w http.ResponseWriter, r *http.Request) {
	var req LoadScenarioRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	doc, err := scenarioDoc(req.ScenarioID)
	if err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("Unknown scenario: %s", req.ScenarioID), nil)
		return
	}

	ctx := r.Context()
	if err := h.Store.Reset(ctx); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to reset database", err)
		return
	}
	if err := h.loadScenarioDoc(ctx, doc); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to load scenario", err)
		return
	}

	h.dropPools()
	h.currentScenario = req.ScenarioID

	writeJSON(w, http.StatusOK, map[string]string{
		"status":      "ok",
		"scenario_id": req.ScenarioID,
	})
}

// ResetDatabase clears all data and cached state.
// POST /api/scenarios/reset
func (h *Handler) ResetDatabase(w http.ResponseWriter, r *http.Request) {
	if err := h.Store.Reset(r.Context()); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to reset database", err)
		return
	}

	h.dropPools()
	h.currentScenario = ""

	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// =============================================================================
// LOADER
// =============================================================================

func scenarioDoc(id string) (string, error) {
	switch id {
	case "single-license":
		return allocation.SingleLicenseScenarioJSON("allot-single", 100, 200, 20), nil
	case "multi-license":
		return allocation.MultiLicenseScenarioJSON("allot-multi"), nil
	case "near-complete":
		return allocation.NearCompleteScenarioJSON("allot-near"), nil
	default:
		return "", fmt.Errorf("unknown scenario %q", id)
	}
}

// loadScenarioDoc parses one scenario document and saves everything it
// defines. Also used at startup for -seed.
func (h *Handler) loadScenarioDoc(ctx context.Context, doc string) error {
	scenario, err := h.Factory.ParseScenario(doc)
	if err != nil {
		return fmt.Errorf("parse scenario: %w", err)
	}

	for _, a := range scenario.Allotments {
		rec := sqlite.AllotmentRecord{ID: a.ID, Name: a.Name, Item: a.Item, Budget: a.Budget}
		if err := h.Store.SaveAllotment(ctx, rec); err != nil {
			return fmt.Errorf("save allotment %s: %w", a.ID, err)
		}
	}
	for _, it := range scenario.Items {
		rec := sqlite.LicenseItemRecord{AllotmentID: it.AllotmentID, LicenseItem: it.LicenseItem}
		if err := h.Store.SaveLicenseItem(ctx, rec); err != nil {
			return fmt.Errorf("save item %s: %w", it.ID, err)
		}
	}
	return nil
}

// SeedScenario loads a named scenario outside the HTTP path.
func (h *Handler) SeedScenario(ctx context.Context, scenarioID string) error {
	doc, err := scenarioDoc(scenarioID)
	if err != nil {
		return err
	}
	if err := h.loadScenarioDoc(ctx, doc); err != nil {
		return err
	}
	h.currentScenario = scenarioID
	return nil
}
