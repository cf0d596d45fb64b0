package handler

import (
	"encoding/json"
	"net/http"

	"github.com/dukerupert/hearth/internal/consent"
	"github.com/dukerupert/hearth/internal/guard"
	"github.com/dukerupert/hearth/internal/model"
)

type ConsentHandler struct {
	gate  *consent.Gate
	guard *guard.Guard
}

func NewConsentHandler(gate *consent.Gate, g *guard.Guard) *ConsentHandler {
	return &ConsentHandler{gate: gate, guard: g}
}

type consentRequest struct {
	ChildID string `json:"child_id"`
}

// Request creates a pending consent record naming the caller as guardian.
func (h *ConsentHandler) Request(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}

	var req consentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.ChildID == "" {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "child_id is required", Code: "bad_request"})
		return
	}

	c, err := h.gate.Request(p, req.ChildID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, c)
}

type consentResolveRequest struct {
	ChildID string `json:"child_id"`
	Status  string `json:"status"`
}

// Resolve moves the caller's pending record to approved or denied.
func (h *ConsentHandler) Resolve(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}

	var req consentResolveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.ChildID == "" {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "child_id and status are required", Code: "bad_request"})
		return
	}

	c, err := h.gate.Resolve(p, req.ChildID, model.ConsentStatus(req.Status))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

// Status reports the consent state for a parent/child pair. A missing
// record reads as "none".
func (h *ConsentHandler) Status(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}

	parentID := r.PathValue("parentID")
	childID := r.PathValue("childID")

	// Read access follows the consent policy: parties only.
	if _, err := h.guard.Consent(p, parentID, childID); err != nil {
		writeError(w, err)
		return
	}

	status, err := h.gate.CheckStatus(parentID, childID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": string(status)})
}
