package handler

import (
	"net/http"

	"github.com/dukerupert/hearth/internal/guard"
	"github.com/dukerupert/hearth/internal/model"
)

type FamilyHandler struct {
	guard *guard.Guard
}

func NewFamilyHandler(g *guard.Guard) *FamilyHandler {
	return &FamilyHandler{guard: g}
}

// Get returns the caller's family document, counters included.
func (h *FamilyHandler) Get(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}

	f, err := h.guard.Family(p, p.FamilyID)
	if err != nil {
		writeError(w, err)
		return
	}
	if f == nil {
		writeJSON(w, http.StatusNotFound, errorBody{Error: "family not found", Code: "not_found"})
		return
	}
	writeJSON(w, http.StatusOK, f)
}

// Update applies a field diff to the family document.
func (h *FamilyHandler) Update(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}

	diff, err := decodeDiff(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "invalid JSON", Code: "bad_request"})
		return
	}

	f, err := h.guard.UpdateFamily(p, p.FamilyID, diff)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, f)
}

// Ledgers returns the family leaderboard, highest points first.
func (h *FamilyHandler) Ledgers(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}

	ledgers, err := h.guard.Ledgers(p, p.FamilyID)
	if err != nil {
		writeError(w, err)
		return
	}
	if ledgers == nil {
		ledgers = []model.MemberLedger{}
	}
	writeJSON(w, http.StatusOK, ledgers)
}

// Ledger returns one member's ledger.
func (h *FamilyHandler) Ledger(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}

	userID := r.PathValue("userID")
	l, err := h.guard.Ledger(p, p.FamilyID, userID)
	if err != nil {
		writeError(w, err)
		return
	}
	if l == nil {
		// No award yet: the ledger reads as zeros.
		l = &model.MemberLedger{FamilyID: p.FamilyID, UserID: userID}
	}
	writeJSON(w, http.StatusOK, l)
}
