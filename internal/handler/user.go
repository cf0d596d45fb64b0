package handler

import (
	"net/http"

	"github.com/dukerupert/hearth/internal/guard"
)

type UserHandler struct {
	guard *guard.Guard
}

func NewUserHandler(g *guard.Guard) *UserHandler {
	return &UserHandler{guard: g}
}

func (h *UserHandler) Get(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}

	u, err := h.guard.User(p, r.PathValue("userID"))
	if err != nil {
		writeError(w, err)
		return
	}
	if u == nil {
		writeJSON(w, http.StatusNotFound, errorBody{Error: "user not found", Code: "not_found"})
		return
	}
	writeJSON(w, http.StatusOK, u)
}

// Update applies a field diff to a user document. Self-edit only; the
// policy engine additionally locks contact fields for under-13 callers.
func (h *UserHandler) Update(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}

	diff, err := decodeDiff(r)
	if err != nil || len(diff) == 0 {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "invalid JSON", Code: "bad_request"})
		return
	}

	u, err := h.guard.UpdateUser(p, r.PathValue("userID"), diff)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, u)
}
