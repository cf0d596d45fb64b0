package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/dukerupert/hearth/internal/auth"
	"github.com/dukerupert/hearth/internal/consent"
	"github.com/dukerupert/hearth/internal/policy"
	"github.com/dukerupert/hearth/internal/store"
	"github.com/dukerupert/hearth/internal/task"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

type errorBody struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

// writeError maps the error taxonomy onto HTTP statuses. Consent denials
// carry their own code so clients can route the user to a consent flow.
func writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, policy.ErrConsentRequired):
		writeJSON(w, http.StatusForbidden, errorBody{Error: err.Error(), Code: "consent_required"})
	case errors.Is(err, policy.ErrDenied):
		writeJSON(w, http.StatusForbidden, errorBody{Error: err.Error(), Code: "permission_denied"})
	case errors.Is(err, task.ErrInvalidTransition), errors.Is(err, consent.ErrInvalidTransition):
		writeJSON(w, http.StatusConflict, errorBody{Error: err.Error(), Code: "invalid_transition"})
	case errors.Is(err, store.ErrUnavailable):
		writeJSON(w, http.StatusServiceUnavailable, errorBody{Error: "store unavailable", Code: "store_unavailable"})
	default:
		writeJSON(w, http.StatusInternalServerError, errorBody{Error: "internal error", Code: "internal"})
	}
}

// principal pulls the authenticated principal or writes a 401.
func principal(w http.ResponseWriter, r *http.Request) (policy.Principal, bool) {
	p, ok := auth.PrincipalFrom(r.Context())
	if !ok {
		writeJSON(w, http.StatusUnauthorized, errorBody{Error: "authentication required", Code: "unauthenticated"})
	}
	return p, ok
}

// decodeDiff reads the request body as a field diff.
func decodeDiff(r *http.Request) (policy.Diff, error) {
	var diff policy.Diff
	if err := json.NewDecoder(r.Body).Decode(&diff); err != nil {
		return nil, err
	}
	return diff, nil
}
