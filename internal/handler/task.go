package handler

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/dukerupert/hearth/internal/guard"
	"github.com/dukerupert/hearth/internal/model"
	"github.com/dukerupert/hearth/internal/websocket"
)

type TaskHandler struct {
	guard *guard.Guard
	hub   *websocket.Hub
}

func NewTaskHandler(g *guard.Guard, hub *websocket.Hub) *TaskHandler {
	return &TaskHandler{guard: g, hub: hub}
}

func (h *TaskHandler) broadcast(msg websocket.Message) {
	if h.hub != nil {
		h.hub.Broadcast(msg)
	}
}

type taskRequest struct {
	Title         string `json:"title"`
	AssignedTo    string `json:"assigned_to"`
	RequiresPhoto bool   `json:"requires_photo"`
	RewardPoints  int    `json:"reward_points"`
}

func (h *TaskHandler) Create(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}

	var req taskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "invalid JSON", Code: "bad_request"})
		return
	}

	req.Title = strings.TrimSpace(req.Title)
	if req.Title == "" {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "title is required", Code: "bad_request"})
		return
	}
	if req.RewardPoints < 0 {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "reward_points must be non-negative", Code: "bad_request"})
		return
	}

	t, err := h.guard.CreateTask(p, &model.Task{
		FamilyID:      p.FamilyID,
		Title:         req.Title,
		AssignedTo:    req.AssignedTo,
		AssignedBy:    p.UID,
		RequiresPhoto: req.RequiresPhoto,
		RewardPoints:  req.RewardPoints,
	})
	if err != nil {
		writeError(w, err)
		return
	}

	h.broadcast(websocket.NewMessage(t.FamilyID, "task", "created", t.ID, nil))
	writeJSON(w, http.StatusCreated, t)
}

func (h *TaskHandler) List(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}

	tasks, err := h.guard.Tasks(p, p.FamilyID)
	if err != nil {
		writeError(w, err)
		return
	}
	if tasks == nil {
		tasks = []model.Task{}
	}
	writeJSON(w, http.StatusOK, tasks)
}

func (h *TaskHandler) Get(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}

	t, err := h.guard.Task(p, p.FamilyID, r.PathValue("taskID"))
	if err != nil {
		writeError(w, err)
		return
	}
	if t == nil {
		writeJSON(w, http.StatusNotFound, errorBody{Error: "task not found", Code: "not_found"})
		return
	}
	writeJSON(w, http.StatusOK, t)
}

// Update applies a field diff; the body is the diff itself, e.g.
// {"status": "completed"} or {"photoValidationStatus": "approved",
// "photoValidatedBy": "<uid>"}.
func (h *TaskHandler) Update(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}

	diff, err := decodeDiff(r)
	if err != nil || len(diff) == 0 {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "invalid JSON", Code: "bad_request"})
		return
	}

	t, err := h.guard.UpdateTask(r.Context(), p, p.FamilyID, r.PathValue("taskID"), diff)
	if err != nil {
		writeError(w, err)
		return
	}

	h.broadcast(websocket.NewMessage(t.FamilyID, "task", "updated", t.ID, map[string]any{
		"status": t.Status,
	}))
	writeJSON(w, http.StatusOK, t)
}
