package handler

import (
	"fmt"
	"net/http"
	"path"

	"github.com/dukerupert/hearth/internal/blob"
	"github.com/dukerupert/hearth/internal/guard"
	"github.com/dukerupert/hearth/internal/policy"
)

const maxPhotoBytes = 10 << 20

type UploadHandler struct {
	blobs *blob.Store
	guard *guard.Guard
}

func NewUploadHandler(blobs *blob.Store, g *guard.Guard) *UploadHandler {
	return &UploadHandler{blobs: blobs, guard: g}
}

// Photo accepts a multipart task photo, stores the blob under the family
// path, and records the reference on the task through the guarded write
// path, so the document-level policy still decides whether this uploader
// may attach it.
func (h *UploadHandler) Photo(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}
	taskID := r.PathValue("taskID")

	if err := r.ParseMultipartForm(maxPhotoBytes); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "invalid multipart body", Code: "bad_request"})
		return
	}
	file, header, err := r.FormFile("photo")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "photo field is required", Code: "bad_request"})
		return
	}
	defer file.Close()

	name := path.Base(header.Filename)
	if name == "" || name == "." || name == "/" {
		name = "photo.jpg"
	}
	key := fmt.Sprintf("families/%s/tasks/%s/%s", p.FamilyID, taskID, name)

	ref, err := h.blobs.Upload(r.Context(), p, key, file, header.Header.Get("Content-Type"))
	if err != nil {
		writeError(w, err)
		return
	}

	t, err := h.guard.UpdateTask(r.Context(), p, p.FamilyID, taskID, policy.Diff{
		policy.FieldPhotoRef: ref,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, t)
}
