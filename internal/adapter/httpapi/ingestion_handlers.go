package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"ada-engine/internal/domain/entity"
)

type createTaskResponse struct {
	ID uuid.UUID `json:"id"`
}

func (h *handler) orgID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := parseUUID(chi.URLParam(r, "organization_id"), "organization_id")
	if err != nil {
		h.writeError(w, r, err, "")
		return uuid.Nil, false
	}
	return id, true
}

func (h *handler) listIngestionTasks(w http.ResponseWriter, r *http.Request) {
	orgID, ok := h.orgID(w, r)
	if !ok || !h.authorizeOrganization(w, r, orgID, entity.RightsReader) {
		return
	}

	tasks, err := h.Ingestion.List(r.Context(), orgID)
	if err != nil {
		h.writeError(w, r, err, "Failed to get ingestion tasks")
		return
	}
	writeJSON(w, http.StatusOK, tasks)
}

func (h *handler) createIngestionTask(w http.ResponseWriter, r *http.Request) {
	orgID, ok := h.orgID(w, r)
	if !ok || !h.authorizeOrganization(w, r, orgID, entity.RightsWriter) {
		return
	}

	var req entity.IngestionTaskQueue
	if err := decode(r, &req); err != nil {
		h.writeError(w, r, err, "")
		return
	}

	id, err := h.Ingestion.Create(r.Context(), orgID, req)
	if err != nil {
		h.writeError(w, r, err, "Failed to create ingestion task")
		return
	}
	writeJSON(w, http.StatusCreated, createTaskResponse{ID: id})
}

func (h *handler) deleteIngestionTask(w http.ResponseWriter, r *http.Request) {
	orgID, ok := h.orgID(w, r)
	if !ok || !h.authorizeOrganization(w, r, orgID, entity.RightsWriter) {
		return
	}

	taskID, err := parseUUID(chi.URLParam(r, "task_id"), "task_id")
	if err != nil {
		h.writeError(w, r, err, "")
		return
	}

	if err := h.Ingestion.Delete(r.Context(), orgID, taskID); err != nil {
		h.writeError(w, r, err, "Failed to delete ingestion task")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// updateIngestionTask is called by ingestion workers, authenticated by the
// shared ingestion key rather than a user token.
func (h *handler) updateIngestionTask(w http.ResponseWriter, r *http.Request) {
	orgID, ok := h.orgID(w, r)
	if !ok {
		return
	}

	var task entity.IngestionTaskUpdate
	if err := decode(r, &task); err != nil {
		h.writeError(w, r, err, "")
		return
	}

	if err := h.Ingestion.Update(r.Context(), orgID, task); err != nil {
		h.writeError(w, r, err, "Failed to update ingestion task")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
