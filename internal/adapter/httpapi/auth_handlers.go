package httpapi

import (
	"errors"
	"net/http"

	"github.com/google/uuid"

	"ada-engine/internal/domain/entity"
	"ada-engine/internal/usecase/access"
)

// authorizeProject writes the response itself and returns false when the
// current user may not act on projectID.
func (h *handler) authorizeProject(w http.ResponseWriter, r *http.Request, projectID uuid.UUID, rights entity.UserRights) bool {
	user := userFrom(r.Context())
	if user == nil || user.ID == uuid.Nil {
		writeDetail(w, http.StatusBadRequest, "User ID not found")
		return false
	}

	if _, err := h.Access.RequireProject(r.Context(), user, projectID, rights); err != nil {
		if errors.Is(err, access.ErrForbidden) || errors.Is(err, entity.ErrNoOrganizationAccess) {
			writeDetail(w, http.StatusForbidden, "You don't have access to this project")
			return false
		}
		h.writeError(w, r, err, "Failed to check project access")
		return false
	}
	return true
}

func (h *handler) authorizeOrganization(w http.ResponseWriter, r *http.Request, orgID uuid.UUID, rights entity.UserRights) bool {
	user := userFrom(r.Context())
	if user == nil || user.ID == uuid.Nil {
		writeDetail(w, http.StatusBadRequest, "User ID not found")
		return false
	}

	if _, err := h.Access.RequireOrganization(r.Context(), user, orgID, rights); err != nil {
		if errors.Is(err, access.ErrForbidden) || errors.Is(err, entity.ErrNoOrganizationAccess) {
			writeDetail(w, http.StatusForbidden, "You don't have access to this organization")
			return false
		}
		h.writeError(w, r, err, "Failed to check organization access")
		return false
	}
	return true
}

func (h *handler) listAPIKeys(w http.ResponseWriter, r *http.Request) {
	projectID, err := parseUUID(r.URL.Query().Get("project_id"), "project_id")
	if err != nil {
		h.writeError(w, r, err, "")
		return
	}
	if !h.authorizeProject(w, r, projectID, entity.RightsUser) {
		return
	}

	resp, err := h.APIKeys.List(r.Context(), projectID)
	if err != nil {
		h.writeError(w, r, err, "Failed to get API keys")
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *handler) createAPIKey(w http.ResponseWriter, r *http.Request) {
	var req entity.APIKeyCreateRequest
	if err := decode(r, &req); err != nil {
		h.writeError(w, r, err, "")
		return
	}
	if req.ProjectID == uuid.Nil {
		writeDetail(w, http.StatusBadRequest, "project_id is required")
		return
	}
	if !h.authorizeProject(w, r, req.ProjectID, entity.RightsUser) {
		return
	}

	resp, err := h.APIKeys.Generate(r.Context(), req.ProjectID, req.KeyName, userFrom(r.Context()).ID)
	if err != nil {
		h.writeError(w, r, err, "Failed to create API key")
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *handler) deleteAPIKey(w http.ResponseWriter, r *http.Request) {
	projectID, err := parseUUID(r.URL.Query().Get("project_id"), "project_id")
	if err != nil {
		h.writeError(w, r, err, "")
		return
	}
	if !h.authorizeProject(w, r, projectID, entity.RightsAdmin) {
		return
	}

	var req entity.APIKeyDeleteRequest
	if err := decode(r, &req); err != nil {
		h.writeError(w, r, err, "")
		return
	}

	resp, err := h.APIKeys.Deactivate(r.Context(), projectID, req.KeyID, userFrom(r.Context()).ID)
	if err != nil {
		h.writeError(w, r, err, "Failed to delete API key")
		return
	}
	writeJSON(w, http.StatusOK, resp)
}
