package httpapi

import (
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	"ada-engine/internal/application/service"
	"ada-engine/internal/domain/entity"
)

type runRequest struct {
	Messages []entity.Message `json:"messages"`
}

func (r runRequest) validate() error {
	if len(r.Messages) == 0 {
		return fmt.Errorf("%w: messages must not be empty", errInvalidBody)
	}
	for i, m := range r.Messages {
		if !m.Role.Valid() {
			return fmt.Errorf("%w: messages[%d] has unknown role %q", errInvalidBody, i, m.Role)
		}
	}
	return nil
}

func (h *handler) runPipeline(w http.ResponseWriter, r *http.Request) {
	projectID, err := parseUUID(chi.URLParam(r, "project_id"), "project_id")
	if err != nil {
		h.writeError(w, r, err, "")
		return
	}

	key := apiKeyFrom(r.Context())
	if key == nil || key.ProjectID != projectID {
		writeDetail(w, http.StatusForbidden, "You don't have access to this project")
		return
	}

	var req runRequest
	if err := decode(r, &req); err != nil {
		h.writeError(w, r, err, "")
		return
	}
	if err := req.validate(); err != nil {
		h.writeError(w, r, err, "")
		return
	}

	agent, err := h.Pipelines.For(projectID.String())
	if err != nil {
		h.writeError(w, r, err, "Failed to load pipeline")
		return
	}

	ctx := service.WithProjectID(r.Context(), projectID.String())
	result, err := agent.Execute(ctx, entity.NewAgentPayload(req.Messages...))
	if err != nil {
		h.Logger.Error("Pipeline run failed", "project_id", projectID, "api_key_id", key.KeyID, "error", err)
		writeDetail(w, http.StatusInternalServerError, "Failed to run pipeline")
		return
	}

	h.Logger.Info("Pipeline run finished", "project_id", projectID, "api_key_id", key.KeyID, "is_final", result.IsFinal, "messages", len(result.Messages))
	writeJSON(w, http.StatusOK, result)
}
