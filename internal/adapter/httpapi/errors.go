package httpapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"

	"ada-engine/internal/domain/entity"
	"ada-engine/internal/usecase/access"
	"ada-engine/internal/usecase/apikey"
	"ada-engine/internal/usecase/ingestion"
	"ada-engine/internal/usecase/pipeline"
)

var (
	errInvalidBody = errors.New("invalid request body")
	errBodyTooBig  = errors.New("request body too large")
)

type errorResponse struct {
	Detail string `json:"detail"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeDetail(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, errorResponse{Detail: detail})
}

// statusFor maps domain errors to a status and a user-facing detail.
// Anything unrecognised becomes a 500 carrying fallback.
func statusFor(err error, fallback string) (int, string) {
	switch {
	case errors.Is(err, errBodyTooBig):
		return http.StatusRequestEntityTooLarge, "Request body too large"
	case errors.Is(err, errInvalidBody), errors.Is(err, ingestion.ErrInvalidTask):
		return http.StatusBadRequest, err.Error()
	case errors.Is(err, entity.ErrUnauthenticated):
		return http.StatusUnauthorized, "Failed to validate Supabase token"
	case errors.Is(err, apikey.ErrInvalidAPIKey):
		return http.StatusUnauthorized, "Invalid API key"
	case errors.Is(err, apikey.ErrInvalidIngestionKey):
		return http.StatusUnauthorized, "Invalid ingestion API key"
	case errors.Is(err, entity.ErrNoOrganizationAccess), errors.Is(err, access.ErrForbidden):
		return http.StatusForbidden, "You don't have access to this resource"
	case errors.Is(err, entity.ErrProjectNotFound):
		return http.StatusNotFound, "Project not found"
	case errors.Is(err, entity.ErrAPIKeyNotFound):
		return http.StatusNotFound, "API key not found"
	case errors.Is(err, entity.ErrTaskNotFound):
		return http.StatusNotFound, "Ingestion task not found"
	case errors.Is(err, pipeline.ErrPipelineNotFound):
		return http.StatusNotFound, "No pipeline configured for this project"
	}
	return http.StatusInternalServerError, fallback
}

func (h *handler) writeError(w http.ResponseWriter, r *http.Request, err error, fallback string) {
	status, detail := statusFor(err, fallback)
	if status >= http.StatusInternalServerError {
		h.Logger.Error(fallback, "error", err, "path", r.URL.Path, "request_id", middleware.GetReqID(r.Context()))
	}
	writeDetail(w, status, detail)
}

func decode(r *http.Request, v any) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			return errBodyTooBig
		}
		return fmt.Errorf("%w: %v", errInvalidBody, err)
	}
	return nil
}

func parseUUID(raw, name string) (uuid.UUID, error) {
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, fmt.Errorf("%w: %s must be a UUID", errInvalidBody, name)
	}
	return id, nil
}
