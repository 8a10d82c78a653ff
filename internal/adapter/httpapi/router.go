// Package httpapi exposes API key management, pipeline runs and ingestion
// task tracking over HTTP.
package httpapi

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/httplog"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"ada-engine/internal/application/port/input"
	"ada-engine/internal/application/port/output"
	"ada-engine/internal/application/service"
	"ada-engine/internal/domain/entity"
)

type Identity interface {
	Authenticate(ctx context.Context, token string) (*entity.User, error)
}

type Access interface {
	RequireProject(ctx context.Context, user *entity.User, projectID uuid.UUID, rights entity.UserRights) (*entity.Project, error)
	RequireOrganization(ctx context.Context, user *entity.User, orgID uuid.UUID, rights entity.UserRights) (entity.Role, error)
}

type APIKeys interface {
	Generate(ctx context.Context, projectID uuid.UUID, name string, creatorID uuid.UUID) (*entity.APIKeyCreatedResponse, error)
	List(ctx context.Context, projectID uuid.UUID) (*entity.APIKeyGetResponse, error)
	Deactivate(ctx context.Context, projectID, keyID, revokerID uuid.UUID) (*entity.APIKeyDeleteResponse, error)
	Verify(ctx context.Context, raw string) (*entity.VerifiedAPIKey, error)
	VerifyIngestionKey(raw string) error
}

type IngestionTasks interface {
	Create(ctx context.Context, orgID uuid.UUID, req entity.IngestionTaskQueue) (uuid.UUID, error)
	List(ctx context.Context, orgID uuid.UUID) ([]entity.IngestionTaskResponse, error)
	Update(ctx context.Context, orgID uuid.UUID, task entity.IngestionTaskUpdate) error
	Delete(ctx context.Context, orgID, taskID uuid.UUID) error
}

type Deps struct {
	Identity  Identity
	Access    Access
	APIKeys   APIKeys
	Ingestion IngestionTasks
	Pipelines input.PipelineResolver
	Logger    output.LoggerPort
}

type Options struct {
	// AccessLog is optional; requests are not logged without it.
	AccessLog *zerolog.Logger
	// QuietRoutes are paths left out of the access log.
	QuietRoutes    []string
	RateLimitRPS   float64
	RateLimitBurst int
	MaxBodyBytes   int64
}

type handler struct {
	Deps
}

func NewRouter(deps Deps, opts Options) http.Handler {
	if deps.Logger == nil {
		deps.Logger = service.NopLogger{}
	}
	h := &handler{Deps: deps}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	if opts.AccessLog != nil {
		r.Use(httplog.Handler(*opts.AccessLog, opts.QuietRoutes))
	}
	r.Use(middleware.Recoverer)
	if opts.RateLimitRPS > 0 {
		r.Use(newIPLimiter(opts.RateLimitRPS, opts.RateLimitBurst).middleware)
	}
	if opts.MaxBodyBytes > 0 {
		r.Use(limitBody(opts.MaxBodyBytes))
	}

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeDetail(w, http.StatusNotFound, "Not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		writeDetail(w, http.StatusMethodNotAllowed, "Method not allowed")
	})

	r.Get("/health", h.health)

	r.Route("/auth/api-key", func(r chi.Router) {
		r.Use(h.requireUser)
		r.Get("/", h.listAPIKeys)
		r.Post("/", h.createAPIKey)
		r.Delete("/", h.deleteAPIKey)
	})

	r.With(h.requireAPIKey).Post("/projects/{project_id}/run", h.runPipeline)

	r.Route("/ingestion_task/{organization_id}", func(r chi.Router) {
		r.With(h.requireUser).Get("/", h.listIngestionTasks)
		r.With(h.requireUser).Post("/", h.createIngestionTask)
		r.With(h.requireUser).Delete("/{task_id}", h.deleteIngestionTask)
		r.With(h.requireIngestionKey).Patch("/", h.updateIngestionTask)
	})

	return r
}

func (h *handler) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
