package output

import (
	"context"

	"github.com/google/uuid"

	"ada-engine/internal/domain/entity"
)

type APIKeyRepository interface {
	Create(ctx context.Context, key entity.APIKey) error
	ListActive(ctx context.Context, projectID uuid.UUID) ([]entity.APIKey, error)
	FindActiveByHash(ctx context.Context, hashedKey string) (*entity.APIKey, error)
	// Deactivate returns entity.ErrAPIKeyNotFound unless an active key with
	// keyID belongs to projectID.
	Deactivate(ctx context.Context, projectID, keyID, revokerID uuid.UUID) error
}

type ProjectRepository interface {
	Get(ctx context.Context, projectID uuid.UUID) (*entity.Project, error)
}

type IngestionTaskRepository interface {
	Create(ctx context.Context, orgID uuid.UUID, task entity.IngestionTaskUpdate) error
	List(ctx context.Context, orgID uuid.UUID) ([]entity.IngestionTaskResponse, error)
	Update(ctx context.Context, orgID uuid.UUID, task entity.IngestionTaskUpdate) error
	Delete(ctx context.Context, orgID, taskID uuid.UUID) error
}

type IngestionQueue interface {
	Enqueue(ctx context.Context, msg entity.IngestionQueueMessage) error
}
