package output

import (
	"context"

	"github.com/google/uuid"

	"ada-engine/internal/domain/entity"
)

type IdentityProvider interface {
	Authenticate(ctx context.Context, token string) (*entity.User, error)
	OrganizationRole(ctx context.Context, user *entity.User, orgID uuid.UUID) (entity.Role, error)
}
