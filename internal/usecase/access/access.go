package access

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"ada-engine/internal/application/port/output"
	"ada-engine/internal/application/service"
	"ada-engine/internal/domain/entity"
)

var ErrForbidden = errors.New("insufficient role for this action")

// Checker decides whether a user may act on a project or organization based
// on their organization role.
type Checker struct {
	projects output.ProjectRepository
	identity output.IdentityProvider
	logger   output.LoggerPort
}

func NewChecker(projects output.ProjectRepository, identity output.IdentityProvider, logger output.LoggerPort) *Checker {
	if logger == nil {
		logger = service.NopLogger{}
	}
	return &Checker{projects: projects, identity: identity, logger: logger}
}

// RequireProject returns the project when the user's role in the owning
// organization is in rights.
func (c *Checker) RequireProject(ctx context.Context, user *entity.User, projectID uuid.UUID, rights entity.UserRights) (*entity.Project, error) {
	project, err := c.projects.Get(ctx, projectID)
	if err != nil {
		if errors.Is(err, entity.ErrProjectNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("load project: %w", err)
	}

	if _, err := c.RequireOrganization(ctx, user, project.OrganizationID, rights); err != nil {
		return nil, err
	}
	return project, nil
}

func (c *Checker) RequireOrganization(ctx context.Context, user *entity.User, orgID uuid.UUID, rights entity.UserRights) (entity.Role, error) {
	role, err := c.identity.OrganizationRole(ctx, user, orgID)
	if err != nil {
		c.logger.Warn("Organization access denied", "user_id", user.ID, "organization_id", orgID, "error", err)
		if errors.Is(err, entity.ErrNoOrganizationAccess) {
			return "", err
		}
		return "", fmt.Errorf("resolve organization role: %w", err)
	}

	if !rights.Allows(role) {
		c.logger.Warn("Insufficient role", "user_id", user.ID, "organization_id", orgID, "role", role)
		return role, fmt.Errorf("%w: role %q", ErrForbidden, role)
	}

	c.logger.Debug("Access granted", "user_id", user.ID, "organization_id", orgID, "role", role)
	return role, nil
}
