package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"ada-engine/internal/application/port/output"
	"ada-engine/internal/domain/entity"
)

var _ output.ProjectRepository = (*ProjectStore)(nil)

type ProjectStore struct {
	db *sql.DB
}

func NewProjectStore(db *sql.DB) *ProjectStore {
	return &ProjectStore{db: db}
}

func (s *ProjectStore) Get(ctx context.Context, projectID uuid.UUID) (*entity.Project, error) {
	row := s.db.QueryRowContext(ctx,
		"SELECT id, name, organization_id FROM projects WHERE id = $1", projectID)

	var p entity.Project
	err := row.Scan(&p.ID, &p.Name, &p.OrganizationID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, entity.ErrProjectNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get project: %w", err)
	}
	return &p, nil
}
