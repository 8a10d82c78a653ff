package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"ada-engine/internal/application/port/output"
	"ada-engine/internal/domain/entity"
)

var _ output.IngestionTaskRepository = (*IngestionTaskStore)(nil)

type IngestionTaskStore struct {
	db *sql.DB
}

func NewIngestionTaskStore(db *sql.DB) *IngestionTaskStore {
	return &IngestionTaskStore{db: db}
}

func (s *IngestionTaskStore) Create(ctx context.Context, orgID uuid.UUID, task entity.IngestionTaskUpdate) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO ingestion_tasks (id, organization_id, source_id, source_name, source_type, status)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		task.ID, orgID, nullUUID(task.SourceID), task.SourceName, string(task.SourceType), string(task.Status))
	if err != nil {
		return fmt.Errorf("failed to insert ingestion task: %w", err)
	}
	return nil
}

func (s *IngestionTaskStore) List(ctx context.Context, orgID uuid.UUID) ([]entity.IngestionTaskResponse, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, source_id, source_name, source_type, status, created_at, updated_at
		FROM ingestion_tasks WHERE organization_id = $1 ORDER BY created_at DESC`,
		orgID)
	if err != nil {
		return nil, fmt.Errorf("failed to list ingestion tasks: %w", err)
	}
	defer rows.Close()

	var tasks []entity.IngestionTaskResponse
	for rows.Next() {
		var (
			t          entity.IngestionTaskResponse
			sourceID   uuid.NullUUID
			sourceType string
			status     string
			created    sql.NullTime
			updated    sql.NullTime
		)
		if err := rows.Scan(&t.ID, &sourceID, &t.SourceName, &sourceType, &status, &created, &updated); err != nil {
			return nil, fmt.Errorf("failed to scan ingestion task: %w", err)
		}
		t.SourceType = entity.SourceType(sourceType)
		t.Status = entity.TaskStatus(status)
		if sourceID.Valid {
			t.SourceID = &sourceID.UUID
		}
		if created.Valid {
			t.CreatedAt = &created.Time
		}
		if updated.Valid {
			t.UpdatedAt = &updated.Time
		}
		tasks = append(tasks, t)
	}
	return tasks, rows.Err()
}

func (s *IngestionTaskStore) Update(ctx context.Context, orgID uuid.UUID, task entity.IngestionTaskUpdate) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE ingestion_tasks
		SET source_id = COALESCE($3, source_id), source_name = $4, source_type = $5, status = $6, updated_at = NOW()
		WHERE id = $1 AND organization_id = $2`,
		task.ID, orgID, nullUUID(task.SourceID), task.SourceName, string(task.SourceType), string(task.Status))
	if err != nil {
		return fmt.Errorf("failed to update ingestion task: %w", err)
	}
	return expectAffected(res, entity.ErrTaskNotFound)
}

func (s *IngestionTaskStore) Delete(ctx context.Context, orgID, taskID uuid.UUID) error {
	res, err := s.db.ExecContext(ctx,
		"DELETE FROM ingestion_tasks WHERE id = $1 AND organization_id = $2", taskID, orgID)
	if err != nil {
		return fmt.Errorf("failed to delete ingestion task: %w", err)
	}
	return expectAffected(res, entity.ErrTaskNotFound)
}

func nullUUID(id *uuid.UUID) uuid.NullUUID {
	if id == nil {
		return uuid.NullUUID{}
	}
	return uuid.NullUUID{UUID: *id, Valid: true}
}
