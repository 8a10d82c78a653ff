package ingestion

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"ada-engine/internal/application/port/output"
	"ada-engine/internal/application/service"
	"ada-engine/internal/domain/entity"
)

var ErrInvalidTask = errors.New("invalid ingestion task")

type Service struct {
	tasks  output.IngestionTaskRepository
	queue  output.IngestionQueue
	logger output.LoggerPort
}

func NewService(tasks output.IngestionTaskRepository, queue output.IngestionQueue, logger output.LoggerPort) *Service {
	if logger == nil {
		logger = service.NopLogger{}
	}
	return &Service{tasks: tasks, queue: queue, logger: logger}
}

// Create stores the task as pending and hands it to the ingestion workers.
// The status sent by the caller is ignored.
func (s *Service) Create(ctx context.Context, orgID uuid.UUID, req entity.IngestionTaskQueue) (uuid.UUID, error) {
	if strings.TrimSpace(req.SourceName) == "" {
		return uuid.Nil, fmt.Errorf("%w: source_name is required", ErrInvalidTask)
	}
	if !req.SourceType.Valid() {
		return uuid.Nil, fmt.Errorf("%w: unknown source_type %q", ErrInvalidTask, req.SourceType)
	}

	task := entity.IngestionTaskUpdate{
		IngestionTask: entity.IngestionTask{
			SourceName: req.SourceName,
			SourceType: req.SourceType,
			Status:     entity.TaskStatusPending,
		},
		ID: uuid.New(),
	}
	if err := s.tasks.Create(ctx, orgID, task); err != nil {
		return uuid.Nil, fmt.Errorf("store ingestion task: %w", err)
	}

	msg := entity.IngestionQueueMessage{
		TaskID:           task.ID,
		OrganizationID:   orgID,
		SourceName:       req.SourceName,
		SourceType:       req.SourceType,
		SourceAttributes: req.SourceAttributes,
	}
	if err := s.queue.Enqueue(ctx, msg); err != nil {
		s.logger.Error("Failed to enqueue ingestion task", "task_id", task.ID, "organization_id", orgID, "error", err)
		// A task nobody will ever pick up must not stay pending.
		if derr := s.tasks.Delete(context.WithoutCancel(ctx), orgID, task.ID); derr != nil {
			s.logger.Error("Failed to remove unqueued ingestion task", "task_id", task.ID, "organization_id", orgID, "error", derr)
			return uuid.Nil, errors.Join(fmt.Errorf("enqueue ingestion task: %w", err), fmt.Errorf("remove ingestion task: %w", derr))
		}
		return uuid.Nil, fmt.Errorf("enqueue ingestion task: %w", err)
	}

	s.logger.Info("Ingestion task created", "task_id", task.ID, "organization_id", orgID, "source_type", req.SourceType)
	return task.ID, nil
}

func (s *Service) List(ctx context.Context, orgID uuid.UUID) ([]entity.IngestionTaskResponse, error) {
	tasks, err := s.tasks.List(ctx, orgID)
	if err != nil {
		return nil, fmt.Errorf("list ingestion tasks: %w", err)
	}
	if tasks == nil {
		tasks = []entity.IngestionTaskResponse{}
	}
	return tasks, nil
}

// Update is called by ingestion workers to report progress.
func (s *Service) Update(ctx context.Context, orgID uuid.UUID, task entity.IngestionTaskUpdate) error {
	if task.ID == uuid.Nil {
		return fmt.Errorf("%w: id is required", ErrInvalidTask)
	}
	if !task.Status.Valid() {
		return fmt.Errorf("%w: unknown status %q", ErrInvalidTask, task.Status)
	}
	if !task.SourceType.Valid() {
		return fmt.Errorf("%w: unknown source_type %q", ErrInvalidTask, task.SourceType)
	}

	if err := s.tasks.Update(ctx, orgID, task); err != nil {
		if errors.Is(err, entity.ErrTaskNotFound) {
			return err
		}
		return fmt.Errorf("update ingestion task: %w", err)
	}

	s.logger.Info("Ingestion task updated", "task_id", task.ID, "organization_id", orgID, "status", task.Status)
	return nil
}

func (s *Service) Delete(ctx context.Context, orgID, taskID uuid.UUID) error {
	if err := s.tasks.Delete(ctx, orgID, taskID); err != nil {
		if errors.Is(err, entity.ErrTaskNotFound) {
			return err
		}
		return fmt.Errorf("delete ingestion task: %w", err)
	}
	s.logger.Info("Ingestion task deleted", "task_id", taskID, "organization_id", orgID)
	return nil
}
