package entity

import (
	"time"

	"github.com/google/uuid"
)

type TaskStatus string

const (
	TaskStatusPending   TaskStatus = "pending"
	TaskStatusRunning   TaskStatus = "running"
	TaskStatusCompleted TaskStatus = "completed"
	TaskStatusFailed    TaskStatus = "failed"
)

func (s TaskStatus) Valid() bool {
	switch s {
	case TaskStatusPending, TaskStatusRunning, TaskStatusCompleted, TaskStatusFailed:
		return true
	}
	return false
}

type SourceType string

const (
	SourceTypeGoogleDrive SourceType = "google_drive"
	SourceTypeLocal       SourceType = "local"
	SourceTypeDatabase    SourceType = "database"
)

func (s SourceType) Valid() bool {
	switch s {
	case SourceTypeGoogleDrive, SourceTypeLocal, SourceTypeDatabase:
		return true
	}
	return false
}

// IngestionTask tracks one source being ingested for an organization.
type IngestionTask struct {
	SourceName string     `json:"source_name"`
	SourceType SourceType `json:"source_type"`
	Status     TaskStatus `json:"status"`
}

type SourceAttributes struct {
	AccessToken         *string  `json:"access_token,omitempty"`
	Path                *string  `json:"path,omitempty"`
	FolderID            *string  `json:"folder_id,omitempty"`
	SourceDBURL         *string  `json:"source_db_url,omitempty"`
	SourceTableName     *string  `json:"source_table_name,omitempty"`
	IDColumnName        *string  `json:"id_column_name,omitempty"`
	TextColumnNames     []string `json:"text_column_names,omitempty"`
	SourceSchemaName    *string  `json:"source_schema_name,omitempty"`
	MetadataColumnNames []string `json:"metadata_column_names,omitempty"`
	TimestampColumnName *string  `json:"timestamp_column_name,omitempty"`
	IsSyncEnabled       bool     `json:"is_sync_enabled"`
}

type IngestionTaskUpdate struct {
	IngestionTask
	ID       uuid.UUID  `json:"id"`
	SourceID *uuid.UUID `json:"source_id,omitempty"`
}

type IngestionTaskResponse struct {
	IngestionTaskUpdate
	CreatedAt *time.Time `json:"created_at,omitempty"`
	UpdatedAt *time.Time `json:"updated_at,omitempty"`
}

type IngestionTaskQueue struct {
	IngestionTask
	SourceAttributes SourceAttributes `json:"source_attributes"`
}

// IngestionQueueMessage is the job handed to ingestion workers.
type IngestionQueueMessage struct {
	TaskID           uuid.UUID        `json:"task_id"`
	OrganizationID   uuid.UUID        `json:"organization_id"`
	SourceName       string           `json:"source_name"`
	SourceType       SourceType       `json:"source_type"`
	SourceAttributes SourceAttributes `json:"source_attributes"`
}
