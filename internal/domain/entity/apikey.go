package entity

import (
	"time"

	"github.com/google/uuid"
)

type APIKey struct {
	ID            uuid.UUID
	ProjectID     uuid.UUID
	Name          string
	HashedKey     string
	IsActive      bool
	CreatorUserID uuid.UUID
	RevokerUserID *uuid.UUID
	CreatedAt     time.Time
}

type VerifiedAPIKey struct {
	KeyID     uuid.UUID `json:"api_key_id"`
	ProjectID uuid.UUID `json:"project_id"`
}

type APIKeyCreateRequest struct {
	ProjectID uuid.UUID `json:"project_id"`
	KeyName   string    `json:"key_name"`
}

type APIKeyCreatedResponse struct {
	PrivateKey string    `json:"private_key"`
	KeyID      uuid.UUID `json:"key_id"`
}

type APIKeyInfo struct {
	KeyID         uuid.UUID `json:"key_id"`
	KeyName       string    `json:"key_name"`
	CreatorUserID uuid.UUID `json:"creator_user_id"`
	CreatedAt     time.Time `json:"created_at"`
}

type APIKeyGetResponse struct {
	ProjectID uuid.UUID    `json:"project_id"`
	APIKeys   []APIKeyInfo `json:"api_keys"`
}

type APIKeyDeleteRequest struct {
	KeyID uuid.UUID `json:"key_id"`
}

type APIKeyDeleteResponse struct {
	Message string    `json:"message"`
	KeyID   uuid.UUID `json:"key_id"`
}
