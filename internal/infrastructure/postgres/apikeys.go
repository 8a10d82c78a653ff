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

var _ output.APIKeyRepository = (*APIKeyStore)(nil)

type APIKeyStore struct {
	db *sql.DB
}

func NewAPIKeyStore(db *sql.DB) *APIKeyStore {
	return &APIKeyStore{db: db}
}

func (s *APIKeyStore) Create(ctx context.Context, key entity.APIKey) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO api_keys (id, project_id, name, hashed_key, is_active, creator_user_id, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		key.ID, key.ProjectID, key.Name, key.HashedKey, key.IsActive, key.CreatorUserID, key.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert api key: %w", err)
	}
	return nil
}

func (s *APIKeyStore) ListActive(ctx context.Context, projectID uuid.UUID) ([]entity.APIKey, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, project_id, name, hashed_key, is_active, creator_user_id, revoker_user_id, created_at
		FROM api_keys WHERE project_id = $1 AND is_active ORDER BY created_at`,
		projectID)
	if err != nil {
		return nil, fmt.Errorf("failed to list api keys: %w", err)
	}
	defer rows.Close()

	var keys []entity.APIKey
	for rows.Next() {
		k, err := scanAPIKey(rows)
		if err != nil {
			return nil, err
		}
		keys = append(keys, *k)
	}
	return keys, rows.Err()
}

func (s *APIKeyStore) FindActiveByHash(ctx context.Context, hashedKey string) (*entity.APIKey, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, project_id, name, hashed_key, is_active, creator_user_id, revoker_user_id, created_at
		FROM api_keys WHERE hashed_key = $1 AND is_active`,
		hashedKey)

	k, err := scanAPIKey(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, entity.ErrAPIKeyNotFound
	}
	return k, err
}

func (s *APIKeyStore) Deactivate(ctx context.Context, projectID, keyID, revokerID uuid.UUID) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE api_keys SET is_active = FALSE, revoker_user_id = $3, revoked_at = NOW()
		WHERE id = $1 AND project_id = $2 AND is_active`,
		keyID, projectID, revokerID)
	if err != nil {
		return fmt.Errorf("failed to deactivate api key: %w", err)
	}
	return expectAffected(res, entity.ErrAPIKeyNotFound)
}

type scanner interface {
	Scan(dest ...any) error
}

func scanAPIKey(row scanner) (*entity.APIKey, error) {
	var (
		k       entity.APIKey
		revoker uuid.NullUUID
	)
	err := row.Scan(&k.ID, &k.ProjectID, &k.Name, &k.HashedKey, &k.IsActive, &k.CreatorUserID, &revoker, &k.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to scan api key: %w", err)
	}
	if revoker.Valid {
		k.RevokerUserID = &revoker.UUID
	}
	return &k, nil
}

func expectAffected(res sql.Result, notFound error) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if n == 0 {
		return notFound
	}
	return nil
}
