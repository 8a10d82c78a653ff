package apikey

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/blake2b"

	"ada-engine/internal/application/port/output"
	"ada-engine/internal/application/service"
	"ada-engine/internal/domain/entity"
)

const (
	KeyPrefix  = "ada_"
	keyEntropy = 32
)

var (
	ErrInvalidAPIKey       = errors.New("invalid or inactive api key")
	ErrInvalidIngestionKey = errors.New("invalid ingestion api key")
	ErrMissingSecret       = errors.New("backend secret key is not configured")
)

// Hasher derives the stored form of a key: keyed BLAKE2b-256, hex encoded.
type Hasher struct {
	key []byte
}

// NewHasher accepts secrets of any length; secrets longer than a BLAKE2b key
// are compressed first.
func NewHasher(secret string) (*Hasher, error) {
	if secret == "" {
		return nil, ErrMissingSecret
	}
	key := []byte(secret)
	if len(key) > blake2b.Size {
		sum := blake2b.Sum256(key)
		key = sum[:]
	}
	return &Hasher{key: key}, nil
}

func (h *Hasher) Hash(raw string) string {
	mac, err := blake2b.New256(h.key)
	if err != nil {
		// Key length is bounded in NewHasher.
		panic(err)
	}
	mac.Write([]byte(raw))
	return hex.EncodeToString(mac.Sum(nil))
}

type Service struct {
	repo            output.APIKeyRepository
	hasher          *Hasher
	ingestionHashed string
	logger          output.LoggerPort
	now             func() time.Time
}

func NewService(repo output.APIKeyRepository, hasher *Hasher, ingestionHashed string, logger output.LoggerPort) *Service {
	if logger == nil {
		logger = service.NopLogger{}
	}
	return &Service{
		repo:            repo,
		hasher:          hasher,
		ingestionHashed: strings.TrimSpace(ingestionHashed),
		logger:          logger,
		now:             time.Now,
	}
}

// Generate creates a key for the project. The private key is returned once
// and only its hash is stored.
func (s *Service) Generate(ctx context.Context, projectID uuid.UUID, name string, creatorID uuid.UUID) (*entity.APIKeyCreatedResponse, error) {
	secret := make([]byte, keyEntropy)
	if _, err := rand.Read(secret); err != nil {
		return nil, fmt.Errorf("generate api key: %w", err)
	}
	private := KeyPrefix + hex.EncodeToString(secret)

	key := entity.APIKey{
		ID:            uuid.New(),
		ProjectID:     projectID,
		Name:          name,
		HashedKey:     s.hasher.Hash(private),
		IsActive:      true,
		CreatorUserID: creatorID,
		CreatedAt:     s.now().UTC(),
	}
	if err := s.repo.Create(ctx, key); err != nil {
		return nil, fmt.Errorf("store api key: %w", err)
	}

	s.logger.Info("API key created", "key_id", key.ID, "project_id", projectID, "user_id", creatorID)
	return &entity.APIKeyCreatedResponse{PrivateKey: private, KeyID: key.ID}, nil
}

func (s *Service) List(ctx context.Context, projectID uuid.UUID) (*entity.APIKeyGetResponse, error) {
	keys, err := s.repo.ListActive(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("list api keys: %w", err)
	}

	infos := make([]entity.APIKeyInfo, 0, len(keys))
	for _, k := range keys {
		infos = append(infos, entity.APIKeyInfo{
			KeyID:         k.ID,
			KeyName:       k.Name,
			CreatorUserID: k.CreatorUserID,
			CreatedAt:     k.CreatedAt,
		})
	}
	return &entity.APIKeyGetResponse{ProjectID: projectID, APIKeys: infos}, nil
}

func (s *Service) Deactivate(ctx context.Context, projectID, keyID, revokerID uuid.UUID) (*entity.APIKeyDeleteResponse, error) {
	if err := s.repo.Deactivate(ctx, projectID, keyID, revokerID); err != nil {
		if errors.Is(err, entity.ErrAPIKeyNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("deactivate api key: %w", err)
	}

	s.logger.Info("API key deactivated", "key_id", keyID, "project_id", projectID, "user_id", revokerID)
	return &entity.APIKeyDeleteResponse{Message: "API key deleted successfully", KeyID: keyID}, nil
}

// Verify resolves a key sent in a header. Values pasted from shells often
// carry surrounding quotes or an escaped newline, both are normalised first.
func (s *Service) Verify(ctx context.Context, raw string) (*entity.VerifiedAPIKey, error) {
	cleaned := CleanKey(raw)
	if cleaned == "" {
		return nil, ErrInvalidAPIKey
	}

	key, err := s.repo.FindActiveByHash(ctx, s.hasher.Hash(cleaned))
	if err != nil {
		if errors.Is(err, entity.ErrAPIKeyNotFound) {
			return nil, ErrInvalidAPIKey
		}
		return nil, fmt.Errorf("verify api key: %w", err)
	}
	if !key.IsActive {
		return nil, ErrInvalidAPIKey
	}

	return &entity.VerifiedAPIKey{KeyID: key.ID, ProjectID: key.ProjectID}, nil
}

func CleanKey(raw string) string {
	return strings.Trim(strings.ReplaceAll(raw, `\n`, "\n"), `"`)
}

func (s *Service) HashIngestionKey(raw string) string {
	return s.hasher.Hash(CleanKey(raw))
}

// VerifyIngestionKey compares in constant time with the configured hash.
func (s *Service) VerifyIngestionKey(raw string) error {
	if s.ingestionHashed == "" || raw == "" {
		return ErrInvalidIngestionKey
	}
	got := s.HashIngestionKey(raw)
	if subtle.ConstantTimeCompare([]byte(got), []byte(s.ingestionHashed)) != 1 {
		return ErrInvalidIngestionKey
	}
	return nil
}
