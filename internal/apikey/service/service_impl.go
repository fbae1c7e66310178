package service

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	apikeydomain "github.com/smallbiznis/karat/internal/apikey/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	apiKeyPrefix              = "kt_live_key_"
	apiKeySecretBytes         = 32
	apiKeyRotationGracePeriod = 24 * time.Hour
	lastUsedResolution        = time.Minute
)

type Params struct {
	fx.In

	DB    *gorm.DB
	Log   *zap.Logger
	GenID *snowflake.Node
	Repo  apikeydomain.Repository
}

type Service struct {
	db    *gorm.DB
	log   *zap.Logger
	repo  apikeydomain.Repository
	genID *snowflake.Node
}

func New(p Params) apikeydomain.Service {
	return &Service{
		db:    p.DB,
		log:   p.Log.Named("apikey.service"),
		repo:  p.Repo,
		genID: p.GenID,
	}
}

func (s *Service) List(ctx context.Context) ([]apikeydomain.Response, error) {
	items, err := s.repo.List(ctx, s.db)
	if err != nil {
		return nil, err
	}

	resp := make([]apikeydomain.Response, 0, len(items))
	for i := range items {
		resp = append(resp, s.toResponse(&items[i]))
	}

	return resp, nil
}

func (s *Service) Create(ctx context.Context, req apikeydomain.CreateRequest) (*apikeydomain.SecretResponse, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, apikeydomain.ErrInvalidName
	}
	role := strings.ToLower(strings.TrimSpace(req.Role))
	if role == "" {
		role = apikeydomain.RoleViewer
	}
	if !apikeydomain.ValidRole(role) {
		return nil, apikeydomain.ErrInvalidRole
	}

	id := s.genID.Generate()
	keyID := newKeyID(id)
	plain, err := generateAPIKey(keyID)
	if err != nil {
		return nil, err
	}

	key := s.newKey(id, keyID, name, role, plain)
	if err := s.repo.Insert(ctx, s.db, key); err != nil {
		return nil, err
	}

	s.log.Info("api key created", zap.String("key_id", key.KeyID), zap.String("role", role))
	return &apikeydomain.SecretResponse{KeyID: key.KeyID, Role: role, APIKey: plain}, nil
}

func (s *Service) Rotate(ctx context.Context, keyID string) (*apikeydomain.SecretResponse, error) {
	trimmed := strings.TrimSpace(keyID)
	if trimmed == "" {
		return nil, apikeydomain.ErrInvalidKeyID
	}

	var result *apikeydomain.SecretResponse
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		current, err := s.repo.FindByKeyID(ctx, tx, trimmed)
		if err != nil {
			return err
		}
		if current == nil || !current.Usable(time.Now().UTC()) {
			return apikeydomain.ErrNotFound
		}

		now := time.Now().UTC()
		current.ExpiresAt = ptrTime(now.Add(apiKeyRotationGracePeriod))
		current.UpdatedAt = now
		if err := s.repo.Update(ctx, tx, current); err != nil {
			return err
		}

		id := s.genID.Generate()
		newKeyID := newKeyID(id)
		plain, err := generateAPIKey(newKeyID)
		if err != nil {
			return err
		}

		rotatedFrom := current.KeyID
		next := s.newKey(id, newKeyID, current.Name, current.Role, plain)
		next.RotatedFromKeyID = &rotatedFrom
		if err := s.repo.Insert(ctx, tx, next); err != nil {
			return err
		}

		result = &apikeydomain.SecretResponse{KeyID: next.KeyID, Role: next.Role, APIKey: plain}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return result, nil
}

func (s *Service) Revoke(ctx context.Context, keyID string) error {
	trimmed := strings.TrimSpace(keyID)
	if trimmed == "" {
		return apikeydomain.ErrInvalidKeyID
	}

	key, err := s.repo.FindByKeyID(ctx, s.db, trimmed)
	if err != nil {
		return err
	}
	if key == nil {
		return apikeydomain.ErrNotFound
	}

	now := time.Now().UTC()
	key.IsActive = false
	key.UpdatedAt = now
	if key.ExpiresAt == nil || key.ExpiresAt.After(now) {
		key.ExpiresAt = &now
	}
	return s.repo.Update(ctx, s.db, key)
}

func (s *Service) Authenticate(ctx context.Context, raw string) (*apikeydomain.APIKey, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, apikeydomain.ErrInvalidAPIKey
	}

	key, err := s.repo.FindByHash(ctx, s.db, apikeydomain.HashAPIKey(raw))
	if err != nil {
		return nil, err
	}
	now := time.Now().UTC()
	if key == nil || !key.Usable(now) {
		return nil, apikeydomain.ErrInvalidAPIKey
	}

	if key.LastUsedAt == nil || now.Sub(*key.LastUsedAt) >= lastUsedResolution {
		if err := s.repo.TouchLastUsed(ctx, s.db, key.ID, now); err != nil {
			s.log.Warn("failed to record api key usage", zap.String("key_id", key.KeyID), zap.Error(err))
		}
	}
	return key, nil
}

func (s *Service) EnsureBootstrap(ctx context.Context, raw string) (bool, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return false, nil
	}

	existing, err := s.repo.FindByHash(ctx, s.db, apikeydomain.HashAPIKey(raw))
	if err != nil {
		return false, err
	}
	if existing != nil {
		return false, nil
	}

	id := s.genID.Generate()
	key := s.newKey(id, newKeyID(id), apikeydomain.BootstrapKeyName, apikeydomain.RoleAdmin, raw)
	if err := s.repo.Insert(ctx, s.db, key); err != nil {
		return false, err
	}
	s.log.Info("bootstrap api key stored", zap.String("key_id", key.KeyID))
	return true, nil
}

func (s *Service) newKey(id snowflake.ID, keyID, name, role, plain string) *apikeydomain.APIKey {
	now := time.Now().UTC()
	return &apikeydomain.APIKey{
		ID:        id,
		KeyID:     keyID,
		Name:      name,
		Role:      role,
		KeyHash:   apikeydomain.HashAPIKey(plain),
		IsActive:  true,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func (s *Service) toResponse(key *apikeydomain.APIKey) apikeydomain.Response {
	return apikeydomain.Response{
		KeyID:            key.KeyID,
		Name:             key.Name,
		Role:             key.Role,
		IsActive:         key.IsActive,
		CreatedAt:        key.CreatedAt,
		LastUsedAt:       key.LastUsedAt,
		ExpiresAt:        key.ExpiresAt,
		RotatedFromKeyID: key.RotatedFromKeyID,
	}
}

func generateAPIKey(keyID string) (string, error) {
	secret := make([]byte, apiKeySecretBytes)
	if _, err := rand.Read(secret); err != nil {
		return "", err
	}

	secretPart := hex.EncodeToString(secret)
	trimmed := strings.TrimPrefix(keyID, "key_")
	return fmt.Sprintf("%s%s_%s", apiKeyPrefix, trimmed, secretPart), nil
}

func newKeyID(id snowflake.ID) string {
	return "key_" + strings.ToUpper(strconv.FormatInt(int64(id), 36))
}

func ptrTime(value time.Time) *time.Time {
	return &value
}
