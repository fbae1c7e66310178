package service

import (
	"context"
	"net/url"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	auditdomain "github.com/smallbiznis/karat/internal/audit/domain"
	"github.com/smallbiznis/karat/internal/supplier/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB       *gorm.DB
	Log      *zap.Logger
	GenID    *snowflake.Node
	Repo     domain.Repository
	AuditSvc auditdomain.Service `optional:"true"`
}

type Service struct {
	db       *gorm.DB
	log      *zap.Logger
	genID    *snowflake.Node
	repo     domain.Repository
	auditSvc auditdomain.Service
}

func New(p Params) domain.Service {
	return &Service{
		db:       p.DB,
		log:      p.Log.Named("vendor.service"),
		genID:    p.GenID,
		repo:     p.Repo,
		auditSvc: p.AuditSvc,
	}
}

func (s *Service) Create(ctx context.Context, req domain.CreateRequest) (*domain.Vendor, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, domain.ErrInvalidName
	}
	endpoint, err := normalizeEndpoint(req.Endpoint)
	if err != nil {
		return nil, err
	}

	active := true
	if req.Active != nil {
		active = *req.Active
	}

	now := time.Now().UTC()
	v := &domain.Vendor{
		ID:         s.genID.Generate(),
		Name:       name,
		Endpoint:   endpoint,
		Credential: strings.TrimSpace(req.Credential),
		Active:     active,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := s.repo.Insert(ctx, s.db, v); err != nil {
		return nil, err
	}

	s.recordAudit(ctx, auditdomain.ActionVendorAdded, v)
	return v, nil
}

func (s *Service) Update(ctx context.Context, id string, req domain.UpdateRequest) (*domain.Vendor, error) {
	v, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			return nil, domain.ErrInvalidName
		}
		v.Name = name
	}
	if req.Endpoint != nil {
		endpoint, err := normalizeEndpoint(*req.Endpoint)
		if err != nil {
			return nil, err
		}
		v.Endpoint = endpoint
	}
	if req.Credential != nil {
		v.Credential = strings.TrimSpace(*req.Credential)
	}

	v.UpdatedAt = time.Now().UTC()
	if err := s.repo.Update(ctx, s.db, v); err != nil {
		return nil, err
	}

	s.recordAudit(ctx, auditdomain.ActionVendorUpdated, v)
	return v, nil
}

func (s *Service) Delete(ctx context.Context, id string) error {
	v, err := s.Get(ctx, id)
	if err != nil {
		return err
	}

	removed, err := s.repo.Delete(ctx, s.db, v.ID)
	if err != nil {
		return err
	}
	if removed == 0 {
		return domain.ErrNotFound
	}

	s.recordAudit(ctx, auditdomain.ActionVendorDeleted, v)
	return nil
}

func (s *Service) Get(ctx context.Context, id string) (*domain.Vendor, error) {
	vendorID, err := snowflake.ParseString(strings.TrimSpace(id))
	if err != nil || vendorID == 0 {
		return nil, domain.ErrInvalidID
	}

	v, err := s.repo.FindByID(ctx, s.db, vendorID)
	if err != nil {
		return nil, err
	}
	if v == nil {
		return nil, domain.ErrNotFound
	}
	return v, nil
}

func (s *Service) List(ctx context.Context) ([]domain.Vendor, error) {
	return s.repo.List(ctx, s.db, false)
}

func (s *Service) ListActive(ctx context.Context) ([]domain.Vendor, error) {
	return s.repo.List(ctx, s.db, true)
}

// ToggleActive flips the vendor's flag. Activating a vendor deactivates
// every other vendor in the same transaction.
func (s *Service) ToggleActive(ctx context.Context, id string) (*domain.Vendor, error) {
	vendorID, err := snowflake.ParseString(strings.TrimSpace(id))
	if err != nil || vendorID == 0 {
		return nil, domain.ErrInvalidID
	}

	var toggled *domain.Vendor
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		v, err := s.repo.FindByID(ctx, tx, vendorID)
		if err != nil {
			return err
		}
		if v == nil {
			return domain.ErrNotFound
		}

		v.Active = !v.Active
		v.UpdatedAt = time.Now().UTC()
		if v.Active {
			if err := s.repo.DeactivateAllExcept(ctx, tx, v.ID); err != nil {
				return err
			}
		}
		if err := s.repo.Update(ctx, tx, v); err != nil {
			return err
		}
		toggled = v
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("vendor status toggled",
		zap.String("vendor_id", toggled.ID.String()),
		zap.Bool("active", toggled.Active),
	)
	if s.auditSvc != nil {
		_ = s.auditSvc.Record(ctx, auditdomain.ActionVendorStatusToggled, map[string]any{
			"vendor_id": toggled.ID.String(),
			"active":    toggled.Active,
		})
	}
	return toggled, nil
}

func (s *Service) recordAudit(ctx context.Context, action string, v *domain.Vendor) {
	if s.auditSvc == nil || v == nil {
		return
	}
	_ = s.auditSvc.Record(ctx, action, map[string]any{
		"vendor_id": v.ID.String(),
		"name":      v.Name,
		"endpoint":  v.Endpoint,
		"active":    v.Active,
	})
}

func normalizeEndpoint(raw string) (string, error) {
	endpoint := strings.TrimSpace(raw)
	parsed, err := url.Parse(endpoint)
	if err != nil || parsed.Host == "" {
		return "", domain.ErrInvalidEndpoint
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return "", domain.ErrInvalidEndpoint
	}
	return endpoint, nil
}
