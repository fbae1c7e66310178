package service

import (
	"context"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	auditdomain "github.com/smallbiznis/karat/internal/audit/domain"
	"github.com/smallbiznis/karat/internal/catalog/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB       *gorm.DB
	Log      *zap.Logger
	Repo     domain.Repository
	AuditSvc auditdomain.Service `optional:"true"`
}

type Service struct {
	db       *gorm.DB
	log      *zap.Logger
	repo     domain.Repository
	auditSvc auditdomain.Service
}

func New(p Params) domain.Service {
	return &Service{
		db:       p.DB,
		log:      p.Log.Named("catalog.service"),
		repo:     p.Repo,
		auditSvc: p.AuditSvc,
	}
}

func (s *Service) GetProduct(ctx context.Context, id string) (domain.Product, error) {
	row, err := s.load(ctx, id)
	if err != nil {
		return domain.Product{}, err
	}
	return row.ToProduct(), nil
}

func (s *Service) List(ctx context.Context) ([]domain.CatalogProduct, error) {
	return s.repo.List(ctx, s.db)
}

func (s *Service) UpsertProduct(ctx context.Context, id string, req domain.UpsertRequest) (*domain.CatalogProduct, error) {
	productID, err := parseID(id, domain.ErrInvalidProductID)
	if err != nil {
		return nil, err
	}
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, domain.ErrInvalidName
	}
	if req.Price.IsNegative() {
		return nil, domain.ErrInvalidPrice
	}

	row, err := s.repo.FindByID(ctx, s.db, productID)
	if err != nil {
		return nil, err
	}
	now := time.Now().UTC()
	if row == nil {
		row = &domain.CatalogProduct{
			ID:         productID,
			Attributes: datatypes.JSONMap{},
			CreatedAt:  now,
		}
	}
	row.Name = name
	row.Price = req.Price
	row.UpdatedAt = now

	if err := s.repo.Save(ctx, s.db, row); err != nil {
		return nil, err
	}
	s.recordAudit(ctx, row, map[string]any{"price": req.Price.String()})
	return row, nil
}

func (s *Service) SetJewelry(ctx context.Context, id string, jewelry bool) (*domain.CatalogProduct, error) {
	row, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}

	row.IsJewelry = jewelry
	row.UpdatedAt = time.Now().UTC()
	if err := s.repo.Save(ctx, s.db, row); err != nil {
		return nil, err
	}
	s.recordAudit(ctx, row, map[string]any{"is_jewelry": jewelry})
	return row, nil
}

func (s *Service) SetComponent(ctx context.Context, id string, materialID string, weight decimal.Decimal, purity string) (*domain.CatalogProduct, error) {
	row, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	mID, err := parseID(materialID, domain.ErrInvalidMaterialID)
	if err != nil {
		return nil, err
	}
	if weight.IsNegative() {
		return nil, domain.ErrInvalidWeight
	}

	attrs := datatypes.JSONMap{}
	for k, v := range row.Attributes {
		attrs[k] = v
	}
	purity = strings.TrimSpace(purity)
	if weight.IsZero() {
		delete(attrs, domain.WeightKey(mID))
		delete(attrs, domain.PurityKey(mID))
	} else {
		attrs[domain.WeightKey(mID)] = weight.String()
		attrs[domain.PurityKey(mID)] = purity
	}
	row.Attributes = attrs
	row.UpdatedAt = time.Now().UTC()

	if err := s.repo.Save(ctx, s.db, row); err != nil {
		return nil, err
	}
	s.recordAudit(ctx, row, map[string]any{
		"material_id": mID.String(),
		"weight":      weight.String(),
		"purity":      purity,
	})
	return row, nil
}

func (s *Service) load(ctx context.Context, id string) (*domain.CatalogProduct, error) {
	productID, err := parseID(id, domain.ErrInvalidProductID)
	if err != nil {
		return nil, err
	}
	row, err := s.repo.FindByID(ctx, s.db, productID)
	if err != nil {
		return nil, err
	}
	if row == nil {
		return nil, domain.ErrProductNotFound
	}
	return row, nil
}

func (s *Service) recordAudit(ctx context.Context, row *domain.CatalogProduct, details map[string]any) {
	if s.auditSvc == nil {
		return
	}
	details["product_id"] = row.ID.String()
	_ = s.auditSvc.Record(ctx, auditdomain.ActionProductUpdated, details)
}

func parseID(raw string, invalid error) (snowflake.ID, error) {
	id, err := snowflake.ParseString(strings.TrimSpace(raw))
	if err != nil || id <= 0 {
		return 0, invalid
	}
	return id, nil
}
