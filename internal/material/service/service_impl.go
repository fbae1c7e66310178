package service

import (
	"context"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	auditdomain "github.com/smallbiznis/karat/internal/audit/domain"
	"github.com/smallbiznis/karat/internal/material/domain"
	"github.com/smallbiznis/karat/pkg/db"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
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
		log:      p.Log.Named("material.service"),
		genID:    p.GenID,
		repo:     p.Repo,
		auditSvc: p.AuditSvc,
	}
}

func (s *Service) Create(ctx context.Context, req domain.CreateRequest) (*domain.Material, error) {
	name := strings.TrimSpace(req.Name)
	code := domain.CodeFor(name)
	if name == "" || code == "" {
		return nil, domain.ErrInvalidName
	}

	unit := strings.TrimSpace(req.Unit)
	if unit == "" {
		unit = domain.DefaultUnit
	}

	table, err := buildPurityTable(code, req.Purities)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	m := &domain.Material{
		ID:        s.genID.Generate(),
		Name:      name,
		Code:      code,
		Unit:      unit,
		Purities:  datatypes.NewJSONType(table),
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.repo.Insert(ctx, s.db, m); err != nil {
		if db.IsDuplicateKeyErr(err) {
			return nil, domain.ErrDuplicateMaterial
		}
		return nil, err
	}

	s.recordAudit(ctx, auditdomain.ActionMaterialAdded, m)
	return m, nil
}

func (s *Service) Update(ctx context.Context, id string, req domain.UpdateRequest) (*domain.Material, error) {
	m, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		code := domain.CodeFor(name)
		if name == "" || code == "" {
			return nil, domain.ErrInvalidName
		}
		m.Name = name
		m.Code = code
	}
	if req.Unit != nil {
		unit := strings.TrimSpace(*req.Unit)
		if unit == "" {
			return nil, domain.ErrInvalidUnit
		}
		m.Unit = unit
	}
	if req.Purities != nil {
		table, err := buildPurityTable(m.Code, req.Purities)
		if err != nil {
			return nil, err
		}
		m.Purities = datatypes.NewJSONType(table)
	}

	m.UpdatedAt = time.Now().UTC()
	if err := s.repo.Update(ctx, s.db, m); err != nil {
		if db.IsDuplicateKeyErr(err) {
			return nil, domain.ErrDuplicateMaterial
		}
		return nil, err
	}

	s.recordAudit(ctx, auditdomain.ActionMaterialUpdated, m)
	return m, nil
}

func (s *Service) Delete(ctx context.Context, id string) error {
	m, err := s.Get(ctx, id)
	if err != nil {
		return err
	}

	removed, err := s.repo.Delete(ctx, s.db, m.ID)
	if err != nil {
		return err
	}
	if removed == 0 {
		return domain.ErrNotFound
	}

	s.recordAudit(ctx, auditdomain.ActionMaterialDeleted, m)
	return nil
}

func (s *Service) Get(ctx context.Context, id string) (*domain.Material, error) {
	materialID, err := snowflake.ParseString(strings.TrimSpace(id))
	if err != nil || materialID == 0 {
		return nil, domain.ErrInvalidID
	}

	m, err := s.repo.FindByID(ctx, s.db, materialID)
	if err != nil {
		return nil, err
	}
	if m == nil {
		return nil, domain.ErrNotFound
	}
	return m, nil
}

// GetByName resolves a material by its case-insensitive name.
func (s *Service) GetByName(ctx context.Context, name string) (*domain.Material, error) {
	code := domain.CodeFor(name)
	if code == "" {
		return nil, domain.ErrInvalidName
	}

	m, err := s.repo.FindByCode(ctx, s.db, code)
	if err != nil {
		return nil, err
	}
	if m == nil {
		return nil, domain.ErrNotFound
	}
	return m, nil
}

func (s *Service) List(ctx context.Context) ([]domain.Material, error) {
	return s.repo.List(ctx, s.db)
}

func (s *Service) recordAudit(ctx context.Context, action string, m *domain.Material) {
	if s.auditSvc == nil || m == nil {
		return
	}
	_ = s.auditSvc.Record(ctx, action, map[string]any{
		"material_id": m.ID.String(),
		"name":        m.Name,
		"unit":        m.Unit,
	})
}

func buildPurityTable(code string, input map[string]domain.PurityInput) (domain.PurityTable, error) {
	table := make(domain.PurityTable, len(input))
	for rawCode, option := range input {
		purityCode := strings.TrimSpace(rawCode)
		label := strings.TrimSpace(option.Label)
		if purityCode == "" || label == "" {
			return nil, domain.ErrInvalidPurity
		}

		var fraction float64
		if option.Fraction != nil {
			fraction = *option.Fraction
			if fraction <= 0 || fraction > 1 {
				return nil, domain.ErrInvalidPurity
			}
		} else {
			probe := domain.Material{
				Code:     code,
				Purities: datatypes.NewJSONType(domain.PurityTable{purityCode: {Label: label}}),
			}
			fraction = domain.PurityFraction(probe, purityCode)
		}

		table[purityCode] = domain.PurityOption{Label: label, Fraction: fraction}
	}
	return table, nil
}
