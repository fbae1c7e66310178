package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	auditdomain "github.com/smallbiznis/karat/internal/audit/domain"
	catalogdomain "github.com/smallbiznis/karat/internal/catalog/domain"
	"github.com/smallbiznis/karat/internal/config"
	materialdomain "github.com/smallbiznis/karat/internal/material/domain"
	"github.com/smallbiznis/karat/internal/observability/metrics"
	"github.com/smallbiznis/karat/internal/pricing/domain"
	ratedomain "github.com/smallbiznis/karat/internal/rate/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type ProductSource interface {
	GetProduct(ctx context.Context, id string) (catalogdomain.Product, error)
}

type RateSource interface {
	GetRates(ctx context.Context) (ratedomain.RateTable, error)
}

type MaterialSource interface {
	List(ctx context.Context) ([]materialdomain.Material, error)
}

type Params struct {
	fx.In

	DB        *gorm.DB
	Log       *zap.Logger
	GenID     *snowflake.Node
	Repo      domain.Repository
	Settings  *config.StoreSettingsHolder
	Products  ProductSource
	Rates     RateSource
	Materials MaterialSource
	Cart      catalogdomain.CartReader
	Metrics   *metrics.Metrics    `optional:"true"`
	AuditSvc  auditdomain.Service `optional:"true"`
}

type Service struct {
	db        *gorm.DB
	log       *zap.Logger
	genID     *snowflake.Node
	repo      domain.Repository
	settings  *config.StoreSettingsHolder
	products  ProductSource
	rates     RateSource
	materials MaterialSource
	cart      catalogdomain.CartReader
	metrics   *metrics.Metrics
	auditSvc  auditdomain.Service
}

func New(p Params) *Service {
	cart := p.Cart
	if cart == nil {
		cart = catalogdomain.ContextCart{}
	}
	return &Service{
		db:        p.DB,
		log:       p.Log.Named("pricing.service"),
		genID:     p.GenID,
		repo:      p.Repo,
		settings:  p.Settings,
		products:  p.Products,
		rates:     p.Rates,
		materials: p.Materials,
		cart:      cart,
		metrics:   p.Metrics,
		auditSvc:  p.AuditSvc,
	}
}

func (s *Service) ComputePrice(ctx context.Context, productID string) (domain.Quote, error) {
	product, err := s.products.GetProduct(ctx, productID)
	if err != nil {
		return domain.Quote{}, err
	}
	if _, ok := product.Kind.(catalogdomain.Standard); ok {
		return s.compute(ctx, product, nil)
	}

	rates, err := s.rates.GetRates(ctx)
	if err != nil {
		return domain.Quote{}, fmt.Errorf("load rates: %w", err)
	}
	return s.compute(ctx, product, rates)
}

func (s *Service) PriceBreakdown(ctx context.Context, productID string) (domain.Breakdown, error) {
	quote, err := s.ComputePrice(ctx, productID)
	if err != nil {
		return domain.Breakdown{}, err
	}
	return quote.Breakdown, nil
}

func (s *Service) Simulate(ctx context.Context, productID string, rates ratedomain.RateTable) (domain.Quote, error) {
	product, err := s.products.GetProduct(ctx, productID)
	if err != nil {
		return domain.Quote{}, err
	}
	return s.compute(ctx, product, rates)
}

func (s *Service) compute(ctx context.Context, product catalogdomain.Product, rates ratedomain.RateTable) (domain.Quote, error) {
	store := s.settings.Get()
	input := domain.Input{
		Product:      product,
		Rates:        rates,
		CartSubtotal: s.cart.Subtotal(ctx),
		Decimals:     store.PriceDecimals,
	}

	if _, ok := product.Kind.(catalogdomain.Jewelry); ok {
		settings, err := s.Load(ctx)
		if err != nil {
			return domain.Quote{}, err
		}
		materials, err := s.materials.List(ctx)
		if err != nil {
			return domain.Quote{}, fmt.Errorf("load materials: %w", err)
		}
		input.Settings = settings
		input.Materials = make(map[snowflake.ID]materialdomain.Material, len(materials))
		for _, m := range materials {
			input.Materials[m.ID] = m
		}
	}

	quote := domain.Compute(input)
	s.metrics.RecordPriceComputation(ctx, quote.Kind)
	return quote, nil
}

// Load reads labor cost and rules. It implements domain.SettingsStore.
func (s *Service) Load(ctx context.Context) (domain.Settings, error) {
	labor, err := s.GetLaborCost(ctx)
	if err != nil {
		return domain.Settings{}, err
	}
	rules, err := s.repo.ListRules(ctx, s.db)
	if err != nil {
		return domain.Settings{}, fmt.Errorf("load pricing rules: %w", err)
	}
	return domain.Settings{LaborCost: labor, Rules: rules}, nil
}

func (s *Service) GetLaborCost(ctx context.Context) (decimal.Decimal, error) {
	setting, err := s.repo.GetSetting(ctx, s.db, domain.SettingLaborCost)
	if err != nil {
		return decimal.Zero, fmt.Errorf("load labor cost: %w", err)
	}
	if setting == nil {
		return decimal.NewFromFloat(s.settings.Get().DefaultLaborCost), nil
	}
	cost, err := decimal.NewFromString(setting.Value)
	if err != nil {
		s.log.Warn("stored labor cost is not a number, using default", zap.String("value", setting.Value))
		return decimal.NewFromFloat(s.settings.Get().DefaultLaborCost), nil
	}
	return cost, nil
}

func (s *Service) SetLaborCost(ctx context.Context, cost decimal.Decimal) error {
	if cost.IsNegative() {
		return domain.ErrInvalidLaborCost
	}

	previous, err := s.GetLaborCost(ctx)
	if err != nil {
		return err
	}
	if err := s.repo.PutSetting(ctx, s.db, &domain.Setting{
		Key:       domain.SettingLaborCost,
		Value:     cost.String(),
		UpdatedAt: time.Now().UTC(),
	}); err != nil {
		return err
	}

	if s.auditSvc != nil {
		_ = s.auditSvc.Record(ctx, auditdomain.ActionLaborCostUpdated, map[string]any{
			"previous": previous.String(),
			"cost":     cost.String(),
		})
	}
	return nil
}

func (s *Service) ListRules(ctx context.Context) ([]domain.Rule, error) {
	return s.repo.ListRules(ctx, s.db)
}

func (s *Service) AddRule(ctx context.Context, req domain.AddRuleRequest) (*domain.Rule, error) {
	condition := domain.RuleCondition(strings.TrimSpace(string(req.Condition)))
	if !condition.Valid() {
		return nil, domain.ErrInvalidCondition
	}
	if req.Threshold.IsNegative() {
		return nil, domain.ErrInvalidThreshold
	}
	if req.Discount.IsNegative() || req.Discount.GreaterThan(decimal.NewFromInt(100)) {
		return nil, domain.ErrInvalidDiscount
	}

	var rule *domain.Rule
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		position, err := s.repo.NextRulePosition(ctx, tx)
		if err != nil {
			return err
		}
		rule = &domain.Rule{
			ID:        s.genID.Generate(),
			Condition: condition,
			Threshold: req.Threshold,
			Discount:  req.Discount,
			Position:  position,
			CreatedAt: time.Now().UTC(),
		}
		return s.repo.InsertRule(ctx, tx, rule)
	})
	if err != nil {
		return nil, err
	}

	if s.auditSvc != nil {
		_ = s.auditSvc.Record(ctx, auditdomain.ActionPricingRuleAdded, map[string]any{
			"rule_id":   rule.ID.String(),
			"condition": string(rule.Condition),
			"threshold": rule.Threshold.String(),
			"discount":  rule.Discount.String(),
		})
	}
	return rule, nil
}

func (s *Service) DeleteRule(ctx context.Context, id string) error {
	ruleID, err := snowflake.ParseString(strings.TrimSpace(id))
	if err != nil || ruleID == 0 {
		return domain.ErrInvalidRuleID
	}

	removed, err := s.repo.DeleteRule(ctx, s.db, ruleID)
	if err != nil {
		return err
	}
	if removed == 0 {
		return domain.ErrRuleNotFound
	}

	if s.auditSvc != nil {
		_ = s.auditSvc.Record(ctx, auditdomain.ActionPricingRuleDeleted, map[string]any{
			"rule_id": ruleID.String(),
		})
	}
	return nil
}
