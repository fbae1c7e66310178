package service

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/karat/internal/alert/domain"
	auditdomain "github.com/smallbiznis/karat/internal/audit/domain"
	catalogdomain "github.com/smallbiznis/karat/internal/catalog/domain"
	"github.com/smallbiznis/karat/internal/config"
	"github.com/smallbiznis/karat/internal/observability/metrics"
	pricingdomain "github.com/smallbiznis/karat/internal/pricing/domain"
	"github.com/smallbiznis/karat/internal/providers/email"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Pricer interface {
	ComputePrice(ctx context.Context, productID string) (pricingdomain.Quote, error)
}

type ProductSource interface {
	GetProduct(ctx context.Context, id string) (catalogdomain.Product, error)
}

type Params struct {
	fx.In

	DB       *gorm.DB
	Log      *zap.Logger
	GenID    *snowflake.Node
	Cfg      config.Config
	Settings *config.StoreSettingsHolder
	Repo     domain.Repository
	Pricer   Pricer
	Products ProductSource
	Notifier email.Provider
	Metrics  *metrics.Metrics    `optional:"true"`
	AuditSvc auditdomain.Service `optional:"true"`
}

type Service struct {
	db       *gorm.DB
	log      *zap.Logger
	genID    *snowflake.Node
	cfg      config.AlertsConfig
	settings *config.StoreSettingsHolder
	repo     domain.Repository
	pricer   Pricer
	products ProductSource
	notifier email.Provider
	metrics  *metrics.Metrics
	auditSvc auditdomain.Service
}

func New(p Params) domain.Service {
	cfg := p.Cfg.Alerts
	if cfg.DropRatio <= 0 || cfg.DropRatio >= 1 {
		cfg.DropRatio = 0.9
	}
	return &Service{
		db:       p.DB,
		log:      p.Log.Named("alert.service"),
		genID:    p.GenID,
		cfg:      cfg,
		settings: p.Settings,
		repo:     p.Repo,
		pricer:   p.Pricer,
		products: p.Products,
		notifier: p.Notifier,
		metrics:  p.Metrics,
		auditSvc: p.AuditSvc,
	}
}

func (s *Service) Subscribe(ctx context.Context, productID, address string) (*domain.Subscription, error) {
	id, err := snowflake.ParseString(strings.TrimSpace(productID))
	if err != nil || id <= 0 {
		return nil, domain.ErrInvalidProductID
	}
	addr, err := normalizeEmail(address)
	if err != nil {
		return nil, err
	}

	quote, err := s.pricer.ComputePrice(ctx, id.String())
	if err != nil {
		if errors.Is(err, catalogdomain.ErrProductNotFound) {
			return nil, err
		}
		s.log.Warn("price unavailable for alert subscription", zap.String("product_id", id.String()), zap.Error(err))
		return nil, domain.ErrPriceUnavailable
	}
	// a zero threshold could never fire
	if !quote.Computed || !quote.Amount.IsPositive() {
		return nil, domain.ErrPriceUnavailable
	}

	sub := &domain.Subscription{
		ID:        s.genID.Generate(),
		ProductID: id,
		Email:     addr,
		Threshold: quote.Amount.Mul(decimal.NewFromFloat(s.cfg.DropRatio)),
		CreatedAt: time.Now().UTC(),
	}
	if err := s.repo.Insert(ctx, s.db, sub); err != nil {
		s.log.Error("failed to store alert subscription", zap.Error(err))
		return nil, err
	}

	if s.auditSvc != nil {
		_ = s.auditSvc.Record(ctx, auditdomain.ActionAlertSubscribed, map[string]any{
			"product_id": id.String(),
			"email":      addr,
			"threshold":  sub.Threshold.String(),
		})
	}
	return sub, nil
}

// EvaluateAll notifies every subscription whose product price fell strictly
// below its threshold. Fired subscriptions are removed.
func (s *Service) EvaluateAll(ctx context.Context) (domain.EvaluationResult, error) {
	var result domain.EvaluationResult

	subs, err := s.repo.List(ctx, s.db)
	if err != nil {
		return result, err
	}

	quotes := make(map[snowflake.ID]pricingdomain.Quote)
	failedProducts := make(map[snowflake.ID]struct{})

	for _, sub := range subs {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		result.Checked++

		if _, failed := failedProducts[sub.ProductID]; failed {
			continue
		}
		quote, ok := quotes[sub.ProductID]
		if !ok {
			quote, err = s.pricer.ComputePrice(ctx, sub.ProductID.String())
			if err != nil {
				s.log.Warn("alert price check failed", zap.String("product_id", sub.ProductID.String()), zap.Error(err))
				failedProducts[sub.ProductID] = struct{}{}
				continue
			}
			quotes[sub.ProductID] = quote
		}

		if !quote.Computed || !quote.Amount.IsPositive() || !quote.Amount.LessThan(sub.Threshold) {
			continue
		}

		if err := s.notify(ctx, sub, quote); err != nil {
			result.Failed++
			s.metrics.RecordAlertNotification(ctx, "failed")
			s.log.Warn("price alert delivery failed",
				zap.String("subscription_id", sub.ID.String()),
				zap.Bool("retained", s.cfg.RetainOnDeliveryFailure),
				zap.Error(err),
			)
			if s.cfg.RetainOnDeliveryFailure {
				continue
			}
		} else {
			result.Notified++
			s.metrics.RecordAlertNotification(ctx, "sent")
			if s.auditSvc != nil {
				_ = s.auditSvc.Record(ctx, auditdomain.ActionAlertSent, map[string]any{
					"subscription_id": sub.ID.String(),
					"product_id":      sub.ProductID.String(),
					"price":           quote.Amount.String(),
				})
			}
		}

		if err := s.repo.Delete(ctx, s.db, sub.ID); err != nil {
			s.log.Error("failed to remove fired alert", zap.String("subscription_id", sub.ID.String()), zap.Error(err))
		}
	}

	s.log.Info("alert evaluation finished",
		zap.Int("checked", result.Checked),
		zap.Int("notified", result.Notified),
		zap.Int("failed", result.Failed),
	)
	return result, nil
}

func (s *Service) notify(ctx context.Context, sub domain.Subscription, quote pricingdomain.Quote) error {
	name := fmt.Sprintf("product #%s", sub.ProductID.String())
	if product, err := s.products.GetProduct(ctx, sub.ProductID.String()); err == nil && strings.TrimSpace(product.Name) != "" {
		name = product.Name
	}

	store := s.settings.Get()
	return s.notifier.SendTemplate(ctx,
		[]string{sub.Email},
		fmt.Sprintf("Price Drop Alert for %s", name),
		email.TemplatePriceDrop,
		email.PriceDropData{
			ProductName:  name,
			CurrentPrice: quote.Amount.StringFixed(store.PriceDecimals),
			Threshold:    sub.Threshold.StringFixed(store.PriceDecimals),
			Currency:     store.Currency,
		},
	)
}

func normalizeEmail(raw string) (string, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return "", domain.ErrInvalidEmail
	}
	addr, err := mail.ParseAddress(trimmed)
	if err != nil || addr.Address != trimmed || addr.Name != "" {
		return "", domain.ErrInvalidEmail
	}
	return strings.ToLower(addr.Address), nil
}
