package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/smallbiznis/karat/internal/analytics/domain"
	catalogdomain "github.com/smallbiznis/karat/internal/catalog/domain"
	pricingdomain "github.com/smallbiznis/karat/internal/pricing/domain"
	ratedomain "github.com/smallbiznis/karat/internal/rate/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const maxImpactProducts = 500

var hundred = decimal.NewFromInt(100)

type RateSource interface {
	GetRates(ctx context.Context) (ratedomain.RateTable, error)
	History(ctx context.Context, materialID string, days int) ([]ratedomain.HistoryPoint, error)
	OldestRates(ctx context.Context, days int) (ratedomain.RateTable, error)
}

type Pricer interface {
	ComputePrice(ctx context.Context, productID string) (pricingdomain.Quote, error)
	Simulate(ctx context.Context, productID string, rates ratedomain.RateTable) (pricingdomain.Quote, error)
}

type Catalog interface {
	List(ctx context.Context) ([]catalogdomain.CatalogProduct, error)
	GetProduct(ctx context.Context, id string) (catalogdomain.Product, error)
}

type Params struct {
	fx.In

	Log     *zap.Logger
	Rates   RateSource
	Pricer  Pricer
	Catalog Catalog
}

type Service struct {
	log     *zap.Logger
	rates   RateSource
	pricer  Pricer
	catalog Catalog
}

func New(p Params) domain.Service {
	return &Service{
		log:     p.Log.Named("analytics.service"),
		rates:   p.Rates,
		pricer:  p.Pricer,
		catalog: p.Catalog,
	}
}

func (s *Service) RateTrends(ctx context.Context, materialID string, days int) ([]ratedomain.HistoryPoint, error) {
	return s.rates.History(ctx, materialID, days)
}

func (s *Service) AverageRate(ctx context.Context, materialID string, days int) (domain.AverageRate, error) {
	if days == 0 {
		days = ratedomain.DefaultDays
	}
	points, err := s.rates.History(ctx, materialID, days)
	if err != nil {
		return domain.AverageRate{}, err
	}

	out := domain.AverageRate{MaterialID: materialID, Days: days, Samples: len(points)}
	if len(points) == 0 {
		return out, nil
	}
	var sum float64
	for _, p := range points {
		sum += p.Rate
	}
	out.Average = sum / float64(len(points))
	return out, nil
}

func (s *Service) PriceImpact(ctx context.Context, productIDs []string, days int) ([]domain.ProductImpact, error) {
	if len(productIDs) > maxImpactProducts {
		return nil, domain.ErrTooManyProducts
	}

	targets, err := s.targets(ctx, productIDs)
	if err != nil {
		return nil, err
	}
	if len(targets) == 0 {
		return []domain.ProductImpact{}, nil
	}

	oldest, err := s.rates.OldestRates(ctx, days)
	if err != nil {
		return nil, err
	}
	// materials with no quote in the window keep their current rate
	current, err := s.rates.GetRates(ctx)
	if err != nil {
		return nil, fmt.Errorf("load rates: %w", err)
	}
	simulated := current.Clone()
	for code, rate := range oldest {
		simulated[code] = rate
	}

	impacts := make([]domain.ProductImpact, 0, len(targets))
	for _, target := range targets {
		now, err := s.pricer.ComputePrice(ctx, target.id)
		if err != nil {
			if errors.Is(err, catalogdomain.ErrProductNotFound) {
				continue
			}
			return nil, err
		}
		then, err := s.pricer.Simulate(ctx, target.id, simulated)
		if err != nil {
			return nil, err
		}

		impact := domain.ProductImpact{
			ProductID:     target.id,
			Name:          target.name,
			CurrentPrice:  now.Amount,
			OldPrice:      then.Amount,
			Change:        now.Amount.Sub(then.Amount),
			ChangePercent: decimal.Zero,
		}
		if then.Amount.IsPositive() {
			impact.ChangePercent = impact.Change.Div(then.Amount).Mul(hundred).Round(2)
		}
		impacts = append(impacts, impact)
	}
	return impacts, nil
}

type target struct {
	id   string
	name string
}

func (s *Service) targets(ctx context.Context, productIDs []string) ([]target, error) {
	if len(productIDs) > 0 {
		out := make([]target, 0, len(productIDs))
		for _, id := range productIDs {
			product, err := s.catalog.GetProduct(ctx, id)
			if err != nil {
				if errors.Is(err, catalogdomain.ErrProductNotFound) || errors.Is(err, catalogdomain.ErrInvalidProductID) {
					s.log.Debug("price impact skips unknown product", zap.String("product_id", id))
					continue
				}
				return nil, err
			}
			out = append(out, target{id: product.ID.String(), name: product.Name})
		}
		return out, nil
	}

	products, err := s.catalog.List(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]target, 0, len(products))
	for _, p := range products {
		if !p.IsJewelry {
			continue
		}
		out = append(out, target{id: p.ID.String(), name: p.Name})
	}
	return out, nil
}
