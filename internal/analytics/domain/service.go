package domain

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"
	ratedomain "github.com/smallbiznis/karat/internal/rate/domain"
)

type AverageRate struct {
	MaterialID string  `json:"material_id"`
	Days       int     `json:"days"`
	Average    float64 `json:"average"`
	Samples    int     `json:"samples"`
}

// ProductImpact compares a product's current price with the price it would
// have had at the oldest rates inside the window.
type ProductImpact struct {
	ProductID     string          `json:"product_id"`
	Name          string          `json:"name"`
	CurrentPrice  decimal.Decimal `json:"current_price"`
	OldPrice      decimal.Decimal `json:"old_price"`
	Change        decimal.Decimal `json:"change"`
	ChangePercent decimal.Decimal `json:"change_percentage"`
}

type ImpactRequest struct {
	ProductIDs []string `form:"product_id"`
	Days       int      `form:"days"`
}

type Service interface {
	RateTrends(ctx context.Context, materialID string, days int) ([]ratedomain.HistoryPoint, error)
	AverageRate(ctx context.Context, materialID string, days int) (AverageRate, error)
	// PriceImpact covers every jewelry product when productIDs is empty.
	PriceImpact(ctx context.Context, productIDs []string, days int) ([]ProductImpact, error)
}

var ErrTooManyProducts = errors.New("too_many_products")
