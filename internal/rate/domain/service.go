package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	materialdomain "github.com/smallbiznis/karat/internal/material/domain"
	supplierdomain "github.com/smallbiznis/karat/internal/supplier/domain"
	"gorm.io/gorm"
)

const (
	CacheKeyRates  = "rates"
	DefaultDays    = 30
	MaxHistoryDays = 365
)

type Repository interface {
	ReplaceCurrent(ctx context.Context, db *gorm.DB, table RateTable, currency string, at time.Time) error
	LoadCurrent(ctx context.Context, db *gorm.DB) (RateTable, error)
	AppendHistory(ctx context.Context, db *gorm.DB, snapshots []RateSnapshot) error
	History(ctx context.Context, db *gorm.DB, materialID snowflake.ID, since time.Time) ([]RateSnapshot, error)
	HistorySince(ctx context.Context, db *gorm.DB, since time.Time) ([]RateSnapshot, error)
}

type VendorSource interface {
	ListActive(ctx context.Context) ([]supplierdomain.Vendor, error)
}

type VendorClient interface {
	Fetch(ctx context.Context, vendor supplierdomain.Vendor) (map[string]float64, error)
}

type ExchangeClient interface {
	Rate(ctx context.Context, from, to string) (float64, error)
}

type MaterialLister interface {
	List(ctx context.Context) ([]materialdomain.Material, error)
}

type Service interface {
	// RefreshRates polls every active vendor and replaces the current table.
	// A cycle that yields no quotes leaves the table untouched.
	RefreshRates(ctx context.Context) (RateTable, error)
	GetRates(ctx context.Context) (RateTable, error)
	History(ctx context.Context, materialID string, days int) ([]HistoryPoint, error)
	// OldestRates returns, per material, the earliest aggregated quote within
	// the window, converted to store currency.
	OldestRates(ctx context.Context, days int) (RateTable, error)
}

var (
	ErrNoRates           = errors.New("no_rates_available")
	ErrRefreshInProgress = errors.New("rate_refresh_in_progress")
	ErrInvalidMaterialID = errors.New("invalid_material_id")
	ErrInvalidDays       = errors.New("invalid_days")
)
