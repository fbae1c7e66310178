package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	catalogdomain "github.com/smallbiznis/karat/internal/catalog/domain"
	"gorm.io/gorm"
)

type Repository interface {
	// Adjust adds change to the material's quantity, clamping at 0, and
	// returns the resulting quantity.
	Adjust(ctx context.Context, db *gorm.DB, materialID snowflake.ID, change decimal.Decimal, at time.Time) (decimal.Decimal, error)
	Find(ctx context.Context, db *gorm.DB, materialID snowflake.ID) (*Record, error)
	List(ctx context.Context, db *gorm.DB) ([]Record, error)
	InsertOrderDeduction(ctx context.Context, db *gorm.DB, entry *OrderDeduction) error
}

type Service interface {
	UpdateQuantity(ctx context.Context, materialID string, change decimal.Decimal) (*Adjustment, error)
	Deduct(ctx context.Context, product catalogdomain.Product, quantity int) error
	HasSufficient(ctx context.Context, product catalogdomain.Product, quantity int) (bool, error)
	CheckProduct(ctx context.Context, productID string, quantity int) (bool, error)
	// ProcessOrder deducts inventory for a completed order at most once per
	// order id.
	ProcessOrder(ctx context.Context, orderID string, items []catalogdomain.OrderItem) (*OrderResult, error)
	Get(ctx context.Context, materialID string) (*Record, error)
	List(ctx context.Context) ([]Record, error)
}

var (
	ErrInvalidMaterialID     = errors.New("invalid_material_id")
	ErrMaterialNotFound      = errors.New("material_not_found")
	ErrInvalidQuantity       = errors.New("invalid_quantity")
	ErrInvalidOrderID        = errors.New("invalid_order_id")
	ErrOrderAlreadyProcessed = errors.New("order_already_processed")
)
