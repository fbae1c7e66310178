package domain

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type Repository interface {
	Save(ctx context.Context, db *gorm.DB, p *CatalogProduct) error
	FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*CatalogProduct, error)
	List(ctx context.Context, db *gorm.DB) ([]CatalogProduct, error)
}

type UpsertRequest struct {
	Name  string          `json:"name" binding:"required"`
	Price decimal.Decimal `json:"price"`
}

type Service interface {
	GetProduct(ctx context.Context, id string) (Product, error)
	List(ctx context.Context) ([]CatalogProduct, error)
	UpsertProduct(ctx context.Context, id string, req UpsertRequest) (*CatalogProduct, error)
	SetJewelry(ctx context.Context, id string, jewelry bool) (*CatalogProduct, error)
	// SetComponent records a material's weight and purity on the product.
	// A zero weight removes the material from the composition.
	SetComponent(ctx context.Context, id string, materialID string, weight decimal.Decimal, purity string) (*CatalogProduct, error)
}

var (
	ErrInvalidProductID  = errors.New("invalid_product_id")
	ErrInvalidMaterialID = errors.New("invalid_material_id")
	ErrInvalidName       = errors.New("invalid_product_name")
	ErrInvalidPrice      = errors.New("invalid_product_price")
	ErrInvalidWeight     = errors.New("invalid_component_weight")
	ErrProductNotFound   = errors.New("product_not_found")
)
