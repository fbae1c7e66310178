package domain

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, v *Vendor) error
	Update(ctx context.Context, db *gorm.DB, v *Vendor) error
	Delete(ctx context.Context, db *gorm.DB, id snowflake.ID) (int64, error)
	FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Vendor, error)
	List(ctx context.Context, db *gorm.DB, activeOnly bool) ([]Vendor, error)
	DeactivateAllExcept(ctx context.Context, db *gorm.DB, id snowflake.ID) error
}

type CreateRequest struct {
	Name       string `json:"name" binding:"required"`
	Endpoint   string `json:"endpoint" binding:"required,url"`
	Credential string `json:"credential"`
	Active     *bool  `json:"active"`
}

type UpdateRequest struct {
	Name       *string `json:"name"`
	Endpoint   *string `json:"endpoint" binding:"omitempty,url"`
	Credential *string `json:"credential"`
}

type Service interface {
	Create(ctx context.Context, req CreateRequest) (*Vendor, error)
	Update(ctx context.Context, id string, req UpdateRequest) (*Vendor, error)
	Delete(ctx context.Context, id string) error
	Get(ctx context.Context, id string) (*Vendor, error)
	List(ctx context.Context) ([]Vendor, error)
	ListActive(ctx context.Context) ([]Vendor, error)
	ToggleActive(ctx context.Context, id string) (*Vendor, error)
}

var (
	ErrInvalidID       = errors.New("invalid_vendor_id")
	ErrInvalidName     = errors.New("invalid_vendor_name")
	ErrInvalidEndpoint = errors.New("invalid_vendor_endpoint")
	ErrNotFound        = errors.New("vendor_not_found")
)
