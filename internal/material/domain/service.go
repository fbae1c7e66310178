package domain

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, m *Material) error
	Update(ctx context.Context, db *gorm.DB, m *Material) error
	Delete(ctx context.Context, db *gorm.DB, id snowflake.ID) (int64, error)
	FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Material, error)
	FindByCode(ctx context.Context, db *gorm.DB, code string) (*Material, error)
	List(ctx context.Context, db *gorm.DB) ([]Material, error)
}

// PurityInput is the operator-provided form of a purity option. A nil
// fraction is derived from the hallmark convention, or 1.
type PurityInput struct {
	Label    string   `json:"label" binding:"required"`
	Fraction *float64 `json:"fraction"`
}

type CreateRequest struct {
	Name     string                 `json:"name" binding:"required"`
	Unit     string                 `json:"unit"`
	Purities map[string]PurityInput `json:"purity_options"`
}

type UpdateRequest struct {
	Name     *string                `json:"name"`
	Unit     *string                `json:"unit"`
	Purities map[string]PurityInput `json:"purity_options"`
}

type Service interface {
	Create(ctx context.Context, req CreateRequest) (*Material, error)
	Update(ctx context.Context, id string, req UpdateRequest) (*Material, error)
	Delete(ctx context.Context, id string) error
	Get(ctx context.Context, id string) (*Material, error)
	GetByName(ctx context.Context, name string) (*Material, error)
	List(ctx context.Context) ([]Material, error)
}

var (
	ErrInvalidID         = errors.New("invalid_material_id")
	ErrInvalidName       = errors.New("invalid_material_name")
	ErrInvalidUnit       = errors.New("invalid_material_unit")
	ErrInvalidPurity     = errors.New("invalid_purity_option")
	ErrDuplicateMaterial = errors.New("duplicate_material")
	ErrNotFound          = errors.New("material_not_found")
)
