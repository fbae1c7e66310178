package domain

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, sub *Subscription) error
	List(ctx context.Context, db *gorm.DB) ([]Subscription, error)
	Delete(ctx context.Context, db *gorm.DB, id snowflake.ID) error
}

type SubscribeRequest struct {
	ProductID string `json:"product_id" form:"product_id" binding:"required"`
	Email     string `json:"email" form:"email" binding:"required"`
}

type Service interface {
	Subscribe(ctx context.Context, productID, email string) (*Subscription, error)
	EvaluateAll(ctx context.Context) (EvaluationResult, error)
}

var (
	ErrInvalidProductID = errors.New("invalid_product_id")
	ErrInvalidEmail     = errors.New("invalid_email")
	ErrPriceUnavailable = errors.New("price_unavailable")
)
