package repository

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/karat/internal/catalog/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Save(ctx context.Context, db *gorm.DB, p *domain.CatalogProduct) error {
	return db.WithContext(ctx).Save(p).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.CatalogProduct, error) {
	var p domain.CatalogProduct
	err := db.WithContext(ctx).Where("id = ?", id).Take(&p).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *repo) List(ctx context.Context, db *gorm.DB) ([]domain.CatalogProduct, error) {
	var items []domain.CatalogProduct
	if err := db.WithContext(ctx).Order("name asc, id asc").Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}
