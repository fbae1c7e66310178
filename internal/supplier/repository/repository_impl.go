package repository

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/karat/internal/supplier/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, v *domain.Vendor) error {
	return db.WithContext(ctx).Create(v).Error
}

func (r *repo) Update(ctx context.Context, db *gorm.DB, v *domain.Vendor) error {
	return db.WithContext(ctx).
		Model(&domain.Vendor{}).
		Where("id = ?", v.ID).
		Updates(map[string]any{
			"name":       v.Name,
			"endpoint":   v.Endpoint,
			"credential": v.Credential,
			"active":     v.Active,
			"updated_at": v.UpdatedAt,
		}).Error
}

func (r *repo) Delete(ctx context.Context, db *gorm.DB, id snowflake.ID) (int64, error) {
	res := db.WithContext(ctx).Where("id = ?", id).Delete(&domain.Vendor{})
	return res.RowsAffected, res.Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.Vendor, error) {
	var v domain.Vendor
	err := db.WithContext(ctx).Where("id = ?", id).Take(&v).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &v, nil
}

func (r *repo) List(ctx context.Context, db *gorm.DB, activeOnly bool) ([]domain.Vendor, error) {
	var items []domain.Vendor
	stmt := db.WithContext(ctx).Model(&domain.Vendor{})
	if activeOnly {
		stmt = stmt.Where("active = ?", true)
	}
	if err := stmt.Order("created_at asc, id asc").Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (r *repo) DeactivateAllExcept(ctx context.Context, db *gorm.DB, id snowflake.ID) error {
	return db.WithContext(ctx).
		Model(&domain.Vendor{}).
		Where("id <> ? AND active = ?", id, true).
		Updates(map[string]any{
			"active":     false,
			"updated_at": time.Now().UTC(),
		}).Error
}
