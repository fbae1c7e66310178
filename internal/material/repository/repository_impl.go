package repository

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/karat/internal/material/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, m *domain.Material) error {
	return db.WithContext(ctx).Create(m).Error
}

func (r *repo) Update(ctx context.Context, db *gorm.DB, m *domain.Material) error {
	return db.WithContext(ctx).
		Model(&domain.Material{}).
		Where("id = ?", m.ID).
		Updates(map[string]any{
			"name":       m.Name,
			"code":       m.Code,
			"unit":       m.Unit,
			"purities":   m.Purities,
			"updated_at": m.UpdatedAt,
		}).Error
}

func (r *repo) Delete(ctx context.Context, db *gorm.DB, id snowflake.ID) (int64, error) {
	res := db.WithContext(ctx).Where("id = ?", id).Delete(&domain.Material{})
	return res.RowsAffected, res.Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.Material, error) {
	var m domain.Material
	err := db.WithContext(ctx).Where("id = ?", id).Take(&m).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &m, nil
}

func (r *repo) FindByCode(ctx context.Context, db *gorm.DB, code string) (*domain.Material, error) {
	var m domain.Material
	err := db.WithContext(ctx).Where("code = ?", code).Take(&m).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &m, nil
}

func (r *repo) List(ctx context.Context, db *gorm.DB) ([]domain.Material, error) {
	var items []domain.Material
	if err := db.WithContext(ctx).Order("name asc").Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}
