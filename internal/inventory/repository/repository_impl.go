package repository

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/karat/internal/inventory/domain"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Adjust(ctx context.Context, db *gorm.DB, materialID snowflake.ID, change decimal.Decimal, at time.Time) (decimal.Decimal, error) {
	db = db.WithContext(ctx)

	updated, err := r.applyChange(db, materialID, change, at)
	if err != nil {
		return decimal.Zero, err
	}
	if updated == 0 {
		initial := change
		if initial.IsNegative() {
			initial = decimal.Zero
		}
		res := db.Clauses(clause.OnConflict{DoNothing: true}).Create(&domain.Record{
			MaterialID: materialID,
			Quantity:   initial,
			UpdatedAt:  at,
		})
		if res.Error != nil {
			return decimal.Zero, res.Error
		}
		if res.RowsAffected == 0 {
			// a concurrent writer created the row first
			if _, err := r.applyChange(db, materialID, change, at); err != nil {
				return decimal.Zero, err
			}
		}
	}

	var record domain.Record
	if err := db.Where("material_id = ?", materialID).Take(&record).Error; err != nil {
		return decimal.Zero, err
	}
	return record.Quantity, nil
}

func (r *repo) applyChange(db *gorm.DB, materialID snowflake.ID, change decimal.Decimal, at time.Time) (int64, error) {
	res := db.Exec(
		`UPDATE inventory
		 SET quantity = CASE WHEN quantity + ? < 0 THEN 0 ELSE quantity + ? END,
		     updated_at = ?
		 WHERE material_id = ?`,
		change, change, at, materialID,
	)
	return res.RowsAffected, res.Error
}

func (r *repo) Find(ctx context.Context, db *gorm.DB, materialID snowflake.ID) (*domain.Record, error) {
	var record domain.Record
	err := db.WithContext(ctx).Where("material_id = ?", materialID).Take(&record).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &record, nil
}

func (r *repo) List(ctx context.Context, db *gorm.DB) ([]domain.Record, error) {
	var items []domain.Record
	if err := db.WithContext(ctx).Order("material_id asc").Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (r *repo) InsertOrderDeduction(ctx context.Context, db *gorm.DB, entry *domain.OrderDeduction) error {
	return db.WithContext(ctx).Create(entry).Error
}
