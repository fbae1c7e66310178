package repository

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/karat/internal/rate/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) ReplaceCurrent(ctx context.Context, db *gorm.DB, table domain.RateTable, currency string, at time.Time) error {
	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Exec(`DELETE FROM current_rates`).Error; err != nil {
			return err
		}
		if len(table) == 0 {
			return nil
		}
		rows := make([]domain.CurrentRate, 0, len(table))
		for material, rate := range table {
			rows = append(rows, domain.CurrentRate{
				Material:  material,
				Rate:      rate,
				Currency:  currency,
				UpdatedAt: at,
			})
		}
		return tx.Create(&rows).Error
	})
}

func (r *repo) LoadCurrent(ctx context.Context, db *gorm.DB) (domain.RateTable, error) {
	var rows []domain.CurrentRate
	if err := db.WithContext(ctx).Find(&rows).Error; err != nil {
		return nil, err
	}
	table := make(domain.RateTable, len(rows))
	for _, row := range rows {
		table[row.Material] = row.Rate
	}
	return table, nil
}

func (r *repo) AppendHistory(ctx context.Context, db *gorm.DB, snapshots []domain.RateSnapshot) error {
	if len(snapshots) == 0 {
		return nil
	}
	return db.WithContext(ctx).CreateInBatches(snapshots, 200).Error
}

func (r *repo) History(ctx context.Context, db *gorm.DB, materialID snowflake.ID, since time.Time) ([]domain.RateSnapshot, error) {
	var items []domain.RateSnapshot
	err := db.WithContext(ctx).
		Where("material_id = ? AND fetched_at >= ?", materialID, since).
		Order("fetched_at asc, id asc").
		Find(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}

func (r *repo) HistorySince(ctx context.Context, db *gorm.DB, since time.Time) ([]domain.RateSnapshot, error) {
	var items []domain.RateSnapshot
	err := db.WithContext(ctx).
		Where("fetched_at >= ?", since).
		Order("fetched_at asc, id asc").
		Find(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}
