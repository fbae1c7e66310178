package repository

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/karat/internal/pricing/domain"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) ListRules(ctx context.Context, db *gorm.DB) ([]domain.Rule, error) {
	var rules []domain.Rule
	if err := db.WithContext(ctx).Order("position asc, id asc").Find(&rules).Error; err != nil {
		return nil, err
	}
	return rules, nil
}

func (r *repo) InsertRule(ctx context.Context, db *gorm.DB, rule *domain.Rule) error {
	return db.WithContext(ctx).Create(rule).Error
}

func (r *repo) DeleteRule(ctx context.Context, db *gorm.DB, id snowflake.ID) (int64, error) {
	res := db.WithContext(ctx).Where("id = ?", id).Delete(&domain.Rule{})
	return res.RowsAffected, res.Error
}

func (r *repo) NextRulePosition(ctx context.Context, db *gorm.DB) (int, error) {
	var max int
	row := db.WithContext(ctx).Model(&domain.Rule{}).Select("COALESCE(MAX(position), 0)").Row()
	if err := row.Scan(&max); err != nil {
		return 0, err
	}
	return max + 1, nil
}

func (r *repo) GetSetting(ctx context.Context, db *gorm.DB, key string) (*domain.Setting, error) {
	var setting domain.Setting
	err := db.WithContext(ctx).Where("setting_key = ?", key).Take(&setting).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &setting, nil
}

func (r *repo) PutSetting(ctx context.Context, db *gorm.DB, setting *domain.Setting) error {
	return db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "setting_key"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
	}).Create(setting).Error
}
