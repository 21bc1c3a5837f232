package repository

import (
	"context"

	"backend/internal/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// IdempotencyRepository implements workflow.IdempotencyStore on gorm.
type IdempotencyRepository interface {
	Claim(ctx context.Context, key, kind, entityID string) (bool, string, error)
	SaveResult(ctx context.Context, key, result string) error
}

type idempotencyRepository struct {
	db *gorm.DB
}

func NewIdempotencyRepository(db *gorm.DB) IdempotencyRepository {
	return &idempotencyRepository{db: db}
}

// Claim inserts the key with ON CONFLICT DO NOTHING. Zero rows affected means
// an earlier plan holds the key; its recorded result is returned instead.
func (r *idempotencyRepository) Claim(ctx context.Context, key, kind, entityID string) (bool, string, error) {
	rec := model.IdempotencyRecord{Key: key, EntityKind: kind, EntityID: entityID}
	res := GetDB(ctx, r.db).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "key"}},
		DoNothing: true,
	}).Create(&rec)
	if res.Error != nil {
		return false, "", res.Error
	}
	if res.RowsAffected > 0 {
		return true, "", nil
	}

	var prior model.IdempotencyRecord
	if err := GetDB(ctx, r.db).Where("key = ?", key).First(&prior).Error; err != nil {
		return false, "", err
	}
	return false, prior.Result, nil
}

func (r *idempotencyRepository) SaveResult(ctx context.Context, key, result string) error {
	return GetDB(ctx, r.db).Model(&model.IdempotencyRecord{}).
		Where("key = ?", key).Update("result", result).Error
}
