package repository

import (
	"context"

	"backend/internal/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type AttendanceRepository interface {
	// UpsertRange inserts one record per day, updating status/note on the
	// (staff_id, day) unique key instead of duplicating rows. Retried leave
	// approvals land on the same rows.
	UpsertRange(ctx context.Context, records []model.AttendanceRecord) error
	ListByStaff(ctx context.Context, staffID string, page, limit int) ([]model.AttendanceRecord, int64, error)
}

type attendanceRepository struct {
	db *gorm.DB
}

func NewAttendanceRepository(db *gorm.DB) AttendanceRepository {
	return &attendanceRepository{db: db}
}

func (r *attendanceRepository) UpsertRange(ctx context.Context, records []model.AttendanceRecord) error {
	if len(records) == 0 {
		return nil
	}
	return GetDB(ctx, r.db).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "staff_id"}, {Name: "day"}},
		DoUpdates: clause.AssignmentColumns([]string{"status", "note", "updated_at"}),
	}).Create(&records).Error
}

func (r *attendanceRepository) ListByStaff(ctx context.Context, staffID string, page, limit int) ([]model.AttendanceRecord, int64, error) {
	var rows []model.AttendanceRecord
	var total int64

	db := GetDB(ctx, r.db).Model(&model.AttendanceRecord{}).Where("staff_id = ?", staffID)
	if err := db.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * limit
	if err := db.Order("day DESC").Offset(offset).Limit(limit).Find(&rows).Error; err != nil {
		return nil, 0, err
	}

	return rows, total, nil
}
