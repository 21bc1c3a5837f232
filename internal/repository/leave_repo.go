package repository

import (
	"context"

	"backend/internal/model"
	"backend/internal/workflow"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type LeaveRepository interface {
	Create(ctx context.Context, req *model.LeaveRequest) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.LeaveRequest, error)
	List(ctx context.Context, status string, staffID string, page, limit int) ([]model.LeaveRequest, int64, error)
	// UpdateVersioned writes updates conditioned on the version observed at
	// read time; zero matched rows means a concurrent writer won and the
	// caller must re-read.
	UpdateVersioned(ctx context.Context, id uuid.UUID, version int, updates map[string]interface{}) error
}

type leaveRepository struct {
	db *gorm.DB
}

func NewLeaveRepository(db *gorm.DB) LeaveRepository {
	return &leaveRepository{db: db}
}

func (r *leaveRepository) Create(ctx context.Context, req *model.LeaveRequest) error {
	return GetDB(ctx, r.db).Create(req).Error
}

func (r *leaveRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.LeaveRequest, error) {
	var req model.LeaveRequest
	if err := GetDB(ctx, r.db).First(&req, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &req, nil
}

func (r *leaveRepository) List(ctx context.Context, status string, staffID string, page, limit int) ([]model.LeaveRequest, int64, error) {
	var rows []model.LeaveRequest
	var total int64

	db := GetDB(ctx, r.db)
	query := db.Model(&model.LeaveRequest{})
	if status != "" {
		query = query.Where("status = ?", status)
	}
	if staffID != "" {
		query = query.Where("staff_id = ?", staffID)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * limit
	if err := query.Order("created_at DESC").Offset(offset).Limit(limit).Find(&rows).Error; err != nil {
		return nil, 0, err
	}

	return rows, total, nil
}

func (r *leaveRepository) UpdateVersioned(ctx context.Context, id uuid.UUID, version int, updates map[string]interface{}) error {
	updates["version"] = version + 1
	res := GetDB(ctx, r.db).Model(&model.LeaveRequest{}).
		Where("id = ? AND version = ?", id, version).
		Updates(updates)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return workflow.ErrStaleEntity
	}
	return nil
}
