package repository

import (
	"context"

	"backend/internal/model"
	"backend/internal/workflow"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type HousekeepingRepository interface {
	CreateTask(ctx context.Context, task *model.HousekeepingTask) error
	FindTaskByID(ctx context.Context, id uuid.UUID) (*model.HousekeepingTask, error)
	ListTasks(ctx context.Context, status string, page, limit int) ([]model.HousekeepingTask, int64, error)
	UpdateTaskVersioned(ctx context.Context, id uuid.UUID, version int, updates map[string]interface{}) error

	CreateRoom(ctx context.Context, room *model.Room) error
	FindRoomByID(ctx context.Context, id uuid.UUID) (*model.Room, error)
	ListRooms(ctx context.Context, status string, page, limit int) ([]model.Room, int64, error)
	UpdateRoomStatus(ctx context.Context, roomID uuid.UUID, status string) error

	CreateServiceRecord(ctx context.Context, record *model.ServiceRecord) error
	ListServiceRecords(ctx context.Context, roomID uuid.UUID) ([]model.ServiceRecord, error)
}

type housekeepingRepository struct {
	db *gorm.DB
}

func NewHousekeepingRepository(db *gorm.DB) HousekeepingRepository {
	return &housekeepingRepository{db: db}
}

func (r *housekeepingRepository) CreateTask(ctx context.Context, task *model.HousekeepingTask) error {
	return GetDB(ctx, r.db).Create(task).Error
}

func (r *housekeepingRepository) FindTaskByID(ctx context.Context, id uuid.UUID) (*model.HousekeepingTask, error) {
	var task model.HousekeepingTask
	if err := GetDB(ctx, r.db).First(&task, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &task, nil
}

func (r *housekeepingRepository) ListTasks(ctx context.Context, status string, page, limit int) ([]model.HousekeepingTask, int64, error) {
	var tasks []model.HousekeepingTask
	var total int64

	db := GetDB(ctx, r.db)
	query := db.Model(&model.HousekeepingTask{})
	if status != "" {
		query = query.Where("status = ?", status)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * limit
	fetch := db.Preload("Room")
	if status != "" {
		fetch = fetch.Where("status = ?", status)
	}
	if err := fetch.Order("created_at DESC").Offset(offset).Limit(limit).Find(&tasks).Error; err != nil {
		return nil, 0, err
	}

	return tasks, total, nil
}

func (r *housekeepingRepository) UpdateTaskVersioned(ctx context.Context, id uuid.UUID, version int, updates map[string]interface{}) error {
	updates["version"] = version + 1
	res := GetDB(ctx, r.db).Model(&model.HousekeepingTask{}).
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

func (r *housekeepingRepository) CreateRoom(ctx context.Context, room *model.Room) error {
	return GetDB(ctx, r.db).Create(room).Error
}

func (r *housekeepingRepository) FindRoomByID(ctx context.Context, id uuid.UUID) (*model.Room, error) {
	var room model.Room
	if err := GetDB(ctx, r.db).First(&room, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &room, nil
}

func (r *housekeepingRepository) ListRooms(ctx context.Context, status string, page, limit int) ([]model.Room, int64, error) {
	var rooms []model.Room
	var total int64

	query := GetDB(ctx, r.db).Model(&model.Room{})
	if status != "" {
		query = query.Where("status = ?", status)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * limit
	if err := query.Order("room_number ASC").Offset(offset).Limit(limit).Find(&rooms).Error; err != nil {
		return nil, 0, err
	}

	return rooms, total, nil
}

func (r *housekeepingRepository) UpdateRoomStatus(ctx context.Context, roomID uuid.UUID, status string) error {
	return GetDB(ctx, r.db).Model(&model.Room{}).
		Where("id = ?", roomID).
		Update("status", status).Error
}

func (r *housekeepingRepository) CreateServiceRecord(ctx context.Context, record *model.ServiceRecord) error {
	return GetDB(ctx, r.db).Create(record).Error
}

func (r *housekeepingRepository) ListServiceRecords(ctx context.Context, roomID uuid.UUID) ([]model.ServiceRecord, error) {
	var records []model.ServiceRecord
	if err := GetDB(ctx, r.db).Where("room_id = ?", roomID).
		Order("created_at DESC").Find(&records).Error; err != nil {
		return nil, err
	}
	return records, nil
}
