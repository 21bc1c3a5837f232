package repository

import (
	"context"

	"backend/internal/model"
	"backend/internal/workflow"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type KOTRepository interface {
	Create(ctx context.Context, order *model.KOTOrder) error
	CreateItem(ctx context.Context, item *model.KOTItem) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.KOTOrder, error)
	FindByIDWithItems(ctx context.Context, id uuid.UUID) (*model.KOTOrder, error)
	List(ctx context.Context, status string, page, limit int) ([]model.KOTOrder, int64, error)
	UpdateVersioned(ctx context.Context, id uuid.UUID, version int, updates map[string]interface{}) error
	// UpdateItemStatus is conditioned on the item's current status so kitchen
	// stations racing on the same item cannot both advance it.
	UpdateItemStatus(ctx context.Context, itemID uuid.UUID, from, to string) error
	FindItem(ctx context.Context, itemID uuid.UUID) (*model.KOTItem, error)
	CountItemsByStatus(ctx context.Context, orderID uuid.UUID, status string) (int64, error)

	CreateTable(ctx context.Context, table *model.DiningTable) error
	ListTables(ctx context.Context) ([]model.DiningTable, error)
	// ClaimTable flips an unoccupied table to occupied in one conditioned
	// write; zero rows means it is missing or already taken.
	ClaimTable(ctx context.Context, tableNo string) error
	ReleaseTable(ctx context.Context, tableNo string) error
}

type kotRepository struct {
	db *gorm.DB
}

func NewKOTRepository(db *gorm.DB) KOTRepository {
	return &kotRepository{db: db}
}

func (r *kotRepository) Create(ctx context.Context, order *model.KOTOrder) error {
	return GetDB(ctx, r.db).Create(order).Error
}

func (r *kotRepository) CreateItem(ctx context.Context, item *model.KOTItem) error {
	return GetDB(ctx, r.db).Create(item).Error
}

func (r *kotRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.KOTOrder, error) {
	var order model.KOTOrder
	if err := GetDB(ctx, r.db).First(&order, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *kotRepository) FindByIDWithItems(ctx context.Context, id uuid.UUID) (*model.KOTOrder, error) {
	var order model.KOTOrder
	if err := GetDB(ctx, r.db).Preload("Items").First(&order, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *kotRepository) List(ctx context.Context, status string, page, limit int) ([]model.KOTOrder, int64, error) {
	var orders []model.KOTOrder
	var total int64

	db := GetDB(ctx, r.db)
	query := db.Model(&model.KOTOrder{})
	if status != "" {
		query = query.Where("status = ?", status)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * limit
	fetch := db.Preload("Items")
	if status != "" {
		fetch = fetch.Where("status = ?", status)
	}
	if err := fetch.Order("created_at DESC").Offset(offset).Limit(limit).Find(&orders).Error; err != nil {
		return nil, 0, err
	}

	return orders, total, nil
}

func (r *kotRepository) UpdateVersioned(ctx context.Context, id uuid.UUID, version int, updates map[string]interface{}) error {
	updates["version"] = version + 1
	res := GetDB(ctx, r.db).Model(&model.KOTOrder{}).
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

func (r *kotRepository) UpdateItemStatus(ctx context.Context, itemID uuid.UUID, from, to string) error {
	res := GetDB(ctx, r.db).Model(&model.KOTItem{}).
		Where("id = ? AND status = ?", itemID, from).
		Update("status", to)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return workflow.ErrStaleEntity
	}
	return nil
}

func (r *kotRepository) FindItem(ctx context.Context, itemID uuid.UUID) (*model.KOTItem, error) {
	var item model.KOTItem
	if err := GetDB(ctx, r.db).First(&item, "id = ?", itemID).Error; err != nil {
		return nil, err
	}
	return &item, nil
}

func (r *kotRepository) CountItemsByStatus(ctx context.Context, orderID uuid.UUID, status string) (int64, error) {
	var count int64
	err := GetDB(ctx, r.db).Model(&model.KOTItem{}).
		Where("order_id = ? AND status = ?", orderID, status).
		Count(&count).Error
	return count, err
}

func (r *kotRepository) CreateTable(ctx context.Context, table *model.DiningTable) error {
	return GetDB(ctx, r.db).Create(table).Error
}

func (r *kotRepository) ListTables(ctx context.Context) ([]model.DiningTable, error) {
	var tables []model.DiningTable
	if err := GetDB(ctx, r.db).Order("table_no ASC").Find(&tables).Error; err != nil {
		return nil, err
	}
	return tables, nil
}

func (r *kotRepository) ClaimTable(ctx context.Context, tableNo string) error {
	res := GetDB(ctx, r.db).Model(&model.DiningTable{}).
		Where("table_no = ? AND occupied = ?", tableNo, false).
		Update("occupied", true)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return workflow.ErrStaleEntity
	}
	return nil
}

func (r *kotRepository) ReleaseTable(ctx context.Context, tableNo string) error {
	return GetDB(ctx, r.db).Model(&model.DiningTable{}).
		Where("table_no = ?", tableNo).
		Update("occupied", false).Error
}
