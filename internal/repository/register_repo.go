package repository

import (
	"context"

	"backend/internal/model"
	"backend/internal/workflow"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type RegisterRepository interface {
	Create(ctx context.Context, register *model.CashRegister) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.CashRegister, error)
	List(ctx context.Context, page, limit int) ([]model.CashRegister, int64, error)
	// UpdateBalanceVersioned is the conditioned write closing the lost-update
	// race on the shared balance. Zero matched rows means the register moved
	// since it was read.
	UpdateBalanceVersioned(ctx context.Context, id uuid.UUID, version int, balance decimal.Decimal) error
	AppendTransaction(ctx context.Context, txn *model.CashTransaction) error
	ListTransactions(ctx context.Context, registerID uuid.UUID, page, limit int) ([]model.CashTransaction, int64, error)
	SumTransactions(ctx context.Context, registerID uuid.UUID) (decimal.Decimal, error)
}

type registerRepository struct {
	db *gorm.DB
}

func NewRegisterRepository(db *gorm.DB) RegisterRepository {
	return &registerRepository{db: db}
}

func (r *registerRepository) Create(ctx context.Context, register *model.CashRegister) error {
	return GetDB(ctx, r.db).Create(register).Error
}

func (r *registerRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.CashRegister, error) {
	var register model.CashRegister
	if err := GetDB(ctx, r.db).First(&register, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &register, nil
}

func (r *registerRepository) List(ctx context.Context, page, limit int) ([]model.CashRegister, int64, error) {
	var registers []model.CashRegister
	var total int64

	db := GetDB(ctx, r.db).Model(&model.CashRegister{})
	if err := db.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * limit
	if err := db.Order("name ASC").Offset(offset).Limit(limit).Find(&registers).Error; err != nil {
		return nil, 0, err
	}

	return registers, total, nil
}

func (r *registerRepository) UpdateBalanceVersioned(ctx context.Context, id uuid.UUID, version int, balance decimal.Decimal) error {
	res := GetDB(ctx, r.db).Model(&model.CashRegister{}).
		Where("id = ? AND version = ?", id, version).
		Updates(map[string]interface{}{
			"balance": balance,
			"version": version + 1,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return workflow.ErrStaleEntity
	}
	return nil
}

func (r *registerRepository) AppendTransaction(ctx context.Context, txn *model.CashTransaction) error {
	return GetDB(ctx, r.db).Create(txn).Error
}

func (r *registerRepository) ListTransactions(ctx context.Context, registerID uuid.UUID, page, limit int) ([]model.CashTransaction, int64, error) {
	var txns []model.CashTransaction
	var total int64

	db := GetDB(ctx, r.db).Model(&model.CashTransaction{}).Where("register_id = ?", registerID)
	if err := db.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * limit
	if err := db.Order("created_at DESC").Offset(offset).Limit(limit).Find(&txns).Error; err != nil {
		return nil, 0, err
	}

	return txns, total, nil
}

// SumTransactions totals the log in Go with decimal arithmetic rather than
// SQL SUM, so the result is exact on every storage engine.
func (r *registerRepository) SumTransactions(ctx context.Context, registerID uuid.UUID) (decimal.Decimal, error) {
	var amounts []decimal.Decimal
	if err := GetDB(ctx, r.db).Model(&model.CashTransaction{}).
		Where("register_id = ?", registerID).
		Pluck("change_amount", &amounts).Error; err != nil {
		return decimal.Zero, err
	}

	sum := decimal.Zero
	for _, a := range amounts {
		sum = sum.Add(a)
	}
	return sum, nil
}
