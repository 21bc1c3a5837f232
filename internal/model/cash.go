package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// CashRegister holds the running balance of one till.
// Balance is only ever written by the ledger service, conditioned on Version;
// the invariant balance == Σ(cash_transactions.change_amount) holds between
// any two operations.
type CashRegister struct {
	ID        uuid.UUID       `gorm:"type:uuid;primaryKey" json:"id"`
	Name      string          `gorm:"type:varchar(100);uniqueIndex;not null" json:"name"`
	Balance   decimal.Decimal `gorm:"type:decimal(14,2);not null" json:"balance"`
	Version   int             `gorm:"not null;default:1" json:"version"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

func (r *CashRegister) BeforeCreate(tx *gorm.DB) error {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	return nil
}

// CashTransaction is one append-only ledger row. Rows are never updated or
// deleted once written; debits are negative ChangeAmount values.
type CashTransaction struct {
	ID           uuid.UUID       `gorm:"type:uuid;primaryKey" json:"id"`
	RegisterID   uuid.UUID       `gorm:"type:uuid;not null;index" json:"register_id"`
	ChangeAmount decimal.Decimal `gorm:"type:decimal(14,2);not null" json:"change_amount"`
	BalanceAfter decimal.Decimal `gorm:"type:decimal(14,2);not null" json:"balance_after"`
	Reason       string          `gorm:"type:varchar(255);not null" json:"reason"`
	ReferenceID  string          `gorm:"type:varchar(100);index" json:"reference_id,omitempty"`
	CreatedBy    *uuid.UUID      `gorm:"type:uuid" json:"created_by,omitempty"`
	CreatedAt    time.Time       `gorm:"index" json:"created_at"`
}

func (t *CashTransaction) BeforeCreate(tx *gorm.DB) error {
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	return nil
}
