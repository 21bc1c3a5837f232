package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// KOTStatus constants. open → {closed, cancelled}; closed and cancelled are terminal.
const (
	KOTStatusOpen      = "open"
	KOTStatusClosed    = "closed"
	KOTStatusCancelled = "cancelled"
)

// KOTOrderType constants
const (
	KOTOrderTypeDineIn   = "dine_in"
	KOTOrderTypeTakeaway = "takeaway"
	KOTOrderTypeRoom     = "room_service"
)

// KOTOrder is a kitchen order ticket. TableNo is cleared when the order
// closes or is cancelled, which is what frees the table for reuse.
type KOTOrder struct {
	ID        uuid.UUID       `gorm:"type:uuid;primaryKey" json:"id"`
	TableNo   *string         `gorm:"type:varchar(20);index" json:"table_no,omitempty"`
	Status    string          `gorm:"type:varchar(20);not null;default:'open';index" json:"status"`
	OrderType string          `gorm:"type:varchar(20);not null" json:"order_type"`
	Amount    decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"amount"`
	GST       decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"gst"`
	Total     decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"total"`
	Items     []KOTItem       `gorm:"foreignKey:OrderID" json:"items,omitempty"`
	Version   int             `gorm:"not null;default:1" json:"version"`
	CreatedBy *uuid.UUID      `gorm:"type:uuid" json:"created_by,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

func (o *KOTOrder) BeforeCreate(tx *gorm.DB) error {
	if o.ID == uuid.Nil {
		o.ID = uuid.New()
	}
	return nil
}

// KOTItemStatus constants — kitchen-side progress, independent of the order
// status except that an order cannot close while items are still pending.
const (
	KOTItemPending    = "pending"
	KOTItemInProgress = "in_progress"
	KOTItemReady      = "ready"
	KOTItemServed     = "served"
)

// KOTItem is a line on a ticket. Items survive cancellation for audit.
type KOTItem struct {
	ID        uuid.UUID       `gorm:"type:uuid;primaryKey" json:"id"`
	OrderID   uuid.UUID       `gorm:"type:uuid;not null;index" json:"order_id"`
	Name      string          `gorm:"type:varchar(255);not null" json:"name"`
	Qty       int             `gorm:"type:int;not null" json:"qty"`
	Rate      decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"rate"`
	Status    string          `gorm:"type:varchar(20);not null;default:'pending'" json:"status"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

func (i *KOTItem) BeforeCreate(tx *gorm.DB) error {
	if i.ID == uuid.Nil {
		i.ID = uuid.New()
	}
	return nil
}

// DiningTable tracks occupancy for dine-in tickets. Occupied means exactly
// one open order currently holds the table number.
type DiningTable struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	TableNo   string    `gorm:"type:varchar(20);uniqueIndex;not null" json:"table_no"`
	Occupied  bool      `gorm:"not null;default:false" json:"occupied"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (t *DiningTable) BeforeCreate(tx *gorm.DB) error {
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	return nil
}
