package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// RoomStatus constants. This core only writes cleaning_required and available
// (housekeeping-driven); occupied/reserved belong to the booking collaborator.
const (
	RoomStatusAvailable        = "available"
	RoomStatusOccupied         = "occupied"
	RoomStatusReserved         = "reserved"
	RoomStatusCleaningRequired = "cleaning_required"
)

// Room is a physical hotel room.
type Room struct {
	ID         uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	RoomNumber string    `gorm:"type:varchar(20);uniqueIndex;not null" json:"room_number"`
	Floor      int       `gorm:"type:int;not null" json:"floor"`
	Status     string    `gorm:"type:varchar(30);not null;default:'available';index" json:"status"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

func (r *Room) BeforeCreate(tx *gorm.DB) error {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	return nil
}

// HousekeepingStatus constants. One-directional:
// pending → inspection → cleaning → cleaned (terminal for this task).
const (
	HousekeepingPending    = "pending"
	HousekeepingInspection = "inspection"
	HousekeepingCleaning   = "cleaning"
	HousekeepingCleaned    = "cleaned"
)

// HousekeepingTask drives a room through one dirty→clean cycle. Reaching
// cleaned flips the room back to available in the same unit of work.
type HousekeepingTask struct {
	ID           uuid.UUID       `gorm:"type:uuid;primaryKey" json:"id"`
	RoomID       uuid.UUID       `gorm:"type:uuid;not null;index" json:"room_id"`
	Room         *Room           `gorm:"foreignKey:RoomID" json:"room,omitempty"`
	Status       string          `gorm:"type:varchar(20);not null;default:'pending';index" json:"status"`
	DamageFound  bool            `gorm:"not null;default:false" json:"damage_found"`
	DamageNotes  string          `gorm:"type:text" json:"damage_notes,omitempty"`
	DamageAmount decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"damage_amount"`
	AssignedTo   *uuid.UUID      `gorm:"type:uuid" json:"assigned_to,omitempty"`
	Version      int             `gorm:"not null;default:1" json:"version"`
	CreatedAt    time.Time       `json:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at"`
}

func (t *HousekeepingTask) BeforeCreate(tx *gorm.DB) error {
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	return nil
}

// ServiceRecord is the audit row written when a housekeeping task completes.
type ServiceRecord struct {
	ID        uuid.UUID       `gorm:"type:uuid;primaryKey" json:"id"`
	RoomID    uuid.UUID       `gorm:"type:uuid;not null;index" json:"room_id"`
	TaskID    uuid.UUID       `gorm:"type:uuid;not null;index" json:"task_id"`
	Kind      string          `gorm:"type:varchar(30);not null" json:"kind"` // e.g. housekeeping
	Notes     string          `gorm:"type:text" json:"notes,omitempty"`
	Cost      decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"cost"`
	CreatedAt time.Time       `json:"created_at"`
}

func (s *ServiceRecord) BeforeCreate(tx *gorm.DB) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	return nil
}
