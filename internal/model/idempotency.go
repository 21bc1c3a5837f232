package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// IdempotencyRecord marks a transition plan as applied. The unique Key is
// claimed inside the same transaction as the plan's writes, so a retried
// request either finds the key (and gets the recorded result back) or races
// on the insert and loses cleanly.
type IdempotencyRecord struct {
	ID         uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	Key        string    `gorm:"type:varchar(255);uniqueIndex;not null" json:"key"`
	EntityKind string    `gorm:"type:varchar(50);not null" json:"entity_kind"`
	EntityID   string    `gorm:"type:varchar(100);not null;index" json:"entity_id"`
	Result     string    `gorm:"type:jsonb" json:"result"`
	CreatedAt  time.Time `json:"created_at"`
}

func (r *IdempotencyRecord) BeforeCreate(tx *gorm.DB) error {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	return nil
}
