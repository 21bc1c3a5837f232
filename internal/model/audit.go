package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	ActionCreateLeaveRequest    = "CREATE_LEAVE_REQUEST"
	ActionDecideLeaveRequest    = "DECIDE_LEAVE_REQUEST"
	ActionCreateKOTOrder        = "CREATE_KOT_ORDER"
	ActionCloseKOTOrder         = "CLOSE_KOT_ORDER"
	ActionCancelKOTOrder        = "CANCEL_KOT_ORDER"
	ActionCreateHousekeeping    = "CREATE_HOUSEKEEPING_TASK"
	ActionAdvanceHousekeeping   = "ADVANCE_HOUSEKEEPING_TASK"
	ActionCreateCashRegister    = "CREATE_CASH_REGISTER"
	ActionCreditCashRegister    = "CREDIT_CASH_REGISTER"
	ActionReconcileCashRegister = "RECONCILE_CASH_REGISTER"
)

// AuditLog tracks Who, What, and When for critical system changes
type AuditLog struct {
	ID         uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	UserID     *uuid.UUID `gorm:"type:uuid;index" json:"user_id"` // Nullable gracefully if automated bot
	User       *User      `gorm:"foreignKey:UserID" json:"user"`
	Action     string     `gorm:"type:varchar(50);not null;index" json:"action"`
	EntityID   string     `gorm:"type:varchar(50);index" json:"entity_id"`        // Reference string (uuid/code)
	EntityName string     `gorm:"type:varchar(255)" json:"entity_name,omitempty"` // Human readable name
	Details    string     `gorm:"type:jsonb" json:"details"`                      // Serialized JSON payload of the action
	CreatedAt  time.Time  `gorm:"index" json:"created_at"`
}

func (a *AuditLog) BeforeCreate(tx *gorm.DB) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	return nil
}
