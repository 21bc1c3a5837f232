package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// LeaveStatus constants — the three-stage approval chain.
// rejected_* and admin_approved are terminal.
const (
	LeaveStatusPending              = "pending"
	LeaveStatusApprovedBySupervisor = "approved_by_supervisor"
	LeaveStatusHRApproved           = "hr_approved"
	LeaveStatusAdminApproved        = "admin_approved"
	LeaveStatusRejectedSupervisor   = "rejected_supervisor"
	LeaveStatusRejectedHR           = "rejected_hr"
	LeaveStatusRejectedAdmin        = "rejected_admin"
)

// LeaveRequest is a staff leave application moving through supervisor → HR → admin approval.
// Version guards the status column: every transition is written conditioned on the
// version observed at decision time, so two concurrent approvals cannot both win.
type LeaveRequest struct {
	ID                uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	StaffID           uuid.UUID  `gorm:"type:uuid;not null;index" json:"staff_id"`
	Staff             *User      `gorm:"foreignKey:StaffID" json:"staff,omitempty"`
	Reason            string     `gorm:"type:text;not null" json:"reason"`
	Days              int        `gorm:"type:int;not null" json:"days"`
	StartDate         time.Time  `gorm:"type:date;not null" json:"start_date"`
	Status            string     `gorm:"type:varchar(30);not null;default:'pending';index" json:"status"`
	SupervisorRemarks string     `gorm:"type:text" json:"supervisor_remarks,omitempty"`
	HRRemarks         string     `gorm:"type:text" json:"hr_remarks,omitempty"`
	AdminComment      string     `gorm:"type:text" json:"admin_comment,omitempty"`
	HRApprovedAt      *time.Time `json:"hr_approved_at,omitempty"`
	DecidedBy         *uuid.UUID `gorm:"type:uuid" json:"decided_by,omitempty"`
	Version           int        `gorm:"not null;default:1" json:"version"`
	CreatedAt         time.Time  `json:"created_at"`
	UpdatedAt         time.Time  `json:"updated_at"`
}

func (l *LeaveRequest) BeforeCreate(tx *gorm.DB) error {
	if l.ID == uuid.Nil {
		l.ID = uuid.New()
	}
	return nil
}

// AttendanceStatus constants
const (
	AttendancePresent = "present"
	AttendanceAbsent  = "absent"
	AttendanceLeave   = "leave"
)

// AttendanceRecord is one row per staff per calendar day.
// The (staff_id, day) unique index is what makes leave fan-out idempotent:
// a retried approval upserts into the same rows instead of duplicating them.
type AttendanceRecord struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	StaffID   uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_attendance_staff_day" json:"staff_id"`
	Day       time.Time `gorm:"type:date;not null;uniqueIndex:idx_attendance_staff_day" json:"day"`
	Status    string    `gorm:"type:varchar(20);not null" json:"status"`
	Note      string    `gorm:"type:text" json:"note,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (a *AttendanceRecord) BeforeCreate(tx *gorm.DB) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	return nil
}
