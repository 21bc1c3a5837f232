package database

import (
	"log"

	"backend/internal/model"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// NewConnection initializes a new connection pool using GORM
func NewConnection(dsn string) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		return nil, err
	}

	// Auto-migrate core models
	err = db.AutoMigrate(
		&model.User{},
		&model.RefreshToken{},
		&model.Role{},
		&model.Permission{},
		&model.AuditLog{},
		&model.LeaveRequest{},
		&model.AttendanceRecord{},
		&model.CashRegister{},
		&model.CashTransaction{},
		&model.KOTOrder{},
		&model.KOTItem{},
		&model.DiningTable{},
		&model.Room{},
		&model.HousekeepingTask{},
		&model.ServiceRecord{},
		&model.IdempotencyRecord{},
	)
	if err != nil {
		log.Println("WARNING: Failed to auto-migrate models:", err)
	}

	return db, nil
}
