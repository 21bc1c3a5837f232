package service

import (
	"testing"

	"backend/internal/ledger"
	"backend/internal/model"
	"backend/internal/repository"
	"backend/internal/workflow"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// testEnv wires the full service stack against a throwaway sqlite file.
type testEnv struct {
	db           *gorm.DB
	leaves       LeaveService
	kot          KOTService
	housekeeping HousekeepingService
	ledgerSvc    LedgerService
	engine       *ledger.Service
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	dsn := "file:" + t.TempDir() + "/test.db?_busy_timeout=5000&_txlock=immediate"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	require.NoError(t, db.AutoMigrate(
		&model.User{},
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
	))

	log := logrus.New()
	log.SetLevel(logrus.ErrorLevel)

	txManager := repository.NewTransactionManager(db)
	auditRepo := repository.NewAuditRepository(db)
	idemRepo := repository.NewIdempotencyRepository(db)
	leaveRepo := repository.NewLeaveRepository(db)
	attendanceRepo := repository.NewAttendanceRepository(db)
	registerRepo := repository.NewRegisterRepository(db)
	kotRepo := repository.NewKOTRepository(db)
	hkRepo := repository.NewHousekeepingRepository(db)

	propagator := workflow.NewPropagator(txManager, idemRepo, workflow.NopPublisher{}, log)
	engine := ledger.NewService(registerRepo, txManager, log)

	return &testEnv{
		db:           db,
		leaves:       NewLeaveService(leaveRepo, attendanceRepo, auditRepo, txManager, propagator),
		kot:          NewKOTService(kotRepo, auditRepo, txManager, propagator, engine, KOTConfig{RequireItemsServed: true}),
		housekeeping: NewHousekeepingService(hkRepo, auditRepo, txManager, propagator),
		ledgerSvc:    NewLedgerService(engine, auditRepo, txManager),
		engine:       engine,
	}
}

func mustDec(t *testing.T, s string) decimal.Decimal {
	t.Helper()
	d, err := decimal.NewFromString(s)
	require.NoError(t, err)
	return d
}

func countRows(t *testing.T, db *gorm.DB, value interface{}) int64 {
	t.Helper()
	var n int64
	require.NoError(t, db.Model(value).Count(&n).Error)
	return n
}
