package ledger

import (
	"context"
	"sync"
	"testing"

	"backend/internal/model"
	"backend/internal/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := "file:" + t.TempDir() + "/test.db?_busy_timeout=5000&_txlock=immediate"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&model.CashRegister{}, &model.CashTransaction{}))
	return db
}

func newTestService(t *testing.T) (*Service, *gorm.DB) {
	t.Helper()

	db := newTestDB(t)
	log := logrus.New()
	log.SetLevel(logrus.ErrorLevel)
	return NewService(repository.NewRegisterRepository(db), repository.NewTransactionManager(db), log), db
}

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

func TestCreateRegisterWritesOpeningRow(t *testing.T) {
	s, _ := newTestService(t)
	ctx := context.Background()

	register, err := s.CreateRegister(ctx, "front desk", dec("500.00"), nil)
	require.NoError(t, err)
	assert.True(t, register.Balance.Equal(dec("500.00")))

	txns, total, err := s.ListTransactions(ctx, register.ID, 1, 10)
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)
	assert.True(t, txns[0].ChangeAmount.Equal(dec("500.00")))
	assert.Equal(t, "opening balance", txns[0].Reason)

	// Zero opening balance writes no row.
	empty, err := s.CreateRegister(ctx, "bar", decimal.Zero, nil)
	require.NoError(t, err)
	_, total, err = s.ListTransactions(ctx, empty.ID, 1, 10)
	require.NoError(t, err)
	assert.EqualValues(t, 0, total)
}

func TestCreditAppendsRowAndUpdatesBalance(t *testing.T) {
	s, _ := newTestService(t)
	ctx := context.Background()

	register, err := s.CreateRegister(ctx, "front desk", dec("1200.00"), nil)
	require.NoError(t, err)

	result, err := s.Credit(ctx, register.ID, dec("-500.00"), "room refund", "booking-42", nil)
	require.NoError(t, err)
	assert.True(t, result.NewBalance.Equal(dec("700.00")))
	assert.True(t, result.Transaction.BalanceAfter.Equal(dec("700.00")))
	assert.Equal(t, "booking-42", result.Transaction.ReferenceID)

	reloaded, err := s.GetRegister(ctx, register.ID)
	require.NoError(t, err)
	assert.True(t, reloaded.Balance.Equal(dec("700.00")))
	assert.Equal(t, 2, reloaded.Version)
}

func TestCreditRejectsBadInput(t *testing.T) {
	s, _ := newTestService(t)
	ctx := context.Background()

	register, err := s.CreateRegister(ctx, "front desk", decimal.Zero, nil)
	require.NoError(t, err)

	_, err = s.Credit(ctx, register.ID, decimal.Zero, "nothing", "", nil)
	assert.ErrorIs(t, err, ErrInvalidAmount)

	_, err = s.Credit(ctx, register.ID, dec("10.00"), "", "", nil)
	assert.Error(t, err)
}

func TestCreditUnknownRegister(t *testing.T) {
	s, _ := newTestService(t)

	_, err := s.Credit(context.Background(), uuid.New(), dec("10.00"), "test", "", nil)
	assert.ErrorIs(t, err, ErrRegisterNotFound)
}

func TestConcurrentCreditsBothLand(t *testing.T) {
	s, _ := newTestService(t)
	ctx := context.Background()

	register, err := s.CreateRegister(ctx, "front desk", dec("500.00"), nil)
	require.NoError(t, err)

	var wg sync.WaitGroup
	errs := make([]error, 2)
	amounts := []decimal.Decimal{dec("100.00"), dec("-40.00")}
	for i := range amounts {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = s.Credit(ctx, register.ID, amounts[i], "concurrent", "", nil)
		}(i)
	}
	wg.Wait()

	require.NoError(t, errs[0])
	require.NoError(t, errs[1])

	reloaded, err := s.GetRegister(ctx, register.ID)
	require.NoError(t, err)
	assert.True(t, reloaded.Balance.Equal(dec("560.00")),
		"expected 560.00, got %s", reloaded.Balance)

	// Opening row plus one row per credit, never a lost update.
	_, total, err := s.ListTransactions(ctx, register.ID, 1, 10)
	require.NoError(t, err)
	assert.EqualValues(t, 3, total)

	recomputed, err := s.RecomputeBalance(ctx, register.ID)
	require.NoError(t, err)
	assert.True(t, recomputed.Equal(reloaded.Balance))
}

func TestRecomputeBalanceDetectsDrift(t *testing.T) {
	s, db := newTestService(t)
	ctx := context.Background()

	register, err := s.CreateRegister(ctx, "front desk", dec("500.00"), nil)
	require.NoError(t, err)

	// Corrupt the stored balance behind the ledger's back.
	require.NoError(t, db.Model(&model.CashRegister{}).
		Where("id = ?", register.ID).
		Update("balance", dec("999.99")).Error)

	recomputed, err := s.RecomputeBalance(ctx, register.ID)
	require.Error(t, err)

	var drift *DriftError
	require.ErrorAs(t, err, &drift)
	assert.True(t, drift.Stored.Equal(dec("999.99")))
	assert.True(t, drift.Recomputed.Equal(dec("500.00")))
	assert.True(t, recomputed.Equal(dec("500.00")))
}
