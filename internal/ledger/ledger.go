package ledger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"backend/internal/model"
	"backend/internal/repository"
	"backend/internal/workflow"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

var (
	// ErrRegisterNotFound — no register with the given id.
	ErrRegisterNotFound = errors.New("cash register not found")
	// ErrInvalidAmount — a credit of zero is meaningless and rejected.
	ErrInvalidAmount = errors.New("change amount must be non-zero")
	// ErrLedgerContention — the optimistic retry budget ran out. Retryable by
	// the caller.
	ErrLedgerContention = errors.New("register contention: retry budget exhausted")
)

// DriftError reports a reconciliation mismatch between the stored balance and
// the transaction log. A data-integrity alarm, not a request failure.
type DriftError struct {
	RegisterID uuid.UUID
	Stored     decimal.Decimal
	Recomputed decimal.Decimal
}

func (e *DriftError) Error() string {
	return fmt.Sprintf("register %s: stored balance %s does not match transaction sum %s",
		e.RegisterID, e.Stored, e.Recomputed)
}

const (
	maxCreditAttempts = 5
	retryBackoff      = 10 * time.Millisecond
)

// CreditResult is the outcome of a successful credit (or debit).
type CreditResult struct {
	Transaction model.CashTransaction `json:"transaction"`
	NewBalance  decimal.Decimal       `json:"new_balance"`
}

// Service is the only writer of register balances. Every domain flow that
// moves money — KOT settlement, room-payment settlement, manual adjustment —
// goes through Credit; nothing else touches cash_registers.balance.
type Service struct {
	registers repository.RegisterRepository
	txManager repository.TransactionManager
	log       *logrus.Logger
}

func NewService(registers repository.RegisterRepository, txManager repository.TransactionManager, log *logrus.Logger) *Service {
	return &Service{registers: registers, txManager: txManager, log: log}
}

// CreateRegister opens a till with the given starting balance. The opening
// amount is written as the first ledger row so balance == Σ(log) from day one.
func (s *Service) CreateRegister(ctx context.Context, name string, opening decimal.Decimal, actor *uuid.UUID) (*model.CashRegister, error) {
	register := &model.CashRegister{Name: name, Balance: opening}
	err := s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.registers.Create(txCtx, register); err != nil {
			return fmt.Errorf("failed to create register: %w", err)
		}
		if opening.IsZero() {
			return nil
		}
		txn := &model.CashTransaction{
			RegisterID:   register.ID,
			ChangeAmount: opening,
			BalanceAfter: opening,
			Reason:       "opening balance",
			CreatedBy:    actor,
		}
		if err := s.registers.AppendTransaction(txCtx, txn); err != nil {
			return fmt.Errorf("failed to record opening balance: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return register, nil
}

// GetRegister loads a register by id.
func (s *Service) GetRegister(ctx context.Context, id uuid.UUID) (*model.CashRegister, error) {
	register, err := s.registers.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrRegisterNotFound
		}
		return nil, err
	}
	return register, nil
}

// ListRegisters returns registers with pagination.
func (s *Service) ListRegisters(ctx context.Context, page, limit int) ([]model.CashRegister, int64, error) {
	return s.registers.List(ctx, page, limit)
}

// ListTransactions returns the append-only log for a register, newest first.
func (s *Service) ListTransactions(ctx context.Context, registerID uuid.UUID, page, limit int) ([]model.CashTransaction, int64, error) {
	return s.registers.ListTransactions(ctx, registerID, page, limit)
}

// Credit applies a signed amount to the register: read balance+version,
// compute, write conditioned on the version still matching, and only then
// append the transaction row — all in one unit. On a version miss the whole
// cycle is retried with backoff up to maxCreditAttempts, then surfaces
// ErrLedgerContention. When ctx already carries a transaction (a settlement
// step inside a transition plan) a single attempt joins it and the enclosing
// plan is the retry unit.
func (s *Service) Credit(ctx context.Context, registerID uuid.UUID, amount decimal.Decimal, reason, referenceID string, actor *uuid.UUID) (*CreditResult, error) {
	if amount.IsZero() {
		return nil, ErrInvalidAmount
	}
	if reason == "" {
		return nil, errors.New("reason is required")
	}

	attempts := maxCreditAttempts
	if s.txManager.InTx(ctx) {
		attempts = 1
	}

	for attempt := 0; attempt < attempts; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(time.Duration(attempt) * retryBackoff):
			}
		}

		result, err := s.tryCredit(ctx, registerID, amount, reason, referenceID, actor)
		if err == nil {
			s.log.WithFields(logrus.Fields{
				"register":  registerID,
				"amount":    amount.String(),
				"balance":   result.NewBalance.String(),
				"reference": referenceID,
			}).Info("register credited")
			return result, nil
		}
		if errors.Is(err, workflow.ErrStaleEntity) {
			continue
		}
		return nil, err
	}

	if s.txManager.InTx(ctx) {
		return nil, workflow.ErrStaleEntity
	}
	return nil, ErrLedgerContention
}

func (s *Service) tryCredit(ctx context.Context, registerID uuid.UUID, amount decimal.Decimal, reason, referenceID string, actor *uuid.UUID) (*CreditResult, error) {
	var result *CreditResult

	err := s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		register, err := s.registers.FindByID(txCtx, registerID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrRegisterNotFound
			}
			return fmt.Errorf("failed to load register: %w", err)
		}

		newBalance := register.Balance.Add(amount)
		if err := s.registers.UpdateBalanceVersioned(txCtx, register.ID, register.Version, newBalance); err != nil {
			return err
		}

		txn := &model.CashTransaction{
			RegisterID:   register.ID,
			ChangeAmount: amount,
			BalanceAfter: newBalance,
			Reason:       reason,
			ReferenceID:  referenceID,
			CreatedBy:    actor,
		}
		if err := s.registers.AppendTransaction(txCtx, txn); err != nil {
			return fmt.Errorf("failed to append transaction: %w", err)
		}

		result = &CreditResult{Transaction: *txn, NewBalance: newBalance}
		return nil
	})

	if err != nil {
		return nil, err
	}
	return result, nil
}

// RecomputeBalance sums the transaction log and compares it against the
// stored balance, returning *DriftError on mismatch. Diagnostics only; never
// repairs anything.
func (s *Service) RecomputeBalance(ctx context.Context, registerID uuid.UUID) (decimal.Decimal, error) {
	register, err := s.GetRegister(ctx, registerID)
	if err != nil {
		return decimal.Zero, err
	}

	recomputed, err := s.registers.SumTransactions(ctx, registerID)
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to sum transactions: %w", err)
	}

	if !recomputed.Equal(register.Balance) {
		s.log.WithFields(logrus.Fields{
			"register":   registerID,
			"stored":     register.Balance.String(),
			"recomputed": recomputed.String(),
		}).Error("ledger drift detected")
		return recomputed, &DriftError{RegisterID: registerID, Stored: register.Balance, Recomputed: recomputed}
	}

	return recomputed, nil
}
