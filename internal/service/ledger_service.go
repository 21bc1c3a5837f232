package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"backend/internal/ledger"
	"backend/internal/model"
	"backend/internal/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ReconcileReport is the outcome of a balance reconciliation. Drift is an
// alarm carried in the payload; the stored balance is never repaired here.
type ReconcileReport struct {
	RegisterID string `json:"register_id"`
	Stored     string `json:"stored_balance"`
	Recomputed string `json:"recomputed_balance"`
	Drift      bool   `json:"drift"`
}

// LedgerService fronts the ledger engine for the HTTP layer: it parses actors,
// writes audit rows, and shapes responses. All balance math stays in ledger.
type LedgerService interface {
	CreateRegister(ctx context.Context, actorID string, name string, opening decimal.Decimal) (*model.CashRegister, error)
	GetRegister(ctx context.Context, id uuid.UUID) (*model.CashRegister, error)
	ListRegisters(ctx context.Context, page, limit int) ([]model.CashRegister, int64, error)
	Credit(ctx context.Context, actorID string, registerID uuid.UUID, amount decimal.Decimal, reason, referenceID string) (*ledger.CreditResult, error)
	ListTransactions(ctx context.Context, registerID uuid.UUID, page, limit int) ([]model.CashTransaction, int64, error)
	Reconcile(ctx context.Context, actorID string, registerID uuid.UUID) (*ReconcileReport, error)
}

type ledgerService struct {
	engine    *ledger.Service
	auditRepo repository.AuditRepository
	txManager repository.TransactionManager
}

func NewLedgerService(engine *ledger.Service, auditRepo repository.AuditRepository, txManager repository.TransactionManager) LedgerService {
	return &ledgerService{engine: engine, auditRepo: auditRepo, txManager: txManager}
}

func (s *ledgerService) CreateRegister(ctx context.Context, actorID string, name string, opening decimal.Decimal) (*model.CashRegister, error) {
	if name == "" {
		return nil, errors.New("register name is required")
	}

	actor := parseActor(actorID)
	var register *model.CashRegister
	err := s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		created, createErr := s.engine.CreateRegister(txCtx, name, opening, actor)
		if createErr != nil {
			return createErr
		}
		register = created

		details, _ := json.Marshal(map[string]interface{}{
			"name":    name,
			"opening": opening.StringFixed(2),
		})
		return s.auditRepo.Log(txCtx, &model.AuditLog{
			UserID:     actor,
			Action:     model.ActionCreateCashRegister,
			EntityID:   created.ID.String(),
			EntityName: "cash_register",
			Details:    string(details),
		})
	})
	if err != nil {
		return nil, err
	}
	return register, nil
}

func (s *ledgerService) GetRegister(ctx context.Context, id uuid.UUID) (*model.CashRegister, error) {
	return s.engine.GetRegister(ctx, id)
}

func (s *ledgerService) ListRegisters(ctx context.Context, page, limit int) ([]model.CashRegister, int64, error) {
	if page <= 0 {
		page = 1
	}
	if limit <= 0 {
		limit = 20
	}
	return s.engine.ListRegisters(ctx, page, limit)
}

func (s *ledgerService) Credit(ctx context.Context, actorID string, registerID uuid.UUID, amount decimal.Decimal, reason, referenceID string) (*ledger.CreditResult, error) {
	actor := parseActor(actorID)
	result, err := s.engine.Credit(ctx, registerID, amount, reason, referenceID, actor)
	if err != nil {
		return nil, err
	}

	details, _ := json.Marshal(map[string]interface{}{
		"amount":    amount.StringFixed(2),
		"reason":    reason,
		"reference": referenceID,
		"balance":   result.NewBalance.StringFixed(2),
	})
	if auditErr := s.auditRepo.Log(ctx, &model.AuditLog{
		UserID:     actor,
		Action:     model.ActionCreditCashRegister,
		EntityID:   registerID.String(),
		EntityName: "cash_register",
		Details:    string(details),
	}); auditErr != nil {
		return nil, fmt.Errorf("credit applied but audit write failed: %w", auditErr)
	}

	return result, nil
}

func (s *ledgerService) ListTransactions(ctx context.Context, registerID uuid.UUID, page, limit int) ([]model.CashTransaction, int64, error) {
	if page <= 0 {
		page = 1
	}
	if limit <= 0 {
		limit = 50
	}
	if _, err := s.engine.GetRegister(ctx, registerID); err != nil {
		return nil, 0, err
	}
	return s.engine.ListTransactions(ctx, registerID, page, limit)
}

func (s *ledgerService) Reconcile(ctx context.Context, actorID string, registerID uuid.UUID) (*ReconcileReport, error) {
	register, err := s.engine.GetRegister(ctx, registerID)
	if err != nil {
		return nil, err
	}

	recomputed, err := s.engine.RecomputeBalance(ctx, registerID)
	var drift *ledger.DriftError
	if err != nil && !errors.As(err, &drift) {
		return nil, err
	}

	report := &ReconcileReport{
		RegisterID: registerID.String(),
		Stored:     register.Balance.StringFixed(2),
		Recomputed: recomputed.StringFixed(2),
		Drift:      drift != nil,
	}

	details, _ := json.Marshal(report)
	if auditErr := s.auditRepo.Log(ctx, &model.AuditLog{
		UserID:     parseActor(actorID),
		Action:     model.ActionReconcileCashRegister,
		EntityID:   registerID.String(),
		EntityName: "cash_register",
		Details:    string(details),
	}); auditErr != nil {
		return nil, fmt.Errorf("reconcile ran but audit write failed: %w", auditErr)
	}

	return report, nil
}
