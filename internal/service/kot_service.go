package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"backend/internal/ledger"
	"backend/internal/model"
	"backend/internal/repository"
	"backend/internal/workflow"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// ErrItemsPending blocks closing a ticket while kitchen items are still
// pending. Enforcement is a policy toggle, not a hard rule.
var ErrItemsPending = errors.New("order has pending items")

// ErrTableOccupied — the requested table is already held by another open order.
var ErrTableOccupied = errors.New("table is already occupied")

var gstRate = decimal.NewFromFloat(0.05)

// --- DTOs ---

type KOTItemDTO struct {
	Name string `json:"name" binding:"required"`
	Qty  int    `json:"qty" binding:"required,gt=0"`
	Rate string `json:"rate" binding:"required"`
}

type CreateKOTOrderDTO struct {
	TableNo   string       `json:"table_no"`
	OrderType string       `json:"order_type" binding:"required,oneof=dine_in takeaway room_service"`
	Items     []KOTItemDTO `json:"items" binding:"required,min=1,dive"`
}

type CloseKOTOrderDTO struct {
	RegisterID string `json:"register_id" binding:"required"`
}

type KOTConfig struct {
	// RequireItemsServed blocks close while any item is still pending.
	// The default policy; can be relaxed per deployment.
	RequireItemsServed bool
}

// --- Interface ---

type KOTService interface {
	CreateOrder(ctx context.Context, actorID string, req CreateKOTOrderDTO) (*model.KOTOrder, error)
	GetOrder(ctx context.Context, id string) (*model.KOTOrder, error)
	ListOrders(ctx context.Context, status string, page, limit int) ([]model.KOTOrder, int64, error)
	// Close finalizes amount/gst/total, settles the bill into the register
	// through the ledger service, frees the table and terminates the ticket —
	// one plan, one commit.
	Close(ctx context.Context, id string, actorID string, role string, req CloseKOTOrderDTO) (*workflow.Applied, error)
	// Cancel frees the table and terminates the ticket. Items stay for audit.
	Cancel(ctx context.Context, id string, actorID string, role string) (*workflow.Applied, error)
	AdvanceItem(ctx context.Context, itemID string, target string) (*model.KOTItem, error)

	CreateTable(ctx context.Context, tableNo string) (*model.DiningTable, error)
	ListTables(ctx context.Context) ([]model.DiningTable, error)
}

type kotService struct {
	orders     repository.KOTRepository
	auditRepo  repository.AuditRepository
	txManager  repository.TransactionManager
	propagator *workflow.Propagator
	ledger     *ledger.Service
	machine    *workflow.Machine
	config     KOTConfig
}

func kotMachine() *workflow.Machine {
	return workflow.NewMachine("kot_order").
		Allow(model.KOTStatusOpen, model.KOTStatusClosed, workflow.Role(model.RoleCashier)).
		Allow(model.KOTStatusOpen, model.KOTStatusCancelled, workflow.Role(model.RoleCashier))
}

// itemNext is the kitchen-side progression. No role gating; stations are
// trusted, and the conditioned write resolves races.
var itemNext = map[string]string{
	model.KOTItemPending:    model.KOTItemInProgress,
	model.KOTItemInProgress: model.KOTItemReady,
	model.KOTItemReady:      model.KOTItemServed,
}

func NewKOTService(
	orders repository.KOTRepository,
	auditRepo repository.AuditRepository,
	txManager repository.TransactionManager,
	propagator *workflow.Propagator,
	ledgerService *ledger.Service,
	config KOTConfig,
) KOTService {
	return &kotService{
		orders:     orders,
		auditRepo:  auditRepo,
		txManager:  txManager,
		propagator: propagator,
		ledger:     ledgerService,
		machine:    kotMachine(),
		config:     config,
	}
}

// --- Implementation ---

func (s *kotService) CreateOrder(ctx context.Context, actorID string, req CreateKOTOrderDTO) (*model.KOTOrder, error) {
	if req.OrderType == model.KOTOrderTypeDineIn && req.TableNo == "" {
		return nil, errors.New("dine_in orders require a table_no")
	}

	items := make([]model.KOTItem, 0, len(req.Items))
	amount := decimal.Zero
	for _, item := range req.Items {
		rate, err := decimal.NewFromString(item.Rate)
		if err != nil {
			return nil, fmt.Errorf("invalid rate %q: %w", item.Rate, err)
		}
		items = append(items, model.KOTItem{
			Name:   item.Name,
			Qty:    item.Qty,
			Rate:   rate,
			Status: model.KOTItemPending,
		})
		amount = amount.Add(rate.Mul(decimal.NewFromInt(int64(item.Qty))))
	}
	gst := amount.Mul(gstRate).Round(2)
	total := amount.Add(gst)

	order := model.KOTOrder{
		Status:    model.KOTStatusOpen,
		OrderType: req.OrderType,
		Amount:    amount,
		GST:       gst,
		Total:     total,
		CreatedBy: parseActor(actorID),
	}
	if req.TableNo != "" {
		tableNo := req.TableNo
		order.TableNo = &tableNo
	}

	err := s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		if order.TableNo != nil {
			if claimErr := s.orders.ClaimTable(txCtx, *order.TableNo); claimErr != nil {
				if errors.Is(claimErr, workflow.ErrStaleEntity) {
					return ErrTableOccupied
				}
				return fmt.Errorf("failed to claim table: %w", claimErr)
			}
		}

		if createErr := s.orders.Create(txCtx, &order); createErr != nil {
			return fmt.Errorf("failed to create order: %w", createErr)
		}
		for i := range items {
			items[i].OrderID = order.ID
			if itemErr := s.orders.CreateItem(txCtx, &items[i]); itemErr != nil {
				return fmt.Errorf("failed to create order item: %w", itemErr)
			}
		}

		details, _ := json.Marshal(map[string]interface{}{
			"order_type": req.OrderType,
			"table_no":   req.TableNo,
			"total":      total.StringFixed(2),
			"items":      len(items),
		})
		return s.auditRepo.Log(txCtx, &model.AuditLog{
			UserID:     parseActor(actorID),
			Action:     model.ActionCreateKOTOrder,
			EntityID:   order.ID.String(),
			EntityName: "kot_order",
			Details:    string(details),
		})
	})
	if err != nil {
		return nil, err
	}

	order.Items = items
	return &order, nil
}

func (s *kotService) GetOrder(ctx context.Context, id string) (*model.KOTOrder, error) {
	orderID, err := uuid.Parse(id)
	if err != nil {
		return nil, fmt.Errorf("invalid order id: %w", err)
	}
	order, err := s.orders.FindByIDWithItems(ctx, orderID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.New("order not found")
		}
		return nil, err
	}
	return order, nil
}

func (s *kotService) ListOrders(ctx context.Context, status string, page, limit int) ([]model.KOTOrder, int64, error) {
	if page <= 0 {
		page = 1
	}
	if limit <= 0 {
		limit = 20
	}
	return s.orders.List(ctx, status, page, limit)
}

func (s *kotService) Close(ctx context.Context, id string, actorID string, role string, req CloseKOTOrderDTO) (*workflow.Applied, error) {
	registerID, err := uuid.Parse(req.RegisterID)
	if err != nil {
		return nil, fmt.Errorf("invalid register id: %w", err)
	}

	order, err := s.GetOrder(ctx, id)
	if err != nil {
		return nil, err
	}

	if err := s.machine.Transition(workflow.Status(order.Status), model.KOTStatusClosed, workflow.Role(role)); err != nil {
		return nil, err
	}

	if s.config.RequireItemsServed {
		pending, countErr := s.orders.CountItemsByStatus(ctx, order.ID, model.KOTItemPending)
		if countErr != nil {
			return nil, countErr
		}
		if pending > 0 {
			return nil, ErrItemsPending
		}
	}

	// Recompute the bill from the item rows at settlement time.
	amount := decimal.Zero
	for _, item := range order.Items {
		amount = amount.Add(item.Rate.Mul(decimal.NewFromInt(int64(item.Qty))))
	}
	gst := amount.Mul(gstRate).Round(2)
	total := amount.Add(gst)

	version := order.Version
	tableNo := order.TableNo
	actor := parseActor(actorID)

	plan := workflow.Plan{
		Key:      fmt.Sprintf("kot:%s:%s", order.ID, model.KOTStatusClosed),
		Kind:     s.machine.Kind(),
		EntityID: order.ID.String(),
		From:     workflow.Status(order.Status),
		To:       model.KOTStatusClosed,
		Actor:    actorID,
		Primary: func(txCtx context.Context) error {
			return s.orders.UpdateVersioned(txCtx, order.ID, version, map[string]interface{}{
				"status":   model.KOTStatusClosed,
				"table_no": nil,
				"amount":   amount,
				"gst":      gst,
				"total":    total,
			})
		},
		Result: map[string]interface{}{
			"id":     order.ID.String(),
			"status": model.KOTStatusClosed,
			"total":  total.StringFixed(2),
		},
	}

	if tableNo != nil {
		no := *tableNo
		plan.Dependents = append(plan.Dependents, func(txCtx context.Context) error {
			return s.orders.ReleaseTable(txCtx, no)
		})
	}

	// Settlement goes through the ledger — nothing here writes balances.
	plan.Dependents = append(plan.Dependents, func(txCtx context.Context) error {
		_, creditErr := s.ledger.Credit(txCtx, registerID, total, "KOT bill", order.ID.String(), actor)
		return creditErr
	})

	details, _ := json.Marshal(map[string]interface{}{
		"register_id": req.RegisterID,
		"total":       total.StringFixed(2),
	})
	plan.Dependents = append(plan.Dependents, func(txCtx context.Context) error {
		return s.auditRepo.Log(txCtx, &model.AuditLog{
			UserID:     actor,
			Action:     model.ActionCloseKOTOrder,
			EntityID:   order.ID.String(),
			EntityName: "kot_order",
			Details:    string(details),
		})
	})

	return s.propagator.Apply(ctx, plan)
}

func (s *kotService) Cancel(ctx context.Context, id string, actorID string, role string) (*workflow.Applied, error) {
	order, err := s.GetOrder(ctx, id)
	if err != nil {
		return nil, err
	}

	if err := s.machine.Transition(workflow.Status(order.Status), model.KOTStatusCancelled, workflow.Role(role)); err != nil {
		return nil, err
	}

	version := order.Version
	tableNo := order.TableNo

	plan := workflow.Plan{
		Key:      fmt.Sprintf("kot:%s:%s", order.ID, model.KOTStatusCancelled),
		Kind:     s.machine.Kind(),
		EntityID: order.ID.String(),
		From:     workflow.Status(order.Status),
		To:       model.KOTStatusCancelled,
		Actor:    actorID,
		Primary: func(txCtx context.Context) error {
			return s.orders.UpdateVersioned(txCtx, order.ID, version, map[string]interface{}{
				"status":   model.KOTStatusCancelled,
				"table_no": nil,
			})
		},
		Result: map[string]interface{}{
			"id":     order.ID.String(),
			"status": model.KOTStatusCancelled,
		},
	}

	if tableNo != nil {
		no := *tableNo
		plan.Dependents = append(plan.Dependents, func(txCtx context.Context) error {
			return s.orders.ReleaseTable(txCtx, no)
		})
	}

	plan.Dependents = append(plan.Dependents, func(txCtx context.Context) error {
		return s.auditRepo.Log(txCtx, &model.AuditLog{
			UserID:     parseActor(actorID),
			Action:     model.ActionCancelKOTOrder,
			EntityID:   order.ID.String(),
			EntityName: "kot_order",
			Details:    `{"cancelled": true}`,
		})
	})

	return s.propagator.Apply(ctx, plan)
}

func (s *kotService) AdvanceItem(ctx context.Context, itemID string, target string) (*model.KOTItem, error) {
	id, err := uuid.Parse(itemID)
	if err != nil {
		return nil, fmt.Errorf("invalid item id: %w", err)
	}

	item, err := s.orders.FindItem(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.New("item not found")
		}
		return nil, err
	}

	if itemNext[item.Status] != target {
		return nil, &workflow.IllegalTransitionError{
			Kind: "kot_item",
			From: workflow.Status(item.Status),
			To:   workflow.Status(target),
		}
	}

	if err := s.orders.UpdateItemStatus(ctx, id, item.Status, target); err != nil {
		return nil, err
	}

	item.Status = target
	return item, nil
}

func (s *kotService) CreateTable(ctx context.Context, tableNo string) (*model.DiningTable, error) {
	if tableNo == "" {
		return nil, errors.New("table_no is required")
	}
	table := &model.DiningTable{TableNo: tableNo}
	if err := s.orders.CreateTable(ctx, table); err != nil {
		return nil, err
	}
	return table, nil
}

func (s *kotService) ListTables(ctx context.Context) ([]model.DiningTable, error) {
	return s.orders.ListTables(ctx)
}
