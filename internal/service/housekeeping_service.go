package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"backend/internal/model"
	"backend/internal/repository"
	"backend/internal/workflow"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// --- DTOs ---

type CreateHousekeepingTaskDTO struct {
	RoomID     string `json:"room_id" binding:"required"`
	AssignedTo string `json:"assigned_to"`
}

type AdvanceHousekeepingDTO struct {
	Status       string `json:"status" binding:"required"`
	DamageFound  bool   `json:"damage_found"`
	DamageNotes  string `json:"damage_notes"`
	DamageAmount string `json:"damage_amount"`
	Notes        string `json:"notes"`
}

type CreateRoomDTO struct {
	RoomNumber string `json:"room_number" binding:"required"`
	Floor      int    `json:"floor" binding:"required"`
}

// --- Interface ---

type HousekeepingService interface {
	// CreateTask opens a cleaning cycle: the task starts pending and the room
	// is flagged cleaning_required in the same unit of work.
	CreateTask(ctx context.Context, actorID string, req CreateHousekeepingTaskDTO) (*model.HousekeepingTask, error)
	GetTask(ctx context.Context, id string) (*model.HousekeepingTask, error)
	ListTasks(ctx context.Context, status string, page, limit int) ([]model.HousekeepingTask, int64, error)
	// Advance moves the task one step along pending → inspection → cleaning →
	// cleaned. The cleaning step records damage findings; the cleaned step
	// flips the room to available and writes a service record — both in the
	// same commit as the task update.
	Advance(ctx context.Context, id string, actorID string, role string, req AdvanceHousekeepingDTO) (*workflow.Applied, error)

	CreateRoom(ctx context.Context, req CreateRoomDTO) (*model.Room, error)
	ListRooms(ctx context.Context, status string, page, limit int) ([]model.Room, int64, error)
	ListServiceRecords(ctx context.Context, roomID string) ([]model.ServiceRecord, error)
}

type housekeepingService struct {
	repo       repository.HousekeepingRepository
	auditRepo  repository.AuditRepository
	txManager  repository.TransactionManager
	propagator *workflow.Propagator
	machine    *workflow.Machine
}

func housekeepingMachine() *workflow.Machine {
	role := workflow.Role(model.RoleHousekeeping)
	return workflow.NewMachine("housekeeping_task").
		Allow(model.HousekeepingPending, model.HousekeepingInspection, role).
		Allow(model.HousekeepingInspection, model.HousekeepingCleaning, role).
		Allow(model.HousekeepingCleaning, model.HousekeepingCleaned, role)
}

func NewHousekeepingService(
	repo repository.HousekeepingRepository,
	auditRepo repository.AuditRepository,
	txManager repository.TransactionManager,
	propagator *workflow.Propagator,
) HousekeepingService {
	return &housekeepingService{
		repo:       repo,
		auditRepo:  auditRepo,
		txManager:  txManager,
		propagator: propagator,
		machine:    housekeepingMachine(),
	}
}

// --- Implementation ---

func (s *housekeepingService) CreateTask(ctx context.Context, actorID string, req CreateHousekeepingTaskDTO) (*model.HousekeepingTask, error) {
	roomID, err := uuid.Parse(req.RoomID)
	if err != nil {
		return nil, fmt.Errorf("invalid room id: %w", err)
	}

	task := model.HousekeepingTask{
		RoomID: roomID,
		Status: model.HousekeepingPending,
	}
	if req.AssignedTo != "" {
		assignee, parseErr := uuid.Parse(req.AssignedTo)
		if parseErr != nil {
			return nil, fmt.Errorf("invalid assigned_to: %w", parseErr)
		}
		task.AssignedTo = &assignee
	}

	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		if _, findErr := s.repo.FindRoomByID(txCtx, roomID); findErr != nil {
			if errors.Is(findErr, gorm.ErrRecordNotFound) {
				return errors.New("room not found")
			}
			return findErr
		}

		if createErr := s.repo.CreateTask(txCtx, &task); createErr != nil {
			return fmt.Errorf("failed to create task: %w", createErr)
		}
		if roomErr := s.repo.UpdateRoomStatus(txCtx, roomID, model.RoomStatusCleaningRequired); roomErr != nil {
			return fmt.Errorf("failed to flag room: %w", roomErr)
		}

		details, _ := json.Marshal(map[string]interface{}{
			"room_id":     req.RoomID,
			"assigned_to": req.AssignedTo,
		})
		return s.auditRepo.Log(txCtx, &model.AuditLog{
			UserID:     parseActor(actorID),
			Action:     model.ActionCreateHousekeeping,
			EntityID:   task.ID.String(),
			EntityName: "housekeeping_task",
			Details:    string(details),
		})
	})
	if err != nil {
		return nil, err
	}
	return &task, nil
}

func (s *housekeepingService) GetTask(ctx context.Context, id string) (*model.HousekeepingTask, error) {
	taskID, err := uuid.Parse(id)
	if err != nil {
		return nil, fmt.Errorf("invalid task id: %w", err)
	}
	task, err := s.repo.FindTaskByID(ctx, taskID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.New("task not found")
		}
		return nil, err
	}
	return task, nil
}

func (s *housekeepingService) ListTasks(ctx context.Context, status string, page, limit int) ([]model.HousekeepingTask, int64, error) {
	if page <= 0 {
		page = 1
	}
	if limit <= 0 {
		limit = 20
	}
	return s.repo.ListTasks(ctx, status, page, limit)
}

func (s *housekeepingService) Advance(ctx context.Context, id string, actorID string, role string, req AdvanceHousekeepingDTO) (*workflow.Applied, error) {
	task, err := s.GetTask(ctx, id)
	if err != nil {
		return nil, err
	}

	from := workflow.Status(task.Status)
	to := workflow.Status(req.Status)
	if err := s.machine.Transition(from, to, workflow.Role(role)); err != nil {
		return nil, err
	}

	updates := map[string]interface{}{"status": req.Status}
	if req.Status == model.HousekeepingCleaning {
		// The inspector's findings land when cleaning starts; the final step
		// reads them back off the task.
		damageAmount := decimal.Zero
		if req.DamageAmount != "" {
			parsed, parseErr := decimal.NewFromString(req.DamageAmount)
			if parseErr != nil {
				return nil, fmt.Errorf("invalid damage_amount: %w", parseErr)
			}
			damageAmount = parsed
		}
		updates["damage_found"] = req.DamageFound
		updates["damage_notes"] = req.DamageNotes
		updates["damage_amount"] = damageAmount
	}

	version := task.Version
	plan := workflow.Plan{
		Key:      fmt.Sprintf("housekeeping:%s:%s", task.ID, req.Status),
		Kind:     s.machine.Kind(),
		EntityID: task.ID.String(),
		From:     from,
		To:       to,
		Actor:    actorID,
		Primary: func(txCtx context.Context) error {
			return s.repo.UpdateTaskVersioned(txCtx, task.ID, version, updates)
		},
		Result: map[string]interface{}{
			"id":     task.ID.String(),
			"status": req.Status,
		},
	}

	if req.Status == model.HousekeepingCleaned {
		roomID := task.RoomID
		taskID := task.ID
		notes := req.Notes
		if notes == "" && task.DamageFound {
			notes = task.DamageNotes
		}
		cost := task.DamageAmount
		plan.Dependents = append(plan.Dependents,
			func(txCtx context.Context) error {
				return s.repo.UpdateRoomStatus(txCtx, roomID, model.RoomStatusAvailable)
			},
			func(txCtx context.Context) error {
				return s.repo.CreateServiceRecord(txCtx, &model.ServiceRecord{
					RoomID: roomID,
					TaskID: taskID,
					Kind:   "housekeeping",
					Notes:  notes,
					Cost:   cost,
				})
			},
		)
	}

	details, _ := json.Marshal(map[string]interface{}{
		"from": task.Status,
		"to":   req.Status,
	})
	plan.Dependents = append(plan.Dependents, func(txCtx context.Context) error {
		return s.auditRepo.Log(txCtx, &model.AuditLog{
			UserID:     parseActor(actorID),
			Action:     model.ActionAdvanceHousekeeping,
			EntityID:   task.ID.String(),
			EntityName: "housekeeping_task",
			Details:    string(details),
		})
	})

	return s.propagator.Apply(ctx, plan)
}

func (s *housekeepingService) CreateRoom(ctx context.Context, req CreateRoomDTO) (*model.Room, error) {
	room := &model.Room{
		RoomNumber: req.RoomNumber,
		Floor:      req.Floor,
		Status:     model.RoomStatusAvailable,
	}
	if err := s.repo.CreateRoom(ctx, room); err != nil {
		return nil, err
	}
	return room, nil
}

func (s *housekeepingService) ListRooms(ctx context.Context, status string, page, limit int) ([]model.Room, int64, error) {
	if page <= 0 {
		page = 1
	}
	if limit <= 0 {
		limit = 20
	}
	return s.repo.ListRooms(ctx, status, page, limit)
}

func (s *housekeepingService) ListServiceRecords(ctx context.Context, roomID string) ([]model.ServiceRecord, error) {
	id, err := uuid.Parse(roomID)
	if err != nil {
		return nil, fmt.Errorf("invalid room id: %w", err)
	}
	return s.repo.ListServiceRecords(ctx, id)
}
