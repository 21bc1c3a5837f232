package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"backend/internal/model"
	"backend/internal/repository"
	"backend/internal/workflow"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// --- DTOs ---

type CreateLeaveRequestDTO struct {
	StaffID   string `json:"staff_id" binding:"required"`
	Reason    string `json:"reason" binding:"required"`
	Days      int    `json:"days" binding:"required,gt=0"`
	StartDate string `json:"start_date"` // YYYY-MM-DD, defaults to today
}

type DecideLeaveDTO struct {
	Status  string `json:"status" binding:"required"`
	Remarks string `json:"remarks"`
}

type LeaveFilter struct {
	Status  string
	StaffID string
	Page    int
	Limit   int
}

type LeaveResponse struct {
	ID                string  `json:"id"`
	StaffID           string  `json:"staff_id"`
	Reason            string  `json:"reason"`
	Days              int     `json:"days"`
	StartDate         string  `json:"start_date"`
	Status            string  `json:"status"`
	SupervisorRemarks string  `json:"supervisor_remarks,omitempty"`
	HRRemarks         string  `json:"hr_remarks,omitempty"`
	AdminComment      string  `json:"admin_comment,omitempty"`
	HRApprovedAt      *string `json:"hr_approved_at,omitempty"`
	CreatedAt         string  `json:"created_at"`
}

// --- Interface ---

type LeaveService interface {
	CreateLeaveRequest(ctx context.Context, actorID string, req CreateLeaveRequestDTO) (LeaveResponse, error)
	ListLeaveRequests(ctx context.Context, filter LeaveFilter) ([]LeaveResponse, int64, error)
	GetLeaveRequest(ctx context.Context, id string) (LeaveResponse, error)
	// Decide drives one approval-chain edge. The role comes from the
	// authenticated caller; the state machine decides whether that role may
	// drive the requested edge from the request's current status.
	Decide(ctx context.Context, id string, actorID string, role string, req DecideLeaveDTO) (*workflow.Applied, error)
	ListAttendance(ctx context.Context, staffID string, page, limit int) ([]model.AttendanceRecord, int64, error)
}

type leaveService struct {
	leaves     repository.LeaveRepository
	attendance repository.AttendanceRepository
	auditRepo  repository.AuditRepository
	txManager  repository.TransactionManager
	propagator *workflow.Propagator
	machine    *workflow.Machine
}

// leaveMachine is the supervisor → HR → admin chain. Each stage can also
// reject; rejected_* and admin_approved have no outgoing edges.
func leaveMachine() *workflow.Machine {
	return workflow.NewMachine("leave_request").
		Allow(model.LeaveStatusPending, model.LeaveStatusApprovedBySupervisor, workflow.Role(model.RoleSupervisor)).
		Allow(model.LeaveStatusPending, model.LeaveStatusRejectedSupervisor, workflow.Role(model.RoleSupervisor)).
		Allow(model.LeaveStatusApprovedBySupervisor, model.LeaveStatusHRApproved, workflow.Role(model.RoleHR)).
		Allow(model.LeaveStatusApprovedBySupervisor, model.LeaveStatusRejectedHR, workflow.Role(model.RoleHR)).
		Allow(model.LeaveStatusHRApproved, model.LeaveStatusAdminApproved, workflow.Role(model.RoleAdmin)).
		Allow(model.LeaveStatusHRApproved, model.LeaveStatusRejectedAdmin, workflow.Role(model.RoleAdmin))
}

func NewLeaveService(
	leaves repository.LeaveRepository,
	attendance repository.AttendanceRepository,
	auditRepo repository.AuditRepository,
	txManager repository.TransactionManager,
	propagator *workflow.Propagator,
) LeaveService {
	return &leaveService{
		leaves:     leaves,
		attendance: attendance,
		auditRepo:  auditRepo,
		txManager:  txManager,
		propagator: propagator,
		machine:    leaveMachine(),
	}
}

// --- Implementation ---

func (s *leaveService) CreateLeaveRequest(ctx context.Context, actorID string, req CreateLeaveRequestDTO) (LeaveResponse, error) {
	staffID, err := uuid.Parse(req.StaffID)
	if err != nil {
		return LeaveResponse{}, fmt.Errorf("invalid staff_id: %w", err)
	}

	start := startOfDay(time.Now())
	if req.StartDate != "" {
		parsed, parseErr := time.Parse("2006-01-02", req.StartDate)
		if parseErr != nil {
			return LeaveResponse{}, fmt.Errorf("invalid start_date: %w", parseErr)
		}
		start = parsed
	}

	leave := model.LeaveRequest{
		StaffID:   staffID,
		Reason:    req.Reason,
		Days:      req.Days,
		StartDate: start,
		Status:    model.LeaveStatusPending,
	}

	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		if createErr := s.leaves.Create(txCtx, &leave); createErr != nil {
			return fmt.Errorf("failed to create leave request: %w", createErr)
		}

		details, _ := json.Marshal(map[string]interface{}{
			"staff_id": req.StaffID,
			"days":     req.Days,
			"start":    start.Format("2006-01-02"),
		})
		audit := &model.AuditLog{
			UserID:     parseActor(actorID),
			Action:     model.ActionCreateLeaveRequest,
			EntityID:   leave.ID.String(),
			EntityName: "leave_request",
			Details:    string(details),
		}
		return s.auditRepo.Log(txCtx, audit)
	})
	if err != nil {
		return LeaveResponse{}, err
	}

	return toLeaveResponse(leave), nil
}

func (s *leaveService) ListLeaveRequests(ctx context.Context, filter LeaveFilter) ([]LeaveResponse, int64, error) {
	if filter.Page <= 0 {
		filter.Page = 1
	}
	if filter.Limit <= 0 {
		filter.Limit = 20
	}

	rows, total, err := s.leaves.List(ctx, filter.Status, filter.StaffID, filter.Page, filter.Limit)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to fetch leave requests: %w", err)
	}

	result := make([]LeaveResponse, 0, len(rows))
	for _, row := range rows {
		result = append(result, toLeaveResponse(row))
	}
	return result, total, nil
}

func (s *leaveService) GetLeaveRequest(ctx context.Context, id string) (LeaveResponse, error) {
	leaveID, err := uuid.Parse(id)
	if err != nil {
		return LeaveResponse{}, fmt.Errorf("invalid leave request id: %w", err)
	}
	leave, err := s.leaves.FindByID(ctx, leaveID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return LeaveResponse{}, errors.New("leave request not found")
		}
		return LeaveResponse{}, err
	}
	return toLeaveResponse(*leave), nil
}

func (s *leaveService) Decide(ctx context.Context, id string, actorID string, role string, req DecideLeaveDTO) (*workflow.Applied, error) {
	leaveID, err := uuid.Parse(id)
	if err != nil {
		return nil, fmt.Errorf("invalid leave request id: %w", err)
	}

	leave, err := s.leaves.FindByID(ctx, leaveID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.New("leave request not found")
		}
		return nil, err
	}

	from := workflow.Status(leave.Status)
	to := workflow.Status(req.Status)
	if err := s.machine.Transition(from, to, workflow.Role(role)); err != nil {
		return nil, err
	}

	updates := map[string]interface{}{
		"status":     req.Status,
		"decided_by": parseActor(actorID),
	}
	switch req.Status {
	case model.LeaveStatusApprovedBySupervisor, model.LeaveStatusRejectedSupervisor:
		updates["supervisor_remarks"] = req.Remarks
	case model.LeaveStatusHRApproved, model.LeaveStatusRejectedHR:
		updates["hr_remarks"] = req.Remarks
		if req.Status == model.LeaveStatusHRApproved {
			updates["hr_approved_at"] = time.Now()
		}
	case model.LeaveStatusAdminApproved, model.LeaveStatusRejectedAdmin:
		updates["admin_comment"] = req.Remarks
	}

	version := leave.Version
	plan := workflow.Plan{
		Key:      fmt.Sprintf("leave:%s:%s", leave.ID, req.Status),
		Kind:     s.machine.Kind(),
		EntityID: leave.ID.String(),
		From:     from,
		To:       to,
		Actor:    actorID,
		Primary: func(txCtx context.Context) error {
			return s.leaves.UpdateVersioned(txCtx, leave.ID, version, updates)
		},
		Result: map[string]interface{}{
			"id":     leave.ID.String(),
			"status": req.Status,
		},
	}

	// Final approval fans out one attendance row per approved day; the
	// unique (staff_id, day) key makes the fan-out an upsert.
	if req.Status == model.LeaveStatusAdminApproved {
		records := attendanceRange(leave)
		plan.Dependents = append(plan.Dependents, func(txCtx context.Context) error {
			return s.attendance.UpsertRange(txCtx, records)
		})
	}

	details, _ := json.Marshal(map[string]interface{}{
		"from":    leave.Status,
		"to":      req.Status,
		"remarks": req.Remarks,
	})
	plan.Dependents = append(plan.Dependents, func(txCtx context.Context) error {
		return s.auditRepo.Log(txCtx, &model.AuditLog{
			UserID:     parseActor(actorID),
			Action:     model.ActionDecideLeaveRequest,
			EntityID:   leave.ID.String(),
			EntityName: "leave_request",
			Details:    string(details),
		})
	})

	return s.propagator.Apply(ctx, plan)
}

func (s *leaveService) ListAttendance(ctx context.Context, staffID string, page, limit int) ([]model.AttendanceRecord, int64, error) {
	if page <= 0 {
		page = 1
	}
	if limit <= 0 {
		limit = 20
	}
	return s.attendance.ListByStaff(ctx, staffID, page, limit)
}

// --- Helpers ---

// attendanceRange builds one leave-day record per day in
// [start, start+days), normalized to midnight UTC.
func attendanceRange(leave *model.LeaveRequest) []model.AttendanceRecord {
	start := startOfDay(leave.StartDate)
	records := make([]model.AttendanceRecord, 0, leave.Days)
	for i := 0; i < leave.Days; i++ {
		records = append(records, model.AttendanceRecord{
			StaffID: leave.StaffID,
			Day:     start.AddDate(0, 0, i),
			Status:  model.AttendanceLeave,
			Note:    "approved leave " + leave.ID.String(),
		})
	}
	return records
}

func startOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

func parseActor(actorID string) *uuid.UUID {
	if parsed, err := uuid.Parse(actorID); err == nil {
		return &parsed
	}
	return nil
}

func toLeaveResponse(l model.LeaveRequest) LeaveResponse {
	resp := LeaveResponse{
		ID:                l.ID.String(),
		StaffID:           l.StaffID.String(),
		Reason:            l.Reason,
		Days:              l.Days,
		StartDate:         l.StartDate.Format("2006-01-02"),
		Status:            l.Status,
		SupervisorRemarks: l.SupervisorRemarks,
		HRRemarks:         l.HRRemarks,
		AdminComment:      l.AdminComment,
		CreatedAt:         l.CreatedAt.Format(time.RFC3339),
	}
	if l.HRApprovedAt != nil {
		s := l.HRApprovedAt.Format(time.RFC3339)
		resp.HRApprovedAt = &s
	}
	return resp
}
