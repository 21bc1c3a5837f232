package service

import (
	"context"
	"testing"

	"backend/internal/model"
	"backend/internal/workflow"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func createLeave(t *testing.T, env *testEnv, days int) LeaveResponse {
	t.Helper()
	leave, err := env.leaves.CreateLeaveRequest(context.Background(), uuid.NewString(), CreateLeaveRequestDTO{
		StaffID:   uuid.NewString(),
		Reason:    "family visit",
		Days:      days,
		StartDate: "2026-09-07",
	})
	require.NoError(t, err)
	return leave
}

func TestLeaveApprovalChain(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	leave := createLeave(t, env, 3)
	actor := uuid.NewString()

	_, err := env.leaves.Decide(ctx, leave.ID, actor, model.RoleSupervisor, DecideLeaveDTO{
		Status: model.LeaveStatusApprovedBySupervisor, Remarks: "ok by me",
	})
	require.NoError(t, err)

	_, err = env.leaves.Decide(ctx, leave.ID, actor, model.RoleHR, DecideLeaveDTO{
		Status: model.LeaveStatusHRApproved, Remarks: "quota fine",
	})
	require.NoError(t, err)

	applied, err := env.leaves.Decide(ctx, leave.ID, actor, model.RoleAdmin, DecideLeaveDTO{
		Status: model.LeaveStatusAdminApproved, Remarks: "approved",
	})
	require.NoError(t, err)
	assert.False(t, applied.Replayed)

	final, err := env.leaves.GetLeaveRequest(ctx, leave.ID)
	require.NoError(t, err)
	assert.Equal(t, model.LeaveStatusAdminApproved, final.Status)
	assert.Equal(t, "ok by me", final.SupervisorRemarks)
	assert.Equal(t, "quota fine", final.HRRemarks)
	assert.Equal(t, "approved", final.AdminComment)
	require.NotNil(t, final.HRApprovedAt)

	// Final approval fans out exactly one attendance row per day.
	records, total, err := env.leaves.ListAttendance(ctx, final.StaffID, 1, 10)
	require.NoError(t, err)
	assert.EqualValues(t, 3, total)
	for _, record := range records {
		assert.Equal(t, model.AttendanceLeave, record.Status)
	}
}

func TestLeaveDecideWrongRole(t *testing.T) {
	env := newTestEnv(t)
	leave := createLeave(t, env, 1)

	_, err := env.leaves.Decide(context.Background(), leave.ID, uuid.NewString(), model.RoleHR, DecideLeaveDTO{
		Status: model.LeaveStatusApprovedBySupervisor,
	})

	var unauthorized *workflow.UnauthorizedTransitionError
	require.ErrorAs(t, err, &unauthorized)
	assert.Equal(t, workflow.Role(model.RoleSupervisor), unauthorized.Required)

	// Nothing changed.
	reloaded, err := env.leaves.GetLeaveRequest(context.Background(), leave.ID)
	require.NoError(t, err)
	assert.Equal(t, model.LeaveStatusPending, reloaded.Status)
}

func TestLeaveDecideSkipStage(t *testing.T) {
	env := newTestEnv(t)
	leave := createLeave(t, env, 1)

	_, err := env.leaves.Decide(context.Background(), leave.ID, uuid.NewString(), model.RoleAdmin, DecideLeaveDTO{
		Status: model.LeaveStatusAdminApproved,
	})

	var illegal *workflow.IllegalTransitionError
	require.ErrorAs(t, err, &illegal)
}

func TestLeaveRejectionIsTerminal(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	leave := createLeave(t, env, 1)
	actor := uuid.NewString()

	_, err := env.leaves.Decide(ctx, leave.ID, actor, model.RoleSupervisor, DecideLeaveDTO{
		Status: model.LeaveStatusRejectedSupervisor, Remarks: "short staffed",
	})
	require.NoError(t, err)

	_, err = env.leaves.Decide(ctx, leave.ID, actor, model.RoleSupervisor, DecideLeaveDTO{
		Status: model.LeaveStatusApprovedBySupervisor,
	})
	var illegal *workflow.IllegalTransitionError
	require.ErrorAs(t, err, &illegal)

	// No attendance rows for a rejected request.
	assert.EqualValues(t, 0, countRows(t, env.db, &model.AttendanceRecord{}))
}

func TestLeaveApprovalReplayAddsNothing(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	leave := createLeave(t, env, 2)
	actor := uuid.NewString()

	steps := []struct {
		role   string
		status string
	}{
		{model.RoleSupervisor, model.LeaveStatusApprovedBySupervisor},
		{model.RoleHR, model.LeaveStatusHRApproved},
		{model.RoleAdmin, model.LeaveStatusAdminApproved},
	}
	for _, step := range steps {
		_, err := env.leaves.Decide(ctx, leave.ID, actor, step.role, DecideLeaveDTO{Status: step.status})
		require.NoError(t, err)
	}
	assert.EqualValues(t, 2, countRows(t, env.db, &model.AttendanceRecord{}))

	// The terminal status has no outgoing edges, so a repeat of the final
	// decision is rejected before it ever reaches the idempotency layer.
	_, err := env.leaves.Decide(ctx, leave.ID, actor, model.RoleAdmin, DecideLeaveDTO{
		Status: model.LeaveStatusAdminApproved,
	})
	var illegal *workflow.IllegalTransitionError
	require.ErrorAs(t, err, &illegal)

	assert.EqualValues(t, 2, countRows(t, env.db, &model.AttendanceRecord{}))
}

func TestLeaveCreateValidation(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.leaves.CreateLeaveRequest(context.Background(), uuid.NewString(), CreateLeaveRequestDTO{
		StaffID: "not-a-uuid", Reason: "x", Days: 1,
	})
	assert.Error(t, err)

	_, err = env.leaves.CreateLeaveRequest(context.Background(), uuid.NewString(), CreateLeaveRequestDTO{
		StaffID: uuid.NewString(), Reason: "x", Days: 1, StartDate: "07-09-2026",
	})
	assert.Error(t, err)
}
