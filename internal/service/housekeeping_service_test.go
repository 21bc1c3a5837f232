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

func openCleaningCycle(t *testing.T, env *testEnv) (*model.Room, *model.HousekeepingTask) {
	t.Helper()
	ctx := context.Background()

	room, err := env.housekeeping.CreateRoom(ctx, CreateRoomDTO{RoomNumber: "204", Floor: 2})
	require.NoError(t, err)

	task, err := env.housekeeping.CreateTask(ctx, uuid.NewString(), CreateHousekeepingTaskDTO{
		RoomID: room.ID.String(),
	})
	require.NoError(t, err)
	return room, task
}

func TestCreateTaskFlagsRoom(t *testing.T) {
	env := newTestEnv(t)
	room, task := openCleaningCycle(t, env)

	assert.Equal(t, model.HousekeepingPending, task.Status)

	rooms, _, err := env.housekeeping.ListRooms(context.Background(), "", 1, 10)
	require.NoError(t, err)
	require.Len(t, rooms, 1)
	assert.Equal(t, room.ID, rooms[0].ID)
	assert.Equal(t, model.RoomStatusCleaningRequired, rooms[0].Status)
}

func TestCreateTaskUnknownRoom(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.housekeeping.CreateTask(context.Background(), uuid.NewString(), CreateHousekeepingTaskDTO{
		RoomID: uuid.NewString(),
	})
	assert.Error(t, err)
	assert.EqualValues(t, 0, countRows(t, env.db, &model.HousekeepingTask{}))
}

func TestHousekeepingPipeline(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	room, task := openCleaningCycle(t, env)
	actor := uuid.NewString()

	// Skipping inspection is rejected.
	_, err := env.housekeeping.Advance(ctx, task.ID.String(), actor, model.RoleHousekeeping, AdvanceHousekeepingDTO{
		Status: model.HousekeepingCleaning,
	})
	var illegal *workflow.IllegalTransitionError
	require.ErrorAs(t, err, &illegal)

	// Wrong role is rejected.
	_, err = env.housekeeping.Advance(ctx, task.ID.String(), actor, model.RoleCashier, AdvanceHousekeepingDTO{
		Status: model.HousekeepingInspection,
	})
	var unauthorized *workflow.UnauthorizedTransitionError
	require.ErrorAs(t, err, &unauthorized)

	_, err = env.housekeeping.Advance(ctx, task.ID.String(), actor, model.RoleHousekeeping, AdvanceHousekeepingDTO{
		Status: model.HousekeepingInspection,
	})
	require.NoError(t, err)

	// The inspector's findings ride the inspection → cleaning step.
	_, err = env.housekeeping.Advance(ctx, task.ID.String(), actor, model.RoleHousekeeping, AdvanceHousekeepingDTO{
		Status:       model.HousekeepingCleaning,
		DamageFound:  true,
		DamageNotes:  "broken lamp",
		DamageAmount: "45.00",
	})
	require.NoError(t, err)

	// Room stays flagged until the task completes.
	rooms, _, err := env.housekeeping.ListRooms(ctx, "", 1, 10)
	require.NoError(t, err)
	assert.Equal(t, model.RoomStatusCleaningRequired, rooms[0].Status)

	applied, err := env.housekeeping.Advance(ctx, task.ID.String(), actor, model.RoleHousekeeping, AdvanceHousekeepingDTO{
		Status: model.HousekeepingCleaned,
	})
	require.NoError(t, err)
	assert.False(t, applied.Replayed)

	// Completion flips the room and writes the service record in one unit.
	rooms, _, err = env.housekeeping.ListRooms(ctx, "", 1, 10)
	require.NoError(t, err)
	assert.Equal(t, model.RoomStatusAvailable, rooms[0].Status)

	records, err := env.housekeeping.ListServiceRecords(ctx, room.ID.String())
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, task.ID, records[0].TaskID)
	assert.Equal(t, "housekeeping", records[0].Kind)
	assert.True(t, records[0].Cost.Equal(mustDec(t, "45.00")))

	final, err := env.housekeeping.GetTask(ctx, task.ID.String())
	require.NoError(t, err)
	assert.Equal(t, model.HousekeepingCleaned, final.Status)
	assert.True(t, final.DamageFound)
	assert.Equal(t, "broken lamp", final.DamageNotes)

	// cleaned is terminal.
	_, err = env.housekeeping.Advance(ctx, task.ID.String(), actor, model.RoleHousekeeping, AdvanceHousekeepingDTO{
		Status: model.HousekeepingPending,
	})
	require.ErrorAs(t, err, &illegal)
}

func TestCleaningStepRecordsInspectionFindings(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	_, task := openCleaningCycle(t, env)
	actor := uuid.NewString()

	_, err := env.housekeeping.Advance(ctx, task.ID.String(), actor, model.RoleHousekeeping, AdvanceHousekeepingDTO{
		Status: model.HousekeepingInspection,
	})
	require.NoError(t, err)

	_, err = env.housekeeping.Advance(ctx, task.ID.String(), actor, model.RoleHousekeeping, AdvanceHousekeepingDTO{
		Status:       model.HousekeepingCleaning,
		DamageFound:  true,
		DamageNotes:  "cracked mirror",
		DamageAmount: "80.00",
	})
	require.NoError(t, err)

	// Findings are on the task before the final step runs.
	reloaded, err := env.housekeeping.GetTask(ctx, task.ID.String())
	require.NoError(t, err)
	assert.Equal(t, model.HousekeepingCleaning, reloaded.Status)
	assert.True(t, reloaded.DamageFound)
	assert.Equal(t, "cracked mirror", reloaded.DamageNotes)
	assert.True(t, reloaded.DamageAmount.Equal(mustDec(t, "80.00")))

	// The final step needs no re-send; the record costs off the task.
	_, err = env.housekeeping.Advance(ctx, task.ID.String(), actor, model.RoleHousekeeping, AdvanceHousekeepingDTO{
		Status: model.HousekeepingCleaned,
	})
	require.NoError(t, err)

	records, err := env.housekeeping.ListServiceRecords(ctx, reloaded.RoomID.String())
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "cracked mirror", records[0].Notes)
	assert.True(t, records[0].Cost.Equal(mustDec(t, "80.00")))
}

func TestAdvanceInvalidDamageAmount(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	_, task := openCleaningCycle(t, env)
	actor := uuid.NewString()

	_, err := env.housekeeping.Advance(ctx, task.ID.String(), actor, model.RoleHousekeeping, AdvanceHousekeepingDTO{
		Status: model.HousekeepingInspection,
	})
	require.NoError(t, err)

	_, err = env.housekeeping.Advance(ctx, task.ID.String(), actor, model.RoleHousekeeping, AdvanceHousekeepingDTO{
		Status:       model.HousekeepingCleaning,
		DamageFound:  true,
		DamageAmount: "forty-five",
	})
	assert.Error(t, err)

	// The rejected step left the task where it was.
	reloaded, err := env.housekeeping.GetTask(ctx, task.ID.String())
	require.NoError(t, err)
	assert.Equal(t, model.HousekeepingInspection, reloaded.Status)
	assert.False(t, reloaded.DamageFound)
}

func TestAdvanceCleanedDependentFailureRollsBack(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	room, task := openCleaningCycle(t, env)
	actor := uuid.NewString()

	for _, next := range []string{model.HousekeepingInspection, model.HousekeepingCleaning} {
		_, err := env.housekeeping.Advance(ctx, task.ID.String(), actor, model.RoleHousekeeping, AdvanceHousekeepingDTO{
			Status:       next,
			DamageFound:  next == model.HousekeepingCleaning,
			DamageAmount: "60.00",
		})
		require.NoError(t, err)
	}

	// Knock the service-record table out so the dependent write fails mid-plan.
	require.NoError(t, env.db.Migrator().DropTable(&model.ServiceRecord{}))

	_, err := env.housekeeping.Advance(ctx, task.ID.String(), actor, model.RoleHousekeeping, AdvanceHousekeepingDTO{
		Status: model.HousekeepingCleaned,
	})
	var propagation *workflow.PropagationError
	require.ErrorAs(t, err, &propagation)

	// Everything the plan touched rolled back together.
	reloaded, err := env.housekeeping.GetTask(ctx, task.ID.String())
	require.NoError(t, err)
	assert.Equal(t, model.HousekeepingCleaning, reloaded.Status)

	rooms, _, err := env.housekeeping.ListRooms(ctx, "", 1, 10)
	require.NoError(t, err)
	assert.Equal(t, model.RoomStatusCleaningRequired, rooms[0].Status)

	// Once the table is back the same transition goes through; the rolled-back
	// attempt did not burn the idempotency key.
	require.NoError(t, env.db.AutoMigrate(&model.ServiceRecord{}))

	applied, err := env.housekeeping.Advance(ctx, task.ID.String(), actor, model.RoleHousekeeping, AdvanceHousekeepingDTO{
		Status: model.HousekeepingCleaned,
	})
	require.NoError(t, err)
	assert.False(t, applied.Replayed)

	records, err := env.housekeeping.ListServiceRecords(ctx, room.ID.String())
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.True(t, records[0].Cost.Equal(mustDec(t, "60.00")))
}
