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

func openDineInOrder(t *testing.T, env *testEnv) *model.KOTOrder {
	t.Helper()
	ctx := context.Background()

	_, err := env.kot.CreateTable(ctx, "T1")
	require.NoError(t, err)

	order, err := env.kot.CreateOrder(ctx, uuid.NewString(), CreateKOTOrderDTO{
		TableNo:   "T1",
		OrderType: model.KOTOrderTypeDineIn,
		Items: []KOTItemDTO{
			{Name: "paneer tikka", Qty: 2, Rate: "120.00"},
			{Name: "lassi", Qty: 1, Rate: "60.00"},
		},
	})
	require.NoError(t, err)
	return order
}

func serveAllItems(t *testing.T, env *testEnv, order *model.KOTOrder) {
	t.Helper()
	for _, item := range order.Items {
		for _, next := range []string{model.KOTItemInProgress, model.KOTItemReady, model.KOTItemServed} {
			_, err := env.kot.AdvanceItem(context.Background(), item.ID.String(), next)
			require.NoError(t, err)
		}
	}
}

func TestCreateOrderComputesBillAndClaimsTable(t *testing.T) {
	env := newTestEnv(t)
	order := openDineInOrder(t, env)

	// 2*120 + 60 = 300, 5% GST = 15.
	assert.True(t, order.Amount.Equal(mustDec(t, "300.00")))
	assert.True(t, order.GST.Equal(mustDec(t, "15.00")))
	assert.True(t, order.Total.Equal(mustDec(t, "315.00")))
	require.NotNil(t, order.TableNo)

	tables, err := env.kot.ListTables(context.Background())
	require.NoError(t, err)
	require.Len(t, tables, 1)
	assert.True(t, tables[0].Occupied)

	// The claimed table rejects a second open ticket.
	_, err = env.kot.CreateOrder(context.Background(), uuid.NewString(), CreateKOTOrderDTO{
		TableNo:   "T1",
		OrderType: model.KOTOrderTypeDineIn,
		Items:     []KOTItemDTO{{Name: "tea", Qty: 1, Rate: "20.00"}},
	})
	assert.ErrorIs(t, err, ErrTableOccupied)
}

func TestCreateOrderRequiresTableForDineIn(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.kot.CreateOrder(context.Background(), uuid.NewString(), CreateKOTOrderDTO{
		OrderType: model.KOTOrderTypeDineIn,
		Items:     []KOTItemDTO{{Name: "tea", Qty: 1, Rate: "20.00"}},
	})
	assert.Error(t, err)

	// Takeaway needs no table.
	order, err := env.kot.CreateOrder(context.Background(), uuid.NewString(), CreateKOTOrderDTO{
		OrderType: model.KOTOrderTypeTakeaway,
		Items:     []KOTItemDTO{{Name: "tea", Qty: 1, Rate: "20.00"}},
	})
	require.NoError(t, err)
	assert.Nil(t, order.TableNo)
}

func TestAdvanceItemStrictChain(t *testing.T) {
	env := newTestEnv(t)
	order := openDineInOrder(t, env)
	item := order.Items[0]

	// Skipping a step is rejected.
	_, err := env.kot.AdvanceItem(context.Background(), item.ID.String(), model.KOTItemReady)
	var illegal *workflow.IllegalTransitionError
	require.ErrorAs(t, err, &illegal)

	advanced, err := env.kot.AdvanceItem(context.Background(), item.ID.String(), model.KOTItemInProgress)
	require.NoError(t, err)
	assert.Equal(t, model.KOTItemInProgress, advanced.Status)

	// Moving backwards is rejected.
	_, err = env.kot.AdvanceItem(context.Background(), item.ID.String(), model.KOTItemPending)
	require.ErrorAs(t, err, &illegal)
}

func TestCloseBlocksOnPendingItems(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	order := openDineInOrder(t, env)

	register, err := env.engine.CreateRegister(ctx, "front desk", mustDec(t, "0"), nil)
	require.NoError(t, err)

	_, err = env.kot.Close(ctx, order.ID.String(), uuid.NewString(), model.RoleCashier, CloseKOTOrderDTO{
		RegisterID: register.ID.String(),
	})
	assert.ErrorIs(t, err, ErrItemsPending)

	reloaded, err := env.kot.GetOrder(ctx, order.ID.String())
	require.NoError(t, err)
	assert.Equal(t, model.KOTStatusOpen, reloaded.Status)
}

func TestCloseSettlesThroughLedger(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	order := openDineInOrder(t, env)
	serveAllItems(t, env, order)

	register, err := env.engine.CreateRegister(ctx, "front desk", mustDec(t, "1000.00"), nil)
	require.NoError(t, err)

	applied, err := env.kot.Close(ctx, order.ID.String(), uuid.NewString(), model.RoleCashier, CloseKOTOrderDTO{
		RegisterID: register.ID.String(),
	})
	require.NoError(t, err)
	assert.False(t, applied.Replayed)

	closed, err := env.kot.GetOrder(ctx, order.ID.String())
	require.NoError(t, err)
	assert.Equal(t, model.KOTStatusClosed, closed.Status)
	assert.Nil(t, closed.TableNo, "terminal orders drop their table reference")

	// The settlement landed as one ledger row referencing the order.
	reloaded, err := env.engine.GetRegister(ctx, register.ID)
	require.NoError(t, err)
	assert.True(t, reloaded.Balance.Equal(mustDec(t, "1315.00")))

	txns, _, err := env.engine.ListTransactions(ctx, register.ID, 1, 10)
	require.NoError(t, err)
	require.Len(t, txns, 2)
	assert.Equal(t, order.ID.String(), txns[0].ReferenceID)

	tables, err := env.kot.ListTables(ctx)
	require.NoError(t, err)
	assert.False(t, tables[0].Occupied)

	// Closing again: closed is terminal.
	_, err = env.kot.Close(ctx, order.ID.String(), uuid.NewString(), model.RoleCashier, CloseKOTOrderDTO{
		RegisterID: register.ID.String(),
	})
	var illegal *workflow.IllegalTransitionError
	require.ErrorAs(t, err, &illegal)
}

func TestCloseRequiresCashierRole(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	order := openDineInOrder(t, env)
	serveAllItems(t, env, order)

	register, err := env.engine.CreateRegister(ctx, "front desk", mustDec(t, "0"), nil)
	require.NoError(t, err)

	_, err = env.kot.Close(ctx, order.ID.String(), uuid.NewString(), model.RoleHousekeeping, CloseKOTOrderDTO{
		RegisterID: register.ID.String(),
	})
	var unauthorized *workflow.UnauthorizedTransitionError
	require.ErrorAs(t, err, &unauthorized)
}

func TestCancelFreesTableKeepsItems(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	order := openDineInOrder(t, env)

	applied, err := env.kot.Cancel(ctx, order.ID.String(), uuid.NewString(), model.RoleCashier)
	require.NoError(t, err)
	assert.False(t, applied.Replayed)

	cancelled, err := env.kot.GetOrder(ctx, order.ID.String())
	require.NoError(t, err)
	assert.Equal(t, model.KOTStatusCancelled, cancelled.Status)
	assert.Nil(t, cancelled.TableNo)
	assert.Len(t, cancelled.Items, 2, "items survive cancellation for the kitchen record")

	tables, err := env.kot.ListTables(ctx)
	require.NoError(t, err)
	assert.False(t, tables[0].Occupied)

	// No money moved.
	assert.EqualValues(t, 0, countRows(t, env.db, &model.CashTransaction{}))
}
