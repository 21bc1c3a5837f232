package workflow

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// memTxKey carries the per-transaction staging area in ctx, mirroring how the
// real runner carries a gorm transaction.
type memTxKey struct{}

type memTxState struct {
	pending map[string]string
}

// memStore is an in-memory idempotency store with transactional staging:
// claims land in the staging area and only survive when the runner commits.
type memStore struct {
	committed map[string]string
}

func newMemStore() *memStore {
	return &memStore{committed: make(map[string]string)}
}

func (s *memStore) Claim(ctx context.Context, key, kind, entityID string) (bool, string, error) {
	if prior, ok := s.committed[key]; ok {
		return false, prior, nil
	}
	tx, _ := ctx.Value(memTxKey{}).(*memTxState)
	if _, ok := tx.pending[key]; ok {
		return false, tx.pending[key], nil
	}
	tx.pending[key] = ""
	return true, "", nil
}

func (s *memStore) SaveResult(ctx context.Context, key, result string) error {
	tx, _ := ctx.Value(memTxKey{}).(*memTxState)
	tx.pending[key] = result
	return nil
}

type memTxRunner struct {
	store       *memStore
	rollbackErr error // returned instead of the step error, simulating a failed rollback
}

func (r *memTxRunner) RunInTx(ctx context.Context, fn func(txCtx context.Context) error) error {
	tx := &memTxState{pending: make(map[string]string)}
	if err := fn(context.WithValue(ctx, memTxKey{}, tx)); err != nil {
		if r.rollbackErr != nil {
			return r.rollbackErr
		}
		return err
	}
	for k, v := range tx.pending {
		r.store.committed[k] = v
	}
	return nil
}

type capturePublisher struct {
	events []TransitionEvent
}

func (p *capturePublisher) Publish(event TransitionEvent) {
	p.events = append(p.events, event)
}

func testPlan(key string, dependents []Step, primary Step) Plan {
	return Plan{
		Key:        key,
		Kind:       "request",
		EntityID:   "abc",
		From:       "pending",
		To:         "approved",
		Actor:      "user-1",
		Dependents: dependents,
		Primary:    primary,
		Result:     map[string]string{"status": "approved"},
	}
}

func TestApplyRunsDependentsBeforePrimary(t *testing.T) {
	store := newMemStore()
	runner := &memTxRunner{store: store}
	pub := &capturePublisher{}
	p := NewPropagator(runner, store, pub, nil)

	var order []string
	plan := testPlan("request:abc:approved",
		[]Step{
			func(ctx context.Context) error { order = append(order, "dep1"); return nil },
			func(ctx context.Context) error { order = append(order, "dep2"); return nil },
		},
		func(ctx context.Context) error { order = append(order, "primary"); return nil },
	)

	applied, err := p.Apply(context.Background(), plan)
	require.NoError(t, err)
	assert.False(t, applied.Replayed)
	assert.Equal(t, []string{"dep1", "dep2", "primary"}, order)
	assert.JSONEq(t, `{"status":"approved"}`, string(applied.Result))

	require.Len(t, pub.events, 1)
	assert.Equal(t, Status("approved"), pub.events[0].To)
	assert.Equal(t, "user-1", pub.events[0].Actor)
}

func TestApplyReplaySameKey(t *testing.T) {
	store := newMemStore()
	runner := &memTxRunner{store: store}
	pub := &capturePublisher{}
	p := NewPropagator(runner, store, pub, nil)

	runs := 0
	plan := testPlan("request:abc:approved", nil,
		func(ctx context.Context) error { runs++; return nil })

	first, err := p.Apply(context.Background(), plan)
	require.NoError(t, err)

	second, err := p.Apply(context.Background(), plan)
	require.NoError(t, err)

	assert.True(t, second.Replayed)
	assert.Equal(t, string(first.Result), string(second.Result))
	assert.Equal(t, 1, runs, "primary must not run again on replay")
	assert.Len(t, pub.events, 1, "replay must not publish a second event")
}

func TestApplyDependentFailureRollsBack(t *testing.T) {
	store := newMemStore()
	runner := &memTxRunner{store: store}
	p := NewPropagator(runner, store, NopPublisher{}, nil)

	boom := errors.New("boom")
	primaryRan := false
	plan := testPlan("request:abc:approved",
		[]Step{func(ctx context.Context) error { return boom }},
		func(ctx context.Context) error { primaryRan = true; return nil },
	)

	_, err := p.Apply(context.Background(), plan)
	require.Error(t, err)

	var propagation *PropagationError
	require.ErrorAs(t, err, &propagation)
	assert.Equal(t, "dependent", propagation.Stage)
	assert.ErrorIs(t, err, boom)

	assert.False(t, primaryRan)
	assert.Empty(t, store.committed, "nothing may commit when a dependent fails")
}

func TestApplyStalePrimarySurfacesConflict(t *testing.T) {
	store := newMemStore()
	runner := &memTxRunner{store: store}
	p := NewPropagator(runner, store, NopPublisher{}, nil)

	plan := testPlan("request:abc:approved", nil,
		func(ctx context.Context) error { return ErrStaleEntity })

	_, err := p.Apply(context.Background(), plan)
	assert.ErrorIs(t, err, ErrStaleEntity)
	assert.Empty(t, store.committed)
}

func TestApplyRollbackFailureIsInconsistentState(t *testing.T) {
	store := newMemStore()
	runner := &memTxRunner{store: store, rollbackErr: errors.New("connection lost during rollback")}
	p := NewPropagator(runner, store, NopPublisher{}, nil)

	boom := errors.New("boom")
	plan := testPlan("request:abc:approved",
		[]Step{func(ctx context.Context) error { return boom }},
		func(ctx context.Context) error { return nil },
	)

	_, err := p.Apply(context.Background(), plan)
	require.Error(t, err)

	var inconsistent *InconsistentStateError
	require.ErrorAs(t, err, &inconsistent)
	assert.ErrorIs(t, inconsistent.Cause, boom)
	assert.Error(t, inconsistent.Rollback)
}

func TestApplyRejectsIncompletePlan(t *testing.T) {
	store := newMemStore()
	p := NewPropagator(&memTxRunner{store: store}, store, NopPublisher{}, nil)

	_, err := p.Apply(context.Background(), Plan{Kind: "request"})
	assert.Error(t, err)

	_, err = p.Apply(context.Background(), Plan{Key: "k", Kind: "request"})
	assert.Error(t, err)
}
