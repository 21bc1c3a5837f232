package workflow

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
)

// ErrStaleEntity is returned by a conditioned write that matched zero rows:
// another caller moved the entity between the legality check and the commit.
// Safe to surface as a retryable conflict.
var ErrStaleEntity = errors.New("entity changed concurrently")

// PropagationError wraps a dependent or primary write failure. The whole plan
// has been rolled back when this is returned.
type PropagationError struct {
	Kind     string
	EntityID string
	Stage    string // "dependent" or "primary"
	Err      error
}

func (e *PropagationError) Error() string {
	return fmt.Sprintf("%s %s: %s write failed: %v", e.Kind, e.EntityID, e.Stage, e.Err)
}

func (e *PropagationError) Unwrap() error { return e.Err }

// InconsistentStateError means a plan failed and the rollback itself failed
// too. This is an operator-reconciliation alarm, never swallowed.
type InconsistentStateError struct {
	Kind     string
	EntityID string
	Cause    error
	Rollback error
}

func (e *InconsistentStateError) Error() string {
	return fmt.Sprintf("%s %s: plan failed (%v) and rollback failed (%v): manual reconciliation required",
		e.Kind, e.EntityID, e.Cause, e.Rollback)
}

// Step is one write inside a plan. It runs with the plan's transaction bound
// to ctx and must go through the repositories so it joins that transaction.
type Step func(ctx context.Context) error

// Plan bundles the primary conditioned status write with the dependent writes
// a transition fans out. Key is the idempotency key (entity id + target
// status); Result is the caller's response payload, recorded on the key so a
// replay returns the same answer without re-applying anything.
type Plan struct {
	Key        string
	Kind       string
	EntityID   string
	From       Status
	To         Status
	Actor      string
	Dependents []Step
	Primary    Step
	Result     interface{}
}

// Applied is the outcome of a plan. Replayed is true when the idempotency key
// had already been claimed by a prior successful call.
type Applied struct {
	Key      string          `json:"key"`
	Replayed bool            `json:"replayed"`
	Result   json.RawMessage `json:"result"`
}

// TxRunner runs a function inside a database transaction, joining an ambient
// one if ctx already carries it.
type TxRunner interface {
	RunInTx(ctx context.Context, fn func(txCtx context.Context) error) error
}

// IdempotencyStore claims plan keys and records their results.
type IdempotencyStore interface {
	// Claim inserts the key. claimed=false with the prior result means the
	// key already exists from an earlier successful plan.
	Claim(ctx context.Context, key, kind, entityID string) (claimed bool, prior string, err error)
	SaveResult(ctx context.Context, key, result string) error
}

// Propagator applies transition plans as one atomic unit: all writes commit
// or none do. It holds no lock across store calls — correctness comes from
// the idempotency key and the conditioned primary write.
type Propagator struct {
	tx   TxRunner
	idem IdempotencyStore
	pub  Publisher
	log  *logrus.Logger
}

func NewPropagator(tx TxRunner, idem IdempotencyStore, pub Publisher, log *logrus.Logger) *Propagator {
	if pub == nil {
		pub = NopPublisher{}
	}
	return &Propagator{tx: tx, idem: idem, pub: pub, log: log}
}

// Apply executes the plan. Dependent writes run first, the primary
// conditioned status write last, so the status never advances ahead of its
// side effects. A repeated key returns the recorded prior result untouched.
func (p *Propagator) Apply(ctx context.Context, plan Plan) (*Applied, error) {
	if plan.Key == "" || plan.Primary == nil {
		return nil, errors.New("plan requires an idempotency key and a primary write")
	}

	var (
		applied *Applied
		stepErr error
	)

	err := p.tx.RunInTx(ctx, func(txCtx context.Context) error {
		claimed, prior, claimErr := p.idem.Claim(txCtx, plan.Key, plan.Kind, plan.EntityID)
		if claimErr != nil {
			return fmt.Errorf("failed to claim idempotency key: %w", claimErr)
		}
		if !claimed {
			applied = &Applied{Key: plan.Key, Replayed: true, Result: json.RawMessage(prior)}
			return nil
		}

		for _, step := range plan.Dependents {
			if err := step(txCtx); err != nil {
				stepErr = &PropagationError{Kind: plan.Kind, EntityID: plan.EntityID, Stage: "dependent", Err: err}
				return stepErr
			}
		}

		if err := plan.Primary(txCtx); err != nil {
			if errors.Is(err, ErrStaleEntity) {
				stepErr = err
				return err
			}
			stepErr = &PropagationError{Kind: plan.Kind, EntityID: plan.EntityID, Stage: "primary", Err: err}
			return stepErr
		}

		result, err := json.Marshal(plan.Result)
		if err != nil {
			return fmt.Errorf("failed to encode plan result: %w", err)
		}
		if err := p.idem.SaveResult(txCtx, plan.Key, string(result)); err != nil {
			return fmt.Errorf("failed to record plan result: %w", err)
		}

		applied = &Applied{Key: plan.Key, Result: result}
		return nil
	})

	if err != nil {
		// A rollback failure surfaces as an error distinct from the step
		// that triggered it.
		if stepErr != nil && !errors.Is(err, stepErr) {
			return nil, &InconsistentStateError{Kind: plan.Kind, EntityID: plan.EntityID, Cause: stepErr, Rollback: err}
		}
		return nil, err
	}

	if !applied.Replayed {
		p.pub.Publish(TransitionEvent{
			Kind:     plan.Kind,
			EntityID: plan.EntityID,
			From:     plan.From,
			To:       plan.To,
			Actor:    plan.Actor,
			At:       time.Now(),
		})
		if p.log != nil {
			p.log.WithFields(logrus.Fields{
				"kind":   plan.Kind,
				"entity": plan.EntityID,
				"from":   plan.From,
				"to":     plan.To,
				"actor":  plan.Actor,
			}).Info("transition applied")
		}
	}

	return applied, nil
}
