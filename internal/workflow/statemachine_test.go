package workflow

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func approvalMachine() *Machine {
	return NewMachine("request").
		Allow("pending", "approved", "supervisor").
		Allow("pending", "rejected", "supervisor").
		Allow("approved", "finalized", "admin")
}

func TestTransitionLegalEdge(t *testing.T) {
	m := approvalMachine()

	assert.NoError(t, m.Transition("pending", "approved", "supervisor"))
	assert.NoError(t, m.Transition("pending", "rejected", "supervisor"))
	assert.NoError(t, m.Transition("approved", "finalized", "admin"))
}

func TestTransitionMissingEdge(t *testing.T) {
	m := approvalMachine()

	err := m.Transition("pending", "finalized", "admin")
	require.Error(t, err)

	var illegal *IllegalTransitionError
	require.ErrorAs(t, err, &illegal)
	assert.Equal(t, Status("pending"), illegal.From)
	assert.Equal(t, Status("finalized"), illegal.To)
	assert.Equal(t, "request", illegal.Kind)
}

func TestTransitionWrongRole(t *testing.T) {
	m := approvalMachine()

	err := m.Transition("pending", "approved", "admin")
	require.Error(t, err)

	var unauthorized *UnauthorizedTransitionError
	require.ErrorAs(t, err, &unauthorized)
	assert.Equal(t, Role("admin"), unauthorized.Role)
	assert.Equal(t, Role("supervisor"), unauthorized.Required)
}

func TestTransitionOutOfTerminalState(t *testing.T) {
	m := approvalMachine()

	err := m.Transition("rejected", "approved", "supervisor")
	var illegal *IllegalTransitionError
	require.ErrorAs(t, err, &illegal)

	err = m.Transition("finalized", "pending", "admin")
	require.ErrorAs(t, err, &illegal)
}

func TestTerminal(t *testing.T) {
	m := approvalMachine()

	assert.False(t, m.Terminal("pending"))
	assert.False(t, m.Terminal("approved"))
	assert.True(t, m.Terminal("rejected"))
	assert.True(t, m.Terminal("finalized"))
	assert.True(t, m.Terminal("never-seen"))
}

func TestSameEdgeDifferentRoles(t *testing.T) {
	m := NewMachine("doc").
		Allow("draft", "published", "editor").
		Allow("draft", "published", "admin")

	assert.NoError(t, m.Transition("draft", "published", "editor"))
	assert.NoError(t, m.Transition("draft", "published", "admin"))

	var unauthorized *UnauthorizedTransitionError
	require.ErrorAs(t, m.Transition("draft", "published", "viewer"), &unauthorized)
}
