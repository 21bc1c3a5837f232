package workflow

import "fmt"

// Status is an entity lifecycle state.
type Status string

// Role is the capability required to drive a transition edge.
type Role string

// IllegalTransitionError is returned when no edge exists between the current
// and requested status — including any attempt to leave a terminal state.
type IllegalTransitionError struct {
	Kind string
	From Status
	To   Status
}

func (e *IllegalTransitionError) Error() string {
	return fmt.Sprintf("%s: illegal transition %s -> %s", e.Kind, e.From, e.To)
}

// UnauthorizedTransitionError is returned when the edge exists but the
// caller's role does not match the one the edge requires.
type UnauthorizedTransitionError struct {
	Kind     string
	From     Status
	To       Status
	Role     Role
	Required Role
}

func (e *UnauthorizedTransitionError) Error() string {
	return fmt.Sprintf("%s: role %q may not transition %s -> %s (requires %q)",
		e.Kind, e.Role, e.From, e.To, e.Required)
}

type edge struct {
	to   Status
	role Role
}

// Machine holds the directed graph of legal status transitions for one
// entity kind. It only decides legality; it performs no I/O. The orchestrator
// must re-validate the decision atomically with the write (conditioned
// update), since the entity may move between the check and the commit.
type Machine struct {
	kind  string
	edges map[Status][]edge
}

// NewMachine returns an empty machine for the named entity kind.
func NewMachine(kind string) *Machine {
	return &Machine{kind: kind, edges: make(map[Status][]edge)}
}

// Allow registers a legal edge from -> to, driven only by role. Returns the
// machine for chaining.
func (m *Machine) Allow(from, to Status, role Role) *Machine {
	m.edges[from] = append(m.edges[from], edge{to: to, role: role})
	return m
}

// Kind returns the entity kind this machine governs.
func (m *Machine) Kind() string { return m.kind }

// Transition checks whether moving from -> to is legal for role. It returns
// nil when the edge exists and the role matches, *IllegalTransitionError when
// the edge does not exist, and *UnauthorizedTransitionError when the edge
// exists for a different role.
func (m *Machine) Transition(from, to Status, role Role) error {
	var required Role
	found := false
	for _, e := range m.edges[from] {
		if e.to != to {
			continue
		}
		if e.role == role {
			return nil
		}
		required = e.role
		found = true
	}
	if found {
		return &UnauthorizedTransitionError{Kind: m.kind, From: from, To: to, Role: role, Required: required}
	}
	return &IllegalTransitionError{Kind: m.kind, From: from, To: to}
}

// Terminal reports whether no edge leaves the given status.
func (m *Machine) Terminal(s Status) bool {
	return len(m.edges[s]) == 0
}
