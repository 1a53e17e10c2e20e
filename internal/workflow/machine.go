// Package workflow holds the machinery shared by the transfer and loan
// workflows: a declarative transition table and a core that applies
// transitions with a status compare-and-set and one audit entry each.
package workflow

import (
	"fmt"
	"slices"
	"strings"

	"github.com/erazemk/premik/internal/model"
)

// Edge is the set of statuses an action may start from and the status it
// leads to. Statuses listed in Keep accept the action but are left as they
// are.
type Edge[S ~string] struct {
	From []S
	To   S
	Keep []S
}

// Machine is a transition table keyed by action name.
type Machine[S ~string] struct {
	entity string
	edges  map[string]Edge[S]
}

// NewMachine builds a machine for entity from the given edges.
func NewMachine[S ~string](entity string, edges map[string]Edge[S]) *Machine[S] {
	return &Machine[S]{entity: entity, edges: edges}
}

// Target returns the status action leads to from status from, or an
// InvalidTransition error naming the id.
func (m *Machine[S]) Target(id, action string, from S) (S, error) {
	edge, ok := m.edges[action]
	if !ok {
		panic(fmt.Sprintf("workflow: %s has no action %q", m.entity, action))
	}
	if !slices.Contains(edge.From, from) {
		allowed := m.Actions(from)
		if len(allowed) == 0 {
			return "", model.InvalidTransition(m.entity, id, "cannot %s from final status %s", action, from)
		}
		return "", model.InvalidTransition(m.entity, id, "cannot %s from status %s (allowed: %s)",
			action, from, strings.Join(allowed, ", "))
	}
	if slices.Contains(edge.Keep, from) {
		return from, nil
	}
	return edge.To, nil
}

// Allowed reports whether action is defined from status from.
func (m *Machine[S]) Allowed(action string, from S) bool {
	edge, ok := m.edges[action]
	return ok && slices.Contains(edge.From, from)
}

// Actions returns the actions available from status from.
func (m *Machine[S]) Actions(from S) []string {
	var actions []string
	for name, edge := range m.edges {
		if slices.Contains(edge.From, from) {
			actions = append(actions, name)
		}
	}
	slices.Sort(actions)
	return actions
}
