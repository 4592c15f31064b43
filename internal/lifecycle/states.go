// Package lifecycle implements the claim state machine: the per-state
// transition rules, the modify/reassign flags derived from each state,
// and the guard conditions a transition must satisfy beyond the
// allowed-target check.
package lifecycle

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/claimdesk/claims-service/internal/domain"
)

// reopenNoteMinLen is the minimum note length required to reopen a
// RESUELTO claim.
const reopenNoteMinLen = 20

// Context carries the request fields guards inspect when deciding
// whether a transition may proceed.
type Context struct {
	Area              *domain.ClaimArea
	ResponsibleID     *string
	Note              *string
	ChangeReason      *string
	ResolutionSummary *string
}

// guardFunc applies state-specific preconditions for an already
// allowed target. A nil return means the transition may proceed.
type guardFunc func(target domain.ClaimState, ctx Context) error

// StateDefinition describes one lifecycle state: its outbound
// transitions, the flags claims in that state carry, and its guards.
type StateDefinition struct {
	state       domain.ClaimState
	description string
	targets     []domain.ClaimState
	modifiable  bool
	reassign    bool
	guard       guardFunc
}

// State returns the state this definition describes.
func (d StateDefinition) State() domain.ClaimState { return d.state }

// Describe returns a human-readable description of the state.
func (d StateDefinition) Describe() string { return d.description }

// AllowedTargets returns the states reachable from this one.
func (d StateDefinition) AllowedTargets() []domain.ClaimState {
	out := make([]domain.ClaimState, len(d.targets))
	copy(out, d.targets)
	return out
}

// CanModify reports whether claims in this state accept field edits.
func (d StateDefinition) CanModify() bool { return d.modifiable }

// CanReassign reports whether claims in this state accept area or
// responsible reassignment.
func (d StateDefinition) CanReassign() bool { return d.reassign }

// EvaluateTransition checks the allowed-target set and then the
// state-specific guards. Guard evaluation is pure: no I/O, no clock.
func (d StateDefinition) EvaluateTransition(target domain.ClaimState, ctx Context) error {
	if len(d.targets) == 0 {
		return fmt.Errorf("%s is a terminal state; no further transitions are allowed", d.state)
	}
	if !d.allows(target) {
		return fmt.Errorf("cannot transition from %s to %s; allowed targets: %s",
			d.state, target, joinStates(d.targets))
	}
	if d.guard != nil {
		return d.guard(target, ctx)
	}
	return nil
}

func (d StateDefinition) allows(target domain.ClaimState) bool {
	for _, candidate := range d.targets {
		if candidate == target {
			return true
		}
	}
	return false
}

func joinStates(states []domain.ClaimState) string {
	parts := make([]string, len(states))
	for i, s := range states {
		parts[i] = string(s)
	}
	return strings.Join(parts, ", ")
}

// definitions is the closed registry: one entry per lifecycle state.
var definitions = map[domain.ClaimState]StateDefinition{
	domain.ClaimStatePendiente: {
		state:       domain.ClaimStatePendiente,
		description: "Claim registered, awaiting assignment",
		targets:     []domain.ClaimState{domain.ClaimStateEnProceso, domain.ClaimStateCancelado},
		modifiable:  true,
		reassign:    true,
		guard:       guardPendiente,
	},
	domain.ClaimStateEnProceso: {
		state:       domain.ClaimStateEnProceso,
		description: "Claim actively being worked",
		targets:     []domain.ClaimState{domain.ClaimStateEnRevision, domain.ClaimStatePendiente, domain.ClaimStateCancelado},
		modifiable:  true,
		reassign:    true,
		guard:       guardEnProceso,
	},
	domain.ClaimStateEnRevision: {
		state:       domain.ClaimStateEnRevision,
		description: "Proposed resolution awaiting approval",
		targets:     []domain.ClaimState{domain.ClaimStateResuelto, domain.ClaimStateEnProceso, domain.ClaimStateCancelado},
		modifiable:  false,
		reassign:    false,
		guard:       guardEnRevision,
	},
	domain.ClaimStateResuelto: {
		state:       domain.ClaimStateResuelto,
		description: "Claim closed with a resolution",
		targets:     []domain.ClaimState{domain.ClaimStateEnProceso},
		modifiable:  false,
		reassign:    false,
		guard:       guardResuelto,
	},
	domain.ClaimStateCancelado: {
		state:       domain.ClaimStateCancelado,
		description: "Claim closed without resolution",
		targets:     nil,
		modifiable:  false,
		reassign:    false,
	},
}

func guardPendiente(target domain.ClaimState, ctx Context) error {
	if target == domain.ClaimStateEnProceso {
		if ctx.Area == nil && !hasText(ctx.ResponsibleID) {
			return fmt.Errorf("transition to %s requires an area or a responsible agent", target)
		}
	}
	return nil
}

func guardEnProceso(target domain.ClaimState, ctx Context) error {
	if target == domain.ClaimStateEnRevision {
		if !hasText(ctx.Note) && !hasText(ctx.ResolutionSummary) {
			return fmt.Errorf("transition to %s requires a note or a resolution summary", target)
		}
	}
	return nil
}

func guardEnRevision(target domain.ClaimState, ctx Context) error {
	switch target {
	case domain.ClaimStateResuelto:
		if !hasText(ctx.ResolutionSummary) {
			return fmt.Errorf("transition to %s requires a resolution summary", target)
		}
	case domain.ClaimStateEnProceso:
		if !hasText(ctx.ChangeReason) {
			return fmt.Errorf("returning to %s requires a change reason", target)
		}
	}
	return nil
}

func guardResuelto(target domain.ClaimState, ctx Context) error {
	if !hasText(ctx.ChangeReason) || noteLen(ctx.Note) < reopenNoteMinLen {
		return fmt.Errorf("reopening a %s claim requires a change reason and a note of at least %d characters",
			domain.ClaimStateResuelto, reopenNoteMinLen)
	}
	return nil
}

func hasText(s *string) bool {
	return s != nil && strings.TrimSpace(*s) != ""
}

func noteLen(s *string) int {
	if s == nil {
		return 0
	}
	return utf8.RuneCountInString(strings.TrimSpace(*s))
}
