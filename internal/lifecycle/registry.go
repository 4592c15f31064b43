package lifecycle

import (
	"fmt"

	"github.com/claimdesk/claims-service/internal/domain"
)

// Get returns the definition for the given state. The enumeration is
// closed, so a miss indicates a corrupted record or a programming
// error rather than user input.
func Get(state domain.ClaimState) (StateDefinition, error) {
	def, ok := definitions[state]
	if !ok {
		return StateDefinition{}, fmt.Errorf("state not found: %s", state)
	}
	return def, nil
}

// ValidateTransition resolves the current state's definition and
// delegates guard evaluation. A nil return means the transition is
// allowed.
func ValidateTransition(from, to domain.ClaimState, ctx Context) error {
	def, err := Get(from)
	if err != nil {
		return err
	}
	return def.EvaluateTransition(to, ctx)
}

// StateInfo is the informational projection of one state, served on
// read-only API surfaces.
type StateInfo struct {
	State          domain.ClaimState   `json:"state"`
	Description    string              `json:"description"`
	AllowedTargets []domain.ClaimState `json:"allowed_targets"`
	CanModify      bool                `json:"can_modify"`
	CanReassign    bool                `json:"can_reassign"`
}

// describeOrder fixes the listing order for DescribeAll.
var describeOrder = []domain.ClaimState{
	domain.ClaimStatePendiente,
	domain.ClaimStateEnProceso,
	domain.ClaimStateEnRevision,
	domain.ClaimStateResuelto,
	domain.ClaimStateCancelado,
}

// DescribeAll lists every state with its targets and flags.
func DescribeAll() []StateInfo {
	out := make([]StateInfo, 0, len(describeOrder))
	for _, state := range describeOrder {
		def := definitions[state]
		out = append(out, StateInfo{
			State:          def.state,
			Description:    def.description,
			AllowedTargets: def.AllowedTargets(),
			CanModify:      def.modifiable,
			CanReassign:    def.reassign,
		})
	}
	return out
}
