package approval

import (
	"fmt"
	"time"

	common_models "go-approvals/internal/common/models"
)

// Transition applies one decision to a request projection and returns the
// successor. The input is not modified.
func Transition(req ApprovalRequest, action ActionType, at time.Time) (ApprovalRequest, error) {
	if req.Status.IsTerminal() {
		return req, ErrRequestAlreadyFinalized
	}

	next := req
	switch action {
	case common_models.ActionApprove:
		if req.CurrentStep < req.TotalSteps {
			next.CurrentStep++
		} else {
			next.Status = RequestApproved
		}
	case common_models.ActionReject:
		next.Status = RequestRejected
	case common_models.ActionRecall:
		next.Status = RequestRecalled
	default:
		return req, fmt.Errorf("action %q cannot be applied to a pending request: %w", action, ErrValidation)
	}

	next.Version = req.Version + 1
	next.UpdatedAt = at
	if next.Status.IsTerminal() {
		done := at
		next.CompletedAt = &done
	}
	return next, nil
}

// Replay rebuilds a request's state from its action log. base supplies the
// identity fields and TotalSteps; its mutable state is ignored.
func Replay(base ApprovalRequest, actions []common_models.ApprovalAction) (ApprovalRequest, error) {
	if len(actions) == 0 {
		return base, fmt.Errorf("request %s has no actions", base.ID)
	}
	first := actions[0]
	if first.Action != common_models.ActionSubmit || first.Sequence != 0 {
		return base, fmt.Errorf("request %s: first action is %s#%d, want SUBMIT#0", base.ID, first.Action, first.Sequence)
	}

	state := base
	state.Status = RequestPending
	state.CurrentStep = 1
	state.Version = 0
	state.CompletedAt = nil
	state.UpdatedAt = first.CreatedAt

	for _, a := range actions[1:] {
		if a.StepNumber != state.CurrentStep {
			return state, fmt.Errorf("request %s: action #%d recorded at step %d while request was at step %d", base.ID, a.Sequence, a.StepNumber, state.CurrentStep)
		}
		next, err := Transition(state, a.Action, a.CreatedAt)
		if err != nil {
			return state, fmt.Errorf("request %s: action #%d: %w", base.ID, a.Sequence, err)
		}
		if a.Sequence != next.Version {
			return state, fmt.Errorf("request %s: action sequence %d does not follow version %d", base.ID, a.Sequence, state.Version)
		}
		state = next
	}
	return state, nil
}

// Drifted reports whether the stored projection disagrees with the replayed one.
func Drifted(stored, replayed ApprovalRequest) bool {
	return stored.Status != replayed.Status ||
		stored.CurrentStep != replayed.CurrentStep ||
		stored.Version != replayed.Version
}
