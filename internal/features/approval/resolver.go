package approval

import (
	"context"
	"fmt"
	"slices"

	"go-approvals/internal/config"
)

// Directory answers the organisational questions approver resolution needs.
type Directory interface {
	// MembersWithRole returns the active users holding the role, in a stable order.
	MembersWithRole(ctx context.Context, tenantID, role string) ([]string, error)
	// ManagerOf returns the user's manager, or "" when none is recorded.
	ManagerOf(ctx context.Context, tenantID, userID string) (string, error)
}

// ApproverResolver turns a step definition into the concrete users allowed to act.
type ApproverResolver interface {
	Resolve(ctx context.Context, step ApprovalStep, submitterID, tenantID string) ([]string, error)
	CanAct(ctx context.Context, step ApprovalStep, submitterID, tenantID, actorID string) (bool, error)
}

type ApproverResolverImpl struct {
	Directory         Directory
	AllowSelfApproval bool
}

func NewApproverResolver(directory Directory, cfg *config.Config) ApproverResolver {
	return &ApproverResolverImpl{
		Directory:         directory,
		AllowSelfApproval: cfg.AllowSelfApproval,
	}
}

// Resolve returns the sorted approver set. It fails with ErrNoEligibleApprover
// rather than returning an empty set.
func (r *ApproverResolverImpl) Resolve(ctx context.Context, step ApprovalStep, submitterID, tenantID string) ([]string, error) {
	var approvers []string

	switch step.ApproverType {
	case ApproverRole:
		members, err := r.Directory.MembersWithRole(ctx, tenantID, step.ApproverRole)
		if err != nil {
			return nil, err
		}
		for _, m := range members {
			if m == "" || (!r.AllowSelfApproval && m == submitterID) {
				continue
			}
			if !slices.Contains(approvers, m) {
				approvers = append(approvers, m)
			}
		}
		slices.Sort(approvers)
	case ApproverManager:
		manager, err := r.Directory.ManagerOf(ctx, tenantID, submitterID)
		if err != nil {
			return nil, err
		}
		if manager != "" {
			approvers = []string{manager}
		}
	case ApproverSpecificUser:
		if step.ApproverUser != "" {
			approvers = []string{step.ApproverUser}
		}
	default:
		return nil, fmt.Errorf("step %d: unknown approver type %q: %w", step.StepNumber, step.ApproverType, ErrValidation)
	}

	if len(approvers) == 0 {
		return nil, fmt.Errorf("step %d (%s %s): %w", step.StepNumber, step.ApproverType, describeApprover(step), ErrNoEligibleApprover)
	}
	return approvers, nil
}

func (r *ApproverResolverImpl) CanAct(ctx context.Context, step ApprovalStep, submitterID, tenantID, actorID string) (bool, error) {
	approvers, err := r.Resolve(ctx, step, submitterID, tenantID)
	if err != nil {
		return false, err
	}
	return slices.Contains(approvers, actorID), nil
}

func describeApprover(step ApprovalStep) string {
	switch step.ApproverType {
	case ApproverRole:
		return step.ApproverRole
	case ApproverSpecificUser:
		return step.ApproverUser
	}
	return "of submitter"
}
