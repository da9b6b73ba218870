package approval

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"go-approvals/pkg/criteria"

	"go.uber.org/zap"
)

// RequestTerminator recalls the open requests of a process being force-deleted.
type RequestTerminator interface {
	TerminateOpen(ctx context.Context, tenantID, processID, reason string) (int, error)
}

// ProcessRegistry manages approval process definitions.
type ProcessRegistry interface {
	Create(ctx context.Context, tenantID, actorID string, in ProcessInput) (*ApprovalProcess, error)
	Update(ctx context.Context, tenantID, id string, in ProcessInput) (*ApprovalProcess, error)
	Get(ctx context.Context, tenantID, id string) (*ApprovalProcess, error)
	List(ctx context.Context, tenantID string, filter ProcessFilter) ([]ApprovalProcess, error)
	SetStatus(ctx context.Context, tenantID, id string, status ProcessStatus) (*ApprovalProcess, error)
	Delete(ctx context.Context, tenantID, id, actorID string, force bool) (int, error)
}

type ProcessRegistryImpl struct {
	Processes  ProcessRepository
	Requests   RequestRepository
	Terminator RequestTerminator
	Logger     *zap.Logger
	now        func() time.Time
}

func NewProcessRegistry(processes ProcessRepository, requests RequestRepository, terminator RequestTerminator, logger *zap.Logger) ProcessRegistry {
	return &ProcessRegistryImpl{
		Processes:  processes,
		Requests:   requests,
		Terminator: terminator,
		Logger:     logger.Named("approval.registry"),
		now:        func() time.Time { return time.Now().UTC() },
	}
}

var statusTransitions = map[ProcessStatus][]ProcessStatus{
	ProcessDraft:    {ProcessActive},
	ProcessActive:   {ProcessInactive},
	ProcessInactive: {ProcessActive},
}

func canTransition(from, to ProcessStatus) bool {
	for _, allowed := range statusTransitions[from] {
		if allowed == to {
			return true
		}
	}
	return false
}

// ValidateSteps checks a step list and returns it ordered by step number.
// Step numbers must be exactly 1..N and each step must name its approver.
func ValidateSteps(steps []ApprovalStep) ([]ApprovalStep, []string) {
	ordered := append([]ApprovalStep(nil), steps...)
	sort.SliceStable(ordered, func(i, j int) bool { return ordered[i].StepNumber < ordered[j].StepNumber })

	var problems []string
	for i, step := range ordered {
		if step.StepNumber != i+1 {
			problems = append(problems, fmt.Sprintf("step numbers must run 1..%d without gaps or duplicates, found %d at position %d", len(ordered), step.StepNumber, i+1))
			break
		}
	}
	for _, step := range ordered {
		switch step.ApproverType {
		case ApproverRole:
			if strings.TrimSpace(step.ApproverRole) == "" {
				problems = append(problems, fmt.Sprintf("step %d: approver_role is required for ROLE", step.StepNumber))
			}
			if step.ApproverUser != "" {
				problems = append(problems, fmt.Sprintf("step %d: approver_user is not allowed for ROLE", step.StepNumber))
			}
		case ApproverSpecificUser:
			if strings.TrimSpace(step.ApproverUser) == "" {
				problems = append(problems, fmt.Sprintf("step %d: approver_user is required for SPECIFIC_USER", step.StepNumber))
			}
			if step.ApproverRole != "" {
				problems = append(problems, fmt.Sprintf("step %d: approver_role is not allowed for SPECIFIC_USER", step.StepNumber))
			}
		case ApproverManager:
			if step.ApproverRole != "" || step.ApproverUser != "" {
				problems = append(problems, fmt.Sprintf("step %d: MANAGER takes no approver_role or approver_user", step.StepNumber))
			}
		default:
			problems = append(problems, fmt.Sprintf("step %d: unknown approver_type %q", step.StepNumber, step.ApproverType))
		}
	}
	return ordered, problems
}

func (s *ProcessRegistryImpl) validate(in *ProcessInput) error {
	var problems []string
	in.Name = strings.TrimSpace(in.Name)
	in.ObjectType = strings.TrimSpace(in.ObjectType)
	in.EntryCriteria = strings.TrimSpace(in.EntryCriteria)

	if in.Name == "" {
		problems = append(problems, "name is required")
	}
	if in.ObjectType == "" {
		problems = append(problems, "object_type is required")
	}
	if in.EntryCriteria != "" {
		if err := criteria.Validate(in.EntryCriteria); err != nil {
			return err
		}
	}
	ordered, stepProblems := ValidateSteps(in.Steps)
	in.Steps = ordered
	problems = append(problems, stepProblems...)

	if len(problems) > 0 {
		return &ValidationError{Problems: problems}
	}
	return nil
}

func (s *ProcessRegistryImpl) Create(ctx context.Context, tenantID, actorID string, in ProcessInput) (*ApprovalProcess, error) {
	if err := s.validate(&in); err != nil {
		return nil, err
	}

	now := s.now()
	process := &ApprovalProcess{
		TenantID:      tenantID,
		Name:          in.Name,
		Description:   in.Description,
		ObjectType:    in.ObjectType,
		EntryCriteria: in.EntryCriteria,
		Steps:         in.Steps,
		Status:        ProcessDraft,
		CreatedBy:     actorID,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := s.Processes.Create(ctx, process); err != nil {
		return nil, err
	}

	s.Logger.Info("approval process created",
		zap.String("process_id", process.ID),
		zap.String("tenant_id", tenantID),
		zap.String("object_type", process.ObjectType),
		zap.Int("steps", process.TotalSteps()),
	)
	return process, nil
}

func (s *ProcessRegistryImpl) Get(ctx context.Context, tenantID, id string) (*ApprovalProcess, error) {
	process, err := s.Processes.GetByID(ctx, tenantID, id)
	if err != nil {
		return nil, err
	}
	if process.Deleted {
		return nil, fmt.Errorf("process %s: %w", id, ErrNotFound)
	}
	return process, nil
}

func (s *ProcessRegistryImpl) List(ctx context.Context, tenantID string, filter ProcessFilter) ([]ApprovalProcess, error) {
	return s.Processes.List(ctx, tenantID, filter)
}

// Update replaces the editable fields. The step count is frozen while the
// process has pending requests, since each request snapshots it at submit.
func (s *ProcessRegistryImpl) Update(ctx context.Context, tenantID, id string, in ProcessInput) (*ApprovalProcess, error) {
	if err := s.validate(&in); err != nil {
		return nil, err
	}
	process, err := s.Get(ctx, tenantID, id)
	if err != nil {
		return nil, err
	}

	if process.Status == ProcessActive && len(in.Steps) == 0 {
		return nil, &ValidationError{Problems: []string{"an active process needs at least one step"}}
	}
	if len(in.Steps) != process.TotalSteps() {
		open, err := s.Requests.CountOpen(ctx, tenantID, id)
		if err != nil {
			return nil, err
		}
		if open > 0 {
			return nil, fmt.Errorf("cannot change step count with %d pending requests: %w", open, ErrProcessHasOpenRequests)
		}
	}

	expected := process.Revision
	process.Name = in.Name
	process.Description = in.Description
	process.ObjectType = in.ObjectType
	process.EntryCriteria = in.EntryCriteria
	process.Steps = in.Steps
	process.Revision++
	process.UpdatedAt = s.now()

	if err := s.save(ctx, process, expected); err != nil {
		return nil, err
	}
	return process, nil
}

func (s *ProcessRegistryImpl) SetStatus(ctx context.Context, tenantID, id string, status ProcessStatus) (*ApprovalProcess, error) {
	if !status.Valid() {
		return nil, &ValidationError{Problems: []string{fmt.Sprintf("unknown status %q", status)}}
	}
	process, err := s.Get(ctx, tenantID, id)
	if err != nil {
		return nil, err
	}
	if process.Status == status {
		return process, nil
	}
	if !canTransition(process.Status, status) {
		return nil, fmt.Errorf("%s -> %s: %w", process.Status, status, ErrInvalidStatusTransition)
	}
	if status == ProcessActive && process.TotalSteps() == 0 {
		return nil, &ValidationError{Problems: []string{"an active process needs at least one step"}}
	}

	expected := process.Revision
	previous := process.Status
	process.Status = status
	process.Revision++
	process.UpdatedAt = s.now()
	if err := s.save(ctx, process, expected); err != nil {
		return nil, err
	}

	s.Logger.Info("approval process status changed",
		zap.String("process_id", id),
		zap.String("tenant_id", tenantID),
		zap.String("from", string(previous)),
		zap.String("to", string(status)),
	)
	return process, nil
}

// Delete soft-deletes a process. Without force it refuses while requests are
// pending; with force those requests are recalled first. It returns the
// number of recalled requests.
func (s *ProcessRegistryImpl) Delete(ctx context.Context, tenantID, id, actorID string, force bool) (int, error) {
	process, err := s.Get(ctx, tenantID, id)
	if err != nil {
		return 0, err
	}

	recalled := 0
	if force {
		recalled, err = s.Terminator.TerminateOpen(ctx, tenantID, id, "process deleted")
		if err != nil {
			return recalled, err
		}
	}

	open, err := s.Requests.CountOpen(ctx, tenantID, id)
	if err != nil {
		return recalled, err
	}
	if open > 0 {
		return recalled, fmt.Errorf("process %s has %d pending requests: %w", id, open, ErrProcessHasOpenRequests)
	}

	expected := process.Revision
	now := s.now()
	process.Deleted = true
	process.DeletedAt = &now
	process.DeletedBy = actorID
	process.Revision++
	process.UpdatedAt = now
	if err := s.save(ctx, process, expected); err != nil {
		return recalled, err
	}

	s.Logger.Info("approval process deleted",
		zap.String("process_id", id),
		zap.String("tenant_id", tenantID),
		zap.Bool("force", force),
		zap.Int("recalled", recalled),
	)
	return recalled, nil
}

func (s *ProcessRegistryImpl) save(ctx context.Context, process *ApprovalProcess, expectedRevision int64) error {
	err := s.Processes.Update(ctx, process, expectedRevision)
	if errors.Is(err, errVersionConflict) {
		return fmt.Errorf("process %s was modified concurrently: %w", process.ID, ErrConcurrentModification)
	}
	return err
}
