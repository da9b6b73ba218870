package approval

import (
	"context"
	"errors"
	"fmt"
	"time"

	common_models "go-approvals/internal/common/models"
	"go-approvals/internal/config"
	"go-approvals/pkg/criteria"

	"github.com/lestrrat-go/backoff/v2"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// RecordSource loads the field snapshot entry criteria are evaluated against.
type RecordSource interface {
	Snapshot(ctx context.Context, tenantID, objectType, recordID string) (map[string]any, error)
}

// EventPublisher is told about every committed transition.
type EventPublisher interface {
	Publish(ctx context.Context, event common_models.ApprovalEvent)
}

// LifecycleManager drives requests from submission to a terminal status.
type LifecycleManager interface {
	Submit(ctx context.Context, in SubmitInput) (*ApprovalRequest, error)
	RequiresApproval(ctx context.Context, tenantID, processID, recordID string) (*Eligibility, error)
	Act(ctx context.Context, in ActInput) (*ApprovalRequest, error)
	Approve(ctx context.Context, tenantID, requestID, actorID, comment string) (*ApprovalRequest, error)
	Reject(ctx context.Context, tenantID, requestID, actorID, comment string) (*ApprovalRequest, error)
	Recall(ctx context.Context, tenantID, requestID, actorID, comment string) (*ApprovalRequest, error)
	GetRequest(ctx context.Context, tenantID, requestID string) (*ApprovalRequest, error)
	ListRequests(ctx context.Context, filter RequestFilter) ([]ApprovalRequest, error)
	CurrentApprovers(ctx context.Context, tenantID, requestID string) ([]string, error)
	Inbox(ctx context.Context, tenantID, actorID string) ([]ApprovalRequest, error)
	TerminateOpen(ctx context.Context, tenantID, processID, reason string) (int, error)
}

type LifecycleManagerImpl struct {
	Processes ProcessRepository
	Requests  RequestRepository
	Resolver  ApproverResolver
	Records   RecordSource
	Publisher EventPublisher
	Logger    *zap.Logger

	maxAttempts      int
	minBackoff       time.Duration
	maxBackoff       time.Duration
	inboxConcurrency int
	now              func() time.Time
}

func NewLifecycleManager(
	processes ProcessRepository,
	requests RequestRepository,
	resolver ApproverResolver,
	records RecordSource,
	publisher EventPublisher,
	logger *zap.Logger,
	cfg *config.Config,
) LifecycleManager {
	return &LifecycleManagerImpl{
		Processes:        processes,
		Requests:         requests,
		Resolver:         resolver,
		Records:          records,
		Publisher:        publisher,
		Logger:           logger.Named("approval.lifecycle"),
		maxAttempts:      max(cfg.CASMaxAttempts, 1),
		minBackoff:       time.Duration(cfg.CASBackoffMinMs) * time.Millisecond,
		maxBackoff:       time.Duration(cfg.CASBackoffMaxMs) * time.Millisecond,
		inboxConcurrency: max(cfg.InboxConcurrency, 1),
		now:              func() time.Time { return time.Now().UTC() },
	}
}

func (s *LifecycleManagerImpl) Submit(ctx context.Context, in SubmitInput) (*ApprovalRequest, error) {
	process, err := s.activeProcess(ctx, in.TenantID, in.ProcessID)
	if err != nil {
		return nil, err
	}

	matched, _, err := s.evaluate(ctx, process, in.RecordID)
	if err != nil {
		return nil, err
	}
	if !matched {
		return nil, fmt.Errorf("record %s, process %q: %w", in.RecordID, process.Name, ErrCriteriaNotMet)
	}

	first, ok := process.Step(1)
	if !ok {
		return nil, fmt.Errorf("process %q has no steps: %w", process.Name, ErrValidation)
	}
	if _, err := s.Resolver.Resolve(ctx, first, in.SubmitterID, in.TenantID); err != nil {
		return nil, err
	}

	now := s.now()
	req := &ApprovalRequest{
		TenantID:      in.TenantID,
		ProcessID:     process.ID,
		ObjectType:    process.ObjectType,
		RecordID:      in.RecordID,
		SubmitterID:   in.SubmitterID,
		SubmitComment: in.Comment,
		CurrentStep:   1,
		TotalSteps:    process.TotalSteps(),
		Status:        RequestPending,
		Version:       0,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	marker := &common_models.ApprovalAction{
		TenantID:   in.TenantID,
		ProcessID:  process.ID,
		ActorID:    in.SubmitterID,
		Action:     common_models.ActionSubmit,
		StepNumber: 1,
		Sequence:   0,
		Comment:    in.Comment,
		CreatedAt:  now,
	}
	if err := s.Requests.Create(ctx, req, marker); err != nil {
		return nil, err
	}

	s.Logger.Info("approval request submitted",
		zap.String("request_id", req.ID),
		zap.String("tenant_id", req.TenantID),
		zap.String("process_id", req.ProcessID),
		zap.String("record_id", req.RecordID),
		zap.String("submitter_id", req.SubmitterID),
	)
	s.publish(ctx, req, in.SubmitterID, common_models.EventSubmitted)
	return req, nil
}

func (s *LifecycleManagerImpl) RequiresApproval(ctx context.Context, tenantID, processID, recordID string) (*Eligibility, error) {
	process, err := s.activeProcess(ctx, tenantID, processID)
	if err != nil {
		return nil, err
	}
	matched, missing, err := s.evaluate(ctx, process, recordID)
	if err != nil {
		return nil, err
	}
	return &Eligibility{
		ProcessID:        process.ID,
		RecordID:         recordID,
		RequiresApproval: matched,
		MissingFields:    missing,
	}, nil
}

func (s *LifecycleManagerImpl) activeProcess(ctx context.Context, tenantID, processID string) (*ApprovalProcess, error) {
	process, err := s.Processes.GetByID(ctx, tenantID, processID)
	if err != nil {
		return nil, err
	}
	if process.Deleted {
		return nil, fmt.Errorf("process %s: %w", processID, ErrNotFound)
	}
	if process.Status != ProcessActive {
		return nil, fmt.Errorf("process %q is %s: %w", process.Name, process.Status, ErrProcessNotActive)
	}
	return process, nil
}

// evaluate reports whether the record satisfies the process entry criteria,
// together with any referenced fields the record does not carry.
func (s *LifecycleManagerImpl) evaluate(ctx context.Context, process *ApprovalProcess, recordID string) (bool, []string, error) {
	snapshot, err := s.Records.Snapshot(ctx, process.TenantID, process.ObjectType, recordID)
	if err != nil {
		return false, nil, err
	}
	if process.EntryCriteria == "" {
		return true, nil, nil
	}

	expr, err := criteria.Parse(process.EntryCriteria)
	if err != nil {
		return false, nil, err
	}
	missing := criteria.MissingFields(expr, snapshot)
	if len(missing) > 0 {
		s.Logger.Debug("entry criteria reference missing fields",
			zap.String("process_id", process.ID),
			zap.String("record_id", recordID),
			zap.Strings("fields", missing),
		)
	}
	return expr.Eval(snapshot), missing, nil
}

func (s *LifecycleManagerImpl) Approve(ctx context.Context, tenantID, requestID, actorID, comment string) (*ApprovalRequest, error) {
	return s.Act(ctx, ActInput{TenantID: tenantID, RequestID: requestID, ActorID: actorID, Action: common_models.ActionApprove, Comment: comment})
}

func (s *LifecycleManagerImpl) Reject(ctx context.Context, tenantID, requestID, actorID, comment string) (*ApprovalRequest, error) {
	return s.Act(ctx, ActInput{TenantID: tenantID, RequestID: requestID, ActorID: actorID, Action: common_models.ActionReject, Comment: comment})
}

func (s *LifecycleManagerImpl) Recall(ctx context.Context, tenantID, requestID, actorID, comment string) (*ApprovalRequest, error) {
	return s.Act(ctx, ActInput{TenantID: tenantID, RequestID: requestID, ActorID: actorID, Action: common_models.ActionRecall, Comment: comment})
}

func (s *LifecycleManagerImpl) Act(ctx context.Context, in ActInput) (*ApprovalRequest, error) {
	switch in.Action {
	case common_models.ActionApprove, common_models.ActionReject, common_models.ActionRecall:
	default:
		return nil, fmt.Errorf("action %q: %w", in.Action, ErrValidation)
	}
	if in.ActorID == "" || in.ActorID == common_models.SystemActorID {
		return nil, fmt.Errorf("actor %q: %w", in.ActorID, ErrNotAuthorized)
	}
	return s.act(ctx, in, false)
}

// act runs one decision under optimistic concurrency. Every attempt reloads
// the request and re-checks status, step and authorization before committing.
func (s *LifecycleManagerImpl) act(ctx context.Context, in ActInput, system bool) (*ApprovalRequest, error) {
	pinned := in.ExpectedStep
	var committed *ApprovalRequest

	err := s.withRetry(ctx, in.RequestID, func() error {
		req, err := s.Requests.GetByID(ctx, in.TenantID, in.RequestID)
		if err != nil {
			return err
		}
		if req.Status.IsTerminal() {
			return fmt.Errorf("request %s is %s: %w", req.ID, req.Status, ErrRequestAlreadyFinalized)
		}
		// Decisions are bound to a step; a recall is not.
		if in.Action != common_models.ActionRecall {
			if pinned == 0 {
				pinned = req.CurrentStep
			} else if req.CurrentStep != pinned {
				return fmt.Errorf("request %s is at step %d, expected %d: %w", req.ID, req.CurrentStep, pinned, ErrStepAdvanced)
			}
		}
		if !system {
			if err := s.authorize(ctx, req, in); err != nil {
				return err
			}
		}

		now := s.now()
		next, err := Transition(*req, in.Action, now)
		if err != nil {
			return err
		}
		action := &common_models.ApprovalAction{
			TenantID:   req.TenantID,
			RequestID:  req.ID,
			ProcessID:  req.ProcessID,
			ActorID:    in.ActorID,
			Action:     in.Action,
			StepNumber: req.CurrentStep,
			Sequence:   next.Version,
			Comment:    in.Comment,
			System:     system,
			CreatedAt:  now,
		}

		err = s.Requests.Commit(ctx, &next, req.Version, action)
		if errors.Is(err, errProjectionStale) {
			s.Logger.Warn("action recorded but request projection is stale",
				zap.String("request_id", req.ID),
				zap.String("tenant_id", req.TenantID),
				zap.Int64("sequence", action.Sequence),
			)
			err = nil
		}
		if err != nil {
			return err
		}
		committed = &next
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.Logger.Info("approval action committed",
		zap.String("request_id", committed.ID),
		zap.String("tenant_id", committed.TenantID),
		zap.String("actor_id", in.ActorID),
		zap.String("action", string(in.Action)),
		zap.String("status", string(committed.Status)),
		zap.Int("current_step", committed.CurrentStep),
		zap.Int64("version", committed.Version),
	)
	s.publish(ctx, committed, in.ActorID, eventFor(in.Action, committed))
	return committed, nil
}

func (s *LifecycleManagerImpl) authorize(ctx context.Context, req *ApprovalRequest, in ActInput) error {
	if in.Action == common_models.ActionRecall {
		if in.ActorID != req.SubmitterID {
			return fmt.Errorf("only the submitter may recall request %s: %w", req.ID, ErrNotAuthorized)
		}
		return nil
	}

	process, err := s.Processes.GetByID(ctx, req.TenantID, req.ProcessID)
	if err != nil {
		return err
	}
	step, ok := process.Step(req.CurrentStep)
	if !ok {
		return fmt.Errorf("process %s has no step %d: %w", process.ID, req.CurrentStep, ErrNotFound)
	}

	allowed, err := s.Resolver.CanAct(ctx, step, req.SubmitterID, req.TenantID, in.ActorID)
	if err != nil {
		return fmt.Errorf("request %s: %w", req.ID, err)
	}
	if !allowed {
		return fmt.Errorf("actor %s at step %d of request %s: %w", in.ActorID, req.CurrentStep, req.ID, ErrNotAuthorized)
	}
	return nil
}

// withRetry reruns fn while it reports a version conflict, backing off with
// jitter between attempts.
func (s *LifecycleManagerImpl) withRetry(ctx context.Context, requestID string, fn func() error) error {
	policy := backoff.Exponential(
		backoff.WithMinInterval(s.minBackoff),
		backoff.WithMaxInterval(s.maxBackoff),
		backoff.WithJitterFactor(0.5),
		backoff.WithMaxRetries(s.maxAttempts),
	)
	b := policy.Start(ctx)

	for attempt := 1; backoff.Continue(b); attempt++ {
		err := fn()
		if !errors.Is(err, errVersionConflict) {
			return err
		}
		s.Logger.Debug("version conflict",
			zap.String("request_id", requestID),
			zap.Int("attempt", attempt),
		)
		if attempt >= s.maxAttempts {
			break
		}
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	return fmt.Errorf("request %s after %d attempts: %w", requestID, s.maxAttempts, ErrConcurrentModification)
}

func (s *LifecycleManagerImpl) GetRequest(ctx context.Context, tenantID, requestID string) (*ApprovalRequest, error) {
	return s.Requests.GetByID(ctx, tenantID, requestID)
}

func (s *LifecycleManagerImpl) ListRequests(ctx context.Context, filter RequestFilter) ([]ApprovalRequest, error) {
	if filter.TenantID == "" {
		return nil, fmt.Errorf("tenant is required: %w", ErrValidation)
	}
	return s.Requests.List(ctx, filter)
}

// CurrentApprovers resolves who may act on the request's current step.
func (s *LifecycleManagerImpl) CurrentApprovers(ctx context.Context, tenantID, requestID string) ([]string, error) {
	req, err := s.Requests.GetByID(ctx, tenantID, requestID)
	if err != nil {
		return nil, err
	}
	if req.Status.IsTerminal() {
		return []string{}, nil
	}
	process, err := s.Processes.GetByID(ctx, tenantID, req.ProcessID)
	if err != nil {
		return nil, err
	}
	step, ok := process.Step(req.CurrentStep)
	if !ok {
		return nil, fmt.Errorf("process %s has no step %d: %w", process.ID, req.CurrentStep, ErrNotFound)
	}
	return s.Resolver.Resolve(ctx, step, req.SubmitterID, tenantID)
}

// Inbox lists the pending requests the actor may currently act on.
func (s *LifecycleManagerImpl) Inbox(ctx context.Context, tenantID, actorID string) ([]ApprovalRequest, error) {
	pending, err := s.Requests.List(ctx, RequestFilter{TenantID: tenantID, Status: RequestPending})
	if err != nil {
		return nil, err
	}

	processes := make(map[string]*ApprovalProcess)
	for _, req := range pending {
		if _, seen := processes[req.ProcessID]; seen {
			continue
		}
		process, err := s.Processes.GetByID(ctx, tenantID, req.ProcessID)
		if errors.Is(err, ErrNotFound) {
			processes[req.ProcessID] = nil
			continue
		}
		if err != nil {
			return nil, err
		}
		processes[req.ProcessID] = process
	}

	eligible := make([]bool, len(pending))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.inboxConcurrency)
	for i, req := range pending {
		i, req := i, req
		process := processes[req.ProcessID]
		if process == nil {
			continue
		}
		step, ok := process.Step(req.CurrentStep)
		if !ok {
			continue
		}
		g.Go(func() error {
			allowed, err := s.Resolver.CanAct(gctx, step, req.SubmitterID, tenantID, actorID)
			if errors.Is(err, ErrNoEligibleApprover) {
				return nil
			}
			if err != nil {
				return err
			}
			eligible[i] = allowed
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	inbox := []ApprovalRequest{}
	for i, req := range pending {
		if eligible[i] {
			inbox = append(inbox, req)
		}
	}
	return inbox, nil
}

// TerminateOpen recalls every pending request of a process on behalf of the
// system actor and returns how many were recalled.
func (s *LifecycleManagerImpl) TerminateOpen(ctx context.Context, tenantID, processID, reason string) (int, error) {
	pending, err := s.Requests.List(ctx, RequestFilter{TenantID: tenantID, ProcessID: processID, Status: RequestPending})
	if err != nil {
		return 0, err
	}

	var errs []error
	recalled := 0
	for _, req := range pending {
		_, err := s.act(ctx, ActInput{
			TenantID:  tenantID,
			RequestID: req.ID,
			ActorID:   common_models.SystemActorID,
			Action:    common_models.ActionRecall,
			Comment:   reason,
		}, true)
		if errors.Is(err, ErrRequestAlreadyFinalized) {
			continue
		}
		if err != nil {
			errs = append(errs, fmt.Errorf("request %s: %w", req.ID, err))
			continue
		}
		recalled++
	}
	return recalled, errors.Join(errs...)
}

func (s *LifecycleManagerImpl) publish(ctx context.Context, req *ApprovalRequest, actorID string, eventType common_models.ApprovalEventType) {
	if s.Publisher == nil {
		return
	}
	s.Publisher.Publish(ctx, common_models.ApprovalEvent{
		Type:        eventType,
		TenantID:    req.TenantID,
		RequestID:   req.ID,
		ProcessID:   req.ProcessID,
		RecordID:    req.RecordID,
		ObjectType:  req.ObjectType,
		ActorID:     actorID,
		Status:      string(req.Status),
		CurrentStep: req.CurrentStep,
		Version:     req.Version,
		Timestamp:   req.UpdatedAt,
	})
}

func eventFor(action ActionType, req *ApprovalRequest) common_models.ApprovalEventType {
	switch action {
	case common_models.ActionReject:
		return common_models.EventRejected
	case common_models.ActionRecall:
		return common_models.EventRecalled
	}
	if req.Status == RequestApproved {
		return common_models.EventApproved
	}
	return common_models.EventAdvanced
}
