package approval

import (
	"context"
	"errors"
	"sort"
	"sync"

	common_models "go-approvals/internal/common/models"
	"go-approvals/internal/features/audit"

	"github.com/google/uuid"
)

type MemoryProcessRepository struct {
	mu        sync.RWMutex
	processes map[string]ApprovalProcess
}

func NewMemoryProcessRepository() *MemoryProcessRepository {
	return &MemoryProcessRepository{processes: make(map[string]ApprovalProcess)}
}

func (r *MemoryProcessRepository) Create(_ context.Context, process *ApprovalProcess) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if process.ID == "" {
		process.ID = uuid.NewString()
	}
	r.processes[process.ID] = cloneProcess(*process)
	return nil
}

func (r *MemoryProcessRepository) GetByID(_ context.Context, tenantID, id string) (*ApprovalProcess, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.processes[id]
	if !ok || p.TenantID != tenantID {
		return nil, ErrNotFound
	}
	out := cloneProcess(p)
	return &out, nil
}

func (r *MemoryProcessRepository) List(_ context.Context, tenantID string, filter ProcessFilter) ([]ApprovalProcess, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := []ApprovalProcess{}
	for _, p := range r.processes {
		if p.TenantID != tenantID || p.Deleted {
			continue
		}
		if filter.ObjectType != "" && p.ObjectType != filter.ObjectType {
			continue
		}
		if filter.Status != "" && p.Status != filter.Status {
			continue
		}
		out = append(out, cloneProcess(p))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (r *MemoryProcessRepository) Update(_ context.Context, process *ApprovalProcess, expectedRevision int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.processes[process.ID]
	if !ok || stored.TenantID != process.TenantID || stored.Revision != expectedRevision {
		return errVersionConflict
	}
	r.processes[process.ID] = cloneProcess(*process)
	return nil
}

func cloneProcess(p ApprovalProcess) ApprovalProcess {
	p.Steps = append([]ApprovalStep(nil), p.Steps...)
	return p
}

type MemoryRequestRepository struct {
	mu       sync.Mutex
	requests map[string]ApprovalRequest
	actions  audit.ActionRepository
}

func NewMemoryRequestRepository(actions audit.ActionRepository) *MemoryRequestRepository {
	return &MemoryRequestRepository{
		requests: make(map[string]ApprovalRequest),
		actions:  actions,
	}
}

func (r *MemoryRequestRepository) Create(ctx context.Context, req *ApprovalRequest, marker *common_models.ApprovalAction) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, existing := range r.requests {
		if existing.Status == RequestPending &&
			existing.TenantID == req.TenantID &&
			existing.ObjectType == req.ObjectType &&
			existing.RecordID == req.RecordID {
			return ErrRequestAlreadyOpen
		}
	}
	if req.ID == "" {
		req.ID = uuid.NewString()
	}
	marker.RequestID = req.ID
	if err := r.actions.Append(ctx, marker); err != nil {
		return err
	}
	r.requests[req.ID] = *req
	return nil
}

func (r *MemoryRequestRepository) GetByID(_ context.Context, tenantID, id string) (*ApprovalRequest, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	req, ok := r.requests[id]
	if !ok || req.TenantID != tenantID {
		return nil, ErrNotFound
	}
	return &req, nil
}

func (r *MemoryRequestRepository) List(_ context.Context, filter RequestFilter) ([]ApprovalRequest, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := []ApprovalRequest{}
	for _, req := range r.requests {
		if filter.TenantID != "" && req.TenantID != filter.TenantID {
			continue
		}
		if filter.ProcessID != "" && req.ProcessID != filter.ProcessID {
			continue
		}
		if filter.ObjectType != "" && req.ObjectType != filter.ObjectType {
			continue
		}
		if filter.RecordID != "" && req.RecordID != filter.RecordID {
			continue
		}
		if filter.SubmitterID != "" && req.SubmitterID != filter.SubmitterID {
			continue
		}
		if filter.Status != "" && req.Status != filter.Status {
			continue
		}
		out = append(out, req)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	if filter.Limit > 0 && int64(len(out)) > filter.Limit {
		out = out[:filter.Limit]
	}
	return out, nil
}

func (r *MemoryRequestRepository) CountOpen(_ context.Context, tenantID, processID string) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for _, req := range r.requests {
		if req.TenantID == tenantID && req.ProcessID == processID && req.Status == RequestPending {
			n++
		}
	}
	return n, nil
}

func (r *MemoryRequestRepository) Commit(ctx context.Context, req *ApprovalRequest, expectedVersion int64, action *common_models.ApprovalAction) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored, ok := r.requests[req.ID]
	if !ok || stored.TenantID != req.TenantID {
		return ErrNotFound
	}
	if stored.Version != expectedVersion {
		return errVersionConflict
	}
	if err := r.actions.Append(ctx, action); err != nil {
		if errors.Is(err, audit.ErrDuplicateSequence) {
			return errVersionConflict
		}
		return err
	}
	r.requests[req.ID] = *req
	return nil
}

func (r *MemoryRequestRepository) Repair(_ context.Context, req *ApprovalRequest, expectedVersion int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.requests[req.ID]
	if !ok || stored.TenantID != req.TenantID {
		return ErrNotFound
	}
	if stored.Version != expectedVersion {
		return errVersionConflict
	}
	r.requests[req.ID] = *req
	return nil
}
