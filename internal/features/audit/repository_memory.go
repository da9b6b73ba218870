package audit

import (
	"context"
	"sort"
	"sync"

	common_models "go-approvals/internal/common/models"

	"github.com/google/uuid"
)

type sequenceKey struct {
	requestID string
	sequence  int64
}

// MemoryActionRepository keeps the action log in process memory. It backs
// STORAGE_DRIVER=memory and the unit tests.
type MemoryActionRepository struct {
	mu      sync.RWMutex
	actions []common_models.ApprovalAction
	seen    map[sequenceKey]struct{}
}

func NewMemoryActionRepository() *MemoryActionRepository {
	return &MemoryActionRepository{seen: make(map[sequenceKey]struct{})}
}

func (r *MemoryActionRepository) Append(_ context.Context, action *common_models.ApprovalAction) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := sequenceKey{requestID: action.RequestID, sequence: action.Sequence}
	if _, dup := r.seen[key]; dup {
		return ErrDuplicateSequence
	}
	if action.ID == "" {
		action.ID = uuid.NewString()
	}
	r.seen[key] = struct{}{}
	r.actions = append(r.actions, *action)
	return nil
}

func (r *MemoryActionRepository) ListByRequest(_ context.Context, tenantID, requestID string) ([]common_models.ApprovalAction, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := []common_models.ApprovalAction{}
	for _, a := range r.actions {
		if a.TenantID == tenantID && a.RequestID == requestID {
			out = append(out, a)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Sequence < out[j].Sequence })
	return out, nil
}

func (r *MemoryActionRepository) List(_ context.Context, tenantID string, filter ActionFilter, limit, offset int64) ([]common_models.ApprovalAction, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	matched := []common_models.ApprovalAction{}
	for i := len(r.actions) - 1; i >= 0; i-- {
		a := r.actions[i]
		if a.TenantID != tenantID {
			continue
		}
		if filter.ProcessID != "" && a.ProcessID != filter.ProcessID {
			continue
		}
		if filter.RequestID != "" && a.RequestID != filter.RequestID {
			continue
		}
		if filter.ActorID != "" && a.ActorID != filter.ActorID {
			continue
		}
		if filter.Action != "" && a.Action != filter.Action {
			continue
		}
		matched = append(matched, a)
	}

	if offset >= int64(len(matched)) {
		return []common_models.ApprovalAction{}, nil
	}
	matched = matched[offset:]
	if limit > 0 && int64(len(matched)) > limit {
		matched = matched[:limit]
	}
	return matched, nil
}
