package audit

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	common_models "go-approvals/internal/common/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

type MockUserFinder struct {
	Names       map[string]string
	Err         error
	CapturedIDs []string
}

func (m *MockUserFinder) FindNames(ctx context.Context, tenantID string, ids []string) (map[string]string, error) {
	m.CapturedIDs = ids
	if m.Err != nil {
		return nil, m.Err
	}
	return m.Names, nil
}

func seedActions(t *testing.T, repo ActionRepository) {
	t.Helper()
	base := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	actions := []common_models.ApprovalAction{
		{TenantID: "t1", RequestID: "r1", ProcessID: "p1", ActorID: "alice", Action: common_models.ActionSubmit, StepNumber: 1, Sequence: 0, CreatedAt: base},
		{TenantID: "t1", RequestID: "r1", ProcessID: "p1", ActorID: "bob", Action: common_models.ActionApprove, StepNumber: 1, Sequence: 1, Comment: "ok", CreatedAt: base.Add(time.Minute)},
		{TenantID: "t1", RequestID: "r1", ProcessID: "p1", ActorID: common_models.SystemActorID, Action: common_models.ActionRecall, StepNumber: 2, Sequence: 2, System: true, CreatedAt: base.Add(2 * time.Minute)},
		{TenantID: "t1", RequestID: "r2", ProcessID: "p2", ActorID: "alice", Action: common_models.ActionSubmit, StepNumber: 1, Sequence: 0, CreatedAt: base.Add(3 * time.Minute)},
		{TenantID: "t2", RequestID: "r3", ProcessID: "p1", ActorID: "mallory", Action: common_models.ActionSubmit, StepNumber: 1, Sequence: 0, CreatedAt: base},
	}
	for i := range actions {
		require.NoError(t, repo.Append(context.Background(), &actions[i]))
	}
}

func TestMemoryRepositoryRejectsDuplicateSequence(t *testing.T) {
	repo := NewMemoryActionRepository()
	ctx := context.Background()

	first := &common_models.ApprovalAction{TenantID: "t1", RequestID: "r1", Action: common_models.ActionApprove, Sequence: 1}
	require.NoError(t, repo.Append(ctx, first))
	assert.NotEmpty(t, first.ID)

	second := &common_models.ApprovalAction{TenantID: "t1", RequestID: "r1", Action: common_models.ActionReject, Sequence: 1}
	assert.ErrorIs(t, repo.Append(ctx, second), ErrDuplicateSequence)

	// same sequence on another request is fine
	other := &common_models.ApprovalAction{TenantID: "t1", RequestID: "r2", Action: common_models.ActionApprove, Sequence: 1}
	assert.NoError(t, repo.Append(ctx, other))
}

func TestMemoryRepositoryListFiltersAndPages(t *testing.T) {
	repo := NewMemoryActionRepository()
	seedActions(t, repo)
	ctx := context.Background()

	all, err := repo.List(ctx, "t1", ActionFilter{}, 10, 0)
	require.NoError(t, err)
	require.Len(t, all, 4)
	assert.Equal(t, "r2", all[0].RequestID, "newest first")

	byProcess, err := repo.List(ctx, "t1", ActionFilter{ProcessID: "p1"}, 10, 0)
	require.NoError(t, err)
	assert.Len(t, byProcess, 3)

	byAction, err := repo.List(ctx, "t1", ActionFilter{Action: common_models.ActionSubmit}, 10, 0)
	require.NoError(t, err)
	assert.Len(t, byAction, 2)

	page2, err := repo.List(ctx, "t1", ActionFilter{}, 3, 3)
	require.NoError(t, err)
	assert.Len(t, page2, 1)

	beyond, err := repo.List(ctx, "t1", ActionFilter{}, 3, 30)
	require.NoError(t, err)
	assert.Empty(t, beyond)
}

func TestHistoryIsOrderedAndNamed(t *testing.T) {
	repo := NewMemoryActionRepository()
	seedActions(t, repo)
	finder := &MockUserFinder{Names: map[string]string{"alice": "Alice A", "bob": "Bob B"}}
	service := NewAuditService(repo, finder, zap.NewNop())

	history, err := service.History(context.Background(), "t1", "r1")
	require.NoError(t, err)
	require.Len(t, history, 3)

	assert.Equal(t, common_models.ActionSubmit, history[0].Action)
	assert.Equal(t, int64(0), history[0].Sequence)
	assert.Equal(t, "Alice A", history[0].ActorName)
	assert.Equal(t, "Bob B", history[1].ActorName)
	assert.Equal(t, "System", history[2].ActorName)
	assert.ElementsMatch(t, []string{"alice", "bob"}, finder.CapturedIDs)
}

func TestHistoryIsTenantScoped(t *testing.T) {
	repo := NewMemoryActionRepository()
	seedActions(t, repo)
	service := NewAuditService(repo, &MockUserFinder{}, zap.NewNop())

	history, err := service.History(context.Background(), "t2", "r1")
	require.NoError(t, err)
	assert.Empty(t, history)
}

func TestListActionsUnknownActor(t *testing.T) {
	repo := NewMemoryActionRepository()
	seedActions(t, repo)
	service := NewAuditService(repo, &MockUserFinder{Names: map[string]string{}}, zap.NewNop())

	actions, err := service.ListActions(context.Background(), "t2", ActionFilter{}, 0, 0)
	require.NoError(t, err)
	require.Len(t, actions, 1)
	assert.Equal(t, "Unknown User", actions[0].ActorName)
}

func TestHistoryLogsDirectoryFailure(t *testing.T) {
	repo := NewMemoryActionRepository()
	seedActions(t, repo)
	core, logs := observer.New(zapcore.WarnLevel)
	service := NewAuditService(repo, &MockUserFinder{Err: errors.New("users collection unreachable")}, zap.New(core))

	history, err := service.History(context.Background(), "t1", "r1")
	require.NoError(t, err)
	require.Len(t, history, 3)
	assert.Equal(t, "Unknown User", history[0].ActorName)
	assert.Equal(t, "System", history[2].ActorName)

	entries := logs.FilterMessage("Failed to resolve actor names").All()
	require.Len(t, entries, 1)
	assert.Equal(t, "t1", entries[0].ContextMap()["tenant_id"])
}

func TestExportHistoryWorkbook(t *testing.T) {
	repo := NewMemoryActionRepository()
	seedActions(t, repo)
	service := NewAuditService(repo, &MockUserFinder{Names: map[string]string{"alice": "Alice A", "bob": "Bob B"}}, zap.NewNop())

	data, filename, err := service.ExportHistory(context.Background(), "t1", "r1")
	require.NoError(t, err)
	assert.Equal(t, "approval-history-r1.xlsx", filename)

	f, err := excelize.OpenReader(bytes.NewReader(data))
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows("History")
	require.NoError(t, err)
	require.Len(t, rows, 4)
	assert.Equal(t, "Sequence", rows[0][0])
	assert.Equal(t, "SUBMIT", rows[1][1])
	assert.Equal(t, "Bob B", rows[2][3])
	assert.Equal(t, "ok", rows[2][5])
	assert.Equal(t, "RECALL", rows[3][1])
}
