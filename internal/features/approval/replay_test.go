package approval

import (
	"context"
	"testing"
	"time"

	common_models "go-approvals/internal/common/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTransition(t *testing.T) {
	at := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	pending := ApprovalRequest{ID: "r1", CurrentStep: 1, TotalSteps: 2, Status: RequestPending, Version: 0}

	next, err := Transition(pending, common_models.ActionApprove, at)
	require.NoError(t, err)
	assert.Equal(t, 2, next.CurrentStep)
	assert.Equal(t, RequestPending, next.Status)
	assert.Equal(t, int64(1), next.Version)
	assert.Nil(t, next.CompletedAt)
	assert.Equal(t, 1, pending.CurrentStep, "input is not modified")

	done, err := Transition(next, common_models.ActionApprove, at)
	require.NoError(t, err)
	assert.Equal(t, RequestApproved, done.Status)
	assert.Equal(t, 2, done.CurrentStep)
	require.NotNil(t, done.CompletedAt)
	assert.Equal(t, at, *done.CompletedAt)

	_, err = Transition(done, common_models.ActionRecall, at)
	assert.ErrorIs(t, err, ErrRequestAlreadyFinalized)

	_, err = Transition(pending, common_models.ActionSubmit, at)
	assert.ErrorIs(t, err, ErrValidation)
}

func TestReplayMatchesProjection(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	p := env.activeProcess(t, "", roleStep(1, "ADMIN"), managerStep(2), userStep(3, "fin"))

	approved := env.submit(t, p.ID, "big", "sam")
	for _, actor := range []string{"ada", "mia", "fin"} {
		_, err := env.lifecycle.Approve(ctx, tenant, approved.ID, actor, "")
		require.NoError(t, err)
	}
	rejected := env.submit(t, p.ID, "other", "sam")
	_, err := env.lifecycle.Approve(ctx, tenant, rejected.ID, "abe", "")
	require.NoError(t, err)
	_, err = env.lifecycle.Reject(ctx, tenant, rejected.ID, "mia", "too steep")
	require.NoError(t, err)
	pending := env.submit(t, p.ID, "small", "ada")

	for _, id := range []string{approved.ID, rejected.ID, pending.ID} {
		stored, err := env.lifecycle.GetRequest(ctx, tenant, id)
		require.NoError(t, err)
		actions, err := env.storage.Actions.ListByRequest(ctx, tenant, id)
		require.NoError(t, err)

		replayed, err := Replay(*stored, actions)
		require.NoError(t, err)
		assert.False(t, Drifted(*stored, replayed), "request %s", id)
		assert.Equal(t, stored.Status, replayed.Status)
		assert.Equal(t, stored.Version, int64(len(actions)-1))
	}
}

func TestReplayRejectsBrokenLogs(t *testing.T) {
	base := ApprovalRequest{ID: "r1", TotalSteps: 2}
	submit := common_models.ApprovalAction{Action: common_models.ActionSubmit, StepNumber: 1, Sequence: 0}
	approve := func(step int, seq int64) common_models.ApprovalAction {
		return common_models.ApprovalAction{Action: common_models.ActionApprove, StepNumber: step, Sequence: seq}
	}
	reject := common_models.ApprovalAction{Action: common_models.ActionReject, StepNumber: 2, Sequence: 2}

	tests := []struct {
		name    string
		actions []common_models.ApprovalAction
		wantErr bool
	}{
		{name: "empty log", actions: nil, wantErr: true},
		{name: "missing submit", actions: []common_models.ApprovalAction{approve(1, 1)}, wantErr: true},
		{name: "step out of order", actions: []common_models.ApprovalAction{submit, approve(2, 1)}, wantErr: true},
		{name: "sequence gap", actions: []common_models.ApprovalAction{submit, approve(1, 2)}, wantErr: true},
		{name: "action after terminal", actions: []common_models.ApprovalAction{submit, approve(1, 1), reject, approve(2, 3)}, wantErr: true},
		{name: "valid", actions: []common_models.ApprovalAction{submit, approve(1, 1), reject}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Replay(base, tt.actions)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, RequestRejected, got.Status)
			assert.Equal(t, int64(2), got.Version)
		})
	}
}

func TestVerifyRepairsDrift(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	p := env.activeProcess(t, "", roleStep(1, "ADMIN"), managerStep(2))
	req := env.submit(t, p.ID, "big", "sam")
	_, err := env.lifecycle.Approve(ctx, tenant, req.ID, "ada", "")
	require.NoError(t, err)

	repaired, err := env.checker.Verify(ctx, tenant, req.ID)
	require.NoError(t, err)
	assert.False(t, repaired, "a consistent projection is left alone")

	// the action landed but the projection write was lost
	env.storage.Requests.(*MemoryRequestRepository).put(*req)

	repaired, err = env.checker.Verify(ctx, tenant, req.ID)
	require.NoError(t, err)
	assert.True(t, repaired)

	got, err := env.lifecycle.GetRequest(ctx, tenant, req.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, got.CurrentStep)
	assert.Equal(t, int64(1), got.Version)

	final, err := env.lifecycle.Approve(ctx, tenant, req.ID, "mia", "")
	require.NoError(t, err)
	assert.Equal(t, RequestApproved, final.Status)
}

func TestRunRecallsOrphanedRequests(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	kept := env.activeProcess(t, "", roleStep(1, "ADMIN"))
	orphaned := env.activeProcess(t, "", roleStep(1, "ADMIN"), managerStep(2))

	healthy := env.submit(t, kept.ID, "big", "sam")
	lost := env.submit(t, orphaned.ID, "other", "sam")
	drifted := env.submit(t, orphaned.ID, "small", "ada")
	_, err := env.lifecycle.Approve(ctx, tenant, drifted.ID, "abe", "")
	require.NoError(t, err)
	env.storage.Requests.(*MemoryRequestRepository).put(*drifted)

	// a delete that raced a submission
	gone := *orphaned
	gone.Deleted = true
	gone.Revision++
	require.NoError(t, env.storage.Processes.Update(ctx, &gone, orphaned.Revision))

	report, err := env.checker.Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, ConsistencyReport{Checked: 3, Repaired: 1, Recalled: 2}, report)

	for id, want := range map[string]RequestStatus{
		healthy.ID: RequestPending,
		lost.ID:    RequestRecalled,
		drifted.ID: RequestRecalled,
	} {
		got, err := env.lifecycle.GetRequest(ctx, tenant, id)
		require.NoError(t, err)
		assert.Equal(t, want, got.Status, "request %s", id)
	}

	actions, err := env.storage.Actions.ListByRequest(ctx, tenant, drifted.ID)
	require.NoError(t, err)
	require.Len(t, actions, 3)
	assert.Equal(t, int64(2), actions[2].Sequence)
	assert.Equal(t, 2, actions[2].StepNumber)

	report, err = env.checker.Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, ConsistencyReport{Checked: 1}, report)
}

func TestStartRejectsBadSchedule(t *testing.T) {
	cfg := testConfig()
	cfg.ConsistencySchedule = "not a schedule"
	env := newTestEnvWith(t, cfg, nil)
	assert.Error(t, env.checker.Start())
	env.checker.Stop()

	cfg = testConfig()
	cfg.ConsistencySchedule = "@every 1h"
	env = newTestEnvWith(t, cfg, nil)
	require.NoError(t, env.checker.Start())
	env.checker.Stop()
}
