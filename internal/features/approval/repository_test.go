package approval

import (
	"context"
	"testing"
	"time"

	common_models "go-approvals/internal/common/models"
	"go-approvals/internal/features/audit"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/integration/mtest"
)

func mongoRequests(mt *mtest.T) *RequestRepositoryImpl {
	return &RequestRepositoryImpl{
		Collection: mt.DB.Collection("approval_requests"),
		Actions:    &audit.ActionRepositoryImpl{Collection: mt.DB.Collection("approval_actions")},
	}
}

func pendingAt(step int, version int64) (*ApprovalRequest, *common_models.ApprovalAction) {
	now := time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)
	req := &ApprovalRequest{
		ID: "r1", TenantID: tenant, ProcessID: "p1",
		CurrentStep: step, TotalSteps: 3, Status: RequestPending,
		Version: version, UpdatedAt: now,
	}
	action := &common_models.ApprovalAction{
		TenantID: tenant, RequestID: "r1", ProcessID: "p1", ActorID: "ada",
		Action: common_models.ActionApprove, StepNumber: step - 1, Sequence: version, CreatedAt: now,
	}
	return req, action
}

func duplicateKey() bson.D {
	return mtest.CreateWriteErrorsResponse(mtest.WriteError{Index: 0, Code: 11000, Message: "E11000 duplicate key error"})
}

func TestMongoCommit(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))

	mt.Run("action and projection written", func(mt *mtest.T) {
		mt.AddMockResponses(
			mtest.CreateSuccessResponse(),
			mtest.CreateSuccessResponse(bson.E{Key: "n", Value: 1}, bson.E{Key: "nModified", Value: 1}),
		)
		req, action := pendingAt(2, 1)
		require.NoError(mt, mongoRequests(mt).Commit(context.Background(), req, 0, action))
		assert.NotEmpty(mt, action.ID)
	})

	mt.Run("sequence already taken", func(mt *mtest.T) {
		mt.AddMockResponses(duplicateKey())
		req, action := pendingAt(2, 1)
		err := mongoRequests(mt).Commit(context.Background(), req, 0, action)
		assert.ErrorIs(mt, err, errVersionConflict)
	})

	mt.Run("projection moved on", func(mt *mtest.T) {
		mt.AddMockResponses(
			mtest.CreateSuccessResponse(),
			mtest.CreateSuccessResponse(bson.E{Key: "n", Value: 0}, bson.E{Key: "nModified", Value: 0}),
		)
		req, action := pendingAt(2, 1)
		err := mongoRequests(mt).Commit(context.Background(), req, 0, action)
		assert.ErrorIs(mt, err, errProjectionStale)
	})
}

func TestMongoCreate(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))

	mt.Run("second pending request for a record", func(mt *mtest.T) {
		mt.AddMockResponses(duplicateKey())
		req, _ := pendingAt(1, 0)
		req.ID = ""
		marker := &common_models.ApprovalAction{Action: common_models.ActionSubmit}
		err := mongoRequests(mt).Create(context.Background(), req, marker)
		assert.ErrorIs(mt, err, ErrRequestAlreadyOpen)
	})

	mt.Run("marker stored with the request id", func(mt *mtest.T) {
		mt.AddMockResponses(mtest.CreateSuccessResponse(), mtest.CreateSuccessResponse())
		req, _ := pendingAt(1, 0)
		req.ID = ""
		marker := &common_models.ApprovalAction{Action: common_models.ActionSubmit}
		require.NoError(mt, mongoRequests(mt).Create(context.Background(), req, marker))
		assert.NotEmpty(mt, req.ID)
		assert.Equal(mt, req.ID, marker.RequestID)
	})
}

func TestMongoProcessUpdateRevision(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))

	mt.Run("stale revision", func(mt *mtest.T) {
		repo := &ProcessRepositoryImpl{Collection: mt.Coll}
		mt.AddMockResponses(mtest.CreateSuccessResponse(bson.E{Key: "n", Value: 0}, bson.E{Key: "nModified", Value: 0}))
		err := repo.Update(context.Background(), &ApprovalProcess{ID: "p1", TenantID: tenant, Revision: 3}, 2)
		assert.ErrorIs(mt, err, errVersionConflict)
	})

	mt.Run("current revision", func(mt *mtest.T) {
		repo := &ProcessRepositoryImpl{Collection: mt.Coll}
		mt.AddMockResponses(mtest.CreateSuccessResponse(bson.E{Key: "n", Value: 1}, bson.E{Key: "nModified", Value: 1}))
		require.NoError(mt, repo.Update(context.Background(), &ApprovalProcess{ID: "p1", TenantID: tenant, Revision: 3}, 2))
	})
}
