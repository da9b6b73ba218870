package audit

import (
	"context"
	"errors"

	common_models "go-approvals/internal/common/models"
	"go-approvals/internal/database"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// ErrDuplicateSequence reports that an action with the same (request, sequence)
// pair already exists. Storage layers translate it into a version conflict.
var ErrDuplicateSequence = errors.New("duplicate action sequence")

// ActionFilter narrows List results. Empty fields are ignored.
type ActionFilter struct {
	ProcessID string
	RequestID string
	ActorID   string
	Action    common_models.ActionType
}

// ActionRepository is the append-only store of approval actions.
type ActionRepository interface {
	Append(ctx context.Context, action *common_models.ApprovalAction) error
	ListByRequest(ctx context.Context, tenantID, requestID string) ([]common_models.ApprovalAction, error)
	List(ctx context.Context, tenantID string, filter ActionFilter, limit, offset int64) ([]common_models.ApprovalAction, error)
}

type ActionRepositoryImpl struct {
	Collection *mongo.Collection
}

func NewActionRepository(mongodb *database.MongodbDB) (*ActionRepositoryImpl, error) {
	repo := &ActionRepositoryImpl{
		Collection: mongodb.DB.Collection("approval_actions"),
	}
	if err := repo.EnsureIndexes(context.Background()); err != nil {
		return nil, err
	}
	return repo, nil
}

// EnsureIndexes creates the unique (request_id, sequence) index the
// optimistic concurrency protocol relies on.
func (r *ActionRepositoryImpl) EnsureIndexes(ctx context.Context) error {
	_, err := r.Collection.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "request_id", Value: 1}, {Key: "sequence", Value: 1}},
			Options: options.Index().SetUnique(true).SetName("request_sequence_unique"),
		},
		{
			Keys: bson.D{{Key: "tenant_id", Value: 1}, {Key: "process_id", Value: 1}, {Key: "created_at", Value: -1}},
		},
	})
	return err
}

func (r *ActionRepositoryImpl) Append(ctx context.Context, action *common_models.ApprovalAction) error {
	if action.ID == "" {
		action.ID = primitive.NewObjectID().Hex()
	}
	_, err := r.Collection.InsertOne(ctx, action)
	if mongo.IsDuplicateKeyError(err) {
		return ErrDuplicateSequence
	}
	return err
}

func (r *ActionRepositoryImpl) ListByRequest(ctx context.Context, tenantID, requestID string) ([]common_models.ApprovalAction, error) {
	opts := options.Find().SetSort(bson.D{{Key: "sequence", Value: 1}})
	cursor, err := r.Collection.Find(ctx, bson.M{"tenant_id": tenantID, "request_id": requestID}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	actions := []common_models.ApprovalAction{}
	if err = cursor.All(ctx, &actions); err != nil {
		return nil, err
	}
	return actions, nil
}

func (r *ActionRepositoryImpl) List(ctx context.Context, tenantID string, filter ActionFilter, limit, offset int64) ([]common_models.ApprovalAction, error) {
	opts := options.Find().SetLimit(limit).SetSkip(offset).SetSort(bson.D{{Key: "created_at", Value: -1}, {Key: "sequence", Value: -1}})

	query := bson.M{"tenant_id": tenantID}
	if filter.ProcessID != "" {
		query["process_id"] = filter.ProcessID
	}
	if filter.RequestID != "" {
		query["request_id"] = filter.RequestID
	}
	if filter.ActorID != "" {
		query["actor_id"] = filter.ActorID
	}
	if filter.Action != "" {
		query["action"] = filter.Action
	}

	cursor, err := r.Collection.Find(ctx, query, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	actions := []common_models.ApprovalAction{}
	if err = cursor.All(ctx, &actions); err != nil {
		return nil, err
	}
	return actions, nil
}
