package approval

import (
	"context"
	"errors"
	"time"

	common_models "go-approvals/internal/common/models"
	"go-approvals/internal/database"
	"go-approvals/internal/features/audit"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type ProcessRepository interface {
	Create(ctx context.Context, process *ApprovalProcess) error
	// GetByID also returns soft-deleted processes; callers check Deleted.
	GetByID(ctx context.Context, tenantID, id string) (*ApprovalProcess, error)
	List(ctx context.Context, tenantID string, filter ProcessFilter) ([]ApprovalProcess, error)
	// Update replaces the process if its stored revision still equals expectedRevision.
	Update(ctx context.Context, process *ApprovalProcess, expectedRevision int64) error
}

type RequestRepository interface {
	// Create stores a new request together with its SUBMIT marker.
	Create(ctx context.Context, req *ApprovalRequest, marker *common_models.ApprovalAction) error
	GetByID(ctx context.Context, tenantID, id string) (*ApprovalRequest, error)
	List(ctx context.Context, filter RequestFilter) ([]ApprovalRequest, error)
	CountOpen(ctx context.Context, tenantID, processID string) (int64, error)
	// Commit appends action and moves the projection to req, provided the stored
	// version is still expectedVersion.
	Commit(ctx context.Context, req *ApprovalRequest, expectedVersion int64, action *common_models.ApprovalAction) error
	// Repair overwrites a drifted projection without recording an action.
	Repair(ctx context.Context, req *ApprovalRequest, expectedVersion int64) error
}

type ProcessRepositoryImpl struct {
	Collection *mongo.Collection
}

func NewProcessRepository(mongodb *database.MongodbDB) *ProcessRepositoryImpl {
	return &ProcessRepositoryImpl{
		Collection: mongodb.DB.Collection("approval_processes"),
	}
}

func (r *ProcessRepositoryImpl) Create(ctx context.Context, process *ApprovalProcess) error {
	if process.ID == "" {
		process.ID = primitive.NewObjectID().Hex()
	}
	_, err := r.Collection.InsertOne(ctx, process)
	return err
}

func (r *ProcessRepositoryImpl) GetByID(ctx context.Context, tenantID, id string) (*ApprovalProcess, error) {
	var process ApprovalProcess
	err := r.Collection.FindOne(ctx, bson.M{"_id": id, "tenant_id": tenantID}).Decode(&process)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &process, nil
}

func (r *ProcessRepositoryImpl) List(ctx context.Context, tenantID string, filter ProcessFilter) ([]ApprovalProcess, error) {
	query := bson.M{"tenant_id": tenantID, "deleted": bson.M{"$ne": true}}
	if filter.ObjectType != "" {
		query["object_type"] = filter.ObjectType
	}
	if filter.Status != "" {
		query["status"] = filter.Status
	}

	cursor, err := r.Collection.Find(ctx, query, options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}}))
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	processes := []ApprovalProcess{}
	if err = cursor.All(ctx, &processes); err != nil {
		return nil, err
	}
	return processes, nil
}

func (r *ProcessRepositoryImpl) Update(ctx context.Context, process *ApprovalProcess, expectedRevision int64) error {
	res, err := r.Collection.ReplaceOne(ctx, bson.M{
		"_id":       process.ID,
		"tenant_id": process.TenantID,
		"revision":  expectedRevision,
	}, process)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return errVersionConflict
	}
	return nil
}

type RequestRepositoryImpl struct {
	Collection *mongo.Collection
	Actions    audit.ActionRepository
}

func NewRequestRepository(mongodb *database.MongodbDB, actions audit.ActionRepository) (*RequestRepositoryImpl, error) {
	repo := &RequestRepositoryImpl{
		Collection: mongodb.DB.Collection("approval_requests"),
		Actions:    actions,
	}
	if err := repo.EnsureIndexes(context.Background()); err != nil {
		return nil, err
	}
	return repo, nil
}

// EnsureIndexes allows at most one pending request per record.
func (r *RequestRepositoryImpl) EnsureIndexes(ctx context.Context) error {
	_, err := r.Collection.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys: bson.D{{Key: "tenant_id", Value: 1}, {Key: "object_type", Value: 1}, {Key: "record_id", Value: 1}},
			Options: options.Index().
				SetUnique(true).
				SetName("one_pending_per_record").
				SetPartialFilterExpression(bson.M{"status": RequestPending}),
		},
		{
			Keys: bson.D{{Key: "tenant_id", Value: 1}, {Key: "status", Value: 1}, {Key: "process_id", Value: 1}},
		},
	})
	return err
}

func (r *RequestRepositoryImpl) Create(ctx context.Context, req *ApprovalRequest, marker *common_models.ApprovalAction) error {
	if req.ID == "" {
		req.ID = primitive.NewObjectID().Hex()
	}
	if _, err := r.Collection.InsertOne(ctx, req); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return ErrRequestAlreadyOpen
		}
		return err
	}

	marker.RequestID = req.ID
	if err := r.Actions.Append(ctx, marker); err != nil {
		// No marker means no history; take the request back out.
		_, _ = r.Collection.DeleteOne(ctx, bson.M{"_id": req.ID})
		return err
	}
	return nil
}

func (r *RequestRepositoryImpl) GetByID(ctx context.Context, tenantID, id string) (*ApprovalRequest, error) {
	var req ApprovalRequest
	err := r.Collection.FindOne(ctx, bson.M{"_id": id, "tenant_id": tenantID}).Decode(&req)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &req, nil
}

func (r *RequestRepositoryImpl) List(ctx context.Context, filter RequestFilter) ([]ApprovalRequest, error) {
	query := bson.M{}
	if filter.TenantID != "" {
		query["tenant_id"] = filter.TenantID
	}
	if filter.ProcessID != "" {
		query["process_id"] = filter.ProcessID
	}
	if filter.ObjectType != "" {
		query["object_type"] = filter.ObjectType
	}
	if filter.RecordID != "" {
		query["record_id"] = filter.RecordID
	}
	if filter.SubmitterID != "" {
		query["submitter_id"] = filter.SubmitterID
	}
	if filter.Status != "" {
		query["status"] = filter.Status
	}

	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}})
	if filter.Limit > 0 {
		opts.SetLimit(filter.Limit)
	}
	cursor, err := r.Collection.Find(ctx, query, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	requests := []ApprovalRequest{}
	if err = cursor.All(ctx, &requests); err != nil {
		return nil, err
	}
	return requests, nil
}

func (r *RequestRepositoryImpl) CountOpen(ctx context.Context, tenantID, processID string) (int64, error) {
	return r.Collection.CountDocuments(ctx, bson.M{
		"tenant_id":  tenantID,
		"process_id": processID,
		"status":     RequestPending,
	})
}

// Commit records the action first. The unique (request_id, sequence) index
// lets exactly one writer claim each version; the projection follows.
func (r *RequestRepositoryImpl) Commit(ctx context.Context, req *ApprovalRequest, expectedVersion int64, action *common_models.ApprovalAction) error {
	if err := r.Actions.Append(ctx, action); err != nil {
		if errors.Is(err, audit.ErrDuplicateSequence) {
			return errVersionConflict
		}
		return err
	}

	if err := r.setState(ctx, req, expectedVersion); err != nil {
		if errors.Is(err, errVersionConflict) {
			return errProjectionStale
		}
		return err
	}
	return nil
}

func (r *RequestRepositoryImpl) Repair(ctx context.Context, req *ApprovalRequest, expectedVersion int64) error {
	return r.setState(ctx, req, expectedVersion)
}

func (r *RequestRepositoryImpl) setState(ctx context.Context, req *ApprovalRequest, expectedVersion int64) error {
	set := bson.M{
		"status":       req.Status,
		"current_step": req.CurrentStep,
		"version":      req.Version,
		"updated_at":   req.UpdatedAt,
	}
	update := bson.M{"$set": set}
	if req.CompletedAt != nil {
		set["completed_at"] = *req.CompletedAt
	} else {
		update["$unset"] = bson.M{"completed_at": ""}
	}
	if req.UpdatedAt.IsZero() {
		set["updated_at"] = time.Now().UTC()
	}

	res, err := r.Collection.UpdateOne(ctx, bson.M{
		"_id":       req.ID,
		"tenant_id": req.TenantID,
		"version":   expectedVersion,
	}, update)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return errVersionConflict
	}
	return nil
}
