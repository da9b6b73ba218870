package record

import (
	"context"
	"errors"
	"fmt"

	"go-approvals/internal/common/models"
	"go-approvals/internal/database"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

var ErrRecordNotFound = errors.New("record not found")

// SnapshotRepository reads the current field values of a CRM record.
type SnapshotRepository interface {
	Snapshot(ctx context.Context, tenantID, objectType, recordID string) (map[string]any, error)
}

type SnapshotRepositoryImpl struct {
	Collection *mongo.Collection
}

func NewSnapshotRepository(mongodb *database.MongodbDB) SnapshotRepository {
	return &SnapshotRepositoryImpl{
		Collection: mongodb.DB.Collection("entity_records"),
	}
}

// Snapshot loads a live record of the given entity and flattens it so that
// data fields and system fields share one namespace.
func (r *SnapshotRepositoryImpl) Snapshot(ctx context.Context, tenantID, objectType, recordID string) (map[string]any, error) {
	tenantOID, err := primitive.ObjectIDFromHex(tenantID)
	if err != nil {
		return nil, fmt.Errorf("invalid tenant id %q: %w", tenantID, err)
	}
	recordOID, err := primitive.ObjectIDFromHex(recordID)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", objectType, recordID, ErrRecordNotFound)
	}

	var rec models.EntityRecord
	err = r.Collection.FindOne(ctx, bson.M{
		"_id":       recordOID,
		"tenant_id": tenantOID,
		"entity":    objectType,
		"deleted":   bson.M{"$ne": true},
	}).Decode(&rec)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, fmt.Errorf("%s %s: %w", objectType, recordID, ErrRecordNotFound)
	}
	if err != nil {
		return nil, err
	}
	return Flatten(&rec), nil
}
