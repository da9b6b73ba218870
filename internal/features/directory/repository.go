package directory

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go-approvals/internal/common/models"
	"go-approvals/internal/database"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Users with these statuses never act on approvals.
var inactiveStatuses = []string{"inactive", "suspended"}

// DirectoryRepository answers who holds a role, who manages whom and what
// users are called, from the CRM users and roles collections.
type DirectoryRepository interface {
	MembersWithRole(ctx context.Context, tenantID, role string) ([]string, error)
	ManagerOf(ctx context.Context, tenantID, userID string) (string, error)
	FindNames(ctx context.Context, tenantID string, ids []string) (map[string]string, error)
}

type DirectoryRepositoryImpl struct {
	Users *mongo.Collection
	Roles *mongo.Collection
}

func NewDirectoryRepository(mongodb *database.MongodbDB) DirectoryRepository {
	return &DirectoryRepositoryImpl{
		Users: mongodb.DB.Collection("users"),
		Roles: mongodb.DB.Collection("roles"),
	}
}

// MembersWithRole returns the active users holding the role, matched by
// role name or id.
func (r *DirectoryRepositoryImpl) MembersWithRole(ctx context.Context, tenantID, role string) ([]string, error) {
	tenantOID, err := primitive.ObjectIDFromHex(tenantID)
	if err != nil {
		return nil, fmt.Errorf("invalid tenant id %q: %w", tenantID, err)
	}

	match := bson.A{bson.M{"name": role}}
	if roleOID, err := primitive.ObjectIDFromHex(role); err == nil {
		match = append(match, bson.M{"_id": roleOID})
	}
	cursor, err := r.Roles.Find(ctx, bson.M{"tenant_id": tenantOID, "$or": match},
		options.Find().SetProjection(bson.M{"_id": 1}))
	if err != nil {
		return nil, err
	}
	var roles []models.Role
	if err := cursor.All(ctx, &roles); err != nil {
		return nil, err
	}
	if len(roles) == 0 {
		return []string{}, nil
	}

	roleIDs := make([]primitive.ObjectID, len(roles))
	for i, ro := range roles {
		roleIDs[i] = ro.ID
	}
	cursor, err = r.Users.Find(ctx, bson.M{
		"tenant_id": tenantOID,
		"roles":     bson.M{"$in": roleIDs},
		"status":    bson.M{"$nin": inactiveStatuses},
	}, options.Find().SetProjection(bson.M{"_id": 1}).SetSort(bson.D{{Key: "_id", Value: 1}}))
	if err != nil {
		return nil, err
	}
	var users []models.User
	if err := cursor.All(ctx, &users); err != nil {
		return nil, err
	}

	ids := make([]string, len(users))
	for i, u := range users {
		ids[i] = u.ID.Hex()
	}
	return ids, nil
}

// ManagerOf returns the user the given user reports to, or "" when there is
// none or the manager is no longer active.
func (r *DirectoryRepositoryImpl) ManagerOf(ctx context.Context, tenantID, userID string) (string, error) {
	tenantOID, err := primitive.ObjectIDFromHex(tenantID)
	if err != nil {
		return "", fmt.Errorf("invalid tenant id %q: %w", tenantID, err)
	}
	userOID, err := primitive.ObjectIDFromHex(userID)
	if err != nil {
		return "", nil
	}

	var user models.User
	err = r.Users.FindOne(ctx, bson.M{"_id": userOID, "tenant_id": tenantOID},
		options.FindOne().SetProjection(bson.M{"reports_to": 1})).Decode(&user)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	if user.ReportsTo == nil || user.ReportsTo.IsZero() {
		return "", nil
	}

	var manager models.User
	err = r.Users.FindOne(ctx, bson.M{
		"_id":       *user.ReportsTo,
		"tenant_id": tenantOID,
		"status":    bson.M{"$nin": inactiveStatuses},
	}, options.FindOne().SetProjection(bson.M{"_id": 1})).Decode(&manager)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return manager.ID.Hex(), nil
}

// FindNames maps user ids to display names. Ids that are not users are
// left out.
func (r *DirectoryRepositoryImpl) FindNames(ctx context.Context, tenantID string, ids []string) (map[string]string, error) {
	names := make(map[string]string, len(ids))
	tenantOID, err := primitive.ObjectIDFromHex(tenantID)
	if err != nil {
		return names, fmt.Errorf("invalid tenant id %q: %w", tenantID, err)
	}

	var objectIDs []primitive.ObjectID
	for _, id := range ids {
		if oid, err := primitive.ObjectIDFromHex(id); err == nil {
			objectIDs = append(objectIDs, oid)
		}
	}
	if len(objectIDs) == 0 {
		return names, nil
	}

	cursor, err := r.Users.Find(ctx, bson.M{"_id": bson.M{"$in": objectIDs}, "tenant_id": tenantOID})
	if err != nil {
		return nil, err
	}
	var users []models.User
	if err := cursor.All(ctx, &users); err != nil {
		return nil, err
	}
	for _, u := range users {
		names[u.ID.Hex()] = DisplayName(&u)
	}
	return names, nil
}

// DisplayName prefers the full name, then the username, then the email.
func DisplayName(u *models.User) string {
	if full := strings.TrimSpace(u.FirstName + " " + u.LastName); full != "" {
		return full
	}
	if u.Username != "" {
		return u.Username
	}
	return u.Email
}
