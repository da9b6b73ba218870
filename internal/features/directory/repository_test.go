package directory

import (
	"context"
	"testing"

	"go-approvals/internal/common/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo/integration/mtest"
)

func newRepo(mt *mtest.T) *DirectoryRepositoryImpl {
	return &DirectoryRepositoryImpl{
		Users: mt.DB.Collection("users"),
		Roles: mt.DB.Collection("roles"),
	}
}

func TestMembersWithRole(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))
	tenant := primitive.NewObjectID()
	roleID := primitive.NewObjectID()
	ada := primitive.NewObjectID()
	abe := primitive.NewObjectID()

	mt.Run("role holders", func(mt *mtest.T) {
		mt.AddMockResponses(
			mtest.CreateCursorResponse(0, "db.roles", mtest.FirstBatch, bson.D{{Key: "_id", Value: roleID}}),
			mtest.CreateCursorResponse(0, "db.users", mtest.FirstBatch,
				bson.D{{Key: "_id", Value: ada}},
				bson.D{{Key: "_id", Value: abe}},
			),
		)
		got, err := newRepo(mt).MembersWithRole(context.Background(), tenant.Hex(), "ADMIN")
		require.NoError(mt, err)
		assert.Equal(mt, []string{ada.Hex(), abe.Hex()}, got)
	})

	mt.Run("unknown role skips the user lookup", func(mt *mtest.T) {
		mt.AddMockResponses(mtest.CreateCursorResponse(0, "db.roles", mtest.FirstBatch))
		got, err := newRepo(mt).MembersWithRole(context.Background(), tenant.Hex(), "GHOST")
		require.NoError(mt, err)
		assert.Empty(mt, got)
	})

	mt.Run("invalid tenant", func(mt *mtest.T) {
		_, err := newRepo(mt).MembersWithRole(context.Background(), "tenant-1", "ADMIN")
		assert.Error(mt, err)
	})
}

func TestManagerOf(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))
	tenant := primitive.NewObjectID()
	sam := primitive.NewObjectID()
	mia := primitive.NewObjectID()

	mt.Run("active manager", func(mt *mtest.T) {
		mt.AddMockResponses(
			mtest.CreateCursorResponse(0, "db.users", mtest.FirstBatch, bson.D{{Key: "_id", Value: sam}, {Key: "reports_to", Value: mia}}),
			mtest.CreateCursorResponse(0, "db.users", mtest.FirstBatch, bson.D{{Key: "_id", Value: mia}}),
		)
		got, err := newRepo(mt).ManagerOf(context.Background(), tenant.Hex(), sam.Hex())
		require.NoError(mt, err)
		assert.Equal(mt, mia.Hex(), got)
	})

	mt.Run("no manager", func(mt *mtest.T) {
		mt.AddMockResponses(mtest.CreateCursorResponse(0, "db.users", mtest.FirstBatch, bson.D{{Key: "_id", Value: sam}}))
		got, err := newRepo(mt).ManagerOf(context.Background(), tenant.Hex(), sam.Hex())
		require.NoError(mt, err)
		assert.Empty(mt, got)
	})

	mt.Run("manager deactivated", func(mt *mtest.T) {
		mt.AddMockResponses(
			mtest.CreateCursorResponse(0, "db.users", mtest.FirstBatch, bson.D{{Key: "_id", Value: sam}, {Key: "reports_to", Value: mia}}),
			mtest.CreateCursorResponse(0, "db.users", mtest.FirstBatch),
		)
		got, err := newRepo(mt).ManagerOf(context.Background(), tenant.Hex(), sam.Hex())
		require.NoError(mt, err)
		assert.Empty(mt, got)
	})

	mt.Run("unknown user", func(mt *mtest.T) {
		mt.AddMockResponses(mtest.CreateCursorResponse(0, "db.users", mtest.FirstBatch))
		got, err := newRepo(mt).ManagerOf(context.Background(), tenant.Hex(), sam.Hex())
		require.NoError(mt, err)
		assert.Empty(mt, got)
	})
}

func TestFindNames(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))
	tenant := primitive.NewObjectID()
	ada := primitive.NewObjectID()
	abe := primitive.NewObjectID()

	mt.Run("names by id", func(mt *mtest.T) {
		mt.AddMockResponses(mtest.CreateCursorResponse(0, "db.users", mtest.FirstBatch,
			bson.D{{Key: "_id", Value: ada}, {Key: "first_name", Value: "Ada"}, {Key: "last_name", Value: "Lovelace"}},
			bson.D{{Key: "_id", Value: abe}, {Key: "username", Value: "abe"}},
		))
		got, err := newRepo(mt).FindNames(context.Background(), tenant.Hex(), []string{ada.Hex(), abe.Hex(), "system"})
		require.NoError(mt, err)
		assert.Equal(mt, map[string]string{ada.Hex(): "Ada Lovelace", abe.Hex(): "abe"}, got)
	})

	mt.Run("no object ids", func(mt *mtest.T) {
		got, err := newRepo(mt).FindNames(context.Background(), tenant.Hex(), []string{"system"})
		require.NoError(mt, err)
		assert.Empty(mt, got)
	})
}

func TestDisplayName(t *testing.T) {
	tests := []struct {
		user models.User
		want string
	}{
		{models.User{FirstName: "Ada", LastName: "Lovelace", Username: "ada"}, "Ada Lovelace"},
		{models.User{FirstName: "Ada", Username: "ada"}, "Ada"},
		{models.User{Username: "ada", Email: "ada@example.com"}, "ada"},
		{models.User{Email: "ada@example.com"}, "ada@example.com"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, DisplayName(&tt.user))
	}
}
