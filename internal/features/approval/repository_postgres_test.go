package approval

import (
	"context"
	"database/sql"
	"os"
	"testing"
	"time"

	common_models "go-approvals/internal/common/models"

	"github.com/google/uuid"
	_ "github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Runs only against a live database: POSTGRES_TEST_DSN=postgres://... go test ./...
func openTestPostgres(t *testing.T) *sql.DB {
	t.Helper()
	dsn := os.Getenv("POSTGRES_TEST_DSN")
	if dsn == "" {
		t.Skip("POSTGRES_TEST_DSN not set")
	}
	db, err := sql.Open("postgres", dsn)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, EnsureSchema(context.Background(), db))
	return db
}

func TestPostgresRequestLifecycle(t *testing.T) {
	db := openTestPostgres(t)
	ctx := context.Background()
	repo := &PostgresRequestRepository{DB: db}

	tenantID := "pg-" + uuid.NewString()
	now := time.Now().UTC().Truncate(time.Millisecond)
	req := &ApprovalRequest{
		TenantID: tenantID, ProcessID: "p1", ObjectType: "deal", RecordID: "rec-1", SubmitterID: "sam", SubmitComment: "please",
		CurrentStep: 1, TotalSteps: 2, Status: RequestPending, CreatedAt: now, UpdatedAt: now,
	}
	marker := &common_models.ApprovalAction{
		TenantID: tenantID, ProcessID: "p1", ActorID: "sam", Action: common_models.ActionSubmit, CreatedAt: now,
	}
	require.NoError(t, repo.Create(ctx, req, marker))
	assert.Equal(t, req.ID, marker.RequestID)

	dup := *req
	dup.ID = ""
	err := repo.Create(ctx, &dup, &common_models.ApprovalAction{TenantID: tenantID, Action: common_models.ActionSubmit, CreatedAt: now})
	assert.ErrorIs(t, err, ErrRequestAlreadyOpen)

	next := *req
	next.CurrentStep, next.Version = 2, 1
	approve := func() *common_models.ApprovalAction {
		return &common_models.ApprovalAction{
			TenantID: tenantID, RequestID: req.ID, ProcessID: "p1", ActorID: "ada",
			Action: common_models.ActionApprove, StepNumber: 1, Sequence: 1, CreatedAt: now,
		}
	}
	require.NoError(t, repo.Commit(ctx, &next, 0, approve()))
	assert.ErrorIs(t, repo.Commit(ctx, &next, 0, approve()), errVersionConflict)

	got, err := repo.GetByID(ctx, tenantID, req.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, got.CurrentStep)
	assert.EqualValues(t, 1, got.Version)
	assert.Equal(t, "please", got.SubmitComment)

	n, err := repo.CountOpen(ctx, tenantID, "p1")
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)

	_, err = repo.GetByID(ctx, "other-tenant", req.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestPostgresProcessRevision(t *testing.T) {
	db := openTestPostgres(t)
	ctx := context.Background()
	repo := &PostgresProcessRepository{DB: db}

	now := time.Now().UTC()
	p := &ApprovalProcess{
		TenantID: "pg-" + uuid.NewString(), Name: "Discount", ObjectType: "deal",
		Steps:  []ApprovalStep{{StepNumber: 1, Name: "Admin", ApproverType: ApproverRole, ApproverRole: "Admin"}},
		Status: ProcessDraft, CreatedAt: now, UpdatedAt: now,
	}
	require.NoError(t, repo.Create(ctx, p))

	p.Revision = 1
	p.Name = "Discount v2"
	require.NoError(t, repo.Update(ctx, p, 0))
	assert.ErrorIs(t, repo.Update(ctx, p, 0), errVersionConflict)

	got, err := repo.GetByID(ctx, p.TenantID, p.ID)
	require.NoError(t, err)
	assert.Equal(t, "Discount v2", got.Name)
	assert.Equal(t, p.Steps, got.Steps)
}
