package approval

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	common_models "go-approvals/internal/common/models"
	"go-approvals/internal/database"
	"go-approvals/internal/features/audit"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

const approvalSchema = `
CREATE TABLE IF NOT EXISTS approval_processes (
	id             TEXT PRIMARY KEY,
	tenant_id      TEXT NOT NULL,
	name           TEXT NOT NULL,
	description    TEXT NOT NULL DEFAULT '',
	object_type    TEXT NOT NULL,
	entry_criteria TEXT NOT NULL DEFAULT '',
	steps          JSONB NOT NULL DEFAULT '[]',
	status         TEXT NOT NULL,
	revision       BIGINT NOT NULL DEFAULT 0,
	created_by     TEXT NOT NULL DEFAULT '',
	created_at     TIMESTAMPTZ NOT NULL,
	updated_at     TIMESTAMPTZ NOT NULL,
	deleted        BOOLEAN NOT NULL DEFAULT FALSE,
	deleted_at     TIMESTAMPTZ,
	deleted_by     TEXT NOT NULL DEFAULT ''
);
CREATE INDEX IF NOT EXISTS approval_processes_tenant_idx ON approval_processes (tenant_id, object_type);

CREATE TABLE IF NOT EXISTS approval_requests (
	id           TEXT PRIMARY KEY,
	tenant_id    TEXT NOT NULL,
	process_id   TEXT NOT NULL,
	object_type  TEXT NOT NULL,
	record_id    TEXT NOT NULL,
	submitter_id TEXT NOT NULL,
	submit_comment TEXT NOT NULL DEFAULT '',
	current_step INTEGER NOT NULL,
	total_steps  INTEGER NOT NULL,
	status       TEXT NOT NULL,
	version      BIGINT NOT NULL,
	created_at   TIMESTAMPTZ NOT NULL,
	updated_at   TIMESTAMPTZ NOT NULL,
	completed_at TIMESTAMPTZ
);
ALTER TABLE approval_requests ADD COLUMN IF NOT EXISTS submit_comment TEXT NOT NULL DEFAULT '';
CREATE UNIQUE INDEX IF NOT EXISTS approval_requests_one_pending
	ON approval_requests (tenant_id, object_type, record_id) WHERE status = 'PENDING';
CREATE INDEX IF NOT EXISTS approval_requests_status_idx ON approval_requests (tenant_id, status, process_id);
`

const pqUniqueViolation = "23505"

// EnsureSchema creates the approval tables when missing.
func EnsureSchema(ctx context.Context, db *sql.DB) error {
	if _, err := db.ExecContext(ctx, approvalSchema); err != nil {
		return fmt.Errorf("approval schema: %w", err)
	}
	if _, err := db.ExecContext(ctx, audit.ActionsSchema); err != nil {
		return fmt.Errorf("action schema: %w", err)
	}
	return nil
}

type PostgresProcessRepository struct {
	DB *sql.DB
}

func NewPostgresProcessRepository(pg *database.PostgresDB) *PostgresProcessRepository {
	return &PostgresProcessRepository{DB: pg.DB}
}

const processColumns = `id, tenant_id, name, description, object_type, entry_criteria, steps, status, revision,
	created_by, created_at, updated_at, deleted, deleted_at, deleted_by`

func (r *PostgresProcessRepository) Create(ctx context.Context, process *ApprovalProcess) error {
	if process.ID == "" {
		process.ID = uuid.NewString()
	}
	steps, err := json.Marshal(process.Steps)
	if err != nil {
		return err
	}
	_, err = r.DB.ExecContext(ctx, `INSERT INTO approval_processes (`+processColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)`,
		process.ID, process.TenantID, process.Name, process.Description, process.ObjectType,
		process.EntryCriteria, steps, string(process.Status), process.Revision, process.CreatedBy,
		process.CreatedAt, process.UpdatedAt, process.Deleted, process.DeletedAt, process.DeletedBy,
	)
	return err
}

func (r *PostgresProcessRepository) GetByID(ctx context.Context, tenantID, id string) (*ApprovalProcess, error) {
	row := r.DB.QueryRowContext(ctx, `SELECT `+processColumns+` FROM approval_processes WHERE id = $1 AND tenant_id = $2`, id, tenantID)
	p, err := scanProcess(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return p, err
}

func (r *PostgresProcessRepository) List(ctx context.Context, tenantID string, filter ProcessFilter) ([]ApprovalProcess, error) {
	where := []string{"tenant_id = $1", "deleted = FALSE"}
	args := []any{tenantID}
	if filter.ObjectType != "" {
		args = append(args, filter.ObjectType)
		where = append(where, fmt.Sprintf("object_type = $%d", len(args)))
	}
	if filter.Status != "" {
		args = append(args, string(filter.Status))
		where = append(where, fmt.Sprintf("status = $%d", len(args)))
	}

	rows, err := r.DB.QueryContext(ctx, `SELECT `+processColumns+` FROM approval_processes WHERE `+
		strings.Join(where, " AND ")+` ORDER BY created_at ASC`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	processes := []ApprovalProcess{}
	for rows.Next() {
		p, err := scanProcess(rows)
		if err != nil {
			return nil, err
		}
		processes = append(processes, *p)
	}
	return processes, rows.Err()
}

func (r *PostgresProcessRepository) Update(ctx context.Context, process *ApprovalProcess, expectedRevision int64) error {
	steps, err := json.Marshal(process.Steps)
	if err != nil {
		return err
	}
	res, err := r.DB.ExecContext(ctx, `UPDATE approval_processes SET
			name = $3, description = $4, object_type = $5, entry_criteria = $6, steps = $7, status = $8,
			revision = $9, updated_at = $10, deleted = $11, deleted_at = $12, deleted_by = $13
		WHERE id = $1 AND tenant_id = $2 AND revision = $14`,
		process.ID, process.TenantID, process.Name, process.Description, process.ObjectType,
		process.EntryCriteria, steps, string(process.Status), process.Revision, process.UpdatedAt,
		process.Deleted, process.DeletedAt, process.DeletedBy, expectedRevision,
	)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return errVersionConflict
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanProcess(row rowScanner) (*ApprovalProcess, error) {
	var p ApprovalProcess
	var steps []byte
	var status string
	var deletedAt sql.NullTime
	if err := row.Scan(&p.ID, &p.TenantID, &p.Name, &p.Description, &p.ObjectType, &p.EntryCriteria,
		&steps, &status, &p.Revision, &p.CreatedBy, &p.CreatedAt, &p.UpdatedAt,
		&p.Deleted, &deletedAt, &p.DeletedBy); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(steps, &p.Steps); err != nil {
		return nil, fmt.Errorf("process %s steps: %w", p.ID, err)
	}
	p.Status = ProcessStatus(status)
	if deletedAt.Valid {
		t := deletedAt.Time
		p.DeletedAt = &t
	}
	return &p, nil
}

type PostgresRequestRepository struct {
	DB *sql.DB
}

func NewPostgresRequestRepository(pg *database.PostgresDB) *PostgresRequestRepository {
	return &PostgresRequestRepository{DB: pg.DB}
}

const requestColumns = `id, tenant_id, process_id, object_type, record_id, submitter_id, submit_comment,
	current_step, total_steps, status, version, created_at, updated_at, completed_at`

func (r *PostgresRequestRepository) Create(ctx context.Context, req *ApprovalRequest, marker *common_models.ApprovalAction) error {
	if req.ID == "" {
		req.ID = uuid.NewString()
	}
	marker.RequestID = req.ID

	return r.inTx(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `INSERT INTO approval_requests (`+requestColumns+`)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`,
			req.ID, req.TenantID, req.ProcessID, req.ObjectType, req.RecordID, req.SubmitterID, req.SubmitComment,
			req.CurrentStep, req.TotalSteps, string(req.Status), req.Version, req.CreatedAt, req.UpdatedAt, req.CompletedAt,
		)
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == pqUniqueViolation {
			return ErrRequestAlreadyOpen
		}
		if err != nil {
			return err
		}
		return audit.InsertAction(ctx, tx, marker)
	})
}

func (r *PostgresRequestRepository) GetByID(ctx context.Context, tenantID, id string) (*ApprovalRequest, error) {
	row := r.DB.QueryRowContext(ctx, `SELECT `+requestColumns+` FROM approval_requests WHERE id = $1 AND tenant_id = $2`, id, tenantID)
	req, err := scanRequest(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return req, err
}

func (r *PostgresRequestRepository) List(ctx context.Context, filter RequestFilter) ([]ApprovalRequest, error) {
	where := []string{"TRUE"}
	args := []any{}
	add := func(column, value string) {
		if value == "" {
			return
		}
		args = append(args, value)
		where = append(where, fmt.Sprintf("%s = $%d", column, len(args)))
	}
	add("tenant_id", filter.TenantID)
	add("process_id", filter.ProcessID)
	add("object_type", filter.ObjectType)
	add("record_id", filter.RecordID)
	add("submitter_id", filter.SubmitterID)
	add("status", string(filter.Status))

	query := `SELECT ` + requestColumns + ` FROM approval_requests WHERE ` + strings.Join(where, " AND ") + ` ORDER BY created_at ASC, id ASC`
	if filter.Limit > 0 {
		args = append(args, filter.Limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}

	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	requests := []ApprovalRequest{}
	for rows.Next() {
		req, err := scanRequest(rows)
		if err != nil {
			return nil, err
		}
		requests = append(requests, *req)
	}
	return requests, rows.Err()
}

func (r *PostgresRequestRepository) CountOpen(ctx context.Context, tenantID, processID string) (int64, error) {
	var n int64
	err := r.DB.QueryRowContext(ctx, `SELECT COUNT(*) FROM approval_requests
		WHERE tenant_id = $1 AND process_id = $2 AND status = $3`, tenantID, processID, string(RequestPending)).Scan(&n)
	return n, err
}

// Commit moves the projection and appends the action in one transaction.
func (r *PostgresRequestRepository) Commit(ctx context.Context, req *ApprovalRequest, expectedVersion int64, action *common_models.ApprovalAction) error {
	return r.inTx(ctx, func(tx *sql.Tx) error {
		if err := setRequestState(ctx, tx, req, expectedVersion); err != nil {
			return err
		}
		if err := audit.InsertAction(ctx, tx, action); err != nil {
			if errors.Is(err, audit.ErrDuplicateSequence) {
				return errVersionConflict
			}
			return err
		}
		return nil
	})
}

func (r *PostgresRequestRepository) Repair(ctx context.Context, req *ApprovalRequest, expectedVersion int64) error {
	return setRequestState(ctx, r.DB, req, expectedVersion)
}

func setRequestState(ctx context.Context, db audit.Execer, req *ApprovalRequest, expectedVersion int64) error {
	updatedAt := req.UpdatedAt
	if updatedAt.IsZero() {
		updatedAt = time.Now().UTC()
	}
	res, err := db.ExecContext(ctx, `UPDATE approval_requests
		SET status = $3, current_step = $4, version = $5, updated_at = $6, completed_at = $7
		WHERE id = $1 AND tenant_id = $2 AND version = $8`,
		req.ID, req.TenantID, string(req.Status), req.CurrentStep, req.Version, updatedAt, req.CompletedAt, expectedVersion,
	)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return errVersionConflict
	}
	return nil
}

func (r *PostgresRequestRepository) inTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}

func scanRequest(row rowScanner) (*ApprovalRequest, error) {
	var req ApprovalRequest
	var status string
	var completedAt sql.NullTime
	if err := row.Scan(&req.ID, &req.TenantID, &req.ProcessID, &req.ObjectType, &req.RecordID, &req.SubmitterID, &req.SubmitComment,
		&req.CurrentStep, &req.TotalSteps, &status, &req.Version, &req.CreatedAt, &req.UpdatedAt, &completedAt); err != nil {
		return nil, err
	}
	req.Status = RequestStatus(status)
	if completedAt.Valid {
		t := completedAt.Time
		req.CompletedAt = &t
	}
	return &req, nil
}
