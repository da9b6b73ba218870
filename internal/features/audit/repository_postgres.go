package audit

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	common_models "go-approvals/internal/common/models"
	"go-approvals/internal/database"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

// ActionsSchema is applied by the approval store before first use.
const ActionsSchema = `
CREATE TABLE IF NOT EXISTS approval_actions (
	id          TEXT PRIMARY KEY,
	tenant_id   TEXT NOT NULL,
	request_id  TEXT NOT NULL,
	process_id  TEXT NOT NULL,
	actor_id    TEXT NOT NULL,
	action      TEXT NOT NULL,
	step_number INTEGER NOT NULL,
	sequence    BIGINT NOT NULL,
	comment     TEXT NOT NULL DEFAULT '',
	system      BOOLEAN NOT NULL DEFAULT FALSE,
	created_at  TIMESTAMPTZ NOT NULL,
	UNIQUE (request_id, sequence)
);
CREATE INDEX IF NOT EXISTS approval_actions_process_idx ON approval_actions (tenant_id, process_id, created_at DESC);
`

const uniqueViolation = "23505"

// Execer is satisfied by both *sql.DB and *sql.Tx.
type Execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// InsertAction writes one action through db, which may be an open transaction.
func InsertAction(ctx context.Context, db Execer, action *common_models.ApprovalAction) error {
	if action.ID == "" {
		action.ID = uuid.NewString()
	}
	_, err := db.ExecContext(ctx, `
		INSERT INTO approval_actions
			(id, tenant_id, request_id, process_id, actor_id, action, step_number, sequence, comment, system, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		action.ID, action.TenantID, action.RequestID, action.ProcessID, action.ActorID,
		string(action.Action), action.StepNumber, action.Sequence, action.Comment, action.System, action.CreatedAt,
	)
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
		return ErrDuplicateSequence
	}
	return err
}

type PostgresActionRepository struct {
	DB *sql.DB
}

func NewPostgresActionRepository(pg *database.PostgresDB) *PostgresActionRepository {
	return &PostgresActionRepository{DB: pg.DB}
}

func (r *PostgresActionRepository) Append(ctx context.Context, action *common_models.ApprovalAction) error {
	return InsertAction(ctx, r.DB, action)
}

func (r *PostgresActionRepository) ListByRequest(ctx context.Context, tenantID, requestID string) ([]common_models.ApprovalAction, error) {
	rows, err := r.DB.QueryContext(ctx, `
		SELECT id, tenant_id, request_id, process_id, actor_id, action, step_number, sequence, comment, system, created_at
		FROM approval_actions
		WHERE tenant_id = $1 AND request_id = $2
		ORDER BY sequence ASC`, tenantID, requestID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanActions(rows)
}

func (r *PostgresActionRepository) List(ctx context.Context, tenantID string, filter ActionFilter, limit, offset int64) ([]common_models.ApprovalAction, error) {
	where := []string{"tenant_id = $1"}
	args := []any{tenantID}
	add := func(column, value string) {
		if value == "" {
			return
		}
		args = append(args, value)
		where = append(where, fmt.Sprintf("%s = $%d", column, len(args)))
	}
	add("process_id", filter.ProcessID)
	add("request_id", filter.RequestID)
	add("actor_id", filter.ActorID)
	add("action", string(filter.Action))

	args = append(args, limit, offset)
	query := fmt.Sprintf(`
		SELECT id, tenant_id, request_id, process_id, actor_id, action, step_number, sequence, comment, system, created_at
		FROM approval_actions
		WHERE %s
		ORDER BY created_at DESC, sequence DESC
		LIMIT $%d OFFSET $%d`, strings.Join(where, " AND "), len(args)-1, len(args))

	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanActions(rows)
}

func scanActions(rows *sql.Rows) ([]common_models.ApprovalAction, error) {
	actions := []common_models.ApprovalAction{}
	for rows.Next() {
		var a common_models.ApprovalAction
		var action string
		if err := rows.Scan(&a.ID, &a.TenantID, &a.RequestID, &a.ProcessID, &a.ActorID, &action,
			&a.StepNumber, &a.Sequence, &a.Comment, &a.System, &a.CreatedAt); err != nil {
			return nil, err
		}
		a.Action = common_models.ActionType(action)
		actions = append(actions, a)
	}
	return actions, rows.Err()
}
