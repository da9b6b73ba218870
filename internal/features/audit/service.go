package audit

import (
	"context"
	"fmt"

	common_models "go-approvals/internal/common/models"

	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"
)

type UserFinder interface {
	FindNames(ctx context.Context, tenantID string, ids []string) (map[string]string, error)
}

// AuditService is the read side of the action log.
type AuditService interface {
	History(ctx context.Context, tenantID, requestID string) ([]common_models.ApprovalAction, error)
	ProcessHistory(ctx context.Context, tenantID, processID string, page, limit int64) ([]common_models.ApprovalAction, error)
	ListActions(ctx context.Context, tenantID string, filter ActionFilter, page, limit int64) ([]common_models.ApprovalAction, error)
	ExportHistory(ctx context.Context, tenantID, requestID string) ([]byte, string, error)
}

type AuditServiceImpl struct {
	Repo     ActionRepository
	UserRepo UserFinder
	Logger   *zap.Logger
}

func NewAuditService(repo ActionRepository, userRepo UserFinder, logger *zap.Logger) AuditService {
	return &AuditServiceImpl{
		Repo:     repo,
		UserRepo: userRepo,
		Logger:   logger,
	}
}

// History returns every action of a request in sequence order, SUBMIT first.
func (s *AuditServiceImpl) History(ctx context.Context, tenantID, requestID string) ([]common_models.ApprovalAction, error) {
	actions, err := s.Repo.ListByRequest(ctx, tenantID, requestID)
	if err != nil {
		return nil, err
	}
	s.populateActorNames(ctx, tenantID, actions)
	return actions, nil
}

// ProcessHistory pages through the decisions taken under one process, newest first.
func (s *AuditServiceImpl) ProcessHistory(ctx context.Context, tenantID, processID string, page, limit int64) ([]common_models.ApprovalAction, error) {
	return s.ListActions(ctx, tenantID, ActionFilter{ProcessID: processID}, page, limit)
}

func (s *AuditServiceImpl) ListActions(ctx context.Context, tenantID string, filter ActionFilter, page, limit int64) ([]common_models.ApprovalAction, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = 20
	}
	offset := (page - 1) * limit
	actions, err := s.Repo.List(ctx, tenantID, filter, limit, offset)
	if err != nil {
		return nil, err
	}
	s.populateActorNames(ctx, tenantID, actions)
	return actions, nil
}

func (s *AuditServiceImpl) populateActorNames(ctx context.Context, tenantID string, actions []common_models.ApprovalAction) {
	actorIDs := make([]string, 0)
	uniqueIDs := make(map[string]bool)
	for _, a := range actions {
		if a.ActorID == common_models.SystemActorID || a.ActorID == "" {
			continue
		}
		if !uniqueIDs[a.ActorID] {
			uniqueIDs[a.ActorID] = true
			actorIDs = append(actorIDs, a.ActorID)
		}
	}

	names := map[string]string{}
	if len(actorIDs) > 0 && s.UserRepo != nil {
		found, err := s.UserRepo.FindNames(ctx, tenantID, actorIDs)
		if err != nil {
			s.Logger.Warn("Failed to resolve actor names",
				zap.String("tenant_id", tenantID),
				zap.Int("actors", len(actorIDs)),
				zap.Error(err),
			)
		} else {
			names = found
		}
	}

	for i, a := range actions {
		switch {
		case a.ActorID == common_models.SystemActorID || a.ActorID == "":
			actions[i].ActorName = "System"
		case names[a.ActorID] != "":
			actions[i].ActorName = names[a.ActorID]
		default:
			actions[i].ActorName = "Unknown User"
		}
	}
}

// ExportHistory renders a request's trail as an xlsx workbook.
func (s *AuditServiceImpl) ExportHistory(ctx context.Context, tenantID, requestID string) ([]byte, string, error) {
	actions, err := s.History(ctx, tenantID, requestID)
	if err != nil {
		return nil, "", err
	}

	f := excelize.NewFile()
	defer f.Close()

	sheetName := "History"
	index, err := f.NewSheet(sheetName)
	if err != nil {
		return nil, "", err
	}
	f.SetActiveSheet(index)
	_ = f.DeleteSheet("Sheet1")

	columns := []string{"Sequence", "Action", "Step", "Actor", "Actor ID", "Comment", "System", "Timestamp"}
	headerStyle, _ := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#E0E0E0"}, Pattern: 1},
	})
	for i, col := range columns {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		f.SetCellValue(sheetName, cell, col)
		f.SetCellStyle(sheetName, cell, cell, headerStyle)
	}

	for rowIdx, a := range actions {
		row := []any{
			a.Sequence,
			string(a.Action),
			a.StepNumber,
			a.ActorName,
			a.ActorID,
			a.Comment,
			a.System,
			a.CreatedAt.UTC().Format("2006-01-02 15:04:05"),
		}
		for colIdx, val := range row {
			cell, _ := excelize.CoordinatesToCellName(colIdx+1, rowIdx+2)
			f.SetCellValue(sheetName, cell, val)
		}
	}

	for i := range columns {
		col, _ := excelize.ColumnNumberToName(i + 1)
		f.SetColWidth(sheetName, col, col, 18)
	}

	buffer, err := f.WriteToBuffer()
	if err != nil {
		return nil, "", err
	}
	return buffer.Bytes(), fmt.Sprintf("approval-history-%s.xlsx", requestID), nil
}
