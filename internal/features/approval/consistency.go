package approval

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go-approvals/internal/config"
	"go-approvals/internal/features/audit"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

type ConsistencyReport struct {
	Checked  int `json:"checked"`
	Repaired int `json:"repaired"`
	Recalled int `json:"recalled"`
	Failed   int `json:"failed"`
}

// ConsistencyChecker replays the action log of pending requests and repairs
// projections that fell behind it. Requests left pending on a deleted
// process are recalled.
type ConsistencyChecker struct {
	Processes  ProcessRepository
	Requests   RequestRepository
	Actions    audit.ActionRepository
	Terminator RequestTerminator
	Logger     *zap.Logger

	schedule  string
	scheduler *cron.Cron
	mu        sync.Mutex
}

func NewConsistencyChecker(
	processes ProcessRepository,
	requests RequestRepository,
	actions audit.ActionRepository,
	terminator RequestTerminator,
	logger *zap.Logger,
	cfg *config.Config,
) *ConsistencyChecker {
	return &ConsistencyChecker{
		Processes:  processes,
		Requests:   requests,
		Actions:    actions,
		Terminator: terminator,
		Logger:     logger.Named("approval.consistency"),
		schedule:   cfg.ConsistencySchedule,
	}
}

// Verify checks one request and repairs its projection when it disagrees
// with the log. It reports whether a repair was made.
func (c *ConsistencyChecker) Verify(ctx context.Context, tenantID, requestID string) (bool, error) {
	req, err := c.Requests.GetByID(ctx, tenantID, requestID)
	if err != nil {
		return false, err
	}
	actions, err := c.Actions.ListByRequest(ctx, tenantID, requestID)
	if err != nil {
		return false, err
	}
	replayed, err := Replay(*req, actions)
	if err != nil {
		return false, err
	}
	if !Drifted(*req, replayed) {
		return false, nil
	}

	if err := c.Requests.Repair(ctx, &replayed, req.Version); err != nil {
		if errors.Is(err, errVersionConflict) {
			// Someone committed meanwhile; the next pass looks again.
			return false, nil
		}
		return false, err
	}
	c.Logger.Warn("repaired drifted request projection",
		zap.String("request_id", req.ID),
		zap.String("tenant_id", req.TenantID),
		zap.String("stored_status", string(req.Status)),
		zap.String("replayed_status", string(replayed.Status)),
		zap.Int64("stored_version", req.Version),
		zap.Int64("replayed_version", replayed.Version),
	)
	return true, nil
}

// Run checks every pending request across all tenants.
func (c *ConsistencyChecker) Run(ctx context.Context) (ConsistencyReport, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var report ConsistencyReport
	pending, err := c.Requests.List(ctx, RequestFilter{Status: RequestPending})
	if err != nil {
		return report, err
	}

	type processKey struct{ tenantID, processID string }
	deleted := make(map[processKey]bool)

	for _, req := range pending {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		report.Checked++

		repaired, err := c.Verify(ctx, req.TenantID, req.ID)
		if err != nil {
			report.Failed++
			c.Logger.Error("consistency check failed",
				zap.String("request_id", req.ID),
				zap.String("tenant_id", req.TenantID),
				zap.Error(err),
			)
			continue
		}
		if repaired {
			report.Repaired++
		}

		key := processKey{req.TenantID, req.ProcessID}
		if _, seen := deleted[key]; !seen {
			process, err := c.Processes.GetByID(ctx, req.TenantID, req.ProcessID)
			deleted[key] = errors.Is(err, ErrNotFound) || (err == nil && process.Deleted)
		}
	}

	for key, gone := range deleted {
		if !gone {
			continue
		}
		n, err := c.Terminator.TerminateOpen(ctx, key.tenantID, key.processID, "process no longer exists")
		report.Recalled += n
		if err != nil {
			report.Failed++
			c.Logger.Error("recalling orphaned requests failed",
				zap.String("process_id", key.processID),
				zap.String("tenant_id", key.tenantID),
				zap.Error(err),
			)
		}
	}

	c.Logger.Info("consistency pass finished",
		zap.Int("checked", report.Checked),
		zap.Int("repaired", report.Repaired),
		zap.Int("recalled", report.Recalled),
		zap.Int("failed", report.Failed),
	)
	return report, nil
}

// Start schedules Run on the configured cron spec. An empty spec disables it.
func (c *ConsistencyChecker) Start() error {
	if c.schedule == "" {
		c.Logger.Info("consistency checker disabled")
		return nil
	}

	logger := cronLogger{c.Logger.Sugar()}
	c.scheduler = cron.New(cron.WithLogger(logger), cron.WithChain(cron.SkipIfStillRunning(logger)))
	_, err := c.scheduler.AddFunc(c.schedule, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
		defer cancel()
		if _, err := c.Run(ctx); err != nil {
			c.Logger.Error("consistency pass aborted", zap.Error(err))
		}
	})
	if err != nil {
		return fmt.Errorf("consistency schedule %q: %w", c.schedule, err)
	}
	c.scheduler.Start()
	c.Logger.Info("consistency checker scheduled", zap.String("schedule", c.schedule))
	return nil
}

func (c *ConsistencyChecker) Stop() {
	if c.scheduler != nil {
		<-c.scheduler.Stop().Done()
	}
}

type cronLogger struct {
	s *zap.SugaredLogger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.s.Debugw(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.s.Errorw(msg, append(keysAndValues, "error", err)...)
}
