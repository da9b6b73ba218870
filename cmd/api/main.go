package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	common_api "go-approvals/internal/common/api"
	"go-approvals/internal/config"
	"go-approvals/internal/database"
	"go-approvals/internal/features/approval"
	"go-approvals/internal/features/audit"
	"go-approvals/internal/features/directory"
	"go-approvals/internal/features/record"
	"go-approvals/internal/features/system"
	"go-approvals/internal/logger"
	"go-approvals/internal/middleware"
	"go-approvals/pkg/utils"

	_ "go-approvals/docs" // Import swagger docs

	"github.com/gofiber/fiber/v2"
	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"go.uber.org/zap"
)

// NewFiberServer creates a new Fiber app instance
func NewFiberServer() *fiber.App {
	app := fiber.New(fiber.Config{
		DisableStartupMessage: true,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			code := fiber.StatusInternalServerError
			if e, ok := err.(*fiber.Error); ok {
				code = e.Code
			}
			return c.Status(code).JSON(fiber.Map{
				"error": err.Error(),
			})
		},
	})

	app.Use(middleware.CORSMiddleware())

	return app
}

// AsRoute tags the constructor so Fx adds it to the "routes" group.
func AsRoute(f any) any {
	return fx.Annotate(
		f,
		fx.As(new(common_api.Route)),
		fx.ResultTags(`group:"routes"`),
	)
}

// RegisterAllRoutes calls Setup() on every member of the "routes" group.
func RegisterAllRoutes(app *fiber.App, routes []common_api.Route) {
	log.Printf("Registering %d routes...\n", len(routes))
	for i, route := range routes {
		log.Printf("Setting up route %d: %T\n", i+1, route)
		route.Setup(app)
	}
	log.Println("All routes registered successfully")
}

var RegisterAllRoutesWithAnnotation = fx.Annotate(
	RegisterAllRoutes,
	fx.ParamTags(``, `group:"routes"`),
)

// StartServer starts Fiber in a goroutine and shuts it down when the app exits.
func StartServer(lc fx.Lifecycle, app *fiber.App, cfg *config.Config) {
	utils.SetSecret(cfg.JWTSecret)
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				port := fmt.Sprintf(":%s", cfg.Port)
				if err := app.Listen(port); err != nil {
					log.Fatalf("Server failed to start: %v", err)
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			return app.Shutdown()
		},
	})
}

// StartConsistencyChecker runs one pass at startup and then follows the
// configured schedule.
func StartConsistencyChecker(lc fx.Lifecycle, checker *approval.ConsistencyChecker, logger *zap.Logger) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			if err := checker.Start(); err != nil {
				return err
			}
			go func() {
				ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
				defer cancel()
				if _, err := checker.Run(ctx); err != nil {
					logger.Error("startup consistency pass failed", zap.Error(err))
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			checker.Stop()
			return nil
		},
	})
}

// recordSourceAdapter reports missing CRM records with the approval not-found error.
type recordSourceAdapter struct {
	repo record.SnapshotRepository
}

func (a *recordSourceAdapter) Snapshot(ctx context.Context, tenantID, objectType, recordID string) (map[string]any, error) {
	snapshot, err := a.repo.Snapshot(ctx, tenantID, objectType, recordID)
	if errors.Is(err, record.ErrRecordNotFound) {
		return nil, fmt.Errorf("%w: %v", approval.ErrNotFound, err)
	}
	return snapshot, err
}

// @title           Approval Engine API
// @version         1.0
// @description     Multi-step approval chains for CRM records.

// @host            localhost:8080
// @BasePath        /
func main() {
	app := fx.New(
		fx.Provide(
			config.LoadConfig,
			logger.NewLogger,
			NewFiberServer,

			database.NewDatabase,
			database.NewPostgres,

			// Repositories; NewStorage picks the backend from STORAGE_DRIVER
			approval.NewStorage,
			record.NewSnapshotRepository,
			directory.NewDirectoryRepository,

			// Interface adapters to break circular dependencies and satisfy Fx
			func(r directory.DirectoryRepository) approval.Directory { return r },
			func(r directory.DirectoryRepository) audit.UserFinder { return r },
			func(r record.SnapshotRepository) approval.RecordSource { return &recordSourceAdapter{repo: r} },
			func(h *system.EventHub) approval.EventPublisher { return h },
			func(m approval.LifecycleManager) approval.RequestTerminator { return m },

			system.NewEventHub,
			audit.NewAuditService,
			approval.NewApproverResolver,
			approval.NewLifecycleManager,
			approval.NewProcessRegistry,
			approval.NewConsistencyChecker,

			// Controllers
			audit.NewAuditController,
			approval.NewProcessController,
			approval.NewRequestController,
			system.NewWebSocketController,
			system.NewHealthController,

			// API routes
			AsRoute(audit.NewAuditApi),
			AsRoute(approval.NewProcessApi),
			AsRoute(approval.NewRequestApi),
			AsRoute(system.NewWebSocketApi),
			AsRoute(system.NewSystemApi),
		),
		fx.WithLogger(func(log *zap.Logger) fxevent.Logger {
			return &fxevent.ZapLogger{Logger: log}
		}),
		fx.Invoke(
			RegisterAllRoutesWithAnnotation,
			StartServer,
			StartConsistencyChecker,
		),
	)

	app.Run()
}
