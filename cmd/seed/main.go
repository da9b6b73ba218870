package main

import (
	"context"
	"log"
	"os"
	"time"

	"go-approvals/internal/config"
	"go-approvals/internal/database"
	"go-approvals/internal/features/approval"
	"go-approvals/internal/features/directory"
	"go-approvals/internal/features/record"
	"go-approvals/internal/logger"

	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"go.uber.org/zap"
)

// Seed loads the predefined approval processes from SEED_FILE.
func Seed(
	lc fx.Lifecycle,
	cfg *config.Config,
	registry approval.ProcessRegistry,
	logger *zap.Logger,
	shutdowner fx.Shutdowner,
) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				exitCode := 0
				defer func() {
					if err := shutdowner.Shutdown(fx.ExitCode(exitCode)); err != nil {
						logger.Error("Failed to shutdown", zap.Error(err))
					}
				}()

				logger.Info("🌱 Seeding approval processes", zap.String("file", cfg.SeedFile))
				file, err := approval.LoadSeedFile(cfg.SeedFile)
				if err != nil {
					logger.Error("Failed to read seed file", zap.Error(err))
					exitCode = 1
					return
				}

				created, err := approval.Seed(context.Background(), registry, file, logger)
				if err != nil {
					logger.Error("Seeding stopped", zap.Int("created", created), zap.Error(err))
					exitCode = 1
					return
				}
				logger.Info("✅ Seeding complete", zap.Int("created", created))
			}()
			return nil
		},
	})
}

func main() {
	app := fx.New(
		fx.Provide(
			config.LoadConfig,
			logger.NewLogger,
			database.NewDatabase,
			database.NewPostgres,
			approval.NewStorage,
			record.NewSnapshotRepository,
			directory.NewDirectoryRepository,
			func(r directory.DirectoryRepository) approval.Directory { return r },
			func(r record.SnapshotRepository) approval.RecordSource { return r },
			func() approval.EventPublisher { return nil },
			func(m approval.LifecycleManager) approval.RequestTerminator { return m },
			approval.NewApproverResolver,
			approval.NewLifecycleManager,
			approval.NewProcessRegistry,
		),
		fx.WithLogger(func(log *zap.Logger) fxevent.Logger {
			return &fxevent.ZapLogger{Logger: log}
		}),
		fx.Invoke(Seed),
	)

	if err := app.Start(context.Background()); err != nil {
		log.Fatal(err)
	}

	sig := <-app.Wait()
	stopCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	if err := app.Stop(stopCtx); err != nil {
		log.Println(err)
	}
	cancel()
	os.Exit(sig.ExitCode)
}
