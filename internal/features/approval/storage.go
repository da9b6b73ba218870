package approval

import (
	"context"
	"fmt"
	"time"

	"go-approvals/internal/config"
	"go-approvals/internal/database"
	"go-approvals/internal/features/audit"

	"go.uber.org/fx"
)

// Storage is the set of repositories backing the approval engine. Exactly
// one backend is active, chosen by STORAGE_DRIVER.
type Storage struct {
	fx.Out

	Processes ProcessRepository
	Requests  RequestRepository
	Actions   audit.ActionRepository
}

func NewStorage(cfg *config.Config, mongodb *database.MongodbDB, pg *database.PostgresDB) (Storage, error) {
	switch cfg.StorageDriver {
	case config.StorageMongo, "":
		actions, err := audit.NewActionRepository(mongodb)
		if err != nil {
			return Storage{}, fmt.Errorf("action indexes: %w", err)
		}
		requests, err := NewRequestRepository(mongodb, actions)
		if err != nil {
			return Storage{}, fmt.Errorf("request indexes: %w", err)
		}
		return Storage{
			Processes: NewProcessRepository(mongodb),
			Requests:  requests,
			Actions:   actions,
		}, nil

	case config.StoragePostgres:
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := EnsureSchema(ctx, pg.DB); err != nil {
			return Storage{}, err
		}
		return Storage{
			Processes: NewPostgresProcessRepository(pg),
			Requests:  NewPostgresRequestRepository(pg),
			Actions:   audit.NewPostgresActionRepository(pg),
		}, nil

	case config.StorageMemory:
		return NewMemoryStorage(), nil
	}
	return Storage{}, fmt.Errorf("unknown STORAGE_DRIVER %q", cfg.StorageDriver)
}

func NewMemoryStorage() Storage {
	actions := audit.NewMemoryActionRepository()
	return Storage{
		Processes: NewMemoryProcessRepository(),
		Requests:  NewMemoryRequestRepository(actions),
		Actions:   actions,
	}
}
