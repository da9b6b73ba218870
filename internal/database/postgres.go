package database

import (
	"context"
	"database/sql"
	"log"
	"time"

	"go-approvals/internal/config"

	_ "github.com/lib/pq"
	"go.uber.org/fx"
)

// PostgresDB is only connected when STORAGE_DRIVER=postgres; DB is nil otherwise.
type PostgresDB struct {
	DB *sql.DB
}

// NewPostgres opens the approval store on Postgres when it is the configured driver.
func NewPostgres(lc fx.Lifecycle, cfg *config.Config) (*PostgresDB, error) {
	if cfg.StorageDriver != config.StoragePostgres {
		return &PostgresDB{}, nil
	}

	db, err := sql.Open("postgres", cfg.PostgresDSN)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(20)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(30 * time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, err
	}

	log.Println("Connected to Postgres!")

	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			log.Println("Closing Postgres pool...")
			return db.Close()
		},
	})

	return &PostgresDB{DB: db}, nil
}
