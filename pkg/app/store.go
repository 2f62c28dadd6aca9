package app

import (
	"context"
	"database/sql"
	"fmt"

	"go.uber.org/zap"

	"github.com/annuaire-entreprises/annuaire-engine/pkg/config"
	"github.com/annuaire-entreprises/annuaire-engine/pkg/database"
	"github.com/annuaire-entreprises/annuaire-engine/pkg/handlers"
	"github.com/annuaire-entreprises/annuaire-engine/pkg/repositories"
)

// Store is an opened, migrated annotation store.
type Store struct {
	Repo   repositories.CompanyDetailsRepository
	Pinger handlers.Pinger
	close  func()
}

// Close releases the store's connections.
func (s *Store) Close() {
	if s.close != nil {
		s.close()
	}
}

// OpenStore opens the configured backend and applies pending migrations.
func OpenStore(ctx context.Context, cfg *config.DatabaseConfig, logger *zap.Logger) (*Store, error) {
	switch cfg.Driver {
	case config.DriverSQLite:
		db, err := database.OpenSQLite(ctx, cfg.SQLitePath, logger)
		if err != nil {
			return nil, err
		}
		if err := database.RunMigrations(db, database.DialectSQLite, logger); err != nil {
			_ = db.Close()
			return nil, err
		}
		return &Store{
			Repo:   repositories.NewSQLiteCompanyDetailsRepository(db),
			Pinger: handlers.PingFunc(db.PingContext),
			close:  func() { _ = db.Close() },
		}, nil

	case config.DriverPostgres:
		if err := Migrate(ctx, cfg, logger); err != nil {
			return nil, err
		}
		db, err := database.NewConnection(ctx, &database.Config{
			URL:            cfg.ConnectionString(),
			MaxConnections: cfg.MaxConnections,
		}, logger)
		if err != nil {
			return nil, err
		}
		return &Store{
			Repo:   repositories.NewCompanyDetailsRepository(db),
			Pinger: db,
			close:  db.Close,
		}, nil
	}
	return nil, fmt.Errorf("unsupported database driver %q", cfg.Driver)
}

// Migrate applies pending migrations to the configured backend.
func Migrate(ctx context.Context, cfg *config.DatabaseConfig, logger *zap.Logger) error {
	var (
		db      *sql.DB
		dialect string
		err     error
	)
	switch cfg.Driver {
	case config.DriverSQLite:
		db, err = database.OpenSQLite(ctx, cfg.SQLitePath, logger)
		dialect = database.DialectSQLite
	case config.DriverPostgres:
		db, err = database.OpenPostgresSQL(cfg.ConnectionString())
		dialect = database.DialectPostgres
	default:
		return fmt.Errorf("unsupported database driver %q", cfg.Driver)
	}
	if err != nil {
		return err
	}
	defer func() { _ = db.Close() }()

	return database.RunMigrations(db, dialect, logger)
}
