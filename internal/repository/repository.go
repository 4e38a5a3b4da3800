// Package repository keeps the ledger journal in PostgreSQL: one row per
// applied ledger leg, written once and never updated.
package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"marketplace/internal/config"

	postgres "marketplace/internal/repository/db"

	"github.com/sirupsen/logrus"
)

type Repository struct {
	db  *sql.DB
	cfg *config.PostgresConfig
	log logrus.FieldLogger
}

func NewRepository(ctx context.Context, db *sql.DB, cfg *config.PostgresConfig, log logrus.FieldLogger) (*Repository, error) {
	var err error

	repo := &Repository{
		db:  db,
		cfg: cfg,
		log: log,
	}

	if repo.cfg == nil {
		repo.cfg, err = config.NewPostgresConfig()
		if err != nil {
			return nil, fmt.Errorf("repository.NewRepository: could not load postgres config: %w", err)
		}
	}

	if repo.db == nil {
		repo.db, err = postgres.NewPostgresDB(ctx, repo.cfg, log)
		if err != nil {
			return nil, fmt.Errorf("repository.NewRepository: could not open postgres db: %w", err)
		}
	}

	if repo.cfg.AutoMigrateUp == "true" {
		err = repo.MigrateUp()
		if err != nil {
			return nil, err
		}
	}

	return repo, nil
}

func (repo *Repository) MigrateUp() error {
	err := postgres.MigrateUp(repo.db, repo.log)
	if err != nil {
		return fmt.Errorf("repository.Repository.MigrateUp: %w", err)
	}
	return nil
}

func (repo *Repository) MigrateDown() error {
	err := postgres.MigrateDown(repo.db, repo.log)
	if err != nil {
		return fmt.Errorf("repository.Repository.MigrateDown: %w", err)
	}
	return nil
}

func (repo *Repository) Close() error {
	var migErr error
	if repo.cfg.AutoMigrateDown == "true" {
		migErr = repo.MigrateDown()
	}

	err := repo.db.Close()
	return errors.Join(migErr, err)
}
