package db

import (
	"context"
	"database/sql"
	"fmt"
	"marketplace/internal/config"

	_ "github.com/lib/pq"
	"github.com/sirupsen/logrus"
)

func NewPostgresDB(ctx context.Context, cfg *config.PostgresConfig, log logrus.FieldLogger) (*sql.DB, error) {
	log.Debug("connecting ledger journal db")
	db, err := sql.Open("postgres", cfg.Conn)
	if err != nil {
		return nil, fmt.Errorf("db.NewPostgresDB: %w", err)
	}

	err = db.PingContext(ctx)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("db.NewPostgresDB: %w", err)
	}

	return db, nil
}
