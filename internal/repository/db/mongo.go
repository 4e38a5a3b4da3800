package db

import (
	"context"
	"fmt"
	"marketplace/internal/config"

	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

func NewMongoClient(ctx context.Context, cfg *config.MongoConfig, log logrus.FieldLogger) (*mongo.Client, error) {
	ctx, cancel := context.WithTimeout(ctx, cfg.Timeout)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.URI))
	if err != nil {
		return nil, fmt.Errorf("db.NewMongoClient: %w", err)
	}

	err = client.Ping(ctx, nil)
	if err != nil {
		client.Disconnect(context.Background())
		return nil, fmt.Errorf("db.NewMongoClient: %w", err)
	}

	log.WithField("database", cfg.Database).Info("connected to mongodb")
	return client, nil
}
