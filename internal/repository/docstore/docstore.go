// Package docstore persists the marketplace in MongoDB. Invariants that span
// a document are enforced by conditional single-document writes; no
// transactions are used.
package docstore

import (
	"context"
	"fmt"
	"time"

	"marketplace/internal/models"

	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	jobsCollection   = "jobs"
	usersCollection  = "users"
	assetsCollection = "assets"
	chatsCollection  = "chats"
)

type Store struct {
	jobs    *mongo.Collection
	users   *mongo.Collection
	assets  *mongo.Collection
	chats   *mongo.Collection
	timeout time.Duration
	log     logrus.FieldLogger
}

// New binds the store to db and makes sure the indexes the queries rely on
// exist. Index failures are logged, not fatal.
func New(ctx context.Context, db *mongo.Database, timeout time.Duration, log logrus.FieldLogger) *Store {
	s := &Store{
		jobs:    db.Collection(jobsCollection),
		users:   db.Collection(usersCollection),
		assets:  db.Collection(assetsCollection),
		chats:   db.Collection(chatsCollection),
		timeout: timeout,
		log:     log,
	}

	s.ensureIndexes(ctx)
	return s
}

func (s *Store) ensureIndexes(ctx context.Context) {
	newest := mongo.IndexModel{Keys: bson.D{{Key: "createdAt", Value: -1}, {Key: "_id", Value: -1}}}

	indexes := map[*mongo.Collection][]mongo.IndexModel{
		s.jobs: {
			{Keys: bson.D{{Key: "title", Value: "text"}, {Key: "description", Value: "text"}}},
			{Keys: bson.D{{Key: "user", Value: 1}}},
			{Keys: bson.D{{Key: "freelancer", Value: 1}}},
			newest,
		},
		s.users: {
			{Keys: bson.D{{Key: "email", Value: 1}}, Options: options.Index().SetUnique(true)},
			{Keys: bson.D{
				{Key: "name.firstName", Value: "text"},
				{Key: "name.lastName", Value: "text"},
				{Key: "freelancerProfile.bio", Value: "text"},
				{Key: "freelancerProfile.jobTitle", Value: "text"},
			}},
			newest,
		},
		s.assets: {
			{Keys: bson.D{{Key: "title", Value: "text"}, {Key: "description", Value: "text"}}},
			{Keys: bson.D{{Key: "user", Value: 1}}},
			newest,
		},
		s.chats: {
			{Keys: bson.D{{Key: "text", Value: "text"}}},
			{Keys: bson.D{{Key: "sender", Value: 1}, {Key: "receiver", Value: 1}}},
			newest,
		},
	}

	for coll, idx := range indexes {
		ictx, cancel := s.withTimeout(ctx)
		_, err := coll.Indexes().CreateMany(ictx, idx)
		cancel()
		if err != nil {
			s.log.WithField("collection", coll.Name()).Warnf("failed to create indexes: %s", err)
		}
	}
}

func (s *Store) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, s.timeout)
}

func (s *Store) Close(ctx context.Context) error {
	return nil
}

func now() time.Time {
	return time.Now().UTC().Truncate(time.Millisecond)
}

func unavailable(method string, err error) error {
	return fmt.Errorf("docstore.Store.%s: %w", method, models.Unavailable(err))
}
