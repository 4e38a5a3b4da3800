// Package memstore keeps jobs, users, assets and chats in process memory.
// It honors the same conditional write rules as the Mongo adapter, with a
// single lock standing in for per-document atomicity.
package memstore

import (
	"context"
	"sync"
	"time"

	"marketplace/internal/models"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type Store struct {
	mu       sync.RWMutex
	jobs     map[primitive.ObjectID]*models.Job
	users    map[primitive.ObjectID]*models.User
	emails   map[string]primitive.ObjectID
	assets   map[primitive.ObjectID]*models.Asset
	messages map[primitive.ObjectID]*models.ChatMessage
	now      func() time.Time
}

func New() *Store {
	return &Store{
		jobs:     make(map[primitive.ObjectID]*models.Job),
		users:    make(map[primitive.ObjectID]*models.User),
		emails:   make(map[string]primitive.ObjectID),
		assets:   make(map[primitive.ObjectID]*models.Asset),
		messages: make(map[primitive.ObjectID]*models.ChatMessage),
		now: func() time.Time {
			return time.Now().UTC().Truncate(time.Millisecond)
		},
	}
}

func (s *Store) Close(ctx context.Context) error {
	return nil
}

func alive(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return models.Unavailable(err)
	}
	return nil
}

// profile expects s.mu to be held.
func (s *Store) profile(id primitive.ObjectID) *models.PublicProfile {
	user, ok := s.users[id]
	if !ok {
		return nil
	}
	p := user.Public()
	return &p
}

func cloneJob(j *models.Job) models.Job {
	c := *j
	c.Bids = append(make([]models.Bid, 0, len(j.Bids)), j.Bids...)
	if j.Freelancer != nil {
		f := *j.Freelancer
		c.Freelancer = &f
	}
	if j.EmployerRating != nil {
		r := *j.EmployerRating
		c.EmployerRating = &r
	}
	if j.FreelancerRating != nil {
		r := *j.FreelancerRating
		c.FreelancerRating = &r
	}
	return c
}

func cloneUser(u *models.User) models.User {
	c := *u
	c.Ratings = append(make([]models.Rating, 0, len(u.Ratings)), u.Ratings...)
	c.LedgerKeys = append(make([]string, 0, len(u.LedgerKeys)), u.LedgerKeys...)
	return c
}
