package memstore

import (
	"context"
	"fmt"
	"strings"
	"time"

	"marketplace/internal/models"
	"marketplace/internal/query"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

func (s *Store) InsertUser(ctx context.Context, user models.User) (models.User, error) {
	if err := alive(ctx); err != nil {
		return user, fmt.Errorf("memstore.Store.InsertUser: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	email := strings.ToLower(user.Email)
	if _, taken := s.emails[email]; taken {
		return user, fmt.Errorf("memstore.Store.InsertUser: %w", models.ErrDuplicateEmail)
	}

	if user.Id.IsZero() {
		user.Id = primitive.NewObjectID()
	}
	if user.Ratings == nil {
		user.Ratings = []models.Rating{}
	}
	if user.LedgerKeys == nil {
		user.LedgerKeys = []string{}
	}
	user.CreatedAt = s.now()
	user.UpdatedAt = user.CreatedAt

	stored := cloneUser(&user)
	s.users[user.Id] = &stored
	s.emails[email] = user.Id
	return user, nil
}

func (s *Store) UserByID(ctx context.Context, id primitive.ObjectID) (models.User, error) {
	if err := alive(ctx); err != nil {
		return models.User{}, fmt.Errorf("memstore.Store.UserByID: %w", err)
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	user, ok := s.users[id]
	if !ok {
		return models.User{}, fmt.Errorf("memstore.Store.UserByID: %w", models.ErrNoUser)
	}
	return cloneUser(user), nil
}

func (s *Store) ListUsers(ctx context.Context, filter query.Filter, plan query.Plan) (query.Page[models.PublicProfile], error) {
	if err := alive(ctx); err != nil {
		return query.Page[models.PublicProfile]{}, fmt.Errorf("memstore.Store.ListUsers: %w", err)
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	matched := make([]models.PublicProfile, 0)
	for _, user := range s.users {
		if user.IsDisabled || (filter.ID != nil && user.Id != *filter.ID) {
			continue
		}
		fields := []string{user.Name.FirstName, user.Name.LastName, user.FreelancerProfile.Bio, user.FreelancerProfile.JobTitle}
		if query.TextMatch(filter.SearchString, fields...) {
			matched = append(matched, user.Public())
		}
	}

	created := make(map[primitive.ObjectID]time.Time, len(matched))
	for _, p := range matched {
		created[p.Id] = s.users[p.Id].CreatedAt
	}
	query.NewestFirst(matched, func(p models.PublicProfile) (time.Time, primitive.ObjectID) {
		return created[p.Id], p.Id
	})

	return query.NewPage(query.Window(matched, plan), int64(len(matched)), plan), nil
}

func (s *Store) UpdateProfile(ctx context.Context, id primitive.ObjectID, update models.ProfileUpdate) (models.User, error) {
	if err := alive(ctx); err != nil {
		return models.User{}, fmt.Errorf("memstore.Store.UpdateProfile: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	user, ok := s.users[id]
	if !ok || user.IsDisabled {
		return models.User{}, fmt.Errorf("memstore.Store.UpdateProfile: %w", models.ErrNoUser)
	}

	update.Apply(user)
	user.UpdatedAt = s.now()
	return cloneUser(user), nil
}

func (s *Store) SetProfileImage(ctx context.Context, id primitive.ObjectID, url string) (models.User, error) {
	if err := alive(ctx); err != nil {
		return models.User{}, fmt.Errorf("memstore.Store.SetProfileImage: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	user, ok := s.users[id]
	if !ok || user.IsDisabled {
		return models.User{}, fmt.Errorf("memstore.Store.SetProfileImage: %w", models.ErrNoUser)
	}

	user.ImageUrl = url
	user.UpdatedAt = s.now()
	return cloneUser(user), nil
}

func (s *Store) AddRating(ctx context.Context, subject primitive.ObjectID, role models.RaterRole, rating models.Rating) (models.User, bool, error) {
	if err := alive(ctx); err != nil {
		return models.User{}, false, fmt.Errorf("memstore.Store.AddRating: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	user, ok := s.users[subject]
	if !ok {
		return models.User{}, false, fmt.Errorf("memstore.Store.AddRating: %w", models.ErrNoUser)
	}
	if _, dup := user.RatingFor(rating.Job, rating.Author); dup {
		return cloneUser(user), false, nil
	}

	user.Ratings = append(user.Ratings, rating)
	average := models.AverageScore(user.Ratings)
	if role.RatesFreelancer() {
		user.FreelancerProfile.Rating = average
	} else {
		user.EmployerProfile.Rating = average
	}
	user.RatingCount++
	user.UpdatedAt = s.now()

	return cloneUser(user), true, nil
}

func (s *Store) ApplyLedgerLeg(ctx context.Context, userId primitive.ObjectID, leg models.LedgerLeg, key string, amount float64) (bool, error) {
	if err := alive(ctx); err != nil {
		return false, fmt.Errorf("memstore.Store.ApplyLedgerLeg: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	user, ok := s.users[userId]
	if !ok {
		return false, fmt.Errorf("memstore.Store.ApplyLedgerLeg: %w", models.ErrNoUser)
	}
	if user.HasLedgerKey(key) {
		return false, nil
	}

	switch leg {
	case models.LegEarning:
		user.FreelancerProfile.Earning += amount
		user.FreelancerProfile.Projects++
	case models.LegSpent:
		user.EmployerProfile.Spent += amount
		user.EmployerProfile.ProjectsCompleted++
	default:
		return false, fmt.Errorf("memstore.Store.ApplyLedgerLeg: unknown ledger leg %q", leg)
	}
	user.LedgerKeys = append(user.LedgerKeys, key)
	user.UpdatedAt = s.now()
	return true, nil
}
