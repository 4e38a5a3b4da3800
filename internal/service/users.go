package service

import (
	"context"
	"fmt"
	"strings"

	"marketplace/internal/models"
	"marketplace/internal/query"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

//// Users

func (s *Service) CreateProfile(ctx context.Context, user models.User) (models.User, error) {
	if len(user.Role) == 0 {
		user.Role = models.RoleUser
	}
	if !models.ValidUserRole(user.Role) {
		return models.User{}, fmt.Errorf("service.Service.CreateProfile: %w: %s", models.ErrInvalidUserRole, user.Role)
	}

	user = models.User{
		Name:     user.Name,
		Email:    strings.TrimSpace(user.Email),
		Role:     user.Role,
		ImageUrl: user.ImageUrl,
		FreelancerProfile: models.FreelancerProfile{
			JobTitle: user.FreelancerProfile.JobTitle,
			Bio:      user.FreelancerProfile.Bio,
		},
		Ratings:    []models.Rating{},
		LedgerKeys: []string{},
	}

	user, err := s.store.InsertUser(ctx, user)
	if err != nil {
		return models.User{}, fmt.Errorf("service.Service.CreateProfile: %w", err)
	}
	return user, nil
}

func (s *Service) GetProfile(ctx context.Context, userId primitive.ObjectID) (models.User, error) {
	user, err := s.store.UserByID(ctx, userId)
	if err != nil {
		return models.User{}, fmt.Errorf("service.Service.GetProfile: %w", err)
	}
	return user, nil
}

// UpdateProfile changes the caller's name, job title or bio.
func (s *Service) UpdateProfile(ctx context.Context, caller models.Identity, update models.ProfileUpdate) (models.User, error) {
	if update.Empty() {
		return models.User{}, fmt.Errorf("service.Service.UpdateProfile: %w", models.ErrEmptyUpdate)
	}

	user, err := s.store.UpdateProfile(ctx, caller.SubjectId, update)
	if err != nil {
		return models.User{}, fmt.Errorf("service.Service.UpdateProfile: %w", err)
	}
	return user, nil
}

func (s *Service) SetProfileImage(ctx context.Context, caller models.Identity, url string) (models.User, error) {
	user, err := s.store.SetProfileImage(ctx, caller.SubjectId, strings.TrimSpace(url))
	if err != nil {
		return models.User{}, fmt.Errorf("service.Service.SetProfileImage: %w", err)
	}
	return user, nil
}

func (s *Service) ListUsers(ctx context.Context, filter query.Filter) (query.Page[models.PublicProfile], error) {
	plan, err := s.plan(filter)
	if err != nil {
		return query.Page[models.PublicProfile]{}, fmt.Errorf("service.Service.ListUsers: %w", err)
	}

	page, err := s.store.ListUsers(ctx, filter, plan)
	if err != nil {
		return query.Page[models.PublicProfile]{}, fmt.Errorf("service.Service.ListUsers: %w", err)
	}
	return page, nil
}
