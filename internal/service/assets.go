package service

import (
	"context"
	"fmt"

	"marketplace/internal/models"
	"marketplace/internal/query"
)

//// Assets

func (s *Service) CreateAsset(ctx context.Context, caller models.Identity, asset models.Asset) (models.Asset, error) {
	currency, err := currencyOrDefault(asset.Currency)
	if err != nil {
		return models.Asset{}, fmt.Errorf("service.Service.CreateAsset: %w", err)
	}

	asset = models.Asset{
		Title:       asset.Title,
		Description: asset.Description,
		Price:       asset.Price,
		Currency:    currency,
		ResourceUrl: asset.ResourceUrl,
		Owner:       caller.SubjectId,
	}

	asset, err = s.store.InsertAsset(ctx, asset)
	if err != nil {
		return models.Asset{}, fmt.Errorf("service.Service.CreateAsset: %w", err)
	}
	return asset, nil
}

func (s *Service) ListAssets(ctx context.Context, filter query.Filter) (query.Page[models.Asset], error) {
	plan, err := s.plan(filter)
	if err != nil {
		return query.Page[models.Asset]{}, fmt.Errorf("service.Service.ListAssets: %w", err)
	}

	page, err := s.store.ListAssets(ctx, filter, plan)
	if err != nil {
		return query.Page[models.Asset]{}, fmt.Errorf("service.Service.ListAssets: %w", err)
	}
	return page, nil
}
