package memstore

import (
	"context"
	"fmt"
	"time"

	"marketplace/internal/models"
	"marketplace/internal/query"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

func (s *Store) InsertAsset(ctx context.Context, asset models.Asset) (models.Asset, error) {
	if err := alive(ctx); err != nil {
		return asset, fmt.Errorf("memstore.Store.InsertAsset: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if asset.Id.IsZero() {
		asset.Id = primitive.NewObjectID()
	}
	asset.OwnerProfile = nil
	asset.CreatedAt = s.now()
	asset.UpdatedAt = asset.CreatedAt

	stored := asset
	s.assets[asset.Id] = &stored
	return asset, nil
}

func (s *Store) ListAssets(ctx context.Context, filter query.Filter, plan query.Plan) (query.Page[models.Asset], error) {
	if err := alive(ctx); err != nil {
		return query.Page[models.Asset]{}, fmt.Errorf("memstore.Store.ListAssets: %w", err)
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	matched := make([]models.Asset, 0)
	for _, asset := range s.assets {
		switch {
		case asset.IsDisabled:
			continue
		case filter.Owner != nil && asset.Owner != *filter.Owner:
			continue
		case !query.TextMatch(filter.SearchString, asset.Title, asset.Description):
			continue
		}
		matched = append(matched, *asset)
	}
	query.NewestFirst(matched, func(a models.Asset) (time.Time, primitive.ObjectID) {
		return a.CreatedAt, a.Id
	})

	window := query.Window(matched, plan)
	for i := range window {
		window[i].OwnerProfile = s.profile(window[i].Owner)
	}
	return query.NewPage(window, int64(len(matched)), plan), nil
}
