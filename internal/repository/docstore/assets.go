package docstore

import (
	"context"

	"marketplace/internal/models"
	"marketplace/internal/query"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

func (s *Store) InsertAsset(ctx context.Context, asset models.Asset) (models.Asset, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	if asset.Id.IsZero() {
		asset.Id = primitive.NewObjectID()
	}
	asset.OwnerProfile = nil
	asset.CreatedAt = now()
	asset.UpdatedAt = asset.CreatedAt

	_, err := s.assets.InsertOne(ctx, asset)
	if err != nil {
		return asset, unavailable("InsertAsset", err)
	}
	return asset, nil
}

func (s *Store) ListAssets(ctx context.Context, filter query.Filter, plan query.Plan) (query.Page[models.Asset], error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	cursor, err := s.assets.Aggregate(ctx, assetsPipeline(filter, plan))
	if err != nil {
		return query.Page[models.Asset]{}, unavailable("ListAssets", err)
	}
	defer cursor.Close(ctx)

	var result []facetResult[models.Asset]
	if err := cursor.All(ctx, &result); err != nil {
		return query.Page[models.Asset]{}, unavailable("ListAssets", err)
	}
	if len(result) == 0 {
		return query.NewPage[models.Asset](nil, 0, plan), nil
	}
	return result[0].page(plan), nil
}
