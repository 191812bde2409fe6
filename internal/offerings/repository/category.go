package repository

import (
	"context"
	"fmt"
	"tripmarket/pkg/cache"
	"tripmarket/pkg/config"
	mongotx "tripmarket/pkg/db/mongo"
	"tripmarket/pkg/model"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

const CategoriesCollection = "Categories"

type CategoryRepository interface {
	FindBySlugs(ctx context.Context, slugs []string) ([]*model.Category, error)
}

type mongoCategoryRepository struct {
	cfg        *config.Config
	collection *mongo.Collection
}

func NewMongoCategoryRepository(cfg *config.Config) CategoryRepository {
	return &mongoCategoryRepository{
		cfg:        cfg,
		collection: cfg.Client.Mongo.Database(cfg.MongoDatabaseName).Collection(CategoriesCollection),
	}
}

func (r *mongoCategoryRepository) FindBySlugs(ctx context.Context, slugs []string) ([]*model.Category, error) {
	if len(slugs) == 0 {
		return []*model.Category{}, nil
	}

	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	cursor, err := r.collection.Find(ctx, bson.M{"_id": bson.M{"$in": slugs}})
	if err != nil {
		return nil, fmt.Errorf("failed to query categories: %w", err)
	}
	defer cursor.Close(ctx)

	var categories []*model.Category
	if err = cursor.All(ctx, &categories); err != nil {
		return nil, fmt.Errorf("failed to decode categories: %w", err)
	}

	return categories, nil
}

type cachedCategoryRepository struct {
	inner CategoryRepository
	cache cache.CategoryCache
}

// NewCachedCategoryRepository serves lookups from c and falls back to inner
// for the slugs it misses.
func NewCachedCategoryRepository(inner CategoryRepository, c cache.CategoryCache) CategoryRepository {
	return &cachedCategoryRepository{inner: inner, cache: c}
}

func (r *cachedCategoryRepository) FindBySlugs(ctx context.Context, slugs []string) ([]*model.Category, error) {
	found := make([]*model.Category, 0, len(slugs))
	var missing []string

	for _, slug := range slugs {
		if c, ok := r.cache.Get(slug); ok {
			found = append(found, c)
			continue
		}
		missing = append(missing, slug)
	}

	if len(missing) == 0 {
		return found, nil
	}

	loaded, err := r.inner.FindBySlugs(ctx, missing)
	if err != nil {
		return nil, err
	}
	for _, c := range loaded {
		r.cache.Set(c)
	}

	return append(found, loaded...), nil
}
