package repository

import (
	"context"
	"time"

	"marketplace-service/database"
	"marketplace-service/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type CategoryRepository struct {
	collection *mongo.Collection
}

func NewCategoryRepository(db *mongo.Database) *CategoryRepository {
	return &CategoryRepository{collection: db.Collection(database.CategoriesCollection)}
}

func (r *CategoryRepository) Create(ctx context.Context, category *models.Category) error {
	now := time.Now().UTC()
	if category.ID.IsZero() {
		category.ID = primitive.NewObjectID()
	}
	category.CreatedAt, category.UpdatedAt = now, now
	_, err := r.collection.InsertOne(ctx, category)
	return translate(err)
}

func (r *CategoryRepository) FindByID(ctx context.Context, id primitive.ObjectID) (*models.Category, error) {
	return findOne[models.Category](ctx, r.collection, bson.M{"_id": id})
}

func (r *CategoryRepository) FindAll(ctx context.Context, activeOnly bool) ([]*models.Category, error) {
	filter := bson.M{}
	if activeOnly {
		filter["active"] = true
	}
	return findAll[models.Category](ctx, r.collection, filter, options.Find().SetSort(bson.D{{Key: "name", Value: 1}}))
}

func (r *CategoryRepository) Update(ctx context.Context, id primitive.ObjectID, updates bson.M) error {
	return updateByID(ctx, r.collection, id, updates)
}

func (r *CategoryRepository) Delete(ctx context.Context, id primitive.ObjectID) error {
	return deleteByID(ctx, r.collection, id)
}

type BrandRepository struct {
	collection *mongo.Collection
}

func NewBrandRepository(db *mongo.Database) *BrandRepository {
	return &BrandRepository{collection: db.Collection(database.BrandsCollection)}
}

func (r *BrandRepository) Create(ctx context.Context, brand *models.Brand) error {
	now := time.Now().UTC()
	if brand.ID.IsZero() {
		brand.ID = primitive.NewObjectID()
	}
	brand.CreatedAt, brand.UpdatedAt = now, now
	_, err := r.collection.InsertOne(ctx, brand)
	return translate(err)
}

func (r *BrandRepository) FindByID(ctx context.Context, id primitive.ObjectID) (*models.Brand, error) {
	return findOne[models.Brand](ctx, r.collection, bson.M{"_id": id})
}

func (r *BrandRepository) FindAll(ctx context.Context) ([]*models.Brand, error) {
	return findAll[models.Brand](ctx, r.collection, bson.M{}, options.Find().SetSort(bson.D{{Key: "name", Value: 1}}))
}

func (r *BrandRepository) Update(ctx context.Context, id primitive.ObjectID, updates bson.M) error {
	return updateByID(ctx, r.collection, id, updates)
}

func (r *BrandRepository) Delete(ctx context.Context, id primitive.ObjectID) error {
	return deleteByID(ctx, r.collection, id)
}
