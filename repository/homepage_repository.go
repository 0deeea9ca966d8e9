package repository

import (
	"context"
	"errors"
	"time"

	"marketplace-service/database"
	"marketplace-service/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type HomepageRepository struct {
	collection *mongo.Collection
}

func NewHomepageRepository(db *mongo.Database) *HomepageRepository {
	return &HomepageRepository{collection: db.Collection(database.HomepageSectionsCollection)}
}

func (r *HomepageRepository) Create(ctx context.Context, section *models.HomePageSection) error {
	now := time.Now().UTC()
	if section.ID.IsZero() {
		section.ID = primitive.NewObjectID()
	}
	section.CreatedAt, section.UpdatedAt = now, now
	_, err := r.collection.InsertOne(ctx, section)
	return translate(err)
}

func (r *HomepageRepository) FindByID(ctx context.Context, id primitive.ObjectID) (*models.HomePageSection, error) {
	return findOne[models.HomePageSection](ctx, r.collection, bson.M{"_id": id})
}

// FindAll returns sections in display order.
func (r *HomepageRepository) FindAll(ctx context.Context, activeOnly bool) ([]*models.HomePageSection, error) {
	filter := bson.M{}
	if activeOnly {
		filter["active"] = true
	}
	sort := bson.D{{Key: "order", Value: 1}, {Key: "created_at", Value: 1}}
	return findAll[models.HomePageSection](ctx, r.collection, filter, options.Find().SetSort(sort))
}

func (r *HomepageRepository) Replace(ctx context.Context, section *models.HomePageSection) error {
	section.UpdatedAt = time.Now().UTC()
	res, err := r.collection.ReplaceOne(ctx, bson.M{"_id": section.ID}, section)
	if err != nil {
		return translate(err)
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *HomepageRepository) Delete(ctx context.Context, id primitive.ObjectID) error {
	return deleteByID(ctx, r.collection, id)
}

// NextOrder is one past the highest stored order, or 0 when there are no sections.
func (r *HomepageRepository) NextOrder(ctx context.Context) (int, error) {
	var last struct {
		Order int `bson:"order"`
	}
	err := r.collection.FindOne(ctx, bson.M{},
		options.FindOne().SetSort(bson.D{{Key: "order", Value: -1}}).SetProjection(bson.M{"order": 1}),
	).Decode(&last)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return last.Order + 1, nil
}

// SetOrders assigns order i to ids[i] in one ordered bulk write.
func (r *HomepageRepository) SetOrders(ctx context.Context, ids []primitive.ObjectID) error {
	if len(ids) == 0 {
		return nil
	}
	now := time.Now().UTC()
	writes := make([]mongo.WriteModel, 0, len(ids))
	for i, id := range ids {
		writes = append(writes, mongo.NewUpdateOneModel().
			SetFilter(bson.M{"_id": id}).
			SetUpdate(bson.M{"$set": bson.M{"order": i, "updated_at": now}}))
	}
	res, err := r.collection.BulkWrite(ctx, writes, options.BulkWrite().SetOrdered(true))
	if err != nil {
		return err
	}
	if res.MatchedCount != int64(len(ids)) {
		return ErrNotFound
	}
	return nil
}
