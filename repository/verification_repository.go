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

// requestCollection holds the queries shared by both approval queues.
type requestCollection[T any] struct {
	collection *mongo.Collection
}

func (r requestCollection[T]) FindByID(ctx context.Context, id primitive.ObjectID) (*T, error) {
	return findOne[T](ctx, r.collection, bson.M{"_id": id})
}

func (r requestCollection[T]) FindByUser(ctx context.Context, user primitive.ObjectID) ([]*T, error) {
	return findAll[T](ctx, r.collection, bson.M{"user": user},
		options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}}))
}

func (r requestCollection[T]) HasPending(ctx context.Context, user primitive.ObjectID) (bool, error) {
	n, err := r.collection.CountDocuments(ctx,
		bson.M{"user": user, "status": models.RequestPending}, options.Count().SetLimit(1))
	return n > 0, err
}

func (r requestCollection[T]) Find(ctx context.Context, filter models.RequestFilter, page models.Page) ([]*T, int64, error) {
	doc := bson.M{}
	if filter.Status != "" {
		doc["status"] = filter.Status
	}
	if filter.User != nil {
		doc["user"] = *filter.User
	}
	return findPage[T](ctx, r.collection, doc, bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: -1}}, page)
}

// SetStatus moves a request from one status to another. ErrVersionConflict means the request is
// no longer in the from status. Moving back to pending clears the review fields.
func (r requestCollection[T]) SetStatus(ctx context.Context, id primitive.ObjectID, from, to models.RequestStatus, review models.ReviewInfo) error {
	now := time.Now().UTC()
	update := bson.M{}
	if to == models.RequestPending {
		update["$set"] = bson.M{"status": to, "updated_at": now}
		update["$unset"] = bson.M{"review_note": "", "reviewed_by": "", "reviewed_at": ""}
	} else {
		set := bson.M{"status": to, "updated_at": now, "review_note": review.ReviewNote}
		if review.ReviewedBy != nil {
			set["reviewed_by"] = *review.ReviewedBy
		}
		if review.ReviewedAt != nil {
			set["reviewed_at"] = *review.ReviewedAt
		}
		update["$set"] = set
	}

	res, err := r.collection.UpdateOne(ctx, bson.M{"_id": id, "status": from}, update)
	if err != nil {
		return err
	}
	if res.MatchedCount == 1 {
		return nil
	}
	n, err := r.collection.CountDocuments(ctx, bson.M{"_id": id}, options.Count().SetLimit(1))
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return ErrVersionConflict
}

type SellerApplicationRepository struct {
	requestCollection[models.SellerApplication]
}

func NewSellerApplicationRepository(db *mongo.Database) *SellerApplicationRepository {
	return &SellerApplicationRepository{
		requestCollection[models.SellerApplication]{collection: db.Collection(database.SellerApplicationsCollection)},
	}
}

// Create inserts a pending application. The partial unique index on pending requests turns a
// concurrent second submission into ErrDuplicate.
func (r *SellerApplicationRepository) Create(ctx context.Context, app *models.SellerApplication) error {
	now := time.Now().UTC()
	if app.ID.IsZero() {
		app.ID = primitive.NewObjectID()
	}
	if app.Documents == nil {
		app.Documents = []models.Document{}
	}
	app.Status = models.RequestPending
	app.CreatedAt, app.UpdatedAt = now, now
	_, err := r.collection.InsertOne(ctx, app)
	return translate(err)
}

type BrandVerificationRepository struct {
	requestCollection[models.BrandVerification]
}

func NewBrandVerificationRepository(db *mongo.Database) *BrandVerificationRepository {
	return &BrandVerificationRepository{
		requestCollection[models.BrandVerification]{collection: db.Collection(database.BrandVerificationsCollection)},
	}
}

func (r *BrandVerificationRepository) Create(ctx context.Context, req *models.BrandVerification) error {
	now := time.Now().UTC()
	if req.ID.IsZero() {
		req.ID = primitive.NewObjectID()
	}
	if req.Documents == nil {
		req.Documents = []models.Document{}
	}
	req.Status = models.RequestPending
	req.CreatedAt, req.UpdatedAt = now, now
	_, err := r.collection.InsertOne(ctx, req)
	return translate(err)
}
