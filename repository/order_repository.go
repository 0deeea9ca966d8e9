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

type OrderRepository struct {
	collection *mongo.Collection
}

func NewOrderRepository(db *mongo.Database) *OrderRepository {
	return &OrderRepository{collection: db.Collection(database.OrdersCollection)}
}

func (r *OrderRepository) Create(ctx context.Context, order *models.Order) error {
	now := time.Now().UTC()
	if order.ID.IsZero() {
		order.ID = primitive.NewObjectID()
	}
	order.Version = 1
	order.CreatedAt, order.UpdatedAt = now, now
	_, err := r.collection.InsertOne(ctx, order)
	return translate(err)
}

func (r *OrderRepository) FindByID(ctx context.Context, id primitive.ObjectID) (*models.Order, error) {
	return findOne[models.Order](ctx, r.collection, bson.M{"_id": id})
}

func (r *OrderRepository) Find(ctx context.Context, filter models.OrderFilter, page models.Page) ([]*models.Order, int64, error) {
	return findPage[models.Order](ctx, r.collection, OrderFilterDoc(filter),
		bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: -1}}, page)
}

func (r *OrderRepository) FindDeliveredBySeller(ctx context.Context, seller primitive.ObjectID) ([]*models.Order, error) {
	return findAll[models.Order](ctx, r.collection,
		bson.M{"order_items.seller": seller, "is_delivered": true},
		options.Find().SetProjection(bson.M{"status_updates": 0, "shipping_address": 0}))
}

// Replace writes order if the stored version still equals order.Version, then advances it.
func (r *OrderRepository) Replace(ctx context.Context, order *models.Order) error {
	expected := order.Version
	order.Version = expected + 1
	order.UpdatedAt = time.Now().UTC()

	res, err := r.collection.ReplaceOne(ctx, bson.M{"_id": order.ID, "version": expected}, order)
	if err != nil {
		order.Version = expected
		return translate(err)
	}
	if res.MatchedCount == 1 {
		return nil
	}

	order.Version = expected
	n, err := r.collection.CountDocuments(ctx, bson.M{"_id": order.ID}, options.Count().SetLimit(1))
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return ErrVersionConflict
}

// PaymentClaimed reports whether an order other than except already records paymentID.
func (r *OrderRepository) PaymentClaimed(ctx context.Context, paymentID string, except primitive.ObjectID) (bool, error) {
	n, err := r.collection.CountDocuments(ctx,
		bson.M{"payment_result.id": paymentID, "_id": bson.M{"$ne": except}},
		options.Count().SetLimit(1))
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// DeliveredRevenueBySeller sums price*quantity of delivered orders per seller.
func (r *OrderRepository) DeliveredRevenueBySeller(ctx context.Context) (map[primitive.ObjectID]float64, error) {
	cursor, err := r.collection.Aggregate(ctx, mongo.Pipeline{
		{{Key: "$match", Value: bson.M{"is_delivered": true}}},
		{{Key: "$unwind", Value: "$order_items"}},
		{{Key: "$group", Value: bson.M{
			"_id": "$order_items.seller",
			"revenue": bson.M{"$sum": bson.M{
				"$multiply": bson.A{"$order_items.price", "$order_items.quantity"},
			}},
		}}},
	})
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var rows []struct {
		Seller  primitive.ObjectID `bson:"_id"`
		Revenue float64            `bson:"revenue"`
	}
	if err := cursor.All(ctx, &rows); err != nil {
		return nil, err
	}
	out := make(map[primitive.ObjectID]float64, len(rows))
	for _, row := range rows {
		out[row.Seller] = row.Revenue
	}
	return out, nil
}

// OrderFilterDoc builds the listing filter; Seller matches orders holding any of the seller's items.
func OrderFilterDoc(f models.OrderFilter) bson.M {
	filter := bson.M{}
	if f.User != nil {
		filter["user"] = *f.User
	}
	if f.Seller != nil {
		filter["order_items.seller"] = *f.Seller
	}
	if f.Status != "" {
		filter["status"] = f.Status
	}
	return filter
}
