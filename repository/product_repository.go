package repository

import (
	"context"
	"errors"
	"regexp"
	"strings"
	"time"

	"marketplace-service/database"
	"marketplace-service/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type ProductRepository struct {
	collection *mongo.Collection
}

func NewProductRepository(db *mongo.Database) *ProductRepository {
	return &ProductRepository{collection: db.Collection(database.ProductsCollection)}
}

func (r *ProductRepository) Create(ctx context.Context, product *models.Product) error {
	now := time.Now().UTC()
	if product.ID.IsZero() {
		product.ID = primitive.NewObjectID()
	}
	// arrays must exist for $push and $size
	if product.Images == nil {
		product.Images = []models.Image{}
	}
	if product.Reviews == nil {
		product.Reviews = []models.Review{}
	}
	product.CreatedAt, product.UpdatedAt = now, now
	_, err := r.collection.InsertOne(ctx, product)
	return translate(err)
}

func (r *ProductRepository) FindByID(ctx context.Context, id primitive.ObjectID) (*models.Product, error) {
	return findOne[models.Product](ctx, r.collection, bson.M{"_id": id})
}

func (r *ProductRepository) FindByIDs(ctx context.Context, ids []primitive.ObjectID) ([]*models.Product, error) {
	if len(ids) == 0 {
		return []*models.Product{}, nil
	}
	return findAll[models.Product](ctx, r.collection, bson.M{"_id": bson.M{"$in": ids}})
}

func (r *ProductRepository) Find(ctx context.Context, filter models.ProductFilter, page models.Page) ([]*models.Product, int64, error) {
	return findPage[models.Product](ctx, r.collection, ProductFilterDoc(filter), ProductSortDoc(filter.Sort), page)
}

// FindByQuery resolves the dynamic product list of a homepage section.
func (r *ProductRepository) FindByQuery(ctx context.Context, query models.ProductQuery, limit int) ([]*models.Product, error) {
	filter, sort := SectionQueryDoc(query)
	opts := options.Find().SetSort(sort).SetLimit(int64(limit))
	return findAll[models.Product](ctx, r.collection, filter, opts)
}

func (r *ProductRepository) CountByCategory(ctx context.Context, category primitive.ObjectID) (int64, error) {
	return r.collection.CountDocuments(ctx, bson.M{"category": category})
}

func (r *ProductRepository) Update(ctx context.Context, id primitive.ObjectID, updates bson.M) error {
	return updateByID(ctx, r.collection, id, updates)
}

func (r *ProductRepository) Delete(ctx context.Context, id primitive.ObjectID) error {
	return deleteByID(ctx, r.collection, id)
}

// AddReview appends review unless its author already reviewed the product, and recomputes
// rating and num_reviews in the same update.
func (r *ProductRepository) AddReview(ctx context.Context, id primitive.ObjectID, review models.Review) (*models.Product, error) {
	filter := bson.M{"_id": id, "reviews.user": bson.M{"$ne": review.User}}
	pipeline := mongo.Pipeline{
		{{Key: "$set", Value: bson.D{
			{Key: "reviews", Value: bson.D{{Key: "$concatArrays", Value: bson.A{
				bson.D{{Key: "$ifNull", Value: bson.A{"$reviews", bson.A{}}}},
				bson.A{bson.D{{Key: "$literal", Value: review}}},
			}}}},
		}}},
		{{Key: "$set", Value: bson.D{
			{Key: "num_reviews", Value: bson.D{{Key: "$size", Value: "$reviews"}}},
			{Key: "rating", Value: bson.D{{Key: "$avg", Value: "$reviews.rating"}}},
			{Key: "updated_at", Value: time.Now().UTC()},
		}}},
	}

	var product models.Product
	err := r.collection.FindOneAndUpdate(ctx, filter, pipeline,
		options.FindOneAndUpdate().SetReturnDocument(options.After)).Decode(&product)
	if err == nil {
		return &product, nil
	}
	if !errors.Is(err, mongo.ErrNoDocuments) {
		return nil, err
	}
	if exists, cerr := r.exists(ctx, id); cerr != nil {
		return nil, cerr
	} else if exists {
		return nil, ErrDuplicate
	}
	return nil, ErrNotFound
}

// DecrementStock reserves qty units only if that many are available, and counts them as sold.
func (r *ProductRepository) DecrementStock(ctx context.Context, id primitive.ObjectID, qty int) error {
	res, err := r.collection.UpdateOne(ctx,
		bson.M{"_id": id, "stock": bson.M{"$gte": qty}},
		bson.M{
			"$inc": bson.M{"stock": -qty, "sales_count": qty},
			"$set": bson.M{"updated_at": time.Now().UTC()},
		},
	)
	if err != nil {
		return err
	}
	if res.MatchedCount == 1 {
		return nil
	}
	exists, err := r.exists(ctx, id)
	if err != nil {
		return err
	}
	if !exists {
		return ErrNotFound
	}
	return ErrInsufficientStock
}

// RestoreStock is the inverse of DecrementStock.
func (r *ProductRepository) RestoreStock(ctx context.Context, id primitive.ObjectID, qty int) error {
	res, err := r.collection.UpdateOne(ctx,
		bson.M{"_id": id},
		bson.M{
			"$inc": bson.M{"stock": qty, "sales_count": -qty},
			"$set": bson.M{"updated_at": time.Now().UTC()},
		},
	)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// AverageRatingBySeller averages product ratings per seller over reviewed products.
func (r *ProductRepository) AverageRatingBySeller(ctx context.Context) (map[primitive.ObjectID]float64, error) {
	cursor, err := r.collection.Aggregate(ctx, mongo.Pipeline{
		{{Key: "$match", Value: bson.M{"num_reviews": bson.M{"$gt": 0}}}},
		{{Key: "$group", Value: bson.M{"_id": "$seller", "rating": bson.M{"$avg": "$rating"}}}},
	})
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var rows []struct {
		Seller primitive.ObjectID `bson:"_id"`
		Rating float64            `bson:"rating"`
	}
	if err := cursor.All(ctx, &rows); err != nil {
		return nil, err
	}
	out := make(map[primitive.ObjectID]float64, len(rows))
	for _, row := range rows {
		out[row.Seller] = row.Rating
	}
	return out, nil
}

func (r *ProductRepository) exists(ctx context.Context, id primitive.ObjectID) (bool, error) {
	n, err := r.collection.CountDocuments(ctx, bson.M{"_id": id}, options.Count().SetLimit(1))
	return n > 0, err
}

// ProductFilterDoc builds the list filter.
func ProductFilterDoc(f models.ProductFilter) bson.M {
	filter := bson.M{}
	if f.Category != nil {
		filter["category"] = *f.Category
	}
	if f.Brand != nil {
		filter["brand"] = *f.Brand
	}
	if f.Seller != nil {
		filter["seller"] = *f.Seller
	}
	if f.IsFeatured != nil {
		filter["is_featured"] = *f.IsFeatured
	}
	if f.InStock != nil {
		if *f.InStock {
			filter["stock"] = bson.M{"$gt": 0}
		} else {
			filter["stock"] = 0
		}
	}
	price := bson.M{}
	if f.MinPrice != nil {
		price["$gte"] = *f.MinPrice
	}
	if f.MaxPrice != nil {
		price["$lte"] = *f.MaxPrice
	}
	if len(price) > 0 {
		filter["price"] = price
	}
	if s := strings.TrimSpace(f.Search); s != "" {
		pattern := primitive.Regex{Pattern: regexp.QuoteMeta(s), Options: "i"}
		filter["$or"] = bson.A{bson.M{"title": pattern}, bson.M{"description": pattern}}
	}
	return filter
}

// ProductSortDoc maps a sort key to a stable sort; unknown keys sort newest first.
func ProductSortDoc(sort string) bson.D {
	var primary bson.E
	switch sort {
	case models.SortPriceAsc:
		primary = bson.E{Key: "price", Value: 1}
	case models.SortPriceDesc:
		primary = bson.E{Key: "price", Value: -1}
	case models.SortBestSelling:
		primary = bson.E{Key: "sales_count", Value: -1}
	case models.SortRating:
		primary = bson.E{Key: "rating", Value: -1}
	default:
		primary = bson.E{Key: "created_at", Value: -1}
	}
	return bson.D{primary, {Key: "_id", Value: 1}}
}

// SectionQueryDoc returns the filter and sort of a dynamic section query.
func SectionQueryDoc(q models.ProductQuery) (bson.M, bson.D) {
	switch q {
	case models.QueryNewArrivals:
		return bson.M{}, bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: 1}}
	case models.QueryBestSellers:
		return bson.M{}, bson.D{{Key: "sales_count", Value: -1}, {Key: "_id", Value: 1}}
	default:
		return bson.M{"is_featured": true}, bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: 1}}
	}
}
