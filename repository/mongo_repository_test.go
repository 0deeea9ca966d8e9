package repository

import (
	"context"
	"testing"

	"marketplace-service/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo/integration/mtest"
)

func matched(n int) bson.D {
	return mtest.CreateSuccessResponse(bson.E{Key: "n", Value: n}, bson.E{Key: "nModified", Value: n})
}

func countResponse(ns string, n int) bson.D {
	if n == 0 {
		return mtest.CreateCursorResponse(0, ns, mtest.FirstBatch)
	}
	return mtest.CreateCursorResponse(0, ns, mtest.FirstBatch, bson.D{{Key: "n", Value: n}})
}

func toDoc(t *testing.T, v interface{}) bson.D {
	t.Helper()
	data, err := bson.Marshal(v)
	require.NoError(t, err)
	var doc bson.D
	require.NoError(t, bson.Unmarshal(data, &doc))
	return doc
}

func TestProductRepository_StockPrimitives(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))
	ns := "test.products"

	mt.Run("decrement succeeds when stock suffices", func(mt *mtest.T) {
		repo := NewProductRepository(mt.DB)
		mt.AddMockResponses(matched(1))

		require.NoError(mt, repo.DecrementStock(context.Background(), primitive.NewObjectID(), 2))

		cmd := mt.GetStartedEvent().Command
		filter := cmd.Lookup("updates").Array().Index(0).Value().Document().Lookup("q").Document()
		assert.Equal(mt, int32(2), filter.Lookup("stock", "$gte").Int32())
	})

	mt.Run("decrement reports insufficient stock", func(mt *mtest.T) {
		repo := NewProductRepository(mt.DB)
		mt.AddMockResponses(matched(0), countResponse(ns, 1))

		err := repo.DecrementStock(context.Background(), primitive.NewObjectID(), 5)
		assert.ErrorIs(mt, err, ErrInsufficientStock)
	})

	mt.Run("decrement reports missing product", func(mt *mtest.T) {
		repo := NewProductRepository(mt.DB)
		mt.AddMockResponses(matched(0), countResponse(ns, 0))

		err := repo.DecrementStock(context.Background(), primitive.NewObjectID(), 1)
		assert.ErrorIs(mt, err, ErrNotFound)
	})

	mt.Run("restore on missing product", func(mt *mtest.T) {
		repo := NewProductRepository(mt.DB)
		mt.AddMockResponses(matched(0))

		assert.ErrorIs(mt, repo.RestoreStock(context.Background(), primitive.NewObjectID(), 1), ErrNotFound)
	})
}

func TestProductRepository_AddReviewDuplicate(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))

	mt.Run("second review by the same user", func(mt *mtest.T) {
		repo := NewProductRepository(mt.DB)
		mt.AddMockResponses(
			mtest.CreateSuccessResponse(bson.E{Key: "value", Value: nil}),
			countResponse("test.products", 1),
		)

		_, err := repo.AddReview(context.Background(), primitive.NewObjectID(), models.Review{
			User:   primitive.NewObjectID(),
			Rating: 4,
		})
		assert.ErrorIs(mt, err, ErrDuplicate)
	})
}

func TestUserRepository_CreateDuplicate(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))

	mt.Run("duplicate email", func(mt *mtest.T) {
		repo := NewUserRepository(mt.DB)
		mt.AddMockResponses(mtest.CreateWriteErrorsResponse(mtest.WriteError{
			Index:   0,
			Code:    11000,
			Message: "E11000 duplicate key error collection: test.users index: email_1",
		}))

		err := repo.Create(context.Background(), &models.User{Username: "ann", Email: "Ann@Example.com"})
		assert.ErrorIs(mt, err, ErrDuplicate)
	})

	mt.Run("find by id not found", func(mt *mtest.T) {
		repo := NewUserRepository(mt.DB)
		mt.AddMockResponses(mtest.CreateCursorResponse(0, "test.users", mtest.FirstBatch))

		_, err := repo.FindByID(context.Background(), primitive.NewObjectID())
		assert.ErrorIs(mt, err, ErrNotFound)
	})
}

func TestOrderRepository_Replace(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))

	mt.Run("advances version", func(mt *mtest.T) {
		repo := NewOrderRepository(mt.DB)
		mt.AddMockResponses(matched(1))

		order := &models.Order{ID: primitive.NewObjectID(), Version: 3}
		require.NoError(mt, repo.Replace(context.Background(), order))
		assert.Equal(mt, int64(4), order.Version)
	})

	mt.Run("stale version conflicts", func(mt *mtest.T) {
		repo := NewOrderRepository(mt.DB)
		mt.AddMockResponses(matched(0), countResponse("test.orders", 1))

		order := &models.Order{ID: primitive.NewObjectID(), Version: 3}
		assert.ErrorIs(mt, repo.Replace(context.Background(), order), ErrVersionConflict)
		assert.Equal(mt, int64(3), order.Version)
	})
}

func TestOrderRepository_PaymentClaimed(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))

	mt.Run("held by another order", func(mt *mtest.T) {
		repo := NewOrderRepository(mt.DB)
		mt.AddMockResponses(countResponse("test.orders", 1))

		self := primitive.NewObjectID()
		claimed, err := repo.PaymentClaimed(context.Background(), "pi_123", self)
		require.NoError(mt, err)
		assert.True(mt, claimed)

		match := mt.GetStartedEvent().Command.Lookup("pipeline").Array().Index(0).Value().Document().Lookup("$match").Document()
		assert.Equal(mt, "pi_123", match.Lookup("payment_result.id").StringValue())
		assert.Equal(mt, self, match.Lookup("_id", "$ne").ObjectID())
	})

	mt.Run("unused", func(mt *mtest.T) {
		repo := NewOrderRepository(mt.DB)
		mt.AddMockResponses(countResponse("test.orders", 0))

		claimed, err := repo.PaymentClaimed(context.Background(), "pi_123", primitive.NewObjectID())
		require.NoError(mt, err)
		assert.False(mt, claimed)
	})
}

func TestSellerApplicationRepository_SetStatus(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))

	mt.Run("already reviewed", func(mt *mtest.T) {
		repo := NewSellerApplicationRepository(mt.DB)
		mt.AddMockResponses(matched(0), countResponse("test.seller_applications", 1))

		err := repo.SetStatus(context.Background(), primitive.NewObjectID(),
			models.RequestPending, models.RequestApproved, models.ReviewInfo{})
		assert.ErrorIs(mt, err, ErrVersionConflict)
	})

	mt.Run("revert clears review fields", func(mt *mtest.T) {
		repo := NewSellerApplicationRepository(mt.DB)
		mt.AddMockResponses(matched(1))

		err := repo.SetStatus(context.Background(), primitive.NewObjectID(),
			models.RequestApproved, models.RequestPending, models.ReviewInfo{})
		require.NoError(mt, err)

		update := mt.GetStartedEvent().Command.Lookup("updates").Array().Index(0).Value().Document().Lookup("u").Document()
		_, err = update.LookupErr("$unset", "reviewed_by")
		assert.NoError(mt, err)
	})
}

func TestHomepageRepository_DecodesVariant(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))

	mt.Run("banner section", func(mt *mtest.T) {
		repo := NewHomepageRepository(mt.DB)
		stored := models.HomePageSection{
			ID:    primitive.NewObjectID(),
			Title: "Hero",
			Type:  models.SectionBanner,
			Content: models.BannerContent{Slides: []models.BannerSlide{
				{Image: "https://cdn.example.com/hero.jpg", Title: "Spring"},
			}},
			Active: true,
		}
		mt.AddMockResponses(mtest.CreateCursorResponse(0, "test.homepage_sections", mtest.FirstBatch, toDoc(mt.T, stored)))

		got, err := repo.FindByID(context.Background(), stored.ID)
		require.NoError(mt, err)
		banner, ok := got.Content.(models.BannerContent)
		require.True(mt, ok)
		assert.Equal(mt, "Spring", banner.Slides[0].Title)
	})

	mt.Run("next order on empty collection", func(mt *mtest.T) {
		repo := NewHomepageRepository(mt.DB)
		mt.AddMockResponses(mtest.CreateCursorResponse(0, "test.homepage_sections", mtest.FirstBatch))

		n, err := repo.NextOrder(context.Background())
		require.NoError(mt, err)
		assert.Zero(mt, n)
	})
}

func TestProductFilterDoc(t *testing.T) {
	cat := primitive.NewObjectID()
	minPrice, maxPrice := 10.0, 50.0
	inStock := true

	filter := ProductFilterDoc(models.ProductFilter{
		Category: &cat,
		MinPrice: &minPrice,
		MaxPrice: &maxPrice,
		InStock:  &inStock,
		Search:   "lamp (desk)",
	})

	assert.Equal(t, cat, filter["category"])
	assert.Equal(t, bson.M{"$gte": 10.0, "$lte": 50.0}, filter["price"])
	assert.Equal(t, bson.M{"$gt": 0}, filter["stock"])
	or := filter["$or"].(bson.A)
	assert.Equal(t, `lamp \(desk\)`, or[0].(bson.M)["title"].(primitive.Regex).Pattern)
}

func TestProductSortDoc(t *testing.T) {
	assert.Equal(t, "sales_count", ProductSortDoc(models.SortBestSelling)[0].Key)
	assert.Equal(t, bson.E{Key: "price", Value: 1}, ProductSortDoc(models.SortPriceAsc)[0])
	assert.Equal(t, "created_at", ProductSortDoc("bogus")[0].Key)
}

func TestSectionQueryDoc(t *testing.T) {
	filter, sort := SectionQueryDoc(models.QueryBestSellers)
	assert.Empty(t, filter)
	assert.Equal(t, bson.E{Key: "sales_count", Value: -1}, sort[0])

	filter, _ = SectionQueryDoc(models.QueryFeatured)
	assert.Equal(t, true, filter["is_featured"])
}

func TestOrderFilterDoc(t *testing.T) {
	seller := primitive.NewObjectID()
	filter := OrderFilterDoc(models.OrderFilter{Seller: &seller, Status: models.OrderShipped})
	assert.Equal(t, seller, filter["order_items.seller"])
	assert.Equal(t, models.OrderShipped, filter["status"])
	assert.NotContains(t, filter, "user")
}
