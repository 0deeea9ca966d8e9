package repository

import (
	"context"

	"marketplace-service/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// UserRepo stores accounts and embedded seller profiles.
type UserRepo interface {
	Create(ctx context.Context, user *models.User) error
	FindByID(ctx context.Context, id primitive.ObjectID) (*models.User, error)
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	FindByIDs(ctx context.Context, ids []primitive.ObjectID) ([]*models.User, error)
	List(ctx context.Context, filter models.UserFilter, page models.Page) ([]*models.User, int64, error)
	ListSellers(ctx context.Context) ([]*models.User, error)
	Update(ctx context.Context, id primitive.ObjectID, updates bson.M) error
}

type CategoryRepo interface {
	Create(ctx context.Context, category *models.Category) error
	FindByID(ctx context.Context, id primitive.ObjectID) (*models.Category, error)
	FindAll(ctx context.Context, activeOnly bool) ([]*models.Category, error)
	Update(ctx context.Context, id primitive.ObjectID, updates bson.M) error
	Delete(ctx context.Context, id primitive.ObjectID) error
}

type BrandRepo interface {
	Create(ctx context.Context, brand *models.Brand) error
	FindByID(ctx context.Context, id primitive.ObjectID) (*models.Brand, error)
	FindAll(ctx context.Context) ([]*models.Brand, error)
	Update(ctx context.Context, id primitive.ObjectID, updates bson.M) error
	Delete(ctx context.Context, id primitive.ObjectID) error
}

// ProductRepo stores the catalog. DecrementStock and RestoreStock are the only writers of stock
// during order processing.
type ProductRepo interface {
	Create(ctx context.Context, product *models.Product) error
	FindByID(ctx context.Context, id primitive.ObjectID) (*models.Product, error)
	FindByIDs(ctx context.Context, ids []primitive.ObjectID) ([]*models.Product, error)
	Find(ctx context.Context, filter models.ProductFilter, page models.Page) ([]*models.Product, int64, error)
	FindByQuery(ctx context.Context, query models.ProductQuery, limit int) ([]*models.Product, error)
	CountByCategory(ctx context.Context, category primitive.ObjectID) (int64, error)
	Update(ctx context.Context, id primitive.ObjectID, updates bson.M) error
	Delete(ctx context.Context, id primitive.ObjectID) error
	AddReview(ctx context.Context, id primitive.ObjectID, review models.Review) (*models.Product, error)
	DecrementStock(ctx context.Context, id primitive.ObjectID, qty int) error
	RestoreStock(ctx context.Context, id primitive.ObjectID, qty int) error
	AverageRatingBySeller(ctx context.Context) (map[primitive.ObjectID]float64, error)
}

// OrderRepo stores orders. Replace is a compare-and-swap on Version.
type OrderRepo interface {
	Create(ctx context.Context, order *models.Order) error
	FindByID(ctx context.Context, id primitive.ObjectID) (*models.Order, error)
	Find(ctx context.Context, filter models.OrderFilter, page models.Page) ([]*models.Order, int64, error)
	FindDeliveredBySeller(ctx context.Context, seller primitive.ObjectID) ([]*models.Order, error)
	Replace(ctx context.Context, order *models.Order) error
	PaymentClaimed(ctx context.Context, paymentID string, except primitive.ObjectID) (bool, error)
	DeliveredRevenueBySeller(ctx context.Context) (map[primitive.ObjectID]float64, error)
}

type SellerApplicationRepo interface {
	Create(ctx context.Context, app *models.SellerApplication) error
	FindByID(ctx context.Context, id primitive.ObjectID) (*models.SellerApplication, error)
	FindByUser(ctx context.Context, user primitive.ObjectID) ([]*models.SellerApplication, error)
	HasPending(ctx context.Context, user primitive.ObjectID) (bool, error)
	Find(ctx context.Context, filter models.RequestFilter, page models.Page) ([]*models.SellerApplication, int64, error)
	SetStatus(ctx context.Context, id primitive.ObjectID, from, to models.RequestStatus, review models.ReviewInfo) error
}

type BrandVerificationRepo interface {
	Create(ctx context.Context, req *models.BrandVerification) error
	FindByID(ctx context.Context, id primitive.ObjectID) (*models.BrandVerification, error)
	FindByUser(ctx context.Context, user primitive.ObjectID) ([]*models.BrandVerification, error)
	HasPending(ctx context.Context, user primitive.ObjectID) (bool, error)
	Find(ctx context.Context, filter models.RequestFilter, page models.Page) ([]*models.BrandVerification, int64, error)
	SetStatus(ctx context.Context, id primitive.ObjectID, from, to models.RequestStatus, review models.ReviewInfo) error
}

type HomepageRepo interface {
	Create(ctx context.Context, section *models.HomePageSection) error
	FindByID(ctx context.Context, id primitive.ObjectID) (*models.HomePageSection, error)
	FindAll(ctx context.Context, activeOnly bool) ([]*models.HomePageSection, error)
	Replace(ctx context.Context, section *models.HomePageSection) error
	Delete(ctx context.Context, id primitive.ObjectID) error
	NextOrder(ctx context.Context) (int, error)
	SetOrders(ctx context.Context, ids []primitive.ObjectID) error
}

type NotificationRepo interface {
	Create(ctx context.Context, notifications ...*models.Notification) error
	List(ctx context.Context, filter models.NotificationFilter) ([]models.Notification, int64, error)
	CountUnread(ctx context.Context, userID string) (int64, error)
	MarkRead(ctx context.Context, userID string, id uint) error
	MarkAllRead(ctx context.Context, userID string) (int64, error)
}
