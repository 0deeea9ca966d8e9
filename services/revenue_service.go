package services

import (
	"context"
	"fmt"
	"time"

	"marketplace-service/common/auth"
	"marketplace-service/models"
	"marketplace-service/repository"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

const revenueCachePrefix = "revenue:seller:"

// RevenueService reports delivered seller revenue and maintains seller profile stats.
type RevenueService interface {
	GetSellerRevenue(ctx context.Context, p auth.Principal, sellerID string) (*models.SellerRevenue, *ServiceError)
	RefreshSellerStats(ctx context.Context) (int, error)
	InvalidateSellers(ctx context.Context, sellerIDs ...string)
}

type revenueServiceImpl struct {
	orders   repository.OrderRepo
	products repository.ProductRepo
	users    repository.UserRepo
	cache    Cache
	cacheTTL time.Duration
	now      func() time.Time
	logger   *zap.Logger
}

// NewRevenueService creates a new RevenueService. cache may be nil.
func NewRevenueService(
	orders repository.OrderRepo,
	products repository.ProductRepo,
	users repository.UserRepo,
	cache Cache,
	cacheTTL time.Duration,
	logger *zap.Logger,
) RevenueService {
	if cacheTTL <= 0 {
		cacheTTL = time.Minute
	}
	return &revenueServiceImpl{
		orders:   orders,
		products: products,
		users:    users,
		cache:    cacheOrNoop(cache),
		cacheTTL: cacheTTL,
		now:      time.Now,
		logger:   logger,
	}
}

// GetSellerRevenue sums the seller's delivered line items over the last 30 days, the last 90 days
// and all time, by order creation time. Sellers may only read their own report.
func (s *revenueServiceImpl) GetSellerRevenue(ctx context.Context, p auth.Principal, sellerID string) (*models.SellerRevenue, *ServiceError) {
	if sellerID == "" {
		sellerID = p.UserID
	}
	switch {
	case p.IsAdmin():
	case p.Role == models.RoleSeller && p.UserID == sellerID:
	default:
		return nil, forbidden("Not authorized to view this seller's revenue")
	}
	seller, svcErr := parseID(sellerID, "seller")
	if svcErr != nil {
		return nil, svcErr
	}

	key := revenueCachePrefix + seller.Hex()
	var cached models.SellerRevenue
	if s.cache.Get(ctx, key, &cached) {
		return &cached, nil
	}

	orders, err := s.orders.FindDeliveredBySeller(ctx, seller)
	if err != nil {
		return nil, internalError(s.logger, "failed to load seller orders", err)
	}
	report := computeRevenue(seller, orders, s.now().UTC())
	s.cache.Set(ctx, key, report, s.cacheTTL)
	return report, nil
}

func computeRevenue(seller primitive.ObjectID, orders []*models.Order, now time.Time) *models.SellerRevenue {
	report := &models.SellerRevenue{SellerID: seller, GeneratedAt: now}
	since30 := now.AddDate(0, 0, -30)
	since90 := now.AddDate(0, 0, -90)

	for _, order := range orders {
		if !order.IsDelivered {
			continue
		}
		var revenue float64
		var units int
		for _, it := range order.OrderItems {
			if it.Seller == seller {
				revenue += it.LineTotal()
				units += it.Quantity
			}
		}
		if units == 0 {
			continue
		}
		buckets := []*models.RevenueBucket{&report.AllTime}
		if !order.CreatedAt.Before(since90) {
			buckets = append(buckets, &report.Last90Days)
		}
		if !order.CreatedAt.Before(since30) {
			buckets = append(buckets, &report.Last30Days)
		}
		for _, b := range buckets {
			b.Revenue += revenue
			b.Units += units
			b.Orders++
		}
	}
	return report
}

// RefreshSellerStats recomputes total_sales and rating on every seller profile and returns how many
// profiles were updated.
func (s *revenueServiceImpl) RefreshSellerStats(ctx context.Context) (int, error) {
	sellers, err := s.users.ListSellers(ctx)
	if err != nil {
		return 0, fmt.Errorf("list sellers: %w", err)
	}
	revenue, err := s.orders.DeliveredRevenueBySeller(ctx)
	if err != nil {
		return 0, fmt.Errorf("aggregate revenue: %w", err)
	}
	ratings, err := s.products.AverageRatingBySeller(ctx)
	if err != nil {
		return 0, fmt.Errorf("aggregate ratings: %w", err)
	}

	updated := 0
	var firstErr error
	keys := make([]string, 0, len(sellers))
	for _, seller := range sellers {
		err := s.users.Update(ctx, seller.ID, bson.M{
			"seller_profile.total_sales": revenue[seller.ID],
			"seller_profile.rating":      ratings[seller.ID],
		})
		if err != nil {
			s.logger.Warn("failed to refresh seller stats", zap.String("seller_id", seller.ID.Hex()), zap.Error(err))
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		updated++
		keys = append(keys, revenueCachePrefix+seller.ID.Hex())
	}
	s.cache.Delete(ctx, keys...)

	s.logger.Info("Seller stats refreshed", zap.Int("sellers", len(sellers)), zap.Int("updated", updated))
	return updated, firstErr
}

// InvalidateSellers drops cached revenue reports.
func (s *revenueServiceImpl) InvalidateSellers(ctx context.Context, sellerIDs ...string) {
	keys := make([]string, len(sellerIDs))
	for i, id := range sellerIDs {
		keys[i] = revenueCachePrefix + id
	}
	s.cache.Delete(ctx, keys...)
}
