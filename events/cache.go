package events

import (
	"context"

	"marketplace-service/models"
)

type RevenueInvalidator interface {
	InvalidateSellers(ctx context.Context, sellerIDs ...string)
}

type HomepageInvalidator interface {
	InvalidateCache(ctx context.Context)
}

// CacheInvalidator drops cached revenue reports when a seller's orders change and starts a new
// homepage cache generation when products or catalog references change.
type CacheInvalidator struct {
	revenue  RevenueInvalidator
	homepage HomepageInvalidator
}

func NewCacheInvalidator(revenue RevenueInvalidator, homepage HomepageInvalidator) *CacheInvalidator {
	return &CacheInvalidator{revenue: revenue, homepage: homepage}
}

func (c *CacheInvalidator) Handle(ctx context.Context, event models.Event) error {
	switch e := event.(type) {
	case models.OrderStatusChangedEvent:
		c.revenue.InvalidateSellers(ctx, e.SellerIDs...)
	case models.ProductChangedEvent, models.ProductDeletedEvent, models.SectionsChangedEvent:
		c.homepage.InvalidateCache(ctx)
	}
	return nil
}
