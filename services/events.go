package services

import (
	"time"

	"marketplace-service/models"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Event type names, also used as the SNS event_type attribute.
const (
	EventOrderCreated         = "order_created"
	EventOrderStatusChanged   = "order_status_changed"
	EventVerificationReviewed = "verification_reviewed"
	EventProductChanged       = "product_changed"
	EventProductDeleted       = "product_deleted"
	EventHomepageChanged      = "homepage_changed"
)

func sectionsChanged() models.SectionsChangedEvent {
	return models.SectionsChangedEvent{EventType: EventHomepageChanged, Timestamp: time.Now().UTC()}
}

func productChanged(id primitive.ObjectID) models.ProductChangedEvent {
	return models.ProductChangedEvent{EventType: EventProductChanged, ProductID: id.Hex(), Timestamp: time.Now().UTC()}
}

func hexIDs(ids []primitive.ObjectID) []string {
	out := make([]string, len(ids))
	for i, id := range ids {
		out[i] = id.Hex()
	}
	return out
}

func orderStatusChanged(order *models.Order, status, scope string) models.OrderStatusChangedEvent {
	return models.OrderStatusChangedEvent{
		EventType:   EventOrderStatusChanged,
		OrderID:     order.ID.Hex(),
		UserID:      order.User.Hex(),
		SellerIDs:   hexIDs(order.SellerIDs()),
		Status:      status,
		Scope:       scope,
		IsDelivered: order.IsDelivered,
		Timestamp:   time.Now().UTC(),
	}
}
