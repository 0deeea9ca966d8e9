package events

import (
	"context"
	"fmt"
	"strings"

	"marketplace-service/models"
)

// NotificationWriter stores inbox entries.
type NotificationWriter interface {
	Notify(ctx context.Context, notifications ...*models.Notification) error
}

// Notifier turns domain events into inbox notifications: sellers hear about new orders, buyers about
// status changes and applicants about review outcomes.
type Notifier struct {
	writer NotificationWriter
}

func NewNotifier(writer NotificationWriter) *Notifier {
	return &Notifier{writer: writer}
}

func (n *Notifier) Handle(ctx context.Context, event models.Event) error {
	var out []*models.Notification
	switch e := event.(type) {
	case models.OrderCreatedEvent:
		for _, seller := range e.SellerIDs {
			out = append(out, &models.Notification{
				UserID:      seller,
				Type:        models.NotificationNewOrder,
				Title:       "New order received",
				Message:     fmt.Sprintf("Order %s contains your products.", e.OrderID),
				ReferenceID: e.OrderID,
			})
		}
	case models.OrderStatusChangedEvent:
		out = append(out, &models.Notification{
			UserID:      e.UserID,
			Type:        models.NotificationOrderStatus,
			Title:       "Order " + strings.ToLower(e.Status),
			Message:     statusMessage(e),
			ReferenceID: e.OrderID,
		})
	case models.VerificationReviewedEvent:
		out = append(out, &models.Notification{
			UserID:      e.UserID,
			Type:        reviewType(e),
			Title:       reviewTitle(e),
			Message:     e.Note,
			ReferenceID: e.RequestID,
		})
	default:
		return nil
	}
	return n.writer.Notify(ctx, out...)
}

func statusMessage(e models.OrderStatusChangedEvent) string {
	if e.Scope != "" && e.Scope != models.ScopeOrder {
		return fmt.Sprintf("Items in order %s are now %s.", e.OrderID, strings.ToLower(e.Status))
	}
	return fmt.Sprintf("Your order %s is now %s.", e.OrderID, strings.ToLower(e.Status))
}

func reviewType(e models.VerificationReviewedEvent) string {
	if e.Kind == models.KindBrandVerification {
		return models.NotificationBrandReviewed
	}
	return models.NotificationApplicationReviewed
}

func reviewTitle(e models.VerificationReviewedEvent) string {
	subject := "Seller application"
	if e.Kind == models.KindBrandVerification {
		subject = "Brand verification"
	}
	return fmt.Sprintf("%s %s", subject, e.Status)
}
