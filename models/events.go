package models

import "time"

// In-process bus topics. Each event is also forwarded to SNS with its EventType as attribute.
const (
	TopicOrderCreated         = "order:created"
	TopicOrderStatusChanged   = "order:status_changed"
	TopicVerificationReviewed = "verification:reviewed"
	TopicProductChanged       = "product:changed"
	TopicProductDeleted       = "product:deleted"
	TopicSectionsChanged      = "homepage:changed"
)

// Event is implemented by every payload published on the bus.
type Event interface {
	Type() string
}

type OrderCreatedEvent struct {
	EventType  string    `json:"event_type"`
	OrderID    string    `json:"order_id"`
	UserID     string    `json:"user_id"`
	SellerIDs  []string  `json:"seller_ids"`
	ItemCount  int       `json:"item_count"`
	TotalPrice float64   `json:"total_price"`
	Timestamp  time.Time `json:"timestamp"`
}

type OrderStatusChangedEvent struct {
	EventType   string    `json:"event_type"`
	OrderID     string    `json:"order_id"`
	UserID      string    `json:"user_id"`
	SellerIDs   []string  `json:"seller_ids"`
	Status      string    `json:"status"`
	Scope       string    `json:"scope"`
	IsDelivered bool      `json:"is_delivered"`
	Timestamp   time.Time `json:"timestamp"`
}

type VerificationReviewedEvent struct {
	EventType string    `json:"event_type"`
	Kind      string    `json:"kind"`
	RequestID string    `json:"request_id"`
	UserID    string    `json:"user_id"`
	Status    string    `json:"status"`
	Note      string    `json:"note,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

type ProductChangedEvent struct {
	EventType string    `json:"event_type"`
	ProductID string    `json:"product_id"`
	Timestamp time.Time `json:"timestamp"`
}

// ProductDeletedEvent carries the stored objects to clean up. Prefixes are deleted recursively.
type ProductDeletedEvent struct {
	EventType string    `json:"event_type"`
	ProductID string    `json:"product_id"`
	SellerID  string    `json:"seller_id"`
	AssetKeys []string  `json:"asset_keys"`
	Prefixes  []string  `json:"prefixes"`
	Timestamp time.Time `json:"timestamp"`
}

type SectionsChangedEvent struct {
	EventType string    `json:"event_type"`
	Timestamp time.Time `json:"timestamp"`
}

func (e OrderCreatedEvent) Type() string         { return e.EventType }
func (e OrderStatusChangedEvent) Type() string   { return e.EventType }
func (e VerificationReviewedEvent) Type() string { return e.EventType }
func (e ProductChangedEvent) Type() string       { return e.EventType }
func (e ProductDeletedEvent) Type() string       { return e.EventType }
func (e SectionsChangedEvent) Type() string      { return e.EventType }
