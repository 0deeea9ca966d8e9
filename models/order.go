package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type OrderStatus string

const (
	OrderPending    OrderStatus = "Pending"
	OrderConfirmed  OrderStatus = "Confirmed"
	OrderProcessing OrderStatus = "Processing"
	OrderShipped    OrderStatus = "Shipped"
	OrderDelivered  OrderStatus = "Delivered"
	OrderCancelled  OrderStatus = "Cancelled"
)

// ItemStatus is the seller-scoped fulfillment state of one order item.
type ItemStatus string

const (
	ItemPending    ItemStatus = "pending"
	ItemProcessing ItemStatus = "processing"
	ItemShipped    ItemStatus = "shipped"
	ItemDelivered  ItemStatus = "delivered"
	ItemCancelled  ItemStatus = "cancelled"
)

// OrderItem is a snapshot of the product taken when the order was placed.
type OrderItem struct {
	Product  primitive.ObjectID `bson:"product" json:"product"`
	Seller   primitive.ObjectID `bson:"seller" json:"seller"`
	Name     string             `bson:"name" json:"name"`
	Image    string             `bson:"image" json:"image"`
	Quantity int                `bson:"quantity" json:"quantity"`
	Price    float64            `bson:"price" json:"price"`
	Status   ItemStatus         `bson:"status" json:"status"`
}

// LineTotal is price times quantity.
func (i OrderItem) LineTotal() float64 {
	return i.Price * float64(i.Quantity)
}

type ShippingAddress struct {
	Address    string `bson:"address" json:"address" binding:"required"`
	City       string `bson:"city" json:"city" binding:"required"`
	PostalCode string `bson:"postal_code" json:"postal_code" binding:"required"`
	Country    string `bson:"country" json:"country" binding:"required"`
	Phone      string `bson:"phone,omitempty" json:"phone,omitempty"`
}

type PaymentResult struct {
	ID           string `bson:"id" json:"id" binding:"required"`
	Status       string `bson:"status" json:"status"`
	UpdateTime   string `bson:"update_time,omitempty" json:"update_time,omitempty"`
	EmailAddress string `bson:"email_address,omitempty" json:"email_address,omitempty"`
}

// StatusUpdate is one entry of the append-only audit trail.
type StatusUpdate struct {
	Status    string             `bson:"status" json:"status"`
	UpdatedBy primitive.ObjectID `bson:"updated_by" json:"updated_by"`
	Role      string             `bson:"role" json:"role"`
	Scope     string             `bson:"scope" json:"scope"`
	Note      string             `bson:"note,omitempty" json:"note,omitempty"`
	At        time.Time          `bson:"at" json:"at"`
}

// Audit scopes.
const (
	ScopeOrder        = "order"
	ScopeSellerPrefix = "seller:"
)

type Order struct {
	ID              primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	User            primitive.ObjectID `bson:"user" json:"user"`
	OrderItems      []OrderItem        `bson:"order_items" json:"order_items"`
	ShippingAddress ShippingAddress    `bson:"shipping_address" json:"shipping_address"`
	PaymentMethod   string             `bson:"payment_method" json:"payment_method"`
	PaymentResult   *PaymentResult     `bson:"payment_result,omitempty" json:"payment_result,omitempty"`
	ItemsPrice      float64            `bson:"items_price" json:"items_price"`
	TaxPrice        float64            `bson:"tax_price" json:"tax_price"`
	ShippingPrice   float64            `bson:"shipping_price" json:"shipping_price"`
	TotalPrice      float64            `bson:"total_price" json:"total_price"`
	IsPaid          bool               `bson:"is_paid" json:"is_paid"`
	PaidAt          *time.Time         `bson:"paid_at,omitempty" json:"paid_at,omitempty"`
	IsDelivered     bool               `bson:"is_delivered" json:"is_delivered"`
	DeliveredAt     *time.Time         `bson:"delivered_at,omitempty" json:"delivered_at,omitempty"`
	Status          OrderStatus        `bson:"status" json:"status"`
	StatusUpdates   []StatusUpdate     `bson:"status_updates" json:"status_updates"`
	Version         int64              `bson:"version" json:"-"`
	CreatedAt       time.Time          `bson:"created_at" json:"created_at"`
	UpdatedAt       time.Time          `bson:"updated_at" json:"updated_at"`
}

// HasSeller reports whether any item belongs to seller.
func (o *Order) HasSeller(seller primitive.ObjectID) bool {
	for _, it := range o.OrderItems {
		if it.Seller == seller {
			return true
		}
	}
	return false
}

// SellerIDs returns the distinct sellers of the order in item order.
func (o *Order) SellerIDs() []primitive.ObjectID {
	seen := make(map[primitive.ObjectID]bool)
	var ids []primitive.ObjectID
	for _, it := range o.OrderItems {
		if !seen[it.Seller] {
			seen[it.Seller] = true
			ids = append(ids, it.Seller)
		}
	}
	return ids
}

// ScopedToSeller returns a copy of the order holding only seller's items.
func (o *Order) ScopedToSeller(seller primitive.ObjectID) *Order {
	cp := *o
	cp.OrderItems = nil
	for _, it := range o.OrderItems {
		if it.Seller == seller {
			cp.OrderItems = append(cp.OrderItems, it)
		}
	}
	return &cp
}

// AllItemsShipped reports whether every item, across all sellers, reached shipped or delivered.
func (o *Order) AllItemsShipped() bool {
	if len(o.OrderItems) == 0 {
		return false
	}
	for _, it := range o.OrderItems {
		if it.Status != ItemShipped && it.Status != ItemDelivered {
			return false
		}
	}
	return true
}

// ItemsTotal sums the line totals of every item.
func (o *Order) ItemsTotal() float64 {
	var total float64
	for _, it := range o.OrderItems {
		total += it.LineTotal()
	}
	return total
}

type OrderItemRequest struct {
	Product  string `json:"product" binding:"required,mongodb"`
	Quantity int    `json:"quantity" binding:"required,min=1,max=1000"`
}

// CreateOrderRequest carries the client computed price breakdown, which is stored as supplied.
type CreateOrderRequest struct {
	OrderItems      []OrderItemRequest `json:"order_items" binding:"required,min=1,max=100,dive"`
	ShippingAddress ShippingAddress    `json:"shipping_address" binding:"required"`
	PaymentMethod   string             `json:"payment_method" binding:"required,max=40"`
	ItemsPrice      float64            `json:"items_price" binding:"gte=0"`
	TaxPrice        float64            `json:"tax_price" binding:"gte=0"`
	ShippingPrice   float64            `json:"shipping_price" binding:"gte=0"`
	TotalPrice      float64            `json:"total_price" binding:"gte=0"`
}

type UpdateOrderStatusRequest struct {
	Status OrderStatus `json:"status" binding:"required,oneof=Pending Confirmed Processing Shipped Delivered Cancelled"`
	Note   string      `json:"note" binding:"max=500"`
}

type UpdateItemStatusRequest struct {
	Status ItemStatus `json:"status" binding:"required,oneof=pending processing shipped delivered"`
	Note   string     `json:"note" binding:"max=500"`
}

type CancelOrderRequest struct {
	Reason string `json:"reason" binding:"max=500"`
}

type MarkPaidRequest struct {
	PaymentResult PaymentResult `json:"payment_result" binding:"required"`
}

// PaymentMethodStripe is verified against the Stripe API before an order is marked paid.
const PaymentMethodStripe = "stripe"

// OrderFilter narrows order listings.
type OrderFilter struct {
	User   *primitive.ObjectID
	Seller *primitive.ObjectID
	Status OrderStatus
}

type RevenueBucket struct {
	Revenue float64 `json:"revenue"`
	Orders  int     `json:"orders"`
	Units   int     `json:"units"`
}

// SellerRevenue is the delivered revenue of one seller over fixed windows.
type SellerRevenue struct {
	SellerID    primitive.ObjectID `json:"seller_id"`
	Last30Days  RevenueBucket      `json:"last_30_days"`
	Last90Days  RevenueBucket      `json:"last_90_days"`
	AllTime     RevenueBucket      `json:"all_time"`
	GeneratedAt time.Time          `json:"generated_at"`
}

// OrderCurrency is the ISO currency every order total is priced in.
const OrderCurrency = "usd"
