package services

import (
	"context"
	"errors"
	"fmt"
	"math"
	"net/http"
	"strings"
	"time"

	"marketplace-service/common/auth"
	"marketplace-service/models"
	"marketplace-service/repository"
	aws_pkg "marketplace-service/pkg/aws"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// maxOrderWriteAttempts bounds the compare-and-swap retries of one order mutation.
const maxOrderWriteAttempts = 3

const paymentClaimedMsg = "Payment is already recorded on another order"

// OrderService places orders and drives their status.
type OrderService interface {
	CreateOrder(ctx context.Context, p auth.Principal, req *models.CreateOrderRequest) (*models.Order, *ServiceError)
	UpdateOrderStatus(ctx context.Context, p auth.Principal, id string, req *models.UpdateOrderStatusRequest) (*models.Order, *ServiceError)
	CancelMyOrder(ctx context.Context, p auth.Principal, id string, reason string) (*models.Order, *ServiceError)
	UpdateSellerItemStatus(ctx context.Context, p auth.Principal, id string, req *models.UpdateItemStatusRequest) (*models.Order, *ServiceError)
	MarkOrderPaid(ctx context.Context, p auth.Principal, id string, req *models.MarkPaidRequest) (*models.Order, *ServiceError)
	GetOrder(ctx context.Context, p auth.Principal, id string) (*models.Order, *ServiceError)
	ListMyOrders(ctx context.Context, p auth.Principal, status models.OrderStatus, page models.Page) ([]*models.Order, models.MetaData, *ServiceError)
	ListOrders(ctx context.Context, status models.OrderStatus, page models.Page) ([]*models.Order, models.MetaData, *ServiceError)
	ListSellerOrders(ctx context.Context, p auth.Principal, status models.OrderStatus, page models.Page) ([]*models.Order, models.MetaData, *ServiceError)
}

type orderServiceImpl struct {
	orders   repository.OrderRepo
	products repository.ProductRepo
	tx       repository.Transactor
	payments PaymentVerifier
	events   EventPublisher
	metrics  MetricsRecorder
	logger   *zap.Logger
}

// NewOrderService creates a new OrderService. payments may be nil, in which case stripe orders
// cannot be marked paid.
func NewOrderService(
	orders repository.OrderRepo,
	products repository.ProductRepo,
	tx repository.Transactor,
	payments PaymentVerifier,
	events EventPublisher,
	metrics MetricsRecorder,
	logger *zap.Logger,
) OrderService {
	if tx == nil {
		tx = repository.PassthroughTransactor{}
	}
	return &orderServiceImpl{
		orders:   orders,
		products: products,
		tx:       tx,
		payments: payments,
		events:   publisherOrNoop(events),
		metrics:  metrics,
		logger:   logger,
	}
}

// CreateOrder reserves stock for every item and inserts the order as one unit. On any failure every
// reservation already made is given back, so stock is unchanged.
func (s *orderServiceImpl) CreateOrder(ctx context.Context, p auth.Principal, req *models.CreateOrderRequest) (*models.Order, *ServiceError) {
	if len(req.OrderItems) == 0 {
		return nil, badRequest("No order items")
	}
	productIDs := make([]primitive.ObjectID, len(req.OrderItems))
	for i, it := range req.OrderItems {
		if it.Quantity < 1 {
			return nil, badRequest("Quantity must be at least 1")
		}
		oid, svcErr := parseID(it.Product, "product")
		if svcErr != nil {
			return nil, svcErr
		}
		productIDs[i] = oid
	}
	buyer, svcErr := principalID(p)
	if svcErr != nil {
		return nil, svcErr
	}

	var order *models.Order
	err := s.tx.WithTransaction(ctx, func(txCtx context.Context) error {
		comp := &compensation{}
		items, err := s.reserveItems(txCtx, comp, productIDs, req.OrderItems)
		if err == nil {
			now := time.Now().UTC()
			order = &models.Order{
				User:            buyer,
				OrderItems:      items,
				ShippingAddress: req.ShippingAddress,
				PaymentMethod:   req.PaymentMethod,
				ItemsPrice:      req.ItemsPrice,
				TaxPrice:        req.TaxPrice,
				ShippingPrice:   req.ShippingPrice,
				TotalPrice:      req.TotalPrice,
				Status:          models.OrderPending,
				StatusUpdates: []models.StatusUpdate{{
					Status:    string(models.OrderPending),
					UpdatedBy: buyer,
					Role:      p.Role,
					Scope:     models.ScopeOrder,
					Note:      "Order placed",
					At:        now,
				}},
			}
			err = s.orders.Create(txCtx, order)
		}
		if err != nil {
			comp.run(txCtx, s.logger)
		}
		return err
	})
	if err != nil {
		var svcErr *ServiceError
		if errors.As(err, &svcErr) && svcErr.StatusCode == http.StatusBadRequest {
			recordMetrics(s.metrics, func(ctx context.Context, m MetricsRecorder) {
				_ = m.RecordCount(ctx, aws_pkg.MetricStockConflicts, nil)
			})
		}
		recordMetrics(s.metrics, func(ctx context.Context, m MetricsRecorder) {
			_ = m.RecordCount(ctx, aws_pkg.MetricOrdersFailed, nil)
		})
		return nil, fromRepo(s.logger, err, "Product not found", "failed to create order")
	}

	if diff := math.Abs(order.ItemsTotal() - req.ItemsPrice); diff > 0.01 {
		s.logger.Warn("Order items price differs from line totals",
			zap.String("order_id", order.ID.Hex()),
			zap.Float64("supplied", req.ItemsPrice),
			zap.Float64("computed", order.ItemsTotal()),
		)
	}

	s.logger.Info("Order created",
		zap.String("order_id", order.ID.Hex()),
		zap.String("user_id", p.UserID),
		zap.Int("items", len(order.OrderItems)),
	)
	recordMetrics(s.metrics, func(ctx context.Context, m MetricsRecorder) {
		_ = m.RecordCount(ctx, aws_pkg.MetricOrdersCreated, nil)
		_ = m.RecordValue(ctx, aws_pkg.MetricOrderValue, order.TotalPrice, nil)
	})
	s.events.Publish(models.TopicOrderCreated, models.OrderCreatedEvent{
		EventType:  EventOrderCreated,
		OrderID:    order.ID.Hex(),
		UserID:     order.User.Hex(),
		SellerIDs:  hexIDs(order.SellerIDs()),
		ItemCount:  len(order.OrderItems),
		TotalPrice: order.TotalPrice,
		Timestamp:  time.Now().UTC(),
	})
	return order, nil
}

// reserveItems decrements stock for each requested item and snapshots the product onto the order.
func (s *orderServiceImpl) reserveItems(ctx context.Context, comp *compensation, ids []primitive.ObjectID, reqItems []models.OrderItemRequest) ([]models.OrderItem, error) {
	items := make([]models.OrderItem, 0, len(reqItems))
	for i, it := range reqItems {
		product, err := s.products.FindByID(ctx, ids[i])
		if errors.Is(err, repository.ErrNotFound) {
			return nil, notFound("Product not found")
		}
		if err != nil {
			return nil, fmt.Errorf("load product %s: %w", ids[i].Hex(), err)
		}

		if err := reserveStock(ctx, s.products, comp, product.ID, it.Quantity); err != nil {
			switch {
			case errors.Is(err, repository.ErrInsufficientStock):
				return nil, badRequest("Insufficient stock for " + product.Title)
			case errors.Is(err, repository.ErrNotFound):
				return nil, notFound("Product not found")
			}
			return nil, fmt.Errorf("reserve stock for %s: %w", product.ID.Hex(), err)
		}

		image := ""
		if len(product.Images) > 0 {
			image = product.Images[0].URL
		}
		items = append(items, models.OrderItem{
			Product:  product.ID,
			Seller:   product.Seller,
			Name:     product.Title,
			Image:    image,
			Quantity: it.Quantity,
			Price:    product.Price,
			Status:   models.ItemPending,
		})
	}
	return items, nil
}

// mutateOrder loads the order, applies fn and writes it back with a version check, retrying on
// concurrent modification. fn runs inside the unit of work; stock movements it records on comp are
// undone when the write fails.
func (s *orderServiceImpl) mutateOrder(
	ctx context.Context,
	id string,
	fn func(ctx context.Context, order *models.Order, comp *compensation) error,
) (*models.Order, *ServiceError) {
	oid, svcErr := parseID(id, "order")
	if svcErr != nil {
		return nil, svcErr
	}

	for attempt := 1; attempt <= maxOrderWriteAttempts; attempt++ {
		var order *models.Order
		err := s.tx.WithTransaction(ctx, func(txCtx context.Context) error {
			var err error
			order, err = s.orders.FindByID(txCtx, oid)
			if err != nil {
				return err
			}
			comp := &compensation{}
			err = fn(txCtx, order, comp)
			if err == nil {
				err = s.orders.Replace(txCtx, order)
			}
			if err != nil {
				comp.run(txCtx, s.logger)
			}
			return err
		})
		if err == nil {
			return order, nil
		}
		if errors.Is(err, repository.ErrVersionConflict) {
			s.logger.Warn("Order version conflict, retrying", zap.String("order_id", id), zap.Int("attempt", attempt))
			continue
		}
		// payment_result.id is the only unique order field.
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, badRequest(paymentClaimedMsg)
		}
		return nil, fromRepo(s.logger, err, "Order not found", "failed to update order")
	}
	return nil, newError(http.StatusConflict, "Order was modified concurrently, please retry")
}

func (s *orderServiceImpl) appendUpdate(order *models.Order, p auth.Principal, status, scope, note string, at time.Time) {
	by, _ := primitive.ObjectIDFromHex(p.UserID)
	order.StatusUpdates = append(order.StatusUpdates, models.StatusUpdate{
		Status:    status,
		UpdatedBy: by,
		Role:      p.Role,
		Scope:     scope,
		Note:      strings.TrimSpace(note),
		At:        at,
	})
}

func markDelivered(order *models.Order, at time.Time) {
	order.IsDelivered = true
	if order.DeliveredAt == nil {
		order.DeliveredAt = &at
	}
}

// applyStatus moves the order to status and applies its stock effects. Entering Cancelled gives
// back the stock of every item; leaving Cancelled reserves it again.
func (s *orderServiceImpl) applyStatus(ctx context.Context, comp *compensation, order *models.Order, status models.OrderStatus, now time.Time) error {
	prev := order.Status
	if status == models.OrderCancelled && order.IsDelivered {
		return badRequest("Cannot cancel a delivered order")
	}

	switch {
	case status == models.OrderCancelled && prev != models.OrderCancelled:
		for i := range order.OrderItems {
			it := &order.OrderItems[i]
			if err := releaseStock(ctx, s.products, comp, it.Product, it.Quantity); err != nil {
				return fmt.Errorf("restore stock for %s: %w", it.Product.Hex(), err)
			}
			it.Status = models.ItemCancelled
		}
	case prev == models.OrderCancelled && status != models.OrderCancelled:
		for i := range order.OrderItems {
			it := &order.OrderItems[i]
			if err := reserveStock(ctx, s.products, comp, it.Product, it.Quantity); err != nil {
				if errors.Is(err, repository.ErrInsufficientStock) || errors.Is(err, repository.ErrNotFound) {
					return badRequest("Insufficient stock for " + it.Name)
				}
				return fmt.Errorf("reserve stock for %s: %w", it.Product.Hex(), err)
			}
			it.Status = models.ItemPending
		}
	}

	if status == models.OrderDelivered {
		for i := range order.OrderItems {
			order.OrderItems[i].Status = models.ItemDelivered
		}
		markDelivered(order, now)
	}
	order.Status = status
	return nil
}

func (s *orderServiceImpl) afterStatusChange(order *models.Order, prev models.OrderStatus) {
	s.logger.Info("Order status updated",
		zap.String("order_id", order.ID.Hex()),
		zap.String("from", string(prev)),
		zap.String("to", string(order.Status)),
	)
	if prev != order.Status {
		switch order.Status {
		case models.OrderCancelled:
			recordMetrics(s.metrics, func(ctx context.Context, m MetricsRecorder) {
				_ = m.RecordCount(ctx, aws_pkg.MetricOrdersCancelled, nil)
			})
		case models.OrderDelivered:
			recordMetrics(s.metrics, func(ctx context.Context, m MetricsRecorder) {
				_ = m.RecordCount(ctx, aws_pkg.MetricOrdersDelivered, nil)
			})
		}
	}
	s.events.Publish(models.TopicOrderStatusChanged, orderStatusChanged(order, string(order.Status), models.ScopeOrder))
}

// UpdateOrderStatus lets an admin set any status. Each call appends exactly one status update.
func (s *orderServiceImpl) UpdateOrderStatus(ctx context.Context, p auth.Principal, id string, req *models.UpdateOrderStatusRequest) (*models.Order, *ServiceError) {
	if !p.IsAdmin() {
		return nil, forbidden("Admin access required")
	}
	if !validOrderStatus(req.Status) {
		return nil, badRequest("Invalid order status")
	}

	var prev models.OrderStatus
	order, svcErr := s.mutateOrder(ctx, id, func(ctx context.Context, order *models.Order, comp *compensation) error {
		prev = order.Status
		now := time.Now().UTC()
		if err := s.applyStatus(ctx, comp, order, req.Status, now); err != nil {
			return err
		}
		s.appendUpdate(order, p, string(req.Status), models.ScopeOrder, req.Note, now)
		return nil
	})
	if svcErr != nil {
		return nil, svcErr
	}
	s.afterStatusChange(order, prev)
	return order, nil
}

// CancelMyOrder lets the buyer cancel while the order is still Pending or Confirmed.
func (s *orderServiceImpl) CancelMyOrder(ctx context.Context, p auth.Principal, id string, reason string) (*models.Order, *ServiceError) {
	var prev models.OrderStatus
	order, svcErr := s.mutateOrder(ctx, id, func(ctx context.Context, order *models.Order, comp *compensation) error {
		if order.User.Hex() != p.UserID {
			return forbidden("Not authorized to cancel this order")
		}
		if order.Status != models.OrderPending && order.Status != models.OrderConfirmed {
			return badRequest("Order can no longer be cancelled")
		}
		prev = order.Status
		now := time.Now().UTC()
		if err := s.applyStatus(ctx, comp, order, models.OrderCancelled, now); err != nil {
			return err
		}
		note := strings.TrimSpace(reason)
		if note == "" {
			note = "Cancelled by buyer"
		}
		s.appendUpdate(order, p, string(models.OrderCancelled), models.ScopeOrder, note, now)
		return nil
	})
	if svcErr != nil {
		return nil, svcErr
	}
	s.afterStatusChange(order, prev)
	return order, nil
}

// UpdateSellerItemStatus sets the status of the caller's items only. The order counts as delivered
// once every item of every seller is shipped or delivered.
func (s *orderServiceImpl) UpdateSellerItemStatus(ctx context.Context, p auth.Principal, id string, req *models.UpdateItemStatusRequest) (*models.Order, *ServiceError) {
	seller, svcErr := principalID(p)
	if svcErr != nil {
		return nil, svcErr
	}
	if !validItemStatus(req.Status) {
		return nil, badRequest("Invalid item status")
	}

	scope := models.ScopeSellerPrefix + seller.Hex()
	order, svcErr := s.mutateOrder(ctx, id, func(ctx context.Context, order *models.Order, _ *compensation) error {
		if order.Status == models.OrderCancelled {
			return badRequest("Cannot update items of a cancelled order")
		}
		touched := 0
		for i := range order.OrderItems {
			if order.OrderItems[i].Seller == seller {
				order.OrderItems[i].Status = req.Status
				touched++
			}
		}
		if touched == 0 {
			return forbidden("You have no items in this order")
		}
		now := time.Now().UTC()
		if order.AllItemsShipped() {
			markDelivered(order, now)
		}
		s.appendUpdate(order, p, string(req.Status), scope, req.Note, now)
		return nil
	})
	if svcErr != nil {
		return nil, svcErr
	}

	s.logger.Info("Seller items updated",
		zap.String("order_id", order.ID.Hex()),
		zap.String("seller_id", seller.Hex()),
		zap.String("status", string(req.Status)),
		zap.Bool("is_delivered", order.IsDelivered),
	)
	s.events.Publish(models.TopicOrderStatusChanged, orderStatusChanged(order, string(req.Status), scope))
	return order.ScopedToSeller(seller), nil
}

// MarkOrderPaid records the payment. Stripe payments are confirmed with Stripe first.
func (s *orderServiceImpl) MarkOrderPaid(ctx context.Context, p auth.Principal, id string, req *models.MarkPaidRequest) (*models.Order, *ServiceError) {
	current, svcErr := s.GetOrder(ctx, p, id)
	if svcErr != nil {
		return nil, svcErr
	}
	if current.User.Hex() != p.UserID && !p.IsAdmin() {
		return nil, forbidden("Not authorized to pay for this order")
	}
	if current.PaymentMethod == models.PaymentMethodStripe {
		if svcErr := s.verifyPayment(ctx, current, req.PaymentResult.ID); svcErr != nil {
			return nil, svcErr
		}
	}

	order, svcErr := s.mutateOrder(ctx, id, func(txCtx context.Context, order *models.Order, _ *compensation) error {
		if order.IsPaid {
			return badRequest("Order is already paid")
		}
		if order.Status == models.OrderCancelled {
			return badRequest("Cannot pay for a cancelled order")
		}
		claimed, err := s.orders.PaymentClaimed(txCtx, req.PaymentResult.ID, order.ID)
		if err != nil {
			return err
		}
		if claimed {
			return badRequest(paymentClaimedMsg)
		}
		now := time.Now().UTC()
		result := req.PaymentResult
		order.IsPaid = true
		order.PaidAt = &now
		order.PaymentResult = &result
		return nil
	})
	if svcErr != nil {
		return nil, svcErr
	}
	s.logger.Info("Order paid", zap.String("order_id", order.ID.Hex()), zap.String("payment_id", req.PaymentResult.ID))
	return order, nil
}

// verifyPayment checks that the provider settled exactly this order's total.
func (s *orderServiceImpl) verifyPayment(ctx context.Context, order *models.Order, paymentID string) *ServiceError {
	if s.payments == nil {
		return newError(http.StatusServiceUnavailable, "Payment verification is not configured")
	}
	details, err := s.payments.LookupPayment(ctx, paymentID)
	if err != nil {
		s.logger.Error("payment verification failed", zap.String("order_id", order.ID.Hex()), zap.Error(err))
		return newError(http.StatusBadGateway, "Failed to verify payment")
	}
	if !details.Succeeded {
		return badRequest("Payment has not succeeded")
	}
	if details.OrderID != "" && details.OrderID != order.ID.Hex() {
		return badRequest("Payment belongs to a different order")
	}
	expected := int64(math.Round(order.TotalPrice * 100))
	if details.Amount != expected || !strings.EqualFold(details.Currency, models.OrderCurrency) {
		s.logger.Warn("payment amount mismatch",
			zap.String("order_id", order.ID.Hex()),
			zap.Int64("expected", expected),
			zap.Int64("amount", details.Amount),
			zap.String("currency", details.Currency),
		)
		return badRequest("Payment amount does not match the order total")
	}
	return nil
}

// GetOrder returns the order to its buyer or an admin in full, and to a seller with items in it
// restricted to that seller's items.
func (s *orderServiceImpl) GetOrder(ctx context.Context, p auth.Principal, id string) (*models.Order, *ServiceError) {
	oid, svcErr := parseID(id, "order")
	if svcErr != nil {
		return nil, svcErr
	}
	order, err := s.orders.FindByID(ctx, oid)
	if err != nil {
		return nil, fromRepo(s.logger, err, "Order not found", "failed to load order")
	}
	if p.IsAdmin() || order.User.Hex() == p.UserID {
		return order, nil
	}
	if p.Role == models.RoleSeller {
		if seller, err := primitive.ObjectIDFromHex(p.UserID); err == nil && order.HasSeller(seller) {
			return order.ScopedToSeller(seller), nil
		}
	}
	return nil, forbidden("Not authorized to view this order")
}

func (s *orderServiceImpl) list(ctx context.Context, filter models.OrderFilter, page models.Page) ([]*models.Order, models.MetaData, *ServiceError) {
	if filter.Status != "" && !validOrderStatus(filter.Status) {
		return nil, models.MetaData{}, badRequest("Invalid order status")
	}
	page = normalizePage(page)
	orders, total, err := s.orders.Find(ctx, filter, page)
	if err != nil {
		return nil, models.MetaData{}, internalError(s.logger, "failed to list orders", err)
	}
	return orders, models.NewMetaData(page, total), nil
}

func (s *orderServiceImpl) ListMyOrders(ctx context.Context, p auth.Principal, status models.OrderStatus, page models.Page) ([]*models.Order, models.MetaData, *ServiceError) {
	uid, svcErr := principalID(p)
	if svcErr != nil {
		return nil, models.MetaData{}, svcErr
	}
	return s.list(ctx, models.OrderFilter{User: &uid, Status: status}, page)
}

func (s *orderServiceImpl) ListOrders(ctx context.Context, status models.OrderStatus, page models.Page) ([]*models.Order, models.MetaData, *ServiceError) {
	return s.list(ctx, models.OrderFilter{Status: status}, page)
}

// ListSellerOrders lists orders containing the caller's items, each restricted to those items.
func (s *orderServiceImpl) ListSellerOrders(ctx context.Context, p auth.Principal, status models.OrderStatus, page models.Page) ([]*models.Order, models.MetaData, *ServiceError) {
	seller, svcErr := principalID(p)
	if svcErr != nil {
		return nil, models.MetaData{}, svcErr
	}
	orders, meta, svcErr := s.list(ctx, models.OrderFilter{Seller: &seller, Status: status}, page)
	if svcErr != nil {
		return nil, meta, svcErr
	}
	scoped := make([]*models.Order, len(orders))
	for i, o := range orders {
		scoped[i] = o.ScopedToSeller(seller)
	}
	return scoped, meta, nil
}

func validOrderStatus(s models.OrderStatus) bool {
	switch s {
	case models.OrderPending, models.OrderConfirmed, models.OrderProcessing,
		models.OrderShipped, models.OrderDelivered, models.OrderCancelled:
		return true
	}
	return false
}

func validItemStatus(s models.ItemStatus) bool {
	switch s {
	case models.ItemPending, models.ItemProcessing, models.ItemShipped, models.ItemDelivered:
		return true
	}
	return false
}
