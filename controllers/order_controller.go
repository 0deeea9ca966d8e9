package controllers

import (
	"net/http"

	"marketplace-service/models"
	"marketplace-service/services"

	"github.com/gin-gonic/gin"
)

// OrderController handles order placement, status changes, and order queries.
type OrderController struct {
	orderService services.OrderService
}

func NewOrderController(orderService services.OrderService) *OrderController {
	return &OrderController{orderService: orderService}
}

// CreateOrder handles POST /api/orders.
func (oc *OrderController) CreateOrder(ctx *gin.Context) {
	p, ok := principal(ctx)
	if !ok {
		return
	}
	var req models.CreateOrderRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		badRequest(ctx, err)
		return
	}

	order, svcErr := oc.orderService.CreateOrder(ctx.Request.Context(), p, &req)
	if svcErr != nil {
		respondError(ctx, svcErr)
		return
	}
	ctx.JSON(http.StatusCreated, order)
}

// GetOrder handles GET /api/orders/:id.
func (oc *OrderController) GetOrder(ctx *gin.Context) {
	p, ok := principal(ctx)
	if !ok {
		return
	}
	order, svcErr := oc.orderService.GetOrder(ctx.Request.Context(), p, ctx.Param("id"))
	if svcErr != nil {
		respondError(ctx, svcErr)
		return
	}
	ctx.JSON(http.StatusOK, order)
}

// ListMyOrders handles GET /api/orders/mine.
func (oc *OrderController) ListMyOrders(ctx *gin.Context) {
	p, ok := principal(ctx)
	if !ok {
		return
	}
	status, valid := orderStatusQuery(ctx)
	if !valid {
		return
	}
	orders, meta, svcErr := oc.orderService.ListMyOrders(ctx.Request.Context(), p, status, parsePaginationParams(ctx))
	if svcErr != nil {
		respondError(ctx, svcErr)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"orders": orders, "meta": meta})
}

// ListOrders handles GET /api/orders (admin only).
func (oc *OrderController) ListOrders(ctx *gin.Context) {
	status, valid := orderStatusQuery(ctx)
	if !valid {
		return
	}
	orders, meta, svcErr := oc.orderService.ListOrders(ctx.Request.Context(), status, parsePaginationParams(ctx))
	if svcErr != nil {
		respondError(ctx, svcErr)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"orders": orders, "meta": meta})
}

// ListSellerOrders handles GET /api/sellers/orders. Each order carries only the caller's items.
func (oc *OrderController) ListSellerOrders(ctx *gin.Context) {
	p, ok := principal(ctx)
	if !ok {
		return
	}
	status, valid := orderStatusQuery(ctx)
	if !valid {
		return
	}
	orders, meta, svcErr := oc.orderService.ListSellerOrders(ctx.Request.Context(), p, status, parsePaginationParams(ctx))
	if svcErr != nil {
		respondError(ctx, svcErr)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"orders": orders, "meta": meta})
}

// UpdateOrderStatus handles PUT /api/orders/:id/status (admin only).
func (oc *OrderController) UpdateOrderStatus(ctx *gin.Context) {
	p, ok := principal(ctx)
	if !ok {
		return
	}
	var req models.UpdateOrderStatusRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		badRequest(ctx, err)
		return
	}

	order, svcErr := oc.orderService.UpdateOrderStatus(ctx.Request.Context(), p, ctx.Param("id"), &req)
	if svcErr != nil {
		respondError(ctx, svcErr)
		return
	}
	ctx.JSON(http.StatusOK, order)
}

// UpdateSellerItemStatus handles PUT /api/sellers/orders/:id/status.
func (oc *OrderController) UpdateSellerItemStatus(ctx *gin.Context) {
	p, ok := principal(ctx)
	if !ok {
		return
	}
	var req models.UpdateItemStatusRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		badRequest(ctx, err)
		return
	}

	order, svcErr := oc.orderService.UpdateSellerItemStatus(ctx.Request.Context(), p, ctx.Param("id"), &req)
	if svcErr != nil {
		respondError(ctx, svcErr)
		return
	}
	ctx.JSON(http.StatusOK, order)
}

// CancelMyOrder handles PUT /api/orders/:id/cancel. The body is optional.
func (oc *OrderController) CancelMyOrder(ctx *gin.Context) {
	p, ok := principal(ctx)
	if !ok {
		return
	}
	var req models.CancelOrderRequest
	if ctx.Request.ContentLength > 0 {
		if err := ctx.ShouldBindJSON(&req); err != nil {
			badRequest(ctx, err)
			return
		}
	}

	order, svcErr := oc.orderService.CancelMyOrder(ctx.Request.Context(), p, ctx.Param("id"), req.Reason)
	if svcErr != nil {
		respondError(ctx, svcErr)
		return
	}
	ctx.JSON(http.StatusOK, order)
}

// MarkOrderPaid handles PUT /api/orders/:id/pay.
func (oc *OrderController) MarkOrderPaid(ctx *gin.Context) {
	p, ok := principal(ctx)
	if !ok {
		return
	}
	var req models.MarkPaidRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		badRequest(ctx, err)
		return
	}

	order, svcErr := oc.orderService.MarkOrderPaid(ctx.Request.Context(), p, ctx.Param("id"), &req)
	if svcErr != nil {
		respondError(ctx, svcErr)
		return
	}
	ctx.JSON(http.StatusOK, order)
}

// orderStatusQuery reads ?status=, answering 400 for unknown values.
func orderStatusQuery(ctx *gin.Context) (models.OrderStatus, bool) {
	status := models.OrderStatus(ctx.Query("status"))
	switch status {
	case "", models.OrderPending, models.OrderConfirmed, models.OrderProcessing,
		models.OrderShipped, models.OrderDelivered, models.OrderCancelled:
		return status, true
	}
	ctx.JSON(http.StatusBadRequest, gin.H{"message": "Invalid order status"})
	return "", false
}
