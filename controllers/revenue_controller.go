package controllers

import (
	"net/http"

	"marketplace-service/services"

	"github.com/gin-gonic/gin"
)

type RevenueController struct {
	revenueService services.RevenueService
}

func NewRevenueController(revenueService services.RevenueService) *RevenueController {
	return &RevenueController{revenueService: revenueService}
}

// GetMyRevenue handles GET /api/sellers/revenue.
func (rc *RevenueController) GetMyRevenue(ctx *gin.Context) {
	p, ok := principal(ctx)
	if !ok {
		return
	}
	rc.respond(ctx, p.UserID)
}

// GetSellerRevenue handles GET /api/sellers/:id/revenue. Sellers may only read their own report.
func (rc *RevenueController) GetSellerRevenue(ctx *gin.Context) {
	rc.respond(ctx, ctx.Param("id"))
}

func (rc *RevenueController) respond(ctx *gin.Context, sellerID string) {
	p, ok := principal(ctx)
	if !ok {
		return
	}
	report, svcErr := rc.revenueService.GetSellerRevenue(ctx.Request.Context(), p, sellerID)
	if svcErr != nil {
		respondError(ctx, svcErr)
		return
	}
	ctx.JSON(http.StatusOK, report)
}
