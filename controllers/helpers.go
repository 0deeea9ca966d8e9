package controllers

import (
	"net/http"
	"strconv"

	"marketplace-service/common/auth"
	"marketplace-service/middleware"
	"marketplace-service/models"
	"marketplace-service/services"

	"github.com/gin-gonic/gin"
)

// respondError writes a service error in the {message} shape.
func respondError(ctx *gin.Context, err *services.ServiceError) {
	ctx.JSON(err.StatusCode, gin.H{"message": err.Message})
}

func badRequest(ctx *gin.Context, err error) {
	ctx.JSON(http.StatusBadRequest, gin.H{"message": "Invalid request: " + err.Error()})
}

// principal returns the authenticated caller, writing a 401 when the route was registered without
// AuthMiddleware.
func principal(ctx *gin.Context) (auth.Principal, bool) {
	p, err := middleware.GetPrincipal(ctx)
	if err != nil {
		ctx.JSON(http.StatusUnauthorized, gin.H{"message": "Not authorized"})
		return auth.Principal{}, false
	}
	return p, true
}

// parsePaginationParams extracts and validates pagination parameters.
func parsePaginationParams(ctx *gin.Context) models.Page {
	const MaxLimit = 100
	const DefaultPage = 1
	const DefaultLimit = 10

	page := models.Page{Page: DefaultPage, Limit: DefaultLimit}
	if p, err := strconv.Atoi(ctx.DefaultQuery("page", "1")); err == nil && p > 0 {
		page.Page = p
	}
	if l, err := strconv.Atoi(ctx.DefaultQuery("limit", "10")); err == nil && l > 0 {
		page.Limit = l
		if page.Limit > MaxLimit {
			page.Limit = MaxLimit
		}
	}
	return page
}
