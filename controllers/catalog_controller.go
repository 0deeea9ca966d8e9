package controllers

import (
	"net/http"

	"marketplace-service/models"
	"marketplace-service/services"

	"github.com/gin-gonic/gin"
)

// CatalogController serves categories and brands.
type CatalogController struct {
	catalogService services.CatalogService
}

func NewCatalogController(catalogService services.CatalogService) *CatalogController {
	return &CatalogController{catalogService: catalogService}
}

// ListCategories handles GET /api/categories. Inactive categories are included with ?all=true.
func (cc *CatalogController) ListCategories(ctx *gin.Context) {
	categories, svcErr := cc.catalogService.ListCategories(ctx.Request.Context(), ctx.Query("all") != "true")
	if svcErr != nil {
		respondError(ctx, svcErr)
		return
	}
	ctx.JSON(http.StatusOK, categories)
}

func (cc *CatalogController) GetCategory(ctx *gin.Context) {
	category, svcErr := cc.catalogService.GetCategory(ctx.Request.Context(), ctx.Param("id"))
	if svcErr != nil {
		respondError(ctx, svcErr)
		return
	}
	ctx.JSON(http.StatusOK, category)
}

// CreateCategory handles POST /api/categories (admin only).
func (cc *CatalogController) CreateCategory(ctx *gin.Context) {
	var req models.CategoryRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		badRequest(ctx, err)
		return
	}
	category, svcErr := cc.catalogService.CreateCategory(ctx.Request.Context(), &req)
	if svcErr != nil {
		respondError(ctx, svcErr)
		return
	}
	ctx.JSON(http.StatusCreated, category)
}

// UpdateCategory handles PUT /api/categories/:id (admin only).
func (cc *CatalogController) UpdateCategory(ctx *gin.Context) {
	var req models.UpdateCategoryRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		badRequest(ctx, err)
		return
	}
	category, svcErr := cc.catalogService.UpdateCategory(ctx.Request.Context(), ctx.Param("id"), &req)
	if svcErr != nil {
		respondError(ctx, svcErr)
		return
	}
	ctx.JSON(http.StatusOK, category)
}

// DeleteCategory handles DELETE /api/categories/:id (admin only).
func (cc *CatalogController) DeleteCategory(ctx *gin.Context) {
	if svcErr := cc.catalogService.DeleteCategory(ctx.Request.Context(), ctx.Param("id")); svcErr != nil {
		respondError(ctx, svcErr)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"message": "Category removed"})
}

func (cc *CatalogController) ListBrands(ctx *gin.Context) {
	brands, svcErr := cc.catalogService.ListBrands(ctx.Request.Context())
	if svcErr != nil {
		respondError(ctx, svcErr)
		return
	}
	ctx.JSON(http.StatusOK, brands)
}

func (cc *CatalogController) GetBrand(ctx *gin.Context) {
	brand, svcErr := cc.catalogService.GetBrand(ctx.Request.Context(), ctx.Param("id"))
	if svcErr != nil {
		respondError(ctx, svcErr)
		return
	}
	ctx.JSON(http.StatusOK, brand)
}

// CreateBrand handles POST /api/brands (seller or admin).
func (cc *CatalogController) CreateBrand(ctx *gin.Context) {
	p, ok := principal(ctx)
	if !ok {
		return
	}
	var req models.BrandRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		badRequest(ctx, err)
		return
	}
	brand, svcErr := cc.catalogService.CreateBrand(ctx.Request.Context(), p, &req)
	if svcErr != nil {
		respondError(ctx, svcErr)
		return
	}
	ctx.JSON(http.StatusCreated, brand)
}

// UpdateBrand handles PUT /api/brands/:id (owner or admin).
func (cc *CatalogController) UpdateBrand(ctx *gin.Context) {
	p, ok := principal(ctx)
	if !ok {
		return
	}
	var req models.UpdateBrandRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		badRequest(ctx, err)
		return
	}
	brand, svcErr := cc.catalogService.UpdateBrand(ctx.Request.Context(), p, ctx.Param("id"), &req)
	if svcErr != nil {
		respondError(ctx, svcErr)
		return
	}
	ctx.JSON(http.StatusOK, brand)
}

// DeleteBrand handles DELETE /api/brands/:id (admin only).
func (cc *CatalogController) DeleteBrand(ctx *gin.Context) {
	if svcErr := cc.catalogService.DeleteBrand(ctx.Request.Context(), ctx.Param("id")); svcErr != nil {
		respondError(ctx, svcErr)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"message": "Brand removed"})
}
