package controllers

import (
	"fmt"
	"net/http"
	"strconv"

	"marketplace-service/models"
	"marketplace-service/services"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ProductController handles product CRUD, listing, and reviews.
type ProductController struct {
	productService services.ProductService
}

func NewProductController(productService services.ProductService) *ProductController {
	return &ProductController{productService: productService}
}

// ListProducts handles GET /api/products with category, brand, seller, search, featured, min_price,
// max_price, in_stock and sort query filters.
func (pc *ProductController) ListProducts(ctx *gin.Context) {
	filter, err := parseProductFilter(ctx)
	if err != nil {
		badRequest(ctx, err)
		return
	}

	products, meta, svcErr := pc.productService.ListProducts(ctx.Request.Context(), filter, parsePaginationParams(ctx))
	if svcErr != nil {
		respondError(ctx, svcErr)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"products": products, "meta": meta})
}

// GetProduct handles GET /api/products/:id.
func (pc *ProductController) GetProduct(ctx *gin.Context) {
	product, svcErr := pc.productService.GetProduct(ctx.Request.Context(), ctx.Param("id"))
	if svcErr != nil {
		respondError(ctx, svcErr)
		return
	}
	ctx.JSON(http.StatusOK, product)
}

// CreateProduct handles POST /api/products (seller or admin).
func (pc *ProductController) CreateProduct(ctx *gin.Context) {
	p, ok := principal(ctx)
	if !ok {
		return
	}
	var req models.CreateProductRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		badRequest(ctx, err)
		return
	}

	product, svcErr := pc.productService.CreateProduct(ctx.Request.Context(), p, &req)
	if svcErr != nil {
		respondError(ctx, svcErr)
		return
	}
	ctx.JSON(http.StatusCreated, product)
}

// UpdateProduct handles PUT /api/products/:id (owner or admin).
func (pc *ProductController) UpdateProduct(ctx *gin.Context) {
	p, ok := principal(ctx)
	if !ok {
		return
	}
	var req models.UpdateProductRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		badRequest(ctx, err)
		return
	}

	product, svcErr := pc.productService.UpdateProduct(ctx.Request.Context(), p, ctx.Param("id"), &req)
	if svcErr != nil {
		respondError(ctx, svcErr)
		return
	}
	ctx.JSON(http.StatusOK, product)
}

// DeleteProduct handles DELETE /api/products/:id (owner or admin).
func (pc *ProductController) DeleteProduct(ctx *gin.Context) {
	p, ok := principal(ctx)
	if !ok {
		return
	}
	if svcErr := pc.productService.DeleteProduct(ctx.Request.Context(), p, ctx.Param("id")); svcErr != nil {
		respondError(ctx, svcErr)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"message": "Product removed"})
}

// AddReview handles POST /api/products/:id/reviews.
func (pc *ProductController) AddReview(ctx *gin.Context) {
	p, ok := principal(ctx)
	if !ok {
		return
	}
	var req models.ReviewRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		badRequest(ctx, err)
		return
	}

	product, svcErr := pc.productService.AddReview(ctx.Request.Context(), p, ctx.Param("id"), &req)
	if svcErr != nil {
		respondError(ctx, svcErr)
		return
	}
	ctx.JSON(http.StatusCreated, gin.H{"message": "Review added", "rating": product.Rating, "num_reviews": product.NumReviews})
}

func parseProductFilter(ctx *gin.Context) (models.ProductFilter, error) {
	filter := models.ProductFilter{
		Search: ctx.Query("search"),
		Sort:   ctx.DefaultQuery("sort", models.SortNewest),
	}

	var err error
	if filter.Category, err = queryObjectID(ctx, "category"); err != nil {
		return filter, err
	}
	if filter.Brand, err = queryObjectID(ctx, "brand"); err != nil {
		return filter, err
	}
	if filter.Seller, err = queryObjectID(ctx, "seller"); err != nil {
		return filter, err
	}
	if filter.IsFeatured, err = queryBool(ctx, "featured"); err != nil {
		return filter, err
	}
	if filter.InStock, err = queryBool(ctx, "in_stock"); err != nil {
		return filter, err
	}
	if filter.MinPrice, err = queryFloat(ctx, "min_price"); err != nil {
		return filter, err
	}
	if filter.MaxPrice, err = queryFloat(ctx, "max_price"); err != nil {
		return filter, err
	}

	switch filter.Sort {
	case models.SortNewest, models.SortPriceAsc, models.SortPriceDesc, models.SortBestSelling, models.SortRating:
	default:
		return filter, fmt.Errorf("unknown sort %q", filter.Sort)
	}
	return filter, nil
}

func queryObjectID(ctx *gin.Context, key string) (*primitive.ObjectID, error) {
	raw := ctx.Query(key)
	if raw == "" {
		return nil, nil
	}
	oid, err := primitive.ObjectIDFromHex(raw)
	if err != nil {
		return nil, fmt.Errorf("%s must be an id", key)
	}
	return &oid, nil
}

func queryBool(ctx *gin.Context, key string) (*bool, error) {
	raw := ctx.Query(key)
	if raw == "" {
		return nil, nil
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return nil, fmt.Errorf("%s must be true or false", key)
	}
	return &v, nil
}

func queryFloat(ctx *gin.Context, key string) (*float64, error) {
	raw := ctx.Query(key)
	if raw == "" {
		return nil, nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil || v < 0 {
		return nil, fmt.Errorf("%s must be a non-negative number", key)
	}
	return &v, nil
}
