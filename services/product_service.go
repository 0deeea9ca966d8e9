package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"marketplace-service/common/auth"
	"marketplace-service/models"
	"marketplace-service/repository"
	aws_pkg "marketplace-service/pkg/aws"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// ARModelPrefix is the key prefix holding every AR model of a product.
func ARModelPrefix(productID primitive.ObjectID) string {
	return "models/" + productID.Hex() + "/"
}

// ProductService manages the product catalog and reviews.
type ProductService interface {
	CreateProduct(ctx context.Context, p auth.Principal, req *models.CreateProductRequest) (*models.Product, *ServiceError)
	UpdateProduct(ctx context.Context, p auth.Principal, id string, req *models.UpdateProductRequest) (*models.Product, *ServiceError)
	DeleteProduct(ctx context.Context, p auth.Principal, id string) *ServiceError
	GetProduct(ctx context.Context, id string) (*models.ProductDetail, *ServiceError)
	ListProducts(ctx context.Context, filter models.ProductFilter, page models.Page) ([]*models.Product, models.MetaData, *ServiceError)
	AddReview(ctx context.Context, p auth.Principal, id string, req *models.ReviewRequest) (*models.Product, *ServiceError)
}

type productServiceImpl struct {
	products   repository.ProductRepo
	categories repository.CategoryRepo
	brands     repository.BrandRepo
	users      repository.UserRepo
	events     EventPublisher
	metrics    MetricsRecorder
	logger     *zap.Logger
}

// NewProductService creates a new ProductService.
func NewProductService(
	products repository.ProductRepo,
	categories repository.CategoryRepo,
	brands repository.BrandRepo,
	users repository.UserRepo,
	events EventPublisher,
	metrics MetricsRecorder,
	logger *zap.Logger,
) ProductService {
	return &productServiceImpl{
		products:   products,
		categories: categories,
		brands:     brands,
		users:      users,
		events:     publisherOrNoop(events),
		metrics:    metrics,
		logger:     logger,
	}
}

// loadOwned returns the product when the caller owns it or is an admin.
func (s *productServiceImpl) loadOwned(ctx context.Context, p auth.Principal, id string) (*models.Product, *ServiceError) {
	oid, svcErr := parseID(id, "product")
	if svcErr != nil {
		return nil, svcErr
	}
	product, err := s.products.FindByID(ctx, oid)
	if err != nil {
		return nil, fromRepo(s.logger, err, "Product not found", "failed to load product")
	}
	if !p.IsAdmin() && product.Seller.Hex() != p.UserID {
		return nil, forbidden("Not authorized to modify this product")
	}
	return product, nil
}

func (s *productServiceImpl) checkCategory(ctx context.Context, id string) (primitive.ObjectID, *ServiceError) {
	oid, svcErr := parseID(id, "category")
	if svcErr != nil {
		return oid, svcErr
	}
	if _, err := s.categories.FindByID(ctx, oid); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return oid, badRequest("Category not found")
		}
		return oid, internalError(s.logger, "failed to load category", err)
	}
	return oid, nil
}

func (s *productServiceImpl) checkBrand(ctx context.Context, id string) (primitive.ObjectID, *ServiceError) {
	oid, svcErr := parseID(id, "brand")
	if svcErr != nil {
		return oid, svcErr
	}
	if _, err := s.brands.FindByID(ctx, oid); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return oid, badRequest("Brand not found")
		}
		return oid, internalError(s.logger, "failed to load brand", err)
	}
	return oid, nil
}

func (s *productServiceImpl) CreateProduct(ctx context.Context, p auth.Principal, req *models.CreateProductRequest) (*models.Product, *ServiceError) {
	if !p.HasRole(models.RoleSeller, models.RoleAdmin) {
		return nil, forbidden("Only sellers can create products")
	}
	seller, svcErr := principalID(p)
	if svcErr != nil {
		return nil, svcErr
	}
	if req.Stock < 0 {
		return nil, badRequest("Stock cannot be negative")
	}
	category, svcErr := s.checkCategory(ctx, req.Category)
	if svcErr != nil {
		return nil, svcErr
	}

	product := &models.Product{
		Title:         strings.TrimSpace(req.Title),
		Description:   req.Description,
		Price:         req.Price,
		OriginalPrice: req.OriginalPrice,
		Stock:         req.Stock,
		Images:        req.Images,
		Category:      category,
		Seller:        seller,
		IsFeatured:    req.IsFeatured && p.IsAdmin(),
	}
	if req.Brand != "" {
		brand, svcErr := s.checkBrand(ctx, req.Brand)
		if svcErr != nil {
			return nil, svcErr
		}
		product.Brand = &brand
	}

	if err := s.products.Create(ctx, product); err != nil {
		return nil, internalError(s.logger, "failed to create product", err)
	}

	s.logger.Info("Product created",
		zap.String("product_id", product.ID.Hex()),
		zap.String("seller_id", seller.Hex()),
	)
	recordMetrics(s.metrics, func(ctx context.Context, m MetricsRecorder) {
		_ = m.RecordCount(ctx, aws_pkg.MetricProductsCreated, nil)
	})
	s.events.Publish(models.TopicProductChanged, productChanged(product.ID))
	return product, nil
}

func (s *productServiceImpl) UpdateProduct(ctx context.Context, p auth.Principal, id string, req *models.UpdateProductRequest) (*models.Product, *ServiceError) {
	product, svcErr := s.loadOwned(ctx, p, id)
	if svcErr != nil {
		return nil, svcErr
	}

	updates := bson.M{}
	if req.Title != nil {
		updates["title"] = strings.TrimSpace(*req.Title)
	}
	if req.Description != nil {
		updates["description"] = *req.Description
	}
	if req.Price != nil {
		updates["price"] = *req.Price
	}
	if req.OriginalPrice != nil {
		updates["original_price"] = *req.OriginalPrice
	}
	if req.Stock != nil {
		if *req.Stock < 0 {
			return nil, badRequest("Stock cannot be negative")
		}
		updates["stock"] = *req.Stock
	}
	if req.Images != nil {
		images := *req.Images
		if images == nil {
			images = []models.Image{}
		}
		updates["images"] = images
	}
	if req.Category != nil {
		category, svcErr := s.checkCategory(ctx, *req.Category)
		if svcErr != nil {
			return nil, svcErr
		}
		updates["category"] = category
	}
	if req.Brand != nil {
		brand, svcErr := s.checkBrand(ctx, *req.Brand)
		if svcErr != nil {
			return nil, svcErr
		}
		updates["brand"] = brand
	}
	if req.IsFeatured != nil {
		if !p.IsAdmin() {
			return nil, forbidden("Only admins can feature products")
		}
		updates["is_featured"] = *req.IsFeatured
	}
	if len(updates) == 0 {
		return product, nil
	}

	if err := s.products.Update(ctx, product.ID, updates); err != nil {
		return nil, fromRepo(s.logger, err, "Product not found", "failed to update product")
	}
	updated, err := s.products.FindByID(ctx, product.ID)
	if err != nil {
		return nil, fromRepo(s.logger, err, "Product not found", "failed to load product")
	}
	s.events.Publish(models.TopicProductChanged, productChanged(product.ID))
	return updated, nil
}

// DeleteProduct removes the product. Its images and AR models are cleaned up asynchronously by the
// product_deleted subscriber; cleanup failures never restore the product.
func (s *productServiceImpl) DeleteProduct(ctx context.Context, p auth.Principal, id string) *ServiceError {
	product, svcErr := s.loadOwned(ctx, p, id)
	if svcErr != nil {
		return svcErr
	}
	if err := s.products.Delete(ctx, product.ID); err != nil {
		return fromRepo(s.logger, err, "Product not found", "failed to delete product")
	}

	s.logger.Info("Product deleted", zap.String("product_id", product.ID.Hex()), zap.String("by", p.UserID))
	s.events.Publish(models.TopicProductDeleted, models.ProductDeletedEvent{
		EventType: EventProductDeleted,
		ProductID: product.ID.Hex(),
		SellerID:  product.Seller.Hex(),
		AssetKeys: product.AssetKeys(),
		Prefixes:  []string{ARModelPrefix(product.ID)},
		Timestamp: time.Now().UTC(),
	})
	return nil
}

// GetProduct returns the product with category, brand and seller populated. Dangling references are
// left unpopulated.
func (s *productServiceImpl) GetProduct(ctx context.Context, id string) (*models.ProductDetail, *ServiceError) {
	oid, svcErr := parseID(id, "product")
	if svcErr != nil {
		return nil, svcErr
	}
	product, err := s.products.FindByID(ctx, oid)
	if err != nil {
		return nil, fromRepo(s.logger, err, "Product not found", "failed to load product")
	}

	detail := &models.ProductDetail{Product: product}
	if category, err := s.categories.FindByID(ctx, product.Category); err == nil {
		detail.CategoryInfo = category
	} else if !errors.Is(err, repository.ErrNotFound) {
		s.logger.Warn("failed to populate category", zap.Error(err))
	}
	if product.Brand != nil {
		if brand, err := s.brands.FindByID(ctx, *product.Brand); err == nil {
			detail.BrandInfo = brand
		} else if !errors.Is(err, repository.ErrNotFound) {
			s.logger.Warn("failed to populate brand", zap.Error(err))
		}
	}
	if seller, err := s.users.FindByID(ctx, product.Seller); err == nil {
		summary := seller.Summary()
		detail.SellerInfo = &summary
	} else if !errors.Is(err, repository.ErrNotFound) {
		s.logger.Warn("failed to populate seller", zap.Error(err))
	}
	return detail, nil
}

func (s *productServiceImpl) ListProducts(ctx context.Context, filter models.ProductFilter, page models.Page) ([]*models.Product, models.MetaData, *ServiceError) {
	page = normalizePage(page)
	products, total, err := s.products.Find(ctx, filter, page)
	if err != nil {
		return nil, models.MetaData{}, internalError(s.logger, "failed to list products", err)
	}
	return products, models.NewMetaData(page, total), nil
}

// AddReview allows one review per user and product.
func (s *productServiceImpl) AddReview(ctx context.Context, p auth.Principal, id string, req *models.ReviewRequest) (*models.Product, *ServiceError) {
	if req.Rating < 1 || req.Rating > 5 {
		return nil, badRequest("Rating must be between 1 and 5")
	}
	oid, svcErr := parseID(id, "product")
	if svcErr != nil {
		return nil, svcErr
	}
	uid, svcErr := principalID(p)
	if svcErr != nil {
		return nil, svcErr
	}
	user, err := s.users.FindByID(ctx, uid)
	if err != nil {
		return nil, fromRepo(s.logger, err, "User not found", "failed to load reviewer")
	}

	product, err := s.products.AddReview(ctx, oid, models.Review{
		User:      uid,
		Name:      user.Username,
		Rating:    req.Rating,
		Comment:   strings.TrimSpace(req.Comment),
		CreatedAt: time.Now().UTC(),
	})
	if errors.Is(err, repository.ErrDuplicate) {
		return nil, badRequest("Product already reviewed")
	}
	if err != nil {
		return nil, fromRepo(s.logger, err, "Product not found", "failed to add review")
	}
	return product, nil
}
