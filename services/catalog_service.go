package services

import (
	"context"
	"errors"
	"strings"

	"marketplace-service/common/auth"
	"marketplace-service/models"
	"marketplace-service/repository"

	"go.mongodb.org/mongo-driver/bson"
	"go.uber.org/zap"
)

// CatalogService manages categories and brands.
type CatalogService interface {
	ListCategories(ctx context.Context, activeOnly bool) ([]*models.Category, *ServiceError)
	GetCategory(ctx context.Context, id string) (*models.Category, *ServiceError)
	CreateCategory(ctx context.Context, req *models.CategoryRequest) (*models.Category, *ServiceError)
	UpdateCategory(ctx context.Context, id string, req *models.UpdateCategoryRequest) (*models.Category, *ServiceError)
	DeleteCategory(ctx context.Context, id string) *ServiceError

	ListBrands(ctx context.Context) ([]*models.Brand, *ServiceError)
	GetBrand(ctx context.Context, id string) (*models.Brand, *ServiceError)
	CreateBrand(ctx context.Context, p auth.Principal, req *models.BrandRequest) (*models.Brand, *ServiceError)
	UpdateBrand(ctx context.Context, p auth.Principal, id string, req *models.UpdateBrandRequest) (*models.Brand, *ServiceError)
	DeleteBrand(ctx context.Context, id string) *ServiceError
}

type catalogServiceImpl struct {
	categories repository.CategoryRepo
	brands     repository.BrandRepo
	products   repository.ProductRepo
	events     EventPublisher
	logger     *zap.Logger
}

// NewCatalogService creates a new CatalogService.
func NewCatalogService(
	categories repository.CategoryRepo,
	brands repository.BrandRepo,
	products repository.ProductRepo,
	events EventPublisher,
	logger *zap.Logger,
) CatalogService {
	return &catalogServiceImpl{
		categories: categories,
		brands:     brands,
		products:   products,
		events:     publisherOrNoop(events),
		logger:     logger,
	}
}

func (s *catalogServiceImpl) ListCategories(ctx context.Context, activeOnly bool) ([]*models.Category, *ServiceError) {
	categories, err := s.categories.FindAll(ctx, activeOnly)
	if err != nil {
		return nil, internalError(s.logger, "failed to list categories", err)
	}
	return categories, nil
}

func (s *catalogServiceImpl) GetCategory(ctx context.Context, id string) (*models.Category, *ServiceError) {
	oid, svcErr := parseID(id, "category")
	if svcErr != nil {
		return nil, svcErr
	}
	category, err := s.categories.FindByID(ctx, oid)
	if err != nil {
		return nil, fromRepo(s.logger, err, "Category not found", "failed to load category")
	}
	return category, nil
}

func (s *catalogServiceImpl) CreateCategory(ctx context.Context, req *models.CategoryRequest) (*models.Category, *ServiceError) {
	name := strings.TrimSpace(req.Name)
	category := &models.Category{
		Name:        name,
		Slug:        models.Slugify(name),
		Description: req.Description,
		Image:       req.Image,
		Icon:        req.Icon,
		Active:      req.Active == nil || *req.Active,
	}
	if category.Slug == "" {
		return nil, badRequest("Category name must contain letters or digits")
	}
	if err := s.categories.Create(ctx, category); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, badRequest("Category already exists")
		}
		return nil, internalError(s.logger, "failed to create category", err)
	}
	s.events.Publish(models.TopicSectionsChanged, sectionsChanged())
	return category, nil
}

func (s *catalogServiceImpl) UpdateCategory(ctx context.Context, id string, req *models.UpdateCategoryRequest) (*models.Category, *ServiceError) {
	oid, svcErr := parseID(id, "category")
	if svcErr != nil {
		return nil, svcErr
	}
	updates := bson.M{}
	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		updates["name"] = name
		updates["slug"] = models.Slugify(name)
	}
	if req.Description != nil {
		updates["description"] = *req.Description
	}
	if req.Image != nil {
		updates["image"] = *req.Image
	}
	if req.Icon != nil {
		updates["icon"] = *req.Icon
	}
	if req.Active != nil {
		updates["active"] = *req.Active
	}
	if len(updates) > 0 {
		if err := s.categories.Update(ctx, oid, updates); err != nil {
			if errors.Is(err, repository.ErrDuplicate) {
				return nil, badRequest("Category already exists")
			}
			return nil, fromRepo(s.logger, err, "Category not found", "failed to update category")
		}
		s.events.Publish(models.TopicSectionsChanged, sectionsChanged())
	}
	return s.GetCategory(ctx, id)
}

// DeleteCategory refuses while any product still references the category.
func (s *catalogServiceImpl) DeleteCategory(ctx context.Context, id string) *ServiceError {
	oid, svcErr := parseID(id, "category")
	if svcErr != nil {
		return svcErr
	}
	n, err := s.products.CountByCategory(ctx, oid)
	if err != nil {
		return internalError(s.logger, "failed to count category products", err)
	}
	if n > 0 {
		return badRequest("Cannot delete category with existing products")
	}
	if err := s.categories.Delete(ctx, oid); err != nil {
		return fromRepo(s.logger, err, "Category not found", "failed to delete category")
	}
	s.events.Publish(models.TopicSectionsChanged, sectionsChanged())
	return nil
}

func (s *catalogServiceImpl) ListBrands(ctx context.Context) ([]*models.Brand, *ServiceError) {
	brands, err := s.brands.FindAll(ctx)
	if err != nil {
		return nil, internalError(s.logger, "failed to list brands", err)
	}
	return brands, nil
}

func (s *catalogServiceImpl) GetBrand(ctx context.Context, id string) (*models.Brand, *ServiceError) {
	oid, svcErr := parseID(id, "brand")
	if svcErr != nil {
		return nil, svcErr
	}
	brand, err := s.brands.FindByID(ctx, oid)
	if err != nil {
		return nil, fromRepo(s.logger, err, "Brand not found", "failed to load brand")
	}
	return brand, nil
}

// CreateBrand records the creating seller as owner. Admin-created brands have no owner.
func (s *catalogServiceImpl) CreateBrand(ctx context.Context, p auth.Principal, req *models.BrandRequest) (*models.Brand, *ServiceError) {
	name := strings.TrimSpace(req.Name)
	brand := &models.Brand{
		Name:        name,
		Slug:        models.Slugify(name),
		Logo:        req.Logo,
		Description: req.Description,
		Website:     req.Website,
	}
	if brand.Slug == "" {
		return nil, badRequest("Brand name must contain letters or digits")
	}
	if !p.IsAdmin() {
		owner, svcErr := principalID(p)
		if svcErr != nil {
			return nil, svcErr
		}
		brand.Owner = &owner
	}
	if err := s.brands.Create(ctx, brand); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, badRequest("Brand already exists")
		}
		return nil, internalError(s.logger, "failed to create brand", err)
	}
	return brand, nil
}

func (s *catalogServiceImpl) UpdateBrand(ctx context.Context, p auth.Principal, id string, req *models.UpdateBrandRequest) (*models.Brand, *ServiceError) {
	brand, svcErr := s.GetBrand(ctx, id)
	if svcErr != nil {
		return nil, svcErr
	}
	if !p.IsAdmin() && (brand.Owner == nil || brand.Owner.Hex() != p.UserID) {
		return nil, forbidden("Not authorized to update this brand")
	}

	updates := bson.M{}
	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		updates["name"] = name
		updates["slug"] = models.Slugify(name)
	}
	if req.Logo != nil {
		updates["logo"] = *req.Logo
	}
	if req.Description != nil {
		updates["description"] = *req.Description
	}
	if req.Website != nil {
		updates["website"] = *req.Website
	}
	if len(updates) == 0 {
		return brand, nil
	}
	if err := s.brands.Update(ctx, brand.ID, updates); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, badRequest("Brand already exists")
		}
		return nil, fromRepo(s.logger, err, "Brand not found", "failed to update brand")
	}
	return s.GetBrand(ctx, id)
}

func (s *catalogServiceImpl) DeleteBrand(ctx context.Context, id string) *ServiceError {
	oid, svcErr := parseID(id, "brand")
	if svcErr != nil {
		return svcErr
	}
	if err := s.brands.Delete(ctx, oid); err != nil {
		return fromRepo(s.logger, err, "Brand not found", "failed to delete brand")
	}
	return nil
}
