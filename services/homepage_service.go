package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"marketplace-service/models"
	"marketplace-service/repository"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

const homepageCacheNamespace = "homepage"

// HomepageService manages storefront sections.
type HomepageService interface {
	ListActiveSections(ctx context.Context) ([]*models.ResolvedSection, *ServiceError)
	ListSections(ctx context.Context) ([]*models.HomePageSection, *ServiceError)
	GetSection(ctx context.Context, id string) (*models.HomePageSection, *ServiceError)
	CreateSection(ctx context.Context, req *models.CreateSectionRequest) (*models.HomePageSection, *ServiceError)
	UpdateSection(ctx context.Context, id string, req *models.UpdateSectionRequest) (*models.HomePageSection, *ServiceError)
	DeleteSection(ctx context.Context, id string) *ServiceError
	ReorderSections(ctx context.Context, ids []string) ([]*models.HomePageSection, *ServiceError)
	InvalidateCache(ctx context.Context)
	WarmCache(ctx context.Context) error
}

type homepageServiceImpl struct {
	sections repository.HomepageRepo
	products repository.ProductRepo
	tx       repository.Transactor
	cache    Cache
	cacheTTL time.Duration
	events   EventPublisher
	logger   *zap.Logger
}

// NewHomepageService creates a new HomepageService. cache may be nil.
func NewHomepageService(
	sections repository.HomepageRepo,
	products repository.ProductRepo,
	tx repository.Transactor,
	cache Cache,
	cacheTTL time.Duration,
	events EventPublisher,
	logger *zap.Logger,
) HomepageService {
	if tx == nil {
		tx = repository.PassthroughTransactor{}
	}
	if cacheTTL <= 0 {
		cacheTTL = time.Minute
	}
	return &homepageServiceImpl{
		sections: sections,
		products: products,
		tx:       tx,
		cache:    cacheOrNoop(cache),
		cacheTTL: cacheTTL,
		events:   publisherOrNoop(events),
		logger:   logger,
	}
}

func (s *homepageServiceImpl) cacheKey(ctx context.Context) string {
	return fmt.Sprintf("%s:v%d:active", homepageCacheNamespace, s.cache.Version(ctx, homepageCacheNamespace))
}

// ListActiveSections returns active sections in display order with products sections resolved.
func (s *homepageServiceImpl) ListActiveSections(ctx context.Context) ([]*models.ResolvedSection, *ServiceError) {
	key := s.cacheKey(ctx)
	var cached []*models.ResolvedSection
	if s.cache.Get(ctx, key, &cached) {
		return cached, nil
	}

	resolved, err := s.resolveActive(ctx)
	if err != nil {
		return nil, internalError(s.logger, "failed to resolve homepage", err)
	}
	s.cache.Set(ctx, key, resolved, s.cacheTTL)
	return resolved, nil
}

func (s *homepageServiceImpl) resolveActive(ctx context.Context) ([]*models.ResolvedSection, error) {
	sections, err := s.sections.FindAll(ctx, true)
	if err != nil {
		return nil, err
	}
	resolved := make([]*models.ResolvedSection, 0, len(sections))
	for _, section := range sections {
		rs := &models.ResolvedSection{HomePageSection: *section}
		if content, ok := section.Content.(models.ProductsContent); ok {
			products, err := s.resolveProducts(ctx, content)
			if err != nil {
				return nil, fmt.Errorf("section %s: %w", section.ID.Hex(), err)
			}
			rs.Products = products
		}
		resolved = append(resolved, rs)
	}
	return resolved, nil
}

// resolveProducts returns the listed products in listed order, skipping ids that no longer exist,
// or the dynamic query result when no ids are listed. Both are capped at MaxSectionProducts.
func (s *homepageServiceImpl) resolveProducts(ctx context.Context, content models.ProductsContent) ([]*models.Product, error) {
	if len(content.Products) == 0 {
		return s.products.FindByQuery(ctx, content.EffectiveQuery(), content.EffectiveLimit())
	}

	ids := make([]primitive.ObjectID, 0, len(content.Products))
	for _, hex := range content.Products {
		if oid, err := primitive.ObjectIDFromHex(hex); err == nil {
			ids = append(ids, oid)
		}
	}
	found, err := s.products.FindByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	byID := make(map[primitive.ObjectID]*models.Product, len(found))
	for _, p := range found {
		byID[p.ID] = p
	}
	out := make([]*models.Product, 0, len(ids))
	for _, id := range ids {
		if p, ok := byID[id]; ok && len(out) < models.MaxSectionProducts {
			out = append(out, p)
		}
	}
	return out, nil
}

func (s *homepageServiceImpl) ListSections(ctx context.Context) ([]*models.HomePageSection, *ServiceError) {
	sections, err := s.sections.FindAll(ctx, false)
	if err != nil {
		return nil, internalError(s.logger, "failed to list sections", err)
	}
	return sections, nil
}

func (s *homepageServiceImpl) GetSection(ctx context.Context, id string) (*models.HomePageSection, *ServiceError) {
	oid, svcErr := parseID(id, "section")
	if svcErr != nil {
		return nil, svcErr
	}
	section, err := s.sections.FindByID(ctx, oid)
	if err != nil {
		return nil, fromRepo(s.logger, err, "Section not found", "failed to load section")
	}
	return section, nil
}

// CreateSection validates the content against the section type. Without an explicit order the
// section is appended after the last one.
func (s *homepageServiceImpl) CreateSection(ctx context.Context, req *models.CreateSectionRequest) (*models.HomePageSection, *ServiceError) {
	content, err := models.DecodeSectionContent(req.Type, req.Content)
	if err != nil {
		return nil, badRequest(err.Error())
	}
	section := &models.HomePageSection{
		Title:   strings.TrimSpace(req.Title),
		Type:    req.Type,
		Content: content,
		Active:  req.Active == nil || *req.Active,
	}
	if req.Order != nil {
		section.Order = *req.Order
	} else {
		next, err := s.sections.NextOrder(ctx)
		if err != nil {
			return nil, internalError(s.logger, "failed to compute section order", err)
		}
		section.Order = next
	}

	if err := s.sections.Create(ctx, section); err != nil {
		return nil, internalError(s.logger, "failed to create section", err)
	}
	s.changed(ctx)
	return section, nil
}

// UpdateSection applies the whitelisted fields. A type change needs content for the new type.
func (s *homepageServiceImpl) UpdateSection(ctx context.Context, id string, req *models.UpdateSectionRequest) (*models.HomePageSection, *ServiceError) {
	section, svcErr := s.GetSection(ctx, id)
	if svcErr != nil {
		return nil, svcErr
	}

	if req.Type != nil && *req.Type != section.Type {
		if req.Content == nil {
			return nil, badRequest("Content is required when changing the section type")
		}
		section.Type = *req.Type
	}
	if req.Content != nil {
		content, err := models.DecodeSectionContent(section.Type, req.Content)
		if err != nil {
			return nil, badRequest(err.Error())
		}
		section.Content = content
	}
	if req.Title != nil {
		section.Title = strings.TrimSpace(*req.Title)
	}
	if req.Order != nil {
		section.Order = *req.Order
	}
	if req.Active != nil {
		section.Active = *req.Active
	}

	if err := s.sections.Replace(ctx, section); err != nil {
		return nil, fromRepo(s.logger, err, "Section not found", "failed to update section")
	}
	s.changed(ctx)
	return section, nil
}

func (s *homepageServiceImpl) DeleteSection(ctx context.Context, id string) *ServiceError {
	oid, svcErr := parseID(id, "section")
	if svcErr != nil {
		return svcErr
	}
	if err := s.sections.Delete(ctx, oid); err != nil {
		return fromRepo(s.logger, err, "Section not found", "failed to delete section")
	}
	s.changed(ctx)
	return nil
}

// ReorderSections gives the listed sections orders 0..k-1 in the listed sequence; sections not
// listed follow in their current order, so orders stay dense.
func (s *homepageServiceImpl) ReorderSections(ctx context.Context, ids []string) ([]*models.HomePageSection, *ServiceError) {
	if len(ids) == 0 {
		return nil, badRequest("No section ids given")
	}
	listed := make([]primitive.ObjectID, 0, len(ids))
	seen := make(map[primitive.ObjectID]bool, len(ids))
	for _, id := range ids {
		oid, svcErr := parseID(id, "section")
		if svcErr != nil {
			return nil, svcErr
		}
		if seen[oid] {
			return nil, badRequest("Duplicate section id " + id)
		}
		seen[oid] = true
		listed = append(listed, oid)
	}

	err := s.tx.WithTransaction(ctx, func(txCtx context.Context) error {
		current, err := s.sections.FindAll(txCtx, false)
		if err != nil {
			return err
		}
		known := make(map[primitive.ObjectID]bool, len(current))
		for _, section := range current {
			known[section.ID] = true
		}
		for _, oid := range listed {
			if !known[oid] {
				return badRequest("Unknown section id " + oid.Hex())
			}
		}
		ordered := append([]primitive.ObjectID{}, listed...)
		for _, section := range current {
			if !seen[section.ID] {
				ordered = append(ordered, section.ID)
			}
		}
		return s.sections.SetOrders(txCtx, ordered)
	})
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			// a section was deleted between the read and the write
			return nil, newError(409, "Sections changed concurrently, please retry")
		}
		return nil, fromRepo(s.logger, err, "Section not found", "failed to reorder sections")
	}

	s.changed(ctx)
	return s.ListSections(ctx)
}

func (s *homepageServiceImpl) changed(ctx context.Context) {
	s.InvalidateCache(ctx)
	s.events.Publish(models.TopicSectionsChanged, sectionsChanged())
}

// InvalidateCache starts a new cache generation for the resolved homepage.
func (s *homepageServiceImpl) InvalidateCache(ctx context.Context) {
	if err := s.cache.Bump(ctx, homepageCacheNamespace); err != nil {
		s.logger.Error("failed to invalidate homepage cache", zap.Error(err))
	}
}

// WarmCache resolves the homepage into the current cache generation.
func (s *homepageServiceImpl) WarmCache(ctx context.Context) error {
	resolved, err := s.resolveActive(ctx)
	if err != nil {
		return err
	}
	s.cache.Set(ctx, s.cacheKey(ctx), resolved, s.cacheTTL)
	return nil
}
