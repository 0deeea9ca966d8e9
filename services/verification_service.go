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

// VerificationService runs the seller application and brand verification workflows.
type VerificationService interface {
	SubmitSellerApplication(ctx context.Context, p auth.Principal, req *models.SellerApplicationRequest) (*models.SellerApplication, *ServiceError)
	ReviewSellerApplication(ctx context.Context, p auth.Principal, id string, decision *models.ReviewDecision) (*models.SellerApplication, *ServiceError)
	GetMySellerApplications(ctx context.Context, p auth.Principal) ([]*models.SellerApplication, *ServiceError)
	GetSellerApplication(ctx context.Context, p auth.Principal, id string) (*models.SellerApplication, *ServiceError)
	ListSellerApplications(ctx context.Context, status models.RequestStatus, page models.Page) ([]*models.SellerApplication, models.MetaData, *ServiceError)

	SubmitBrandVerification(ctx context.Context, p auth.Principal, req *models.BrandVerificationRequest) (*models.BrandVerification, *ServiceError)
	ReviewBrandVerification(ctx context.Context, p auth.Principal, id string, decision *models.ReviewDecision) (*models.BrandVerification, *ServiceError)
	GetMyBrandVerifications(ctx context.Context, p auth.Principal) ([]*models.BrandVerification, *ServiceError)
	GetBrandVerification(ctx context.Context, p auth.Principal, id string) (*models.BrandVerification, *ServiceError)
	ListBrandVerifications(ctx context.Context, status models.RequestStatus, page models.Page) ([]*models.BrandVerification, models.MetaData, *ServiceError)
}

type verificationServiceImpl struct {
	applications  repository.SellerApplicationRepo
	verifications repository.BrandVerificationRepo
	users         repository.UserRepo
	brands        repository.BrandRepo
	tx            repository.Transactor
	events        EventPublisher
	metrics       MetricsRecorder
	logger        *zap.Logger
}

// NewVerificationService creates a new VerificationService.
func NewVerificationService(
	applications repository.SellerApplicationRepo,
	verifications repository.BrandVerificationRepo,
	users repository.UserRepo,
	brands repository.BrandRepo,
	tx repository.Transactor,
	events EventPublisher,
	metrics MetricsRecorder,
	logger *zap.Logger,
) VerificationService {
	if tx == nil {
		tx = repository.PassthroughTransactor{}
	}
	return &verificationServiceImpl{
		applications:  applications,
		verifications: verifications,
		users:         users,
		brands:        brands,
		tx:            tx,
		events:        publisherOrNoop(events),
		metrics:       metrics,
		logger:        logger,
	}
}

var (
	errAlreadyPending  = badRequest("You already have a pending request")
	errAlreadyReviewed = badRequest("Request has already been reviewed")
)

func (s *verificationServiceImpl) SubmitSellerApplication(ctx context.Context, p auth.Principal, req *models.SellerApplicationRequest) (*models.SellerApplication, *ServiceError) {
	uid, svcErr := principalID(p)
	if svcErr != nil {
		return nil, svcErr
	}
	user, err := s.users.FindByID(ctx, uid)
	if err != nil {
		return nil, fromRepo(s.logger, err, "User not found", "failed to load applicant")
	}
	if user.Role == models.RoleSeller || user.Role == models.RoleAdmin {
		return nil, badRequest("You are already a seller")
	}
	pending, err := s.applications.HasPending(ctx, uid)
	if err != nil {
		return nil, internalError(s.logger, "failed to check pending applications", err)
	}
	if pending {
		return nil, errAlreadyPending
	}

	app := &models.SellerApplication{
		User:             uid,
		StoreName:        strings.TrimSpace(req.StoreName),
		StoreDescription: req.StoreDescription,
		Phone:            req.Phone,
		Address:          req.Address,
		BusinessType:     req.BusinessType,
		Documents:        req.Documents,
	}
	if err := s.applications.Create(ctx, app); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, errAlreadyPending
		}
		return nil, internalError(s.logger, "failed to create seller application", err)
	}

	s.logger.Info("Seller application submitted", zap.String("application_id", app.ID.Hex()), zap.String("user_id", p.UserID))
	recordMetrics(s.metrics, func(ctx context.Context, m MetricsRecorder) {
		_ = m.RecordCount(ctx, aws_pkg.MetricApplicationsPending, map[string]string{"Kind": models.KindSellerApplication})
	})
	return app, nil
}

// ReviewSellerApplication approves or rejects a pending application. Approval turns the applicant
// into a verified seller in the same unit of work as the status change.
func (s *verificationServiceImpl) ReviewSellerApplication(ctx context.Context, p auth.Principal, id string, decision *models.ReviewDecision) (*models.SellerApplication, *ServiceError) {
	review, svcErr := s.reviewInfo(p, decision)
	if svcErr != nil {
		return nil, svcErr
	}
	oid, svcErr := parseID(id, "application")
	if svcErr != nil {
		return nil, svcErr
	}
	app, err := s.applications.FindByID(ctx, oid)
	if err != nil {
		return nil, fromRepo(s.logger, err, "Application not found", "failed to load application")
	}
	if app.Status != models.RequestPending {
		return nil, errAlreadyReviewed
	}

	err = s.tx.WithTransaction(ctx, func(txCtx context.Context) error {
		comp := &compensation{}
		err := s.setApplicationStatus(txCtx, comp, app.ID, decision.Status, review)
		if err == nil && decision.Status == models.RequestApproved {
			err = s.promoteApplicant(txCtx, app, review)
		}
		if err != nil {
			comp.run(txCtx, s.logger)
		}
		return err
	})
	if err != nil {
		if errors.Is(err, repository.ErrVersionConflict) {
			return nil, errAlreadyReviewed
		}
		return nil, fromRepo(s.logger, err, "Applicant not found", "failed to review application")
	}

	app.Status = decision.Status
	app.ReviewInfo = review
	s.reviewed(models.KindSellerApplication, app.ID, app.User, decision)
	return app, nil
}

// promoteApplicant writes the approved store details onto the applicant's seller profile. Brand
// flags and stats already on the profile are kept, and only plain users change role.
func (s *verificationServiceImpl) promoteApplicant(ctx context.Context, app *models.SellerApplication, review models.ReviewInfo) error {
	user, err := s.users.FindByID(ctx, app.User)
	if err != nil {
		return err
	}
	updates := bson.M{
		"seller_profile.store_name":        app.StoreName,
		"seller_profile.store_description": app.StoreDescription,
		"seller_profile.phone":             app.Phone,
		"seller_profile.address":           app.Address,
		"seller_profile.is_verified":       true,
		"seller_profile.verified_at":       review.ReviewedAt,
	}
	if user.Role == models.RoleUser {
		updates["role"] = models.RoleSeller
	}
	return s.users.Update(ctx, app.User, updates)
}

func (s *verificationServiceImpl) setApplicationStatus(ctx context.Context, comp *compensation, id primitive.ObjectID, to models.RequestStatus, review models.ReviewInfo) error {
	if err := s.applications.SetStatus(ctx, id, models.RequestPending, to, review); err != nil {
		return err
	}
	comp.add("revert application "+id.Hex(), func(ctx context.Context) error {
		return s.applications.SetStatus(ctx, id, to, models.RequestPending, models.ReviewInfo{})
	})
	return nil
}

func (s *verificationServiceImpl) GetMySellerApplications(ctx context.Context, p auth.Principal) ([]*models.SellerApplication, *ServiceError) {
	uid, svcErr := principalID(p)
	if svcErr != nil {
		return nil, svcErr
	}
	apps, err := s.applications.FindByUser(ctx, uid)
	if err != nil {
		return nil, internalError(s.logger, "failed to load applications", err)
	}
	return apps, nil
}

func (s *verificationServiceImpl) GetSellerApplication(ctx context.Context, p auth.Principal, id string) (*models.SellerApplication, *ServiceError) {
	oid, svcErr := parseID(id, "application")
	if svcErr != nil {
		return nil, svcErr
	}
	app, err := s.applications.FindByID(ctx, oid)
	if err != nil {
		return nil, fromRepo(s.logger, err, "Application not found", "failed to load application")
	}
	if !p.IsAdmin() && app.User.Hex() != p.UserID {
		return nil, forbidden("Not authorized to view this application")
	}
	return app, nil
}

func (s *verificationServiceImpl) ListSellerApplications(ctx context.Context, status models.RequestStatus, page models.Page) ([]*models.SellerApplication, models.MetaData, *ServiceError) {
	if !validRequestStatus(status) {
		return nil, models.MetaData{}, badRequest("Invalid status")
	}
	page = normalizePage(page)
	apps, total, err := s.applications.Find(ctx, models.RequestFilter{Status: status}, page)
	if err != nil {
		return nil, models.MetaData{}, internalError(s.logger, "failed to list applications", err)
	}
	return apps, models.NewMetaData(page, total), nil
}

// SubmitBrandVerification is open to sellers only. A referenced brand must exist and must not be
// owned by another seller.
func (s *verificationServiceImpl) SubmitBrandVerification(ctx context.Context, p auth.Principal, req *models.BrandVerificationRequest) (*models.BrandVerification, *ServiceError) {
	if p.Role != models.RoleSeller {
		return nil, forbidden("Only sellers can request brand verification")
	}
	uid, svcErr := principalID(p)
	if svcErr != nil {
		return nil, svcErr
	}

	vr := &models.BrandVerification{
		User:      uid,
		BrandName: strings.TrimSpace(req.BrandName),
		Website:   req.Website,
		Documents: req.Documents,
	}
	if req.Brand != "" {
		bid, svcErr := parseID(req.Brand, "brand")
		if svcErr != nil {
			return nil, svcErr
		}
		brand, err := s.brands.FindByID(ctx, bid)
		if errors.Is(err, repository.ErrNotFound) {
			return nil, badRequest("Brand not found")
		}
		if err != nil {
			return nil, internalError(s.logger, "failed to load brand", err)
		}
		if brand.Owner != nil && *brand.Owner != uid {
			return nil, forbidden("Brand belongs to another seller")
		}
		vr.Brand = &bid
	}

	pending, err := s.verifications.HasPending(ctx, uid)
	if err != nil {
		return nil, internalError(s.logger, "failed to check pending verifications", err)
	}
	if pending {
		return nil, errAlreadyPending
	}
	if err := s.verifications.Create(ctx, vr); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, errAlreadyPending
		}
		return nil, internalError(s.logger, "failed to create brand verification", err)
	}

	s.logger.Info("Brand verification submitted", zap.String("request_id", vr.ID.Hex()), zap.String("user_id", p.UserID))
	recordMetrics(s.metrics, func(ctx context.Context, m MetricsRecorder) {
		_ = m.RecordCount(ctx, aws_pkg.MetricApplicationsPending, map[string]string{"Kind": models.KindBrandVerification})
	})
	return vr, nil
}

// ReviewBrandVerification approves or rejects a pending request. Approval marks the seller profile
// brand verified and, when a brand is referenced, the brand itself.
func (s *verificationServiceImpl) ReviewBrandVerification(ctx context.Context, p auth.Principal, id string, decision *models.ReviewDecision) (*models.BrandVerification, *ServiceError) {
	review, svcErr := s.reviewInfo(p, decision)
	if svcErr != nil {
		return nil, svcErr
	}
	oid, svcErr := parseID(id, "verification")
	if svcErr != nil {
		return nil, svcErr
	}
	vr, err := s.verifications.FindByID(ctx, oid)
	if err != nil {
		return nil, fromRepo(s.logger, err, "Verification request not found", "failed to load verification request")
	}
	if vr.Status != models.RequestPending {
		return nil, errAlreadyReviewed
	}

	err = s.tx.WithTransaction(ctx, func(txCtx context.Context) error {
		comp := &compensation{}
		err := s.verifications.SetStatus(txCtx, vr.ID, models.RequestPending, decision.Status, review)
		if err != nil {
			return err
		}
		comp.add("revert verification "+vr.ID.Hex(), func(ctx context.Context) error {
			return s.verifications.SetStatus(ctx, vr.ID, decision.Status, models.RequestPending, models.ReviewInfo{})
		})

		if decision.Status == models.RequestApproved {
			err = s.approveBrand(txCtx, comp, vr)
		}
		if err != nil {
			comp.run(txCtx, s.logger)
		}
		return err
	})
	if err != nil {
		if errors.Is(err, repository.ErrVersionConflict) {
			return nil, errAlreadyReviewed
		}
		return nil, fromRepo(s.logger, err, "Seller or brand not found", "failed to review brand verification")
	}

	vr.Status = decision.Status
	vr.ReviewInfo = review
	s.reviewed(models.KindBrandVerification, vr.ID, vr.User, decision)
	return vr, nil
}

func (s *verificationServiceImpl) approveBrand(ctx context.Context, comp *compensation, vr *models.BrandVerification) error {
	user, err := s.users.FindByID(ctx, vr.User)
	if err != nil {
		return err
	}
	if user.SellerProfile == nil {
		return badRequest("Applicant is no longer a seller")
	}
	prev := *user.SellerProfile
	if err := s.users.Update(ctx, vr.User, bson.M{
		"seller_profile.is_brand_verified": true,
		"seller_profile.brand_name":        vr.BrandName,
	}); err != nil {
		return err
	}
	comp.add("revert seller brand "+vr.User.Hex(), func(ctx context.Context) error {
		return s.users.Update(ctx, vr.User, bson.M{
			"seller_profile.is_brand_verified": prev.IsBrandVerified,
			"seller_profile.brand_name":        prev.BrandName,
		})
	})

	if vr.Brand == nil {
		return nil
	}
	brand, err := s.brands.FindByID(ctx, *vr.Brand)
	if err != nil {
		return err
	}
	updates := bson.M{"is_verified": true}
	if brand.Owner == nil {
		updates["owner"] = vr.User
	}
	return s.brands.Update(ctx, brand.ID, updates)
}

func (s *verificationServiceImpl) GetMyBrandVerifications(ctx context.Context, p auth.Principal) ([]*models.BrandVerification, *ServiceError) {
	uid, svcErr := principalID(p)
	if svcErr != nil {
		return nil, svcErr
	}
	list, err := s.verifications.FindByUser(ctx, uid)
	if err != nil {
		return nil, internalError(s.logger, "failed to load verification requests", err)
	}
	return list, nil
}

func (s *verificationServiceImpl) GetBrandVerification(ctx context.Context, p auth.Principal, id string) (*models.BrandVerification, *ServiceError) {
	oid, svcErr := parseID(id, "verification")
	if svcErr != nil {
		return nil, svcErr
	}
	vr, err := s.verifications.FindByID(ctx, oid)
	if err != nil {
		return nil, fromRepo(s.logger, err, "Verification request not found", "failed to load verification request")
	}
	if !p.IsAdmin() && vr.User.Hex() != p.UserID {
		return nil, forbidden("Not authorized to view this request")
	}
	return vr, nil
}

func (s *verificationServiceImpl) ListBrandVerifications(ctx context.Context, status models.RequestStatus, page models.Page) ([]*models.BrandVerification, models.MetaData, *ServiceError) {
	if !validRequestStatus(status) {
		return nil, models.MetaData{}, badRequest("Invalid status")
	}
	page = normalizePage(page)
	list, total, err := s.verifications.Find(ctx, models.RequestFilter{Status: status}, page)
	if err != nil {
		return nil, models.MetaData{}, internalError(s.logger, "failed to list verification requests", err)
	}
	return list, models.NewMetaData(page, total), nil
}

func (s *verificationServiceImpl) reviewInfo(p auth.Principal, decision *models.ReviewDecision) (models.ReviewInfo, *ServiceError) {
	if !p.IsAdmin() {
		return models.ReviewInfo{}, forbidden("Admin access required")
	}
	if decision.Status != models.RequestApproved && decision.Status != models.RequestRejected {
		return models.ReviewInfo{}, badRequest("Decision must be approved or rejected")
	}
	reviewer, svcErr := principalID(p)
	if svcErr != nil {
		return models.ReviewInfo{}, svcErr
	}
	now := time.Now().UTC()
	return models.ReviewInfo{
		ReviewNote: strings.TrimSpace(decision.Note),
		ReviewedBy: &reviewer,
		ReviewedAt: &now,
	}, nil
}

func (s *verificationServiceImpl) reviewed(kind string, id, user primitive.ObjectID, decision *models.ReviewDecision) {
	s.logger.Info("Verification reviewed",
		zap.String("kind", kind),
		zap.String("request_id", id.Hex()),
		zap.String("status", string(decision.Status)),
	)
	s.events.Publish(models.TopicVerificationReviewed, models.VerificationReviewedEvent{
		EventType: EventVerificationReviewed,
		Kind:      kind,
		RequestID: id.Hex(),
		UserID:    user.Hex(),
		Status:    string(decision.Status),
		Note:      strings.TrimSpace(decision.Note),
		Timestamp: time.Now().UTC(),
	})
}

func validRequestStatus(s models.RequestStatus) bool {
	switch s {
	case "", models.RequestPending, models.RequestApproved, models.RequestRejected:
		return true
	}
	return false
}
