package services

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"marketplace-service/common/auth"
	"marketplace-service/models"
	"marketplace-service/repository"

	"go.mongodb.org/mongo-driver/bson"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

// UserService covers registration, login, profiles and admin user management.
type UserService interface {
	Register(ctx context.Context, req *models.RegisterRequest) (*models.AuthResponse, *ServiceError)
	Login(ctx context.Context, req *models.LoginRequest) (*models.AuthResponse, *ServiceError)
	GetProfile(ctx context.Context, p auth.Principal) (*models.User, *ServiceError)
	UpdateProfile(ctx context.Context, p auth.Principal, req *models.UpdateProfileRequest) (*models.User, *ServiceError)
	ChangePassword(ctx context.Context, p auth.Principal, req *models.ChangePasswordRequest) *ServiceError
	ListUsers(ctx context.Context, filter models.UserFilter, page models.Page) ([]*models.User, models.MetaData, *ServiceError)
	UpdateUserRole(ctx context.Context, p auth.Principal, id string, role string) (*models.User, *ServiceError)
}

type userServiceImpl struct {
	users      repository.UserRepo
	tokens     TokenIssuer
	bcryptCost int
	logger     *zap.Logger
}

// NewUserService creates a new UserService. bcryptCost 0 selects bcrypt.DefaultCost.
func NewUserService(users repository.UserRepo, tokens TokenIssuer, bcryptCost int, logger *zap.Logger) UserService {
	if bcryptCost == 0 {
		bcryptCost = bcrypt.DefaultCost
	}
	return &userServiceImpl{users: users, tokens: tokens, bcryptCost: bcryptCost, logger: logger}
}

var errInvalidCredentials = newError(http.StatusUnauthorized, "Invalid email or password")

func (s *userServiceImpl) Register(ctx context.Context, req *models.RegisterRequest) (*models.AuthResponse, *ServiceError) {
	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), s.bcryptCost)
	if err != nil {
		return nil, internalError(s.logger, "failed to hash password", err)
	}

	user := &models.User{
		Username: strings.TrimSpace(req.Username),
		Email:    strings.ToLower(strings.TrimSpace(req.Email)),
		Password: string(hash),
		Role:     models.RoleUser,
	}
	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, badRequest("User already exists")
		}
		return nil, internalError(s.logger, "failed to create user", err)
	}

	s.logger.Info("User registered", zap.String("user_id", user.ID.Hex()))
	return s.issue(user)
}

func (s *userServiceImpl) Login(ctx context.Context, req *models.LoginRequest) (*models.AuthResponse, *ServiceError) {
	user, err := s.users.FindByEmail(ctx, strings.ToLower(strings.TrimSpace(req.Email)))
	if errors.Is(err, repository.ErrNotFound) {
		return nil, errInvalidCredentials
	}
	if err != nil {
		return nil, internalError(s.logger, "failed to load user", err)
	}
	if bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.Password)) != nil {
		return nil, errInvalidCredentials
	}
	return s.issue(user)
}

func (s *userServiceImpl) issue(user *models.User) (*models.AuthResponse, *ServiceError) {
	token, expiresAt, err := s.tokens.Generate(auth.Principal{
		UserID: user.ID.Hex(),
		Email:  user.Email,
		Role:   user.Role,
	})
	if err != nil {
		return nil, internalError(s.logger, "failed to issue token", err)
	}
	return &models.AuthResponse{Token: token, ExpiresAt: expiresAt, User: user}, nil
}

func (s *userServiceImpl) GetProfile(ctx context.Context, p auth.Principal) (*models.User, *ServiceError) {
	uid, svcErr := principalID(p)
	if svcErr != nil {
		return nil, svcErr
	}
	user, err := s.users.FindByID(ctx, uid)
	if err != nil {
		return nil, fromRepo(s.logger, err, "User not found", "failed to load profile")
	}
	return user, nil
}

func (s *userServiceImpl) UpdateProfile(ctx context.Context, p auth.Principal, req *models.UpdateProfileRequest) (*models.User, *ServiceError) {
	user, svcErr := s.GetProfile(ctx, p)
	if svcErr != nil {
		return nil, svcErr
	}

	updates := bson.M{}
	if req.Username != nil {
		updates["username"] = strings.TrimSpace(*req.Username)
	}
	storeFields := map[string]*string{
		"seller_profile.store_name":        req.StoreName,
		"seller_profile.store_description": req.StoreDescription,
		"seller_profile.phone":             req.Phone,
		"seller_profile.address":           req.Address,
	}
	for field, v := range storeFields {
		if v == nil {
			continue
		}
		if user.SellerProfile == nil {
			return nil, forbidden("Only sellers can update store details")
		}
		updates[field] = strings.TrimSpace(*v)
	}
	if len(updates) == 0 {
		return user, nil
	}

	if err := s.users.Update(ctx, user.ID, updates); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, badRequest("Username is already taken")
		}
		return nil, fromRepo(s.logger, err, "User not found", "failed to update profile")
	}
	return s.GetProfile(ctx, p)
}

func (s *userServiceImpl) ChangePassword(ctx context.Context, p auth.Principal, req *models.ChangePasswordRequest) *ServiceError {
	user, svcErr := s.GetProfile(ctx, p)
	if svcErr != nil {
		return svcErr
	}
	if bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.CurrentPassword)) != nil {
		return badRequest("Current password is incorrect")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(req.NewPassword), s.bcryptCost)
	if err != nil {
		return internalError(s.logger, "failed to hash password", err)
	}
	if err := s.users.Update(ctx, user.ID, bson.M{"password": string(hash)}); err != nil {
		return fromRepo(s.logger, err, "User not found", "failed to change password")
	}
	return nil
}

func (s *userServiceImpl) ListUsers(ctx context.Context, filter models.UserFilter, page models.Page) ([]*models.User, models.MetaData, *ServiceError) {
	page = normalizePage(page)
	users, total, err := s.users.List(ctx, filter, page)
	if err != nil {
		return nil, models.MetaData{}, internalError(s.logger, "failed to list users", err)
	}
	return users, models.NewMetaData(page, total), nil
}

// UpdateUserRole changes a user's role. Promoting to seller creates an empty, unverified store profile.
func (s *userServiceImpl) UpdateUserRole(ctx context.Context, p auth.Principal, id string, role string) (*models.User, *ServiceError) {
	oid, svcErr := parseID(id, "user")
	if svcErr != nil {
		return nil, svcErr
	}
	if id == p.UserID {
		return nil, badRequest("You cannot change your own role")
	}
	switch role {
	case models.RoleUser, models.RoleSeller, models.RoleAdmin:
	default:
		return nil, badRequest("Invalid role")
	}

	user, err := s.users.FindByID(ctx, oid)
	if err != nil {
		return nil, fromRepo(s.logger, err, "User not found", "failed to load user")
	}
	updates := bson.M{"role": role}
	if role == models.RoleSeller && user.SellerProfile == nil {
		updates["seller_profile"] = models.SellerProfile{StoreName: user.Username}
	}
	if err := s.users.Update(ctx, oid, updates); err != nil {
		return nil, fromRepo(s.logger, err, "User not found", "failed to update role")
	}

	s.logger.Info("User role updated",
		zap.String("user_id", id),
		zap.String("role", role),
		zap.String("by", p.UserID),
	)
	user, err = s.users.FindByID(ctx, oid)
	if err != nil {
		return nil, fromRepo(s.logger, err, "User not found", "failed to load user")
	}
	return user, nil
}
