package services_test

import (
	"context"
	"net/http"
	"testing"

	"marketplace-service/models"
	"marketplace-service/services"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

func newUserService(users *memUsers) services.UserService {
	return services.NewUserService(users, fakeTokens{}, bcrypt.MinCost, zap.NewNop())
}

func TestRegisterAndLogin(t *testing.T) {
	users := newMemUsers()
	svc := newUserService(users)
	ctx := context.Background()

	resp, err := svc.Register(ctx, &models.RegisterRequest{Username: "alice", Email: "Alice@Example.com", Password: "password123"})
	require.Nil(t, err)
	assert.Equal(t, "alice@example.com", resp.User.Email)
	assert.Equal(t, models.RoleUser, resp.User.Role)
	assert.Equal(t, "token-"+resp.User.ID.Hex(), resp.Token)
	assert.NotEqual(t, "password123", resp.User.Password)

	_, err = svc.Register(ctx, &models.RegisterRequest{Username: "alice2", Email: "alice@example.com", Password: "password123"})
	require.NotNil(t, err)
	assert.Equal(t, http.StatusBadRequest, err.StatusCode)
	assert.Equal(t, "User already exists", err.Message)

	login, err := svc.Login(ctx, &models.LoginRequest{Email: "ALICE@example.com", Password: "password123"})
	require.Nil(t, err)
	assert.Equal(t, resp.User.ID, login.User.ID)

	_, err = svc.Login(ctx, &models.LoginRequest{Email: "alice@example.com", Password: "wrong"})
	require.NotNil(t, err)
	assert.Equal(t, http.StatusUnauthorized, err.StatusCode)

	_, err = svc.Login(ctx, &models.LoginRequest{Email: "bob@example.com", Password: "password123"})
	require.NotNil(t, err)
	assert.Equal(t, "Invalid email or password", err.Message)
}

func TestUpdateProfile_StoreFieldsNeedSellerProfile(t *testing.T) {
	buyer := &models.User{Username: "buyer", Email: "buyer@example.com", Role: models.RoleUser}
	seller := &models.User{Username: "seller", Email: "seller@example.com", Role: models.RoleSeller,
		SellerProfile: &models.SellerProfile{StoreName: "Old Store"}}
	users := newMemUsers(buyer, seller)
	svc := newUserService(users)
	ctx := context.Background()
	store := "New Store"

	_, err := svc.UpdateProfile(ctx, principal(buyer.ID, models.RoleUser), &models.UpdateProfileRequest{StoreName: &store})
	require.NotNil(t, err)
	assert.Equal(t, http.StatusForbidden, err.StatusCode)

	updated, err := svc.UpdateProfile(ctx, principal(seller.ID, models.RoleSeller), &models.UpdateProfileRequest{StoreName: &store})
	require.Nil(t, err)
	assert.Equal(t, "New Store", updated.SellerProfile.StoreName)

	taken := "buyer"
	_, err = svc.UpdateProfile(ctx, principal(seller.ID, models.RoleSeller), &models.UpdateProfileRequest{Username: &taken})
	require.NotNil(t, err)
	assert.Equal(t, http.StatusBadRequest, err.StatusCode)
}

func TestChangePassword(t *testing.T) {
	users := newMemUsers()
	svc := newUserService(users)
	ctx := context.Background()
	resp, err := svc.Register(ctx, &models.RegisterRequest{Username: "carol", Email: "carol@example.com", Password: "password123"})
	require.Nil(t, err)
	p := principal(resp.User.ID, models.RoleUser)

	err = svc.ChangePassword(ctx, p, &models.ChangePasswordRequest{CurrentPassword: "nope", NewPassword: "newpassword1"})
	require.NotNil(t, err)
	assert.Equal(t, "Current password is incorrect", err.Message)

	require.Nil(t, svc.ChangePassword(ctx, p, &models.ChangePasswordRequest{CurrentPassword: "password123", NewPassword: "newpassword1"}))
	_, err = svc.Login(ctx, &models.LoginRequest{Email: "carol@example.com", Password: "newpassword1"})
	assert.Nil(t, err)
}

func TestUpdateUserRole(t *testing.T) {
	user := &models.User{Username: "dave", Email: "dave@example.com", Role: models.RoleUser}
	users := newMemUsers(user)
	svc := newUserService(users)
	ctx := context.Background()
	admin := principal(primitive.NewObjectID(), models.RoleAdmin)

	updated, err := svc.UpdateUserRole(ctx, admin, user.ID.Hex(), models.RoleSeller)
	require.Nil(t, err)
	assert.Equal(t, models.RoleSeller, updated.Role)
	require.NotNil(t, updated.SellerProfile)
	assert.Equal(t, "dave", updated.SellerProfile.StoreName)
	assert.False(t, updated.SellerProfile.IsVerified)

	_, err = svc.UpdateUserRole(ctx, admin, admin.UserID, models.RoleUser)
	require.NotNil(t, err)
	assert.Equal(t, http.StatusBadRequest, err.StatusCode)

	_, err = svc.UpdateUserRole(ctx, admin, user.ID.Hex(), "root")
	require.NotNil(t, err)
	assert.Equal(t, "Invalid role", err.Message)

	_, err = svc.UpdateUserRole(ctx, admin, primitive.NewObjectID().Hex(), models.RoleUser)
	require.NotNil(t, err)
	assert.Equal(t, http.StatusNotFound, err.StatusCode)
}
