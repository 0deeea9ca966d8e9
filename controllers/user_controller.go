package controllers

import (
	"net/http"

	"marketplace-service/models"
	"marketplace-service/services"

	"github.com/gin-gonic/gin"
)

// UserController handles registration, login, and profile endpoints.
type UserController struct {
	userService services.UserService
}

func NewUserController(userService services.UserService) *UserController {
	return &UserController{userService: userService}
}

// Register handles POST /api/users/register.
func (uc *UserController) Register(ctx *gin.Context) {
	var req models.RegisterRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		badRequest(ctx, err)
		return
	}

	resp, svcErr := uc.userService.Register(ctx.Request.Context(), &req)
	if svcErr != nil {
		respondError(ctx, svcErr)
		return
	}
	ctx.JSON(http.StatusCreated, resp)
}

// Login handles POST /api/users/login.
func (uc *UserController) Login(ctx *gin.Context) {
	var req models.LoginRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		badRequest(ctx, err)
		return
	}

	resp, svcErr := uc.userService.Login(ctx.Request.Context(), &req)
	if svcErr != nil {
		respondError(ctx, svcErr)
		return
	}
	ctx.JSON(http.StatusOK, resp)
}

// GetProfile handles GET /api/users/profile.
func (uc *UserController) GetProfile(ctx *gin.Context) {
	p, ok := principal(ctx)
	if !ok {
		return
	}
	user, svcErr := uc.userService.GetProfile(ctx.Request.Context(), p)
	if svcErr != nil {
		respondError(ctx, svcErr)
		return
	}
	ctx.JSON(http.StatusOK, user)
}

// UpdateProfile handles PUT /api/users/profile.
func (uc *UserController) UpdateProfile(ctx *gin.Context) {
	p, ok := principal(ctx)
	if !ok {
		return
	}
	var req models.UpdateProfileRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		badRequest(ctx, err)
		return
	}

	user, svcErr := uc.userService.UpdateProfile(ctx.Request.Context(), p, &req)
	if svcErr != nil {
		respondError(ctx, svcErr)
		return
	}
	ctx.JSON(http.StatusOK, user)
}

// ChangePassword handles PUT /api/users/password.
func (uc *UserController) ChangePassword(ctx *gin.Context) {
	p, ok := principal(ctx)
	if !ok {
		return
	}
	var req models.ChangePasswordRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		badRequest(ctx, err)
		return
	}

	if svcErr := uc.userService.ChangePassword(ctx.Request.Context(), p, &req); svcErr != nil {
		respondError(ctx, svcErr)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"message": "Password updated"})
}

// ListUsers handles GET /api/admin/users?role=&search= (admin only).
func (uc *UserController) ListUsers(ctx *gin.Context) {
	filter := models.UserFilter{Role: ctx.Query("role"), Search: ctx.Query("search")}
	users, meta, svcErr := uc.userService.ListUsers(ctx.Request.Context(), filter, parsePaginationParams(ctx))
	if svcErr != nil {
		respondError(ctx, svcErr)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"users": users, "meta": meta})
}

// UpdateUserRole handles PUT /api/admin/users/:id/role (admin only).
func (uc *UserController) UpdateUserRole(ctx *gin.Context) {
	p, ok := principal(ctx)
	if !ok {
		return
	}
	var req models.UpdateRoleRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		badRequest(ctx, err)
		return
	}

	user, svcErr := uc.userService.UpdateUserRole(ctx.Request.Context(), p, ctx.Param("id"), req.Role)
	if svcErr != nil {
		respondError(ctx, svcErr)
		return
	}
	ctx.JSON(http.StatusOK, user)
}
