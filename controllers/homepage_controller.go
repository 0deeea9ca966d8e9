package controllers

import (
	"net/http"

	"marketplace-service/models"
	"marketplace-service/services"

	"github.com/gin-gonic/gin"
)

// HomepageController manages homepage sections.
type HomepageController struct {
	homepageService services.HomepageService
}

func NewHomepageController(homepageService services.HomepageService) *HomepageController {
	return &HomepageController{homepageService: homepageService}
}

// ListActiveSections handles GET /api/homepage/sections, returning active sections with their products
// resolved.
func (hc *HomepageController) ListActiveSections(ctx *gin.Context) {
	sections, svcErr := hc.homepageService.ListActiveSections(ctx.Request.Context())
	if svcErr != nil {
		respondError(ctx, svcErr)
		return
	}
	ctx.JSON(http.StatusOK, sections)
}

// ListSections handles GET /api/homepage/sections/all (admin only).
func (hc *HomepageController) ListSections(ctx *gin.Context) {
	sections, svcErr := hc.homepageService.ListSections(ctx.Request.Context())
	if svcErr != nil {
		respondError(ctx, svcErr)
		return
	}
	ctx.JSON(http.StatusOK, sections)
}

func (hc *HomepageController) GetSection(ctx *gin.Context) {
	section, svcErr := hc.homepageService.GetSection(ctx.Request.Context(), ctx.Param("id"))
	if svcErr != nil {
		respondError(ctx, svcErr)
		return
	}
	ctx.JSON(http.StatusOK, section)
}

func (hc *HomepageController) CreateSection(ctx *gin.Context) {
	var req models.CreateSectionRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		badRequest(ctx, err)
		return
	}
	section, svcErr := hc.homepageService.CreateSection(ctx.Request.Context(), &req)
	if svcErr != nil {
		respondError(ctx, svcErr)
		return
	}
	ctx.JSON(http.StatusCreated, section)
}

func (hc *HomepageController) UpdateSection(ctx *gin.Context) {
	var req models.UpdateSectionRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		badRequest(ctx, err)
		return
	}
	section, svcErr := hc.homepageService.UpdateSection(ctx.Request.Context(), ctx.Param("id"), &req)
	if svcErr != nil {
		respondError(ctx, svcErr)
		return
	}
	ctx.JSON(http.StatusOK, section)
}

func (hc *HomepageController) DeleteSection(ctx *gin.Context) {
	if svcErr := hc.homepageService.DeleteSection(ctx.Request.Context(), ctx.Param("id")); svcErr != nil {
		respondError(ctx, svcErr)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"message": "Section removed"})
}

// ReorderSections handles PUT /api/homepage/sections/reorder with the full id list in display order.
func (hc *HomepageController) ReorderSections(ctx *gin.Context) {
	var req models.ReorderSectionsRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		badRequest(ctx, err)
		return
	}
	sections, svcErr := hc.homepageService.ReorderSections(ctx.Request.Context(), req.IDs)
	if svcErr != nil {
		respondError(ctx, svcErr)
		return
	}
	ctx.JSON(http.StatusOK, sections)
}
