package controllers

import (
	"net/http"

	"marketplace-service/services"

	"github.com/gin-gonic/gin"
)

const modelField = "model"

// ARModelController manages the per-platform AR model files attached to products.
type ARModelController struct {
	assetService services.AssetService
}

func NewARModelController(assetService services.AssetService) *ARModelController {
	return &ARModelController{assetService: assetService}
}

// UploadModel handles POST /api/models/products/:id/:platform with a "model" file.
func (ac *ARModelController) UploadModel(ctx *gin.Context) {
	p, ok := principal(ctx)
	if !ok {
		return
	}
	files, ok := multipartFiles(ctx, services.MaxARModelSize+1<<20, modelField)
	if !ok {
		return
	}

	arModels, svcErr := ac.assetService.UploadARModel(ctx.Request.Context(), p, ctx.Param("id"), ctx.Param("platform"), files[0])
	if svcErr != nil {
		respondError(ctx, svcErr)
		return
	}
	ctx.JSON(http.StatusCreated, gin.H{"ar_models": arModels})
}

// ListModels handles GET /api/models/products/:id.
func (ac *ARModelController) ListModels(ctx *gin.Context) {
	files, svcErr := ac.assetService.ListARModels(ctx.Request.Context(), ctx.Param("id"))
	if svcErr != nil {
		respondError(ctx, svcErr)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"models": files})
}

// DeleteModel handles DELETE /api/models/products/:id/:platform.
func (ac *ARModelController) DeleteModel(ctx *gin.Context) {
	p, ok := principal(ctx)
	if !ok {
		return
	}
	arModels, svcErr := ac.assetService.DeleteARModel(ctx.Request.Context(), p, ctx.Param("id"), ctx.Param("platform"))
	if svcErr != nil {
		respondError(ctx, svcErr)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"ar_models": arModels})
}

// ServeModel handles GET /api/models/file/*key by redirecting to a presigned download URL.
func (ac *ARModelController) ServeModel(ctx *gin.Context) {
	url, svcErr := ac.assetService.ModelFileURL(ctx.Request.Context(), ctx.Param("key"))
	if svcErr != nil {
		respondError(ctx, svcErr)
		return
	}
	ctx.Redirect(http.StatusTemporaryRedirect, url)
}
