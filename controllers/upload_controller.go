package controllers

import (
	"errors"
	"mime/multipart"
	"net/http"

	"marketplace-service/models"
	"marketplace-service/services"

	"github.com/gin-gonic/gin"
)

// maxUploadBody caps a whole multipart request: every file at its limit plus room for form fields.
const maxUploadBody = services.MaxUploadFiles*services.MaxUploadFileSize + 1<<20

// UploadController proxies image and document uploads to object storage.
type UploadController struct {
	assetService services.AssetService
}

func NewUploadController(assetService services.AssetService) *UploadController {
	return &UploadController{assetService: assetService}
}

// UploadImages handles POST /api/upload/images?folder=products with one or more "images" files.
func (uc *UploadController) UploadImages(ctx *gin.Context) {
	p, ok := principal(ctx)
	if !ok {
		return
	}
	files, ok := multipartFiles(ctx, maxUploadBody, "images", "image")
	if !ok {
		return
	}

	uploaded, svcErr := uc.assetService.UploadImages(ctx.Request.Context(), p, ctx.DefaultQuery("folder", models.FolderProducts), files)
	if svcErr != nil {
		respondError(ctx, svcErr)
		return
	}
	ctx.JSON(http.StatusCreated, gin.H{"files": uploaded})
}

// UploadDocuments handles POST /api/upload/documents with one or more "documents" files.
func (uc *UploadController) UploadDocuments(ctx *gin.Context) {
	p, ok := principal(ctx)
	if !ok {
		return
	}
	files, ok := multipartFiles(ctx, maxUploadBody, documentsField, "document")
	if !ok {
		return
	}

	uploaded, svcErr := uc.assetService.UploadDocuments(ctx.Request.Context(), p, files)
	if svcErr != nil {
		respondError(ctx, svcErr)
		return
	}
	ctx.JSON(http.StatusCreated, gin.H{"files": uploaded})
}

// PresignUpload handles POST /api/upload/presign for direct browser uploads.
func (uc *UploadController) PresignUpload(ctx *gin.Context) {
	p, ok := principal(ctx)
	if !ok {
		return
	}
	var req models.PresignRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		badRequest(ctx, err)
		return
	}

	resp, svcErr := uc.assetService.PresignUpload(ctx.Request.Context(), p, &req)
	if svcErr != nil {
		respondError(ctx, svcErr)
		return
	}
	ctx.JSON(http.StatusOK, resp)
}

// DeleteAsset handles DELETE /api/upload with a {public_id} body.
func (uc *UploadController) DeleteAsset(ctx *gin.Context) {
	p, ok := principal(ctx)
	if !ok {
		return
	}
	var req models.DeleteAssetRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		badRequest(ctx, err)
		return
	}

	if svcErr := uc.assetService.DeleteAsset(ctx.Request.Context(), p, req.PublicID); svcErr != nil {
		respondError(ctx, svcErr)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"message": "File deleted"})
}

// multipartFiles reads the files posted under the first non-empty field. Bodies over limit answer 413.
func multipartFiles(ctx *gin.Context, limit int64, fields ...string) ([]*multipart.FileHeader, bool) {
	ctx.Request.Body = http.MaxBytesReader(ctx.Writer, ctx.Request.Body, limit)
	form, err := ctx.MultipartForm()
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			ctx.JSON(http.StatusRequestEntityTooLarge, gin.H{"message": "Upload too large"})
			return nil, false
		}
		ctx.JSON(http.StatusBadRequest, gin.H{"message": "Expected a multipart form"})
		return nil, false
	}
	for _, field := range fields {
		if files := form.File[field]; len(files) > 0 {
			return files, true
		}
	}
	ctx.JSON(http.StatusBadRequest, gin.H{"message": "No files uploaded"})
	return nil, false
}
