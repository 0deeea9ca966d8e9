package controllers

import (
	"net/http"
	"strings"

	"marketplace-service/common/auth"
	"marketplace-service/models"
	"marketplace-service/services"

	"github.com/gin-gonic/gin"
)

const documentsField = "documents"

// VerificationController handles seller applications and brand verifications. Submissions accept either
// JSON with previously uploaded documents or a multipart form carrying the files.
type VerificationController struct {
	verificationService services.VerificationService
	assetService        services.AssetService
}

func NewVerificationController(verificationService services.VerificationService, assetService services.AssetService) *VerificationController {
	return &VerificationController{verificationService: verificationService, assetService: assetService}
}

// SubmitSellerApplication handles POST /api/sellers/apply.
func (vc *VerificationController) SubmitSellerApplication(ctx *gin.Context) {
	p, ok := principal(ctx)
	if !ok {
		return
	}
	var req models.SellerApplicationRequest
	if err := ctx.ShouldBind(&req); err != nil {
		badRequest(ctx, err)
		return
	}
	uploaded, ok := vc.uploadDocuments(ctx, p)
	if !ok {
		return
	}
	req.Documents = append(req.Documents, uploaded...)

	application, svcErr := vc.verificationService.SubmitSellerApplication(ctx.Request.Context(), p, &req)
	if svcErr != nil {
		vc.discard(ctx, uploaded)
		respondError(ctx, svcErr)
		return
	}
	ctx.JSON(http.StatusCreated, application)
}

// GetMySellerApplications handles GET /api/sellers/applications/mine.
func (vc *VerificationController) GetMySellerApplications(ctx *gin.Context) {
	p, ok := principal(ctx)
	if !ok {
		return
	}
	applications, svcErr := vc.verificationService.GetMySellerApplications(ctx.Request.Context(), p)
	if svcErr != nil {
		respondError(ctx, svcErr)
		return
	}
	ctx.JSON(http.StatusOK, applications)
}

func (vc *VerificationController) GetSellerApplication(ctx *gin.Context) {
	p, ok := principal(ctx)
	if !ok {
		return
	}
	application, svcErr := vc.verificationService.GetSellerApplication(ctx.Request.Context(), p, ctx.Param("id"))
	if svcErr != nil {
		respondError(ctx, svcErr)
		return
	}
	ctx.JSON(http.StatusOK, application)
}

// ListSellerApplications handles GET /api/admin/seller-applications?status= (admin only).
func (vc *VerificationController) ListSellerApplications(ctx *gin.Context) {
	status, valid := requestStatusQuery(ctx)
	if !valid {
		return
	}
	applications, meta, svcErr := vc.verificationService.ListSellerApplications(ctx.Request.Context(), status, parsePaginationParams(ctx))
	if svcErr != nil {
		respondError(ctx, svcErr)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"applications": applications, "meta": meta})
}

// ReviewSellerApplication handles PUT /api/admin/seller-applications/:id/review (admin only).
func (vc *VerificationController) ReviewSellerApplication(ctx *gin.Context) {
	p, ok := principal(ctx)
	if !ok {
		return
	}
	var decision models.ReviewDecision
	if err := ctx.ShouldBindJSON(&decision); err != nil {
		badRequest(ctx, err)
		return
	}
	application, svcErr := vc.verificationService.ReviewSellerApplication(ctx.Request.Context(), p, ctx.Param("id"), &decision)
	if svcErr != nil {
		respondError(ctx, svcErr)
		return
	}
	ctx.JSON(http.StatusOK, application)
}

// SubmitBrandVerification handles POST /api/brand-verification (seller only).
func (vc *VerificationController) SubmitBrandVerification(ctx *gin.Context) {
	p, ok := principal(ctx)
	if !ok {
		return
	}
	var req models.BrandVerificationRequest
	if err := ctx.ShouldBind(&req); err != nil {
		badRequest(ctx, err)
		return
	}
	uploaded, ok := vc.uploadDocuments(ctx, p)
	if !ok {
		return
	}
	req.Documents = append(req.Documents, uploaded...)

	verification, svcErr := vc.verificationService.SubmitBrandVerification(ctx.Request.Context(), p, &req)
	if svcErr != nil {
		vc.discard(ctx, uploaded)
		respondError(ctx, svcErr)
		return
	}
	ctx.JSON(http.StatusCreated, verification)
}

func (vc *VerificationController) GetMyBrandVerifications(ctx *gin.Context) {
	p, ok := principal(ctx)
	if !ok {
		return
	}
	verifications, svcErr := vc.verificationService.GetMyBrandVerifications(ctx.Request.Context(), p)
	if svcErr != nil {
		respondError(ctx, svcErr)
		return
	}
	ctx.JSON(http.StatusOK, verifications)
}

func (vc *VerificationController) GetBrandVerification(ctx *gin.Context) {
	p, ok := principal(ctx)
	if !ok {
		return
	}
	verification, svcErr := vc.verificationService.GetBrandVerification(ctx.Request.Context(), p, ctx.Param("id"))
	if svcErr != nil {
		respondError(ctx, svcErr)
		return
	}
	ctx.JSON(http.StatusOK, verification)
}

// ListBrandVerifications handles GET /api/brand-verification?status= (admin only).
func (vc *VerificationController) ListBrandVerifications(ctx *gin.Context) {
	status, valid := requestStatusQuery(ctx)
	if !valid {
		return
	}
	verifications, meta, svcErr := vc.verificationService.ListBrandVerifications(ctx.Request.Context(), status, parsePaginationParams(ctx))
	if svcErr != nil {
		respondError(ctx, svcErr)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"verifications": verifications, "meta": meta})
}

// ReviewBrandVerification handles PUT /api/brand-verification/:id/review (admin only).
func (vc *VerificationController) ReviewBrandVerification(ctx *gin.Context) {
	p, ok := principal(ctx)
	if !ok {
		return
	}
	var decision models.ReviewDecision
	if err := ctx.ShouldBindJSON(&decision); err != nil {
		badRequest(ctx, err)
		return
	}
	verification, svcErr := vc.verificationService.ReviewBrandVerification(ctx.Request.Context(), p, ctx.Param("id"), &decision)
	if svcErr != nil {
		respondError(ctx, svcErr)
		return
	}
	ctx.JSON(http.StatusOK, verification)
}

// uploadDocuments stores the files of a multipart submission. JSON submissions upload nothing.
func (vc *VerificationController) uploadDocuments(ctx *gin.Context, p auth.Principal) ([]models.Document, bool) {
	if !strings.HasPrefix(ctx.ContentType(), "multipart/") {
		return nil, true
	}
	form, err := ctx.MultipartForm()
	if err != nil {
		badRequest(ctx, err)
		return nil, false
	}
	files := form.File[documentsField]
	if len(files) == 0 {
		return nil, true
	}

	uploaded, svcErr := vc.assetService.UploadDocuments(ctx.Request.Context(), p, files)
	if svcErr != nil {
		respondError(ctx, svcErr)
		return nil, false
	}
	docs := make([]models.Document, 0, len(uploaded))
	for _, f := range uploaded {
		docs = append(docs, models.Document{Name: f.Name, URL: f.URL, PublicID: f.PublicID})
	}
	return docs, true
}

// discard removes documents uploaded for a submission that was then refused.
func (vc *VerificationController) discard(ctx *gin.Context, docs []models.Document) {
	if len(docs) == 0 {
		return
	}
	keys := make([]string, 0, len(docs))
	for _, d := range docs {
		keys = append(keys, d.PublicID)
	}
	_ = vc.assetService.CleanupAssets(ctx.Request.Context(), keys, nil)
}

func requestStatusQuery(ctx *gin.Context) (models.RequestStatus, bool) {
	status := models.RequestStatus(ctx.Query("status"))
	switch status {
	case "", models.RequestPending, models.RequestApproved, models.RequestRejected:
		return status, true
	}
	ctx.JSON(http.StatusBadRequest, gin.H{"message": "Invalid request status"})
	return "", false
}
