package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"path"
	"strings"
	"sync"
	"time"

	"marketplace-service/common/auth"
	"marketplace-service/models"
	"marketplace-service/repository"
	aws_pkg "marketplace-service/pkg/aws"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.uber.org/zap"
)

const (
	MaxUploadFiles    = 10
	MaxUploadFileSize = 10 << 20
	MaxARModelSize    = 50 << 20

	defaultUploadTimeout = 60 * time.Second
	presignExpiry        = 15 * time.Minute
)

var (
	imageTypes = map[string]string{
		"image/jpeg": ".jpg",
		"image/png":  ".png",
		"image/webp": ".webp",
		"image/gif":  ".gif",
	}
	documentTypes = map[string]string{
		"application/pdf": ".pdf",
		"image/jpeg":      ".jpg",
		"image/png":       ".png",
	}
	arModelTypes = map[string]string{
		".usdz": "model/vnd.usdz+zip",
		".glb":  "model/gltf-binary",
		".gltf": "model/gltf+json",
	}
)

// AssetService stores uploads in S3 and manages product AR models.
type AssetService interface {
	UploadImages(ctx context.Context, p auth.Principal, folder string, files []*multipart.FileHeader) ([]models.UploadedFile, *ServiceError)
	UploadDocuments(ctx context.Context, p auth.Principal, files []*multipart.FileHeader) ([]models.UploadedFile, *ServiceError)
	PresignUpload(ctx context.Context, p auth.Principal, req *models.PresignRequest) (*models.PresignResponse, *ServiceError)
	DeleteAsset(ctx context.Context, p auth.Principal, publicID string) *ServiceError

	UploadARModel(ctx context.Context, p auth.Principal, productID, platform string, file *multipart.FileHeader) (*models.ARModels, *ServiceError)
	ListARModels(ctx context.Context, productID string) ([]models.ARModelFile, *ServiceError)
	DeleteARModel(ctx context.Context, p auth.Principal, productID, platform string) (*models.ARModels, *ServiceError)
	ModelFileURL(ctx context.Context, key string) (string, *ServiceError)

	// CleanupAssets deletes keys and everything under prefixes. Failures are logged and counted.
	CleanupAssets(ctx context.Context, keys, prefixes []string) error
}

type assetServiceImpl struct {
	store         ObjectStore
	products      repository.ProductRepo
	pool          WorkerPool
	uploadTimeout time.Duration
	metrics       MetricsRecorder
	logger        *zap.Logger
}

// NewAssetService creates a new AssetService. A nil pool runs each upload on its own goroutine.
func NewAssetService(
	store ObjectStore,
	products repository.ProductRepo,
	pool WorkerPool,
	uploadTimeout time.Duration,
	metrics MetricsRecorder,
	logger *zap.Logger,
) AssetService {
	if pool == nil {
		pool = goPool{}
	}
	if uploadTimeout <= 0 {
		uploadTimeout = defaultUploadTimeout
	}
	return &assetServiceImpl{
		store:         store,
		products:      products,
		pool:          pool,
		uploadTimeout: uploadTimeout,
		metrics:       metrics,
		logger:        logger,
	}
}

type goPool struct{}

func (goPool) Submit(task func()) error {
	go task()
	return nil
}

// pendingUpload is a validated file ready to be stored.
type pendingUpload struct {
	header      *multipart.FileHeader
	key         string
	contentType string
}

func (s *assetServiceImpl) UploadImages(ctx context.Context, p auth.Principal, folder string, files []*multipart.FileHeader) ([]models.UploadedFile, *ServiceError) {
	switch folder {
	case "":
		folder = models.FolderProducts
	case models.FolderProducts, models.FolderBrands, models.FolderSections:
	default:
		return nil, badRequest("Invalid upload folder")
	}
	return s.upload(ctx, p, folder, files, imageTypes)
}

func (s *assetServiceImpl) UploadDocuments(ctx context.Context, p auth.Principal, files []*multipart.FileHeader) ([]models.UploadedFile, *ServiceError) {
	return s.upload(ctx, p, models.FolderDocuments, files, documentTypes)
}

// upload validates every file before storing any, then uploads them in parallel on the pool.
// When one upload fails the ones that succeeded are deleted again.
func (s *assetServiceImpl) upload(ctx context.Context, p auth.Principal, folder string, files []*multipart.FileHeader, allowed map[string]string) ([]models.UploadedFile, *ServiceError) {
	if _, svcErr := principalID(p); svcErr != nil {
		return nil, svcErr
	}
	if len(files) == 0 {
		return nil, badRequest("No files uploaded")
	}
	if len(files) > MaxUploadFiles {
		return nil, badRequest(fmt.Sprintf("At most %d files can be uploaded at once", MaxUploadFiles))
	}

	pending := make([]pendingUpload, len(files))
	for i, fh := range files {
		if fh.Size > MaxUploadFileSize {
			return nil, newError(http.StatusRequestEntityTooLarge, fmt.Sprintf("File %s exceeds the 10MB limit", fh.Filename))
		}
		contentType, err := sniffContentType(fh)
		if err != nil {
			return nil, badRequest(fmt.Sprintf("Could not read file %s", fh.Filename))
		}
		ext, ok := allowed[contentType]
		if !ok {
			return nil, badRequest(fmt.Sprintf("File type %s is not allowed", contentType))
		}
		pending[i] = pendingUpload{
			header:      fh,
			key:         fmt.Sprintf("%s/%s/%s%s", folder, p.UserID, uuid.NewString(), ext),
			contentType: contentType,
		}
	}

	results := make([]models.UploadedFile, len(pending))
	errs := make([]error, len(pending))
	var wg sync.WaitGroup
	for i := range pending {
		i := i
		wg.Add(1)
		err := s.pool.Submit(func() {
			defer wg.Done()
			results[i], errs[i] = s.put(ctx, pending[i])
		})
		if err != nil {
			wg.Done()
			errs[i] = fmt.Errorf("submit upload: %w", err)
		}
	}
	wg.Wait()

	var failed []error
	var stored []string
	for i, err := range errs {
		if err != nil {
			failed = append(failed, err)
			continue
		}
		stored = append(stored, results[i].PublicID)
	}
	if len(failed) > 0 {
		s.logger.Error("upload failed", zap.String("folder", folder), zap.Int("failed", len(failed)), zap.Error(errors.Join(failed...)))
		s.deleteKeys(context.WithoutCancel(ctx), stored)
		recordMetrics(s.metrics, func(ctx context.Context, m MetricsRecorder) {
			_ = m.RecordValue(ctx, aws_pkg.MetricAssetUploadFailures, float64(len(failed)), map[string]string{"Folder": folder})
		})
		return nil, newError(http.StatusBadGateway, "Failed to upload files")
	}

	s.logger.Info("Files uploaded", zap.String("folder", folder), zap.String("user_id", p.UserID), zap.Int("count", len(results)))
	recordMetrics(s.metrics, func(ctx context.Context, m MetricsRecorder) {
		_ = m.RecordValue(ctx, aws_pkg.MetricAssetsUploaded, float64(len(results)), map[string]string{"Folder": folder})
	})
	return results, nil
}

func (s *assetServiceImpl) put(ctx context.Context, u pendingUpload) (models.UploadedFile, error) {
	f, err := u.header.Open()
	if err != nil {
		return models.UploadedFile{}, err
	}
	defer f.Close()

	ctx, cancel := context.WithTimeout(ctx, s.uploadTimeout)
	defer cancel()
	url, err := s.store.Upload(ctx, u.key, f, u.contentType)
	if err != nil {
		return models.UploadedFile{}, err
	}
	return models.UploadedFile{Name: u.header.Filename, URL: url, PublicID: u.key, Size: u.header.Size}, nil
}

// sniffContentType detects the type from the file content rather than the client's header.
func sniffContentType(fh *multipart.FileHeader) (string, error) {
	f, err := fh.Open()
	if err != nil {
		return "", err
	}
	defer f.Close()

	buf := make([]byte, 512)
	n, err := io.ReadFull(f, buf)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return "", err
	}
	return http.DetectContentType(buf[:n]), nil
}

// PresignUpload reserves a key under the caller's prefix for a direct browser upload.
func (s *assetServiceImpl) PresignUpload(ctx context.Context, p auth.Principal, req *models.PresignRequest) (*models.PresignResponse, *ServiceError) {
	if _, svcErr := principalID(p); svcErr != nil {
		return nil, svcErr
	}
	allowed := imageTypes
	if req.Folder == models.FolderDocuments {
		allowed = documentTypes
	}
	ext, ok := allowed[req.ContentType]
	if !ok {
		return nil, badRequest(fmt.Sprintf("File type %s is not allowed", req.ContentType))
	}

	key := fmt.Sprintf("%s/%s/%s%s", req.Folder, p.UserID, uuid.NewString(), ext)
	url, headers, err := s.store.PresignPut(ctx, key, req.ContentType, presignExpiry)
	if err != nil {
		return nil, internalError(s.logger, "failed to presign upload", err)
	}
	return &models.PresignResponse{
		UploadURL: url,
		Headers:   headers,
		PublicID:  key,
		URL:       s.store.URL(key),
		ExpiresAt: time.Now().Add(presignExpiry).UTC(),
	}, nil
}

// DeleteAsset removes one upload. Non-admins may only delete keys under their own prefix.
func (s *assetServiceImpl) DeleteAsset(ctx context.Context, p auth.Principal, publicID string) *ServiceError {
	key := strings.TrimPrefix(publicID, "/")
	if key == "" || strings.Contains(key, "..") {
		return badRequest("Invalid public_id")
	}
	if !p.IsAdmin() && !ownsKey(p, key) {
		return forbidden("Not authorized to delete this file")
	}
	if err := s.store.Delete(ctx, key); err != nil {
		s.logger.Error("failed to delete asset", zap.String("key", key), zap.Error(err))
		return newError(http.StatusBadGateway, "Failed to delete file")
	}
	s.logger.Info("Asset deleted", zap.String("key", key), zap.String("user_id", p.UserID))
	return nil
}

func ownsKey(p auth.Principal, key string) bool {
	parts := strings.SplitN(key, "/", 3)
	return len(parts) == 3 && parts[0] != "models" && parts[1] == p.UserID
}

// UploadARModel stores a model for productID and attaches it. USDZ files go to ios; GLB and GLTF go
// to the requested platform, or to both android and web when none is given.
func (s *assetServiceImpl) UploadARModel(ctx context.Context, p auth.Principal, productID, platform string, file *multipart.FileHeader) (*models.ARModels, *ServiceError) {
	if file == nil {
		return nil, badRequest("No model file uploaded")
	}
	ext := strings.ToLower(path.Ext(file.Filename))
	contentType, ok := arModelTypes[ext]
	if !ok {
		return nil, badRequest("Model must be a .glb, .gltf or .usdz file")
	}
	if file.Size > MaxARModelSize {
		return nil, newError(http.StatusRequestEntityTooLarge, "Model exceeds the 50MB limit")
	}
	platforms, svcErr := modelPlatforms(ext, platform)
	if svcErr != nil {
		return nil, svcErr
	}
	product, svcErr := s.loadOwned(ctx, p, productID)
	if svcErr != nil {
		return nil, svcErr
	}

	upload := pendingUpload{
		header:      file,
		key:         fmt.Sprintf("%s%s-%s%s", ARModelPrefix(product.ID), platforms[0], uuid.NewString(), ext),
		contentType: contentType,
	}
	stored, err := s.put(ctx, upload)
	if err != nil {
		s.logger.Error("AR model upload failed", zap.String("product_id", productID), zap.Error(err))
		return nil, newError(http.StatusBadGateway, "Failed to upload model")
	}

	updates := bson.M{}
	var replaced []string
	for _, pf := range platforms {
		if old := platformURL(product.ARModels, pf); old != "" {
			replaced = append(replaced, old)
		}
		updates["ar_models."+pf] = stored.URL
		setPlatformURL(&product.ARModels, pf, stored.URL)
	}
	if err := s.products.Update(ctx, product.ID, updates); err != nil {
		s.deleteKeys(context.WithoutCancel(ctx), []string{upload.key})
		return nil, fromRepo(s.logger, err, "Product not found", "failed to attach AR model")
	}
	s.deleteKeys(ctx, s.unreferencedKeys(product.ARModels, replaced))

	s.logger.Info("AR model uploaded", zap.String("product_id", productID), zap.Strings("platforms", platforms), zap.String("key", upload.key))
	return &product.ARModels, nil
}

func modelPlatforms(ext, platform string) ([]string, *ServiceError) {
	if ext == ".usdz" {
		if platform != "" && platform != models.PlatformIOS {
			return nil, badRequest("USDZ models are only used on ios")
		}
		return []string{models.PlatformIOS}, nil
	}
	switch platform {
	case "":
		return []string{models.PlatformAndroid, models.PlatformWeb}, nil
	case models.PlatformAndroid, models.PlatformWeb:
		return []string{platform}, nil
	}
	return nil, badRequest("GLB and GLTF models are used on android or web")
}

func (s *assetServiceImpl) ListARModels(ctx context.Context, productID string) ([]models.ARModelFile, *ServiceError) {
	oid, svcErr := parseID(productID, "product")
	if svcErr != nil {
		return nil, svcErr
	}
	product, err := s.products.FindByID(ctx, oid)
	if err != nil {
		return nil, fromRepo(s.logger, err, "Product not found", "failed to load product")
	}
	objects, err := s.store.List(ctx, ARModelPrefix(oid))
	if err != nil {
		s.logger.Error("failed to list AR models", zap.String("product_id", productID), zap.Error(err))
		return nil, newError(http.StatusBadGateway, "Failed to list models")
	}

	attached := map[string]bool{}
	for _, pf := range []string{models.PlatformIOS, models.PlatformAndroid, models.PlatformWeb} {
		if u := platformURL(product.ARModels, pf); u != "" {
			attached[u] = true
		}
	}
	out := make([]models.ARModelFile, 0, len(objects))
	for _, obj := range objects {
		name := path.Base(obj.Key)
		pf, _, _ := strings.Cut(name, "-")
		out = append(out, models.ARModelFile{
			Platform:     pf,
			Key:          obj.Key,
			URL:          obj.URL,
			Size:         obj.Size,
			LastModified: obj.LastModified,
			Attached:     attached[obj.URL],
		})
	}
	return out, nil
}

// DeleteARModel detaches the model of platform and deletes its object once no other platform uses it.
func (s *assetServiceImpl) DeleteARModel(ctx context.Context, p auth.Principal, productID, platform string) (*models.ARModels, *ServiceError) {
	switch platform {
	case models.PlatformIOS, models.PlatformAndroid, models.PlatformWeb:
	default:
		return nil, badRequest("Invalid platform")
	}
	product, svcErr := s.loadOwned(ctx, p, productID)
	if svcErr != nil {
		return nil, svcErr
	}
	old := platformURL(product.ARModels, platform)
	if old == "" {
		return nil, notFound("No model for this platform")
	}

	if err := s.products.Update(ctx, product.ID, bson.M{"ar_models." + platform: ""}); err != nil {
		return nil, fromRepo(s.logger, err, "Product not found", "failed to detach AR model")
	}
	setPlatformURL(&product.ARModels, platform, "")
	s.deleteKeys(ctx, s.unreferencedKeys(product.ARModels, []string{old}))
	return &product.ARModels, nil
}

// ModelFileURL returns a short lived download URL for a stored model.
func (s *assetServiceImpl) ModelFileURL(ctx context.Context, key string) (string, *ServiceError) {
	key = strings.TrimPrefix(key, "/")
	if !strings.HasPrefix(key, "models/") || strings.Contains(key, "..") {
		return "", badRequest("Invalid model key")
	}
	url, err := s.store.PresignGet(ctx, key, presignExpiry)
	if err != nil {
		return "", internalError(s.logger, "failed to presign model download", err)
	}
	return url, nil
}

func (s *assetServiceImpl) CleanupAssets(ctx context.Context, keys, prefixes []string) error {
	all := append([]string{}, keys...)
	var listErrs []error
	for _, prefix := range prefixes {
		objects, err := s.store.List(ctx, prefix)
		if err != nil {
			listErrs = append(listErrs, err)
			continue
		}
		for _, obj := range objects {
			all = append(all, obj.Key)
		}
	}
	failed := s.deleteKeys(ctx, all)
	if failed > 0 || len(listErrs) > 0 {
		return fmt.Errorf("asset cleanup: %d of %d deletes failed: %w", failed, len(all), errors.Join(listErrs...))
	}
	return nil
}

// deleteKeys deletes keys on the pool and returns how many deletes failed.
func (s *assetServiceImpl) deleteKeys(ctx context.Context, keys []string) int {
	var (
		wg     sync.WaitGroup
		mu     sync.Mutex
		failed int
	)
	fail := func(key string, err error) {
		s.logger.Warn("failed to delete object", zap.String("key", key), zap.Error(err))
		mu.Lock()
		failed++
		mu.Unlock()
	}
	for _, key := range keys {
		key := key
		wg.Add(1)
		err := s.pool.Submit(func() {
			defer wg.Done()
			if err := s.store.Delete(ctx, key); err != nil {
				fail(key, err)
			}
		})
		if err != nil {
			wg.Done()
			fail(key, err)
		}
	}
	wg.Wait()
	return failed
}

// unreferencedKeys maps replaced model URLs to object keys, skipping URLs still attached elsewhere.
func (s *assetServiceImpl) unreferencedKeys(current models.ARModels, urls []string) []string {
	base := s.store.URL("")
	var keys []string
	seen := map[string]bool{}
	for _, u := range urls {
		if seen[u] || u == current.IOS || u == current.Android || u == current.Web {
			continue
		}
		seen[u] = true
		if key := strings.TrimPrefix(u, base); key != u {
			keys = append(keys, key)
		}
	}
	return keys
}

func (s *assetServiceImpl) loadOwned(ctx context.Context, p auth.Principal, id string) (*models.Product, *ServiceError) {
	oid, svcErr := parseID(id, "product")
	if svcErr != nil {
		return nil, svcErr
	}
	product, err := s.products.FindByID(ctx, oid)
	if err != nil {
		return nil, fromRepo(s.logger, err, "Product not found", "failed to load product")
	}
	if !p.IsAdmin() && product.Seller.Hex() != p.UserID {
		return nil, forbidden("Not authorized to modify this product")
	}
	return product, nil
}

func platformURL(m models.ARModels, platform string) string {
	switch platform {
	case models.PlatformIOS:
		return m.IOS
	case models.PlatformAndroid:
		return m.Android
	case models.PlatformWeb:
		return m.Web
	}
	return ""
}

func setPlatformURL(m *models.ARModels, platform, url string) {
	switch platform {
	case models.PlatformIOS:
		m.IOS = url
	case models.PlatformAndroid:
		m.Android = url
	case models.PlatformWeb:
		m.Web = url
	}
}
