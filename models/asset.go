package models

import "time"

// Upload folders. Object keys are <folder>/<user id>/<uuid><ext>.
const (
	FolderProducts  = "products"
	FolderDocuments = "documents"
	FolderBrands    = "brands"
	FolderSections  = "sections"
)

// AR platforms stored under Product.ARModels.
const (
	PlatformIOS     = "ios"
	PlatformAndroid = "android"
	PlatformWeb     = "web"
)

// UploadedFile is returned for every stored upload.
type UploadedFile struct {
	Name     string `json:"name,omitempty"`
	URL      string `json:"url"`
	PublicID string `json:"public_id"`
	Size     int64  `json:"size"`
}

type PresignRequest struct {
	Folder      string `json:"folder" binding:"required,oneof=products documents brands sections"`
	FileName    string `json:"file_name" binding:"required,max=200"`
	ContentType string `json:"content_type" binding:"required"`
}

type PresignResponse struct {
	UploadURL string            `json:"upload_url"`
	Headers   map[string]string `json:"headers"`
	PublicID  string            `json:"public_id"`
	URL       string            `json:"url"`
	ExpiresAt time.Time         `json:"expires_at"`
}

type DeleteAssetRequest struct {
	PublicID string `json:"public_id" binding:"required"`
}

// ARModelFile is a stored AR model of a product.
type ARModelFile struct {
	Platform     string    `json:"platform"`
	Key          string    `json:"key"`
	URL          string    `json:"url"`
	Size         int64     `json:"size,omitempty"`
	LastModified time.Time `json:"last_modified,omitempty"`
	Attached     bool      `json:"attached"`
}
