package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type Image struct {
	URL      string `bson:"url" json:"url"`
	PublicID string `bson:"public_id" json:"public_id"`
}

type Review struct {
	User      primitive.ObjectID `bson:"user" json:"user"`
	Name      string             `bson:"name" json:"name"`
	Rating    int                `bson:"rating" json:"rating"`
	Comment   string             `bson:"comment" json:"comment"`
	CreatedAt time.Time          `bson:"created_at" json:"created_at"`
}

// ARModels holds one model URL per platform: USDZ for iOS Quick Look, GLB for Scene Viewer and the web viewer.
type ARModels struct {
	IOS     string `bson:"ios,omitempty" json:"ios,omitempty"`
	Android string `bson:"android,omitempty" json:"android,omitempty"`
	Web     string `bson:"web,omitempty" json:"web,omitempty"`
}

type Product struct {
	ID            primitive.ObjectID  `bson:"_id,omitempty" json:"id"`
	Title         string              `bson:"title" json:"title"`
	Description   string              `bson:"description" json:"description"`
	Price         float64             `bson:"price" json:"price"`
	OriginalPrice float64             `bson:"original_price,omitempty" json:"original_price,omitempty"`
	Stock         int                 `bson:"stock" json:"stock"`
	SalesCount    int                 `bson:"sales_count" json:"sales_count"`
	Images        []Image             `bson:"images" json:"images"`
	Category      primitive.ObjectID  `bson:"category" json:"category"`
	Brand         *primitive.ObjectID `bson:"brand,omitempty" json:"brand,omitempty"`
	Seller        primitive.ObjectID  `bson:"seller" json:"seller"`
	Reviews       []Review            `bson:"reviews" json:"reviews"`
	Rating        float64             `bson:"rating" json:"rating"`
	NumReviews    int                 `bson:"num_reviews" json:"num_reviews"`
	IsFeatured    bool                `bson:"is_featured" json:"is_featured"`
	ARModels      ARModels            `bson:"ar_models" json:"ar_models"`
	CreatedAt     time.Time           `bson:"created_at" json:"created_at"`
	UpdatedAt     time.Time           `bson:"updated_at" json:"updated_at"`
}

// AssetKeys lists every stored object owned by the product.
func (p *Product) AssetKeys() []string {
	var keys []string
	for _, img := range p.Images {
		if img.PublicID != "" {
			keys = append(keys, img.PublicID)
		}
	}
	return keys
}

// RecomputeRating sets Rating to the mean of the review ratings.
func (p *Product) RecomputeRating() {
	p.NumReviews = len(p.Reviews)
	if p.NumReviews == 0 {
		p.Rating = 0
		return
	}
	total := 0
	for _, r := range p.Reviews {
		total += r.Rating
	}
	p.Rating = float64(total) / float64(p.NumReviews)
}

// ProductDetail is a product with its references populated.
type ProductDetail struct {
	*Product
	CategoryInfo *Category    `json:"category_info,omitempty"`
	BrandInfo    *Brand       `json:"brand_info,omitempty"`
	SellerInfo   *UserSummary `json:"seller_info,omitempty"`
}

type CreateProductRequest struct {
	Title         string  `json:"title" binding:"required,min=2,max=200"`
	Description   string  `json:"description" binding:"required,max=5000"`
	Price         float64 `json:"price" binding:"required,gt=0"`
	OriginalPrice float64 `json:"original_price" binding:"gte=0"`
	Stock         int     `json:"stock" binding:"gte=0"`
	Images        []Image `json:"images" binding:"max=10,dive"`
	Category      string  `json:"category" binding:"required,mongodb"`
	Brand         string  `json:"brand" binding:"omitempty,mongodb"`
	IsFeatured    bool    `json:"is_featured"`
}

// UpdateProductRequest whitelists mutable product fields; nil means unchanged.
// IsFeatured is honoured for admins only.
type UpdateProductRequest struct {
	Title         *string  `json:"title" binding:"omitempty,min=2,max=200"`
	Description   *string  `json:"description" binding:"omitempty,max=5000"`
	Price         *float64 `json:"price" binding:"omitempty,gt=0"`
	OriginalPrice *float64 `json:"original_price" binding:"omitempty,gte=0"`
	Stock         *int     `json:"stock" binding:"omitempty,gte=0"`
	Images        *[]Image `json:"images" binding:"omitempty,max=10"`
	Category      *string  `json:"category" binding:"omitempty,mongodb"`
	Brand         *string  `json:"brand" binding:"omitempty,mongodb"`
	IsFeatured    *bool    `json:"is_featured"`
}

type ReviewRequest struct {
	Rating  int    `json:"rating" binding:"required,min=1,max=5"`
	Comment string `json:"comment" binding:"max=2000"`
}

// Product list sort keys.
const (
	SortNewest      = "newest"
	SortPriceAsc    = "price_asc"
	SortPriceDesc   = "price_desc"
	SortBestSelling = "best_selling"
	SortRating      = "rating"
)

// ProductFilter carries list query parameters already parsed into store types.
type ProductFilter struct {
	Category   *primitive.ObjectID
	Brand      *primitive.ObjectID
	Seller     *primitive.ObjectID
	Search     string
	IsFeatured *bool
	MinPrice   *float64
	MaxPrice   *float64
	InStock    *bool
	Sort       string
}
