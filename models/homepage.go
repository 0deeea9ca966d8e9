package models

import (
	"encoding/json"
	"fmt"
	"reflect"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/mitchellh/mapstructure"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type SectionType string

const (
	SectionBanner         SectionType = "banner"
	SectionCategories     SectionType = "categories"
	SectionProducts       SectionType = "products"
	SectionIconCategories SectionType = "icon-categories"
	SectionCustom         SectionType = "custom"
)

// ProductQuery selects the dynamic product list of a products section with no explicit ids.
type ProductQuery string

const (
	QueryFeatured    ProductQuery = "featured"
	QueryNewArrivals ProductQuery = "new-arrivals"
	QueryBestSellers ProductQuery = "best-sellers"
)

// MaxSectionProducts caps every resolved products section.
const MaxSectionProducts = 8

// SectionContent is the payload of a homepage section. The concrete type is fixed by the section type.
type SectionContent interface {
	SectionType() SectionType
}

type BannerSlide struct {
	Image      string `json:"image" bson:"image" validate:"required,url"`
	Title      string `json:"title,omitempty" bson:"title,omitempty" validate:"max=120"`
	Subtitle   string `json:"subtitle,omitempty" bson:"subtitle,omitempty" validate:"max=240"`
	Link       string `json:"link,omitempty" bson:"link,omitempty" validate:"max=500"`
	ButtonText string `json:"button_text,omitempty" bson:"button_text,omitempty" validate:"max=40"`
}

type BannerContent struct {
	Slides []BannerSlide `json:"slides" bson:"slides" validate:"required,min=1,max=10,dive"`
}

type CategoryCard struct {
	Category string `json:"category,omitempty" bson:"category,omitempty" validate:"omitempty,mongodb"`
	Name     string `json:"name" bson:"name" validate:"required,max=60"`
	Image    string `json:"image,omitempty" bson:"image,omitempty" validate:"omitempty,url"`
	Link     string `json:"link,omitempty" bson:"link,omitempty" validate:"max=500"`
}

type CategoriesContent struct {
	Categories []CategoryCard `json:"categories" bson:"categories" validate:"required,min=1,max=24,dive"`
}

// ProductsContent lists products explicitly, or names a dynamic query when Products is empty.
type ProductsContent struct {
	Products []string     `json:"products" bson:"products" validate:"max=8,dive,mongodb"`
	Query    ProductQuery `json:"query,omitempty" bson:"query,omitempty" validate:"omitempty,oneof=featured new-arrivals best-sellers"`
	Limit    int          `json:"limit,omitempty" bson:"limit,omitempty" validate:"gte=0,lte=8"`
}

type IconCategory struct {
	Name string `json:"name" bson:"name" validate:"required,max=60"`
	Icon string `json:"icon" bson:"icon" validate:"required,max=500"`
	Link string `json:"link,omitempty" bson:"link,omitempty" validate:"max=500"`
}

type IconCategoriesContent struct {
	Items []IconCategory `json:"items" bson:"items" validate:"required,min=1,max=24,dive"`
}

// CustomContent is free-form markup plus arbitrary data for bespoke storefront widgets.
type CustomContent struct {
	HTML string                 `json:"html,omitempty" bson:"html,omitempty" validate:"max=20000"`
	Data map[string]interface{} `json:"data,omitempty" bson:"data,omitempty"`
}

func (BannerContent) SectionType() SectionType         { return SectionBanner }
func (CategoriesContent) SectionType() SectionType     { return SectionCategories }
func (ProductsContent) SectionType() SectionType       { return SectionProducts }
func (IconCategoriesContent) SectionType() SectionType { return SectionIconCategories }
func (CustomContent) SectionType() SectionType         { return SectionCustom }

// EffectiveQuery is the dynamic query used when no explicit products are listed.
func (c ProductsContent) EffectiveQuery() ProductQuery {
	if c.Query == "" {
		return QueryFeatured
	}
	return c.Query
}

// EffectiveLimit clamps Limit to 1..MaxSectionProducts.
func (c ProductsContent) EffectiveLimit() int {
	if c.Limit <= 0 || c.Limit > MaxSectionProducts {
		return MaxSectionProducts
	}
	return c.Limit
}

func newContent(t SectionType) (SectionContent, error) {
	switch t {
	case SectionBanner:
		return &BannerContent{}, nil
	case SectionCategories:
		return &CategoriesContent{}, nil
	case SectionProducts:
		return &ProductsContent{}, nil
	case SectionIconCategories:
		return &IconCategoriesContent{}, nil
	case SectionCustom:
		return &CustomContent{}, nil
	}
	return nil, fmt.Errorf("unknown section type %q", t)
}

var contentValidator = validator.New()

// DecodeSectionContent converts a request payload into the variant for t. Unknown keys are rejected
// and the result is validated.
func DecodeSectionContent(t SectionType, raw map[string]interface{}) (SectionContent, error) {
	target, err := newContent(t)
	if err != nil {
		return nil, err
	}
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName:          "json",
		ErrorUnused:      true,
		WeaklyTypedInput: true,
		Result:           target,
	})
	if err != nil {
		return nil, err
	}
	if err := decoder.Decode(raw); err != nil {
		return nil, fmt.Errorf("invalid %s content: %w", t, err)
	}
	if err := contentValidator.Struct(target); err != nil {
		return nil, fmt.Errorf("invalid %s content: %w", t, err)
	}
	// store the value, not the pointer, so comparisons and type switches stay simple
	return reflect.ValueOf(target).Elem().Interface().(SectionContent), nil
}

type HomePageSection struct {
	ID        primitive.ObjectID `json:"id"`
	Title     string             `json:"title"`
	Type      SectionType        `json:"type"`
	Content   SectionContent     `json:"content"`
	Order     int                `json:"order"`
	Active    bool               `json:"active"`
	CreatedAt time.Time          `json:"created_at"`
	UpdatedAt time.Time          `json:"updated_at"`
}

// sectionRecord is the stored shape written by MarshalBSON.
type sectionRecord struct {
	ID        primitive.ObjectID `bson:"_id,omitempty"`
	Title     string             `bson:"title"`
	Type      SectionType        `bson:"type"`
	Content   interface{}        `bson:"content"`
	Order     int                `bson:"order"`
	Active    bool               `bson:"active"`
	CreatedAt time.Time          `bson:"created_at"`
	UpdatedAt time.Time          `bson:"updated_at"`
}

// storedSection mirrors sectionRecord; content stays raw until the type is known.
type storedSection struct {
	ID        primitive.ObjectID `bson:"_id,omitempty"`
	Title     string             `bson:"title"`
	Type      SectionType        `bson:"type"`
	Content   bson.Raw           `bson:"content"`
	Order     int                `bson:"order"`
	Active    bool               `bson:"active"`
	CreatedAt time.Time          `bson:"created_at"`
	UpdatedAt time.Time          `bson:"updated_at"`
}

// MarshalBSON stores the variant under "content".
func (s HomePageSection) MarshalBSON() ([]byte, error) {
	return bson.Marshal(sectionRecord{
		ID:        s.ID,
		Title:     s.Title,
		Type:      s.Type,
		Content:   s.Content,
		Order:     s.Order,
		Active:    s.Active,
		CreatedAt: s.CreatedAt,
		UpdatedAt: s.UpdatedAt,
	})
}

// UnmarshalBSON decodes "content" into the variant selected by "type".
func (s *HomePageSection) UnmarshalBSON(data []byte) error {
	var rec storedSection
	if err := bson.Unmarshal(data, &rec); err != nil {
		return err
	}
	content, err := newContent(rec.Type)
	if err != nil {
		return err
	}
	if len(rec.Content) > 0 {
		if err := bson.Unmarshal(rec.Content, content); err != nil {
			return fmt.Errorf("section %s: %w", rec.ID.Hex(), err)
		}
	}

	*s = HomePageSection{
		ID:        rec.ID,
		Title:     rec.Title,
		Type:      rec.Type,
		Content:   reflect.ValueOf(content).Elem().Interface().(SectionContent),
		Order:     rec.Order,
		Active:    rec.Active,
		CreatedAt: rec.CreatedAt,
		UpdatedAt: rec.UpdatedAt,
	}
	return nil
}

// sectionJSON is the JSON shape of a section with content left raw until the type is known.
type sectionJSON struct {
	ID        primitive.ObjectID `json:"id"`
	Title     string             `json:"title"`
	Type      SectionType        `json:"type"`
	Content   json.RawMessage    `json:"content"`
	Order     int                `json:"order"`
	Active    bool               `json:"active"`
	CreatedAt time.Time          `json:"created_at"`
	UpdatedAt time.Time          `json:"updated_at"`
}

// UnmarshalJSON decodes "content" into the variant selected by "type", so cached sections read
// back with concrete content.
func (s *HomePageSection) UnmarshalJSON(data []byte) error {
	var rec sectionJSON
	if err := json.Unmarshal(data, &rec); err != nil {
		return err
	}
	content, err := newContent(rec.Type)
	if err != nil {
		return err
	}
	if len(rec.Content) > 0 && string(rec.Content) != "null" {
		if err := json.Unmarshal(rec.Content, content); err != nil {
			return fmt.Errorf("section %s: %w", rec.ID.Hex(), err)
		}
	}

	*s = HomePageSection{
		ID:        rec.ID,
		Title:     rec.Title,
		Type:      rec.Type,
		Content:   reflect.ValueOf(content).Elem().Interface().(SectionContent),
		Order:     rec.Order,
		Active:    rec.Active,
		CreatedAt: rec.CreatedAt,
		UpdatedAt: rec.UpdatedAt,
	}
	return nil
}

// ResolvedSection is a section as served to the storefront, with product content resolved.
type ResolvedSection struct {
	HomePageSection
	Products []*Product `json:"products,omitempty"`
}

// UnmarshalJSON keeps the resolved products next to the section fields, which the promoted
// HomePageSection.UnmarshalJSON alone would drop.
func (r *ResolvedSection) UnmarshalJSON(data []byte) error {
	if err := r.HomePageSection.UnmarshalJSON(data); err != nil {
		return err
	}
	var extra struct {
		Products []*Product `json:"products"`
	}
	if err := json.Unmarshal(data, &extra); err != nil {
		return err
	}
	r.Products = extra.Products
	return nil
}

type CreateSectionRequest struct {
	Title   string                 `json:"title" binding:"required,max=120"`
	Type    SectionType            `json:"type" binding:"required,oneof=banner categories products icon-categories custom"`
	Content map[string]interface{} `json:"content"`
	Order   *int                   `json:"order" binding:"omitempty,gte=0"`
	Active  *bool                  `json:"active"`
}

// UpdateSectionRequest whitelists editable section fields. Content is re-validated against the
// (possibly new) type; changing the type requires new content.
type UpdateSectionRequest struct {
	Title   *string                `json:"title" binding:"omitempty,max=120"`
	Type    *SectionType           `json:"type" binding:"omitempty,oneof=banner categories products icon-categories custom"`
	Content map[string]interface{} `json:"content"`
	Order   *int                   `json:"order" binding:"omitempty,gte=0"`
	Active  *bool                  `json:"active"`
}

type ReorderSectionsRequest struct {
	IDs []string `json:"ids" binding:"required,min=1,dive,mongodb"`
}
