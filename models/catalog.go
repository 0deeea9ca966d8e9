package models

import (
	"regexp"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type Category struct {
	ID          primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Name        string             `bson:"name" json:"name"`
	Slug        string             `bson:"slug" json:"slug"`
	Description string             `bson:"description,omitempty" json:"description,omitempty"`
	Image       string             `bson:"image,omitempty" json:"image,omitempty"`
	Icon        string             `bson:"icon,omitempty" json:"icon,omitempty"`
	Active      bool               `bson:"active" json:"active"`
	CreatedAt   time.Time          `bson:"created_at" json:"created_at"`
	UpdatedAt   time.Time          `bson:"updated_at" json:"updated_at"`
}

type Brand struct {
	ID          primitive.ObjectID  `bson:"_id,omitempty" json:"id"`
	Name        string              `bson:"name" json:"name"`
	Slug        string              `bson:"slug" json:"slug"`
	Logo        string              `bson:"logo,omitempty" json:"logo,omitempty"`
	Description string              `bson:"description,omitempty" json:"description,omitempty"`
	Website     string              `bson:"website,omitempty" json:"website,omitempty"`
	IsVerified  bool                `bson:"is_verified" json:"is_verified"`
	Owner       *primitive.ObjectID `bson:"owner,omitempty" json:"owner,omitempty"`
	CreatedAt   time.Time           `bson:"created_at" json:"created_at"`
	UpdatedAt   time.Time           `bson:"updated_at" json:"updated_at"`
}

type CategoryRequest struct {
	Name        string `json:"name" binding:"required,min=2,max=60"`
	Description string `json:"description" binding:"max=500"`
	Image       string `json:"image" binding:"omitempty,url"`
	Icon        string `json:"icon" binding:"max=200"`
	Active      *bool  `json:"active"`
}

type UpdateCategoryRequest struct {
	Name        *string `json:"name" binding:"omitempty,min=2,max=60"`
	Description *string `json:"description" binding:"omitempty,max=500"`
	Image       *string `json:"image" binding:"omitempty,url"`
	Icon        *string `json:"icon" binding:"omitempty,max=200"`
	Active      *bool   `json:"active"`
}

type BrandRequest struct {
	Name        string `json:"name" binding:"required,min=1,max=60"`
	Logo        string `json:"logo" binding:"omitempty,url"`
	Description string `json:"description" binding:"max=1000"`
	Website     string `json:"website" binding:"omitempty,url"`
}

type UpdateBrandRequest struct {
	Name        *string `json:"name" binding:"omitempty,min=1,max=60"`
	Logo        *string `json:"logo" binding:"omitempty,url"`
	Description *string `json:"description" binding:"omitempty,max=1000"`
	Website     *string `json:"website" binding:"omitempty,url"`
}

var nonSlugChars = regexp.MustCompile(`[^a-z0-9]+`)

// Slugify derives the URL slug stored next to category and brand names.
func Slugify(name string) string {
	s := nonSlugChars.ReplaceAllString(strings.ToLower(strings.TrimSpace(name)), "-")
	return strings.Trim(s, "-")
}
