package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type RequestStatus string

const (
	RequestPending  RequestStatus = "pending"
	RequestApproved RequestStatus = "approved"
	RequestRejected RequestStatus = "rejected"
)

// Verification kinds, used in events and notifications.
const (
	KindSellerApplication = "seller_application"
	KindBrandVerification = "brand_verification"
)

// Document is an uploaded supporting file.
type Document struct {
	Name     string `bson:"name" json:"name"`
	URL      string `bson:"url" json:"url"`
	PublicID string `bson:"public_id" json:"public_id"`
}

// Review metadata shared by both request kinds.
type ReviewInfo struct {
	ReviewNote string              `bson:"review_note,omitempty" json:"review_note,omitempty"`
	ReviewedBy *primitive.ObjectID `bson:"reviewed_by,omitempty" json:"reviewed_by,omitempty"`
	ReviewedAt *time.Time          `bson:"reviewed_at,omitempty" json:"reviewed_at,omitempty"`
}

type SellerApplication struct {
	ID               primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	User             primitive.ObjectID `bson:"user" json:"user"`
	StoreName        string             `bson:"store_name" json:"store_name"`
	StoreDescription string             `bson:"store_description" json:"store_description"`
	Phone            string             `bson:"phone" json:"phone"`
	Address          string             `bson:"address" json:"address"`
	BusinessType     string             `bson:"business_type,omitempty" json:"business_type,omitempty"`
	Documents        []Document         `bson:"documents" json:"documents"`
	Status           RequestStatus      `bson:"status" json:"status"`
	CreatedAt        time.Time          `bson:"created_at" json:"created_at"`
	UpdatedAt        time.Time          `bson:"updated_at" json:"updated_at"`

	ReviewInfo `bson:",inline"`
}

type BrandVerification struct {
	ID         primitive.ObjectID  `bson:"_id,omitempty" json:"id"`
	User       primitive.ObjectID  `bson:"user" json:"user"`
	BrandName  string              `bson:"brand_name" json:"brand_name"`
	Brand      *primitive.ObjectID `bson:"brand,omitempty" json:"brand,omitempty"`
	Website    string              `bson:"website,omitempty" json:"website,omitempty"`
	Documents  []Document          `bson:"documents" json:"documents"`
	Status     RequestStatus       `bson:"status" json:"status"`
	CreatedAt  time.Time           `bson:"created_at" json:"created_at"`
	UpdatedAt  time.Time           `bson:"updated_at" json:"updated_at"`

	ReviewInfo `bson:",inline"`
}

type SellerApplicationRequest struct {
	StoreName        string     `json:"store_name" form:"store_name" binding:"required,min=2,max=80"`
	StoreDescription string     `json:"store_description" form:"store_description" binding:"required,max=1000"`
	Phone            string     `json:"phone" form:"phone" binding:"required,max=32"`
	Address          string     `json:"address" form:"address" binding:"required,max=300"`
	BusinessType     string     `json:"business_type" form:"business_type" binding:"max=60"`
	Documents        []Document `json:"documents" form:"-" binding:"max=10"`
}

type BrandVerificationRequest struct {
	BrandName string     `json:"brand_name" form:"brand_name" binding:"required,min=1,max=60"`
	Brand     string     `json:"brand" form:"brand" binding:"omitempty,mongodb"`
	Website   string     `json:"website" form:"website" binding:"omitempty,url"`
	Documents []Document `json:"documents" form:"-" binding:"max=10"`
}

// ReviewDecision is an admin's verdict on a pending request.
type ReviewDecision struct {
	Status RequestStatus `json:"status" binding:"required,oneof=approved rejected"`
	Note   string        `json:"note" binding:"max=1000"`
}

// RequestFilter narrows verification queue listings.
type RequestFilter struct {
	Status RequestStatus
	User   *primitive.ObjectID
}
