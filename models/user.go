package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Roles carried in the JWT role claim.
const (
	RoleUser   = "user"
	RoleSeller = "seller"
	RoleAdmin  = "admin"
)

// SellerProfile is embedded on a user once a seller application is approved.
type SellerProfile struct {
	StoreName        string     `bson:"store_name" json:"store_name"`
	StoreDescription string     `bson:"store_description,omitempty" json:"store_description,omitempty"`
	Phone            string     `bson:"phone,omitempty" json:"phone,omitempty"`
	Address          string     `bson:"address,omitempty" json:"address,omitempty"`
	IsVerified       bool       `bson:"is_verified" json:"is_verified"`
	IsBrandVerified  bool       `bson:"is_brand_verified" json:"is_brand_verified"`
	BrandName        string     `bson:"brand_name,omitempty" json:"brand_name,omitempty"`
	TotalSales       float64    `bson:"total_sales" json:"total_sales"`
	Rating           float64    `bson:"rating" json:"rating"`
	VerifiedAt       *time.Time `bson:"verified_at,omitempty" json:"verified_at,omitempty"`
}

type User struct {
	ID            primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Username      string             `bson:"username" json:"username"`
	Email         string             `bson:"email" json:"email"`
	Password      string             `bson:"password" json:"-"`
	Role          string             `bson:"role" json:"role"`
	SellerProfile *SellerProfile     `bson:"seller_profile,omitempty" json:"seller_profile,omitempty"`
	CreatedAt     time.Time          `bson:"created_at" json:"created_at"`
	UpdatedAt     time.Time          `bson:"updated_at" json:"updated_at"`
}

// UserSummary is the populated form of a user reference.
type UserSummary struct {
	ID        primitive.ObjectID `json:"id"`
	Username  string             `json:"username"`
	StoreName string             `json:"store_name,omitempty"`
}

// Summary returns the populated form of u.
func (u *User) Summary() UserSummary {
	s := UserSummary{ID: u.ID, Username: u.Username}
	if u.SellerProfile != nil {
		s.StoreName = u.SellerProfile.StoreName
	}
	return s
}

type RegisterRequest struct {
	Username string `json:"username" binding:"required,min=3,max=32,alphanum"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=8,max=72"`
}

type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

type AuthResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
	User      *User     `json:"user"`
}

// UpdateProfileRequest whitelists the self-service profile fields. Store fields apply to sellers only.
type UpdateProfileRequest struct {
	Username         *string `json:"username" binding:"omitempty,min=3,max=32,alphanum"`
	StoreName        *string `json:"store_name" binding:"omitempty,min=2,max=80"`
	StoreDescription *string `json:"store_description" binding:"omitempty,max=1000"`
	Phone            *string `json:"phone" binding:"omitempty,max=32"`
	Address          *string `json:"address" binding:"omitempty,max=300"`
}

type ChangePasswordRequest struct {
	CurrentPassword string `json:"current_password" binding:"required"`
	NewPassword     string `json:"new_password" binding:"required,min=8,max=72"`
}

type UpdateRoleRequest struct {
	Role string `json:"role" binding:"required,oneof=user seller admin"`
}

// UserFilter narrows admin user listings.
type UserFilter struct {
	Role   string
	Search string
}
