package models

import "time"

const (
	NotificationNewOrder            = "new_order"
	NotificationOrderStatus         = "order_status"
	NotificationApplicationReviewed = "application_reviewed"
	NotificationBrandReviewed       = "brand_reviewed"
)

// Notification is an inbox entry stored in Postgres.
type Notification struct {
	ID          uint      `json:"id" gorm:"primaryKey;autoIncrement"`
	UserID      string    `json:"user_id" gorm:"type:varchar(24);not null;index:idx_notifications_user_read,priority:1"`
	Type        string    `json:"type" gorm:"type:varchar(40);not null"`
	Title       string    `json:"title" gorm:"type:varchar(200);not null"`
	Message     string    `json:"message" gorm:"type:text"`
	ReferenceID string    `json:"reference_id,omitempty" gorm:"type:varchar(64)"`
	Read        bool      `json:"read" gorm:"not null;default:false;index:idx_notifications_user_read,priority:2"`
	CreatedAt   time.Time `json:"created_at" gorm:"autoCreateTime"`
}

type NotificationFilter struct {
	UserID     string
	UnreadOnly bool
	Page       int
	PageSize   int
}
