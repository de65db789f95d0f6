package models

import (
	"time"

	"gorm.io/datatypes"
)

// Notification types
const (
	NotificationFollow   = "follow"
	NotificationUnfollow = "unfollow"
	NotificationLike     = "like"
	NotificationComment  = "comment"
	NotificationMessage  = "message"
)

// Notification represents a user notification (PostgreSQL)
type Notification struct {
	ID            uint              `json:"id" gorm:"primaryKey"`
	Type          string            `json:"type" gorm:"size:30;index"`
	ActorID       string            `json:"actor_id" gorm:"size:128;index"`
	ActorName     string            `json:"actor_name"`
	ActorPhotoURL string            `json:"actor_photo_url"`
	RecipientID   string            `json:"recipient_id" gorm:"size:128;index"`
	PostID        string            `json:"post_id,omitempty"`
	Message       string            `json:"message"`
	Data          datatypes.JSONMap `json:"data,omitempty"`
	IsRead        bool              `json:"is_read" gorm:"default:false;index"`
	CreatedAt     time.Time         `json:"created_at" gorm:"index"`
}

// CreateNotificationRequest is the free-form notification call the mobile
// client makes after its own social actions.
type CreateNotificationRequest struct {
	TargetID string `json:"target_id" validate:"required"`
	Verb     string `json:"verb" validate:"required,max=120"`
	PostID   string `json:"post_id,omitempty"`
	Body     string `json:"body,omitempty" validate:"max=500"`
}

// PushRegistration maps a user to the device token push goes to.
// One row per user; registering again replaces the token.
type PushRegistration struct {
	UserID    string    `json:"user_id" gorm:"primaryKey;size:128"`
	Token     string    `json:"-" gorm:"not null"`
	Platform  string    `json:"platform" gorm:"size:20"`
	UpdatedAt time.Time `json:"updated_at"`
}

type RegisterPushRequest struct {
	Token    string `json:"token" validate:"required"`
	Platform string `json:"platform" validate:"omitempty,oneof=ios android web"`
}
