package models

import (
	"time"

	"github.com/golang-jwt/jwt/v4"
)

// User is a profile record. ID is the identity provider UID (Firebase) or a
// generated uuid for local sign-ups.
type User struct {
	ID           string     `json:"id" gorm:"primaryKey;size:128"`
	DisplayName  string     `json:"display_name" gorm:"index"`
	Email        string     `json:"email" gorm:"uniqueIndex"`
	PhotoURL     string     `json:"photo_url"`
	Bio          string     `json:"bio"`
	Address      string     `json:"address"`
	Password     string     `json:"-"` // bcrypt hash, local sign-ups only
	LastActiveAt *time.Time `json:"last_active_at,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`

	// Filled from follow edges on profile reads, not stored on the row.
	Followers []string `json:"followers" gorm:"-"`
	Following []string `json:"following" gorm:"-"`
}

// UserCompact is the author/actor shape embedded in feed and notification payloads
type UserCompact struct {
	ID          string `json:"id"`
	DisplayName string `json:"display_name"`
	PhotoURL    string `json:"photo_url"`
}

func (u *User) ToCompact() UserCompact {
	return UserCompact{ID: u.ID, DisplayName: u.DisplayName, PhotoURL: u.PhotoURL}
}

type CreateLocalUserRequest struct {
	DisplayName string `json:"display_name" validate:"required,min=2,max=50"`
	Email       string `json:"email" validate:"required,email"`
	Password    string `json:"password" validate:"required,min=8"`
}

type SignInRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type UpdateUserRequest struct {
	DisplayName string `json:"display_name,omitempty" validate:"omitempty,min=2,max=50"`
	Bio         string `json:"bio,omitempty" validate:"omitempty,max=300"`
	Address     string `json:"address,omitempty" validate:"omitempty,max=200"`
	PhotoURL    string `json:"photo_url,omitempty" validate:"omitempty,url"`
}

// JwtCustomClaims are custom claims extending standard jwt.RegisteredClaims
type JwtCustomClaims struct {
	UserID      string `json:"user_id"`
	Email       string `json:"email"`
	DisplayName string `json:"name,omitempty"`
	PhotoURL    string `json:"picture,omitempty"`
	jwt.RegisteredClaims
}
