package models

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// RegisterRequest creates a student or alumni account awaiting approval.
type RegisterRequest struct {
	Email          string   `json:"email" validate:"required,email"`
	Password       string   `json:"password" validate:"required,min=8"`
	FirstName      string   `json:"firstName" validate:"required,max=80"`
	LastName       string   `json:"lastName" validate:"required,max=80"`
	Role           UserRole `json:"role" validate:"required,oneof=student alumni"`
	GraduationYear int      `json:"graduationYear" validate:"omitempty,min=1950,max=2100"`
	Major          string   `json:"major" validate:"omitempty,max=120"`
}

// LoginRequest holds credentials for authenticating a user.
type LoginRequest struct {
	Email     string `json:"email" validate:"required,email"`
	Password  string `json:"password" validate:"required"`
	IP        string `json:"-"`
	UserAgent string `json:"-"`
}

// LoginResponse returns the issued token and user info.
type LoginResponse struct {
	AccessToken string    `json:"accessToken"`
	ExpiresIn   int64     `json:"expiresIn"`
	User        UserInfo  `json:"user"`
	IssuedAt    time.Time `json:"issuedAt"`
}

// ChangePasswordRequest payload for updating password.
type ChangePasswordRequest struct {
	OldPassword string `json:"oldPassword" validate:"required"`
	NewPassword string `json:"newPassword" validate:"required,min=8,nefield=OldPassword"`
}

// UserInfo describes the authenticated user in responses.
type UserInfo struct {
	ID         string   `json:"id"`
	Email      string   `json:"email"`
	FirstName  string   `json:"firstName"`
	LastName   string   `json:"lastName"`
	Role       UserRole `json:"role"`
	IsApproved bool     `json:"isApproved"`
	IsMentor   bool     `json:"isMentor"`
}

func NewUserInfo(u *User) UserInfo {
	return UserInfo{
		ID:         u.ID.Hex(),
		Email:      u.Email,
		FirstName:  u.FirstName,
		LastName:   u.LastName,
		Role:       u.Role,
		IsApproved: u.IsApproved,
		IsMentor:   u.IsMentor,
	}
}

// JWTClaims represents the JWT payload for access tokens.
type JWTClaims struct {
	UserID   string   `json:"user_id"`
	Role     UserRole `json:"role"`
	Email    string   `json:"email"`
	FullName string   `json:"full_name"`
	jwt.RegisteredClaims
}

func (c *JWTClaims) IsAdmin() bool {
	return c != nil && c.Role == RoleAdmin
}
