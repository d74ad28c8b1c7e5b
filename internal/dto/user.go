package dto

import "github.com/noah-isme/alumni-connect-api/internal/models"

// UpdateUserRequest carries partial profile changes. Role, IsApproved and
// IsMentor are honoured for administrators only; alumni may toggle IsMentor
// on their own account.
type UpdateUserRequest struct {
	FirstName      *string          `json:"firstName" validate:"omitempty,min=1,max=80"`
	LastName       *string          `json:"lastName" validate:"omitempty,min=1,max=80"`
	Bio            *string          `json:"bio" validate:"omitempty,max=1000"`
	Phone          *string          `json:"phone" validate:"omitempty,max=32"`
	Location       *string          `json:"location" validate:"omitempty,max=120"`
	Avatar         *string          `json:"avatar" validate:"omitempty,max=512"`
	GraduationYear *int             `json:"graduationYear" validate:"omitempty,min=1950,max=2100"`
	Major          *string          `json:"major" validate:"omitempty,max=120"`
	Company        *string          `json:"company" validate:"omitempty,max=120"`
	JobTitle       *string          `json:"jobTitle" validate:"omitempty,max=120"`
	Skills         []string         `json:"skills" validate:"omitempty,max=50,dive,max=60"`
	LinkedIn       *string          `json:"linkedIn" validate:"omitempty,url"`
	IsMentor       *bool            `json:"isMentor"`
	Role           *models.UserRole `json:"role" validate:"omitempty,oneof=admin alumni student"`
	IsApproved     *bool            `json:"isApproved"`
}

// UserQuery captures list query parameters.
type UserQuery struct {
	Role       string `form:"role"`
	IsApproved *bool  `form:"isApproved"`
	IsMentor   *bool  `form:"isMentor"`
	Search     string `form:"search"`
	models.PageRequest
}
