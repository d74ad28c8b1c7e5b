package dto

import (
	"time"

	"github.com/noah-isme/alumni-connect-api/internal/models"
)

// CreateWorkshopRequest defines the payload for hosting a workshop.
type CreateWorkshopRequest struct {
	Title                string     `json:"title" validate:"required,max=200"`
	Description          string     `json:"description" validate:"required"`
	Date                 time.Time  `json:"date" validate:"required"`
	DurationMinutes      int        `json:"durationMinutes" validate:"omitempty,min=1,max=1440"`
	Location             string     `json:"location" validate:"omitempty,max=200"`
	IsVirtual            bool       `json:"isVirtual"`
	MeetingLink          string     `json:"meetingLink" validate:"omitempty,url"`
	Capacity             int        `json:"capacity" validate:"required,min=1,max=10000"`
	RegistrationDeadline *time.Time `json:"registrationDeadline"`
	Tags                 []string   `json:"tags" validate:"omitempty,max=20,dive,max=40"`
}

// UpdateWorkshopRequest carries partial workshop changes.
type UpdateWorkshopRequest struct {
	Title                *string    `json:"title" validate:"omitempty,min=1,max=200"`
	Description          *string    `json:"description" validate:"omitempty,min=1"`
	Date                 *time.Time `json:"date"`
	DurationMinutes      *int       `json:"durationMinutes" validate:"omitempty,min=1,max=1440"`
	Location             *string    `json:"location" validate:"omitempty,max=200"`
	IsVirtual            *bool      `json:"isVirtual"`
	MeetingLink          *string    `json:"meetingLink" validate:"omitempty,url"`
	Capacity             *int       `json:"capacity" validate:"omitempty,min=1,max=10000"`
	RegistrationDeadline *time.Time `json:"registrationDeadline"`
	Tags                 []string   `json:"tags" validate:"omitempty,max=20,dive,max=40"`
}

type WorkshopQuery struct {
	Host     string `form:"host"`
	Upcoming bool   `form:"upcoming"`
	Search   string `form:"search"`
	models.PageRequest
}
