package dto

import "github.com/noah-isme/alumni-connect-api/internal/models"

// CreateFeedbackRequest defines the payload for submitting feedback.
type CreateFeedbackRequest struct {
	Category    string `json:"category" validate:"required,oneof=general workshop mentorship platform job event other"`
	TargetKind  string `json:"targetKind" validate:"omitempty,oneof=workshop job blog mentorship"`
	TargetID    string `json:"targetId" validate:"required_with=TargetKind,omitempty,len=24,hexadecimal"`
	Rating      int    `json:"rating" validate:"required,min=1,max=5"`
	Subject     string `json:"subject" validate:"omitempty,max=200"`
	Comments    string `json:"comments" validate:"required,max=5000"`
	IsAnonymous bool   `json:"isAnonymous"`
}

// UpdateFeedbackRequest lets the author revise an open entry.
type UpdateFeedbackRequest struct {
	Rating   *int    `json:"rating" validate:"omitempty,min=1,max=5"`
	Subject  *string `json:"subject" validate:"omitempty,max=200"`
	Comments *string `json:"comments" validate:"omitempty,min=1,max=5000"`
}

type RespondFeedbackRequest struct {
	Message string                `json:"message" validate:"required,max=5000"`
	Status  models.FeedbackStatus `json:"status" validate:"omitempty,oneof=open reviewed resolved"`
}

type FeedbackQuery struct {
	Category string `form:"category"`
	Priority string `form:"priority"`
	Status   string `form:"status"`
	models.PageRequest
}
