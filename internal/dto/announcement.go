package dto

import (
	"time"

	"github.com/noah-isme/alumni-connect-api/internal/models"
)

// CreateAnnouncementRequest defines the payload for an announcement.
type CreateAnnouncementRequest struct {
	Title          string                      `json:"title" validate:"required,max=200"`
	Content        string                      `json:"content" validate:"required"`
	Priority       models.AnnouncementPriority `json:"priority" validate:"omitempty,oneof=low normal high"`
	TargetAudience []string                    `json:"targetAudience" validate:"omitempty,dive,oneof=all admin alumni student"`
	ExpiresAt      *time.Time                  `json:"expiresAt"`
	Publish        bool                        `json:"publish"`
}

type UpdateAnnouncementRequest struct {
	Title          *string                      `json:"title" validate:"omitempty,min=1,max=200"`
	Content        *string                      `json:"content" validate:"omitempty,min=1"`
	Priority       *models.AnnouncementPriority `json:"priority" validate:"omitempty,oneof=low normal high"`
	TargetAudience []string                     `json:"targetAudience" validate:"omitempty,dive,oneof=all admin alumni student"`
	ExpiresAt      *time.Time                   `json:"expiresAt"`
}

type AnnouncementQuery struct {
	View   string `form:"view"`
	Status string `form:"status"`
	models.PageRequest
}
