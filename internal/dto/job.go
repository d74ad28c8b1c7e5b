package dto

import (
	"time"

	"github.com/noah-isme/alumni-connect-api/internal/models"
)

// CreateJobRequest defines the payload for posting a job.
type CreateJobRequest struct {
	Title               string         `json:"title" validate:"required,max=200"`
	Company             string         `json:"company" validate:"required,max=120"`
	Location            string         `json:"location" validate:"required,max=120"`
	Type                models.JobType `json:"type" validate:"required,oneof=full-time part-time internship contract"`
	Description         string         `json:"description" validate:"required"`
	Requirements        []string       `json:"requirements" validate:"omitempty,dive,max=300"`
	Salary              string         `json:"salary" validate:"omitempty,max=80"`
	ApplicationDeadline *time.Time     `json:"applicationDeadline"`
}

// UpdateJobRequest carries partial job changes.
type UpdateJobRequest struct {
	Title               *string         `json:"title" validate:"omitempty,min=1,max=200"`
	Company             *string         `json:"company" validate:"omitempty,min=1,max=120"`
	Location            *string         `json:"location" validate:"omitempty,min=1,max=120"`
	Type                *models.JobType `json:"type" validate:"omitempty,oneof=full-time part-time internship contract"`
	Description         *string         `json:"description" validate:"omitempty,min=1"`
	Requirements        []string        `json:"requirements" validate:"omitempty,dive,max=300"`
	Salary              *string         `json:"salary" validate:"omitempty,max=80"`
	ApplicationDeadline *time.Time      `json:"applicationDeadline"`
	IsActive            *bool           `json:"isActive"`
}

type ApplyJobRequest struct {
	CoverLetter string `json:"coverLetter" validate:"omitempty,max=5000"`
	Resume      string `json:"resume" validate:"omitempty,max=512"`
}

type UpdateApplicationStatusRequest struct {
	Status models.ApplicationStatus `json:"status" validate:"required,oneof=pending reviewed shortlisted rejected accepted hired"`
}

// JobQuery captures list query parameters.
type JobQuery struct {
	Type     string `form:"type"`
	Location string `form:"location"`
	Search   string `form:"search"`
	PostedBy string `form:"postedBy"`
	All      bool   `form:"all"`
	models.PageRequest
}
