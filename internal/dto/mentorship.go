package dto

import "github.com/noah-isme/alumni-connect-api/internal/models"

// MentorshipRequest asks an alumni mentor for a 1:1 mentorship.
type MentorshipRequest struct {
	MentorID string   `json:"mentorId" validate:"required,len=24,hexadecimal"`
	Message  string   `json:"message" validate:"omitempty,max=2000"`
	Goals    []string `json:"goals" validate:"omitempty,max=10,dive,max=200"`
}

// RespondMentorshipRequest accepts or rejects a pending request.
type RespondMentorshipRequest struct {
	Status  models.MentorshipStatus `json:"status" validate:"required,oneof=accepted rejected"`
	Message string                  `json:"message" validate:"omitempty,max=2000"`
}

// MentorshipQuery selects received or sent requests.
type MentorshipQuery struct {
	Type   string `form:"type" validate:"omitempty,oneof=received sent"`
	Status string `form:"status"`
	models.PageRequest
}

// MentorshipNotification is the payload of direct mentorship notifications.
type MentorshipNotification struct {
	Mentorship *models.Mentorship `json:"mentorship"`
	From       models.UserSummary `json:"from"`
	Chat       *models.Chat       `json:"chat,omitempty"`
}

type CreateProgramRequest struct {
	Title       string   `json:"title" validate:"required,max=200"`
	Description string   `json:"description" validate:"required"`
	MaxMentees  int      `json:"maxMentees" validate:"required,min=1,max=100"`
	Topics      []string `json:"topics" validate:"omitempty,max=20,dive,max=60"`
	Duration    string   `json:"duration" validate:"omitempty,max=60"`
}

type ProgramJoinRequest struct {
	Message string `json:"message" validate:"omitempty,max=2000"`
}

type RespondProgramRequest struct {
	Status models.ProgramRequestStatus `json:"status" validate:"required,oneof=accepted rejected"`
}

type ProgramQuery struct {
	Mentor string `form:"mentor"`
	All    bool   `form:"all"`
	models.PageRequest
}

// ProgramNotification is the payload of direct program notifications.
type ProgramNotification struct {
	ProgramID string                `json:"programId"`
	Title     string                `json:"title"`
	Request   models.ProgramRequest `json:"request"`
}
