package models

import (
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
)

type ProgramRequestStatus string

const (
	ProgramRequestPending  ProgramRequestStatus = "pending"
	ProgramRequestAccepted ProgramRequestStatus = "accepted"
	ProgramRequestRejected ProgramRequestStatus = "rejected"
)

type ProgramRequest struct {
	ID          bson.ObjectID        `bson:"_id" json:"id"`
	Mentee      bson.ObjectID        `bson:"mentee" json:"mentee"`
	Message     string               `bson:"message,omitempty" json:"message,omitempty"`
	Status      ProgramRequestStatus `bson:"status" json:"status"`
	RequestedAt time.Time            `bson:"requestedAt" json:"requestedAt"`
	RespondedAt *time.Time           `bson:"respondedAt,omitempty" json:"respondedAt,omitempty"`
}

// MentorshipProgram is a one-to-many mentorship bounded by MaxMentees.
type MentorshipProgram struct {
	ID          bson.ObjectID    `bson:"_id,omitempty" json:"id"`
	Title       string           `bson:"title" json:"title"`
	Description string           `bson:"description" json:"description"`
	Mentor      bson.ObjectID    `bson:"mentor" json:"mentor"`
	MaxMentees  int              `bson:"maxMentees" json:"maxMentees"`
	Mentees     []bson.ObjectID  `bson:"mentees" json:"mentees"`
	Requests    []ProgramRequest `bson:"requests" json:"requests"`
	Topics      []string         `bson:"topics,omitempty" json:"topics,omitempty"`
	Duration    string           `bson:"duration,omitempty" json:"duration,omitempty"`
	IsActive    bool             `bson:"isActive" json:"isActive"`
	Version     int64            `bson:"version" json:"version"`
	CreatedAt   time.Time        `bson:"createdAt" json:"createdAt"`
	UpdatedAt   time.Time        `bson:"updatedAt" json:"updatedAt"`
}

func (p *MentorshipProgram) HasMentee(userID bson.ObjectID) bool {
	return containsID(p.Mentees, userID)
}

// HasPendingRequest reports whether userID is waiting for an answer.
func (p *MentorshipProgram) HasPendingRequest(userID bson.ObjectID) bool {
	for _, r := range p.Requests {
		if r.Mentee == userID && r.Status == ProgramRequestPending {
			return true
		}
	}
	return false
}

func (p *MentorshipProgram) Request(id bson.ObjectID) (*ProgramRequest, bool) {
	for i := range p.Requests {
		if p.Requests[i].ID == id {
			return &p.Requests[i], true
		}
	}
	return nil, false
}

func (p *MentorshipProgram) IsFull() bool {
	return len(p.Mentees) >= p.MaxMentees
}

type ProgramFilter struct {
	Mentor     *bson.ObjectID
	ActiveOnly bool
	Page       PageRequest
}
