package models

import (
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
)

type WorkshopAttendee struct {
	User         bson.ObjectID `bson:"user" json:"user"`
	RegisteredAt time.Time     `bson:"registeredAt" json:"registeredAt"`
}

// Workshop is a hosted event with a bounded attendee list.
type Workshop struct {
	ID                   bson.ObjectID      `bson:"_id,omitempty" json:"id"`
	Title                string             `bson:"title" json:"title"`
	Description          string             `bson:"description" json:"description"`
	Date                 time.Time          `bson:"date" json:"date"`
	DurationMinutes      int                `bson:"durationMinutes,omitempty" json:"durationMinutes,omitempty"`
	Location             string             `bson:"location,omitempty" json:"location,omitempty"`
	IsVirtual            bool               `bson:"isVirtual" json:"isVirtual"`
	MeetingLink          string             `bson:"meetingLink,omitempty" json:"meetingLink,omitempty"`
	Capacity             int                `bson:"capacity" json:"capacity"`
	RegistrationDeadline *time.Time         `bson:"registrationDeadline,omitempty" json:"registrationDeadline,omitempty"`
	Host                 bson.ObjectID      `bson:"host" json:"host"`
	Attendees            []WorkshopAttendee `bson:"attendees" json:"attendees"`
	Tags                 []string           `bson:"tags,omitempty" json:"tags,omitempty"`
	IsActive             bool               `bson:"isActive" json:"isActive"`
	Version              int64              `bson:"version" json:"version"`
	CreatedAt            time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt            time.Time          `bson:"updatedAt" json:"updatedAt"`
}

func (w *Workshop) IsRegistered(userID bson.ObjectID) bool {
	for _, a := range w.Attendees {
		if a.User == userID {
			return true
		}
	}
	return false
}

func (w *Workshop) IsFull() bool {
	return len(w.Attendees) >= w.Capacity
}

func (w *Workshop) RegistrationOpen(now time.Time) bool {
	return w.RegistrationDeadline == nil || !now.After(*w.RegistrationDeadline)
}

// WorkshopFilter captures list criteria for workshops.
type WorkshopFilter struct {
	Host         *bson.ObjectID
	UpcomingOnly bool
	Search       string
	Page         PageRequest
}
