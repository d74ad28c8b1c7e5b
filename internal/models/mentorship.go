package models

import (
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
)

type MentorshipStatus string

const (
	MentorshipPending   MentorshipStatus = "pending"
	MentorshipAccepted  MentorshipStatus = "accepted"
	MentorshipRejected  MentorshipStatus = "rejected"
	MentorshipCompleted MentorshipStatus = "completed"
	MentorshipCancelled MentorshipStatus = "cancelled"
)

// MentorshipStatuses lists every status in lifecycle order.
var MentorshipStatuses = []MentorshipStatus{
	MentorshipPending, MentorshipAccepted, MentorshipRejected, MentorshipCompleted, MentorshipCancelled,
}

// Terminal states admit no further transitions.
func (s MentorshipStatus) Terminal() bool {
	return s == MentorshipRejected || s == MentorshipCompleted || s == MentorshipCancelled
}

func (s MentorshipStatus) Valid() bool {
	switch s {
	case MentorshipPending, MentorshipAccepted, MentorshipRejected, MentorshipCompleted, MentorshipCancelled:
		return true
	}
	return false
}

var mentorshipTransitions = map[MentorshipStatus][]MentorshipStatus{
	MentorshipPending:  {MentorshipAccepted, MentorshipRejected, MentorshipCancelled},
	MentorshipAccepted: {MentorshipCompleted, MentorshipCancelled},
}

// CanTransition reports whether from -> to is a legal edge.
func CanTransition(from, to MentorshipStatus) bool {
	for _, next := range mentorshipTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// ActivePairKey identifies the ordered (mentor, mentee) pair while a
// mentorship is pending or accepted. A unique index on it keeps at most one
// such mentorship per pair.
func ActivePairKey(mentor, mentee bson.ObjectID) string {
	return mentor.Hex() + ":" + mentee.Hex()
}

type Mentorship struct {
	ID              bson.ObjectID    `bson:"_id,omitempty" json:"id"`
	Mentor          bson.ObjectID    `bson:"mentor" json:"mentor"`
	Mentee          bson.ObjectID    `bson:"mentee" json:"mentee"`
	Status          MentorshipStatus `bson:"status" json:"status"`
	Message         string           `bson:"message,omitempty" json:"message,omitempty"`
	Goals           []string         `bson:"goals,omitempty" json:"goals,omitempty"`
	ResponseMessage string           `bson:"responseMessage,omitempty" json:"responseMessage,omitempty"`
	ActiveKey       string           `bson:"activeKey,omitempty" json:"-"`
	AcceptedAt      *time.Time       `bson:"acceptedAt,omitempty" json:"acceptedAt,omitempty"`
	RejectedAt      *time.Time       `bson:"rejectedAt,omitempty" json:"rejectedAt,omitempty"`
	CompletedAt     *time.Time       `bson:"completedAt,omitempty" json:"completedAt,omitempty"`
	CancelledAt     *time.Time       `bson:"cancelledAt,omitempty" json:"cancelledAt,omitempty"`
	Version         int64            `bson:"version" json:"version"`
	CreatedAt       time.Time        `bson:"createdAt" json:"createdAt"`
	UpdatedAt       time.Time        `bson:"updatedAt" json:"updatedAt"`
}

func (m *Mentorship) Involves(userID bson.ObjectID) bool {
	return m.Mentor == userID || m.Mentee == userID
}

// Counterpart returns the other side of the mentorship for userID.
func (m *Mentorship) Counterpart(userID bson.ObjectID) bson.ObjectID {
	if m.Mentor == userID {
		return m.Mentee
	}
	return m.Mentor
}

// MentorshipTransition describes a conditional status change.
type MentorshipTransition struct {
	From            []MentorshipStatus
	To              MentorshipStatus
	ResponseMessage string
	At              time.Time
}

// MentorshipFilter restricts listings. Participant matches either side.
type MentorshipFilter struct {
	Mentor      *bson.ObjectID
	Mentee      *bson.ObjectID
	Participant *bson.ObjectID
	Statuses    []MentorshipStatus
	Page        PageRequest
}

// MentorshipStats counts mentorships per status.
type MentorshipStats struct {
	Total    int64                      `json:"total"`
	ByStatus map[MentorshipStatus]int64 `json:"byStatus"`
	Programs int64                      `json:"programs,omitempty"`
}
