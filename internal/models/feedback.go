package models

import (
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
)

type FeedbackPriority string

const (
	PriorityHigh   FeedbackPriority = "high"
	PriorityMedium FeedbackPriority = "medium"
	PriorityLow    FeedbackPriority = "low"
)

type FeedbackStatus string

const (
	FeedbackOpen     FeedbackStatus = "open"
	FeedbackReviewed FeedbackStatus = "reviewed"
	FeedbackResolved FeedbackStatus = "resolved"
)

// PriorityForRating derives the priority stored with a feedback entry.
func PriorityForRating(rating int) FeedbackPriority {
	switch {
	case rating <= 2:
		return PriorityHigh
	case rating <= 3:
		return PriorityMedium
	default:
		return PriorityLow
	}
}

// FeedbackTarget optionally ties feedback to another entity, e.g. a workshop.
type FeedbackTarget struct {
	Kind string        `bson:"kind" json:"kind"`
	ID   bson.ObjectID `bson:"id" json:"id"`
}

type FeedbackResponse struct {
	Message     string        `bson:"message" json:"message"`
	RespondedBy bson.ObjectID `bson:"respondedBy" json:"respondedBy"`
	RespondedAt time.Time     `bson:"respondedAt" json:"respondedAt"`
}

type Feedback struct {
	ID          bson.ObjectID     `bson:"_id,omitempty" json:"id"`
	User        bson.ObjectID     `bson:"user" json:"user"`
	Category    string            `bson:"category" json:"category"`
	Target      *FeedbackTarget   `bson:"target,omitempty" json:"target,omitempty"`
	Rating      int               `bson:"rating" json:"rating"`
	Subject     string            `bson:"subject,omitempty" json:"subject,omitempty"`
	Comments    string            `bson:"comments" json:"comments"`
	Priority    FeedbackPriority  `bson:"priority" json:"priority"`
	Status      FeedbackStatus    `bson:"status" json:"status"`
	IsAnonymous bool              `bson:"isAnonymous" json:"isAnonymous"`
	HelpfulBy   []bson.ObjectID   `bson:"helpfulBy" json:"helpfulBy"`
	Response    *FeedbackResponse `bson:"response,omitempty" json:"response,omitempty"`
	Version     int64             `bson:"version" json:"version"`
	CreatedAt   time.Time         `bson:"createdAt" json:"createdAt"`
	UpdatedAt   time.Time         `bson:"updatedAt" json:"updatedAt"`
}

// Prepare recomputes the derived priority. Call before every save.
func (f *Feedback) Prepare() {
	f.Priority = PriorityForRating(f.Rating)
}

type FeedbackFilter struct {
	User     *bson.ObjectID
	Category string
	Priority FeedbackPriority
	Status   FeedbackStatus
	Page     PageRequest
}

// FeedbackStats aggregates feedback for administrators.
type FeedbackStats struct {
	Total         int64                      `json:"total"`
	AverageRating float64                    `json:"averageRating"`
	ByPriority    map[FeedbackPriority]int64 `json:"byPriority"`
	ByStatus      map[FeedbackStatus]int64   `json:"byStatus"`
	ByRating      map[int]int64              `json:"byRating"`
}
