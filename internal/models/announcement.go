package models

import (
	"encoding/json"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
)

type AnnouncementStatus string

const (
	AnnouncementDraft     AnnouncementStatus = "draft"
	AnnouncementPublished AnnouncementStatus = "published"
	AnnouncementArchived  AnnouncementStatus = "archived"
)

// AudienceAll targets every role.
const AudienceAll = "all"

type AnnouncementPriority string

const (
	AnnouncementLow    AnnouncementPriority = "low"
	AnnouncementNormal AnnouncementPriority = "normal"
	AnnouncementHigh   AnnouncementPriority = "high"
)

type Announcement struct {
	ID             bson.ObjectID        `bson:"_id,omitempty" json:"id"`
	Title          string               `bson:"title" json:"title"`
	Content        string               `bson:"content" json:"content"`
	Author         bson.ObjectID        `bson:"author" json:"author"`
	Status         AnnouncementStatus   `bson:"status" json:"status"`
	Priority       AnnouncementPriority `bson:"priority" json:"priority"`
	TargetAudience []string             `bson:"targetAudience" json:"targetAudience"`
	ExpiresAt      *time.Time           `bson:"expiresAt,omitempty" json:"expiresAt,omitempty"`
	PublishedAt    *time.Time           `bson:"publishedAt,omitempty" json:"publishedAt,omitempty"`
	Version        int64                `bson:"version" json:"version"`
	CreatedAt      time.Time            `bson:"createdAt" json:"createdAt"`
	UpdatedAt      time.Time            `bson:"updatedAt" json:"updatedAt"`
}

// IsActiveAt is the derived active flag: published and not expired.
func (a *Announcement) IsActiveAt(now time.Time) bool {
	return a.Status == AnnouncementPublished && (a.ExpiresAt == nil || a.ExpiresAt.After(now))
}

// VisibleTo reports whether role is targeted.
func (a *Announcement) VisibleTo(role UserRole) bool {
	for _, target := range a.TargetAudience {
		if target == AudienceAll || target == string(role) {
			return true
		}
	}
	return false
}

func (a Announcement) MarshalJSON() ([]byte, error) {
	type announcementFields Announcement
	return json.Marshal(struct {
		announcementFields
		IsActive bool `json:"isActive"`
	}{announcementFields(a), a.IsActiveAt(time.Now())})
}

// AnnouncementFilter restricts announcements. Audience and ActiveAt are
// ignored when All is set.
type AnnouncementFilter struct {
	All      bool
	Audience UserRole
	ActiveAt time.Time
	Status   AnnouncementStatus
	Page     PageRequest
}
