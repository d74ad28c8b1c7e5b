package models

import "time"

type UserAnalytics struct {
	Total           int64 `json:"total"`
	Students        int64 `json:"students"`
	Alumni          int64 `json:"alumni"`
	Admins          int64 `json:"admins"`
	PendingApproval int64 `json:"pendingApproval"`
	Mentors         int64 `json:"mentors"`
}

type JobAnalytics struct {
	Total        int64 `json:"total"`
	Active       int64 `json:"active"`
	Applications int64 `json:"applications"`
}

type WorkshopAnalytics struct {
	Total         int64 `json:"total"`
	Upcoming      int64 `json:"upcoming"`
	Registrations int64 `json:"registrations"`
}

type BlogAnalytics struct {
	Total     int64 `json:"total"`
	Published int64 `json:"published"`
	Drafts    int64 `json:"drafts"`
}

// PlatformAnalytics is the admin dashboard snapshot.
type PlatformAnalytics struct {
	Users         UserAnalytics     `json:"users"`
	Jobs          JobAnalytics      `json:"jobs"`
	Workshops     WorkshopAnalytics `json:"workshops"`
	Blogs         BlogAnalytics     `json:"blogs"`
	Mentorships   MentorshipStats   `json:"mentorships"`
	Feedback      FeedbackStats     `json:"feedback"`
	Announcements int64             `json:"activeAnnouncements"`
	Realtime      RealtimeSnapshot  `json:"realtime"`
	System        SystemMetrics     `json:"system"`
	GeneratedAt   time.Time         `json:"generatedAt"`
}

// SystemMetrics is a lightweight view of process instrumentation.
type SystemMetrics struct {
	RequestsTotal            uint64  `json:"requestsTotal"`
	AverageRequestDurationMs float64 `json:"averageRequestDurationMs"`
	CacheHitRatio            float64 `json:"cacheHitRatio"`
	CacheHits                uint64  `json:"cacheHits"`
	CacheMisses              uint64  `json:"cacheMisses"`
	Goroutines               int     `json:"goroutines"`
}

// RealtimeSnapshot summarises websocket activity for dashboards.
type RealtimeSnapshot struct {
	Source           string `json:"source"`
	ConnectedClients int    `json:"connectedClients"`
	EventsPublished  uint64 `json:"eventsPublished"`
	EventsDropped    uint64 `json:"eventsDropped"`
	Duplicates       uint64 `json:"duplicatesSuppressed"`
}
