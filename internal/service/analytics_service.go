package service

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.uber.org/zap"

	"github.com/noah-isme/alumni-connect-api/internal/models"
	"github.com/noah-isme/alumni-connect-api/internal/realtime"
	appErrors "github.com/noah-isme/alumni-connect-api/pkg/errors"
)

const platformAnalyticsKey = "analytics:platform"

// AnalyticsRepository describes the aggregations behind the admin dashboard.
type AnalyticsRepository interface {
	UserSummary(ctx context.Context) (models.UserAnalytics, error)
	JobSummary(ctx context.Context) (models.JobAnalytics, error)
	WorkshopSummary(ctx context.Context, now time.Time) (models.WorkshopAnalytics, error)
	BlogSummary(ctx context.Context) (models.BlogAnalytics, error)
}

type mentorshipCounter interface {
	CountByStatus(ctx context.Context, participant *bson.ObjectID) (map[models.MentorshipStatus]int64, error)
}

type programCounter interface {
	CountActive(ctx context.Context) (int64, error)
}

type feedbackStatsSource interface {
	Stats(ctx context.Context) (models.FeedbackStats, error)
}

type announcementCounter interface {
	CountActive(ctx context.Context, now time.Time) (int64, error)
}

type hubStats interface {
	Stats() realtime.HubStats
}

// AnalyticsSources groups the read models the dashboard aggregates.
type AnalyticsSources struct {
	Summaries     AnalyticsRepository
	Mentorships   mentorshipCounter
	Programs      programCounter
	Feedback      feedbackStatsSource
	Announcements announcementCounter
	Hub           hubStats
	// RealtimeSource is the resolved change source reported to dashboards.
	RealtimeSource string
}

// AnalyticsService builds the admin dashboard snapshot. Store aggregates
// are cached; realtime and process figures are always read live.
type AnalyticsService struct {
	src     AnalyticsSources
	cache   *CacheService
	metrics *MetricsService
	ttl     time.Duration
	logger  *zap.Logger
	now     func() time.Time
}

func NewAnalyticsService(src AnalyticsSources, cache *CacheService, metrics *MetricsService, ttl time.Duration, logger *zap.Logger) *AnalyticsService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AnalyticsService{src: src, cache: cache, metrics: metrics, ttl: ttl, logger: logger, now: func() time.Time { return time.Now().UTC() }}
}

// Platform returns the dashboard snapshot. The boolean reports whether the
// store aggregates came from cache.
func (s *AnalyticsService) Platform(ctx context.Context) (*models.PlatformAnalytics, bool, error) {
	var snapshot models.PlatformAnalytics
	cached := s.cache.Get(ctx, platformAnalyticsKey, &snapshot)
	if !cached {
		fresh, err := s.aggregate(ctx)
		if err != nil {
			return nil, false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to build analytics")
		}
		snapshot = *fresh
		s.cache.Set(ctx, platformAnalyticsKey, snapshot, s.ttl)
	}

	snapshot.Realtime = s.realtimeSnapshot()
	snapshot.System = s.metrics.Snapshot()
	return &snapshot, cached, nil
}

// Refresh drops the cached aggregates.
func (s *AnalyticsService) Refresh(ctx context.Context) error {
	return s.cache.Invalidate(ctx, "analytics:*")
}

func (s *AnalyticsService) aggregate(ctx context.Context) (*models.PlatformAnalytics, error) {
	now := s.now()
	out := &models.PlatformAnalytics{GeneratedAt: now}
	var err error

	if out.Users, err = s.src.Summaries.UserSummary(ctx); err != nil {
		return nil, fmt.Errorf("user summary: %w", err)
	}
	if out.Jobs, err = s.src.Summaries.JobSummary(ctx); err != nil {
		return nil, fmt.Errorf("job summary: %w", err)
	}
	if out.Workshops, err = s.src.Summaries.WorkshopSummary(ctx, now); err != nil {
		return nil, fmt.Errorf("workshop summary: %w", err)
	}
	if out.Blogs, err = s.src.Summaries.BlogSummary(ctx); err != nil {
		return nil, fmt.Errorf("blog summary: %w", err)
	}

	counts, err := s.src.Mentorships.CountByStatus(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("mentorship counts: %w", err)
	}
	out.Mentorships = models.MentorshipStats{ByStatus: make(map[models.MentorshipStatus]int64)}
	for _, status := range models.MentorshipStatuses {
		out.Mentorships.ByStatus[status] = counts[status]
		out.Mentorships.Total += counts[status]
	}
	if out.Mentorships.Programs, err = s.src.Programs.CountActive(ctx); err != nil {
		return nil, fmt.Errorf("program count: %w", err)
	}

	if out.Feedback, err = s.src.Feedback.Stats(ctx); err != nil {
		return nil, fmt.Errorf("feedback stats: %w", err)
	}
	if out.Announcements, err = s.src.Announcements.CountActive(ctx, now); err != nil {
		return nil, fmt.Errorf("announcement count: %w", err)
	}
	s.logger.Debug("analytics aggregated", zap.Int64("users", out.Users.Total))
	return out, nil
}

func (s *AnalyticsService) realtimeSnapshot() models.RealtimeSnapshot {
	snap := models.RealtimeSnapshot{Source: s.src.RealtimeSource}
	if s.src.Hub == nil {
		return snap
	}
	stats := s.src.Hub.Stats()
	snap.ConnectedClients = stats.Clients
	snap.EventsPublished = stats.Published
	snap.EventsDropped = stats.Dropped
	snap.Duplicates = stats.Duplicates
	return snap
}
