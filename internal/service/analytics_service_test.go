package service

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/v2/bson"

	"github.com/noah-isme/alumni-connect-api/internal/models"
	"github.com/noah-isme/alumni-connect-api/internal/realtime"
	appErrors "github.com/noah-isme/alumni-connect-api/pkg/errors"
)

type mockAnalyticsRepo struct {
	calls   int
	userErr error
}

func (m *mockAnalyticsRepo) UserSummary(ctx context.Context) (models.UserAnalytics, error) {
	m.calls++
	if m.userErr != nil {
		return models.UserAnalytics{}, m.userErr
	}
	return models.UserAnalytics{Total: 12, Students: 7, Alumni: 4, Admins: 1, PendingApproval: 2, Mentors: 3}, nil
}

func (m *mockAnalyticsRepo) JobSummary(ctx context.Context) (models.JobAnalytics, error) {
	return models.JobAnalytics{Total: 5, Active: 4, Applications: 9}, nil
}

func (m *mockAnalyticsRepo) WorkshopSummary(ctx context.Context, now time.Time) (models.WorkshopAnalytics, error) {
	return models.WorkshopAnalytics{Total: 3, Upcoming: 2, Registrations: 17}, nil
}

func (m *mockAnalyticsRepo) BlogSummary(ctx context.Context) (models.BlogAnalytics, error) {
	return models.BlogAnalytics{Total: 8, Published: 6, Drafts: 2}, nil
}

type analyticsCounters struct{}

func (analyticsCounters) CountByStatus(ctx context.Context, participant *bson.ObjectID) (map[models.MentorshipStatus]int64, error) {
	return map[models.MentorshipStatus]int64{models.MentorshipPending: 2, models.MentorshipAccepted: 3}, nil
}

func (analyticsCounters) CountActive(ctx context.Context) (int64, error) { return 4, nil }

func (analyticsCounters) Stats(ctx context.Context) (models.FeedbackStats, error) {
	return models.FeedbackStats{
		Total:         6,
		AverageRating: 3.5,
		ByPriority:    map[models.FeedbackPriority]int64{models.PriorityHigh: 2, models.PriorityLow: 4},
	}, nil
}

type activeAnnouncements int64

func (a activeAnnouncements) CountActive(ctx context.Context, now time.Time) (int64, error) {
	return int64(a), nil
}

type fixedHub realtime.HubStats

func (h fixedHub) Stats() realtime.HubStats { return realtime.HubStats(h) }

type stubCacheRepo struct {
	store map[string][]byte
}

func (s *stubCacheRepo) Get(_ context.Context, key string, dest interface{}) error {
	payload, ok := s.store[key]
	if !ok {
		return appErrors.ErrCacheMiss
	}
	return json.Unmarshal(payload, dest)
}

func (s *stubCacheRepo) Set(_ context.Context, key string, value interface{}, _ time.Duration) error {
	if s.store == nil {
		s.store = make(map[string][]byte)
	}
	payload, err := json.Marshal(value)
	if err != nil {
		return err
	}
	s.store[key] = payload
	return nil
}

func (s *stubCacheRepo) DeleteByPattern(_ context.Context, pattern string) error {
	prefix := strings.TrimSuffix(pattern, "*")
	for key := range s.store {
		if strings.HasPrefix(key, prefix) {
			delete(s.store, key)
		}
	}
	return nil
}

func newAnalyticsForTest(repo *mockAnalyticsRepo, cacheEnabled bool) (*AnalyticsService, *MetricsService) {
	metrics := NewMetricsService()
	cache := NewCacheService(&stubCacheRepo{}, metrics, time.Minute, nil, cacheEnabled)
	svc := NewAnalyticsService(AnalyticsSources{
		Summaries:      repo,
		Mentorships:    analyticsCounters{},
		Programs:       analyticsCounters{},
		Feedback:       analyticsCounters{},
		Announcements:  activeAnnouncements(1),
		Hub:            fixedHub{Clients: 3, Published: 40, Dropped: 1},
		RealtimeSource: "hooks",
	}, cache, metrics, time.Minute, nil)
	return svc, metrics
}

func TestAnalyticsServicePlatformAggregates(t *testing.T) {
	repo := &mockAnalyticsRepo{}
	svc, _ := newAnalyticsForTest(repo, false)

	snapshot, cached, err := svc.Platform(context.Background())
	require.NoError(t, err)
	assert.False(t, cached)
	assert.Equal(t, int64(12), snapshot.Users.Total)
	assert.Equal(t, int64(5), snapshot.Mentorships.Total)
	assert.Equal(t, int64(0), snapshot.Mentorships.ByStatus[models.MentorshipCancelled])
	assert.Equal(t, int64(4), snapshot.Mentorships.Programs)
	assert.Equal(t, int64(1), snapshot.Announcements)
	assert.Equal(t, 3, snapshot.Realtime.ConnectedClients)
	assert.Equal(t, "hooks", snapshot.Realtime.Source)
}

func TestAnalyticsServiceUsesCache(t *testing.T) {
	repo := &mockAnalyticsRepo{}
	svc, metrics := newAnalyticsForTest(repo, true)
	ctx := context.Background()

	_, cached, err := svc.Platform(ctx)
	require.NoError(t, err)
	assert.False(t, cached)

	snapshot, cached, err := svc.Platform(ctx)
	require.NoError(t, err)
	assert.True(t, cached)
	assert.Equal(t, 1, repo.calls)
	assert.Equal(t, int64(17), snapshot.Workshops.Registrations)
	assert.Equal(t, int64(2), snapshot.Feedback.ByPriority[models.PriorityHigh])

	stats := metrics.Snapshot()
	assert.Equal(t, uint64(1), stats.CacheHits)
	assert.Equal(t, uint64(1), stats.CacheMisses)

	require.NoError(t, svc.Refresh(ctx))
	_, cached, err = svc.Platform(ctx)
	require.NoError(t, err)
	assert.False(t, cached)
	assert.Equal(t, 2, repo.calls)
}

func TestAnalyticsServicePropagatesStoreErrors(t *testing.T) {
	svc, _ := newAnalyticsForTest(&mockAnalyticsRepo{userErr: errors.New("boom")}, true)
	_, _, err := svc.Platform(context.Background())
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrInternal.Code, appErrors.FromError(err).Code)
}
