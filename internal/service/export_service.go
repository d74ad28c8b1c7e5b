package service

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/alumni-connect-api/internal/models"
	appErrors "github.com/noah-isme/alumni-connect-api/pkg/errors"
	"github.com/noah-isme/alumni-connect-api/pkg/export"
)

type platformSnapshot interface {
	Platform(ctx context.Context) (*models.PlatformAnalytics, bool, error)
}

// ExportFile is a rendered download.
type ExportFile struct {
	Filename    string
	ContentType string
	Data        []byte
}

// ExportService renders the admin analytics snapshot as CSV or PDF.
type ExportService struct {
	analytics platformSnapshot
	logger    *zap.Logger
}

func NewExportService(analytics platformSnapshot, logger *zap.Logger) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ExportService{analytics: analytics, logger: logger}
}

var exportHeaders = []string{"Section", "Metric", "Value"}

// Analytics renders the current snapshot in format ("csv" or "pdf").
func (s *ExportService) Analytics(ctx context.Context, format string) (*ExportFile, error) {
	format = strings.ToLower(strings.TrimSpace(format))
	if format == "" {
		format = "csv"
	}
	exporter, ok := export.ForFormat(format)
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrValidation, "format must be csv or pdf")
	}

	snapshot, _, err := s.analytics.Platform(ctx)
	if err != nil {
		return nil, err
	}
	dataset := analyticsDataset(snapshot)
	data, err := exporter.Render(dataset)
	if err != nil {
		s.logger.Error("render analytics export", zap.String("format", format), zap.Error(err))
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render export")
	}

	return &ExportFile{
		Filename:    fmt.Sprintf("analytics_%s.%s", snapshot.GeneratedAt.UTC().Format("20060102_150405"), exporter.Extension()),
		ContentType: exporter.ContentType(),
		Data:        data,
	}, nil
}

func analyticsDataset(a *models.PlatformAnalytics) export.Dataset {
	var rows []map[string]string
	add := func(section, metric string, value interface{}) {
		rows = append(rows, map[string]string{"Section": section, "Metric": metric, "Value": formatMetric(value)})
	}

	add("Users", "Total", a.Users.Total)
	add("Users", "Students", a.Users.Students)
	add("Users", "Alumni", a.Users.Alumni)
	add("Users", "Admins", a.Users.Admins)
	add("Users", "Pending approval", a.Users.PendingApproval)
	add("Users", "Mentors", a.Users.Mentors)

	add("Jobs", "Total", a.Jobs.Total)
	add("Jobs", "Active", a.Jobs.Active)
	add("Jobs", "Applications", a.Jobs.Applications)

	add("Workshops", "Total", a.Workshops.Total)
	add("Workshops", "Upcoming", a.Workshops.Upcoming)
	add("Workshops", "Registrations", a.Workshops.Registrations)

	add("Blogs", "Total", a.Blogs.Total)
	add("Blogs", "Published", a.Blogs.Published)
	add("Blogs", "Drafts", a.Blogs.Drafts)

	add("Mentorships", "Total", a.Mentorships.Total)
	for _, status := range models.MentorshipStatuses {
		add("Mentorships", string(status), a.Mentorships.ByStatus[status])
	}
	add("Mentorships", "Active programs", a.Mentorships.Programs)

	add("Feedback", "Total", a.Feedback.Total)
	add("Feedback", "Average rating", a.Feedback.AverageRating)
	for _, priority := range sortedKeys(a.Feedback.ByPriority) {
		add("Feedback", "Priority "+priority, a.Feedback.ByPriority[models.FeedbackPriority(priority)])
	}

	add("Announcements", "Active", a.Announcements)

	add("Realtime", "Source", a.Realtime.Source)
	add("Realtime", "Connected clients", a.Realtime.ConnectedClients)
	add("Realtime", "Events published", a.Realtime.EventsPublished)
	add("Realtime", "Frames dropped", a.Realtime.EventsDropped)

	add("System", "Requests", a.System.RequestsTotal)
	add("System", "Average request (ms)", a.System.AverageRequestDurationMs)
	add("System", "Cache hit ratio", a.System.CacheHitRatio)

	return export.Dataset{
		Title:   "Platform analytics " + a.GeneratedAt.UTC().Format(time.RFC3339),
		Headers: exportHeaders,
		Rows:    rows,
	}
}

func formatMetric(value interface{}) string {
	switch v := value.(type) {
	case int64:
		return strconv.FormatInt(v, 10)
	case uint64:
		return strconv.FormatUint(v, 10)
	case int:
		return strconv.Itoa(v)
	case float64:
		return strconv.FormatFloat(v, 'f', 2, 64)
	case string:
		return v
	default:
		return fmt.Sprint(v)
	}
}

func sortedKeys[K ~string, V any](m map[K]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, string(k))
	}
	sort.Strings(keys)
	return keys
}
