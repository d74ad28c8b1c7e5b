package handler

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/noah-isme/alumni-connect-api/internal/models"
	"github.com/noah-isme/alumni-connect-api/internal/service"
	appErrors "github.com/noah-isme/alumni-connect-api/pkg/errors"
)

type fakeAnalytics struct {
	hit       bool
	refreshed int
}

func (f *fakeAnalytics) Platform(context.Context) (*models.PlatformAnalytics, bool, error) {
	return &models.PlatformAnalytics{Users: models.UserAnalytics{Total: 42}}, f.hit, nil
}

func (f *fakeAnalytics) Refresh(context.Context) error {
	f.refreshed++
	return nil
}

type fakeExport struct{}

func (fakeExport) Analytics(_ context.Context, format string) (*service.ExportFile, error) {
	if format == "xlsx" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "unsupported export format")
	}
	return &service.ExportFile{Filename: "analytics_20260101_000000.csv", ContentType: "text/csv", Data: []byte("Section,Metric,Value\n")}, nil
}

func TestAnalyticsHandlerPlatformReportsCacheHit(t *testing.T) {
	analytics := &fakeAnalytics{hit: true}
	h := NewAnalyticsHandler(analytics, fakeExport{})

	c, rec := newTestContext(http.MethodGet, "/admin/analytics", "", adminClaims)
	h.Platform(c)

	require.Equal(t, http.StatusOK, rec.Code)
	env := decode(t, rec)
	assert.Equal(t, true, env.Meta["cacheHit"])
	assert.Contains(t, string(env.Data), `"total":42`)
	assert.Zero(t, analytics.refreshed)

	c, _ = newTestContext(http.MethodGet, "/admin/analytics?refresh=true", "", adminClaims)
	h.Platform(c)
	assert.Equal(t, 1, analytics.refreshed)
}

func TestAnalyticsHandlerExport(t *testing.T) {
	h := NewAnalyticsHandler(&fakeAnalytics{}, fakeExport{})

	c, rec := newTestContext(http.MethodGet, "/admin/analytics/export?format=csv", "", adminClaims)
	h.Export(c)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/csv", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "analytics_20260101_000000.csv")
	assert.Equal(t, "Section,Metric,Value\n", rec.Body.String())

	c, rec = newTestContext(http.MethodGet, "/admin/analytics/export?format=xlsx", "", adminClaims)
	h.Export(c)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestMetricsHandlerReady(t *testing.T) {
	healthy := NewMetricsHandler(service.NewMetricsService(), PingFunc(func(context.Context) error { return nil }), nil)
	c, rec := newTestContext(http.MethodGet, "/ready", "", nil)
	healthy.Ready(c)
	assert.Equal(t, http.StatusOK, rec.Code)

	core, logs := observer.New(zap.WarnLevel)
	down := NewMetricsHandler(nil, PingFunc(func(context.Context) error { return errors.New("no reachable servers") }), zap.New(core))
	c, rec = newTestContext(http.MethodGet, "/ready", "", nil)
	down.Ready(c)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.JSONEq(t, `{"status":"unavailable"}`, rec.Body.String())
	entries := logs.FilterMessage("readiness check failed").All()
	require.Len(t, entries, 1)
	assert.Equal(t, "no reachable servers", entries[0].ContextMap()["error"])

	c, rec = newTestContext(http.MethodGet, "/metrics", "", nil)
	down.Prometheus(c)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}
