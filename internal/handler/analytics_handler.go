package handler

import (
	"context"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/alumni-connect-api/internal/middleware"
	"github.com/noah-isme/alumni-connect-api/internal/models"
	"github.com/noah-isme/alumni-connect-api/internal/service"
	"github.com/noah-isme/alumni-connect-api/pkg/response"
)

type analyticsService interface {
	Platform(ctx context.Context) (*models.PlatformAnalytics, bool, error)
	Refresh(ctx context.Context) error
}

type exportService interface {
	Analytics(ctx context.Context, format string) (*service.ExportFile, error)
}

// AnalyticsHandler exposes the admin dashboard snapshot and its exports.
type AnalyticsHandler struct {
	analytics analyticsService
	export    exportService
}

// NewAnalyticsHandler constructs the analytics handler.
func NewAnalyticsHandler(analytics analyticsService, export exportService) *AnalyticsHandler {
	return &AnalyticsHandler{analytics: analytics, export: export}
}

// Platform godoc
// @Summary Platform analytics
// @Description Aggregated counts across users, jobs, workshops, blogs, mentorships and feedback. Realtime and process figures are always live.
// @Tags Admin
// @Produce json
// @Security BearerAuth
// @Param refresh query bool false "Bypass the cached aggregates"
// @Success 200 {object} response.Envelope
// @Router /admin/analytics [get]
func (h *AnalyticsHandler) Platform(c *gin.Context) {
	if c.Query("refresh") == "true" {
		if err := h.analytics.Refresh(c.Request.Context()); err != nil {
			response.Error(c, err)
			return
		}
	}
	snapshot, cacheHit, err := h.analytics.Platform(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	middleware.SetCacheHit(c, cacheHit)
	response.JSON(c, http.StatusOK, snapshot, nil, middleware.ExtractMeta(c))
}

// Export godoc
// @Summary Export analytics
// @Tags Admin
// @Produce text/csv
// @Produce application/pdf
// @Security BearerAuth
// @Param format query string false "csv or pdf" Enums(csv, pdf)
// @Success 200 {file} file
// @Failure 400 {object} response.Envelope
// @Router /admin/analytics/export [get]
func (h *AnalyticsHandler) Export(c *gin.Context) {
	file, err := h.export.Analytics(c.Request.Context(), c.Query("format"))
	if err != nil {
		response.Error(c, err)
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", file.Filename))
	c.Header("Cache-Control", "no-store")
	c.Data(http.StatusOK, file.ContentType, file.Data)
}
