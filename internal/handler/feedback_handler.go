package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/alumni-connect-api/internal/dto"
	"github.com/noah-isme/alumni-connect-api/internal/models"
	"github.com/noah-isme/alumni-connect-api/pkg/response"
)

type feedbackService interface {
	Create(ctx context.Context, actor *models.JWTClaims, req dto.CreateFeedbackRequest) (*models.Feedback, error)
	List(ctx context.Context, actor *models.JWTClaims, query dto.FeedbackQuery) ([]models.Feedback, *models.Pagination, error)
	Mine(ctx context.Context, actor *models.JWTClaims, page models.PageRequest) ([]models.Feedback, *models.Pagination, error)
	Get(ctx context.Context, actor *models.JWTClaims, id string) (*models.Feedback, error)
	Update(ctx context.Context, actor *models.JWTClaims, id string, req dto.UpdateFeedbackRequest) (*models.Feedback, error)
	Respond(ctx context.Context, actor *models.JWTClaims, id string, req dto.RespondFeedbackRequest) (*models.Feedback, error)
	MarkHelpful(ctx context.Context, actor *models.JWTClaims, id string) (*models.Feedback, error)
	Stats(ctx context.Context, actor *models.JWTClaims) (*models.FeedbackStats, error)
}

// FeedbackHandler exposes member feedback and the admin triage views.
type FeedbackHandler struct {
	service feedbackService
}

func NewFeedbackHandler(svc feedbackService) *FeedbackHandler {
	return &FeedbackHandler{service: svc}
}

// Create godoc
// @Summary Submit feedback
// @Tags Feedback
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param payload body dto.CreateFeedbackRequest true "Feedback"
// @Success 201 {object} response.Envelope
// @Router /feedback [post]
func (h *FeedbackHandler) Create(c *gin.Context) {
	var req dto.CreateFeedbackRequest
	if !bindJSON(c, &req, "feedback") {
		return
	}
	item, err := h.service.Create(c.Request.Context(), claimsFromContext(c), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, item)
}

// List godoc
// @Summary List feedback
// @Tags Feedback
// @Produce json
// @Security BearerAuth
// @Param category query string false "Category"
// @Param priority query string false "Priority"
// @Param status query string false "Status"
// @Param page query int false "Page number"
// @Param pageSize query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /feedback [get]
func (h *FeedbackHandler) List(c *gin.Context) {
	var query dto.FeedbackQuery
	if !bindQuery(c, &query) {
		return
	}
	items, pagination, err := h.service.List(c.Request.Context(), claimsFromContext(c), query)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, items, pagination)
}

// Mine godoc
// @Summary My feedback
// @Tags Feedback
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Envelope
// @Router /feedback/me [get]
func (h *FeedbackHandler) Mine(c *gin.Context) {
	page, ok := pageFromQuery(c)
	if !ok {
		return
	}
	items, pagination, err := h.service.Mine(c.Request.Context(), claimsFromContext(c), page)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, items, pagination)
}

// Get godoc
// @Summary Get feedback
// @Tags Feedback
// @Produce json
// @Security BearerAuth
// @Param id path string true "Feedback ID"
// @Success 200 {object} response.Envelope
// @Router /feedback/{id} [get]
func (h *FeedbackHandler) Get(c *gin.Context) {
	item, err := h.service.Get(c.Request.Context(), claimsFromContext(c), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, item)
}

// Update godoc
// @Summary Edit feedback
// @Tags Feedback
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Feedback ID"
// @Param payload body dto.UpdateFeedbackRequest true "Changes"
// @Success 200 {object} response.Envelope
// @Router /feedback/{id} [put]
func (h *FeedbackHandler) Update(c *gin.Context) {
	var req dto.UpdateFeedbackRequest
	if !bindJSON(c, &req, "feedback") {
		return
	}
	item, err := h.service.Update(c.Request.Context(), claimsFromContext(c), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, item)
}

// Respond godoc
// @Summary Respond to feedback
// @Tags Feedback
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Feedback ID"
// @Param payload body dto.RespondFeedbackRequest true "Response"
// @Success 200 {object} response.Envelope
// @Router /feedback/{id}/response [put]
func (h *FeedbackHandler) Respond(c *gin.Context) {
	var req dto.RespondFeedbackRequest
	if !bindJSON(c, &req, "response") {
		return
	}
	item, err := h.service.Respond(c.Request.Context(), claimsFromContext(c), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, item)
}

// Helpful godoc
// @Summary Mark feedback helpful
// @Tags Feedback
// @Produce json
// @Security BearerAuth
// @Param id path string true "Feedback ID"
// @Success 200 {object} response.Envelope
// @Router /feedback/{id}/helpful [post]
func (h *FeedbackHandler) Helpful(c *gin.Context) {
	item, err := h.service.MarkHelpful(c.Request.Context(), claimsFromContext(c), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, item)
}

// Stats godoc
// @Summary Feedback statistics
// @Tags Feedback
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Envelope
// @Router /feedback/stats [get]
func (h *FeedbackHandler) Stats(c *gin.Context) {
	stats, err := h.service.Stats(c.Request.Context(), claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, stats)
}
