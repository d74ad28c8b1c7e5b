package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/alumni-connect-api/internal/dto"
	"github.com/noah-isme/alumni-connect-api/internal/models"
	"github.com/noah-isme/alumni-connect-api/pkg/response"
)

type mentorshipService interface {
	Request(ctx context.Context, actor *models.JWTClaims, req dto.MentorshipRequest) (*models.Mentorship, error)
	List(ctx context.Context, actor *models.JWTClaims, query dto.MentorshipQuery) ([]models.Mentorship, *models.Pagination, error)
	Relationships(ctx context.Context, actor *models.JWTClaims, page models.PageRequest) ([]models.Mentorship, *models.Pagination, error)
	Respond(ctx context.Context, actor *models.JWTClaims, id string, req dto.RespondMentorshipRequest) (*models.Mentorship, error)
	Complete(ctx context.Context, actor *models.JWTClaims, id string) (*models.Mentorship, error)
	Cancel(ctx context.Context, actor *models.JWTClaims, id string) (*models.Mentorship, error)
	AvailableMentors(ctx context.Context, actor *models.JWTClaims, query dto.UserQuery) ([]models.User, *models.Pagination, error)
	Stats(ctx context.Context, actor *models.JWTClaims) (*models.MentorshipStats, error)
}

// MentorshipHandler exposes the one-to-one mentorship workflow.
type MentorshipHandler struct {
	service mentorshipService
}

func NewMentorshipHandler(svc mentorshipService) *MentorshipHandler {
	return &MentorshipHandler{service: svc}
}

// Request godoc
// @Summary Request mentorship
// @Tags Mentorship
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param payload body dto.MentorshipRequest true "Request"
// @Success 201 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /mentorship/requests [post]
func (h *MentorshipHandler) Request(c *gin.Context) {
	var req dto.MentorshipRequest
	if !bindJSON(c, &req, "mentorship") {
		return
	}
	m, err := h.service.Request(c.Request.Context(), claimsFromContext(c), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, m)
}

// List godoc
// @Summary List mentorship requests
// @Tags Mentorship
// @Produce json
// @Security BearerAuth
// @Param type query string false "received or sent"
// @Param status query string false "Status"
// @Param page query int false "Page number"
// @Param pageSize query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /mentorship/requests [get]
func (h *MentorshipHandler) List(c *gin.Context) {
	var query dto.MentorshipQuery
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

// Respond godoc
// @Summary Accept or reject a request
// @Tags Mentorship
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Mentorship ID"
// @Param payload body dto.RespondMentorshipRequest true "Decision"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /mentorship/requests/{id}/respond [put]
func (h *MentorshipHandler) Respond(c *gin.Context) {
	var req dto.RespondMentorshipRequest
	if !bindJSON(c, &req, "response") {
		return
	}
	m, err := h.service.Respond(c.Request.Context(), claimsFromContext(c), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, m)
}

// Complete godoc
// @Summary Complete mentorship
// @Tags Mentorship
// @Produce json
// @Security BearerAuth
// @Param id path string true "Mentorship ID"
// @Success 200 {object} response.Envelope
// @Router /mentorship/{id}/complete [put]
func (h *MentorshipHandler) Complete(c *gin.Context) {
	h.transition(c, h.service.Complete)
}

// Cancel godoc
// @Summary Cancel mentorship
// @Tags Mentorship
// @Produce json
// @Security BearerAuth
// @Param id path string true "Mentorship ID"
// @Success 200 {object} response.Envelope
// @Router /mentorship/{id}/cancel [put]
func (h *MentorshipHandler) Cancel(c *gin.Context) {
	h.transition(c, h.service.Cancel)
}

func (h *MentorshipHandler) transition(c *gin.Context, fn func(context.Context, *models.JWTClaims, string) (*models.Mentorship, error)) {
	m, err := fn(c.Request.Context(), claimsFromContext(c), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, m)
}

// Relationships godoc
// @Summary Active relationships
// @Tags Mentorship
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Envelope
// @Router /mentorship/relationships [get]
func (h *MentorshipHandler) Relationships(c *gin.Context) {
	page, ok := pageFromQuery(c)
	if !ok {
		return
	}
	items, pagination, err := h.service.Relationships(c.Request.Context(), claimsFromContext(c), page)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, items, pagination)
}

// Mentors godoc
// @Summary Available mentors
// @Tags Mentorship
// @Produce json
// @Security BearerAuth
// @Param search query string false "Search term"
// @Success 200 {object} response.Envelope
// @Router /mentorship/mentors [get]
func (h *MentorshipHandler) Mentors(c *gin.Context) {
	var query dto.UserQuery
	if !bindQuery(c, &query) {
		return
	}
	users, pagination, err := h.service.AvailableMentors(c.Request.Context(), claimsFromContext(c), query)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, users, pagination)
}

// Stats godoc
// @Summary Mentorship statistics
// @Tags Mentorship
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Envelope
// @Router /mentorship/stats [get]
func (h *MentorshipHandler) Stats(c *gin.Context) {
	stats, err := h.service.Stats(c.Request.Context(), claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, stats)
}
