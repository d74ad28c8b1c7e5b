package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/alumni-connect-api/internal/dto"
	"github.com/noah-isme/alumni-connect-api/internal/models"
	"github.com/noah-isme/alumni-connect-api/pkg/response"
)

type pendingUsers interface {
	Pending(ctx context.Context, page models.PageRequest) ([]models.User, *models.Pagination, error)
}

type mentorshipLister interface {
	All(ctx context.Context, actor *models.JWTClaims, query dto.MentorshipQuery) ([]models.Mentorship, *models.Pagination, error)
}

type jobLister interface {
	List(ctx context.Context, actor *models.JWTClaims, query dto.JobQuery) ([]models.Job, *models.Pagination, error)
	Applications(ctx context.Context, actor *models.JWTClaims) ([]models.ApplicationView, error)
}

// AdminHandler groups the administrator oversight listings.
type AdminHandler struct {
	users       pendingUsers
	mentorships mentorshipLister
	jobs        jobLister
}

func NewAdminHandler(users pendingUsers, mentorships mentorshipLister, jobs jobLister) *AdminHandler {
	return &AdminHandler{users: users, mentorships: mentorships, jobs: jobs}
}

// PendingUsers godoc
// @Summary Accounts awaiting approval
// @Tags Admin
// @Produce json
// @Security BearerAuth
// @Param page query int false "Page number"
// @Param pageSize query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /admin/users/pending [get]
func (h *AdminHandler) PendingUsers(c *gin.Context) {
	page, ok := pageFromQuery(c)
	if !ok {
		return
	}
	users, pagination, err := h.users.Pending(c.Request.Context(), page)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, users, pagination)
}

// Mentorships godoc
// @Summary All mentorships
// @Tags Admin
// @Produce json
// @Security BearerAuth
// @Param status query string false "Status"
// @Success 200 {object} response.Envelope
// @Router /admin/mentorships [get]
func (h *AdminHandler) Mentorships(c *gin.Context) {
	var query dto.MentorshipQuery
	if !bindQuery(c, &query) {
		return
	}
	items, pagination, err := h.mentorships.All(c.Request.Context(), claimsFromContext(c), query)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, items, pagination)
}

// Jobs godoc
// @Summary All job postings
// @Description Includes closed postings
// @Tags Admin
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Envelope
// @Router /admin/jobs [get]
func (h *AdminHandler) Jobs(c *gin.Context) {
	var query dto.JobQuery
	if !bindQuery(c, &query) {
		return
	}
	query.All = true
	jobs, pagination, err := h.jobs.List(c.Request.Context(), claimsFromContext(c), query)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, jobs, pagination)
}

// Applications godoc
// @Summary All job applications
// @Tags Admin
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Envelope
// @Router /admin/applications [get]
func (h *AdminHandler) Applications(c *gin.Context) {
	apps, err := h.jobs.Applications(c.Request.Context(), claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, apps)
}
