package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/alumni-connect-api/internal/dto"
	"github.com/noah-isme/alumni-connect-api/internal/models"
	"github.com/noah-isme/alumni-connect-api/pkg/response"
)

type jobService interface {
	List(ctx context.Context, actor *models.JWTClaims, query dto.JobQuery) ([]models.Job, *models.Pagination, error)
	Get(ctx context.Context, actor *models.JWTClaims, id string) (*models.Job, error)
	Create(ctx context.Context, actor *models.JWTClaims, req dto.CreateJobRequest) (*models.Job, error)
	Update(ctx context.Context, actor *models.JWTClaims, id string, req dto.UpdateJobRequest) (*models.Job, error)
	Delete(ctx context.Context, actor *models.JWTClaims, id string) error
	Apply(ctx context.Context, actor *models.JWTClaims, id string, req dto.ApplyJobRequest) (*models.JobApplicant, error)
	UpdateApplicationStatus(ctx context.Context, actor *models.JWTClaims, id, applicantID string, req dto.UpdateApplicationStatusRequest) (*models.Job, error)
	MyApplications(ctx context.Context, actor *models.JWTClaims) ([]models.ApplicationView, error)
}

// JobHandler exposes the job board.
type JobHandler struct {
	service jobService
}

// NewJobHandler constructs the handler.
func NewJobHandler(svc jobService) *JobHandler {
	return &JobHandler{service: svc}
}

// List godoc
// @Summary List jobs
// @Description Active postings. Applicant lists are only returned to the poster and administrators.
// @Tags Jobs
// @Produce json
// @Security BearerAuth
// @Param type query string false "Job type"
// @Param location query string false "Location filter"
// @Param search query string false "Search term"
// @Param postedBy query string false "Poster ID"
// @Param page query int false "Page number"
// @Param pageSize query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /jobs [get]
func (h *JobHandler) List(c *gin.Context) {
	var query dto.JobQuery
	if !bindQuery(c, &query) {
		return
	}
	jobs, pagination, err := h.service.List(c.Request.Context(), claimsFromContext(c), query)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, jobs, pagination)
}

// Get godoc
// @Summary Get job
// @Tags Jobs
// @Produce json
// @Security BearerAuth
// @Param id path string true "Job ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /jobs/{id} [get]
func (h *JobHandler) Get(c *gin.Context) {
	job, err := h.service.Get(c.Request.Context(), claimsFromContext(c), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, job)
}

// Create godoc
// @Summary Post job
// @Tags Jobs
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param payload body dto.CreateJobRequest true "Job payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /jobs [post]
func (h *JobHandler) Create(c *gin.Context) {
	var req dto.CreateJobRequest
	if !bindJSON(c, &req, "job") {
		return
	}
	job, err := h.service.Create(c.Request.Context(), claimsFromContext(c), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, job)
}

// Update godoc
// @Summary Update job
// @Tags Jobs
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Job ID"
// @Param payload body dto.UpdateJobRequest true "Job payload"
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /jobs/{id} [put]
func (h *JobHandler) Update(c *gin.Context) {
	var req dto.UpdateJobRequest
	if !bindJSON(c, &req, "job") {
		return
	}
	job, err := h.service.Update(c.Request.Context(), claimsFromContext(c), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, job)
}

// Delete godoc
// @Summary Close job
// @Description Deactivates the posting; applications are kept.
// @Tags Jobs
// @Security BearerAuth
// @Param id path string true "Job ID"
// @Success 204 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /jobs/{id} [delete]
func (h *JobHandler) Delete(c *gin.Context) {
	if err := h.service.Delete(c.Request.Context(), claimsFromContext(c), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// Apply godoc
// @Summary Apply to job
// @Tags Jobs
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Job ID"
// @Param payload body dto.ApplyJobRequest false "Application"
// @Success 201 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /jobs/{id}/apply [post]
func (h *JobHandler) Apply(c *gin.Context) {
	var req dto.ApplyJobRequest
	if c.Request.ContentLength != 0 && !bindJSON(c, &req, "application") {
		return
	}
	applicant, err := h.service.Apply(c.Request.Context(), claimsFromContext(c), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, applicant)
}

// UpdateApplicationStatus godoc
// @Summary Update application status
// @Tags Jobs
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Job ID"
// @Param userId path string true "Applicant user ID"
// @Param payload body dto.UpdateApplicationStatusRequest true "Status"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /jobs/{id}/applications/{userId} [put]
func (h *JobHandler) UpdateApplicationStatus(c *gin.Context) {
	var req dto.UpdateApplicationStatusRequest
	if !bindJSON(c, &req, "status") {
		return
	}
	job, err := h.service.UpdateApplicationStatus(c.Request.Context(), claimsFromContext(c), c.Param("id"), c.Param("userId"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, job)
}

// MyApplications godoc
// @Summary My applications
// @Tags Jobs
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Envelope
// @Router /jobs/applications/me [get]
func (h *JobHandler) MyApplications(c *gin.Context) {
	apps, err := h.service.MyApplications(c.Request.Context(), claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, apps)
}
