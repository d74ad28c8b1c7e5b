package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/alumni-connect-api/internal/dto"
	"github.com/noah-isme/alumni-connect-api/internal/models"
	"github.com/noah-isme/alumni-connect-api/pkg/response"
)

type programService interface {
	List(ctx context.Context, actor *models.JWTClaims, query dto.ProgramQuery) ([]models.MentorshipProgram, *models.Pagination, error)
	Get(ctx context.Context, actor *models.JWTClaims, id string) (*models.MentorshipProgram, error)
	Create(ctx context.Context, actor *models.JWTClaims, req dto.CreateProgramRequest) (*models.MentorshipProgram, error)
	Delete(ctx context.Context, actor *models.JWTClaims, id string) error
	Request(ctx context.Context, actor *models.JWTClaims, id string, req dto.ProgramJoinRequest) (*models.ProgramRequest, error)
	Respond(ctx context.Context, actor *models.JWTClaims, id, requestID string, req dto.RespondProgramRequest) (*models.MentorshipProgram, error)
}

// ProgramHandler exposes group mentorship programs.
type ProgramHandler struct {
	service programService
}

func NewProgramHandler(svc programService) *ProgramHandler {
	return &ProgramHandler{service: svc}
}

// List godoc
// @Summary List programs
// @Tags Mentorship Programs
// @Produce json
// @Security BearerAuth
// @Param mentor query string false "Mentor ID"
// @Param all query bool false "Include closed programs (owner or admin)"
// @Success 200 {object} response.Envelope
// @Router /mentorship-programs [get]
func (h *ProgramHandler) List(c *gin.Context) {
	var query dto.ProgramQuery
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

// Get godoc
// @Summary Get program
// @Tags Mentorship Programs
// @Produce json
// @Security BearerAuth
// @Param id path string true "Program ID"
// @Success 200 {object} response.Envelope
// @Router /mentorship-programs/{id} [get]
func (h *ProgramHandler) Get(c *gin.Context) {
	p, err := h.service.Get(c.Request.Context(), claimsFromContext(c), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, p)
}

// Create godoc
// @Summary Create program
// @Tags Mentorship Programs
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param payload body dto.CreateProgramRequest true "Program"
// @Success 201 {object} response.Envelope
// @Router /mentorship-programs [post]
func (h *ProgramHandler) Create(c *gin.Context) {
	var req dto.CreateProgramRequest
	if !bindJSON(c, &req, "program") {
		return
	}
	p, err := h.service.Create(c.Request.Context(), claimsFromContext(c), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, p)
}

// Delete godoc
// @Summary Close program
// @Tags Mentorship Programs
// @Security BearerAuth
// @Param id path string true "Program ID"
// @Success 204 {object} response.Envelope
// @Router /mentorship-programs/{id} [delete]
func (h *ProgramHandler) Delete(c *gin.Context) {
	if err := h.service.Delete(c.Request.Context(), claimsFromContext(c), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// Request godoc
// @Summary Ask to join program
// @Tags Mentorship Programs
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Program ID"
// @Param payload body dto.ProgramJoinRequest false "Message"
// @Success 201 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /mentorship-programs/{id}/request [post]
func (h *ProgramHandler) Request(c *gin.Context) {
	var req dto.ProgramJoinRequest
	if c.Request.ContentLength != 0 && !bindJSON(c, &req, "join request") {
		return
	}
	r, err := h.service.Request(c.Request.Context(), claimsFromContext(c), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, r)
}

// Respond godoc
// @Summary Accept or reject a join request
// @Tags Mentorship Programs
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Program ID"
// @Param requestId path string true "Request ID"
// @Param payload body dto.RespondProgramRequest true "Decision"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /mentorship-programs/{id}/requests/{requestId} [put]
func (h *ProgramHandler) Respond(c *gin.Context) {
	var req dto.RespondProgramRequest
	if !bindJSON(c, &req, "decision") {
		return
	}
	p, err := h.service.Respond(c.Request.Context(), claimsFromContext(c), c.Param("id"), c.Param("requestId"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, p)
}
