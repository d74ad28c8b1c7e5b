package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/alumni-connect-api/internal/dto"
	"github.com/noah-isme/alumni-connect-api/internal/models"
	"github.com/noah-isme/alumni-connect-api/pkg/response"
)

type workshopService interface {
	List(ctx context.Context, query dto.WorkshopQuery) ([]models.Workshop, *models.Pagination, error)
	Get(ctx context.Context, id string) (*models.Workshop, error)
	Create(ctx context.Context, actor *models.JWTClaims, req dto.CreateWorkshopRequest) (*models.Workshop, error)
	Update(ctx context.Context, actor *models.JWTClaims, id string, req dto.UpdateWorkshopRequest) (*models.Workshop, error)
	Delete(ctx context.Context, actor *models.JWTClaims, id string) error
	Register(ctx context.Context, actor *models.JWTClaims, id string) (*models.Workshop, error)
	Unregister(ctx context.Context, actor *models.JWTClaims, id string) (*models.Workshop, error)
}

// WorkshopHandler exposes workshop scheduling and registration.
type WorkshopHandler struct {
	service workshopService
}

func NewWorkshopHandler(svc workshopService) *WorkshopHandler {
	return &WorkshopHandler{service: svc}
}

// List godoc
// @Summary List workshops
// @Tags Workshops
// @Produce json
// @Security BearerAuth
// @Param host query string false "Host ID"
// @Param upcoming query bool false "Only future workshops"
// @Param search query string false "Search term"
// @Param page query int false "Page number"
// @Param pageSize query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /workshops [get]
func (h *WorkshopHandler) List(c *gin.Context) {
	var query dto.WorkshopQuery
	if !bindQuery(c, &query) {
		return
	}
	items, pagination, err := h.service.List(c.Request.Context(), query)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, items, pagination)
}

// Get godoc
// @Summary Get workshop
// @Tags Workshops
// @Produce json
// @Security BearerAuth
// @Param id path string true "Workshop ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /workshops/{id} [get]
func (h *WorkshopHandler) Get(c *gin.Context) {
	item, err := h.service.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, item)
}

// Create godoc
// @Summary Create workshop
// @Tags Workshops
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param payload body dto.CreateWorkshopRequest true "Workshop payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /workshops [post]
func (h *WorkshopHandler) Create(c *gin.Context) {
	var req dto.CreateWorkshopRequest
	if !bindJSON(c, &req, "workshop") {
		return
	}
	item, err := h.service.Create(c.Request.Context(), claimsFromContext(c), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, item)
}

// Update godoc
// @Summary Update workshop
// @Tags Workshops
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Workshop ID"
// @Param payload body dto.UpdateWorkshopRequest true "Workshop payload"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /workshops/{id} [put]
func (h *WorkshopHandler) Update(c *gin.Context) {
	var req dto.UpdateWorkshopRequest
	if !bindJSON(c, &req, "workshop") {
		return
	}
	item, err := h.service.Update(c.Request.Context(), claimsFromContext(c), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, item)
}

// Delete godoc
// @Summary Delete workshop
// @Tags Workshops
// @Security BearerAuth
// @Param id path string true "Workshop ID"
// @Success 204 {object} response.Envelope
// @Router /workshops/{id} [delete]
func (h *WorkshopHandler) Delete(c *gin.Context) {
	if err := h.service.Delete(c.Request.Context(), claimsFromContext(c), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// Register godoc
// @Summary Register for workshop
// @Tags Workshops
// @Produce json
// @Security BearerAuth
// @Param id path string true "Workshop ID"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /workshops/{id}/register [post]
func (h *WorkshopHandler) Register(c *gin.Context) {
	item, err := h.service.Register(c.Request.Context(), claimsFromContext(c), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, item)
}

// Unregister godoc
// @Summary Cancel workshop registration
// @Tags Workshops
// @Produce json
// @Security BearerAuth
// @Param id path string true "Workshop ID"
// @Success 200 {object} response.Envelope
// @Router /workshops/{id}/register [delete]
func (h *WorkshopHandler) Unregister(c *gin.Context) {
	item, err := h.service.Unregister(c.Request.Context(), claimsFromContext(c), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, item)
}
