package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/alumni-connect-api/internal/dto"
	"github.com/noah-isme/alumni-connect-api/internal/models"
	"github.com/noah-isme/alumni-connect-api/pkg/response"
)

type chatService interface {
	List(ctx context.Context, actor *models.JWTClaims, page models.PageRequest) ([]models.Chat, *models.Pagination, error)
	Start(ctx context.Context, actor *models.JWTClaims, req dto.StartChatRequest) (*models.Chat, error)
	Messages(ctx context.Context, actor *models.JWTClaims, id string, page models.PageRequest) (*models.ChatMessagePage, *models.Pagination, error)
	Send(ctx context.Context, actor *models.JWTClaims, id string, req dto.SendMessageRequest) (*dto.ChatMessageView, error)
	Read(ctx context.Context, actor *models.JWTClaims, id string) (*models.Chat, error)
}

// ChatHandler exposes the REST side of direct messaging.
type ChatHandler struct {
	service chatService
}

func NewChatHandler(svc chatService) *ChatHandler {
	return &ChatHandler{service: svc}
}

// List godoc
// @Summary List chats
// @Tags Chats
// @Produce json
// @Security BearerAuth
// @Param page query int false "Page number"
// @Param pageSize query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /chats [get]
func (h *ChatHandler) List(c *gin.Context) {
	page, ok := pageFromQuery(c)
	if !ok {
		return
	}
	chats, pagination, err := h.service.List(c.Request.Context(), claimsFromContext(c), page)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, chats, pagination)
}

// Start godoc
// @Summary Open chat
// @Description Find or create the chat with a counterpart. Requires an accepted mentorship unless the caller is an administrator.
// @Tags Chats
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param payload body dto.StartChatRequest true "Counterpart"
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /chats [post]
func (h *ChatHandler) Start(c *gin.Context) {
	var req dto.StartChatRequest
	if !bindJSON(c, &req, "chat") {
		return
	}
	chat, err := h.service.Start(c.Request.Context(), claimsFromContext(c), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, chat)
}

// Messages godoc
// @Summary Chat messages
// @Tags Chats
// @Produce json
// @Security BearerAuth
// @Param id path string true "Chat ID"
// @Param page query int false "Page number"
// @Param pageSize query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /chats/{id}/messages [get]
func (h *ChatHandler) Messages(c *gin.Context) {
	page, ok := pageFromQuery(c)
	if !ok {
		return
	}
	messages, pagination, err := h.service.Messages(c.Request.Context(), claimsFromContext(c), c.Param("id"), page)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, messages, pagination)
}

// Send godoc
// @Summary Send message
// @Tags Chats
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Chat ID"
// @Param payload body dto.SendMessageRequest true "Message"
// @Success 201 {object} response.Envelope
// @Router /chats/{id}/messages [post]
func (h *ChatHandler) Send(c *gin.Context) {
	var req dto.SendMessageRequest
	if !bindJSON(c, &req, "message") {
		return
	}
	msg, err := h.service.Send(c.Request.Context(), claimsFromContext(c), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, msg)
}

// Read godoc
// @Summary Mark chat read
// @Tags Chats
// @Produce json
// @Security BearerAuth
// @Param id path string true "Chat ID"
// @Success 200 {object} response.Envelope
// @Router /chats/{id}/read [put]
func (h *ChatHandler) Read(c *gin.Context) {
	chat, err := h.service.Read(c.Request.Context(), claimsFromContext(c), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, chat)
}
