package realtime

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/noah-isme/alumni-connect-api/internal/models"
	appErrors "github.com/noah-isme/alumni-connect-api/pkg/errors"
	"github.com/noah-isme/alumni-connect-api/pkg/response"
)

// Authenticator verifies a bearer token and that its account may connect.
type Authenticator interface {
	AuthenticateToken(ctx context.Context, token string) (*models.JWTClaims, error)
}

// Handler upgrades authenticated HTTP requests to websocket clients.
type Handler struct {
	hub      *Hub
	auth     Authenticator
	chat     ChatGateway
	upgrader websocket.Upgrader
	opts     ClientOptions
	logger   *zap.Logger
}

func NewHandler(hub *Hub, auth Authenticator, chat ChatGateway, checkOrigin func(*http.Request) bool, opts ClientOptions, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{
		hub:  hub,
		auth: auth,
		chat: chat,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin:     checkOrigin,
		},
		opts:   opts,
		logger: logger,
	}
}

// Serve godoc
// @Summary Realtime channel
// @Description Upgrades to a websocket. Pass the access token as ?token= or a Bearer header.
// @Tags Realtime
// @Param token query string false "Access token"
// @Success 101 {string} string "Switching Protocols"
// @Failure 401 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /ws [get]
func (h *Handler) Serve(c *gin.Context) {
	token := bearerToken(c)
	if token == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrUnauthorized, "missing access token"))
		return
	}

	claims, err := h.auth.AuthenticateToken(c.Request.Context(), token)
	if err != nil {
		response.Error(c, err)
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", zap.String("user_id", claims.UserID), zap.Error(err))
		return
	}

	client := newClient(h.hub, conn, h.chat, Identity{
		UserID: claims.UserID,
		Name:   claims.FullName,
		Role:   string(claims.Role),
	}, h.opts, h.logger)
	h.hub.Register(client)

	go client.writePump()
	go client.readPump()
}

func bearerToken(c *gin.Context) string {
	if token := c.Query("token"); token != "" {
		return token
	}
	parts := strings.SplitN(c.GetHeader("Authorization"), " ", 2)
	if len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
		return strings.TrimSpace(parts[1])
	}
	return ""
}
