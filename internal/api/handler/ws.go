package handler

import (
	"errors"
	"net/http"
	"strings"

	"strangerchat/backend/internal/chathub"
	"strangerchat/backend/internal/models"
	"strangerchat/backend/internal/storage"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// CORS is handled by the router; any origin may open a socket.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// bearerToken reads the token from the Authorization header or, for browsers
// that cannot set headers on a WebSocket, the token query parameter.
func bearerToken(c *gin.Context) string {
	if auth := c.GetHeader("Authorization"); strings.HasPrefix(auth, "Bearer ") {
		return strings.TrimPrefix(auth, "Bearer ")
	}
	return c.Query("token")
}

// resolveIdentity turns the request's token into a hub identity. Requests
// without a token connect as a fresh guest.
func (h *Handler) resolveIdentity(c *gin.Context) (chathub.Identity, bool) {
	raw := bearerToken(c)
	if raw == "" {
		return chathub.Identity{
			ParticipantID: uuid.New().String(),
			FilterEnabled: h.opts.GuestFilterEnabled,
		}, true
	}

	claims, err := h.Tokens.Parse(raw)
	if err != nil {
		zap.L().Debug("rejecting websocket token", zap.Error(err))
		return chathub.Identity{}, false
	}

	ident := chathub.Identity{
		ParticipantID: claims.AnonID,
		AccountID:     claims.AccountID,
		FilterEnabled: h.opts.GuestFilterEnabled,
	}
	if claims.AccountID == "" || h.Profiles == nil {
		return ident, true
	}

	user, err := h.Profiles.GetUserByID(claims.AccountID)
	if err != nil {
		zap.L().Warn("profile lookup failed", zap.String("account_id", claims.AccountID), zap.Error(err))
	}
	if user != nil {
		ident.DisplayName = user.DisplayName
		ident.Attribute = user.Attribute()
	}

	enabled, err := h.Profiles.IsFilterEnabled(claims.AccountID)
	switch {
	case errors.Is(err, storage.ErrUnavailable):
		// no entitlement store: accounts get what guests get
	case err != nil:
		zap.L().Warn("entitlement check failed", zap.String("account_id", claims.AccountID), zap.Error(err))
		ident.FilterEnabled = false
	default:
		ident.FilterEnabled = enabled
	}
	return ident, true
}

// ServeWebSocket оновлює HTTP-з'єднання до WebSocket
func (h *Handler) ServeWebSocket(c *gin.Context) {
	ident, ok := h.resolveIdentity(c)
	if !ok {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid token or expired"})
		return
	}
	if ident.Attribute == "" {
		ident.Attribute = models.AttributeUndisclosed
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		// the upgrader has already replied with an HTTP error
		zap.L().Debug("websocket upgrade failed", zap.Error(err))
		return
	}

	client := chathub.NewWebSocketClient(h.Hub, conn, ident, h.opts.SendBuffer)
	h.Hub.RegisterCh <- client
	client.Run()
}
