package handler

import (
	"strangerchat/backend/internal/chathub"
	"strangerchat/backend/internal/logger"
	"strangerchat/backend/internal/models"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// ProfileSource is the slice of storage the handlers need to resolve an
// authenticated connection.
type ProfileSource interface {
	GetUserByID(id string) (*models.User, error)
	IsFilterEnabled(accountID string) (bool, error)
}

type Options struct {
	// GuestFilterEnabled is the filter entitlement of connections without an
	// account.
	GuestFilterEnabled bool
	SendBuffer         int
}

// Handler містить посилання на ChatHub
type Handler struct {
	Hub      *chathub.ManagerService
	Profiles ProfileSource
	Tokens   *TokenIssuer
	opts     Options
}

// NewHandler builds the HTTP handlers. profiles may be nil when no profile
// store is configured.
func NewHandler(hub *chathub.ManagerService, profiles ProfileSource, tokens *TokenIssuer, opts Options) *Handler {
	if opts.SendBuffer <= 0 {
		opts.SendBuffer = 256
	}
	return &Handler{Hub: hub, Profiles: profiles, Tokens: tokens, opts: opts}
}

// NewRouter wires the handlers into a gin engine with zap logging, panic
// recovery and permissive CORS for the browser client.
func NewRouter(h *Handler) *gin.Engine {
	r := gin.New()
	r.Use(logger.Middleware())

	corsCfg := cors.DefaultConfig()
	corsCfg.AllowAllOrigins = true
	corsCfg.AllowHeaders = append(corsCfg.AllowHeaders, "Authorization")
	r.Use(cors.New(corsCfg))

	r.GET("/anonid", h.GetAnonID)
	r.GET("/ws", h.ServeWebSocket)

	api := r.Group("/api")
	api.GET("/health", h.Health)
	api.GET("/stats", h.Stats)
	return r
}
