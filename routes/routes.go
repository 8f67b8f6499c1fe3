package routes

import (
	"context"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"home-services-server/cache"
	"home-services-server/config"
	"home-services-server/media"
	"home-services-server/middleware"
	"home-services-server/models"
	"home-services-server/payment"
	"home-services-server/services"
	"home-services-server/store"
	"home-services-server/websocket"
)

const maxRequestBody = 10 << 20

// Pinger is implemented by stores backed by a server
type Pinger interface {
	Ping(ctx context.Context) error
}

// Dependencies is everything the HTTP layer needs
type Dependencies struct {
	// Store is also pinged by /health when it implements Pinger.
	Store    store.Store
	Tokens   *services.JWTService
	Notifier *services.Notifier
	Cache    cache.ServiceCache
	Uploader media.Uploader
	Gateway  payment.Gateway
	Hub      *websocket.Hub
	Limiter  *middleware.RateLimiter
	Config   *config.Config
}

// NewRouter builds the gin engine with all API routes registered
func NewRouter(deps Dependencies) *gin.Engine {
	cfg := deps.Config
	router := gin.New()
	router.RedirectTrailingSlash = false
	router.RedirectFixedPath = false

	router.Use(middleware.AccessLog())
	router.Use(gin.Recovery())
	router.Use(middleware.RequestIDMiddleware())
	router.Use(middleware.AuditLogMiddleware())
	router.Use(middleware.ErrorHandler(cfg.IsDevelopment()))
	router.Use(middleware.Recovery())
	router.Use(middleware.SecurityHeadersMiddleware())
	router.Use(middleware.CORS(cfg.Server.AllowedOrigins))
	router.Use(middleware.InputValidationMiddleware(maxRequestBody))
	router.Use(middleware.RateLimitMiddleware(deps.Limiter, cfg.RateLimit.PerMinute, cfg.RateLimit.Burst))
	router.NoRoute(middleware.NoRoute)

	// Health check
	router.GET("/health", func(c *gin.Context) {
		if pinger, ok := deps.Store.(Pinger); ok {
			if err := pinger.Ping(c.Request.Context()); err != nil {
				log.Printf("⚠️ Health check: %v", err)
				c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable", "database": "unreachable"})
				return
			}
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	cacheLayer := deps.Cache
	if cacheLayer == nil {
		cacheLayer = cache.Noop{}
	}
	authRequired := middleware.AuthMiddleware(deps.Tokens, deps.Store)
	providerOnly := middleware.RequireRoles(models.RoleProvider)

	api := router.Group("/api")
	{
		auth := api.Group("/auth", middleware.AuthRateLimitMiddleware(deps.Limiter, cfg.RateLimit.AuthPerMinute))
		NewAuthHandler(deps.Store, deps.Tokens).RegisterRoutes(auth)

		users := api.Group("/users", authRequired)
		NewUserHandler(deps.Store, cacheLayer).RegisterRoutes(users)

		servicesGroup := api.Group("/services")
		NewServiceHandler(deps.Store, cacheLayer, deps.Uploader).RegisterRoutes(servicesGroup, authRequired, providerOnly)

		providers := api.Group("/providers")
		NewProviderHandler(deps.Store).RegisterRoutes(providers, authRequired, providerOnly)

		bookings := api.Group("/bookings", authRequired)
		NewBookingHandler(deps.Store, deps.Notifier, cacheLayer).RegisterRoutes(bookings)
		NewPaymentHandler(deps.Store, deps.Gateway, deps.Notifier, cfg.Payment).RegisterRoutes(bookings)

		ws := api.Group("/ws", middleware.WebSocketAuthMiddleware(deps.Tokens, deps.Store))
		NewWebSocketHandler(deps.Hub, cfg.Server.AllowedOrigins).RegisterRoutes(ws)
	}

	return router
}
