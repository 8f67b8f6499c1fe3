package routes

import (
	"context"
	"log"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/juju/errors"

	"home-services-server/cache"
	"home-services-server/middleware"
	"home-services-server/store"
)

// UpdateProfileRequest holds the editable profile fields
type UpdateProfileRequest struct {
	Name  *string `json:"name"`
	Phone *string `json:"phone"`
}

type UserHandler struct {
	accounts store.Accounts
	services store.Services
	cache    cache.ServiceCache
}

// NewUserHandler needs the services too: cached service details embed the
// provider's public profile.
func NewUserHandler(s store.Store, serviceCache cache.ServiceCache) *UserHandler {
	return &UserHandler{accounts: s, services: s, cache: serviceCache}
}

func (h *UserHandler) RegisterRoutes(router *gin.RouterGroup) {
	router.GET("/me", h.getMe)
	router.PUT("/me", h.updateMe)
}

func (h *UserHandler) getMe(c *gin.Context) {
	c.JSON(http.StatusOK, middleware.CurrentAccount(c))
}

func (h *UserHandler) updateMe(c *gin.Context) {
	var req UpdateProfileRequest
	if err := bindJSON(c, &req); err != nil {
		fail(c, err)
		return
	}

	account := *middleware.CurrentAccount(c)
	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			fail(c, errors.NotValidf("empty name"))
			return
		}
		account.Name = name
	}
	if req.Phone != nil {
		phone := strings.TrimSpace(*req.Phone)
		if phone == "" {
			fail(c, errors.NotValidf("empty phone"))
			return
		}
		account.Phone = phone
	}

	ctx := c.Request.Context()
	if err := h.accounts.SaveAccount(ctx, &account); err != nil {
		fail(c, errors.Trace(err))
		return
	}
	if account.IsProvider() {
		h.invalidateServicesOf(ctx, account.ID)
	}
	c.JSON(http.StatusOK, &account)
}

func (h *UserHandler) invalidateServicesOf(ctx context.Context, providerID uint) {
	services, err := h.services.ProviderServices(ctx, providerID)
	if err != nil {
		log.Printf("⚠️ Could not list services of provider %d for cache invalidation: %v", providerID, err)
		return
	}
	for _, service := range services {
		h.cache.InvalidateService(ctx, service.ID)
	}
}
