package routes

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/juju/errors"

	"home-services-server/middleware"
	"home-services-server/models"
	"home-services-server/store"
)

// ProviderAvailabilityRequest replaces a provider's own schedule and/or location
type ProviderAvailabilityRequest struct {
	Availability []models.DaySchedule `json:"availability" binding:"dive"`
	Location     *models.Location     `json:"location"`
}

type ProviderHandler struct {
	accounts store.Accounts
}

func NewProviderHandler(accounts store.Accounts) *ProviderHandler {
	return &ProviderHandler{accounts: accounts}
}

func (h *ProviderHandler) RegisterRoutes(router *gin.RouterGroup, authRequired, providerOnly gin.HandlerFunc) {
	router.GET("", h.listProviders)
	router.GET("/nearby", h.nearbyProviders)
	router.PUT("/availability", authRequired, providerOnly, h.updateAvailability)
}

func (h *ProviderHandler) listProviders(c *gin.Context) {
	providers, err := h.accounts.ListProviders(c.Request.Context(), store.ProviderFilter{})
	if err != nil {
		fail(c, errors.Trace(err))
		return
	}
	c.JSON(http.StatusOK, publicProviders(providers))
}

func (h *ProviderHandler) nearbyProviders(c *gin.Context) {
	near, radius, err := queryNear(c, true)
	if err != nil {
		fail(c, err)
		return
	}

	providers, err := h.accounts.ListProviders(c.Request.Context(), store.ProviderFilter{Near: near, RadiusMeters: radius})
	if err != nil {
		fail(c, errors.Trace(err))
		return
	}
	c.JSON(http.StatusOK, publicProviders(providers))
}

func (h *ProviderHandler) updateAvailability(c *gin.Context) {
	var req ProviderAvailabilityRequest
	if err := bindJSON(c, &req); err != nil {
		fail(c, err)
		return
	}
	if req.Availability == nil && req.Location == nil {
		fail(c, errors.BadRequestf("availability or location is required"))
		return
	}
	if err := models.ValidateSchedule(req.Availability); err != nil {
		fail(c, err)
		return
	}

	account := *middleware.CurrentAccount(c)
	if req.Availability != nil {
		account.Availability = req.Availability
	}
	if req.Location != nil {
		account.Location = req.Location
	}
	if err := h.accounts.SaveAccount(c.Request.Context(), &account); err != nil {
		fail(c, errors.Trace(err))
		return
	}
	c.JSON(http.StatusOK, &account)
}

// providerProfile is the directory entry for a provider
type providerProfile struct {
	ID           uint                 `json:"id"`
	Name         string               `json:"name"`
	Email        string               `json:"email"`
	Phone        string               `json:"phone"`
	Availability []models.DaySchedule `json:"availability,omitempty"`
	Location     *models.Location     `json:"location,omitempty"`
	Services     []models.Service     `json:"services"`
}

func publicProviders(accounts []models.Account) []providerProfile {
	profiles := make([]providerProfile, 0, len(accounts))
	for _, a := range accounts {
		profiles = append(profiles, providerProfile{
			ID:           a.ID,
			Name:         a.Name,
			Email:        a.Email,
			Phone:        a.Phone,
			Availability: a.Availability,
			Location:     a.Location,
			Services:     nonNil(a.Services),
		})
	}
	return profiles
}
