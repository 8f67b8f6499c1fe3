package routes

import (
	"fmt"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/juju/errors"

	"home-services-server/cache"
	"home-services-server/media"
	"home-services-server/middleware"
	"home-services-server/models"
	"home-services-server/store"
)

// CreateServiceRequest is the body of POST /services. Availability carries
// the weekly schedule; new services are always listed.
type CreateServiceRequest struct {
	Name          string                 `json:"name" binding:"required"`
	Category      models.ServiceCategory `json:"category" binding:"required"`
	Description   string                 `json:"description" binding:"required"`
	Price         *float64               `json:"price" binding:"required,gte=0"`
	Duration      int                    `json:"duration" binding:"required,gt=0"`
	Location      *models.Location       `json:"location" binding:"required"`
	Availability  []models.DaySchedule   `json:"availability" binding:"dive"`
	Tags          []string               `json:"tags"`
	Experience    int                    `json:"experience" binding:"gte=0"`
	Certification string                 `json:"certification"`
}

// AvailabilityRequest updates listing state and/or schedule. Absent fields
// keep their current value.
type AvailabilityRequest struct {
	IsAvailable *bool                `json:"isAvailable"`
	Schedule    []models.DaySchedule `json:"schedule" binding:"dive"`
}

// UpdateServiceRequest lists the fields a provider may change
type UpdateServiceRequest struct {
	Name          *string                 `json:"name"`
	Description   *string                 `json:"description"`
	Price         *float64                `json:"price" binding:"omitempty,gte=0"`
	Duration      *int                    `json:"duration" binding:"omitempty,gt=0"`
	Availability  *AvailabilityRequest    `json:"availability"`
	Location      *models.Location        `json:"location"`
	Certification *string                 `json:"certification"`
	Category      *models.ServiceCategory `json:"category"`
	Tags          []string                `json:"tags"`
	Experience    *int                    `json:"experience" binding:"omitempty,gte=0"`
}

type ServiceHandler struct {
	services store.Services
	cache    cache.ServiceCache
	uploader media.Uploader
}

func NewServiceHandler(services store.Services, serviceCache cache.ServiceCache, uploader media.Uploader) *ServiceHandler {
	if uploader == nil {
		uploader = media.Disabled{}
	}
	return &ServiceHandler{services: services, cache: serviceCache, uploader: uploader}
}

// RegisterRoutes registers the catalog. Reads are public; writes need a
// provider who owns the service.
func (h *ServiceHandler) RegisterRoutes(router *gin.RouterGroup, authRequired, providerOnly gin.HandlerFunc) {
	router.GET("", h.listServices)
	router.GET("/:id", h.getService)

	provider := router.Group("", authRequired, providerOnly)
	{
		provider.POST("", h.createService)
		provider.GET("/provider/services", h.providerServices)
		provider.PUT("/:id", h.updateService)
		provider.DELETE("/:id", h.deleteService)
		provider.PATCH("/:id/availability", h.updateAvailability)
		provider.PUT("/:id/image", h.uploadImage)
	}
}

func (h *ServiceHandler) listServices(c *gin.Context) {
	filter := store.ServiceFilter{Category: models.ServiceCategory(c.Query("category"))}
	if filter.Category != "" && !filter.Category.IsValid() {
		fail(c, errors.NotValidf("category %q", filter.Category))
		return
	}

	var err error
	if filter.MaxPrice, err = queryFloat(c, "maxPrice"); err != nil {
		fail(c, err)
		return
	}
	if filter.MinRating, err = queryFloat(c, "minRating"); err != nil {
		fail(c, err)
		return
	}
	if filter.Near, filter.RadiusMeters, err = queryNear(c, false); err != nil {
		fail(c, err)
		return
	}

	services, err := h.services.ListServices(c.Request.Context(), filter)
	if err != nil {
		fail(c, errors.Trace(err))
		return
	}
	for i := range services {
		services[i].Availability.Schedule = nil
	}
	c.JSON(http.StatusOK, nonNil(services))
}

func (h *ServiceHandler) getService(c *gin.Context) {
	id, err := paramID(c, "id")
	if err != nil {
		fail(c, err)
		return
	}

	ctx := c.Request.Context()
	if cached, ok := h.cache.GetService(ctx, id); ok {
		c.JSON(http.StatusOK, cached)
		return
	}

	service, err := h.services.ServiceByID(ctx, id)
	if err != nil {
		fail(c, errors.Trace(err))
		return
	}
	h.cache.SetService(ctx, service)
	c.JSON(http.StatusOK, service)
}

func (h *ServiceHandler) createService(c *gin.Context) {
	var req CreateServiceRequest
	if err := bindJSON(c, &req); err != nil {
		fail(c, err)
		return
	}
	if !req.Category.IsValid() {
		fail(c, errors.NotValidf("category %q", req.Category))
		return
	}
	if err := models.ValidateSchedule(req.Availability); err != nil {
		fail(c, err)
		return
	}

	provider := middleware.CurrentAccount(c)
	service := &models.Service{
		Name:          req.Name,
		Category:      req.Category,
		Description:   req.Description,
		Price:         *req.Price,
		Duration:      req.Duration,
		ProviderID:    provider.ID,
		Location:      *req.Location,
		Tags:          req.Tags,
		Experience:    req.Experience,
		Certification: req.Certification,
		Availability: models.Availability{
			IsAvailable: true,
			Schedule:    req.Availability,
		},
	}
	if err := h.services.CreateService(c.Request.Context(), service); err != nil {
		fail(c, errors.Trace(err))
		return
	}

	log.Printf("✅ Provider %d created service %d (%s)", provider.ID, service.ID, service.Category)
	c.JSON(http.StatusCreated, service)
}

func (h *ServiceHandler) providerServices(c *gin.Context) {
	provider := middleware.CurrentAccount(c)
	services, err := h.services.ProviderServices(c.Request.Context(), provider.ID)
	if err != nil {
		fail(c, errors.Trace(err))
		return
	}
	c.JSON(http.StatusOK, nonNil(services))
}

func (h *ServiceHandler) updateService(c *gin.Context) {
	service, ok := h.ownedService(c)
	if !ok {
		return
	}

	var req UpdateServiceRequest
	if err := bindJSON(c, &req); err != nil {
		fail(c, err)
		return
	}
	if err := applyServiceUpdate(service, &req); err != nil {
		fail(c, err)
		return
	}

	h.save(c, service)
}

// applyServiceUpdate copies the present fields of req onto service
func applyServiceUpdate(service *models.Service, req *UpdateServiceRequest) error {
	if req.Name != nil {
		service.Name = *req.Name
	}
	if req.Description != nil {
		service.Description = *req.Description
	}
	if req.Price != nil {
		service.Price = *req.Price
	}
	if req.Duration != nil {
		service.Duration = *req.Duration
	}
	if req.Availability != nil {
		if err := applyAvailability(service, req.Availability); err != nil {
			return err
		}
	}
	if req.Location != nil {
		service.Location = *req.Location
	}
	if req.Certification != nil {
		service.Certification = *req.Certification
	}
	if req.Category != nil {
		if !req.Category.IsValid() {
			return errors.NotValidf("category %q", *req.Category)
		}
		service.Category = *req.Category
	}
	if req.Tags != nil {
		service.Tags = req.Tags
	}
	if req.Experience != nil {
		service.Experience = *req.Experience
	}
	return nil
}

func applyAvailability(service *models.Service, req *AvailabilityRequest) error {
	if req.IsAvailable != nil {
		service.Availability.IsAvailable = *req.IsAvailable
	}
	if req.Schedule != nil {
		if err := models.ValidateSchedule(req.Schedule); err != nil {
			return err
		}
		service.Availability.Schedule = req.Schedule
	}
	return nil
}

func (h *ServiceHandler) deleteService(c *gin.Context) {
	id, err := paramID(c, "id")
	if err != nil {
		fail(c, err)
		return
	}

	provider := middleware.CurrentAccount(c)
	if err := h.services.DeleteService(c.Request.Context(), id, provider.ID); err != nil {
		fail(c, errors.Trace(err))
		return
	}
	h.cache.InvalidateService(c.Request.Context(), id)

	log.Printf("🗑️ Provider %d deleted service %d", provider.ID, id)
	c.JSON(http.StatusOK, gin.H{"message": "Service deleted successfully"})
}

func (h *ServiceHandler) updateAvailability(c *gin.Context) {
	service, ok := h.ownedService(c)
	if !ok {
		return
	}

	var req AvailabilityRequest
	if err := bindJSON(c, &req); err != nil {
		fail(c, err)
		return
	}
	if err := applyAvailability(service, &req); err != nil {
		fail(c, err)
		return
	}

	h.save(c, service)
}

func (h *ServiceHandler) uploadImage(c *gin.Context) {
	service, ok := h.ownedService(c)
	if !ok {
		return
	}

	header, err := c.FormFile("image")
	if err != nil {
		if bodyTooLarge(err) {
			fail(c, err)
			return
		}
		fail(c, errors.BadRequestf("image file is required"))
		return
	}
	if err := media.ValidateImage(header); err != nil {
		fail(c, err)
		return
	}
	file, err := header.Open()
	if err != nil {
		fail(c, errors.Annotate(err, "opening uploaded image"))
		return
	}
	defer file.Close()

	url, err := h.uploader.UploadImage(c.Request.Context(), file, media.ServiceFolder(service.ID), fmt.Sprintf("service-%d", service.ID))
	if err != nil {
		log.Printf("❌ Image upload for service %d failed: %v", service.ID, err)
		fail(c, errors.Trace(err))
		return
	}
	service.Image = url

	h.save(c, service)
}

// ownedService loads the :id service for the calling provider. Foreign and
// missing services both end the request with the same 404.
func (h *ServiceHandler) ownedService(c *gin.Context) (*models.Service, bool) {
	id, err := paramID(c, "id")
	if err != nil {
		fail(c, err)
		return nil, false
	}

	provider := middleware.CurrentAccount(c)
	service, err := h.services.OwnedService(c.Request.Context(), id, provider.ID)
	if err != nil {
		fail(c, errors.Trace(err))
		return nil, false
	}
	return service, true
}

func (h *ServiceHandler) save(c *gin.Context, service *models.Service) {
	ctx := c.Request.Context()
	if err := h.services.SaveService(ctx, service); err != nil {
		fail(c, errors.Trace(err))
		return
	}
	h.cache.InvalidateService(ctx, service.ID)
	c.JSON(http.StatusOK, service)
}

// nonNil keeps empty listings encoding as [] rather than null
func nonNil[T any](items []T) []T {
	if items == nil {
		return []T{}
	}
	return items
}
