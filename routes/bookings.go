package routes

import (
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/juju/errors"

	"home-services-server/cache"
	"home-services-server/middleware"
	"home-services-server/models"
	"home-services-server/services"
	"home-services-server/store"
)

// CreateBookingRequest is the body of POST /bookings. ProviderID is optional
// and must match the service owner when sent.
type CreateBookingRequest struct {
	ServiceID     uint             `json:"serviceId" binding:"required"`
	ProviderID    uint             `json:"providerId"`
	ScheduledDate time.Time        `json:"scheduledDate" binding:"required"`
	Location      *models.Location `json:"location"`
}

// UpdateStatusRequest carries the new booking status
type UpdateStatusRequest struct {
	Status models.BookingStatus `json:"status" binding:"required"`
}

// ReviewRequest rates a completed booking
type ReviewRequest struct {
	Rating  int    `json:"rating" binding:"required,min=1,max=5"`
	Comment string `json:"comment" binding:"max=2000"`
}

// ReviewResponse returns the stored review with the service's new rating
type ReviewResponse struct {
	Review *models.Review `json:"review"`
	Rating models.Rating  `json:"rating"`
}

type BookingHandler struct {
	store    store.Store
	notifier *services.Notifier
	cache    cache.ServiceCache
}

func NewBookingHandler(s store.Store, notifier *services.Notifier, serviceCache cache.ServiceCache) *BookingHandler {
	return &BookingHandler{store: s, notifier: notifier, cache: serviceCache}
}

// RegisterRoutes expects router to already require authentication
func (h *BookingHandler) RegisterRoutes(router *gin.RouterGroup) {
	router.POST("", h.createBooking)
	router.GET("/user", h.userBookings)
	router.GET("/provider", middleware.RequireRoles(models.RoleProvider), h.providerBookings)
	router.PUT("/:id/status", middleware.RequireRoles(models.RoleProvider, models.RoleAdmin), h.updateStatus)
	router.POST("/:id/review", h.reviewBooking)
}

func (h *BookingHandler) createBooking(c *gin.Context) {
	var req CreateBookingRequest
	if err := bindJSON(c, &req); err != nil {
		fail(c, err)
		return
	}

	ctx := c.Request.Context()
	service, err := h.store.ServiceByID(ctx, req.ServiceID)
	if err != nil {
		fail(c, errors.Trace(err))
		return
	}
	if req.ProviderID != 0 && req.ProviderID != service.ProviderID {
		fail(c, errors.BadRequestf("provider %d does not offer service %d", req.ProviderID, service.ID))
		return
	}

	location := req.Location
	if location == nil {
		snapshot := service.Location
		location = &snapshot
	}

	customer := middleware.CurrentAccount(c)
	booking := &models.Booking{
		UserID:        customer.ID,
		ProviderID:    service.ProviderID,
		ServiceID:     service.ID,
		ScheduledDate: req.ScheduledDate,
		Status:        models.BookingStatusPending,
		Location:      location,
		Payment: models.Payment{
			Amount: service.Price,
			Status: models.PaymentStatusPending,
		},
	}
	if err := h.store.CreateBooking(ctx, booking); err != nil {
		fail(c, errors.Trace(err))
		return
	}

	log.Printf("📅 Booking %d created by user %d for service %d", booking.ID, customer.ID, service.ID)
	h.notifier.BookingCreated(booking, service, customer)
	c.JSON(http.StatusCreated, booking)
}

func (h *BookingHandler) userBookings(c *gin.Context) {
	account := middleware.CurrentAccount(c)
	bookings, err := h.store.BookingsForUser(c.Request.Context(), account.ID)
	if err != nil {
		fail(c, errors.Trace(err))
		return
	}
	c.JSON(http.StatusOK, nonNil(bookings))
}

func (h *BookingHandler) providerBookings(c *gin.Context) {
	account := middleware.CurrentAccount(c)
	bookings, err := h.store.BookingsForProvider(c.Request.Context(), account.ID)
	if err != nil {
		fail(c, errors.Trace(err))
		return
	}
	c.JSON(http.StatusOK, nonNil(bookings))
}

// updateStatus moves a booking to any status in the lifecycle enum. Providers
// only see their own bookings; admins see all.
func (h *BookingHandler) updateStatus(c *gin.Context) {
	id, err := paramID(c, "id")
	if err != nil {
		fail(c, err)
		return
	}
	var req UpdateStatusRequest
	if err := bindJSON(c, &req); err != nil {
		fail(c, err)
		return
	}
	if !req.Status.IsValid() {
		fail(c, errors.NotValidf("booking status %q", req.Status))
		return
	}

	ctx := c.Request.Context()
	caller := middleware.CurrentAccount(c)
	existing, err := h.store.BookingByID(ctx, id)
	if err != nil {
		fail(c, errors.Trace(err))
		return
	}
	if !caller.IsAdmin() && existing.ProviderID != caller.ID {
		fail(c, errors.NotFoundf("booking"))
		return
	}

	booking, err := h.store.UpdateBookingStatus(ctx, id, req.Status)
	if err != nil {
		fail(c, errors.Trace(err))
		return
	}

	log.Printf("🔄 Booking %d is now %s (by account %d)", booking.ID, booking.Status, caller.ID)
	customer, err := h.store.AccountByID(ctx, booking.UserID)
	if err != nil {
		log.Printf("⚠️ Could not load customer %d for booking %d: %v", booking.UserID, booking.ID, err)
	}
	h.notifier.BookingStatusChanged(booking, customer)
	c.JSON(http.StatusOK, booking)
}

func (h *BookingHandler) reviewBooking(c *gin.Context) {
	id, err := paramID(c, "id")
	if err != nil {
		fail(c, err)
		return
	}
	var req ReviewRequest
	if err := bindJSON(c, &req); err != nil {
		fail(c, err)
		return
	}

	ctx := c.Request.Context()
	caller := middleware.CurrentAccount(c)
	booking, err := h.store.BookingByID(ctx, id)
	if err != nil {
		fail(c, errors.Trace(err))
		return
	}
	if booking.UserID != caller.ID {
		fail(c, errors.NotFoundf("booking"))
		return
	}
	if booking.Status != models.BookingStatusCompleted {
		fail(c, errors.BadRequestf("only completed bookings can be reviewed"))
		return
	}

	review := &models.Review{
		BookingID: booking.ID,
		ServiceID: booking.ServiceID,
		UserID:    caller.ID,
		Rating:    req.Rating,
		Comment:   req.Comment,
	}
	service, err := h.store.AddReview(ctx, review)
	if err != nil {
		fail(c, errors.Trace(err))
		return
	}
	h.cache.InvalidateService(ctx, service.ID)

	c.JSON(http.StatusCreated, ReviewResponse{Review: review, Rating: service.Rating})
}
