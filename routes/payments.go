package routes

import (
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/juju/errors"

	"home-services-server/config"
	"home-services-server/middleware"
	"home-services-server/models"
	"home-services-server/payment"
	"home-services-server/services"
	"home-services-server/store"
)

// OrderResponse is what a client needs to open the gateway checkout
type OrderResponse struct {
	OrderID  string `json:"orderId"`
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
	KeyID    string `json:"keyId"`
	Receipt  string `json:"receipt"`
}

// VerifyPaymentRequest is the gateway callback forwarded by the client
type VerifyPaymentRequest struct {
	OrderID   string `json:"orderId" binding:"required"`
	PaymentID string `json:"paymentId" binding:"required"`
	Signature string `json:"signature" binding:"required"`
}

type PaymentHandler struct {
	bookings store.Bookings
	gateway  payment.Gateway
	notifier *services.Notifier
	cfg      config.PaymentConfig
}

func NewPaymentHandler(bookings store.Bookings, gateway payment.Gateway, notifier *services.Notifier, cfg config.PaymentConfig) *PaymentHandler {
	if gateway == nil {
		gateway = payment.DisabledGateway{}
	}
	return &PaymentHandler{bookings: bookings, gateway: gateway, notifier: notifier, cfg: cfg}
}

// RegisterRoutes expects router to already require authentication
func (h *PaymentHandler) RegisterRoutes(router *gin.RouterGroup) {
	router.POST("/:id/payment", h.createOrder)
	router.POST("/:id/payment/verify", h.verifyPayment)
}

func (h *PaymentHandler) createOrder(c *gin.Context) {
	booking, ok := h.customerBooking(c)
	if !ok {
		return
	}
	if booking.Payment.Status == models.PaymentStatusCompleted {
		fail(c, errors.BadRequestf("booking %d is already paid", booking.ID))
		return
	}

	ctx := c.Request.Context()
	amount := payment.ToSubunits(booking.Payment.Amount)
	order, err := h.gateway.CreateOrder(ctx, amount, h.cfg.Currency, uuid.NewString())
	if err != nil {
		log.Printf("❌ Creating payment order for booking %d failed: %v", booking.ID, err)
		fail(c, errors.Annotatef(err, "creating payment order for booking %d", booking.ID))
		return
	}

	record := booking.Payment
	record.OrderID = order.ID
	record.Status = models.PaymentStatusPending
	if _, err := h.bookings.UpdateBookingPayment(ctx, booking.ID, record); err != nil {
		fail(c, errors.Trace(err))
		return
	}

	log.Printf("💳 Order %s (receipt %s) created for booking %d", order.ID, order.Receipt, booking.ID)
	c.JSON(http.StatusOK, OrderResponse{
		OrderID:  order.ID,
		Amount:   order.Amount,
		Currency: order.Currency,
		KeyID:    h.cfg.KeyID,
		Receipt:  order.Receipt,
	})
}

func (h *PaymentHandler) verifyPayment(c *gin.Context) {
	booking, ok := h.customerBooking(c)
	if !ok {
		return
	}
	var req VerifyPaymentRequest
	if err := bindJSON(c, &req); err != nil {
		fail(c, err)
		return
	}
	if booking.Payment.OrderID == "" || req.OrderID != booking.Payment.OrderID {
		fail(c, errors.BadRequestf("order %q does not belong to booking %d", req.OrderID, booking.ID))
		return
	}

	ctx := c.Request.Context()
	record := booking.Payment
	if !payment.VerifySignature(req.OrderID, req.PaymentID, req.Signature, h.cfg.KeySecret) {
		record.Status = models.PaymentStatusFailed
		if _, err := h.bookings.UpdateBookingPayment(ctx, booking.ID, record); err != nil {
			fail(c, errors.Trace(err))
			return
		}
		log.Printf("⚠️ Payment signature mismatch for booking %d", booking.ID)
		fail(c, errors.BadRequestf("invalid payment signature"))
		return
	}

	record.Status = models.PaymentStatusCompleted
	record.TransactionID = req.PaymentID
	updated, err := h.bookings.UpdateBookingPayment(ctx, booking.ID, record)
	if err != nil {
		fail(c, errors.Trace(err))
		return
	}

	log.Printf("💰 Payment %s completed for booking %d", req.PaymentID, booking.ID)
	h.notifier.PaymentCompleted(updated)
	c.JSON(http.StatusOK, updated)
}

// customerBooking loads the :id booking when the caller is its customer
func (h *PaymentHandler) customerBooking(c *gin.Context) (*models.Booking, bool) {
	id, err := paramID(c, "id")
	if err != nil {
		fail(c, err)
		return nil, false
	}

	booking, err := h.bookings.BookingByID(c.Request.Context(), id)
	if err != nil {
		fail(c, errors.Trace(err))
		return nil, false
	}
	if booking.UserID != middleware.CurrentAccount(c).ID {
		fail(c, errors.NotFoundf("booking"))
		return nil, false
	}
	return booking, true
}
