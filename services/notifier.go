package services

import (
	"fmt"
	"html"
	"log"
	"sync"
	"time"

	"github.com/juju/errors"

	"home-services-server/models"
	"home-services-server/websocket"
)

// Pusher delivers realtime messages to an account's open connections
type Pusher interface {
	SendToUser(accountID uint, message *websocket.Message)
}

// Notifier fans booking events out to websocket clients and email. Mail is
// sent in the background; Wait blocks until queued mail is done.
type Notifier struct {
	pusher Pusher
	mailer Mailer
	wg     sync.WaitGroup
}

// NewNotifier creates a notifier
func NewNotifier(pusher Pusher, mailer Mailer) *Notifier {
	return &Notifier{pusher: pusher, mailer: mailer}
}

// BookingCreated tells the provider about a new booking
func (n *Notifier) BookingCreated(booking *models.Booking, service *models.Service, customer *models.Account) {
	n.pusher.SendToUser(booking.ProviderID, &websocket.Message{
		Type:      websocket.TypeBookingCreated,
		Data:      booking,
		Timestamp: time.Now(),
	})

	if service == nil || service.Provider == nil {
		return
	}
	subject := fmt.Sprintf("New booking: %s", service.Name)
	body := fmt.Sprintf(`
		<p>Hello %s,</p>
		<p>%s booked <strong>%s</strong> for %s.</p>
		<p>Booking reference: #%d</p>`,
		html.EscapeString(service.Provider.Name),
		html.EscapeString(customer.Name),
		html.EscapeString(service.Name),
		booking.ScheduledDate.Format("2006-01-02 15:04"),
		booking.ID)
	n.mailAsync(service.Provider.Email, subject, body)
}

// BookingStatusChanged tells the customer their booking moved
func (n *Notifier) BookingStatusChanged(booking *models.Booking, customer *models.Account) {
	n.pusher.SendToUser(booking.UserID, &websocket.Message{
		Type: websocket.TypeBookingStatus,
		Data: map[string]interface{}{
			"bookingId": booking.ID,
			"status":    booking.Status,
		},
		Timestamp: time.Now(),
	})

	if customer == nil {
		return
	}
	subject := fmt.Sprintf("Booking #%d is now %s", booking.ID, booking.Status)
	body := fmt.Sprintf(`
		<p>Hello %s,</p>
		<p>Your booking #%d scheduled for %s is now <strong>%s</strong>.</p>`,
		html.EscapeString(customer.Name),
		booking.ID,
		booking.ScheduledDate.Format("2006-01-02 15:04"),
		booking.Status)
	n.mailAsync(customer.Email, subject, body)
}

// PaymentCompleted tells the provider a booking has been paid
func (n *Notifier) PaymentCompleted(booking *models.Booking) {
	n.pusher.SendToUser(booking.ProviderID, &websocket.Message{
		Type: websocket.TypePaymentCompleted,
		Data: map[string]interface{}{
			"bookingId":     booking.ID,
			"amount":        booking.Payment.Amount,
			"transactionId": booking.Payment.TransactionID,
		},
		Timestamp: time.Now(),
	})
}

// BookingReminder mails the customer about a booking starting soon. It runs
// synchronously so the caller can log per-booking failures.
func (n *Notifier) BookingReminder(booking *models.Booking) error {
	if booking.User == nil {
		return errors.Errorf("booking %d has no customer loaded", booking.ID)
	}
	serviceName, providerName := "your service", "your provider"
	if booking.Service != nil {
		serviceName = booking.Service.Name
	}
	if booking.Provider != nil {
		providerName = booking.Provider.Name
	}

	subject := fmt.Sprintf("Reminder: %s starts in one hour", serviceName)
	body := fmt.Sprintf(`
		<p>Dear %s,</p>
		<p>This is a reminder for your upcoming booking scheduled in one hour.</p>
		<ul>
			<li><strong>Service:</strong> %s</li>
			<li><strong>Provider:</strong> %s</li>
			<li><strong>Start Time:</strong> %s</li>
		</ul>
		<p>If you need to reschedule or cancel, contact your provider as soon as possible.</p>`,
		html.EscapeString(booking.User.Name),
		html.EscapeString(serviceName),
		html.EscapeString(providerName),
		booking.ScheduledDate.Format("2006-01-02 15:04"))
	return n.mailer.Send(booking.User.Email, subject, body)
}

// Wait blocks until background mail has been handed to the mailer
func (n *Notifier) Wait() {
	n.wg.Wait()
}

func (n *Notifier) mailAsync(to, subject, body string) {
	if to == "" {
		return
	}
	n.wg.Add(1)
	go func() {
		defer n.wg.Done()
		if err := n.mailer.Send(to, subject, body); err != nil {
			log.Printf("❌ Failed to send email to %s: %v", to, err)
		}
	}()
}
