package services

import (
	"sync"
	"testing"
	"time"

	qt "github.com/frankban/quicktest"

	"home-services-server/models"
	"home-services-server/websocket"
)

type pushed struct {
	to      uint
	message *websocket.Message
}

type recordingPusher struct {
	mu   sync.Mutex
	sent []pushed
}

func (p *recordingPusher) SendToUser(accountID uint, message *websocket.Message) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.sent = append(p.sent, pushed{accountID, message})
}

type sentMail struct{ to, subject, body string }

type recordingMailer struct {
	mu   sync.Mutex
	sent []sentMail
}

func (m *recordingMailer) Send(to, subject, body string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, sentMail{to, subject, body})
	return nil
}

func TestBookingCreatedNotifiesProvider(t *testing.T) {
	c := qt.New(t)
	pusher, mailer := &recordingPusher{}, &recordingMailer{}
	n := NewNotifier(pusher, mailer)

	service := &models.Service{Name: "Deep clean", Provider: &models.Account{ID: 2, Name: "Pat", Email: "pat@example.com"}}
	booking := &models.Booking{ID: 11, UserID: 1, ProviderID: 2, ScheduledDate: time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)}
	n.BookingCreated(booking, service, &models.Account{ID: 1, Name: "<Ann>"})
	n.Wait()

	c.Assert(pusher.sent, qt.HasLen, 1)
	c.Assert(pusher.sent[0].to, qt.Equals, uint(2))
	c.Assert(pusher.sent[0].message.Type, qt.Equals, websocket.TypeBookingCreated)

	c.Assert(mailer.sent, qt.HasLen, 1)
	c.Assert(mailer.sent[0].to, qt.Equals, "pat@example.com")
	c.Assert(mailer.sent[0].subject, qt.Equals, "New booking: Deep clean")
	c.Assert(mailer.sent[0].body, qt.Contains, "&lt;Ann&gt;")
}

func TestBookingStatusChangedNotifiesCustomer(t *testing.T) {
	c := qt.New(t)
	pusher, mailer := &recordingPusher{}, &recordingMailer{}
	n := NewNotifier(pusher, mailer)

	booking := &models.Booking{ID: 3, UserID: 1, ProviderID: 2, Status: models.BookingStatusConfirmed}
	n.BookingStatusChanged(booking, &models.Account{ID: 1, Name: "Ann", Email: "ann@example.com"})
	n.Wait()

	c.Assert(pusher.sent, qt.HasLen, 1)
	c.Assert(pusher.sent[0].to, qt.Equals, uint(1))
	c.Assert(pusher.sent[0].message.Type, qt.Equals, websocket.TypeBookingStatus)
	c.Assert(mailer.sent, qt.HasLen, 1)
	c.Assert(mailer.sent[0].subject, qt.Equals, "Booking #3 is now confirmed")
}

func TestBookingReminderNeedsCustomer(t *testing.T) {
	c := qt.New(t)
	mailer := &recordingMailer{}
	n := NewNotifier(&recordingPusher{}, mailer)

	c.Assert(n.BookingReminder(&models.Booking{ID: 1}), qt.ErrorMatches, "booking 1 has no customer loaded")

	err := n.BookingReminder(&models.Booking{
		ID:      2,
		User:    &models.Account{Name: "Ann", Email: "ann@example.com"},
		Service: &models.Service{Name: "Plumbing"},
	})
	c.Assert(err, qt.IsNil)
	c.Assert(mailer.sent, qt.HasLen, 1)
	c.Assert(mailer.sent[0].subject, qt.Equals, "Reminder: Plumbing starts in one hour")
}
