package jobs

import (
	"context"
	"log"
	"time"

	"github.com/juju/clock"
	"github.com/juju/errors"
	"github.com/robfig/cron/v3"

	"home-services-server/models"
	"home-services-server/store"
)

// ReminderLead is how far ahead of a booking its reminder goes out
const ReminderLead = time.Hour

// Reminder sends the reminder for one booking
type Reminder interface {
	BookingReminder(booking *models.Booking) error
}

// ReminderJob mails customers whose confirmed bookings start within the
// next lead window. Each run covers one minute, aligned to the minute, so
// consecutive runs neither overlap nor leave gaps.
type ReminderJob struct {
	bookings store.Bookings
	reminder Reminder
	clock    clock.Clock
	cron     *cron.Cron
}

// NewReminderJob creates a new reminder job
func NewReminderJob(bookings store.Bookings, reminder Reminder, clk clock.Clock) *ReminderJob {
	return &ReminderJob{
		bookings: bookings,
		reminder: reminder,
		clock:    clk,
		cron:     cron.New(),
	}
}

// Start schedules the job with a standard five-field cron expression
func (j *ReminderJob) Start(schedule string) error {
	_, err := j.cron.AddFunc(schedule, func() {
		if _, err := j.RunOnce(context.Background()); err != nil {
			log.Printf("❌ Error sending booking reminders: %v", err)
		}
	})
	if err != nil {
		return errors.Annotatef(err, "scheduling reminders %q", schedule)
	}
	j.cron.Start()
	log.Println("🚀 Reminder job started")
	return nil
}

// Stop halts scheduling and waits for a running pass to finish
func (j *ReminderJob) Stop() {
	<-j.cron.Stop().Done()
	log.Println("🛑 Reminder job stopped")
}

// RunOnce sends reminders for the current window and returns how many were sent
func (j *ReminderJob) RunOnce(ctx context.Context) (int, error) {
	from := j.clock.Now().Truncate(time.Minute).Add(ReminderLead)
	to := from.Add(time.Minute)

	due, err := j.bookings.BookingsStartingBetween(ctx, models.BookingStatusConfirmed, from, to)
	if err != nil {
		return 0, errors.Trace(err)
	}

	sent := 0
	for i := range due {
		booking := &due[i]
		if err := j.reminder.BookingReminder(booking); err != nil {
			log.Printf("❌ Failed to send reminder for booking %d: %v", booking.ID, err)
			continue
		}
		sent++
	}
	if sent > 0 {
		log.Printf("⏰ Sent %d booking reminders", sent)
	}
	return sent, nil
}
