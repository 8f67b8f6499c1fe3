// Package storetest holds behaviour every store.Store implementation must
// share. Each case gets a store opened by the caller with no rows in it.
package storetest

import (
	"context"
	"testing"
	"time"

	qt "github.com/frankban/quicktest"
	"github.com/juju/errors"

	"home-services-server/models"
	"home-services-server/store"
	"home-services-server/utils"
)

// Opener returns an empty store for a single case
type Opener func(c *qt.C) store.Store

var cases = []struct {
	name string
	run  func(c *qt.C, s store.Store)
}{
	{"CreateAccountRejectsDuplicateEmail", createAccountRejectsDuplicateEmail},
	{"SaveAccount", saveAccount},
	{"OwnedServiceHidesOtherProviders", ownedServiceHidesOtherProviders},
	{"SaveServiceKeepsRating", saveServiceKeepsRating},
	{"SaveServiceNeverRecreates", saveServiceNeverRecreates},
	{"ListServicesFilters", listServicesFilters},
	{"ListServicesNearSortsByDistance", listServicesNearSortsByDistance},
	{"ListProvidersNear", listProvidersNear},
	{"BookingsNewestFirstWithCounterparty", bookingsNewestFirstWithCounterparty},
	{"UpdateBooking", updateBooking},
	{"BookingsStartingBetween", bookingsStartingBetween},
	{"AddReviewUpdatesRatingOnce", addReviewUpdatesRatingOnce},
}

// Run runs every case against stores returned by open
func Run(t *testing.T, open Opener) {
	c := qt.New(t)
	for _, tc := range cases {
		tc := tc
		c.Run(tc.name, func(c *qt.C) {
			tc.run(c, open(c))
		})
	}
}

func newUser(c *qt.C, s store.Store, email string) *models.Account {
	account := &models.Account{Name: "Uma", Email: email, PasswordHash: "hash", Phone: "1", Role: models.RoleUser}
	c.Assert(s.CreateAccount(context.Background(), account), qt.IsNil)
	return account
}

func newProvider(c *qt.C, s store.Store, email string) *models.Account {
	account := &models.Account{Name: "Pat", Email: email, PasswordHash: "hash", Phone: "555", Role: models.RoleProvider}
	c.Assert(s.CreateAccount(context.Background(), account), qt.IsNil)
	return account
}

func newService(c *qt.C, s store.Store, providerID uint, mutate func(*models.Service)) *models.Service {
	service := &models.Service{
		Name:         "Fix sink",
		Category:     models.CategoryPlumbing,
		Description:  "Leaks and clogs",
		Price:        50,
		Duration:     60,
		ProviderID:   providerID,
		Availability: models.Availability{IsAvailable: true},
	}
	if mutate != nil {
		mutate(service)
	}
	c.Assert(s.CreateService(context.Background(), service), qt.IsNil)
	return service
}

func createAccountRejectsDuplicateEmail(c *qt.C, s store.Store) {
	ctx := context.Background()
	first := newUser(c, s, "Ann@Example.com ")
	c.Assert(first.Email, qt.Equals, "ann@example.com")

	err := s.CreateAccount(ctx, &models.Account{Name: "B", Email: "ann@example.com", PasswordHash: "hash", Phone: "2", Role: models.RoleUser})
	c.Assert(errors.Is(err, errors.AlreadyExists), qt.IsTrue, qt.Commentf("got %v", err))

	found, err := s.AccountByEmail(ctx, "ANN@example.com")
	c.Assert(err, qt.IsNil)
	c.Assert(found.ID, qt.Equals, first.ID)

	_, err = s.AccountByID(ctx, first.ID+100)
	c.Assert(errors.Is(err, errors.NotFound), qt.IsTrue)
}

func saveAccount(c *qt.C, s store.Store) {
	ctx := context.Background()
	ann := newUser(c, s, "ann@example.com")
	newUser(c, s, "bob@example.com")

	ann.Phone = "999"
	c.Assert(s.SaveAccount(ctx, ann), qt.IsNil)
	stored, err := s.AccountByID(ctx, ann.ID)
	c.Assert(err, qt.IsNil)
	c.Assert(stored.Phone, qt.Equals, "999")
	c.Assert(stored.PasswordHash, qt.Equals, "hash")

	ann.Email = "BOB@example.com"
	err = s.SaveAccount(ctx, ann)
	c.Assert(errors.Is(err, errors.AlreadyExists), qt.IsTrue, qt.Commentf("got %v", err))

	ghost := &models.Account{ID: ann.ID + 100, Name: "Ghost", Email: "ghost@example.com", PasswordHash: "hash", Phone: "0", Role: models.RoleUser}
	err = s.SaveAccount(ctx, ghost)
	c.Assert(errors.Is(err, errors.NotFound), qt.IsTrue, qt.Commentf("got %v", err))
	_, err = s.AccountByEmail(ctx, "ghost@example.com")
	c.Assert(errors.Is(err, errors.NotFound), qt.IsTrue)
}

func ownedServiceHidesOtherProviders(c *qt.C, s store.Store) {
	ctx := context.Background()
	owner := newProvider(c, s, "owner@example.com")
	other := newProvider(c, s, "other@example.com")
	svc := newService(c, s, owner.ID, nil)

	_, err := s.OwnedService(ctx, svc.ID, other.ID)
	c.Assert(err, qt.ErrorMatches, "service not found")
	_, err = s.OwnedService(ctx, svc.ID+100, owner.ID)
	c.Assert(err, qt.ErrorMatches, "service not found")

	c.Assert(s.DeleteService(ctx, svc.ID, other.ID), qt.ErrorMatches, "service not found")
	c.Assert(s.DeleteService(ctx, svc.ID, owner.ID), qt.IsNil)
	_, err = s.ServiceByID(ctx, svc.ID)
	c.Assert(errors.Is(err, errors.NotFound), qt.IsTrue)
}

func saveServiceKeepsRating(c *qt.C, s store.Store) {
	ctx := context.Background()
	provider := newProvider(c, s, "p@example.com")
	svc := newService(c, s, provider.ID, nil)

	_, err := s.AddReview(ctx, &models.Review{BookingID: 1, ServiceID: svc.ID, UserID: 7, Rating: 4})
	c.Assert(err, qt.IsNil)

	// svc still carries the zero rating it was created with
	svc.Name = "Unblock drains"
	svc.Availability.IsAvailable = false
	c.Assert(s.SaveService(ctx, svc), qt.IsNil)

	stored, err := s.ServiceByID(ctx, svc.ID)
	c.Assert(err, qt.IsNil)
	c.Assert(stored.Name, qt.Equals, "Unblock drains")
	c.Assert(stored.Availability.IsAvailable, qt.IsFalse)
	c.Assert(stored.Rating, qt.Equals, models.Rating{Average: 4, Count: 1})
	c.Assert(stored.Provider.Email, qt.Equals, "p@example.com")
}

func saveServiceNeverRecreates(c *qt.C, s store.Store) {
	ctx := context.Background()
	owner := newProvider(c, s, "owner@example.com")
	other := newProvider(c, s, "other@example.com")
	svc := newService(c, s, owner.ID, nil)

	// a write racing a delete must not bring the row back
	loaded, err := s.OwnedService(ctx, svc.ID, owner.ID)
	c.Assert(err, qt.IsNil)
	c.Assert(s.DeleteService(ctx, svc.ID, owner.ID), qt.IsNil)
	loaded.Name = "Resurrected"
	c.Assert(s.SaveService(ctx, loaded), qt.ErrorMatches, "service not found")
	_, err = s.ServiceByID(ctx, svc.ID)
	c.Assert(errors.Is(err, errors.NotFound), qt.IsTrue)

	kept := newService(c, s, owner.ID, nil)
	hijack := *kept
	hijack.ProviderID = other.ID
	c.Assert(s.SaveService(ctx, &hijack), qt.ErrorMatches, "service not found")
	stored, err := s.ServiceByID(ctx, kept.ID)
	c.Assert(err, qt.IsNil)
	c.Assert(stored.ProviderID, qt.Equals, owner.ID)
}

func listServicesFilters(c *qt.C, s store.Store) {
	ctx := context.Background()
	provider := newProvider(c, s, "p@example.com")
	cheap := newService(c, s, provider.ID, func(svc *models.Service) { svc.Price = 20 })
	newService(c, s, provider.ID, func(svc *models.Service) { svc.Price = 200 })
	newService(c, s, provider.ID, func(svc *models.Service) { svc.Availability.IsAvailable = false })
	rated := newService(c, s, provider.ID, func(svc *models.Service) {
		svc.Category = models.CategoryCleaning
		svc.Rating = models.Rating{Average: 4.5, Count: 2}
	})

	all, err := s.ListServices(ctx, store.ServiceFilter{})
	c.Assert(err, qt.IsNil)
	c.Assert(all, qt.HasLen, 3)
	c.Assert(all[0].Provider.Email, qt.Equals, "p@example.com")

	maxPrice := 50.0
	list, err := s.ListServices(ctx, store.ServiceFilter{MaxPrice: &maxPrice})
	c.Assert(err, qt.IsNil)
	c.Assert(list, qt.HasLen, 2)
	c.Assert(list[0].ID, qt.Equals, cheap.ID)

	list, err = s.ListServices(ctx, store.ServiceFilter{Category: models.CategoryCleaning})
	c.Assert(err, qt.IsNil)
	c.Assert(list, qt.HasLen, 1)
	c.Assert(list[0].ID, qt.Equals, rated.ID)

	minRating := 4.0
	list, err = s.ListServices(ctx, store.ServiceFilter{MinRating: &minRating})
	c.Assert(err, qt.IsNil)
	c.Assert(list, qt.HasLen, 1)
	c.Assert(list[0].ID, qt.Equals, rated.ID)

	mine, err := s.ProviderServices(ctx, provider.ID)
	c.Assert(err, qt.IsNil)
	c.Assert(mine, qt.HasLen, 4)
}

func listServicesNearSortsByDistance(c *qt.C, s store.Store) {
	ctx := context.Background()
	provider := newProvider(c, s, "p@example.com")
	far := newService(c, s, provider.ID, func(svc *models.Service) { svc.Location = models.Location{Lng: 0.05, Lat: 0} })
	near := newService(c, s, provider.ID, func(svc *models.Service) { svc.Location = models.Location{Lng: 0.01, Lat: 0} })
	newService(c, s, provider.ID, func(svc *models.Service) { svc.Location = models.Location{Lng: 2, Lat: 0} })

	list, err := s.ListServices(ctx, store.ServiceFilter{Near: &utils.Point{}, RadiusMeters: 10000})
	c.Assert(err, qt.IsNil)
	c.Assert(list, qt.HasLen, 2)
	c.Assert(list[0].ID, qt.Equals, near.ID)
	c.Assert(list[1].ID, qt.Equals, far.ID)
	c.Assert(list[0].Distance, qt.IsNotNil)
	c.Assert(*list[0].Distance < *list[1].Distance, qt.IsTrue)
	c.Assert(*list[1].Distance < 10000, qt.IsTrue)
}

func listProvidersNear(c *qt.C, s store.Store) {
	ctx := context.Background()
	nearby := newProvider(c, s, "nearby@example.com")
	nearby.Location = &models.Location{Lng: 0.01, Lat: 0}
	c.Assert(s.SaveAccount(ctx, nearby), qt.IsNil)
	newProvider(c, s, "nowhere@example.com")
	newUser(c, s, "u@example.com")
	newService(c, s, nearby.ID, nil)

	all, err := s.ListProviders(ctx, store.ProviderFilter{})
	c.Assert(err, qt.IsNil)
	c.Assert(all, qt.HasLen, 2)
	c.Assert(all[0].Services, qt.HasLen, 1)

	found, err := s.ListProviders(ctx, store.ProviderFilter{Near: &utils.Point{}, RadiusMeters: 5000})
	c.Assert(err, qt.IsNil)
	c.Assert(found, qt.HasLen, 1)
	c.Assert(found[0].ID, qt.Equals, nearby.ID)
}

func bookingsNewestFirstWithCounterparty(c *qt.C, s store.Store) {
	ctx := context.Background()
	provider := newProvider(c, s, "p@example.com")
	user := newUser(c, s, "u@example.com")
	svc := newService(c, s, provider.ID, nil)

	var ids []uint
	for i := 0; i < 3; i++ {
		b := &models.Booking{UserID: user.ID, ProviderID: provider.ID, ServiceID: svc.ID, ScheduledDate: time.Now()}
		c.Assert(s.CreateBooking(ctx, b), qt.IsNil)
		c.Assert(b.Status, qt.Equals, models.BookingStatusPending)
		c.Assert(b.Payment.Status, qt.Equals, models.PaymentStatusPending)
		ids = append(ids, b.ID)
	}

	mine, err := s.BookingsForUser(ctx, user.ID)
	c.Assert(err, qt.IsNil)
	c.Assert(mine, qt.HasLen, 3)
	c.Assert(mine[0].ID, qt.Equals, ids[2])
	c.Assert(mine[0].Provider.Email, qt.Equals, "p@example.com")
	c.Assert(mine[0].Provider.PasswordHash, qt.Equals, "")
	c.Assert(mine[0].User, qt.IsNil)
	c.Assert(mine[0].Service.ID, qt.Equals, svc.ID)

	theirs, err := s.BookingsForProvider(ctx, provider.ID)
	c.Assert(err, qt.IsNil)
	c.Assert(theirs, qt.HasLen, 3)
	c.Assert(theirs[0].User.Email, qt.Equals, "u@example.com")
	c.Assert(theirs[0].Provider, qt.IsNil)

	none, err := s.BookingsForUser(ctx, provider.ID)
	c.Assert(err, qt.IsNil)
	c.Assert(none, qt.HasLen, 0)
}

func updateBooking(c *qt.C, s store.Store) {
	ctx := context.Background()
	b := &models.Booking{UserID: 1, ProviderID: 2, ServiceID: 3, ScheduledDate: time.Now()}
	c.Assert(s.CreateBooking(ctx, b), qt.IsNil)

	updated, err := s.UpdateBookingStatus(ctx, b.ID, models.BookingStatusCompleted)
	c.Assert(err, qt.IsNil)
	c.Assert(updated.Status, qt.Equals, models.BookingStatusCompleted)

	updated, err = s.UpdateBookingPayment(ctx, b.ID, models.Payment{Amount: 50, Status: models.PaymentStatusCompleted, TransactionID: "pay_1"})
	c.Assert(err, qt.IsNil)
	c.Assert(updated.Payment.TransactionID, qt.Equals, "pay_1")
	c.Assert(updated.Status, qt.Equals, models.BookingStatusCompleted)

	_, err = s.UpdateBookingStatus(ctx, b.ID+100, models.BookingStatusCancelled)
	c.Assert(err, qt.ErrorMatches, "booking not found")
}

func bookingsStartingBetween(c *qt.C, s store.Store) {
	ctx := context.Background()
	base := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	for i, status := range []models.BookingStatus{
		models.BookingStatusConfirmed,
		models.BookingStatusConfirmed,
		models.BookingStatusPending,
	} {
		b := &models.Booking{UserID: 1, ProviderID: 2, ServiceID: 3, Status: status, ScheduledDate: base.Add(time.Duration(i) * 30 * time.Second)}
		c.Assert(s.CreateBooking(ctx, b), qt.IsNil)
	}
	outside := &models.Booking{UserID: 1, ProviderID: 2, ServiceID: 3, Status: models.BookingStatusConfirmed, ScheduledDate: base.Add(time.Minute)}
	c.Assert(s.CreateBooking(ctx, outside), qt.IsNil)

	due, err := s.BookingsStartingBetween(ctx, models.BookingStatusConfirmed, base, base.Add(time.Minute))
	c.Assert(err, qt.IsNil)
	c.Assert(due, qt.HasLen, 2)
	c.Assert(due[0].ScheduledDate.Before(due[1].ScheduledDate), qt.IsTrue)
}

func addReviewUpdatesRatingOnce(c *qt.C, s store.Store) {
	ctx := context.Background()
	provider := newProvider(c, s, "p@example.com")
	svc := newService(c, s, provider.ID, nil)

	updated, err := s.AddReview(ctx, &models.Review{BookingID: 1, ServiceID: svc.ID, UserID: 7, Rating: 5})
	c.Assert(err, qt.IsNil)
	c.Assert(updated.Rating, qt.Equals, models.Rating{Average: 5, Count: 1})

	updated, err = s.AddReview(ctx, &models.Review{BookingID: 2, ServiceID: svc.ID, UserID: 7, Rating: 3})
	c.Assert(err, qt.IsNil)
	c.Assert(updated.Rating, qt.Equals, models.Rating{Average: 4, Count: 2})

	_, err = s.AddReview(ctx, &models.Review{BookingID: 2, ServiceID: svc.ID, UserID: 7, Rating: 1})
	c.Assert(errors.Is(err, errors.AlreadyExists), qt.IsTrue, qt.Commentf("got %v", err))

	_, err = s.AddReview(ctx, &models.Review{BookingID: 3, ServiceID: svc.ID + 100, UserID: 7, Rating: 1})
	c.Assert(errors.Is(err, errors.NotFound), qt.IsTrue, qt.Commentf("got %v", err))

	stored, err := s.ServiceByID(ctx, svc.ID)
	c.Assert(err, qt.IsNil)
	c.Assert(stored.Rating.Count, qt.Equals, 2)
}
