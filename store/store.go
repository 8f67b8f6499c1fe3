// Package store defines the persistence contract used by the HTTP handlers.
// Implementations live in database (postgres via gorm) and store/memstore.
//
// Lookups that find nothing return an error satisfying
// errors.Is(err, errors.NotFound); duplicate unique keys return
// errors.AlreadyExists.
package store

import (
	"context"
	"time"

	"home-services-server/models"
	"home-services-server/utils"
)

// ServiceFilter narrows the public service listing. Zero values disable a filter.
type ServiceFilter struct {
	Category  models.ServiceCategory
	MaxPrice  *float64
	MinRating *float64

	// Near and RadiusMeters switch the listing to a radius search sorted
	// by ascending distance.
	Near         *utils.Point
	RadiusMeters float64
}

// ProviderFilter narrows the provider directory.
type ProviderFilter struct {
	Near         *utils.Point
	RadiusMeters float64
}

type Accounts interface {
	CreateAccount(ctx context.Context, account *models.Account) error
	AccountByID(ctx context.Context, id uint) (*models.Account, error)
	AccountByEmail(ctx context.Context, email string) (*models.Account, error)
	// SaveAccount only updates; a missing account is NotFound.
	SaveAccount(ctx context.Context, account *models.Account) error
	ListProviders(ctx context.Context, filter ProviderFilter) ([]models.Account, error)
}

type Services interface {
	CreateService(ctx context.Context, service *models.Service) error
	// ServiceByID returns the service with the provider's public profile attached.
	ServiceByID(ctx context.Context, id uint) (*models.Service, error)
	// OwnedService returns NotFound both when the service is missing and when
	// it belongs to another provider.
	OwnedService(ctx context.Context, id, providerID uint) (*models.Service, error)
	// SaveService only updates a service still owned by service.ProviderID
	// and leaves the rating aggregate untouched.
	SaveService(ctx context.Context, service *models.Service) error
	DeleteService(ctx context.Context, id, providerID uint) error
	ListServices(ctx context.Context, filter ServiceFilter) ([]models.Service, error)
	ProviderServices(ctx context.Context, providerID uint) ([]models.Service, error)
}

type Bookings interface {
	CreateBooking(ctx context.Context, booking *models.Booking) error
	BookingByID(ctx context.Context, id uint) (*models.Booking, error)
	// BookingsForUser and BookingsForProvider return newest first with the
	// service and the counterparty's public profile attached.
	BookingsForUser(ctx context.Context, userID uint) ([]models.Booking, error)
	BookingsForProvider(ctx context.Context, providerID uint) ([]models.Booking, error)
	UpdateBookingStatus(ctx context.Context, id uint, status models.BookingStatus) (*models.Booking, error)
	UpdateBookingPayment(ctx context.Context, id uint, payment models.Payment) (*models.Booking, error)
	// BookingsStartingBetween returns bookings in the given status whose
	// scheduled date falls in [from, to), with user, provider and service.
	BookingsStartingBetween(ctx context.Context, status models.BookingStatus, from, to time.Time) ([]models.Booking, error)
}

type Reviews interface {
	// AddReview stores the review and folds it into the service rating in
	// one atomic step. A second review for the same booking is AlreadyExists.
	AddReview(ctx context.Context, review *models.Review) (*models.Service, error)
}

// Store is everything the API needs from persistence.
type Store interface {
	Accounts
	Services
	Bookings
	Reviews
}
