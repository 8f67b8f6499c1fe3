// Package memstore is an in-memory store.Store used for local runs and tests.
package memstore

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/juju/errors"

	"home-services-server/models"
	"home-services-server/store"
	"home-services-server/utils"
)

// Store holds in-memory data for accounts, services, bookings and reviews
type Store struct {
	accounts map[uint]models.Account
	services map[uint]models.Service
	bookings map[uint]models.Booking
	reviews  map[uint]models.Review // keyed by booking id

	lastAccountID uint
	lastServiceID uint
	lastBookingID uint
	lastReviewID  uint

	mutex sync.RWMutex
}

var _ store.Store = (*Store)(nil)

// New returns an empty store.
func New() *Store {
	return &Store{
		accounts: make(map[uint]models.Account),
		services: make(map[uint]models.Service),
		bookings: make(map[uint]models.Booking),
		reviews:  make(map[uint]models.Review),
	}
}

// CreateAccount adds an account, rejecting duplicate emails
func (s *Store) CreateAccount(_ context.Context, account *models.Account) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	account.Email = models.NormalizeEmail(account.Email)
	if _, exists := s.accountByEmailLocked(account.Email); exists {
		return errors.AlreadyExistsf("account with email %q", account.Email)
	}
	if account.Role == "" {
		account.Role = models.RoleUser
	}
	s.lastAccountID++
	now := time.Now()
	account.ID = s.lastAccountID
	account.CreatedAt = now
	account.UpdatedAt = now
	s.accounts[account.ID] = cloneAccount(*account)
	return nil
}

// AccountByID retrieves an account by ID
func (s *Store) AccountByID(_ context.Context, id uint) (*models.Account, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	account, exists := s.accounts[id]
	if !exists {
		return nil, errors.NotFoundf("account %d", id)
	}
	account = cloneAccount(account)
	return &account, nil
}

// AccountByEmail retrieves an account by its normalized email
func (s *Store) AccountByEmail(_ context.Context, email string) (*models.Account, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	account, exists := s.accountByEmailLocked(models.NormalizeEmail(email))
	if !exists {
		return nil, errors.NotFoundf("account with email %q", email)
	}
	account = cloneAccount(account)
	return &account, nil
}

// SaveAccount updates an existing account
func (s *Store) SaveAccount(_ context.Context, account *models.Account) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	existing, exists := s.accounts[account.ID]
	if !exists {
		return errors.NotFoundf("account %d", account.ID)
	}
	account.Email = models.NormalizeEmail(account.Email)
	if other, taken := s.accountByEmailLocked(account.Email); taken && other.ID != account.ID {
		return errors.AlreadyExistsf("account with email %q", account.Email)
	}
	account.CreatedAt = existing.CreatedAt
	account.UpdatedAt = time.Now()
	s.accounts[account.ID] = cloneAccount(*account)
	return nil
}

// ListProviders returns provider accounts with their services attached
func (s *Store) ListProviders(_ context.Context, filter store.ProviderFilter) ([]models.Account, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	var providers []models.Account
	for _, id := range sortedKeys(s.accounts) {
		account := s.accounts[id]
		if account.Role != models.RoleProvider {
			continue
		}
		account = cloneAccount(account)
		for _, sid := range sortedKeys(s.services) {
			if svc := s.services[sid]; svc.ProviderID == account.ID {
				account.Services = append(account.Services, cloneService(svc))
			}
		}
		providers = append(providers, account)
	}

	if filter.Near == nil {
		return providers, nil
	}
	ranked := utils.WithinRadius(*filter.Near, filter.RadiusMeters, len(providers), func(i int) (utils.Point, bool) {
		loc := providers[i].Location
		if loc == nil {
			return utils.Point{}, false
		}
		return utils.Point{Lng: loc.Lng, Lat: loc.Lat}, true
	})
	nearby := make([]models.Account, 0, len(ranked))
	for _, r := range ranked {
		nearby = append(nearby, providers[r.Index])
	}
	return nearby, nil
}

// CreateService adds a service
func (s *Store) CreateService(_ context.Context, service *models.Service) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	s.lastServiceID++
	now := time.Now()
	service.ID = s.lastServiceID
	service.CreatedAt = now
	service.UpdatedAt = now
	s.services[service.ID] = cloneService(*service)
	return nil
}

// ServiceByID retrieves a service with its provider's public profile
func (s *Store) ServiceByID(_ context.Context, id uint) (*models.Service, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	service, exists := s.services[id]
	if !exists {
		return nil, errors.NotFoundf("service")
	}
	service = s.withProviderLocked(service)
	return &service, nil
}

// OwnedService retrieves a service only if providerID owns it
func (s *Store) OwnedService(_ context.Context, id, providerID uint) (*models.Service, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	service, exists := s.services[id]
	if !exists || service.ProviderID != providerID {
		return nil, errors.NotFoundf("service")
	}
	service = cloneService(service)
	return &service, nil
}

// SaveService updates an existing service
func (s *Store) SaveService(_ context.Context, service *models.Service) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	existing, exists := s.services[service.ID]
	if !exists || existing.ProviderID != service.ProviderID {
		return errors.NotFoundf("service")
	}
	// the rating aggregate belongs to AddReview
	service.Rating = existing.Rating
	service.CreatedAt = existing.CreatedAt
	service.UpdatedAt = time.Now()
	s.services[service.ID] = cloneService(*service)
	return nil
}

// DeleteService removes a service owned by providerID
func (s *Store) DeleteService(_ context.Context, id, providerID uint) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	service, exists := s.services[id]
	if !exists || service.ProviderID != providerID {
		return errors.NotFoundf("service")
	}
	delete(s.services, id)
	return nil
}

// ListServices returns available services matching the filter
func (s *Store) ListServices(_ context.Context, filter store.ServiceFilter) ([]models.Service, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	var matches []models.Service
	for _, id := range sortedKeys(s.services) {
		service := s.services[id]
		if !matchesFilter(service, filter) {
			continue
		}
		matches = append(matches, s.withProviderLocked(service))
	}

	if filter.Near == nil {
		return matches, nil
	}
	ranked := utils.WithinRadius(*filter.Near, filter.RadiusMeters, len(matches), func(i int) (utils.Point, bool) {
		return utils.Point{Lng: matches[i].Location.Lng, Lat: matches[i].Location.Lat}, true
	})
	nearby := make([]models.Service, 0, len(ranked))
	for _, r := range ranked {
		service := matches[r.Index]
		distance := r.Distance
		service.Distance = &distance
		nearby = append(nearby, service)
	}
	return nearby, nil
}

func matchesFilter(service models.Service, filter store.ServiceFilter) bool {
	if !service.Availability.IsAvailable {
		return false
	}
	if filter.Category != "" && service.Category != filter.Category {
		return false
	}
	if filter.MaxPrice != nil && service.Price > *filter.MaxPrice {
		return false
	}
	if filter.MinRating != nil && service.Rating.Average < *filter.MinRating {
		return false
	}
	return true
}

// ProviderServices returns every service owned by providerID
func (s *Store) ProviderServices(_ context.Context, providerID uint) ([]models.Service, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	services := []models.Service{}
	for _, id := range sortedKeys(s.services) {
		if service := s.services[id]; service.ProviderID == providerID {
			services = append(services, cloneService(service))
		}
	}
	return services, nil
}

// CreateBooking adds a booking
func (s *Store) CreateBooking(_ context.Context, booking *models.Booking) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	if booking.Status == "" {
		booking.Status = models.BookingStatusPending
	}
	if booking.Payment.Status == "" {
		booking.Payment.Status = models.PaymentStatusPending
	}
	s.lastBookingID++
	now := time.Now()
	booking.ID = s.lastBookingID
	booking.CreatedAt = now
	booking.UpdatedAt = now
	s.bookings[booking.ID] = cloneBooking(*booking)
	return nil
}

// BookingByID retrieves a booking by ID
func (s *Store) BookingByID(_ context.Context, id uint) (*models.Booking, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	booking, exists := s.bookings[id]
	if !exists {
		return nil, errors.NotFoundf("booking")
	}
	booking = cloneBooking(booking)
	return &booking, nil
}

// BookingsForUser returns the user's bookings, newest first
func (s *Store) BookingsForUser(_ context.Context, userID uint) ([]models.Booking, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	return s.collectBookingsLocked(func(b models.Booking) bool { return b.UserID == userID }, false, true), nil
}

// BookingsForProvider returns the provider's bookings, newest first
func (s *Store) BookingsForProvider(_ context.Context, providerID uint) ([]models.Booking, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	return s.collectBookingsLocked(func(b models.Booking) bool { return b.ProviderID == providerID }, true, false), nil
}

// UpdateBookingStatus overwrites the status of a booking
func (s *Store) UpdateBookingStatus(_ context.Context, id uint, status models.BookingStatus) (*models.Booking, error) {
	return s.updateBooking(id, func(b *models.Booking) { b.Status = status })
}

// UpdateBookingPayment overwrites the payment record of a booking
func (s *Store) UpdateBookingPayment(_ context.Context, id uint, payment models.Payment) (*models.Booking, error) {
	return s.updateBooking(id, func(b *models.Booking) { b.Payment = payment })
}

func (s *Store) updateBooking(id uint, mutate func(*models.Booking)) (*models.Booking, error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	booking, exists := s.bookings[id]
	if !exists {
		return nil, errors.NotFoundf("booking")
	}
	mutate(&booking)
	booking.UpdatedAt = time.Now()
	s.bookings[id] = booking
	booking = cloneBooking(booking)
	return &booking, nil
}

// BookingsStartingBetween returns bookings in status scheduled within [from, to)
func (s *Store) BookingsStartingBetween(_ context.Context, status models.BookingStatus, from, to time.Time) ([]models.Booking, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	bookings := s.collectBookingsLocked(func(b models.Booking) bool {
		return b.Status == status && !b.ScheduledDate.Before(from) && b.ScheduledDate.Before(to)
	}, true, true)
	sort.SliceStable(bookings, func(i, j int) bool { return bookings[i].ScheduledDate.Before(bookings[j].ScheduledDate) })
	return bookings, nil
}

// AddReview stores a review and folds it into the service rating
func (s *Store) AddReview(_ context.Context, review *models.Review) (*models.Service, error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	if _, exists := s.reviews[review.BookingID]; exists {
		return nil, errors.AlreadyExistsf("review for booking %d", review.BookingID)
	}
	service, exists := s.services[review.ServiceID]
	if !exists {
		return nil, errors.NotFoundf("service")
	}
	s.lastReviewID++
	review.ID = s.lastReviewID
	review.CreatedAt = time.Now()
	s.reviews[review.BookingID] = *review

	service.Rating = models.AddToAverage(service.Rating, review.Rating)
	service.UpdatedAt = time.Now()
	s.services[service.ID] = service

	service = s.withProviderLocked(service)
	return &service, nil
}

func (s *Store) accountByEmailLocked(email string) (models.Account, bool) {
	for _, account := range s.accounts {
		if account.Email == email {
			return account, true
		}
	}
	return models.Account{}, false
}

func (s *Store) withProviderLocked(service models.Service) models.Service {
	service = cloneService(service)
	if provider, ok := s.accounts[service.ProviderID]; ok {
		service.Provider = provider.PublicProfile()
	}
	return service
}

func (s *Store) collectBookingsLocked(keep func(models.Booking) bool, withUser, withProvider bool) []models.Booking {
	bookings := []models.Booking{}
	for _, booking := range s.bookings {
		if !keep(booking) {
			continue
		}
		booking = cloneBooking(booking)
		if svc, ok := s.services[booking.ServiceID]; ok {
			svc = cloneService(svc)
			booking.Service = &svc
		}
		if withUser {
			if user, ok := s.accounts[booking.UserID]; ok {
				booking.User = user.PublicProfile()
			}
		}
		if withProvider {
			if provider, ok := s.accounts[booking.ProviderID]; ok {
				booking.Provider = provider.PublicProfile()
			}
		}
		bookings = append(bookings, booking)
	}
	sort.Slice(bookings, func(i, j int) bool {
		if !bookings[i].CreatedAt.Equal(bookings[j].CreatedAt) {
			return bookings[i].CreatedAt.After(bookings[j].CreatedAt)
		}
		return bookings[i].ID > bookings[j].ID
	})
	return bookings
}
