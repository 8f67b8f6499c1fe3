package database

import (
	"context"
	"time"

	"github.com/juju/errors"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"home-services-server/models"
	"home-services-server/store"
	"home-services-server/utils"
)

// Store implements store.Store on top of gorm
type Store struct {
	db *gorm.DB
}

var _ store.Store = (*Store)(nil)

// NewStore wraps an already opened connection
func NewStore(db *gorm.DB) *Store {
	return &Store{db: db}
}

// Ping checks that the database still answers
func (s *Store) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return errors.Trace(err)
	}
	return errors.Trace(sqlDB.PingContext(ctx))
}

// distanceSQL is the great-circle distance in metres between the service
// location and (lat, lat, lng) bound in that order.
const distanceSQL = `6371000 * 2 * ASIN(SQRT(LEAST(1,
	POWER(SIN(RADIANS(location_lat - ?) / 2), 2) +
	COS(RADIANS(?)) * COS(RADIANS(location_lat)) *
	POWER(SIN(RADIANS(location_lng - ?) / 2), 2))))`

func publicProfile(db *gorm.DB) *gorm.DB {
	return db.Select("id", "name", "email", "phone", "role")
}

func notFound(err error, what string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return errors.NotFoundf(what)
	}
	return errors.Trace(err)
}

func emailTaken(err error, email string) error {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return errors.AlreadyExistsf("account with email %q", email)
	}
	return errors.Trace(err)
}

func (s *Store) CreateAccount(ctx context.Context, account *models.Account) error {
	account.Email = models.NormalizeEmail(account.Email)
	err := s.db.WithContext(ctx).Omit(clause.Associations).Create(account).Error
	if err != nil {
		return emailTaken(err, account.Email)
	}
	return nil
}

func (s *Store) AccountByID(ctx context.Context, id uint) (*models.Account, error) {
	var account models.Account
	if err := s.db.WithContext(ctx).First(&account, id).Error; err != nil {
		return nil, notFound(err, "account")
	}
	return &account, nil
}

func (s *Store) AccountByEmail(ctx context.Context, email string) (*models.Account, error) {
	var account models.Account
	err := s.db.WithContext(ctx).Where("email = ?", models.NormalizeEmail(email)).First(&account).Error
	if err != nil {
		return nil, notFound(err, "account")
	}
	return &account, nil
}

// SaveAccount updates an existing account. It never inserts, so saving an
// account that was removed meanwhile reports not found.
func (s *Store) SaveAccount(ctx context.Context, account *models.Account) error {
	account.Email = models.NormalizeEmail(account.Email)
	result := accountUpdate(s.db.WithContext(ctx), account)
	if result.Error != nil {
		return emailTaken(result.Error, account.Email)
	}
	if result.RowsAffected == 0 {
		return errors.NotFoundf("account")
	}
	return nil
}

func accountUpdate(db *gorm.DB, account *models.Account) *gorm.DB {
	return db.Model(account).
		Where("id = ?", account.ID).
		Select("*").
		Omit(clause.Associations, "id", "created_at").
		Updates(account)
}

// ListProviders loads providers with their services. Account locations are
// stored as JSON, so the radius filter runs after the query.
func (s *Store) ListProviders(ctx context.Context, filter store.ProviderFilter) ([]models.Account, error) {
	var providers []models.Account
	err := s.db.WithContext(ctx).
		Where("role = ?", models.RoleProvider).
		Preload("Services", func(db *gorm.DB) *gorm.DB { return db.Order("id") }).
		Order("id").
		Find(&providers).Error
	if err != nil {
		return nil, errors.Trace(err)
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

func (s *Store) CreateService(ctx context.Context, service *models.Service) error {
	return errors.Trace(s.db.WithContext(ctx).Omit(clause.Associations).Create(service).Error)
}

func (s *Store) ServiceByID(ctx context.Context, id uint) (*models.Service, error) {
	var service models.Service
	err := s.db.WithContext(ctx).Preload("Provider", publicProfile).First(&service, id).Error
	if err != nil {
		return nil, notFound(err, "service")
	}
	return &service, nil
}

func (s *Store) OwnedService(ctx context.Context, id, providerID uint) (*models.Service, error) {
	var service models.Service
	err := s.db.WithContext(ctx).Where("id = ? AND provider_id = ?", id, providerID).First(&service).Error
	if err != nil {
		return nil, notFound(err, "service")
	}
	return &service, nil
}

// SaveService writes the editable columns of a service its provider still
// owns. The rating aggregate is owned by AddReview and never overwritten here.
func (s *Store) SaveService(ctx context.Context, service *models.Service) error {
	result := serviceUpdate(s.db.WithContext(ctx), service)
	if result.Error != nil {
		return errors.Trace(result.Error)
	}
	if result.RowsAffected == 0 {
		return errors.NotFoundf("service")
	}
	return nil
}

// serviceUpdate selects every column so zero values such as an unavailable
// flag are written too.
func serviceUpdate(db *gorm.DB, service *models.Service) *gorm.DB {
	return db.Model(service).
		Where("id = ? AND provider_id = ?", service.ID, service.ProviderID).
		Select("*").
		Omit(clause.Associations, "id", "created_at", "rating_average", "rating_count").
		Updates(service)
}

func (s *Store) DeleteService(ctx context.Context, id, providerID uint) error {
	result := s.db.WithContext(ctx).Where("id = ? AND provider_id = ?", id, providerID).Delete(&models.Service{})
	if result.Error != nil {
		return errors.Trace(result.Error)
	}
	if result.RowsAffected == 0 {
		return errors.NotFoundf("service")
	}
	return nil
}

func (s *Store) ListServices(ctx context.Context, filter store.ServiceFilter) ([]models.Service, error) {
	var services []models.Service
	query := servicesQuery(s.db.WithContext(ctx), filter)
	if err := query.Preload("Provider", publicProfile).Find(&services).Error; err != nil {
		return nil, errors.Trace(err)
	}
	return services, nil
}

// servicesQuery filters available services. A geo search wraps the filtered
// rows in a subquery so the computed distance can be compared and sorted on.
func servicesQuery(db *gorm.DB, filter store.ServiceFilter) *gorm.DB {
	query := db.Model(&models.Service{}).Where("is_available = ?", true)
	if filter.Category != "" {
		query = query.Where("category = ?", filter.Category)
	}
	if filter.MaxPrice != nil {
		query = query.Where("price <= ?", *filter.MaxPrice)
	}
	if filter.MinRating != nil {
		query = query.Where("rating_average >= ?", *filter.MinRating)
	}

	if filter.Near == nil {
		query = query.Order("id")
	} else {
		center := *filter.Near
		box := utils.BoundingBoxFor(center, filter.RadiusMeters)
		query = query.Where("location_lat BETWEEN ? AND ?", box.MinLat, box.MaxLat)
		if box.LngBounded {
			query = query.Where("location_lng BETWEEN ? AND ?", box.MinLng, box.MaxLng)
		}
		query = query.Select("services.*, "+distanceSQL+" AS distance", center.Lat, center.Lat, center.Lng)
		query = db.Table("(?) AS services", query).
			Where("distance <= ?", filter.RadiusMeters).
			Order("distance ASC")
	}
	return query
}

func (s *Store) ProviderServices(ctx context.Context, providerID uint) ([]models.Service, error) {
	services := []models.Service{}
	err := s.db.WithContext(ctx).Where("provider_id = ?", providerID).Order("id").Find(&services).Error
	return services, errors.Trace(err)
}

func (s *Store) CreateBooking(ctx context.Context, booking *models.Booking) error {
	if booking.Status == "" {
		booking.Status = models.BookingStatusPending
	}
	if booking.Payment.Status == "" {
		booking.Payment.Status = models.PaymentStatusPending
	}
	return errors.Trace(s.db.WithContext(ctx).Omit(clause.Associations).Create(booking).Error)
}

func (s *Store) BookingByID(ctx context.Context, id uint) (*models.Booking, error) {
	var booking models.Booking
	if err := s.db.WithContext(ctx).First(&booking, id).Error; err != nil {
		return nil, notFound(err, "booking")
	}
	return &booking, nil
}

func (s *Store) BookingsForUser(ctx context.Context, userID uint) ([]models.Booking, error) {
	bookings := []models.Booking{}
	err := s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Preload("Service").
		Preload("Provider", publicProfile).
		Order("created_at DESC, id DESC").
		Find(&bookings).Error
	return bookings, errors.Trace(err)
}

func (s *Store) BookingsForProvider(ctx context.Context, providerID uint) ([]models.Booking, error) {
	bookings := []models.Booking{}
	err := s.db.WithContext(ctx).
		Where("provider_id = ?", providerID).
		Preload("Service").
		Preload("User", publicProfile).
		Order("created_at DESC, id DESC").
		Find(&bookings).Error
	return bookings, errors.Trace(err)
}

func (s *Store) UpdateBookingStatus(ctx context.Context, id uint, status models.BookingStatus) (*models.Booking, error) {
	return s.updateBooking(ctx, id, map[string]interface{}{"status": status})
}

func (s *Store) UpdateBookingPayment(ctx context.Context, id uint, payment models.Payment) (*models.Booking, error) {
	return s.updateBooking(ctx, id, map[string]interface{}{
		"payment_amount":         payment.Amount,
		"payment_status":         payment.Status,
		"payment_transaction_id": payment.TransactionID,
		"payment_order_id":       payment.OrderID,
	})
}

func (s *Store) updateBooking(ctx context.Context, id uint, columns map[string]interface{}) (*models.Booking, error) {
	result := s.db.WithContext(ctx).Model(&models.Booking{}).Where("id = ?", id).Updates(columns)
	if result.Error != nil {
		return nil, errors.Trace(result.Error)
	}
	if result.RowsAffected == 0 {
		return nil, errors.NotFoundf("booking")
	}
	return s.BookingByID(ctx, id)
}

func (s *Store) BookingsStartingBetween(ctx context.Context, status models.BookingStatus, from, to time.Time) ([]models.Booking, error) {
	var bookings []models.Booking
	err := s.db.WithContext(ctx).
		Where("status = ? AND scheduled_date >= ? AND scheduled_date < ?", status, from, to).
		Preload("Service").
		Preload("User", publicProfile).
		Preload("Provider", publicProfile).
		Order("scheduled_date").
		Find(&bookings).Error
	return bookings, errors.Trace(err)
}

// AddReview inserts the review and bumps the service aggregate in a single
// transaction. The UPDATE reads the old count and average, so concurrent
// reviews serialize on the row lock.
func (s *Store) AddReview(ctx context.Context, review *models.Review) (*models.Service, error) {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(review).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return errors.AlreadyExistsf("review for booking %d", review.BookingID)
			}
			return errors.Trace(err)
		}
		result := foldRating(tx, review.ServiceID, review.Rating)
		if result.Error != nil {
			return errors.Trace(result.Error)
		}
		if result.RowsAffected == 0 {
			return errors.NotFoundf("service")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s.ServiceByID(ctx, review.ServiceID)
}

func foldRating(db *gorm.DB, serviceID uint, stars int) *gorm.DB {
	return db.Model(&models.Service{}).Where("id = ?", serviceID).Updates(map[string]interface{}{
		"rating_average": gorm.Expr("(rating_average * rating_count + ?) / (rating_count + 1)", stars),
		"rating_count":   gorm.Expr("rating_count + 1"),
	})
}
