package routes

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	qt "github.com/frankban/quicktest"
	"github.com/gin-gonic/gin"
	"github.com/juju/clock"

	"home-services-server/cache"
	"home-services-server/config"
	"home-services-server/middleware"
	"home-services-server/models"
	"home-services-server/payment"
	"home-services-server/services"
	"home-services-server/store/memstore"
	"home-services-server/websocket"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type recordingPusher struct {
	mu       sync.Mutex
	messages map[uint][]string
}

func (p *recordingPusher) SendToUser(accountID uint, message *websocket.Message) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.messages == nil {
		p.messages = make(map[uint][]string)
	}
	p.messages[accountID] = append(p.messages[accountID], message.Type)
}

func (p *recordingPusher) sent(accountID uint) []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.messages[accountID]...)
}

type fakeGateway struct {
	orders int
}

func (g *fakeGateway) CreateOrder(_ context.Context, amount int64, currency, receipt string) (*payment.Order, error) {
	g.orders++
	return &payment.Order{ID: fmt.Sprintf("order_%d", g.orders), Amount: amount, Currency: currency, Receipt: receipt}, nil
}

type fakeUploader struct{}

func (fakeUploader) UploadImage(_ context.Context, file io.Reader, folder, name string) (string, error) {
	if _, err := io.ReadAll(file); err != nil {
		return "", err
	}
	return "https://cdn.example.com/" + folder + "/" + name + ".png", nil
}

// mapCache is a ServiceCache that actually stores entries, so a missed
// invalidation shows up as a stale read.
type mapCache struct {
	mu      sync.Mutex
	entries map[uint]models.Service
}

var _ cache.ServiceCache = (*mapCache)(nil)

func (m *mapCache) GetService(_ context.Context, id uint) (*models.Service, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	service, ok := m.entries[id]
	if !ok {
		return nil, false
	}
	return &service, true
}

func (m *mapCache) SetService(_ context.Context, service *models.Service) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.entries == nil {
		m.entries = make(map[uint]models.Service)
	}
	m.entries[service.ID] = *service
}

func (m *mapCache) InvalidateService(_ context.Context, id uint) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.entries, id)
}

func (m *mapCache) cached(id uint) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.entries[id]
	return ok
}

// pingStore is a memory store that reports on its connectivity
type pingStore struct {
	*memstore.Store
	err error
}

func (p pingStore) Ping(context.Context) error {
	return p.err
}

type testServer struct {
	c        *qt.C
	router   *gin.Engine
	pusher   *recordingPusher
	notifier *services.Notifier
	cache    *mapCache
}

func newTestServer(c *qt.C, options ...func(*Dependencies)) *testServer {
	cfg := &config.Config{
		Server:  config.ServerConfig{Env: "test", AllowedOrigins: []string{"*"}},
		Payment: config.PaymentConfig{KeyID: "rzp_test_key", KeySecret: "rzp_secret", Currency: "INR"},
	}
	pusher := &recordingPusher{}
	notifier := services.NewNotifier(pusher, services.LogMailer{})
	serviceCache := &mapCache{}
	deps := Dependencies{
		Store:    memstore.New(),
		Tokens:   services.NewJWTService("test-secret", time.Hour),
		Notifier: notifier,
		Cache:    serviceCache,
		Uploader: fakeUploader{},
		Gateway:  &fakeGateway{},
		Hub:      websocket.NewHub(),
		Limiter:  middleware.NewRateLimiter(clock.WallClock),
		Config:   cfg,
	}
	for _, option := range options {
		option(&deps)
	}
	router := NewRouter(deps)
	c.Cleanup(notifier.Wait)
	return &testServer{c: c, router: router, pusher: pusher, notifier: notifier, cache: serviceCache}
}

func (s *testServer) do(method, path, token string, body interface{}) *httptest.ResponseRecorder {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		s.c.Assert(err, qt.IsNil)
		reader = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

// expect asserts the status and decodes the body into out
func (s *testServer) expect(w *httptest.ResponseRecorder, status int, out interface{}) {
	s.c.Helper()
	s.c.Assert(w.Code, qt.Equals, status, qt.Commentf("body: %s", w.Body.String()))
	if out != nil {
		s.c.Assert(json.Unmarshal(w.Body.Bytes(), out), qt.IsNil)
	}
}

type accountJSON struct {
	ID   uint   `json:"id"`
	Role string `json:"role"`
}

func (s *testServer) register(name, email, role string) (string, uint) {
	var resp struct {
		Token string      `json:"token"`
		User  accountJSON `json:"user"`
	}
	s.expect(s.do(http.MethodPost, "/api/auth/register", "", map[string]interface{}{
		"name": name, "email": email, "password": "secret123", "phone": "555-0100", "role": role,
	}), http.StatusCreated, &resp)
	return resp.Token, resp.User.ID
}

type serviceJSON struct {
	ID           uint     `json:"id"`
	Name         string   `json:"name"`
	Category     string   `json:"category"`
	Price        float64  `json:"price"`
	Duration     int      `json:"duration"`
	Image        string   `json:"image"`
	ProviderID   uint     `json:"providerId"`
	Distance     *float64 `json:"distance"`
	Rating       struct {
		Average float64 `json:"average"`
		Count   int     `json:"count"`
	} `json:"rating"`
	Availability struct {
		IsAvailable bool              `json:"isAvailable"`
		Schedule    []json.RawMessage `json:"schedule"`
	} `json:"availability"`
	Provider *struct {
		Name  string `json:"name"`
		Email string `json:"email"`
	} `json:"provider"`
}

func serviceBody(name, category string, price float64, duration int, lng, lat float64) map[string]interface{} {
	return map[string]interface{}{
		"name":        name,
		"category":    category,
		"description": name + " at your door",
		"price":       price,
		"duration":    duration,
		"location":    map[string]interface{}{"type": "Point", "coordinates": []float64{lng, lat}},
		"availability": []map[string]interface{}{
			{"day": "monday", "slots": []map[string]string{{"startTime": "09:00", "endTime": "12:00"}}},
		},
	}
}

func (s *testServer) createService(token string, body map[string]interface{}) serviceJSON {
	var svc serviceJSON
	s.expect(s.do(http.MethodPost, "/api/services", token, body), http.StatusCreated, &svc)
	return svc
}

type bookingJSON struct {
	ID         uint   `json:"id"`
	UserID     uint   `json:"userId"`
	ProviderID uint   `json:"providerId"`
	ServiceID  uint   `json:"serviceId"`
	Status     string `json:"status"`
	Payment    struct {
		Amount        float64 `json:"amount"`
		Status        string  `json:"status"`
		OrderID       string  `json:"orderId"`
		TransactionID string  `json:"transactionId"`
	} `json:"payment"`
	Service  *serviceJSON `json:"service"`
	User     *accountJSON `json:"user"`
	Provider *accountJSON `json:"provider"`
}

func (s *testServer) book(token string, serviceID uint) bookingJSON {
	var booking bookingJSON
	s.expect(s.do(http.MethodPost, "/api/bookings", token, map[string]interface{}{
		"serviceId":     serviceID,
		"scheduledDate": "2026-11-02T10:00:00Z",
	}), http.StatusCreated, &booking)
	return booking
}

func (s *testServer) setStatus(token string, bookingID uint, status string) *httptest.ResponseRecorder {
	return s.do(http.MethodPut, fmt.Sprintf("/api/bookings/%d/status", bookingID), token, map[string]string{"status": status})
}

func (s *testServer) uploadImage(token string, serviceID uint, filename string) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	form := multipart.NewWriter(&buf)
	part, err := form.CreateFormFile("image", filename)
	s.c.Assert(err, qt.IsNil)
	_, err = part.Write([]byte("\x89PNG\r\n\x1a\nfake"))
	s.c.Assert(err, qt.IsNil)
	s.c.Assert(form.Close(), qt.IsNil)

	req := httptest.NewRequest(http.MethodPut, fmt.Sprintf("/api/services/%d/image", serviceID), &buf)
	req.Header.Set("Content-Type", form.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func messageOf(c *qt.C, w *httptest.ResponseRecorder) string {
	var body struct {
		Message string `json:"message"`
	}
	c.Assert(json.Unmarshal(w.Body.Bytes(), &body), qt.IsNil)
	return body.Message
}

func TestHealth(t *testing.T) {
	c := qt.New(t)
	s := newTestServer(c)

	var body map[string]string
	s.expect(s.do(http.MethodGet, "/health", "", nil), http.StatusOK, &body)
	c.Assert(body["status"], qt.Equals, "ok")
}

func TestHealthPingsStore(t *testing.T) {
	c := qt.New(t)
	for _, test := range []struct {
		err    error
		status int
	}{
		{nil, http.StatusOK},
		{fmt.Errorf("connection refused"), http.StatusServiceUnavailable},
	} {
		s := newTestServer(c, func(deps *Dependencies) {
			deps.Store = pingStore{Store: memstore.New(), err: test.err}
		})
		s.expect(s.do(http.MethodGet, "/health", "", nil), test.status, nil)
	}
}

func TestUnknownRouteUsesErrorBody(t *testing.T) {
	c := qt.New(t)
	s := newTestServer(c)

	w := s.do(http.MethodGet, "/api/nope", "", nil)
	s.expect(w, http.StatusNotFound, nil)
	c.Assert(messageOf(c, w), qt.Equals, "route GET /api/nope not found")

	w = s.do(http.MethodDelete, "/api/auth/login", "", nil)
	s.expect(w, http.StatusNotFound, nil)
	c.Assert(messageOf(c, w), qt.Equals, "route DELETE /api/auth/login not found")
}

func TestPanicUsesErrorBody(t *testing.T) {
	c := qt.New(t)
	s := newTestServer(c)
	s.router.GET("/api/panic", func(*gin.Context) { panic("nil pointer") })

	w := s.do(http.MethodGet, "/api/panic", "", nil)
	s.expect(w, http.StatusInternalServerError, nil)
	c.Assert(messageOf(c, w), qt.Equals, "internal server error")
	c.Assert(w.Header().Get("X-Request-ID"), qt.Not(qt.Equals), "")
	c.Assert(w.Header().Get("X-Content-Type-Options"), qt.Equals, "nosniff")
}

func TestOversizedBodyIsRejected(t *testing.T) {
	c := qt.New(t)
	s := newTestServer(c)

	// no Content-Length, so the limit is hit while decoding
	body := io.MultiReader(
		strings.NewReader(`{"name":"`),
		strings.NewReader(strings.Repeat("a", maxRequestBody)),
		strings.NewReader(`"}`),
	)
	req := httptest.NewRequest(http.MethodPost, "/api/auth/register", body)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)

	s.expect(w, http.StatusRequestEntityTooLarge, nil)
	c.Assert(messageOf(c, w), qt.Equals, "http: request body too large")
}

func TestBookingLifecycle(t *testing.T) {
	c := qt.New(t)
	s := newTestServer(c)

	providerToken, providerID := s.register("Priya Plumber", "priya@example.com", "provider")
	svc := s.createService(providerToken, serviceBody("Leak repair", "plumbing", 500, 60, 77.59, 12.97))
	c.Assert(svc.ProviderID, qt.Equals, providerID)
	c.Assert(svc.Price, qt.Equals, 500.0)
	c.Assert(svc.Duration, qt.Equals, 60)
	c.Assert(svc.Availability.IsAvailable, qt.IsTrue)
	c.Assert(svc.Availability.Schedule, qt.HasLen, 1)

	userToken, userID := s.register("Uma User", "uma@example.com", "")
	booking := s.book(userToken, svc.ID)
	c.Assert(booking.UserID, qt.Equals, userID)
	c.Assert(booking.ProviderID, qt.Equals, providerID)
	c.Assert(booking.Status, qt.Equals, "pending")
	c.Assert(booking.Payment.Amount, qt.Equals, 500.0)
	c.Assert(booking.Payment.Status, qt.Equals, "pending")
	c.Assert(s.pusher.sent(providerID), qt.DeepEquals, []string{websocket.TypeBookingCreated})

	var providerBookings []bookingJSON
	s.expect(s.do(http.MethodGet, "/api/bookings/provider", providerToken, nil), http.StatusOK, &providerBookings)
	c.Assert(providerBookings, qt.HasLen, 1)
	c.Assert(providerBookings[0].Status, qt.Equals, "pending")
	c.Assert(providerBookings[0].User.ID, qt.Equals, userID)
	c.Assert(providerBookings[0].Service.Name, qt.Equals, "Leak repair")

	s.expect(s.setStatus(providerToken, booking.ID, "completed"), http.StatusOK, nil)
	c.Assert(s.pusher.sent(userID), qt.DeepEquals, []string{websocket.TypeBookingStatus})

	var userBookings []bookingJSON
	s.expect(s.do(http.MethodGet, "/api/bookings/user", userToken, nil), http.StatusOK, &userBookings)
	c.Assert(userBookings, qt.HasLen, 1)
	c.Assert(userBookings[0].Status, qt.Equals, "completed")
	c.Assert(userBookings[0].Provider.ID, qt.Equals, providerID)

	// Transitions are not restricted to forward moves.
	var reopened bookingJSON
	s.expect(s.setStatus(providerToken, booking.ID, "pending"), http.StatusOK, &reopened)
	c.Assert(reopened.Status, qt.Equals, "pending")

	w := s.setStatus(providerToken, booking.ID, "in_progress")
	s.expect(w, http.StatusBadRequest, nil)
}

func TestBookingRequiresMatchingProviderAndService(t *testing.T) {
	c := qt.New(t)
	s := newTestServer(c)

	providerToken, providerID := s.register("Pat", "pat@example.com", "provider")
	svc := s.createService(providerToken, serviceBody("Deep clean", "cleaning", 80, 120, 0, 0))
	userToken, _ := s.register("Uma", "uma@example.com", "user")

	w := s.do(http.MethodPost, "/api/bookings", userToken, map[string]interface{}{
		"serviceId": 999, "scheduledDate": "2026-11-02T10:00:00Z",
	})
	s.expect(w, http.StatusNotFound, nil)
	c.Assert(messageOf(c, w), qt.Equals, "service not found")

	w = s.do(http.MethodPost, "/api/bookings", userToken, map[string]interface{}{
		"serviceId": svc.ID, "providerId": providerID + 100, "scheduledDate": "2026-11-02T10:00:00Z",
	})
	s.expect(w, http.StatusBadRequest, nil)

	s.expect(s.do(http.MethodPost, "/api/bookings", userToken, map[string]interface{}{
		"serviceId": svc.ID, "providerId": providerID, "scheduledDate": "2026-11-02T10:00:00Z",
	}), http.StatusCreated, nil)

	s.expect(s.do(http.MethodPost, "/api/bookings", "", map[string]interface{}{
		"serviceId": svc.ID, "scheduledDate": "2026-11-02T10:00:00Z",
	}), http.StatusUnauthorized, nil)
}

func TestBookingsAreScopedToCaller(t *testing.T) {
	c := qt.New(t)
	s := newTestServer(c)

	providerToken, _ := s.register("Pat", "pat@example.com", "provider")
	otherProviderToken, _ := s.register("Quinn", "quinn@example.com", "provider")
	svc := s.createService(providerToken, serviceBody("Fuse box", "electrical", 300, 45, 0, 0))
	userToken, _ := s.register("Uma", "uma@example.com", "user")
	otherUserToken, _ := s.register("Vic", "vic@example.com", "user")
	booking := s.book(userToken, svc.ID)

	var list []bookingJSON
	s.expect(s.do(http.MethodGet, "/api/bookings/user", otherUserToken, nil), http.StatusOK, &list)
	c.Assert(list, qt.HasLen, 0)
	s.expect(s.do(http.MethodGet, "/api/bookings/provider", otherProviderToken, nil), http.StatusOK, &list)
	c.Assert(list, qt.HasLen, 0)

	s.expect(s.do(http.MethodGet, "/api/bookings/provider", userToken, nil), http.StatusForbidden, nil)
	s.expect(s.setStatus(userToken, booking.ID, "confirmed"), http.StatusForbidden, nil)
	s.expect(s.setStatus(otherProviderToken, booking.ID, "confirmed"), http.StatusNotFound, nil)
	s.expect(s.setStatus(providerToken, 999, "confirmed"), http.StatusNotFound, nil)
}

func TestAuthErrors(t *testing.T) {
	c := qt.New(t)
	s := newTestServer(c)
	s.register("Uma", "uma@example.com", "user")

	w := s.do(http.MethodPost, "/api/auth/register", "", map[string]string{
		"name": "Uma 2", "email": "UMA@example.com", "password": "secret123", "phone": "1",
	})
	s.expect(w, http.StatusConflict, nil)

	s.expect(s.do(http.MethodPost, "/api/auth/register", "", map[string]string{
		"name": "Root", "email": "root@example.com", "password": "secret123", "phone": "1", "role": "admin",
	}), http.StatusBadRequest, nil)
	s.expect(s.do(http.MethodPost, "/api/auth/register", "", map[string]string{
		"name": "Short", "email": "short@example.com", "password": "123", "phone": "1",
	}), http.StatusBadRequest, nil)

	wrongPassword := s.do(http.MethodPost, "/api/auth/login", "", map[string]string{"email": "uma@example.com", "password": "nope12"})
	s.expect(wrongPassword, http.StatusUnauthorized, nil)
	unknown := s.do(http.MethodPost, "/api/auth/login", "", map[string]string{"email": "ghost@example.com", "password": "nope12"})
	s.expect(unknown, http.StatusUnauthorized, nil)
	c.Assert(messageOf(c, wrongPassword), qt.Equals, messageOf(c, unknown))

	var resp struct {
		Token string `json:"token"`
		User  struct {
			Email    string `json:"email"`
			Password string `json:"password"`
		} `json:"user"`
	}
	s.expect(s.do(http.MethodPost, "/api/auth/login", "", map[string]string{"email": " Uma@Example.com ", "password": "secret123"}), http.StatusOK, &resp)
	c.Assert(resp.Token, qt.Not(qt.Equals), "")
	c.Assert(resp.User.Email, qt.Equals, "uma@example.com")
	c.Assert(resp.User.Password, qt.Equals, "")
}

func TestProfile(t *testing.T) {
	c := qt.New(t)
	s := newTestServer(c)
	token, _ := s.register("Uma", "uma@example.com", "user")

	var me struct {
		Name  string `json:"name"`
		Phone string `json:"phone"`
	}
	s.expect(s.do(http.MethodPut, "/api/users/me", token, map[string]string{"phone": "555-0199"}), http.StatusOK, &me)
	c.Assert(me.Name, qt.Equals, "Uma")
	c.Assert(me.Phone, qt.Equals, "555-0199")

	s.expect(s.do(http.MethodGet, "/api/users/me", token, nil), http.StatusOK, &me)
	c.Assert(me.Phone, qt.Equals, "555-0199")

	s.expect(s.do(http.MethodGet, "/api/users/me", "", nil), http.StatusUnauthorized, nil)
}

func TestServiceOwnership(t *testing.T) {
	c := qt.New(t)
	s := newTestServer(c)

	ownerToken, _ := s.register("Pat", "pat@example.com", "provider")
	intruderToken, _ := s.register("Quinn", "quinn@example.com", "provider")
	userToken, _ := s.register("Uma", "uma@example.com", "user")
	svc := s.createService(ownerToken, serviceBody("Carpentry", "carpenter", 200, 90, 0, 0))
	path := fmt.Sprintf("/api/services/%d", svc.ID)

	foreign := s.do(http.MethodPut, path, intruderToken, map[string]interface{}{"price": 1})
	s.expect(foreign, http.StatusNotFound, nil)
	missing := s.do(http.MethodPut, "/api/services/999", intruderToken, map[string]interface{}{"price": 1})
	s.expect(missing, http.StatusNotFound, nil)
	c.Assert(foreign.Body.String(), qt.Equals, missing.Body.String())
	c.Assert(messageOf(c, foreign), qt.Equals, "service not found")

	s.expect(s.do(http.MethodDelete, path, intruderToken, nil), http.StatusNotFound, nil)
	s.expect(s.do(http.MethodPost, "/api/services", userToken, serviceBody("x", "cleaning", 1, 1, 0, 0)), http.StatusForbidden, nil)

	var updated serviceJSON
	s.expect(s.do(http.MethodPut, path, ownerToken, map[string]interface{}{
		"price": 250.5, "duration": 30, "category": "mechanic",
	}), http.StatusOK, &updated)
	c.Assert(updated.Price, qt.Equals, 250.5)
	c.Assert(updated.Duration, qt.Equals, 30)
	c.Assert(updated.Category, qt.Equals, "mechanic")
	c.Assert(updated.Name, qt.Equals, "Carpentry")

	var fetched serviceJSON
	s.expect(s.do(http.MethodGet, path, "", nil), http.StatusOK, &fetched)
	c.Assert(fetched.Price, qt.Equals, 250.5)
	c.Assert(fetched.Provider.Name, qt.Equals, "Pat")

	var mine []serviceJSON
	s.expect(s.do(http.MethodGet, "/api/services/provider/services", ownerToken, nil), http.StatusOK, &mine)
	c.Assert(mine, qt.HasLen, 1)
	s.expect(s.do(http.MethodGet, "/api/services/provider/services", intruderToken, nil), http.StatusOK, &mine)
	c.Assert(mine, qt.HasLen, 0)

	var deleted map[string]string
	s.expect(s.do(http.MethodDelete, path, ownerToken, nil), http.StatusOK, &deleted)
	c.Assert(deleted["message"], qt.Equals, "Service deleted successfully")
	s.expect(s.do(http.MethodGet, path, "", nil), http.StatusNotFound, nil)
}

func TestServiceValidation(t *testing.T) {
	c := qt.New(t)
	s := newTestServer(c)
	token, _ := s.register("Pat", "pat@example.com", "provider")

	for _, body := range []map[string]interface{}{
		serviceBody("Negative", "cleaning", -1, 60, 0, 0),
		serviceBody("No time", "cleaning", 10, 0, 0, 0),
		serviceBody("Gardening", "gardening", 10, 60, 0, 0),
		serviceBody("Off the map", "cleaning", 10, 60, 0, 95),
	} {
		s.expect(s.do(http.MethodPost, "/api/services", token, body), http.StatusBadRequest, nil)
	}

	badSlot := serviceBody("Late", "cleaning", 10, 60, 0, 0)
	badSlot["availability"] = []map[string]interface{}{
		{"day": "monday", "slots": []map[string]string{{"startTime": "12:00", "endTime": "09:00"}}},
	}
	s.expect(s.do(http.MethodPost, "/api/services", token, badSlot), http.StatusBadRequest, nil)

	free := s.createService(token, serviceBody("Free advice", "doctor", 0, 15, 0, 0))
	c.Assert(free.Price, qt.Equals, 0.0)

	s.expect(s.do(http.MethodGet, "/api/services?maxPrice=cheap", "", nil), http.StatusBadRequest, nil)
	s.expect(s.do(http.MethodGet, "/api/services?location=1,2&radius=-3", "", nil), http.StatusBadRequest, nil)
}

func TestServiceListing(t *testing.T) {
	c := qt.New(t)
	s := newTestServer(c)
	token, _ := s.register("Pat", "pat@example.com", "provider")

	near := s.createService(token, serviceBody("Near clean", "cleaning", 100, 60, 77.5946, 12.9716))
	far := s.createService(token, serviceBody("Far clean", "cleaning", 50, 60, 72.8777, 19.0760))
	hidden := s.createService(token, serviceBody("Hidden cook", "cooking", 40, 60, 77.5950, 12.9720))

	var svc serviceJSON
	s.expect(s.do(http.MethodPatch, fmt.Sprintf("/api/services/%d/availability", hidden.ID), token, map[string]interface{}{
		"isAvailable": false,
	}), http.StatusOK, &svc)
	c.Assert(svc.Availability.IsAvailable, qt.IsFalse)
	c.Assert(svc.Availability.Schedule, qt.HasLen, 1)

	var all []serviceJSON
	s.expect(s.do(http.MethodGet, "/api/services", "", nil), http.StatusOK, &all)
	c.Assert(all, qt.HasLen, 2)
	for _, item := range all {
		c.Assert(item.ID, qt.Not(qt.Equals), hidden.ID)
		c.Assert(item.Availability.Schedule, qt.HasLen, 0)
		c.Assert(item.Provider, qt.Not(qt.IsNil))
	}

	// Hidden services are still reachable directly.
	s.expect(s.do(http.MethodGet, fmt.Sprintf("/api/services/%d", hidden.ID), "", nil), http.StatusOK, nil)

	var cheap []serviceJSON
	s.expect(s.do(http.MethodGet, "/api/services?category=cleaning&maxPrice=60", "", nil), http.StatusOK, &cheap)
	c.Assert(cheap, qt.HasLen, 1)
	c.Assert(cheap[0].ID, qt.Equals, far.ID)

	var nearby []serviceJSON
	s.expect(s.do(http.MethodGet, "/api/services?location=77.59,12.97&radius=10", "", nil), http.StatusOK, &nearby)
	c.Assert(nearby, qt.HasLen, 1)
	c.Assert(nearby[0].ID, qt.Equals, near.ID)
	c.Assert(nearby[0].Distance, qt.Not(qt.IsNil))
	c.Assert(*nearby[0].Distance < 10000, qt.IsTrue)

	var rated []serviceJSON
	s.expect(s.do(http.MethodGet, "/api/services?minRating=1", "", nil), http.StatusOK, &rated)
	c.Assert(rated, qt.HasLen, 0)
}

func TestProviders(t *testing.T) {
	c := qt.New(t)
	s := newTestServer(c)
	token, providerID := s.register("Pat", "pat@example.com", "provider")
	s.register("Quinn", "quinn@example.com", "provider")
	userToken, _ := s.register("Uma", "uma@example.com", "user")
	s.createService(token, serviceBody("Laundry", "laundry", 20, 30, 0, 0))

	var providers []struct {
		ID       uint              `json:"id"`
		Services []json.RawMessage `json:"services"`
	}
	s.expect(s.do(http.MethodGet, "/api/providers", "", nil), http.StatusOK, &providers)
	c.Assert(providers, qt.HasLen, 2)
	c.Assert(providers[0].ID, qt.Equals, providerID)
	c.Assert(providers[0].Services, qt.HasLen, 1)
	c.Assert(providers[1].Services, qt.HasLen, 0)

	s.expect(s.do(http.MethodGet, "/api/providers/nearby", "", nil), http.StatusBadRequest, nil)

	s.expect(s.do(http.MethodPut, "/api/providers/availability", userToken, map[string]interface{}{}), http.StatusForbidden, nil)
	s.expect(s.do(http.MethodPut, "/api/providers/availability", token, map[string]interface{}{
		"location": map[string]interface{}{"coordinates": []float64{77.59, 12.97}},
		"availability": []map[string]interface{}{
			{"day": "tuesday", "slots": []map[string]string{{"startTime": "08:00", "endTime": "10:00"}}},
		},
	}), http.StatusOK, nil)

	s.expect(s.do(http.MethodGet, "/api/providers/nearby?location=77.6,12.97&radius=5", "", nil), http.StatusOK, &providers)
	c.Assert(providers, qt.HasLen, 1)
	c.Assert(providers[0].ID, qt.Equals, providerID)
}

func TestPayments(t *testing.T) {
	c := qt.New(t)
	s := newTestServer(c)

	providerToken, providerID := s.register("Pat", "pat@example.com", "provider")
	svc := s.createService(providerToken, serviceBody("Tune up", "mechanic", 499.99, 60, 0, 0))
	userToken, _ := s.register("Uma", "uma@example.com", "user")
	otherToken, _ := s.register("Vic", "vic@example.com", "user")
	booking := s.book(userToken, svc.ID)
	paymentPath := fmt.Sprintf("/api/bookings/%d/payment", booking.ID)

	s.expect(s.do(http.MethodPost, paymentPath, otherToken, nil), http.StatusNotFound, nil)

	var order OrderResponse
	s.expect(s.do(http.MethodPost, paymentPath, userToken, nil), http.StatusOK, &order)
	c.Assert(order.Receipt, qt.HasLen, 36)
	c.Assert(order, qt.DeepEquals, OrderResponse{OrderID: "order_1", Amount: 49999, Currency: "INR", KeyID: "rzp_test_key", Receipt: order.Receipt})

	s.expect(s.do(http.MethodPost, paymentPath+"/verify", userToken, map[string]string{
		"orderId": "order_other", "paymentId": "pay_1", "signature": payment.Sign("order_other", "pay_1", "rzp_secret"),
	}), http.StatusBadRequest, nil)

	s.expect(s.do(http.MethodPost, paymentPath+"/verify", userToken, map[string]string{
		"orderId": "order_1", "paymentId": "pay_1", "signature": "deadbeef",
	}), http.StatusBadRequest, nil)
	var list []bookingJSON
	s.expect(s.do(http.MethodGet, "/api/bookings/user", userToken, nil), http.StatusOK, &list)
	c.Assert(list[0].Payment.Status, qt.Equals, "failed")

	var paid bookingJSON
	s.expect(s.do(http.MethodPost, paymentPath+"/verify", userToken, map[string]string{
		"orderId": "order_1", "paymentId": "pay_1", "signature": payment.Sign("order_1", "pay_1", "rzp_secret"),
	}), http.StatusOK, &paid)
	c.Assert(paid.Payment.Status, qt.Equals, "completed")
	c.Assert(paid.Payment.TransactionID, qt.Equals, "pay_1")
	c.Assert(paid.Payment.Amount, qt.Equals, 499.99)
	c.Assert(s.pusher.sent(providerID), qt.DeepEquals, []string{websocket.TypeBookingCreated, websocket.TypePaymentCompleted})

	s.expect(s.do(http.MethodPost, paymentPath, userToken, nil), http.StatusBadRequest, nil)
}

func TestReviews(t *testing.T) {
	c := qt.New(t)
	s := newTestServer(c)

	providerToken, _ := s.register("Pat", "pat@example.com", "provider")
	svc := s.createService(providerToken, serviceBody("Dinner", "cooking", 40, 120, 0, 0))
	userToken, _ := s.register("Uma", "uma@example.com", "user")
	otherToken, _ := s.register("Vic", "vic@example.com", "user")
	booking := s.book(userToken, svc.ID)
	reviewPath := fmt.Sprintf("/api/bookings/%d/review", booking.ID)
	review := map[string]interface{}{"rating": 4, "comment": "tasty"}

	s.expect(s.do(http.MethodPost, reviewPath, userToken, review), http.StatusBadRequest, nil)
	s.expect(s.setStatus(providerToken, booking.ID, "completed"), http.StatusOK, nil)

	s.expect(s.do(http.MethodPost, reviewPath, otherToken, review), http.StatusNotFound, nil)
	s.expect(s.do(http.MethodPost, reviewPath, userToken, map[string]interface{}{"rating": 6}), http.StatusBadRequest, nil)

	var resp struct {
		Review struct {
			BookingID uint `json:"bookingId"`
			Rating    int  `json:"rating"`
		} `json:"review"`
		Rating struct {
			Average float64 `json:"average"`
			Count   int     `json:"count"`
		} `json:"rating"`
	}
	s.expect(s.do(http.MethodPost, reviewPath, userToken, review), http.StatusCreated, &resp)
	c.Assert(resp.Review.BookingID, qt.Equals, booking.ID)
	c.Assert(resp.Rating.Average, qt.Equals, 4.0)
	c.Assert(resp.Rating.Count, qt.Equals, 1)

	s.expect(s.do(http.MethodPost, reviewPath, userToken, review), http.StatusConflict, nil)

	var rated []serviceJSON
	s.expect(s.do(http.MethodGet, "/api/services?minRating=4", "", nil), http.StatusOK, &rated)
	c.Assert(rated, qt.HasLen, 1)
}

func TestServiceImageUpload(t *testing.T) {
	c := qt.New(t)
	s := newTestServer(c)
	token, _ := s.register("Pat", "pat@example.com", "provider")
	svc := s.createService(token, serviceBody("Wiring", "electrical", 90, 60, 0, 0))

	s.expect(s.uploadImage(token, svc.ID, "notes.txt"), http.StatusBadRequest, nil)

	var updated serviceJSON
	s.expect(s.uploadImage(token, svc.ID, "front.png"), http.StatusOK, &updated)
	c.Assert(updated.Image, qt.Equals, fmt.Sprintf("https://cdn.example.com/services/%d/service-%d.png", svc.ID, svc.ID))
}

func TestServiceDetailCacheStaysFresh(t *testing.T) {
	c := qt.New(t)
	s := newTestServer(c)

	providerToken, _ := s.register("Pat", "pat@example.com", "provider")
	svc := s.createService(providerToken, serviceBody("Dinner", "cooking", 40, 120, 0, 0))
	userToken, _ := s.register("Uma", "uma@example.com", "user")
	path := fmt.Sprintf("/api/services/%d", svc.ID)

	get := func() serviceJSON {
		var got serviceJSON
		s.expect(s.do(http.MethodGet, path, "", nil), http.StatusOK, &got)
		c.Assert(s.cache.cached(svc.ID), qt.IsTrue)
		return got
	}
	get()

	s.expect(s.do(http.MethodPut, path, providerToken, map[string]interface{}{"name": "Dinner for two"}), http.StatusOK, nil)
	c.Assert(get().Name, qt.Equals, "Dinner for two")

	s.expect(s.do(http.MethodPatch, path+"/availability", providerToken, map[string]interface{}{"isAvailable": false}), http.StatusOK, nil)
	c.Assert(get().Availability.IsAvailable, qt.IsFalse)

	s.expect(s.uploadImage(providerToken, svc.ID, "plate.png"), http.StatusOK, nil)
	c.Assert(get().Image, qt.Equals, fmt.Sprintf("https://cdn.example.com/services/%d/service-%d.png", svc.ID, svc.ID))

	s.expect(s.do(http.MethodPut, "/api/users/me", providerToken, map[string]interface{}{"name": "Pat the Chef"}), http.StatusOK, nil)
	c.Assert(get().Provider.Name, qt.Equals, "Pat the Chef")

	booking := s.book(userToken, svc.ID)
	s.expect(s.setStatus(providerToken, booking.ID, "completed"), http.StatusOK, nil)
	s.expect(s.do(http.MethodPost, fmt.Sprintf("/api/bookings/%d/review", booking.ID), userToken, map[string]interface{}{"rating": 5}), http.StatusCreated, nil)
	rated := get()
	c.Assert(rated.Rating.Count, qt.Equals, 1)
	c.Assert(rated.Rating.Average, qt.Equals, 5.0)

	s.expect(s.do(http.MethodDelete, path, providerToken, nil), http.StatusOK, nil)
	c.Assert(s.cache.cached(svc.ID), qt.IsFalse)
	s.expect(s.do(http.MethodGet, path, "", nil), http.StatusNotFound, nil)
}
