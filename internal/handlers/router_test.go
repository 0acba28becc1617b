package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tour-booking/internal/config"
	"tour-booking/internal/logger"
	"tour-booking/internal/models"
	"tour-booking/internal/services"
	"tour-booking/internal/storage"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type envelope struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
	Errors  []struct {
		Field   string `json:"field"`
		Message string `json:"message"`
	} `json:"errors"`
}

type testAPI struct {
	t      *testing.T
	router *gin.Engine
	store  *storage.InMemoryStore
	svc    *services.Services
	tour   *models.Tour
}

func newTestAPI(t *testing.T) *testAPI {
	t.Helper()
	cfg := &config.Config{
		App:       config.AppConfig{Name: "tour-booking", Environment: "test", Version: "test"},
		JWT:       config.JWTConfig{Secret: "handler-test-secret", TTL: time.Hour, Issuer: "test"},
		RateLimit: config.RateLimitConfig{RequestsPerSecond: 1000, Burst: 1000},
		CORS:      config.CORSConfig{AllowedOrigins: []string{"*"}},
	}
	log := logger.NewNop()
	store := storage.NewInMemoryStore()
	svc := services.New(services.Deps{Store: store, JWT: cfg.JWT, AppName: "Tour Booking", Log: log})

	ctx := context.Background()
	city := &models.City{Name: "Bergen", Country: "Norway"}
	require.NoError(t, store.CreateCity(ctx, city))
	cat := &models.Category{Name: "Cruise"}
	require.NoError(t, store.CreateCategory(ctx, cat))
	premium := 500.0
	tour := &models.Tour{
		CityID: city.ID, CategoryID: cat.ID, Name: "Fjord Cruise", DurationDays: 3,
		PriceStandard: 300, PricePremium: &premium, MaxGuests: 10, IsActive: true, Images: models.StringList{},
	}
	require.NoError(t, store.CreateTour(ctx, tour))

	router := NewRouter(RouterDeps{Config: cfg, Services: svc, Health: store, Log: log})
	return &testAPI{t: t, router: router, store: store, svc: svc, tour: tour}
}

func (a *testAPI) do(method, path, token string, body interface{}) (*httptest.ResponseRecorder, envelope) {
	a.t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(a.t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	a.router.ServeHTTP(w, req)

	var env envelope
	if strings.HasPrefix(w.Header().Get("Content-Type"), "application/json") {
		require.NoError(a.t, json.Unmarshal(w.Body.Bytes(), &env), w.Body.String())
	}
	return w, env
}

func (a *testAPI) register(email string) string {
	a.t.Helper()
	w, env := a.do(http.MethodPost, "/api/auth/register", "", gin.H{
		"email": email, "password": "secret123", "first_name": "Test", "last_name": "User",
	})
	require.Equal(a.t, http.StatusCreated, w.Code, w.Body.String())
	var auth models.AuthResponse
	require.NoError(a.t, json.Unmarshal(env.Data, &auth))
	return auth.Token
}

func (a *testAPI) admin() string {
	a.t.Helper()
	_, err := a.svc.Auth.CreateAdmin(context.Background(), "admin@example.com", "adminpass", "Ada", "Admin")
	require.NoError(a.t, err)
	w, env := a.do(http.MethodPost, "/api/auth/login", "", gin.H{"email": "admin@example.com", "password": "adminpass"})
	require.Equal(a.t, http.StatusOK, w.Code)
	var auth models.AuthResponse
	require.NoError(a.t, json.Unmarshal(env.Data, &auth))
	return auth.Token
}

func decodeData(t *testing.T, env envelope, v interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(env.Data, v))
}

func TestBookingAndPaymentFlow(t *testing.T) {
	api := newTestAPI(t)
	token := api.register("client@example.com")

	w, env := api.do(http.MethodPost, "/api/bookings", token, gin.H{
		"tour_id": api.tour.ID, "start_date": "2025-06-01", "guests": 4, "tier": "premium",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var booking models.Booking
	decodeData(t, env, &booking)
	assert.Equal(t, 2000.0, booking.TotalPrice)
	assert.Equal(t, "2025-06-04", booking.EndDate.String())
	assert.Equal(t, models.BookingPending, booking.Status)

	paymentPath := fmt.Sprintf("/api/bookings/%d/payment", booking.ID)
	w, env = api.do(http.MethodPost, paymentPath, token, gin.H{"method": "cash"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var result models.PaymentResult
	decodeData(t, env, &result)
	assert.Equal(t, models.BookingConfirmed, result.Booking.Status)
	assert.Equal(t, 2000.0, result.Payment.Amount)

	w, env = api.do(http.MethodPost, paymentPath, token, gin.H{"method": "cash"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.False(t, env.Success)
	assert.Equal(t, "Booking has already been paid", env.Message)

	w, env = api.do(http.MethodGet, paymentPath, token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var payment models.Payment
	decodeData(t, env, &payment)
	assert.Equal(t, result.Payment.ID, payment.ID)

	w, _ = api.do(http.MethodDelete, fmt.Sprintf("/api/bookings/%d", booking.ID), token, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code, "confirmed bookings cannot be cancelled by their owner")
}

func TestBookingValidation(t *testing.T) {
	api := newTestAPI(t)
	token := api.register("client@example.com")

	w, env := api.do(http.MethodPost, "/api/bookings", token, gin.H{
		"tour_id": api.tour.ID, "start_date": "2025-06-01", "guests": 11,
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, env.Message, "Maximum 10 guests")

	w, env = api.do(http.MethodPost, "/api/bookings", token, gin.H{"start_date": "2025-06-01"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.NotEmpty(t, env.Errors)

	w, _ = api.do(http.MethodPost, "/api/bookings", "", gin.H{"tour_id": api.tour.ID})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestBookingOwnershipGuard(t *testing.T) {
	api := newTestAPI(t)
	owner := api.register("owner@example.com")
	stranger := api.register("stranger@example.com")
	admin := api.admin()

	_, env := api.do(http.MethodPost, "/api/bookings", owner, gin.H{
		"tour_id": api.tour.ID, "start_date": "2025-06-01", "guests": 2,
	})
	var booking models.Booking
	decodeData(t, env, &booking)
	path := fmt.Sprintf("/api/bookings/%d", booking.ID)

	w, _ := api.do(http.MethodGet, path, stranger, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w, _ = api.do(http.MethodGet, path, admin, nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w, _ = api.do(http.MethodGet, "/api/bookings/999", owner, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w, env = api.do(http.MethodGet, "/api/bookings", stranger, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var page struct {
		Items      []models.Booking  `json:"items"`
		Pagination models.Pagination `json:"pagination"`
	}
	decodeData(t, env, &page)
	assert.Zero(t, page.Pagination.Total)

	w, _ = api.do(http.MethodGet, "/api/bookings/stats", owner, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)
	w, _ = api.do(http.MethodGet, "/api/bookings/stats", admin, nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w, env = api.do(http.MethodDelete, path, admin, nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Booking deleted", env.Message)
}

func TestReviewRoutes(t *testing.T) {
	api := newTestAPI(t)
	token := api.register("client@example.com")

	body := gin.H{"tour_id": api.tour.ID, "rating": 4, "comment": "Lovely"}
	w, _ := api.do(http.MethodPost, "/api/reviews", token, body)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w, env := api.do(http.MethodPost, "/api/reviews", token, body)
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "You have already reviewed this tour", env.Message)

	w, env = api.do(http.MethodGet, "/api/reviews/my", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, string(env.Data), `"total":1`)

	w, env = api.do(http.MethodGet, "/api/reviews", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, string(env.Data), `"total":0`, "unverified reviews wait for moderation")
}

func TestCatalogRoutes(t *testing.T) {
	api := newTestAPI(t)
	admin := api.admin()
	client := api.register("client@example.com")

	w, _ := api.do(http.MethodPost, "/api/cities", client, gin.H{"name": "Oslo", "country": "Norway"})
	assert.Equal(t, http.StatusForbidden, w.Code)

	w, _ = api.do(http.MethodPost, "/api/cities", admin, gin.H{"name": "Oslo", "country": "Norway"})
	assert.Equal(t, http.StatusCreated, w.Code)

	w, _ = api.do(http.MethodPost, "/api/cities", admin, gin.H{"name": "Oslo", "country": "Norway"})
	assert.Equal(t, http.StatusConflict, w.Code)

	w, _ = api.do(http.MethodDelete, fmt.Sprintf("/api/cities/%d", api.tour.CityID), admin, nil)
	assert.Equal(t, http.StatusConflict, w.Code)

	w, env := api.do(http.MethodGet, "/api/tours?sort=price_asc&limit=500", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, string(env.Data), `"limit":100`)

	w, _ = api.do(http.MethodGet, "/api/tours?city_id=abc", "", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestExportRoutes(t *testing.T) {
	api := newTestAPI(t)
	admin := api.admin()
	client := api.register("client@example.com")
	_, env := api.do(http.MethodPost, "/api/bookings", client, gin.H{
		"tour_id": api.tour.ID, "start_date": "2025-06-01", "guests": 2,
	})
	var booking models.Booking
	decodeData(t, env, &booking)

	w, _ := api.do(http.MethodGet, "/api/export/bookings/csv", admin, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, contentTypeCSV, w.Header().Get("Content-Type"))
	assert.Contains(t, w.Header().Get("Content-Disposition"), "bookings_")
	assert.True(t, strings.HasPrefix(w.Body.String(), "ID,Tour,City"))

	w, _ = api.do(http.MethodGet, "/api/export/bookings/excel", client, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w, _ = api.do(http.MethodGet, fmt.Sprintf("/api/export/booking/%d/invoice", booking.ID), client, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, contentTypePDF, w.Header().Get("Content-Type"))
	assert.True(t, bytes.HasPrefix(w.Body.Bytes(), []byte("%PDF-")))
}

func TestHealthAndAuth(t *testing.T) {
	api := newTestAPI(t)

	w, _ := api.do(http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	token := api.register("client@example.com")
	w, _ = api.do(http.MethodPost, "/api/auth/register", "", gin.H{
		"email": "client@example.com", "password": "secret123", "first_name": "A", "last_name": "B",
	})
	assert.Equal(t, http.StatusConflict, w.Code)

	w, _ = api.do(http.MethodPost, "/api/auth/login", "", gin.H{"email": "client@example.com", "password": "wrongpass"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w, env := api.do(http.MethodGet, "/api/auth/me", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.NotContains(t, string(env.Data), "password")

	w, _ = api.do(http.MethodGet, "/api/users", token, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w, _ = api.do(http.MethodGet, "/api/nowhere", "", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}
