package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"tour-booking/internal/apperr"
	"tour-booking/internal/config"
	"tour-booking/internal/logger"
	"tour-booking/internal/models"
	"tour-booking/internal/storage"
)

type MockPublisher struct {
	mock.Mock
}

func (m *MockPublisher) PublishBookingEvent(event *models.BookingEvent) error {
	args := m.Called(event)
	return args.Error(0)
}

func (m *MockPublisher) PublishPaymentEvent(event *models.PaymentEvent) error {
	args := m.Called(event)
	return args.Error(0)
}

type MockLock struct {
	mock.Mock
}

func (m *MockLock) AcquirePaymentLock(ctx context.Context, bookingID int64) (string, bool, error) {
	args := m.Called(ctx, bookingID)
	return args.String(0), args.Bool(1), args.Error(2)
}

func (m *MockLock) ReleasePaymentLock(ctx context.Context, bookingID int64, token string) error {
	args := m.Called(ctx, bookingID, token)
	return args.Error(0)
}

type MockGateway struct {
	mock.Mock
}

func (m *MockGateway) CreateIntent(ctx context.Context, bookingID int64, amount float64) (*models.PaymentIntentResponse, error) {
	args := m.Called(ctx, bookingID, amount)
	resp, _ := args.Get(0).(*models.PaymentIntentResponse)
	return resp, args.Error(1)
}

func (m *MockGateway) VerifyIntent(ctx context.Context, intentID string, amount float64) error {
	args := m.Called(ctx, intentID, amount)
	return args.Error(0)
}

type MockNotifier struct {
	mock.Mock
}

func (m *MockNotifier) BookingConfirmed(booking *models.Booking, payment *models.Payment) {
	m.Called(booking, payment)
}

var testJWT = config.JWTConfig{Secret: "test-secret", TTL: time.Hour, Issuer: "tour-booking-test"}

type fixture struct {
	ctx    context.Context
	store  *storage.InMemoryStore
	svc    *Services
	admin  Actor
	client Actor
	other  Actor
	city   *models.City
	cat    *models.Category
	tour   *models.Tour
}

// newFixture seeds two clients, an admin and a 3-day tour priced 300/500
// for at most 10 guests.
func newFixture(t *testing.T, d Deps) *fixture {
	t.Helper()
	ctx := context.Background()
	store := storage.NewInMemoryStore()

	d.Store = store
	d.JWT = testJWT
	if d.Log == nil {
		d.Log = logger.NewNop()
	}
	svc := New(d)
	svc.Auth.hashCost = bcrypt.MinCost

	user := func(email string, role models.Role) Actor {
		u := &models.User{Email: email, PasswordHash: "-", FirstName: "Test", LastName: string(role), Role: role}
		require.NoError(t, store.CreateUser(ctx, u))
		return ActorOf(u)
	}

	f := &fixture{ctx: ctx, store: store, svc: svc}
	f.admin = user("admin@example.com", models.RoleAdmin)
	f.client = user("client@example.com", models.RoleClient)
	f.other = user("other@example.com", models.RoleClient)

	f.city = &models.City{Name: "Bergen", Country: "Norway"}
	require.NoError(t, store.CreateCity(ctx, f.city))
	f.cat = &models.Category{Name: "Cruise"}
	require.NoError(t, store.CreateCategory(ctx, f.cat))

	premium := 500.0
	f.tour = &models.Tour{
		CityID:        f.city.ID,
		CategoryID:    f.cat.ID,
		Name:          "Fjord Cruise",
		Description:   "Three days on the fjords",
		DurationDays:  3,
		PriceStandard: 300,
		PricePremium:  &premium,
		MaxGuests:     10,
		IsActive:      true,
		Images:        models.StringList{},
	}
	require.NoError(t, store.CreateTour(ctx, f.tour))
	return f
}

func (f *fixture) book(t *testing.T, actor Actor, guests int, tier string) *models.Booking {
	t.Helper()
	b, err := f.svc.Bookings.Create(f.ctx, actor, &models.CreateBookingRequest{
		TourID:    f.tour.ID,
		StartDate: "2025-06-01",
		Guests:    guests,
		Tier:      tier,
	})
	require.NoError(t, err)
	return b
}

func (f *fixture) setStatus(t *testing.T, bookingID int64, status models.BookingStatus) {
	t.Helper()
	require.NoError(t, f.store.UpdateBooking(f.ctx, bookingID, models.BookingPatch{Status: &status}))
}

func assertKind(t *testing.T, err error, kind apperr.Kind) {
	t.Helper()
	require.Error(t, err)
	assert.Equal(t, kind, apperr.KindOf(err), err.Error())
}

func strPtr(s string) *string { return &s }
func intPtr(i int) *int       { return &i }
