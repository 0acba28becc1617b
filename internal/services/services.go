package services

import (
	"context"
	"errors"
	"fmt"

	"tour-booking/internal/apperr"
	"tour-booking/internal/config"
	"tour-booking/internal/logger"
	"tour-booking/internal/models"
	rediswrap "tour-booking/internal/redis"
	"tour-booking/internal/storage"
)

// EventPublisher is satisfied by the kafka producer
type EventPublisher interface {
	PublishBookingEvent(event *models.BookingEvent) error
	PublishPaymentEvent(event *models.PaymentEvent) error
}

// PaymentLock serialises payment attempts for one booking
type PaymentLock interface {
	AcquirePaymentLock(ctx context.Context, bookingID int64) (string, bool, error)
	ReleasePaymentLock(ctx context.Context, bookingID int64, token string) error
}

// PaymentGateway is the card processor used for stripe payments
type PaymentGateway interface {
	CreateIntent(ctx context.Context, bookingID int64, amount float64) (*models.PaymentIntentResponse, error)
	VerifyIntent(ctx context.Context, intentID string, amount float64) error
}

// BookingNotifier tells the customer about a confirmed booking
type BookingNotifier interface {
	BookingConfirmed(booking *models.Booking, payment *models.Payment)
}

// Actor is the authenticated caller of a service operation
type Actor struct {
	UserID int64
	Role   models.Role
}

func ActorOf(user *models.User) Actor {
	return Actor{UserID: user.ID, Role: user.Role}
}

func (a Actor) IsAdmin() bool {
	return a.Role == models.RoleAdmin
}

// Deps wires the services; Gateway, Lock, Events and Notifier are optional
type Deps struct {
	Store    storage.Store
	JWT      config.JWTConfig
	Gateway  PaymentGateway
	Lock     PaymentLock
	Events   EventPublisher
	Notifier BookingNotifier
	AppName  string
	Log      *logger.Logger
}

type Services struct {
	Auth       *AuthService
	Tours      *TourService
	Cities     *CityService
	Categories *CategoryService
	Bookings   *BookingService
	Payments   *PaymentService
	Reviews    *ReviewService
	Users      *UserService
	Exports    *ExportService
}

func New(d Deps) *Services {
	if d.Lock == nil {
		d.Lock = rediswrap.NoopLock{}
	}
	if d.Events == nil {
		d.Events = noEvents{}
	}
	if d.Notifier == nil {
		d.Notifier = noNotifier{}
	}

	return &Services{
		Auth:       NewAuthService(d.Store, d.JWT, d.Log),
		Tours:      NewTourService(d.Store, d.Log),
		Cities:     NewCityService(d.Store, d.Log),
		Categories: NewCategoryService(d.Store, d.Log),
		Bookings:   NewBookingService(d.Store, d.Events, d.Log),
		Payments:   NewPaymentService(d.Store, d.Lock, d.Gateway, d.Events, d.Notifier, d.Log),
		Reviews:    NewReviewService(d.Store, d.Log),
		Users:      NewUserService(d.Store, d.Log),
		Exports:    NewExportService(d.Store, d.AppName, d.Log),
	}
}

type noEvents struct{}

func (noEvents) PublishBookingEvent(*models.BookingEvent) error { return nil }
func (noEvents) PublishPaymentEvent(*models.PaymentEvent) error { return nil }

type noNotifier struct{}

func (noNotifier) BookingConfirmed(*models.Booking, *models.Payment) {}

// storeError converts a storage error into the matching apperr kind
func storeError(err error, what string) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, storage.ErrNotFound):
		return apperr.NotFound(what + " not found")
	case storage.IsDuplicate(err):
		return apperr.Conflict(what + " already exists")
	case storage.IsReferenced(err):
		return apperr.Conflict(what + " is still referenced by other records")
	case storage.IsMissingReference(err):
		return apperr.Validation("Referenced record does not exist")
	}
	return apperr.Internal(fmt.Sprintf("Failed to access %s", what), err)
}

func noFields() error {
	return apperr.Validation("No fields to update")
}
