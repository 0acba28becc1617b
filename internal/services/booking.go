package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"tour-booking/internal/apperr"
	"tour-booking/internal/logger"
	"tour-booking/internal/models"
	"tour-booking/internal/storage"
)

type BookingService struct {
	store  storage.Store
	events EventPublisher
	log    *logger.Logger
}

func NewBookingService(store storage.Store, events EventPublisher, log *logger.Logger) *BookingService {
	return &BookingService{store: store, events: events, log: log}
}

func (s *BookingService) Create(ctx context.Context, actor Actor, req *models.CreateBookingRequest) (*models.Booking, error) {
	tier, err := ParseTier(req.Tier)
	if err != nil {
		return nil, err
	}
	start, err := ParseStartDate(req.StartDate)
	if err != nil {
		return nil, err
	}

	tour, err := s.store.GetTour(ctx, req.TourID)
	if err != nil && !errors.Is(err, storage.ErrNotFound) {
		return nil, apperr.Internal("Failed to load tour", err)
	}
	if err != nil || !tour.IsActive {
		return nil, apperr.Validation("Tour not found or inactive",
			apperr.FieldError{Field: "tour_id", Message: "must reference an active tour"})
	}
	if err := CheckGuests(req.Guests, tour.MaxGuests); err != nil {
		return nil, err
	}

	booking := &models.Booking{
		UserID:          actor.UserID,
		TourID:          tour.ID,
		StartDate:       start,
		EndDate:         EndDate(start, tour.DurationDays),
		Guests:          req.Guests,
		Tier:            tier,
		TotalPrice:      TotalPrice(tour, tier, req.Guests),
		Status:          models.BookingPending,
		SpecialRequests: req.SpecialRequests,
	}
	if err := s.store.CreateBooking(ctx, booking); err != nil {
		return nil, storeError(err, "Booking")
	}
	s.log.LogBooking("CREATE", booking.ID, fmt.Sprintf("%d guests on tour %d, total %.2f", booking.Guests, tour.ID, booking.TotalPrice))

	created, err := s.Get(ctx, booking.ID)
	if err != nil {
		return nil, err
	}
	s.publish(models.EventBookingCreated, created.ID, created, actor)
	return created, nil
}

func (s *BookingService) Get(ctx context.Context, id int64) (*models.Booking, error) {
	booking, err := s.store.GetBooking(ctx, id)
	if err != nil {
		return nil, storeError(err, "Booking")
	}
	return booking, nil
}

// List scopes non-admin callers to their own bookings
func (s *BookingService) List(ctx context.Context, actor Actor, filter models.BookingFilter, page models.Page) ([]*models.Booking, int, error) {
	if !actor.IsAdmin() {
		uid := actor.UserID
		filter.UserID = &uid
	}
	bookings, total, err := s.store.ListBookings(ctx, filter, page)
	if err != nil {
		return nil, 0, apperr.Internal("Failed to list bookings", err)
	}
	return bookings, total, nil
}

func (s *BookingService) Update(ctx context.Context, actor Actor, id int64, req *models.UpdateBookingRequest) (*models.Booking, error) {
	if req.Status == nil && req.Guests == nil && req.SpecialRequests == nil {
		return nil, noFields()
	}

	booking, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.Status != nil {
		if !actor.IsAdmin() {
			return nil, apperr.Forbidden("Only administrators can change booking status")
		}
		if !req.Status.Valid() {
			return nil, apperr.Validation("Invalid booking status",
				apperr.FieldError{Field: "status", Message: "must be one of pending, confirmed, cancelled, completed"})
		}
	}
	if !actor.IsAdmin() && booking.Status.Closed() {
		return nil, apperr.InvalidState("Cannot modify a completed or cancelled booking")
	}

	patch := models.BookingPatch{Status: req.Status, SpecialRequests: req.SpecialRequests}

	if req.Guests != nil {
		if booking.Status == models.BookingCompleted {
			return nil, apperr.InvalidState("Cannot change guests of a completed booking")
		}
		tour, err := s.store.GetTour(ctx, booking.TourID)
		if err != nil {
			return nil, storeError(err, "Tour")
		}
		if err := CheckGuests(*req.Guests, tour.MaxGuests); err != nil {
			return nil, err
		}
		total := TotalPrice(tour, booking.Tier, *req.Guests)
		patch.Guests = req.Guests
		patch.TotalPrice = &total
	}

	if err := s.store.UpdateBooking(ctx, id, patch); err != nil {
		return nil, storeError(err, "Booking")
	}
	s.log.LogBooking("UPDATE", id, fmt.Sprintf("Updated by user %d", actor.UserID))

	updated, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	s.publish(models.EventBookingUpdated, id, updated, actor)
	return updated, nil
}

// Cancel removes a booking. Admins delete it outright; owners may only
// cancel while it is still pending, which keeps the row. The returned
// booking is nil when the row was deleted.
func (s *BookingService) Cancel(ctx context.Context, actor Actor, id int64) (*models.Booking, error) {
	booking, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if actor.IsAdmin() {
		if err := s.store.DeleteBooking(ctx, id); err != nil {
			return nil, storeError(err, "Booking")
		}
		s.log.LogBooking("DELETE", id, fmt.Sprintf("Deleted by admin %d", actor.UserID))
		s.publish(models.EventBookingDeleted, id, booking, actor)
		return nil, nil
	}

	if booking.Status != models.BookingPending {
		return nil, apperr.InvalidState("Only pending bookings can be cancelled")
	}
	cancelled := models.BookingCancelled
	if err := s.store.UpdateBooking(ctx, id, models.BookingPatch{Status: &cancelled}); err != nil {
		return nil, storeError(err, "Booking")
	}
	s.log.LogBooking("CANCEL", id, fmt.Sprintf("Cancelled by user %d", actor.UserID))

	updated, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	s.publish(models.EventBookingCancelled, id, updated, actor)
	return updated, nil
}

func (s *BookingService) Stats(ctx context.Context) (*models.BookingStats, error) {
	stats, err := s.store.BookingStats(ctx)
	if err != nil {
		return nil, apperr.Internal("Failed to compute booking stats", err)
	}
	return stats, nil
}

// publish is best-effort; a broker outage never fails the request
func (s *BookingService) publish(eventType string, bookingID int64, booking *models.Booking, actor Actor) {
	event := &models.BookingEvent{
		Type:      eventType,
		BookingID: bookingID,
		Booking:   booking,
		ActorID:   actor.UserID,
		Timestamp: time.Now().UTC(),
	}
	if err := s.events.PublishBookingEvent(event); err != nil {
		s.log.Error("KAFKA", fmt.Sprintf("Failed to publish %s for booking %d: %v", eventType, bookingID, err))
	}
}
