package services

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"tour-booking/internal/apperr"
	"tour-booking/internal/logger"
	"tour-booking/internal/models"
	"tour-booking/internal/storage"
)

type PaymentService struct {
	store    storage.Store
	lock     PaymentLock
	gateway  PaymentGateway
	events   EventPublisher
	notifier BookingNotifier
	log      *logger.Logger
}

// NewPaymentService takes a nil gateway when Stripe is not configured
func NewPaymentService(store storage.Store, lock PaymentLock, gateway PaymentGateway, events EventPublisher, notifier BookingNotifier, log *logger.Logger) *PaymentService {
	return &PaymentService{
		store:    store,
		lock:     lock,
		gateway:  gateway,
		events:   events,
		notifier: notifier,
		log:      log,
	}
}

func bookingRef(id int64) string {
	return "booking:" + strconv.FormatInt(id, 10)
}

func checkPayable(booking *models.Booking) error {
	if booking.PaymentID != nil {
		return apperr.InvalidState("Booking has already been paid")
	}
	if booking.Status.Closed() {
		return apperr.InvalidState("Cannot pay for a cancelled or completed booking")
	}
	return nil
}

// Record attaches a completed payment to the booking and confirms it. The
// store does the insert and the booking update in one transaction; the
// per-booking lock only keeps concurrent attempts from racing into it.
func (s *PaymentService) Record(ctx context.Context, bookingID int64, req *models.RecordPaymentRequest) (*models.PaymentResult, error) {
	if !req.Method.Valid() {
		return nil, apperr.Validation("Invalid payment method",
			apperr.FieldError{Field: "method", Message: "must be one of stripe, paypal, bank_transfer, cash"})
	}

	booking, err := s.store.GetBooking(ctx, bookingID)
	if err != nil {
		return nil, storeError(err, "Booking")
	}
	if err := checkPayable(booking); err != nil {
		return nil, err
	}

	token, locked, err := s.lock.AcquirePaymentLock(ctx, bookingID)
	switch {
	case err != nil:
		s.log.Warn("REDIS", fmt.Sprintf("Payment lock unavailable for booking %d, continuing without it: %v", bookingID, err))
	case !locked:
		s.log.LogPayment("LOCKED", bookingRef(bookingID), "Payment already in progress")
		return nil, apperr.InvalidState("Payment already in progress for this booking")
	default:
		defer func() {
			if err := s.lock.ReleasePaymentLock(context.Background(), bookingID, token); err != nil {
				s.log.Warn("REDIS", fmt.Sprintf("Failed to release payment lock for booking %d: %v", bookingID, err))
			}
		}()
	}

	var txID *string
	if req.TransactionID != nil && strings.TrimSpace(*req.TransactionID) != "" {
		v := strings.TrimSpace(*req.TransactionID)
		txID = &v
	}

	if req.Method == models.MethodStripe && s.gateway != nil {
		if txID == nil {
			return nil, apperr.Validation("transaction_id is required for stripe payments",
				apperr.FieldError{Field: "transaction_id", Message: "is required for stripe payments"})
		}
		if err := s.gateway.VerifyIntent(ctx, *txID, booking.TotalPrice); err != nil {
			return nil, err
		}
	}

	payment := &models.Payment{Method: req.Method, TransactionID: txID}
	if err := s.store.RecordPayment(ctx, bookingID, payment); err != nil {
		switch {
		case errors.Is(err, storage.ErrAlreadyPaid), storage.IsDuplicate(err):
			return nil, apperr.InvalidState("Booking has already been paid")
		case errors.Is(err, storage.ErrBookingClosed):
			return nil, apperr.InvalidState("Cannot pay for a cancelled or completed booking")
		}
		s.log.Error("PAYMENT", fmt.Sprintf("Failed to record payment for booking %d: %v", bookingID, err))
		return nil, storeError(err, "Booking")
	}
	s.log.LogPayment("RECORDED", bookingRef(bookingID), fmt.Sprintf("Payment %d of %.2f via %s", payment.ID, payment.Amount, payment.Method))

	confirmed, err := s.store.GetBooking(ctx, bookingID)
	if err != nil {
		return nil, storeError(err, "Booking")
	}

	s.publish(models.EventPaymentCompleted, payment, bookingID)
	s.notifier.BookingConfirmed(confirmed, payment)

	return &models.PaymentResult{Payment: payment, Booking: confirmed}, nil
}

func (s *PaymentService) CreateIntent(ctx context.Context, bookingID int64) (*models.PaymentIntentResponse, error) {
	if s.gateway == nil {
		return nil, apperr.Internal("Stripe is not configured", nil)
	}

	booking, err := s.store.GetBooking(ctx, bookingID)
	if err != nil {
		return nil, storeError(err, "Booking")
	}
	if err := checkPayable(booking); err != nil {
		return nil, err
	}
	return s.gateway.CreateIntent(ctx, booking.ID, booking.TotalPrice)
}

func (s *PaymentService) GetForBooking(ctx context.Context, bookingID int64) (*models.Payment, error) {
	booking, err := s.store.GetBooking(ctx, bookingID)
	if err != nil {
		return nil, storeError(err, "Booking")
	}
	if booking.PaymentID == nil {
		return nil, apperr.NotFound("No payment recorded for this booking")
	}
	payment, err := s.store.GetPayment(ctx, *booking.PaymentID)
	if err != nil {
		return nil, storeError(err, "Payment")
	}
	return payment, nil
}

func (s *PaymentService) List(ctx context.Context, filter models.PaymentFilter, page models.Page) ([]*models.Payment, int, error) {
	payments, total, err := s.store.ListPayments(ctx, filter, page)
	if err != nil {
		return nil, 0, apperr.Internal("Failed to list payments", err)
	}
	return payments, total, nil
}

// ApplyWebhook updates a payment from a provider notification. Returning an
// error stops the consumer before the message is committed, so it is read
// again on the next session; only transient store failures do that. Bad or
// unknown notifications are logged and dropped.
func (s *PaymentService) ApplyWebhook(ctx context.Context, hook *models.PaymentWebhook) error {
	if hook.TransactionID == "" || !hook.Status.Valid() {
		s.log.Warn("WEBHOOK", fmt.Sprintf("Ignoring webhook with transaction %q and status %q", hook.TransactionID, hook.Status))
		return nil
	}

	payment, err := s.store.GetPaymentByTransactionID(ctx, hook.TransactionID)
	if errors.Is(err, storage.ErrNotFound) {
		s.log.Warn("WEBHOOK", fmt.Sprintf("No payment for transaction %s", hook.TransactionID))
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to load payment for transaction %s: %w", hook.TransactionID, err)
	}
	if payment.Status == hook.Status {
		return nil
	}

	if err := s.store.UpdatePaymentStatus(ctx, payment.ID, hook.Status); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil
		}
		return fmt.Errorf("failed to update payment %d: %w", payment.ID, err)
	}
	s.log.LogPayment("WEBHOOK", hook.TransactionID, fmt.Sprintf("Payment %d status %s -> %s", payment.ID, payment.Status, hook.Status))

	payment.Status = hook.Status
	var bookingID int64
	if payment.BookingID != nil {
		bookingID = *payment.BookingID
	}
	s.publish(models.EventPaymentUpdated, payment, bookingID)
	return nil
}

func (s *PaymentService) publish(eventType string, payment *models.Payment, bookingID int64) {
	event := &models.PaymentEvent{
		Type:      eventType,
		PaymentID: payment.ID,
		BookingID: bookingID,
		Payment:   payment,
		Timestamp: time.Now().UTC(),
	}
	if err := s.events.PublishPaymentEvent(event); err != nil {
		s.log.Error("KAFKA", fmt.Sprintf("Failed to publish %s for payment %d: %v", eventType, payment.ID, err))
		s.log.LogProcess("FALLBACK", fmt.Sprintf("Payment %d processed despite Kafka publish failure", payment.ID))
	}
}
