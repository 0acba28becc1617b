package services

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"tour-booking/internal/apperr"
	"tour-booking/internal/models"
)

// Tour 300/500, 3 days, max 10: book 4 premium guests, pay cash, pay again.
func TestBookingPaymentScenario(t *testing.T) {
	notifier := &MockNotifier{}
	notifier.On("BookingConfirmed", mock.Anything, mock.Anything).Return()
	f := newFixture(t, Deps{Notifier: notifier})

	b := f.book(t, f.client, 4, "premium")
	require.Equal(t, 2000.0, b.TotalPrice)
	require.Equal(t, "2025-06-04", b.EndDate.String())
	require.Equal(t, models.BookingPending, b.Status)

	result, err := f.svc.Payments.Record(f.ctx, b.ID, &models.RecordPaymentRequest{Method: models.MethodCash})
	require.NoError(t, err)
	assert.Equal(t, models.BookingConfirmed, result.Booking.Status)
	assert.Equal(t, 2000.0, result.Payment.Amount)
	assert.Equal(t, models.PaymentCompleted, result.Payment.Status)
	require.NotNil(t, result.Booking.PaymentID)
	assert.Equal(t, result.Payment.ID, *result.Booking.PaymentID)

	_, err = f.svc.Payments.Record(f.ctx, b.ID, &models.RecordPaymentRequest{Method: models.MethodCash})
	assertKind(t, err, apperr.KindInvalidState)

	after, err := f.svc.Bookings.Get(f.ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, result.Payment.ID, *after.PaymentID)
	assert.Equal(t, models.BookingConfirmed, after.Status)

	_, total, err := f.store.ListPayments(f.ctx, models.PaymentFilter{}, models.NewPage(1, 10))
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	notifier.AssertNumberOfCalls(t, "BookingConfirmed", 1)
}

func TestRecordPaymentRejections(t *testing.T) {
	f := newFixture(t, Deps{})

	t.Run("invalid method", func(t *testing.T) {
		b := f.book(t, f.client, 1, "")
		_, err := f.svc.Payments.Record(f.ctx, b.ID, &models.RecordPaymentRequest{Method: "bitcoin"})
		assertKind(t, err, apperr.KindValidation)
	})

	t.Run("cancelled booking", func(t *testing.T) {
		b := f.book(t, f.client, 1, "")
		f.setStatus(t, b.ID, models.BookingCancelled)
		_, err := f.svc.Payments.Record(f.ctx, b.ID, &models.RecordPaymentRequest{Method: models.MethodCash})
		assertKind(t, err, apperr.KindInvalidState)
	})

	t.Run("completed booking", func(t *testing.T) {
		b := f.book(t, f.client, 1, "")
		f.setStatus(t, b.ID, models.BookingCompleted)
		_, err := f.svc.Payments.Record(f.ctx, b.ID, &models.RecordPaymentRequest{Method: models.MethodPaypal})
		assertKind(t, err, apperr.KindInvalidState)
	})

	t.Run("missing booking", func(t *testing.T) {
		_, err := f.svc.Payments.Record(f.ctx, 999, &models.RecordPaymentRequest{Method: models.MethodCash})
		assertKind(t, err, apperr.KindNotFound)
	})
}

func TestRecordPaymentLock(t *testing.T) {
	t.Run("held lock", func(t *testing.T) {
		lock := &MockLock{}
		lock.On("AcquirePaymentLock", mock.Anything, mock.Anything).Return("", false, nil)
		f := newFixture(t, Deps{Lock: lock})
		b := f.book(t, f.client, 1, "")

		_, err := f.svc.Payments.Record(f.ctx, b.ID, &models.RecordPaymentRequest{Method: models.MethodCash})

		assertKind(t, err, apperr.KindInvalidState)
		lock.AssertNotCalled(t, "ReleasePaymentLock", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("released after success", func(t *testing.T) {
		lock := &MockLock{}
		lock.On("AcquirePaymentLock", mock.Anything, mock.Anything).Return("token-1", true, nil)
		lock.On("ReleasePaymentLock", mock.Anything, mock.Anything, "token-1").Return(nil)
		f := newFixture(t, Deps{Lock: lock})
		b := f.book(t, f.client, 1, "")

		_, err := f.svc.Payments.Record(f.ctx, b.ID, &models.RecordPaymentRequest{Method: models.MethodCash})

		require.NoError(t, err)
		lock.AssertExpectations(t)
	})

	t.Run("redis down falls back to the transaction", func(t *testing.T) {
		lock := &MockLock{}
		lock.On("AcquirePaymentLock", mock.Anything, mock.Anything).Return("", false, errors.New("connection refused"))
		f := newFixture(t, Deps{Lock: lock})
		b := f.book(t, f.client, 1, "")

		result, err := f.svc.Payments.Record(f.ctx, b.ID, &models.RecordPaymentRequest{Method: models.MethodCash})

		require.NoError(t, err)
		assert.Equal(t, models.BookingConfirmed, result.Booking.Status)
	})
}

func TestRecordStripePayment(t *testing.T) {
	gateway := &MockGateway{}
	gateway.On("VerifyIntent", mock.Anything, "pi_ok", 600.0).Return(nil)
	gateway.On("VerifyIntent", mock.Anything, "pi_bad", 600.0).
		Return(apperr.Validation("Stripe payment has not succeeded"))
	f := newFixture(t, Deps{Gateway: gateway})

	b := f.book(t, f.client, 2, "")

	_, err := f.svc.Payments.Record(f.ctx, b.ID, &models.RecordPaymentRequest{Method: models.MethodStripe})
	assertKind(t, err, apperr.KindValidation)

	_, err = f.svc.Payments.Record(f.ctx, b.ID, &models.RecordPaymentRequest{Method: models.MethodStripe, TransactionID: strPtr("pi_bad")})
	assertKind(t, err, apperr.KindValidation)

	result, err := f.svc.Payments.Record(f.ctx, b.ID, &models.RecordPaymentRequest{Method: models.MethodStripe, TransactionID: strPtr("pi_ok")})
	require.NoError(t, err)
	assert.Equal(t, "pi_ok", *result.Payment.TransactionID)
	gateway.AssertExpectations(t)
}

func TestCreateIntent(t *testing.T) {
	t.Run("stripe not configured", func(t *testing.T) {
		f := newFixture(t, Deps{})
		b := f.book(t, f.client, 1, "")
		_, err := f.svc.Payments.CreateIntent(f.ctx, b.ID)
		assertKind(t, err, apperr.KindInternal)
	})

	t.Run("creates intent for the booking total", func(t *testing.T) {
		gateway := &MockGateway{}
		f := newFixture(t, Deps{Gateway: gateway})
		b := f.book(t, f.client, 4, "premium")
		gateway.On("CreateIntent", mock.Anything, b.ID, 2000.0).
			Return(&models.PaymentIntentResponse{IntentID: "pi_1", ClientSecret: "secret", Amount: 2000, Currency: "usd"}, nil)

		intent, err := f.svc.Payments.CreateIntent(f.ctx, b.ID)

		require.NoError(t, err)
		assert.Equal(t, "pi_1", intent.IntentID)
		gateway.AssertExpectations(t)
	})

	t.Run("already paid", func(t *testing.T) {
		gateway := &MockGateway{}
		f := newFixture(t, Deps{Gateway: gateway})
		b := f.book(t, f.client, 1, "")
		_, err := f.svc.Payments.Record(f.ctx, b.ID, &models.RecordPaymentRequest{Method: models.MethodCash})
		require.NoError(t, err)

		_, err = f.svc.Payments.CreateIntent(f.ctx, b.ID)
		assertKind(t, err, apperr.KindInvalidState)
		gateway.AssertNotCalled(t, "CreateIntent", mock.Anything, mock.Anything, mock.Anything)
	})
}

func TestGetPaymentForBooking(t *testing.T) {
	f := newFixture(t, Deps{})
	b := f.book(t, f.client, 1, "")

	_, err := f.svc.Payments.GetForBooking(f.ctx, b.ID)
	assertKind(t, err, apperr.KindNotFound)

	result, err := f.svc.Payments.Record(f.ctx, b.ID, &models.RecordPaymentRequest{Method: models.MethodBankTransfer})
	require.NoError(t, err)

	payment, err := f.svc.Payments.GetForBooking(f.ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, result.Payment.ID, payment.ID)
	assert.Equal(t, models.MethodBankTransfer, payment.Method)
}

func TestApplyWebhook(t *testing.T) {
	events := &MockPublisher{}
	events.On("PublishBookingEvent", mock.Anything).Return(nil)
	events.On("PublishPaymentEvent", mock.Anything).Return(nil)
	f := newFixture(t, Deps{Events: events})

	b := f.book(t, f.client, 1, "")
	result, err := f.svc.Payments.Record(f.ctx, b.ID, &models.RecordPaymentRequest{Method: models.MethodPaypal, TransactionID: strPtr("PAY-1")})
	require.NoError(t, err)

	err = f.svc.Payments.ApplyWebhook(f.ctx, &models.PaymentWebhook{TransactionID: "PAY-1", Status: models.PaymentRefunded})
	require.NoError(t, err)

	payment, err := f.store.GetPayment(f.ctx, result.Payment.ID)
	require.NoError(t, err)
	assert.Equal(t, models.PaymentRefunded, payment.Status)
	events.AssertCalled(t, "PublishPaymentEvent", mock.MatchedBy(func(e *models.PaymentEvent) bool {
		return e.Type == models.EventPaymentUpdated && e.BookingID == b.ID
	}))

	assert.NoError(t, f.svc.Payments.ApplyWebhook(f.ctx, &models.PaymentWebhook{TransactionID: "unknown", Status: models.PaymentFailed}))
	assert.NoError(t, f.svc.Payments.ApplyWebhook(f.ctx, &models.PaymentWebhook{TransactionID: "PAY-1", Status: "weird"}))
}

func TestListPayments(t *testing.T) {
	f := newFixture(t, Deps{})
	for _, method := range []models.PaymentMethod{models.MethodCash, models.MethodPaypal, models.MethodCash} {
		b := f.book(t, f.client, 1, "")
		_, err := f.svc.Payments.Record(f.ctx, b.ID, &models.RecordPaymentRequest{Method: method})
		require.NoError(t, err)
	}

	cash := models.MethodCash
	payments, total, err := f.svc.Payments.List(f.ctx, models.PaymentFilter{Method: &cash}, models.NewPage(1, 10))

	require.NoError(t, err)
	assert.Equal(t, 2, total)
	assert.Len(t, payments, 2)
}
