package services

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strconv"

	"github.com/stripe/stripe-go/v82"
	"github.com/stripe/stripe-go/v82/client"

	"tour-booking/internal/apperr"
	"tour-booking/internal/config"
	"tour-booking/internal/logger"
	"tour-booking/internal/models"
)

var ErrStripeClientInitFailed = errors.New("failed to initialize Stripe client")

// StripeService creates and verifies PaymentIntents for booking totals
type StripeService struct {
	client   *client.API
	currency string
	log      *logger.Logger
}

func NewStripeService(cfg config.StripeConfig, log *logger.Logger) (*StripeService, error) {
	if !cfg.Enabled() {
		log.Error("STRIPE", "STRIPE_SECRET_KEY not set")
		return nil, ErrStripeClientInitFailed
	}

	sc := client.New(cfg.SecretKey, nil)
	if sc == nil {
		return nil, ErrStripeClientInitFailed
	}

	currency := cfg.Currency
	if currency == "" {
		currency = string(stripe.CurrencyUSD)
	}

	log.Info("STRIPE", "Stripe client initialized successfully")
	return &StripeService{client: sc, currency: currency, log: log}, nil
}

// toCents converts an amount to the smallest currency unit
func toCents(amount float64) int64 {
	return int64(math.Round(amount * 100))
}

func (s *StripeService) CreateIntent(ctx context.Context, bookingID int64, amount float64) (*models.PaymentIntentResponse, error) {
	id := strconv.FormatInt(bookingID, 10)
	params := &stripe.PaymentIntentParams{
		Amount:      stripe.Int64(toCents(amount)),
		Currency:    stripe.String(s.currency),
		Description: stripe.String(fmt.Sprintf("Tour booking #%d", bookingID)),
		Metadata:    map[string]string{"booking_id": id},
		AutomaticPaymentMethods: &stripe.PaymentIntentAutomaticPaymentMethodsParams{
			Enabled: stripe.Bool(true),
		},
	}

	pi, err := s.client.PaymentIntents.New(params)
	if err != nil {
		s.log.Error("STRIPE", fmt.Sprintf("Failed to create payment intent for booking %d: %v", bookingID, err))
		return nil, apperr.Internal("Failed to create payment intent", err)
	}
	s.log.LogPayment("INTENT", pi.ID, fmt.Sprintf("Payment intent created for booking %d", bookingID))

	return &models.PaymentIntentResponse{
		IntentID:     pi.ID,
		ClientSecret: pi.ClientSecret,
		Amount:       float64(pi.Amount) / 100.0,
		Currency:     string(pi.Currency),
	}, nil
}

// VerifyIntent accepts only a succeeded intent for exactly the booking total
func (s *StripeService) VerifyIntent(ctx context.Context, intentID string, amount float64) error {
	pi, err := s.client.PaymentIntents.Get(intentID, nil)
	if err != nil {
		s.log.Error("STRIPE", fmt.Sprintf("Failed to retrieve payment intent %s: %v", intentID, err))
		return apperr.Validation("Unable to verify Stripe payment",
			apperr.FieldError{Field: "transaction_id", Message: "is not a known payment intent"})
	}

	if pi.Status != stripe.PaymentIntentStatusSucceeded {
		s.log.LogPayment("VERIFY", intentID, fmt.Sprintf("Intent status is %s", pi.Status))
		return apperr.Validation("Stripe payment has not succeeded",
			apperr.FieldError{Field: "transaction_id", Message: "payment intent is " + string(pi.Status)})
	}
	if pi.Amount != toCents(amount) {
		s.log.LogPayment("VERIFY", intentID, fmt.Sprintf("Amount mismatch: intent %d, booking %d", pi.Amount, toCents(amount)))
		return apperr.Validation("Stripe payment amount does not match booking total",
			apperr.FieldError{Field: "transaction_id", Message: "amount mismatch"})
	}

	s.log.LogPayment("VERIFY", intentID, "Payment intent verified")
	return nil
}
