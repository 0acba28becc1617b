package models

import (
	"time"

	"github.com/uptrace/bun"
)

type PaymentMethod string

const (
	MethodStripe       PaymentMethod = "stripe"
	MethodPaypal       PaymentMethod = "paypal"
	MethodBankTransfer PaymentMethod = "bank_transfer"
	MethodCash         PaymentMethod = "cash"
)

func (m PaymentMethod) Valid() bool {
	switch m {
	case MethodStripe, MethodPaypal, MethodBankTransfer, MethodCash:
		return true
	}
	return false
}

type PaymentStatus string

const (
	PaymentPending   PaymentStatus = "pending"
	PaymentCompleted PaymentStatus = "completed"
	PaymentFailed    PaymentStatus = "failed"
	PaymentRefunded  PaymentStatus = "refunded"
)

func (s PaymentStatus) Valid() bool {
	switch s {
	case PaymentPending, PaymentCompleted, PaymentFailed, PaymentRefunded:
		return true
	}
	return false
}

type Payment struct {
	bun.BaseModel `bun:"table:payments"`

	ID            int64         `json:"id" bun:"id,pk,autoincrement"`
	BookingID     *int64        `json:"booking_id" bun:"booking_id"`
	Amount        float64       `json:"amount" bun:"amount"`
	Method        PaymentMethod `json:"method" bun:"method"`
	Status        PaymentStatus `json:"status" bun:"status"`
	TransactionID *string       `json:"transaction_id,omitempty" bun:"transaction_id"`
	CreatedAt     time.Time     `json:"created_at" bun:"created_at"`
	UpdatedAt     time.Time     `json:"updated_at" bun:"updated_at"`
}

type PaymentFilter struct {
	Status *PaymentStatus
	Method *PaymentMethod
}

type RecordPaymentRequest struct {
	Method        PaymentMethod `json:"method" binding:"required"`
	TransactionID *string       `json:"transaction_id" binding:"omitempty,max=255"`
}

// PaymentResult is returned after a payment was recorded
type PaymentResult struct {
	Payment *Payment `json:"payment"`
	Booking *Booking `json:"booking"`
}

type PaymentIntentResponse struct {
	IntentID     string  `json:"intent_id"`
	ClientSecret string  `json:"client_secret"`
	Amount       float64 `json:"amount"`
	Currency     string  `json:"currency"`
}

// PaymentWebhook is a provider status notification relayed over Kafka
type PaymentWebhook struct {
	TransactionID string        `json:"transaction_id"`
	Status        PaymentStatus `json:"status"`
	Provider      string        `json:"provider,omitempty"`
}

type PaymentEvent struct {
	Type      string    `json:"type"`
	PaymentID int64     `json:"payment_id"`
	BookingID int64     `json:"booking_id"`
	Payment   *Payment  `json:"payment"`
	Timestamp time.Time `json:"timestamp"`
}

type BookingEvent struct {
	Type      string    `json:"type"`
	BookingID int64     `json:"booking_id"`
	Booking   *Booking  `json:"booking,omitempty"`
	ActorID   int64     `json:"actor_id"`
	Timestamp time.Time `json:"timestamp"`
}

const (
	EventBookingCreated   = "booking.created"
	EventBookingUpdated   = "booking.updated"
	EventBookingCancelled = "booking.cancelled"
	EventBookingDeleted   = "booking.deleted"
	EventPaymentCompleted = "payment.completed"
	EventPaymentUpdated   = "payment.updated"
)
