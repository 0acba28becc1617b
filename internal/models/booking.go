package models

import (
	"time"

	"github.com/uptrace/bun"
)

type BookingStatus string

const (
	BookingPending   BookingStatus = "pending"
	BookingConfirmed BookingStatus = "confirmed"
	BookingCancelled BookingStatus = "cancelled"
	BookingCompleted BookingStatus = "completed"
)

var BookingStatuses = []BookingStatus{BookingPending, BookingConfirmed, BookingCancelled, BookingCompleted}

func (s BookingStatus) Valid() bool {
	for _, v := range BookingStatuses {
		if s == v {
			return true
		}
	}
	return false
}

// Closed bookings can no longer be changed by their owner
func (s BookingStatus) Closed() bool {
	return s == BookingCancelled || s == BookingCompleted
}

type Tier string

const (
	TierStandard Tier = "standard"
	TierPremium  Tier = "premium"
)

func (t Tier) Valid() bool {
	return t == TierStandard || t == TierPremium
}

type Booking struct {
	bun.BaseModel `bun:"table:bookings"`

	ID              int64         `json:"id" bun:"id,pk,autoincrement"`
	UserID          int64         `json:"user_id" bun:"user_id"`
	TourID          int64         `json:"tour_id" bun:"tour_id"`
	StartDate       Date          `json:"start_date" bun:"start_date,type:date"`
	EndDate         Date          `json:"end_date" bun:"end_date,type:date"`
	Guests          int           `json:"guests" bun:"guests"`
	Tier            Tier          `json:"tier" bun:"tier"`
	TotalPrice      float64       `json:"total_price" bun:"total_price"`
	Status          BookingStatus `json:"status" bun:"status"`
	SpecialRequests *string       `json:"special_requests,omitempty" bun:"special_requests"`
	PaymentID       *int64        `json:"payment_id" bun:"payment_id"`
	CreatedAt       time.Time     `json:"created_at" bun:"created_at"`
	UpdatedAt       time.Time     `json:"updated_at" bun:"updated_at"`

	TourName     string `json:"tour_name" bun:"tour_name,scanonly"`
	DurationDays int    `json:"duration_days" bun:"duration_days,scanonly"`
	CityName     string `json:"city_name" bun:"city_name,scanonly"`
	UserEmail    string `json:"user_email" bun:"user_email,scanonly"`
	UserName     string `json:"user_name" bun:"user_name,scanonly"`
}

type BookingFilter struct {
	Status   *BookingStatus
	TourID   *int64
	UserID   *int64
	DateFrom *Date
	DateTo   *Date
	Search   string
}

type BookingPatch struct {
	Status          *BookingStatus
	Guests          *int
	TotalPrice      *float64
	SpecialRequests *string
}

func (p BookingPatch) Empty() bool {
	return p.Status == nil && p.Guests == nil && p.TotalPrice == nil && p.SpecialRequests == nil
}

type CreateBookingRequest struct {
	TourID          int64   `json:"tour_id" binding:"required,gt=0"`
	StartDate       string  `json:"start_date" binding:"required"`
	Guests          int     `json:"guests" binding:"required"`
	Tier            string  `json:"tier"`
	SpecialRequests *string `json:"special_requests" binding:"omitempty,max=1000"`
}

type UpdateBookingRequest struct {
	Status          *BookingStatus `json:"status"`
	Guests          *int           `json:"guests"`
	SpecialRequests *string        `json:"special_requests" binding:"omitempty,max=1000"`
}

type TopTour struct {
	TourID   int64   `json:"tour_id"`
	Name     string  `json:"name"`
	Bookings int     `json:"bookings"`
	Revenue  float64 `json:"revenue"`
}

type BookingStats struct {
	TotalBookings       int                   `json:"total_bookings"`
	ByStatus            map[BookingStatus]int `json:"by_status"`
	TotalRevenue        float64               `json:"total_revenue"`
	AverageBookingValue float64               `json:"average_booking_value"`
	TopTours            []TopTour             `json:"top_tours"`
}
