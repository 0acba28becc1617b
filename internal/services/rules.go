package services

import (
	"fmt"
	"strings"

	"tour-booking/internal/apperr"
	"tour-booking/internal/models"
)

// PricePerPerson picks the premium price only for premium bookings on tours
// that offer one.
func PricePerPerson(tour *models.Tour, tier models.Tier) float64 {
	if tier == models.TierPremium && tour.PricePremium != nil {
		return *tour.PricePremium
	}
	return tour.PriceStandard
}

// TotalPrice computes the booking total in cents precision
func TotalPrice(tour *models.Tour, tier models.Tier, guests int) float64 {
	return models.RoundMoney(PricePerPerson(tour, tier) * float64(guests))
}

func EndDate(start models.Date, durationDays int) models.Date {
	return start.AddDays(durationDays)
}

func CheckGuests(guests, maxGuests int) error {
	if guests < 1 {
		return apperr.Validation("At least one guest is required",
			apperr.FieldError{Field: "guests", Message: "must be at least 1"})
	}
	if guests > maxGuests {
		msg := fmt.Sprintf("Maximum %d guests allowed for this tour", maxGuests)
		return apperr.Validation(msg, apperr.FieldError{Field: "guests", Message: msg})
	}
	return nil
}

// ParseTier defaults an empty tier to standard
func ParseTier(raw string) (models.Tier, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return models.TierStandard, nil
	}
	tier := models.Tier(strings.ToLower(raw))
	if !tier.Valid() {
		return "", apperr.Validation("Invalid tier",
			apperr.FieldError{Field: "tier", Message: "must be standard or premium"})
	}
	return tier, nil
}

func ParseStartDate(raw string) (models.Date, error) {
	d, err := models.ParseDate(raw)
	if err != nil {
		return models.Date{}, apperr.Validation("Invalid start date",
			apperr.FieldError{Field: "start_date", Message: "must be a date in YYYY-MM-DD format"})
	}
	return d, nil
}

func CheckRating(rating int) error {
	if rating < 1 || rating > 5 {
		return apperr.Validation("Rating must be between 1 and 5",
			apperr.FieldError{Field: "rating", Message: "must be an integer between 1 and 5"})
	}
	return nil
}
