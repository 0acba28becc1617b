package models

import (
	"time"

	"github.com/uptrace/bun"
)

type Tour struct {
	bun.BaseModel `bun:"table:tours"`

	ID            int64      `json:"id" bun:"id,pk,autoincrement"`
	CityID        int64      `json:"city_id" bun:"city_id"`
	CategoryID    int64      `json:"category_id" bun:"category_id"`
	Name          string     `json:"name" bun:"name"`
	Description   string     `json:"description" bun:"description"`
	DurationDays  int        `json:"duration_days" bun:"duration_days"`
	PriceStandard float64    `json:"price_standard" bun:"price_standard"`
	PricePremium  *float64   `json:"price_premium" bun:"price_premium"`
	MaxGuests     int        `json:"max_guests" bun:"max_guests"`
	IsActive      bool       `json:"is_active" bun:"is_active"`
	Images        StringList `json:"images" bun:"images,type:json"`
	CreatedAt     time.Time  `json:"created_at" bun:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at" bun:"updated_at"`

	CityName     string  `json:"city_name" bun:"city_name,scanonly"`
	Country      string  `json:"country" bun:"country,scanonly"`
	CategoryName string  `json:"category_name" bun:"category_name,scanonly"`
	AvgRating    float64 `json:"avg_rating" bun:"avg_rating,scanonly"`
	ReviewCount  int     `json:"review_count" bun:"review_count,scanonly"`
	BookingCount int     `json:"booking_count" bun:"booking_count,scanonly"`
}

// TourDetail is a tour with its most recent published reviews
type TourDetail struct {
	*Tour
	RecentReviews []*Review `json:"recent_reviews"`
}

type TourFilter struct {
	CityID          *int64
	CategoryID      *int64
	MinPrice        *float64
	MaxPrice        *float64
	Duration        *int
	Search          string
	IncludeInactive bool
	Sort            SortKey
}

type TourPatch struct {
	CityID        *int64
	CategoryID    *int64
	Name          *string
	Description   *string
	DurationDays  *int
	PriceStandard *float64
	PricePremium  *float64
	MaxGuests     *int
	IsActive      *bool
	Images        *StringList
}

func (p TourPatch) Empty() bool {
	return p.CityID == nil && p.CategoryID == nil && p.Name == nil && p.Description == nil &&
		p.DurationDays == nil && p.PriceStandard == nil && p.PricePremium == nil &&
		p.MaxGuests == nil && p.IsActive == nil && p.Images == nil
}

// TourRequest is the body of both POST /tours and PUT /tours/:id; the
// service checks required fields for creation.
type TourRequest struct {
	CityID        *int64   `json:"city_id" binding:"omitempty,gt=0"`
	CategoryID    *int64   `json:"category_id" binding:"omitempty,gt=0"`
	Name          *string  `json:"name" binding:"omitempty,min=1,max=200"`
	Description   *string  `json:"description"`
	DurationDays  *int     `json:"duration_days"`
	PriceStandard *float64 `json:"price_standard"`
	PricePremium  *float64 `json:"price_premium"`
	MaxGuests     *int     `json:"max_guests"`
	IsActive      *bool    `json:"is_active"`
	Images        []string `json:"images"`
}
