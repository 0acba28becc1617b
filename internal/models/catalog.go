package models

import (
	"time"

	"github.com/uptrace/bun"
)

type City struct {
	bun.BaseModel `bun:"table:cities"`

	ID          int64     `json:"id" bun:"id,pk,autoincrement"`
	Name        string    `json:"name" bun:"name,unique"`
	Country     string    `json:"country" bun:"country"`
	Description *string   `json:"description,omitempty" bun:"description"`
	ImageURL    *string   `json:"image_url,omitempty" bun:"image_url"`
	CreatedAt   time.Time `json:"created_at" bun:"created_at"`

	TourCount int `json:"tour_count" bun:"tour_count,scanonly"`
}

type CityPatch struct {
	Name        *string
	Country     *string
	Description *string
	ImageURL    *string
}

func (p CityPatch) Empty() bool {
	return p.Name == nil && p.Country == nil && p.Description == nil && p.ImageURL == nil
}

type CityRequest struct {
	Name        *string `json:"name" binding:"omitempty,min=1,max=100"`
	Country     *string `json:"country" binding:"omitempty,min=1,max=100"`
	Description *string `json:"description"`
	ImageURL    *string `json:"image_url" binding:"omitempty,max=500"`
}

type Category struct {
	bun.BaseModel `bun:"table:categories"`

	ID          int64     `json:"id" bun:"id,pk,autoincrement"`
	Name        string    `json:"name" bun:"name,unique"`
	Description *string   `json:"description,omitempty" bun:"description"`
	Icon        *string   `json:"icon,omitempty" bun:"icon"`
	CreatedAt   time.Time `json:"created_at" bun:"created_at"`

	TourCount int `json:"tour_count" bun:"tour_count,scanonly"`
}

type CategoryPatch struct {
	Name        *string
	Description *string
	Icon        *string
}

func (p CategoryPatch) Empty() bool {
	return p.Name == nil && p.Description == nil && p.Icon == nil
}

type CategoryRequest struct {
	Name        *string `json:"name" binding:"omitempty,min=1,max=100"`
	Description *string `json:"description"`
	Icon        *string `json:"icon" binding:"omitempty,max=100"`
}

// NameFilter is shared by the city and category listings
type NameFilter struct {
	Search string
}
