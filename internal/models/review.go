package models

import (
	"time"

	"github.com/uptrace/bun"
)

type Review struct {
	bun.BaseModel `bun:"table:reviews"`

	ID          int64     `json:"id" bun:"id,pk,autoincrement"`
	UserID      int64     `json:"user_id" bun:"user_id"`
	TourID      int64     `json:"tour_id" bun:"tour_id"`
	Rating      int       `json:"rating" bun:"rating"`
	Comment     *string   `json:"comment,omitempty" bun:"comment"`
	IsVerified  bool      `json:"is_verified" bun:"is_verified"`
	IsPublished bool      `json:"is_published" bun:"is_published"`
	CreatedAt   time.Time `json:"created_at" bun:"created_at"`
	UpdatedAt   time.Time `json:"updated_at" bun:"updated_at"`

	UserName string `json:"user_name" bun:"user_name,scanonly"`
	TourName string `json:"tour_name" bun:"tour_name,scanonly"`
}

type ReviewFilter struct {
	TourID      *int64
	UserID      *int64
	Rating      *int
	IsPublished *bool
}

type ReviewPatch struct {
	Rating      *int
	Comment     *string
	IsPublished *bool
}

func (p ReviewPatch) Empty() bool {
	return p.Rating == nil && p.Comment == nil && p.IsPublished == nil
}

type CreateReviewRequest struct {
	TourID  int64   `json:"tour_id" binding:"required,gt=0"`
	Rating  int     `json:"rating" binding:"required"`
	Comment *string `json:"comment" binding:"omitempty,max=2000"`
}

type UpdateReviewRequest struct {
	Rating      *int    `json:"rating"`
	Comment     *string `json:"comment" binding:"omitempty,max=2000"`
	IsPublished *bool   `json:"is_published"`
}
