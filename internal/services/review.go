package services

import (
	"context"
	"errors"
	"fmt"

	"tour-booking/internal/apperr"
	"tour-booking/internal/logger"
	"tour-booking/internal/models"
	"tour-booking/internal/storage"
)

type ReviewService struct {
	store storage.Store
	log   *logger.Logger
}

func NewReviewService(store storage.Store, log *logger.Logger) *ReviewService {
	return &ReviewService{store: store, log: log}
}

// Create stores one review per user and tour. Reviews backed by a completed
// booking are verified and published at once; the rest wait for moderation.
func (s *ReviewService) Create(ctx context.Context, actor Actor, req *models.CreateReviewRequest) (*models.Review, error) {
	if err := CheckRating(req.Rating); err != nil {
		return nil, err
	}

	if _, err := s.store.GetTour(ctx, req.TourID); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, apperr.Validation("Tour not found", apperr.FieldError{Field: "tour_id", Message: "does not exist"})
		}
		return nil, apperr.Internal("Failed to load tour", err)
	}

	_, err := s.store.FindReview(ctx, actor.UserID, req.TourID)
	if err == nil {
		return nil, apperr.Conflict("You have already reviewed this tour")
	}
	if !errors.Is(err, storage.ErrNotFound) {
		return nil, apperr.Internal("Failed to check existing review", err)
	}

	verified, err := s.store.HasCompletedBooking(ctx, actor.UserID, req.TourID)
	if err != nil {
		return nil, apperr.Internal("Failed to check bookings", err)
	}

	review := &models.Review{
		UserID:      actor.UserID,
		TourID:      req.TourID,
		Rating:      req.Rating,
		Comment:     req.Comment,
		IsVerified:  verified,
		IsPublished: verified,
	}
	if err := s.store.CreateReview(ctx, review); err != nil {
		if storage.IsDuplicate(err) {
			return nil, apperr.Conflict("You have already reviewed this tour")
		}
		return nil, storeError(err, "Review")
	}
	s.log.LogDatabase("INSERT", "reviews", fmt.Sprintf("Review %d for tour %d (verified=%t)", review.ID, review.TourID, verified))
	return s.Get(ctx, review.ID)
}

func (s *ReviewService) Get(ctx context.Context, id int64) (*models.Review, error) {
	review, err := s.store.GetReview(ctx, id)
	if err != nil {
		return nil, storeError(err, "Review")
	}
	return review, nil
}

// List shows only published reviews to everyone but admins
func (s *ReviewService) List(ctx context.Context, actor *Actor, filter models.ReviewFilter, page models.Page) ([]*models.Review, int, error) {
	if actor == nil || !actor.IsAdmin() {
		published := true
		filter.IsPublished = &published
		filter.UserID = nil
	}
	return s.list(ctx, filter, page)
}

func (s *ReviewService) Mine(ctx context.Context, actor Actor, page models.Page) ([]*models.Review, int, error) {
	uid := actor.UserID
	return s.list(ctx, models.ReviewFilter{UserID: &uid}, page)
}

func (s *ReviewService) list(ctx context.Context, filter models.ReviewFilter, page models.Page) ([]*models.Review, int, error) {
	reviews, total, err := s.store.ListReviews(ctx, filter, page)
	if err != nil {
		return nil, 0, apperr.Internal("Failed to list reviews", err)
	}
	return reviews, total, nil
}

func (s *ReviewService) Update(ctx context.Context, actor Actor, id int64, req *models.UpdateReviewRequest) (*models.Review, error) {
	if _, err := s.Get(ctx, id); err != nil {
		return nil, err
	}
	if req.IsPublished != nil && !actor.IsAdmin() {
		return nil, apperr.Forbidden("Only administrators can publish reviews")
	}
	if req.Rating != nil {
		if err := CheckRating(*req.Rating); err != nil {
			return nil, err
		}
	}

	patch := models.ReviewPatch{Rating: req.Rating, Comment: req.Comment, IsPublished: req.IsPublished}
	if patch.Empty() {
		return nil, noFields()
	}
	if err := s.store.UpdateReview(ctx, id, patch); err != nil {
		return nil, storeError(err, "Review")
	}
	return s.Get(ctx, id)
}

func (s *ReviewService) Delete(ctx context.Context, id int64) error {
	if err := s.store.DeleteReview(ctx, id); err != nil {
		return storeError(err, "Review")
	}
	return nil
}
