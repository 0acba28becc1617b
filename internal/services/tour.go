package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"tour-booking/internal/apperr"
	"tour-booking/internal/logger"
	"tour-booking/internal/models"
	"tour-booking/internal/storage"
)

const recentReviewCount = 5

type TourService struct {
	store storage.Store
	log   *logger.Logger
}

func NewTourService(store storage.Store, log *logger.Logger) *TourService {
	return &TourService{store: store, log: log}
}

func (s *TourService) List(ctx context.Context, filter models.TourFilter, page models.Page) ([]*models.Tour, int, error) {
	tours, total, err := s.store.ListTours(ctx, filter, page)
	if err != nil {
		return nil, 0, apperr.Internal("Failed to list tours", err)
	}
	return tours, total, nil
}

// Get returns the tour with its latest published reviews. Inactive tours
// are only visible when includeInactive is set.
func (s *TourService) Get(ctx context.Context, id int64, includeInactive bool) (*models.TourDetail, error) {
	tour, err := s.store.GetTour(ctx, id)
	if err != nil {
		return nil, storeError(err, "Tour")
	}
	if !tour.IsActive && !includeInactive {
		return nil, apperr.NotFound("Tour not found")
	}

	published := true
	reviews, _, err := s.store.ListReviews(ctx,
		models.ReviewFilter{TourID: &id, IsPublished: &published},
		models.Page{Page: 1, Limit: recentReviewCount})
	if err != nil {
		return nil, apperr.Internal("Failed to load reviews", err)
	}
	if reviews == nil {
		reviews = []*models.Review{}
	}
	return &models.TourDetail{Tour: tour, RecentReviews: reviews}, nil
}

func (s *TourService) Create(ctx context.Context, req *models.TourRequest) (*models.TourDetail, error) {
	var missing []apperr.FieldError
	require := func(set bool, field string) {
		if !set {
			missing = append(missing, apperr.FieldError{Field: field, Message: "is required"})
		}
	}
	require(req.CityID != nil, "city_id")
	require(req.CategoryID != nil, "category_id")
	require(req.Name != nil && strings.TrimSpace(*req.Name) != "", "name")
	require(req.DurationDays != nil, "duration_days")
	require(req.PriceStandard != nil, "price_standard")
	require(req.MaxGuests != nil, "max_guests")
	if len(missing) > 0 {
		return nil, apperr.Validation("Missing required fields", missing...)
	}
	if err := s.validate(ctx, req); err != nil {
		return nil, err
	}

	tour := &models.Tour{
		CityID:        *req.CityID,
		CategoryID:    *req.CategoryID,
		Name:          strings.TrimSpace(*req.Name),
		DurationDays:  *req.DurationDays,
		PriceStandard: models.RoundMoney(*req.PriceStandard),
		MaxGuests:     *req.MaxGuests,
		IsActive:      true,
		Images:        models.StringList(req.Images),
	}
	if req.Description != nil {
		tour.Description = *req.Description
	}
	if req.PricePremium != nil {
		p := models.RoundMoney(*req.PricePremium)
		tour.PricePremium = &p
	}
	if req.IsActive != nil {
		tour.IsActive = *req.IsActive
	}
	if tour.Images == nil {
		tour.Images = models.StringList{}
	}

	if err := s.store.CreateTour(ctx, tour); err != nil {
		return nil, storeError(err, "Tour")
	}
	s.log.LogDatabase("INSERT", "tours", fmt.Sprintf("Tour %d created", tour.ID))
	return s.Get(ctx, tour.ID, true)
}

func (s *TourService) Update(ctx context.Context, id int64, req *models.TourRequest) (*models.TourDetail, error) {
	if _, err := s.store.GetTour(ctx, id); err != nil {
		return nil, storeError(err, "Tour")
	}
	if err := s.validate(ctx, req); err != nil {
		return nil, err
	}

	patch := models.TourPatch{
		CityID:        req.CityID,
		CategoryID:    req.CategoryID,
		Description:   req.Description,
		DurationDays:  req.DurationDays,
		PriceStandard: req.PriceStandard,
		PricePremium:  req.PricePremium,
		MaxGuests:     req.MaxGuests,
		IsActive:      req.IsActive,
	}
	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		patch.Name = &name
	}
	if req.Images != nil {
		images := models.StringList(req.Images)
		patch.Images = &images
	}
	if patch.Empty() {
		return nil, noFields()
	}

	if err := s.store.UpdateTour(ctx, id, patch); err != nil {
		return nil, storeError(err, "Tour")
	}
	return s.Get(ctx, id, true)
}

// validate checks the fields present in req
func (s *TourService) validate(ctx context.Context, req *models.TourRequest) error {
	var fields []apperr.FieldError
	if req.DurationDays != nil && *req.DurationDays < 1 {
		fields = append(fields, apperr.FieldError{Field: "duration_days", Message: "must be at least 1"})
	}
	if req.PriceStandard != nil && *req.PriceStandard <= 0 {
		fields = append(fields, apperr.FieldError{Field: "price_standard", Message: "must be greater than 0"})
	}
	if req.PricePremium != nil && *req.PricePremium <= 0 {
		fields = append(fields, apperr.FieldError{Field: "price_premium", Message: "must be greater than 0"})
	}
	if req.MaxGuests != nil && *req.MaxGuests < 1 {
		fields = append(fields, apperr.FieldError{Field: "max_guests", Message: "must be at least 1"})
	}
	if len(fields) > 0 {
		return apperr.Validation("Invalid tour", fields...)
	}

	if req.CityID != nil {
		if _, err := s.store.GetCity(ctx, *req.CityID); err != nil {
			if errors.Is(err, storage.ErrNotFound) {
				return apperr.Validation("City not found", apperr.FieldError{Field: "city_id", Message: "does not exist"})
			}
			return apperr.Internal("Failed to load city", err)
		}
	}
	if req.CategoryID != nil {
		if _, err := s.store.GetCategory(ctx, *req.CategoryID); err != nil {
			if errors.Is(err, storage.ErrNotFound) {
				return apperr.Validation("Category not found", apperr.FieldError{Field: "category_id", Message: "does not exist"})
			}
			return apperr.Internal("Failed to load category", err)
		}
	}
	return nil
}

func (s *TourService) Delete(ctx context.Context, id int64) error {
	if _, err := s.store.GetTour(ctx, id); err != nil {
		return storeError(err, "Tour")
	}

	open, err := s.store.CountOpenBookings(ctx, id)
	if err != nil {
		return apperr.Internal("Failed to check bookings", err)
	}
	if open > 0 {
		return apperr.InvalidState("Cannot delete tour with active bookings")
	}

	if err := s.store.DeleteTour(ctx, id); err != nil {
		return storeError(err, "Tour")
	}
	s.log.LogDatabase("DELETE", "tours", fmt.Sprintf("Tour %d deleted", id))
	return nil
}
