package services

import (
	"context"
	"fmt"
	"strings"

	"tour-booking/internal/apperr"
	"tour-booking/internal/logger"
	"tour-booking/internal/models"
	"tour-booking/internal/storage"
)

func trimmed(v *string) *string {
	if v == nil {
		return nil
	}
	t := strings.TrimSpace(*v)
	return &t
}

type CityService struct {
	store storage.Store
	log   *logger.Logger
}

func NewCityService(store storage.Store, log *logger.Logger) *CityService {
	return &CityService{store: store, log: log}
}

func (s *CityService) List(ctx context.Context, filter models.NameFilter, page models.Page) ([]*models.City, int, error) {
	cities, total, err := s.store.ListCities(ctx, filter, page)
	if err != nil {
		return nil, 0, apperr.Internal("Failed to list cities", err)
	}
	return cities, total, nil
}

func (s *CityService) Get(ctx context.Context, id int64) (*models.City, error) {
	city, err := s.store.GetCity(ctx, id)
	if err != nil {
		return nil, storeError(err, "City")
	}
	return city, nil
}

func (s *CityService) Create(ctx context.Context, req *models.CityRequest) (*models.City, error) {
	name, country := trimmed(req.Name), trimmed(req.Country)
	var missing []apperr.FieldError
	if name == nil || *name == "" {
		missing = append(missing, apperr.FieldError{Field: "name", Message: "is required"})
	}
	if country == nil || *country == "" {
		missing = append(missing, apperr.FieldError{Field: "country", Message: "is required"})
	}
	if len(missing) > 0 {
		return nil, apperr.Validation("Missing required fields", missing...)
	}

	city := &models.City{Name: *name, Country: *country, Description: req.Description, ImageURL: req.ImageURL}
	if err := s.store.CreateCity(ctx, city); err != nil {
		if storage.IsDuplicate(err) {
			return nil, apperr.Conflict("City with this name already exists")
		}
		return nil, storeError(err, "City")
	}
	s.log.LogDatabase("INSERT", "cities", fmt.Sprintf("City %d created", city.ID))
	return s.Get(ctx, city.ID)
}

func (s *CityService) Update(ctx context.Context, id int64, req *models.CityRequest) (*models.City, error) {
	patch := models.CityPatch{
		Name:        trimmed(req.Name),
		Country:     trimmed(req.Country),
		Description: req.Description,
		ImageURL:    req.ImageURL,
	}
	if patch.Empty() {
		return nil, noFields()
	}
	if err := s.store.UpdateCity(ctx, id, patch); err != nil {
		if storage.IsDuplicate(err) {
			return nil, apperr.Conflict("City with this name already exists")
		}
		return nil, storeError(err, "City")
	}
	return s.Get(ctx, id)
}

func (s *CityService) Delete(ctx context.Context, id int64) error {
	if err := s.store.DeleteCity(ctx, id); err != nil {
		if storage.IsReferenced(err) {
			return apperr.Conflict("Cannot delete city with tours")
		}
		return storeError(err, "City")
	}
	return nil
}

type CategoryService struct {
	store storage.Store
	log   *logger.Logger
}

func NewCategoryService(store storage.Store, log *logger.Logger) *CategoryService {
	return &CategoryService{store: store, log: log}
}

func (s *CategoryService) List(ctx context.Context, filter models.NameFilter, page models.Page) ([]*models.Category, int, error) {
	categories, total, err := s.store.ListCategories(ctx, filter, page)
	if err != nil {
		return nil, 0, apperr.Internal("Failed to list categories", err)
	}
	return categories, total, nil
}

func (s *CategoryService) Get(ctx context.Context, id int64) (*models.Category, error) {
	category, err := s.store.GetCategory(ctx, id)
	if err != nil {
		return nil, storeError(err, "Category")
	}
	return category, nil
}

func (s *CategoryService) Create(ctx context.Context, req *models.CategoryRequest) (*models.Category, error) {
	name := trimmed(req.Name)
	if name == nil || *name == "" {
		return nil, apperr.Validation("Missing required fields", apperr.FieldError{Field: "name", Message: "is required"})
	}

	category := &models.Category{Name: *name, Description: req.Description, Icon: req.Icon}
	if err := s.store.CreateCategory(ctx, category); err != nil {
		if storage.IsDuplicate(err) {
			return nil, apperr.Conflict("Category with this name already exists")
		}
		return nil, storeError(err, "Category")
	}
	s.log.LogDatabase("INSERT", "categories", fmt.Sprintf("Category %d created", category.ID))
	return s.Get(ctx, category.ID)
}

func (s *CategoryService) Update(ctx context.Context, id int64, req *models.CategoryRequest) (*models.Category, error) {
	patch := models.CategoryPatch{Name: trimmed(req.Name), Description: req.Description, Icon: req.Icon}
	if patch.Empty() {
		return nil, noFields()
	}
	if err := s.store.UpdateCategory(ctx, id, patch); err != nil {
		if storage.IsDuplicate(err) {
			return nil, apperr.Conflict("Category with this name already exists")
		}
		return nil, storeError(err, "Category")
	}
	return s.Get(ctx, id)
}

func (s *CategoryService) Delete(ctx context.Context, id int64) error {
	if err := s.store.DeleteCategory(ctx, id); err != nil {
		if storage.IsReferenced(err) {
			return apperr.Conflict("Cannot delete category with tours")
		}
		return storeError(err, "Category")
	}
	return nil
}
