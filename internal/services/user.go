package services

import (
	"context"
	"fmt"

	"tour-booking/internal/apperr"
	"tour-booking/internal/logger"
	"tour-booking/internal/models"
	"tour-booking/internal/storage"
)

// UserService backs the admin user management routes
type UserService struct {
	store storage.Store
	log   *logger.Logger
}

func NewUserService(store storage.Store, log *logger.Logger) *UserService {
	return &UserService{store: store, log: log}
}

func (s *UserService) List(ctx context.Context, filter models.UserFilter, page models.Page) ([]*models.User, int, error) {
	users, total, err := s.store.ListUsers(ctx, filter, page)
	if err != nil {
		return nil, 0, apperr.Internal("Failed to list users", err)
	}
	return users, total, nil
}

func (s *UserService) Get(ctx context.Context, id int64) (*models.User, error) {
	user, err := s.store.GetUserByID(ctx, id)
	if err != nil {
		return nil, storeError(err, "User")
	}
	return user, nil
}

func (s *UserService) Update(ctx context.Context, id int64, req *models.AdminUpdateUserRequest) (*models.User, error) {
	if req.Role != nil && !req.Role.Valid() {
		return nil, apperr.Validation("Invalid role", apperr.FieldError{Field: "role", Message: "must be client or admin"})
	}
	patch := models.UserPatch{FirstName: req.FirstName, LastName: req.LastName, Phone: req.Phone, Role: req.Role}
	if patch.Empty() {
		return nil, noFields()
	}
	if err := s.store.UpdateUser(ctx, id, patch); err != nil {
		return nil, storeError(err, "User")
	}
	if req.Role != nil {
		s.log.LogSecurity("ROLE_CHANGED", fmt.Sprintf("User %d role set to %s", id, *req.Role))
	}
	return s.Get(ctx, id)
}

func (s *UserService) Delete(ctx context.Context, actor Actor, id int64) error {
	if actor.UserID == id {
		return apperr.InvalidState("You cannot delete your own account")
	}
	if err := s.store.DeleteUser(ctx, id); err != nil {
		return storeError(err, "User")
	}
	s.log.LogSecurity("USER_DELETED", fmt.Sprintf("User %d deleted by admin %d", id, actor.UserID))
	return nil
}
