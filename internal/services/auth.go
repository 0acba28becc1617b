package services

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"tour-booking/internal/apperr"
	"tour-booking/internal/config"
	"tour-booking/internal/logger"
	"tour-booking/internal/models"
	"tour-booking/internal/storage"
)

const minPasswordLength = 6

// Claims carried by access tokens; sub is the user id
type Claims struct {
	Role models.Role `json:"role"`
	jwt.RegisteredClaims
}

type AuthService struct {
	store    storage.Store
	cfg      config.JWTConfig
	log      *logger.Logger
	hashCost int
	now      func() time.Time
}

func NewAuthService(store storage.Store, cfg config.JWTConfig, log *logger.Logger) *AuthService {
	return &AuthService{
		store:    store,
		cfg:      cfg,
		log:      log,
		hashCost: bcrypt.DefaultCost,
		now:      time.Now,
	}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (s *AuthService) hashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.hashCost)
	if err != nil {
		return "", apperr.Internal("Failed to hash password", err)
	}
	return string(hash), nil
}

func (s *AuthService) Register(ctx context.Context, req *models.RegisterRequest) (*models.AuthResponse, error) {
	user, err := s.createUser(ctx, req.Email, req.Password, req.FirstName, req.LastName, req.Phone, models.RoleClient)
	if err != nil {
		return nil, err
	}
	s.log.LogSecurity("REGISTER", fmt.Sprintf("User %d registered", user.ID))
	return s.authResponse(user)
}

// CreateAdmin is used by the create-admin command
func (s *AuthService) CreateAdmin(ctx context.Context, email, password, firstName, lastName string) (*models.User, error) {
	if len(password) < minPasswordLength {
		return nil, apperr.Validation(fmt.Sprintf("Password must be at least %d characters", minPasswordLength))
	}
	return s.createUser(ctx, email, password, firstName, lastName, nil, models.RoleAdmin)
}

func (s *AuthService) createUser(ctx context.Context, email, password, firstName, lastName string, phone *string, role models.Role) (*models.User, error) {
	email = normalizeEmail(email)

	// the unique key still rejects concurrent registrations
	_, err := s.store.GetUserByEmail(ctx, email)
	if err == nil {
		return nil, apperr.Conflict("Email already registered")
	}
	if !errors.Is(err, storage.ErrNotFound) {
		return nil, apperr.Internal("Failed to check email", err)
	}

	hash, err := s.hashPassword(password)
	if err != nil {
		return nil, err
	}

	user := &models.User{
		Email:        email,
		PasswordHash: hash,
		FirstName:    strings.TrimSpace(firstName),
		LastName:     strings.TrimSpace(lastName),
		Phone:        phone,
		Role:         role,
	}
	if err := s.store.CreateUser(ctx, user); err != nil {
		if storage.IsDuplicate(err) {
			return nil, apperr.Conflict("Email already registered")
		}
		return nil, apperr.Internal("Failed to create user", err)
	}
	return user, nil
}

func (s *AuthService) Login(ctx context.Context, req *models.LoginRequest) (*models.AuthResponse, error) {
	user, err := s.store.GetUserByEmail(ctx, normalizeEmail(req.Email))
	if errors.Is(err, storage.ErrNotFound) {
		s.log.LogSecurity("LOGIN_FAILED", "Unknown email")
		return nil, apperr.Unauthorized("Invalid email or password")
	}
	if err != nil {
		return nil, apperr.Internal("Failed to load user", err)
	}

	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)) != nil {
		s.log.LogSecurity("LOGIN_FAILED", fmt.Sprintf("Wrong password for user %d", user.ID))
		return nil, apperr.Unauthorized("Invalid email or password")
	}

	return s.authResponse(user)
}

func (s *AuthService) authResponse(user *models.User) (*models.AuthResponse, error) {
	token, err := s.IssueToken(user)
	if err != nil {
		return nil, err
	}
	return &models.AuthResponse{Token: token, User: user}, nil
}

func (s *AuthService) IssueToken(user *models.User) (string, error) {
	now := s.now()
	claims := Claims{
		Role: user.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatInt(user.ID, 10),
			Issuer:    s.cfg.Issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.cfg.TTL)),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(s.cfg.Secret))
	if err != nil {
		return "", apperr.Internal("Failed to sign token", err)
	}
	return token, nil
}

// ParseToken validates the signature and expiry and returns the user id
func (s *AuthService) ParseToken(tokenString string) (int64, error) {
	claims := &Claims{}
	_, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		return []byte(s.cfg.Secret), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithTimeFunc(s.now))
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return 0, apperr.Unauthorized("Token expired")
		}
		return 0, apperr.Unauthorized("Invalid token")
	}

	userID, err := strconv.ParseInt(claims.Subject, 10, 64)
	if err != nil || userID <= 0 {
		return 0, apperr.Unauthorized("Invalid token subject")
	}
	return userID, nil
}

// Authenticate resolves a bearer token to the current user row. The row is
// read on every call so role changes and deletions apply immediately.
func (s *AuthService) Authenticate(ctx context.Context, tokenString string) (*models.User, error) {
	userID, err := s.ParseToken(tokenString)
	if err != nil {
		return nil, err
	}
	user, err := s.store.GetUserByID(ctx, userID)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, apperr.Unauthorized("User no longer exists")
	}
	if err != nil {
		return nil, apperr.Internal("Failed to load user", err)
	}
	return user, nil
}

func (s *AuthService) Me(ctx context.Context, userID int64) (*models.User, error) {
	user, err := s.store.GetUserByID(ctx, userID)
	if err != nil {
		return nil, storeError(err, "User")
	}
	return user, nil
}

func (s *AuthService) UpdateProfile(ctx context.Context, userID int64, req *models.UpdateProfileRequest) (*models.User, error) {
	patch := models.UserPatch{FirstName: req.FirstName, LastName: req.LastName, Phone: req.Phone}
	if patch.Empty() {
		return nil, noFields()
	}
	if err := s.store.UpdateUser(ctx, userID, patch); err != nil {
		return nil, storeError(err, "User")
	}
	return s.Me(ctx, userID)
}

func (s *AuthService) ChangePassword(ctx context.Context, userID int64, req *models.ChangePasswordRequest) error {
	user, err := s.Me(ctx, userID)
	if err != nil {
		return err
	}
	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.CurrentPassword)) != nil {
		return apperr.Validation("Current password is incorrect",
			apperr.FieldError{Field: "current_password", Message: "is incorrect"})
	}

	hash, err := s.hashPassword(req.NewPassword)
	if err != nil {
		return err
	}
	if err := s.store.UpdateUser(ctx, userID, models.UserPatch{PasswordHash: &hash}); err != nil {
		return storeError(err, "User")
	}
	s.log.LogSecurity("PASSWORD_CHANGED", fmt.Sprintf("User %d changed password", userID))
	return nil
}
