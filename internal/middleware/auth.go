package middleware

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"tour-booking/internal/apperr"
	"tour-booking/internal/logger"
	"tour-booking/internal/models"
	"tour-booking/internal/services"
)

// Context keys set by the auth guards
const (
	ContextKeyUser  = "user"
	ContextKeyActor = "actor"
)

// Authenticator resolves a bearer token to the current user row
type Authenticator interface {
	Authenticate(ctx context.Context, token string) (*models.User, error)
}

func bearerToken(c *gin.Context) (string, error) {
	header := c.GetHeader("Authorization")
	if header == "" {
		return "", apperr.Unauthorized("Authorization header is required")
	}
	const prefix = "Bearer "
	if len(header) < len(prefix) || !strings.EqualFold(header[:len(prefix)], prefix) {
		return "", apperr.Unauthorized("Invalid authorization header format")
	}
	token := strings.TrimSpace(header[len(prefix):])
	if token == "" {
		return "", apperr.Unauthorized("Token is empty")
	}
	return token, nil
}

// RequireAuth loads the caller on every request, so role changes and
// deleted accounts take effect immediately.
func RequireAuth(auth Authenticator, log *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, err := bearerToken(c)
		if err != nil {
			abort(c, err)
			return
		}
		user, err := auth.Authenticate(c.Request.Context(), token)
		if err != nil {
			if apperr.Is(err, apperr.KindUnauthorized) {
				log.LogSecurity("AUTH_FAILED", fmt.Sprintf("%s %s from %s: %s", c.Request.Method, c.Request.URL.Path, c.ClientIP(), err.Error()))
			}
			abort(c, err)
			return
		}
		c.Set(ContextKeyUser, user)
		c.Set(ContextKeyActor, services.ActorOf(user))
		c.Next()
	}
}

// OptionalAuth sets the caller when a valid token is sent and lets
// anonymous requests through. Public routes use it to widen what admins see.
func OptionalAuth(auth Authenticator) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.GetHeader("Authorization") == "" {
			c.Next()
			return
		}
		token, err := bearerToken(c)
		if err != nil {
			abort(c, err)
			return
		}
		user, err := auth.Authenticate(c.Request.Context(), token)
		if err != nil {
			abort(c, err)
			return
		}
		c.Set(ContextKeyUser, user)
		c.Set(ContextKeyActor, services.ActorOf(user))
		c.Next()
	}
}

// RequireRole must run after RequireAuth
func RequireRole(roles ...models.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		actor, ok := GetActor(c)
		if !ok {
			abort(c, apperr.Unauthorized("User not authenticated"))
			return
		}
		for _, r := range roles {
			if actor.Role == r {
				c.Next()
				return
			}
		}
		abort(c, apperr.Forbidden("Insufficient permissions"))
	}
}

// OwnerLookup returns the id of the user owning the resource with the given id
type OwnerLookup func(ctx context.Context, id int64) (int64, error)

// RequireOwnership admits the owner of the :id resource or an admin.
// It must run after RequireAuth.
func RequireOwnership(param string, lookup OwnerLookup) gin.HandlerFunc {
	return func(c *gin.Context) {
		actor, ok := GetActor(c)
		if !ok {
			abort(c, apperr.Unauthorized("User not authenticated"))
			return
		}
		id, err := ParseID(c, param)
		if err != nil {
			abort(c, err)
			return
		}
		ownerID, err := lookup(c.Request.Context(), id)
		if err != nil {
			abort(c, err)
			return
		}
		if !actor.IsAdmin() && ownerID != actor.UserID {
			abort(c, apperr.Forbidden("You do not have access to this resource"))
			return
		}
		c.Next()
	}
}

// GetUser returns the user stored by RequireAuth
func GetUser(c *gin.Context) (*models.User, bool) {
	v, ok := c.Get(ContextKeyUser)
	if !ok {
		return nil, false
	}
	user, ok := v.(*models.User)
	return user, ok
}

// GetActor returns the actor stored by RequireAuth
func GetActor(c *gin.Context) (services.Actor, bool) {
	v, ok := c.Get(ContextKeyActor)
	if !ok {
		return services.Actor{}, false
	}
	actor, ok := v.(services.Actor)
	return actor, ok
}

// ParseID reads a positive integer path parameter
func ParseID(c *gin.Context, param string) (int64, error) {
	raw := c.Param(param)
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, apperr.Validation(fmt.Sprintf("Invalid %s", param),
			apperr.FieldError{Field: param, Message: "must be a positive integer"})
	}
	return id, nil
}

func abort(c *gin.Context, err error) {
	_ = c.Error(err)
	c.Abort()
}
