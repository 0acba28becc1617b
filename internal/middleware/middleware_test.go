package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/go-sql-driver/mysql"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"tour-booking/internal/apperr"
	"tour-booking/internal/logger"
	"tour-booking/internal/models"
	"tour-booking/internal/utils"
)

func init() {
	gin.SetMode(gin.TestMode)
	RegisterJSONFieldNames()
}

type MockAuthenticator struct {
	mock.Mock
}

func (m *MockAuthenticator) Authenticate(ctx context.Context, token string) (*models.User, error) {
	args := m.Called(ctx, token)
	user, _ := args.Get(0).(*models.User)
	return user, args.Error(1)
}

func newRouter(isProduction bool) *gin.Engine {
	router := gin.New()
	router.Use(ErrorHandler(isProduction, logger.NewNop()))
	return router
}

func decode(t *testing.T, w *httptest.ResponseRecorder) utils.Response {
	t.Helper()
	var resp utils.Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp
}

func serve(router *gin.Engine, method, path, body string, headers map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestErrorHandlerStatuses(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
	}{
		{"validation", apperr.Validation("bad"), http.StatusBadRequest},
		{"invalid state", apperr.InvalidState("paid"), http.StatusBadRequest},
		{"unauthorized", apperr.Unauthorized("no"), http.StatusUnauthorized},
		{"forbidden", apperr.Forbidden("no"), http.StatusForbidden},
		{"not found", apperr.NotFound("gone"), http.StatusNotFound},
		{"conflict", apperr.Conflict("dup"), http.StatusConflict},
		{"mysql duplicate", fmt.Errorf("insert: %w", &mysql.MySQLError{Number: 1062}), http.StatusConflict},
		{"mysql referenced", &mysql.MySQLError{Number: 1451}, http.StatusConflict},
		{"mysql missing reference", &mysql.MySQLError{Number: 1452}, http.StatusBadRequest},
		{"unknown", errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router := newRouter(true)
			router.GET("/x", func(c *gin.Context) { _ = c.Error(tt.err) })

			w := serve(router, http.MethodGet, "/x", "", nil)

			assert.Equal(t, tt.status, w.Code)
			resp := decode(t, w)
			assert.False(t, resp.Success)
			assert.NotEmpty(t, resp.Message)
			assert.Empty(t, resp.Stack)
		})
	}
}

func TestErrorHandlerStackOutsideProduction(t *testing.T) {
	router := newRouter(false)
	router.GET("/x", func(c *gin.Context) { _ = c.Error(apperr.Internal("Failed", errors.New("db down"))) })

	resp := decode(t, serve(router, http.MethodGet, "/x", "", nil))

	assert.Equal(t, "Failed", resp.Message)
	assert.Contains(t, resp.Stack, "db down")
}

func TestErrorHandlerHidesUnknownErrors(t *testing.T) {
	for _, production := range []bool{true, false} {
		router := newRouter(production)
		router.GET("/x", func(c *gin.Context) { _ = c.Error(errors.New("dial tcp 10.0.0.5:3306: refused")) })

		w := serve(router, http.MethodGet, "/x", "", nil)
		resp := decode(t, w)

		assert.Equal(t, http.StatusInternalServerError, w.Code)
		assert.Equal(t, "Internal server error", resp.Message)
		if production {
			assert.Empty(t, resp.Stack)
		} else {
			assert.Contains(t, resp.Stack, "10.0.0.5")
		}
	}
}

func TestErrorHandlerBindingErrors(t *testing.T) {
	router := newRouter(true)
	router.POST("/x", func(c *gin.Context) {
		var req models.RegisterRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			_ = c.Error(err)
			return
		}
		c.Status(http.StatusOK)
	})

	w := serve(router, http.MethodPost, "/x", `{"email":"nope","password":"123"}`, nil)
	require.Equal(t, http.StatusBadRequest, w.Code)
	resp := decode(t, w)
	fields := map[string]string{}
	for _, f := range resp.Errors {
		fields[f.Field] = f.Message
	}
	assert.Equal(t, "must be a valid email address", fields["email"])
	assert.Equal(t, "must be at least 6 characters", fields["password"])
	assert.Equal(t, "is required", fields["first_name"])

	w = serve(router, http.MethodPost, "/x", `{"email":`, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = serve(router, http.MethodPost, "/x", `{"email":42}`, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestRequireAuth(t *testing.T) {
	auth := &MockAuthenticator{}
	client := &models.User{ID: 7, Role: models.RoleClient}
	auth.On("Authenticate", mock.Anything, "good").Return(client, nil)
	auth.On("Authenticate", mock.Anything, "stale").Return(nil, apperr.Unauthorized("User no longer exists"))

	router := newRouter(true)
	router.GET("/me", RequireAuth(auth, logger.NewNop()), func(c *gin.Context) {
		actor, ok := GetActor(c)
		require.True(t, ok)
		c.JSON(http.StatusOK, gin.H{"id": actor.UserID})
	})
	router.GET("/admin", RequireAuth(auth, logger.NewNop()), RequireRole(models.RoleAdmin), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	tests := []struct {
		name   string
		path   string
		header string
		status int
	}{
		{"valid token", "/me", "Bearer good", http.StatusOK},
		{"lowercase scheme", "/me", "bearer good", http.StatusOK},
		{"missing header", "/me", "", http.StatusUnauthorized},
		{"wrong scheme", "/me", "Basic abc", http.StatusUnauthorized},
		{"deleted user", "/me", "Bearer stale", http.StatusUnauthorized},
		{"client on admin route", "/admin", "Bearer good", http.StatusForbidden},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			headers := map[string]string{}
			if tt.header != "" {
				headers["Authorization"] = tt.header
			}
			w := serve(router, http.MethodGet, tt.path, "", headers)
			assert.Equal(t, tt.status, w.Code)
		})
	}
}

func TestRequireOwnership(t *testing.T) {
	auth := &MockAuthenticator{}
	auth.On("Authenticate", mock.Anything, "owner").Return(&models.User{ID: 1, Role: models.RoleClient}, nil)
	auth.On("Authenticate", mock.Anything, "stranger").Return(&models.User{ID: 2, Role: models.RoleClient}, nil)
	auth.On("Authenticate", mock.Anything, "admin").Return(&models.User{ID: 3, Role: models.RoleAdmin}, nil)

	lookup := func(ctx context.Context, id int64) (int64, error) {
		if id == 10 {
			return 1, nil
		}
		return 0, apperr.NotFound("Booking not found")
	}

	router := newRouter(true)
	router.GET("/bookings/:id", RequireAuth(auth, logger.NewNop()), RequireOwnership("id", lookup), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	tests := []struct {
		name   string
		token  string
		path   string
		status int
	}{
		{"owner", "owner", "/bookings/10", http.StatusOK},
		{"admin", "admin", "/bookings/10", http.StatusOK},
		{"stranger", "stranger", "/bookings/10", http.StatusForbidden},
		{"missing", "owner", "/bookings/11", http.StatusNotFound},
		{"bad id", "owner", "/bookings/abc", http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := serve(router, http.MethodGet, tt.path, "", map[string]string{"Authorization": "Bearer " + tt.token})
			assert.Equal(t, tt.status, w.Code)
		})
	}
}

func TestRecovery(t *testing.T) {
	router := gin.New()
	router.Use(Recovery(logger.NewNop()))
	router.GET("/panic", func(c *gin.Context) { panic("kaboom") })

	w := serve(router, http.MethodGet, "/panic", "", nil)

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.False(t, decode(t, w).Success)
}

func TestRateLimit(t *testing.T) {
	router := gin.New()
	router.Use(RateLimit(0.001, 2, logger.NewNop()))
	router.GET("/x", func(c *gin.Context) { c.Status(http.StatusOK) })

	assert.Equal(t, http.StatusOK, serve(router, http.MethodGet, "/x", "", nil).Code)
	assert.Equal(t, http.StatusOK, serve(router, http.MethodGet, "/x", "", nil).Code)
	w := serve(router, http.MethodGet, "/x", "", nil)
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "1", w.Header().Get("Retry-After"))
}

func TestCORS(t *testing.T) {
	router := gin.New()
	router.Use(CORS([]string{"https://app.example.com"}))
	router.GET("/x", func(c *gin.Context) { c.Status(http.StatusOK) })

	w := serve(router, http.MethodGet, "/x", "", map[string]string{"Origin": "https://app.example.com"})
	assert.Equal(t, "https://app.example.com", w.Header().Get("Access-Control-Allow-Origin"))

	w = serve(router, http.MethodGet, "/x", "", map[string]string{"Origin": "https://evil.example.com"})
	assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))

	w = serve(router, http.MethodOptions, "/x", "", nil)
	assert.Equal(t, http.StatusNoContent, w.Code)
}

func TestRequestID(t *testing.T) {
	router := gin.New()
	router.Use(RequestID())
	router.GET("/x", func(c *gin.Context) { c.Status(http.StatusOK) })

	w := serve(router, http.MethodGet, "/x", "", nil)
	assert.Len(t, w.Header().Get(HeaderRequestID), 36)

	w = serve(router, http.MethodGet, "/x", "", map[string]string{HeaderRequestID: "abc"})
	assert.Equal(t, "abc", w.Header().Get(HeaderRequestID))
}
