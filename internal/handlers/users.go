package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"tour-booking/internal/models"
	"tour-booking/internal/services"
	"tour-booking/internal/utils"
)

type UserHandler struct {
	userService *services.UserService
}

func NewUserHandler(userService *services.UserService) *UserHandler {
	return &UserHandler{userService: userService}
}

func (h *UserHandler) List(c *gin.Context) {
	q := newQuery(c)
	filter := models.UserFilter{Search: q.str("search")}
	if raw := q.str("role"); raw != "" {
		role := models.Role(raw)
		if !role.Valid() {
			q.fail("role", "must be client or admin")
		}
		filter.Role = &role
	}
	if q.err != nil {
		_ = c.Error(q.err)
		return
	}

	page := q.page()
	users, total, err := h.userService.List(c.Request.Context(), filter, page)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, utils.Paginated(users, page, total))
}

func (h *UserHandler) Get(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	user, err := h.userService.Get(c.Request.Context(), id)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, utils.SuccessResponse("", user))
}

func (h *UserHandler) Update(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	var req models.AdminUpdateUserRequest
	if !bind(c, &req) {
		return
	}
	user, err := h.userService.Update(c.Request.Context(), id, &req)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, utils.SuccessResponse("User updated", user))
}

func (h *UserHandler) Delete(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	if err := h.userService.Delete(c.Request.Context(), actor(c), id); err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, utils.SuccessResponse("User deleted", nil))
}
