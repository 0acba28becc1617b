package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"tour-booking/internal/models"
	"tour-booking/internal/services"
	"tour-booking/internal/utils"
)

type CityHandler struct {
	cityService *services.CityService
}

func NewCityHandler(cityService *services.CityService) *CityHandler {
	return &CityHandler{cityService: cityService}
}

func (h *CityHandler) List(c *gin.Context) {
	q := newQuery(c)
	page := q.page()
	cities, total, err := h.cityService.List(c.Request.Context(), models.NameFilter{Search: q.str("search")}, page)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, utils.Paginated(cities, page, total))
}

func (h *CityHandler) Get(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	city, err := h.cityService.Get(c.Request.Context(), id)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, utils.SuccessResponse("", city))
}

func (h *CityHandler) Create(c *gin.Context) {
	var req models.CityRequest
	if !bind(c, &req) {
		return
	}
	city, err := h.cityService.Create(c.Request.Context(), &req)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusCreated, utils.SuccessResponse("City created", city))
}

func (h *CityHandler) Update(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	var req models.CityRequest
	if !bind(c, &req) {
		return
	}
	city, err := h.cityService.Update(c.Request.Context(), id, &req)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, utils.SuccessResponse("City updated", city))
}

func (h *CityHandler) Delete(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	if err := h.cityService.Delete(c.Request.Context(), id); err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, utils.SuccessResponse("City deleted", nil))
}

type CategoryHandler struct {
	categoryService *services.CategoryService
}

func NewCategoryHandler(categoryService *services.CategoryService) *CategoryHandler {
	return &CategoryHandler{categoryService: categoryService}
}

func (h *CategoryHandler) List(c *gin.Context) {
	q := newQuery(c)
	page := q.page()
	categories, total, err := h.categoryService.List(c.Request.Context(), models.NameFilter{Search: q.str("search")}, page)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, utils.Paginated(categories, page, total))
}

func (h *CategoryHandler) Get(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	category, err := h.categoryService.Get(c.Request.Context(), id)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, utils.SuccessResponse("", category))
}

func (h *CategoryHandler) Create(c *gin.Context) {
	var req models.CategoryRequest
	if !bind(c, &req) {
		return
	}
	category, err := h.categoryService.Create(c.Request.Context(), &req)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusCreated, utils.SuccessResponse("Category created", category))
}

func (h *CategoryHandler) Update(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	var req models.CategoryRequest
	if !bind(c, &req) {
		return
	}
	category, err := h.categoryService.Update(c.Request.Context(), id, &req)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, utils.SuccessResponse("Category updated", category))
}

func (h *CategoryHandler) Delete(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	if err := h.categoryService.Delete(c.Request.Context(), id); err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, utils.SuccessResponse("Category deleted", nil))
}
