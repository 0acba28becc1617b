package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"tour-booking/internal/models"
	"tour-booking/internal/services"
	"tour-booking/internal/utils"
)

type TourHandler struct {
	tourService *services.TourService
}

func NewTourHandler(tourService *services.TourService) *TourHandler {
	return &TourHandler{tourService: tourService}
}

// List is public; inactive tours are listed only for admins asking for them
func (h *TourHandler) List(c *gin.Context) {
	q := newQuery(c)
	filter := models.TourFilter{
		CityID:     q.id("city_id"),
		CategoryID: q.id("category_id"),
		MinPrice:   q.number("min_price"),
		MaxPrice:   q.number("max_price"),
		Duration:   q.integer("duration"),
		Search:     q.str("search"),
		Sort:       models.ParseSortKey(q.str("sort")),
	}
	if include := q.flag("include_inactive"); include != nil && *include {
		if a := optionalActor(c); a != nil && a.IsAdmin() {
			filter.IncludeInactive = true
		}
	}
	if q.err != nil {
		_ = c.Error(q.err)
		return
	}

	page := q.page()
	tours, total, err := h.tourService.List(c.Request.Context(), filter, page)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, utils.Paginated(tours, page, total))
}

func (h *TourHandler) Get(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	a := optionalActor(c)
	tour, err := h.tourService.Get(c.Request.Context(), id, a != nil && a.IsAdmin())
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, utils.SuccessResponse("", tour))
}

func (h *TourHandler) Create(c *gin.Context) {
	var req models.TourRequest
	if !bind(c, &req) {
		return
	}
	tour, err := h.tourService.Create(c.Request.Context(), &req)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusCreated, utils.SuccessResponse("Tour created", tour))
}

func (h *TourHandler) Update(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	var req models.TourRequest
	if !bind(c, &req) {
		return
	}
	tour, err := h.tourService.Update(c.Request.Context(), id, &req)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, utils.SuccessResponse("Tour updated", tour))
}

func (h *TourHandler) Delete(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	if err := h.tourService.Delete(c.Request.Context(), id); err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, utils.SuccessResponse("Tour deleted", nil))
}
