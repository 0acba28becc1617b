package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"tour-booking/internal/models"
	"tour-booking/internal/services"
	"tour-booking/internal/utils"
)

type ReviewHandler struct {
	reviewService *services.ReviewService
}

func NewReviewHandler(reviewService *services.ReviewService) *ReviewHandler {
	return &ReviewHandler{reviewService: reviewService}
}

func (h *ReviewHandler) Create(c *gin.Context) {
	var req models.CreateReviewRequest
	if !bind(c, &req) {
		return
	}
	review, err := h.reviewService.Create(c.Request.Context(), actor(c), &req)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusCreated, utils.SuccessResponse("Review created", review))
}

func (h *ReviewHandler) List(c *gin.Context) {
	q := newQuery(c)
	filter := models.ReviewFilter{
		TourID:      q.id("tour_id"),
		UserID:      q.id("user_id"),
		Rating:      q.integer("rating"),
		IsPublished: q.flag("is_published"),
	}
	if q.err != nil {
		_ = c.Error(q.err)
		return
	}

	page := q.page()
	reviews, total, err := h.reviewService.List(c.Request.Context(), optionalActor(c), filter, page)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, utils.Paginated(reviews, page, total))
}

func (h *ReviewHandler) Mine(c *gin.Context) {
	page := newQuery(c).page()
	reviews, total, err := h.reviewService.Mine(c.Request.Context(), actor(c), page)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, utils.Paginated(reviews, page, total))
}

func (h *ReviewHandler) Update(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	var req models.UpdateReviewRequest
	if !bind(c, &req) {
		return
	}
	review, err := h.reviewService.Update(c.Request.Context(), actor(c), id, &req)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, utils.SuccessResponse("Review updated", review))
}

func (h *ReviewHandler) Delete(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	if err := h.reviewService.Delete(c.Request.Context(), id); err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, utils.SuccessResponse("Review deleted", nil))
}
