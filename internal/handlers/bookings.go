package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"tour-booking/internal/models"
	"tour-booking/internal/services"
	"tour-booking/internal/utils"
)

type BookingHandler struct {
	bookingService *services.BookingService
}

func NewBookingHandler(bookingService *services.BookingService) *BookingHandler {
	return &BookingHandler{bookingService: bookingService}
}

func (h *BookingHandler) Create(c *gin.Context) {
	var req models.CreateBookingRequest
	if !bind(c, &req) {
		return
	}
	booking, err := h.bookingService.Create(c.Request.Context(), actor(c), &req)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusCreated, utils.SuccessResponse("Booking created", booking))
}

// List returns the caller's bookings, or every booking for admins
func (h *BookingHandler) List(c *gin.Context) {
	q := newQuery(c)
	filter := bookingFilter(q)
	if q.err != nil {
		_ = c.Error(q.err)
		return
	}

	page := q.page()
	bookings, total, err := h.bookingService.List(c.Request.Context(), actor(c), filter, page)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, utils.Paginated(bookings, page, total))
}

func (h *BookingHandler) Get(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	booking, err := h.bookingService.Get(c.Request.Context(), id)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, utils.SuccessResponse("", booking))
}

func (h *BookingHandler) Update(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	var req models.UpdateBookingRequest
	if !bind(c, &req) {
		return
	}
	booking, err := h.bookingService.Update(c.Request.Context(), actor(c), id, &req)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, utils.SuccessResponse("Booking updated", booking))
}

func (h *BookingHandler) Cancel(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	booking, err := h.bookingService.Cancel(c.Request.Context(), actor(c), id)
	if err != nil {
		_ = c.Error(err)
		return
	}
	if booking == nil {
		c.JSON(http.StatusOK, utils.SuccessResponse("Booking deleted", nil))
		return
	}
	c.JSON(http.StatusOK, utils.SuccessResponse("Booking cancelled", booking))
}

func (h *BookingHandler) Stats(c *gin.Context) {
	stats, err := h.bookingService.Stats(c.Request.Context())
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, utils.SuccessResponse("", stats))
}
