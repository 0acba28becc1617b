package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"tour-booking/internal/models"
	"tour-booking/internal/services"
	"tour-booking/internal/utils"
)

type PaymentHandler struct {
	paymentService *services.PaymentService
}

func NewPaymentHandler(paymentService *services.PaymentService) *PaymentHandler {
	return &PaymentHandler{paymentService: paymentService}
}

// ProcessPayment records the payment for the booking in the path and
// confirms it. A booking can be paid once.
func (h *PaymentHandler) ProcessPayment(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	var req models.RecordPaymentRequest
	if !bind(c, &req) {
		return
	}

	result, err := h.paymentService.Record(c.Request.Context(), id, &req)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, utils.SuccessResponse("Payment processed", result))
}

func (h *PaymentHandler) GetBookingPayment(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	payment, err := h.paymentService.GetForBooking(c.Request.Context(), id)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, utils.SuccessResponse("Payment retrieved", payment))
}

func (h *PaymentHandler) List(c *gin.Context) {
	q := newQuery(c)
	var filter models.PaymentFilter
	if raw := q.str("status"); raw != "" {
		status := models.PaymentStatus(raw)
		if !status.Valid() {
			q.fail("status", "must be one of pending, completed, failed, refunded")
		}
		filter.Status = &status
	}
	if raw := q.str("method"); raw != "" {
		method := models.PaymentMethod(raw)
		if !method.Valid() {
			q.fail("method", "must be one of stripe, paypal, bank_transfer, cash")
		}
		filter.Method = &method
	}
	if q.err != nil {
		_ = c.Error(q.err)
		return
	}

	page := q.page()
	payments, total, err := h.paymentService.List(c.Request.Context(), filter, page)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, utils.Paginated(payments, page, total))
}
