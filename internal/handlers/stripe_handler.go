package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"tour-booking/internal/services"
	"tour-booking/internal/utils"
)

type StripeHandler struct {
	paymentService *services.PaymentService
}

func NewStripeHandler(paymentService *services.PaymentService) *StripeHandler {
	return &StripeHandler{paymentService: paymentService}
}

// CreatePaymentIntent starts a card payment for the booking total. The
// client confirms it with Stripe and then records it with method stripe
// and the intent id as transaction_id.
func (h *StripeHandler) CreatePaymentIntent(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	intent, err := h.paymentService.CreateIntent(c.Request.Context(), id)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, utils.SuccessResponse("Payment intent created", intent))
}
