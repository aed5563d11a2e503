package controllers

import (
	"net/http"

	"github.com/tomjwalt/subterrain1/services"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ConfirmationController backs the order-confirmation page the hosted payment
// form redirects to. The page may load before or after the webhook fires, so
// the status check never assumes the webhook has already run.
type ConfirmationController struct {
	Payments services.PaymentService
	Checkout services.CheckoutService
	Logger   *zap.Logger
}

func NewConfirmationController(payments services.PaymentService, checkout services.CheckoutService, logger *zap.Logger) *ConfirmationController {
	return &ConfirmationController{Payments: payments, Checkout: checkout, Logger: logger}
}

func (cc *ConfirmationController) OrderConfirmation(c *gin.Context) {
	paymentIntentID := c.Query("payment_intent")
	if paymentIntentID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "payment_intent query parameter is required"})
		return
	}

	status, err := cc.Payments.Status(c.Request.Context(), paymentIntentID)
	if err != nil {
		abortWithServiceError(c, err)
		return
	}

	// A successful redirect ends the checkout session.
	if sid := c.Query("session_id"); sid != "" {
		if id, parseErr := uuid.Parse(sid); parseErr == nil {
			if delErr := cc.Checkout.Complete(c.Request.Context(), id); delErr != nil {
				cc.Logger.Warn("failed to delete checkout session on confirmation",
					zap.String("session_id", sid),
					zap.Error(delErr),
				)
			}
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"paymentIntentId": paymentIntentID,
		"status":          status,
	})
}
