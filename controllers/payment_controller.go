package controllers

import (
	"net/http"
	"strings"

	"github.com/tomjwalt/subterrain1/models"
	"github.com/tomjwalt/subterrain1/services"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const invalidAmountMsg = "Invalid or missing 'amount': must be a positive integer in minor units"

const defaultCurrency = "gbp"

type PaymentController struct {
	Payments services.PaymentService
	Logger   *zap.Logger
}

func NewPaymentController(payments services.PaymentService, logger *zap.Logger) *PaymentController {
	return &PaymentController{Payments: payments, Logger: logger}
}

type createPaymentIntentRequest struct {
	Amount   interface{} `json:"amount"`
	Currency string      `json:"currency"`
	Email    string      `json:"email"`
	OrderID  string      `json:"orderId"`
	UserID   string      `json:"userId"`
}

// CreatePaymentIntent is the issuance function. Validation is ordered and
// fail-fast: method (handled at the router), amount, provider configuration.
// Only the opaque client secret ever reaches the browser.
func (pc *PaymentController) CreatePaymentIntent(c *gin.Context) {
	var req createPaymentIntentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": invalidAmountMsg})
		return
	}

	amount, ok := coerceAmount(req.Amount)
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": invalidAmountMsg})
		return
	}

	currency := strings.ToLower(strings.TrimSpace(req.Currency))
	if currency == "" {
		currency = defaultCurrency
	}

	handle, err := pc.Payments.IssueIntent(c.Request.Context(), models.PaymentIntentRequest{
		Amount:   amount,
		Currency: currency,
		Email:    strings.TrimSpace(req.Email),
		OrderID:  req.OrderID,
		UserID:   req.UserID,
	})
	if err != nil {
		abortWithServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, handle)
}
