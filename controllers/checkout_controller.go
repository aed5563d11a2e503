package controllers

import (
	"net/http"
	"strings"

	"github.com/tomjwalt/subterrain1/services"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

type CheckoutController struct {
	Checkout services.CheckoutService
	Logger   *zap.Logger
}

func NewCheckoutController(checkout services.CheckoutService, logger *zap.Logger) *CheckoutController {
	return &CheckoutController{Checkout: checkout, Logger: logger}
}

type beginCheckoutRequest struct {
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
}

type submitGuestEmailRequest struct {
	Email string `json:"email"`
}

// BeginSession starts a checkout. The bearer token, when present, lets the
// orchestrator skip the decide and guest-email steps entirely.
func (cc *CheckoutController) BeginSession(c *gin.Context) {
	var req beginCheckoutRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
			return
		}
	}

	session, err := cc.Checkout.Begin(c.Request.Context(), bearerToken(c), req.Amount, req.Currency)
	if err != nil {
		abortWithServiceError(c, err)
		return
	}
	c.JSON(http.StatusCreated, session)
}

func (cc *CheckoutController) GetSession(c *gin.Context) {
	id, ok := sessionID(c)
	if !ok {
		return
	}
	session, err := cc.Checkout.Get(c.Request.Context(), id)
	if err != nil {
		abortWithServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, session)
}

func (cc *CheckoutController) ChooseGuest(c *gin.Context) {
	id, ok := sessionID(c)
	if !ok {
		return
	}
	session, err := cc.Checkout.ChooseGuest(c.Request.Context(), id)
	if err != nil {
		abortWithServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, session)
}

func (cc *CheckoutController) SubmitGuestEmail(c *gin.Context) {
	id, ok := sessionID(c)
	if !ok {
		return
	}

	var req submitGuestEmailRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	session, err := cc.Checkout.SubmitGuestEmail(c.Request.Context(), id, req.Email)
	if err != nil {
		abortWithServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, session)
}

func (cc *CheckoutController) Back(c *gin.Context) {
	id, ok := sessionID(c)
	if !ok {
		return
	}
	session, err := cc.Checkout.Back(c.Request.Context(), id)
	if err != nil {
		abortWithServiceError(c, err)
		return
	}
	if session == nil {
		// Signed-in user backed out of payment; the session is gone.
		c.JSON(http.StatusOK, gin.H{"exited": true})
		return
	}
	c.JSON(http.StatusOK, session)
}

func sessionID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid session id"})
		return uuid.Nil, false
	}
	return id, true
}

func bearerToken(c *gin.Context) string {
	header := c.GetHeader("Authorization")
	if header == "" {
		return ""
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return parts[1]
}
