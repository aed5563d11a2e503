package controllers

import (
	"net/http"
	"strings"

	"github.com/tomjwalt/subterrain1/services"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// EmailController is the function-to-function surface of the email sender.
// The webhook handler calls the service in-process; this endpoint exists for
// manual resends and other internal callers.
type EmailController struct {
	Email  services.EmailService
	Logger *zap.Logger
}

func NewEmailController(email services.EmailService, logger *zap.Logger) *EmailController {
	return &EmailController{Email: email, Logger: logger}
}

func (ec *EmailController) SendOrderEmail(c *gin.Context) {
	var req services.OrderEmail
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	if strings.TrimSpace(req.Email) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing recipient email"})
		return
	}

	if err := ec.Email.SendOrderConfirmation(c.Request.Context(), req); err != nil {
		ec.Logger.Error("order email send failed", zap.Error(err))
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"sent": true})
}
