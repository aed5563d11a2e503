package services

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"path/filepath"
	"strings"

	"github.com/tomjwalt/subterrain1/sender"

	"go.uber.org/zap"
)

// OrderEmail is the payload of the email sender function.
type OrderEmail struct {
	Email    string `json:"email"`
	OrderID  string `json:"orderId"`
	Amount   int64  `json:"amount"` // minor units
	Currency string `json:"currency"`
}

// EmailService renders templates and hands them to the configured sender.
type EmailService interface {
	SendOrderConfirmation(ctx context.Context, order OrderEmail) error
	SendPasswordReset(ctx context.Context, email, link string) error
}

type emailServiceImpl struct {
	sender    sender.EmailSender
	templates map[string]*template.Template
	logger    *zap.Logger
}

var emailTemplates = map[string]string{
	"order_confirmation": "order_confirmation.html",
	"password_reset":     "password_reset.html",
}

func NewEmailService(emailSender sender.EmailSender, templateDir string, logger *zap.Logger) (EmailService, error) {
	tmpls := make(map[string]*template.Template)
	for name, file := range emailTemplates {
		tmpl, err := template.ParseFiles(filepath.Join(templateDir, file))
		if err != nil {
			return nil, fmt.Errorf("failed to parse template %s: %w", name, err)
		}
		tmpls[name] = tmpl
	}
	return &emailServiceImpl{sender: emailSender, templates: tmpls, logger: logger}, nil
}

func (s *emailServiceImpl) SendOrderConfirmation(ctx context.Context, order OrderEmail) error {
	if strings.TrimSpace(order.Email) == "" {
		return fmt.Errorf("missing recipient email")
	}

	data := map[string]string{
		"OrderID": order.OrderID,
		"Amount":  FormatAmount(order.Amount, order.Currency),
	}
	var buf bytes.Buffer
	if err := s.templates["order_confirmation"].Execute(&buf, data); err != nil {
		return fmt.Errorf("template render failed: %w", err)
	}

	result, err := s.sender.SendEmail(ctx, order.Email, "Your Subterrain Order Confirmation", buf.String())
	if err != nil {
		return fmt.Errorf("order confirmation send failed: %w", err)
	}

	s.logger.Info("order confirmation email sent",
		zap.String("order_id", order.OrderID),
		zap.String("message_id", result.MessageID),
	)
	return nil
}

func (s *emailServiceImpl) SendPasswordReset(ctx context.Context, email, link string) error {
	var buf bytes.Buffer
	if err := s.templates["password_reset"].Execute(&buf, map[string]string{"Link": link}); err != nil {
		return fmt.Errorf("template render failed: %w", err)
	}

	if _, err := s.sender.SendEmail(ctx, email, "Reset your Subterrain password", buf.String()); err != nil {
		return fmt.Errorf("password reset send failed: %w", err)
	}
	return nil
}

// FormatAmount turns minor units into a display string, e.g. 2499/"gbp" into
// "24.99 GBP".
func FormatAmount(amount int64, currency string) string {
	return fmt.Sprintf("%d.%02d %s", amount/100, amount%100, strings.ToUpper(currency))
}
