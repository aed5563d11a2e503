package services

import (
	"context"
	"time"

	"github.com/tomjwalt/subterrain1/models"
	"github.com/tomjwalt/subterrain1/repository"

	"github.com/google/uuid"
	"github.com/stripe/stripe-go/v80"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// PaymentService issues payment intents and records their lifecycle.
type PaymentService interface {
	IssueIntent(ctx context.Context, req models.PaymentIntentRequest) (*models.PaymentIntentHandle, error)
	MarkSucceeded(ctx context.Context, pi *stripe.PaymentIntent, rawEvent []byte) error
	MarkFailed(ctx context.Context, pi *stripe.PaymentIntent, rawEvent []byte) error
	Status(ctx context.Context, stripePaymentID string) (string, error)
}

type paymentServiceImpl struct {
	provider PaymentProvider
	repo     repository.PaymentRepository
	logger   *zap.Logger
}

func NewPaymentService(provider PaymentProvider, repo repository.PaymentRepository, logger *zap.Logger) PaymentService {
	return &paymentServiceImpl{provider: provider, repo: repo, logger: logger}
}

// IssueIntent creates a provider payment intent and returns only the opaque
// client secret. The pending payment row is best-effort: a persistence failure
// is logged but must not lose an already-created intent.
func (s *paymentServiceImpl) IssueIntent(ctx context.Context, req models.PaymentIntentRequest) (*models.PaymentIntentHandle, error) {
	if !s.provider.Configured() {
		s.logger.Error("payment intent requested but no provider secret is configured")
		return nil, &ServiceError{StatusCode: 500, Message: "server misconfiguration"}
	}

	pi, err := s.provider.CreatePaymentIntent(ctx, req)
	if err != nil {
		s.logger.Error("provider payment intent creation failed",
			zap.Int64("amount", req.Amount),
			zap.String("currency", req.Currency),
			zap.Error(err),
		)
		return nil, &ServiceError{StatusCode: 502, Message: err.Error()}
	}

	payment := &models.Payment{
		PaymentID:       uuid.New(),
		OrderID:         req.OrderID,
		UserID:          req.UserID,
		Email:           req.Email,
		Amount:          req.Amount,
		Currency:        req.Currency,
		Status:          models.PaymentStatusPending,
		StripePaymentID: pi.ID,
	}
	if err := s.repo.Create(ctx, payment); err != nil {
		s.logger.Error("failed to save pending payment",
			zap.String("payment_intent_id", pi.ID),
			zap.Error(err),
		)
	}

	return &models.PaymentIntentHandle{ClientSecret: pi.ClientSecret}, nil
}

func (s *paymentServiceImpl) MarkSucceeded(ctx context.Context, pi *stripe.PaymentIntent, rawEvent []byte) error {
	return s.markStatus(ctx, pi, models.PaymentStatusSucceeded, rawEvent)
}

func (s *paymentServiceImpl) MarkFailed(ctx context.Context, pi *stripe.PaymentIntent, rawEvent []byte) error {
	return s.markStatus(ctx, pi, models.PaymentStatusFailed, rawEvent)
}

func (s *paymentServiceImpl) markStatus(ctx context.Context, pi *stripe.PaymentIntent, status string, rawEvent []byte) error {
	payment, err := s.repo.FindByStripeID(ctx, pi.ID)
	if err != nil {
		// Intent issued elsewhere or the pending insert failed; nothing to
		// update, the webhook still acknowledges the event.
		s.logger.Warn("no payment record for payment intent",
			zap.String("payment_intent_id", pi.ID),
		)
		return nil
	}

	if payment.Terminal() {
		s.logger.Info("skipping duplicate status update for terminal payment",
			zap.String("payment_intent_id", pi.ID),
			zap.String("status", payment.Status),
		)
		return nil
	}

	now := time.Now()
	payload := string(rawEvent)
	updates := map[string]interface{}{
		"status":               status,
		"stripe_event_payload": &payload,
	}
	switch status {
	case models.PaymentStatusSucceeded:
		updates["succeeded_at"] = &now
	case models.PaymentStatusFailed:
		updates["failed_at"] = &now
	}

	return s.repo.UpdateStatus(ctx, payment, updates)
}

// Status reports a payment's status for the confirmation page. The page may
// load before the webhook has fired, so a pending or missing local record
// falls back to a live provider fetch.
func (s *paymentServiceImpl) Status(ctx context.Context, stripePaymentID string) (string, error) {
	payment, err := s.repo.FindByStripeID(ctx, stripePaymentID)
	if err == nil && payment.Terminal() {
		return payment.Status, nil
	}
	if err != nil && err != gorm.ErrRecordNotFound {
		s.logger.Warn("payment lookup failed, falling back to provider",
			zap.String("payment_intent_id", stripePaymentID),
			zap.Error(err),
		)
	}

	if !s.provider.Configured() {
		return "", &ServiceError{StatusCode: 500, Message: "server misconfiguration"}
	}
	pi, err := s.provider.GetPaymentIntent(ctx, stripePaymentID)
	if err != nil {
		return "", &ServiceError{StatusCode: 502, Message: err.Error()}
	}
	return string(pi.Status), nil
}
