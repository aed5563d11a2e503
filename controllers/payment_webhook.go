package controllers

import (
	"encoding/json"
	"net/http"

	"github.com/tomjwalt/subterrain1/repository"
	"github.com/tomjwalt/subterrain1/services"

	"github.com/gin-gonic/gin"
	"github.com/stripe/stripe-go/v80"
	"go.uber.org/zap"
)

// WebhookVerifier verifies a provider-signed request and returns the event.
type WebhookVerifier interface {
	ParseWebhook(r *http.Request) (stripe.Event, error)
}

type WebhookController struct {
	Verifier      WebhookVerifier
	Events        repository.WebhookEventRepository
	Payments      services.PaymentService
	Email         services.EmailService
	FallbackEmail string
	Logger        *zap.Logger
}

func NewWebhookController(
	verifier WebhookVerifier,
	events repository.WebhookEventRepository,
	payments services.PaymentService,
	email services.EmailService,
	fallbackEmail string,
	logger *zap.Logger,
) *WebhookController {
	return &WebhookController{
		Verifier:      verifier,
		Events:        events,
		Payments:      payments,
		Email:         email,
		FallbackEmail: fallbackEmail,
		Logger:        logger,
	}
}

// StripeWebhook receives provider events. Signature verification happens
// before any branching on event content; once it passes, the response is 200
// no matter what the side effects do, because a non-200 would make the
// provider redeliver the event indefinitely.
func (wc *WebhookController) StripeWebhook(c *gin.Context) {
	event, err := wc.Verifier.ParseWebhook(c.Request)
	if err != nil {
		wc.Logger.Warn("webhook signature verification failed", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid webhook signature"})
		return
	}

	ctx := c.Request.Context()

	// Providers deliver at-least-once; a redelivered event id is acknowledged
	// without side effects. Seen-set failures fail open so a redis outage
	// cannot drop a legitimate confirmation email.
	first, err := wc.Events.MarkSeen(ctx, event.ID)
	if err != nil {
		wc.Logger.Warn("webhook dedup store unavailable, processing anyway",
			zap.String("event_id", event.ID),
			zap.Error(err),
		)
		first = true
	}
	if !first {
		wc.Logger.Info("skipping duplicate webhook delivery", zap.String("event_id", event.ID))
		c.JSON(http.StatusOK, gin.H{"received": true, "duplicate": true})
		return
	}

	wc.Logger.Info("processing stripe webhook",
		zap.String("event_type", string(event.Type)),
		zap.String("event_id", event.ID),
	)

	rawPayload, _ := json.Marshal(event)

	switch event.Type {
	case "payment_intent.succeeded":
		wc.handlePaymentSucceeded(c, event, rawPayload)
	case "payment_intent.payment_failed":
		wc.handlePaymentFailed(c, event, rawPayload)
	default:
		wc.Logger.Info("ignoring webhook event type", zap.String("event_type", string(event.Type)))
	}

	c.JSON(http.StatusOK, gin.H{"received": true})
}

func (wc *WebhookController) handlePaymentSucceeded(c *gin.Context, event stripe.Event, rawPayload []byte) {
	var pi stripe.PaymentIntent
	if err := json.Unmarshal(event.Data.Raw, &pi); err != nil {
		wc.Logger.Error("failed to unmarshal payment intent", zap.Error(err))
		return
	}

	ctx := c.Request.Context()

	if err := wc.Payments.MarkSucceeded(ctx, &pi, rawPayload); err != nil {
		wc.Logger.Error("failed to record payment success",
			zap.String("payment_intent_id", pi.ID),
			zap.Error(err),
		)
	}

	// Recipient resolution: metadata email, then the provider's receipt
	// email, then the operator fallback so a send is always attempted.
	email := pi.Metadata["email"]
	if email == "" {
		email = pi.ReceiptEmail
	}
	if email == "" {
		wc.Logger.Warn("payment intent carries no email, using fallback address",
			zap.String("payment_intent_id", pi.ID),
		)
		email = wc.FallbackEmail
	}

	order := services.OrderEmail{
		Email:    email,
		OrderID:  pi.ID,
		Amount:   pi.Amount,
		Currency: string(pi.Currency),
	}
	if err := wc.Email.SendOrderConfirmation(ctx, order); err != nil {
		// An email outage is unrelated to the payment's validity; the
		// webhook still acknowledges the event.
		wc.Logger.Error("confirmation email send failed",
			zap.String("payment_intent_id", pi.ID),
			zap.Error(err),
		)
	}
}

func (wc *WebhookController) handlePaymentFailed(c *gin.Context, event stripe.Event, rawPayload []byte) {
	var pi stripe.PaymentIntent
	if err := json.Unmarshal(event.Data.Raw, &pi); err != nil {
		wc.Logger.Error("failed to unmarshal payment intent", zap.Error(err))
		return
	}

	if err := wc.Payments.MarkFailed(c.Request.Context(), &pi, rawPayload); err != nil {
		wc.Logger.Error("failed to record payment failure",
			zap.String("payment_intent_id", pi.ID),
			zap.Error(err),
		)
	}
}
