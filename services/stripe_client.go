package services

import (
	"bytes"
	"context"
	"io"
	"net/http"

	"github.com/tomjwalt/subterrain1/models"

	"github.com/stripe/stripe-go/v80"
	"github.com/stripe/stripe-go/v80/paymentintent"
	"github.com/stripe/stripe-go/v80/webhook"
)

// PaymentProvider abstracts the payment API so tests can count provider calls
// without touching the network.
type PaymentProvider interface {
	Configured() bool
	CreatePaymentIntent(ctx context.Context, req models.PaymentIntentRequest) (*stripe.PaymentIntent, error)
	GetPaymentIntent(ctx context.Context, id string) (*stripe.PaymentIntent, error)
}

type StripeService struct {
	SecretKey  string
	WebhookKey string
}

func NewStripeService(secretKey, webhookKey string) *StripeService {
	stripe.Key = secretKey
	return &StripeService{SecretKey: secretKey, WebhookKey: webhookKey}
}

func (s *StripeService) Configured() bool {
	return s.SecretKey != ""
}

// CreatePaymentIntent creates a provider-side payment intent with automatic
// payment-method selection enabled. Email, order id and user id travel as
// metadata so the webhook can correlate the event without a database lookup.
func (s *StripeService) CreatePaymentIntent(ctx context.Context, req models.PaymentIntentRequest) (*stripe.PaymentIntent, error) {
	params := &stripe.PaymentIntentParams{
		Amount:   stripe.Int64(req.Amount),
		Currency: stripe.String(req.Currency),
		AutomaticPaymentMethods: &stripe.PaymentIntentAutomaticPaymentMethodsParams{
			Enabled: stripe.Bool(true),
		},
	}
	params.Context = ctx
	if req.Email != "" {
		params.ReceiptEmail = stripe.String(req.Email)
		params.AddMetadata("email", req.Email)
	}
	if req.OrderID != "" {
		params.AddMetadata("order_id", req.OrderID)
	}
	if req.UserID != "" {
		params.AddMetadata("user_id", req.UserID)
	}
	return paymentintent.New(params)
}

func (s *StripeService) GetPaymentIntent(ctx context.Context, id string) (*stripe.PaymentIntent, error) {
	params := &stripe.PaymentIntentParams{}
	params.Context = ctx
	return paymentintent.Get(id, params)
}

// ParseWebhook verifies the stripe-signature header against the raw request
// body. Verification is byte-sensitive, so the body is read before any JSON
// parsing and restored for downstream readers.
func (s *StripeService) ParseWebhook(r *http.Request) (stripe.Event, error) {
	var event stripe.Event
	payload, err := io.ReadAll(r.Body)
	if err != nil {
		return event, err
	}
	r.Body = io.NopCloser(bytes.NewBuffer(payload))
	sigHeader := r.Header.Get("Stripe-Signature")
	return webhook.ConstructEvent(payload, sigHeader, s.WebhookKey)
}
