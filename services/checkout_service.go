package services

import (
	"context"
	"strings"

	"github.com/tomjwalt/subterrain1/models"
	"github.com/tomjwalt/subterrain1/repository"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// UserResolver resolves a bearer token to the current user. The checkout
// orchestrator only reads the result; identity is owned by the auth gateway.
type UserResolver interface {
	ResolveUser(ctx context.Context, token string) (*models.UserRef, error)
}

// CheckoutService drives a session from "arrived at checkout" to "payment form
// bound to a client secret", branching on authentication state.
type CheckoutService interface {
	Begin(ctx context.Context, bearerToken string, amount int64, currency string) (*models.CheckoutSession, error)
	Get(ctx context.Context, id uuid.UUID) (*models.CheckoutSession, error)
	ChooseGuest(ctx context.Context, id uuid.UUID) (*models.CheckoutSession, error)
	SubmitGuestEmail(ctx context.Context, id uuid.UUID, email string) (*models.CheckoutSession, error)
	Back(ctx context.Context, id uuid.UUID) (*models.CheckoutSession, error)
	Complete(ctx context.Context, id uuid.UUID) error
}

type checkoutServiceImpl struct {
	sessions        repository.CheckoutSessionRepository
	users           UserResolver
	payments        PaymentService
	defaultAmount   int64
	defaultCurrency string
	logger          *zap.Logger
}

func NewCheckoutService(
	sessions repository.CheckoutSessionRepository,
	users UserResolver,
	payments PaymentService,
	defaultAmount int64,
	defaultCurrency string,
	logger *zap.Logger,
) CheckoutService {
	return &checkoutServiceImpl{
		sessions:        sessions,
		users:           users,
		payments:        payments,
		defaultAmount:   defaultAmount,
		defaultCurrency: defaultCurrency,
		logger:          logger,
	}
}

// Begin resolves the checking-auth state. A signed-in user goes straight to
// the payment step with their account email; decide and guest_email are never
// visited. An auth failure fails open to the guest path with a logged warning.
func (s *checkoutServiceImpl) Begin(ctx context.Context, bearerToken string, amount int64, currency string) (*models.CheckoutSession, error) {
	if amount <= 0 {
		amount = s.defaultAmount
	}
	if currency == "" {
		currency = s.defaultCurrency
	}
	session := models.NewCheckoutSession(amount, strings.ToLower(currency))

	var user *models.UserRef
	if bearerToken != "" {
		var err error
		user, err = s.users.ResolveUser(ctx, bearerToken)
		if err != nil {
			s.logger.Warn("auth check failed, continuing as guest", zap.Error(err))
			user = nil
		}
	}

	if user == nil {
		if err := session.TransitionTo(models.StepDecide); err != nil {
			return nil, &ServiceError{StatusCode: 500, Message: err.Error()}
		}
		if err := s.sessions.Save(ctx, session); err != nil {
			return nil, &ServiceError{StatusCode: 500, Message: "failed to save checkout session"}
		}
		return session, nil
	}

	session.UserID = user.ID.String()
	session.Email = user.Email

	handle, err := s.payments.IssueIntent(ctx, models.PaymentIntentRequest{
		Amount:   session.Amount,
		Currency: session.Currency,
		Email:    session.Email,
		OrderID:  session.ID.String(),
		UserID:   session.UserID,
	})
	if err != nil {
		// Session stays in checking_auth; the client may retry by creating a
		// new session.
		if saveErr := s.sessions.Save(ctx, session); saveErr != nil {
			s.logger.Error("failed to save checkout session", zap.Error(saveErr))
		}
		return nil, err
	}

	session.ClientSecret = handle.ClientSecret
	if err := session.TransitionTo(models.StepPayment); err != nil {
		return nil, &ServiceError{StatusCode: 500, Message: err.Error()}
	}
	if err := s.sessions.Save(ctx, session); err != nil {
		return nil, &ServiceError{StatusCode: 500, Message: "failed to save checkout session"}
	}
	return session, nil
}

func (s *checkoutServiceImpl) Get(ctx context.Context, id uuid.UUID) (*models.CheckoutSession, error) {
	return s.load(ctx, id)
}

func (s *checkoutServiceImpl) ChooseGuest(ctx context.Context, id uuid.UUID) (*models.CheckoutSession, error) {
	session, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := session.TransitionTo(models.StepGuestEmail); err != nil {
		return nil, &ServiceError{StatusCode: 409, Message: err.Error()}
	}
	if err := s.sessions.Save(ctx, session); err != nil {
		return nil, &ServiceError{StatusCode: 500, Message: "failed to save checkout session"}
	}
	return session, nil
}

// SubmitGuestEmail validates locally before any network call, then issues the
// payment intent under the session submit lock. On issuance failure the
// session remains in guest_email and the error message is surfaced inline.
func (s *checkoutServiceImpl) SubmitGuestEmail(ctx context.Context, id uuid.UUID, email string) (*models.CheckoutSession, error) {
	trimmed := strings.TrimSpace(email)
	if trimmed == "" {
		return nil, &ServiceError{StatusCode: 400, Message: "Missing email address for checkout"}
	}

	session, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if session.Step != models.StepGuestEmail {
		return nil, &ServiceError{StatusCode: 409, Message: "checkout is not awaiting a guest email"}
	}

	locked, err := s.sessions.AcquireSubmitLock(ctx, id)
	if err != nil {
		return nil, &ServiceError{StatusCode: 500, Message: "failed to lock checkout session"}
	}
	if !locked {
		return nil, &ServiceError{StatusCode: 409, Message: "a payment request is already in progress"}
	}
	defer func() {
		if err := s.sessions.ReleaseSubmitLock(ctx, id); err != nil {
			s.logger.Warn("failed to release checkout submit lock", zap.Error(err))
		}
	}()

	handle, err := s.payments.IssueIntent(ctx, models.PaymentIntentRequest{
		Amount:   session.Amount,
		Currency: session.Currency,
		Email:    trimmed,
		OrderID:  session.ID.String(),
	})
	if err != nil {
		return nil, err
	}

	session.Email = trimmed
	session.ClientSecret = handle.ClientSecret
	if err := session.TransitionTo(models.StepPayment); err != nil {
		return nil, &ServiceError{StatusCode: 500, Message: err.Error()}
	}
	if err := s.sessions.Save(ctx, session); err != nil {
		return nil, &ServiceError{StatusCode: 500, Message: "failed to save checkout session"}
	}
	return session, nil
}

// Back walks the guest path in reverse. A signed-in user never entered
// guest_email, so backing out of payment exits checkout entirely.
func (s *checkoutServiceImpl) Back(ctx context.Context, id uuid.UUID) (*models.CheckoutSession, error) {
	session, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}

	switch session.Step {
	case models.StepGuestEmail:
		if err := session.TransitionTo(models.StepDecide); err != nil {
			return nil, &ServiceError{StatusCode: 409, Message: err.Error()}
		}
	case models.StepPayment:
		if session.SignedIn() {
			if err := s.sessions.Delete(ctx, id); err != nil {
				return nil, &ServiceError{StatusCode: 500, Message: "failed to delete checkout session"}
			}
			return nil, nil
		}
		if err := session.TransitionTo(models.StepGuestEmail); err != nil {
			return nil, &ServiceError{StatusCode: 409, Message: err.Error()}
		}
	default:
		return nil, &ServiceError{StatusCode: 409, Message: "nothing to go back to"}
	}

	if err := s.sessions.Save(ctx, session); err != nil {
		return nil, &ServiceError{StatusCode: 500, Message: "failed to save checkout session"}
	}
	return session, nil
}

// Complete destroys the session once the hosted payment form has redirected to
// the confirmation page.
func (s *checkoutServiceImpl) Complete(ctx context.Context, id uuid.UUID) error {
	if err := s.sessions.Delete(ctx, id); err != nil {
		return &ServiceError{StatusCode: 500, Message: "failed to delete checkout session"}
	}
	return nil
}

func (s *checkoutServiceImpl) load(ctx context.Context, id uuid.UUID) (*models.CheckoutSession, error) {
	session, err := s.sessions.Get(ctx, id)
	if err != nil {
		return nil, &ServiceError{StatusCode: 500, Message: "failed to load checkout session"}
	}
	if session == nil {
		return nil, &ServiceError{StatusCode: 404, Message: "checkout session not found or expired"}
	}
	return session, nil
}
