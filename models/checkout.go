package models

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// CheckoutStep is the tagged state of a checkout session. Loose string/bool
// flags are deliberately avoided: every move goes through TransitionTo so that
// invalid combinations are unrepresentable.
type CheckoutStep string

const (
	StepCheckingAuth CheckoutStep = "checking_auth"
	StepDecide       CheckoutStep = "decide"
	StepGuestEmail   CheckoutStep = "guest_email"
	StepPayment      CheckoutStep = "payment"
)

var allowedTransitions = map[CheckoutStep][]CheckoutStep{
	StepCheckingAuth: {StepDecide, StepPayment},
	StepDecide:       {StepGuestEmail},
	StepGuestEmail:   {StepDecide, StepPayment},
	StepPayment:      {StepGuestEmail},
}

// CheckoutSession is the ephemeral state of one checkout attempt. It lives in
// Redis with a TTL and is deleted on successful payment redirect.
type CheckoutSession struct {
	ID           uuid.UUID    `json:"id"`
	Step         CheckoutStep `json:"step"`
	Email        string       `json:"email,omitempty"`
	ClientSecret string       `json:"client_secret,omitempty"`
	UserID       string       `json:"user_id,omitempty"`
	Amount       int64        `json:"amount"`
	Currency     string       `json:"currency"`
	CreatedAt    time.Time    `json:"created_at"`
}

func NewCheckoutSession(amount int64, currency string) *CheckoutSession {
	return &CheckoutSession{
		ID:        uuid.New(),
		Step:      StepCheckingAuth,
		Amount:    amount,
		Currency:  currency,
		CreatedAt: time.Now().UTC(),
	}
}

// SignedIn reports whether the session belongs to an authenticated user. A
// signed-in session never visits the decide or guest_email steps.
func (s *CheckoutSession) SignedIn() bool {
	return s.UserID != ""
}

// TransitionTo moves the session to the given step, enforcing the transition
// table and the invariant that a client secret exists only in the payment step.
func (s *CheckoutSession) TransitionTo(step CheckoutStep) error {
	for _, next := range allowedTransitions[s.Step] {
		if next == step {
			if step != StepPayment {
				s.ClientSecret = ""
			}
			s.Step = step
			return nil
		}
	}
	return fmt.Errorf("invalid checkout transition from %q to %q", s.Step, step)
}
