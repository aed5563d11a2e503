package services

import (
	"context"
	"errors"
	"testing"

	"github.com/tomjwalt/subterrain1/models"

	"github.com/google/uuid"
	"github.com/stripe/stripe-go/v80"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

type memorySessionRepo struct {
	sessions map[uuid.UUID]*models.CheckoutSession
	locks    map[uuid.UUID]bool
	lockHeld bool
	getErr   error
}

func newMemorySessionRepo() *memorySessionRepo {
	return &memorySessionRepo{
		sessions: make(map[uuid.UUID]*models.CheckoutSession),
		locks:    make(map[uuid.UUID]bool),
	}
}

func (r *memorySessionRepo) Get(ctx context.Context, id uuid.UUID) (*models.CheckoutSession, error) {
	if r.getErr != nil {
		return nil, r.getErr
	}
	if s, ok := r.sessions[id]; ok {
		copied := *s
		return &copied, nil
	}
	return nil, nil
}

func (r *memorySessionRepo) Save(ctx context.Context, session *models.CheckoutSession) error {
	copied := *session
	r.sessions[session.ID] = &copied
	return nil
}

func (r *memorySessionRepo) Delete(ctx context.Context, id uuid.UUID) error {
	delete(r.sessions, id)
	return nil
}

func (r *memorySessionRepo) AcquireSubmitLock(ctx context.Context, id uuid.UUID) (bool, error) {
	if r.lockHeld || r.locks[id] {
		return false, nil
	}
	r.locks[id] = true
	return true, nil
}

func (r *memorySessionRepo) ReleaseSubmitLock(ctx context.Context, id uuid.UUID) error {
	delete(r.locks, id)
	return nil
}

type stubResolver struct {
	user *models.UserRef
	err  error
}

func (s *stubResolver) ResolveUser(ctx context.Context, token string) (*models.UserRef, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.user, nil
}

type fakeIssuer struct {
	issueCalls int
	issueErr   error
	lastReq    models.PaymentIntentRequest
	secret     string
}

func (p *fakeIssuer) IssueIntent(ctx context.Context, req models.PaymentIntentRequest) (*models.PaymentIntentHandle, error) {
	p.issueCalls++
	p.lastReq = req
	if p.issueErr != nil {
		return nil, p.issueErr
	}
	return &models.PaymentIntentHandle{ClientSecret: p.secret}, nil
}

func (p *fakeIssuer) MarkSucceeded(ctx context.Context, pi *stripe.PaymentIntent, rawEvent []byte) error {
	return nil
}

func (p *fakeIssuer) MarkFailed(ctx context.Context, pi *stripe.PaymentIntent, rawEvent []byte) error {
	return nil
}

func (p *fakeIssuer) Status(ctx context.Context, stripePaymentID string) (string, error) {
	return "succeeded", nil
}

type checkoutFixture struct {
	svc      CheckoutService
	sessions *memorySessionRepo
	resolver *stubResolver
	payments *fakeIssuer
}

func newCheckoutFixture() *checkoutFixture {
	sessions := newMemorySessionRepo()
	resolver := &stubResolver{}
	payments := &fakeIssuer{secret: "pi_test_secret_xyz"}
	svc := NewCheckoutService(sessions, resolver, payments, 2499, "gbp", zap.NewNop())
	return &checkoutFixture{svc: svc, sessions: sessions, resolver: resolver, payments: payments}
}

func TestCheckoutBegin_GuestLandsOnDecide(t *testing.T) {
	f := newCheckoutFixture()

	session, err := f.svc.Begin(context.Background(), "", 0, "")

	assert.NoError(t, err)
	assert.Equal(t, models.StepDecide, session.Step)
	assert.False(t, session.SignedIn())
	assert.Empty(t, session.ClientSecret)
	assert.Equal(t, int64(2499), session.Amount)
	assert.Equal(t, "gbp", session.Currency)
	assert.Equal(t, 0, f.payments.issueCalls)
}

func TestCheckoutBegin_SignedInSkipsToPayment(t *testing.T) {
	f := newCheckoutFixture()
	userID := uuid.New()
	f.resolver.user = &models.UserRef{ID: userID, Email: "member@example.com"}

	session, err := f.svc.Begin(context.Background(), "valid-token", 0, "")

	assert.NoError(t, err)
	assert.Equal(t, models.StepPayment, session.Step)
	assert.True(t, session.SignedIn())
	assert.Equal(t, "member@example.com", session.Email)
	assert.Equal(t, "pi_test_secret_xyz", session.ClientSecret)
	assert.Equal(t, 1, f.payments.issueCalls)
	assert.Equal(t, "member@example.com", f.payments.lastReq.Email)
}

func TestCheckoutBegin_AuthFailureFallsOpenToGuest(t *testing.T) {
	f := newCheckoutFixture()
	f.resolver.err = errors.New("auth service timeout")

	session, err := f.svc.Begin(context.Background(), "some-token", 0, "")

	assert.NoError(t, err)
	assert.Equal(t, models.StepDecide, session.Step)
	assert.False(t, session.SignedIn())
	assert.Equal(t, 0, f.payments.issueCalls)
}

func TestCheckoutBegin_IssuanceFailureKeepsCheckingAuth(t *testing.T) {
	f := newCheckoutFixture()
	f.resolver.user = &models.UserRef{ID: uuid.New(), Email: "member@example.com"}
	f.payments.issueErr = &ServiceError{StatusCode: 502, Message: "provider down"}

	session, err := f.svc.Begin(context.Background(), "valid-token", 0, "")

	assert.Nil(t, session)
	var svcErr *ServiceError
	assert.True(t, errors.As(err, &svcErr))
	assert.Equal(t, 502, svcErr.StatusCode)
}

func TestCheckoutGuestPath_FullFlow(t *testing.T) {
	f := newCheckoutFixture()
	ctx := context.Background()

	session, err := f.svc.Begin(ctx, "", 0, "")
	assert.NoError(t, err)
	assert.Equal(t, models.StepDecide, session.Step)

	session, err = f.svc.ChooseGuest(ctx, session.ID)
	assert.NoError(t, err)
	assert.Equal(t, models.StepGuestEmail, session.Step)
	assert.Equal(t, 0, f.payments.issueCalls)

	session, err = f.svc.SubmitGuestEmail(ctx, session.ID, "guest@example.com")
	assert.NoError(t, err)
	assert.Equal(t, models.StepPayment, session.Step)
	assert.Equal(t, "guest@example.com", session.Email)
	assert.Equal(t, "pi_test_secret_xyz", session.ClientSecret)
	assert.Equal(t, 1, f.payments.issueCalls)
	assert.Equal(t, "guest@example.com", f.payments.lastReq.Email)
}

func TestSubmitGuestEmail_BlankEmailMakesNoCalls(t *testing.T) {
	f := newCheckoutFixture()
	ctx := context.Background()

	cases := []string{"", "   ", "\t\n"}
	for _, email := range cases {
		_, err := f.svc.SubmitGuestEmail(ctx, uuid.New(), email)

		var svcErr *ServiceError
		assert.True(t, errors.As(err, &svcErr))
		assert.Equal(t, 400, svcErr.StatusCode)
		assert.Equal(t, "Missing email address for checkout", svcErr.Message)
	}
	// Local validation only: no session load, no lock, no issuance.
	assert.Equal(t, 0, f.payments.issueCalls)
}

func TestSubmitGuestEmail_WrongStepConflicts(t *testing.T) {
	f := newCheckoutFixture()
	ctx := context.Background()

	session, _ := f.svc.Begin(ctx, "", 0, "")

	_, err := f.svc.SubmitGuestEmail(ctx, session.ID, "guest@example.com")

	var svcErr *ServiceError
	assert.True(t, errors.As(err, &svcErr))
	assert.Equal(t, 409, svcErr.StatusCode)
	assert.Equal(t, 0, f.payments.issueCalls)
}

func TestSubmitGuestEmail_LockContention(t *testing.T) {
	f := newCheckoutFixture()
	ctx := context.Background()

	session, _ := f.svc.Begin(ctx, "", 0, "")
	session, _ = f.svc.ChooseGuest(ctx, session.ID)
	f.sessions.lockHeld = true

	_, err := f.svc.SubmitGuestEmail(ctx, session.ID, "guest@example.com")

	var svcErr *ServiceError
	assert.True(t, errors.As(err, &svcErr))
	assert.Equal(t, 409, svcErr.StatusCode)
	assert.Equal(t, "a payment request is already in progress", svcErr.Message)
	assert.Equal(t, 0, f.payments.issueCalls)
}

func TestSubmitGuestEmail_IssuanceFailureStaysOnGuestEmail(t *testing.T) {
	f := newCheckoutFixture()
	ctx := context.Background()

	session, _ := f.svc.Begin(ctx, "", 0, "")
	session, _ = f.svc.ChooseGuest(ctx, session.ID)
	f.payments.issueErr = &ServiceError{StatusCode: 502, Message: "provider down"}

	_, err := f.svc.SubmitGuestEmail(ctx, session.ID, "guest@example.com")
	assert.Error(t, err)

	reloaded, loadErr := f.svc.Get(ctx, session.ID)
	assert.NoError(t, loadErr)
	assert.Equal(t, models.StepGuestEmail, reloaded.Step)

	// The lock is released on failure so a retry can proceed.
	f.payments.issueErr = nil
	retried, retryErr := f.svc.SubmitGuestEmail(ctx, session.ID, "guest@example.com")
	assert.NoError(t, retryErr)
	assert.Equal(t, models.StepPayment, retried.Step)
}

func TestBack_GuestWalksInReverse(t *testing.T) {
	f := newCheckoutFixture()
	ctx := context.Background()

	session, _ := f.svc.Begin(ctx, "", 0, "")
	session, _ = f.svc.ChooseGuest(ctx, session.ID)
	session, _ = f.svc.SubmitGuestEmail(ctx, session.ID, "guest@example.com")
	assert.Equal(t, models.StepPayment, session.Step)

	session, err := f.svc.Back(ctx, session.ID)
	assert.NoError(t, err)
	assert.Equal(t, models.StepGuestEmail, session.Step)
	assert.Empty(t, session.ClientSecret, "leaving payment must discard the client secret")

	session, err = f.svc.Back(ctx, session.ID)
	assert.NoError(t, err)
	assert.Equal(t, models.StepDecide, session.Step)
}

func TestBack_SignedInExitsCheckout(t *testing.T) {
	f := newCheckoutFixture()
	ctx := context.Background()
	f.resolver.user = &models.UserRef{ID: uuid.New(), Email: "member@example.com"}

	session, _ := f.svc.Begin(ctx, "valid-token", 0, "")
	assert.Equal(t, models.StepPayment, session.Step)

	result, err := f.svc.Back(ctx, session.ID)
	assert.NoError(t, err)
	assert.Nil(t, result)

	_, err = f.svc.Get(ctx, session.ID)
	var svcErr *ServiceError
	assert.True(t, errors.As(err, &svcErr))
	assert.Equal(t, 404, svcErr.StatusCode)
}

func TestBack_NothingToGoBackTo(t *testing.T) {
	f := newCheckoutFixture()
	ctx := context.Background()

	session, _ := f.svc.Begin(ctx, "", 0, "")
	_, err := f.svc.Back(ctx, session.ID)

	var svcErr *ServiceError
	assert.True(t, errors.As(err, &svcErr))
	assert.Equal(t, 409, svcErr.StatusCode)
}

func TestSignedInNeverVisitsGuestSteps(t *testing.T) {
	f := newCheckoutFixture()
	ctx := context.Background()
	f.resolver.user = &models.UserRef{ID: uuid.New(), Email: "member@example.com"}

	session, err := f.svc.Begin(ctx, "valid-token", 0, "")
	assert.NoError(t, err)
	assert.Equal(t, models.StepPayment, session.Step)

	// A signed-in session at payment can only exit, never reach guest_email.
	_, err = f.svc.ChooseGuest(ctx, session.ID)
	var svcErr *ServiceError
	assert.True(t, errors.As(err, &svcErr))
	assert.Equal(t, 409, svcErr.StatusCode)
}

func TestGet_MissingSessionIs404(t *testing.T) {
	f := newCheckoutFixture()

	_, err := f.svc.Get(context.Background(), uuid.New())

	var svcErr *ServiceError
	assert.True(t, errors.As(err, &svcErr))
	assert.Equal(t, 404, svcErr.StatusCode)
	assert.Equal(t, "checkout session not found or expired", svcErr.Message)
}

func TestComplete_DeletesSession(t *testing.T) {
	f := newCheckoutFixture()
	ctx := context.Background()

	session, _ := f.svc.Begin(ctx, "", 0, "")
	assert.NoError(t, f.svc.Complete(ctx, session.ID))

	_, err := f.svc.Get(ctx, session.ID)
	var svcErr *ServiceError
	assert.True(t, errors.As(err, &svcErr))
	assert.Equal(t, 404, svcErr.StatusCode)
}
