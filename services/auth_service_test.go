package services

import (
	"context"
	"errors"
	"testing"

	"github.com/tomjwalt/subterrain1/models"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

type mockUserRepo struct {
	mock.Mock
}

func (m *mockUserRepo) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *mockUserRepo) FindByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *mockUserRepo) Create(ctx context.Context, user *models.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

func (m *mockUserRepo) Update(ctx context.Context, user *models.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

type recordingResetSender struct {
	emails []string
	links  []string
	err    error
}

func (r *recordingResetSender) SendPasswordReset(ctx context.Context, email, link string) error {
	r.emails = append(r.emails, email)
	r.links = append(r.links, link)
	return r.err
}

func newAuthService(repo *mockUserRepo, resetSender *recordingResetSender) *AuthService {
	return NewAuthService(repo, NewTokenService("test-secret"), resetSender, "https://subterrain.store", zap.NewNop())
}

func TestRegister_CreatesUserWithHashedPassword(t *testing.T) {
	repo := new(mockUserRepo)
	svc := newAuthService(repo, &recordingResetSender{})

	repo.On("FindByEmail", mock.Anything, "new@example.com").Return(nil, gorm.ErrRecordNotFound)
	repo.On("Create", mock.Anything, mock.AnythingOfType("*models.User")).Return(nil)

	user, err := svc.Register(context.Background(), "  New@Example.com ", "hunter22")

	assert.NoError(t, err)
	assert.Equal(t, "new@example.com", user.Email)
	assert.NotEqual(t, "hunter22", user.Password)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(user.Password), []byte("hunter22")))
	repo.AssertExpectations(t)
}

func TestRegister_DuplicateEmail(t *testing.T) {
	repo := new(mockUserRepo)
	svc := newAuthService(repo, &recordingResetSender{})

	repo.On("FindByEmail", mock.Anything, "taken@example.com").
		Return(&models.User{Email: "taken@example.com"}, nil)

	_, err := svc.Register(context.Background(), "taken@example.com", "hunter22")

	assert.EqualError(t, err, "email already exists")
	repo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestRegister_MissingFields(t *testing.T) {
	repo := new(mockUserRepo)
	svc := newAuthService(repo, &recordingResetSender{})

	_, err := svc.Register(context.Background(), "", "hunter22")
	assert.EqualError(t, err, "email and password are required")

	_, err = svc.Register(context.Background(), "a@b.com", "")
	assert.EqualError(t, err, "email and password are required")
}

func TestLogin_Success(t *testing.T) {
	repo := new(mockUserRepo)
	svc := newAuthService(repo, &recordingResetSender{})

	hashed, _ := bcrypt.GenerateFromPassword([]byte("hunter22"), bcrypt.DefaultCost)
	user := &models.User{ID: uuid.New(), Email: "member@example.com", Password: string(hashed)}
	repo.On("FindByEmail", mock.Anything, "member@example.com").Return(user, nil)

	tokens, err := svc.Login(context.Background(), "member@example.com", "hunter22")

	assert.NoError(t, err)
	assert.NotEmpty(t, tokens.AccessToken)
	assert.NotEmpty(t, tokens.RefreshToken)
}

func TestLogin_WrongPasswordAndUnknownEmailLookAlike(t *testing.T) {
	repo := new(mockUserRepo)
	svc := newAuthService(repo, &recordingResetSender{})

	hashed, _ := bcrypt.GenerateFromPassword([]byte("hunter22"), bcrypt.DefaultCost)
	repo.On("FindByEmail", mock.Anything, "member@example.com").
		Return(&models.User{ID: uuid.New(), Email: "member@example.com", Password: string(hashed)}, nil)
	repo.On("FindByEmail", mock.Anything, "ghost@example.com").Return(nil, gorm.ErrRecordNotFound)

	_, wrongPass := svc.Login(context.Background(), "member@example.com", "wrong")
	_, unknown := svc.Login(context.Background(), "ghost@example.com", "hunter22")

	assert.EqualError(t, wrongPass, "invalid email or password")
	assert.EqualError(t, unknown, "invalid email or password")
}

func TestResolveUser_RoundTrip(t *testing.T) {
	repo := new(mockUserRepo)
	svc := newAuthService(repo, &recordingResetSender{})

	userID := uuid.New()
	user := &models.User{ID: userID, Email: "member@example.com"}
	repo.On("FindByID", mock.Anything, userID).Return(user, nil)

	tokens, err := NewTokenService("test-secret").GenerateTokenPair(userID.String(), user.Email)
	assert.NoError(t, err)

	ref, err := svc.ResolveUser(context.Background(), tokens.AccessToken)

	assert.NoError(t, err)
	assert.Equal(t, userID, ref.ID)
	assert.Equal(t, "member@example.com", ref.Email)
}

func TestResolveUser_RejectsRefreshToken(t *testing.T) {
	repo := new(mockUserRepo)
	svc := newAuthService(repo, &recordingResetSender{})

	tokens, err := NewTokenService("test-secret").GenerateTokenPair(uuid.NewString(), "member@example.com")
	assert.NoError(t, err)

	_, err = svc.ResolveUser(context.Background(), tokens.RefreshToken)
	assert.Error(t, err)
}

func TestResolveUser_RejectsForgedToken(t *testing.T) {
	repo := new(mockUserRepo)
	svc := newAuthService(repo, &recordingResetSender{})

	tokens, err := NewTokenService("other-secret").GenerateTokenPair(uuid.NewString(), "member@example.com")
	assert.NoError(t, err)

	_, err = svc.ResolveUser(context.Background(), tokens.AccessToken)
	assert.Error(t, err)
}

func TestRequestPasswordReset_UnknownEmailStaysQuiet(t *testing.T) {
	repo := new(mockUserRepo)
	resetSender := &recordingResetSender{}
	svc := newAuthService(repo, resetSender)

	repo.On("FindByEmail", mock.Anything, "ghost@example.com").Return(nil, gorm.ErrRecordNotFound)

	err := svc.RequestPasswordReset(context.Background(), "ghost@example.com")

	assert.NoError(t, err)
	assert.Empty(t, resetSender.emails)
}

func TestRequestPasswordReset_SendsLink(t *testing.T) {
	repo := new(mockUserRepo)
	resetSender := &recordingResetSender{}
	svc := newAuthService(repo, resetSender)

	user := &models.User{ID: uuid.New(), Email: "member@example.com"}
	repo.On("FindByEmail", mock.Anything, "member@example.com").Return(user, nil)

	err := svc.RequestPasswordReset(context.Background(), "member@example.com")

	assert.NoError(t, err)
	assert.Equal(t, []string{"member@example.com"}, resetSender.emails)
	assert.Contains(t, resetSender.links[0], "https://subterrain.store/reset-password?token=")
}

func TestResetPassword_UpdatesHash(t *testing.T) {
	repo := new(mockUserRepo)
	svc := newAuthService(repo, &recordingResetSender{})

	userID := uuid.New()
	user := &models.User{ID: userID, Email: "member@example.com", Password: "old-hash"}
	repo.On("FindByID", mock.Anything, userID).Return(user, nil)
	repo.On("Update", mock.Anything, user).Return(nil)

	token, err := NewTokenService("test-secret").GenerateResetToken(userID.String(), user.Email)
	assert.NoError(t, err)

	assert.NoError(t, svc.ResetPassword(context.Background(), token, "new-password"))
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(user.Password), []byte("new-password")))
}

func TestResetPassword_RejectsAccessToken(t *testing.T) {
	repo := new(mockUserRepo)
	svc := newAuthService(repo, &recordingResetSender{})

	tokens, err := NewTokenService("test-secret").GenerateTokenPair(uuid.NewString(), "member@example.com")
	assert.NoError(t, err)

	err = svc.ResetPassword(context.Background(), tokens.AccessToken, "new-password")
	assert.EqualError(t, err, "invalid or expired reset token")
}

func TestRegister_RepoFailure(t *testing.T) {
	repo := new(mockUserRepo)
	svc := newAuthService(repo, &recordingResetSender{})

	repo.On("FindByEmail", mock.Anything, "new@example.com").Return(nil, gorm.ErrRecordNotFound)
	repo.On("Create", mock.Anything, mock.Anything).Return(errors.New("connection refused"))

	_, err := svc.Register(context.Background(), "new@example.com", "hunter22")
	assert.ErrorContains(t, err, "failed to create account")
}
