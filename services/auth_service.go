package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/tomjwalt/subterrain1/models"
	"github.com/tomjwalt/subterrain1/repository"

	"github.com/golang-jwt/jwt/v4"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// ITokenService is the subset of TokenService the auth gateway needs.
type ITokenService interface {
	GenerateTokenPair(userID, email string) (*TokenPair, error)
	GenerateResetToken(userID, email string) (string, error)
	ValidateToken(tokenStr, expectedType string) (jwt.MapClaims, error)
}

// ResetEmailSender delivers the password reset link.
type ResetEmailSender interface {
	SendPasswordReset(ctx context.Context, email, link string) error
}

// AuthService wraps sign-up, sign-in, password reset and current-user
// resolution. Errors are surfaced verbatim to the calling form.
type AuthService struct {
	userRepo   repository.UserRepository
	tokens     ITokenService
	resetMail  ResetEmailSender
	appBaseURL string
	logger     *zap.Logger
}

func NewAuthService(
	userRepo repository.UserRepository,
	tokens ITokenService,
	resetMail ResetEmailSender,
	appBaseURL string,
	logger *zap.Logger,
) *AuthService {
	return &AuthService{
		userRepo:   userRepo,
		tokens:     tokens,
		resetMail:  resetMail,
		appBaseURL: appBaseURL,
		logger:     logger,
	}
}

func (s *AuthService) Register(ctx context.Context, email, password string) (*models.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || password == "" {
		return nil, fmt.Errorf("email and password are required")
	}

	_, err := s.userRepo.FindByEmail(ctx, email)
	if err == nil {
		return nil, fmt.Errorf("email already exists")
	}
	if err != gorm.ErrRecordNotFound {
		return nil, err
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password")
	}

	user := &models.User{
		ID:       uuid.New(),
		Email:    email,
		Password: string(hashedPassword),
	}
	if err := s.userRepo.Create(ctx, user); err != nil {
		return nil, fmt.Errorf("failed to create account: %w", err)
	}
	return user, nil
}

func (s *AuthService) Login(ctx context.Context, email, password string) (*TokenPair, error) {
	user, err := s.userRepo.FindByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		return nil, fmt.Errorf("invalid email or password")
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)); err != nil {
		return nil, fmt.Errorf("invalid email or password")
	}
	return s.tokens.GenerateTokenPair(user.ID.String(), user.Email)
}

// ResolveUser maps a bearer token to the current user. Used by the checkout
// orchestrator's checking-auth state.
func (s *AuthService) ResolveUser(ctx context.Context, token string) (*models.UserRef, error) {
	claims, err := s.tokens.ValidateToken(token, "access")
	if err != nil {
		return nil, err
	}
	sub, _ := claims["sub"].(string)
	id, err := uuid.Parse(sub)
	if err != nil {
		return nil, fmt.Errorf("invalid token subject")
	}

	user, err := s.userRepo.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("user not found")
	}
	return &models.UserRef{ID: user.ID, Email: user.Email}, nil
}

// RequestPasswordReset always reports success to the caller so that the
// endpoint cannot be used to enumerate accounts.
func (s *AuthService) RequestPasswordReset(ctx context.Context, email string) error {
	user, err := s.userRepo.FindByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		s.logger.Info("password reset requested for unknown email")
		return nil
	}

	token, err := s.tokens.GenerateResetToken(user.ID.String(), user.Email)
	if err != nil {
		s.logger.Error("failed to generate reset token", zap.Error(err))
		return nil
	}

	link := fmt.Sprintf("%s/reset-password?token=%s", s.appBaseURL, token)
	if err := s.resetMail.SendPasswordReset(ctx, user.Email, link); err != nil {
		s.logger.Error("failed to send password reset email", zap.Error(err))
	}
	return nil
}

func (s *AuthService) ResetPassword(ctx context.Context, token, newPassword string) error {
	claims, err := s.tokens.ValidateToken(token, "reset")
	if err != nil {
		return fmt.Errorf("invalid or expired reset token")
	}
	if newPassword == "" {
		return fmt.Errorf("password is required")
	}

	sub, _ := claims["sub"].(string)
	id, err := uuid.Parse(sub)
	if err != nil {
		return fmt.Errorf("invalid token subject")
	}
	user, err := s.userRepo.FindByID(ctx, id)
	if err != nil {
		return fmt.Errorf("user not found")
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("failed to hash password")
	}
	user.Password = string(hashedPassword)
	return s.userRepo.Update(ctx, user)
}
