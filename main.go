package main

import (
	"log"
	"time"

	"github.com/tomjwalt/subterrain1/config"
	"github.com/tomjwalt/subterrain1/controllers"
	"github.com/tomjwalt/subterrain1/database"
	"github.com/tomjwalt/subterrain1/middleware"
	"github.com/tomjwalt/subterrain1/models"
	"github.com/tomjwalt/subterrain1/providers"
	"github.com/tomjwalt/subterrain1/repository"
	"github.com/tomjwalt/subterrain1/routes"
	"github.com/tomjwalt/subterrain1/sender"
	"github.com/tomjwalt/subterrain1/services"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const (
	checkoutSessionTTL = 30 * time.Minute
	webhookDedupTTL    = 24 * time.Hour
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := zap.NewProduction()
	if err != nil {
		log.Fatalf("failed to initialise logger: %v", err)
	}
	defer logger.Sync()

	db, err := database.Connect(cfg)
	if err != nil {
		logger.Fatal("failed to connect to postgres", zap.Error(err))
	}
	if err := db.AutoMigrate(&models.User{}, &models.Payment{}); err != nil {
		logger.Fatal("failed to run migrations", zap.Error(err))
	}

	redisClient, err := database.NewRedisClient(cfg.RedisURL)
	if err != nil {
		logger.Fatal("failed to connect to redis", zap.Error(err))
	}

	emailSender, err := buildEmailSender(cfg)
	if err != nil {
		logger.Fatal("failed to configure email sender", zap.Error(err))
	}

	paymentRepo := repository.NewGormPaymentRepo(db)
	userRepo := repository.NewUserRepository(db)
	sessionRepo := repository.NewCheckoutSessionRepository(redisClient, checkoutSessionTTL)
	eventRepo := repository.NewWebhookEventRepository(redisClient, webhookDedupTTL)

	stripeSvc := services.NewStripeService(cfg.StripeSecretKey, cfg.StripeWebhookKey)
	paymentSvc := services.NewPaymentService(stripeSvc, paymentRepo, logger)
	emailSvc, err := services.NewEmailService(emailSender, "templates", logger)
	if err != nil {
		logger.Fatal("failed to load email templates", zap.Error(err))
	}
	tokenSvc := services.NewTokenService(cfg.JWTSecret)
	authSvc := services.NewAuthService(userRepo, tokenSvc, emailSvc, cfg.AppBaseURL, logger)
	checkoutSvc := services.NewCheckoutService(sessionRepo, authSvc, paymentSvc, cfg.OrderAmount, cfg.OrderCurrency, logger)
	addressSvc := services.NewAddressService(providers.NewPostcodesProvider(cfg.PostcodesBaseURL), logger)

	ctrls := routes.Controllers{
		Payments:     controllers.NewPaymentController(paymentSvc, logger),
		Webhook:      controllers.NewWebhookController(stripeSvc, eventRepo, paymentSvc, emailSvc, cfg.FallbackEmail, logger),
		Email:        controllers.NewEmailController(emailSvc, logger),
		Checkout:     controllers.NewCheckoutController(checkoutSvc, logger),
		Auth:         controllers.NewAuthController(authSvc, logger),
		Address:      controllers.NewAddressController(addressSvc, logger),
		Confirmation: controllers.NewConfirmationController(paymentSvc, checkoutSvc, logger),
	}

	if cfg.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestLogger(logger))

	routes.RegisterRoutes(r, ctrls)

	logger.Info("starting server", zap.String("port", cfg.Port))
	if err := r.Run(":" + cfg.Port); err != nil {
		logger.Fatal("server exited", zap.Error(err))
	}
}

func buildEmailSender(cfg *config.Config) (sender.EmailSender, error) {
	switch cfg.EmailProvider {
	case "smtp":
		return sender.NewSMTPSender(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUser, cfg.SMTPPass, cfg.EmailFrom)
	default:
		return sender.NewResendSender(cfg.ResendAPIKey, cfg.EmailFrom)
	}
}
