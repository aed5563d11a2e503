package routes

import (
	"net/http"

	"github.com/tomjwalt/subterrain1/controllers"
	"github.com/tomjwalt/subterrain1/middleware"

	"github.com/gin-gonic/gin"
)

type Controllers struct {
	Payments     *controllers.PaymentController
	Webhook      *controllers.WebhookController
	Email        *controllers.EmailController
	Checkout     *controllers.CheckoutController
	Auth         *controllers.AuthController
	Address      *controllers.AddressController
	Confirmation *controllers.ConfirmationController
}

// RegisterRoutes wires every endpoint onto the engine. Method-not-allowed is
// handled globally so a GET against a POST-only function gets a JSON 405
// instead of gin's default 404.
func RegisterRoutes(r *gin.Engine, c Controllers) {
	r.HandleMethodNotAllowed = true
	r.NoMethod(func(ctx *gin.Context) {
		ctx.JSON(http.StatusMethodNotAllowed, gin.H{"error": "method not allowed"})
	})
	r.NoRoute(func(ctx *gin.Context) {
		ctx.JSON(http.StatusNotFound, gin.H{"error": "not found"})
	})

	r.GET("/health", func(ctx *gin.Context) {
		ctx.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	// Serverless-style function endpoints kept under their original paths so
	// the storefront needs no changes.
	fn := r.Group("/functions/v1")
	{
		fn.POST("/create-payment-intent", c.Payments.CreatePaymentIntent)
		fn.POST("/stripe-webhook", c.Webhook.StripeWebhook)
		fn.POST("/send-order-email", c.Email.SendOrderEmail)
	}

	checkout := r.Group("/checkout")
	{
		checkout.POST("/sessions", c.Checkout.BeginSession)
		checkout.GET("/sessions/:id", c.Checkout.GetSession)
		checkout.POST("/sessions/:id/guest", c.Checkout.ChooseGuest)
		checkout.POST("/sessions/:id/email", c.Checkout.SubmitGuestEmail)
		checkout.POST("/sessions/:id/back", c.Checkout.Back)
	}

	auth := r.Group("/auth")
	auth.Use(middleware.RateLimitMiddleware())
	{
		auth.POST("/signup", c.Auth.Signup)
		auth.POST("/login", c.Auth.Login)
		auth.POST("/password-reset", c.Auth.RequestPasswordReset)
		auth.POST("/password-reset/confirm", c.Auth.ResetPassword)
		auth.GET("/me", c.Auth.Me)
	}

	address := r.Group("/address")
	{
		address.GET("/lookup", c.Address.Lookup)
		address.GET("/reverse", c.Address.Reverse)
	}

	r.GET("/order-confirmation", c.Confirmation.OrderConfirmation)
}
